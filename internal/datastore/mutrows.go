package datastore

import (
	"sort"

	"github.com/spacetimedb-go/core/internal/catalog"
	"github.com/spacetimedb-go/core/pkg/sats"
)

// GetRow returns the row for id in table as currently visible to this
// transaction (its own writes included, read-your-own-writes).
func (m *MutTxId) GetRow(table catalog.TableID, id RowID) (*sats.ProductValue, bool, error) {
	m.requireOpen()
	if _, ok := m.effectiveSchema(table); !ok {
		return nil, false, &TableNotFoundError{Name: fmtTableID(table)}
	}
	if tomb := m.tombstones[table]; tomb != nil && tomb[id] {
		return nil, false, nil
	}
	if ov, ok := m.overlayRows[table][id]; ok {
		return ov, true, nil
	}
	if base, ok := m.store.tables[table]; ok {
		row, ok := base.rows[id]
		return row, ok, nil
	}
	return nil, false, nil
}

// Scan returns every row currently visible in table.
func (m *MutTxId) Scan(table catalog.TableID) ([]RowWithID, error) {
	m.requireOpen()
	if _, ok := m.effectiveSchema(table); !ok {
		return nil, &TableNotFoundError{Name: fmtTableID(table)}
	}
	return m.effectiveRows(table), nil
}

// ScanByName resolves table by name, then scans it.
func (m *MutTxId) ScanByName(name string) ([]RowWithID, catalog.TableID, error) {
	m.requireOpen()
	schema, ok := m.effectiveSchemaByName(name)
	if !ok {
		return nil, 0, &TableNotFoundError{Name: name}
	}
	return m.effectiveRows(schema.TableID), schema.TableID, nil
}

// Seek performs an exact-match lookup on colID against the merged view.
// Unlike TxId.Seek this always filters rather than using the unique-index
// fast path, since the overlay would otherwise need its own parallel
// index structure for a performance gain invisible in observable results.
func (m *MutTxId) Seek(table catalog.TableID, colID catalog.ColID, value sats.AlgebraicValue) ([]RowWithID, error) {
	m.requireOpen()
	if _, ok := m.effectiveSchema(table); !ok {
		return nil, &TableNotFoundError{Name: fmtTableID(table)}
	}
	var out []RowWithID
	for _, rw := range m.effectiveRows(table) {
		v, ok := rw.Row.Column(int(colID))
		if !ok {
			continue
		}
		if sats.Equal(v, value) {
			out = append(out, rw)
		}
	}
	return out, nil
}

// RangeScan returns rows whose projection on colID falls within rng, sorted
// by that column's natural order.
func (m *MutTxId) RangeScan(table catalog.TableID, colID catalog.ColID, rng Range) ([]RowWithID, error) {
	m.requireOpen()
	if _, ok := m.effectiveSchema(table); !ok {
		return nil, &TableNotFoundError{Name: fmtTableID(table)}
	}
	var out []RowWithID
	for _, rw := range m.effectiveRows(table) {
		v, ok := rw.Row.Column(int(colID))
		if !ok {
			continue
		}
		if inRange(v, rng) {
			out = append(out, rw)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		vi, _ := out[i].Row.Column(int(colID))
		vj, _ := out[j].Row.Column(int(colID))
		cmp, _ := sats.Compare(vi, vj)
		return cmp < 0
	})
	return out, nil
}

func (m *MutTxId) findSequenceForColumn(table catalog.TableID, col catalog.ColID) (*catalog.SequenceSchema, bool) {
	for _, seq := range m.newSeqs {
		if seq.TableID == table && seq.ColID == col {
			return seq, true
		}
	}
	for _, seq := range m.store.sequences {
		if seq.TableID == table && seq.ColID == col {
			return seq, true
		}
	}
	return nil, false
}

// Insert assigns fresh sequence values to every autoinc column (overwriting
// whatever placeholder the caller supplied, matching the bindings' re-decode
// behavior noted in DESIGN.md), checks every unique index against the
// merged base+overlay view, and appends the row to the write-set.
func (m *MutTxId) Insert(table catalog.TableID, row *sats.ProductValue) (RowID, *sats.ProductValue, error) {
	m.requireOpen()
	schema, ok := m.effectiveSchema(table)
	if !ok {
		return 0, nil, &TableNotFoundError{Name: fmtTableID(table)}
	}
	if len(row.Elements) != len(schema.Columns) {
		return 0, nil, ErrTypeMismatch
	}
	newRow := row.Clone()
	for i, col := range schema.Columns {
		if newRow.Elements[i].Kind != col.Type.Kind {
			return 0, nil, ErrTypeMismatch
		}
		if col.IsAutoinc {
			seq, ok := m.findSequenceForColumn(table, col.ColID)
			if !ok {
				return 0, nil, ErrSequenceExhausted
			}
			val, err := m.nextSequenceValue(seq)
			if err != nil {
				return 0, nil, err
			}
			newRow.Elements[i] = valueFromBig(col.Type.Kind, val)
		}
	}
	for _, ix := range schema.Indexes {
		if !ix.IsUnique {
			continue
		}
		col, _, ok := schema.ColumnByID(ix.ColID)
		if !ok {
			continue
		}
		key, err := indexKey(newRow, ix.ColID, col.Type)
		if err != nil {
			return 0, nil, err
		}
		if m.uniqueKeyTaken(table, ix.IndexID, key) {
			return 0, nil, &UniqueConstraintViolationError{Table: schema.Name, Column: col.Name}
		}
	}
	rid := RowID(m.store.nextRowID.Add(1))
	if m.overlayRows[table] == nil {
		m.overlayRows[table] = make(map[RowID]*sats.ProductValue)
	}
	m.overlayRows[table][rid] = newRow
	for _, ix := range schema.Indexes {
		if !ix.IsUnique {
			continue
		}
		col, _, ok := schema.ColumnByID(ix.ColID)
		if !ok {
			continue
		}
		key, _ := indexKey(newRow, ix.ColID, col.Type)
		if m.uniqueOverlay[table] == nil {
			m.uniqueOverlay[table] = make(map[catalog.IndexID]map[string]RowID)
		}
		if m.uniqueOverlay[table][ix.IndexID] == nil {
			m.uniqueOverlay[table][ix.IndexID] = make(map[string]RowID)
		}
		m.uniqueOverlay[table][ix.IndexID][key] = rid
	}
	m.changeLog = append(m.changeLog, ChangeRecord{Table: table, RowID: rid, Row: newRow})
	return rid, newRow, nil
}

// Delete removes rowID from table. It is idempotent: deleting an
// already-absent row returns (false, nil) rather than an error, matching
// delete_by_field's "delete nothing, report it" behavior from the
// bindings (§4.4, Open Question resolved in DESIGN.md).
func (m *MutTxId) Delete(table catalog.TableID, rowID RowID) (bool, error) {
	m.requireOpen()
	schema, ok := m.effectiveSchema(table)
	if !ok {
		return false, &TableNotFoundError{Name: fmtTableID(table)}
	}
	if ov, ok := m.overlayRows[table]; ok {
		if row, ok := ov[rowID]; ok {
			delete(ov, rowID)
			m.removeFromUniqueOverlay(table, schema, rowID)
			m.changeLog = append(m.changeLog, ChangeRecord{Table: table, RowID: rowID, Row: row, Delete: true})
			return true, nil
		}
	}
	if base, ok := m.store.tables[table]; ok {
		if row, ok := base.rows[rowID]; ok {
			if m.tombstones[table] == nil {
				m.tombstones[table] = make(map[RowID]bool)
			}
			if !m.tombstones[table][rowID] {
				m.tombstones[table][rowID] = true
				m.changeLog = append(m.changeLog, ChangeRecord{Table: table, RowID: rowID, Row: row, Delete: true})
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *MutTxId) removeFromUniqueOverlay(table catalog.TableID, schema *catalog.TableSchema, rowID RowID) {
	for ixID, byKey := range m.uniqueOverlay[table] {
		for k, rid := range byKey {
			if rid == rowID {
				delete(byKey, k)
			}
		}
		m.uniqueOverlay[table][ixID] = byKey
	}
}

// DeleteEq deletes every row whose projection on colID equals value,
// returning the count removed.
func (m *MutTxId) DeleteEq(table catalog.TableID, colID catalog.ColID, value sats.AlgebraicValue) (uint32, error) {
	m.requireOpen()
	rows, err := m.Seek(table, colID, value)
	if err != nil {
		return 0, err
	}
	var n uint32
	for _, rw := range rows {
		ok, err := m.Delete(table, rw.ID)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

