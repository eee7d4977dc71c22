package datastore

import (
	"github.com/spacetimedb-go/core/internal/catalog"
)

// CreateTable registers a new table schema, assigning it a fresh TableID
// (always >= catalog.FirstUserTableID). Columns/indexes are supplied
// fully formed by the caller (the evaluator's CREATE TABLE handler),
// mirroring traits.rs's create_table_mut_tx which takes a complete
// TableSchema rather than building one incrementally.
func (m *MutTxId) CreateTable(name string, columns []catalog.ColumnSchema, indexes []catalog.IndexSchema) (catalog.TableID, error) {
	m.requireOpen()
	if _, ok := m.effectiveSchemaByName(name); ok {
		return 0, ErrDuplicateName
	}
	id := catalog.TableID(m.store.nextTableID.Add(1))
	schema := &catalog.TableSchema{
		TableID: id,
		Name:    name,
		Columns: append([]catalog.ColumnSchema(nil), columns...),
		Indexes: append([]catalog.IndexSchema(nil), indexes...),
	}
	for i := range schema.Columns {
		schema.Columns[i].TableID = id
	}
	for i := range schema.Indexes {
		schema.Indexes[i].TableID = id
	}
	m.schemas[id] = schema
	return id, nil
}

// DropTable removes a table and everything it contains. A table created
// and dropped within the same transaction simply never reaches the base
// store; dropping a committed table marks it for removal at commit.
func (m *MutTxId) DropTable(id catalog.TableID) error {
	m.requireOpen()
	if _, ok := m.effectiveSchema(id); !ok {
		return &TableNotFoundError{Name: fmtTableID(id)}
	}
	delete(m.schemas, id)
	delete(m.overlayRows, id)
	delete(m.tombstones, id)
	delete(m.uniqueOverlay, id)
	if _, ok := m.store.tables[id]; ok {
		m.droppedTables[id] = true
	}
	return nil
}

// RenameTable changes a table's name in place; its TableID, columns, and
// indexes are untouched.
func (m *MutTxId) RenameTable(id catalog.TableID, newName string) error {
	m.requireOpen()
	schema, ok := m.effectiveSchema(id)
	if !ok {
		return &TableNotFoundError{Name: fmtTableID(id)}
	}
	if other, ok := m.effectiveSchemaByName(newName); ok && other.TableID != id {
		return ErrDuplicateName
	}
	schema.Name = newName
	return nil
}

// CreateIndex adds an index to an existing table, assigning a fresh
// IndexID, then backfills it from every row currently visible (so a
// unique index created over data that already violates uniqueness fails
// immediately rather than silently admitting duplicates).
func (m *MutTxId) CreateIndex(table catalog.TableID, name string, col catalog.ColID, unique bool) (catalog.IndexID, error) {
	m.requireOpen()
	schema, ok := m.effectiveSchema(table)
	if !ok {
		return 0, &TableNotFoundError{Name: fmtTableID(table)}
	}
	colSchema, _, ok := schema.ColumnByID(col)
	if !ok {
		return 0, &ColumnNotFoundError{Table: schema.Name, Column: "col#" + itoa(uint32(col))}
	}
	id := catalog.IndexID(m.store.nextIndexID.Add(1))
	if unique {
		seen := make(map[string]bool)
		for _, rw := range m.effectiveRows(table) {
			key, err := indexKey(rw.Row, col, colSchema.Type)
			if err != nil {
				return 0, err
			}
			if seen[key] {
				return 0, &UniqueConstraintViolationError{Table: schema.Name, Column: colSchema.Name}
			}
			seen[key] = true
		}
	}
	schema.Indexes = append(schema.Indexes, catalog.IndexSchema{
		IndexID:  id,
		TableID:  table,
		ColID:    col,
		Name:     name,
		IsUnique: unique,
	})
	if unique {
		// Seed the overlay only with rows that are themselves overlay
		// inserts; base rows are covered once the base tableState's own
		// unique map is rebuilt at commit (rebuildUniqueIndexes).
		overlay := make(map[string]RowID)
		for rid, row := range m.overlayRows[table] {
			key, _ := indexKey(row, col, colSchema.Type)
			overlay[key] = rid
		}
		if m.uniqueOverlay[table] == nil {
			m.uniqueOverlay[table] = make(map[catalog.IndexID]map[string]RowID)
		}
		m.uniqueOverlay[table][id] = overlay
	}
	return id, nil
}

// DropIndex removes an index definition from its table's schema.
func (m *MutTxId) DropIndex(table catalog.TableID, id catalog.IndexID) error {
	m.requireOpen()
	schema, ok := m.effectiveSchema(table)
	if !ok {
		return &TableNotFoundError{Name: fmtTableID(table)}
	}
	out := schema.Indexes[:0]
	found := false
	for _, ix := range schema.Indexes {
		if ix.IndexID == id {
			found = true
			continue
		}
		out = append(out, ix)
	}
	if !found {
		return ErrIndexNotFound
	}
	schema.Indexes = out
	delete(m.uniqueOverlay[table], id)
	return nil
}

// IndexIDFromName resolves an index's name to its ID within table.
func (m *MutTxId) IndexIDFromName(table catalog.TableID, name string) (catalog.IndexID, error) {
	m.requireOpen()
	schema, ok := m.effectiveSchema(table)
	if !ok {
		return 0, &TableNotFoundError{Name: fmtTableID(table)}
	}
	for _, ix := range schema.Indexes {
		if ix.Name == name {
			return ix.IndexID, nil
		}
	}
	return 0, ErrIndexNotFound
}
