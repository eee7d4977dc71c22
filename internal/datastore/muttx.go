package datastore

import (
	"sort"

	"github.com/spacetimedb-go/core/internal/catalog"
	"github.com/spacetimedb-go/core/pkg/sats"
)

// MutTxId is a read-write transaction (§4.4). Exactly one can be active
// at a time (the Store.writerMu single-writer lock, §5); while active it
// reads the committed base directly (nothing else can mutate it) layered
// under its own private write-set, giving read-your-own-writes within
// the transaction. commit_mut_tx atomically merges the write-set into
// the base; rollback_mut_tx discards it untouched.
type MutTxId struct {
	store *Store
	done  bool // true once committed or rolled back

	schemas       map[catalog.TableID]*catalog.TableSchema // working copy, mutated by DDL
	droppedTables map[catalog.TableID]bool

	overlayRows   map[catalog.TableID]map[RowID]*sats.ProductValue
	tombstones    map[catalog.TableID]map[RowID]bool
	uniqueOverlay map[catalog.TableID]map[catalog.IndexID]map[string]RowID

	seqLocal    map[catalog.SequenceID]*seqReservation
	seqOut      map[catalog.SequenceID]*sats.AlgebraicValue // pending committed Allocated, last reservation
	newSeqs     map[catalog.SequenceID]*catalog.SequenceSchema
	droppedSeqs map[catalog.SequenceID]bool

	// changeLog records inserts/deletes in program order for the commit
	// record (§4.4: "commit record ... preserves the intra-transaction
	// order of mutations").
	changeLog []ChangeRecord
}

// ChangeRecord is one row-level mutation, in the order it was applied.
type ChangeRecord struct {
	Table  catalog.TableID
	RowID  RowID
	Row    *sats.ProductValue
	Delete bool
}

// CommitRecord is the artifact optionally returned by commit_mut_tx for
// downstream consumers such as a write-ahead log (§4.4).
type CommitRecord struct {
	Changes []ChangeRecord
}

// BeginMutTx acquires the single-writer lock and opens a mutable
// transaction. It blocks until any currently-running mutable
// transaction commits or rolls back (§5: "the writer lock may block a
// reducer submission until the currently running reducer commits or
// rolls back; this is the only blocking point").
func (s *Store) BeginMutTx() *MutTxId {
	s.writerMu.Lock()
	m := &MutTxId{
		store:         s,
		schemas:       make(map[catalog.TableID]*catalog.TableSchema),
		droppedTables: make(map[catalog.TableID]bool),
		overlayRows:   make(map[catalog.TableID]map[RowID]*sats.ProductValue),
		tombstones:    make(map[catalog.TableID]map[RowID]bool),
		uniqueOverlay: make(map[catalog.TableID]map[catalog.IndexID]map[string]RowID),
		seqLocal:      make(map[catalog.SequenceID]*seqReservation),
		seqOut:        make(map[catalog.SequenceID]*sats.AlgebraicValue),
		newSeqs:       make(map[catalog.SequenceID]*catalog.SequenceSchema),
	}
	for id, ts := range s.tables {
		m.schemas[id] = ts.schema.Clone()
	}
	return m
}

func (m *MutTxId) requireOpen() {
	if m.done {
		panic("datastore: use of MutTxId after commit/rollback")
	}
}

// RollbackMutTx discards the write-set; no base mutation ever occurred,
// so this is simply releasing the writer lock (§4.4).
func (m *MutTxId) RollbackMutTx() {
	m.requireOpen()
	m.done = true
	m.store.writerMu.Unlock()
}

// CommitMutTx merges the write-set atomically and returns the ordered
// commit record. It does not re-check unique constraints against the
// base at commit time; the only unique checks are the ones Insert makes
// while the transaction holds the writer lock.
func (m *MutTxId) CommitMutTx() (*CommitRecord, error) {
	m.requireOpen()
	defer func() {
		m.done = true
		m.store.writerMu.Unlock()
	}()

	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range m.droppedTables {
		delete(s.tables, id)
		s.cache.Delete(id)
	}
	for id, schema := range m.schemas {
		if m.droppedTables[id] {
			continue
		}
		ts, ok := s.tables[id]
		if !ok {
			ts = newTableState(schema)
			s.tables[id] = ts
		}
		ts.schema = schema
		if tomb, ok := m.tombstones[id]; ok {
			for rid := range tomb {
				delete(ts.rows, rid)
			}
		}
		if ov, ok := m.overlayRows[id]; ok {
			for rid, row := range ov {
				ts.rows[rid] = row
			}
		}
		rebuildUniqueIndexes(ts)
		s.cache.Put(schema.Clone())
	}
	for id := range m.droppedSeqs {
		delete(s.sequences, id)
	}
	for id, schema := range m.newSeqs {
		s.sequences[id] = schema
	}
	for id, allocated := range m.seqOut {
		if seq, ok := s.sequences[id]; ok {
			v, _ := allocated.AsBig128()
			seq.Allocated = v
		}
	}
	return &CommitRecord{Changes: m.changeLog}, nil
}

func rebuildUniqueIndexes(ts *tableState) {
	ts.unique = make(map[catalog.IndexID]map[string]RowID)
	for _, ix := range ts.schema.Indexes {
		if !ix.IsUnique {
			continue
		}
		m := make(map[string]RowID)
		col, _, ok := ts.schema.ColumnByID(ix.ColID)
		if !ok {
			continue
		}
		for rid, row := range ts.rows {
			key, err := indexKey(row, ix.ColID, col.Type)
			if err == nil {
				m[key] = rid
			}
		}
		ts.unique[ix.IndexID] = m
	}
}

func (m *MutTxId) effectiveSchema(id catalog.TableID) (*catalog.TableSchema, bool) {
	if m.droppedTables[id] {
		return nil, false
	}
	s, ok := m.schemas[id]
	return s, ok
}

func (m *MutTxId) effectiveSchemaByName(name string) (*catalog.TableSchema, bool) {
	for id, s := range m.schemas {
		if m.droppedTables[id] {
			continue
		}
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

func (m *MutTxId) effectiveRows(id catalog.TableID) []RowWithID {
	var out []RowWithID
	if base, ok := m.store.tables[id]; ok {
		tomb := m.tombstones[id]
		for rid, row := range base.rows {
			if tomb != nil && tomb[rid] {
				continue
			}
			out = append(out, RowWithID{ID: rid, Row: row})
		}
	}
	if ov, ok := m.overlayRows[id]; ok {
		for rid, row := range ov {
			out = append(out, RowWithID{ID: rid, Row: row})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MutTxId) uniqueKeyTaken(tableID catalog.TableID, ix catalog.IndexID, key string) bool {
	if base, ok := m.store.tables[tableID]; ok {
		if rid, ok := base.unique[ix][key]; ok {
			tomb := m.tombstones[tableID]
			if tomb == nil || !tomb[rid] {
				return true
			}
		}
	}
	if _, ok := m.uniqueOverlay[tableID][ix][key]; ok {
		return true
	}
	return false
}

// Schema returns the working-copy schema visible to this transaction.
func (m *MutTxId) Schema(id catalog.TableID) (*catalog.TableSchema, error) {
	m.requireOpen()
	s, ok := m.effectiveSchema(id)
	if !ok {
		return nil, &TableNotFoundError{Name: fmtTableID(id)}
	}
	return s.Clone(), nil
}

// TableIDExists reports whether id is a live table in this transaction.
func (m *MutTxId) TableIDExists(id catalog.TableID) bool {
	_, ok := m.effectiveSchema(id)
	return ok
}

// TableIDFromName resolves name to a TableID.
func (m *MutTxId) TableIDFromName(name string) (catalog.TableID, error) {
	m.requireOpen()
	s, ok := m.effectiveSchemaByName(name)
	if !ok {
		return 0, &TableNotFoundError{Name: name}
	}
	return s.TableID, nil
}

// AllTables returns every schema visible to this transaction (used by
// get_all_tables_mut_tx in traits.rs).
func (m *MutTxId) AllTables() []*catalog.TableSchema {
	m.requireOpen()
	out := make([]*catalog.TableSchema, 0, len(m.schemas))
	for id, s := range m.schemas {
		if m.droppedTables[id] {
			continue
		}
		out = append(out, s.Clone())
	}
	return out
}

func fmtTableID(id catalog.TableID) string {
	return "table#" + itoa(uint32(id))
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
