package datastore

import (
	"sync"
	"sync/atomic"

	"github.com/spacetimedb-go/core/internal/catalog"
	"github.com/spacetimedb-go/core/pkg/bsatn"
	"github.com/spacetimedb-go/core/pkg/sats"
)

// RowID is the opaque, store-wide identifier returned by insert and
// accepted by delete/get (Glossary). It is never reused.
type RowID uint64

// tableState is the committed, in-memory representation of one table:
// its schema plus every currently-live row, plus a fast unique-index
// lookup keyed by the BSATN-encoded projected column value (comparable
// and deterministic by the round-trip law of §4.2, so it is safe to use
// as a Go map key).
type tableState struct {
	schema *catalog.TableSchema
	rows   map[RowID]*sats.ProductValue
	unique map[catalog.IndexID]map[string]RowID
}

func newTableState(schema *catalog.TableSchema) *tableState {
	ts := &tableState{
		schema: schema,
		rows:   make(map[RowID]*sats.ProductValue),
		unique: make(map[catalog.IndexID]map[string]RowID),
	}
	for _, ix := range schema.Indexes {
		if ix.IsUnique {
			ts.unique[ix.IndexID] = make(map[string]RowID)
		}
	}
	return ts
}

// clone returns a shallow copy suitable as a read transaction's private
// snapshot: the row map and unique-index maps are copied so later
// mutation of the live tableState is invisible to a held clone, but the
// *sats.ProductValue row values themselves are never mutated in place
// (only replaced wholesale), so sharing those pointers is safe.
func (ts *tableState) clone() *tableState {
	out := &tableState{
		schema: ts.schema.Clone(),
		rows:   make(map[RowID]*sats.ProductValue, len(ts.rows)),
		unique: make(map[catalog.IndexID]map[string]RowID, len(ts.unique)),
	}
	for id, row := range ts.rows {
		out.rows[id] = row
	}
	for ix, m := range ts.unique {
		nm := make(map[string]RowID, len(m))
		for k, v := range m {
			nm[k] = v
		}
		out.unique[ix] = nm
	}
	return out
}

func indexKey(row *sats.ProductValue, colID catalog.ColID, colType sats.AlgebraicType) (string, error) {
	v, ok := row.Column(int(colID))
	if !ok {
		return "", ErrColumnNotFound
	}
	b, err := bsatn.EncodeValue(colType, v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Store is the single-node logical datastore: committed tables, sequence
// state, and the single-writer lock that enforces §5's concurrency
// model ("multiple concurrent read transactions and at most one
// concurrent mutable transaction").
type Store struct {
	mu sync.RWMutex // guards tables/sequences/cache against concurrent commit vs snapshot-read

	writerMu sync.Mutex // held for the lifetime of one MutTxId — the single-writer lock

	tables    map[catalog.TableID]*tableState
	sequences map[catalog.SequenceID]*catalog.SequenceSchema
	cache     *catalog.Cache

	nextTableID    atomic.Uint32
	nextIndexID    atomic.Uint32
	nextSequenceID atomic.Uint32
	nextRowID      atomic.Uint64
}

// New constructs a Store with the four system tables bootstrapped and
// populated with their own self-describing rows (§4.3, SPEC_FULL
// supplemented feature: catalog self-query).
func New() *Store {
	s := &Store{
		tables:    make(map[catalog.TableID]*tableState),
		sequences: make(map[catalog.SequenceID]*catalog.SequenceSchema),
		cache:     catalog.NewCache(),
	}
	s.nextTableID.Store(uint32(catalog.FirstUserTableID))
	s.bootstrap()
	return s
}

func (s *Store) bootstrap() {
	systemTables := catalog.SystemTableSchemas()
	for _, t := range systemTables {
		s.tables[t.TableID] = newTableState(t)
		s.cache.Put(t)
	}
	// Populate st_table and st_columns with rows describing the system
	// tables themselves, so "SELECT * FROM st_table" works immediately.
	stTables := s.tables[catalog.STTablesID]
	stColumns := s.tables[catalog.STColumnsID]
	for _, t := range systemTables {
		rid := RowID(s.nextRowID.Add(1))
		stTables.rows[rid] = catalog.TableRow(t)
		for _, col := range t.Columns {
			colRow, err := catalog.ColumnRow(col)
			if err != nil {
				// system column types are all primitives; encoding
				// cannot fail, a failure here is a programming error.
				panic(err)
			}
			crid := RowID(s.nextRowID.Add(1))
			stColumns.rows[crid] = colRow
		}
	}
}
