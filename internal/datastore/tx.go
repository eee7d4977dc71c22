package datastore

import (
	"fmt"

	"github.com/spacetimedb-go/core/internal/catalog"
	"github.com/spacetimedb-go/core/pkg/sats"
)

// TxId is a read-only snapshot transaction (§4.4): begin_tx captures a
// private, independent view of the committed store; release_tx discards
// it. Because the snapshot is cloned at begin time and never touches the
// live Store again, a TxId cannot observe any commit that happens after
// it was opened — the isolation scenario of §8 #3 holds regardless of
// whether that later transaction commits or rolls back.
type TxId struct {
	store  *Store
	tables map[catalog.TableID]*tableState
	closed bool
}

// BeginTx opens a new read-only snapshot transaction.
func (s *Store) BeginTx() *TxId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tables := make(map[catalog.TableID]*tableState, len(s.tables))
	for id, ts := range s.tables {
		tables[id] = ts.clone()
	}
	return &TxId{store: s, tables: tables}
}

// ReleaseTx closes the transaction; subsequent operations on it panic,
// matching the iterator-borrows-the-transaction contract of §4.4 (use
// after release is a caller bug, not a recoverable condition).
func (tx *TxId) ReleaseTx() { tx.closed = true }

func (tx *TxId) requireOpen() {
	if tx.closed {
		panic("datastore: use of TxId after ReleaseTx")
	}
}

func (tx *TxId) table(id catalog.TableID) (*tableState, error) {
	tx.requireOpen()
	ts, ok := tx.tables[id]
	if !ok {
		return nil, &TableNotFoundError{Name: fmt.Sprintf("table#%d", id)}
	}
	return ts, nil
}

func (tx *TxId) tableByName(name string) (*tableState, error) {
	tx.requireOpen()
	for _, ts := range tx.tables {
		if ts.schema.Name == name {
			return ts, nil
		}
	}
	return nil, &TableNotFoundError{Name: name}
}

// GetRow returns the row for id in table, if it is present in this
// transaction's snapshot.
func (tx *TxId) GetRow(table catalog.TableID, id RowID) (*sats.ProductValue, bool, error) {
	ts, err := tx.table(table)
	if err != nil {
		return nil, false, err
	}
	row, ok := ts.rows[id]
	return row, ok, nil
}

// Scan returns every row currently visible in table, in unspecified but
// stable-within-transaction order (§4.4).
func (tx *TxId) Scan(table catalog.TableID) ([]RowWithID, error) {
	ts, err := tx.table(table)
	if err != nil {
		return nil, err
	}
	return scanRows(ts), nil
}

// ScanByName resolves table by name first (used by the evaluator, which
// deals in names more often than IDs).
func (tx *TxId) ScanByName(name string) ([]RowWithID, catalog.TableID, error) {
	ts, err := tx.tableByName(name)
	if err != nil {
		return nil, 0, err
	}
	return scanRows(ts), ts.schema.TableID, nil
}

// Seek performs an exact-match lookup on colID, using a unique index
// when one exists, else falling back to a filtered scan with identical
// observable semantics (§4.4).
func (tx *TxId) Seek(table catalog.TableID, colID catalog.ColID, value sats.AlgebraicValue) ([]RowWithID, error) {
	ts, err := tx.table(table)
	if err != nil {
		return nil, err
	}
	return seekRows(ts, colID, value)
}

// RangeScan returns rows whose projection on colID falls within rng, in
// the order of the column's natural type when an index exists on it
// (§4.4). This implementation always evaluates in scan order augmented
// with a sort by natural order, since the in-memory representation has
// no separate ordered index structure — observable results match the
// spec regardless of whether an index "exists" in a B-tree sense.
func (tx *TxId) RangeScan(table catalog.TableID, colID catalog.ColID, rng Range) ([]RowWithID, error) {
	ts, err := tx.table(table)
	if err != nil {
		return nil, err
	}
	return rangeScanRows(ts, colID, rng)
}

// Schema returns the table schema visible to this transaction.
func (tx *TxId) Schema(table catalog.TableID) (*catalog.TableSchema, error) {
	ts, err := tx.table(table)
	if err != nil {
		return nil, err
	}
	return ts.schema.Clone(), nil
}

// TableIDFromName resolves a table name to its ID within this snapshot.
func (tx *TxId) TableIDFromName(name string) (catalog.TableID, error) {
	ts, err := tx.tableByName(name)
	if err != nil {
		return 0, err
	}
	return ts.schema.TableID, nil
}

// AllTables returns every schema visible in this snapshot (used by
// get_all_tables-style catalog introspection, traits.rs's
// get_all_tables_mut_tx).
func (tx *TxId) AllTables() []*catalog.TableSchema {
	tx.requireOpen()
	out := make([]*catalog.TableSchema, 0, len(tx.tables))
	for _, ts := range tx.tables {
		out = append(out, ts.schema.Clone())
	}
	return out
}
