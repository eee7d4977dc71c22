package datastore

import (
	"sort"

	"github.com/spacetimedb-go/core/internal/catalog"
	"github.com/spacetimedb-go/core/pkg/sats"
)

// RowWithID pairs a row with the RowID it was inserted under, the shape
// every scan/seek/range_scan iterator yields (§4.4).
type RowWithID struct {
	ID  RowID
	Row *sats.ProductValue
}

// Range describes a half-open or closed interval over one column's
// natural order (§4.4 range_scan). A nil bound is unbounded on that side.
type Range struct {
	Min       *sats.AlgebraicValue
	Max       *sats.AlgebraicValue
	MinExcl   bool
	MaxExcl   bool
}

func scanRows(ts *tableState) []RowWithID {
	out := make([]RowWithID, 0, len(ts.rows))
	for id, row := range ts.rows {
		out = append(out, RowWithID{ID: id, Row: row})
	}
	// Stable order within a transaction, as required by §4.4; RowID
	// assignment order is a reasonable, easily reproduced choice.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func seekRows(ts *tableState, colID catalog.ColID, value sats.AlgebraicValue) ([]RowWithID, error) {
	col, _, ok := ts.schema.ColumnByID(colID)
	if !ok {
		return nil, &ColumnNotFoundError{Table: ts.schema.Name, Column: "?"}
	}
	if ix, ok := ts.schema.IndexOnColumn(colID); ok && ix.IsUnique {
		key, err := indexKey(&sats.ProductValue{Elements: []sats.AlgebraicValue{value}}, 0, col.Type)
		if err != nil {
			return nil, err
		}
		if rid, ok := ts.unique[ix.IndexID][key]; ok {
			return []RowWithID{{ID: rid, Row: ts.rows[rid]}}, nil
		}
		return nil, nil
	}
	// No usable index: filtered scan with identical observable semantics.
	var out []RowWithID
	for _, rw := range scanRows(ts) {
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

func rangeScanRows(ts *tableState, colID catalog.ColID, rng Range) ([]RowWithID, error) {
	if _, _, ok := ts.schema.ColumnByID(colID); !ok {
		return nil, &ColumnNotFoundError{Table: ts.schema.Name, Column: "?"}
	}
	var out []RowWithID
	for _, rw := range scanRows(ts) {
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

func inRange(v sats.AlgebraicValue, rng Range) bool {
	if rng.Min != nil {
		cmp, err := sats.Compare(v, *rng.Min)
		if err != nil {
			return false
		}
		if rng.MinExcl && cmp <= 0 {
			return false
		}
		if !rng.MinExcl && cmp < 0 {
			return false
		}
	}
	if rng.Max != nil {
		cmp, err := sats.Compare(v, *rng.Max)
		if err != nil {
			return false
		}
		if rng.MaxExcl && cmp >= 0 {
			return false
		}
		if !rng.MaxExcl && cmp > 0 {
			return false
		}
	}
	return true
}
