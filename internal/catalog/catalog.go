// Package catalog defines the system-table schema model of spec §4.3 and
// §6: the four reserved system tables, the ColumnSchema/IndexSchema/
// SequenceSchema/TableSchema family, and the row<->schema conversions
// that let those definitions be stored as ordinary rows in the
// datastore ("themselves stored in the datastore", §4.3).
//
// Catalog *operations* (create_table, drop_table, ...) are not here —
// they are transactional mutations and belong to internal/datastore,
// which imports this package for the shapes. Grounded on
// internal/db/tables.go (TableMetadata/ColumnMetadata/IndexMetadata
// family) and original_source's traits.rs (TableSchema/ColumnSchema/
// IndexSchema/SequenceSchema).
package catalog

import (
	"math/big"

	"github.com/spacetimedb-go/core/pkg/sats"
)

type TableID uint32
type ColID uint32
type IndexID uint32
type SequenceID uint32

// Reserved system table IDs (spec §6 — must match bit-exact).
const (
	STTablesID    TableID = 0
	STColumnsID   TableID = 1
	STSequencesID TableID = 2
	STIndexesID   TableID = 3

	// FirstUserTableID is the smallest table_id the catalog will assign
	// to a user table (spec §6: "User tables start at table_id >= 16").
	FirstUserTableID TableID = 16
)

const (
	STTablesName    = "st_table"
	STColumnsName   = "st_columns"
	STIndexesName   = "st_indexes"
	STSequencesName = "st_sequences"
)

// ColumnSchema carries (table_id, col_id, name, type, is_autoinc) per §3.
type ColumnSchema struct {
	TableID   TableID
	ColID     ColID
	Name      string
	Type      sats.AlgebraicType
	IsAutoinc bool
}

// IndexSchema carries (index_id, table_id, col_id, name, is_unique) per §3.
// Uniqueness lives on the index, not the column — matching traits.rs's
// comment that "unique constraints do not belong [on ColumnSchema]".
type IndexSchema struct {
	IndexID  IndexID
	TableID  TableID
	ColID    ColID
	Name     string
	IsUnique bool
}

// SequenceSchema carries 128-bit integer state bound to a single
// (table_id, col_id) per §3/§4.4. Allocated is the high-water mark of
// values handed out so far; internal/datastore's nextSequenceValue
// advances it by Increment and fails once the next value would pass Max.
type SequenceSchema struct {
	SequenceID SequenceID
	Name       string
	TableID    TableID
	ColID      ColID
	Increment  *big.Int
	Start      *big.Int
	Min        *big.Int
	Max        *big.Int
	Allocated  *big.Int
}

// TableSchema is the catalog entity of §3: table_id, table_name, an
// ordered column list, and the indexes defined over it.
type TableSchema struct {
	TableID  TableID
	Name     string
	IsSystem bool
	Columns  []ColumnSchema
	Indexes  []IndexSchema
}

// RowType builds the ProductType that every row of this table must
// match (§3: "a row's serialized product type matches its owning
// table's declared product type").
func (t *TableSchema) RowType() sats.AlgebraicType {
	elems := make([]sats.ProductTypeElement, len(t.Columns))
	for i, c := range t.Columns {
		elems[i] = sats.Elem(c.Name, c.Type)
	}
	return sats.ProductTypeOf(elems...)
}

// ColumnByName returns the column schema and its positional index, or
// ok=false if no such column exists.
func (t *TableSchema) ColumnByName(name string) (ColumnSchema, int, bool) {
	for i, c := range t.Columns {
		if c.Name == name {
			return c, i, true
		}
	}
	return ColumnSchema{}, -1, false
}

// ColumnByID returns the column schema with the given ColID.
func (t *TableSchema) ColumnByID(id ColID) (ColumnSchema, int, bool) {
	for i, c := range t.Columns {
		if c.ColID == id {
			return c, i, true
		}
	}
	return ColumnSchema{}, -1, false
}

// IndexOnColumn returns the first index schema defined over col, if any.
func (t *TableSchema) IndexOnColumn(col ColID) (IndexSchema, bool) {
	for _, ix := range t.Indexes {
		if ix.ColID == col {
			return ix, true
		}
	}
	return IndexSchema{}, false
}

// Clone deep-copies a TableSchema so catalog-cache readers never observe
// mutation of a live schema object (§3 "external holders receive clones").
func (t *TableSchema) Clone() *TableSchema {
	out := &TableSchema{TableID: t.TableID, Name: t.Name, IsSystem: t.IsSystem}
	out.Columns = append([]ColumnSchema(nil), t.Columns...)
	out.Indexes = append([]IndexSchema(nil), t.Indexes...)
	return out
}
