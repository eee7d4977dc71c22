package catalog

import "github.com/spacetimedb-go/core/pkg/sats"

// SystemTableSchemas returns the four bootstrap table definitions of
// §4.3, in st_tables row order. These are ordinary TableSchema values —
// the datastore inserts their own describing rows into st_tables/
// st_columns at bootstrap so the catalog can answer "describe st_table"
// the same way it answers for any user table (supplemented feature:
// catalog self-query, see SPEC_FULL.md).
func SystemTableSchemas() []*TableSchema {
	return []*TableSchema{
		{
			TableID:  STTablesID,
			Name:     STTablesName,
			IsSystem: true,
			Columns: []ColumnSchema{
				{TableID: STTablesID, ColID: 0, Name: "table_id", Type: sats.U32Type()},
				{TableID: STTablesID, ColID: 1, Name: "table_name", Type: sats.StringType()},
				{TableID: STTablesID, ColID: 2, Name: "is_system", Type: sats.BoolType()},
			},
		},
		{
			TableID:  STColumnsID,
			Name:     STColumnsName,
			IsSystem: true,
			Columns: []ColumnSchema{
				{TableID: STColumnsID, ColID: 0, Name: "table_id", Type: sats.U32Type()},
				{TableID: STColumnsID, ColID: 1, Name: "col_id", Type: sats.U32Type()},
				{TableID: STColumnsID, ColID: 2, Name: "col_name", Type: sats.StringType()},
				{TableID: STColumnsID, ColID: 3, Name: "col_type", Type: sats.BytesType()},
				{TableID: STColumnsID, ColID: 4, Name: "is_autoinc", Type: sats.BoolType()},
			},
		},
		{
			TableID:  STIndexesID,
			Name:     STIndexesName,
			IsSystem: true,
			Columns: []ColumnSchema{
				{TableID: STIndexesID, ColID: 0, Name: "index_id", Type: sats.U32Type()},
				{TableID: STIndexesID, ColID: 1, Name: "table_id", Type: sats.U32Type()},
				{TableID: STIndexesID, ColID: 2, Name: "col_id", Type: sats.U32Type()},
				{TableID: STIndexesID, ColID: 3, Name: "index_name", Type: sats.StringType()},
				{TableID: STIndexesID, ColID: 4, Name: "is_unique", Type: sats.BoolType()},
			},
		},
		{
			TableID:  STSequencesID,
			Name:     STSequencesName,
			IsSystem: true,
			Columns: []ColumnSchema{
				{TableID: STSequencesID, ColID: 0, Name: "sequence_id", Type: sats.U32Type()},
				{TableID: STSequencesID, ColID: 1, Name: "sequence_name", Type: sats.StringType()},
				{TableID: STSequencesID, ColID: 2, Name: "table_id", Type: sats.U32Type()},
				{TableID: STSequencesID, ColID: 3, Name: "col_id", Type: sats.U32Type()},
				{TableID: STSequencesID, ColID: 4, Name: "increment", Type: sats.I128Type()},
				{TableID: STSequencesID, ColID: 5, Name: "start", Type: sats.I128Type()},
				{TableID: STSequencesID, ColID: 6, Name: "min", Type: sats.I128Type()},
				{TableID: STSequencesID, ColID: 7, Name: "max", Type: sats.I128Type()},
				{TableID: STSequencesID, ColID: 8, Name: "allocated", Type: sats.I128Type()},
			},
		},
	}
}

// IsReservedTableID reports whether id falls in the system-table range.
func IsReservedTableID(id TableID) bool { return id < FirstUserTableID }
