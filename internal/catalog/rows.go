package catalog

import (
	"fmt"
	"math/big"

	"github.com/spacetimedb-go/core/pkg/sats"
)

// TableRow/ColumnRow/IndexRow/SequenceRow convert catalog schema structs
// to and from the ProductValue row shape stored in their system table,
// so create_table et al. can be plain row inserts into an ordinary
// datastore table (§4.3).

func TableRow(t *TableSchema) *sats.ProductValue {
	return &sats.ProductValue{Elements: []sats.AlgebraicValue{
		sats.NewU32(uint32(t.TableID)),
		sats.NewString(t.Name),
		sats.NewBool(t.IsSystem),
	}}
}

func RowToTable(row *sats.ProductValue) (TableID, string, bool, error) {
	if len(row.Elements) != 3 {
		return 0, "", false, fmt.Errorf("catalog: malformed st_table row")
	}
	id, _ := row.Elements[0].AsU32()
	name, _ := row.Elements[1].AsString()
	isSystem, _ := row.Elements[2].AsBool()
	return TableID(id), name, isSystem, nil
}

func ColumnRow(c ColumnSchema) (*sats.ProductValue, error) {
	typeBytes, err := EncodeType(c.Type)
	if err != nil {
		return nil, fmt.Errorf("catalog: encode column type: %w", err)
	}
	return &sats.ProductValue{Elements: []sats.AlgebraicValue{
		sats.NewU32(uint32(c.TableID)),
		sats.NewU32(uint32(c.ColID)),
		sats.NewString(c.Name),
		sats.NewBytes(typeBytes),
		sats.NewBool(c.IsAutoinc),
	}}, nil
}

func RowToColumn(row *sats.ProductValue) (ColumnSchema, error) {
	if len(row.Elements) != 5 {
		return ColumnSchema{}, fmt.Errorf("catalog: malformed st_columns row")
	}
	tableID, _ := row.Elements[0].AsU32()
	colID, _ := row.Elements[1].AsU32()
	name, _ := row.Elements[2].AsString()
	typeBytes, _ := row.Elements[3].AsBytes()
	isAutoinc, _ := row.Elements[4].AsBool()

	legacyType, err := decodeLegacyType(typeBytes)
	if err != nil {
		return ColumnSchema{}, fmt.Errorf("catalog: decode column type: %w", err)
	}
	t, err := FromLegacyType(legacyType)
	if err != nil {
		return ColumnSchema{}, err
	}
	return ColumnSchema{
		TableID:   TableID(tableID),
		ColID:     ColID(colID),
		Name:      name,
		Type:      t,
		IsAutoinc: isAutoinc,
	}, nil
}

func IndexRow(ix IndexSchema) *sats.ProductValue {
	return &sats.ProductValue{Elements: []sats.AlgebraicValue{
		sats.NewU32(uint32(ix.IndexID)),
		sats.NewU32(uint32(ix.TableID)),
		sats.NewU32(uint32(ix.ColID)),
		sats.NewString(ix.Name),
		sats.NewBool(ix.IsUnique),
	}}
}

func RowToIndex(row *sats.ProductValue) (IndexSchema, error) {
	if len(row.Elements) != 5 {
		return IndexSchema{}, fmt.Errorf("catalog: malformed st_indexes row")
	}
	indexID, _ := row.Elements[0].AsU32()
	tableID, _ := row.Elements[1].AsU32()
	colID, _ := row.Elements[2].AsU32()
	name, _ := row.Elements[3].AsString()
	isUnique, _ := row.Elements[4].AsBool()
	return IndexSchema{
		IndexID:  IndexID(indexID),
		TableID:  TableID(tableID),
		ColID:    ColID(colID),
		Name:     name,
		IsUnique: isUnique,
	}, nil
}

func SequenceRow(s SequenceSchema) *sats.ProductValue {
	return &sats.ProductValue{Elements: []sats.AlgebraicValue{
		sats.NewU32(uint32(s.SequenceID)),
		sats.NewString(s.Name),
		sats.NewU32(uint32(s.TableID)),
		sats.NewU32(uint32(s.ColID)),
		sats.NewI128(new(big.Int).Set(s.Increment)),
		sats.NewI128(new(big.Int).Set(s.Start)),
		sats.NewI128(new(big.Int).Set(s.Min)),
		sats.NewI128(new(big.Int).Set(s.Max)),
		sats.NewI128(new(big.Int).Set(s.Allocated)),
	}}
}

func RowToSequence(row *sats.ProductValue) (SequenceSchema, error) {
	if len(row.Elements) != 9 {
		return SequenceSchema{}, fmt.Errorf("catalog: malformed st_sequences row")
	}
	seqID, _ := row.Elements[0].AsU32()
	name, _ := row.Elements[1].AsString()
	tableID, _ := row.Elements[2].AsU32()
	colID, _ := row.Elements[3].AsU32()
	inc, _ := row.Elements[4].AsBig128()
	start, _ := row.Elements[5].AsBig128()
	min, _ := row.Elements[6].AsBig128()
	max, _ := row.Elements[7].AsBig128()
	allocated, _ := row.Elements[8].AsBig128()
	return SequenceSchema{
		SequenceID: SequenceID(seqID),
		Name:       name,
		TableID:    TableID(tableID),
		ColID:      ColID(colID),
		Increment:  new(big.Int).Set(inc),
		Start:      new(big.Int).Set(start),
		Min:        new(big.Int).Set(min),
		Max:        new(big.Int).Set(max),
		Allocated:  new(big.Int).Set(allocated),
	}, nil
}
