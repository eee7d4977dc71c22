package catalog

import (
	"fmt"

	legacy "github.com/spacetimedb-go/core/internal/bsatn"
	"github.com/spacetimedb-go/core/pkg/sats"
)

// ToLegacyType converts a pkg/sats.AlgebraicType into the teacher's
// self-describing internal/bsatn.AlgebraicType so it can be
// Marshal/UnmarshalAlgebraicType'd for on-the-wire schema exchange
// (§4.6: the first buffer yielded by iter() is the table's product
// type). Map is not supported here — no ColumnSchema in this
// implementation uses a Map-typed column, and the source BSATN contract
// (§4.2) itself has no Map wire rule to be faithful to.
func ToLegacyType(t sats.AlgebraicType) (legacy.AlgebraicType, error) {
	switch t.Kind {
	case sats.KindBool:
		return legacy.BoolType(), nil
	case sats.KindI8:
		return legacy.I8Type(), nil
	case sats.KindU8:
		return legacy.U8Type(), nil
	case sats.KindI16:
		return legacy.I16Type(), nil
	case sats.KindU16:
		return legacy.U16Type(), nil
	case sats.KindI32:
		return legacy.I32Type(), nil
	case sats.KindU32:
		return legacy.U32Type(), nil
	case sats.KindI64:
		return legacy.I64Type(), nil
	case sats.KindU64:
		return legacy.U64Type(), nil
	case sats.KindI128:
		return legacy.I128Type(), nil
	case sats.KindU128:
		return legacy.U128Type(), nil
	case sats.KindF32:
		return legacy.F32Type(), nil
	case sats.KindF64:
		return legacy.F64Type(), nil
	case sats.KindString:
		return legacy.StringType(), nil
	case sats.KindBytes:
		return legacy.BytesType(), nil
	case sats.KindRef:
		return legacy.RefType(t.Ref), nil
	case sats.KindProduct:
		elems := make([]legacy.ProductElement, len(t.Product.Elements))
		for i, e := range t.Product.Elements {
			lt, err := ToLegacyType(e.Type)
			if err != nil {
				return legacy.AlgebraicType{}, err
			}
			elems[i] = legacy.ProductElement{Name: e.Name, Type: lt}
		}
		return legacy.ProductTypeOf(elems...), nil
	case sats.KindSum:
		variants := make([]legacy.SumVariant, len(t.Sum.Variants))
		for i, v := range t.Sum.Variants {
			lt, err := ToLegacyType(v.Type)
			if err != nil {
				return legacy.AlgebraicType{}, err
			}
			variants[i] = legacy.SumVariant{Name: v.Name, Type: lt}
		}
		return legacy.SumTypeOf(variants...), nil
	case sats.KindArray:
		elem, err := ToLegacyType(t.Array.Elem)
		if err != nil {
			return legacy.AlgebraicType{}, err
		}
		return legacy.ArrayTypeOf(elem), nil
	default:
		return legacy.AlgebraicType{}, fmt.Errorf("catalog: type kind %s has no schema-exchange representation", t.Kind)
	}
}

// EncodeType serializes t for schema exchange across the module boundary.
func EncodeType(t sats.AlgebraicType) ([]byte, error) {
	lt, err := ToLegacyType(t)
	if err != nil {
		return nil, err
	}
	return legacy.MarshalAlgebraicType(lt)
}

func decodeLegacyType(buf []byte) (legacy.AlgebraicType, error) {
	return legacy.UnmarshalAlgebraicType(buf)
}

// FromLegacyType converts the teacher's self-describing type descriptor
// back into a pkg/sats.AlgebraicType. BytesType is represented on the
// wire as Array(U8) (see internal/bsatn.BytesType); this is reconstituted
// as sats.KindBytes rather than sats.KindArray so column types round-trip
// through storage exactly as declared.
func FromLegacyType(lt legacy.AlgebraicType) (sats.AlgebraicType, error) {
	switch {
	case lt.Product != nil:
		elems := make([]sats.ProductTypeElement, len(lt.Product.Elements))
		for i, e := range lt.Product.Elements {
			st, err := FromLegacyType(e.Type)
			if err != nil {
				return sats.AlgebraicType{}, err
			}
			elems[i] = sats.ProductTypeElement{Name: e.Name, Type: st}
		}
		return sats.ProductTypeOf(elems...), nil
	case lt.Sum != nil:
		variants := make([]sats.SumTypeVariant, len(lt.Sum.Variants))
		for i, v := range lt.Sum.Variants {
			st, err := FromLegacyType(v.Type)
			if err != nil {
				return sats.AlgebraicType{}, err
			}
			variants[i] = sats.SumTypeVariant{Name: v.Name, Type: st}
		}
		return sats.SumTypeOf(variants...), nil
	case lt.Array != nil:
		// Array(U8) is how BytesType is represented on the wire.
		if isLegacyU8(lt.Array.Elem) {
			return sats.BytesType(), nil
		}
		elem, err := FromLegacyType(lt.Array.Elem)
		if err != nil {
			return sats.AlgebraicType{}, err
		}
		return sats.ArrayTypeOf(elem), nil
	}
	return fromLegacyScalar(lt)
}

func isLegacyU8(lt legacy.AlgebraicType) bool {
	enc, err := legacy.MarshalAlgebraicType(lt)
	if err != nil {
		return false
	}
	u8Enc, err := legacy.MarshalAlgebraicType(legacy.U8Type())
	if err != nil {
		return false
	}
	return string(enc) == string(u8Enc)
}

func fromLegacyScalar(lt legacy.AlgebraicType) (sats.AlgebraicType, error) {
	for _, c := range []struct {
		legacyType legacy.AlgebraicType
		satsType   sats.AlgebraicType
	}{
		{legacy.BoolType(), sats.BoolType()},
		{legacy.I8Type(), sats.I8Type()},
		{legacy.U8Type(), sats.U8Type()},
		{legacy.I16Type(), sats.I16Type()},
		{legacy.U16Type(), sats.U16Type()},
		{legacy.I32Type(), sats.I32Type()},
		{legacy.U32Type(), sats.U32Type()},
		{legacy.I64Type(), sats.I64Type()},
		{legacy.U64Type(), sats.U64Type()},
		{legacy.I128Type(), sats.I128Type()},
		{legacy.U128Type(), sats.U128Type()},
		{legacy.F32Type(), sats.F32Type()},
		{legacy.F64Type(), sats.F64Type()},
		{legacy.StringType(), sats.StringType()},
	} {
		if lt.Kind == c.legacyType.Kind {
			return c.satsType, nil
		}
	}
	if lt.Kind == legacy.RefType(0).Kind {
		return sats.RefTypeOf(lt.Ref), nil
	}
	return sats.AlgebraicType{}, fmt.Errorf("catalog: unrecognized legacy type kind %v", lt.Kind)
}
