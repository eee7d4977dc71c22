package bsatn

import (
	"github.com/spacetimedb-go/core/pkg/sats"
)

// Encode writes v (which must have kind t.Kind) to w, recursing into
// Product/Sum/Array/Map children using the corresponding sub-types from
// t. This is the single entry point the datastore and ABI host use to
// turn a ProductValue into row bytes (§4.2).
func Encode(w *Writer, t sats.AlgebraicType, v sats.AlgebraicValue) error {
	if t.Kind != v.Kind {
		return ErrTypeMismatch
	}
	switch t.Kind {
	case sats.KindBool:
		b, _ := v.AsBool()
		w.WriteBool(b)
	case sats.KindI8:
		x, _ := v.AsI8()
		w.WriteI8(x)
	case sats.KindU8:
		x, _ := v.AsU8()
		w.WriteU8(x)
	case sats.KindI16:
		x, _ := v.AsI16()
		w.WriteI16(x)
	case sats.KindU16:
		x, _ := v.AsU16()
		w.WriteU16(x)
	case sats.KindI32:
		x, _ := v.AsI32()
		w.WriteI32(x)
	case sats.KindU32:
		x, _ := v.AsU32()
		w.WriteU32(x)
	case sats.KindI64:
		x, _ := v.AsI64()
		w.WriteI64(x)
	case sats.KindU64:
		x, _ := v.AsU64()
		w.WriteU64(x)
	case sats.KindI128:
		x, _ := v.AsBig128()
		w.WriteI128(x)
	case sats.KindU128:
		x, _ := v.AsBig128()
		w.WriteU128(x)
	case sats.KindF32:
		x, _ := v.AsF32()
		w.WriteF32(x)
	case sats.KindF64:
		x, _ := v.AsF64()
		w.WriteF64(x)
	case sats.KindString:
		x, _ := v.AsString()
		w.WriteString(x)
	case sats.KindBytes:
		x, _ := v.AsBytes()
		w.WriteBytes(x)
	case sats.KindProduct:
		return encodeProduct(w, t.Product, v)
	case sats.KindSum:
		return encodeSum(w, t.Sum, v)
	case sats.KindArray:
		return encodeArray(w, t.Array, v)
	case sats.KindMap:
		return encodeMap(w, t.Map, v)
	default:
		return ErrTypeMismatch
	}
	return w.Error()
}

func encodeProduct(w *Writer, t *sats.ProductType, v sats.AlgebraicValue) error {
	pv, ok := v.AsProduct()
	if !ok || len(pv.Elements) != len(t.Elements) {
		return ErrTypeMismatch
	}
	for i, elem := range t.Elements {
		if err := Encode(w, elem.Type, pv.Elements[i]); err != nil {
			return err
		}
	}
	return nil
}

func encodeSum(w *Writer, t *sats.SumType, v sats.AlgebraicValue) error {
	sv, ok := v.AsSum()
	if !ok || int(sv.Tag) >= len(t.Variants) {
		return ErrTypeMismatch
	}
	w.WriteSumTag(sv.Tag)
	return Encode(w, t.Variants[sv.Tag].Type, sv.Value)
}

func encodeArray(w *Writer, t *sats.ArrayType, v sats.AlgebraicValue) error {
	av, ok := v.AsArray()
	if !ok {
		return ErrTypeMismatch
	}
	w.WriteCount(len(av.Elements))
	for _, e := range av.Elements {
		if err := Encode(w, t.Elem, e); err != nil {
			return err
		}
	}
	return nil
}

func encodeMap(w *Writer, t *sats.MapType, v sats.AlgebraicValue) error {
	mv, ok := v.AsMap()
	if !ok {
		return ErrTypeMismatch
	}
	w.WriteCount(len(mv.Entries))
	for _, e := range mv.Entries {
		if err := Encode(w, t.Key, e.Key); err != nil {
			return err
		}
		if err := Encode(w, t.Value, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a value of type t from r.
func Decode(r *Reader, t sats.AlgebraicType) (sats.AlgebraicValue, error) {
	switch t.Kind {
	case sats.KindBool:
		x, err := r.ReadBool()
		return sats.NewBool(x), err
	case sats.KindI8:
		x, err := r.ReadI8()
		return sats.NewI8(x), err
	case sats.KindU8:
		x, err := r.ReadU8()
		return sats.NewU8(x), err
	case sats.KindI16:
		x, err := r.ReadI16()
		return sats.NewI16(x), err
	case sats.KindU16:
		x, err := r.ReadU16()
		return sats.NewU16(x), err
	case sats.KindI32:
		x, err := r.ReadI32()
		return sats.NewI32(x), err
	case sats.KindU32:
		x, err := r.ReadU32()
		return sats.NewU32(x), err
	case sats.KindI64:
		x, err := r.ReadI64()
		return sats.NewI64(x), err
	case sats.KindU64:
		x, err := r.ReadU64()
		return sats.NewU64(x), err
	case sats.KindI128:
		x, err := r.ReadI128()
		return sats.NewI128(x), err
	case sats.KindU128:
		x, err := r.ReadU128()
		return sats.NewU128(x), err
	case sats.KindF32:
		x, err := r.ReadF32()
		return sats.NewF32(x), err
	case sats.KindF64:
		x, err := r.ReadF64()
		return sats.NewF64(x), err
	case sats.KindString:
		x, err := r.ReadString()
		return sats.NewString(x), err
	case sats.KindBytes:
		x, err := r.ReadBytes()
		return sats.NewBytes(x), err
	case sats.KindProduct:
		return decodeProduct(r, t.Product)
	case sats.KindSum:
		return decodeSum(r, t.Sum)
	case sats.KindArray:
		return decodeArray(r, t.Array)
	case sats.KindMap:
		return decodeMap(r, t.Map)
	default:
		return sats.AlgebraicValue{}, ErrTypeMismatch
	}
}

func decodeProduct(r *Reader, t *sats.ProductType) (sats.AlgebraicValue, error) {
	elems := make([]sats.AlgebraicValue, len(t.Elements))
	for i, elem := range t.Elements {
		v, err := Decode(r, elem.Type)
		if err != nil {
			return sats.AlgebraicValue{}, err
		}
		elems[i] = v
	}
	return sats.NewProduct(&sats.ProductValue{Elements: elems}), nil
}

func decodeSum(r *Reader, t *sats.SumType) (sats.AlgebraicValue, error) {
	tag, err := r.ReadSumTag()
	if err != nil {
		return sats.AlgebraicValue{}, err
	}
	if int(tag) >= len(t.Variants) {
		return sats.AlgebraicValue{}, ErrInvalidTag
	}
	payload, err := Decode(r, t.Variants[tag].Type)
	if err != nil {
		return sats.AlgebraicValue{}, err
	}
	return sats.NewSum(&sats.SumValue{Tag: tag, Value: payload}), nil
}

func decodeArray(r *Reader, t *sats.ArrayType) (sats.AlgebraicValue, error) {
	n, err := r.ReadCount()
	if err != nil {
		return sats.AlgebraicValue{}, err
	}
	if n > MaxPayloadLen {
		return sats.AlgebraicValue{}, ErrTooLarge
	}
	elems := make([]sats.AlgebraicValue, n)
	for i := 0; i < n; i++ {
		v, err := Decode(r, t.Elem)
		if err != nil {
			return sats.AlgebraicValue{}, err
		}
		elems[i] = v
	}
	return sats.NewArray(&sats.ArrayValue{Elements: elems}), nil
}

func decodeMap(r *Reader, t *sats.MapType) (sats.AlgebraicValue, error) {
	n, err := r.ReadCount()
	if err != nil {
		return sats.AlgebraicValue{}, err
	}
	if n > MaxPayloadLen {
		return sats.AlgebraicValue{}, ErrTooLarge
	}
	entries := make([]sats.MapEntry, n)
	for i := 0; i < n; i++ {
		k, err := Decode(r, t.Key)
		if err != nil {
			return sats.AlgebraicValue{}, err
		}
		val, err := Decode(r, t.Value)
		if err != nil {
			return sats.AlgebraicValue{}, err
		}
		entries[i] = sats.MapEntry{Key: k, Value: val}
	}
	return sats.NewMap(&sats.MapValue{Entries: entries}), nil
}

// EncodeValue is a convenience one-shot wrapper over Encode.
func EncodeValue(t sats.AlgebraicType, v sats.AlgebraicValue) ([]byte, error) {
	w, buf := NewBuffer()
	if err := Encode(w, t, v); err != nil {
		return nil, err
	}
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeValue is a convenience one-shot wrapper over Decode; it errors if
// data is not fully consumed, since a mismatched schema could otherwise
// silently decode a truncated/garbage value (§4.1 Deserialize contract).
func DecodeValue(data []byte, t sats.AlgebraicType) (sats.AlgebraicValue, error) {
	r := NewReader(data)
	v, err := Decode(r, t)
	if err != nil {
		return sats.AlgebraicValue{}, err
	}
	if r.Remaining() != 0 {
		return sats.AlgebraicValue{}, ErrTypeMismatch
	}
	return v, nil
}

// EncodeRow/DecodeRow are Product-specific conveniences used pervasively
// by the datastore, whose rows are always Products.
func EncodeRow(t *sats.ProductType, row *sats.ProductValue) ([]byte, error) {
	return EncodeValue(sats.AlgebraicType{Kind: sats.KindProduct, Product: t}, sats.NewProduct(row))
}

func DecodeRow(data []byte, t *sats.ProductType) (*sats.ProductValue, error) {
	v, err := DecodeValue(data, sats.AlgebraicType{Kind: sats.KindProduct, Product: t})
	if err != nil {
		return nil, err
	}
	pv, _ := v.AsProduct()
	return pv, nil
}
