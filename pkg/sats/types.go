// Package sats implements SpacetimeDB's algebraic type system: the
// AlgebraicType/AlgebraicValue universe of §3-4.1, including ProductType
// (row shape) and SumType (tagged union).
package sats

import "fmt"

// Kind discriminates the variants of AlgebraicType. Numeric order mirrors
// the grouping used by the source implementation's MetaType (primitives,
// then composites) but is not itself part of the wire format — BSATN
// tags are assigned independently in pkg/bsatn.
type Kind uint8

const (
	KindBool Kind = iota
	KindI8
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindI64
	KindU64
	KindI128
	KindU128
	KindF32
	KindF64
	KindString
	KindBytes
	KindProduct
	KindSum
	KindArray
	KindMap
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "Bool"
	case KindI8:
		return "I8"
	case KindU8:
		return "U8"
	case KindI16:
		return "I16"
	case KindU16:
		return "U16"
	case KindI32:
		return "I32"
	case KindU32:
		return "U32"
	case KindI64:
		return "I64"
	case KindU64:
		return "U64"
	case KindI128:
		return "I128"
	case KindU128:
		return "U128"
	case KindF32:
		return "F32"
	case KindF64:
		return "F64"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindProduct:
		return "Product"
	case KindSum:
		return "Sum"
	case KindArray:
		return "Array"
	case KindMap:
		return "Map"
	case KindRef:
		return "Ref"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// IsInteger reports whether the kind is one of the signed/unsigned integer
// widths {8,16,32,64,128}.
func (k Kind) IsInteger() bool {
	switch k {
	case KindI8, KindU8, KindI16, KindU16, KindI32, KindU32, KindI64, KindU64, KindI128, KindU128:
		return true
	default:
		return false
	}
}

// AlgebraicType is the universe of types described in spec §3: primitives,
// Product(fields), Sum(variants), Array(T), Map(K,V), and Ref(typespace
// index) for cyclic schemas (§9 "arena of AlgebraicTypes indexed by u32").
type AlgebraicType struct {
	Kind Kind

	Ref uint32 // valid iff Kind == KindRef: index into an external type arena

	Product *ProductType // valid iff Kind == KindProduct
	Sum     *SumType     // valid iff Kind == KindSum
	Array   *ArrayType   // valid iff Kind == KindArray
	Map     *MapType     // valid iff Kind == KindMap
}

// ProductTypeElement is a single named, typed field of a ProductType.
// Name is optional: positional access is authoritative (§3), the name is
// a convenience for debugging and qualified-column lookups.
type ProductTypeElement struct {
	Name *string
	Type AlgebraicType
}

// ProductType is an ordered sequence of ProductTypeElement — the shape of
// a table row (§3).
type ProductType struct {
	Elements []ProductTypeElement
}

// ColumnIndex returns the positional index of the first element named
// name, or (-1, false) if no element carries that name.
func (p *ProductType) ColumnIndex(name string) (int, bool) {
	for i, e := range p.Elements {
		if e.Name != nil && *e.Name == name {
			return i, true
		}
	}
	return -1, false
}

// SumTypeVariant is one arm of a tagged union: an optional name plus the
// payload type carried by that arm.
type SumTypeVariant struct {
	Name *string
	Type AlgebraicType
}

// SumType is a tagged union: exactly one variant, selected by an
// implicit ordinal tag, carries a value at a time (§3).
type SumType struct {
	Variants []SumTypeVariant
}

// ArrayType describes a homogeneous sequence of Elem.
type ArrayType struct {
	Elem AlgebraicType
}

// MapType describes an association from Key to Value. BSATN has no
// official map encoding in spec §4.2; this implementation encodes a Map
// as an Array of (key, value) pairs in insertion order, documented in
// DESIGN.md, since that is the only representation for which the
// round-trip law (§4.2) and determinism hold without adopting an
// unspecified canonical key ordering.
type MapType struct {
	Key   AlgebraicType
	Value AlgebraicType
}

// Constructors for the scalar kinds.

func BoolType() AlgebraicType   { return AlgebraicType{Kind: KindBool} }
func I8Type() AlgebraicType     { return AlgebraicType{Kind: KindI8} }
func U8Type() AlgebraicType     { return AlgebraicType{Kind: KindU8} }
func I16Type() AlgebraicType    { return AlgebraicType{Kind: KindI16} }
func U16Type() AlgebraicType    { return AlgebraicType{Kind: KindU16} }
func I32Type() AlgebraicType    { return AlgebraicType{Kind: KindI32} }
func U32Type() AlgebraicType    { return AlgebraicType{Kind: KindU32} }
func I64Type() AlgebraicType    { return AlgebraicType{Kind: KindI64} }
func U64Type() AlgebraicType    { return AlgebraicType{Kind: KindU64} }
func I128Type() AlgebraicType   { return AlgebraicType{Kind: KindI128} }
func U128Type() AlgebraicType   { return AlgebraicType{Kind: KindU128} }
func F32Type() AlgebraicType    { return AlgebraicType{Kind: KindF32} }
func F64Type() AlgebraicType    { return AlgebraicType{Kind: KindF64} }
func StringType() AlgebraicType { return AlgebraicType{Kind: KindString} }
func BytesType() AlgebraicType  { return AlgebraicType{Kind: KindBytes} }

// ProductTypeOf builds a ProductType from positional elements.
func ProductTypeOf(elements ...ProductTypeElement) AlgebraicType {
	return AlgebraicType{Kind: KindProduct, Product: &ProductType{Elements: elements}}
}

// Elem is a convenience constructor for a named ProductTypeElement.
func Elem(name string, t AlgebraicType) ProductTypeElement {
	n := name
	return ProductTypeElement{Name: &n, Type: t}
}

// UnnamedElem builds a ProductTypeElement with no name (positional-only).
func UnnamedElem(t AlgebraicType) ProductTypeElement {
	return ProductTypeElement{Type: t}
}

// SumTypeOf builds a SumType from its variants.
func SumTypeOf(variants ...SumTypeVariant) AlgebraicType {
	return AlgebraicType{Kind: KindSum, Sum: &SumType{Variants: variants}}
}

// Variant is a convenience constructor for a named SumTypeVariant.
func Variant(name string, t AlgebraicType) SumTypeVariant {
	n := name
	return SumTypeVariant{Name: &n, Type: t}
}

// ArrayTypeOf builds an Array(elem) type.
func ArrayTypeOf(elem AlgebraicType) AlgebraicType {
	return AlgebraicType{Kind: KindArray, Array: &ArrayType{Elem: elem}}
}

// MapTypeOf builds a Map(key, value) type.
func MapTypeOf(key, value AlgebraicType) AlgebraicType {
	return AlgebraicType{Kind: KindMap, Map: &MapType{Key: key, Value: value}}
}

// RefTypeOf builds a Ref(index) type pointing into an external typespace
// arena, used to express cyclic schemas (§9).
func RefTypeOf(index uint32) AlgebraicType {
	return AlgebraicType{Kind: KindRef, Ref: index}
}

// EqualType reports structural equality of two AlgebraicTypes (§3: "full
// shape" equality for ProductType, and transitively for every composite).
func EqualType(a, b AlgebraicType) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindProduct:
		return equalProductType(a.Product, b.Product)
	case KindSum:
		return equalSumType(a.Sum, b.Sum)
	case KindArray:
		return EqualType(a.Array.Elem, b.Array.Elem)
	case KindMap:
		return EqualType(a.Map.Key, b.Map.Key) && EqualType(a.Map.Value, b.Map.Value)
	case KindRef:
		return a.Ref == b.Ref
	default:
		return true
	}
}

func equalProductType(a, b *ProductType) bool {
	if len(a.Elements) != len(b.Elements) {
		return false
	}
	for i := range a.Elements {
		if !EqualType(a.Elements[i].Type, b.Elements[i].Type) {
			return false
		}
	}
	return true
}

func equalSumType(a, b *SumType) bool {
	if len(a.Variants) != len(b.Variants) {
		return false
	}
	for i := range a.Variants {
		if !EqualType(a.Variants[i].Type, b.Variants[i].Type) {
			return false
		}
	}
	return true
}
