// Package bsatn implements the row codec of spec §4.2: a fixed,
// little-endian, tag-compact binary format. Unlike internal/bsatn (kept
// from the teacher for self-describing type-descriptor exchange, see
// DESIGN.md), this codec is type-directed: every Encode/Decode call is
// driven by a sats.AlgebraicType supplied by the caller, so Product
// elements are written positionally with no tag and no padding (§4.2),
// and only Sum carries a one-byte variant discriminant.
package bsatn

import "errors"

var (
	ErrInvalidTag     = errors.New("bsatn: invalid sum variant tag")
	ErrBufferTooSmall = errors.New("bsatn: buffer too small")
	ErrInvalidUTF8     = errors.New("bsatn: invalid utf8 string")
	ErrOverflow       = errors.New("bsatn: integer overflow")
	ErrInvalidFloat   = errors.New("bsatn: invalid float value (NaN or Inf)")
	ErrTooLarge       = errors.New("bsatn: payload too large")
	ErrTypeMismatch   = errors.New("bsatn: value does not match declared type")
)

// MaxPayloadLen bounds string/byte/array lengths accepted by the decoder,
// matching the teacher's internal/bsatn safety cap.
const MaxPayloadLen = 1 << 20
