package bsatn

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"math/big"
	"unicode/utf8"
)

// Writer encodes values into the BSATN wire format. It wraps an
// io.Writer and keeps a sticky first error, following the teacher's
// internal/bsatn.Writer idiom (recordError, bytesWritten), but every
// method here writes no self-describing tag: callers already know the
// type from the accompanying AlgebraicType.
type Writer struct {
	w            io.Writer
	err          error
	bytesWritten int
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// NewBuffer creates a Writer over a fresh bytes.Buffer for one-shot encodes.
func NewBuffer() (*Writer, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewWriter(buf), buf
}

func (w *Writer) Error() error      { return w.err }
func (w *Writer) BytesWritten() int { return w.bytesWritten }

func (w *Writer) recordError(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(b)
	w.bytesWritten += n
	w.recordError(err)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.write([]byte{1})
	} else {
		w.write([]byte{0})
	}
}

func (w *Writer) WriteU8(v uint8)  { w.write([]byte{v}) }
func (w *Writer) WriteI8(v int8)   { w.write([]byte{byte(v)}) }

func (w *Writer) WriteU16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	w.write(buf[:])
}
func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

func (w *Writer) WriteU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.write(buf[:])
}
func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteU64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.write(buf[:])
}
func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

// WriteU128/WriteI128 write a 128-bit two's-complement little-endian
// integer. v must fit in 128 bits; values out of range record ErrOverflow.
func (w *Writer) WriteU128(v *big.Int) {
	if v != nil && (v.Sign() < 0 || v.BitLen() > 128) {
		w.recordError(ErrOverflow)
		return
	}
	w.write(bigToLE128(v))
}
func (w *Writer) WriteI128(v *big.Int) {
	// In range exactly when v (or -v-1 for negative v) fits in 127 bits.
	if v != nil && ((v.Sign() >= 0 && v.BitLen() > 127) || (v.Sign() < 0 && new(big.Int).Not(v).BitLen() > 127)) {
		w.recordError(ErrOverflow)
		return
	}
	w.write(bigToLE128(v))
}

func (w *Writer) WriteF32(v float32) {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		w.recordError(ErrInvalidFloat)
		return
	}
	w.WriteU32(math.Float32bits(v))
}

func (w *Writer) WriteF64(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		w.recordError(ErrInvalidFloat)
		return
	}
	w.WriteU64(math.Float64bits(v))
}

func (w *Writer) WriteString(v string) {
	if !utf8.ValidString(v) {
		w.recordError(ErrInvalidUTF8)
		return
	}
	if len(v) > MaxPayloadLen {
		w.recordError(ErrTooLarge)
		return
	}
	w.WriteU32(uint32(len(v)))
	w.write([]byte(v))
}

func (w *Writer) WriteBytes(v []byte) {
	if len(v) > MaxPayloadLen {
		w.recordError(ErrTooLarge)
		return
	}
	w.WriteU32(uint32(len(v)))
	w.write(v)
}

// WriteCount writes a u32 element count, used for Array and Map headers.
func (w *Writer) WriteCount(n int) { w.WriteU32(uint32(n)) }

// WriteSumTag writes the single variant-discriminant byte that precedes
// a Sum's payload (§4.2).
func (w *Writer) WriteSumTag(tag uint8) { w.write([]byte{tag}) }

// bigToLE128 renders v as a 16-byte little-endian two's-complement array.
func bigToLE128(v *big.Int) []byte {
	out := make([]byte, 16)
	if v == nil {
		return out
	}
	abs := new(big.Int).Abs(v)
	be := abs.Bytes() // big-endian, minimal length
	if v.Sign() < 0 {
		// two's complement: (2^128 - abs)
		mod := new(big.Int).Lsh(big.NewInt(1), 128)
		twos := new(big.Int).Sub(mod, abs)
		be = twos.Bytes()
	}
	// left-pad to 16 bytes (big-endian), then reverse into little-endian.
	if len(be) > 16 {
		be = be[len(be)-16:]
	}
	padded := make([]byte, 16)
	copy(padded[16-len(be):], be)
	for i := 0; i < 16; i++ {
		out[i] = padded[15-i]
	}
	return out
}
