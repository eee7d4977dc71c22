package abihost

import (
	"errors"

	"github.com/spacetimedb-go/core/internal/datastore"
)

// Errno is the module ABI's error code (§4.6), returned to the guest as
// the i16/i32 status of a host call (0 on success). Codes match the real
// module ABI's bindings crate (ground-truthed via internal/wasm's
// predecessor internal/types.Errno/internal/errors.Errno before those
// packages were folded into this one).
type Errno uint16

const (
	ErrnoOK                 Errno = 0
	ErrnoNoSuchIter         Errno = 0x0001
	ErrnoBufferTooSmall     Errno = 0x0002
	ErrnoNoSuchTable        Errno = 0x0003
	ErrnoNoSuchIndex        Errno = 0x0004
	ErrnoWrongIndexAlgo     Errno = 0x0005
	ErrnoBsatnDecodeError   Errno = 0x0006
	ErrnoMemoryExhausted    Errno = 0x0007
	ErrnoOutOfBounds        Errno = 0x0008
	ErrnoNotInTransaction   Errno = 0x0009
	ErrnoExhausted          Errno = 0x000A
	ErrnoUniqueViolation    Errno = 0x000B
	ErrnoSequenceExhausted  Errno = 0x000C
)

func (e Errno) Error() string {
	switch e {
	case ErrnoOK:
		return "ok"
	case ErrnoNoSuchIter:
		return "no such iterator"
	case ErrnoBufferTooSmall:
		return "buffer too small"
	case ErrnoNoSuchTable:
		return "no such table"
	case ErrnoNoSuchIndex:
		return "no such index"
	case ErrnoWrongIndexAlgo:
		return "wrong index algorithm"
	case ErrnoBsatnDecodeError:
		return "bsatn decode error"
	case ErrnoMemoryExhausted:
		return "memory exhausted"
	case ErrnoOutOfBounds:
		return "out of bounds"
	case ErrnoNotInTransaction:
		return "not in transaction"
	case ErrnoExhausted:
		return "iterator exhausted"
	case ErrnoUniqueViolation:
		return "unique constraint violation"
	case ErrnoSequenceExhausted:
		return "sequence exhausted"
	default:
		return "unknown error"
	}
}

// errnoFor maps a datastore/catalog error to the module ABI code a guest
// expects back, rather than collapsing every failure to one generic
// code — the spec's Open Question this resolves (SPEC_FULL's Ambient
// Stack/Error handling section): storage failures are distinguished
// from "no such row" instead of both becoming a bare false/0.
func errnoFor(err error) Errno {
	if err == nil {
		return ErrnoOK
	}
	var tnf *datastore.TableNotFoundError
	var cnf *datastore.ColumnNotFoundError
	var uniq *datastore.UniqueConstraintViolationError
	var seq *datastore.SequenceExhaustedError
	switch {
	case errors.As(err, &tnf):
		return ErrnoNoSuchTable
	case errors.As(err, &cnf):
		return ErrnoNoSuchIndex
	case errors.As(err, &uniq):
		return ErrnoUniqueViolation
	case errors.As(err, &seq):
		return ErrnoSequenceExhausted
	default:
		return ErrnoBsatnDecodeError
	}
}
