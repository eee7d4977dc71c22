// Package datastore implements spec §4.4: row-level and schema-level
// operations under TxId (read-only) and MutTxId (read-write) transaction
// handles, the write-set-over-base commit algorithm, and sequence
// allocation. Grounded on internal/db/db.go (the teacher's table/index
// shim) and original_source's traits.rs (the MutTxDatastore trait
// surface this package's method set mirrors).
package datastore

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure model of §4.4. Every error that can be
// produced by a row or catalog operation wraps one of these via errors.Is,
// so callers can branch on category while still getting a descriptive
// message (resolving the spec's Open Question: no operation here
// collapses a storage failure into a bare bool or ignores the distinction
// between "no such row" and an actual error).
var (
	ErrTableNotFound           = errors.New("datastore: table not found")
	ErrColumnNotFound          = errors.New("datastore: column not found")
	ErrIndexNotFound           = errors.New("datastore: index not found")
	ErrTypeMismatch            = errors.New("datastore: row does not match table type")
	ErrDecodeError             = errors.New("datastore: decode error")
	ErrUniqueConstraintViolation = errors.New("datastore: unique constraint violation")
	ErrSequenceExhausted       = errors.New("datastore: sequence exhausted")
	ErrAborted                = errors.New("datastore: transaction aborted")
	ErrDuplicateName           = errors.New("datastore: duplicate name")
)

// TableNotFoundError names the table that could not be found, so the
// evaluator can surface a message like the original's exact
// "Unknown table: `inventory2`" (§8 scenario 6, SPEC_FULL supplemented
// feature 5).
type TableNotFoundError struct {
	Name string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("Unknown table: `%s`", e.Name)
}
func (e *TableNotFoundError) Unwrap() error { return ErrTableNotFound }

type ColumnNotFoundError struct {
	Table, Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("datastore: no such column `%s` on table `%s`", e.Column, e.Table)
}
func (e *ColumnNotFoundError) Unwrap() error { return ErrColumnNotFound }

type UniqueConstraintViolationError struct {
	Table, Column string
}

func (e *UniqueConstraintViolationError) Error() string {
	return fmt.Sprintf("datastore: unique constraint violated on %s.%s", e.Table, e.Column)
}
func (e *UniqueConstraintViolationError) Unwrap() error { return ErrUniqueConstraintViolation }

type SequenceExhaustedError struct {
	Sequence string
}

func (e *SequenceExhaustedError) Error() string {
	return fmt.Sprintf("datastore: sequence `%s` is exhausted", e.Sequence)
}
func (e *SequenceExhaustedError) Unwrap() error { return ErrSequenceExhausted }
