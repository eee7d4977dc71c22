package eval

import "github.com/spacetimedb-go/core/pkg/sats"

// ResultKind discriminates a CodeResult's payload (execute.rs's
// CodeResult enum: Value, Table, Block, Pass, Halt).
type ResultKind int

const (
	ResultValue ResultKind = iota
	ResultTable
	ResultBlock
	ResultPass
	ResultHalt
)

// CodeResult is the outcome of running one CrudExpr: a scalar Value (a
// non-row-producing statement that still yields something, unused by
// this dialect today but kept for fidelity), a Table (a SELECT's rows),
// a Block (nested results from a BlockExpr), Pass (a DDL/DML statement
// that produced no rows — CREATE TABLE, DROP TABLE, INSERT, UPDATE,
// DELETE), or Halt (an error that aborts the whole run).
type CodeResult struct {
	Kind  ResultKind
	Value *sats.AlgebraicValue
	Table *MemTable
	Block []CodeResult
	Err   error
}

// collectResult flattens a CodeResult tree into the ordered list of
// MemTables a caller should see, mirroring execute.rs's collect_result
// exactly: Value and Pass contribute nothing, Table appends one entry,
// Block recurses depth-first, and Halt aborts the whole collection
// immediately (Halt short-circuits, it does not merely skip one
// statement).
func collectResult(out *[]*MemTable, r CodeResult) error {
	switch r.Kind {
	case ResultValue, ResultPass:
		return nil
	case ResultTable:
		*out = append(*out, r.Table)
		return nil
	case ResultBlock:
		for _, x := range r.Block {
			if err := collectResult(out, x); err != nil {
				return err
			}
		}
		return nil
	case ResultHalt:
		return r.Err
	default:
		return nil
	}
}
