package eval

import "github.com/spacetimedb-go/core/pkg/sats"

// CrudExpr is a compiled query/DML plan node (§6). The dialect's small,
// fixed shape lets the parser emit these directly rather than building a
// separate unoptimized AST first, unlike the source's two-stage
// parse-then-compile pipeline — documented as a deliberate simplification
// in DESIGN.md.
type CrudExpr interface {
	isCrudExpr()
}

// SelectItem is one entry of a SELECT list: `*`, `table.*`, `table.col`,
// a bare column name, or a literal (SPEC_FULL supplemented feature 2:
// qualified projection; execute.rs's test_select_scalar covers the bare
// literal case).
type SelectItem struct {
	Star    bool   // SELECT * or SELECT table.*
	Table   string // qualifier, "" if unqualified or the bare-star case
	Column  string // "" if Star or Literal is set
	Literal *sats.AlgebraicValue
}

// JoinClause chains one additional table onto a FROM list (SPEC_FULL
// supplemented feature 4: three-way join chaining — Joins is a slice so
// N joins chain in FROM order).
type JoinClause struct {
	Table string
	On    BoolExpr
}

// SelectExpr is SELECT ... FROM table [JOIN ...]* [WHERE ...].
type SelectExpr struct {
	Items []SelectItem
	From  string
	Joins []JoinClause
	Where BoolExpr // zero value means no filter
}

// rawLiteral is a literal as written in SQL text, not yet coerced to a
// column's declared Kind (integers default to I32 only when there is no
// column context to coerce against, e.g. a bare `SELECT 1`, matching
// execute.rs's test_select_scalar).
type rawLiteral struct {
	isString bool
	str      string
	isNumber bool
	num      string // decimal text, parsed lazily so "-" and floats both work
	isBool   bool
	boolVal  bool
}

// InsertExpr is INSERT INTO table (cols...) VALUES (vals...).
type InsertExpr struct {
	Table   string
	Columns []string
	Values  []rawLiteral
}

// UpdateExpr is UPDATE table SET col = val[, ...] [WHERE ...].
type UpdateExpr struct {
	Table string
	Set   []Assignment
	Where BoolExpr
}

// Assignment is one `col = val` pair of an UPDATE's SET list.
type Assignment struct {
	Column string
	Value  rawLiteral
}

// DeleteExpr is DELETE FROM table [WHERE ...]; a zero Where deletes every
// row (execute.rs's test_delete covers both forms).
type DeleteExpr struct {
	Table string
	Where BoolExpr
}

// ColumnTypeSpec names a column and its SQL-ish type keyword for CREATE
// TABLE, resolved to a sats.AlgebraicType by the parser.
type ColumnTypeSpec struct {
	Name string
	Type sats.AlgebraicType
}

// CreateTableExpr is CREATE TABLE name (col type, ...).
type CreateTableExpr struct {
	Table   string
	Columns []ColumnTypeSpec
}

// DropTableExpr is DROP TABLE name.
type DropTableExpr struct {
	Table string
}

// BlockExpr sequences multiple statements within one transaction
// (SPEC_FULL supplemented feature 3), mirroring execute.rs's
// `Expr::Block`.
type BlockExpr struct {
	Stmts []CrudExpr
}

func (*SelectExpr) isCrudExpr()      {}
func (*InsertExpr) isCrudExpr()      {}
func (*UpdateExpr) isCrudExpr()      {}
func (*DeleteExpr) isCrudExpr()      {}
func (*CreateTableExpr) isCrudExpr() {}
func (*DropTableExpr) isCrudExpr()   {}
func (*BlockExpr) isCrudExpr()       {}

// ValueExpr is an operand of a comparison: either a literal or a
// (possibly qualified) column reference.
type ValueExpr struct {
	IsColumn bool
	Table    string // qualifier, "" if unqualified
	Column   string
	Literal  rawLiteral
}

// BoolExpr is a WHERE/ON predicate tree: comparisons combined with
// AND/OR, with explicit grouping captured during parsing (§6's dialect
// supports parenthesized nesting, execute.rs's test_nested).
type BoolExpr struct {
	// Op is "", "AND", "OR", or one of "=","<>","<","<=",">",">=" for a
	// leaf comparison.
	Op          string
	Left, Right *BoolExpr  // set when Op is AND/OR
	LValue      *ValueExpr // set when Op is a comparison
	RValue      *ValueExpr
}

// MemTable is an in-memory result set: a row shape plus the rows
// themselves, the unit collect_result gathers into (§6, execute.rs's
// MemTable).
type MemTable struct {
	Schema sats.AlgebraicType // Kind == KindProduct
	Rows   []*sats.ProductValue
}
