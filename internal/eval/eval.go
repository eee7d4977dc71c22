package eval

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/spacetimedb-go/core/internal/catalog"
	"github.com/spacetimedb-go/core/internal/datastore"
	"github.com/spacetimedb-go/core/pkg/sats"
)

// Evaluator runs compiled CrudExprs against one open mutable transaction,
// the way a reducer's whole body shares a single MutTxId (§4.4). Using
// MutTxId even for a read-only one-shot query (RunSQL commits a
// SELECT-only statement list like any other) keeps one code path
// instead of duplicating every operation across TxId/MutTxId, a
// simplification documented in DESIGN.md.
type Evaluator struct {
	tx *datastore.MutTxId
}

// NewEvaluator wraps an already-open mutable transaction.
func NewEvaluator(tx *datastore.MutTxId) *Evaluator {
	return &Evaluator{tx: tx}
}

// RunSQL compiles and runs sqlText in its own transaction, committing on
// success and rolling back on failure, mirroring execute.rs's `run`.
func RunSQL(store *datastore.Store, sqlText string) ([]*MemTable, error) {
	exprs, err := Compile(sqlText)
	if err != nil {
		return nil, err
	}
	tx := store.BeginMutTx()
	ev := NewEvaluator(tx)
	var out []*MemTable
	for _, e := range exprs {
		res := ev.Run(e)
		if err := collectResult(&out, res); err != nil {
			tx.RollbackMutTx()
			return nil, fmt.Errorf("%w, executing: %s", err, sqlText)
		}
	}
	if _, err := tx.CommitMutTx(); err != nil {
		return nil, err
	}
	return out, nil
}

// Run evaluates one CrudExpr, returning its CodeResult. Callers that want
// an all-or-nothing multi-statement run should use RunSQL, or wrap
// statements in a BlockExpr beforehand (SPEC_FULL supplemented feature 3).
func (ev *Evaluator) Run(e CrudExpr) CodeResult {
	switch x := e.(type) {
	case *BlockExpr:
		var results []CodeResult
		for _, stmt := range x.Stmts {
			r := ev.Run(stmt)
			results = append(results, r)
			if r.Kind == ResultHalt {
				break
			}
		}
		return CodeResult{Kind: ResultBlock, Block: results}
	case *SelectExpr:
		return ev.runSelect(x)
	case *InsertExpr:
		return ev.runInsert(x)
	case *UpdateExpr:
		return ev.runUpdate(x)
	case *DeleteExpr:
		return ev.runDelete(x)
	case *CreateTableExpr:
		return ev.runCreateTable(x)
	case *DropTableExpr:
		return ev.runDropTable(x)
	default:
		return halt(fmt.Errorf("eval: unsupported statement type %T", e))
	}
}

func halt(err error) CodeResult { return CodeResult{Kind: ResultHalt, Err: err} }
func pass() CodeResult          { return CodeResult{Kind: ResultPass} }

// joinedRow is one tuple produced while evaluating FROM/JOIN: every
// participating table name maps to its schema and the row contributed by
// that table for this tuple.
type joinedRow struct {
	schemas map[string]*catalog.TableSchema
	values  map[string]*sats.ProductValue
}

func cloneSchemaMap(m map[string]*catalog.TableSchema) map[string]*catalog.TableSchema {
	out := make(map[string]*catalog.TableSchema, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneValueMap(m map[string]*sats.ProductValue) map[string]*sats.ProductValue {
	out := make(map[string]*sats.ProductValue, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (ev *Evaluator) loadTable(name string) (catalog.TableID, *catalog.TableSchema, []datastore.RowWithID, error) {
	id, err := ev.tx.TableIDFromName(name)
	if err != nil {
		return 0, nil, nil, err
	}
	schema, err := ev.tx.Schema(id)
	if err != nil {
		return 0, nil, nil, err
	}
	rows, err := ev.tx.Scan(id)
	if err != nil {
		return 0, nil, nil, err
	}
	return id, schema, rows, nil
}

func hasFilter(b BoolExpr) bool { return b.Op != "" || b.LValue != nil }

func (ev *Evaluator) runSelect(s *SelectExpr) CodeResult {
	_, schema, rows, err := ev.loadTable(s.From)
	if err != nil {
		return halt(err)
	}
	rowset := make([]joinedRow, 0, len(rows))
	for _, rw := range rows {
		rowset = append(rowset, joinedRow{
			schemas: map[string]*catalog.TableSchema{s.From: schema},
			values:  map[string]*sats.ProductValue{s.From: rw.Row},
		})
	}
	for _, j := range s.Joins {
		_, jSchema, jRows, err := ev.loadTable(j.Table)
		if err != nil {
			return halt(err)
		}
		var next []joinedRow
		for _, base := range rowset {
			for _, jr := range jRows {
				candidate := joinedRow{
					schemas: cloneSchemaMap(base.schemas),
					values:  cloneValueMap(base.values),
				}
				candidate.schemas[j.Table] = jSchema
				candidate.values[j.Table] = jr.Row
				ok, err := evalBool(&j.On, candidate)
				if err != nil {
					return halt(err)
				}
				if ok {
					next = append(next, candidate)
				}
			}
		}
		rowset = next
	}
	if hasFilter(s.Where) {
		var filtered []joinedRow
		for _, r := range rowset {
			ok, err := evalBool(&s.Where, r)
			if err != nil {
				return halt(err)
			}
			if ok {
				filtered = append(filtered, r)
			}
		}
		rowset = filtered
	}
	mt, err := project(s.Items, s.From, rowset)
	if err != nil {
		return halt(err)
	}
	return CodeResult{Kind: ResultTable, Table: mt}
}

// projCol describes one output column: either a literal value baked in
// at compile time, or a (table, column) reference resolved per row.
type projCol struct {
	elem    sats.ProductTypeElement
	literal *sats.AlgebraicValue
	table   string
	column  string
}

func project(items []SelectItem, from string, rowset []joinedRow) (*MemTable, error) {
	var cols []projCol

	sampleSchemas := map[string]*catalog.TableSchema{}
	if len(rowset) > 0 {
		sampleSchemas = rowset[0].schemas
	}

	star := len(items) == 1 && items[0].Star && items[0].Table == ""
	if star {
		var names []string
		for name := range sampleSchemas {
			names = append(names, name)
		}
		sortStrings(names)
		if len(names) == 0 {
			names = []string{from}
		}
		for _, name := range names {
			schema := sampleSchemas[name]
			if schema == nil {
				continue
			}
			for _, col := range schema.Columns {
				cols = append(cols, projCol{elem: sats.Elem(col.Name, col.Type), table: name, column: col.Name})
			}
		}
	} else {
		for _, item := range items {
			switch {
			case item.Literal != nil:
				cols = append(cols, projCol{elem: sats.UnnamedElem(literalType(*item.Literal)), literal: item.Literal})
			case item.Star:
				schema, ok := sampleSchemas[item.Table]
				if !ok {
					return nil, &datastore.TableNotFoundError{Name: item.Table}
				}
				for _, col := range schema.Columns {
					cols = append(cols, projCol{elem: sats.Elem(col.Name, col.Type), table: item.Table, column: col.Name})
				}
			default:
				table := item.Table
				if table == "" {
					var err error
					table, err = findTableForColumn(item.Column, sampleSchemas)
					if err != nil {
						return nil, err
					}
				}
				schema, ok := sampleSchemas[table]
				if !ok {
					return nil, &datastore.TableNotFoundError{Name: table}
				}
				col, _, ok := schema.ColumnByName(item.Column)
				if !ok {
					return nil, &datastore.ColumnNotFoundError{Table: table, Column: item.Column}
				}
				cols = append(cols, projCol{elem: sats.Elem(col.Name, col.Type), table: table, column: item.Column})
			}
		}
	}

	elems := make([]sats.ProductTypeElement, len(cols))
	for i, c := range cols {
		elems[i] = c.elem
	}
	mt := &MemTable{Schema: sats.ProductTypeOf(elems...)}
	for _, r := range rowset {
		vals := make([]sats.AlgebraicValue, len(cols))
		for i, c := range cols {
			if c.literal != nil {
				vals[i] = *c.literal
				continue
			}
			schema := r.schemas[c.table]
			_, idx, _ := schema.ColumnByName(c.column)
			v, _ := r.values[c.table].Column(idx)
			vals[i] = v
		}
		mt.Rows = append(mt.Rows, &sats.ProductValue{Elements: vals})
	}
	return mt, nil
}

func literalType(v sats.AlgebraicValue) sats.AlgebraicType {
	return sats.AlgebraicType{Kind: v.Kind}
}

func findTableForColumn(col string, schemas map[string]*catalog.TableSchema) (string, error) {
	for name, schema := range schemas {
		if _, _, ok := schema.ColumnByName(col); ok {
			return name, nil
		}
	}
	return "", &datastore.ColumnNotFoundError{Table: "<unqualified>", Column: col}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func evalBool(be *BoolExpr, r joinedRow) (bool, error) {
	switch be.Op {
	case "AND":
		l, err := evalBool(be.Left, r)
		if err != nil || !l {
			return false, err
		}
		return evalBool(be.Right, r)
	case "OR":
		l, err := evalBool(be.Left, r)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return evalBool(be.Right, r)
	default:
		return evalComparison(be, r)
	}
}

type resolvedOperand struct {
	isColumn bool
	value    sats.AlgebraicValue
	lit      rawLiteral
}

func resolveOperand(ve *ValueExpr, r joinedRow) (resolvedOperand, error) {
	if !ve.IsColumn {
		return resolvedOperand{lit: ve.Literal}, nil
	}
	table := ve.Table
	if table == "" {
		var err error
		table, err = findTableForColumn(ve.Column, r.schemas)
		if err != nil {
			return resolvedOperand{}, err
		}
	}
	schema, ok := r.schemas[table]
	if !ok {
		return resolvedOperand{}, &datastore.TableNotFoundError{Name: table}
	}
	_, idx, ok := schema.ColumnByName(ve.Column)
	if !ok {
		return resolvedOperand{}, &datastore.ColumnNotFoundError{Table: table, Column: ve.Column}
	}
	v, _ := r.values[table].Column(idx)
	return resolvedOperand{isColumn: true, value: v}, nil
}

func evalComparison(be *BoolExpr, r joinedRow) (bool, error) {
	left, err := resolveOperand(be.LValue, r)
	if err != nil {
		return false, err
	}
	right, err := resolveOperand(be.RValue, r)
	if err != nil {
		return false, err
	}
	var lv, rv sats.AlgebraicValue
	switch {
	case left.isColumn && right.isColumn:
		lv, rv = left.value, right.value
	case left.isColumn:
		rv, err = coerceLiteral(right.lit, left.value.Kind)
		lv = left.value
	case right.isColumn:
		lv, err = coerceLiteral(left.lit, right.value.Kind)
		rv = right.value
	default:
		k := defaultKindFor(left.lit)
		lv, err = coerceLiteral(left.lit, k)
		if err == nil {
			rv, err = coerceLiteral(right.lit, k)
		}
	}
	if err != nil {
		return false, err
	}
	switch be.Op {
	case "=":
		return sats.Equal(lv, rv), nil
	case "<>":
		return !sats.Equal(lv, rv), nil
	default:
		cmp, err := sats.Compare(lv, rv)
		if err != nil {
			return false, err
		}
		switch be.Op {
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		case ">=":
			return cmp >= 0, nil
		default:
			return false, fmt.Errorf("eval: unknown comparison operator %q", be.Op)
		}
	}
}

func defaultKindFor(lit rawLiteral) sats.Kind {
	switch {
	case lit.isString:
		return sats.KindString
	case lit.isBool:
		return sats.KindBool
	case lit.isNumber && strings.Contains(lit.num, "."):
		return sats.KindF64
	default:
		return sats.KindI32
	}
}

// coerceLiteral converts a raw SQL literal to the requested Kind, the
// way a prepared statement binds an untyped parameter to its column's
// declared type (execute.rs has no analogue since Rust's AST already
// carries typed literals; this package defers that step to evaluation
// time because the dialect's literals are untyped until a column
// context is known).
func coerceLiteral(lit rawLiteral, kind sats.Kind) (sats.AlgebraicValue, error) {
	switch kind {
	case sats.KindString:
		if !lit.isString {
			return sats.AlgebraicValue{}, fmt.Errorf("eval: expected string literal")
		}
		return sats.NewString(lit.str), nil
	case sats.KindBool:
		if !lit.isBool {
			return sats.AlgebraicValue{}, fmt.Errorf("eval: expected boolean literal")
		}
		return sats.NewBool(lit.boolVal), nil
	case sats.KindF32, sats.KindF64:
		if !lit.isNumber {
			return sats.AlgebraicValue{}, fmt.Errorf("eval: expected numeric literal")
		}
		f, err := strconv.ParseFloat(lit.num, 64)
		if err != nil {
			return sats.AlgebraicValue{}, fmt.Errorf("eval: invalid float literal %q", lit.num)
		}
		if kind == sats.KindF32 {
			return sats.NewF32(float32(f)), nil
		}
		return sats.NewF64(f), nil
	case sats.KindI8, sats.KindI16, sats.KindI32, sats.KindI64, sats.KindI128:
		if !lit.isNumber {
			return sats.AlgebraicValue{}, fmt.Errorf("eval: expected numeric literal")
		}
		n := new(big.Int)
		if _, ok := n.SetString(lit.num, 10); !ok {
			return sats.AlgebraicValue{}, fmt.Errorf("eval: invalid integer literal %q", lit.num)
		}
		switch kind {
		case sats.KindI8:
			return sats.NewI8(int8(n.Int64())), nil
		case sats.KindI16:
			return sats.NewI16(int16(n.Int64())), nil
		case sats.KindI32:
			return sats.NewI32(int32(n.Int64())), nil
		case sats.KindI64:
			return sats.NewI64(n.Int64()), nil
		default:
			return sats.NewI128(n), nil
		}
	case sats.KindU8, sats.KindU16, sats.KindU32, sats.KindU64, sats.KindU128:
		if !lit.isNumber {
			return sats.AlgebraicValue{}, fmt.Errorf("eval: expected numeric literal")
		}
		n := new(big.Int)
		if _, ok := n.SetString(lit.num, 10); !ok {
			return sats.AlgebraicValue{}, fmt.Errorf("eval: invalid integer literal %q", lit.num)
		}
		switch kind {
		case sats.KindU8:
			return sats.NewU8(uint8(n.Uint64())), nil
		case sats.KindU16:
			return sats.NewU16(uint16(n.Uint64())), nil
		case sats.KindU32:
			return sats.NewU32(uint32(n.Uint64())), nil
		case sats.KindU64:
			return sats.NewU64(n.Uint64()), nil
		default:
			return sats.NewU128(n), nil
		}
	default:
		return sats.AlgebraicValue{}, fmt.Errorf("eval: cannot coerce literal to %s", kind)
	}
}

func (ev *Evaluator) runInsert(ins *InsertExpr) CodeResult {
	id, err := ev.tx.TableIDFromName(ins.Table)
	if err != nil {
		return halt(err)
	}
	schema, err := ev.tx.Schema(id)
	if err != nil {
		return halt(err)
	}
	vals := make([]sats.AlgebraicValue, len(schema.Columns))
	filled := make([]bool, len(schema.Columns))
	for i, colName := range ins.Columns {
		col, idx, ok := schema.ColumnByName(colName)
		if !ok {
			return halt(&datastore.ColumnNotFoundError{Table: ins.Table, Column: colName})
		}
		v, err := coerceLiteral(ins.Values[i], col.Type.Kind)
		if err != nil {
			return halt(err)
		}
		vals[idx] = v
		filled[idx] = true
	}
	for i, col := range schema.Columns {
		if !filled[i] {
			vals[i] = zeroValue(col.Type)
		}
	}
	_, _, err = ev.tx.Insert(id, &sats.ProductValue{Elements: vals})
	if err != nil {
		return halt(err)
	}
	return pass()
}

func zeroValue(t sats.AlgebraicType) sats.AlgebraicValue {
	switch t.Kind {
	case sats.KindBool:
		return sats.NewBool(false)
	case sats.KindString:
		return sats.NewString("")
	case sats.KindBytes:
		return sats.NewBytes(nil)
	case sats.KindI128:
		return sats.NewI128(big.NewInt(0))
	case sats.KindU128:
		return sats.NewU128(big.NewInt(0))
	default:
		v, _ := coerceLiteral(rawLiteral{isNumber: true, num: "0"}, t.Kind)
		return v
	}
}

func (ev *Evaluator) scanFiltered(id catalog.TableID, schema *catalog.TableSchema, where BoolExpr) ([]datastore.RowWithID, error) {
	all, err := ev.tx.Scan(id)
	if err != nil {
		return nil, err
	}
	var out []datastore.RowWithID
	for _, rw := range all {
		r := joinedRow{
			schemas: map[string]*catalog.TableSchema{schema.Name: schema},
			values:  map[string]*sats.ProductValue{schema.Name: rw.Row},
		}
		ok, err := evalBool(&where, r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rw)
		}
	}
	return out, nil
}

func (ev *Evaluator) runUpdate(upd *UpdateExpr) CodeResult {
	id, err := ev.tx.TableIDFromName(upd.Table)
	if err != nil {
		return halt(err)
	}
	schema, err := ev.tx.Schema(id)
	if err != nil {
		return halt(err)
	}
	var rows []datastore.RowWithID
	if !hasFilter(upd.Where) {
		rows, err = ev.tx.Scan(id)
	} else {
		rows, err = ev.scanFiltered(id, schema, upd.Where)
	}
	if err != nil {
		return halt(err)
	}
	for _, rw := range rows {
		newVals := append([]sats.AlgebraicValue(nil), rw.Row.Elements...)
		for _, set := range upd.Set {
			col, idx, ok := schema.ColumnByName(set.Column)
			if !ok {
				return halt(&datastore.ColumnNotFoundError{Table: upd.Table, Column: set.Column})
			}
			v, err := coerceLiteral(set.Value, col.Type.Kind)
			if err != nil {
				return halt(err)
			}
			newVals[idx] = v
		}
		if _, err := ev.tx.Delete(id, rw.ID); err != nil {
			return halt(err)
		}
		if _, _, err := ev.tx.Insert(id, &sats.ProductValue{Elements: newVals}); err != nil {
			return halt(err)
		}
	}
	return pass()
}

func (ev *Evaluator) runDelete(del *DeleteExpr) CodeResult {
	id, err := ev.tx.TableIDFromName(del.Table)
	if err != nil {
		return halt(err)
	}
	var rows []datastore.RowWithID
	if !hasFilter(del.Where) {
		rows, err = ev.tx.Scan(id)
	} else {
		schema, serr := ev.tx.Schema(id)
		if serr != nil {
			return halt(serr)
		}
		rows, err = ev.scanFiltered(id, schema, del.Where)
	}
	if err != nil {
		return halt(err)
	}
	for _, rw := range rows {
		if _, err := ev.tx.Delete(id, rw.ID); err != nil {
			return halt(err)
		}
	}
	return pass()
}

func (ev *Evaluator) runCreateTable(ct *CreateTableExpr) CodeResult {
	cols := make([]catalog.ColumnSchema, len(ct.Columns))
	for i, c := range ct.Columns {
		cols[i] = catalog.ColumnSchema{ColID: catalog.ColID(i), Name: c.Name, Type: c.Type}
	}
	_, err := ev.tx.CreateTable(ct.Table, cols, nil)
	if err != nil {
		return halt(err)
	}
	return pass()
}

func (ev *Evaluator) runDropTable(dt *DropTableExpr) CodeResult {
	id, err := ev.tx.TableIDFromName(dt.Table)
	if err != nil {
		return halt(err)
	}
	if err := ev.tx.DropTable(id); err != nil {
		return halt(err)
	}
	return pass()
}
