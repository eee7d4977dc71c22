package eval

import (
	"fmt"
	"strings"

	"github.com/spacetimedb-go/core/pkg/sats"
)

type parser struct {
	toks []token
	pos  int
}

// Compile tokenizes and parses sql_text into the ordered list of
// CrudExprs it names, one per top-level `;`-separated statement
// (SPEC_FULL supplemented feature 3). A single statement compiles to a
// slice of length 1; callers that need the whole-text-as-one-unit
// behavior wrap the result in a BlockExpr themselves (mirroring
// execute.rs's execute_sql doing that wrapping, not compile_sql).
func Compile(sqlText string) ([]CrudExpr, error) {
	stmtToks, err := tokenizeStatements(sqlText)
	if err != nil {
		return nil, err
	}
	out := make([]CrudExpr, 0, len(stmtToks))
	for _, toks := range stmtToks {
		p := &parser{toks: toks}
		expr, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

func (p *parser) peek() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) isKeyword(t token, kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.isKeyword(p.peek(), kw) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return fmt.Errorf("eval: expected %q, got %q", kw, p.peek().text)
	}
	return nil
}

func (p *parser) expectIdent() (string, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return "", fmt.Errorf("eval: expected identifier, got %q", t.text)
	}
	p.advance()
	return t.text, nil
}

func (p *parser) parseStatement() (CrudExpr, error) {
	t := p.peek()
	switch {
	case p.isKeyword(t, "SELECT"):
		return p.parseSelect()
	case p.isKeyword(t, "INSERT"):
		return p.parseInsert()
	case p.isKeyword(t, "UPDATE"):
		return p.parseUpdate()
	case p.isKeyword(t, "DELETE"):
		return p.parseDelete()
	case p.isKeyword(t, "CREATE"):
		return p.parseCreateTable()
	case p.isKeyword(t, "DROP"):
		return p.parseDropTable()
	default:
		return nil, fmt.Errorf("eval: unrecognized statement starting with %q", t.text)
	}
}

func (p *parser) parseSelect() (CrudExpr, error) {
	p.advance() // SELECT
	items, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	from, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	var joins []JoinClause
	for p.acceptKeyword("JOIN") {
		table, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("ON"); err != nil {
			return nil, err
		}
		on, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		joins = append(joins, JoinClause{Table: table, On: on})
	}
	var where *BoolExpr
	if p.acceptKeyword("WHERE") {
		w, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		where = &w
	}
	sel := &SelectExpr{Items: items, From: from, Joins: joins}
	if where != nil {
		sel.Where = *where
	}
	return sel, nil
}

func (p *parser) parseSelectList() ([]SelectItem, error) {
	if p.peek().kind == tokStar {
		p.advance()
		return []SelectItem{{Star: true}}, nil
	}
	var items []SelectItem
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.peek().kind != tokComma {
			break
		}
		p.advance()
	}
	return items, nil
}

func (p *parser) parseSelectItem() (SelectItem, error) {
	t := p.peek()
	if t.kind == tokLParen {
		p.advance()
		item, err := p.parseSelectItem()
		if err != nil {
			return SelectItem{}, err
		}
		if p.peek().kind != tokRParen {
			return SelectItem{}, fmt.Errorf("eval: expected ')'")
		}
		p.advance()
		return item, nil
	}
	if t.kind == tokNumber || t.kind == tokString {
		lit, err := p.parseLiteral()
		if err != nil {
			return SelectItem{}, err
		}
		v, err := coerceLiteral(lit, defaultKindFor(lit))
		if err != nil {
			return SelectItem{}, err
		}
		return SelectItem{Literal: &v}, nil
	}
	first, err := p.expectIdent()
	if err != nil {
		return SelectItem{}, err
	}
	if p.peek().kind == tokDot {
		p.advance()
		if p.peek().kind == tokStar {
			p.advance()
			return SelectItem{Star: true, Table: first}, nil
		}
		col, err := p.expectIdent()
		if err != nil {
			return SelectItem{}, err
		}
		return SelectItem{Table: first, Column: col}, nil
	}
	return SelectItem{Column: first}, nil
}

func (p *parser) parseOr() (BoolExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return BoolExpr{}, err
	}
	for p.acceptKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return BoolExpr{}, err
		}
		l, r := left, right
		left = BoolExpr{Op: "OR", Left: &l, Right: &r}
	}
	return left, nil
}

func (p *parser) parseAnd() (BoolExpr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return BoolExpr{}, err
	}
	for p.acceptKeyword("AND") {
		right, err := p.parsePrimary()
		if err != nil {
			return BoolExpr{}, err
		}
		l, r := left, right
		left = BoolExpr{Op: "AND", Left: &l, Right: &r}
	}
	return left, nil
}

func (p *parser) parsePrimary() (BoolExpr, error) {
	if p.peek().kind == tokLParen {
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return BoolExpr{}, err
		}
		if p.peek().kind != tokRParen {
			return BoolExpr{}, fmt.Errorf("eval: expected ')'")
		}
		p.advance()
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (BoolExpr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return BoolExpr{}, err
	}
	op, err := p.parseCmpOp()
	if err != nil {
		return BoolExpr{}, err
	}
	right, err := p.parseOperand()
	if err != nil {
		return BoolExpr{}, err
	}
	return BoolExpr{Op: op, LValue: &left, RValue: &right}, nil
}

func (p *parser) parseCmpOp() (string, error) {
	t := p.peek()
	switch t.kind {
	case tokEq:
		p.advance()
		return "=", nil
	case tokNotEq:
		p.advance()
		return "<>", nil
	case tokLt:
		p.advance()
		return "<", nil
	case tokLtEq:
		p.advance()
		return "<=", nil
	case tokGt:
		p.advance()
		return ">", nil
	case tokGtEq:
		p.advance()
		return ">=", nil
	default:
		return "", fmt.Errorf("eval: expected comparison operator, got %q", t.text)
	}
}

func (p *parser) parseOperand() (ValueExpr, error) {
	t := p.peek()
	if t.kind == tokNumber || t.kind == tokString {
		lit, err := p.parseLiteral()
		if err != nil {
			return ValueExpr{}, err
		}
		return ValueExpr{Literal: lit}, nil
	}
	first, err := p.expectIdent()
	if err != nil {
		return ValueExpr{}, err
	}
	if strings.EqualFold(first, "true") || strings.EqualFold(first, "false") {
		return ValueExpr{Literal: rawLiteral{isBool: true, boolVal: strings.EqualFold(first, "true")}}, nil
	}
	if p.peek().kind == tokDot {
		p.advance()
		col, err := p.expectIdent()
		if err != nil {
			return ValueExpr{}, err
		}
		return ValueExpr{IsColumn: true, Table: first, Column: col}, nil
	}
	return ValueExpr{IsColumn: true, Column: first}, nil
}

func (p *parser) parseLiteral() (rawLiteral, error) {
	t := p.advance()
	if t.kind == tokString {
		return rawLiteral{isString: true, str: t.text}, nil
	}
	if t.kind == tokNumber {
		return rawLiteral{isNumber: true, num: t.text}, nil
	}
	return rawLiteral{}, fmt.Errorf("eval: expected literal, got %q", t.text)
}

func (p *parser) parseInsert() (CrudExpr, error) {
	p.advance() // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	cols, err := p.parseIdentList()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	if p.peek().kind != tokLParen {
		return nil, fmt.Errorf("eval: expected '(' before VALUES list")
	}
	p.advance()
	var vals []rawLiteral
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		vals = append(vals, lit)
		if p.peek().kind != tokComma {
			break
		}
		p.advance()
	}
	if p.peek().kind != tokRParen {
		return nil, fmt.Errorf("eval: expected ')'")
	}
	p.advance()
	return &InsertExpr{Table: table, Columns: cols, Values: vals}, nil
}

func (p *parser) parseIdentList() ([]string, error) {
	if p.peek().kind != tokLParen {
		return nil, fmt.Errorf("eval: expected '('")
	}
	p.advance()
	var out []string
	for {
		id, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		out = append(out, id)
		if p.peek().kind != tokComma {
			break
		}
		p.advance()
	}
	if p.peek().kind != tokRParen {
		return nil, fmt.Errorf("eval: expected ')'")
	}
	p.advance()
	return out, nil
}

func (p *parser) parseUpdate() (CrudExpr, error) {
	p.advance() // UPDATE
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	var sets []Assignment
	for {
		col, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokEq {
			return nil, fmt.Errorf("eval: expected '=' in SET clause")
		}
		p.advance()
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		sets = append(sets, Assignment{Column: col, Value: lit})
		if p.peek().kind != tokComma {
			break
		}
		p.advance()
	}
	upd := &UpdateExpr{Table: table, Set: sets}
	if p.acceptKeyword("WHERE") {
		w, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		upd.Where = w
	}
	return upd, nil
}

func (p *parser) parseDelete() (CrudExpr, error) {
	p.advance() // DELETE
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	del := &DeleteExpr{Table: table}
	if p.acceptKeyword("WHERE") {
		w, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		del.Where = w
	}
	return del, nil
}

func (p *parser) parseCreateTable() (CrudExpr, error) {
	p.advance() // CREATE
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokLParen {
		return nil, fmt.Errorf("eval: expected '(' after table name")
	}
	p.advance()
	var cols []ColumnTypeSpec
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		typ, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		cols = append(cols, ColumnTypeSpec{Name: name, Type: typ})
		if p.peek().kind != tokComma {
			break
		}
		p.advance()
	}
	if p.peek().kind != tokRParen {
		return nil, fmt.Errorf("eval: expected ')'")
	}
	p.advance()
	return &CreateTableExpr{Table: table, Columns: cols}, nil
}

// parseTypeName resolves a column's SQL-ish type keyword(s) to a
// sats.AlgebraicType. BIGINT UNSIGNED and INT/INTEGER UNSIGNED are two
// tokens; everything else is one, matching the vocabulary execute.rs's test fixtures exercise.
func (p *parser) parseTypeName() (sats.AlgebraicType, error) {
	first, err := p.expectIdent()
	if err != nil {
		return sats.AlgebraicType{}, err
	}
	switch strings.ToUpper(first) {
	case "BIGINT":
		if p.isKeyword(p.peek(), "UNSIGNED") {
			p.advance()
			return sats.U64Type(), nil
		}
		return sats.I64Type(), nil
	case "INT", "INTEGER":
		if p.isKeyword(p.peek(), "UNSIGNED") {
			p.advance()
			return sats.U32Type(), nil
		}
		return sats.I32Type(), nil
	case "SMALLINT":
		return sats.I16Type(), nil
	case "TINYINT":
		return sats.I8Type(), nil
	case "TEXT", "VARCHAR", "STRING":
		return sats.StringType(), nil
	case "BOOL", "BOOLEAN":
		return sats.BoolType(), nil
	case "FLOAT", "REAL":
		return sats.F32Type(), nil
	case "DOUBLE":
		return sats.F64Type(), nil
	case "BLOB", "BYTES":
		return sats.BytesType(), nil
	default:
		return sats.AlgebraicType{}, fmt.Errorf("eval: unknown column type %q", first)
	}
}

func (p *parser) parseDropTable() (CrudExpr, error) {
	p.advance() // DROP
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return &DropTableExpr{Table: table}, nil
}
