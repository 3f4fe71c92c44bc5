// Package expr implements the small boolean expression language used by
// logical and completeness validation rules. Expressions reference table
// columns by name and support comparisons, boolean connectives, and null
// tests:
//
//	income >= expenses || isnull(income) || isnull(expenses)
//	age >= 18 && consent == "yes"
//	!(status == "refused")
//
// The grammar is deliberately closed: no function calls beyond isnull/notnull,
// no arithmetic, no side effects. Parse errors fail the whole rule; per-row
// evaluation errors (comparing against a missing value, mixed types) are
// reported to the caller per row.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"surveyclean/domain/core"
	"surveyclean/domain/table"
)

// Expr is a parsed boolean expression ready for per-row evaluation
type Expr struct {
	root    node
	columns []string
	source  string
}

// Parse compiles an expression. Returns core.ErrExpressionSyntax-wrapped
// errors on malformed input.
func Parse(input string) (*Expr, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: empty expression", core.ErrExpressionSyntax)
	}
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("%w: unexpected %q", core.ErrExpressionSyntax, p.peek().text)
	}
	e := &Expr{root: root, source: input}
	collectColumns(root, &e.columns)
	return e, nil
}

// Columns returns the column names referenced by the expression
func (e *Expr) Columns() []string {
	return e.columns
}

// String returns the original expression text
func (e *Expr) String() string {
	return e.source
}

// Eval evaluates the expression against one row of the table. The result
// must be boolean; anything else is an evaluation error.
func (e *Expr) Eval(tbl *table.Table, row int) (bool, error) {
	v, err := e.root.eval(tbl, row)
	if err != nil {
		return false, err
	}
	if v.kind != kindBool {
		return false, fmt.Errorf("%w: expression is not boolean", core.ErrExpressionEval)
	}
	return v.boolVal, nil
}

// value kinds produced during evaluation
type valueKind int

const (
	kindBool valueKind = iota
	kindNumber
	kindString
	kindNull
)

type value struct {
	kind    valueKind
	boolVal bool
	numVal  float64
	strVal  string
}

// AST nodes

type node interface {
	eval(tbl *table.Table, row int) (value, error)
}

type binaryNode struct {
	op          string
	left, right node
}

type notNode struct {
	operand node
}

type columnNode struct {
	name string
}

type literalNode struct {
	val value
}

type nullTestNode struct {
	column string
	negate bool // notnull
}

func (n *binaryNode) eval(tbl *table.Table, row int) (value, error) {
	left, err := n.left.eval(tbl, row)
	if err != nil {
		return value{}, err
	}
	// Short-circuit boolean connectives
	switch n.op {
	case "||":
		if left.kind != kindBool {
			return value{}, fmt.Errorf("%w: || requires boolean operands", core.ErrExpressionEval)
		}
		if left.boolVal {
			return value{kind: kindBool, boolVal: true}, nil
		}
		right, err := n.right.eval(tbl, row)
		if err != nil {
			return value{}, err
		}
		if right.kind != kindBool {
			return value{}, fmt.Errorf("%w: || requires boolean operands", core.ErrExpressionEval)
		}
		return value{kind: kindBool, boolVal: right.boolVal}, nil
	case "&&":
		if left.kind != kindBool {
			return value{}, fmt.Errorf("%w: && requires boolean operands", core.ErrExpressionEval)
		}
		if !left.boolVal {
			return value{kind: kindBool, boolVal: false}, nil
		}
		right, err := n.right.eval(tbl, row)
		if err != nil {
			return value{}, err
		}
		if right.kind != kindBool {
			return value{}, fmt.Errorf("%w: && requires boolean operands", core.ErrExpressionEval)
		}
		return value{kind: kindBool, boolVal: right.boolVal}, nil
	}

	right, err := n.right.eval(tbl, row)
	if err != nil {
		return value{}, err
	}
	return compare(n.op, left, right)
}

func compare(op string, left, right value) (value, error) {
	if left.kind == kindNull || right.kind == kindNull {
		return value{}, fmt.Errorf("%w: comparison against missing value", core.ErrExpressionEval)
	}
	if left.kind != right.kind {
		return value{}, fmt.Errorf("%w: mismatched operand types for %s", core.ErrExpressionEval, op)
	}

	var cmp int
	switch left.kind {
	case kindNumber:
		switch {
		case left.numVal < right.numVal:
			cmp = -1
		case left.numVal > right.numVal:
			cmp = 1
		}
	case kindString:
		cmp = strings.Compare(left.strVal, right.strVal)
	case kindBool:
		if op != "==" && op != "!=" {
			return value{}, fmt.Errorf("%w: booleans only support == and !=", core.ErrExpressionEval)
		}
		eq := left.boolVal == right.boolVal
		if op == "!=" {
			eq = !eq
		}
		return value{kind: kindBool, boolVal: eq}, nil
	}

	var result bool
	switch op {
	case "==":
		result = cmp == 0
	case "!=":
		result = cmp != 0
	case "<":
		result = cmp < 0
	case "<=":
		result = cmp <= 0
	case ">":
		result = cmp > 0
	case ">=":
		result = cmp >= 0
	default:
		return value{}, fmt.Errorf("%w: unknown operator %s", core.ErrExpressionEval, op)
	}
	return value{kind: kindBool, boolVal: result}, nil
}

func (n *notNode) eval(tbl *table.Table, row int) (value, error) {
	v, err := n.operand.eval(tbl, row)
	if err != nil {
		return value{}, err
	}
	if v.kind != kindBool {
		return value{}, fmt.Errorf("%w: ! requires a boolean operand", core.ErrExpressionEval)
	}
	return value{kind: kindBool, boolVal: !v.boolVal}, nil
}

func (n *columnNode) eval(tbl *table.Table, row int) (value, error) {
	col, ok := tbl.Column(n.name)
	if !ok {
		return value{}, fmt.Errorf("%w: column %q", core.ErrExpressionEval, n.name)
	}
	if row < 0 || row >= col.Len() {
		return value{}, fmt.Errorf("%w: row %d out of range", core.ErrExpressionEval, row)
	}
	cell := col.Cells[row]
	if cell.IsMissing {
		return value{kind: kindNull}, nil
	}
	switch {
	case cell.NumericVal != nil:
		return value{kind: kindNumber, numVal: *cell.NumericVal}, nil
	case cell.StringVal != nil:
		return value{kind: kindString, strVal: *cell.StringVal}, nil
	case cell.BooleanVal != nil:
		return value{kind: kindBool, boolVal: *cell.BooleanVal}, nil
	case cell.DatetimeVal != nil:
		// Datetimes compare through their RFC3339 form, which sorts correctly
		return value{kind: kindString, strVal: cell.String()}, nil
	}
	return value{kind: kindNull}, nil
}

func (n *literalNode) eval(tbl *table.Table, row int) (value, error) {
	return n.val, nil
}

func (n *nullTestNode) eval(tbl *table.Table, row int) (value, error) {
	col, ok := tbl.Column(n.column)
	if !ok {
		return value{}, fmt.Errorf("%w: column %q", core.ErrExpressionEval, n.column)
	}
	missing := col.Cells[row].IsMissing
	if n.negate {
		missing = !missing
	}
	return value{kind: kindBool, boolVal: missing}, nil
}

func collectColumns(n node, out *[]string) {
	switch t := n.(type) {
	case *binaryNode:
		collectColumns(t.left, out)
		collectColumns(t.right, out)
	case *notNode:
		collectColumns(t.operand, out)
	case *columnNode:
		*out = append(*out, t.name)
	case *nullTestNode:
		*out = append(*out, t.column)
	}
}

// Tokenizer

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokOperator
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case r == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case r == '&':
			if i+1 < len(runes) && runes[i+1] == '&' {
				i++
			}
			tokens = append(tokens, token{tokOperator, "&&"})
			i++
		case r == '|':
			if i+1 < len(runes) && runes[i+1] == '|' {
				i++
			}
			tokens = append(tokens, token{tokOperator, "||"})
			i++
		case r == '!':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokOperator, "!="})
				i += 2
			} else {
				tokens = append(tokens, token{tokOperator, "!"})
				i++
			}
		case r == '=':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokOperator, "=="})
				i += 2
			} else {
				return nil, fmt.Errorf("%w: single '=' (use '==')", core.ErrExpressionSyntax)
			}
		case r == '<' || r == '>':
			op := string(r)
			if i+1 < len(runes) && runes[i+1] == '=' {
				op += "="
				i++
			}
			tokens = append(tokens, token{tokOperator, op})
			i++
		case r == '"' || r == '\'':
			quote := r
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("%w: unterminated string", core.ErrExpressionSyntax)
			}
			tokens = append(tokens, token{tokString, string(runes[i+1 : j])})
			i = j + 1
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, string(runes[i:j])})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i + 1
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			word := string(runes[i:j])
			switch strings.ToLower(word) {
			case "and":
				tokens = append(tokens, token{tokOperator, "&&"})
			case "or":
				tokens = append(tokens, token{tokOperator, "||"})
			case "not":
				tokens = append(tokens, token{tokOperator, "!"})
			default:
				tokens = append(tokens, token{tokIdent, word})
			}
			i = j
		default:
			return nil, fmt.Errorf("%w: unexpected character %q", core.ErrExpressionSyntax, string(r))
		}
	}
	return tokens, nil
}

// Recursive-descent parser

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) atEnd() bool {
	return p.pos >= len(p.tokens)
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) acceptOperator(ops ...string) (string, bool) {
	if p.atEnd() || p.peek().kind != tokOperator {
		return "", false
	}
	for _, op := range ops {
		if p.peek().text == op {
			p.next()
			return op, true
		}
	}
	return "", false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOperator("||"); !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "||", left: left, right: right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOperator("&&"); !ok {
			return left, nil
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "&&", left: left, right: right}
	}
}

func (p *parser) parseNot() (node, error) {
	if _, ok := p.acceptOperator("!"); ok {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notNode{operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, ok := p.acceptOperator("==", "!=", "<", "<=", ">", ">=")
	if !ok {
		return left, nil
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &binaryNode{op: op, left: left, right: right}, nil
}

func (p *parser) parseOperand() (node, error) {
	if p.atEnd() {
		return nil, fmt.Errorf("%w: unexpected end of expression", core.ErrExpressionSyntax)
	}
	t := p.next()
	switch t.kind {
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.atEnd() || p.peek().kind != tokRParen {
			return nil, fmt.Errorf("%w: missing closing parenthesis", core.ErrExpressionSyntax)
		}
		p.next()
		return inner, nil
	case tokNumber:
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", core.ErrExpressionSyntax, t.text)
		}
		return &literalNode{val: value{kind: kindNumber, numVal: n}}, nil
	case tokString:
		return &literalNode{val: value{kind: kindString, strVal: t.text}}, nil
	case tokIdent:
		lower := strings.ToLower(t.text)
		if lower == "true" || lower == "false" {
			return &literalNode{val: value{kind: kindBool, boolVal: lower == "true"}}, nil
		}
		if lower == "isnull" || lower == "notnull" {
			return p.parseNullTest(lower == "notnull")
		}
		return &columnNode{name: t.text}, nil
	}
	return nil, fmt.Errorf("%w: unexpected %q", core.ErrExpressionSyntax, t.text)
}

func (p *parser) parseNullTest(negate bool) (node, error) {
	if p.atEnd() || p.peek().kind != tokLParen {
		return nil, fmt.Errorf("%w: null test requires parentheses", core.ErrExpressionSyntax)
	}
	p.next()
	if p.atEnd() || p.peek().kind != tokIdent {
		return nil, fmt.Errorf("%w: null test requires a column name", core.ErrExpressionSyntax)
	}
	col := p.next().text
	if p.atEnd() || p.peek().kind != tokRParen {
		return nil, fmt.Errorf("%w: missing closing parenthesis", core.ErrExpressionSyntax)
	}
	p.next()
	return &nullTestNode{column: col, negate: negate}, nil
}
