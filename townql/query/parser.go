package query

import (
	"strconv"
	"strings"

	qerrors "github.com/townql/townql/townql/errors"
)

// Parse parses a query string into a Query tree. Connector restrictions are
// enforced before the tree is built; field-level rules are left to Validate.
func Parse(input string) (*Query, error) {
	tokens, err := Lex(input)
	if err != nil {
		if ferr := checkLeadingField(input); ferr != nil {
			return nil, ferr
		}
		return nil, err
	}

	if err := checkRestrictions(tokens); err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens, pos: 0}
	return p.parseQuery()
}

type parser struct {
	tokens     []Token
	pos        int
	connectors int
}

func (p *parser) parseQuery() (*Query, error) {
	if p.match(TokEOF) {
		return nil, qerrors.SyntaxError(0, "empty query: expected a condition such as 'population > 5000'")
	}

	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	q := &Query{Root: root}

	if !p.match(TokEOF) && !p.match(TokOrder) && !p.match(TokLimit) {
		return nil, p.trailingError()
	}

	if p.match(TokOrder) {
		ob, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		q.OrderBy = ob
	}

	if p.match(TokLimit) {
		n, err := p.parseLimit()
		if err != nil {
			return nil, err
		}
		q.Limit = &n
	}

	if !p.match(TokEOF) {
		cur := p.current()
		return nil, qerrors.SyntaxError(cur.Pos, "unexpected %s after query modifiers, expected end of query", cur.describe())
	}

	return q, nil
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.match(TokOr) {
		p.advance()
		p.connectors++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Binary{Left: left, Connector: ConnOr, Right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	var left Node = cond

	for p.match(TokAnd) {
		p.advance()
		p.connectors++
		right, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		left = &Binary{Left: left, Connector: ConnAnd, Right: right}
	}

	return left, nil
}

func (p *parser) parseCondition() (*Condition, error) {
	fieldTok := p.current()
	if fieldTok.Kind != TokIdent {
		return nil, qerrors.SyntaxError(fieldTok.Pos, "expected field name, got %s", fieldTok.describe())
	}
	p.advance()

	opTok := p.current()
	if !opTok.Kind.IsOperator() {
		return nil, qerrors.SyntaxError(opTok.Pos, "expected operator (==, !=, <, >, <=, >=, OF) after '%s', got %s", fieldTok.Value, opTok.describe())
	}
	p.advance()

	valTok := p.current()
	if valTok.Kind.IsKeyword() {
		return nil, qerrors.SyntaxError(valTok.Pos, "expected value after '%s %s', got keyword %s (quote it to use it as a value, e.g. \"%s\")", fieldTok.Value, opTok.Value, valTok.describe(), valTok.Value)
	}
	if !valTok.Kind.IsValue() {
		return nil, qerrors.SyntaxError(valTok.Pos, "expected value after '%s %s', got %s", fieldTok.Value, opTok.Value, valTok.describe())
	}
	p.advance()

	return &Condition{
		Field: fieldTok.Value,
		Op:    opFromToken(opTok.Kind),
		Value: valueFromToken(valTok),
		Pos:   fieldTok.Pos,
	}, nil
}

func (p *parser) parseOrderBy() (*OrderBy, error) {
	p.advance() // ORDER
	if !p.match(TokBy) {
		cur := p.current()
		return nil, qerrors.SyntaxError(cur.Pos, "expected BY after ORDER, got %s", cur.describe())
	}
	p.advance()

	fieldTok := p.current()
	if fieldTok.Kind != TokIdent {
		return nil, qerrors.SyntaxError(fieldTok.Pos, "expected field name after ORDER BY, got %s", fieldTok.describe())
	}
	p.advance()

	ob := &OrderBy{Field: fieldTok.Value, Direction: Asc}
	switch {
	case p.match(TokAsc):
		p.advance()
	case p.match(TokDesc):
		ob.Direction = Desc
		p.advance()
	}
	return ob, nil
}

func (p *parser) parseLimit() (int, error) {
	p.advance() // LIMIT
	tok := p.current()
	if tok.Kind != TokNumber {
		return 0, qerrors.SyntaxError(tok.Pos, "LIMIT expects a positive integer, got %s", tok.describe())
	}
	n, err := strconv.Atoi(strings.TrimPrefix(tok.Value, "+"))
	if err != nil || n <= 0 {
		return 0, qerrors.SyntaxError(tok.Pos, "LIMIT expects a positive integer, got %s", tok.describe())
	}
	p.advance()
	return n, nil
}

// trailingError reports text left over after a complete condition list. The most
// common cause is an unquoted multi-word value such as county == grand isle.
func (p *parser) trailingError() error {
	cur := p.current()
	if p.connectors > 0 {
		return qerrors.SyntaxError(cur.Pos, "incomplete compound query: unexpected %s after second condition (quote multi-word values)", cur.describe())
	}
	return qerrors.SyntaxError(cur.Pos, "incomplete query: unexpected %s after condition, expected AND, OR, ORDER BY, LIMIT or end of query (quote multi-word values)", cur.describe())
}

func (p *parser) current() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Kind: TokEOF}
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) match(kind TokenKind) bool {
	return p.current().Kind == kind
}

func valueFromToken(tok Token) Value {
	switch tok.Kind {
	case TokNumber:
		if !strings.Contains(tok.Value, ".") {
			if i, err := strconv.ParseInt(strings.TrimPrefix(tok.Value, "+"), 10, 64); err == nil {
				return Value{Kind: ValueInt, Int: i, Raw: tok.Value}
			}
		}
		return Value{Kind: ValueFloat, Float: tok.Num, Raw: tok.Value}
	case TokString:
		return Value{Kind: ValueString, Str: tok.Value, Raw: tok.Value, Quoted: true}
	default:
		return Value{Kind: ValueString, Str: tok.Value, Raw: tok.Value}
	}
}
