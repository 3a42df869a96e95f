package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError reports a malformed expression.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

type parser struct {
	tokens []token
	pos    int
}

func parse(src string) (node, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	if p.current().kind == tokEOF {
		return nil, &SyntaxError{Pos: 0, Msg: "empty expression"}
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.kind != tokEOF {
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected trailing %s %q", tok.kind, tok.value)}
	}
	return n, nil
}

func (p *parser) current() token {
	if p.pos >= len(p.tokens) {
		return token{kind: tokEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() token {
	if p.pos+1 >= len(p.tokens) {
		return token{kind: tokEOF}
	}
	return p.tokens[p.pos+1]
}

func (p *parser) advance() token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) isKeyword(word string) bool {
	tok := p.current()
	return tok.kind == tokIdent && tok.value == word
}

func (p *parser) isOperator(ops ...string) bool {
	tok := p.current()
	if tok.kind != tokOperator {
		return false
	}
	for _, op := range ops {
		if tok.value == op {
			return true
		}
	}
	return false
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.current()
	if tok.kind != kind {
		return tok, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("expected %s, found %s", kind, describe(tok))}
	}
	p.advance()
	return tok, nil
}

func describe(tok token) string {
	if tok.kind == tokEOF {
		return tok.kind.String()
	}
	return fmt.Sprintf("%s %q", tok.kind, tok.value)
}

// parseOr parses `a or b` and `a || b` (lowest precedence).
func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") || p.isOperator("||") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") || p.isOperator("&&") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.isKeyword("not") {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: "not", operand: operand}, nil
	}
	return p.parseComparison()
}

// parseComparison parses ==, !=, <, <=, >, >=, in and not in. Chains are
// left associative.
func (p *parser) parseComparison() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.isOperator("==", "!=", "<", "<=", ">", ">="):
			op = p.advance().value
		case p.isKeyword("in"):
			p.advance()
			op = "in"
		case p.isKeyword("not") && p.peek().kind == tokIdent && p.peek().value == "in":
			p.advance()
			p.advance()
			op = "not in"
		default:
			return left, nil
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isOperator("+", "-") {
		op := p.advance().value
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOperator("*", "/", "%") {
		op := p.advance().value
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.isOperator("-", "+", "!") {
		op := p.advance().value
		if op == "!" {
			op = "not"
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: op, operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses field access, indexing and built-in calls.
func (p *parser) parsePostfix() (node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.current().kind {
		case tokDot:
			p.advance()
			tok, err := p.expect(tokIdent)
			if err != nil {
				return nil, err
			}
			left = &fieldNode{object: left, field: tok.value}
		case tokLBracket:
			p.advance()
			index, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket); err != nil {
				return nil, err
			}
			left = &indexNode{object: left, index: index}
		case tokLParen:
			ident, ok := left.(*identNode)
			if !ok {
				return nil, &SyntaxError{Pos: p.current().pos, Msg: "only built-in functions can be called"}
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			left = &callNode{name: ident.name, args: args}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseArgs() ([]node, error) {
	p.advance() // '('
	var args []node
	if p.current().kind == tokRParen {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.current().kind == tokComma {
			p.advance()
			continue
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return args, nil
	}
}

var keywordLiterals = map[string]any{
	"true":  true,
	"True":  true,
	"false": false,
	"False": false,
	"none":  nil,
	"None":  nil,
	"null":  nil,
}

var reserved = map[string]bool{"and": true, "or": true, "not": true, "in": true}

func (p *parser) parsePrimary() (node, error) {
	tok := p.current()
	switch tok.kind {
	case tokNumber:
		p.advance()
		return parseNumber(tok)
	case tokString:
		p.advance()
		return &literalNode{value: tok.value}, nil
	case tokIdent:
		if v, ok := keywordLiterals[tok.value]; ok {
			p.advance()
			return &literalNode{value: v}, nil
		}
		if reserved[tok.value] {
			return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected keyword %q", tok.value)}
		}
		p.advance()
		return &identNode{name: tok.value}, nil
	case tokLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %s", describe(tok))}
	}
}

func parseNumber(tok token) (node, error) {
	if !strings.ContainsAny(tok.value, ".eE") {
		if i, err := strconv.ParseInt(tok.value, 10, 64); err == nil {
			return &literalNode{value: i}, nil
		}
	}
	f, err := strconv.ParseFloat(tok.value, 64)
	if err != nil {
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("invalid number %q", tok.value)}
	}
	return &literalNode{value: f}, nil
}
