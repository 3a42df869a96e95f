package expr

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOperator
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokDot
	tokComma
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of expression"
	case tokIdent:
		return "identifier"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	case tokOperator:
		return "operator"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokDot:
		return "'.'"
	case tokComma:
		return "','"
	default:
		return "token"
	}
}

type token struct {
	kind  tokenKind
	value string
	pos   int
}

// twoCharOps must be checked before single characters.
var twoCharOps = []string{"==", "!=", "<=", ">=", "&&", "||"}

const singleCharOps = "+-*/%<>!"

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// tokenize splits src into tokens, always ending with tokEOF.
func tokenize(src string) ([]token, error) {
	var tokens []token
	pos := 0
	for pos < len(src) {
		c := src[pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			pos++
		case isIdentStart(c):
			start := pos
			for pos < len(src) && isIdentPart(src[pos]) {
				pos++
			}
			tokens = append(tokens, token{kind: tokIdent, value: src[start:pos], pos: start})
		case isDigit(c) || (c == '.' && pos+1 < len(src) && isDigit(src[pos+1])):
			start := pos
			end, err := scanNumber(src, pos)
			if err != nil {
				return nil, err
			}
			pos = end
			tokens = append(tokens, token{kind: tokNumber, value: src[start:pos], pos: start})
		case c == '"' || c == '\'':
			value, end, err := scanString(src, pos)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, value: value, pos: pos})
			pos = end
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, value: "(", pos: pos})
			pos++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, value: ")", pos: pos})
			pos++
		case c == '[':
			tokens = append(tokens, token{kind: tokLBracket, value: "[", pos: pos})
			pos++
		case c == ']':
			tokens = append(tokens, token{kind: tokRBracket, value: "]", pos: pos})
			pos++
		case c == '.':
			tokens = append(tokens, token{kind: tokDot, value: ".", pos: pos})
			pos++
		case c == ',':
			tokens = append(tokens, token{kind: tokComma, value: ",", pos: pos})
			pos++
		default:
			op := matchOperator(src[pos:])
			if op == "" {
				return nil, &SyntaxError{Pos: pos, Msg: fmt.Sprintf("unexpected character %q", c)}
			}
			tokens = append(tokens, token{kind: tokOperator, value: op, pos: pos})
			pos += len(op)
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: pos})
	return tokens, nil
}

func matchOperator(rest string) string {
	for _, op := range twoCharOps {
		if strings.HasPrefix(rest, op) {
			return op
		}
	}
	if strings.IndexByte(singleCharOps, rest[0]) >= 0 {
		return rest[:1]
	}
	return ""
}

func scanNumber(src string, pos int) (int, error) {
	start := pos
	for pos < len(src) && isDigit(src[pos]) {
		pos++
	}
	if pos < len(src) && src[pos] == '.' && pos+1 < len(src) && isDigit(src[pos+1]) {
		pos++
		for pos < len(src) && isDigit(src[pos]) {
			pos++
		}
	}
	if pos < len(src) && (src[pos] == 'e' || src[pos] == 'E') {
		p := pos + 1
		if p < len(src) && (src[p] == '+' || src[p] == '-') {
			p++
		}
		if p >= len(src) || !isDigit(src[p]) {
			return 0, &SyntaxError{Pos: start, Msg: "malformed number exponent"}
		}
		for p < len(src) && isDigit(src[p]) {
			p++
		}
		pos = p
	}
	if pos < len(src) && isIdentStart(src[pos]) {
		return 0, &SyntaxError{Pos: start, Msg: fmt.Sprintf("invalid number %q", src[start:pos+1])}
	}
	return pos, nil
}

func scanString(src string, pos int) (string, int, error) {
	quote := src[pos]
	var b strings.Builder
	i := pos + 1
	for i < len(src) {
		c := src[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case c == '\\' && i+1 < len(src):
			i++
			switch src[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(src[i])
			}
		default:
			b.WriteByte(c)
		}
		i++
	}
	return "", 0, &SyntaxError{Pos: pos, Msg: "unterminated string literal"}
}
