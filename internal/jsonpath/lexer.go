package jsonpath

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Token is a lexical token of a path expression.
type Token struct {
	Kind  TokenKind
	Value string
	Num   int
	// Pos is the byte offset of the token in the expression.
	Pos int
}

// TokenKind is the type of token.
type TokenKind int

const (
	TokRoot TokenKind = iota
	TokDot
	TokStar
	TokLBracket
	TokRBracket
	TokIdent
	TokString
	TokNumber
	TokEquals
	TokEOF
)

func (k TokenKind) String() string {
	switch k {
	case TokRoot:
		return "Root"
	case TokDot:
		return "Dot"
	case TokStar:
		return "Star"
	case TokLBracket:
		return "LBracket"
	case TokRBracket:
		return "RBracket"
	case TokIdent:
		return "Ident"
	case TokString:
		return "String"
	case TokNumber:
		return "Number"
	case TokEquals:
		return "Equals"
	case TokEOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

// lexer tokenizes the path part of an expression. It stops at '='; the
// parser reads the filter literal from the remaining input verbatim.
type lexer struct {
	input string
	pos   int
}

// next returns the next token.
func (l *lexer) next() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.input) {
		return Token{Kind: TokEOF, Pos: l.pos}, nil
	}
	start := l.pos
	ch := l.input[l.pos]
	switch ch {
	case '$':
		l.pos++
		return Token{Kind: TokRoot, Pos: start}, nil
	case '.':
		l.pos++
		return Token{Kind: TokDot, Pos: start}, nil
	case '*':
		l.pos++
		return Token{Kind: TokStar, Pos: start}, nil
	case '[':
		l.pos++
		return Token{Kind: TokLBracket, Pos: start}, nil
	case ']':
		l.pos++
		return Token{Kind: TokRBracket, Pos: start}, nil
	case '=':
		l.pos++
		return Token{Kind: TokEquals, Pos: start}, nil
	case '\'', '"':
		return l.lexString(ch)
	}
	if ch == '-' || isDigit(ch) {
		return l.lexNumber()
	}
	if isIdentByte(ch) {
		for l.pos < len(l.input) && isIdentByte(l.input[l.pos]) {
			l.pos++
		}
		return Token{Kind: TokIdent, Value: l.input[start:l.pos], Pos: start}, nil
	}
	return Token{}, newParseError(ErrInvalidToken, start, "unexpected %q", ch)
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) && (l.input[l.pos] == ' ' || l.input[l.pos] == '\t') {
		l.pos++
	}
}

func (l *lexer) lexNumber() (Token, error) {
	start := l.pos
	if l.input[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	text := l.input[start:l.pos]
	n, err := strconv.Atoi(text)
	if err != nil {
		return Token{}, newParseError(ErrInvalidToken, start, "invalid index %q", text)
	}
	return Token{Kind: TokNumber, Value: text, Num: n, Pos: start}, nil
}

// lexString reads a quoted key. In single quoted keys a backslash escapes
// the next byte; double quoted keys are decoded as JSON strings.
func (l *lexer) lexString(quote byte) (Token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == quote:
			l.pos++
			if quote == '"' {
				var s string
				if err := json.Unmarshal([]byte(l.input[start:l.pos]), &s); err != nil {
					return Token{}, newParseError(ErrInvalidToken, start, "invalid quoted key: %v", err)
				}
				return Token{Kind: TokString, Value: s, Pos: start}, nil
			}
			return Token{Kind: TokString, Value: sb.String(), Pos: start}, nil
		case c == '\\' && l.pos+1 < len(l.input):
			sb.WriteByte(l.input[l.pos+1])
			l.pos += 2
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return Token{}, newParseError(ErrUnterminatedBracket, start, "unterminated quoted key")
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isIdentByte reports whether c may appear in an unquoted field name. Bytes
// of multi-byte UTF-8 sequences are accepted.
func isIdentByte(c byte) bool {
	return c == '_' || c == '-' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}
