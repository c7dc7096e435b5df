package jsonpath

import "fmt"

// ParseErrorKind classifies why an expression failed to parse.
type ParseErrorKind uint8

const (
	// ErrEmpty is an empty or whitespace-only expression.
	ErrEmpty ParseErrorKind = iota + 1
	// ErrMissingRoot is an expression that does not start with '$'.
	ErrMissingRoot
	// ErrInvalidToken is an unexpected character or token.
	ErrInvalidToken
	// ErrUnterminatedBracket is a '[' or quoted key without its closing part.
	ErrUnterminatedBracket
	// ErrInvalidFilter is a '=' not followed by a valid literal.
	ErrInvalidFilter
)

func (k ParseErrorKind) String() string {
	switch k {
	case ErrEmpty:
		return "empty expression"
	case ErrMissingRoot:
		return "missing root"
	case ErrInvalidToken:
		return "invalid token"
	case ErrUnterminatedBracket:
		return "unterminated bracket"
	case ErrInvalidFilter:
		return "invalid filter"
	default:
		return fmt.Sprintf("ParseErrorKind(%d)", uint8(k))
	}
}

// ParseError is returned by [Parse].
type ParseError struct {
	Kind ParseErrorKind
	// Pos is the byte offset in the expression where the error was detected.
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("jsonpath: %s at offset %d", e.Kind, e.Pos)
	}
	return fmt.Sprintf("jsonpath: %s at offset %d: %s", e.Kind, e.Pos, e.Msg)
}

func newParseError(kind ParseErrorKind, pos int, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
