// Byte-level lexer that finds element boundaries in a top-level JSON array.

package records

// lexState is the string-tracking state of the array lexer.
type lexState uint8

const (
	stateOutside lexState = iota
	stateInString
	stateEscape
)

func (s lexState) String() string {
	switch s {
	case stateOutside:
		return "outside"
	case stateInString:
		return "in-string"
	case stateEscape:
		return "escape"
	default:
		return "invalid"
	}
}

// lexEvent is what a byte means structurally to the array indexer.
type lexEvent uint8

const (
	// evNone is any byte without structural meaning at the element level.
	evNone lexEvent = iota
	// evSeparator is a ',' directly inside the top-level array.
	evSeparator
	// evEnd is the ']' closing the top-level array.
	evEnd
	// evMismatch is a closing bracket that does not match its opener.
	evMismatch
)

// lexer tracks whether the current byte is inside a string and the stack of
// open containers below the top-level array.
//
// Structural bytes inside string literals are never interpreted; a quote
// preceded by a backslash inside a string does not end it.
type lexer struct {
	state lexState
	// stack holds the expected closing byte of each open nested container.
	stack []byte
}

// depth is the nesting depth relative to the inside of the top-level array.
func (l *lexer) depth() int {
	return len(l.stack)
}

// next consumes one byte and returns its structural meaning.
func (l *lexer) next(c byte) lexEvent {
	switch l.state {
	case stateEscape:
		l.state = stateInString
		return evNone
	case stateInString:
		switch c {
		case '\\':
			l.state = stateEscape
		case '"':
			l.state = stateOutside
		}
		return evNone
	}
	switch c {
	case '"':
		l.state = stateInString
	case '[':
		l.stack = append(l.stack, ']')
	case '{':
		l.stack = append(l.stack, '}')
	case ']', '}':
		if len(l.stack) == 0 {
			if c == ']' {
				return evEnd
			}
			return evMismatch
		}
		if l.stack[len(l.stack)-1] != c {
			return evMismatch
		}
		l.stack = l.stack[:len(l.stack)-1]
	case ',':
		if len(l.stack) == 0 {
			return evSeparator
		}
	}
	return evNone
}
