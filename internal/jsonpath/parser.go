// Package jsonpath implements a small JSONPath subset evaluated against
// values decoded by encoding/json.
//
// Supported steps are member access, wildcards, array indices and a single
// trailing equality filter. Matches carry a rendered path and a highlight
// range so callers can show where in a record the match lies.
package jsonpath

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SegmentKind is the type of one path step.
type SegmentKind uint8

const (
	// SegField selects one object member by name.
	SegField SegmentKind = iota
	// SegFieldWildcard selects every child of an object or array.
	SegFieldWildcard
	// SegIndex selects one array element.
	SegIndex
	// SegIndexWildcard selects every array element.
	SegIndexWildcard
)

// Segment is one step of a path.
type Segment struct {
	Kind SegmentKind
	// Name is set for SegField.
	Name string
	// Index is set for SegIndex. Negative values count from the end.
	Index int
}

// Filter keeps only values equal to Value.
type Filter struct {
	Value any
}

// Path is a parsed expression.
type Path struct {
	Segments []Segment
	Filter   *Filter
}

// Parse parses expr.
//
// The grammar is '$' followed by any number of '.name', '.*', '[N]', '[*]',
// "['name']" or '["name"]', optionally followed by '= literal' where literal
// is a JSON value or a single-quoted string.
func Parse(expr string) (*Path, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, &ParseError{Kind: ErrEmpty}
	}
	p := &parser{lx: lexer{input: expr}}
	tok, err := p.lx.next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokRoot {
		return nil, newParseError(ErrMissingRoot, tok.Pos, "expression must start with '$'")
	}
	path := &Path{}
	for {
		tok, err := p.lx.next()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case TokEOF:
			return path, nil
		case TokDot:
			seg, err := p.parseDot(tok)
			if err != nil {
				return nil, err
			}
			path.Segments = append(path.Segments, seg)
		case TokLBracket:
			seg, err := p.parseBracket(tok)
			if err != nil {
				return nil, err
			}
			path.Segments = append(path.Segments, seg)
		case TokEquals:
			f, err := parseFilter(expr, tok.Pos+1)
			if err != nil {
				return nil, err
			}
			path.Filter = f
			return path, nil
		default:
			return nil, newParseError(ErrInvalidToken, tok.Pos, "unexpected %s", tok.Kind)
		}
	}
}

// MustParse is like Parse but panics on error. Use it for constant expressions.
func MustParse(expr string) *Path {
	p, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return p
}

type parser struct {
	lx lexer
}

func (p *parser) parseDot(dot Token) (Segment, error) {
	tok, err := p.lx.next()
	if err != nil {
		return Segment{}, err
	}
	switch tok.Kind {
	case TokIdent, TokNumber:
		// A dot directly followed by whitespace is not a member access.
		if tok.Pos != dot.Pos+1 {
			return Segment{}, newParseError(ErrInvalidToken, dot.Pos, "expected field name after '.'")
		}
		return Segment{Kind: SegField, Name: tok.Value}, nil
	case TokStar:
		return Segment{Kind: SegFieldWildcard}, nil
	default:
		return Segment{}, newParseError(ErrInvalidToken, tok.Pos, "expected field name after '.', got %s", tok.Kind)
	}
}

func (p *parser) parseBracket(open Token) (Segment, error) {
	tok, err := p.lx.next()
	if err != nil {
		return Segment{}, err
	}
	var seg Segment
	switch tok.Kind {
	case TokNumber:
		seg = Segment{Kind: SegIndex, Index: tok.Num}
	case TokString:
		seg = Segment{Kind: SegField, Name: tok.Value}
	case TokStar:
		seg = Segment{Kind: SegIndexWildcard}
	case TokEOF:
		return Segment{}, newParseError(ErrUnterminatedBracket, open.Pos, "missing ']'")
	default:
		return Segment{}, newParseError(ErrInvalidToken, tok.Pos, "expected index, quoted key or '*', got %s", tok.Kind)
	}
	tok, err = p.lx.next()
	if err != nil {
		return Segment{}, err
	}
	switch tok.Kind {
	case TokRBracket:
		return seg, nil
	case TokEOF:
		return Segment{}, newParseError(ErrUnterminatedBracket, open.Pos, "missing ']'")
	default:
		return Segment{}, newParseError(ErrInvalidToken, tok.Pos, "expected ']', got %s", tok.Kind)
	}
}

// parseFilter parses the literal that starts at offset pos of expr.
func parseFilter(expr string, pos int) (*Filter, error) {
	text := strings.TrimSpace(expr[pos:])
	if text == "" {
		return nil, newParseError(ErrInvalidFilter, pos, "missing literal after '='")
	}
	if text[0] == '\'' {
		lx := lexer{input: text}
		tok, err := lx.lexString('\'')
		if err != nil || lx.pos != len(text) {
			return nil, newParseError(ErrInvalidFilter, pos, "invalid single-quoted literal %s", text)
		}
		return &Filter{Value: tok.Value}, nil
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, newParseError(ErrInvalidFilter, pos, "literal %s is not valid JSON: %v", text, err)
	}
	return &Filter{Value: v}, nil
}

// String renders p in canonical form.
func (p *Path) String() string {
	var sb strings.Builder
	sb.WriteByte('$')
	for _, seg := range p.Segments {
		switch seg.Kind {
		case SegField:
			sb.WriteString(FieldStep(seg.Name))
		case SegFieldWildcard:
			sb.WriteString(".*")
		case SegIndex:
			sb.WriteString(IndexStep(seg.Index))
		case SegIndexWildcard:
			sb.WriteString("[*]")
		}
	}
	if p.Filter != nil {
		sb.WriteString(" = ")
		sb.WriteString(Render(p.Filter.Value))
	}
	return sb.String()
}

// FieldStep renders a member access as '.name', or "['name']" when name is
// not a plain identifier. Appending it to a match path yields the child path.
func FieldStep(name string) string {
	if isIdentifier(name) {
		return "." + name
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "['" + r.Replace(name) + "']"
}

// IndexStep renders an array access as '[i]'.
func IndexStep(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

func isIdentifier(s string) bool {
	if s == "" || isDigit(s[0]) || s[0] == '-' {
		return false
	}
	for i := range len(s) {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}
