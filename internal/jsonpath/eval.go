package jsonpath

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
)

// Component is the part of a matched node to highlight.
type Component uint8

const (
	// ComponentValue is a scalar value.
	ComponentValue Component = iota
	// ComponentKey is an object key.
	ComponentKey
	// ComponentEntireRow is an object or array shown as a whole.
	ComponentEntireRow
)

func (c Component) String() string {
	switch c {
	case ComponentValue:
		return "value"
	case ComponentKey:
		return "key"
	case ComponentEntireRow:
		return "entire-row"
	default:
		return fmt.Sprintf("Component(%d)", uint8(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Component) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Range is a half-open byte range [Start, End) within Display.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Match is one node selected by a path.
type Match struct {
	// Path locates the node from the root, e.g. $.a.b[0].
	Path      string    `json:"path"`
	Component Component `json:"component"`
	// Highlight is nil for composite values.
	Highlight *Range `json:"highlight,omitempty"`
	// Display is the compact JSON rendering of the value.
	Display string `json:"display"`
	Value   any    `json:"-"`
}

// node is one entry of the evaluation frontier.
type node struct {
	path  string
	value any
}

// Evaluate applies p to root and returns the surviving nodes in document
// order. Object members are visited in sorted key order.
//
// matchCase controls string comparison in the filter; folding is ASCII-only.
func (p *Path) Evaluate(root any, matchCase bool) []Match {
	frontier := []node{{path: "$", value: root}}
	for _, seg := range p.Segments {
		frontier = step(frontier, seg)
		if len(frontier) == 0 {
			return nil
		}
	}
	matches := make([]Match, 0, len(frontier))
	for _, n := range frontier {
		if p.Filter != nil && !equal(n.value, p.Filter.Value, matchCase) {
			continue
		}
		matches = append(matches, newMatch(n))
	}
	return matches
}

// Evaluate parses expr and applies it to root.
func Evaluate(expr string, root any, matchCase bool) ([]Match, error) {
	p, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return p.Evaluate(root, matchCase), nil
}

func step(frontier []node, seg Segment) []node {
	var out []node
	for _, n := range frontier {
		switch seg.Kind {
		case SegField:
			if obj, ok := n.value.(map[string]any); ok {
				if v, ok := obj[seg.Name]; ok {
					out = append(out, node{path: n.path + FieldStep(seg.Name), value: v})
				}
			}
		case SegFieldWildcard:
			switch v := n.value.(type) {
			case map[string]any:
				for _, k := range slices.Sorted(maps.Keys(v)) {
					out = append(out, node{path: n.path + FieldStep(k), value: v[k]})
				}
			case []any:
				out = appendElements(out, n.path, v)
			}
		case SegIndex:
			if arr, ok := n.value.([]any); ok {
				i := seg.Index
				if i < 0 {
					i += len(arr)
				}
				if i >= 0 && i < len(arr) {
					out = append(out, node{path: n.path + IndexStep(i), value: arr[i]})
				}
			}
		case SegIndexWildcard:
			if arr, ok := n.value.([]any); ok {
				out = appendElements(out, n.path, arr)
			}
		}
	}
	return out
}

func appendElements(out []node, path string, arr []any) []node {
	for i, v := range arr {
		out = append(out, node{path: path + IndexStep(i), value: v})
	}
	return out
}

func newMatch(n node) Match {
	m := Match{Path: n.path, Display: Render(n.value), Value: n.value}
	switch n.value.(type) {
	case map[string]any, []any:
		m.Component = ComponentEntireRow
	default:
		m.Component = ComponentValue
		m.Highlight = &Range{Start: 0, End: len(m.Display)}
	}
	return m
}

// equal compares a value against a filter literal. Strings honor matchCase
// with ASCII folding; everything else, numbers included, compares exactly.
func equal(v, literal any, matchCase bool) bool {
	if s, ok := v.(string); ok {
		if l, ok := literal.(string); ok {
			if matchCase {
				return s == l
			}
			return EqualFoldASCII(s, l)
		}
		return false
	}
	return reflect.DeepEqual(v, literal)
}

// EqualFoldASCII reports whether a and b are equal after folding ASCII
// letters to lower case. Other bytes must match exactly.
func EqualFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range len(a) {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// Render returns the compact JSON text of v as shown in [Match.Display].
// HTML characters are not escaped.
func Render(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}))
}
