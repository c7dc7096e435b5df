package search

import (
	"bytes"
	"maps"
	"slices"

	"github.com/maruel/jsonlens/internal/jsonpath"
)

// matcher decides whether record i of src is a hit.
type matcher interface {
	match(src Source, i int) (Hit, bool)
}

// textMatcher finds a literal needle in raw record bytes.
type textMatcher struct {
	// needle is already folded when fold is set.
	needle []byte
	fold   bool
	fields bool
}

func newTextMatcher(q Query, opts Options) *textMatcher {
	m := &textMatcher{needle: []byte(q.Text), fold: !q.MatchCase, fields: opts.Fields}
	if m.fold {
		m.needle = foldASCII(m.needle)
	}
	return m
}

func (m *textMatcher) match(src Source, i int) (Hit, bool) {
	raw, err := src.RawBytes(i)
	if err != nil {
		return Hit{}, false
	}
	frags := m.find(raw, TargetRaw, nil)
	if len(frags) == 0 {
		return Hit{}, false
	}
	if m.fields {
		if v, err := src.Get(i); err == nil {
			frags = m.walk(v, "$", frags)
		}
	}
	return Hit{Index: i, Fragments: frags}, true
}

// find appends a fragment for every non-overlapping occurrence of the needle
// in hay. The caller's slice is never modified.
func (m *textMatcher) find(hay []byte, target Target, out []Fragment) []Fragment {
	if m.fold {
		hay = foldASCII(hay)
	}
	for off := 0; off+len(m.needle) <= len(hay); {
		j := bytes.Index(hay[off:], m.needle)
		if j < 0 {
			break
		}
		start := off + j
		out = append(out, Fragment{Target: target, Start: start, End: start + len(m.needle), Confidence: 1})
		off = start + len(m.needle)
	}
	return out
}

// walk appends field fragments for keys and scalar values of v containing
// the needle. Object members are visited in sorted key order.
func (m *textMatcher) walk(v any, path string, out []Fragment) []Fragment {
	switch t := v.(type) {
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(t)) {
			child := path + jsonpath.FieldStep(k)
			out = m.field(k, child, jsonpath.ComponentKey, out)
			out = m.walk(t[k], child, out)
		}
	case []any:
		for i, e := range t {
			out = m.walk(e, path+jsonpath.IndexStep(i), out)
		}
	default:
		out = m.field(jsonpath.Render(t), path, jsonpath.ComponentValue, out)
	}
	return out
}

func (m *textMatcher) field(text, path string, c jsonpath.Component, out []Fragment) []Fragment {
	n := len(out)
	out = m.find([]byte(text), TargetField, out)
	conf := float64(len(m.needle)) / float64(len(text))
	for j := n; j < len(out); j++ {
		out[j].Path = path
		out[j].Component = c
		out[j].Display = text
		out[j].Confidence = conf
	}
	return out
}

// pathMatcher evaluates a parsed expression against each parsed record.
type pathMatcher struct {
	path      *jsonpath.Path
	matchCase bool
}

func (m *pathMatcher) match(src Source, i int) (Hit, bool) {
	v, err := src.Get(i)
	if err != nil {
		return Hit{}, false
	}
	matches := m.path.Evaluate(v, m.matchCase)
	if len(matches) == 0 {
		return Hit{}, false
	}
	frags := make([]Fragment, 0, len(matches))
	for _, mt := range matches {
		f := Fragment{
			Target:     TargetField,
			Path:       mt.Path,
			Component:  mt.Component,
			Display:    mt.Display,
			Confidence: 1,
		}
		if mt.Highlight != nil {
			f.Start, f.End = mt.Highlight.Start, mt.Highlight.End
		}
		frags = append(frags, f)
	}
	return Hit{Index: i, Fragments: frags}, true
}

// foldASCII returns a lower-cased copy of b. Non-ASCII bytes are unchanged.
func foldASCII(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}
