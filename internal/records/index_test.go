package records

import (
	"slices"
	"strings"
	"testing"
	"testing/iotest"

	jlerrors "github.com/maruel/jsonlens/internal/errors"
)

// spanText returns the substrings of data covered by spans.
func spanText(data string, spans []Span) []string {
	out := make([]string, 0, len(spans))
	for _, sp := range spans {
		out = append(out, data[sp.Start:sp.End])
	}
	return out
}

func TestIndexLines(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{"empty", "", []string{}},
		{"single no newline", `{"a":1}`, []string{`{"a":1}`}},
		{"trailing newline", "{\"a\":1}\n{\"a\":2}\n", []string{`{"a":1}`, `{"a":2}`}},
		{"crlf", "{\"a\":1}\r\n{\"a\":2}\r\n", []string{`{"a":1}`, `{"a":2}`}},
		{"crlf last line unterminated", "1\r\n2\r", []string{"1", "2"}},
		{"blank lines skipped", "\n1\n\n  \n\t\r\n2\n\n", []string{"1", "2"}},
		{"inner whitespace kept", "  1  \n", []string{"  1  "}},
		{"invalid line kept", "1\nnot json\n3\n", []string{"1", "not json", "3"}},
		{"lone cr line", "1\n\r\n2", []string{"1", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans, err := indexLines(strings.NewReader(tt.data), 0)
			if err != nil {
				t.Fatalf("indexLines() error: %v", err)
			}
			if got := spanText(tt.data, spans); !slices.Equal(got, tt.want) {
				t.Errorf("indexLines() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("line longer than buffer", func(t *testing.T) {
		long := `{"k":"` + strings.Repeat("x", 3*lineBufferSize) + `"}`
		data := "1\n" + long + "\r\n2"
		spans, err := indexLines(strings.NewReader(data), 0)
		if err != nil {
			t.Fatalf("indexLines() error: %v", err)
		}
		if got := spanText(data, spans); !slices.Equal(got, []string{"1", long, "2"}) {
			t.Errorf("indexLines() returned %d spans, lengths wrong", len(got))
		}
	})

	t.Run("one byte reads", func(t *testing.T) {
		data := "a\r\n\nb\n"
		spans, err := indexLines(iotest.OneByteReader(strings.NewReader(data)), 0)
		if err != nil {
			t.Fatalf("indexLines() error: %v", err)
		}
		if got := spanText(data, spans); !slices.Equal(got, []string{"a", "b"}) {
			t.Errorf("indexLines() = %q", got)
		}
	})

	t.Run("base offset", func(t *testing.T) {
		data := "\xEF\xBB\xBF{\"a\":1}\n{\"a\":2}\n"
		spans, err := indexLines(strings.NewReader(data[len(utf8BOM):]), int64(len(utf8BOM)))
		if err != nil {
			t.Fatalf("indexLines() error: %v", err)
		}
		want := []Span{{Start: 3, End: 10}, {Start: 11, End: 18}}
		if !slices.Equal(spans, want) {
			t.Errorf("indexLines() = %v, want %v", spans, want)
		}
		if got := spanText(data, spans); !slices.Equal(got, []string{`{"a":1}`, `{"a":2}`}) {
			t.Errorf("indexLines() = %q", got)
		}
	})

	t.Run("read error", func(t *testing.T) {
		if _, err := indexLines(iotest.ErrReader(iotest.ErrTimeout), 0); err == nil {
			t.Error("indexLines() expected error")
		}
	})
}

func TestIndexArray(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		tests := []struct {
			name string
			data string
			want []string
		}{
			{"empty array", "[]", []string{}},
			{"empty array with space", " [ \n ] \n", []string{}},
			{"scalars", "[1,2,3]", []string{"1", "2", "3"}},
			{"whitespace trimmed", "[ 1 ,\n\t\"a\" ,  null\n]", []string{"1", `"a"`, "null"}},
			{"nested", `[{"a":[1,2]},[3,[4]]]`, []string{`{"a":[1,2]}`, `[3,[4]]`}},
			{"comma in string", `["a,b","c"]`, []string{`"a,b"`, `"c"`}},
			{"bracket in string", `["]", "[{"]`, []string{`"]"`, `"[{"`}},
			{"escaped quote", `["a\"],b", 1]`, []string{`"a\"],b"`, "1"}},
			{"escaped backslash", `["a\\", 1]`, []string{`"a\\"`, "1"}},
			{"string with spaces", `[ "a b " ]`, []string{`"a b "`}},
			{"bom", "\xEF\xBB\xBF[1]", []string{"1"}},
			{"trailing whitespace", "[1]\n\n  ", []string{"1"}},
			{"invalid element kept", "[1, nope, 3]", []string{"1", "nope", "3"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				spans, err := indexArray([]byte(tt.data))
				if err != nil {
					t.Fatalf("indexArray() error: %v", err)
				}
				if got := spanText(tt.data, spans); !slices.Equal(got, tt.want) {
					t.Errorf("indexArray() = %q, want %q", got, tt.want)
				}
			})
		}
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name string
			data string
		}{
			{"not an array", `{"a":1}`},
			{"unclosed", "[1,2"},
			{"unclosed nested", "[[1,2]"},
			{"unterminated string", `["abc]`},
			{"trailing garbage", "[1] x"},
			{"second array", "[1][2]"},
			{"leading comma", "[,1]"},
			{"double comma", "[1,,2]"},
			{"trailing comma", "[1,]"},
			{"mismatched brackets", "[{]}"},
			{"stray brace", "[1}"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := indexArray([]byte(tt.data))
				if !jlerrors.Is(err, jlerrors.ErrInvalidJSONStructure) {
					t.Errorf("indexArray() error = %v, want %s", err, jlerrors.ErrInvalidJSONStructure)
				}
			})
		}
	})
}

func TestLexer(t *testing.T) {
	t.Run("states", func(t *testing.T) {
		var lx lexer
		steps := []struct {
			c    byte
			want lexState
		}{
			{'"', stateInString},
			{'\\', stateEscape},
			{'"', stateInString},
			{',', stateInString},
			{'"', stateOutside},
			{',', stateOutside},
		}
		for i, s := range steps {
			lx.next(s.c)
			if lx.state != s.want {
				t.Fatalf("step %d (%q): state = %v, want %v", i, s.c, lx.state, s.want)
			}
		}
	})

	t.Run("events", func(t *testing.T) {
		var lx lexer
		var got []lexEvent
		for _, c := range []byte(`{"a":[1,2]},"x,",3]`) {
			if ev := lx.next(c); ev != evNone {
				got = append(got, ev)
			}
		}
		want := []lexEvent{evSeparator, evSeparator, evEnd}
		if !slices.Equal(got, want) {
			t.Errorf("events = %v, want %v", got, want)
		}
		if lx.depth() != 0 {
			t.Errorf("depth() = %d, want 0", lx.depth())
		}
	})
}
