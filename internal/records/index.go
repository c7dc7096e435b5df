// Builds span tables for NDJSON and JSON array files.

package records

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	jlerrors "github.com/maruel/jsonlens/internal/errors"
)

// Span is the half-open byte range [Start, End) of one record in the file.
type Span struct {
	Start int64
	End   int64
}

// Len returns the number of bytes in the span.
func (s Span) Len() int64 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("[%d, %d)", s.Start, s.End)
}

// lineBufferSize is the read buffer used when indexing NDJSON. Lines longer
// than this are handled in several chunks.
const lineBufferSize = 64 << 10

// indexLines returns one span per non-blank line of r. base is the file
// offset of the first byte of r.
//
// Spans exclude the terminating '\n' and a '\r' immediately before it. Lines
// made only of JSON whitespace are skipped. The reader is consumed in a
// single streaming pass.
func indexLines(r io.Reader, base int64) ([]Span, error) {
	br := bufio.NewReaderSize(r, lineBufferSize)
	var (
		spans []Span
		start = base
		pos   = base
		blank = true
		// last is the final byte of the current line seen so far, excluding '\n'.
		last byte
	)
	for {
		chunk, err := br.ReadSlice('\n')
		pos += int64(len(chunk))
		body := chunk
		terminated := len(body) > 0 && body[len(body)-1] == '\n'
		if terminated {
			body = body[:len(body)-1]
		}
		if len(body) > 0 {
			last = body[len(body)-1]
			if blank && len(bytes.TrimLeft(body, jsonSpace)) != 0 {
				blank = false
			}
		}
		if terminated || (err != nil && !errors.Is(err, bufio.ErrBufferFull)) {
			end := pos
			if terminated {
				end--
			}
			if end > start && last == '\r' {
				end--
			}
			if !blank {
				spans = append(spans, Span{Start: start, End: end})
			}
			start, blank, last = pos, true, 0
		}
		if err != nil {
			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return spans, nil
			}
			return nil, err
		}
	}
}

// indexArray returns one span per element of the top-level array in data.
//
// Spans are trimmed of surrounding whitespace and exclude separators. Element
// contents are not validated beyond bracket and string balance; a malformed
// element fails only when it is parsed.
func indexArray(data []byte) ([]Span, error) {
	i := 0
	if bytes.HasPrefix(data, utf8BOM) {
		i = len(utf8BOM)
	}
	for i < len(data) && isSpace(data[i]) {
		i++
	}
	if i == len(data) || data[i] != '[' {
		return nil, jlerrors.InvalidJSONStructure(int64(i), "expected '['")
	}
	i++

	var (
		lx     lexer
		spans  []Span
		start  = -1
		end    = -1
		closed = false
	)
	for ; i < len(data); i++ {
		c := data[i]
		if closed {
			if !isSpace(c) {
				return nil, jlerrors.InvalidJSONStructure(int64(i), "unexpected data after closing ']'")
			}
			continue
		}
		switch lx.next(c) {
		case evSeparator:
			if start < 0 {
				return nil, jlerrors.InvalidJSONStructure(int64(i), "empty element")
			}
			spans = append(spans, Span{Start: int64(start), End: int64(end)})
			start = -1
			continue
		case evEnd:
			if start >= 0 {
				spans = append(spans, Span{Start: int64(start), End: int64(end)})
			} else if len(spans) > 0 {
				return nil, jlerrors.InvalidJSONStructure(int64(i), "trailing ',' before ']'")
			}
			closed = true
			continue
		case evMismatch:
			return nil, jlerrors.InvalidJSONStructure(int64(i), fmt.Sprintf("unexpected %q", c))
		}
		if !isSpace(c) {
			if start < 0 {
				start = i
			}
			end = i + 1
		}
	}
	if !closed {
		reason := "missing closing ']'"
		if lx.state != stateOutside {
			reason = "unterminated string"
		} else if lx.depth() > 0 {
			reason = fmt.Sprintf("%d unclosed nested containers", lx.depth())
		}
		return nil, jlerrors.InvalidJSONStructure(int64(len(data)), reason)
	}
	return spans, nil
}
