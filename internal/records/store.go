// Implements the lazy random-access record store.

package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"os"
	"sync"
	"time"

	jlerrors "github.com/maruel/jsonlens/internal/errors"
)

// Store gives random access to the records of one file.
//
// The file handle stays open for the lifetime of the store. Reads never use
// the handle's cursor, so concurrent Get and RawBytes calls are safe.
type Store struct {
	path   string
	format Format
	size   int64
	file   *os.File

	// spans is set for FormatNDJSON and FormatJSONArray.
	spans []Span
	// single and value are set for FormatJSONObject.
	single Span
	value  func() (any, error)
}

// Open sniffs, opens and indexes the file at path.
//
// On success, the returned Store owns an open file handle that must be
// released with [Store.Close].
func Open(path string, opts Options) (*Store, error) {
	start := time.Now()
	format, err := Sniff(path, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // G304: path is provided by the caller
	if err != nil {
		return nil, openError(path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, jlerrors.FileRead(path, err)
	}
	s := &Store{path: path, format: format, size: info.Size(), file: f}
	if err := s.index(); err != nil {
		_ = f.Close()
		return nil, err
	}
	slog.Debug("Indexed records", "path", path, "format", format, "records", s.Len(), "bytes", s.size, "elapsed", time.Since(start).Round(time.Millisecond))
	return s, nil
}

func (s *Store) index() error {
	var head [3]byte
	n, err := s.file.ReadAt(head[:], 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return jlerrors.FileRead(s.path, err)
	}
	// body is the offset of the first byte after an optional UTF-8 BOM.
	var body int64
	if bytes.Equal(head[:n], utf8BOM) {
		body = int64(len(utf8BOM))
	}
	switch s.format {
	case FormatNDJSON:
		spans, err := indexLines(io.NewSectionReader(s.file, body, s.size-body), body)
		if err != nil {
			return jlerrors.FileRead(s.path, err)
		}
		s.spans = spans
	case FormatJSONArray:
		data := make([]byte, s.size)
		if _, err := io.ReadFull(io.NewSectionReader(s.file, 0, s.size), data); err != nil {
			return jlerrors.FileRead(s.path, err)
		}
		spans, err := indexArray(data)
		if err != nil {
			return err
		}
		s.spans = spans
	case FormatJSONObject:
		sp, err := s.trimSpace(Span{Start: body, End: s.size})
		if err != nil {
			return err
		}
		s.single = sp
		s.value = sync.OnceValues(func() (any, error) {
			return s.parse(0, s.single)
		})
	default:
		return jlerrors.InvalidFileType(s.path, "unknown format")
	}
	return nil
}

// trimBlock is the read size used when trimming whitespace around a span.
const trimBlock = 4 << 10

// trimSpace shrinks sp past leading and trailing JSON whitespace without
// reading the bytes in between.
func (s *Store) trimSpace(sp Span) (Span, error) {
	buf := make([]byte, trimBlock)
	for sp.Start < sp.End {
		b := buf[:min(sp.End-sp.Start, trimBlock)]
		if _, err := s.file.ReadAt(b, sp.Start); err != nil && !errors.Is(err, io.EOF) {
			return Span{}, jlerrors.FileRead(s.path, err)
		}
		i := 0
		for i < len(b) && isSpace(b[i]) {
			i++
		}
		sp.Start += int64(i)
		if i < len(b) {
			break
		}
	}
	for sp.Start < sp.End {
		lo := max(sp.End-trimBlock, sp.Start)
		b := buf[:sp.End-lo]
		if _, err := s.file.ReadAt(b, lo); err != nil && !errors.Is(err, io.EOF) {
			return Span{}, jlerrors.FileRead(s.path, err)
		}
		i := len(b)
		for i > 0 && isSpace(b[i-1]) {
			i--
		}
		sp.End = lo + int64(i)
		if i > 0 {
			break
		}
	}
	return sp, nil
}

// Path returns the path the store was opened from.
func (s *Store) Path() string {
	return s.path
}

// Format returns the detected format.
func (s *Store) Format() Format {
	return s.format
}

// Size returns the file size in bytes at open time.
func (s *Store) Size() int64 {
	return s.size
}

// Len returns the number of records.
func (s *Store) Len() int {
	if s.format == FormatJSONObject {
		return 1
	}
	return len(s.spans)
}

// Span returns the byte range of record i.
func (s *Store) Span(i int) (Span, error) {
	if i < 0 || i >= s.Len() {
		return Span{}, jlerrors.OutOfBounds(i, s.Len())
	}
	if s.format == FormatJSONObject {
		return s.single, nil
	}
	return s.spans[i], nil
}

// Spans iterates over the record spans in file order.
func (s *Store) Spans() iter.Seq2[int, Span] {
	return func(yield func(int, Span) bool) {
		if s.format == FormatJSONObject {
			yield(0, s.single)
			return
		}
		for i, sp := range s.spans {
			if !yield(i, sp) {
				return
			}
		}
	}
}

// RawBytes returns the exact bytes of record i.
func (s *Store) RawBytes(i int) ([]byte, error) {
	sp, err := s.Span(i)
	if err != nil {
		return nil, err
	}
	return s.read(sp)
}

// Get parses and returns record i.
//
// Objects decode to map[string]any, arrays to []any, numbers to float64. A
// record that fails to parse returns an error with code
// [jlerrors.ErrInvalidRecord]; other records are unaffected.
func (s *Store) Get(i int) (any, error) {
	sp, err := s.Span(i)
	if err != nil {
		return nil, err
	}
	if s.format == FormatJSONObject {
		return s.value()
	}
	return s.parse(i, sp)
}

// Close releases the file handle. Subsequent reads fail.
func (s *Store) Close() error {
	if err := s.file.Close(); err != nil {
		return jlerrors.FileRead(s.path, err)
	}
	return nil
}

func (s *Store) parse(i int, sp Span) (any, error) {
	raw, err := s.read(sp)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, jlerrors.InvalidRecord(i, err)
	}
	return v, nil
}

func (s *Store) read(sp Span) ([]byte, error) {
	buf := make([]byte, sp.Len())
	n, err := s.file.ReadAt(buf, sp.Start)
	if err != nil && (!errors.Is(err, io.EOF) || n != len(buf)) {
		return nil, jlerrors.FileRead(s.path, err)
	}
	return buf, nil
}
