// Detects the record layout of a file from a bounded prefix.

package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	jlerrors "github.com/maruel/jsonlens/internal/errors"
)

// Format is the top-level layout of a record file.
type Format uint8

const (
	// FormatUnknown is the zero value; no file is ever opened with it.
	FormatUnknown Format = iota
	// FormatNDJSON is one JSON value per line.
	FormatNDJSON
	// FormatJSONArray is a single top-level JSON array.
	FormatJSONArray
	// FormatJSONObject is a single top-level JSON value that is not an array.
	FormatJSONObject
)

func (f Format) String() string {
	switch f {
	case FormatNDJSON:
		return "ndjson"
	case FormatJSONArray:
		return "json-array"
	case FormatJSONObject:
		return "json-object"
	default:
		return "unknown"
	}
}

const (
	// DefaultSniffBytes is the size of the prefix inspected by [Sniff].
	DefaultSniffBytes = 8 << 10
	// DefaultSniffLines is the number of non-empty lines tried as NDJSON.
	DefaultSniffLines = 8

	// minNDJSONLines is the number of lines that must parse for NDJSON.
	minNDJSONLines = 2
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures [Open] and [Sniff]. The zero value uses defaults.
type Options struct {
	// SniffBytes is the prefix size read to detect the format.
	SniffBytes int
	// SniffLines is the maximum number of lines tried as standalone JSON.
	SniffLines int
}

func (o *Options) sniffBytes() int {
	if o.SniffBytes <= 0 {
		return DefaultSniffBytes
	}
	return o.SniffBytes
}

func (o *Options) sniffLines() int {
	if o.SniffLines <= 0 {
		return DefaultSniffLines
	}
	return o.SniffLines
}

// Sniff classifies the file at path by reading a bounded prefix.
//
// It keeps no state; [Open] calls it before indexing.
func Sniff(path string, opts Options) (Format, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is provided by the caller
	if err != nil {
		return FormatUnknown, openError(path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return FormatUnknown, jlerrors.FileRead(path, err)
	}

	buf := make([]byte, min(int64(opts.sniffBytes()), info.Size()))
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return FormatUnknown, jlerrors.FileRead(path, err)
	}
	buf = buf[:n]

	format, reason := classify(buf, int64(n) < info.Size(), opts.sniffLines())
	if format == FormatUnknown {
		return FormatUnknown, jlerrors.InvalidFileType(path, reason)
	}
	return format, nil
}

// classify inspects prefix and returns the detected format, or
// FormatUnknown with a reason.
//
// truncated reports that the file continues past prefix, in which case the
// final partial line is not tried as JSON.
func classify(prefix []byte, truncated bool, maxLines int) (Format, string) {
	prefix = bytes.TrimPrefix(prefix, utf8BOM)
	body := bytes.TrimLeft(prefix, jsonSpace)
	if len(body) == 0 {
		return FormatUnknown, "file is empty"
	}
	if body[0] == '[' {
		return FormatJSONArray, ""
	}

	lines := bytes.Split(body, []byte{'\n'})
	if truncated && len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}
	tried, valid := 0, 0
	for _, line := range lines {
		if tried == maxLines {
			break
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		tried++
		if json.Valid(line) {
			valid++
		}
	}
	if valid >= minNDJSONLines {
		return FormatNDJSON, ""
	}
	if body[0] == '{' {
		return FormatJSONObject, ""
	}
	return FormatUnknown, fmt.Sprintf("unrecognized content starting with %q", body[0])
}

// jsonSpace is the set of insignificant whitespace bytes in JSON.
const jsonSpace = " \t\r\n"

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func openError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return jlerrors.FileNotFound(path, err)
	}
	return jlerrors.FileRead(path, err)
}
