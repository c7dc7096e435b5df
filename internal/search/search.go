// Package search scans the records of a store for a substring or a JSONPath
// expression in parallel.
//
// # Overview
//
// [Start] partitions the record indices into contiguous chunks, scans each
// chunk on its own goroutine and delivers a single [Result] on the
// [Handle.Done] channel. Hits are always in ascending record order. Text
// searches read raw record bytes and never parse unless field fragments are
// requested; JSONPath searches parse each record once.
//
// A Handle can be polled without blocking and cancelled; cancellation is
// observed between records.
package search

import (
	"fmt"
	"time"

	"github.com/maruel/jsonlens/internal/jsonpath"
)

// Mode selects how Query.Text is interpreted.
type Mode uint8

const (
	// ModeText matches records whose raw bytes contain Text.
	ModeText Mode = iota
	// ModeJSONPath matches records where the expression in Text selects at
	// least one node.
	ModeJSONPath
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeJSONPath:
		return "jsonpath"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Query is what to look for.
type Query struct {
	Text string
	// MatchCase disables ASCII case folding.
	MatchCase bool
	Mode      Mode
}

// Source is the read surface of a record store.
//
// Implementations must be safe for concurrent calls on distinct indices.
type Source interface {
	Len() int
	RawBytes(i int) ([]byte, error)
	Get(i int) (any, error)
}

// Target is what a Fragment's range refers to.
type Target uint8

const (
	// TargetRaw ranges are byte offsets into the raw record.
	TargetRaw Target = iota
	// TargetField ranges are byte offsets into Fragment.Display.
	TargetField
)

func (t Target) String() string {
	switch t {
	case TargetRaw:
		return "raw"
	case TargetField:
		return "field"
	default:
		return fmt.Sprintf("Target(%d)", uint8(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Fragment locates one match inside a record.
type Fragment struct {
	Target Target `json:"target"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	// Path, Component and Display are set for TargetField.
	Path      string             `json:"path,omitempty"`
	Component jsonpath.Component `json:"component"`
	Display   string             `json:"display,omitempty"`
	// Confidence is the share of the matched text covered by the needle.
	Confidence float64 `json:"confidence"`
}

// Hit is one matching record.
type Hit struct {
	Index     int        `json:"index"`
	Fragments []Fragment `json:"fragments,omitempty"`
}

// Options tunes a search. The zero value is valid.
type Options struct {
	// Workers is the number of scanning goroutines; runtime.NumCPU() when
	// zero or negative.
	Workers int
	// Fields adds field-level fragments to text hits. It parses every
	// matching record.
	Fields bool
	// ProgressInterval is the minimum delay between two progress log lines.
	ProgressInterval time.Duration
}
