// Package records provides random access to the top-level records of large
// JSON files without parsing them up front.
//
// # Overview
//
// The package centers around [Store], which owns an open file and an
// immutable table of byte spans, one per top-level record. [Open] sniffs the
// file format, builds the span table in a single pass and returns a store
// whose [Store.Get] parses one record on demand and whose [Store.RawBytes]
// returns its exact bytes.
//
// # Formats
//
//   - [FormatNDJSON]: one JSON value per line. Indexed with a streaming
//     pass; the file is never fully buffered. Blank lines are skipped.
//   - [FormatJSONArray]: a single top-level array. The file is read once and
//     scanned by a small lexer that tracks strings, escapes and nesting to
//     find element boundaries.
//   - [FormatJSONObject]: a single JSON value. The whole file is one record,
//     parsed on first access and memoized.
//
// # Concurrency
//
// All reads are addressed by absolute offset with [os.File.ReadAt], and the
// span table is never mutated after [Open] returns. A Store is therefore
// safe for concurrent use by multiple goroutines without locking.
package records
