package session

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/maruel/jsonlens/internal/config"
	jlerrors "github.com/maruel/jsonlens/internal/errors"
	"github.com/maruel/jsonlens/internal/lru"
	"github.com/maruel/jsonlens/internal/search"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

// waitResult polls s until the current search completes.
func waitResult(t *testing.T, s *Session) search.Result {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if r, ok := s.Poll(); ok {
			return r
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("search did not complete")
	return search.Result{}
}

func TestSession(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		s := New(nil)
		if s.Len() != 0 {
			t.Errorf("Len() = %d, want 0", s.Len())
		}
		if _, err := s.Record(0); !errors.Is(err, ErrNoFile) {
			t.Errorf("Record() error = %v, want ErrNoFile", err)
		}
		if _, err := s.RawBytes(0); !errors.Is(err, ErrNoFile) {
			t.Errorf("RawBytes() error = %v, want ErrNoFile", err)
		}
		if _, err := s.Search(t.Context(), search.Query{Text: "x"}, false); err != nil {
			t.Fatal(err)
		}
		if r := waitResult(t, s); len(r.Hits) != 0 {
			t.Errorf("Hits = %v, want none", r.Hits)
		}
		if err := s.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	})

	t.Run("record uses cache", func(t *testing.T) {
		dir := t.TempDir()
		cfg := config.Default()
		cfg.CacheCapacity = 2
		s := New(cfg)
		t.Cleanup(func() { _ = s.Close() })
		if err := s.Open(t.Context(), writeFile(t, dir, "a.ndjson", "{\"a\":1}\n{\"a\":2}\n{\"a\":3}\n")); err != nil {
			t.Fatal(err)
		}
		for _, i := range []int{0, 0, 1, 2, 0} {
			if _, err := s.Record(i); err != nil {
				t.Fatalf("Record(%d) = %v", i, err)
			}
		}
		want := lru.Stats{Hits: 1, Misses: 4, Evictions: 2}
		if got := s.CacheStats(); got != want {
			t.Errorf("CacheStats() = %+v, want %+v", got, want)
		}
		if _, err := s.Record(9); !jlerrors.Is(err, jlerrors.ErrElementOutOfBounds) {
			t.Errorf("Record(9) error = %v", err)
		}
		raw, err := s.RawBytes(1)
		if err != nil || string(raw) != `{"a":2}` {
			t.Errorf("RawBytes(1) = %q, %v", raw, err)
		}
	})

	t.Run("reopen replaces store and cache", func(t *testing.T) {
		dir := t.TempDir()
		s := New(config.Default())
		t.Cleanup(func() { _ = s.Close() })
		first := writeFile(t, dir, "a.ndjson", "{\"a\":1}\n{\"a\":2}\n")
		second := writeFile(t, dir, "b.json", `[{"b":1}]`)
		if err := s.Open(t.Context(), first); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Record(0); err != nil {
			t.Fatal(err)
		}
		old := s.Store()
		if err := s.Open(t.Context(), second); err != nil {
			t.Fatal(err)
		}
		if s.Len() != 1 || s.Store().Path() != second {
			t.Fatalf("after reopen Len() = %d, Path() = %s", s.Len(), s.Store().Path())
		}
		if s.CacheStats() != (lru.Stats{}) {
			t.Errorf("CacheStats() = %+v, want fresh cache", s.CacheStats())
		}
		got, err := s.Record(0)
		if err != nil {
			t.Fatal(err)
		}
		if want := map[string]any{"b": 1.0}; !reflect.DeepEqual(got, want) {
			t.Errorf("Record(0) = %v, want %v", got, want)
		}
		if _, err := old.RawBytes(0); !jlerrors.Is(err, jlerrors.ErrFileRead) {
			t.Errorf("previous store still readable: %v", err)
		}
	})

	t.Run("failed open keeps current file", func(t *testing.T) {
		dir := t.TempDir()
		s := New(config.Default())
		t.Cleanup(func() { _ = s.Close() })
		good := writeFile(t, dir, "a.ndjson", "1\n2\n")
		if err := s.Open(t.Context(), good); err != nil {
			t.Fatal(err)
		}
		err := s.Open(t.Context(), writeFile(t, dir, "bad.json", "[1,"))
		if !jlerrors.Is(err, jlerrors.ErrInvalidJSONStructure) {
			t.Fatalf("Open() error = %v", err)
		}
		if s.Store().Path() != good || s.Len() != 2 {
			t.Errorf("current file changed to %s", s.Store().Path())
		}
	})

	t.Run("search", func(t *testing.T) {
		dir := t.TempDir()
		s := New(config.Default())
		t.Cleanup(func() { _ = s.Close() })
		if err := s.Open(t.Context(), writeFile(t, dir, "a.ndjson", "{\"id\":1,\"name\":\"Record 1\"}\n{\"id\":2,\"name\":\"MATCH\"}\n")); err != nil {
			t.Fatal(err)
		}
		if _, ok := s.Poll(); ok {
			t.Error("Poll() = true before any search")
		}
		first, err := s.Search(t.Context(), search.Query{Text: "record"}, false)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Search(t.Context(), search.Query{Text: "match"}, true); err != nil {
			t.Fatal(err)
		}
		r := waitResult(t, s)
		if got := r.Indices(); !slices.Equal(got, []int{1}) {
			t.Errorf("Indices() = %v, want [1]", got)
		}
		// The replaced search was cancelled or had already finished.
		select {
		case <-first.Done():
		case <-time.After(10 * time.Second):
			t.Error("replaced search never completed")
		}
		if _, err := s.Search(t.Context(), search.Query{Text: "$[", Mode: search.ModeJSONPath}, false); err == nil {
			t.Error("Search() expected parse error")
		}
	})

	t.Run("stale on modification", func(t *testing.T) {
		dir := t.TempDir()
		s := New(config.Default())
		t.Cleanup(func() { _ = s.Close() })
		path := writeFile(t, dir, "a.ndjson", "1\n2\n")
		if err := s.Open(t.Context(), path); err != nil {
			t.Fatal(err)
		}
		if s.Stale() {
			t.Fatal("Stale() = true right after Open")
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.WriteString("3\n"); err != nil {
			t.Fatal(err)
		}
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}
		deadline := time.Now().Add(10 * time.Second)
		for !s.Stale() {
			if time.Now().After(deadline) {
				t.Fatal("Stale() never became true")
			}
			time.Sleep(5 * time.Millisecond)
		}
		if s.Len() != 2 {
			t.Errorf("Len() = %d, want 2 (no re-index)", s.Len())
		}
		if err := s.Open(t.Context(), path); err != nil {
			t.Fatal(err)
		}
		if s.Stale() || s.Len() != 3 {
			t.Errorf("after reopen Stale() = %v, Len() = %d", s.Stale(), s.Len())
		}
	})
}
