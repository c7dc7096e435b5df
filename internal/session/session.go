// Package session holds the state a viewer keeps for one open record file.
//
// A Session owns the record store, a cache of parsed records sized from the
// configuration, the most recent search and a file watcher. Opening another
// file replaces all of them at once so that cached values never outlive the
// store they came from.
//
// A Session is meant to be driven from a single goroutine, typically a UI
// loop that calls [Session.Poll] on every tick.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/maruel/jsonlens/internal/config"
	"github.com/maruel/jsonlens/internal/lru"
	"github.com/maruel/jsonlens/internal/records"
	"github.com/maruel/jsonlens/internal/search"
)

// ErrNoFile is returned by record accessors when no file is open.
var ErrNoFile = errors.New("no file open")

// Session is the state for one open file.
type Session struct {
	cfg *config.Config

	store  *records.Store
	cache  *lru.Cache[int, any]
	search *search.Handle
	// stale is replaced on every Open; the watcher of a previous file only
	// ever sees its own flag.
	stale     *atomic.Bool
	stopWatch context.CancelFunc
}

// New returns a Session with no file open.
func New(cfg *config.Config) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Session{cfg: cfg, stale: &atomic.Bool{}}
}

// Open indexes path and makes it the current file.
//
// On failure the previously open file, if any, stays current.
func (s *Session) Open(ctx context.Context, path string) error {
	store, err := records.Open(path, s.cfg.RecordOptions())
	if err != nil {
		return err
	}
	if err := s.closeFile(); err != nil {
		slog.WarnContext(ctx, "Failed to close previous file", "err", err)
	}
	s.store = store
	s.cache = lru.New[int, any](s.cfg.CacheCapacity)
	s.stale = &atomic.Bool{}
	wctx, cancel := context.WithCancel(ctx)
	s.stopWatch = cancel
	if err := watchFile(wctx, path, s.stale); err != nil {
		slog.WarnContext(ctx, "Cannot watch file for changes", "path", path, "err", err)
	}
	slog.InfoContext(ctx, "Opened file", "path", path, "format", store.Format(), "records", store.Len())
	return nil
}

// Store returns the current store, or nil.
func (s *Session) Store() *records.Store {
	return s.store
}

// Len returns the number of records in the current file, 0 when none is open.
func (s *Session) Len() int {
	if s.store == nil {
		return 0
	}
	return s.store.Len()
}

// Record returns the parsed record i, from the cache when possible.
func (s *Session) Record(i int) (any, error) {
	if s.store == nil {
		return nil, ErrNoFile
	}
	if v, ok := s.cache.Get(i); ok {
		return v, nil
	}
	v, err := s.store.Get(i)
	if err != nil {
		return nil, err
	}
	s.cache.Put(i, v)
	return v, nil
}

// RawBytes returns the exact bytes of record i.
func (s *Session) RawBytes(i int) ([]byte, error) {
	if s.store == nil {
		return nil, ErrNoFile
	}
	return s.store.RawBytes(i)
}

// CacheStats reports the activity of the current file's cache.
func (s *Session) CacheStats() lru.Stats {
	if s.cache == nil {
		return lru.Stats{}
	}
	return s.cache.Stats()
}

// Search starts q over the current file and makes it the current search.
// A previous search still running is cancelled.
//
// With no file open, the search completes immediately with no hits.
func (s *Session) Search(ctx context.Context, q search.Query, fields bool) (*search.Handle, error) {
	var src search.Source
	if s.store != nil {
		src = s.store
	}
	h, err := search.Start(ctx, src, q, search.Options{
		Workers:          s.cfg.Workers,
		Fields:           fields,
		ProgressInterval: s.cfg.ProgressInterval,
	})
	if err != nil {
		return nil, err
	}
	s.cancelSearch()
	s.search = h
	return h, nil
}

// Poll returns the result of the current search once it is available.
func (s *Session) Poll() (search.Result, bool) {
	if s.search == nil {
		return search.Result{}, false
	}
	r, ok := s.search.Poll()
	if ok {
		s.search = nil
	}
	return r, ok
}

// Stale reports whether the current file was modified since it was opened.
// Records are not re-indexed; reopen the file to pick up changes.
func (s *Session) Stale() bool {
	return s.stale.Load()
}

// Close cancels the current search, stops watching and closes the file.
func (s *Session) Close() error {
	return s.closeFile()
}

func (s *Session) cancelSearch() {
	if s.search != nil {
		s.search.Cancel()
		s.search = nil
	}
}

func (s *Session) closeFile() error {
	s.cancelSearch()
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
	s.cache = nil
	if s.store == nil {
		return nil
	}
	store := s.store
	s.store = nil
	if err := store.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", store.Path(), err)
	}
	return nil
}

// watchFile sets stale when path is written, removed or renamed. It stops at
// the first such event or when ctx is done.
func watchFile(ctx context.Context, path string, stale *atomic.Bool) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					slog.InfoContext(ctx, "File modified, records may be stale", "path", path, "op", event.Op.String())
					stale.Store(true)
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching file", "path", path, "err", err)
			}
		}
	}()
	return nil
}
