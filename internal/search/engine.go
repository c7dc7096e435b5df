package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	"github.com/maruel/jsonlens/internal/jsonpath"
	"github.com/maruel/ksid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultProgressInterval is used when Options.ProgressInterval is zero.
const DefaultProgressInterval = 2 * time.Second

var errCancelled = errors.New("search cancelled")

// Result is the outcome of one search.
type Result struct {
	ID    ksid.ID `json:"id"`
	Query Query   `json:"-"`
	// Hits is sorted by ascending Index without duplicates. It is nil when
	// Cancelled is set.
	Hits      []Hit         `json:"hits"`
	Scanned   int           `json:"scanned"`
	Cancelled bool          `json:"cancelled,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Indices returns the record index of every hit.
func (r *Result) Indices() []int {
	out := make([]int, len(r.Hits))
	for i, h := range r.Hits {
		out[i] = h.Index
	}
	return out
}

// Handle tracks one in-flight search.
type Handle struct {
	id        ksid.ID
	query     Query
	done      chan Result
	cancel    context.CancelFunc
	cancelled atomic.Bool
	scanned   atomic.Int64
	total     int
	progress  rate.Sometimes
}

// ID identifies the search in logs.
func (h *Handle) ID() ksid.ID {
	return h.id
}

// Query returns the query being run.
func (h *Handle) Query() Query {
	return h.query
}

// Done returns the channel the result is delivered on, exactly once.
func (h *Handle) Done() <-chan Result {
	return h.done
}

// Poll returns the result if the search has finished, without blocking.
//
// The result is handed out once; later calls report false.
func (h *Handle) Poll() (Result, bool) {
	select {
	case r := <-h.done:
		return r, true
	default:
		return Result{}, false
	}
}

// Cancel asks the workers to stop before their next record. The result is
// still delivered, with Cancelled set.
func (h *Handle) Cancel() {
	h.cancelled.Store(true)
	h.cancel()
}

// Progress returns the number of records scanned so far and the total.
func (h *Handle) Progress() (scanned, total int) {
	return int(h.scanned.Load()), h.total
}

// Start begins a search over src on background goroutines.
//
// An empty query text or a nil src completes immediately with no hits and
// no reads. A JSONPath query that fails to parse returns the
// *jsonpath.ParseError and no handle.
func Start(ctx context.Context, src Source, q Query, opts Options) (*Handle, error) {
	var m matcher
	if q.Text != "" && src != nil {
		switch q.Mode {
		case ModeText:
			m = newTextMatcher(q, opts)
		case ModeJSONPath:
			p, err := jsonpath.Parse(q.Text)
			if err != nil {
				return nil, err
			}
			m = &pathMatcher{path: p, matchCase: q.MatchCase}
		default:
			return nil, fmt.Errorf("unknown search mode %s", q.Mode)
		}
	}
	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		id:       ksid.NewID(),
		query:    q,
		done:     make(chan Result, 1),
		cancel:   cancel,
		progress: rate.Sometimes{Interval: interval},
	}
	if m == nil {
		cancel()
		h.done <- Result{ID: h.id, Query: q}
		return h, nil
	}
	h.total = src.Len()
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	go func() {
		defer cancel()
		h.done <- h.run(ctx, src, m, workers)
	}()
	return h, nil
}

// Run is the synchronous form of Start.
func Run(ctx context.Context, src Source, q Query, opts Options) (Result, error) {
	h, err := Start(ctx, src, q, opts)
	if err != nil {
		return Result{}, err
	}
	return <-h.Done(), nil
}

func (h *Handle) run(ctx context.Context, src Source, m matcher, workers int) Result {
	start := time.Now()
	slog.DebugContext(ctx, "Search started", "search", h.id.String(), "mode", h.query.Mode, "records", h.total, "workers", workers)
	hits, err := h.scan(ctx, src, m, workers)
	res := Result{ID: h.id, Query: h.query, Hits: hits, Scanned: int(h.scanned.Load()), Elapsed: time.Since(start)}
	if err != nil {
		res.Hits = nil
		res.Cancelled = true
	}
	slog.DebugContext(ctx, "Search finished", "search", h.id.String(), "hits", len(res.Hits), "scanned", res.Scanned, "cancelled", res.Cancelled, "elapsed", res.Elapsed.Round(time.Millisecond))
	return res
}

// scan splits [0, total) into one contiguous chunk per worker and merges the
// per-chunk hits in index order.
func (h *Handle) scan(ctx context.Context, src Source, m matcher, workers int) ([]Hit, error) {
	if h.total == 0 {
		return nil, nil
	}
	workers = min(workers, h.total)
	chunk := (h.total + workers - 1) / workers
	parts := make([][]Hit, workers)
	eg, ctx := errgroup.WithContext(ctx)
	for w := range workers {
		lo, hi := w*chunk, min((w+1)*chunk, h.total)
		if lo >= hi {
			continue
		}
		eg.Go(func() error {
			for i := lo; i < hi; i++ {
				if h.cancelled.Load() {
					return errCancelled
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				if hit, ok := m.match(src, i); ok {
					parts[w] = append(parts[w], hit)
				}
				n := h.scanned.Add(1)
				h.progress.Do(func() {
					slog.DebugContext(ctx, "Search progress", "search", h.id.String(), "scanned", n, "total", h.total)
				})
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	hits := slices.Concat(parts...)
	slices.SortFunc(hits, func(a, b Hit) int {
		return a.Index - b.Index
	})
	return hits, nil
}
