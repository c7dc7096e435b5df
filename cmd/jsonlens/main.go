// Package main is the entry point for the jsonlens command line tool.
//
// jsonlens opens large NDJSON, JSON array or single JSON files without
// parsing them up front, prints individual records by index and searches
// records by substring or JSONPath expression in parallel. Tunables are read
// from an optional YAML configuration file; flags override it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/maruel/jsonlens/internal/config"
	"github.com/maruel/jsonlens/internal/search"
	"github.com/maruel/jsonlens/internal/session"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "jsonlens: %v\n", err)
		os.Exit(1)
	}
}

const usage = `usage: jsonlens [-config f.yaml] [-log-level level] <command> [flags] <args>

commands:
  info <file>                                   print format and record count
  get -i N <file>                               print record N as indented JSON
  raw -i N <file>                               print the exact bytes of record N
  search [-case] [-fields] [-workers N] [-json] <text> <file>
                                                substring search across records
  path [-case] [-json] <expr> <file>            JSONPath search across records
  config                                        print the effective configuration
  config-schema                                 print the configuration JSON Schema
`

func mainImpl() error {
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return errors.New("missing command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	slog.SetDefault(newLogger(os.Stderr, ll))

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	// The flag wins over the file only when given explicitly.
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "log-level" {
			cfg.LogLevel = *logLevel
		}
	})
	lvl, err := cfg.Level()
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	ll.Set(lvl)

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "info":
		return cmdInfo(ctx, cfg, args)
	case "get":
		return cmdGet(ctx, cfg, args, false)
	case "raw":
		return cmdGet(ctx, cfg, args, true)
	case "search":
		return cmdSearch(ctx, cfg, args, search.ModeText)
	case "path":
		return cmdSearch(ctx, cfg, args, search.ModeJSONPath)
	case "config":
		return cfg.Encode(os.Stdout)
	case "config-schema":
		data, err := config.Schema()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// newLogger returns a tint logger writing to w that drops empty attributes.
func newLogger(w *os.File, level slog.Leveler) *slog.Logger {
	return slog.New(tint.NewHandler(colorable.NewColorable(w), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(w.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			val := a.Value.Any()
			skip := false
			switch t := val.(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case int64:
				skip = t == 0
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func openSession(ctx context.Context, cfg *config.Config, path string) (*session.Session, error) {
	s := session.New(cfg)
	if err := s.Open(ctx, path); err != nil {
		return nil, err
	}
	return s, nil
}

func cmdInfo(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("info: expected exactly one file")
	}
	s, err := openSession(ctx, cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	st := s.Store()
	fmt.Printf("path:    %s\nformat:  %s\nrecords: %d\nbytes:   %d\n", st.Path(), st.Format(), st.Len(), st.Size())
	return nil
}

func cmdGet(ctx context.Context, cfg *config.Config, args []string, raw bool) error {
	name := "get"
	if raw {
		name = "raw"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	index := fs.Int("i", 0, "Record index")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%s: expected exactly one file", name)
	}
	s, err := openSession(ctx, cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	if raw {
		b, err := s.RawBytes(*index)
		if err != nil {
			return err
		}
		_, err = fmt.Printf("%s\n", b)
		return err
	}
	v, err := s.Record(*index)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, v)
}

func cmdSearch(ctx context.Context, cfg *config.Config, args []string, mode search.Mode) error {
	name := "search"
	if mode == search.ModeJSONPath {
		name = "path"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	matchCase := fs.Bool("case", false, "Match case (ASCII only)")
	fields := fs.Bool("fields", false, "Report matching fields, parses every hit")
	workers := fs.Int("workers", cfg.Workers, "Number of search workers, 0 for one per CPU")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%s: expected a query and a file", name)
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "workers" {
			cfg.Workers = *workers
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
	s, err := openSession(ctx, cfg, fs.Arg(1))
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	q := search.Query{Text: fs.Arg(0), MatchCase: *matchCase, Mode: mode}
	h, err := s.Search(ctx, q, *fields && mode == search.ModeText)
	if err != nil {
		return err
	}
	res, err := wait(ctx, s, h)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Search done", "search", res.ID.String(), "hits", len(res.Hits), "scanned", res.Scanned, "elapsed", res.Elapsed.Round(time.Millisecond))
	if *asJSON {
		return writeJSON(os.Stdout, res)
	}
	return printHits(os.Stdout, s, res)
}

// wait polls the session until the search completes, the way an interactive
// viewer would on each frame.
func wait(ctx context.Context, s *session.Session, h *search.Handle) (search.Result, error) {
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for {
		if r, ok := s.Poll(); ok {
			return r, nil
		}
		select {
		case <-ctx.Done():
			h.Cancel()
			return search.Result{}, ctx.Err()
		case <-t.C:
			if scanned, total := h.Progress(); total > 0 {
				slog.DebugContext(ctx, "Waiting for search", "scanned", scanned, "total", total)
			}
		}
	}
}

func printHits(w io.Writer, s *session.Session, res search.Result) error {
	for _, hit := range res.Hits {
		raw, err := s.RawBytes(hit.Index)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%d: %s\n", hit.Index, truncate(string(raw), 200)); err != nil {
			return err
		}
		for _, f := range hit.Fragments {
			if f.Target != search.TargetField {
				continue
			}
			if _, err := fmt.Fprintf(w, "  %s (%s) %s\n", f.Path, f.Component, truncate(f.Display, 120)); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	e.SetEscapeHTML(false)
	return e.Encode(v)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
