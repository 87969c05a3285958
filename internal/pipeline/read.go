package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"prep/internal/config"
	pcsv "prep/internal/parser/csv"
	pjson "prep/internal/parser/json"
	"prep/internal/record"
)

// readBuffer bounds how far the parser may run ahead of the collector.
const readBuffer = 256

// ReadRecords parses src with the parser named by kind ("json" or "csv") and
// returns the records in input order. src is closed.
//
// The parser streams into a channel from its own goroutine; the caller's
// goroutine collects. Either side failing cancels the other.
func ReadRecords(ctx context.Context, kind string, opts config.Options, src io.ReadCloser, logger *slog.Logger) ([]record.Value, error) {
	onErr := func(line int, err error) {
		if logger != nil {
			logger.Warn("parse error", "parser", kind, "line", line, "err", err)
		}
	}

	var parse func(ctx context.Context, out chan<- record.Raw) error
	switch kind {
	case "json":
		parse = func(ctx context.Context, out chan<- record.Raw) error {
			defer src.Close()
			return pjson.StreamRecords(ctx, src, opts, out, onErr)
		}
	case "csv":
		parse = func(ctx context.Context, out chan<- record.Raw) error {
			return pcsv.ReadRecords(ctx, src, opts, out, onErr)
		}
	default:
		_ = src.Close()
		return nil, fmt.Errorf("unsupported parser kind %q (want json|csv)", kind)
	}

	out := make(chan record.Raw, readBuffer)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(out)
		if err := parse(gctx, out); err != nil {
			return fmt.Errorf("parse %s: %w", kind, err)
		}
		return nil
	})

	var recs []record.Value
	g.Go(func() error {
		for r := range out {
			recs = append(recs, r.Value)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return recs, nil
}
