package pipeline

import (
	"context"
	"fmt"

	"prep/internal/appearances"
	"prep/internal/config"
	"prep/internal/logging"
	"prep/internal/probe"
	"prep/internal/record"
)

// Probe reads p's source and profiles its flattened records against the
// paths the normalizer reads. Nothing is normalized, checkpointed or written.
//
// Edge cases:
//   - limit <= 0 profiles every record; otherwise only the first limit.
//
// Errors:
//   - source and parse errors, as in Execute
//   - a record that is not an object
func (r *Runner) Probe(ctx context.Context, p config.Pipeline, limit int) (probe.Report, error) {
	logger := r.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	src, err := r.OpenSource(p.Source.File.Path)
	if err != nil {
		return probe.Report{}, fmt.Errorf("open source: %w", err)
	}
	raw, err := ReadRecords(ctx, p.Parser.Kind, p.Parser.Options, src, logger)
	if err != nil {
		return probe.Report{}, err
	}
	if limit > 0 && len(raw) > limit {
		raw = raw[:limit]
	}

	flats := make([]*record.Flat, 0, len(raw))
	for i, v := range raw {
		f, err := record.Flatten(v)
		if err != nil {
			return probe.Report{}, fmt.Errorf("probe: record %d: %w", i+1, err)
		}
		flats = append(flats, f)
	}
	return probe.Profile(flats, appearances.InputPaths()), nil
}
