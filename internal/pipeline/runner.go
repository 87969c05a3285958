// Package pipeline wires one appearances run together: read the source,
// normalize, run the enabled validations and write the output table and its
// schema.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"prep/internal/appearances"
	"prep/internal/checkpoint"
	"prep/internal/config"
	"prep/internal/frame"
	"prep/internal/logging"
	"prep/internal/metrics"
	"prep/internal/schema"
	"prep/internal/validation"
)

// Runner executes pipeline configs. Function fields are seams for tests;
// NewDefaultRunner fills them with the real implementations.
type Runner struct {
	OpenSource      func(path string) (io.ReadCloser, error)
	OpenCheckpoints func(ctx context.Context, cfg config.Checkpoints, schemas map[string]schema.Schema, logger *slog.Logger) (checkpoint.Sink, func() error, error)

	Logger *slog.Logger

	// RunID tags logs. A fresh id is generated when empty.
	RunID string
}

// NewDefaultRunner returns a Runner reading local files and opening
// checkpoint sinks with checkpoint.Open.
func NewDefaultRunner(logger *slog.Logger) *Runner {
	return &Runner{
		OpenSource: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
		OpenCheckpoints: checkpoint.Open,
		Logger:          logger,
	}
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Read       int
	Filtered   int
	Duplicates int
	Rows       int
	Checks     validation.Report
}

// Run executes p and discards the summary.
func (r *Runner) Run(ctx context.Context, p config.Pipeline) error {
	_, err := r.Execute(ctx, p)
	return err
}

// Execute runs p end to end.
//
// Output files are written only after every step succeeded, each through a
// temporary file renamed into place, so a failed run leaves previous output
// untouched.
//
// Errors:
//   - config errors (ValidatePipeline errors, unknown validations)
//   - source, parse, normalize and checkpoint errors
//   - *validation.FailedError when an enabled check fails
//   - output write errors
func (r *Runner) Execute(ctx context.Context, p config.Pipeline) (*Summary, error) {
	if issues := config.ValidatePipeline(p); config.HasErrors(issues) {
		var msgs []string
		for _, iss := range issues {
			if iss.Severity == config.SeverityError {
				msgs = append(msgs, iss.String())
			}
		}
		return nil, fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}

	checks, err := appearances.BuildValidations(p.Validations)
	if err != nil {
		return nil, err
	}

	runID := r.RunID
	if runID == "" {
		runID = logging.NewRunID()
	}
	logger := r.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logging.WithRun(logger, p.Job, runID)
	sum := &Summary{RunID: runID}

	sink, closeSink, err := r.OpenCheckpoints(ctx, p.Checkpoints, map[string]schema.Schema{
		appearances.CheckpointPrep: appearances.Schema(),
	}, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := closeSink(); cerr != nil {
			logger.Warn("close checkpoints", "err", cerr)
		}
	}()

	step := stepTimer{logger: logger, debug: p.Runtime.DebugTimings}

	done := step.start("read")
	src, err := r.OpenSource(p.Source.File.Path)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("open source: %w", err)
	}
	raw, err := ReadRecords(ctx, p.Parser.Kind, p.Parser.Options, src, logger)
	done(err)
	if err != nil {
		return nil, err
	}

	done = step.start("normalize")
	opts := appearances.DefaultOptions().WithOverrides(p.Normalize.Origin, p.Normalize.Competitions)
	res, err := appearances.New(opts, sink, logger).Process(ctx, raw)
	done(err)
	if err != nil {
		return nil, err
	}
	sum.Read, sum.Filtered, sum.Duplicates, sum.Rows = res.Read, res.Filtered, res.Duplicates, res.Table.Len()

	done = step.start("validate")
	sum.Checks = checks.Run(res.Table)
	err = sum.Checks.Err()
	done(err)
	for _, c := range sum.Checks.Results {
		logger.Info("validation", "check", c.Check, "passed", c.Passed, "message", c.Message)
	}
	if err != nil {
		return sum, err
	}

	done = step.start("write")
	err = writeOutputs(p.Output, res.Table)
	done(err)
	if err != nil {
		return sum, err
	}

	metrics.RecordRows(metrics.RowsWritten, sum.Rows)
	logger.Info("run complete",
		"read", sum.Read,
		"filtered", sum.Filtered,
		"duplicates", sum.Duplicates,
		"rows", sum.Rows,
		"output", p.Output.Path,
	)
	return sum, nil
}

type stepTimer struct {
	logger *slog.Logger
	debug  bool
}

// start begins timing a step; the returned func records it.
func (s stepTimer) start(name string) func(err error) {
	began := time.Now()
	return func(err error) {
		d := time.Since(began)
		metrics.RecordStep(name, metrics.Status(err), d)
		if s.debug {
			s.logger.Info("step timing", "step", name, "status", metrics.Status(err), "elapsed", d)
		}
	}
}

func writeOutputs(out config.Output, t *frame.Frame) error {
	if out.Path != "" {
		if err := writeAtomic(out.Path, func(w io.Writer) error { return frame.WriteCSV(w, t) }); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if out.SchemaPath != "" {
		if err := writeAtomic(out.SchemaPath, appearances.Schema().WriteJSON); err != nil {
			return fmt.Errorf("write schema: %w", err)
		}
	}
	return nil
}

func writeAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
