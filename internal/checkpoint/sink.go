// Package checkpoint persists the intermediate tables a pipeline run produces.
//
// Every sink has overwrite semantics: writing a name twice leaves only the
// second table behind. Names are plain identifiers such as "json_normalized".
package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"prep/internal/frame"
	"prep/internal/metrics"
)

// Sink receives named tables.
type Sink interface {
	Write(ctx context.Context, name string, t *frame.Frame) error
}

// Nop discards every table.
type Nop struct{}

// Write implements Sink.
func (Nop) Write(ctx context.Context, name string, _ *frame.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return validName(name)
}

// Memory keeps the last table written under each name. It is safe for
// concurrent use.
type Memory struct {
	mu     sync.Mutex
	tables map[string]*frame.Frame
}

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string]*frame.Frame)}
}

// Write implements Sink. The stored frame shares row slices with t but not
// the outer slices, so later appends to t are not observed.
func (m *Memory) Write(ctx context.Context, name string, t *frame.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return err
	}

	cp := frame.New(t.Columns...)
	cp.Rows = append([][]any(nil), t.Rows...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = cp
	return nil
}

// Get returns the table last written under name.
func (m *Memory) Get(name string) (*frame.Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[name]
	return t, ok
}

// Names returns the stored names, sorted.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.tables))
	for n := range m.tables {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Instrumented wraps a sink with debug logging and checkpoint metrics.
type Instrumented struct {
	Sink   Sink
	Logger *slog.Logger
}

// Write implements Sink.
func (s Instrumented) Write(ctx context.Context, name string, t *frame.Frame) error {
	start := time.Now()
	err := s.Sink.Write(ctx, name, t)
	metrics.RecordStep("checkpoint_"+name, metrics.Status(err), time.Since(start))
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", name, err)
	}

	metrics.RecordRows(metrics.RowsCheckpoint, t.Len())
	if s.Logger != nil {
		s.Logger.Debug("checkpoint written",
			"name", name,
			"rows", t.Len(),
			"columns", len(t.Columns),
			"elapsed", time.Since(start),
		)
	}
	return nil
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("checkpoint: empty name")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return fmt.Errorf("checkpoint: invalid name %q", name)
		}
	}
	return nil
}
