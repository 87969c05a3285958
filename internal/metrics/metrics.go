// Package metrics is the backend-neutral instrumentation surface used by the
// pipeline. Code records through the package-level helpers; cmd/prep decides
// which Backend receives the data.
package metrics

import (
	"sync"
	"time"
)

// Labels are metric dimensions (e.g. step, status, kind).
type Labels map[string]string

// Backend receives metric observations.
//
// Implementations must be safe for concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names recorded by the pipeline.
const (
	StepTotal           = "prep_step_total"
	StepDurationSeconds = "prep_step_duration_seconds"
	RowsTotal           = "prep_rows_total"
)

// Row kinds used with RowsTotal.
const (
	RowsRead       = "read"
	RowsFiltered   = "filtered"
	RowsDuplicate  = "duplicate"
	RowsWritten    = "written"
	RowsCheckpoint = "checkpoint"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend. nil restores the no-op
// backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush flushes the installed backend.
func Flush() error { return current().Flush() }

// RecordStep counts one execution of a pipeline step and observes its
// duration. status is "ok" or "error".
func RecordStep(step, status string, d time.Duration) {
	b := current()
	l := Labels{"step": step, "status": status}
	b.IncCounter(StepTotal, 1, l)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), l)
}

// RecordRows adds n rows of the given kind. Non-positive n is ignored.
func RecordRows(kind string, n int) {
	if n <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(n), Labels{"kind": kind})
}

// Status maps an error to the status label value.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
