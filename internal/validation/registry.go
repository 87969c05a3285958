// Package validation holds named data-quality checks run against a finished
// table. A Registry starts empty; callers register the checks they want and
// Run reports every result, passing or not.
package validation

import (
	"fmt"
	"strings"

	"prep/internal/frame"
)

// Result is the outcome of one check.
type Result struct {
	Check   string
	Passed  bool
	Message string
}

// Check is a named assertion over a table.
type Check interface {
	Name() string
	Run(t *frame.Frame) Result
}

type funcCheck struct {
	name string
	fn   func(t *frame.Frame) Result
}

func (c funcCheck) Name() string { return c.name }

func (c funcCheck) Run(t *frame.Frame) Result {
	r := c.fn(t)
	r.Check = c.name
	return r
}

// Func adapts fn into a Check called name. The Check field of the returned
// Result is always set to name.
func Func(name string, fn func(t *frame.Frame) Result) Check {
	return funcCheck{name: name, fn: fn}
}

// Registry is an ordered set of uniquely named checks. The zero value is an
// empty, usable registry.
type Registry struct {
	checks []Check
	names  map[string]struct{}
}

// NewRegistry returns a registry holding checks, in order.
func NewRegistry(checks ...Check) (*Registry, error) {
	r := &Registry{}
	for _, c := range checks {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends c.
//
// Errors:
//   - nil check or empty name
//   - a check with the same name is already registered
func (r *Registry) Register(c Check) error {
	if c == nil || c.Name() == "" {
		return fmt.Errorf("validation: check must have a name")
	}
	if r.names == nil {
		r.names = make(map[string]struct{})
	}
	if _, dup := r.names[c.Name()]; dup {
		return fmt.Errorf("validation: check %q already registered", c.Name())
	}
	r.names[c.Name()] = struct{}{}
	r.checks = append(r.checks, c)
	return nil
}

// Len returns the number of registered checks.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.checks)
}

// Names returns check names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.checks))
	for i, c := range r.checks {
		out[i] = c.Name()
	}
	return out
}

// Run executes every check against t in registration order. An empty
// registry yields an empty report.
func (r *Registry) Run(t *frame.Frame) Report {
	var rep Report
	if r == nil {
		return rep
	}
	rep.Results = make([]Result, 0, len(r.checks))
	for _, c := range r.checks {
		rep.Results = append(rep.Results, c.Run(t))
	}
	return rep
}

// Report collects check results.
type Report struct {
	Results []Result
}

// Failed returns the failing results.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// Err returns a *FailedError when any check failed, else nil.
func (r Report) Err() error {
	if failed := r.Failed(); len(failed) > 0 {
		return &FailedError{Results: failed}
	}
	return nil
}

// FailedError lists failed checks.
type FailedError struct {
	Results []Result
}

func (e *FailedError) Error() string {
	parts := make([]string, len(e.Results))
	for i, r := range e.Results {
		parts[i] = r.Check + ": " + r.Message
	}
	return fmt.Sprintf("validation: %d check(s) failed: %s", len(e.Results), strings.Join(parts, "; "))
}
