package config

import (
	"fmt"
	"strings"
)

// Severity grades a config Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding from ValidatePipeline. Path is a dotted config path.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CheckpointKinds lists the accepted checkpoints.kind values.
var CheckpointKinds = []string{"none", "memory", "dir", "sqlite", "postgres", "mssql"}

// ValidatePipeline checks p for structural problems. It does not touch the
// filesystem or network.
//
// Errors:
//   - unsupported source, parser or checkpoint kinds
//   - missing source path, checkpoint dir or DSN
//   - blank competition codes or validation names
//
// Warnings:
//   - empty job name
//   - no output path (the run produces checkpoints only)
//   - origin without an http(s) scheme
func ValidatePipeline(p Pipeline) []Issue {
	var out []Issue
	add := func(sev Severity, path, format string, args ...any) {
		out = append(out, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(p.Job) == "" {
		add(SeverityWarning, "job", "job name is empty; metrics and logs use the default")
	}

	switch p.Source.Kind {
	case "file":
		if strings.TrimSpace(p.Source.File.Path) == "" {
			add(SeverityError, "source.file.path", "path is required")
		}
	case "":
		add(SeverityError, "source.kind", "kind is required")
	default:
		add(SeverityError, "source.kind", "unsupported kind %q (want file)", p.Source.Kind)
	}

	switch p.Parser.Kind {
	case "json", "csv":
	case "":
		add(SeverityError, "parser.kind", "kind is required")
	default:
		add(SeverityError, "parser.kind", "unsupported kind %q (want json|csv)", p.Parser.Kind)
	}

	if o := p.Normalize.Origin; o != "" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
		add(SeverityWarning, "normalize.origin", "origin %q has no http(s) scheme", o)
	}
	for i, c := range p.Normalize.Competitions {
		if strings.TrimSpace(c) == "" {
			add(SeverityError, fmt.Sprintf("normalize.competitions[%d]", i), "competition code is blank")
		}
	}

	switch p.Checkpoints.Kind {
	case "", "none", "memory":
	case "dir":
		if strings.TrimSpace(p.Checkpoints.Dir) == "" {
			add(SeverityError, "checkpoints.dir", "dir is required for kind dir")
		}
	case "sqlite", "postgres", "mssql":
		if strings.TrimSpace(p.Checkpoints.DSN) == "" {
			add(SeverityError, "checkpoints.dsn", "dsn is required for kind %s", p.Checkpoints.Kind)
		}
	default:
		add(SeverityError, "checkpoints.kind", "unsupported kind %q (want %s)", p.Checkpoints.Kind, strings.Join(CheckpointKinds, "|"))
	}

	if strings.TrimSpace(p.Output.Path) == "" {
		add(SeverityWarning, "output.path", "no output path; only checkpoints are written")
	}

	for i, v := range p.Validations {
		if strings.TrimSpace(v) == "" {
			add(SeverityError, fmt.Sprintf("validations[%d]", i), "validation name is blank")
		}
	}

	return out
}
