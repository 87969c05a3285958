// Package config defines the pipeline configuration file and its loading
// rules. A config may be JSON or YAML; the file extension decides.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Pipeline is the root of a pipeline config file.
type Pipeline struct {
	Job         string      `json:"job" yaml:"job"`
	Source      Source      `json:"source" yaml:"source"`
	Parser      Parser      `json:"parser" yaml:"parser"`
	Normalize   Normalize   `json:"normalize" yaml:"normalize"`
	Checkpoints Checkpoints `json:"checkpoints" yaml:"checkpoints"`
	Output      Output      `json:"output" yaml:"output"`
	Validations []string    `json:"validations" yaml:"validations"`
	Runtime     Runtime     `json:"runtime" yaml:"runtime"`
}

// Source selects where raw records come from. Only "file" is supported.
type Source struct {
	Kind string     `json:"kind" yaml:"kind"`
	File FileSource `json:"file" yaml:"file"`
}

// FileSource reads raw records from a local file.
type FileSource struct {
	Path string `json:"path" yaml:"path"`
}

// Parser selects the raw record format ("json" or "csv") and its options.
type Parser struct {
	Kind    string  `json:"kind" yaml:"kind"`
	Options Options `json:"options" yaml:"options"`
}

// Normalize overrides the normalizer defaults. Empty fields keep the default.
type Normalize struct {
	Origin       string   `json:"origin" yaml:"origin"`
	Competitions []string `json:"competitions" yaml:"competitions"`
}

// Checkpoints selects where intermediate tables are persisted.
//
// Kind is one of "none", "memory", "dir", "sqlite", "postgres", "mssql".
// Dir is used by "dir"; DSN by the database kinds.
type Checkpoints struct {
	Kind        string `json:"kind" yaml:"kind"`
	Dir         string `json:"dir" yaml:"dir"`
	DSN         string `json:"dsn" yaml:"dsn"`
	TablePrefix string `json:"table_prefix" yaml:"table_prefix"`
}

// Output names the files written after a successful run.
type Output struct {
	Path       string `json:"path" yaml:"path"`
	SchemaPath string `json:"schema_path" yaml:"schema_path"`
}

// Runtime holds execution toggles.
type Runtime struct {
	DebugTimings bool `json:"debug_timings" yaml:"debug_timings"`
}

// IsYAML reports whether path should be decoded as YAML.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Unmarshal decodes data into p. YAML is used for .yaml/.yml paths, JSON
// otherwise. Unknown JSON fields are rejected so typos surface early.
func Unmarshal(path string, data []byte, p *Pipeline) error {
	if IsYAML(path) {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(p); err != nil {
			return fmt.Errorf("yaml: %w", err)
		}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return fmt.Errorf("json: %w", err)
	}
	return nil
}

// ExpandEnv replaces ${VAR} references in paths and DSNs with environment
// values, so credentials can live in the environment or a .env file.
func (p *Pipeline) ExpandEnv() {
	p.Source.File.Path = os.ExpandEnv(p.Source.File.Path)
	p.Checkpoints.Dir = os.ExpandEnv(p.Checkpoints.Dir)
	p.Checkpoints.DSN = os.ExpandEnv(p.Checkpoints.DSN)
	p.Output.Path = os.ExpandEnv(p.Output.Path)
	p.Output.SchemaPath = os.ExpandEnv(p.Output.SchemaPath)
}

// LoadEnv loads KEY=VALUE pairs into the process environment.
//
// When path is empty, ".env" next to configPath is tried and a missing file
// is not an error. An explicit path must exist. Variables already set in
// the environment are not overridden.
func LoadEnv(path, configPath string) error {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(filepath.Dir(configPath), ".env")
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
