// Package config loads suite configuration for the testcli command.
//
// A suite may carry a testcli.yaml next to its fixture directories:
//
//	shell: ["/bin/bash", "-c"]
//	timeout: 30s
//	parallel: 4
//	report_extraneous: true
//	filter: "test-*"
//
// Every key is optional. The file is checked against an embedded CUE schema
// before it is decoded, so typos and out-of-range values are rejected with
// the offending field named.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in a suite base directory.
const FileName = "testcli.yaml"

//go:embed schema.cue
var schemaCUE string

// Config is the decoded suite configuration.
type Config struct {
	Shell            []string
	Timeout          time.Duration
	Parallel         int
	ReportExtraneous bool
	Filter           string
}

// fileConfig mirrors the on-disk layout; durations stay strings until
// validated.
type fileConfig struct {
	Shell            []string `yaml:"shell"`
	Timeout          string   `yaml:"timeout"`
	Parallel         int      `yaml:"parallel"`
	ReportExtraneous bool     `yaml:"report_extraneous"`
	Filter           string   `yaml:"filter"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{Parallel: 1}
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// LoadDir loads FileName from dir, falling back to Default when the file
// does not exist.
func LoadDir(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse validates and decodes raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validate(raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var fc fileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg := Default()
	cfg.Shell = fc.Shell
	cfg.ReportExtraneous = fc.ReportExtraneous
	cfg.Filter = fc.Filter
	if fc.Parallel > 0 {
		cfg.Parallel = fc.Parallel
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid config: timeout: %w", err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

// validate unifies the raw document with the #Config definition. The
// definition is closed, so unknown keys fail here.
func validate(raw map[string]any) error {
	if raw == nil {
		return nil
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	value := def.Unify(ctx.Encode(raw))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}
