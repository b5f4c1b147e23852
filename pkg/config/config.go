// Package config holds the run configuration of a scan.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/samber/oops"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"

	"github.com/warren2314/OSS-Checker/pkg/batch"
	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
	"github.com/warren2314/OSS-Checker/pkg/ossindex"
	"github.com/warren2314/OSS-Checker/pkg/ratelimit"
)

var ErrInvalid = xerrors.New("invalid configuration")

// Target is one directory to scan with the parser of Ecosystem.
type Target struct {
	Ecosystem ecosystem.Type `yaml:"ecosystem" toml:"ecosystem"`
	Dir       string         `yaml:"dir" toml:"dir"`
}

// ParseTarget parses the "<ecosystem>=<dir>" flag form.
func ParseTarget(s string) (Target, error) {
	eco, dir, ok := strings.Cut(s, "=")
	if !ok {
		return Target{}, xerrors.Errorf("target %q must be <ecosystem>=<dir>: %w", s, ErrInvalid)
	}
	return Target{Ecosystem: ecosystem.Type(eco), Dir: dir}.normalize()
}

func (t Target) normalize() (Target, error) {
	eco, err := ecosystem.Parse(string(t.Ecosystem))
	if err != nil {
		return Target{}, xerrors.Errorf("target %q: %v: %w", t.Dir, err, ErrInvalid)
	}
	if strings.TrimSpace(t.Dir) == "" {
		return Target{}, xerrors.Errorf("target %s has no directory: %w", eco, ErrInvalid)
	}
	return Target{Ecosystem: eco, Dir: t.Dir}, nil
}

type Config struct {
	ChunkSize      int           `yaml:"chunk_size" toml:"chunk_size"`
	CallsPerMinute int           `yaml:"calls_per_minute" toml:"calls_per_minute"`
	RequestMode    ossindex.Mode `yaml:"request_mode" toml:"request_mode"`
	// IncludeClean keeps packages without known vulnerabilities in the report.
	IncludeClean     bool          `yaml:"include_zero_vulnerability_packages" toml:"include_zero_vulnerability_packages"`
	Endpoint         string        `yaml:"endpoint" toml:"endpoint"`
	Timeout          time.Duration `yaml:"timeout" toml:"timeout"`
	PyPIAnyExtension bool          `yaml:"pypi_any_extension" toml:"pypi_any_extension"`
	Targets          []Target      `yaml:"targets" toml:"targets"`
}

func Default() Config {
	return Config{
		ChunkSize:      batch.DefaultSize,
		CallsPerMinute: ratelimit.DefaultCallsPerMinute,
		RequestMode:    ossindex.ModeBatched,
		Endpoint:       ossindex.DefaultURL,
		Timeout:        ossindex.DefaultTimeout,
	}
}

// Load reads a YAML file, or a TOML file when path ends in .toml, over the
// defaults. Keys absent from the file keep their default value.
func Load(path string) (Config, error) {
	eb := oops.With("file_path", path)

	buf, err := os.ReadFile(path)
	if err != nil {
		return Config{}, eb.Wrapf(err, "failed to read config file")
	}

	f := file{Config: Default()}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(buf, &f)
	} else {
		err = yaml.Unmarshal(buf, &f)
	}
	if err != nil {
		return Config{}, eb.Wrapf(err, "failed to parse config file")
	}
	if f.IncludeClean != nil {
		f.Config.IncludeClean = *f.IncludeClean
	}
	return f.Config, nil
}

// file is the on-disk shape. include_clean is a short alias of
// include_zero_vulnerability_packages and wins when both are present.
type file struct {
	Config       `yaml:",inline"`
	IncludeClean *bool `yaml:"include_clean" toml:"include_clean"`
}

// Validate checks the configuration and normalizes the request mode and
// target ecosystems. Every failure wraps ErrInvalid.
func (c *Config) Validate() error {
	if c.ChunkSize < 1 {
		return xerrors.Errorf("chunk size must be positive, got %d: %w", c.ChunkSize, ErrInvalid)
	}
	if c.CallsPerMinute < 1 {
		return xerrors.Errorf("calls per minute must be positive, got %d: %w", c.CallsPerMinute, ErrInvalid)
	}
	if c.Timeout < 0 {
		return xerrors.Errorf("timeout must not be negative, got %s: %w", c.Timeout, ErrInvalid)
	}
	if c.Endpoint == "" {
		return xerrors.Errorf("endpoint must not be empty: %w", ErrInvalid)
	}

	mode, err := ossindex.ParseMode(string(c.RequestMode))
	if err != nil {
		return xerrors.Errorf("%v: %w", err, ErrInvalid)
	}
	c.RequestMode = mode

	for i, t := range c.Targets {
		if c.Targets[i], err = t.normalize(); err != nil {
			return err
		}
	}
	return nil
}
