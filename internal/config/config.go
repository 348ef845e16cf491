// Package config loads usercode settings.
//
// Settings come from a YAML file. The file is looked up in this order:
//   - the path given on the command line (--config)
//   - the USERCODE_CONFIG environment variable
//   - .usercode.yaml at the root of the source tree
//
// When no file is found the defaults apply: the C/C++ extension set,
// backups enabled, and the snapshot stored under .usercode/ in the tree.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is the per-tree config file.
	FileName = ".usercode.yaml"

	// EnvConfig overrides the config file location.
	EnvConfig = "USERCODE_CONFIG"

	// DefaultSnapshot is the snapshot location relative to the tree root.
	DefaultSnapshot = ".usercode/sections.yaml"
)

// DefaultExtensions are the source file extensions scanned for sections.
var DefaultExtensions = []string{".c", ".cpp", ".cxx", ".cc", ".h", ".hpp", ".hxx", ".hh"}

// Config holds the settings for one run.
type Config struct {
	// Extensions lists the dot-prefixed, case-sensitive extensions to scan.
	Extensions []string `yaml:"extensions" json:"extensions"`

	// ExcludeDirs lists directory names skipped during the walk.
	ExcludeDirs []string `yaml:"exclude_dirs" json:"excludeDirs"`

	// Backup controls whether files are renamed to a hidden backup before
	// being rewritten.
	Backup bool `yaml:"backup" json:"backup"`

	// Snapshot is where extract saves and insert loads sections. Relative
	// paths are resolved against the tree root.
	Snapshot string `yaml:"snapshot" json:"snapshot"`

	// Source is the file the settings were read from, empty for defaults.
	Source string `yaml:"-" json:"source,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Extensions:  append([]string(nil), DefaultExtensions...),
		ExcludeDirs: []string{".git", ".usercode"},
		Backup:      true,
		Snapshot:    DefaultSnapshot,
	}
}

// Load resolves the config file for root and parses it over the defaults.
// explicit, when set, must exist.
func Load(root, explicit string) (*Config, error) {
	path := explicit
	mustExist := explicit != ""
	if path == "" {
		if env := os.Getenv(EnvConfig); env != "" {
			path = env
			mustExist = true
		} else {
			path = filepath.Join(root, FileName)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !mustExist {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions: at least one extension is required")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 || strings.ContainsAny(ext, `/\`) {
			return fmt.Errorf("extensions: %q must look like \".c\"", ext)
		}
	}
	for _, dir := range c.ExcludeDirs {
		if dir == "" || strings.ContainsAny(dir, `/\`) {
			return fmt.Errorf("exclude_dirs: %q must be a single directory name", dir)
		}
	}
	if strings.TrimSpace(c.Snapshot) == "" {
		return fmt.Errorf("snapshot: path must not be empty")
	}
	return nil
}

// ExtensionSet returns Extensions as a lookup set.
func (c *Config) ExtensionSet() map[string]bool {
	set := make(map[string]bool, len(c.Extensions))
	for _, ext := range c.Extensions {
		set[ext] = true
	}
	return set
}

// Excluded reports whether a directory with the given name is skipped.
func (c *Config) Excluded(name string) bool {
	for _, dir := range c.ExcludeDirs {
		if dir == name {
			return true
		}
	}
	return false
}

// SnapshotPath returns the snapshot location for a tree rooted at root.
func (c *Config) SnapshotPath(root string) string {
	if filepath.IsAbs(c.Snapshot) {
		return c.Snapshot
	}
	return filepath.Join(root, filepath.FromSlash(c.Snapshot))
}

// String renders the effective settings as YAML.
func (c *Config) String() string {
	sorted := *c
	sorted.Extensions = append([]string(nil), c.Extensions...)
	sort.Strings(sorted.Extensions)
	data, err := yaml.Marshal(&sorted)
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(data)
}
