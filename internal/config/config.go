// Package config loads the fleet document (flotilla.yaml plus an optional
// local override), merges the two layers, and validates the structural
// preconditions the compiler relies on.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/flotilla-vm/flotilla/internal/document"
)

var (
	// ErrMissingConfig indicates the primary config file does not exist.
	ErrMissingConfig = errors.New("config file not found")

	// ErrEmptyConfig indicates the primary config file parsed to no content.
	ErrEmptyConfig = errors.New("config file is empty")

	// ErrNoNodesDefined indicates the merged document declares no nodes.
	ErrNoNodesDefined = errors.New("no nodes defined")
)

// DefaultHooksDir is the directory, relative to the primary config file,
// scanned for hook definitions.
const DefaultHooksDir = "hooks.d"

// Config is a loaded, merged fleet document. It is read-only after load.
type Config struct {
	doc  *document.Mapping
	path string
}

// Load reads and parses the primary config file.
//
// A missing file is ErrMissingConfig; a file that parses to no content is
// ErrEmptyConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	doc, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrEmptyConfig, path)
	}

	return &Config{doc: doc, path: path}, nil
}

// LoadWithOverride loads the primary config file and, if localPath exists
// and has content, deep-merges it over the primary document. A missing or
// empty local file is treated as absent, not an error.
func LoadWithOverride(path, localPath string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if localPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read local config file %s: %w", localPath, err)
	}

	local, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", localPath, err)
	}
	if local == nil {
		return cfg, nil
	}

	cfg.doc = document.Merge(cfg.doc, local)
	return cfg, nil
}

// parseDocument parses YAML bytes into an ordered mapping. A document
// with no content (empty file, or a lone null) returns (nil, nil).
func parseDocument(data []byte) (*document.Mapping, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		return nil, nil
	}

	value, err := document.DecodeNode(&root)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	doc, ok := document.AsMapping(value)
	if !ok {
		return nil, fmt.Errorf("top-level document must be a mapping, got %T", value)
	}
	return doc, nil
}

// validation checks run in order and their messages accumulate; adding a
// per-node structural check means appending to this list.
var checks = []func(*Config) error{
	checkNodesDefined,
}

// Validate checks the merged document's structural preconditions. All
// failed checks are reported together in a single error.
func (c *Config) Validate() error {
	var errs []error
	for _, check := range checks {
		if err := check(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func checkNodesDefined(c *Config) error {
	if c.Nodes().Len() == 0 {
		return fmt.Errorf("%w: the 'nodes' section is missing or empty", ErrNoNodesDefined)
	}
	return nil
}

// Document returns the full merged document.
func (c *Config) Document() *document.Mapping {
	return c.doc
}

// Path returns the path the primary document was loaded from.
func (c *Config) Path() string {
	return c.path
}

// HooksDir returns the hook definition directory for this config,
// resolved next to the primary config file.
func (c *Config) HooksDir() string {
	return filepath.Join(filepath.Dir(c.path), DefaultHooksDir)
}

// Boxes returns the box catalog (box name to source URL). Absent or
// malformed sections yield an empty catalog.
func (c *Config) Boxes() *document.Mapping {
	return c.section("boxes")
}

// Nodes returns the node declarations in document order. Absent or
// malformed sections yield an empty mapping.
func (c *Config) Nodes() *document.Mapping {
	return c.section("nodes")
}

// Defaults returns the reserved defaults section. It is parsed and merged
// but not consumed by compilation.
func (c *Config) Defaults() *document.Mapping {
	return c.section("defaults")
}

// Plugins returns the declared plugin names, in document order. Non-string
// entries are ignored.
func (c *Config) Plugins() []string {
	raw, ok := c.doc.Get("plugins")
	if !ok {
		return nil
	}
	seq, ok := raw.([]any)
	if !ok {
		return nil
	}
	var plugins []string
	for _, item := range seq {
		if name, ok := item.(string); ok {
			plugins = append(plugins, name)
		}
	}
	return plugins
}

func (c *Config) section(name string) *document.Mapping {
	raw, ok := c.doc.Get(name)
	if !ok {
		return document.NewMapping()
	}
	m, ok := document.AsMapping(raw)
	if !ok {
		return document.NewMapping()
	}
	return m
}
