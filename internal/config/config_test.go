package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/flotilla-vm/flotilla/internal/document"
)

func mustMapping(t *testing.T, v any) *document.Mapping {
	t.Helper()
	m, ok := document.AsMapping(v)
	if !ok {
		t.Fatalf("Expected a mapping, got %T", v)
	}
	return m
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "flotilla.yaml", `
boxes:
  ubuntu/focal64: https://example.com/focal64.box
nodes:
  web:
    box: ubuntu/focal64
    hostname: web1
    memory: 1024
    cpus: 1
plugins:
  - flotilla-hostmanager
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := cfg.Nodes().Keys(); !reflect.DeepEqual(got, []string{"web"}) {
		t.Errorf("Expected nodes [web], got %v", got)
	}
	url, ok := cfg.Boxes().Get("ubuntu/focal64")
	if !ok || url != "https://example.com/focal64.box" {
		t.Errorf("Expected box URL in catalog, got %#v (present=%v)", url, ok)
	}
	if got := cfg.Plugins(); !reflect.DeepEqual(got, []string{"flotilla-hostmanager"}) {
		t.Errorf("Expected plugins [flotilla-hostmanager], got %v", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrMissingConfig) {
		t.Errorf("Expected ErrMissingConfig, got %v", err)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero bytes", ""},
		{"only comments", "# nothing here\n"},
		{"explicit null", "null\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "flotilla.yaml", tt.content)
			_, err := Load(path)
			if !errors.Is(err, ErrEmptyConfig) {
				t.Errorf("Expected ErrEmptyConfig, got %v", err)
			}
		})
	}
}

func TestLoad_NonMappingRoot(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "flotilla.yaml", "- just\n- a\n- list\n")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for non-mapping root, got nil")
	}
}

func TestLoadWithOverride_LocalWins(t *testing.T) {
	dir := t.TempDir()
	primary := writeConfig(t, dir, "flotilla.yaml", `
nodes:
  a:
    memory: 512
    hostname: a.example.com
`)
	local := writeConfig(t, dir, "flotilla.local.yaml", `
nodes:
  a:
    memory: 1024
`)

	cfg, err := LoadWithOverride(primary, local)
	if err != nil {
		t.Fatalf("LoadWithOverride failed: %v", err)
	}

	raw, _ := cfg.Nodes().Get("a")
	attrs := mustMapping(t, raw)
	if mem, _ := attrs.Get("memory"); mem != 1024 {
		t.Errorf("Expected override memory 1024, got %#v", mem)
	}
	if hn, _ := attrs.Get("hostname"); hn != "a.example.com" {
		t.Errorf("Expected primary-only hostname preserved, got %#v", hn)
	}
}

func TestLoadWithOverride_MissingLocalIsAbsent(t *testing.T) {
	dir := t.TempDir()
	primary := writeConfig(t, dir, "flotilla.yaml", "nodes:\n  web: {}\n")

	cfg, err := LoadWithOverride(primary, filepath.Join(dir, "flotilla.local.yaml"))
	if err != nil {
		t.Fatalf("LoadWithOverride failed: %v", err)
	}
	if cfg.Nodes().Len() != 1 {
		t.Errorf("Expected 1 node, got %d", cfg.Nodes().Len())
	}
}

func TestLoadWithOverride_EmptyLocalIsAbsent(t *testing.T) {
	dir := t.TempDir()
	primary := writeConfig(t, dir, "flotilla.yaml", "nodes:\n  web: {}\n")
	local := writeConfig(t, dir, "flotilla.local.yaml", "# local overrides go here\n")

	cfg, err := LoadWithOverride(primary, local)
	if err != nil {
		t.Fatalf("LoadWithOverride failed: %v", err)
	}
	if cfg.Nodes().Len() != 1 {
		t.Errorf("Expected 1 node, got %d", cfg.Nodes().Len())
	}
}

func TestValidate_NoNodes(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty nodes map", "nodes: {}\n"},
		{"missing nodes section", "boxes: {}\n"},
		{"nodes is not a mapping", "nodes: oops\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "flotilla.yaml", tt.content)
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if err := cfg.Validate(); !errors.Is(err, ErrNoNodesDefined) {
				t.Errorf("Expected ErrNoNodesDefined, got %v", err)
			}
		})
	}
}

func TestValidate_AnyNonEmptyNodesPasses(t *testing.T) {
	// Validation must not fail for any non-empty nodes mapping, regardless
	// of per-node content.
	path := writeConfig(t, t.TempDir(), "flotilla.yaml", `
nodes:
  bare:
  odd: 42
  full:
    box: ubuntu/focal64
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected validation to pass, got %v", err)
	}
}

func TestConfig_NodeOrderSurvivesMerge(t *testing.T) {
	dir := t.TempDir()
	primary := writeConfig(t, dir, "flotilla.yaml", `
nodes:
  web: {}
  db: {}
  cache: {}
`)
	local := writeConfig(t, dir, "flotilla.local.yaml", `
nodes:
  db:
    memory: 2048
  extra: {}
`)

	cfg, err := LoadWithOverride(primary, local)
	if err != nil {
		t.Fatalf("LoadWithOverride failed: %v", err)
	}
	want := []string{"web", "db", "cache", "extra"}
	if got := cfg.Nodes().Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected node order %v, got %v", want, got)
	}
}

func TestConfig_SectionAccessors(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "flotilla.yaml", `
nodes:
  web: {}
defaults:
  memory: 256
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if mem, _ := cfg.Defaults().Get("memory"); mem != 256 {
		t.Errorf("Expected defaults memory 256, got %#v", mem)
	}
	// Absent sections come back as empty mappings, never nil.
	if cfg.Boxes() == nil || cfg.Boxes().Len() != 0 {
		t.Errorf("Expected empty box catalog, got %#v", cfg.Boxes())
	}
	if cfg.Plugins() != nil {
		t.Errorf("Expected no plugins, got %v", cfg.Plugins())
	}
	if got := cfg.HooksDir(); got != filepath.Join(filepath.Dir(path), "hooks.d") {
		t.Errorf("Unexpected hooks dir %q", got)
	}
}
