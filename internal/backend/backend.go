// Package backend defines the narrow surface of the virtualization
// provider consumed by the fleet orchestrator, plus the preflight checks
// (version constraint, required plugins) that run before any node
// compiles.
//
// In production the interface is satisfied by the libvirt adapter; in
// tests it is satisfied by mock implementations.
package backend

import (
	"context"
	"fmt"

	version "github.com/hashicorp/go-version"

	"github.com/flotilla-vm/flotilla/internal/compiler"
)

// Supported backend version range. A backend outside these bounds fails
// preflight before anything is compiled.
const (
	MinVersion = "7.0.0"
	MaxVersion = "12.0.0"
)

// Backend is the provider API that materializes compiled node plans.
type Backend interface {
	// Version reports the backend's version string (semver-ish).
	Version(ctx context.Context) (string, error)

	// InstalledPlugins lists the plugin names available in the backend.
	InstalledPlugins(ctx context.Context) ([]string, error)

	// InstallPlugin installs one named plugin.
	InstallPlugin(ctx context.Context, name string) error

	// Apply consumes one node's compiled operation sequence.
	Apply(ctx context.Context, plan *compiler.NodePlan) error

	// Close releases the backend connection.
	Close() error
}

// VersionConstraintError indicates the backend version is outside the
// supported range.
type VersionConstraintError struct {
	Version string
	Min     string
	Max     string
}

func (e *VersionConstraintError) Error() string {
	return fmt.Sprintf("backend version %s is outside the supported range (>= %s, < %s)", e.Version, e.Min, e.Max)
}

// PluginInstallError indicates a required plugin could not be installed.
type PluginInstallError struct {
	Plugin string
	Err    error
}

func (e *PluginInstallError) Error() string {
	return fmt.Sprintf("failed to install required plugin %q: %v", e.Plugin, e.Err)
}

func (e *PluginInstallError) Unwrap() error {
	return e.Err
}

// CheckVersion verifies the backend version satisfies the supported
// range.
func CheckVersion(ctx context.Context, b Backend) error {
	reported, err := b.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to query backend version: %w", err)
	}

	v, err := version.NewVersion(reported)
	if err != nil {
		return fmt.Errorf("backend reported unparseable version %q: %w", reported, err)
	}

	constraint, err := version.NewConstraint(fmt.Sprintf(">= %s, < %s", MinVersion, MaxVersion))
	if err != nil {
		return fmt.Errorf("invalid version constraint: %w", err)
	}
	if !constraint.Check(v) {
		return &VersionConstraintError{Version: reported, Min: MinVersion, Max: MaxVersion}
	}
	return nil
}

// EnsurePlugins installs every required plugin not already present in the
// backend. The first failed installation aborts with a
// PluginInstallError.
func EnsurePlugins(ctx context.Context, b Backend, required []string) error {
	if len(required) == 0 {
		return nil
	}

	installed, err := b.InstalledPlugins(ctx)
	if err != nil {
		return fmt.Errorf("failed to list installed plugins: %w", err)
	}
	have := make(map[string]bool, len(installed))
	for _, name := range installed {
		have[name] = true
	}

	for _, name := range required {
		if have[name] {
			continue
		}
		if err := b.InstallPlugin(ctx, name); err != nil {
			return &PluginInstallError{Plugin: name, Err: err}
		}
	}
	return nil
}

// Preflight runs the version constraint check and plugin reconciliation.
// Both must pass before any node compiles.
func Preflight(ctx context.Context, b Backend, plugins []string) error {
	if err := CheckVersion(ctx, b); err != nil {
		return err
	}
	return EnsurePlugins(ctx, b, plugins)
}
