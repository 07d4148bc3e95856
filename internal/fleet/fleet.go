// Package fleet orchestrates a full run: load and merge the
// configuration, validate it, run backend preflight, compile every node
// in declaration order, dispatch hooks, and hand each plan to the
// backend.
package fleet

import (
	"context"
	"fmt"
	"log"

	"github.com/flotilla-vm/flotilla/internal/backend"
	"github.com/flotilla-vm/flotilla/internal/compiler"
	"github.com/flotilla-vm/flotilla/internal/config"
	"github.com/flotilla-vm/flotilla/internal/document"
	"github.com/flotilla-vm/flotilla/internal/hooks"
)

// Options selects the configuration files for a run.
type Options struct {
	// ConfigPath is the main configuration file. Required.
	ConfigPath string

	// LocalPath is the optional local override file. A missing or empty
	// file is treated as absent.
	LocalPath string
}

// LoadConfig loads and validates the merged configuration for a run.
func LoadConfig(opts Options) (*config.Config, error) {
	cfg, err := config.LoadWithOverride(opts.ConfigPath, opts.LocalPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CompilePlans compiles every node in declaration order and dispatches
// each node's hooks over the compiled operations. The returned slice
// preserves the order nodes were declared in.
func CompilePlans(cfg *config.Config, registry *hooks.Registry) ([]*compiler.NodePlan, error) {
	nodes := cfg.Nodes()
	boxes := cfg.Boxes()

	plans := make([]*compiler.NodePlan, 0, nodes.Len())
	for _, name := range nodes.Keys() {
		raw, _ := nodes.Get(name)
		attrs, ok := document.AsMapping(raw)
		if !ok {
			// A node declared as a bare scalar or sequence carries no
			// attributes.
			attrs = document.NewMapping()
		}

		ops := compiler.Compile(name, attrs, boxes)

		handle := hooks.NewNodeHandle(name, attrs, ops)
		if err := registry.Dispatch(handle, compiler.HookNames(attrs)); err != nil {
			return nil, fmt.Errorf("node %s: %w", name, err)
		}

		plans = append(plans, &compiler.NodePlan{Name: name, Ops: handle.Ops()})
	}

	return plans, nil
}

// Up runs the whole pipeline against a backend: preflight, compile,
// dispatch, and apply, node by node in declaration order. The first
// failure aborts the run; nodes already applied stay applied.
func Up(ctx context.Context, opts Options, b backend.Backend) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	if err := backend.Preflight(ctx, b, cfg.Plugins()); err != nil {
		return err
	}

	registry, err := hooks.LoadDir(cfg.HooksDir())
	if err != nil {
		return err
	}

	plans, err := CompilePlans(cfg, registry)
	if err != nil {
		return err
	}

	for _, plan := range plans {
		log.Printf("node %s: applying %d operations", plan.Name, len(plan.Ops))
		if err := b.Apply(ctx, plan); err != nil {
			return fmt.Errorf("node %s: %w", plan.Name, err)
		}
	}

	log.Printf("fleet up: %d node(s) applied", len(plans))
	return nil
}
