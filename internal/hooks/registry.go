// Package hooks provides the extension point for user-supplied node
// customization. Hook definitions are Starlark files loaded from a
// directory before the run; each top-level function registers under its
// own name and is invoked with the in-progress node handle.
package hooks

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.starlark.net/starlark"
)

// ErrUnknownHook indicates a node referenced a hook name with no
// registered implementation.
var ErrUnknownHook = errors.New("unknown hook")

// Registry maps hook names to their Starlark implementations. It is
// populated once before the run and read-only afterwards.
type Registry struct {
	funcs map[string]*starlark.Function
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*starlark.Function)}
}

// LoadDir builds a registry from every *.star file in dir, loaded in
// lexical order. A missing directory yields an empty registry, not an
// error. Functions whose names start with an underscore are treated as
// file-private and not registered.
func LoadDir(dir string) (*Registry, error) {
	reg := NewRegistry()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("failed to read hook directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".star") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, name := range files {
		if err := reg.loadFile(filepath.Join(dir, name)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (r *Registry) loadFile(path string) error {
	thread := &starlark.Thread{
		Name: "hooks",
		Print: func(_ *starlark.Thread, msg string) {
			log.Printf("hook: %s", msg)
		},
	}

	globals, err := starlark.ExecFile(thread, path, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to load hook file %s: %w", path, err)
	}

	for name, value := range globals {
		if strings.HasPrefix(name, "_") {
			continue
		}
		fn, ok := value.(*starlark.Function)
		if !ok {
			continue
		}
		// Later files shadow earlier definitions of the same name.
		r.funcs[name] = fn
	}
	return nil
}

// Names returns the registered hook names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch invokes each named hook, in the declared order, with the
// in-progress node handle. An unregistered name fails with
// ErrUnknownHook; a hook that raises a Starlark error fails the run.
func (r *Registry) Dispatch(handle *NodeHandle, names []string) error {
	for _, name := range names {
		fn, ok := r.funcs[name]
		if !ok {
			return fmt.Errorf("%w: %q (node %s)", ErrUnknownHook, name, handle.NodeName())
		}

		thread := &starlark.Thread{
			Name: "hook:" + name,
			Print: func(_ *starlark.Thread, msg string) {
				log.Printf("hook %s: %s", name, msg)
			},
		}
		if _, err := starlark.Call(thread, fn, starlark.Tuple{handle}, nil); err != nil {
			return fmt.Errorf("hook %q failed for node %s: %w", name, handle.NodeName(), err)
		}
	}
	return nil
}
