package hooks

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/flotilla-vm/flotilla/internal/compiler"
	"github.com/flotilla-vm/flotilla/internal/document"
)

// NodeHandle is the Starlark value handed to hooks. It exposes the node's
// name and attributes read-only and lets hooks append further
// configuration operations to the node's plan.
type NodeHandle struct {
	name  string
	attrs *document.Mapping
	ops   []compiler.Op
}

// NewNodeHandle wraps a node's in-progress plan for hook dispatch.
func NewNodeHandle(name string, attrs *document.Mapping, ops []compiler.Op) *NodeHandle {
	if attrs == nil {
		attrs = document.NewMapping()
	}
	return &NodeHandle{name: name, attrs: attrs, ops: ops}
}

// NodeName returns the node's name.
func (h *NodeHandle) NodeName() string {
	return h.name
}

// Ops returns the node's operation sequence, including any appended by
// hooks.
func (h *NodeHandle) Ops() []compiler.Op {
	return h.ops
}

// starlark.Value

func (h *NodeHandle) String() string        { return fmt.Sprintf("<node %s>", h.name) }
func (h *NodeHandle) Type() string          { return "node" }
func (h *NodeHandle) Freeze()               {}
func (h *NodeHandle) Truth() starlark.Bool  { return starlark.True }
func (h *NodeHandle) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: node") }

// AttrNames lists the attributes and methods visible from Starlark.
func (h *NodeHandle) AttrNames() []string {
	return []string{
		"add_synced_folder",
		"attr",
		"name",
		"set_provider_property",
		"set_provisioner_property",
	}
}

// Attr resolves an attribute or method reference from Starlark.
func (h *NodeHandle) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(h.name), nil
	case "attr":
		return starlark.NewBuiltin("attr", h.builtinAttr).BindReceiver(h), nil
	case "set_provider_property":
		return starlark.NewBuiltin("set_provider_property", h.builtinSetProviderProperty).BindReceiver(h), nil
	case "set_provisioner_property":
		return starlark.NewBuiltin("set_provisioner_property", h.builtinSetProvisionerProperty).BindReceiver(h), nil
	case "add_synced_folder":
		return starlark.NewBuiltin("add_synced_folder", h.builtinAddSyncedFolder).BindReceiver(h), nil
	default:
		return nil, nil
	}
}

// attr(key) returns the node's declared attribute value, or None when the
// attribute is absent.
func (h *NodeHandle) builtinAttr(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "key", &key); err != nil {
		return nil, err
	}
	v, ok := h.attrs.Get(key)
	if !ok {
		return starlark.None, nil
	}
	return toStarlark(v)
}

// set_provider_property(provider, key, value) appends a provider property
// operation to the node's plan.
func (h *NodeHandle) builtinSetProviderProperty(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var provider, key string
	var value starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "provider", &provider, "key", &key, "value", &value); err != nil {
		return nil, err
	}
	goValue, err := fromStarlark(value)
	if err != nil {
		return nil, err
	}
	h.ops = append(h.ops, compiler.SetProviderProperty(provider, key, goValue))
	return starlark.None, nil
}

// set_provisioner_property(provisioner, key, value) appends a provisioner
// property operation to the node's plan.
func (h *NodeHandle) builtinSetProvisionerProperty(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var provisioner, key string
	var value starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "provisioner", &provisioner, "key", &key, "value", &value); err != nil {
		return nil, err
	}
	goValue, err := fromStarlark(value)
	if err != nil {
		return nil, err
	}
	h.ops = append(h.ops, compiler.SetProvisionerProperty(provisioner, key, goValue))
	return starlark.None, nil
}

// add_synced_folder(host, guest, create=None, owner=None, group=None)
// appends a synced folder operation to the node's plan.
func (h *NodeHandle) builtinAddSyncedFolder(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var host, guest string
	create := starlark.Value(starlark.None)
	owner := starlark.Value(starlark.None)
	group := starlark.Value(starlark.None)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"host", &host, "guest", &guest, "create?", &create, "owner?", &owner, "group?", &group); err != nil {
		return nil, err
	}
	createGo, err := fromStarlark(create)
	if err != nil {
		return nil, err
	}
	ownerGo, err := fromStarlark(owner)
	if err != nil {
		return nil, err
	}
	groupGo, err := fromStarlark(group)
	if err != nil {
		return nil, err
	}
	h.ops = append(h.ops, compiler.AddSyncedFolder(host, guest, createGo, ownerGo, groupGo))
	return starlark.None, nil
}
