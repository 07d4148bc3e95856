package compiler

import (
	"strings"

	"github.com/flotilla-vm/flotilla/internal/document"
)

// The three providers that always receive tuning operations, whether or
// not the node declares them.
const (
	ProviderVirtualBox    = "virtualbox"
	ProviderVMwareDesktop = "vmware_desktop"
	ProviderLibvirt       = "libvirt"
)

// Compile derives the ordered operation sequence for one node from its
// attribute mapping and the box catalog.
//
// Category order is fixed: identity, networks, forwarded ports,
// provisioners, providers, synced folders. Every category is independently
// optional; an absent attribute yields no operations for that category.
// Extension hooks run after compilation and are dispatched separately.
func Compile(name string, attrs, boxes *document.Mapping) []Op {
	if attrs == nil {
		attrs = document.NewMapping()
	}
	if boxes == nil {
		boxes = document.NewMapping()
	}

	var ops []Op
	ops = append(ops, identityOps(attrs, boxes)...)
	ops = append(ops, networkOps(attrs)...)
	ops = append(ops, forwardedPortOps(attrs)...)
	ops = append(ops, provisionerOps(attrs)...)
	ops = append(ops, providerOps(name, attrs)...)
	ops = append(ops, syncedFolderOps(attrs)...)
	return ops
}

func identityOps(attrs, boxes *document.Mapping) []Op {
	var ops []Op
	if box, ok := attrs.Get("box"); ok {
		ops = append(ops, SetBox(box))
		if boxName, ok := box.(string); ok {
			if url, ok := boxes.Get(boxName); ok {
				ops = append(ops, SetBoxURL(url))
			}
		}
	}
	// Hostname is emitted unconditionally; an absent attribute passes
	// through as nil rather than being defaulted.
	hostname, _ := attrs.Get("hostname")
	ops = append(ops, SetHostname(hostname))
	if autostart, ok := attrs.Get("autostart"); ok {
		ops = append(ops, SetAutostart(autostart))
	}
	return ops
}

func networkOps(attrs *document.Mapping) []Op {
	var ops []Op
	for _, entry := range sequence(attrs, "networks") {
		decl, ok := document.AsMapping(entry)
		if !ok {
			continue
		}
		for _, netType := range decl.Keys() {
			raw, _ := decl.Get(netType)
			params, _ := document.AsMapping(raw)
			ops = append(ops, AddNetwork(netType, params))
		}
	}
	return ops
}

func forwardedPortOps(attrs *document.Mapping) []Op {
	var ops []Op
	for _, entry := range sequence(attrs, "forwarded_ports") {
		params, ok := document.AsMapping(entry)
		if !ok {
			continue
		}
		ops = append(ops, AddForwardedPort(normalizeKeys(params)))
	}
	return ops
}

// normalizeKeys converts string parameter keys to their normalized form:
// lowercase with hyphens folded to underscores. Shallow only; values are
// untouched.
func normalizeKeys(params *document.Mapping) *document.Mapping {
	out := document.NewMapping()
	for _, key := range params.Keys() {
		v, _ := params.Get(key)
		normalized := strings.ReplaceAll(strings.ToLower(key), "-", "_")
		out.Set(normalized, v)
	}
	return out
}

// argumentsKey is reserved inside provisioner parameter mappings; its
// value is flattened by the argument normalizer instead of being set as a
// plain property.
const argumentsKey = "arguments"

func provisionerOps(attrs *document.Mapping) []Op {
	var ops []Op
	for _, entry := range sequence(attrs, "provisioners") {
		decl, ok := document.AsMapping(entry)
		if !ok {
			continue
		}
		for _, provType := range decl.Keys() {
			raw, _ := decl.Get(provType)
			params, ok := document.AsMapping(raw)
			if !ok {
				continue
			}
			for _, key := range params.Keys() {
				value, _ := params.Get(key)
				if key == argumentsKey {
					ops = append(ops, SetProvisionerArguments(provType, normalizeArguments(value)))
					continue
				}
				ops = append(ops, SetProvisionerProperty(provType, key, value))
			}
		}
	}
	return ops
}

func providerOps(name string, attrs *document.Mapping) []Op {
	var ops []Op
	if raw, ok := attrs.Get("providers"); ok {
		if providers, ok := document.AsMapping(raw); ok {
			for _, provider := range providers.Keys() {
				rawParams, _ := providers.Get(provider)
				params, ok := document.AsMapping(rawParams)
				if !ok {
					continue
				}
				for _, key := range params.Keys() {
					value, _ := params.Get(key)
					ops = append(ops, SetProviderProperty(provider, key, value))
				}
			}
		}
	}
	return append(ops, tuningOps(name, attrs)...)
}

// tuningOps emits display name, memory, and CPU tuning for all three
// known providers regardless of what the node's providers section
// declares. This mirrors long-standing behavior and is likely broader
// than intended (a libvirt tuning call is emitted even for a node that
// will only ever run under virtualbox); it is preserved as-is, and since
// these follow the user's own provider entries, the tuning value wins
// when the backend applies operations in order.
func tuningOps(name string, attrs *document.Mapping) []Op {
	memory, _ := attrs.Get("memory")
	cpus, _ := attrs.Get("cpus")

	ops := []Op{
		SetProviderProperty(ProviderVirtualBox, "name", name),
		SetProviderProperty(ProviderVirtualBox, "memory", memory),
		SetProviderProperty(ProviderVirtualBox, "cpus", cpus),
		SetProviderProperty(ProviderVMwareDesktop, "displayname", name),
		SetProviderProperty(ProviderVMwareDesktop, "memsize", memory),
		SetProviderProperty(ProviderVMwareDesktop, "numvcpus", cpus),
		SetProviderProperty(ProviderLibvirt, "title", name),
		SetProviderProperty(ProviderLibvirt, "memory", memory),
		SetProviderProperty(ProviderLibvirt, "cpus", cpus),
	}
	if chipset, ok := attrs.Get("chipset"); ok {
		ops = append(ops, SetProviderProperty(ProviderLibvirt, "machine", chipset))
	}
	return ops
}

func syncedFolderOps(attrs *document.Mapping) []Op {
	var ops []Op
	for _, entry := range sequence(attrs, "synced_folders") {
		decl, ok := document.AsMapping(entry)
		if !ok {
			continue
		}
		host, _ := decl.Get("host")
		guest, _ := decl.Get("guest")
		create, _ := decl.Get("create")
		owner, _ := decl.Get("owner")
		group, _ := decl.Get("group")
		ops = append(ops, AddSyncedFolder(stringValue(host), stringValue(guest), create, owner, group))
	}
	return ops
}

// sequence returns the named attribute as a sequence, or nil when the
// attribute is absent or not a sequence.
func sequence(attrs *document.Mapping, key string) []any {
	raw, ok := attrs.Get(key)
	if !ok {
		return nil
	}
	seq, ok := raw.([]any)
	if !ok {
		return nil
	}
	return seq
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// HookNames returns the node's declared extension hook names in order.
func HookNames(attrs *document.Mapping) []string {
	var names []string
	for _, entry := range sequence(attrs, "external_functions") {
		if name, ok := entry.(string); ok {
			names = append(names, name)
		}
	}
	return names
}
