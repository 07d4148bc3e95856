// Package compiler turns a node's declarative attributes into the ordered
// sequence of typed configuration operations consumed by a backend.
//
// Operations are data-carrying tagged values: the compiler never resolves
// an attribute key against a backend property table, it only records the
// (target, key, value) triple and lets the backend interpret it at the
// boundary.
package compiler

import (
	"github.com/flotilla-vm/flotilla/internal/document"
)

// Kind identifies the operation variant.
type Kind string

const (
	KindSetBox                  Kind = "set-box"
	KindSetBoxURL               Kind = "set-box-url"
	KindSetHostname             Kind = "set-hostname"
	KindSetAutostart            Kind = "set-autostart"
	KindAddNetwork              Kind = "add-network"
	KindAddForwardedPort        Kind = "add-forwarded-port"
	KindAddSyncedFolder         Kind = "add-synced-folder"
	KindSetProvisionerProperty  Kind = "set-provisioner-property"
	KindSetProvisionerArguments Kind = "set-provisioner-arguments"
	KindSetProviderProperty     Kind = "set-provider-property"
)

// Op is a single configuration operation. Only the fields relevant to the
// Kind are populated; the rest stay at their zero value.
type Op struct {
	Kind Kind `json:"op" yaml:"op"`

	// Target is the network, provisioner, or provider type the operation
	// addresses. Unrecognized type strings pass through uninterpreted.
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	// Key and Value carry a single named setting.
	Key   string `json:"key,omitempty" yaml:"key,omitempty"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`

	// Params carries an opaque parameter mapping (networks, forwarded
	// ports).
	Params *document.Mapping `json:"params,omitempty" yaml:"params,omitempty"`

	// Args carries a flattened provisioner argument vector.
	Args []any `json:"args,omitempty" yaml:"args,omitempty"`

	// Synced folder fields. Create, Owner, and Group pass through exactly
	// as declared; absent means nil, never a default.
	Host   string `json:"host,omitempty" yaml:"host,omitempty"`
	Guest  string `json:"guest,omitempty" yaml:"guest,omitempty"`
	Create any    `json:"create,omitempty" yaml:"create,omitempty"`
	Owner  any    `json:"owner,omitempty" yaml:"owner,omitempty"`
	Group  any    `json:"group,omitempty" yaml:"group,omitempty"`
}

// SetBox sets the node's box name.
func SetBox(name any) Op {
	return Op{Kind: KindSetBox, Value: name}
}

// SetBoxURL sets the box source URL resolved from the box catalog.
func SetBoxURL(url any) Op {
	return Op{Kind: KindSetBoxURL, Value: url}
}

// SetHostname sets the node's hostname. The value may be nil when the
// attribute is absent; it is passed through, not defaulted.
func SetHostname(hostname any) Op {
	return Op{Kind: KindSetHostname, Value: hostname}
}

// SetAutostart sets whether the node starts with the host.
func SetAutostart(v any) Op {
	return Op{Kind: KindSetAutostart, Value: v}
}

// AddNetwork attaches a network of the given type. Params is nil when the
// declaration carries no parameters.
func AddNetwork(netType string, params *document.Mapping) Op {
	return Op{Kind: KindAddNetwork, Target: netType, Params: params}
}

// AddForwardedPort declares a forwarded port from its normalized
// parameters.
func AddForwardedPort(params *document.Mapping) Op {
	return Op{Kind: KindAddForwardedPort, Params: params}
}

// AddSyncedFolder declares a synced folder.
func AddSyncedFolder(host, guest string, create, owner, group any) Op {
	return Op{Kind: KindAddSyncedFolder, Host: host, Guest: guest, Create: create, Owner: owner, Group: group}
}

// SetProvisionerProperty sets one named property on a provisioner.
func SetProvisionerProperty(provType, key string, value any) Op {
	return Op{Kind: KindSetProvisionerProperty, Target: provType, Key: key, Value: value}
}

// SetProvisionerArguments sets a provisioner's flattened argument vector.
func SetProvisionerArguments(provType string, args []any) Op {
	return Op{Kind: KindSetProvisionerArguments, Target: provType, Args: args}
}

// SetProviderProperty sets one named property on a provider.
func SetProviderProperty(provider, key string, value any) Op {
	return Op{Kind: KindSetProviderProperty, Target: provider, Key: key, Value: value}
}

// NodePlan is the compiled operation sequence for one node, in emission
// order.
type NodePlan struct {
	Name string `json:"name" yaml:"name"`
	Ops  []Op   `json:"operations" yaml:"operations"`
}
