// Package libvirt is the reference backend adapter: it connects to a
// local libvirtd over its UNIX socket, translates compiled node plans
// into domain XML, and defines and starts the resulting domains.
//
// The package has three layers:
//
//   - Client: a thin wrapper over the go-libvirt RPC connection
//     (connect, ping, version, close).
//   - GenerateDomainXML: pure translation from a node's operation
//     sequence to a libvirtxml.Domain. Provider properties for the
//     "libvirt" provider (title, memory, cpus, machine) shape the
//     definition; private networks become bridged virtio interfaces
//     with deterministic MACs; synced folders become virtio-9p shares.
//   - Adapter: the backend implementation that writes the node's seed
//     ISO and drives define/autostart/create against the daemon.
//
// Forwarded ports have no libvirt equivalent; the adapter logs and
// skips them. Plugin installation is likewise a logged no-op.
package libvirt
