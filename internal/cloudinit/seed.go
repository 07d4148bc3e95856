// Package cloudinit generates the NoCloud seed that carries a node's
// hostname, shell provisioning commands, and static network layout into
// the guest.
//
// The seed is derived from a node's compiled operation sequence, not from
// the raw document: the compiler already resolved what the node wants,
// this package only translates the relevant operations into cloud-init's
// file formats.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
package cloudinit

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/flotilla-vm/flotilla/internal/compiler"
	"github.com/flotilla-vm/flotilla/internal/naming"
)

// Seed holds everything that goes into a node's NoCloud seed ISO.
type Seed struct {
	// Hostname for the guest. Falls back to the node name when the plan
	// carries no usable hostname.
	Hostname string

	// InstanceID marks the boot as fresh for cloud-init. A new ID per
	// compilation run means provisioners re-run on recreate.
	InstanceID string

	// Commands are the shell provisioner command lines, in plan order.
	Commands []string

	// Interfaces are the static network interfaces declared by the plan.
	Interfaces []Interface
}

// Interface is one static network interface carried into the guest's
// netplan configuration.
type Interface struct {
	Address    string
	MACAddress string
}

// SeedFromPlan derives a seed from a node's compiled operations.
//
// Hostname comes from the set-hostname operation; shell provisioner
// inline/path properties and argument vectors become runcmd entries;
// private networks with a static ip parameter become netplan interfaces.
// Non-shell provisioners are ignored here; they belong to other backends.
func SeedFromPlan(plan *compiler.NodePlan) (*Seed, error) {
	seed := &Seed{
		Hostname:   plan.Name,
		InstanceID: uuid.NewString(),
	}

	// Index of the last runcmd entry per provisioner occurrence, so an
	// arguments operation extends the command it belongs to.
	lastCommand := -1

	for _, op := range plan.Ops {
		switch op.Kind {
		case compiler.KindSetHostname:
			if hostname, ok := op.Value.(string); ok && hostname != "" {
				seed.Hostname = hostname
			}

		case compiler.KindSetProvisionerProperty:
			if op.Target != "shell" {
				continue
			}
			switch op.Key {
			case "inline":
				if cmd, ok := op.Value.(string); ok {
					seed.Commands = append(seed.Commands, cmd)
					lastCommand = len(seed.Commands) - 1
				}
			case "path":
				if path, ok := op.Value.(string); ok {
					seed.Commands = append(seed.Commands, "sh "+path)
					lastCommand = len(seed.Commands) - 1
				}
			}

		case compiler.KindSetProvisionerArguments:
			if op.Target != "shell" || lastCommand < 0 || len(op.Args) == 0 {
				continue
			}
			args := make([]string, len(op.Args))
			for i, arg := range op.Args {
				args[i] = fmt.Sprint(arg)
			}
			seed.Commands[lastCommand] += " " + strings.Join(args, " ")

		case compiler.KindAddNetwork:
			if op.Target != "private_network" || op.Params == nil {
				continue
			}
			ip, ok := op.Params.Get("ip")
			if !ok {
				continue
			}
			address, ok := ip.(string)
			if !ok {
				continue
			}
			mac, err := naming.MACFromIP(address)
			if err != nil {
				return nil, fmt.Errorf("network for node %s: %w", plan.Name, err)
			}
			seed.Interfaces = append(seed.Interfaces, Interface{
				Address:    withCIDR(address),
				MACAddress: mac,
			})
		}
	}

	return seed, nil
}

// withCIDR ensures the address carries a prefix length; a bare address
// gets /24, matching the conventional host network layout.
func withCIDR(address string) string {
	if strings.Contains(address, "/") {
		return address
	}
	return address + "/24"
}

// userData is the cloud-config structure marshaled into user-data.
type userData struct {
	Hostname string   `yaml:"hostname"`
	FQDN     string   `yaml:"fqdn,omitempty"`
	RunCmd   []string `yaml:"runcmd,omitempty"`
}

// metaData is the NoCloud meta-data structure.
type metaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

// networkConfig is the netplan v2 structure marshaled into
// network-config.
type networkConfig struct {
	Version   int                       `yaml:"version"`
	Ethernets map[string]ethernetConfig `yaml:"ethernets"`
}

type ethernetConfig struct {
	Match     matchConfig `yaml:"match"`
	Addresses []string    `yaml:"addresses"`
}

type matchConfig struct {
	MACAddress string `yaml:"macaddress"`
}

// GenerateUserData renders the user-data file, including the
// #cloud-config header cloud-init requires.
func (s *Seed) GenerateUserData() (string, error) {
	ud := userData{
		Hostname: s.Hostname,
		RunCmd:   s.Commands,
	}
	if strings.Contains(s.Hostname, ".") {
		ud.Hostname = strings.SplitN(s.Hostname, ".", 2)[0]
		ud.FQDN = s.Hostname
	}

	data, err := yaml.Marshal(&ud)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user-data: %w", err)
	}
	return "#cloud-config\n" + string(data), nil
}

// GenerateMetaData renders the meta-data file.
func (s *Seed) GenerateMetaData() (string, error) {
	md := metaData{
		InstanceID:    s.InstanceID,
		LocalHostname: s.Hostname,
	}
	data, err := yaml.Marshal(&md)
	if err != nil {
		return "", fmt.Errorf("failed to marshal meta-data: %w", err)
	}
	return string(data), nil
}

// GenerateNetworkConfig renders the netplan v2 network-config file, or
// an empty string when the seed declares no static interfaces.
func (s *Seed) GenerateNetworkConfig() (string, error) {
	if len(s.Interfaces) == 0 {
		return "", nil
	}

	nc := networkConfig{
		Version:   2,
		Ethernets: make(map[string]ethernetConfig, len(s.Interfaces)),
	}
	for i, iface := range s.Interfaces {
		nc.Ethernets[fmt.Sprintf("eth%d", i)] = ethernetConfig{
			Match:     matchConfig{MACAddress: iface.MACAddress},
			Addresses: []string{iface.Address},
		}
	}

	data, err := yaml.Marshal(&nc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal network-config: %w", err)
	}
	return string(data), nil
}
