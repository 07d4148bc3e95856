package libvirt

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"libvirt.org/go/libvirtxml"

	"github.com/flotilla-vm/flotilla/internal/compiler"
	"github.com/flotilla-vm/flotilla/internal/naming"
)

const (
	// BaseImagePath is the default directory for backing images and seed
	// ISOs.
	BaseImagePath = "/var/lib/libvirt/images"

	// DefaultBridge receives interfaces whose network declaration names no
	// bridge of its own.
	DefaultBridge = "virbr0"

	defaultMemoryMiB = 1024
	defaultVCPUs     = 1
)

// domainSettings is the subset of a node's operations the domain XML
// depends on, folded into one place. Later operations win, so hook
// overrides take effect the same way provider tuning does.
type domainSettings struct {
	box       string
	title     string
	machine   string
	memoryMiB uint
	vcpus     uint
	autostart bool

	interfaces []networkInterface
	folders    []syncedFolder
}

type networkInterface struct {
	ip     string
	bridge string
}

type syncedFolder struct {
	host  string
	guest string
}

// settingsFromPlan walks the plan once and extracts everything the
// domain definition needs.
func settingsFromPlan(plan *compiler.NodePlan) domainSettings {
	s := domainSettings{
		title:     plan.Name,
		memoryMiB: defaultMemoryMiB,
		vcpus:     defaultVCPUs,
	}

	for _, op := range plan.Ops {
		switch op.Kind {
		case compiler.KindSetBox:
			if box, ok := op.Value.(string); ok {
				s.box = box
			}

		case compiler.KindSetAutostart:
			if v, ok := op.Value.(bool); ok {
				s.autostart = v
			}

		case compiler.KindSetProviderProperty:
			if op.Target != compiler.ProviderLibvirt {
				continue
			}
			switch op.Key {
			case "title":
				if title, ok := op.Value.(string); ok {
					s.title = title
				}
			case "machine":
				if machine, ok := op.Value.(string); ok {
					s.machine = machine
				}
			case "memory":
				if mem, ok := asUint(op.Value); ok {
					s.memoryMiB = mem
				}
			case "cpus":
				if cpus, ok := asUint(op.Value); ok {
					s.vcpus = cpus
				}
			}

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
			iface := networkInterface{ip: address, bridge: DefaultBridge}
			if bridge, ok := op.Params.Get("bridge"); ok {
				if name, ok := bridge.(string); ok && name != "" {
					iface.bridge = name
				}
			}
			s.interfaces = append(s.interfaces, iface)

		case compiler.KindAddSyncedFolder:
			s.folders = append(s.folders, syncedFolder{host: op.Host, guest: op.Guest})
		}
	}

	return s
}

// asUint coerces YAML's scalar integer representations.
func asUint(v any) (uint, bool) {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	case uint64:
		return uint(n), true
	case float64:
		if n < 0 || n != float64(uint(n)) {
			return 0, false
		}
		return uint(n), true
	}
	return 0, false
}

// GenerateDomainXML builds the libvirt domain definition for a compiled
// node plan. imageDir is the directory holding the backing image and the
// node's seed ISO; pass BaseImagePath for the standard layout.
func GenerateDomainXML(plan *compiler.NodePlan, imageDir string) (string, error) {
	s := settingsFromPlan(plan)
	if s.box == "" {
		return "", fmt.Errorf("node %s declares no box; nothing to boot", plan.Name)
	}
	if imageDir == "" {
		imageDir = BaseImagePath
	}

	domain := &libvirtxml.Domain{
		Type:  "kvm",
		Name:  plan.Name,
		Title: s.title,
		UUID:  uuid.NewString(),
		Memory: &libvirtxml.DomainMemory{
			Value: s.memoryMiB,
			Unit:  "MiB",
		},
		VCPU: &libvirtxml.DomainVCPU{
			Placement: "static",
			Value:     s.vcpus,
		},
		OS: &libvirtxml.DomainOS{
			Type: &libvirtxml.DomainOSType{
				Arch:    "x86_64",
				Machine: s.machine,
				Type:    "hvm",
			},
		},
		Features: &libvirtxml.DomainFeatureList{
			ACPI: &libvirtxml.DomainFeature{},
			APIC: &libvirtxml.DomainFeatureAPIC{},
		},
		CPU: &libvirtxml.DomainCPU{
			Mode: "host-model",
			Model: &libvirtxml.DomainCPUModel{
				Fallback: "allow",
			},
		},
		Clock: &libvirtxml.DomainClock{
			Offset: "utc",
			Timer: []libvirtxml.DomainTimer{
				{Name: "rtc", TickPolicy: "catchup"},
				{Name: "pit", TickPolicy: "delay"},
				{Name: "hpet", Present: "no"},
			},
		},
		OnPoweroff: "destroy",
		OnReboot:   "restart",
		OnCrash:    "restart",
		Devices: &libvirtxml.DomainDeviceList{
			MemBalloon: &libvirtxml.DomainMemBalloon{
				Model: "virtio",
			},
			RNGs: []libvirtxml.DomainRNG{
				{
					Model: "virtio",
					Backend: &libvirtxml.DomainRNGBackend{
						Random: &libvirtxml.DomainRNGBackendRandom{
							Device: "/dev/urandom",
						},
					},
				},
			},
		},
	}

	bootDisk := libvirtxml.DomainDisk{
		Device: "disk",
		Driver: &libvirtxml.DomainDiskDriver{
			Name:  "qemu",
			Type:  "qcow2",
			Cache: "none",
		},
		Source: &libvirtxml.DomainDiskSource{
			File: &libvirtxml.DomainDiskSourceFile{
				File: filepath.Join(imageDir, naming.ImageName(s.box)),
			},
		},
		Target: &libvirtxml.DomainDiskTarget{
			Dev: "vda",
			Bus: "virtio",
		},
		Boot: &libvirtxml.DomainDeviceBoot{
			Order: 1,
		},
	}
	domain.Devices.Disks = append(domain.Devices.Disks, bootDisk)

	seedISO := libvirtxml.DomainDisk{
		Device: "cdrom",
		Driver: &libvirtxml.DomainDiskDriver{
			Name: "qemu",
			Type: "raw",
		},
		Source: &libvirtxml.DomainDiskSource{
			File: &libvirtxml.DomainDiskSourceFile{
				File: filepath.Join(imageDir, naming.SeedISOName(plan.Name)),
			},
		},
		Target: &libvirtxml.DomainDiskTarget{
			Dev: "sda",
			Bus: "sata",
		},
		ReadOnly: &libvirtxml.DomainDiskReadOnly{},
	}
	domain.Devices.Disks = append(domain.Devices.Disks, seedISO)

	for _, iface := range s.interfaces {
		macAddr, err := naming.MACFromIP(iface.ip)
		if err != nil {
			return "", fmt.Errorf("failed to calculate MAC address for %s: %w", iface.ip, err)
		}
		ifaceName, err := naming.InterfaceNameFromIP(iface.ip)
		if err != nil {
			return "", fmt.Errorf("failed to calculate interface name for %s: %w", iface.ip, err)
		}

		domain.Devices.Interfaces = append(domain.Devices.Interfaces, libvirtxml.DomainInterface{
			MAC: &libvirtxml.DomainInterfaceMAC{
				Address: macAddr,
			},
			Source: &libvirtxml.DomainInterfaceSource{
				Bridge: &libvirtxml.DomainInterfaceSourceBridge{
					Bridge: iface.bridge,
				},
			},
			Model: &libvirtxml.DomainInterfaceModel{
				Type: "virtio",
			},
			Target: &libvirtxml.DomainInterfaceTarget{
				Dev: ifaceName,
			},
		})
	}

	// Synced folders ride on virtio-9p. The guest path doubles as the
	// mount tag, so the guest can mount each share where it was declared.
	for _, folder := range s.folders {
		domain.Devices.Filesystems = append(domain.Devices.Filesystems, libvirtxml.DomainFilesystem{
			AccessMode: "mapped",
			Driver: &libvirtxml.DomainFilesystemDriver{
				Type: "path",
			},
			Source: &libvirtxml.DomainFilesystemSource{
				Mount: &libvirtxml.DomainFilesystemSourceMount{
					Dir: folder.host,
				},
			},
			Target: &libvirtxml.DomainFilesystemTarget{
				Dir: folder.guest,
			},
		})
	}

	domain.Devices.Serials = []libvirtxml.DomainSerial{
		{
			Source: &libvirtxml.DomainChardevSource{
				Pty: &libvirtxml.DomainChardevSourcePty{},
			},
			Target: &libvirtxml.DomainSerialTarget{
				Port: func() *uint { p := uint(0); return &p }(),
			},
		},
	}
	domain.Devices.Consoles = []libvirtxml.DomainConsole{
		{
			Source: &libvirtxml.DomainChardevSource{
				Pty: &libvirtxml.DomainChardevSourcePty{},
			},
			Target: &libvirtxml.DomainConsoleTarget{
				Type: "serial",
				Port: func() *uint { p := uint(0); return &p }(),
			},
		},
	}

	xml, err := domain.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal domain XML: %w", err)
	}

	return xml, nil
}
