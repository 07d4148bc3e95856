package libvirt

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/flotilla-vm/flotilla/internal/cloudinit"
	"github.com/flotilla-vm/flotilla/internal/compiler"
	"github.com/flotilla-vm/flotilla/internal/naming"
)

// Adapter materializes compiled node plans as libvirt domains. It
// satisfies the backend interface consumed by the fleet orchestrator.
type Adapter struct {
	client   *Client
	imageDir string
}

// NewAdapter wraps a connected client. imageDir is where backing images
// live and seed ISOs are written; empty means BaseImagePath.
func NewAdapter(client *Client, imageDir string) *Adapter {
	if imageDir == "" {
		imageDir = BaseImagePath
	}
	return &Adapter{client: client, imageDir: imageDir}
}

// Version reports the daemon's library version.
func (a *Adapter) Version(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return a.client.Version()
}

// InstalledPlugins reports no plugins: libvirt has no plugin mechanism,
// so every required plugin is treated as missing and handed to
// InstallPlugin.
func (a *Adapter) InstalledPlugins(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

// InstallPlugin acknowledges a plugin requirement. The libvirt backend
// has nothing to install, so the requirement is logged and satisfied.
func (a *Adapter) InstallPlugin(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Printf("plugin %q requested; libvirt backend has no plugin mechanism, continuing", name)
	return nil
}

// Apply materializes one node: generates the seed ISO, writes it next to
// the backing images, defines the domain, and starts it.
func (a *Adapter) Apply(ctx context.Context, plan *compiler.NodePlan) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	seed, err := cloudinit.SeedFromPlan(plan)
	if err != nil {
		return fmt.Errorf("failed to build seed for node %s: %w", plan.Name, err)
	}

	isoBytes, err := seed.GenerateISO()
	if err != nil {
		return fmt.Errorf("failed to generate seed ISO for node %s: %w", plan.Name, err)
	}

	isoPath := filepath.Join(a.imageDir, naming.SeedISOName(plan.Name))
	if err := os.WriteFile(isoPath, isoBytes, 0o644); err != nil {
		return fmt.Errorf("failed to write seed ISO for node %s: %w", plan.Name, err)
	}

	for _, op := range plan.Ops {
		if op.Kind != compiler.KindAddForwardedPort || op.Params == nil {
			continue
		}
		// Bridged interfaces are reachable directly; forwarded ports have
		// no libvirt equivalent to configure.
		guest, _ := op.Params.Get("guest")
		host, _ := op.Params.Get("host")
		log.Printf("node %s: forwarded port guest=%v host=%v has no effect on the libvirt backend", plan.Name, guest, host)
	}

	xml, err := GenerateDomainXML(plan, a.imageDir)
	if err != nil {
		return fmt.Errorf("failed to build domain for node %s: %w", plan.Name, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	dom, err := a.client.Libvirt().DomainDefineXML(xml)
	if err != nil {
		return fmt.Errorf("failed to define domain %s: %w", plan.Name, err)
	}

	autostart := int32(0)
	if settingsFromPlan(plan).autostart {
		autostart = 1
	}
	if err := a.client.Libvirt().DomainSetAutostart(dom, autostart); err != nil {
		return fmt.Errorf("failed to set autostart for domain %s: %w", plan.Name, err)
	}

	if err := a.client.Libvirt().DomainCreate(dom); err != nil {
		return fmt.Errorf("failed to start domain %s: %w", plan.Name, err)
	}

	log.Printf("node %s: domain defined and started", plan.Name)
	return nil
}

// Close releases the libvirt connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}
