package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flotilla-vm/flotilla/internal/fleet"
	"github.com/flotilla-vm/flotilla/internal/hooks"
	"github.com/flotilla-vm/flotilla/internal/libvirt"
	"github.com/flotilla-vm/flotilla/internal/output"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	configPath string
	localPath  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "flotilla",
	Short: "Flotilla - declarative multi-VM fleet compiler",
	Long: `Flotilla compiles a layered YAML description of a VM fleet into
ordered configuration operations and applies them through a
virtualization backend.

The primary config file describes boxes, nodes, and required plugins;
an optional local override file is deep-merged on top before anything
compiles.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "flotilla.yaml", "primary config file")
	rootCmd.PersistentFlags().StringVar(&localPath, "local", "flotilla.local.yaml", "local override file (ignored if absent)")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(testConnCmd)
}

func fleetOptions() fleet.Options {
	return fleet.Options{ConfigPath: configPath, LocalPath: localPath}
}

var (
	upSocket   string
	upImageDir string
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Compile the fleet and apply it to the backend",
	Long: `Load and merge the configuration, run backend preflight (version
constraint, required plugins), compile every node in declaration
order, dispatch hooks, and apply each node's operations.

The first failure aborts the run; nodes already applied stay applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := libvirt.Connect(upSocket, 5*time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect to libvirt: %w", err)
		}

		adapter := libvirt.NewAdapter(client, upImageDir)
		defer func() {
			if closeErr := adapter.Close(); closeErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close libvirt connection: %v\n", closeErr)
			}
		}()

		return fleet.Up(context.Background(), fleetOptions(), adapter)
	},
}

var compileFormat string

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile the fleet and print the operation plans",
	Long: `Load, merge, and validate the configuration, compile every node,
dispatch hooks, and print the resulting operation plans without
touching the backend.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(compileFormat); err != nil {
			return err
		}

		cfg, err := fleet.LoadConfig(fleetOptions())
		if err != nil {
			return err
		}

		registry, err := hooks.LoadDir(cfg.HooksDir())
		if err != nil {
			return err
		}

		plans, err := fleet.CompilePlans(cfg, registry)
		if err != nil {
			return err
		}

		formatter, err := output.NewFormatter(output.Options{Format: output.Format(compileFormat)})
		if err != nil {
			return err
		}

		text, err := formatter.FormatPlanList(plans)
		if err != nil {
			return err
		}

		fmt.Print(text)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the merged configuration",
	Long: `Load and merge the configuration and run validation. Exits
non-zero if the merged document violates a structural rule.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := fleet.LoadConfig(fleetOptions()); err != nil {
			return err
		}

		fmt.Println("Configuration is valid")
		return nil
	},
}

var testConnSocket string

var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test the libvirt connection",
	Long:  `Test connectivity to the libvirt daemon and display version information.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Testing libvirt connection...")

		client, err := libvirt.Connect(testConnSocket, 5*time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect to libvirt: %w", err)
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close libvirt connection: %v\n", closeErr)
			}
		}()

		fmt.Println("✓ Connected to libvirt daemon")

		if err := client.Ping(); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}

		daemonVersion, err := client.Version()
		if err != nil {
			return err
		}
		fmt.Printf("✓ Libvirt version: %s\n", daemonVersion)

		hostname, err := client.Libvirt().ConnectGetHostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		fmt.Printf("✓ Hypervisor hostname: %s\n", hostname)

		fmt.Println("\nConnection test successful!")
		return nil
	},
}

func init() {
	upCmd.Flags().StringVar(&upSocket, "socket", "", "libvirt socket path (default /var/run/libvirt/libvirt-sock)")
	upCmd.Flags().StringVar(&upImageDir, "image-dir", "", "directory holding backing images and seed ISOs")
	compileCmd.Flags().StringVarP(&compileFormat, "output", "o", "table", "output format (table, yaml, json)")
	testConnCmd.Flags().StringVar(&testConnSocket, "socket", "", "libvirt socket path (default /var/run/libvirt/libvirt-sock)")
}
