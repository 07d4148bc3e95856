// Package naming provides deterministic naming for backend network
// resources: MAC addresses and tap interface names derived from a node's
// static IP, and the on-disk names for a node's image and seed artifacts.
//
// Deriving names from the IP keeps repeated runs idempotent: the same
// declared address always maps to the same MAC and interface, so a
// recompiled node reattaches to the network it had before.
package naming

import (
	"fmt"
	"net"
	"strings"
)

// parseIPv4 accepts "10.1.2.3" or "10.1.2.3/24" and returns the four
// address octets.
func parseIPv4(ip string) (net.IP, error) {
	ipStr := ip
	if strings.Contains(ip, "/") {
		ipAddr, _, err := net.ParseCIDR(ip)
		if err != nil {
			return nil, fmt.Errorf("invalid IP/CIDR: %w", err)
		}
		ipStr = ipAddr.String()
	}

	parsed := net.ParseIP(ipStr)
	if parsed == nil {
		return nil, fmt.Errorf("invalid IP address: %s", ipStr)
	}
	ipv4 := parsed.To4()
	if ipv4 == nil {
		return nil, fmt.Errorf("not an IPv4 address: %s", ipStr)
	}
	return ipv4, nil
}

// MACFromIP calculates a deterministic MAC address from an IP address
// using the locally administered be:ef: prefix.
//
// Example: IP 10.55.22.22 → MAC be:ef:0a:37:16:16
func MACFromIP(ip string) (string, error) {
	ipv4, err := parseIPv4(ip)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("be:ef:%02x:%02x:%02x:%02x",
		ipv4[0], ipv4[1], ipv4[2], ipv4[3]), nil
}

// InterfaceNameFromIP calculates a deterministic tap interface name from
// an IP address. Format: vm{8 hex digits}, 10 characters, within the
// Linux 15-character interface name limit.
//
// Example: IP 10.55.22.22 → vm0a371616
func InterfaceNameFromIP(ip string) (string, error) {
	ipv4, err := parseIPv4(ip)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("vm%02x%02x%02x%02x",
		ipv4[0], ipv4[1], ipv4[2], ipv4[3]), nil
}

// ImageName returns the backing image file name for a box. Box names may
// contain slashes ("ubuntu/focal64"); they are folded to hyphens so the
// name stays a single path element.
func ImageName(box string) string {
	return fmt.Sprintf("%s.qcow2", strings.ReplaceAll(box, "/", "-"))
}

// SeedISOName returns the seed ISO file name for a node.
func SeedISOName(node string) string {
	return fmt.Sprintf("%s_seed.iso", node)
}
