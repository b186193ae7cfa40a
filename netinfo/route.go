// Package netinfo reports which interface and gateway carry the default route.
package netinfo

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// sysClassNet lists network interfaces on Linux.
var sysClassNet = "/sys/class/net"

// Route is the default IPv4 route.
type Route struct {
	Interface string
	Gateway   net.IP
	// Wireless is set when the interface is an 802.11 device.
	Wireless bool
}

func (r Route) String() string {
	if r.Gateway == nil {
		return r.Interface
	}
	return fmt.Sprintf("%s via %s", r.Interface, r.Gateway)
}

// DefaultRoute reads the default route from /proc/net/route, falling back to
// `ip route show default` where procfs is not available.
func DefaultRoute(ctx context.Context) (Route, error) {
	route, err := defaultRoute(ctx)
	if err != nil {
		return Route{}, err
	}
	route.Wireless = IsWireless(route.Interface)
	return route, nil
}

func defaultRoute(ctx context.Context) (Route, error) {
	if data, err := os.ReadFile("/proc/net/route"); err == nil {
		return parseProcRoute(string(data))
	}

	output, err := exec.CommandContext(ctx, "ip", "route", "show", "default").Output()
	if err != nil {
		return Route{}, fmt.Errorf("failed to get default route: %w", err)
	}
	return parseIPRoute(string(output))
}

// IsWireless reports whether the interface has a wireless directory in sysfs.
func IsWireless(ifname string) bool {
	if ifname == "" || ifname == "lo" {
		return false
	}
	_, err := os.Stat(filepath.Join(sysClassNet, ifname, "wireless"))
	return err == nil
}

// parseProcRoute extracts the default route from /proc/net/route content.
// Destination and mask are 0 for the default route; addresses are
// little-endian hex.
func parseProcRoute(data string) (Route, error) {
	lines := strings.Split(data, "\n")
	if len(lines) < 2 {
		return Route{}, fmt.Errorf("no routes")
	}

	// First line is a header
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 8 {
			continue
		}
		if fields[1] != "00000000" || fields[7] != "00000000" {
			continue
		}

		route := Route{Interface: fields[0]}
		if gw, err := hex.DecodeString(fields[2]); err == nil && len(gw) == 4 {
			ip := make(net.IP, 4)
			binary.BigEndian.PutUint32(ip, binary.LittleEndian.Uint32(gw))
			if !ip.Equal(net.IPv4zero) {
				route.Gateway = ip
			}
		}
		return route, nil
	}
	return Route{}, fmt.Errorf("no default route")
}

// parseIPRoute parses output such as
// "default via 192.168.1.1 dev wlan0 proto dhcp src 192.168.1.2 metric 303".
func parseIPRoute(output string) (Route, error) {
	fields := strings.Fields(output)

	var route Route
	for i := 0; i+1 < len(fields); i++ {
		switch fields[i] {
		case "dev":
			if route.Interface == "" {
				route.Interface = fields[i+1]
			}
		case "via":
			if route.Gateway == nil {
				route.Gateway = net.ParseIP(fields[i+1])
			}
		}
	}
	if route.Interface == "" {
		return Route{}, fmt.Errorf("could not find main interface in route output")
	}
	return route, nil
}
