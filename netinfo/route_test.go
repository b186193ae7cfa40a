package netinfo

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const procRoute = `Iface	Destination	Gateway 	Flags	RefCnt	Use	Metric	Mask		MTU	Window	IRTT
wlan0	0000A8C0	00000000	0001	0	0	600	00FFFFFF	0	0	0
wlan0	00000000	0101A8C0	0003	0	0	600	00000000	0	0	0
`

func TestParseProcRoute(t *testing.T) {
	route, err := parseProcRoute(procRoute)
	require.NoError(t, err)
	assert.Equal(t, "wlan0", route.Interface)
	assert.True(t, route.Gateway.Equal(net.IPv4(192, 168, 1, 1)))
	assert.Equal(t, "wlan0 via 192.168.1.1", route.String())
}

func TestParseProcRouteWithoutDefault(t *testing.T) {
	_, err := parseProcRoute("Iface\tDestination\n")
	assert.Error(t, err)

	_, err = parseProcRoute("")
	assert.Error(t, err)
}

func TestParseIPRoute(t *testing.T) {
	route, err := parseIPRoute("default via 10.10.0.1 dev eth0 proto dhcp src 10.10.3.4 metric 100\n")
	require.NoError(t, err)
	assert.Equal(t, "eth0", route.Interface)
	assert.Equal(t, "10.10.0.1", route.Gateway.String())

	route, err = parseIPRoute("default dev ppp0 scope link")
	require.NoError(t, err)
	assert.Equal(t, "ppp0", route.String())

	_, err = parseIPRoute("")
	assert.Error(t, err)
}

func TestIsWireless(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "wlan0", "wireless"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "eth0"), 0o755))

	old := sysClassNet
	sysClassNet = root
	t.Cleanup(func() { sysClassNet = old })

	assert.True(t, IsWireless("wlan0"))
	assert.False(t, IsWireless("eth0"))
	assert.False(t, IsWireless("lo"))
	assert.False(t, IsWireless(""))
}
