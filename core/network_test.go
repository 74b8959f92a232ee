package core

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanRange(t *testing.T) {
	tests := []struct {
		name      string
		ip        string
		mask      net.IPMask
		maxScan   int
		wantFirst string
		wantEnd   string
		wantErr   bool
	}{
		{
			name:      "class c",
			ip:        "192.168.1.42",
			mask:      net.CIDRMask(24, 32),
			maxScan:   MaxScan,
			wantFirst: "192.168.1.1",
			wantEnd:   "192.168.1.255",
		},
		{
			name:      "capped by max scan",
			ip:        "10.1.2.3",
			mask:      net.CIDRMask(8, 32),
			maxScan:   1024,
			wantFirst: "10.0.0.1",
			wantEnd:   "10.0.4.1",
		},
		{
			name:      "small subnet",
			ip:        "127.0.0.5",
			mask:      net.CIDRMask(29, 32),
			maxScan:   MaxScan,
			wantFirst: "127.0.0.1",
			wantEnd:   "127.0.0.7",
		},
		{
			name:      "ipv6 length mask",
			ip:        "192.168.0.9",
			mask:      net.CIDRMask(120, 128),
			maxScan:   MaxScan,
			wantFirst: "192.168.0.1",
			wantEnd:   "192.168.0.255",
		},
		{
			name:    "host route",
			ip:      "192.168.0.9",
			mask:    net.CIDRMask(32, 32),
			maxScan: MaxScan,
			wantErr: true,
		},
		{
			name:    "ipv6 address",
			ip:      "fe80::1",
			mask:    net.CIDRMask(64, 128),
			maxScan: MaxScan,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, end, err := scanRange(net.ParseIP(tt.ip), tt.mask, tt.maxScan)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoNetwork)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantFirst, uint32ToIP(first).String())
			assert.Equal(t, tt.wantEnd, uint32ToIP(end).String())
		})
	}
}

func TestLocalNetworksArePrivateIPv4(t *testing.T) {
	networks, err := LocalNetworks()
	require.NoError(t, err)

	for _, n := range networks {
		assert.NotNil(t, n.IP.To4(), n.String())
		assert.True(t, n.IP.IsPrivate(), n.String())
		assert.Len(t, n.Netmask, net.IPv4len)
	}
}
