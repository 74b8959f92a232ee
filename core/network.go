package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"golang.org/x/net/nettest"
)

var ErrNoNetwork = errors.New("no usable IPv4 network")

// Network is one local IPv4 interface address.
type Network struct {
	Name    string
	IP      net.IP
	Netmask net.IPMask
}

func (n Network) String() string {
	ones, _ := n.Netmask.Size()
	return fmt.Sprintf("%s %s/%d", n.Name, n.IP, ones)
}

// LocalNetworks lists external IPv4 addresses in private ranges.
func LocalNetworks() ([]Network, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var networks []Network
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		networks = append(networks, interfaceNetworks(iface)...)
	}

	return networks, nil
}

// DefaultNetwork returns the first private IPv4 address of the interface the
// system would route through, falling back to the first local network.
func DefaultNetwork() (Network, error) {
	iface, err := nettest.RoutedInterface("ip4", net.FlagUp|net.FlagBroadcast)
	if err == nil {
		if networks := interfaceNetworks(*iface); len(networks) > 0 {
			return networks[0], nil
		}
	}

	networks, err := LocalNetworks()
	if err != nil {
		return Network{}, err
	}

	if len(networks) == 0 {
		return Network{}, ErrNoNetwork
	}

	return networks[0], nil
}

func interfaceNetworks(iface net.Interface) []Network {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil
	}

	var networks []Network
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		ip := ipnet.IP.To4()
		if ip == nil || !ip.IsPrivate() {
			continue
		}

		mask := ipnet.Mask
		if len(mask) == net.IPv6len {
			mask = mask[12:]
		}

		networks = append(networks, Network{Name: iface.Name, IP: ip, Netmask: mask})
	}

	return networks
}

// scanRange returns the first usable address of the network and the exclusive
// upper bound of the scan: the broadcast address or first + maxScan,
// whichever comes first.
func scanRange(ip net.IP, mask net.IPMask, maxScan int) (first, end uint32, err error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0, 0, fmt.Errorf("%w: %s is not IPv4", ErrNoNetwork, ip)
	}

	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return 0, 0, fmt.Errorf("%w: bad netmask %s", ErrNoNetwork, mask)
	}

	addr := binary.BigEndian.Uint32(ip4)
	m := binary.BigEndian.Uint32(mask)

	network := addr & m
	broadcast := network | ^m

	first = network + 1
	if first > broadcast {
		return 0, 0, fmt.Errorf("%w: %s has no host addresses", ErrNoNetwork, ip)
	}

	end = broadcast
	if limit := uint64(first) + uint64(maxScan); limit < uint64(end) {
		end = uint32(limit)
	}

	return first, end, nil
}

func uint32ToIP(n uint32) net.IP {
	ip := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(ip, n)
	return ip
}
