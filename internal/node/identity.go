package node

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"

	"github.com/nerrad567/domotic-core/internal/directory"
	"github.com/nerrad567/domotic-core/internal/infrastructure/config"
)

// Identity is this node's own name and addresses.
//
// The name starts empty (unless configured) and changes only through
// SetName. Addresses are fixed at construction.
type Identity struct {
	mu         sync.RWMutex
	name       string
	addr       netip.Addr
	broadcast  netip.Addr
	maxNameLen int
}

// New creates an Identity. maxNameLen <= 0 disables the length check.
func New(name string, addr, broadcast netip.Addr, maxNameLen int) *Identity {
	return &Identity{
		name:       name,
		addr:       addr,
		broadcast:  broadcast,
		maxNameLen: maxNameLen,
	}
}

// FromConfig builds the identity from the node section of the config.
// Missing addresses are detected from the first up, non-loopback IPv4
// interface.
func FromConfig(cfg config.NodeConfig) (*Identity, error) {
	var addr, bcast netip.Addr
	var err error

	if cfg.Address != "" {
		if addr, err = netip.ParseAddr(cfg.Address); err != nil {
			return nil, fmt.Errorf("parsing node.address: %w", err)
		}
	}
	if cfg.Broadcast != "" {
		if bcast, err = netip.ParseAddr(cfg.Broadcast); err != nil {
			return nil, fmt.Errorf("parsing node.broadcast: %w", err)
		}
	}

	if !addr.IsValid() || !bcast.IsValid() {
		detAddr, detBcast, detErr := DetectAddresses()
		if detErr != nil && !addr.IsValid() {
			return nil, detErr
		}
		if !addr.IsValid() {
			addr = detAddr
		}
		if !bcast.IsValid() {
			bcast = detBcast
		}
	}

	return New(cfg.Name, addr.Unmap(), bcast.Unmap(), cfg.MaxNameLength), nil
}

// DetectAddresses returns the first up, non-loopback IPv4 interface address
// and its directed broadcast address.
func DetectAddresses() (netip.Addr, netip.Addr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return netip.Addr{}, netip.Addr{}, fmt.Errorf("listing interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			prefix, ok := prefixFromIPNet(ipnet)
			if !ok || !prefix.Addr().Is4() {
				continue
			}
			return prefix.Addr(), BroadcastOf(prefix), nil
		}
	}

	return netip.Addr{}, netip.Addr{}, ErrNoAddress
}

func prefixFromIPNet(n *net.IPNet) (netip.Prefix, bool) {
	addr, ok := netip.AddrFromSlice(n.IP)
	if !ok {
		return netip.Prefix{}, false
	}
	bits, _ := n.Mask.Size()
	return netip.PrefixFrom(addr.Unmap(), bits), true
}

// BroadcastOf returns the directed broadcast address of an IPv4 prefix.
// For anything else it returns the prefix address unchanged.
func BroadcastOf(p netip.Prefix) netip.Addr {
	if !p.Addr().Is4() {
		return p.Addr()
	}
	b := p.Addr().As4()
	hostBits := 32 - p.Bits()
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	if hostBits >= 32 {
		v = 0xFFFFFFFF
	} else {
		v |= (1 << hostBits) - 1
	}
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// Name returns the current name, empty if not set.
func (id *Identity) Name() string {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.name
}

// SetName overwrites the node name. It does not check the directory for a
// device with the same name.
func (id *Identity) SetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrBadRequest)
	}
	if id.maxNameLen > 0 && len(name) > id.maxNameLen {
		return fmt.Errorf("%w: name longer than %d characters", ErrBadRequest, id.maxNameLen)
	}

	id.mu.Lock()
	id.name = name
	id.mu.Unlock()
	return nil
}

// Addr returns the address announced to peers.
func (id *Identity) Addr() netip.Addr {
	return id.addr
}

// Broadcast returns the broadcast address shown by WHO.
func (id *Identity) Broadcast() netip.Addr {
	return id.broadcast
}

// Describe renders the WHO status block:
//
//	Server name: kitchen
//	Server IP: 10.0.0.4
//	Broadcast IP: 10.0.0.255
//	Options led temp
//	Dispositivos:
//	lamp 10.0.0.5
func (id *Identity) Describe(options string, devices []directory.Device) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Server name: %s\n", id.Name())
	fmt.Fprintf(&b, "Server IP: %s\n", addrString(id.addr))
	fmt.Fprintf(&b, "Broadcast IP: %s\n", addrString(id.broadcast))
	fmt.Fprintf(&b, "Options %s\n", options)
	b.WriteString(ListDevices(devices))
	return b.String()
}

// ListDevices renders the LIST body: a header line followed by one
// "name address" line per device.
func ListDevices(devices []directory.Device) string {
	var b strings.Builder
	b.WriteString("Dispositivos:\n")
	for _, d := range devices {
		b.WriteString(d.Name)
		b.WriteByte(' ')
		b.WriteString(d.Address())
		b.WriteByte('\n')
	}
	return b.String()
}

func addrString(a netip.Addr) string {
	if !a.IsValid() {
		return "0.0.0.0"
	}
	return a.String()
}
