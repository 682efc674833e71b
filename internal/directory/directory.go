package directory

import (
	"fmt"
	"net/netip"
	"strings"
	"sync"
)

// Reference limits of the protocol.
const (
	DefaultCapacity      = 16
	DefaultMaxNameLength = 50
)

// Device is one known peer: a unique name and the address it listens on.
type Device struct {
	Name string
	Addr netip.Addr

	// Port is the peer's command port. Zero means the node-wide peer port.
	Port uint16
}

// Address renders the device address the way LIST and WHO print it:
// the bare IP, or ip:port when a non-default port was registered.
func (d Device) Address() string {
	if d.Port == 0 {
		return d.Addr.String()
	}
	return netip.AddrPortFrom(d.Addr, d.Port).String()
}

// AddrPort resolves the device's command endpoint, using defaultPort when
// the entry carries no explicit port.
func (d Device) AddrPort(defaultPort int) netip.AddrPort {
	port := d.Port
	if port == 0 {
		port = uint16(defaultPort) //nolint:gosec // validated by config (1-65535)
	}
	return netip.AddrPortFrom(d.Addr, port)
}

// Directory is the bounded, insertion-ordered registry of known peers.
//
// Names are unique and compared case-sensitively. Removal keeps the
// relative order of the remaining entries, which is the order used by the
// broadcast fallback.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Directory struct {
	mu         sync.RWMutex
	devices    []Device
	capacity   int
	maxNameLen int
}

// New creates an empty directory holding at most capacity entries.
// Non-positive arguments fall back to the protocol defaults.
func New(capacity, maxNameLen int) *Directory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if maxNameLen <= 0 {
		maxNameLen = DefaultMaxNameLength
	}
	return &Directory{
		devices:    make([]Device, 0, capacity),
		capacity:   capacity,
		maxNameLen: maxNameLen,
	}
}

// Add appends a device.
//
// Returns:
//   - ErrCapacityExceeded if the directory is full
//   - ErrNameInUse if the name is already registered
//   - ErrInvalidName if the name is empty, too long or contains whitespace
func (d *Directory) Add(dev Device) error {
	if err := ValidateName(dev.Name, d.maxNameLen); err != nil {
		return err
	}
	if !dev.Addr.IsValid() {
		return fmt.Errorf("%w: %q has no address", ErrInvalidAddress, dev.Name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.devices) >= d.capacity {
		return ErrCapacityExceeded
	}
	if d.indexOf(dev.Name) >= 0 {
		return fmt.Errorf("%w: %s", ErrNameInUse, dev.Name)
	}

	d.devices = append(d.devices, dev)
	return nil
}

// Remove deletes the named device, shifting later entries left.
// Returns ErrNotFound if the name is not registered.
func (d *Directory) Remove(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	d.devices = append(d.devices[:i], d.devices[i+1:]...)
	return nil
}

// Find returns the first entry whose name matches exactly.
func (d *Directory) Find(name string) (Device, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	i := d.indexOf(name)
	if i < 0 {
		return Device{}, false
	}
	return d.devices[i], true
}

// List returns a snapshot of the entries in insertion order.
// The returned slice is a copy; callers can safely modify it.
func (d *Directory) List() []Device {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Device, len(d.devices))
	copy(out, d.devices)
	return out
}

// Len returns the number of registered devices.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.devices)
}

// Capacity returns the maximum number of entries.
func (d *Directory) Capacity() int {
	return d.capacity
}

// Full reports whether Add would fail with ErrCapacityExceeded.
func (d *Directory) Full() bool {
	return d.Len() >= d.capacity
}

// MaxNameLength returns the longest accepted name.
func (d *Directory) MaxNameLength() int {
	return d.maxNameLen
}

// indexOf must be called with d.mu held.
func (d *Directory) indexOf(name string) int {
	for i := range d.devices {
		if d.devices[i].Name == name {
			return i
		}
	}
	return -1
}

// ValidateName checks a device or node name: non-empty, at most maxLen
// bytes and free of whitespace (names travel as single tokens).
func ValidateName(name string, maxLen int) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if maxLen > 0 && len(name) > maxLen {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidName, maxLen)
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return fmt.Errorf("%w: contains whitespace", ErrInvalidName)
	}
	return nil
}

// ParseAddress parses "ip" or "ip:port" as written in an ADD command.
// A bare IP yields port 0 (the node-wide peer port).
func ParseAddress(s string) (netip.Addr, uint16, error) {
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap(), 0, nil
	}
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return netip.Addr{}, 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if ap.Port() == 0 {
		return netip.Addr{}, 0, fmt.Errorf("%w: %q has port 0", ErrInvalidAddress, s)
	}
	return ap.Addr().Unmap(), ap.Port(), nil
}

// FormatAddress is the inverse of ParseAddress.
func FormatAddress(addr netip.Addr, port uint16) string {
	if port == 0 {
		return addr.String()
	}
	return netip.AddrPortFrom(addr, port).String()
}
