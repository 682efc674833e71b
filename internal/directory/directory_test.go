package directory

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"testing"
)

func dev(name, ip string) Device {
	return Device{Name: name, Addr: netip.MustParseAddr(ip)}
}

func names(devs []Device) string {
	out := make([]string, len(devs))
	for i, d := range devs {
		out[i] = d.Name
	}
	return strings.Join(out, ",")
}

func TestDirectory_AddFind(t *testing.T) {
	d := New(4, 0)

	if err := d.Add(dev("lamp", "10.0.0.5")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, ok := d.Find("lamp")
	if !ok {
		t.Fatal("Find(lamp) = not found, want found")
	}
	if got.Addr.String() != "10.0.0.5" {
		t.Errorf("Find(lamp).Addr = %s, want 10.0.0.5", got.Addr)
	}
	if _, ok := d.Find("Lamp"); ok {
		t.Error("Find(Lamp) found an entry, names are case-sensitive")
	}
}

func TestDirectory_AddDuplicate(t *testing.T) {
	d := New(4, 0)
	if err := d.Add(dev("lamp", "10.0.0.5")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	err := d.Add(dev("lamp", "10.0.0.6"))
	if !errors.Is(err, ErrNameInUse) {
		t.Fatalf("Add(duplicate) error = %v, want ErrNameInUse", err)
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.Len())
	}
	got, _ := d.Find("lamp")
	if got.Addr.String() != "10.0.0.5" {
		t.Errorf("duplicate Add overwrote entry: addr = %s", got.Addr)
	}
}

func TestDirectory_CapacityExceeded(t *testing.T) {
	d := New(3, 0)
	for i := range 3 {
		if err := d.Add(dev(fmt.Sprintf("n%d", i), "10.0.0.1")); err != nil {
			t.Fatalf("Add(n%d) error = %v", i, err)
		}
	}
	if !d.Full() {
		t.Error("Full() = false after filling directory")
	}

	before := names(d.List())
	err := d.Add(dev("extra", "10.0.0.9"))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Add(extra) error = %v, want ErrCapacityExceeded", err)
	}
	if after := names(d.List()); after != before {
		t.Errorf("directory changed on failed Add: %q -> %q", before, after)
	}
}

func TestDirectory_RemovePreservesOrder(t *testing.T) {
	d := New(0, 0)
	for _, n := range []string{"a", "b", "c", "d"} {
		if err := d.Add(dev(n, "10.0.0.1")); err != nil {
			t.Fatalf("Add(%s) error = %v", n, err)
		}
	}

	if err := d.Remove("b"); err != nil {
		t.Fatalf("Remove(b) error = %v", err)
	}
	if _, ok := d.Find("b"); ok {
		t.Error("Find(b) after Remove(b) = found")
	}
	if got := names(d.List()); got != "a,c,d" {
		t.Errorf("List() = %q, want a,c,d", got)
	}
}

func TestDirectory_RemoveMissing(t *testing.T) {
	d := New(0, 0)
	if err := d.Add(dev("a", "10.0.0.1")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	err := d.Remove("zz")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Remove(zz) error = %v, want ErrNotFound", err)
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.Len())
	}
}

func TestDirectory_ListIsSnapshot(t *testing.T) {
	d := New(0, 0)
	if err := d.Add(dev("a", "10.0.0.1")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	list := d.List()
	list[0].Name = "mutated"

	if _, ok := d.Find("a"); !ok {
		t.Error("mutating List() result changed the directory")
	}
}

func TestDirectory_AddInvalid(t *testing.T) {
	d := New(0, 5)

	tests := []struct {
		name string
		dev  Device
		want error
	}{
		{"empty name", Device{Addr: netip.MustParseAddr("10.0.0.1")}, ErrInvalidName},
		{"too long", dev("toolongname", "10.0.0.1"), ErrInvalidName},
		{"whitespace", dev("a b", "10.0.0.1"), ErrInvalidName},
		{"no address", Device{Name: "ok"}, ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := d.Add(tt.dev); !errors.Is(err, tt.want) {
				t.Errorf("Add() error = %v, want %v", err, tt.want)
			}
		})
	}
	if d.Len() != 0 {
		t.Errorf("Len() = %d after invalid adds, want 0", d.Len())
	}
}

func TestDirectory_Concurrent(t *testing.T) {
	d := New(64, 0)
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("n%d", i)
			_ = d.Add(dev(name, "10.0.0.1"))
			d.Find(name)
			d.List()
		}(i)
	}
	wg.Wait()

	if d.Len() != 32 {
		t.Errorf("Len() = %d, want 32", d.Len())
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in       string
		wantAddr string
		wantPort uint16
		wantErr  bool
	}{
		{"10.0.0.5", "10.0.0.5", 0, false},
		{"10.0.0.5:10000", "10.0.0.5", 10000, false},
		{"::1", "::1", 0, false},
		{"[::1]:9999", "::1", 9999, false},
		{"[fd00::1]:9998", "fd00::1", 9998, false},
		{"10.0.0.5:0", "", 0, true},
		{"10.0.0", "", 0, true},
		{"lamp.local", "", 0, true},
		{"", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			addr, port, err := ParseAddress(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Errorf("ParseAddress(%q) error = %v, want ErrInvalidAddress", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddress(%q) error = %v", tt.in, err)
			}
			if addr.String() != tt.wantAddr || port != tt.wantPort {
				t.Errorf("ParseAddress(%q) = %s, %d; want %s, %d", tt.in, addr, port, tt.wantAddr, tt.wantPort)
			}
		})
	}
}

func TestFormatAddress_RoundTrip(t *testing.T) {
	tests := []struct {
		addr string
		port uint16
		want string
	}{
		{"10.0.0.5", 0, "10.0.0.5"},
		{"10.0.0.5", 10001, "10.0.0.5:10001"},
		{"fd00::1", 0, "fd00::1"},
		{"fd00::1", 9998, "[fd00::1]:9998"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := FormatAddress(netip.MustParseAddr(tt.addr), tt.port)
			if got != tt.want {
				t.Fatalf("FormatAddress(%s, %d) = %q, want %q", tt.addr, tt.port, got, tt.want)
			}
			addr, port, err := ParseAddress(got)
			if err != nil {
				t.Fatalf("ParseAddress(%q) error = %v", got, err)
			}
			if addr.String() != tt.addr || port != tt.port {
				t.Errorf("ParseAddress(%q) = %s, %d; want %s, %d", got, addr, port, tt.addr, tt.port)
			}
		})
	}
}

func TestDevice_Address(t *testing.T) {
	d := dev("lamp", "10.0.0.5")
	if got := d.Address(); got != "10.0.0.5" {
		t.Errorf("Address() = %q, want 10.0.0.5", got)
	}
	if got := d.AddrPort(9999).String(); got != "10.0.0.5:9999" {
		t.Errorf("AddrPort(9999) = %q, want 10.0.0.5:9999", got)
	}

	d.Port = 10001
	if got := d.Address(); got != "10.0.0.5:10001" {
		t.Errorf("Address() = %q, want 10.0.0.5:10001", got)
	}
	if got := d.AddrPort(9999).Port(); got != 10001 {
		t.Errorf("AddrPort(9999).Port() = %d, want 10001", got)
	}
	if got := FormatAddress(d.Addr, d.Port); got != "10.0.0.5:10001" {
		t.Errorf("FormatAddress() = %q", got)
	}
}
