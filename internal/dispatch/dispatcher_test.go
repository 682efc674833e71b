package dispatch

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/domotic-core/internal/capability"
	"github.com/nerrad567/domotic-core/internal/directory"
	"github.com/nerrad567/domotic-core/internal/invoke"
	"github.com/nerrad567/domotic-core/internal/node"
)

// call is one recorded relay.
type call struct {
	message string
	target  netip.AddrPort
}

// fakeInvoker answers relays from a table keyed by target IP and counts them.
type fakeInvoker struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []call
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{replies: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeInvoker) Invoke(_ context.Context, message string, target netip.Addr, port int, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{message: message, target: netip.AddrPortFrom(target, uint16(port))})
	if err, ok := f.errs[target.String()]; ok {
		return "", err
	}
	if reply, ok := f.replies[target.String()]; ok {
		return reply, nil
	}
	return "", fmt.Errorf("no reply configured: %w", invoke.ErrTimeout)
}

func (f *fakeInvoker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	d   *Dispatcher
	inv *fakeInvoker
	dir *directory.Directory
	id  *node.Identity
}

func newFixture(t *testing.T, name string, cfg Config, opts ...Option) *fixture {
	t.Helper()
	if cfg.PeerPort == 0 {
		cfg.PeerPort = 9999
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 100 * time.Millisecond
	}
	id := node.New(name, netip.MustParseAddr("10.0.0.4"), netip.MustParseAddr("10.0.0.255"), directory.DefaultMaxNameLength)
	dir := directory.New(directory.DefaultCapacity, directory.DefaultMaxNameLength)
	inv := newFakeInvoker()
	return &fixture{d: New(id, dir, inv, cfg, opts...), inv: inv, dir: dir, id: id}
}

func (f *fixture) send(cmd string) string {
	return f.d.Handle(context.Background(), cmd, "test")
}

func (f *fixture) addDevice(t *testing.T, name, ip string) {
	t.Helper()
	if err := f.dir.Add(directory.Device{Name: name, Addr: netip.MustParseAddr(ip)}); err != nil {
		t.Fatalf("Add(%s) error = %v", name, err)
	}
}

// stubHandler records the last SET and returns canned values.
type stubHandler struct {
	setOK   bool
	value   string
	options string
	lastKey string
	lastVal string
}

func (s *stubHandler) Get(_ context.Context, key string) string {
	s.lastKey = key
	return s.value
}

func (s *stubHandler) Set(_ context.Context, key, value string) bool {
	s.lastKey, s.lastVal = key, value
	return s.setOK
}

func (s *stubHandler) Options() string { return s.options }

func TestHandle_BasicVerbs(t *testing.T) {
	h := &stubHandler{setOK: true, value: "on", options: "led temp"}
	f := newFixture(t, "kitchen", Config{}, WithHandler(h))

	tests := []struct {
		name string
		cmd  string
		want string
	}{
		{"ping", "PING", "200 OK"},
		{"ping with args", "PING extra args", "200 OK"},
		{"options", "OPTIONS", "led temp"},
		{"get self", "GET kitchen led", "200 OK on"},
		{"set self", "SET kitchen led on", "200 OK"},
		{"unknown verb", "FROB x", "400 Bad Request"},
		{"lowercase verb", "ping", "400 Bad Request"},
		{"verb prefix only", "PINGX", "400 Bad Request"},
		{"empty", "", "400 Bad Request"},
		{"whitespace only", " \r\n", "400 Bad Request"},
		{"set arity 2", "SET onlytarget", "400 Bad Request"},
		{"set arity 5", "SET kitchen led on now", "400 Bad Request"},
		{"get arity 2", "GET kitchen", "400 Bad Request"},
		{"name without arg", "NAME", "400 Bad Request"},
		{"name with two args", "NAME a b", "400 Bad Request"},
		{"add arity 2", "ADD lamp", "400 Bad Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.send(tt.cmd); got != tt.want {
				t.Errorf("Handle(%q) = %q, want %q", tt.cmd, got, tt.want)
			}
		})
	}
}

func TestHandle_Normalization(t *testing.T) {
	h := &stubHandler{value: "21"}
	f := newFixture(t, "kitchen", Config{}, WithHandler(h))

	tests := []string{
		"GET kitchen temp\r\n",
		"GET kitchen temp\x00",
		"  GET  kitchen   temp  ",
		"GET kitchen te\nmp",
	}
	for _, cmd := range tests {
		if got := f.send(cmd); got != "200 OK 21" {
			t.Errorf("Handle(%q) = %q, want %q", cmd, got, "200 OK 21")
		}
		if h.lastKey != "temp" {
			t.Errorf("Handle(%q) passed key %q, want temp", cmd, h.lastKey)
		}
	}
}

func TestHandle_GetSelfReturnsHandlerValue(t *testing.T) {
	for _, value := range []string{"on", "21.5", "Get Not Implemented", ""} {
		f := newFixture(t, "kitchen", Config{}, WithHandler(&stubHandler{value: value}))
		if got := f.send("GET kitchen anykey"); got != "200 OK "+value {
			t.Errorf("GET with handler value %q = %q", value, got)
		}
	}
}

func TestHandle_SetSelf(t *testing.T) {
	tests := []struct {
		name   string
		ok     bool
		prefix string
	}{
		{"accepted", true, "200"},
		{"rejected", false, "400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &stubHandler{setOK: tt.ok}
			f := newFixture(t, "kitchen", Config{}, WithHandler(h))

			got := f.send("SET kitchen led on")
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("SET = %q, want prefix %s", got, tt.prefix)
			}
			if h.lastKey != "led" || h.lastVal != "on" {
				t.Errorf("handler got %q=%q, want led=on", h.lastKey, h.lastVal)
			}
			if f.inv.count() != 0 {
				t.Errorf("SET to self made %d relays", f.inv.count())
			}
		})
	}
}

func TestHandle_MissingCapabilities(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})

	tests := []struct {
		cmd  string
		want string
	}{
		{"SET kitchen led on", "500 No callback function for SET method"},
		{"GET kitchen led", "500 No callback function for GET method"},
		{"OPTIONS", "500 No callback function for OPTIONS method"},
	}
	for _, tt := range tests {
		if got := f.send(tt.cmd); got != tt.want {
			t.Errorf("Handle(%q) = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestHandle_Unimplemented(t *testing.T) {
	f := newFixture(t, "kitchen", Config{}, WithHandler(capability.Unimplemented{}))

	if got := f.send("GET kitchen led"); got != "200 OK Get Not Implemented" {
		t.Errorf("GET = %q", got)
	}
	if got := f.send("SET kitchen led on"); got != "400 Bad Request" {
		t.Errorf("SET = %q", got)
	}
	if got := f.send("OPTIONS"); got != "Options Not Implemented" {
		t.Errorf("OPTIONS = %q", got)
	}
}

func TestHandle_NameAndWho(t *testing.T) {
	f := newFixture(t, "", Config{}, WithHandler(&stubHandler{options: "led"}))

	if got := f.send("WHO"); got != "200 OK Name not set" {
		t.Errorf("WHO before NAME = %q", got)
	}
	if got := f.send("NAME kitchen"); got != "200 OK kitchen" {
		t.Errorf("NAME = %q", got)
	}
	if f.id.Name() != "kitchen" {
		t.Errorf("identity name = %q", f.id.Name())
	}
	f.addDevice(t, "lamp", "10.0.0.5")

	want := "200 OK Server name: kitchen\n" +
		"Server IP: 10.0.0.4\n" +
		"Broadcast IP: 10.0.0.255\n" +
		"Options led\n" +
		"Dispositivos:\n" +
		"lamp 10.0.0.5\n"
	if got := f.send("WHO"); got != want {
		t.Errorf("WHO =\n%q\nwant\n%q", got, want)
	}
}

func TestHandle_NameDoesNotCheckDirectory(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})
	f.addDevice(t, "lamp", "10.0.0.5")

	if got := f.send("NAME lamp"); got != "200 OK lamp" {
		t.Errorf("NAME lamp = %q, want success", got)
	}
}

func TestHandle_NameTooLong(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})
	if got := f.send("NAME " + strings.Repeat("x", 51)); got != ReplyBadRequest {
		t.Errorf("NAME (51 chars) = %q", got)
	}
	if f.id.Name() != "kitchen" {
		t.Errorf("name changed to %q", f.id.Name())
	}
}

func TestHandle_DirectRelay(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})
	f.addDevice(t, "lamp", "10.0.0.5")
	f.inv.replies["10.0.0.5"] = "200 OK on"

	if got := f.send("GET lamp led"); got != "200 OK on" {
		t.Errorf("GET lamp = %q", got)
	}
	if f.inv.count() != 1 {
		t.Fatalf("relays = %d, want 1", f.inv.count())
	}
	c := f.inv.calls[0]
	if c.message != "GET lamp led" {
		t.Errorf("relayed message = %q", c.message)
	}
	if c.target.String() != "10.0.0.5:9999" {
		t.Errorf("relay target = %s, want 10.0.0.5:9999", c.target)
	}
}

func TestHandle_DirectRelayVerbatimFailure(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})
	f.addDevice(t, "lamp", "10.0.0.5")
	f.inv.replies["10.0.0.5"] = "400 Bad Request"

	if got := f.send("SET lamp led maybe"); got != "400 Bad Request" {
		t.Errorf("SET lamp = %q, want peer reply verbatim", got)
	}
}

func TestHandle_DirectRelayErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", fmt.Errorf("wrapped: %w", invoke.ErrTimeout), "501 timeout"},
		{"transport", invoke.ErrTransportUnavailable, "500 Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "kitchen", Config{})
			f.addDevice(t, "lamp", "10.0.0.5")
			f.inv.errs["10.0.0.5"] = tt.err

			if got := f.send("GET lamp led"); got != tt.want {
				t.Errorf("GET lamp = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandle_RelayUsesDevicePort(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})
	if err := f.dir.Add(directory.Device{Name: "lamp", Addr: netip.MustParseAddr("10.0.0.5"), Port: 10001}); err != nil {
		t.Fatal(err)
	}
	f.inv.replies["10.0.0.5"] = "200 OK"

	f.send("SET lamp led on")
	if got := f.inv.calls[0].target.String(); got != "10.0.0.5:10001" {
		t.Errorf("relay target = %s, want 10.0.0.5:10001", got)
	}
}

func TestHandle_BroadcastFallback(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})
	f.addDevice(t, "a", "10.0.0.1")
	f.addDevice(t, "b", "10.0.0.2")
	f.addDevice(t, "c", "10.0.0.3")
	f.inv.replies["10.0.0.1"] = "404 Not Found"
	f.inv.replies["10.0.0.2"] = "200 OK 42"
	f.inv.replies["10.0.0.3"] = "200 OK wrong"

	if got := f.send("GET far temp"); got != "200 OK 42" {
		t.Errorf("GET far = %q, want second peer's reply", got)
	}
	if f.inv.count() != 2 {
		t.Errorf("relays = %d, want 2 (stop at first 200)", f.inv.count())
	}
	for i, c := range f.inv.calls {
		if c.message != "GET far temp" {
			t.Errorf("call %d message = %q", i, c.message)
		}
	}
}

func TestHandle_BroadcastSkipsFailures(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})
	f.addDevice(t, "a", "10.0.0.1")
	f.addDevice(t, "b", "10.0.0.2")
	f.inv.errs["10.0.0.1"] = invoke.ErrTimeout
	f.inv.replies["10.0.0.2"] = "200 OK"

	if got := f.send("SET far led on"); got != "200 OK" {
		t.Errorf("SET far = %q", got)
	}
	if f.inv.count() != 2 {
		t.Errorf("relays = %d, want 2", f.inv.count())
	}
}

func TestHandle_BroadcastExhausted(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})
	f.addDevice(t, "a", "10.0.0.1")
	f.addDevice(t, "b", "10.0.0.2")
	f.inv.replies["10.0.0.1"] = "404 Not Found"
	f.inv.errs["10.0.0.2"] = invoke.ErrTimeout

	if got := f.send("GET far temp"); got != "404 Not Found" {
		t.Errorf("GET far = %q", got)
	}
	if f.inv.count() != 2 {
		t.Errorf("relays = %d, want 2", f.inv.count())
	}
}

func TestHandle_UnknownTargetEmptyDirectory(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})

	for _, cmd := range []string{"GET far temp", "SET far led on"} {
		if got := f.send(cmd); got != "404 Not Found" {
			t.Errorf("Handle(%q) = %q, want 404 Not Found", cmd, got)
		}
	}
	if f.inv.count() != 0 {
		t.Errorf("relays = %d, want 0", f.inv.count())
	}
}

func TestHandle_AddListDel(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})

	if got := f.send("ADD dev1 10.0.0.5 device"); got != "200 OK dev1" {
		t.Fatalf("ADD = %q", got)
	}
	if f.inv.count() != 0 {
		t.Errorf("one-way ADD made %d relays", f.inv.count())
	}
	dev, ok := f.dir.Find("dev1")
	if !ok || dev.Addr.String() != "10.0.0.5" {
		t.Fatalf("directory entry = %+v, %v", dev, ok)
	}

	if got := f.send("LIST"); got != "Dispositivos:\ndev1 10.0.0.5\n" {
		t.Errorf("LIST = %q", got)
	}
	if got := f.send("DEL dev1"); !strings.HasPrefix(got, "200") {
		t.Errorf("DEL = %q, want 200 prefix", got)
	}
	if got := f.send("LIST"); got != "Dispositivos:\n" {
		t.Errorf("LIST after DEL = %q", got)
	}
}

func TestHandle_AddMarkerCaseInsensitive(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})
	if got := f.send("ADD dev1 10.0.0.5 DeViCe"); got != "200 OK dev1" {
		t.Errorf("ADD = %q", got)
	}
	if f.inv.count() != 0 {
		t.Errorf("relays = %d, want 0", f.inv.count())
	}
}

func TestHandle_AddReciprocal(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		err       error
		want      string
		wantAdded bool
	}{
		{"peer accepts", "200 OK kitchen", nil, "200 OK lamp", true},
		{"peer rejects", "400 Name already in use", nil, "500 Error adding device", false},
		{"peer silent", "", invoke.ErrTimeout, "500 Error adding device", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "kitchen", Config{})
			if tt.err != nil {
				f.inv.errs["10.0.0.5"] = tt.err
			} else {
				f.inv.replies["10.0.0.5"] = tt.reply
			}

			if got := f.send("ADD lamp 10.0.0.5"); got != tt.want {
				t.Errorf("ADD = %q, want %q", got, tt.want)
			}
			if f.inv.count() != 1 {
				t.Fatalf("relays = %d, want 1", f.inv.count())
			}
			if msg := f.inv.calls[0].message; msg != "ADD kitchen 10.0.0.4 device" {
				t.Errorf("reciprocal message = %q", msg)
			}
			if _, ok := f.dir.Find("lamp"); ok != tt.wantAdded {
				t.Errorf("entry present = %v, want %v", ok, tt.wantAdded)
			}
		})
	}
}

func TestHandle_AddReciprocalAdvertisesPort(t *testing.T) {
	f := newFixture(t, "kitchen", Config{PeerPort: 9999, AdvertisePort: 10005})
	f.inv.replies["10.0.0.5"] = "200 OK"

	f.send("ADD lamp 10.0.0.5")
	if msg := f.inv.calls[0].message; msg != "ADD kitchen 10.0.0.4:10005 device" {
		t.Errorf("reciprocal message = %q", msg)
	}
}

func TestHandle_AddReciprocalWithoutName(t *testing.T) {
	f := newFixture(t, "", Config{})
	if got := f.send("ADD lamp 10.0.0.5"); got != ReplyAddFailed {
		t.Errorf("ADD = %q, want %q", got, ReplyAddFailed)
	}
	if f.dir.Len() != 0 {
		t.Errorf("directory has %d entries", f.dir.Len())
	}
}

func TestHandle_AddRejections(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})
	f.addDevice(t, "lamp", "10.0.0.5")

	tests := []struct {
		name string
		cmd  string
		want string
	}{
		{"own name", "ADD kitchen 10.0.0.9 device", "400 Name already in use"},
		{"existing entry", "ADD lamp 10.0.0.9 device", "400 Name already in use"},
		{"bad address", "ADD fan 10.0.0 device", "400 Bad Request"},
		{"hostname", "ADD fan fan.local device", "400 Bad Request"},
		{"name too long", "ADD " + strings.Repeat("n", 51) + " 10.0.0.9 device", "400 Bad Request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.send(tt.cmd); got != tt.want {
				t.Errorf("Handle(%q) = %q, want %q", tt.cmd, got, tt.want)
			}
		})
	}
	if f.dir.Len() != 1 {
		t.Errorf("directory has %d entries, want 1", f.dir.Len())
	}
}

func TestHandle_AddFull(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})
	for i := range directory.DefaultCapacity {
		f.addDevice(t, fmt.Sprintf("d%d", i), "10.0.0.1")
	}

	if got := f.send("ADD extra 10.0.0.9 device"); got != "400 Max Devices Reached" {
		t.Errorf("ADD on full directory = %q", got)
	}
	if got := f.send("ADD"); got != "400 Max Devices Reached" {
		t.Errorf("bare ADD on full directory = %q, capacity is checked first", got)
	}
}

func TestHandle_Del(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})

	if got := f.send("DEL lamp"); got != "400 No devices to remove" {
		t.Errorf("DEL on empty directory = %q", got)
	}

	f.addDevice(t, "lamp", "10.0.0.5")
	if got := f.send("DEL fan"); got != "404 Not Found" {
		t.Errorf("DEL fan = %q", got)
	}
	if got := f.send("DEL"); got != "400 Bad Request" {
		t.Errorf("bare DEL = %q", got)
	}
	if got := f.send("DEL lamp"); got != "200 OK lamp" {
		t.Errorf("DEL lamp = %q", got)
	}
}

func TestHandle_LegacyReplies(t *testing.T) {
	f := newFixture(t, "", Config{LegacyReplies: true}, WithHandler(capability.Unimplemented{}))

	if got := f.send("NAME kitchen"); got != "kitchen" {
		t.Errorf("NAME = %q, want bare name", got)
	}
	f.addDevice(t, "lamp", "10.0.0.5")

	if got := f.send("ADD lamp 10.0.0.6 device"); got != "200 Name already in use" {
		t.Errorf("ADD conflict = %q", got)
	}
	if got := f.send("WHO"); !strings.HasPrefix(got, "Server name: kitchen\n") {
		t.Errorf("WHO = %q, want bare dump", got)
	}
	if got := f.send("DEL lamp"); got != "kitchen" {
		t.Errorf("DEL = %q, want bare node name", got)
	}
}

func TestHandle_CorrelationTagEchoed(t *testing.T) {
	f := newFixture(t, "kitchen", Config{})

	if got := f.send("@ab12cd34 PING"); got != "@ab12cd34 200 OK" {
		t.Errorf("tagged PING = %q", got)
	}
	if got := f.send("@ab12cd34 SET x"); got != "@ab12cd34 400 Bad Request" {
		t.Errorf("tagged bad SET = %q", got)
	}
}

func TestHandle_Observer(t *testing.T) {
	var got []Record
	obs := ObserverFunc(func(_ context.Context, rec Record) { got = append(got, rec) })
	f := newFixture(t, "kitchen", Config{}, WithObserver(obs))
	f.addDevice(t, "a", "10.0.0.1")
	f.addDevice(t, "b", "10.0.0.2")
	f.inv.replies["10.0.0.2"] = "200 OK 7"

	f.send("GET far temp\r\n")
	f.send("ADD lamp 10.0.0.5 device")
	f.send("BOGUS")

	if len(got) != 3 {
		t.Fatalf("observed %d records, want 3", len(got))
	}

	get := got[0]
	if get.Verb != "GET" || get.Target != "far" || get.Status != 200 || get.Relays != 2 {
		t.Errorf("GET record = %+v", get)
	}
	if get.Command != "GET far temp" || get.Source != "test" {
		t.Errorf("GET record command/source = %q/%q", get.Command, get.Source)
	}
	if get.DirectoryChanged {
		t.Error("GET record marked directory changed")
	}

	if add := got[1]; !add.DirectoryChanged || add.Target != "lamp" {
		t.Errorf("ADD record = %+v", add)
	}
	if bogus := got[2]; bogus.Status != 400 || bogus.Verb != "BOGUS" {
		t.Errorf("BOGUS record = %+v", bogus)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"200 OK", 200},
		{"200", 200},
		{"404 Not Found", 404},
		{"501 timeout", 501},
		{"Dispositivos:\n", 0},
		{"kitchen", 0},
		{"2000 x", 0},
		{"", 0},
		{"099 x", 0},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.in); got != tt.want {
			t.Errorf("StatusOf(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHandle_Serialized(t *testing.T) {
	f := newFixture(t, "kitchen", Config{}, WithHandler(capability.NewMemory(nil, nil)))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.send(fmt.Sprintf("ADD d%d 10.0.0.%d device", i, i+1))
		}(i)
	}
	wg.Wait()

	if f.dir.Len() != directory.DefaultCapacity {
		t.Errorf("directory has %d entries, want %d", f.dir.Len(), directory.DefaultCapacity)
	}
}
