package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/domotic-core/internal/capability"
	"github.com/nerrad567/domotic-core/internal/directory"
	"github.com/nerrad567/domotic-core/internal/invoke"
	"github.com/nerrad567/domotic-core/internal/node"
)

// Invoker relays a command to a peer and returns its reply.
// *invoke.Client satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, message string, target netip.Addr, port int, timeout time.Duration) (string, error)
}

// Logger defines the logging interface used by the Dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the dispatcher's protocol settings.
type Config struct {
	// PeerPort is used to contact directory entries registered without a port.
	PeerPort int

	// AdvertisePort is this node's command port, announced in the
	// reciprocal ADD. It is omitted from the address when it equals
	// PeerPort or is zero.
	AdvertisePort int

	// Timeout bounds each relay.
	Timeout time.Duration

	// LegacyReplies reproduces the reply bodies of older firmware.
	LegacyReplies bool
}

// Dispatcher turns one inbound command into one reply.
//
// Commands are handled one at a time: the dispatcher holds its lock for the
// whole command, including nested relays, so UDP and API callers are
// serialized against the same directory and identity.
type Dispatcher struct {
	mu sync.Mutex

	identity *node.Identity
	dir      *directory.Directory
	invoker  Invoker
	cfg      Config

	getter   capability.Getter
	setter   capability.Setter
	optioner capability.Optioner

	observers []Observer
	logger    Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHandler wires all three local capabilities from h.
func WithHandler(h capability.Handler) Option {
	return func(d *Dispatcher) {
		d.getter, d.setter, d.optioner = h, h, h
	}
}

// WithGetter wires the local GET capability.
func WithGetter(g capability.Getter) Option {
	return func(d *Dispatcher) { d.getter = g }
}

// WithSetter wires the local SET capability.
func WithSetter(s capability.Setter) Option {
	return func(d *Dispatcher) { d.setter = s }
}

// WithOptioner wires the local OPTIONS capability.
func WithOptioner(o capability.Optioner) Option {
	return func(d *Dispatcher) { d.optioner = o }
}

// WithObserver registers an observer for handled commands.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observers = append(d.observers, o)
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Dispatcher over the given state. Capabilities default to
// none: local GET, SET and OPTIONS answer with a 500 until one is wired.
func New(identity *node.Identity, dir *directory.Directory, invoker Invoker, cfg Config, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		identity: identity,
		dir:      dir,
		invoker:  invoker,
		cfg:      cfg,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Identity returns the node identity the dispatcher mutates.
func (d *Dispatcher) Identity() *node.Identity { return d.identity }

// Directory returns the directory the dispatcher mutates.
func (d *Dispatcher) Directory() *directory.Directory { return d.dir }

// Options returns the local options text, or an empty string when no
// OPTIONS capability is wired.
func (d *Dispatcher) Options() string {
	if d.optioner == nil {
		return ""
	}
	return d.optioner.Options()
}

// Handle processes one inbound datagram and returns the reply.
//
// A leading "@<id> " correlation tag is stripped before parsing and echoed
// on the reply.
func (d *Dispatcher) Handle(ctx context.Context, raw, source string) string {
	start := time.Now()
	tag, cmd := invoke.SplitTag(normalize(raw))
	tokens := tokenize(cmd)

	rec := Record{
		Command: cmd,
		Source:  source,
		At:      start,
	}
	rec.Response = d.routeLocked(ctx, tokens, &rec)

	rec.Status = StatusOf(rec.Response)
	rec.Duration = time.Since(start)

	d.logger.Debug("command handled",
		"verb", rec.Verb,
		"target", rec.Target,
		"status", rec.Status,
		"relays", rec.Relays,
		"source", source,
		"duration", rec.Duration,
	)

	for _, o := range d.observers {
		o.Observe(ctx, rec)
	}

	if tag != "" {
		return invoke.Tag(tag, rec.Response)
	}
	return rec.Response
}

// routeLocked runs route under d.mu and releases it even if a capability
// panics.
func (d *Dispatcher) routeLocked(ctx context.Context, tokens []string, rec *Record) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.route(ctx, tokens, rec)
}

// route must be called with d.mu held.
func (d *Dispatcher) route(ctx context.Context, tokens []string, rec *Record) string {
	if len(tokens) == 0 {
		return ReplyBadRequest
	}
	rec.Verb = tokens[0]

	switch tokens[0] {
	case VerbName:
		return d.handleName(tokens)
	case VerbWho:
		return d.handleWho()
	case VerbSet:
		if len(tokens) != 4 {
			return ReplyBadRequest
		}
		rec.Target = tokens[1]
		return d.handleSet(ctx, tokens[1], tokens[2], tokens[3], rec)
	case VerbGet:
		if len(tokens) != 3 {
			return ReplyBadRequest
		}
		rec.Target = tokens[1]
		return d.handleGet(ctx, tokens[1], tokens[2], rec)
	case VerbOptions:
		if d.optioner == nil {
			return fmt.Sprintf(replyNoCallbackFormat, VerbOptions)
		}
		return d.optioner.Options()
	case VerbPing:
		return ReplyOK
	case VerbAdd:
		if len(tokens) > 1 {
			rec.Target = tokens[1]
		}
		return d.handleAdd(ctx, tokens, rec)
	case VerbDel:
		if len(tokens) > 1 {
			rec.Target = tokens[1]
		}
		return d.handleDel(tokens, rec)
	case VerbList:
		return node.ListDevices(d.dir.List())
	default:
		return ReplyBadRequest
	}
}

func (d *Dispatcher) handleName(tokens []string) string {
	if len(tokens) != 2 {
		return ReplyBadRequest
	}
	if err := d.identity.SetName(tokens[1]); err != nil {
		d.logger.Warn("rejected node name", "name", tokens[1], "error", err)
		return ReplyBadRequest
	}
	d.logger.Info("node name set", "name", tokens[1])

	if d.cfg.LegacyReplies {
		return tokens[1]
	}
	return ReplyOK + " " + tokens[1]
}

func (d *Dispatcher) handleWho() string {
	if d.identity.Name() == "" {
		return ReplyNameNotSet
	}
	dump := d.identity.Describe(d.Options(), d.dir.List())
	if d.cfg.LegacyReplies {
		return dump
	}
	return ReplyOK + " " + dump
}

func (d *Dispatcher) handleSet(ctx context.Context, target, key, value string, rec *Record) string {
	if target == d.identity.Name() {
		if d.setter == nil {
			return fmt.Sprintf(replyNoCallbackFormat, VerbSet)
		}
		if !d.setter.Set(ctx, key, value) {
			return ReplyBadRequest
		}
		return ReplyOK
	}
	return d.relay(ctx, target, strings.Join([]string{VerbSet, target, key, value}, " "), rec)
}

func (d *Dispatcher) handleGet(ctx context.Context, target, key string, rec *Record) string {
	if target == d.identity.Name() {
		if d.getter == nil {
			return fmt.Sprintf(replyNoCallbackFormat, VerbGet)
		}
		return ReplyOK + " " + d.getter.Get(ctx, key)
	}
	return d.relay(ctx, target, strings.Join([]string{VerbGet, target, key}, " "), rec)
}

// relay forwards cmd to the named device, or to every known device in
// order when the name is unknown.
func (d *Dispatcher) relay(ctx context.Context, target, cmd string, rec *Record) string {
	if dev, ok := d.dir.Find(target); ok {
		rec.Relays++
		reply, err := d.send(ctx, dev, cmd)
		if err != nil {
			return relayErrorReply(err)
		}
		return reply
	}

	for _, dev := range d.dir.List() {
		rec.Relays++
		reply, err := d.send(ctx, dev, cmd)
		if err != nil {
			d.logger.Warn("broadcast relay failed",
				"device", dev.Name,
				"address", dev.Address(),
				"error", err,
			)
			continue
		}
		if IsSuccess(reply) {
			d.logger.Debug("broadcast relay answered", "device", dev.Name, "target", target)
			return reply
		}
	}
	return ReplyNotFound
}

func (d *Dispatcher) send(ctx context.Context, dev directory.Device, cmd string) (string, error) {
	ap := dev.AddrPort(d.cfg.PeerPort)
	reply, err := d.invoker.Invoke(ctx, cmd, ap.Addr(), int(ap.Port()), d.cfg.Timeout)
	if err != nil {
		return "", fmt.Errorf("relaying to %s: %w", dev.Name, err)
	}
	return reply, nil
}

func relayErrorReply(err error) string {
	if errors.Is(err, invoke.ErrTimeout) {
		return ReplyRelayTimeout
	}
	return ReplyInternalError
}

func (d *Dispatcher) handleAdd(ctx context.Context, tokens []string, rec *Record) string {
	if d.dir.Full() {
		return ReplyMaxDevices
	}
	if len(tokens) < 3 {
		return ReplyBadRequest
	}

	name, address := tokens[1], tokens[2]
	if name == d.identity.Name() {
		return d.nameInUse()
	}
	if _, exists := d.dir.Find(name); exists {
		return d.nameInUse()
	}
	if err := directory.ValidateName(name, d.dir.MaxNameLength()); err != nil {
		return ReplyBadRequest
	}

	addr, port, err := directory.ParseAddress(address)
	if err != nil {
		d.logger.Warn("rejected device address", "name", name, "address", address)
		return ReplyBadRequest
	}
	dev := directory.Device{Name: name, Addr: addr, Port: port}

	oneWay := len(tokens) >= 4 && strings.EqualFold(tokens[3], reciprocalMarker)
	if !oneWay {
		rec.Relays++
		if err := d.registerWith(ctx, dev); err != nil {
			d.logger.Warn("reciprocal registration failed", "device", name, "error", err)
			return ReplyAddFailed
		}
	}

	if err := d.dir.Add(dev); err != nil {
		switch {
		case errors.Is(err, directory.ErrNameInUse):
			return d.nameInUse()
		case errors.Is(err, directory.ErrCapacityExceeded):
			return ReplyMaxDevices
		default:
			return ReplyBadRequest
		}
	}
	rec.DirectoryChanged = true

	d.logger.Info("device added", "name", name, "address", dev.Address(), "reciprocal", !oneWay)
	return ReplyOK + " " + name
}

// registerWith sends ADD <self> <self-address> device to the new peer and
// requires a 200 reply.
func (d *Dispatcher) registerWith(ctx context.Context, dev directory.Device) error {
	self := d.identity.Name()
	if self == "" {
		return errors.New("node name not set")
	}

	port := uint16(0)
	if d.cfg.AdvertisePort != 0 && d.cfg.AdvertisePort != d.cfg.PeerPort {
		port = uint16(d.cfg.AdvertisePort) //nolint:gosec // validated by config
	}
	cmd := strings.Join([]string{
		VerbAdd,
		self,
		directory.FormatAddress(d.identity.Addr(), port),
		reciprocalMarker,
	}, " ")

	reply, err := d.send(ctx, dev, cmd)
	if err != nil {
		return err
	}
	if !IsSuccess(reply) {
		return fmt.Errorf("peer replied %q", reply)
	}
	return nil
}

func (d *Dispatcher) nameInUse() string {
	if d.cfg.LegacyReplies {
		return ReplyLegacyNameInUse
	}
	return ReplyNameInUse
}

func (d *Dispatcher) handleDel(tokens []string, rec *Record) string {
	if d.dir.Len() == 0 {
		return ReplyNoDevices
	}
	if len(tokens) < 2 {
		return ReplyBadRequest
	}

	name := tokens[1]
	if err := d.dir.Remove(name); err != nil {
		return ReplyNotFound
	}
	rec.DirectoryChanged = true
	d.logger.Info("device removed", "name", name)

	if d.cfg.LegacyReplies {
		return d.identity.Name()
	}
	return ReplyOK + " " + name
}
