package capability

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Getter reads a value for GET <self> <key>.
type Getter interface {
	Get(ctx context.Context, key string) string
}

// Setter applies SET <self> <key> <value>. It reports whether the value
// was accepted.
type Setter interface {
	Set(ctx context.Context, key, value string) bool
}

// Optioner describes what this node exposes, for OPTIONS and WHO.
type Optioner interface {
	Options() string
}

// Handler is the full local capability surface of a node.
type Handler interface {
	Getter
	Setter
	Optioner
}

// Default reply bodies of Unimplemented.
const (
	GetNotImplemented     = "Get Not Implemented"
	OptionsNotImplemented = "Options Not Implemented"
)

// Unimplemented is the handler of a node with no hardware wired up.
// GET and OPTIONS answer with fixed text and every SET is rejected.
type Unimplemented struct{}

// Get implements Getter.
func (Unimplemented) Get(context.Context, string) string { return GetNotImplemented }

// Set implements Setter.
func (Unimplemented) Set(context.Context, string, string) bool { return false }

// Options implements Optioner.
func (Unimplemented) Options() string { return OptionsNotImplemented }

// Memory is a key/value handler kept in process memory.
//
// When keys are declared, SET on an undeclared key is rejected and GET on a
// key that was never set returns "unknown". With no declared keys any key
// is accepted.
type Memory struct {
	mu     sync.RWMutex
	keys   []string
	values map[string]string
}

// UnknownValue is returned by GET for a key that has no value yet.
const UnknownValue = "unknown"

// NewMemory creates a Memory handler with optional declared keys and
// initial values. Keys in initial are declared implicitly.
func NewMemory(keys []string, initial map[string]string) *Memory {
	m := &Memory{
		keys:   slices.Clone(keys),
		values: make(map[string]string, len(initial)),
	}
	for k, v := range initial {
		m.values[k] = v
		if len(m.keys) > 0 && !slices.Contains(m.keys, k) {
			m.keys = append(m.keys, k)
		}
	}
	return m
}

// Get implements Getter.
func (m *Memory) Get(_ context.Context, key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.values[key]; ok {
		return v
	}
	return UnknownValue
}

// Set implements Setter.
func (m *Memory) Set(_ context.Context, key, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.keys) > 0 && !slices.Contains(m.keys, key) {
		return false
	}
	m.values[key] = value
	return true
}

// Options implements Optioner. It lists the declared keys, or the keys
// currently holding a value when none were declared.
func (m *Memory) Options() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.keys) > 0 {
		return strings.Join(m.keys, " ")
	}
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, " ")
}

// Snapshot returns a copy of the stored values.
func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
