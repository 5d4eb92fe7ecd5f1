// Package config provides the runtime OCPP configuration registry
// (declare/get/set/save/load, the basis for GetConfiguration and
// ChangeConfiguration) and the process bootstrap configuration loaded
// once at startup from YAML plus environment overrides.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/kochedykov/MicroOcpp/internal/storage"
)

const snapshotKey = "ocpp-config.jsn"

// ValueType tags the declared type of a configuration entry, matching
// spec.md's {int, bool, string}.
type ValueType int

const (
	TypeInt ValueType = iota
	TypeBool
	TypeString
)

// Flags mirror spec.md's configuration entry flags.
type Flags struct {
	Readonly             bool
	RebootRequired       bool
	Volatile             bool
	ReportWithGetConfig  bool
}

type entry struct {
	Key     string          `json:"key"`
	Type    ValueType       `json:"type"`
	Value   json.RawMessage `json:"value"`
	Flags   Flags           `json:"flags"`
	Pending json.RawMessage `json:"pending,omitempty"`
}

// Registry is the named typed key/value store spec.md §4.B describes.
type Registry struct {
	mu      sync.Mutex
	fs      storage.Filesystem
	entries map[string]*entry
	onChange []func(key string)
}

// New returns an empty Registry backed by fs. Call Load to hydrate it
// from a previous Save.
func New(fs storage.Filesystem) *Registry {
	return &Registry{fs: fs, entries: make(map[string]*entry)}
}

// OnChange registers a callback invoked after every successful Set of
// a key, whether or not the value differs; Load does not invoke it.
func (r *Registry) OnChange(cb func(key string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, cb)
}

func (r *Registry) notify(key string) {
	for _, cb := range r.onChange {
		cb(key)
	}
}

// Declare registers key with the given default and flags. Declaring an
// already-declared key with the same type is a no-op that preserves
// whatever value is currently stored (idempotent, per spec.md §4.B);
// declaring it with a conflicting type is an error.
func (r *Registry) Declare(key string, typ ValueType, def interface{}, flags Flags) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("config: marshal default for %q: %w", key, err)
	}

	if existing, ok := r.entries[key]; ok {
		if existing.Type != typ {
			return fmt.Errorf("config: %q already declared with a different type", key)
		}
		return nil
	}

	r.entries[key] = &entry{Key: key, Type: typ, Value: raw, Flags: flags}
	return nil
}

// Get returns the raw JSON value for key, or false if undeclared.
func (r *Registry) Get(key string) (json.RawMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// GetInt/GetBool/GetString are typed convenience accessors used by
// the core's components to read their own configuration.
func (r *Registry) GetInt(key string, fallback int) int {
	raw, ok := r.Get(key)
	if !ok {
		return fallback
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return fallback
	}
	return v
}

func (r *Registry) GetBool(key string, fallback bool) bool {
	raw, ok := r.Get(key)
	if !ok {
		return fallback
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return fallback
	}
	return v
}

func (r *Registry) GetString(key string, fallback string) string {
	raw, ok := r.Get(key)
	if !ok {
		return fallback
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return fallback
	}
	return v
}

// SetResult reports the outcome of Set, matching the flag the server
// needs for ChangeConfiguration's response ("Accepted", "RebootRequired",
// "Rejected", "NotSupported").
type SetResult int

const (
	SetRejected SetResult = iota
	SetAccepted
	SetRebootRequired
	SetNotSupported
)

// Set writes value (given as a string, the wire form ChangeConfiguration
// uses) into key. Volatile keys take effect immediately; non-volatile
// keys still take effect immediately in this in-memory copy but report
// RebootRequired when so flagged, matching spec.md "Writes either
// update in place (volatile) or stage-then-persist" — both forms are
// visible to Get immediately, the distinction is only in what is
// reported to the caller and in whether Save is needed to survive a
// restart.
func (r *Registry) Set(key, rawValue string) SetResult {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		r.mu.Unlock()
		return SetNotSupported
	}
	if e.Flags.Readonly {
		r.mu.Unlock()
		return SetRejected
	}

	parsed, err := encodeValue(e.Type, rawValue)
	if err != nil {
		r.mu.Unlock()
		return SetRejected
	}
	e.Value = parsed
	r.mu.Unlock()

	r.notify(key)

	if e.Flags.RebootRequired {
		return SetRebootRequired
	}
	return SetAccepted
}

func encodeValue(typ ValueType, raw string) (json.RawMessage, error) {
	switch typ {
	case TypeInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		return json.Marshal(n)
	case TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, err
		}
		return json.Marshal(b)
	case TypeString:
		return json.Marshal(raw)
	default:
		return nil, fmt.Errorf("config: unknown type %d", typ)
	}
}

// EnumeredEntry is one row of Enumerate's result.
type EnumeredEntry struct {
	Key      string
	Value    json.RawMessage
	Readonly bool
}

// Enumerate returns every declared entry whose Key is in keys, or all
// entries if keys is empty — the shape GetConfiguration needs.
func (r *Registry) Enumerate(keys []string) []EnumeredEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}

	var out []EnumeredEntry
	for k, e := range r.entries {
		if len(keys) > 0 && !want[k] {
			continue
		}
		out = append(out, EnumeredEntry{Key: k, Value: e.Value, Readonly: e.Flags.Readonly})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Save persists every declared entry, skipping volatile ones (spec.md:
// volatile keys update in place but are never staged for persistence).
func (r *Registry) Save(ctx context.Context) error {
	r.mu.Lock()
	snapshot := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Flags.Volatile {
			continue
		}
		snapshot = append(snapshot, e)
	}
	r.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.fs.WriteFile(ctx, snapshotKey, data)
}

// Load reads a previously Saved snapshot and merges it into the
// currently declared entries: a key must already be declared (with
// its flags/type) for a loaded value to take effect, so declaration
// order is Declare-everything-then-Load, not the reverse.
func (r *Registry) Load(ctx context.Context) error {
	data, err := r.fs.ReadFile(ctx, snapshotKey)
	if storage.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var loaded []*entry
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}

	r.mu.Lock()
	for _, le := range loaded {
		if e, ok := r.entries[le.Key]; ok && e.Type == le.Type && !e.Flags.Volatile {
			e.Value = le.Value
		}
	}
	r.mu.Unlock()
	return nil
}
