// Package core holds the host side of integrations: config entries, their
// persistence and the setup/unload lifecycle.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jmylchreest/yeelightd/internal/errors"
)

// ErrNotReady is returned (wrapped) by an integration whose entry cannot be set up yet.
// The manager puts the entry in StateSetupRetry and retries it later.
var ErrNotReady = errors.ErrNotReady

// EntryState is the lifecycle state of a config entry. It is not persisted.
type EntryState string

const (
	StateNotLoaded       EntryState = "not_loaded"
	StateSetupInProgress EntryState = "setup_in_progress"
	StateLoaded          EntryState = "loaded"
	StateSetupError      EntryState = "setup_error"
	StateSetupRetry      EntryState = "setup_retry"
	StateFailedUnload    EntryState = "failed_unload"
)

// Entry sources
const (
	SourceUser      = "user"
	SourceImport    = "import"
	SourceDiscovery = "discovery"
)

// ConfigEntry is one configured device instance of an integration
type ConfigEntry struct {
	EntryID  string         `yaml:"entry_id" json:"entry_id"`
	Domain   string         `yaml:"domain" json:"domain"`
	Title    string         `yaml:"title" json:"title"`
	UniqueID string         `yaml:"unique_id,omitempty" json:"unique_id,omitempty"`
	Source   string         `yaml:"source" json:"source"`
	Data     map[string]any `yaml:"data" json:"data"`
	Options  map[string]any `yaml:"options,omitempty" json:"options,omitempty"`

	State  EntryState `yaml:"-" json:"state"`
	Reason string     `yaml:"-" json:"reason,omitempty"`
}

// NewEntryID returns a new 32 character hex entry identifier
func NewEntryID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewConfigEntry creates an entry with a fresh ID in StateNotLoaded
func NewConfigEntry(domain, title, source string, data map[string]any) *ConfigEntry {
	if data == nil {
		data = map[string]any{}
	}
	if source == "" {
		source = SourceUser
	}
	return &ConfigEntry{
		EntryID: NewEntryID(),
		Domain:  domain,
		Title:   title,
		Source:  source,
		Data:    data,
		Options: map[string]any{},
		State:   StateNotLoaded,
	}
}

// Clone returns a copy whose maps can be modified independently
func (e *ConfigEntry) Clone() *ConfigEntry {
	c := *e
	c.Data = cloneMap(e.Data)
	c.Options = cloneMap(e.Options)
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// value looks a key up in Options first, then Data
func (e *ConfigEntry) value(key string) (any, bool) {
	if v, ok := e.Options[key]; ok {
		return v, true
	}
	v, ok := e.Data[key]
	return v, ok
}

// String returns a setting as a string, or "" when unset
func (e *ConfigEntry) String(key string) string {
	v, ok := e.value(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool returns a setting as a bool. Strings such as "true" are accepted.
func (e *ConfigEntry) Bool(key string) bool {
	v, ok := e.value(key)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(b)
		return parsed
	default:
		return false
	}
}

// Int returns a setting as an int, falling back when unset or malformed
func (e *ConfigEntry) Int(key string, fallback int) int {
	v, ok := e.value(key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return fallback
}
