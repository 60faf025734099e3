package client

import "time"

// Entry is a config entry as returned by the daemon
type Entry struct {
	EntryID  string         `json:"entry_id"`
	Domain   string         `json:"domain"`
	Title    string         `json:"title"`
	UniqueID string         `json:"unique_id,omitempty"`
	Source   string         `json:"source"`
	State    string         `json:"state"`
	Reason   string         `json:"reason,omitempty"`
	Data     map[string]any `json:"data"`
	Options  map[string]any `json:"options,omitempty"`
}

// NewEntry is the body of an entry creation request
type NewEntry struct {
	Domain   string         `json:"domain,omitempty"`
	Title    string         `json:"title,omitempty"`
	UniqueID string         `json:"unique_id,omitempty"`
	Data     map[string]any `json:"data"`
}

// Entity is a registered entity
type Entity struct {
	EntityID      string    `json:"entity_id"`
	UniqueID      string    `json:"unique_id"`
	Platform      string    `json:"platform"`
	Domain        string    `json:"domain"`
	ConfigEntryID string    `json:"config_entry_id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
}

// State is the current state of an entity
type State struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Bulb is a bulb seen by discovery
type Bulb struct {
	ID              string   `json:"id"`
	Host            string   `json:"host"`
	Port            int      `json:"port"`
	Model           string   `json:"model"`
	Name            string   `json:"name,omitempty"`
	FirmwareVersion string   `json:"firmware_version,omitempty"`
	Support         []string `json:"support"`
}

// LightCommand changes a light. Nil fields are left untouched; a command with
// only settings implies on.
type LightCommand struct {
	On         *bool   `json:"on,omitempty"`
	Brightness *int    `json:"brightness,omitempty"`
	Kelvin     *int    `json:"kelvin,omitempty"`
	RGB        *[3]int `json:"rgb,omitempty"`
}

// Version describes the daemon build
type Version struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}
