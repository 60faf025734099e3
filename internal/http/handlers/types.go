// Package handlers provides typed Huma request/response structs and handler
// implementations for the yeelightd HTTP API.
package handlers

import (
	"time"

	"github.com/jmylchreest/yeelightd/internal/core"
	"github.com/jmylchreest/yeelightd/internal/registry"
	"github.com/jmylchreest/yeelightd/internal/state"
	"github.com/jmylchreest/yeelightd/pkg/yeelight"
)

// EntryResponse is the API representation of a config entry.
type EntryResponse struct {
	EntryID  string         `json:"entry_id" doc:"Config entry identifier"`
	Domain   string         `json:"domain" doc:"Integration domain"`
	Title    string         `json:"title" doc:"Display title"`
	UniqueID string         `json:"unique_id,omitempty" doc:"Hardware ID of the configured device, if known"`
	Source   string         `json:"source" doc:"How the entry was created (user, import, discovery)"`
	State    string         `json:"state" doc:"Lifecycle state (not_loaded, setup_in_progress, loaded, setup_error, setup_retry, failed_unload)"`
	Reason   string         `json:"reason,omitempty" doc:"Why the last setup or unload failed"`
	Data     map[string]any `json:"data" doc:"Entry data"`
	Options  map[string]any `json:"options,omitempty" doc:"Entry options, overriding data"`
}

// EntryFromCore converts a config entry to its API representation.
func EntryFromCore(e *core.ConfigEntry) EntryResponse {
	data := e.Data
	if data == nil {
		data = map[string]any{}
	}
	return EntryResponse{
		EntryID:  e.EntryID,
		Domain:   e.Domain,
		Title:    e.Title,
		UniqueID: e.UniqueID,
		Source:   e.Source,
		State:    string(e.State),
		Reason:   e.Reason,
		Data:     data,
		Options:  e.Options,
	}
}

// EntriesFromCore converts a list of config entries.
func EntriesFromCore(entries []*core.ConfigEntry) []EntryResponse {
	out := make([]EntryResponse, len(entries))
	for i, e := range entries {
		out[i] = EntryFromCore(e)
	}
	return out
}

// EntityResponse is the API representation of a registered entity.
type EntityResponse struct {
	EntityID      string    `json:"entity_id" doc:"Entity identifier (domain.object_id)"`
	UniqueID      string    `json:"unique_id" doc:"Stable unique ID the entity is registered under"`
	Platform      string    `json:"platform" doc:"Integration that owns the entity"`
	Domain        string    `json:"domain" doc:"Entity domain (light, binary_sensor)"`
	ConfigEntryID string    `json:"config_entry_id" doc:"Owning config entry"`
	Name          string    `json:"name" doc:"Original name of the entity"`
	CreatedAt     time.Time `json:"created_at" doc:"When the entity was first registered"`
}

// EntityFromRegistry converts a registry entry.
func EntityFromRegistry(e registry.Entry) EntityResponse {
	return EntityResponse{
		EntityID:      e.EntityID,
		UniqueID:      e.UniqueID,
		Platform:      e.Platform,
		Domain:        e.Domain,
		ConfigEntryID: e.ConfigEntryID,
		Name:          e.OriginalName,
		CreatedAt:     e.CreatedAt,
	}
}

// StateResponse is the API representation of an entity state.
type StateResponse struct {
	EntityID    string         `json:"entity_id" doc:"Entity identifier"`
	State       string         `json:"state" doc:"State value (on, off, unavailable)"`
	Attributes  map[string]any `json:"attributes" doc:"State attributes"`
	LastChanged time.Time      `json:"last_changed" doc:"When the state value last changed"`
	LastUpdated time.Time      `json:"last_updated" doc:"When the state or its attributes last changed"`
}

// StateFromStore converts a stored state.
func StateFromStore(s state.State) StateResponse {
	attrs := s.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return StateResponse{
		EntityID:    s.EntityID,
		State:       s.State,
		Attributes:  attrs,
		LastChanged: s.LastChanged,
		LastUpdated: s.LastUpdated,
	}
}

// BulbResponse is a bulb found on the network.
type BulbResponse struct {
	ID              string   `json:"id" doc:"Hardware ID"`
	Host            string   `json:"host" doc:"IP address"`
	Port            int      `json:"port" doc:"LAN control port"`
	Model           string   `json:"model" doc:"Model name, e.g. color or ceiling4"`
	Name            string   `json:"name,omitempty" doc:"Name stored on the bulb"`
	FirmwareVersion string   `json:"firmware_version,omitempty" doc:"Firmware version"`
	Support         []string `json:"support" doc:"Supported LAN methods"`
}

// BulbFromCapabilities converts a discovery reply.
func BulbFromCapabilities(c yeelight.Capabilities) BulbResponse {
	support := c.Support()
	if support == nil {
		support = []string{}
	}
	return BulbResponse{
		ID:              c.ID(),
		Host:            c.Host(),
		Port:            c.Port(),
		Model:           c.Model(),
		Name:            c.Name(),
		FirmwareVersion: c.FirmwareVersion(),
		Support:         support,
	}
}

// StatusResponse is a simple status response.
type StatusResponse struct {
	Status string `json:"status" doc:"Operation status"`
}
