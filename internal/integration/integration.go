package integration

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/yeelightd/internal/core"
	"github.com/jmylchreest/yeelightd/internal/errors"
	"github.com/jmylchreest/yeelightd/internal/registry"
	"github.com/jmylchreest/yeelightd/internal/state"
	"github.com/jmylchreest/yeelightd/pkg/yeelight"
)

// device is a loaded config entry and its bulb
type device struct {
	entryID          string
	bulb             Bulb
	info             yeelight.Device
	name             string
	nightlightSwitch bool
	saveOnChange     bool
	entities         []Entity

	mu sync.Mutex // serialises commands and refreshes
}

// Integration implements core.Integration and core.Importer for Yeelight bulbs
type Integration struct {
	registry  *registry.Registry
	states    *state.Store
	discovery Discovery
	factory   BulbFactory
	logger    *slog.Logger

	mu      sync.RWMutex
	devices map[string]*device
}

// New creates the integration
func New(reg *registry.Registry, states *state.Store, discovery Discovery, factory BulbFactory, logger *slog.Logger) *Integration {
	if logger == nil {
		logger = slog.Default()
	}
	return &Integration{
		registry:  reg,
		states:    states,
		discovery: discovery,
		factory:   factory,
		logger:    logger,
		devices:   make(map[string]*device),
	}
}

// Domain implements core.Integration
func (i *Integration) Domain() string { return Domain }

// SetupEntry connects to the entry's bulb and creates its entities.
//
// The host comes from the entry data, or from discovery by the entry's bulb
// ID. A bulb that cannot be found or does not answer returns ErrNotReady so
// the entry is retried; a bulb client that cannot be constructed fails setup.
// A discovered address that does not answer is forgotten, so the retry scans
// the network again instead of dialing a bulb that may have moved.
func (i *Integration) SetupEntry(ctx context.Context, entry *core.ConfigEntry) error {
	logger := i.logger.With("entry_id", entry.EntryID)

	host := entry.String(ConfHost)
	var caps yeelight.Capabilities
	discoveredID := ""
	if host == "" {
		id := entry.String(ConfID)
		if id == "" {
			return errors.InvalidInputf("config entry %s has neither host nor bulb id", entry.EntryID)
		}
		found, ok, err := i.discovery.Lookup(ctx, id)
		if err != nil {
			return errors.NotReadyf("discovery of bulb %s failed: %w", id, err)
		}
		if !ok || found.Host() == "" {
			return errors.NotReadyf("bulb %s not found on the network", id)
		}
		caps = found
		host = found.Host()
		discoveredID = id
		logger.Debug("light: resolved bulb by discovery", "id", id, "host", host)
	}

	model := entry.String(ConfModel)
	if model == "" {
		model = caps.Model()
	}

	bulb, err := i.factory(host, BulbOptions{
		Model:      model,
		Transition: time.Duration(entry.Int(ConfTransition, DefaultTransition)) * time.Millisecond,
	})
	if err != nil {
		return errors.DeviceUnavailablef("failed to create client for bulb %s: %w", host, err)
	}

	if model == "" {
		if prober, ok := bulb.(capabilityProber); ok {
			if probed, err := prober.Capabilities(ctx); err == nil {
				caps = probed
				model = probed.Model()
			} else {
				logger.Debug("light: capabilities probe failed", "host", host, "error", err)
			}
		}
	}

	props, err := bulb.GetProperties(ctx)
	if err != nil {
		_ = bulb.Close()
		if discoveredID != "" {
			i.discovery.Forget(discoveredID)
		}
		return errors.NotReadyf("bulb %s did not respond: %w", host, err)
	}

	info := yeelight.Device{
		Host:       host,
		Port:       yeelight.DefaultPort,
		HardwareID: entry.UniqueID,
		Model:      model,
		Type:       bulb.BulbType(),
		Spec:       bulb.ModelSpecs(),
	}
	if caps != nil {
		info.Port = caps.Port()
		info.FirmwareVersion = caps.FirmwareVersion()
		info.Support = caps.Support()
		info.Name = caps.Name()
	}

	d := &device{
		entryID:          entry.EntryID,
		bulb:             bulb,
		info:             info,
		name:             entityName(entry, caps, model, host),
		nightlightSwitch: entry.Bool(ConfNightlightSwitch),
		saveOnChange:     entry.Bool(ConfSaveOnChange),
	}
	if err := i.registerEntities(ctx, d, entry); err != nil {
		_ = bulb.Close()
		return err
	}

	i.mu.Lock()
	if old, ok := i.devices[entry.EntryID]; ok {
		_ = old.bulb.Close()
	}
	i.devices[entry.EntryID] = d
	i.mu.Unlock()

	i.writeStates(d, props)
	logger.Info("light: bulb set up", "host", host, "model", model, "type", info.Type.String(), "entities", len(d.entities))
	return nil
}

// entityName picks the display name: entry name, then the name stored on the
// bulb, then one built from model and bulb ID.
func entityName(entry *core.ConfigEntry, caps yeelight.Capabilities, model, host string) string {
	if name := entry.String(ConfName); name != "" {
		return name
	}
	if name := caps.Name(); name != "" {
		return name
	}
	id := entry.String(ConfID)
	if id == "" {
		id = caps.ID()
	}
	if id == "" {
		id = strings.ReplaceAll(host, ".", "_")
	}
	if model == "" {
		model = "bulb"
	}
	return fmt.Sprintf("yeelight_%s_%s", model, id)
}

func (i *Integration) registerEntities(ctx context.Context, d *device, entry *core.ConfigEntry) error {
	ids := UniqueIDs(d.info, entry, d.nightlightSwitch)

	candidates := []struct {
		uniqueID string
		domain   string
		name     string
		kind     EntityKind
	}{
		{ids.Light, DomainLight, d.name, KindLight},
		{ids.Nightlight, DomainLight, d.name + " nightlight", KindNightlight},
		{ids.Ambilight, DomainLight, d.name + " ambilight", KindAmbientLight},
		{ids.BinarySensor, DomainBinarySensor, d.name + " nightlight", KindNightlightSensor},
	}
	for _, c := range candidates {
		if c.uniqueID == "" {
			continue
		}
		reg, err := i.registry.GetOrCreate(ctx, c.domain, Domain, c.uniqueID, registry.CreateOptions{
			ConfigEntryID: entry.EntryID,
			SuggestedName: c.name,
		})
		if err != nil {
			return fmt.Errorf("registering %s entity for %s: %w", c.kind, entry.EntryID, err)
		}
		d.entities = append(d.entities, Entity{
			EntityID:      reg.EntityID,
			UniqueID:      c.uniqueID,
			Domain:        c.domain,
			Name:          c.name,
			Kind:          c.kind,
			ConfigEntryID: entry.EntryID,
		})
	}
	return nil
}

// writeStates publishes the state of every entity of d
func (i *Integration) writeStates(d *device, props yeelight.Properties) {
	for _, e := range d.entities {
		value, attrs := e.render(d, props)
		i.states.Set(e.EntityID, value, attrs)
	}
}

func (i *Integration) markUnavailable(d *device) {
	for _, e := range d.entities {
		i.states.Set(e.EntityID, state.Unavailable, map[string]any{"friendly_name": e.Name})
	}
}

// UnloadEntry closes the bulb connection and removes every state the entry
// wrote. Registry entries are kept so entity IDs survive a reload.
func (i *Integration) UnloadEntry(ctx context.Context, entry *core.ConfigEntry) error {
	i.mu.Lock()
	d, ok := i.devices[entry.EntryID]
	delete(i.devices, entry.EntryID)
	i.mu.Unlock()
	if !ok {
		return nil
	}

	for _, e := range d.entities {
		i.states.Remove(e.EntityID)
	}
	if err := d.bulb.Close(); err != nil {
		i.logger.Warn("light: closing bulb failed", "entry_id", entry.EntryID, "error", err)
	}
	i.logger.Info("light: bulb unloaded", "entry_id", entry.EntryID, "host", d.info.Host)
	return nil
}

// Entities returns the entities of every loaded entry, sorted by entity ID
func (i *Integration) Entities() []Entity {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []Entity
	for _, d := range i.devices {
		out = append(out, d.entities...)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].EntityID < out[b].EntityID })
	return out
}

// Device returns the device record of a loaded entry
func (i *Integration) Device(entryID string) (yeelight.Device, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	d, ok := i.devices[entryID]
	if !ok {
		return yeelight.Device{}, false
	}
	return d.info, true
}

func (i *Integration) findEntity(entityID string) (*device, Entity, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, d := range i.devices {
		for _, e := range d.entities {
			if e.EntityID == entityID {
				return d, e, nil
			}
		}
	}
	return nil, Entity{}, errors.NotFoundf("entity %s", entityID)
}

// Refresh re-reads the properties of a loaded entry's bulb and updates its
// states. A bulb that does not answer has its entities marked unavailable.
func (i *Integration) Refresh(ctx context.Context, entryID string) error {
	i.mu.RLock()
	d, ok := i.devices[entryID]
	i.mu.RUnlock()
	if !ok {
		return errors.NotFoundf("loaded config entry %s", entryID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	props, err := d.bulb.GetProperties(ctx)
	if err != nil {
		i.markUnavailable(d)
		return errors.DeviceUnavailablef("refreshing bulb %s: %w", d.info.Host, err)
	}
	i.writeStates(d, props)
	return nil
}

// RefreshAll refreshes every loaded bulb, logging failures
func (i *Integration) RefreshAll(ctx context.Context) {
	i.mu.RLock()
	ids := make([]string, 0, len(i.devices))
	for id := range i.devices {
		ids = append(ids, id)
	}
	i.mu.RUnlock()

	for _, id := range ids {
		if err := i.Refresh(ctx, id); err != nil && !errors.IsNotFound(err) {
			i.logger.Warn("light: refresh failed", "entry_id", id, "error", err)
		}
	}
}

// StartPolling refreshes all bulbs every interval until ctx is cancelled
func (i *Integration) StartPolling(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				i.RefreshAll(ctx)
			}
		}
	}()
}
