package core

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jmylchreest/yeelightd/internal/errors"
	"github.com/jmylchreest/yeelightd/internal/events"
)

// Manager owns config entries and drives their lifecycle through the
// registered integrations.
type Manager struct {
	mu           sync.RWMutex
	entries      map[string]*ConfigEntry
	integrations map[string]Integration
	onRemove     []func(*ConfigEntry)
	store        Store
	bus          *events.Bus
	logger       *slog.Logger

	closed   bool           // set by Shutdown; no further setups start
	inflight sync.WaitGroup // setups in progress
}

// NewManager creates a manager. store may be nil for an unpersisted manager.
func NewManager(store Store, bus *events.Bus, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		entries:      make(map[string]*ConfigEntry),
		integrations: make(map[string]Integration),
		store:        store,
		bus:          bus,
		logger:       logger,
	}
}

// RegisterIntegration makes an integration available for its domain
func (m *Manager) RegisterIntegration(i Integration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.integrations[i.Domain()] = i
	m.logger.Debug("core: integration registered", "domain", i.Domain())
}

// OnRemove registers a hook run after an entry has been removed
func (m *Manager) OnRemove(fn func(*ConfigEntry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemove = append(m.onRemove, fn)
}

// Load reads persisted entries. Entries start in StateNotLoaded.
func (m *Manager) Load() error {
	if m.store == nil {
		return nil
	}
	entries, err := m.store.Load()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		e.State = StateNotLoaded
		m.entries[e.EntryID] = e
	}
	m.logger.Info("core: loaded config entries", "count", len(entries))
	return nil
}

// save must be called with m.mu held
func (m *Manager) save() error {
	if m.store == nil {
		return nil
	}
	list := make([]*ConfigEntry, 0, len(m.entries))
	for _, e := range m.entries {
		list = append(list, e)
	}
	sortEntries(list)
	if err := m.store.Save(list); err != nil {
		return errors.LogErrorAndReturn(m.logger, err, "core: failed to persist entries")
	}
	return nil
}

func sortEntries(list []*ConfigEntry) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Domain != list[j].Domain {
			return list[i].Domain < list[j].Domain
		}
		if list[i].Title != list[j].Title {
			return list[i].Title < list[j].Title
		}
		return list[i].EntryID < list[j].EntryID
	})
}

// Add stores a new entry. An entry whose unique ID is already configured for
// the same domain is rejected with ErrAlreadyConfigured.
func (m *Manager) Add(ctx context.Context, entry *ConfigEntry) error {
	if entry == nil || entry.Domain == "" {
		return errors.InvalidInputf("config entry requires a domain")
	}
	if entry.EntryID == "" {
		entry.EntryID = NewEntryID()
	}
	if entry.Data == nil {
		entry.Data = map[string]any{}
	}
	if entry.Options == nil {
		entry.Options = map[string]any{}
	}

	m.mu.Lock()
	if _, exists := m.entries[entry.EntryID]; exists {
		m.mu.Unlock()
		return errors.AlreadyConfiguredf("config entry %s", entry.EntryID)
	}
	if entry.UniqueID != "" {
		for _, e := range m.entries {
			if e.Domain == entry.Domain && e.UniqueID == entry.UniqueID {
				m.mu.Unlock()
				return errors.AlreadyConfiguredf("%s device %s", entry.Domain, entry.UniqueID)
			}
		}
	}
	entry.State = StateNotLoaded
	m.entries[entry.EntryID] = entry.Clone()
	if err := m.save(); err != nil {
		delete(m.entries, entry.EntryID)
		m.mu.Unlock()
		return err
	}
	added := entry.Clone()
	m.mu.Unlock()

	m.logger.Info("core: config entry added", "entry_id", entry.EntryID, "domain", entry.Domain, "title", entry.Title, "source", entry.Source)
	m.bus.Emit(events.EntryAdded, added)
	return nil
}

// Get returns a copy of an entry
func (m *Manager) Get(entryID string) (*ConfigEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[entryID]
	if !ok {
		return nil, errors.NotFoundf("config entry %s", entryID)
	}
	return e.Clone(), nil
}

// Entries returns copies of the entries of a domain, or of all domains when domain is empty
func (m *Manager) Entries(domain string) []*ConfigEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ConfigEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if domain == "" || e.Domain == domain {
			out = append(out, e.Clone())
		}
	}
	sortEntries(out)
	return out
}

func (m *Manager) setState(entryID string, state EntryState, reason string) {
	m.mu.Lock()
	if e, ok := m.entries[entryID]; ok {
		e.State = state
		e.Reason = reason
	}
	m.mu.Unlock()
}

// Setup sets up an entry through its integration. It reports whether the entry
// is loaded; on failure the error says why and the entry is left in
// StateSetupRetry (for ErrNotReady) or StateSetupError.
func (m *Manager) Setup(ctx context.Context, entryID string) (bool, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false, errors.NotReadyf("config entry %s: manager is shutting down", entryID)
	}
	e, ok := m.entries[entryID]
	if !ok {
		m.mu.Unlock()
		return false, errors.NotFoundf("config entry %s", entryID)
	}
	switch e.State {
	case StateLoaded, StateSetupInProgress, StateFailedUnload:
		state := e.State
		m.mu.Unlock()
		return false, errors.InvalidInputf("config entry %s cannot be set up while %s", entryID, state)
	}
	integration, ok := m.integrations[e.Domain]
	if !ok {
		e.State = StateSetupError
		e.Reason = "integration not found"
		m.mu.Unlock()
		return false, errors.NotFoundf("integration %s", e.Domain)
	}
	e.State = StateSetupInProgress
	e.Reason = ""
	snapshot := e.Clone()
	m.inflight.Add(1)
	m.mu.Unlock()
	defer m.inflight.Done()

	logger := m.logger.With("entry_id", entryID, "domain", snapshot.Domain, "title", snapshot.Title)
	start := time.Now()
	err := integration.SetupEntry(ctx, snapshot)
	switch {
	case err == nil:
		m.setState(entryID, StateLoaded, "")
		logger.Info("core: config entry loaded", "duration", time.Since(start))
		m.bus.Emit(events.EntryLoaded, m.eventEntry(entryID))
		return true, nil
	case errors.IsNotReady(err):
		m.setState(entryID, StateSetupRetry, err.Error())
		logger.Warn("core: config entry not ready, will retry", "error", err)
	default:
		m.setState(entryID, StateSetupError, err.Error())
		logger.Error("core: config entry setup failed", "error", err)
	}
	m.bus.Emit(events.EntrySetupFailed, m.eventEntry(entryID))
	return false, err
}

func (m *Manager) eventEntry(entryID string) *ConfigEntry {
	e, err := m.Get(entryID)
	if err != nil {
		return nil
	}
	return e
}

// Unload tears down a loaded entry. Entries that are not loaded are simply
// marked StateNotLoaded.
func (m *Manager) Unload(ctx context.Context, entryID string) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[entryID]
	if !ok {
		m.mu.Unlock()
		return false, errors.NotFoundf("config entry %s", entryID)
	}
	if e.State == StateSetupInProgress {
		m.mu.Unlock()
		return false, errors.InvalidInputf("config entry %s is being set up", entryID)
	}
	if e.State != StateLoaded {
		e.State = StateNotLoaded
		e.Reason = ""
		m.mu.Unlock()
		return true, nil
	}
	integration := m.integrations[e.Domain]
	snapshot := e.Clone()
	m.mu.Unlock()

	if integration != nil {
		if err := integration.UnloadEntry(ctx, snapshot); err != nil {
			m.setState(entryID, StateFailedUnload, err.Error())
			return false, errors.LogErrorAndReturn(m.logger, err, "core: config entry unload failed", "entry_id", entryID)
		}
	}
	m.setState(entryID, StateNotLoaded, "")
	m.logger.Info("core: config entry unloaded", "entry_id", entryID, "domain", snapshot.Domain)
	m.bus.Emit(events.EntryUnloaded, m.eventEntry(entryID))
	return true, nil
}

// Remove unloads and deletes an entry, then runs the OnRemove hooks
func (m *Manager) Remove(ctx context.Context, entryID string) error {
	if _, err := m.Unload(ctx, entryID); err != nil && !errors.IsNotFound(err) {
		m.logger.Warn("core: removing entry that failed to unload", "entry_id", entryID, "error", err)
	}

	m.mu.Lock()
	e, ok := m.entries[entryID]
	if !ok {
		m.mu.Unlock()
		return errors.NotFoundf("config entry %s", entryID)
	}
	delete(m.entries, entryID)
	err := m.save()
	hooks := append([]func(*ConfigEntry){}, m.onRemove...)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(e)
	}
	m.logger.Info("core: config entry removed", "entry_id", entryID, "domain", e.Domain)
	m.bus.Emit(events.EntryRemoved, e)
	return err
}

// SetupComponent imports flat configuration for a domain (when the
// integration supports it) and sets up every entry of the domain that is not
// loaded yet. Individual setup failures are logged, not returned.
func (m *Manager) SetupComponent(ctx context.Context, domain string, raw map[string]any) error {
	m.mu.RLock()
	integration, ok := m.integrations[domain]
	m.mu.RUnlock()
	if !ok {
		return errors.NotFoundf("integration %s", domain)
	}

	if importer, ok := integration.(Importer); ok && len(raw) > 0 {
		imported, err := importer.Import(ctx, raw, m.Entries(domain))
		if err != nil {
			return errors.WrapErrorf(err, "import %s configuration", domain)
		}
		for _, entry := range imported {
			if err := m.Add(ctx, entry); err != nil {
				if errors.IsAlreadyConfigured(err) {
					m.logger.Debug("core: skipping imported entry", "domain", domain, "title", entry.Title, "reason", err)
					continue
				}
				return err
			}
		}
	}

	for _, e := range m.Entries(domain) {
		if e.State != StateNotLoaded {
			continue
		}
		// failures are logged by Setup and leave the entry in a retry or error state
		_, _ = m.Setup(ctx, e.EntryID)
	}
	return nil
}

// RetryPending re-attempts setup of every entry in StateSetupRetry
func (m *Manager) RetryPending(ctx context.Context) {
	m.mu.RLock()
	var pending []string
	for id, e := range m.entries {
		if e.State == StateSetupRetry {
			pending = append(pending, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range pending {
		if ctx.Err() != nil {
			return
		}
		m.logger.Debug("core: retrying config entry setup", "entry_id", id)
		_, _ = m.Setup(ctx, id)
	}
}

// StartRetryWorker retries pending entries every interval until ctx is cancelled
func (m *Manager) StartRetryWorker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.RetryPending(ctx)
			}
		}
	}()
}

// Shutdown stops new setups, waits for running ones and unloads every loaded
// entry. The first unload error is returned.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.inflight.Wait()

	var firstErr error
	for _, e := range m.Entries("") {
		if e.State != StateLoaded {
			continue
		}
		if _, err := m.Unload(ctx, e.EntryID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
