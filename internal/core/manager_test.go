package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/yeelightd/internal/errors"
	"github.com/jmylchreest/yeelightd/internal/events"
)

type fakeIntegration struct {
	mu        sync.Mutex
	setupErr  error
	unloadErr error
	setups    []string
	unloads   []string
	imported  []*ConfigEntry
	importErr error
	gate      chan struct{} // when set, SetupEntry waits for it to close
}

func (f *fakeIntegration) Domain() string { return "yeelight" }

func (f *fakeIntegration) SetupEntry(ctx context.Context, entry *ConfigEntry) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setups = append(f.setups, entry.EntryID)
	return f.setupErr
}

func (f *fakeIntegration) UnloadEntry(ctx context.Context, entry *ConfigEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unloads = append(f.unloads, entry.EntryID)
	return f.unloadErr
}

func (f *fakeIntegration) Import(ctx context.Context, raw map[string]any, existing []*ConfigEntry) ([]*ConfigEntry, error) {
	return f.imported, f.importErr
}

func (f *fakeIntegration) setErr(err error) {
	f.mu.Lock()
	f.setupErr = err
	f.mu.Unlock()
}

func newTestManager(t *testing.T) (*Manager, *fakeIntegration, *MemoryStore, *events.Bus) {
	t.Helper()
	store := &MemoryStore{}
	bus := events.NewBus()
	m := NewManager(store, bus, slog.New(slog.NewTextHandler(io.Discard, nil)))
	integration := &fakeIntegration{}
	m.RegisterIntegration(integration)
	return m, integration, store, bus
}

func addEntry(t *testing.T, m *Manager, uniqueID string) *ConfigEntry {
	t.Helper()
	e := NewConfigEntry("yeelight", "bulb", SourceUser, map[string]any{"id": "0x1"})
	e.UniqueID = uniqueID
	require.NoError(t, m.Add(context.Background(), e))
	return e
}

func TestManager_AddAndGet(t *testing.T) {
	m, _, store, _ := newTestManager(t)
	e := addEntry(t, m, "0x1")

	got, err := m.Get(e.EntryID)
	require.NoError(t, err)
	assert.Equal(t, StateNotLoaded, got.State)
	assert.Equal(t, "0x1", got.UniqueID)
	assert.Equal(t, 1, store.Saves())

	_, err = m.Get("missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestManager_AddRejectsDuplicates(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	e := addEntry(t, m, "0x1")

	dup := NewConfigEntry("yeelight", "other", SourceImport, nil)
	dup.UniqueID = "0x1"
	assert.True(t, errors.IsAlreadyConfigured(m.Add(context.Background(), dup)))

	sameID := e.Clone()
	sameID.UniqueID = ""
	assert.True(t, errors.IsAlreadyConfigured(m.Add(context.Background(), sameID)))

	assert.True(t, errors.IsInvalidInput(m.Add(context.Background(), &ConfigEntry{})))
	assert.Len(t, m.Entries("yeelight"), 1)
}

func TestManager_SetupAndUnload(t *testing.T) {
	m, integration, _, bus := newTestManager(t)
	var seen []events.EventType
	bus.Subscribe(func(e events.Event) { seen = append(seen, e.Type) })

	e := addEntry(t, m, "")
	ok, err := m.Setup(context.Background(), e.EntryID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := m.Get(e.EntryID)
	assert.Equal(t, StateLoaded, got.State)

	// already loaded
	ok, err = m.Setup(context.Background(), e.EntryID)
	assert.False(t, ok)
	assert.True(t, errors.IsInvalidInput(err))

	ok, err = m.Unload(context.Background(), e.EntryID)
	require.NoError(t, err)
	assert.True(t, ok)
	got, _ = m.Get(e.EntryID)
	assert.Equal(t, StateNotLoaded, got.State)

	assert.Equal(t, []string{e.EntryID}, integration.setups)
	assert.Equal(t, []string{e.EntryID}, integration.unloads)
	assert.Equal(t, []events.EventType{events.EntryAdded, events.EntryLoaded, events.EntryUnloaded}, seen)
}

func TestManager_SetupNotReadyRetries(t *testing.T) {
	m, integration, _, _ := newTestManager(t)
	integration.setErr(errors.NotReadyf("bulb 0x1 not found"))

	e := addEntry(t, m, "")
	ok, err := m.Setup(context.Background(), e.EntryID)
	assert.False(t, ok)
	assert.True(t, errors.IsNotReady(err))

	got, _ := m.Get(e.EntryID)
	assert.Equal(t, StateSetupRetry, got.State)
	assert.Contains(t, got.Reason, "not found")

	integration.setErr(nil)
	m.RetryPending(context.Background())
	got, _ = m.Get(e.EntryID)
	assert.Equal(t, StateLoaded, got.State)
}

func TestManager_SetupError(t *testing.T) {
	m, integration, _, _ := newTestManager(t)
	integration.setErr(fmt.Errorf("bulb constructor failed"))

	e := addEntry(t, m, "")
	ok, err := m.Setup(context.Background(), e.EntryID)
	assert.False(t, ok)
	require.Error(t, err)

	got, _ := m.Get(e.EntryID)
	assert.Equal(t, StateSetupError, got.State)

	// setup_error entries are not retried automatically
	integration.setErr(nil)
	m.RetryPending(context.Background())
	got, _ = m.Get(e.EntryID)
	assert.Equal(t, StateSetupError, got.State)

	// but can be set up again explicitly
	ok, err = m.Setup(context.Background(), e.EntryID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestManager_SetupUnknownIntegration(t *testing.T) {
	m := NewManager(nil, nil, nil)
	e := NewConfigEntry("hue", "bridge", "", nil)
	require.NoError(t, m.Add(context.Background(), e))

	ok, err := m.Setup(context.Background(), e.EntryID)
	assert.False(t, ok)
	assert.True(t, errors.IsNotFound(err))
	got, _ := m.Get(e.EntryID)
	assert.Equal(t, StateSetupError, got.State)
}

func TestManager_UnloadFailure(t *testing.T) {
	m, integration, _, _ := newTestManager(t)
	integration.unloadErr = fmt.Errorf("close failed")

	e := addEntry(t, m, "")
	_, err := m.Setup(context.Background(), e.EntryID)
	require.NoError(t, err)

	ok, err := m.Unload(context.Background(), e.EntryID)
	assert.False(t, ok)
	require.Error(t, err)
	got, _ := m.Get(e.EntryID)
	assert.Equal(t, StateFailedUnload, got.State)
}

func TestManager_UnloadNotLoaded(t *testing.T) {
	m, integration, _, _ := newTestManager(t)
	e := addEntry(t, m, "")

	ok, err := m.Unload(context.Background(), e.EntryID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, integration.unloads)
}

func TestManager_Remove(t *testing.T) {
	m, integration, store, _ := newTestManager(t)
	var removed []string
	m.OnRemove(func(e *ConfigEntry) { removed = append(removed, e.EntryID) })

	e := addEntry(t, m, "")
	_, err := m.Setup(context.Background(), e.EntryID)
	require.NoError(t, err)

	require.NoError(t, m.Remove(context.Background(), e.EntryID))
	assert.Equal(t, []string{e.EntryID}, integration.unloads)
	assert.Equal(t, []string{e.EntryID}, removed)
	assert.Empty(t, m.Entries(""))

	persisted, _ := store.Load()
	assert.Empty(t, persisted)

	assert.True(t, errors.IsNotFound(m.Remove(context.Background(), e.EntryID)))
}

func TestManager_SetupComponent(t *testing.T) {
	m, integration, _, _ := newTestManager(t)
	existing := addEntry(t, m, "0x1")

	imported := NewConfigEntry("yeelight", "yeelight", SourceImport, map[string]any{"host": "192.168.1.239"})
	duplicate := NewConfigEntry("yeelight", "dup", SourceImport, nil)
	duplicate.UniqueID = "0x1"
	integration.imported = []*ConfigEntry{imported, duplicate}

	require.NoError(t, m.SetupComponent(context.Background(), "yeelight", map[string]any{"devices": map[string]any{}}))

	entries := m.Entries("yeelight")
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, StateLoaded, e.State, e.Title)
	}
	assert.ElementsMatch(t, []string{existing.EntryID, imported.EntryID}, integration.setups)

	assert.True(t, errors.IsNotFound(m.SetupComponent(context.Background(), "hue", nil)))
}

func TestManager_SetupComponentImportError(t *testing.T) {
	m, integration, _, _ := newTestManager(t)
	integration.importErr = fmt.Errorf("bad devices block")
	err := m.SetupComponent(context.Background(), "yeelight", map[string]any{"devices": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import yeelight configuration")
}

func TestManager_LoadAndShutdown(t *testing.T) {
	store := &MemoryStore{}
	e := NewConfigEntry("yeelight", "bulb", SourceUser, nil)
	require.NoError(t, store.Save([]*ConfigEntry{e}))

	m := NewManager(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	integration := &fakeIntegration{}
	m.RegisterIntegration(integration)
	require.NoError(t, m.Load())
	require.Len(t, m.Entries(""), 1)

	_, err := m.Setup(context.Background(), e.EntryID)
	require.NoError(t, err)
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{e.EntryID}, integration.unloads)
}

func TestManager_ShutdownWaitsForRunningSetup(t *testing.T) {
	m, integration, _, _ := newTestManager(t)
	integration.gate = make(chan struct{})
	e := addEntry(t, m, "0x1")

	setupDone := make(chan struct{})
	go func() {
		_, _ = m.Setup(context.Background(), e.EntryID)
		close(setupDone)
	}()
	require.Eventually(t, func() bool {
		got, err := m.Get(e.EntryID)
		return err == nil && got.State == StateSetupInProgress
	}, time.Second, 5*time.Millisecond)

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- m.Shutdown(context.Background()) }()

	select {
	case <-shutdownDone:
		t.Fatal("Shutdown returned while a setup was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(integration.gate)
	<-setupDone
	require.NoError(t, <-shutdownDone)

	got, err := m.Get(e.EntryID)
	require.NoError(t, err)
	assert.Equal(t, StateNotLoaded, got.State)
	assert.Equal(t, []string{e.EntryID}, integration.unloads)

	// no setups after shutdown
	ok, err := m.Setup(context.Background(), e.EntryID)
	assert.False(t, ok)
	assert.True(t, errors.IsNotReady(err))
	assert.Len(t, integration.setups, 1)
}

func TestManager_EventSubscriberCanReadManager(t *testing.T) {
	m, _, _, bus := newTestManager(t)
	var states []EntryState
	bus.Subscribe(func(ev events.Event) {
		var e ConfigEntry
		if err := ev.Decode(&e); err == nil && e.EntryID != "" {
			got, err := m.Get(e.EntryID)
			if err == nil {
				states = append(states, got.State)
			}
		}
	})
	e := addEntry(t, m, "")
	_, err := m.Setup(context.Background(), e.EntryID)
	require.NoError(t, err)
	assert.Equal(t, []EntryState{StateNotLoaded, StateLoaded}, states)
}
