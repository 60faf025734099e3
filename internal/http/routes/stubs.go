package routes

import (
	"context"

	"github.com/jmylchreest/yeelightd/internal/http/handlers"
)

// StubHandlers returns handlers that do nothing. Huma only needs their
// signatures to build the OpenAPI document.
func StubHandlers() *Handlers {
	return &Handlers{
		HealthCheck:  handlers.HealthCheck,
		VersionCheck: (&handlers.VersionHandler{}).VersionCheck,
		Entry:        stubEntries{},
		Entity:       stubEntities{},
		Discovery:    stubDiscovery{},
		Logging:      stubLogging{},
	}
}

type stubEntries struct{}

func (stubEntries) ListEntries(context.Context, *handlers.ListEntriesInput) (*handlers.ListEntriesOutput, error) {
	return nil, nil
}

func (stubEntries) GetEntry(context.Context, *handlers.EntryIDInput) (*handlers.EntryOutput, error) {
	return nil, nil
}

func (stubEntries) CreateEntry(context.Context, *handlers.CreateEntryInput) (*handlers.EntryOutput, error) {
	return nil, nil
}

func (stubEntries) SetupEntry(context.Context, *handlers.EntryIDInput) (*handlers.EntryOutput, error) {
	return nil, nil
}

func (stubEntries) UnloadEntry(context.Context, *handlers.EntryIDInput) (*handlers.EntryOutput, error) {
	return nil, nil
}

func (stubEntries) ReloadEntry(context.Context, *handlers.EntryIDInput) (*handlers.EntryOutput, error) {
	return nil, nil
}

func (stubEntries) DeleteEntry(context.Context, *handlers.EntryIDInput) (*handlers.DeleteEntryOutput, error) {
	return nil, nil
}

type stubEntities struct{}

func (stubEntities) ListEntities(context.Context, *handlers.ListEntitiesInput) (*handlers.ListEntitiesOutput, error) {
	return nil, nil
}

func (stubEntities) ListStates(context.Context, *handlers.ListStatesInput) (*handlers.ListStatesOutput, error) {
	return nil, nil
}

func (stubEntities) GetState(context.Context, *handlers.EntityIDInput) (*handlers.StateOutput, error) {
	return nil, nil
}

func (stubEntities) SetLightState(context.Context, *handlers.SetLightStateInput) (*handlers.StateOutput, error) {
	return nil, nil
}

func (stubEntities) RefreshEntry(context.Context, *handlers.EntryIDInput) (*handlers.RefreshOutput, error) {
	return nil, nil
}

type stubDiscovery struct{}

func (stubDiscovery) ListBulbs(context.Context, *handlers.ListBulbsInput) (*handlers.ListBulbsOutput, error) {
	return nil, nil
}

func (stubDiscovery) Scan(context.Context, *handlers.ScanInput) (*handlers.ListBulbsOutput, error) {
	return nil, nil
}

type stubLogging struct{}

func (stubLogging) GetLevel(context.Context, *handlers.GetLevelInput) (*handlers.LevelOutput, error) {
	return nil, nil
}

func (stubLogging) SetLevel(context.Context, *handlers.SetLevelInput) (*handlers.LevelOutput, error) {
	return nil, nil
}
