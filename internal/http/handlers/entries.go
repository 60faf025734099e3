package handlers

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/yeelightd/internal/core"
	"github.com/jmylchreest/yeelightd/internal/integration"
)

// EntryManager is the config entry lifecycle used by the API. *core.Manager implements it.
type EntryManager interface {
	Entries(domain string) []*core.ConfigEntry
	Get(entryID string) (*core.ConfigEntry, error)
	Add(ctx context.Context, entry *core.ConfigEntry) error
	Setup(ctx context.Context, entryID string) (bool, error)
	Unload(ctx context.Context, entryID string) (bool, error)
	Remove(ctx context.Context, entryID string) error
}

// --- List Entries ---

// ListEntriesInput is the input for listing config entries.
type ListEntriesInput struct {
	Domain string `query:"domain" doc:"Only return entries of this domain"`
}

// ListEntriesOutput is the output for listing config entries.
type ListEntriesOutput struct {
	Body []EntryResponse
}

// --- Single entry ---

// EntryIDInput addresses one config entry.
type EntryIDInput struct {
	ID string `path:"id" doc:"Config entry identifier"`
}

// EntryOutput returns one config entry.
type EntryOutput struct {
	Body EntryResponse
}

// --- Create Entry ---

// CreateEntryInput is the input for creating a config entry.
type CreateEntryInput struct {
	Body struct {
		Domain   string         `json:"domain,omitempty" doc:"Integration domain" default:"yeelight"`
		Title    string         `json:"title,omitempty" doc:"Display title"`
		UniqueID string         `json:"unique_id,omitempty" doc:"Hardware ID of the bulb, if known"`
		Data     map[string]any `json:"data" doc:"Entry data, e.g. {\"host\": \"192.168.1.239\"} or {\"id\": \"0x000000000015243f\"}" required:"true"`
	}
}

// DeleteEntryOutput is empty; the endpoint answers 204.
type DeleteEntryOutput struct{}

// EntryHandler implements config entry HTTP handlers.
type EntryHandler struct {
	Entries EntryManager
	Logger  *slog.Logger
}

// ListEntries returns config entries, optionally filtered by domain.
func (h *EntryHandler) ListEntries(_ context.Context, input *ListEntriesInput) (*ListEntriesOutput, error) {
	return &ListEntriesOutput{Body: EntriesFromCore(h.Entries.Entries(input.Domain))}, nil
}

// GetEntry returns one config entry.
func (h *EntryHandler) GetEntry(_ context.Context, input *EntryIDInput) (*EntryOutput, error) {
	e, err := h.Entries.Get(input.ID)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &EntryOutput{Body: EntryFromCore(e)}, nil
}

// CreateEntry adds a config entry and sets it up. A failed setup does not
// fail the request; the returned entry carries the resulting state.
func (h *EntryHandler) CreateEntry(ctx context.Context, input *CreateEntryInput) (*EntryOutput, error) {
	domain := input.Body.Domain
	if domain == "" {
		domain = integration.Domain
	}
	title := input.Body.Title
	if title == "" {
		title, _ = input.Body.Data[integration.ConfName].(string)
	}
	if title == "" {
		title, _ = input.Body.Data[integration.ConfHost].(string)
	}
	entry := core.NewConfigEntry(domain, title, core.SourceUser, input.Body.Data)
	entry.UniqueID = input.Body.UniqueID

	if err := h.Entries.Add(ctx, entry); err != nil {
		return nil, toHumaError(err)
	}
	if _, err := h.Entries.Setup(ctx, entry.EntryID); err != nil {
		h.Logger.Warn("api: created entry did not set up", "entry_id", entry.EntryID, "error", err)
	}
	return h.GetEntry(ctx, &EntryIDInput{ID: entry.EntryID})
}

// SetupEntry sets up a config entry that is not loaded.
func (h *EntryHandler) SetupEntry(ctx context.Context, input *EntryIDInput) (*EntryOutput, error) {
	if _, err := h.Entries.Setup(ctx, input.ID); err != nil {
		return nil, toHumaError(err)
	}
	return h.GetEntry(ctx, input)
}

// UnloadEntry tears down a loaded config entry.
func (h *EntryHandler) UnloadEntry(ctx context.Context, input *EntryIDInput) (*EntryOutput, error) {
	if _, err := h.Entries.Unload(ctx, input.ID); err != nil {
		return nil, toHumaError(err)
	}
	return h.GetEntry(ctx, input)
}

// ReloadEntry unloads and sets up a config entry again.
func (h *EntryHandler) ReloadEntry(ctx context.Context, input *EntryIDInput) (*EntryOutput, error) {
	if _, err := h.Entries.Unload(ctx, input.ID); err != nil {
		return nil, toHumaError(err)
	}
	if _, err := h.Entries.Setup(ctx, input.ID); err != nil {
		return nil, toHumaError(err)
	}
	return h.GetEntry(ctx, input)
}

// DeleteEntry unloads and removes a config entry together with its entities.
func (h *EntryHandler) DeleteEntry(ctx context.Context, input *EntryIDInput) (*DeleteEntryOutput, error) {
	if err := h.Entries.Remove(ctx, input.ID); err != nil {
		return nil, toHumaError(err)
	}
	h.Logger.Info("api: config entry deleted", "entry_id", input.ID)
	return &DeleteEntryOutput{}, nil
}

var _ EntryHandlers = (*EntryHandler)(nil)

// EntryHandlers defines the config entry operations.
type EntryHandlers interface {
	ListEntries(ctx context.Context, input *ListEntriesInput) (*ListEntriesOutput, error)
	GetEntry(ctx context.Context, input *EntryIDInput) (*EntryOutput, error)
	CreateEntry(ctx context.Context, input *CreateEntryInput) (*EntryOutput, error)
	SetupEntry(ctx context.Context, input *EntryIDInput) (*EntryOutput, error)
	UnloadEntry(ctx context.Context, input *EntryIDInput) (*EntryOutput, error)
	ReloadEntry(ctx context.Context, input *EntryIDInput) (*EntryOutput, error)
	DeleteEntry(ctx context.Context, input *EntryIDInput) (*DeleteEntryOutput, error)
}
