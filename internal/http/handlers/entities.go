package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/yeelightd/internal/integration"
	"github.com/jmylchreest/yeelightd/internal/registry"
	"github.com/jmylchreest/yeelightd/internal/state"
)

// EntityRegistry lists registered entities. *registry.Registry implements it.
type EntityRegistry interface {
	All() []registry.Entry
	EntriesForConfigEntry(configEntryID string) []registry.Entry
	Get(entityID string) (registry.Entry, bool)
}

// StateReader reads entity states. *state.Store implements it.
type StateReader interface {
	All() []state.State
	Domain(domain string) []state.State
	Get(entityID string) (state.State, bool)
}

// LightController drives light entities. *integration.Integration implements it.
type LightController interface {
	TurnOn(ctx context.Context, entityID string, params integration.TurnOnParams) error
	TurnOff(ctx context.Context, entityID string) error
	Refresh(ctx context.Context, entryID string) error
}

// --- Entities ---

// ListEntitiesInput is the input for listing registered entities.
type ListEntitiesInput struct {
	ConfigEntryID string `query:"config_entry_id" doc:"Only return entities of this config entry"`
}

// ListEntitiesOutput lists registered entities.
type ListEntitiesOutput struct {
	Body []EntityResponse
}

// --- States ---

// ListStatesInput is the input for listing states.
type ListStatesInput struct {
	Domain string `query:"domain" doc:"Only return states of this entity domain, e.g. light"`
}

// ListStatesOutput lists entity states.
type ListStatesOutput struct {
	Body []StateResponse
}

// EntityIDInput addresses one entity.
type EntityIDInput struct {
	EntityID string `path:"entity_id" doc:"Entity identifier, e.g. light.living_room"`
}

// StateOutput returns one entity state.
type StateOutput struct {
	Body StateResponse
}

// SetLightStateInput changes a light entity.
type SetLightStateInput struct {
	EntityID string `path:"entity_id" doc:"Light entity identifier"`
	Body     struct {
		On         *bool   `json:"on,omitempty" doc:"Power state; defaults to on when other fields are set"`
		Brightness *int    `json:"brightness,omitempty" doc:"Brightness percent (1-100)" minimum:"1" maximum:"100"`
		Kelvin     *int    `json:"kelvin,omitempty" doc:"Color temperature in Kelvin" minimum:"1700" maximum:"6500"`
		RGB        *[3]int `json:"rgb,omitempty" doc:"Red, green and blue components (0-255)"`
	}
}

// RefreshOutput is the output of a manual refresh.
type RefreshOutput struct {
	Body StatusResponse
}

// EntityHandler implements entity, state and light control handlers.
type EntityHandler struct {
	Registry EntityRegistry
	States   StateReader
	Lights   LightController
	Logger   *slog.Logger
}

// ListEntities returns registered entities.
func (h *EntityHandler) ListEntities(_ context.Context, input *ListEntitiesInput) (*ListEntitiesOutput, error) {
	var entries []registry.Entry
	if input.ConfigEntryID != "" {
		entries = h.Registry.EntriesForConfigEntry(input.ConfigEntryID)
	} else {
		entries = h.Registry.All()
	}
	out := make([]EntityResponse, len(entries))
	for i, e := range entries {
		out[i] = EntityFromRegistry(e)
	}
	return &ListEntitiesOutput{Body: out}, nil
}

// ListStates returns current entity states.
func (h *EntityHandler) ListStates(_ context.Context, input *ListStatesInput) (*ListStatesOutput, error) {
	var states []state.State
	if input.Domain != "" {
		states = h.States.Domain(input.Domain)
	} else {
		states = h.States.All()
	}
	out := make([]StateResponse, len(states))
	for i, s := range states {
		out[i] = StateFromStore(s)
	}
	return &ListStatesOutput{Body: out}, nil
}

// GetState returns the state of one entity.
func (h *EntityHandler) GetState(_ context.Context, input *EntityIDInput) (*StateOutput, error) {
	st, ok := h.States.Get(input.EntityID)
	if !ok {
		return nil, huma.Error404NotFound("no state for entity " + input.EntityID)
	}
	return &StateOutput{Body: StateFromStore(st)}, nil
}

// SetLightState turns a light on or off and applies brightness and color.
func (h *EntityHandler) SetLightState(ctx context.Context, input *SetLightStateInput) (*StateOutput, error) {
	body := input.Body
	hasParams := body.Brightness != nil || body.Kelvin != nil || body.RGB != nil

	var err error
	switch {
	case body.On != nil && !*body.On:
		if hasParams {
			return nil, huma.Error400BadRequest("brightness and color cannot be set while turning a light off")
		}
		err = h.Lights.TurnOff(ctx, input.EntityID)
	case body.On != nil || hasParams:
		err = h.Lights.TurnOn(ctx, input.EntityID, integration.TurnOnParams{
			Brightness: body.Brightness,
			Kelvin:     body.Kelvin,
			RGB:        body.RGB,
		})
	default:
		return nil, huma.Error400BadRequest("nothing to change")
	}
	if err != nil {
		return nil, toHumaError(err)
	}
	return h.GetState(ctx, &EntityIDInput{EntityID: input.EntityID})
}

// RefreshEntry re-reads the bulb of a loaded config entry.
func (h *EntityHandler) RefreshEntry(ctx context.Context, input *EntryIDInput) (*RefreshOutput, error) {
	if err := h.Lights.Refresh(ctx, input.ID); err != nil {
		return nil, toHumaError(err)
	}
	return &RefreshOutput{Body: StatusResponse{Status: "ok"}}, nil
}

var _ EntityHandlers = (*EntityHandler)(nil)

// EntityHandlers defines the entity, state and light operations.
type EntityHandlers interface {
	ListEntities(ctx context.Context, input *ListEntitiesInput) (*ListEntitiesOutput, error)
	ListStates(ctx context.Context, input *ListStatesInput) (*ListStatesOutput, error)
	GetState(ctx context.Context, input *EntityIDInput) (*StateOutput, error)
	SetLightState(ctx context.Context, input *SetLightStateInput) (*StateOutput, error)
	RefreshEntry(ctx context.Context, input *EntryIDInput) (*RefreshOutput, error)
}
