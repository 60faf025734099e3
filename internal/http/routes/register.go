package routes

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/yeelightd/internal/http/mw"
)

// Register registers every API route on api.
func Register(api huma.API, h *Handlers) {
	// --- Health ---
	mw.PublicGet(api, "/api/v1/health", h.HealthCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Health check"),
		mw.WithDescription("Returns service health status. This endpoint does not require authentication."),
		mw.WithOperationID("healthCheck"))

	mw.HiddenGet(api, "/healthz", h.HealthCheck)

	mw.PublicGet(api, "/api/v1/version", h.VersionCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Daemon version"),
		mw.WithOperationID("getVersion"))

	// --- Config entries ---
	mw.ProtectedGet(api, "/api/v1/entries", h.Entry.ListEntries,
		mw.WithTags("Entries"),
		mw.WithSummary("List config entries"),
		mw.WithOperationID("listEntries"))

	mw.ProtectedPost(api, "/api/v1/entries", h.Entry.CreateEntry,
		mw.WithTags("Entries"),
		mw.WithSummary("Create a config entry"),
		mw.WithDescription("Adds a config entry for a bulb, by host or by hardware ID, and sets it up. A bulb that cannot be reached leaves the entry in setup_retry."),
		mw.WithOperationID("createEntry"),
		mw.WithDefaultStatus(http.StatusCreated))

	mw.ProtectedGet(api, "/api/v1/entries/{id}", h.Entry.GetEntry,
		mw.WithTags("Entries"),
		mw.WithSummary("Get a config entry"),
		mw.WithOperationID("getEntry"))

	mw.ProtectedDelete(api, "/api/v1/entries/{id}", h.Entry.DeleteEntry,
		mw.WithTags("Entries"),
		mw.WithSummary("Remove a config entry"),
		mw.WithDescription("Unloads the entry and removes it together with its registered entities."),
		mw.WithOperationID("deleteEntry"),
		mw.WithDefaultStatus(http.StatusNoContent))

	mw.ProtectedPost(api, "/api/v1/entries/{id}/setup", h.Entry.SetupEntry,
		mw.WithTags("Entries"),
		mw.WithSummary("Set up a config entry"),
		mw.WithOperationID("setupEntry"))

	mw.ProtectedPost(api, "/api/v1/entries/{id}/unload", h.Entry.UnloadEntry,
		mw.WithTags("Entries"),
		mw.WithSummary("Unload a config entry"),
		mw.WithOperationID("unloadEntry"))

	mw.ProtectedPost(api, "/api/v1/entries/{id}/reload", h.Entry.ReloadEntry,
		mw.WithTags("Entries"),
		mw.WithSummary("Reload a config entry"),
		mw.WithOperationID("reloadEntry"))

	mw.ProtectedPost(api, "/api/v1/entries/{id}/refresh", h.Entity.RefreshEntry,
		mw.WithTags("Entries"),
		mw.WithSummary("Refresh a bulb"),
		mw.WithDescription("Re-reads the bulb properties of a loaded entry and updates its states."),
		mw.WithOperationID("refreshEntry"))

	// --- Entities and states ---
	mw.ProtectedGet(api, "/api/v1/entities", h.Entity.ListEntities,
		mw.WithTags("Entities"),
		mw.WithSummary("List registered entities"),
		mw.WithOperationID("listEntities"))

	mw.ProtectedGet(api, "/api/v1/states", h.Entity.ListStates,
		mw.WithTags("Entities"),
		mw.WithSummary("List entity states"),
		mw.WithOperationID("listStates"))

	mw.ProtectedGet(api, "/api/v1/states/{entity_id}", h.Entity.GetState,
		mw.WithTags("Entities"),
		mw.WithSummary("Get an entity state"),
		mw.WithOperationID("getState"))

	mw.ProtectedPost(api, "/api/v1/lights/{entity_id}/state", h.Entity.SetLightState,
		mw.WithTags("Entities"),
		mw.WithSummary("Set light state"),
		mw.WithDescription("Turns a light entity on or off. Brightness, kelvin and rgb imply on; kelvin and rgb are mutually exclusive. Turning the nightlight entity on switches the bulb to moonlight mode."),
		mw.WithOperationID("setLightState"))

	// --- Discovery ---
	mw.ProtectedGet(api, "/api/v1/discovery", h.Discovery.ListBulbs,
		mw.WithTags("Discovery"),
		mw.WithSummary("List discovered bulbs"),
		mw.WithOperationID("listBulbs"))

	mw.ProtectedPost(api, "/api/v1/discovery/scan", h.Discovery.Scan,
		mw.WithTags("Discovery"),
		mw.WithSummary("Scan the network"),
		mw.WithDescription("Runs an SSDP and mDNS scan and returns every known bulb."),
		mw.WithOperationID("scanBulbs"))

	// --- Logging ---
	mw.ProtectedGet(api, "/api/v1/logging/level", h.Logging.GetLevel,
		mw.WithTags("Logging"),
		mw.WithSummary("Get global log level"),
		mw.WithOperationID("getLogLevel"))

	mw.ProtectedPut(api, "/api/v1/logging/level", h.Logging.SetLevel,
		mw.WithTags("Logging"),
		mw.WithSummary("Set global log level"),
		mw.WithDescription("Changes the global log level at runtime. Valid values: debug, info, warn, error."),
		mw.WithOperationID("setLogLevel"))
}
