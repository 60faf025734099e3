// Package routes holds the route table of the yeelightd HTTP API. The daemon
// and the OpenAPI generator register the same routes.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/yeelightd/internal/http/mw"
)

// NewHumaConfig creates the shared Huma configuration for the API.
func NewHumaConfig(version, baseURL string) huma.Config {
	cfg := huma.DefaultConfig("yeelightd API", version)
	cfg.Info.Description = "REST API for Yeelight bulbs managed by the yeelightd daemon: config entries, entities, states and discovery."
	cfg.CreateHooks = nil

	if baseURL != "" {
		cfg.Servers = []*huma.Server{{URL: baseURL, Description: "API Server"}}
	}

	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		mw.SecurityScheme: {
			Type:        "http",
			Scheme:      "bearer",
			Description: "Only enforced when api.keys is configured. Send `Authorization: Bearer <key>` or `X-API-Key: <key>`.",
		},
	}

	cfg.Tags = []*huma.Tag{
		{Name: "Entries", Description: "Config entry lifecycle"},
		{Name: "Entities", Description: "Registered entities, states and light control"},
		{Name: "Discovery", Description: "Bulbs found on the local network"},
		{Name: "Logging", Description: "Runtime log level"},
	}
	return cfg
}
