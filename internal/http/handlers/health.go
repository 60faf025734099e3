package handlers

import (
	"context"
)

// HealthInput is the input for health check endpoints.
type HealthInput struct{}

// HealthOutput is the output for health check endpoints.
type HealthOutput struct {
	Body struct {
		Status string `json:"status" doc:"Service health status"`
	}
}

// HealthCheck returns the service health status.
func HealthCheck(_ context.Context, _ *HealthInput) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// VersionInput is the input for the version endpoint.
type VersionInput struct{}

// VersionOutput reports the build of the running daemon.
type VersionOutput struct {
	Body struct {
		Version   string `json:"version" doc:"Release version"`
		Commit    string `json:"commit" doc:"Git commit"`
		BuildDate string `json:"build_date" doc:"Build timestamp"`
	}
}

// VersionHandler serves build information set at link time.
type VersionHandler struct {
	Version   string
	Commit    string
	BuildDate string
}

// VersionCheck returns the daemon version.
func (h *VersionHandler) VersionCheck(_ context.Context, _ *VersionInput) (*VersionOutput, error) {
	out := &VersionOutput{}
	out.Body.Version = h.Version
	out.Body.Commit = h.Commit
	out.Body.BuildDate = h.BuildDate
	return out, nil
}
