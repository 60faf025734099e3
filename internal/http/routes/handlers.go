package routes

import (
	"context"

	"github.com/jmylchreest/yeelightd/internal/http/handlers"
)

// Handlers aggregates the handler sets registered by Register. The daemon
// passes real implementations, the OpenAPI generator StubHandlers.
type Handlers struct {
	HealthCheck  func(context.Context, *handlers.HealthInput) (*handlers.HealthOutput, error)
	VersionCheck func(context.Context, *handlers.VersionInput) (*handlers.VersionOutput, error)
	Entry        handlers.EntryHandlers
	Entity       handlers.EntityHandlers
	Discovery    handlers.DiscoveryHandlers
	Logging      handlers.LoggingHandlers
}
