package core

import "context"

// Integration sets up and tears down the config entries of one domain
type Integration interface {
	Domain() string
	// SetupEntry creates the entities of an entry. Wrap ErrNotReady to have it retried.
	SetupEntry(ctx context.Context, entry *ConfigEntry) error
	UnloadEntry(ctx context.Context, entry *ConfigEntry) error
}

// Importer is implemented by integrations that accept flat configuration.
// Import returns the entries to add; existing holds the domain's current entries.
type Importer interface {
	Import(ctx context.Context, raw map[string]any, existing []*ConfigEntry) ([]*ConfigEntry, error)
}
