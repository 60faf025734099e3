// Package registry maps integration unique IDs to stable entity IDs.
//
// An entity is identified by (domain, platform, unique_id). The first time a
// unique ID is seen an entity ID such as light.living_room is generated from
// the suggested name and persisted, so the same physical device keeps its
// entity ID across restarts.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"

	"github.com/jmylchreest/yeelightd/internal/errors"
	"github.com/jmylchreest/yeelightd/internal/events"
)

// Entry is a registered entity
type Entry struct {
	EntityID      string    `json:"entity_id"`
	UniqueID      string    `json:"unique_id"`
	Platform      string    `json:"platform"`
	Domain        string    `json:"domain"`
	ConfigEntryID string    `json:"config_entry_id,omitempty"`
	OriginalName  string    `json:"original_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ObjectID returns the part of the entity ID after the domain
func (e Entry) ObjectID() string {
	_, obj, _ := strings.Cut(e.EntityID, ".")
	return obj
}

// Repository persists registry entries
type Repository interface {
	List(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, e Entry) error
	Delete(ctx context.Context, entityIDs ...string) error
}

// CreateOptions carries the details used when an entity is first registered
type CreateOptions struct {
	ConfigEntryID string
	SuggestedName string
}

type key struct {
	domain, platform, uniqueID string
}

// Registry is a cached view over a Repository. All methods are safe for concurrent use.
type Registry struct {
	repo   Repository
	bus    *events.Bus
	logger *slog.Logger

	mu       sync.RWMutex
	byEntity map[string]Entry
	byKey    map[key]string
}

// New creates a registry and loads the repository contents into its cache
func New(ctx context.Context, repo Repository, bus *events.Bus, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		repo:     repo,
		bus:      bus,
		logger:   logger,
		byEntity: make(map[string]Entry),
		byKey:    make(map[key]string),
	}
	entries, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading entity registry: %w", err)
	}
	for _, e := range entries {
		r.byEntity[e.EntityID] = e
		r.byKey[key{e.Domain, e.Platform, e.UniqueID}] = e.EntityID
	}
	logger.Debug("registry: loaded entities", "count", len(entries))
	return r, nil
}

// GetOrCreate returns the entity registered for the unique ID, registering a
// new one when none exists. An existing entity moves to opts.ConfigEntryID
// when that differs.
func (r *Registry) GetOrCreate(ctx context.Context, domain, platform, uniqueID string, opts CreateOptions) (Entry, error) {
	if domain == "" || platform == "" || uniqueID == "" {
		return Entry{}, errors.InvalidInputf("domain, platform and unique id are required")
	}

	r.mu.Lock()
	k := key{domain, platform, uniqueID}
	if entityID, ok := r.byKey[k]; ok {
		e := r.byEntity[entityID]
		if opts.ConfigEntryID == "" || e.ConfigEntryID == opts.ConfigEntryID {
			r.mu.Unlock()
			return e, nil
		}
		e.ConfigEntryID = opts.ConfigEntryID
		if err := r.repo.Save(ctx, e); err != nil {
			r.mu.Unlock()
			return Entry{}, fmt.Errorf("updating entity %s: %w", entityID, err)
		}
		r.byEntity[entityID] = e
		r.mu.Unlock()
		return e, nil
	}

	name := opts.SuggestedName
	if name == "" {
		name = platform
	}
	e := Entry{
		EntityID:      r.generateEntityID(domain, name),
		UniqueID:      uniqueID,
		Platform:      platform,
		Domain:        domain,
		ConfigEntryID: opts.ConfigEntryID,
		OriginalName:  opts.SuggestedName,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.repo.Save(ctx, e); err != nil {
		r.mu.Unlock()
		return Entry{}, fmt.Errorf("registering entity %s: %w", e.EntityID, err)
	}
	r.byEntity[e.EntityID] = e
	r.byKey[k] = e.EntityID
	r.mu.Unlock()

	r.logger.Info("registry: entity registered", "entity_id", e.EntityID, "unique_id", uniqueID, "platform", platform)
	r.bus.Emit(events.EntityRegistered, e)
	return e, nil
}

// generateEntityID must be called with r.mu held
func (r *Registry) generateEntityID(domain, name string) string {
	base := domain + "." + Slugify(name)
	candidate := base
	for i := 2; ; i++ {
		if _, taken := r.byEntity[candidate]; !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
}

// Get returns a registered entity
func (r *Registry) Get(entityID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byEntity[entityID]
	return e, ok
}

// EntityIDFor looks up the entity ID registered for a unique ID
func (r *Registry) EntityIDFor(domain, platform, uniqueID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byKey[key{domain, platform, uniqueID}]
	return id, ok
}

// All returns every registered entity sorted by entity ID
func (r *Registry) All() []Entry {
	return r.filter(func(Entry) bool { return true })
}

// EntriesForConfigEntry returns the entities belonging to a config entry
func (r *Registry) EntriesForConfigEntry(configEntryID string) []Entry {
	return r.filter(func(e Entry) bool { return e.ConfigEntryID == configEntryID })
}

func (r *Registry) filter(keep func(Entry) bool) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.byEntity))
	for _, e := range r.byEntity {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// Remove deletes a single entity
func (r *Registry) Remove(ctx context.Context, entityID string) error {
	r.mu.Lock()
	e, ok := r.byEntity[entityID]
	if !ok {
		r.mu.Unlock()
		return errors.NotFoundf("entity %s", entityID)
	}
	if err := r.repo.Delete(ctx, entityID); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("removing entity %s: %w", entityID, err)
	}
	r.forget(e)
	r.mu.Unlock()

	r.bus.Emit(events.EntityRemoved, e)
	return nil
}

// RemoveConfigEntry deletes every entity of a config entry and returns how many were removed
func (r *Registry) RemoveConfigEntry(ctx context.Context, configEntryID string) (int, error) {
	doomed := r.EntriesForConfigEntry(configEntryID)
	if len(doomed) == 0 {
		return 0, nil
	}
	ids := make([]string, len(doomed))
	for i, e := range doomed {
		ids[i] = e.EntityID
	}

	r.mu.Lock()
	if err := r.repo.Delete(ctx, ids...); err != nil {
		r.mu.Unlock()
		return 0, fmt.Errorf("removing entities of %s: %w", configEntryID, err)
	}
	for _, e := range doomed {
		r.forget(e)
	}
	r.mu.Unlock()

	for _, e := range doomed {
		r.bus.Emit(events.EntityRemoved, e)
	}
	r.logger.Info("registry: removed config entry entities", "config_entry_id", configEntryID, "count", len(doomed))
	return len(doomed), nil
}

// forget must be called with r.mu held
func (r *Registry) forget(e Entry) {
	delete(r.byEntity, e.EntityID)
	delete(r.byKey, key{e.Domain, e.Platform, e.UniqueID})
}

// Slugify transliterates a name to lower case ASCII and joins its words with
// single underscores, e.g. "Lámpara Salón" becomes "lampara_salon".
func Slugify(name string) string {
	words := strings.FieldsFunc(slug.Make(name), func(r rune) bool {
		return r == '-' || r == '_'
	})
	if len(words) == 0 {
		return "unnamed"
	}
	return strings.Join(words, "_")
}
