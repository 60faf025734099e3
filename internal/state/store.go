// Package state holds the current state of every entity.
package state

import (
	"maps"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/yeelightd/internal/events"
)

// Common state values
const (
	On          = "on"
	Off         = "off"
	Unavailable = "unavailable"
)

// State is the current state of one entity
type State struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Domain returns the domain part of the entity ID
func (s State) Domain() string {
	domain, _, _ := strings.Cut(s.EntityID, ".")
	return domain
}

// ChangedEvent is the payload of events.StateChanged
type ChangedEvent struct {
	EntityID string `json:"entity_id"`
	OldState *State `json:"old_state,omitempty"`
	NewState *State `json:"new_state,omitempty"`
}

// Store keeps states and publishes a StateChanged event whenever one changes.
type Store struct {
	mu     sync.RWMutex
	states map[string]State
	bus    *events.Bus
	now    func() time.Time
}

// NewStore creates an empty store. bus may be nil.
func NewStore(bus *events.Bus) *Store {
	return &Store{
		states: make(map[string]State),
		bus:    bus,
		now:    time.Now,
	}
}

// Set stores a state. LastChanged only moves when the state value changes;
// nothing is published when neither the value nor the attributes changed.
func (s *Store) Set(entityID, value string, attrs map[string]any) State {
	now := s.now()
	attrs = maps.Clone(attrs)
	if attrs == nil {
		attrs = map[string]any{}
	}

	s.mu.Lock()
	old, existed := s.states[entityID]
	if existed && old.State == value && reflect.DeepEqual(old.Attributes, attrs) {
		s.mu.Unlock()
		return old
	}
	next := State{
		EntityID:    entityID,
		State:       value,
		Attributes:  attrs,
		LastChanged: now,
		LastUpdated: now,
	}
	if existed && old.State == value {
		next.LastChanged = old.LastChanged
	}
	s.states[entityID] = next
	s.mu.Unlock()

	ev := ChangedEvent{EntityID: entityID, NewState: &next}
	if existed {
		ev.OldState = &old
	}
	s.bus.Emit(events.StateChanged, ev)
	return next
}

// Get returns the state of an entity
func (s *Store) Get(entityID string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[entityID]
	if ok {
		st.Attributes = maps.Clone(st.Attributes)
	}
	return st, ok
}

// Remove deletes an entity's state and reports whether it existed
func (s *Store) Remove(entityID string) bool {
	s.mu.Lock()
	old, ok := s.states[entityID]
	delete(s.states, entityID)
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.bus.Emit(events.StateRemoved, ChangedEvent{EntityID: entityID, OldState: &old})
	return true
}

// All returns every state, sorted by entity ID
func (s *Store) All() []State {
	return s.filter("")
}

// Domain returns the states of one domain, sorted by entity ID
func (s *Store) Domain(domain string) []State {
	return s.filter(domain)
}

func (s *Store) filter(domain string) []State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]State, 0, len(s.states))
	for _, st := range s.states {
		if domain != "" && st.Domain() != domain {
			continue
		}
		st.Attributes = maps.Clone(st.Attributes)
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}
