package yeelight

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Source is one discovery mechanism (SSDP, mDNS)
type Source interface {
	Name() string
	Discover(ctx context.Context) ([]Capabilities, error)
}

// Prober fetches the capabilities of a single known host
type Prober interface {
	Probe(ctx context.Context, host string) (Capabilities, error)
}

type seenBulb struct {
	caps     Capabilities
	lastSeen time.Time
}

// Scanner merges the results of its sources and caches bulbs by hardware ID.
type Scanner struct {
	sources []Source
	prober  Prober
	logger  *slog.Logger

	mu      sync.RWMutex
	bulbs   map[string]seenBulb
	onFound func(Capabilities)
}

// NewScanner creates a scanner. prober answers Probe calls and may be nil.
func NewScanner(logger *slog.Logger, prober Prober, sources ...Source) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		sources: sources,
		prober:  prober,
		logger:  logger,
		bulbs:   make(map[string]seenBulb),
	}
}

// OnDiscovered registers a callback invoked for bulbs that were not cached before
func (s *Scanner) OnDiscovered(fn func(Capabilities)) {
	s.mu.Lock()
	s.onFound = fn
	s.mu.Unlock()
}

// Scan runs every source concurrently and merges the results into the cache.
// Failing sources are logged; Scan only fails when all of them do.
func (s *Scanner) Scan(ctx context.Context) error {
	results := make([][]Capabilities, len(s.sources))
	errs := make([]error, len(s.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.sources {
		g.Go(func() error {
			found, err := src.Discover(gctx)
			if err != nil {
				s.logger.Warn("discovery: source failed", "source", src.Name(), "error", err)
				errs[i] = err
			}
			results[i] = found
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}

	now := time.Now()
	var fresh []Capabilities
	s.mu.Lock()
	for _, found := range results {
		for _, caps := range found {
			id := caps.ID()
			if id == "" {
				continue
			}
			if _, known := s.bulbs[id]; !known {
				fresh = append(fresh, caps)
			}
			s.bulbs[id] = seenBulb{caps: caps, lastSeen: now}
		}
	}
	onFound := s.onFound
	s.mu.Unlock()

	if onFound != nil {
		for _, caps := range fresh {
			onFound(caps)
		}
	}

	if len(s.sources) > 0 && failed == len(s.sources) {
		return errs[0]
	}
	return nil
}

// Devices returns every cached bulb, sorted by hardware ID
func (s *Scanner) Devices() []Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Capabilities, 0, len(s.bulbs))
	for _, b := range s.bulbs {
		out = append(out, b.caps)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Lookup returns the capabilities of the bulb with the given hardware ID,
// scanning the network once when it is not cached.
func (s *Scanner) Lookup(ctx context.Context, id string) (Capabilities, bool, error) {
	if caps, ok := s.cached(id); ok {
		return caps, true, nil
	}
	if err := s.Scan(ctx); err != nil {
		return nil, false, err
	}
	caps, ok := s.cached(id)
	return caps, ok, nil
}

func (s *Scanner) cached(id string) (Capabilities, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bulbs[id]
	return b.caps, ok
}

// Forget drops a bulb from the cache so the next Lookup scans for it again.
// Used when the cached address stopped answering.
func (s *Scanner) Forget(id string) {
	s.mu.Lock()
	delete(s.bulbs, id)
	s.mu.Unlock()
}

// Probe asks a single host for its capabilities and caches the answer
func (s *Scanner) Probe(ctx context.Context, host string) (Capabilities, error) {
	if s.prober == nil {
		return nil, ErrNoResponse
	}
	caps, err := s.prober.Probe(ctx, host)
	if err != nil {
		return nil, err
	}
	if id := caps.ID(); id != "" {
		s.mu.Lock()
		s.bulbs[id] = seenBulb{caps: caps, lastSeen: time.Now()}
		s.mu.Unlock()
	}
	return caps, nil
}

// Expire drops bulbs that have not been seen for longer than maxAge
func (s *Scanner) Expire(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, b := range s.bulbs {
		if b.lastSeen.Before(cutoff) {
			delete(s.bulbs, id)
			removed++
		}
	}
	return removed
}

// Run scans immediately and then every interval until ctx is cancelled.
// Bulbs not seen for three intervals are dropped from the cache.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) {
	if err := s.Scan(ctx); err != nil {
		s.logger.Error("discovery: scan failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Scan(ctx); err != nil {
				s.logger.Error("discovery: scan failed", "error", err)
			}
			if n := s.Expire(3 * interval); n > 0 {
				s.logger.Debug("discovery: expired stale bulbs", "count", n)
			}
		}
	}
}
