package yeelight

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	name  string
	mu    sync.Mutex
	found []Capabilities
	err   error
	calls int
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Discover(ctx context.Context) ([]Capabilities, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.found, s.err
}

type staticProber struct{ caps Capabilities }

func (p staticProber) Probe(ctx context.Context, host string) (Capabilities, error) {
	if p.caps == nil {
		return nil, ErrNoResponse
	}
	return p.caps, nil
}

func TestScanner_MergesSources(t *testing.T) {
	ssdp := &staticSource{name: "ssdp", found: []Capabilities{{"id": "0x2"}, {"id": "0x1"}}}
	mdns := &staticSource{name: "mdns", found: []Capabilities{{"id": "0x1"}, {"model": "no-id"}}}
	s := NewScanner(testLogger(), nil, ssdp, mdns)

	var mu sync.Mutex
	var discovered []string
	s.OnDiscovered(func(c Capabilities) {
		mu.Lock()
		discovered = append(discovered, c.ID())
		mu.Unlock()
	})

	require.NoError(t, s.Scan(context.Background()))
	devices := s.Devices()
	require.Len(t, devices, 2)
	assert.Equal(t, "0x1", devices[0].ID())
	assert.Equal(t, "0x2", devices[1].ID())

	// A second scan reports nothing new
	require.NoError(t, s.Scan(context.Background()))
	assert.Len(t, discovered, 2)
}

func TestScanner_PartialFailure(t *testing.T) {
	ok := &staticSource{name: "ssdp", found: []Capabilities{{"id": "0x1"}}}
	bad := &staticSource{name: "mdns", err: errors.New("no multicast")}
	s := NewScanner(testLogger(), nil, ok, bad)
	require.NoError(t, s.Scan(context.Background()))
	assert.Len(t, s.Devices(), 1)

	allBad := NewScanner(testLogger(), nil, bad)
	assert.Error(t, allBad.Scan(context.Background()))
}

func TestScanner_Lookup(t *testing.T) {
	src := &staticSource{name: "ssdp", found: []Capabilities{{"id": "0x1", "location": "yeelight://10.0.0.2:55443"}}}
	s := NewScanner(testLogger(), nil, src)
	ctx := context.Background()

	caps, ok, err := s.Lookup(ctx, "0x1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2", caps.Host())
	assert.Equal(t, 1, src.calls)

	// cached
	_, ok, err = s.Lookup(ctx, "0x1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, src.calls)

	_, ok, err = s.Lookup(ctx, "0x9")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, src.calls)
}

func TestScanner_ForgetRescans(t *testing.T) {
	src := &staticSource{name: "ssdp", found: []Capabilities{{"id": "0x1", "location": "yeelight://10.0.0.2:55443"}}}
	s := NewScanner(testLogger(), nil, src)
	ctx := context.Background()

	caps, ok, err := s.Lookup(ctx, "0x1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2", caps.Host())

	// the bulb moves; the cache still answers with the old address
	src.mu.Lock()
	src.found = []Capabilities{{"id": "0x1", "location": "yeelight://10.0.0.3:55443"}}
	src.mu.Unlock()
	caps, _, _ = s.Lookup(ctx, "0x1")
	assert.Equal(t, "10.0.0.2", caps.Host())

	s.Forget("0x1")
	caps, ok, err = s.Lookup(ctx, "0x1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.3", caps.Host())
	assert.Equal(t, 2, src.calls)

	s.Forget("0x404")
	assert.Len(t, s.Devices(), 1)
}

func TestScanner_Probe(t *testing.T) {
	s := NewScanner(testLogger(), staticProber{caps: Capabilities{"id": "0x7"}})
	caps, err := s.Probe(context.Background(), "10.0.0.7")
	require.NoError(t, err)
	assert.Equal(t, "0x7", caps.ID())
	assert.Len(t, s.Devices(), 1)

	_, err = NewScanner(testLogger(), nil).Probe(context.Background(), "10.0.0.7")
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestScanner_Expire(t *testing.T) {
	src := &staticSource{name: "ssdp", found: []Capabilities{{"id": "0x1"}}}
	s := NewScanner(testLogger(), nil, src)
	require.NoError(t, s.Scan(context.Background()))

	assert.Equal(t, 0, s.Expire(time.Hour))
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, s.Expire(time.Millisecond))
	assert.Empty(t, s.Devices())
}

func TestScanner_RunStopsOnCancel(t *testing.T) {
	src := &staticSource{name: "ssdp"}
	s := NewScanner(testLogger(), nil, src)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
