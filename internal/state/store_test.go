package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/yeelightd/internal/events"
)

func newTestStore() (*Store, *[]events.Event) {
	bus := events.NewBus()
	var received []events.Event
	bus.Subscribe(func(e events.Event) { received = append(received, e) })
	s := NewStore(bus)
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return s, &received
}

func TestStore_SetAndGet(t *testing.T) {
	s, received := newTestStore()

	first := s.Set("light.yeelight", On, map[string]any{"brightness": 80})
	got, ok := s.Get("light.yeelight")
	require.True(t, ok)
	assert.Equal(t, On, got.State)
	assert.Equal(t, 80, got.Attributes["brightness"])
	assert.Equal(t, "light", got.Domain())
	require.Len(t, *received, 1)

	var ev ChangedEvent
	require.NoError(t, (*received)[0].Decode(&ev))
	assert.Equal(t, "light.yeelight", ev.EntityID)
	assert.Nil(t, ev.OldState)
	require.NotNil(t, ev.NewState)
	assert.Equal(t, On, ev.NewState.State)

	// identical write is not published
	s.Set("light.yeelight", On, map[string]any{"brightness": 80})
	assert.Len(t, *received, 1)

	// attribute change keeps last_changed
	second := s.Set("light.yeelight", On, map[string]any{"brightness": 40})
	assert.Equal(t, first.LastChanged, second.LastChanged)
	assert.True(t, second.LastUpdated.After(first.LastUpdated))

	third := s.Set("light.yeelight", Off, nil)
	assert.True(t, third.LastChanged.After(first.LastChanged))
	assert.NotNil(t, third.Attributes)
	assert.Len(t, *received, 3)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s, _ := newTestStore()
	attrs := map[string]any{"brightness": 80}
	s.Set("light.yeelight", On, attrs)
	attrs["brightness"] = 1

	got, _ := s.Get("light.yeelight")
	got.Attributes["brightness"] = 2
	again, _ := s.Get("light.yeelight")
	assert.Equal(t, 80, again.Attributes["brightness"])
}

func TestStore_Remove(t *testing.T) {
	s, received := newTestStore()
	s.Set("light.yeelight", On, nil)

	assert.True(t, s.Remove("light.yeelight"))
	assert.False(t, s.Remove("light.yeelight"))
	_, ok := s.Get("light.yeelight")
	assert.False(t, ok)

	require.Len(t, *received, 2)
	assert.Equal(t, events.StateRemoved, (*received)[1].Type)
}

func TestStore_AllAndDomain(t *testing.T) {
	s, _ := newTestStore()
	s.Set("light.b", On, nil)
	s.Set("binary_sensor.a_nightlight", Off, nil)
	s.Set("light.a", Off, nil)

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "binary_sensor.a_nightlight", all[0].EntityID)
	assert.Equal(t, "light.a", all[1].EntityID)

	lights := s.Domain("light")
	require.Len(t, lights, 2)
	assert.Equal(t, "light.a", lights[0].EntityID)
	assert.Equal(t, "light.b", lights[1].EntityID)
}

func TestStore_NilBus(t *testing.T) {
	s := NewStore(nil)
	s.Set("light.a", On, nil)
	assert.True(t, s.Remove("light.a"))
}
