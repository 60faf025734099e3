package events

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusConcurrentPublish(t *testing.T) {
	bus := NewBus()
	var count atomic.Int64

	bus.Subscribe(func(e Event) {
		count.Add(1)
	})

	const goroutines = 50
	const eventsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				bus.Emit(StateChanged, nil)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*eventsPerGoroutine), count.Load())
}

func TestBusConcurrentSubscribeUnsubscribe(t *testing.T) {
	bus := NewBus()
	var during, after atomic.Int64

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			var mine atomic.Bool
			unsub := bus.Subscribe(func(e Event) {
				if e.Type == EntityRegistered {
					mine.Store(true)
					during.Add(1)
				}
				if e.Type == EntityRemoved && mine.Load() {
					after.Add(1)
				}
			})
			bus.Emit(EntityRegistered, nil)
			unsub()
		}()
	}
	wg.Wait()

	// Every subscriber saw at least its own publish.
	assert.GreaterOrEqual(t, during.Load(), int64(goroutines))

	bus.Emit(EntityRemoved, nil)
	assert.Equal(t, int64(0), after.Load())
}
