package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/jmylchreest/yeelightd/internal/events"
	"github.com/jmylchreest/yeelightd/internal/state"
)

const queueSize = 256

// StateTopic returns the retained state topic of an entity:
// <prefix>/<domain>/<object_id>/state
func StateTopic(prefix, entityID string) string {
	domain, objectID, ok := strings.Cut(entityID, ".")
	if !ok {
		objectID = domain
		domain = "unknown"
	}
	return strings.TrimSuffix(prefix, "/") + "/" + domain + "/" + objectID + "/state"
}

// StatusTopic returns the daemon availability topic
func StatusTopic(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/status"
}

// statePayload is the JSON document retained on a state topic
type statePayload struct {
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	LastChanged string         `json:"last_changed"`
}

type message struct {
	topic   string
	payload []byte
}

// Publisher forwards state changes from the event bus to MQTT. Removed
// states clear their retained message.
type Publisher struct {
	client Client
	prefix string
	qos    byte
	logger *slog.Logger
	queue  chan message
}

// NewPublisher creates a publisher writing under prefix
func NewPublisher(client Client, prefix string, qos byte, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		client: client,
		prefix: prefix,
		qos:    qos,
		logger: logger,
		queue:  make(chan message, queueSize),
	}
}

// Handle converts a bus event into a queued message. It never blocks; when
// the queue is full the message is dropped and logged.
func (p *Publisher) Handle(e events.Event) {
	var msg message
	switch e.Type {
	case events.StateChanged:
		var ev state.ChangedEvent
		if err := e.Decode(&ev); err != nil || ev.NewState == nil {
			return
		}
		payload, err := json.Marshal(statePayload{
			State:       ev.NewState.State,
			Attributes:  ev.NewState.Attributes,
			LastChanged: ev.NewState.LastChanged.UTC().Format(time.RFC3339),
		})
		if err != nil {
			p.logger.Warn("mqtt: encoding state failed", "entity_id", ev.EntityID, "error", err)
			return
		}
		msg = message{topic: StateTopic(p.prefix, ev.EntityID), payload: payload}
	case events.StateRemoved:
		var ev state.ChangedEvent
		if err := e.Decode(&ev); err != nil {
			return
		}
		msg = message{topic: StateTopic(p.prefix, ev.EntityID)}
	default:
		return
	}

	select {
	case p.queue <- msg:
	default:
		p.logger.Warn("mqtt: publish queue full, dropping message", "topic", msg.topic)
	}
}

// Run subscribes to bus and publishes queued messages until ctx is done,
// then flushes what is still queued and closes the client.
func (p *Publisher) Run(ctx context.Context, bus *events.Bus) {
	unsubscribe := bus.Subscribe(p.Handle)
	defer unsubscribe()
	defer func() {
		if err := p.client.Close(); err != nil {
			p.logger.Warn("mqtt: close failed", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			p.flush()
			return
		case msg := <-p.queue:
			p.publish(msg)
		}
	}
}

func (p *Publisher) flush() {
	for {
		select {
		case msg := <-p.queue:
			p.publish(msg)
		default:
			return
		}
	}
}

func (p *Publisher) publish(msg message) {
	if err := p.client.Publish(msg.topic, msg.payload, p.qos, true); err != nil {
		p.logger.Warn("mqtt: publish failed", "topic", msg.topic, "error", err)
	}
}
