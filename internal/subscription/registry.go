// Package subscription implements the subscription registry.
//
// The registry records every live "listen to topic X" request and replays
// the full topic set against each freshly established session. Subscribing
// while disconnected queues the request; it is serviced automatically once
// the connection manager reaches connected. A topic may carry any number of
// independent bindings — the notification aggregator holds its session-wide
// inbox and group subscriptions while a conversation store subscribes the
// same topic for the open conversation — and every binding's handler sees
// every message. The wire-level subscribe goes out when a topic gains its
// first binding, the wire-level unsubscribe when it loses its last.
package subscription

import (
	"log/slog"
	"sync"

	"github.com/gamehub-live/messaging/internal/connection"
	"github.com/gamehub-live/messaging/internal/model"
)

// Handler receives every decoded message delivered on a subscribed topic.
type Handler func(model.Message)

// Transport is the slice of the connection manager the registry needs.
type Transport interface {
	State() connection.State
	OnStatusChange(func(connection.StatusChange)) func()
	SendCommand(connection.Command) error
}

// Registry tracks active subscriptions and replays them after reconnects.
// The active map doubles as the replay set: its keys are exactly the topics
// with at least one live binding.
type Registry struct {
	transport Transport
	logger    *slog.Logger

	mu     sync.Mutex
	active map[string]map[int]Handler // topic → binding id → handler
	nextID int

	statusUnsub func()
}

// NewRegistry creates a registry wired to the transport's status changes.
func NewRegistry(transport Transport, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		transport: transport,
		logger:    logger,
		active:    make(map[string]map[int]Handler),
	}
	r.statusUnsub = transport.OnStatusChange(func(change connection.StatusChange) {
		if change.New == connection.StateConnected {
			r.replay()
		}
	})
	return r
}

// Close detaches the registry from the transport. Existing handlers stay
// registered but are no longer replayed.
func (r *Registry) Close() {
	if r.statusUnsub != nil {
		r.statusUnsub()
	}
}

// Subscription is the caller's handle for one Subscribe call.
type Subscription struct {
	reg   *Registry
	topic string
	id    int
}

// Topic returns the subscribed topic name.
func (s *Subscription) Topic() string { return s.topic }

// Unsubscribe removes this binding. Other bindings on the same topic are
// untouched; the server-side unsubscribe is sent only when the last one
// goes. Removal is immediate for future deliveries but best-effort against
// a frame already in flight. Safe to call multiple times.
func (s *Subscription) Unsubscribe() {
	s.reg.unsubscribe(s.topic, s.id)
}

// Subscribe registers a handler for a topic and returns its handle. If the
// transport is not connected the request is queued, not rejected, and issued
// on the next transition to connected. Subscribing a topic that already has
// bindings adds another; it never displaces them.
func (r *Registry) Subscribe(topic string, handler Handler) *Subscription {
	r.mu.Lock()
	set := r.active[topic]
	if set == nil {
		set = make(map[int]Handler)
		r.active[topic] = set
	}
	first := len(set) == 0
	id := r.nextID
	r.nextID++
	set[id] = handler
	connected := r.transport.State() == connection.StateConnected
	r.mu.Unlock()

	switch {
	case !connected:
		r.logger.Debug("subscription queued until connected", "topic", topic)
	case first:
		r.issue(topic)
	default:
		// Topic already live on the wire; this binding rides along.
		r.logger.Debug("joining live subscription", "topic", topic)
	}

	return &Subscription{reg: r, topic: topic, id: id}
}

func (r *Registry) unsubscribe(topic string, id int) {
	r.mu.Lock()
	set := r.active[topic]
	if _, ok := set[id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(set, id)
	last := len(set) == 0
	if last {
		delete(r.active, topic)
	}
	connected := r.transport.State() == connection.StateConnected
	r.mu.Unlock()

	if last && connected {
		cmd := connection.Command{Op: connection.OpUnsubscribe, Topic: topic}
		if err := r.transport.SendCommand(cmd); err != nil {
			r.logger.Warn("unsubscribe send failed", "topic", topic, "error", err)
		}
	}
}

// HandlersFor returns the handlers currently bound to an exact topic
// string. The router fans every decoded frame out through this.
func (r *Registry) HandlersFor(topic string) []Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.active[topic]
	if len(set) == 0 {
		return nil
	}
	out := make([]Handler, 0, len(set))
	for _, h := range set {
		out = append(out, h)
	}
	return out
}

// Topics returns the current replay set.
func (r *Registry) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	topics := make([]string, 0, len(r.active))
	for t := range r.active {
		topics = append(topics, t)
	}
	return topics
}

// replay re-issues every live topic against the new session, one wire
// subscribe per topic regardless of binding count, preserving the original
// handler references. Callers never re-subscribe manually after a network
// blip.
func (r *Registry) replay() {
	topics := r.Topics()
	if len(topics) == 0 {
		return
	}
	r.logger.Info("replaying subscriptions", "count", len(topics))
	for _, topic := range topics {
		r.issue(topic)
	}
}

func (r *Registry) issue(topic string) {
	cmd := connection.Command{Op: connection.OpSubscribe, Topic: topic}
	if err := r.transport.SendCommand(cmd); err != nil {
		// Still in the replay set; the next connected transition retries.
		r.logger.Warn("subscribe send failed", "topic", topic, "error", err)
	}
}
