package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gamehub-live/messaging/internal/connection"
	"github.com/gamehub-live/messaging/internal/model"
	"github.com/gamehub-live/messaging/internal/subscription"
)

// HandlerSource resolves the handlers registered for an exact topic string.
type HandlerSource interface {
	HandlersFor(topic string) []subscription.Handler
}

// Stats contains runtime counters.
type Stats struct {
	FramesReceived int64
	Delivered      int64
	DecodeErrors   int64
	NoHandler      int64
}

// Router decodes inbound frames and fans each message out to all handlers
// registered for the frame's topic. It carries no business logic: decode,
// then invoke. A decode failure drops the frame and nothing else.
type Router struct {
	logger   *slog.Logger
	input    <-chan connection.RawFrame
	handlers HandlerSource

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

// New creates a router reading from the manager's frame channel.
func New(input <-chan connection.RawFrame, handlers HandlerSource, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger:   logger,
		input:    input,
		handlers: handlers,
	}
}

// Start begins routing frames.
func (r *Router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("message router started")
	return nil
}

// Stop shuts the router down, waiting for the in-flight frame to finish.
func (r *Router) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("message router stopped")
	case <-ctx.Done():
		r.logger.Warn("message router stop timed out")
	}
	return nil
}

// Stats returns a snapshot of the runtime counters.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case raw, ok := <-r.input:
			if !ok {
				r.logger.Info("frame channel closed")
				return
			}
			r.route(raw)
		}
	}
}

// route decodes one frame and invokes every registered handler for its
// topic. Malformed frames are logged and dropped; they never terminate a
// subscription or the session.
func (r *Router) route(raw connection.RawFrame) {
	r.count(func(s *Stats) { s.FramesReceived++ })

	var frame connection.Frame
	if err := json.Unmarshal(raw.Data, &frame); err != nil {
		r.count(func(s *Stats) { s.DecodeErrors++ })
		r.logger.Warn("dropping undecodable frame", "error", err)
		return
	}
	if frame.Topic == "" {
		r.count(func(s *Stats) { s.DecodeErrors++ })
		r.logger.Warn("dropping frame without topic")
		return
	}

	msg, err := model.DecodeMessage(frame.Payload, raw.ReceivedAt)
	if err != nil {
		r.count(func(s *Stats) { s.DecodeErrors++ })
		r.logger.Warn("dropping malformed payload", "topic", frame.Topic, "error", err)
		return
	}

	handlers := r.handlers.HandlersFor(frame.Topic)
	if len(handlers) == 0 {
		r.count(func(s *Stats) { s.NoHandler++ })
		r.logger.Debug("no handler for topic", "topic", frame.Topic)
		return
	}

	for _, h := range handlers {
		h(msg)
	}
	r.count(func(s *Stats) { s.Delivered++ })
}

func (r *Router) count(fn func(*Stats)) {
	r.mu.Lock()
	fn(&r.stats)
	r.mu.Unlock()
}
