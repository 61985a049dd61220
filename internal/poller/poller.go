package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gamehub-live/messaging/internal/model"
)

// MembershipSource provides the user's current group membership list.
type MembershipSource interface {
	GroupRefs(ctx context.Context) ([]model.ConversationRef, error)
}

// MembershipSink receives the refreshed membership list.
type MembershipSink interface {
	SetGroups(groups []model.ConversationRef)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Refresh interval
	Timeout  time.Duration // Per-fetch timeout
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 1 * time.Minute,
		Timeout:  10 * time.Second,
	}
}

// Poller periodically refreshes the group membership list and pushes it to
// the unread aggregator, so join/leave events made on other surfaces are
// picked up without a reload.
type Poller struct {
	cfg    Config
	source MembershipSource
	sink   MembershipSink
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a membership poller.
func New(cfg Config, source MembershipSource, sink MembershipSink, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:    cfg,
		source: source,
		sink:   sink,
		logger: logger,
	}
}

// Start refreshes once immediately, then begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.refresh()

	p.wg.Add(1)
	go p.run()

	p.logger.Info("membership poller started", "interval", p.cfg.Interval)
	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("membership poller stopped")
	case <-ctx.Done():
		p.logger.Warn("membership poller stop timed out")
	}
	return nil
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.refresh()
		}
	}
}

func (p *Poller) refresh() {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	groups, err := p.source.GroupRefs(ctx)
	if err != nil {
		// Keep the previous membership; the next tick retries.
		p.logger.Warn("membership refresh failed", "error", err)
		return
	}
	p.sink.SetGroups(groups)
}
