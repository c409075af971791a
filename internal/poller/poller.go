// ABOUTME: Timer-driven history refresh for an open chat view
// ABOUTME: Re-fetches history each interval and hands only unseen messages to the caller

package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/coven-chat/internal/dedupe"
	"github.com/2389/coven-chat/internal/store"
)

const (
	// DefaultInterval matches the refresh cadence of the chat views.
	DefaultInterval = 8 * time.Second

	// seenTTL and seenSize bound the memory spent remembering delivered ids.
	seenTTL  = 24 * time.Hour
	seenSize = 10000
)

// FetchFunc returns the current history window, oldest first.
type FetchFunc func(ctx context.Context) ([]*store.Message, error)

// HandlerFunc receives messages not delivered before, oldest first.
type HandlerFunc func(msgs []*store.Message)

// Poller pulls a history on a timer. There is no push path; new messages are
// found by re-reading the window and filtering out ids already delivered.
type Poller struct {
	// mu serializes polls so batches reach the handler in fetch order.
	mu sync.Mutex

	fetch    FetchFunc
	handle   HandlerFunc
	interval time.Duration
	seen     *dedupe.Cache[store.MessageID]
	logger   *slog.Logger
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger; the poller adds component=poller.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// New creates a poller. interval <= 0 uses DefaultInterval.
func New(fetch FetchFunc, interval time.Duration, handle HandlerFunc, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		fetch:    fetch,
		handle:   handle,
		interval: interval,
		seen:     dedupe.New[store.MessageID](seenTTL, seenSize),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "poller")
	return p
}

// Run polls once immediately and then every interval until ctx ends.
// Fetch errors are logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Poll(ctx); err != nil {
		p.logger.Warn("poll failed", "error", err)
	}
	return p.Watch(ctx)
}

// Watch polls every interval until ctx ends, without an initial poll.
// Callers that already ran Poll use it to start the timer.
func (p *Poller) Watch(ctx context.Context) error {
	defer p.seen.Close()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.Poll(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				p.logger.Warn("poll failed", "error", err)
			}
		}
	}
}

// Poll fetches once and delivers any unseen messages. Concurrent calls run
// one at a time, handler included.
func (p *Poller) Poll(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs, err := p.fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}

	var fresh []*store.Message
	for _, m := range msgs {
		if !p.seen.CheckAndMark(m.ID) {
			fresh = append(fresh, m)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	p.logger.Debug("new messages", "count", len(fresh))
	p.handle(fresh)
	return nil
}
