// Package notify provides multi-channel notification dispatch for
// escalations. A Dispatcher fans one notification out to the requested
// channels and reports the outcome per channel, tolerating partial
// failure.
package notify

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/time/rate"

	"github.com/safetrack-hq/escalator/internal/metrics"
	"github.com/safetrack-hq/escalator/internal/models"
)

// AddressBook resolves user ids to channel-specific addresses.
type AddressBook interface {
	EmailFor(ctx context.Context, userID string) (string, error)
	PhoneFor(ctx context.Context, userID string) (string, error)
	PushTokenFor(ctx context.Context, userID string) (string, error)
}

// ChannelSender delivers a notification to one user over one channel.
type ChannelSender interface {
	// Channel returns the channel this sender serves.
	Channel() models.Channel
	// Send delivers one notification.
	Send(ctx context.Context, userID, subject, body string, priority models.Severity) error
	// Close releases any resources.
	Close() error
}

// Dispatcher routes notifications to registered channel senders.
// Outbound sends are paced with a token bucket; a paced send waits
// rather than being dropped, since escalation notifications must not
// be silently discarded.
type Dispatcher struct {
	mu      sync.RWMutex
	senders map[models.Channel]ChannelSender
	limiter *rate.Limiter
}

// PacingConfig bounds the outbound notification rate.
type PacingConfig struct {
	PerSecond float64 // sends per second; 0 disables pacing
	Burst     int
}

// NewDispatcher creates a dispatcher with the given pacing.
func NewDispatcher(pacing PacingConfig) *Dispatcher {
	limit := rate.Inf
	burst := 1
	if pacing.PerSecond > 0 {
		limit = rate.Limit(pacing.PerSecond)
		burst = pacing.Burst
		if burst <= 0 {
			burst = 1
		}
	}

	return &Dispatcher{
		senders: make(map[models.Channel]ChannelSender),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Register adds a channel sender to the dispatcher.
func (d *Dispatcher) Register(s ChannelSender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.senders[s.Channel()] = s
}

// Get returns the sender for a channel.
func (d *Dispatcher) Get(ch models.Channel) (ChannelSender, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.senders[ch]
	return s, ok
}

// SendMultiChannel delivers one notification to a user over the given
// channels. It returns the channels that failed; the error is non-nil
// only when no channel delivered. Partial failure is reported through
// the failed slice so callers can record it without treating the
// attempt as lost.
func (d *Dispatcher) SendMultiChannel(ctx context.Context, userID, subject, body string, channels []models.Channel, priority models.Severity) ([]models.Channel, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("no channels requested")
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return channels, fmt.Errorf("pacing wait: %w", err)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var failed []models.Channel
	var errs []error
	for _, ch := range channels {
		sender, ok := d.senders[ch]
		if !ok {
			failed = append(failed, ch)
			errs = append(errs, fmt.Errorf("%s: channel not configured", ch))
			continue
		}

		if err := sender.Send(ctx, userID, subject, body, priority); err != nil {
			metrics.NotificationFailures.WithLabelValues(string(ch)).Inc()
			failed = append(failed, ch)
			errs = append(errs, fmt.Errorf("%s: %w", ch, err))
			continue
		}
		metrics.NotificationsSent.WithLabelValues(string(ch)).Inc()
	}

	if len(failed) == len(channels) {
		return failed, fmt.Errorf("all channels failed for user %s: %v", userID, errs)
	}
	if len(failed) > 0 {
		log.Printf("notify: partial delivery to user %s: %v", userID, errs)
	}
	return failed, nil
}

// Close closes all registered senders.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for name, s := range d.senders {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	d.senders = make(map[models.Channel]ChannelSender)

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
