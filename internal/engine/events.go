package engine

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/safetrack-hq/escalator/internal/metrics"
	"github.com/safetrack-hq/escalator/internal/models"
)

// Publisher fans domain events out to subscribers through a buffered
// channel. Publication is fire-and-forget: a slow subscriber never
// blocks escalation, events are dropped instead when the buffer fills.
type Publisher struct {
	events  chan *models.Event
	mu      sync.RWMutex // guards closed and the send against close
	closed  bool
	dropped atomic.Int64
}

// DefaultEventBuffer is the default event channel capacity.
const DefaultEventBuffer = 100

// NewPublisher creates a publisher with the given buffer size.
func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Publisher{
		events: make(chan *models.Event, buffer),
	}
}

// Events returns the channel subscribers consume from.
func (p *Publisher) Events() <-chan *models.Event {
	return p.events
}

// Publish emits an event without blocking. Missing timestamps are
// filled in.
func (p *Publisher) Publish(ev *models.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	select {
	case p.events <- ev:
		metrics.EventsPublished.WithLabelValues(string(ev.Type)).Inc()
	default:
		metrics.EventsDropped.Inc()
		dropped := p.dropped.Add(1)
		if dropped == 1 || dropped%100 == 0 {
			log.Printf("warning: event buffer full, dropped %d events total", dropped)
		}
	}
}

// Dropped returns the number of events dropped so far.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close closes the event channel. Safe to call concurrently with Publish.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return // Already closed
	}
	p.closed = true
	close(p.events)
}
