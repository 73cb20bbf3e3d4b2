package engine

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/safetrack-hq/escalator/internal/metrics"
	"github.com/safetrack-hq/escalator/internal/models"
)

// Recorder appends escalation history entries to one or more sinks.
// Recording never fails the caller: a sink failure is logged and
// counted so that audit bookkeeping cannot break the escalation flow.
type Recorder struct {
	sinks []HistorySink
}

// NewRecorder creates a recorder over the given sinks. The first sink
// is typically the primary store; additional sinks mirror entries
// (e.g. a long-term archive).
func NewRecorder(sinks ...HistorySink) *Recorder {
	return &Recorder{sinks: sinks}
}

// Record persists one history entry. Missing id and timestamp are
// filled in.
func (r *Recorder) Record(ctx context.Context, entry *models.EscalationHistoryEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = time.Now().UTC()
	}

	for _, sink := range r.sinks {
		if err := sink.Append(ctx, entry); err != nil {
			metrics.HistoryWriteFailures.Inc()
			log.Printf("history: append failed for incident %s action %s: %v",
				entry.IncidentID, entry.ActionType, err)
		}
	}
}
