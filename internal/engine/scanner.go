package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/safetrack-hq/escalator/internal/metrics"
	"github.com/safetrack-hq/escalator/internal/models"
)

// Overdue thresholds. Any open or in-progress incident without a
// response for StaleAfter is escalated; critical and emergency open
// incidents are already escalated after CriticalStaleAfter.
const (
	StaleAfter         = 24 * time.Hour
	CriticalStaleAfter = 2 * time.Hour
)

const (
	reasonStale         = "no response for over 24 hours"
	reasonCriticalStale = "critical incident with no response for over 2 hours"
)

// Scanner periodically sweeps the incident store for incidents past
// the response-time thresholds and feeds them into the orchestrator as
// manual escalations. The scanner itself does not deduplicate: an
// incident matching both thresholds is escalated once per matching
// reason, and repeated sweeps re-escalate still-overdue incidents.
// Callers control duplicate notifications through the sweep interval.
type Scanner struct {
	incidents IncidentStore
	orch      *Orchestrator

	// concurrency bounds the number of incidents escalated in parallel.
	concurrency int
	now         func() time.Time
}

// DefaultScanConcurrency bounds parallel escalations per sweep.
const DefaultScanConcurrency = 4

// NewScanner creates an overdue scanner.
func NewScanner(incidents IncidentStore, orch *Orchestrator, concurrency int) *Scanner {
	if concurrency <= 0 {
		concurrency = DefaultScanConcurrency
	}
	return &Scanner{
		incidents:   incidents,
		orch:        orch,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// ScanOverdue runs one sweep. Escalation failures for individual
// incidents are logged and do not stop the sweep; the returned error
// covers query failures and cancellation.
func (s *Scanner) ScanOverdue(ctx context.Context) error {
	metrics.ScannerRuns.Inc()
	now := s.now()

	stale, err := s.incidents.FindOverdue(ctx, now.Add(-StaleAfter),
		nil,
		[]models.Status{models.StatusOpen, models.StatusInProgress})
	if err != nil {
		return fmt.Errorf("find stale incidents: %w", err)
	}
	metrics.ScannerOverdueFound.WithLabelValues("stale").Add(float64(len(stale)))

	criticalStale, err := s.incidents.FindOverdue(ctx, now.Add(-CriticalStaleAfter),
		[]models.Severity{models.SeverityCritical, models.SeverityEmergency},
		[]models.Status{models.StatusOpen})
	if err != nil {
		return fmt.Errorf("find critical stale incidents: %w", err)
	}
	metrics.ScannerOverdueFound.WithLabelValues("critical_stale").Add(float64(len(criticalStale)))

	if len(stale)+len(criticalStale) > 0 {
		log.Printf("scanner: found %d stale and %d critical stale incidents", len(stale), len(criticalStale))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	escalate := func(inc *models.IncidentSnapshot, reason string) {
		g.Go(func() error {
			err := s.orch.TriggerManual(gctx, inc.ID, reason, "system")
			if err != nil && !errors.Is(err, ErrIncidentNotFound) {
				if gctx.Err() != nil {
					return err
				}
				log.Printf("scanner: escalate incident %s: %v", inc.ID, err)
			}
			return nil
		})
	}

	// An incident in both sets is escalated twice, once per reason.
	for _, inc := range stale {
		escalate(inc, reasonStale)
	}
	for _, inc := range criticalStale {
		escalate(inc, reasonCriticalStale)
	}

	return g.Wait()
}

// Run sweeps on the given interval until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("scanner: running every %s", interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.ScanOverdue(ctx); err != nil {
				if ctx.Err() != nil {
					return err
				}
				log.Printf("scanner: sweep failed: %v", err)
			}
		}
	}
}
