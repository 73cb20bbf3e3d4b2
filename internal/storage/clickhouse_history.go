package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/safetrack-hq/escalator/internal/models"
)

// ClickHouseConfig holds ClickHouse connection settings for the
// history archive.
type ClickHouseConfig struct {
	// Addresses are the ClickHouse server addresses (host:port).
	Addresses []string

	// Database is the ClickHouse database name.
	Database string

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// DialTimeout is the connection timeout.
	DialTimeout time.Duration

	// Compression enables LZ4 compression.
	Compression bool

	// RetentionDays is the TTL in days for archived entries.
	RetentionDays int

	// BatchSize is the number of buffered entries that triggers a flush.
	BatchSize int

	// FlushInterval flushes partially filled batches on this interval.
	FlushInterval time.Duration
}

// ClickHouseArchive mirrors escalation history entries into ClickHouse
// for long-term reporting. Writes are buffered and flushed in batches;
// a failed flush is logged and dropped, never surfaced to the caller —
// the sqlite log remains the source of truth.
type ClickHouseArchive struct {
	config *ClickHouseConfig
	db     *sql.DB

	mu      sync.Mutex
	buffer  []*models.EscalationHistoryEntry
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped atomic.Bool
	dropped atomic.Int64
}

// NewClickHouseArchive creates a new history archive.
func NewClickHouseArchive(config *ClickHouseConfig) *ClickHouseArchive {
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.RetentionDays == 0 {
		config.RetentionDays = 365
	}
	if config.BatchSize == 0 {
		config.BatchSize = 500
	}
	if config.FlushInterval == 0 {
		config.FlushInterval = 5 * time.Second
	}

	return &ClickHouseArchive{
		config: config,
		buffer: make([]*models.EscalationHistoryEntry, 0, config.BatchSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Open initializes the ClickHouse connection and starts the flush loop.
func (a *ClickHouseArchive) Open() error {
	opts := &clickhouse.Options{
		Addr: a.config.Addresses,
		Auth: clickhouse.Auth{
			Database: a.config.Database,
			Username: a.config.Username,
			Password: a.config.Password,
		},
		DialTimeout: a.config.DialTimeout,
	}

	if a.config.Compression {
		opts.Compression = &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		}
	}

	db := clickhouse.OpenDB(opts)

	ctx, cancel := context.WithTimeout(context.Background(), a.config.DialTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping clickhouse: %w", err)
	}

	a.db = db

	if err := a.migrate(); err != nil {
		db.Close()
		return err
	}

	go a.flushLoop()
	return nil
}

// migrate creates the archive table if it doesn't exist.
func (a *ClickHouseArchive) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS escalation_history (
			id UUID,
			incident_id String,
			rule_id String DEFAULT '',
			rule_name String DEFAULT '',
			action_type LowCardinality(String),
			action_target String DEFAULT '',
			details String DEFAULT '',
			is_successful UInt8,
			executed_by LowCardinality(String),
			executed_at DateTime64(3, 'UTC'),
			_date Date DEFAULT toDate(executed_at)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(_date)
		ORDER BY (incident_id, executed_at, id)
		TTL _date + INTERVAL %d DAY DELETE
		SETTINGS index_granularity = 8192
	`, a.config.RetentionDays)

	if _, err := a.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create escalation_history table: %w", err)
	}
	return nil
}

// Append buffers one entry for archiving. It never returns an error
// once the archive is open; flush failures are logged.
func (a *ClickHouseArchive) Append(ctx context.Context, entry *models.EscalationHistoryEntry) error {
	if a.stopped.Load() {
		return nil
	}

	a.mu.Lock()
	a.buffer = append(a.buffer, entry)
	shouldFlush := len(a.buffer) >= a.config.BatchSize
	a.mu.Unlock()

	if shouldFlush {
		a.flush()
	}
	return nil
}

// flushLoop flushes partially filled batches on the configured interval.
func (a *ClickHouseArchive) flushLoop() {
	defer close(a.doneCh)

	ticker := time.NewTicker(a.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			a.flush()
			return
		case <-ticker.C:
			a.flush()
		}
	}
}

// flush writes the current buffer as one batched insert.
func (a *ClickHouseArchive) flush() {
	a.mu.Lock()
	if len(a.buffer) == 0 {
		a.mu.Unlock()
		return
	}
	batch := a.buffer
	a.buffer = make([]*models.EscalationHistoryEntry, 0, a.config.BatchSize)
	a.mu.Unlock()

	if err := a.insertBatch(batch); err != nil {
		dropped := a.dropped.Add(int64(len(batch)))
		log.Printf("clickhouse archive: flush of %d entries failed (%d dropped total): %v",
			len(batch), dropped, err)
	}
}

func (a *ClickHouseArchive) insertBatch(entries []*models.EscalationHistoryEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO escalation_history (id, incident_id, rule_id, rule_name,
			action_type, action_target, details, is_successful, executed_by, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range entries {
		successful := uint8(0)
		if e.IsSuccessful {
			successful = 1
		}
		_, err := stmt.ExecContext(ctx,
			e.ID, e.IncidentID, e.RuleID, e.RuleName,
			string(e.ActionType), e.ActionTarget, e.Details,
			successful, e.ExecutedBy, e.ExecutedAt,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Dropped returns the number of entries lost to failed flushes.
func (a *ClickHouseArchive) Dropped() int64 {
	return a.dropped.Load()
}

// Close flushes pending entries and closes the connection.
func (a *ClickHouseArchive) Close() error {
	if a.stopped.Swap(true) {
		return nil
	}
	close(a.stopCh)
	<-a.doneCh

	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
