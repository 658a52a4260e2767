package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store is the slice of the event log the pruner needs. *sink.SQLiteSink
// satisfies it.
type Store interface {
	// CountEvents returns the total number of stored events.
	CountEvents(ctx context.Context) (int64, error)

	// PruneBefore deletes events recorded before cutoff, returning the
	// number of rows removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// PruneToCount deletes the oldest events until at most max remain,
	// returning the number of rows removed.
	PruneToCount(ctx context.Context, max int64) (int64, error)
}

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain events.
	// 0 means keep events forever (no age-based pruning).
	RetentionDays int

	// MaxRecords is the maximum number of events to keep.
	// 0 means unlimited (no count-based pruning).
	MaxRecords int64

	// Schedule is a cron expression for automatic pruning.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables the scheduler.
	Schedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 30,
		MaxRecords:    0,
		Schedule:      "0 3 * * *",
	}
}

// Pruner enforces the retention policy on the event log.
type Pruner struct {
	store     Store
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a retention pruner over the given store.
func NewPruner(store Store, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	pruner := &Pruner{
		store:  store,
		config: config,
		logger: slog.Default().With("component", "telemetry.retention"),
	}
	pruner.scheduler = NewScheduler(pruner)

	return pruner
}

// Prune runs one cleanup cycle and returns the total number of events
// deleted.
//
// Pruning happens in two phases:
//  1. Age-based: delete events older than RetentionDays.
//  2. Count-based: if more than MaxRecords remain, delete oldest.
//
// Both phases can run in the same cycle.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)
		deleted, err := p.store.PruneBefore(ctx, cutoff)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Info("pruned events by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
	}

	if totalDeleted == 0 {
		p.logger.Debug("no events pruned",
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Info("event pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

// pruneByCount trims the event log to MaxRecords rows.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.store.CountEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}

	if count <= p.config.MaxRecords {
		p.logger.Debug("event count within limit",
			"current", count,
			"max", p.config.MaxRecords,
		)
		return 0, nil
	}

	deleted, err := p.store.PruneToCount(ctx, p.config.MaxRecords)
	if err != nil {
		return 0, err
	}

	p.logger.Info("pruned events by count",
		"deleted_count", deleted,
		"max_records", p.config.MaxRecords,
	)

	return deleted, nil
}

// Start starts the automatic pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning, or nil
// when the scheduler is not running.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
