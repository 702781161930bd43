package history

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultRetentionInterval = 6 * time.Hour
	defaultMaxAge            = 30 * 24 * time.Hour
)

// RetentionWorker periodically deletes old generation log rows.
type RetentionWorker struct {
	DB       *gorm.DB
	Interval time.Duration
	MaxAge   time.Duration
}

func NewRetentionWorker(db *gorm.DB) *RetentionWorker {
	return &RetentionWorker{DB: db, Interval: defaultRetentionInterval, MaxAge: defaultMaxAge}
}

// Run blocks until ctx is cancelled. Start it on its own goroutine.
func (w *RetentionWorker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = defaultRetentionInterval
	}
	log.Infof("generation log retention started (interval=%s)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.CleanupOnce(ctx)
		}
	}
}

// CleanupOnce deletes rows older than the retention window.
func (w *RetentionWorker) CleanupOnce(ctx context.Context) {
	maxAge := w.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	cutoff := time.Now().Add(-maxAge)

	res := w.DB.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&GenerationLog{})
	if res.Error != nil {
		log.WithError(res.Error).Warn("generation log cleanup failed")
		return
	}
	if res.RowsAffected > 0 {
		log.WithField("rows", res.RowsAffected).Info("pruned old generation logs")
	}
}
