package history

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// GenerationLog is one row per generation attempt, kept for a bounded
// retention window. Inserts are best-effort and never block the user path.
type GenerationLog struct {
	ID         uint64 `gorm:"primaryKey"`
	TelegramID int64  `gorm:"index;not null"`

	Outcome    string `gorm:"type:text;not null"` // rejected/succeeded/failed/timed_out
	Error      *string
	Backend    string `gorm:"type:text;not null;default:''"`
	DurationMS int64  `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"index;not null"`
}

type Recorder struct {
	DB *gorm.DB
}

func (r *Recorder) Record(ctx context.Context, telegramID int64, backend, outcome string, attemptErr error, took time.Duration) {
	if r == nil || r.DB == nil {
		return
	}
	row := GenerationLog{
		TelegramID: telegramID,
		Outcome:    outcome,
		Backend:    backend,
		DurationMS: took.Milliseconds(),
	}
	if attemptErr != nil {
		msg := attemptErr.Error()
		row.Error = &msg
	}
	if err := r.DB.WithContext(ctx).Create(&row).Error; err != nil {
		log.WithError(err).Warn("failed to record generation attempt")
	}
}
