package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrStorage wraps database failures so callers can abort the request
// instead of silently allowing unlimited generation.
var ErrStorage = errors.New("quota storage unavailable")

var ErrNotFound = errors.New("user not found")

const DefaultDailyLimit = 3

type Store struct {
	DB    *gorm.DB
	Limit int
}

func (s *Store) limit() int {
	if s.Limit > 0 {
		return s.Limit
	}
	return DefaultDailyLimit
}

// CheckAndReset fetches or creates the user's row and applies the date
// rollover before any quota decision: if the stored date differs from today
// the count is reset to zero first. Returns the current count and whether
// another generation is allowed.
func (s *Store) CheckAndReset(ctx context.Context, id Identity, today time.Time) (int, bool, error) {
	today = DateOnly(today)

	var u User
	err := s.DB.WithContext(ctx).Where("telegram_id = ?", id.TelegramID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		u = User{
			TelegramID:         id.TelegramID,
			Username:           id.Username,
			FirstName:          id.FirstName,
			LastName:           id.LastName,
			GenerationCount:    0,
			LastGenerationDate: today,
		}
		if err := s.DB.WithContext(ctx).Create(&u).Error; err != nil {
			return 0, false, fmt.Errorf("%w: create user: %v", ErrStorage, err)
		}
		return 0, true, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: fetch user: %v", ErrStorage, err)
	}

	if !DateOnly(u.LastGenerationDate).Equal(today) {
		err := s.DB.WithContext(ctx).Model(&User{}).
			Where("telegram_id = ?", id.TelegramID).
			Updates(map[string]any{
				"generation_count":     0,
				"last_generation_date": today,
				"updated_at":           time.Now(),
			}).Error
		if err != nil {
			return 0, false, fmt.Errorf("%w: reset count: %v", ErrStorage, err)
		}
		u.GenerationCount = 0
	}

	return u.GenerationCount, u.GenerationCount < s.limit(), nil
}

// RecordSuccess increments the count and stamps today's date in a single
// UPDATE. Call only after a confirmed successful generation; failed and
// timed-out attempts are free.
func (s *Store) RecordSuccess(ctx context.Context, telegramID int64, today time.Time) error {
	err := s.DB.WithContext(ctx).Model(&User{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]any{
			"generation_count":     gorm.Expr("generation_count + 1"),
			"last_generation_date": DateOnly(today),
			"updated_at":           time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("%w: record success: %v", ErrStorage, err)
	}
	return nil
}

// TryConsume is the strict variant of the quota gate: check and increment as
// one atomic statement, so concurrent requests cannot over-admit. Zero rows
// affected means the quota is exhausted (or the row needs a rollover reset,
// which CheckAndReset must have applied earlier in the request).
func (s *Store) TryConsume(ctx context.Context, telegramID int64, today time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&User{}).
		Where("telegram_id = ? AND last_generation_date = ? AND generation_count < ?",
			telegramID, DateOnly(today), s.limit()).
		Updates(map[string]any{
			"generation_count": gorm.Expr("generation_count + 1"),
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("%w: consume: %v", ErrStorage, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Get returns the stored row for one user.
func (s *Store) Get(ctx context.Context, telegramID int64) (*User, error) {
	var u User
	err := s.DB.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fetch user: %v", ErrStorage, err)
	}
	return &u, nil
}
