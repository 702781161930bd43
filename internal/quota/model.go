package quota

import "time"

// User is one row per Telegram user. GenerationCount is only meaningful
// relative to LastGenerationDate: a stored count from a previous day is
// logically zero and is reset on the next check.
type User struct {
	ID         uint64 `gorm:"primaryKey"`
	TelegramID int64  `gorm:"uniqueIndex;not null"`

	Username  string
	FirstName string
	LastName  string

	GenerationCount    int       `gorm:"not null;default:0"`
	LastGenerationDate time.Time `gorm:"type:date;not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Identity carries the sender fields from an incoming update, used to
// create the row on first contact.
type Identity struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// DateOnly strips the time component, normalizing to midnight UTC so that
// stored dates compare equal across drivers.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
