package db

import (
	"kartobot/internal/history"
	"kartobot/internal/quota"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&quota.User{},
		&history.GenerationLog{},
	); err != nil {
		return err
	}

	stmts := []string{
		`create index if not exists idx_generation_logs_user_created on generation_logs(telegram_id, created_at desc);`,
		`create index if not exists idx_generation_logs_created on generation_logs(created_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return err
		}
	}

	return nil
}
