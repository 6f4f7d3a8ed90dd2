package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteSlot persists cart slots in a sqlite file so carts survive a server
// restart. It has no change notification of its own; pair it with a
// MemoryBackend bus.
type SQLiteSlot struct {
	db *gorm.DB
}

func NewSQLiteSlot(dbPath string) (*SQLiteSlot, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schemaSQL := `
	CREATE TABLE IF NOT EXISTS cart_slots (
		slot_key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if err := db.Exec(schemaSQL).Error; err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteSlot{db: db}, nil
}

func (s *SQLiteSlot) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteSlot) Load(ctx context.Context, key string) (string, bool, error) {
	var value string
	row := s.db.WithContext(ctx).Raw(`SELECT value FROM cart_slots WHERE slot_key = ?`, key).Row()
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load cart slot: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteSlot) Save(ctx context.Context, key, value string) error {
	upsert := `
		INSERT INTO cart_slots (slot_key, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(slot_key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`
	if err := s.db.WithContext(ctx).Exec(upsert, key, value).Error; err != nil {
		return fmt.Errorf("failed to save cart slot: %w", err)
	}
	return nil
}
