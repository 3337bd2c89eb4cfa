package journal

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type actionRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Channel   string    `gorm:"index;size:64"`
	Action    string    `gorm:"size:255"`
	Details   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

func (actionRecord) TableName() string { return "action_log" }

// Store persists the action log in Postgres.
type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open action log database: %w", err)
	}
	return NewStore(db)
}

func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&actionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate action log: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Append(ctx context.Context, e Entry) error {
	rec := actionRecord{
		Channel:   e.Channel,
		Action:    e.Action,
		Details:   e.Details,
		CreatedAt: e.At,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("append action log: %w", err)
	}
	return nil
}

// Recent returns the latest n entries for a channel, newest first.
func (s *Store) Recent(ctx context.Context, channel string, n int) ([]Entry, error) {
	var recs []actionRecord
	err := s.db.WithContext(ctx).
		Where("channel = ?", channel).
		Order("created_at desc").
		Limit(n).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("read action log: %w", err)
	}

	out := make([]Entry, len(recs))
	for i, r := range recs {
		out[i] = Entry{Channel: r.Channel, At: r.CreatedAt, Action: r.Action, Details: r.Details}
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
