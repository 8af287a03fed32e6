package kvstore

import (
	"context"
	"errors"
	"time"

	"axiapac.com/punchsync/core"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Entry struct {
	Key       string    `gorm:"primaryKey;column:key;type:varchar(191)"`
	Value     string    `gorm:"column:value;type:longtext;not null"`
	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP on update CURRENT_TIMESTAMP"`
}

func (Entry) TableName() string {
	return "kv_entries"
}

// GormStore keeps every key as one row; Set overwrites the row wholesale.
type GormStore struct {
	dm *core.DatabaseManager
}

func NewGormStore(dm *core.DatabaseManager) *GormStore {
	return &GormStore{dm: dm}
}

// Migrate creates the kv_entries table if it is missing.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Entry{})
}

func (s *GormStore) Get(ctx context.Context, key string) (string, bool, error) {
	var entry Entry
	err := s.dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Where("`key` = ?", key).Take(&entry).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (s *GormStore) Set(ctx context.Context, key string, value string) error {
	return s.dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&Entry{Key: key, Value: value}).Error
	})
}

func (s *GormStore) Remove(ctx context.Context, key string) error {
	return s.dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Where("`key` = ?", key).Delete(&Entry{}).Error
	})
}
