package securestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SecureItem is the persisted row for one stored payload.
type SecureItem struct {
	ID        uint           `gorm:"primaryKey"`
	Key       string         `gorm:"uniqueIndex;not null"`
	Value     datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SecureItem) TableName() string {
	return "secure_items"
}

type sqliteStore struct {
	db *gorm.DB
}

// NewSQLite builds a SQLite-backed secure store over an existing handle.
func NewSQLite(db *gorm.DB, _ Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	if err := db.AutoMigrate(&SecureItem{}); err != nil {
		return nil, fmt.Errorf("migrate secure_items: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("key = ?", key).Delete(&SecureItem{}).Error; err != nil {
			return err
		}
		record := &SecureItem{
			Key:   key,
			Value: datatypes.JSON(value),
		}
		return tx.Create(record).Error
	})
}

func (s *sqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var item SecureItem
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(item.Value), nil
}

func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&SecureItem{}).Error
}

func (s *sqliteStore) Keys(ctx context.Context) ([]string, error) {
	var items []SecureItem
	if err := s.db.WithContext(ctx).Select("key").Find(&items).Error; err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}
	return keys, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}
