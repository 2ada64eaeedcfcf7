// Package storage is the durable side of the engine: one record per document
// id holding {content, version}. The engine treats it as a key-value document
// store and keeps serving from memory when it is unreachable.
package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DocumentRecord struct {
	ID        string `gorm:"primaryKey"`
	Content   string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DocumentStore interface {
	// Load returns the persisted record, or nil when the id was never saved.
	Load(ctx context.Context, id string) (*DocumentRecord, error)
	// Save upserts the record for id. Last writer wins.
	Save(ctx context.Context, id string, content string, version int64) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Load(ctx context.Context, id string) (*DocumentRecord, error) {
	var record DocumentRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *GormStore) Save(ctx context.Context, id string, content string, version int64) error {
	record := DocumentRecord{
		ID:        id,
		Content:   content,
		Version:   version,
		UpdatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "version", "updated_at"}),
		}).
		Create(&record).Error
}
