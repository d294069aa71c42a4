package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/limnoscan/specimen-processor/internal/models"
)

// UploadStore persists upload job records and enforces the forward-only
// lifecycle: created → uploaded → processing → finished|failed.
type UploadStore struct {
	db *gorm.DB
}

func NewUploadStore(db *gorm.DB) *UploadStore {
	return &UploadStore{db: db}
}

// Create inserts a new upload record in the created state. The database
// assigns the identifier.
func (s *UploadStore) Create(ctx context.Context, originalFilename string) (*models.Upload, error) {
	upload := &models.Upload{
		OriginalFilename: originalFilename,
		State:            models.UploadStateCreated,
	}
	if err := s.db.WithContext(ctx).Create(upload).Error; err != nil {
		return nil, fmt.Errorf("failed to create upload: %w", err)
	}
	return upload, nil
}

// Get fetches one upload by id.
func (s *UploadStore) Get(ctx context.Context, uploadID string) (*models.Upload, error) {
	var upload models.Upload
	if err := s.db.WithContext(ctx).First(&upload, "id = ?", uploadID).Error; err != nil {
		return nil, fmt.Errorf("failed to get upload %s: %w", uploadID, err)
	}
	return &upload, nil
}

// UpdateState transitions the upload to a later lifecycle state. Backward
// transitions and transitions out of a terminal state are rejected. The
// summary is persisted only together with the finished state.
func (s *UploadStore) UpdateState(ctx context.Context, uploadID string, state models.UploadState, summary map[string]int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var upload models.Upload
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&upload, "id = ?", uploadID).Error; err != nil {
			return fmt.Errorf("failed to load upload %s: %w", uploadID, err)
		}

		if !upload.State.CanTransitionTo(state) {
			return fmt.Errorf("illegal state transition %s -> %s for upload %s", upload.State, state, uploadID)
		}

		upload.State = state
		if state == models.UploadStateFinished && summary != nil {
			upload.ResultSummary = summary
		}

		if err := tx.Save(&upload).Error; err != nil {
			return fmt.Errorf("failed to update upload %s: %w", uploadID, err)
		}
		return nil
	})
}
