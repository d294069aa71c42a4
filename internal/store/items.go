package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/limnoscan/specimen-processor/internal/models"
)

// ItemStore persists cataloged specimen items.
type ItemStore struct {
	db *gorm.DB
}

func NewItemStore(db *gorm.DB) *ItemStore {
	return &ItemStore{db: db}
}

// Insert writes one item and returns the database-assigned identifier.
func (s *ItemStore) Insert(ctx context.Context, item *models.Item) (string, error) {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return "", fmt.Errorf("failed to insert item: %w", err)
	}
	return item.ID.String(), nil
}

// CountByGroup returns the number of items in one group.
func (s *ItemStore) CountByGroup(ctx context.Context, groupID string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Item{}).
		Where("group_id = ?", groupID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

// ListByGroup returns all items in one group in insertion order.
func (s *ItemStore) ListByGroup(ctx context.Context, groupID string) ([]models.Item, error) {
	var items []models.Item
	if err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}
