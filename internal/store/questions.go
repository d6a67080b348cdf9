package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/gmr0780/bahamas-town-hall/internal/models"
)

// ActiveQuestions returns the live survey catalog in presentation order.
// This is the snapshot source for new chat sessions.
func (s *Store) ActiveQuestions(ctx context.Context) ([]models.Question, error) {
	var qs []models.Question
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order ASC").
		Find(&qs).Error
	if err != nil {
		return nil, fmt.Errorf("store: active questions: %w", err)
	}
	return qs, nil
}

// AllQuestions returns every question, active or not, for admin management.
func (s *Store) AllQuestions(ctx context.Context) ([]models.Question, error) {
	var qs []models.Question
	err := s.db.WithContext(ctx).Order("sort_order ASC, id ASC").Find(&qs).Error
	if err != nil {
		return nil, fmt.Errorf("store: all questions: %w", err)
	}
	return qs, nil
}

// CreateQuestion appends a question to the catalog at the next sort position.
func (s *Store) CreateQuestion(ctx context.Context, q *models.Question) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxOrder int
		tx.Model(&models.Question{}).Select("COALESCE(MAX(sort_order), 0)").Scan(&maxOrder)
		q.SortOrder = maxOrder + 1
		q.Active = true
		if err := tx.Create(q).Error; err != nil {
			return fmt.Errorf("store: create question: %w", err)
		}
		return nil
	})
}

// QuestionUpdate carries partial question edits; nil fields are untouched.
type QuestionUpdate struct {
	Type        *string
	Label       *string
	Description *string
	Required    *bool
	Options     *string
	Active      *bool
}

// UpdateQuestion applies a partial update. Returns ErrNotFound for unknown ids.
func (s *Store) UpdateQuestion(ctx context.Context, id uint, upd QuestionUpdate) (*models.Question, error) {
	fields := map[string]interface{}{}
	if upd.Type != nil {
		fields["type"] = *upd.Type
	}
	if upd.Label != nil {
		fields["label"] = *upd.Label
	}
	if upd.Description != nil {
		fields["description"] = *upd.Description
	}
	if upd.Required != nil {
		fields["required"] = *upd.Required
	}
	if upd.Options != nil {
		fields["options"] = *upd.Options
	}
	if upd.Active != nil {
		fields["active"] = *upd.Active
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("store: update question %d: no fields to update", id)
	}

	result := s.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, fmt.Errorf("store: update question %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var q models.Question
	if err := s.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, fmt.Errorf("store: reload question %d: %w", id, err)
	}
	return &q, nil
}

// OrderItem pairs a question id with its new sort position.
type OrderItem struct {
	ID        uint `json:"id"`
	SortOrder int  `json:"sort_order"`
}

// ReorderQuestions applies a new catalog ordering transactionally.
func (s *Store) ReorderQuestions(ctx context.Context, order []OrderItem) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range order {
			if err := tx.Model(&models.Question{}).
				Where("id = ?", item.ID).
				Update("sort_order", item.SortOrder).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: reorder questions: %w", err)
	}
	return nil
}

// DeactivateQuestion soft-deletes a question so existing responses keep their
// labels. Returns ErrNotFound for unknown ids.
func (s *Store) DeactivateQuestion(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", id).
		Update("active", false)
	if result.Error != nil {
		return fmt.Errorf("store: deactivate question %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetQuestion loads one question by id.
func (s *Store) GetQuestion(ctx context.Context, id uint) (*models.Question, error) {
	var q models.Question
	err := s.db.WithContext(ctx).First(&q, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get question %d: %w", id, err)
	}
	return &q, nil
}
