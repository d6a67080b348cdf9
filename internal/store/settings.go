package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gmr0780/bahamas-town-hall/internal/models"
)

// SurveyOpen reports whether the survey currently accepts submissions.
// A missing setting row means closed.
func (s *Store) SurveyOpen(ctx context.Context) (bool, error) {
	var setting models.SiteSetting
	err := s.db.WithContext(ctx).First(&setting, "`key` = ?", models.SettingSurveyOpen).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: survey status: %w", err)
	}
	return setting.Value == "true", nil
}

// SetSurveyOpen toggles whether the survey accepts submissions.
func (s *Store) SetSurveyOpen(ctx context.Context, open bool) error {
	value := "false"
	if open {
		value = "true"
	}
	setting := models.SiteSetting{Key: models.SettingSurveyOpen, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("store: set survey status: %w", err)
	}
	return nil
}
