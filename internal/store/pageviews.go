package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gmr0780/bahamas-town-hall/internal/models"
)

// TrackPageView records one client page load.
func (s *Store) TrackPageView(ctx context.Context, path string, referrer *string, userAgent string) error {
	pv := models.PageView{Path: path, Referrer: referrer, UserAgent: userAgent}
	if err := s.db.WithContext(ctx).Create(&pv).Error; err != nil {
		return fmt.Errorf("store: track page view: %w", err)
	}
	return nil
}

// DateCount is one day's page view total.
type DateCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// PageViewStats is the traffic analytics snapshot.
type PageViewStats struct {
	TotalViews int64        `json:"total_views"`
	TodayViews int64        `json:"today_views"`
	ByPage     []GroupCount `json:"by_page"`
	ByDay      []DateCount  `json:"by_day"`
}

// PageViewStats aggregates traffic, optionally bounded to [from, to]. Zero
// times mean unbounded; to is inclusive of that whole day.
func (s *Store) PageViewStats(ctx context.Context, from, to time.Time) (*PageViewStats, error) {
	out := &PageViewStats{}

	ranged := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.PageView{})
		if !from.IsZero() {
			q = q.Where("created_at >= ?", from)
		}
		if !to.IsZero() {
			q = q.Where("created_at < ?", to.AddDate(0, 0, 1))
		}
		return q
	}

	if err := ranged().Count(&out.TotalViews).Error; err != nil {
		return nil, fmt.Errorf("store: page view total: %w", err)
	}

	err := s.db.WithContext(ctx).Model(&models.PageView{}).
		Where("created_at >= ?", startOfToday(time.Now())).
		Count(&out.TodayViews).Error
	if err != nil {
		return nil, fmt.Errorf("store: page view today: %w", err)
	}

	err = ranged().
		Select("path AS label, COUNT(*) AS count").
		Group("path").
		Order("count DESC").
		Scan(&out.ByPage).Error
	if err != nil {
		return nil, fmt.Errorf("store: page view by page: %w", err)
	}

	err = ranged().
		Select("DATE(created_at) AS date, COUNT(*) AS count").
		Group("DATE(created_at)").
		Order("date DESC").
		Limit(30).
		Scan(&out.ByDay).Error
	if err != nil {
		return nil, fmt.Errorf("store: page view by day: %w", err)
	}
	return out, nil
}
