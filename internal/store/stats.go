package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gmr0780/bahamas-town-hall/internal/models"
)

// GroupCount is one bucket of a GROUP BY aggregate.
type GroupCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Stats is the admin dashboard aggregate snapshot.
type Stats struct {
	TotalResponses int64        `json:"total_responses"`
	TodayResponses int64        `json:"today_responses"`
	ByIsland       []GroupCount `json:"by_island"`
	ByAgeGroup     []GroupCount `json:"by_age_group"`
	BySector       []GroupCount `json:"by_sector"`
	AvgTechComfort float64      `json:"avg_tech_comfort"`
}

// Stats computes the admin dashboard aggregates.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	out := &Stats{}
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Citizen{}).Count(&out.TotalResponses).Error; err != nil {
		return nil, fmt.Errorf("store: stats total: %w", err)
	}
	if err := db.Model(&models.Citizen{}).
		Where("created_at >= ?", startOfToday(time.Now())).
		Count(&out.TodayResponses).Error; err != nil {
		return nil, fmt.Errorf("store: stats today: %w", err)
	}

	for _, group := range []struct {
		col  string
		dest *[]GroupCount
	}{
		{"island", &out.ByIsland},
		{"age_group", &out.ByAgeGroup},
		{"sector", &out.BySector},
	} {
		err := db.Model(&models.Citizen{}).
			Select(group.col + " AS label, COUNT(*) AS count").
			Group(group.col).
			Order("count DESC").
			Scan(group.dest).Error
		if err != nil {
			return nil, fmt.Errorf("store: stats by %s: %w", group.col, err)
		}
	}

	avg, err := s.averageScaleAnswer(ctx)
	if err != nil {
		return nil, err
	}
	out.AvgTechComfort = avg
	return out, nil
}

// averageScaleAnswer averages all numeric answers to scale questions. The
// average is computed in Go so the string-to-number coercion behaves the same
// on sqlite and MySQL.
func (s *Store) averageScaleAnswer(ctx context.Context) (float64, error) {
	var values []string
	err := s.db.WithContext(ctx).Model(&models.Response{}).
		Joins("JOIN questions ON questions.id = responses.question_id").
		Where("questions.type = ?", models.QuestionScale).
		Pluck("responses.value", &values).Error
	if err != nil {
		return 0, fmt.Errorf("store: scale answers: %w", err)
	}

	var sum float64
	var n int
	for _, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		sum += f
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

// LabelValueCount is one (question, value) popularity bucket.
type LabelValueCount struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// SummaryStats holds the aggregates fed to the post-submission summary model.
type SummaryStats struct {
	TotalResponses int64
	TopIslands     []GroupCount
	CommonAnswers  []LabelValueCount
}

// SummaryStats gathers community-wide aggregates for the personality summary.
func (s *Store) SummaryStats(ctx context.Context) (*SummaryStats, error) {
	out := &SummaryStats{}
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Citizen{}).Count(&out.TotalResponses).Error; err != nil {
		return nil, fmt.Errorf("store: summary total: %w", err)
	}

	err := db.Model(&models.Citizen{}).
		Select("island AS label, COUNT(*) AS count").
		Group("island").
		Order("count DESC").
		Limit(5).
		Scan(&out.TopIslands).Error
	if err != nil {
		return nil, fmt.Errorf("store: summary top islands: %w", err)
	}

	err = db.Model(&models.Response{}).
		Select("questions.label AS label, responses.value AS value, COUNT(*) AS count").
		Joins("JOIN questions ON questions.id = responses.question_id").
		Where("questions.type IN ?", []string{models.QuestionDropdown, models.QuestionScale}).
		Group("questions.label, responses.value").
		Order("count DESC").
		Limit(10).
		Scan(&out.CommonAnswers).Error
	if err != nil {
		return nil, fmt.Errorf("store: summary common answers: %w", err)
	}
	return out, nil
}
