package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gmr0780/bahamas-town-hall/internal/models"
)

// citizenColumns are the fixed leading export columns, before one column per
// question label.
var citizenColumns = []string{
	"name", "email", "phone", "lives_in_bahamas", "island", "country",
	"age_group", "sector", "created_at",
}

// ExportData is a flattened view of all submissions: a header row and one
// value row per citizen, with checkbox arrays collapsed to comma lists.
type ExportData struct {
	Columns []string
	Rows    [][]string
}

// ExportRows assembles the export table for the given filter, newest first.
func (s *Store) ExportRows(ctx context.Context, filter CitizenFilter) (*ExportData, error) {
	var questions []models.Question
	err := s.db.WithContext(ctx).Order("sort_order ASC").Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("store: export questions: %w", err)
	}

	var citizens []models.Citizen
	err = s.applyCitizenFilter(s.db.WithContext(ctx).Model(&models.Citizen{}), filter).
		Order("created_at DESC").
		Find(&citizens).Error
	if err != nil {
		return nil, fmt.Errorf("store: export citizens: %w", err)
	}

	columns := append(append([]string{}, citizenColumns...), questionLabels(questions)...)
	out := &ExportData{Columns: columns}
	if len(citizens) == 0 {
		return out, nil
	}

	ids := make([]uint, len(citizens))
	for i, c := range citizens {
		ids[i] = c.ID
	}
	var responses []models.Response
	err = s.db.WithContext(ctx).Where("citizen_id IN ?", ids).Find(&responses).Error
	if err != nil {
		return nil, fmt.Errorf("store: export responses: %w", err)
	}

	// Index answers by citizen then question.
	answers := make(map[uint]map[uint]string, len(citizens))
	for _, r := range responses {
		if answers[r.CitizenID] == nil {
			answers[r.CitizenID] = make(map[uint]string)
		}
		answers[r.CitizenID][r.QuestionID] = r.Value
	}

	for _, c := range citizens {
		row := []string{
			c.Name,
			c.Email,
			deref(c.Phone),
			fmt.Sprintf("%t", c.LivesInBahamas),
			c.Island,
			deref(c.Country),
			c.AgeGroup,
			c.Sector,
			c.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for _, q := range questions {
			row = append(row, exportValue(q, answers[c.ID][q.ID]))
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func questionLabels(questions []models.Question) []string {
	labels := make([]string, len(questions))
	for i, q := range questions {
		labels[i] = q.Label
	}
	return labels
}

// exportValue flattens checkbox JSON arrays to comma-separated lists; other
// values export verbatim.
func exportValue(q models.Question, value string) string {
	if q.Type != models.QuestionCheckbox || value == "" {
		return value
	}
	var items []string
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		return value
	}
	return strings.Join(items, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
