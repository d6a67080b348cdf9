package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/gmr0780/bahamas-town-hall/internal/models"
)

// mysqlDuplicateEntry is the MySQL error number for unique key violations.
const mysqlDuplicateEntry = 1062

// Submission is a finalized citizen record plus their answers, ready to commit.
type Submission struct {
	Name           string
	Email          string
	Phone          *string
	LivesInBahamas bool
	Island         string
	Country        *string
	AgeGroup       string
	Sector         string
	Answers        map[uint]string // question id -> raw value
}

// SubmitSurvey writes the citizen row and one response row per non-empty
// answer inside a single transaction. Both succeed or both fail. Returns
// ErrDuplicateEmail when the email is already taken.
func (s *Store) SubmitSurvey(ctx context.Context, sub Submission) (uint, error) {
	citizen := models.Citizen{
		Name:           sub.Name,
		Email:          sub.Email,
		Phone:          sub.Phone,
		LivesInBahamas: sub.LivesInBahamas,
		Island:         sub.Island,
		Country:        sub.Country,
		AgeGroup:       sub.AgeGroup,
		Sector:         sub.Sector,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&citizen).Error; err != nil {
			return err
		}
		for questionID, value := range sub.Answers {
			if value == "" || value == "[]" {
				continue
			}
			resp := models.Response{
				CitizenID:  citizen.ID,
				QuestionID: questionID,
				Value:      value,
			}
			if err := tx.Create(&resp).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("store: submit survey: %w", err)
	}
	return citizen.ID, nil
}

// isDuplicateKey recognizes unique violations across drivers: GORM's
// translated error for sqlite, the raw driver error number for MySQL.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *sqldriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// GetCitizen loads one citizen by id. Returns ErrNotFound if absent.
func (s *Store) GetCitizen(ctx context.Context, id uint) (*models.Citizen, error) {
	var c models.Citizen
	err := s.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get citizen %d: %w", id, err)
	}
	return &c, nil
}

// AnswerDetail is one answer joined with its question metadata.
type AnswerDetail struct {
	QuestionID uint    `json:"question_id"`
	Type       string  `json:"type"`
	Label      string  `json:"label"`
	Options    *string `json:"options,omitempty"`
	Value      string  `json:"value"`
}

// CitizenAnswers returns the citizen's answers joined with question labels,
// in catalog order.
func (s *Store) CitizenAnswers(ctx context.Context, citizenID uint) ([]AnswerDetail, error) {
	var details []AnswerDetail
	err := s.db.WithContext(ctx).Model(&models.Response{}).
		Select("responses.question_id, questions.type, questions.label, questions.options, responses.value").
		Joins("JOIN questions ON questions.id = responses.question_id").
		Where("responses.citizen_id = ?", citizenID).
		Order("questions.sort_order ASC").
		Scan(&details).Error
	if err != nil {
		return nil, fmt.Errorf("store: citizen %d answers: %w", citizenID, err)
	}
	return details, nil
}

// CitizenFilter narrows list and export queries.
type CitizenFilter struct {
	Island   string
	AgeGroup string
	Sector   string
	Search   string // matches name or email, case-insensitive
}

// CitizenPage is one page of the admin response browser.
type CitizenPage struct {
	Data       []models.Citizen `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

// citizenSortColumns is the allow-list for ListCitizens sort fields.
var citizenSortColumns = map[string]string{
	"created_at": "created_at",
	"name":       "name",
	"island":     "island",
	"age_group":  "age_group",
	"sector":     "sector",
}

// ListCitizens returns a filtered, sorted page of citizens.
func (s *Store) ListCitizens(ctx context.Context, filter CitizenFilter, page, limit int, sort string, ascending bool) (*CitizenPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	base := func() *gorm.DB {
		return s.applyCitizenFilter(s.db.WithContext(ctx).Model(&models.Citizen{}), filter)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("store: count citizens: %w", err)
	}

	col, ok := citizenSortColumns[sort]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if ascending {
		dir = "ASC"
	}

	var citizens []models.Citizen
	err := base().Order(col + " " + dir).
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&citizens).Error
	if err != nil {
		return nil, fmt.Errorf("store: list citizens: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &CitizenPage{
		Data:       citizens,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

func (s *Store) applyCitizenFilter(q *gorm.DB, filter CitizenFilter) *gorm.DB {
	if filter.Island != "" {
		q = q.Where("island = ?", filter.Island)
	}
	if filter.AgeGroup != "" {
		q = q.Where("age_group = ?", filter.AgeGroup)
	}
	if filter.Sector != "" {
		q = q.Where("sector = ?", filter.Sector)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", pattern, pattern)
	}
	return q
}

// ResponseCount returns the total number of committed submissions.
func (s *Store) ResponseCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Citizen{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("store: response count: %w", err)
	}
	return count, nil
}

// startOfToday returns local midnight, used for "today" counters.
func startOfToday(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
