package models

import "time"

// Setting keys used by the application.
const (
	SettingSurveyOpen = "survey_open"
)

// SiteSetting is a key/value pair for runtime-tunable site state, such as
// whether the survey is currently accepting submissions.
type SiteSetting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"size:255;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
