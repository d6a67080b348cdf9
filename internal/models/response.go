package models

import "time"

// Response is one answer row: the raw string value a citizen gave for a
// question. Scalars are stored verbatim; checkbox selections are stored as a
// JSON-encoded string array.
type Response struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CitizenID  uint      `gorm:"not null;index;uniqueIndex:idx_citizen_question" json:"citizen_id"`
	QuestionID uint      `gorm:"not null;index;uniqueIndex:idx_citizen_question" json:"question_id"`
	Value      string    `gorm:"type:text;not null" json:"value"`
	CreatedAt  time.Time `json:"created_at"`

	Citizen  Citizen  `gorm:"foreignKey:CitizenID" json:"-"`
	Question Question `gorm:"foreignKey:QuestionID" json:"-"`
}
