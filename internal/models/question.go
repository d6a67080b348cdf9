package models

import (
	"encoding/json"
	"time"
)

// Question types supported by the survey.
const (
	QuestionText     = "text"
	QuestionTextarea = "textarea"
	QuestionDropdown = "dropdown"
	QuestionCheckbox = "checkbox"
	QuestionScale    = "scale"
)

// ValidQuestionTypes lists the accepted values for Question.Type.
var ValidQuestionTypes = []string{
	QuestionText, QuestionTextarea, QuestionDropdown, QuestionCheckbox, QuestionScale,
}

// Question is one entry in the survey catalog. Options holds JSON: a string
// array for dropdown/checkbox, or a {min,max,min_label,max_label} object for
// scale questions. Deactivated questions stay in the table so historical
// responses keep their labels.
type Question struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Type        string    `gorm:"size:16;not null" json:"type"`
	Label       string    `gorm:"size:255;not null" json:"label"`
	Description *string   `gorm:"type:text" json:"description"`
	Required    bool      `gorm:"default:false" json:"required"`
	SortOrder   int       `gorm:"default:0;index" json:"sort_order"`
	Options     *string   `gorm:"type:text" json:"options"`
	Active      bool      `gorm:"default:true;index" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// ScaleOptions is the decoded form of a scale question's Options.
type ScaleOptions struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	MinLabel string `json:"min_label"`
	MaxLabel string `json:"max_label"`
}

// ChoiceOptions decodes Options as a string array. Returns nil if Options is
// absent or not an array.
func (q *Question) ChoiceOptions() []string {
	if q.Options == nil {
		return nil
	}
	var opts []string
	if err := json.Unmarshal([]byte(*q.Options), &opts); err != nil {
		return nil
	}
	return opts
}

// Scale decodes Options as a scale descriptor. Returns nil if Options is
// absent or not a min/max object.
func (q *Question) Scale() *ScaleOptions {
	if q.Options == nil {
		return nil
	}
	var s ScaleOptions
	if err := json.Unmarshal([]byte(*q.Options), &s); err != nil {
		return nil
	}
	if s.Min == 0 && s.Max == 0 {
		return nil
	}
	return &s
}

// IsValidType reports whether t is one of the supported question types.
func IsValidType(t string) bool {
	for _, v := range ValidQuestionTypes {
		if v == t {
			return true
		}
	}
	return false
}
