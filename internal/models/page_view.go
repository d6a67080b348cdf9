package models

import "time"

// PageView records one client page load for traffic analytics.
type PageView struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Path      string    `gorm:"size:255;not null;index" json:"path"`
	Referrer  *string   `gorm:"size:512" json:"referrer"`
	UserAgent string    `gorm:"size:512" json:"user_agent"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
