package models

import "time"

// Citizen is one finalized survey submission. Email is the identity key:
// a second submission with the same email is rejected at commit time.
type Citizen struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string    `gorm:"size:128;not null" json:"name"`
	Email          string    `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Phone          *string   `gorm:"size:32" json:"phone"`
	LivesInBahamas bool      `gorm:"default:true" json:"lives_in_bahamas"`
	Island         string    `gorm:"size:64;not null;index" json:"island"`
	Country        *string   `gorm:"size:64" json:"country"`
	AgeGroup       string    `gorm:"size:16;not null;index" json:"age_group"`
	Sector         string    `gorm:"size:64;not null;index" json:"sector"`
	CreatedAt      time.Time `json:"created_at"`

	Responses []Response `gorm:"foreignKey:CitizenID" json:"-"`
}
