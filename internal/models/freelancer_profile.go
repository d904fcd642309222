// internal/models/freelancer_profile.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type FreelancerType string

const (
	FreelancerFullTime FreelancerType = "full_time"
	FreelancerPartTime FreelancerType = "part_time"
)

type FreelancerProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	PhotoURL       string         `gorm:"type:text" json:"photo_url"`
	SystemName     string         `gorm:"type:varchar(120)" json:"system_name"`
	FreelancerType FreelancerType `gorm:"type:varchar(30)" json:"freelancer_type"`
	About          string         `gorm:"type:text" json:"about"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
