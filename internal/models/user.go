package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

// internal/models/user.go
// Users are owned by the identity service; this core only reads them for summaries.
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`

	Role     Role `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FreelancerProfile *FreelancerProfile `gorm:"foreignKey:UserID;references:ID" json:"freelancer_profile,omitempty"`
}

// UserSummary is the owner/assignee info attached to listed projects and proposals.
type UserSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	SystemName string    `json:"system_name,omitempty"`
	PhotoURL   string    `json:"photo_url,omitempty"`
}

func (u *User) Summary() UserSummary {
	s := UserSummary{ID: u.ID, Name: u.Name}
	if u.FreelancerProfile != nil {
		s.SystemName = u.FreelancerProfile.SystemName
		s.PhotoURL = u.FreelancerProfile.PhotoURL
	}
	return s
}
