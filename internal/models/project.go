// internal/models/project.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/apperr"
)

type ProjectStatus string

const (
	ProjectOpen       ProjectStatus = "open"
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

func ValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case ProjectOpen, ProjectInProgress, ProjectCompleted, ProjectCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectCompleted || s == ProjectCancelled
}

type Category string

const (
	CategoryWebDevelopment    Category = "web-development"
	CategoryMobileDevelopment Category = "mobile-development"
	CategoryDesign            Category = "design"
	CategoryWriting           Category = "writing"
	CategoryMarketing         Category = "marketing"
	CategoryDataScience       Category = "data-science"
	CategoryDevOps            Category = "devops"
	CategoryOther             Category = "other"
)

func ValidCategory(c Category) bool {
	switch c {
	case CategoryWebDevelopment, CategoryMobileDevelopment, CategoryDesign, CategoryWriting,
		CategoryMarketing, CategoryDataScience, CategoryDevOps, CategoryOther:
		return true
	default:
		return false
	}
}

type ExperienceLevel string

const (
	ExperienceEntry        ExperienceLevel = "entry"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceExpert       ExperienceLevel = "expert"
)

func ValidExperienceLevel(l ExperienceLevel) bool {
	switch l {
	case ExperienceEntry, ExperienceIntermediate, ExperienceExpert:
		return true
	default:
		return false
	}
}

type ProjectSize string

const (
	SizeSmall  ProjectSize = "small"
	SizeMedium ProjectSize = "medium"
	SizeLarge  ProjectSize = "large"
)

func ValidProjectSize(s ProjectSize) bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	default:
		return false
	}
}

type TimelineDuration string

const (
	TimelineUnderWeek     TimelineDuration = "less-than-1-week"
	TimelineOneToTwoWeeks TimelineDuration = "1-2-weeks"
	TimelineOneMonth      TimelineDuration = "1-month"
	TimelineOneToThreeMo  TimelineDuration = "1-3-months"
	TimelineThreeToSixMo  TimelineDuration = "3-6-months"
	TimelineOverSixMonths TimelineDuration = "more-than-6-months"
)

func ValidTimelineDuration(t TimelineDuration) bool {
	switch t {
	case TimelineUnderWeek, TimelineOneToTwoWeeks, TimelineOneMonth,
		TimelineOneToThreeMo, TimelineThreeToSixMo, TimelineOverSixMonths:
		return true
	default:
		return false
	}
}

type BudgetType string

const (
	BudgetFixed  BudgetType = "fixed"
	BudgetHourly BudgetType = "hourly"
)

func ValidBudgetType(t BudgetType) bool {
	return t == BudgetFixed || t == BudgetHourly
}

// Budget is either {fixed, amount} or {hourly, rate_min, rate_max}.
type Budget struct {
	Type    BudgetType `gorm:"type:varchar(10);not null;index" json:"type"`
	Amount  *float64   `json:"amount,omitempty"`
	RateMin *float64   `json:"rate_min,omitempty"`
	RateMax *float64   `json:"rate_max,omitempty"`
}

func FixedBudget(amount float64) Budget {
	return Budget{Type: BudgetFixed, Amount: &amount}
}

func HourlyBudget(min, max float64) Budget {
	return Budget{Type: BudgetHourly, RateMin: &min, RateMax: &max}
}

// Normalize clears the fields that do not belong to the budget's type.
func (b Budget) Normalize() Budget {
	switch b.Type {
	case BudgetFixed:
		b.RateMin, b.RateMax = nil, nil
	case BudgetHourly:
		b.Amount = nil
	}
	return b
}

func (b Budget) Validate(errs apperr.FieldErrors) {
	switch b.Type {
	case BudgetFixed:
		if b.Amount == nil || *b.Amount <= 0 {
			errs.Add("budget.amount", "must be a positive number")
		}
	case BudgetHourly:
		if b.RateMin == nil || *b.RateMin <= 0 {
			errs.Add("budget.rate_min", "must be a positive number")
		}
		if b.RateMax == nil {
			errs.Add("budget.rate_max", "is required")
		} else if b.RateMin != nil && *b.RateMax <= *b.RateMin {
			errs.Add("budget.rate_max", "must be greater than rate_min")
		}
	default:
		errs.Add("budget.type", "must be fixed or hourly")
	}
}

// SortValue is the number used for budget ordering and untyped budget filters:
// the amount of a fixed budget, the ceiling rate of an hourly one.
func (b Budget) SortValue() float64 {
	switch b.Type {
	case BudgetFixed:
		if b.Amount != nil {
			return *b.Amount
		}
	case BudgetHourly:
		if b.RateMax != nil {
			return *b.RateMax
		}
	}
	return 0
}

type Project struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID             uuid.UUID  `gorm:"type:uuid;index;not null" json:"client_id"`
	AssignedFreelancerID *uuid.UUID `gorm:"type:uuid;index" json:"assigned_freelancer_id"`

	Title       string   `gorm:"type:varchar(200);not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	Category    Category `gorm:"type:varchar(40);index" json:"category"`

	Skills datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"skills"`

	Budget      Budget  `gorm:"embedded;embeddedPrefix:budget_" json:"budget"`
	BudgetValue float64 `gorm:"index" json:"-"`

	ExperienceLevel  ExperienceLevel  `gorm:"type:varchar(20);index" json:"experience_level"`
	ProjectSize      ProjectSize      `gorm:"type:varchar(20);index" json:"project_size"`
	TimelineDuration TimelineDuration `gorm:"type:varchar(30);index" json:"timeline_duration"`
	Location         string           `gorm:"type:varchar(120)" json:"location"`
	IsRemote         bool             `gorm:"default:false" json:"is_remote"`
	IsUrgent         bool             `gorm:"default:false;index" json:"is_urgent"`
	IsFeatured       bool             `gorm:"default:false;index" json:"is_featured"`

	Status ProjectStatus `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`

	// server-maintained
	ViewCount     int64 `gorm:"not null;default:0" json:"view_count"`
	ProposalCount int64 `gorm:"not null;default:0" json:"proposal_count"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// HasSkill reports whether any of the project's skills contains needle, ignoring case.
func (p *Project) HasSkill(needle string) bool {
	needle = strings.ToLower(needle)
	for _, s := range p.Skills {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// AssignmentConsistent checks assigned freelancer <=> in-progress or completed.
func (p *Project) AssignmentConsistent() bool {
	assignedState := p.Status == ProjectInProgress || p.Status == ProjectCompleted
	return (p.AssignedFreelancerID != nil) == assignedState
}

// Clone returns a copy that shares no slices or pointers with p.
func (p *Project) Clone() *Project {
	cp := *p
	if p.AssignedFreelancerID != nil {
		id := *p.AssignedFreelancerID
		cp.AssignedFreelancerID = &id
	}
	if p.Skills != nil {
		cp.Skills = append(datatypes.JSONSlice[string]{}, p.Skills...)
	}
	cp.Budget = p.Budget.clone()
	return &cp
}

func (b Budget) clone() Budget {
	out := Budget{Type: b.Type}
	if b.Amount != nil {
		v := *b.Amount
		out.Amount = &v
	}
	if b.RateMin != nil {
		v := *b.RateMin
		out.RateMin = &v
	}
	if b.RateMax != nil {
		v := *b.RateMax
		out.RateMax = &v
	}
	return out
}
