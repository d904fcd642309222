// Package query compiles raw project listing parameters into a normalized plan.
//
// Compilation never fails: unknown or malformed values are dropped so that a
// caller sending a filter this server does not understand gets results that are
// unfiltered on that dimension.
package query

import (
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
)

// Filter is the constraint set shared by the page query and the count query.
type Filter struct {
	// Statuses is nil when any status matches.
	Statuses []models.ProjectStatus

	Category         *models.Category
	ClientID         *uuid.UUID
	FreelancerID     *uuid.UUID
	ExperienceLevel  *models.ExperienceLevel
	ProjectSize      *models.ProjectSize
	TimelineDuration *models.TimelineDuration

	// Location is a lower-cased substring.
	Location string

	// Skills are lower-cased substrings; a project matches if any of its skills
	// contains any of these.
	Skills []string

	// BudgetType nil with bounds set constrains the budget sort value.
	BudgetType *models.BudgetType
	BudgetMin  *float64
	BudgetMax  *float64

	RemoteOnly bool
	UrgentOnly bool

	Search string
}

type Field string

const (
	FieldRelevance     Field = "relevance"
	FieldCreatedAt     Field = "created_at"
	FieldBudget        Field = "budget_value"
	FieldProposalCount Field = "proposal_count"
	FieldUrgent        Field = "is_urgent"
	FieldFeatured      Field = "is_featured"
	FieldID            Field = "id"
)

type OrderTerm struct {
	Field Field
	Desc  bool
}

type Sort string

const (
	SortDefault       Sort = ""
	SortRelevance     Sort = "relevance"
	SortNewest        Sort = "newest"
	SortOldest        Sort = "oldest"
	SortBudgetHigh    Sort = "budget_high"
	SortBudgetLow     Sort = "budget_low"
	SortMostProposals Sort = "most_proposals"
)

// Plan is the normalized listing query.
type Plan struct {
	Filter Filter
	Sort   Sort
	Page   int
	Limit  int
	Offset int
}

// Order returns the full ordering for the plan. The last term is always id
// ascending so equal rows have a stable position across pages.
func (p Plan) Order() []OrderTerm {
	var terms []OrderTerm
	switch p.Sort {
	case SortRelevance:
		terms = []OrderTerm{{FieldRelevance, true}, {FieldCreatedAt, true}}
	case SortNewest:
		terms = []OrderTerm{{FieldCreatedAt, true}}
	case SortOldest:
		terms = []OrderTerm{{FieldCreatedAt, false}}
	case SortBudgetHigh:
		terms = []OrderTerm{{FieldBudget, true}, {FieldCreatedAt, true}}
	case SortBudgetLow:
		terms = []OrderTerm{{FieldBudget, false}, {FieldCreatedAt, true}}
	case SortMostProposals:
		terms = []OrderTerm{{FieldProposalCount, true}, {FieldCreatedAt, true}}
	default:
		terms = []OrderTerm{{FieldUrgent, true}, {FieldFeatured, true}, {FieldCreatedAt, true}}
	}
	return append(terms, OrderTerm{FieldID, false})
}

type Pagination struct {
	CurrentPage     int   `json:"currentPage"`
	TotalPages      int   `json:"totalPages"`
	TotalProjects   int64 `json:"totalProjects"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
	Limit           int   `json:"limit"`
}

func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		CurrentPage:     page,
		TotalPages:      totalPages,
		TotalProjects:   total,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
		Limit:           limit,
	}
}
