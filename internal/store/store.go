// Package store declares the persistence contract used by the lifecycle engine.
//
// Status changes go through CompareAndSetStatus: the write only lands when the
// row is still in the expected source state, and the boolean result tells the
// caller whether it won.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/query"
)

var (
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a freelancer already has a non-withdrawn
	// proposal on the project.
	ErrDuplicate = errors.New("store: duplicate active proposal")
)

type ProjectRepo interface {
	Create(ctx context.Context, p *models.Project) error
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)

	// UpdateContent writes the editable fields when the project is in one of
	// the given states. Status, owner, assignee and counters are never written.
	UpdateContent(ctx context.Context, p *models.Project, allowed []models.ProjectStatus) (bool, error)

	// DeleteUnused removes the project only while it is open and has no proposals.
	DeleteUnused(ctx context.Context, id uuid.UUID) (bool, error)

	Find(ctx context.Context, plan query.Plan) ([]models.Project, error)
	Count(ctx context.Context, f query.Filter) (int64, error)
	Categories(ctx context.Context) ([]models.Category, error)

	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to models.ProjectStatus, assigned *uuid.UUID, at time.Time) (bool, error)

	// IncrementProposalCount bumps the counter only while the project is open.
	IncrementProposalCount(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
}

type ProposalRepo interface {
	Create(ctx context.Context, p *models.Proposal) error
	Get(ctx context.Context, id uuid.UUID) (*models.Proposal, error)

	// UpdatePending writes bid, cover letter, timeline and milestones while pending.
	UpdatePending(ctx context.Context, p *models.Proposal) (bool, error)

	ListByProject(ctx context.Context, projectID uuid.UUID, status *models.ProposalStatus) ([]models.Proposal, error)
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, status *models.ProposalStatus) ([]models.Proposal, error)
	CountByFreelancer(ctx context.Context, freelancerID uuid.UUID) (map[models.ProposalStatus]int64, error)

	// FindActive returns the freelancer's non-withdrawn proposal on the project.
	FindActive(ctx context.Context, projectID, freelancerID uuid.UUID) (*models.Proposal, error)

	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to models.ProposalStatus, note string, at time.Time) (bool, error)

	// RejectPending moves every pending proposal of the project except one to rejected.
	RejectPending(ctx context.Context, projectID, except uuid.UUID, note string, at time.Time) ([]uuid.UUID, error)
}

// UserDirectory resolves owner/assignee summaries. Missing ids are omitted.
type UserDirectory interface {
	Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error)
}

type Store interface {
	Projects() ProjectRepo
	Proposals() ProposalRepo
	Users() UserDirectory

	// WithinTx runs fn as one unit: all of its writes commit or none do.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
