// Package lifecycle owns every project and proposal status change.
//
// Each cross-entity operation runs inside store.WithinTx and gates its writes
// on the expected source state, so a stale caller or a concurrent winner turns
// into an apperr Conflict instead of a second write. Once started, an
// operation is detached from the caller's cancellation and bounded by its own
// timeout so a client disconnect cannot stop it halfway.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/metrics"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/store"
)

const (
	DefaultOpTimeout = 10 * time.Second

	// AutoRejectNote is stored on competing proposals closed by an accept.
	AutoRejectNote = "Another proposal was accepted for this project."
)

type Engine struct {
	store     store.Store
	now       func() time.Time
	opTimeout time.Duration
	log       *zap.Logger
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithOpTimeout(d time.Duration) Option {
	return func(e *Engine) { e.opTimeout = d }
}

func New(s store.Store, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		store:     s,
		now:       func() time.Time { return time.Now().UTC() },
		opTimeout: DefaultOpTimeout,
		log:       log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot is the authoritative state attached to a Conflict.
type Snapshot struct {
	Project  *models.Project  `json:"project,omitempty"`
	Proposal *models.Proposal `json:"proposal,omitempty"`
}

type AcceptResult struct {
	Proposal *models.Proposal
	Project  *models.Project
	// Rejected are the competing proposals closed by the accept.
	Rejected []uuid.UUID
}

// CreateProject stores p as a new open project. Server-maintained fields are
// reset whatever the caller put in them.
func (e *Engine) CreateProject(ctx context.Context, p *models.Project) (*models.Project, error) {
	now := e.now()
	p.ID = uuid.New()
	p.Status = models.ProjectOpen
	p.AssignedFreelancerID = nil
	p.ViewCount, p.ProposalCount = 0, 0
	if p.Skills == nil {
		p.Skills = datatypes.JSONSlice[string]{}
	}
	p.Budget = p.Budget.Normalize()
	p.BudgetValue = p.Budget.SortValue()
	p.CreatedAt, p.UpdatedAt = now, now

	err := e.run(ctx, "create project", func(ctx context.Context) error {
		return e.store.Projects().Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Submit creates a pending proposal while the project is open and the
// freelancer holds no other non-withdrawn proposal on it.
func (e *Engine) Submit(ctx context.Context, p *models.Proposal) (*models.Proposal, error) {
	now := e.now()
	p.ID = uuid.New()
	p.Status = models.ProposalPending
	p.ClientNote = ""
	p.SubmittedAt, p.UpdatedAt = now, now
	p.RespondedAt = nil
	if p.Milestones == nil {
		p.Milestones = datatypes.JSONSlice[models.Milestone]{}
	}

	var out *models.Proposal
	err := e.run(ctx, "submit proposal", func(ctx context.Context) error {
		return e.store.WithinTx(ctx, func(tx store.Store) error {
			project, err := tx.Projects().Get(ctx, p.ProjectID)
			if err != nil {
				return notFound("project", err)
			}
			if project.Status != models.ProjectOpen {
				return projectNotOpen(project.Status)
			}

			existing, err := tx.Proposals().FindActive(ctx, p.ProjectID, p.FreelancerID)
			switch {
			case err == nil:
				return duplicateProposal(existing)
			case !errors.Is(err, store.ErrNotFound):
				return err
			}

			if err := tx.Proposals().Create(ctx, p); err != nil {
				if errors.Is(err, store.ErrDuplicate) {
					return duplicateProposal(nil)
				}
				return err
			}
			ok, err := tx.Projects().IncrementProposalCount(ctx, p.ProjectID, now)
			if err != nil {
				return err
			}
			if !ok {
				current, err := tx.Projects().Get(ctx, p.ProjectID)
				if err != nil {
					return err
				}
				return projectNotOpen(current.Status)
			}
			out, err = tx.Proposals().Get(ctx, p.ID)
			return err
		})
	})
	if err != nil {
		return nil, e.withState(ctx, err, p.ProjectID, uuid.Nil)
	}
	metrics.RecordTransition("proposal", "", string(models.ProposalPending))
	return out, nil
}

// Accept commits one pending proposal: the project moves open -> in-progress
// with the proposal's freelancer assigned, the proposal becomes accepted and
// every other pending proposal of the project is rejected, all in one
// transaction. Of two concurrent accepts on the same project exactly one wins.
func (e *Engine) Accept(ctx context.Context, proposalID uuid.UUID) (*AcceptResult, error) {
	now := e.now()
	var (
		res       AcceptResult
		projectID uuid.UUID
	)
	err := e.run(ctx, "accept proposal", func(ctx context.Context) error {
		return e.store.WithinTx(ctx, func(tx store.Store) error {
			prop, err := tx.Proposals().Get(ctx, proposalID)
			if err != nil {
				return notFound("proposal", err)
			}
			projectID = prop.ProjectID
			if prop.Status != models.ProposalPending {
				return proposalDecided(prop.Status)
			}
			project, err := tx.Projects().Get(ctx, prop.ProjectID)
			if err != nil {
				return notFound("project", err)
			}
			if project.Status != models.ProjectOpen {
				return projectNotOpen(project.Status)
			}

			// the project row is the per-project serialization point
			ok, err := tx.Projects().CompareAndSetStatus(ctx, project.ID, models.ProjectOpen, models.ProjectInProgress, &prop.FreelancerID, now)
			if err != nil {
				return err
			}
			if !ok {
				current, err := tx.Projects().Get(ctx, project.ID)
				if err != nil {
					return err
				}
				return projectNotOpen(current.Status)
			}
			ok, err = tx.Proposals().CompareAndSetStatus(ctx, prop.ID, models.ProposalPending, models.ProposalAccepted, "", now)
			if err != nil {
				return err
			}
			if !ok {
				current, err := tx.Proposals().Get(ctx, prop.ID)
				if err != nil {
					return err
				}
				return proposalDecided(current.Status)
			}

			res.Rejected, err = tx.Proposals().RejectPending(ctx, project.ID, prop.ID, AutoRejectNote, now)
			if err != nil {
				return err
			}
			if res.Project, err = tx.Projects().Get(ctx, project.ID); err != nil {
				return err
			}
			res.Proposal, err = tx.Proposals().Get(ctx, prop.ID)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			metrics.AcceptConflicts.Inc()
		}
		return nil, e.withState(ctx, err, projectID, proposalID)
	}

	metrics.RecordTransition("project", string(models.ProjectOpen), string(models.ProjectInProgress))
	metrics.RecordTransition("proposal", string(models.ProposalPending), string(models.ProposalAccepted))
	for range res.Rejected {
		metrics.RecordTransition("proposal", string(models.ProposalPending), string(models.ProposalRejected))
	}
	e.log.Info("proposal accepted",
		zap.Stringer("project", res.Project.ID),
		zap.Stringer("proposal", res.Proposal.ID),
		zap.Int("auto_rejected", len(res.Rejected)))
	return &res, nil
}

// Reject closes a pending proposal. Rejecting a decided proposal is a Conflict.
func (e *Engine) Reject(ctx context.Context, proposalID uuid.UUID, note string) (*models.Proposal, error) {
	return e.decide(ctx, "reject proposal", proposalID, models.ProposalRejected, note)
}

// Withdraw is the freelancer's own exit from a pending proposal.
func (e *Engine) Withdraw(ctx context.Context, proposalID uuid.UUID) (*models.Proposal, error) {
	return e.decide(ctx, "withdraw proposal", proposalID, models.ProposalWithdrawn, "")
}

func (e *Engine) decide(ctx context.Context, op string, proposalID uuid.UUID, to models.ProposalStatus, note string) (*models.Proposal, error) {
	now := e.now()
	var (
		out       *models.Proposal
		projectID uuid.UUID
	)
	err := e.run(ctx, op, func(ctx context.Context) error {
		repo := e.store.Proposals()
		prop, err := repo.Get(ctx, proposalID)
		if err != nil {
			return notFound("proposal", err)
		}
		projectID = prop.ProjectID
		if !CanTransitionProposal(prop.Status, to) {
			return proposalDecided(prop.Status)
		}
		ok, err := repo.CompareAndSetStatus(ctx, proposalID, models.ProposalPending, to, note, now)
		if err != nil {
			return err
		}
		if !ok {
			current, err := repo.Get(ctx, proposalID)
			if err != nil {
				return err
			}
			return proposalDecided(current.Status)
		}
		out, err = repo.Get(ctx, proposalID)
		return err
	})
	if err != nil {
		return nil, e.withState(ctx, err, projectID, proposalID)
	}
	metrics.RecordTransition("proposal", string(models.ProposalPending), string(to))
	return out, nil
}

// SetProjectStatus applies a client-initiated transition to completed or
// cancelled. Cancelling clears the assignee; completing keeps it.
func (e *Engine) SetProjectStatus(ctx context.Context, projectID uuid.UUID, to models.ProjectStatus) (*models.Project, models.ProjectStatus, error) {
	switch {
	case !models.ValidProjectStatus(to):
		return nil, "", apperr.Invalid("status", "must be one of completed, cancelled")
	case to == models.ProjectInProgress:
		return nil, "", apperr.Invalid("status", "in-progress is set by accepting a proposal")
	case to == models.ProjectOpen:
		return nil, "", apperr.Invalid("status", "a project cannot be reopened")
	}

	now := e.now()
	var (
		out  *models.Project
		from models.ProjectStatus
	)
	err := e.run(ctx, "set project status", func(ctx context.Context) error {
		repo := e.store.Projects()
		project, err := repo.Get(ctx, projectID)
		if err != nil {
			return notFound("project", err)
		}
		from = project.Status
		if !CanTransitionProject(from, to) {
			return projectTransition(from, to)
		}
		var assigned *uuid.UUID
		if to == models.ProjectCompleted {
			assigned = project.AssignedFreelancerID
		}
		ok, err := repo.CompareAndSetStatus(ctx, projectID, from, to, assigned, now)
		if err != nil {
			return err
		}
		if !ok {
			current, err := repo.Get(ctx, projectID)
			if err != nil {
				return err
			}
			return projectTransition(current.Status, to)
		}
		out, err = repo.Get(ctx, projectID)
		return err
	})
	if err != nil {
		return nil, "", e.withState(ctx, err, projectID, uuid.Nil)
	}
	metrics.RecordTransition("project", string(from), string(to))
	return out, from, nil
}

// DeleteProject hard-deletes an open project that never received a proposal.
func (e *Engine) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	err := e.run(ctx, "delete project", func(ctx context.Context) error {
		repo := e.store.Projects()
		project, err := repo.Get(ctx, projectID)
		if err != nil {
			return notFound("project", err)
		}
		if project.Status != models.ProjectOpen {
			return apperr.Conflict("only open projects can be deleted", string(models.ProjectOpen), string(project.Status))
		}
		ok, err := repo.DeleteUnused(ctx, projectID)
		if err != nil {
			return notFound("project", err)
		}
		if !ok {
			current, err := repo.Get(ctx, projectID)
			if err != nil {
				return notFound("project", err)
			}
			if current.Status != models.ProjectOpen {
				return apperr.Conflict("only open projects can be deleted", string(models.ProjectOpen), string(current.Status))
			}
			return apperr.Conflict("project has proposals and cannot be deleted", "", "")
		}
		return nil
	})
	if err != nil {
		return e.withState(ctx, err, projectID, uuid.Nil)
	}
	return nil
}

// UpdateProject writes the editable fields of p while the project is not terminal.
func (e *Engine) UpdateProject(ctx context.Context, p *models.Project) (*models.Project, error) {
	p.Budget = p.Budget.Normalize()
	p.BudgetValue = p.Budget.SortValue()
	p.UpdatedAt = e.now()

	var out *models.Project
	err := e.run(ctx, "update project", func(ctx context.Context) error {
		repo := e.store.Projects()
		ok, err := repo.UpdateContent(ctx, p, editableProjectStates)
		if err != nil {
			return notFound("project", err)
		}
		if !ok {
			current, err := repo.Get(ctx, p.ID)
			if err != nil {
				return notFound("project", err)
			}
			return apperr.Conflict("project can no longer be edited", "open|in-progress", string(current.Status))
		}
		out, err = repo.Get(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, e.withState(ctx, err, p.ID, uuid.Nil)
	}
	return out, nil
}

// UpdateProposal writes bid, cover letter, timeline and milestones while pending.
func (e *Engine) UpdateProposal(ctx context.Context, p *models.Proposal) (*models.Proposal, error) {
	p.UpdatedAt = e.now()

	var out *models.Proposal
	err := e.run(ctx, "update proposal", func(ctx context.Context) error {
		repo := e.store.Proposals()
		ok, err := repo.UpdatePending(ctx, p)
		if err != nil {
			return notFound("proposal", err)
		}
		if !ok {
			current, err := repo.Get(ctx, p.ID)
			if err != nil {
				return notFound("proposal", err)
			}
			return proposalDecided(current.Status)
		}
		out, err = repo.Get(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, e.withState(ctx, err, p.ProjectID, p.ID)
	}
	return out, nil
}

// run refuses to start once ctx is done; after that the operation runs on a
// detached context bounded by opTimeout. Errors that are not already
// apperr errors become server faults named after op.
func (e *Engine) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return apperr.Internal(op, err)
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opTimeout)
	defer cancel()

	err := fn(dctx)
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(op, err)
}

// withState attaches the committed project/proposal state to a Conflict.
func (e *Engine) withState(ctx context.Context, err error, projectID, proposalID uuid.UUID) error {
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindConflict {
		return err
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opTimeout)
	defer cancel()

	var snap Snapshot
	if proposalID != uuid.Nil {
		if p, err := e.store.Proposals().Get(rctx, proposalID); err == nil {
			snap.Proposal = p
			if projectID == uuid.Nil {
				projectID = p.ProjectID
			}
		}
	}
	if projectID != uuid.Nil {
		if p, err := e.store.Projects().Get(rctx, projectID); err == nil {
			snap.Project = p
		}
	}
	return ae.WithCurrent(snap)
}

func notFound(entity string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(entity)
	}
	return err
}

func proposalDecided(actual models.ProposalStatus) *apperr.Error {
	return apperr.Conflict("proposal has already been decided", string(models.ProposalPending), string(actual))
}

func projectNotOpen(actual models.ProjectStatus) *apperr.Error {
	return apperr.Conflict("project is no longer open", string(models.ProjectOpen), string(actual))
}

func projectTransition(from, to models.ProjectStatus) *apperr.Error {
	return apperr.Conflict(fmt.Sprintf("project cannot move from %s to %s", from, to), projectSources(to), string(from))
}

func duplicateProposal(existing *models.Proposal) *apperr.Error {
	err := apperr.Conflict("you already have an active proposal on this project", "", "")
	if existing != nil {
		err.Actual = string(existing.Status)
	}
	return err
}
