// Package matching is the orchestration surface the HTTP handlers call. It
// authorizes the caller, validates payloads, delegates state changes to the
// lifecycle engine and publishes lifecycle events after commit.
package matching

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/config"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/notify"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/query"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/services/lifecycle"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/store"
)

const publishTimeout = time.Second

// Caller is the authenticated identity supplied by the auth middleware.
type Caller struct {
	ID   uuid.UUID
	Role models.Role
}

func (c Caller) IsAdmin() bool { return c.Role == models.RoleAdmin }

// ViewRecorder counts a detail view without blocking the read.
type ViewRecorder interface {
	Record(projectID uuid.UUID, viewer string)
}

type Options struct {
	ListTimeout     time.Duration
	DefaultLimit    int
	MaxLimit        int
	MilestonePolicy string
}

type Service struct {
	store  store.Store
	engine *lifecycle.Engine
	views  ViewRecorder
	events notify.Publisher
	opts   Options
	log    *zap.Logger
}

// New wires the service. views and events may be nil.
func New(s store.Store, engine *lifecycle.Engine, views ViewRecorder, events notify.Publisher, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if events == nil {
		events = notify.NewFanout(log)
	}
	if opts.ListTimeout <= 0 {
		opts.ListTimeout = 3 * time.Second
	}
	if opts.MilestonePolicy == "" {
		opts.MilestonePolicy = config.MilestonesNotExceed
	}
	return &Service{store: s, engine: engine, views: views, events: events, opts: opts, log: log}
}

func (s *Service) queryOptions() query.Options {
	return query.Options{DefaultLimit: s.opts.DefaultLimit, MaxLimit: s.opts.MaxLimit}
}

// publish runs after commit; failures are logged by the fanout and dropped.
func (s *Service) publish(ctx context.Context, ev notify.Event) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		s.log.Warn("matching: publish event", zap.String("event", ev.Type), zap.Error(err))
	}
}

// ownProject loads a project and requires the caller to own it or be an admin.
func (s *Service) ownProject(ctx context.Context, caller Caller, projectID uuid.UUID, op string) (*models.Project, error) {
	project, err := s.store.Projects().Get(ctx, projectID)
	if err != nil {
		return nil, fault(op, "project", err)
	}
	if project.ClientID != caller.ID && !caller.IsAdmin() {
		return nil, apperr.Forbidden("only the project owner can do this")
	}
	return project, nil
}

// proposalWithProject loads a proposal and its project.
func (s *Service) proposalWithProject(ctx context.Context, proposalID uuid.UUID, op string) (*models.Proposal, *models.Project, error) {
	prop, err := s.store.Proposals().Get(ctx, proposalID)
	if err != nil {
		return nil, nil, fault(op, "proposal", err)
	}
	project, err := s.store.Projects().Get(ctx, prop.ProjectID)
	if err != nil {
		return nil, nil, fault(op, "project", err)
	}
	return prop, project, nil
}

func (s *Service) summaries(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]models.UserSummary {
	if len(ids) == 0 {
		return nil
	}
	out, err := s.store.Users().Summaries(ctx, ids)
	if err != nil {
		// summaries decorate the response; a lookup failure leaves them out
		s.log.Warn("matching: user summaries", zap.Error(err))
		return nil
	}
	return out
}

// fault converts store errors: missing rows become NotFound(entity), apperr
// errors pass through, anything else is a server fault named after op.
func fault(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(entity)
	}
	return apperr.Internal(op, err)
}
