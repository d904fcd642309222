package matching

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/metrics"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/notify"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/query"
)

// ProjectView is a project with its owner and assignee summaries.
type ProjectView struct {
	models.Project
	Client             *models.UserSummary `json:"client,omitempty"`
	AssignedFreelancer *models.UserSummary `json:"assigned_freelancer,omitempty"`
}

type ProjectPage struct {
	Projects   []ProjectView    `json:"projects"`
	Pagination query.Pagination `json:"pagination"`
}

func (s *Service) ListProjects(ctx context.Context, params url.Values) (*ProjectPage, error) {
	plan := query.Compile(params, s.queryOptions())

	ctx, cancel := context.WithTimeout(ctx, s.opts.ListTimeout)
	defer cancel()
	start := time.Now()
	defer func() { metrics.RecordProjectList(time.Since(start)) }()

	projects, err := s.store.Projects().Find(ctx, plan)
	if err != nil {
		return nil, fault("list projects", "project", err)
	}
	total, err := s.store.Projects().Count(ctx, plan.Filter)
	if err != nil {
		return nil, fault("count projects", "project", err)
	}

	return &ProjectPage{
		Projects:   s.decorate(ctx, projects),
		Pagination: query.NewPagination(plan.Page, plan.Limit, total),
	}, nil
}

// GetProject reads one project and schedules a view count for anyone other
// than its owner. viewer identifies anonymous callers (e.g. remote address).
func (s *Service) GetProject(ctx context.Context, caller *Caller, id uuid.UUID, viewer string) (*ProjectView, error) {
	project, err := s.store.Projects().Get(ctx, id)
	if err != nil {
		return nil, fault("get project", "project", err)
	}
	if s.views != nil && (caller == nil || caller.ID != project.ClientID) {
		if caller != nil {
			viewer = caller.ID.String()
		}
		s.views.Record(project.ID, viewer)
	}
	view := s.decorate(ctx, []models.Project{*project})[0]
	return &view, nil
}

func (s *Service) CreateProject(ctx context.Context, caller Caller, in ProjectInput) (*ProjectView, error) {
	if caller.Role != models.RoleClient {
		return nil, apperr.Forbidden("only clients can post projects")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &models.Project{ClientID: caller.ID}
	in.apply(p)
	// featuring is an admin decision
	p.IsFeatured = false

	created, err := s.engine.CreateProject(ctx, p)
	if err != nil {
		return nil, err
	}
	view := s.decorate(ctx, []models.Project{*created})[0]
	return &view, nil
}

// UpdateProject replaces the editable fields. Only an admin may change the
// featured flag; for others it keeps its stored value.
func (s *Service) UpdateProject(ctx context.Context, caller Caller, id uuid.UUID, in ProjectInput) (*ProjectView, error) {
	current, err := s.ownProject(ctx, caller, id, "update project")
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	next := current.Clone()
	in.apply(next)
	if !caller.IsAdmin() {
		next.IsFeatured = current.IsFeatured
	}

	updated, err := s.engine.UpdateProject(ctx, next)
	if err != nil {
		return nil, err
	}
	view := s.decorate(ctx, []models.Project{*updated})[0]
	return &view, nil
}

func (s *Service) DeleteProject(ctx context.Context, caller Caller, id uuid.UUID) error {
	if _, err := s.ownProject(ctx, caller, id, "delete project"); err != nil {
		return err
	}
	return s.engine.DeleteProject(ctx, id)
}

func (s *Service) SetProjectStatus(ctx context.Context, caller Caller, id uuid.UUID, status models.ProjectStatus) (*ProjectView, error) {
	before, err := s.ownProject(ctx, caller, id, "set project status")
	if err != nil {
		return nil, err
	}
	updated, from, err := s.engine.SetProjectStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	recipients := []uuid.UUID{updated.ClientID}
	if before.AssignedFreelancerID != nil {
		recipients = append(recipients, *before.AssignedFreelancerID)
	}
	s.publish(ctx, notify.Event{
		Type:       notify.ProjectStatusChanged,
		ProjectID:  updated.ID,
		From:       string(from),
		To:         string(updated.Status),
		ActorID:    caller.ID,
		OccurredAt: updated.UpdatedAt,
		Recipients: recipients,
	})
	view := s.decorate(ctx, []models.Project{*updated})[0]
	return &view, nil
}

// Categories lists the categories that currently have open projects.
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	out, err := s.store.Projects().Categories(ctx)
	if err != nil {
		return nil, fault("list categories", "category", err)
	}
	if out == nil {
		out = []models.Category{}
	}
	return out, nil
}

func (s *Service) decorate(ctx context.Context, projects []models.Project) []ProjectView {
	var ids []uuid.UUID
	for _, p := range projects {
		ids = append(ids, p.ClientID)
		if p.AssignedFreelancerID != nil {
			ids = append(ids, *p.AssignedFreelancerID)
		}
	}
	users := s.summaries(ctx, ids)

	out := make([]ProjectView, len(projects))
	for i, p := range projects {
		out[i] = ProjectView{Project: p}
		if u, ok := users[p.ClientID]; ok {
			out[i].Client = &u
		}
		if p.AssignedFreelancerID != nil {
			if u, ok := users[*p.AssignedFreelancerID]; ok {
				out[i].AssignedFreelancer = &u
			}
		}
	}
	return out
}
