package matching

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/notify"
)

type ProposalView struct {
	models.Proposal
	Freelancer *models.UserSummary `json:"freelancer,omitempty"`
	Project    *ProjectBrief       `json:"project,omitempty"`
}

type ProjectBrief struct {
	ID     uuid.UUID            `json:"id"`
	Title  string               `json:"title"`
	Status models.ProjectStatus `json:"status"`
}

type AcceptOutcome struct {
	Proposal ProposalView `json:"proposal"`
	Project  ProjectView  `json:"project"`
}

type FreelancerStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Accepted  int64 `json:"accepted"`
	Rejected  int64 `json:"rejected"`
	Withdrawn int64 `json:"withdrawn"`
}

func (s *Service) SubmitProposal(ctx context.Context, caller Caller, in ProposalInput) (*ProposalView, error) {
	if caller.Role != models.RoleFreelancer {
		return nil, apperr.Forbidden("only freelancers can submit proposals")
	}
	projectID, err := uuid.Parse(strings.TrimSpace(in.ProjectID))
	if err != nil {
		return nil, apperr.Invalid("project_id", "must be a valid id")
	}
	if err := in.validate(s.opts.MilestonePolicy); err != nil {
		return nil, err
	}
	project, err := s.store.Projects().Get(ctx, projectID)
	if err != nil {
		return nil, fault("submit proposal", "project", err)
	}
	if project.ClientID == caller.ID {
		return nil, apperr.Forbidden("you cannot bid on your own project")
	}

	p := &models.Proposal{ProjectID: projectID, FreelancerID: caller.ID}
	in.apply(p)
	created, err := s.engine.Submit(ctx, p)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.Event{
		Type:       notify.ProposalSubmitted,
		ProjectID:  projectID,
		ProposalID: &created.ID,
		To:         string(created.Status),
		ActorID:    caller.ID,
		OccurredAt: created.SubmittedAt,
		Recipients: []uuid.UUID{project.ClientID, caller.ID},
	})
	return s.proposalView(ctx, created, project), nil
}

// GetProposal is visible to its freelancer, the project owner and admins.
func (s *Service) GetProposal(ctx context.Context, caller Caller, id uuid.UUID) (*ProposalView, error) {
	prop, project, err := s.proposalWithProject(ctx, id, "get proposal")
	if err != nil {
		return nil, err
	}
	if prop.FreelancerID != caller.ID && project.ClientID != caller.ID && !caller.IsAdmin() {
		return nil, apperr.Forbidden("you cannot view this proposal")
	}
	return s.proposalView(ctx, prop, project), nil
}

// UpdateProposal lets the submitting freelancer revise a pending proposal.
func (s *Service) UpdateProposal(ctx context.Context, caller Caller, id uuid.UUID, in ProposalInput) (*ProposalView, error) {
	prop, project, err := s.proposalWithProject(ctx, id, "update proposal")
	if err != nil {
		return nil, err
	}
	if prop.FreelancerID != caller.ID {
		return nil, apperr.Forbidden("only the submitting freelancer can edit this proposal")
	}
	if err := in.validate(s.opts.MilestonePolicy); err != nil {
		return nil, err
	}
	next := prop.Clone()
	in.apply(next)
	updated, err := s.engine.UpdateProposal(ctx, next)
	if err != nil {
		return nil, err
	}
	return s.proposalView(ctx, updated, project), nil
}

// ListProjectProposals returns a project's proposals to its owner, newest first.
func (s *Service) ListProjectProposals(ctx context.Context, caller Caller, projectID uuid.UUID, status string) ([]ProposalView, error) {
	project, err := s.ownProject(ctx, caller, projectID, "list proposals")
	if err != nil {
		return nil, err
	}
	filter, err := statusFilter(status)
	if err != nil {
		return nil, err
	}
	props, err := s.store.Proposals().ListByProject(ctx, projectID, filter)
	if err != nil {
		return nil, fault("list proposals", "proposal", err)
	}

	ids := make([]uuid.UUID, len(props))
	for i, p := range props {
		ids[i] = p.FreelancerID
	}
	users := s.summaries(ctx, ids)
	brief := briefOf(project)
	out := make([]ProposalView, len(props))
	for i := range props {
		out[i] = ProposalView{Proposal: props[i], Project: brief}
		if u, ok := users[props[i].FreelancerID]; ok {
			out[i].Freelancer = &u
		}
	}
	return out, nil
}

// MyProposals lists the caller's own proposals with a brief of each project.
func (s *Service) MyProposals(ctx context.Context, caller Caller, status string) ([]ProposalView, error) {
	if caller.Role != models.RoleFreelancer {
		return nil, apperr.Forbidden("only freelancers have proposals")
	}
	filter, err := statusFilter(status)
	if err != nil {
		return nil, err
	}
	props, err := s.store.Proposals().ListByFreelancer(ctx, caller.ID, filter)
	if err != nil {
		return nil, fault("list my proposals", "proposal", err)
	}

	briefs := map[uuid.UUID]*ProjectBrief{}
	out := make([]ProposalView, len(props))
	for i := range props {
		pid := props[i].ProjectID
		brief, ok := briefs[pid]
		if !ok {
			if project, err := s.store.Projects().Get(ctx, pid); err == nil {
				brief = briefOf(project)
			}
			briefs[pid] = brief
		}
		out[i] = ProposalView{Proposal: props[i], Project: brief}
	}
	return out, nil
}

func (s *Service) FreelancerStats(ctx context.Context, caller Caller) (*FreelancerStats, error) {
	if caller.Role != models.RoleFreelancer {
		return nil, apperr.Forbidden("only freelancers have proposal stats")
	}
	counts, err := s.store.Proposals().CountByFreelancer(ctx, caller.ID)
	if err != nil {
		return nil, fault("freelancer stats", "proposal", err)
	}
	st := &FreelancerStats{
		Pending:   counts[models.ProposalPending],
		Accepted:  counts[models.ProposalAccepted],
		Rejected:  counts[models.ProposalRejected],
		Withdrawn: counts[models.ProposalWithdrawn],
	}
	st.Total = st.Pending + st.Accepted + st.Rejected + st.Withdrawn
	return st, nil
}

// ChangeProposalStatus dispatches a requested target status to accept,
// reject or withdraw.
func (s *Service) ChangeProposalStatus(ctx context.Context, caller Caller, id uuid.UUID, status models.ProposalStatus, note string) (*ProposalView, *ProjectView, error) {
	switch status {
	case models.ProposalAccepted:
		out, err := s.AcceptProposal(ctx, caller, id)
		if err != nil {
			return nil, nil, err
		}
		return &out.Proposal, &out.Project, nil
	case models.ProposalRejected:
		p, err := s.RejectProposal(ctx, caller, id, note)
		return p, nil, err
	case models.ProposalWithdrawn:
		p, err := s.WithdrawProposal(ctx, caller, id)
		return p, nil, err
	default:
		return nil, nil, apperr.Invalid("status", "must be accepted, rejected or withdrawn")
	}
}

func (s *Service) AcceptProposal(ctx context.Context, caller Caller, id uuid.UUID) (*AcceptOutcome, error) {
	_, project, err := s.proposalWithProject(ctx, id, "accept proposal")
	if err != nil {
		return nil, err
	}
	if project.ClientID != caller.ID && !caller.IsAdmin() {
		return nil, apperr.Forbidden("only the project owner can accept proposals")
	}

	res, err := s.engine.Accept(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.Event{
		Type:       notify.ProposalAccepted,
		ProjectID:  res.Project.ID,
		ProposalID: &res.Proposal.ID,
		From:       string(models.ProposalPending),
		To:         string(res.Proposal.Status),
		ActorID:    caller.ID,
		OccurredAt: res.Project.UpdatedAt,
		Recipients: []uuid.UUID{res.Project.ClientID, res.Proposal.FreelancerID},
	})
	for _, rid := range res.Rejected {
		rejected, err := s.store.Proposals().Get(ctx, rid)
		if err != nil {
			continue
		}
		s.publishDecision(ctx, caller, notify.ProposalRejected, rejected, res.Project.ClientID)
	}

	return &AcceptOutcome{
		Proposal: *s.proposalView(ctx, res.Proposal, res.Project),
		Project:  s.decorate(ctx, []models.Project{*res.Project})[0],
	}, nil
}

func (s *Service) RejectProposal(ctx context.Context, caller Caller, id uuid.UUID, note string) (*ProposalView, error) {
	_, project, err := s.proposalWithProject(ctx, id, "reject proposal")
	if err != nil {
		return nil, err
	}
	if project.ClientID != caller.ID && !caller.IsAdmin() {
		return nil, apperr.Forbidden("only the project owner can reject proposals")
	}
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > maxNoteLen {
		return nil, apperr.Invalid("note", "must be at most 1000 characters")
	}

	updated, err := s.engine.Reject(ctx, id, note)
	if err != nil {
		return nil, err
	}
	s.publishDecision(ctx, caller, notify.ProposalRejected, updated, project.ClientID)
	return s.proposalView(ctx, updated, project), nil
}

func (s *Service) WithdrawProposal(ctx context.Context, caller Caller, id uuid.UUID) (*ProposalView, error) {
	prop, project, err := s.proposalWithProject(ctx, id, "withdraw proposal")
	if err != nil {
		return nil, err
	}
	if prop.FreelancerID != caller.ID {
		return nil, apperr.Forbidden("only the submitting freelancer can withdraw this proposal")
	}

	updated, err := s.engine.Withdraw(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishDecision(ctx, caller, notify.ProposalWithdrawn, updated, project.ClientID)
	return s.proposalView(ctx, updated, project), nil
}

func (s *Service) publishDecision(ctx context.Context, caller Caller, typ string, p *models.Proposal, owner uuid.UUID) {
	occurred := p.UpdatedAt
	if p.RespondedAt != nil {
		occurred = *p.RespondedAt
	}
	s.publish(ctx, notify.Event{
		Type:       typ,
		ProjectID:  p.ProjectID,
		ProposalID: &p.ID,
		From:       string(models.ProposalPending),
		To:         string(p.Status),
		ActorID:    caller.ID,
		OccurredAt: occurred,
		Recipients: []uuid.UUID{owner, p.FreelancerID},
	})
}

func (s *Service) proposalView(ctx context.Context, p *models.Proposal, project *models.Project) *ProposalView {
	view := &ProposalView{Proposal: *p, Project: briefOf(project)}
	if u, ok := s.summaries(ctx, []uuid.UUID{p.FreelancerID})[p.FreelancerID]; ok {
		view.Freelancer = &u
	}
	return view
}

func briefOf(p *models.Project) *ProjectBrief {
	if p == nil {
		return nil
	}
	return &ProjectBrief{ID: p.ID, Title: p.Title, Status: p.Status}
}

// statusFilter parses an optional proposal status; empty means any.
func statusFilter(raw string) (*models.ProposalStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	st := models.ProposalStatus(raw)
	if !models.ValidProposalStatus(st) {
		return nil, apperr.Invalid("status", "must be pending, accepted, rejected or withdrawn")
	}
	return &st, nil
}
