package matching

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/config"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/notify"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/services/lifecycle"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/store/memstore"
)

type fakeViews struct {
	mu      sync.Mutex
	viewers []string
}

func (f *fakeViews) Record(_ uuid.UUID, viewer string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewers = append(f.viewers, viewer)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []notify.Event
}

func (f *fakeEvents) Publish(_ context.Context, ev notify.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	svc    *Service
	store  *memstore.Store
	views  *fakeViews
	events *fakeEvents

	client, freelancer, other, admin Caller
}

func newFixture(t *testing.T, policy string) *fixture {
	t.Helper()
	s := memstore.New()
	f := &fixture{
		store:      s,
		views:      &fakeViews{},
		events:     &fakeEvents{},
		client:     Caller{ID: uuid.New(), Role: models.RoleClient},
		freelancer: Caller{ID: uuid.New(), Role: models.RoleFreelancer},
		other:      Caller{ID: uuid.New(), Role: models.RoleFreelancer},
		admin:      Caller{ID: uuid.New(), Role: models.RoleAdmin},
	}
	s.AddUser(models.UserSummary{ID: f.client.ID, Name: "Clara Client"})
	s.AddUser(models.UserSummary{ID: f.freelancer.ID, Name: "Fajar", SystemName: "fajar.dev"})
	engine := lifecycle.New(s, nil)
	f.svc = New(s, engine, f.views, f.events, Options{
		ListTimeout:     time.Second,
		DefaultLimit:    10,
		MaxLimit:        50,
		MilestonePolicy: policy,
	}, nil)
	return f
}

func projectInput() ProjectInput {
	return ProjectInput{
		Title:       "Inventory dashboard",
		Description: "Dashboard for stock levels across three warehouses",
		Category:    models.CategoryWebDevelopment,
		Skills:      []string{"Go", "React", " go "},
		Budget:      models.FixedBudget(500),
		IsRemote:    true,
	}
}

func proposalInput(projectID uuid.UUID, bid float64) ProposalInput {
	return ProposalInput{
		ProjectID:   projectID.String(),
		BidAmount:   bid,
		CoverLetter: strings.Repeat("I have shipped inventory tools before. ", 2),
		Timeline:    "3 weeks",
	}
}

func (f *fixture) project(t *testing.T) *ProjectView {
	t.Helper()
	p, err := f.svc.CreateProject(context.Background(), f.client, projectInput())
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func (f *fixture) propose(t *testing.T, who Caller, projectID uuid.UUID, bid float64) *ProposalView {
	t.Helper()
	p, err := f.svc.SubmitProposal(context.Background(), who, proposalInput(projectID, bid))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return p
}

func fields(t *testing.T, err error) apperr.FieldErrors {
	t.Helper()
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindValidation {
		t.Fatalf("err = %v, want validation", err)
	}
	return ae.Fields
}

func TestCreateProject(t *testing.T) {
	f := newFixture(t, config.MilestonesNotExceed)
	ctx := context.Background()

	in := projectInput()
	in.IsFeatured = true
	p, err := f.svc.CreateProject(ctx, f.client, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.IsFeatured {
		t.Fatal("client featured their own project")
	}
	if len(p.Skills) != 2 {
		t.Fatalf("skills = %v, want deduplicated", p.Skills)
	}
	if p.Client == nil || p.Client.Name != "Clara Client" {
		t.Fatalf("client summary = %+v", p.Client)
	}

	if _, err := f.svc.CreateProject(ctx, f.freelancer, projectInput()); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("freelancer create err = %v", err)
	}

	bad := ProjectInput{Title: "Hey", Category: "knitting", Budget: models.Budget{Type: models.BudgetHourly, RateMin: ptr(30), RateMax: ptr(20)}}
	fe := fields(t, mustFail(f.svc.CreateProject(ctx, f.client, bad)))
	for _, k := range []string{"title", "description", "category", "budget.rate_max"} {
		if len(fe[k]) == 0 {
			t.Fatalf("missing field error for %s: %v", k, fe)
		}
	}
}

func TestEmptyListsStayArrays(t *testing.T) {
	f := newFixture(t, config.MilestonesNotExceed)
	ctx := context.Background()

	for _, skills := range [][]string{nil, {}, {"  "}} {
		in := projectInput()
		in.Skills = skills
		p, err := f.svc.CreateProject(ctx, f.client, in)
		if err != nil {
			t.Fatalf("create with skills %q: %v", skills, err)
		}
		if p.Skills == nil {
			t.Fatalf("skills %q stored as nil", skills)
		}
		if b, _ := json.Marshal(p.Skills); string(b) != "[]" {
			t.Fatalf("skills %q encode as %s, want []", skills, b)
		}
	}

	p := f.project(t)
	prop := f.propose(t, f.freelancer, p.ID, 450)
	if b, _ := json.Marshal(prop.Milestones); string(b) != "[]" {
		t.Fatalf("milestones encode as %s, want []", b)
	}
}

func TestUpdateProjectOwnership(t *testing.T) {
	f := newFixture(t, config.MilestonesNotExceed)
	ctx := context.Background()
	p := f.project(t)

	in := projectInput()
	in.Title = "Someone else's edit"
	if _, err := f.svc.UpdateProject(ctx, Caller{ID: uuid.New(), Role: models.RoleClient}, p.ID, in); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("stranger err = %v", err)
	}

	in.IsFeatured = true
	got, err := f.svc.UpdateProject(ctx, f.client, p.ID, in)
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if got.Title != "Someone else's edit" || got.IsFeatured {
		t.Fatalf("owner update = %q featured=%v", got.Title, got.IsFeatured)
	}

	got, err = f.svc.UpdateProject(ctx, f.admin, p.ID, in)
	if err != nil || !got.IsFeatured {
		t.Fatalf("admin feature: %v featured=%v", err, got != nil && got.IsFeatured)
	}
	if got.ClientID != f.client.ID {
		t.Fatal("admin update changed the owner")
	}
}

func TestListProjectsVisibilityAndSummaries(t *testing.T) {
	f := newFixture(t, config.MilestonesNotExceed)
	ctx := context.Background()
	open := f.project(t)
	done := f.project(t)
	if _, err := f.svc.SetProjectStatus(ctx, f.client, done.ID, models.ProjectCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	page, err := f.svc.ListProjects(ctx, url.Values{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Projects) != 1 || page.Projects[0].ID != open.ID || page.Pagination.TotalProjects != 1 {
		t.Fatalf("public list = %d projects, total %d", len(page.Projects), page.Pagination.TotalProjects)
	}
	if page.Projects[0].Client == nil {
		t.Fatal("owner summary missing")
	}

	page, err = f.svc.ListProjects(ctx, url.Values{"client": {f.client.ID.String()}, "limit": {"500"}})
	if err != nil {
		t.Fatalf("client list: %v", err)
	}
	if len(page.Projects) != 2 {
		t.Fatalf("client scope = %d projects, want 2", len(page.Projects))
	}
	if page.Pagination.Limit != 50 {
		t.Fatalf("limit = %d, want server cap 50", page.Pagination.Limit)
	}
}

func TestGetProjectRecordsViews(t *testing.T) {
	f := newFixture(t, config.MilestonesNotExceed)
	ctx := context.Background()
	p := f.project(t)

	if _, err := f.svc.GetProject(ctx, nil, p.ID, "203.0.113.7"); err != nil {
		t.Fatalf("anonymous get: %v", err)
	}
	if _, err := f.svc.GetProject(ctx, &f.freelancer, p.ID, "203.0.113.8"); err != nil {
		t.Fatalf("freelancer get: %v", err)
	}
	if _, err := f.svc.GetProject(ctx, &f.client, p.ID, "203.0.113.9"); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	want := []string{"203.0.113.7", f.freelancer.ID.String()}
	if len(f.views.viewers) != 2 || f.views.viewers[0] != want[0] || f.views.viewers[1] != want[1] {
		t.Fatalf("viewers = %v, want %v", f.views.viewers, want)
	}

	if _, err := f.svc.GetProject(ctx, nil, uuid.New(), ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestSubmitProposalValidation(t *testing.T) {
	f := newFixture(t, config.MilestonesNotExceed)
	ctx := context.Background()
	p := f.project(t)

	in := proposalInput(p.ID, 400)
	in.CoverLetter = "too short"
	in.Milestones = []models.Milestone{{Description: "design", Amount: 300}, {Description: "", Amount: 200}}
	fe := fields(t, mustFail(f.svc.SubmitProposal(ctx, f.freelancer, in)))
	for _, k := range []string{"cover_letter", "milestones[1].description", "milestones"} {
		if len(fe[k]) == 0 {
			t.Fatalf("missing field error for %s: %v", k, fe)
		}
	}

	in = proposalInput(p.ID, 400)
	in.ProjectID = "nope"
	if fe := fields(t, mustFail(f.svc.SubmitProposal(ctx, f.freelancer, in))); len(fe["project_id"]) == 0 {
		t.Fatalf("fields = %v", fe)
	}

	if _, err := f.svc.SubmitProposal(ctx, f.client, proposalInput(p.ID, 400)); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("client submit err = %v", err)
	}
	if _, err := f.svc.SubmitProposal(ctx, f.freelancer, proposalInput(uuid.New(), 400)); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing project err = %v", err)
	}
}

func TestMilestonePolicy(t *testing.T) {
	milestones := []models.Milestone{{Description: "design", Amount: 300}, {Description: "build", Amount: 200}}
	tests := []struct {
		policy string
		ok     bool
	}{
		{config.MilestonesNotExceed, false},
		{config.MilestonesInformational, true},
	}
	for _, tc := range tests {
		t.Run(tc.policy, func(t *testing.T) {
			f := newFixture(t, tc.policy)
			p := f.project(t)
			in := proposalInput(p.ID, 450)
			in.Milestones = milestones
			_, err := f.svc.SubmitProposal(context.Background(), f.freelancer, in)
			if (err == nil) != tc.ok {
				t.Fatalf("err = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestAcceptFlowPublishesEvents(t *testing.T) {
	f := newFixture(t, config.MilestonesNotExceed)
	ctx := context.Background()
	p := f.project(t)
	a := f.propose(t, f.freelancer, p.ID, 450)
	b := f.propose(t, f.other, p.ID, 400)

	if _, err := f.svc.AcceptProposal(ctx, f.other, a.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-owner accept err = %v", err)
	}

	out, err := f.svc.AcceptProposal(ctx, f.client, a.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if out.Project.Status != models.ProjectInProgress || out.Project.AssignedFreelancer == nil || out.Project.AssignedFreelancer.SystemName != "fajar.dev" {
		t.Fatalf("project = %s assignee %+v", out.Project.Status, out.Project.AssignedFreelancer)
	}
	if out.Proposal.Status != models.ProposalAccepted || out.Proposal.Freelancer == nil {
		t.Fatalf("proposal = %+v", out.Proposal)
	}

	want := []string{notify.ProposalSubmitted, notify.ProposalSubmitted, notify.ProposalAccepted, notify.ProposalRejected}
	got := f.events.types()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", got, want)
	}
	last := f.events.events[3]
	if *last.ProposalID != b.ID || last.Recipients[1] != f.other.ID {
		t.Fatalf("auto-reject event = %+v", last)
	}

	_, err = f.svc.WithdrawProposal(ctx, f.other, b.ID)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("withdraw after auto-reject err = %v", err)
	}
}

func TestChangeProposalStatus(t *testing.T) {
	f := newFixture(t, config.MilestonesNotExceed)
	ctx := context.Background()
	p := f.project(t)
	a := f.propose(t, f.freelancer, p.ID, 450)
	b := f.propose(t, f.other, p.ID, 400)

	if _, _, err := f.svc.ChangeProposalStatus(ctx, f.client, a.ID, models.ProposalPending, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("pending target err = %v", err)
	}
	if _, _, err := f.svc.ChangeProposalStatus(ctx, f.freelancer, b.ID, models.ProposalWithdrawn, ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("withdraw someone else's err = %v", err)
	}

	got, project, err := f.svc.ChangeProposalStatus(ctx, f.client, b.ID, models.ProposalRejected, "  over budget ")
	if err != nil || project != nil {
		t.Fatalf("reject: %v project=%v", err, project)
	}
	if got.ClientNote != "over budget" {
		t.Fatalf("note = %q", got.ClientNote)
	}

	got, _, err = f.svc.ChangeProposalStatus(ctx, f.freelancer, a.ID, models.ProposalWithdrawn, "")
	if err != nil || got.Status != models.ProposalWithdrawn {
		t.Fatalf("withdraw: %v %+v", err, got)
	}
}

func TestProposalReadsAndStats(t *testing.T) {
	f := newFixture(t, config.MilestonesNotExceed)
	ctx := context.Background()
	p1 := f.project(t)
	p2 := f.project(t)
	a := f.propose(t, f.freelancer, p1.ID, 450)
	f.propose(t, f.freelancer, p2.ID, 300)
	f.propose(t, f.other, p1.ID, 420)
	if _, err := f.svc.RejectProposal(ctx, f.client, a.ID, ""); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if _, err := f.svc.GetProposal(ctx, f.other, a.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("stranger view err = %v", err)
	}
	if got, err := f.svc.GetProposal(ctx, f.client, a.ID); err != nil || got.Project == nil || got.Project.ID != p1.ID {
		t.Fatalf("owner view: %v %+v", err, got)
	}

	mine, err := f.svc.MyProposals(ctx, f.freelancer, "")
	if err != nil || len(mine) != 2 {
		t.Fatalf("my proposals: %v len=%d", err, len(mine))
	}
	for _, m := range mine {
		if m.Project == nil || m.Project.Title == "" {
			t.Fatalf("brief missing on %+v", m)
		}
	}
	pending, err := f.svc.MyProposals(ctx, f.freelancer, "pending")
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending: %v len=%d", err, len(pending))
	}
	if _, err := f.svc.MyProposals(ctx, f.freelancer, "maybe"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("bad status err = %v", err)
	}

	st, err := f.svc.FreelancerStats(ctx, f.freelancer)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if *st != (FreelancerStats{Total: 2, Pending: 1, Rejected: 1}) {
		t.Fatalf("stats = %+v", st)
	}

	list, err := f.svc.ListProjectProposals(ctx, f.client, p1.ID, "")
	if err != nil || len(list) != 2 {
		t.Fatalf("project proposals: %v len=%d", err, len(list))
	}
	if _, err := f.svc.ListProjectProposals(ctx, f.freelancer, p1.ID, ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("freelancer list err = %v", err)
	}
}

func TestDeleteAndCategories(t *testing.T) {
	f := newFixture(t, config.MilestonesNotExceed)
	ctx := context.Background()
	keep := f.project(t)
	gone := f.project(t)
	f.propose(t, f.freelancer, keep.ID, 450)

	if err := f.svc.DeleteProject(ctx, f.freelancer, gone.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("freelancer delete err = %v", err)
	}
	if err := f.svc.DeleteProject(ctx, f.client, gone.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.DeleteProject(ctx, f.client, keep.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("delete with proposals err = %v", err)
	}

	cats, err := f.svc.Categories(ctx)
	if err != nil || len(cats) != 1 || cats[0] != models.CategoryWebDevelopment {
		t.Fatalf("categories = %v, %v", cats, err)
	}
}

func mustFail[T any](_ T, err error) error { return err }

func ptr(v float64) *float64 { return &v }
