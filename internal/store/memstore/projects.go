package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/query"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/store"
)

type projectRepo struct{ v view }

func (r projectRepo) Create(ctx context.Context, p *models.Project) error {
	return r.v.run(ctx, func(d *data) error {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if _, exists := d.projects[p.ID]; exists {
			return fmt.Errorf("memstore: project %s already exists", p.ID)
		}
		d.projects[p.ID] = p.Clone()
		return nil
	})
}

func (r projectRepo) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var out *models.Project
	err := r.v.run(ctx, func(d *data) error {
		p, ok := d.projects[id]
		if !ok {
			return store.ErrNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (r projectRepo) UpdateContent(ctx context.Context, p *models.Project, allowed []models.ProjectStatus) (bool, error) {
	var ok bool
	err := r.v.run(ctx, func(d *data) error {
		cur, found := d.projects[p.ID]
		if !found {
			return store.ErrNotFound
		}
		if !slices.Contains(allowed, cur.Status) {
			return nil
		}
		src := p.Clone()
		cur.Title = src.Title
		cur.Description = src.Description
		cur.Category = src.Category
		cur.Skills = src.Skills
		cur.Budget = src.Budget
		cur.BudgetValue = src.BudgetValue
		cur.ExperienceLevel = src.ExperienceLevel
		cur.ProjectSize = src.ProjectSize
		cur.TimelineDuration = src.TimelineDuration
		cur.Location = src.Location
		cur.IsRemote = src.IsRemote
		cur.IsUrgent = src.IsUrgent
		cur.IsFeatured = src.IsFeatured
		cur.UpdatedAt = src.UpdatedAt
		ok = true
		return nil
	})
	return ok, err
}

func (r projectRepo) DeleteUnused(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.v.run(ctx, func(d *data) error {
		p, found := d.projects[id]
		if !found {
			return store.ErrNotFound
		}
		if p.Status != models.ProjectOpen || p.ProposalCount > 0 {
			return nil
		}
		for _, pr := range d.proposals {
			if pr.ProjectID == id {
				return nil
			}
		}
		delete(d.projects, id)
		ok = true
		return nil
	})
	return ok, err
}

func (r projectRepo) Find(ctx context.Context, plan query.Plan) ([]models.Project, error) {
	var out []models.Project
	err := r.v.run(ctx, func(d *data) error {
		terms := query.Tokenize(plan.Filter.Search)
		type row struct {
			p     *models.Project
			score int
		}
		var rows []row
		for _, p := range d.projects {
			score, ok := match(p, plan.Filter, terms)
			if ok {
				rows = append(rows, row{p, score})
			}
		}
		order := plan.Order()
		sort.Slice(rows, func(i, j int) bool {
			return less(rows[i].p, rows[j].p, rows[i].score, rows[j].score, order)
		})

		start := min(plan.Offset, len(rows))
		end := len(rows)
		if plan.Limit > 0 {
			end = min(start+plan.Limit, len(rows))
		}
		out = make([]models.Project, 0, end-start)
		for _, it := range rows[start:end] {
			out = append(out, *it.p.Clone())
		}
		return nil
	})
	return out, err
}

func (r projectRepo) Count(ctx context.Context, f query.Filter) (int64, error) {
	var n int64
	err := r.v.run(ctx, func(d *data) error {
		terms := query.Tokenize(f.Search)
		for _, p := range d.projects {
			if _, ok := match(p, f, terms); ok {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r projectRepo) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := r.v.run(ctx, func(d *data) error {
		seen := map[models.Category]bool{}
		for _, p := range d.projects {
			if p.Status == models.ProjectOpen && p.Category != "" && !seen[p.Category] {
				seen[p.Category] = true
				out = append(out, p.Category)
			}
		}
		slices.Sort(out)
		return nil
	})
	return out, err
}

func (r projectRepo) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to models.ProjectStatus, assigned *uuid.UUID, at time.Time) (bool, error) {
	var ok bool
	err := r.v.run(ctx, func(d *data) error {
		p, found := d.projects[id]
		if !found {
			return store.ErrNotFound
		}
		if p.Status != from {
			return nil
		}
		p.Status = to
		p.AssignedFreelancerID = nil
		if assigned != nil {
			a := *assigned
			p.AssignedFreelancerID = &a
		}
		p.UpdatedAt = at
		ok = true
		return nil
	})
	return ok, err
}

func (r projectRepo) IncrementProposalCount(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	var ok bool
	err := r.v.run(ctx, func(d *data) error {
		p, found := d.projects[id]
		if !found {
			return store.ErrNotFound
		}
		if p.Status != models.ProjectOpen {
			return nil
		}
		p.ProposalCount++
		p.UpdatedAt = at
		ok = true
		return nil
	})
	return ok, err
}

func (r projectRepo) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return r.v.run(ctx, func(d *data) error {
		p, found := d.projects[id]
		if !found {
			return store.ErrNotFound
		}
		p.ViewCount++
		return nil
	})
}

// match evaluates the filter and returns the relevance score for search terms.
func match(p *models.Project, f query.Filter, terms []string) (int, bool) {
	if f.Statuses != nil && !slices.Contains(f.Statuses, p.Status) {
		return 0, false
	}
	if f.Category != nil && p.Category != *f.Category {
		return 0, false
	}
	if f.ClientID != nil && p.ClientID != *f.ClientID {
		return 0, false
	}
	if f.FreelancerID != nil && (p.AssignedFreelancerID == nil || *p.AssignedFreelancerID != *f.FreelancerID) {
		return 0, false
	}
	if f.ExperienceLevel != nil && p.ExperienceLevel != *f.ExperienceLevel {
		return 0, false
	}
	if f.ProjectSize != nil && p.ProjectSize != *f.ProjectSize {
		return 0, false
	}
	if f.TimelineDuration != nil && p.TimelineDuration != *f.TimelineDuration {
		return 0, false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(p.Location), f.Location) {
		return 0, false
	}
	if len(f.Skills) > 0 && !slices.ContainsFunc(f.Skills, p.HasSkill) {
		return 0, false
	}
	if !matchBudget(p, f) {
		return 0, false
	}
	if f.RemoteOnly && !p.IsRemote {
		return 0, false
	}
	if f.UrgentOnly && !p.IsUrgent {
		return 0, false
	}
	if len(terms) == 0 {
		return 0, true
	}
	return relevance(p, terms)
}

func matchBudget(p *models.Project, f query.Filter) bool {
	b := p.Budget
	if f.BudgetType == nil {
		v := p.BudgetValue
		return (f.BudgetMin == nil || v >= *f.BudgetMin) && (f.BudgetMax == nil || v <= *f.BudgetMax)
	}
	if b.Type != *f.BudgetType {
		return false
	}
	switch b.Type {
	case models.BudgetFixed:
		if f.BudgetMin != nil && (b.Amount == nil || *b.Amount < *f.BudgetMin) {
			return false
		}
		if f.BudgetMax != nil && (b.Amount == nil || *b.Amount > *f.BudgetMax) {
			return false
		}
	case models.BudgetHourly:
		if f.BudgetMin != nil && (b.RateMin == nil || *b.RateMin < *f.BudgetMin) {
			return false
		}
		if f.BudgetMax != nil && (b.RateMax == nil || *b.RateMax > *f.BudgetMax) {
			return false
		}
	}
	return true
}

// relevance requires every term to appear as a word of the title, description
// or skills; the score is the number of occurrences.
func relevance(p *models.Project, terms []string) (int, bool) {
	counts := map[string]int{}
	doc := p.Title + " " + p.Description + " " + strings.Join(p.Skills, " ")
	for _, w := range query.Tokenize(doc) {
		counts[w]++
	}
	score := 0
	for _, t := range terms {
		if counts[t] == 0 {
			return 0, false
		}
		score += counts[t]
	}
	return score, true
}

func less(a, b *models.Project, scoreA, scoreB int, order []query.OrderTerm) bool {
	for _, term := range order {
		c := compare(a, b, scoreA, scoreB, term.Field)
		if c == 0 {
			continue
		}
		if term.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compare(a, b *models.Project, scoreA, scoreB int, field query.Field) int {
	switch field {
	case query.FieldRelevance:
		return cmpInt(int64(scoreA), int64(scoreB))
	case query.FieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case query.FieldBudget:
		switch {
		case a.BudgetValue < b.BudgetValue:
			return -1
		case a.BudgetValue > b.BudgetValue:
			return 1
		}
		return 0
	case query.FieldProposalCount:
		return cmpInt(a.ProposalCount, b.ProposalCount)
	case query.FieldUrgent:
		return cmpBool(a.IsUrgent, b.IsUrgent)
	case query.FieldFeatured:
		return cmpBool(a.IsFeatured, b.IsFeatured)
	case query.FieldID:
		return strings.Compare(a.ID.String(), b.ID.String())
	}
	return 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}
