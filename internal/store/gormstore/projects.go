package gormstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/query"
)

// searchDoc is the text vector the free-text search matches and ranks against.
const searchDoc = `to_tsvector('simple', coalesce(projects.title, '') || ' ' || coalesce(projects.description, '') || ' ' || coalesce(NULLIF(projects.skills, 'null'::jsonb)::text, ''))`

func contentColumns(p *models.Project) map[string]any {
	return map[string]any{
		"title":             p.Title,
		"description":       p.Description,
		"category":          p.Category,
		"skills":            p.Skills,
		"budget_type":       p.Budget.Type,
		"budget_amount":     p.Budget.Amount,
		"budget_rate_min":   p.Budget.RateMin,
		"budget_rate_max":   p.Budget.RateMax,
		"budget_value":      p.BudgetValue,
		"experience_level":  p.ExperienceLevel,
		"project_size":      p.ProjectSize,
		"timeline_duration": p.TimelineDuration,
		"location":          p.Location,
		"is_remote":         p.IsRemote,
		"is_urgent":         p.IsUrgent,
		"is_featured":       p.IsFeatured,
		"updated_at":        p.UpdatedAt,
	}
}

type projectRepo struct{ db *gorm.DB }

func (r projectRepo) Create(ctx context.Context, p *models.Project) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r projectRepo) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r projectRepo) UpdateContent(ctx context.Context, p *models.Project, allowed []models.ProjectStatus) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Project{}).
		Where("id = ? AND status IN ?", p.ID, allowed).
		Updates(contentColumns(p))
	if res.Error != nil {
		return false, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, exists(db, &models.Project{}, p.ID)
	}
	return true, nil
}

func (r projectRepo) DeleteUnused(ctx context.Context, id uuid.UUID) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.
		Where("id = ? AND status = ? AND proposal_count = 0", id, models.ProjectOpen).
		Where("NOT EXISTS (SELECT 1 FROM proposals WHERE proposals.project_id = projects.id)").
		Delete(&models.Project{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, exists(db, &models.Project{}, id)
	}
	return true, nil
}

func (r projectRepo) Find(ctx context.Context, plan query.Plan) ([]models.Project, error) {
	q := applyFilter(r.db.WithContext(ctx).Model(&models.Project{}), plan.Filter)
	q = q.Clauses(orderBy(plan))
	if plan.Limit > 0 {
		q = q.Limit(plan.Limit)
	}
	if plan.Offset > 0 {
		q = q.Offset(plan.Offset)
	}
	var out []models.Project
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r projectRepo) Count(ctx context.Context, f query.Filter) (int64, error) {
	var n int64
	err := applyFilter(r.db.WithContext(ctx).Model(&models.Project{}), f).Count(&n).Error
	return n, err
}

func (r projectRepo) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("status = ? AND category <> ''", models.ProjectOpen).
		Distinct("category").
		Order("category").
		Pluck("category", &out).Error
	return out, err
}

func (r projectRepo) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to models.ProjectStatus, assigned *uuid.UUID, at time.Time) (bool, error) {
	var assignee any
	if assigned != nil {
		assignee = *assigned
	}
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Project{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":                 to,
			"assigned_freelancer_id": assignee,
			"updated_at":             at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, exists(db, &models.Project{}, id)
	}
	return true, nil
}

func (r projectRepo) IncrementProposalCount(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Project{}).
		Where("id = ? AND status = ?", id, models.ProjectOpen).
		Updates(map[string]any{
			"proposal_count": gorm.Expr("proposal_count + 1"),
			"updated_at":     at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, exists(db, &models.Project{}, id)
	}
	return true, nil
}

func (r projectRepo) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Project{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return exists(db, &models.Project{}, id)
	}
	return nil
}

func applyFilter(q *gorm.DB, f query.Filter) *gorm.DB {
	if f.Statuses != nil {
		q = q.Where("projects.status IN ?", f.Statuses)
	}
	if f.Category != nil {
		q = q.Where("projects.category = ?", *f.Category)
	}
	if f.ClientID != nil {
		q = q.Where("projects.client_id = ?", *f.ClientID)
	}
	if f.FreelancerID != nil {
		q = q.Where("projects.assigned_freelancer_id = ?", *f.FreelancerID)
	}
	if f.ExperienceLevel != nil {
		q = q.Where("projects.experience_level = ?", *f.ExperienceLevel)
	}
	if f.ProjectSize != nil {
		q = q.Where("projects.project_size = ?", *f.ProjectSize)
	}
	if f.TimelineDuration != nil {
		q = q.Where("projects.timeline_duration = ?", *f.TimelineDuration)
	}
	if f.Location != "" {
		q = q.Where("projects.location ILIKE ?", contains(f.Location))
	}
	if len(f.Skills) > 0 {
		conds := make([]string, len(f.Skills))
		args := make([]any, len(f.Skills))
		for i, s := range f.Skills {
			conds[i] = "LOWER(s.skill) LIKE ?"
			args[i] = contains(s)
		}
		// rows written before skills were always arrays may hold jsonb null
		q = q.Where("jsonb_typeof(projects.skills) = 'array' AND EXISTS (SELECT 1 FROM jsonb_array_elements_text(projects.skills) AS s(skill) WHERE "+strings.Join(conds, " OR ")+")", args...)
	}
	q = applyBudget(q, f)
	if f.RemoteOnly {
		q = q.Where("projects.is_remote = ?", true)
	}
	if f.UrgentOnly {
		q = q.Where("projects.is_urgent = ?", true)
	}
	if terms := query.Tokenize(f.Search); len(terms) > 0 {
		q = q.Where(searchDoc+" @@ plainto_tsquery('simple', ?)", strings.Join(terms, " "))
	}
	return q
}

func applyBudget(q *gorm.DB, f query.Filter) *gorm.DB {
	if f.BudgetType == nil {
		if f.BudgetMin != nil {
			q = q.Where("projects.budget_value >= ?", *f.BudgetMin)
		}
		if f.BudgetMax != nil {
			q = q.Where("projects.budget_value <= ?", *f.BudgetMax)
		}
		return q
	}
	q = q.Where("projects.budget_type = ?", *f.BudgetType)
	lo, hi := "projects.budget_amount", "projects.budget_amount"
	if *f.BudgetType == models.BudgetHourly {
		// min bounds the floor rate, max bounds the ceiling rate
		lo, hi = "projects.budget_rate_min", "projects.budget_rate_max"
	}
	if f.BudgetMin != nil {
		q = q.Where(lo+" >= ?", *f.BudgetMin)
	}
	if f.BudgetMax != nil {
		q = q.Where(hi+" <= ?", *f.BudgetMax)
	}
	return q
}

// orderBy renders plan.Order() as a single ORDER BY expression.
func orderBy(plan query.Plan) clause.OrderBy {
	var (
		parts []string
		vars  []any
	)
	for _, t := range plan.Order() {
		dir := "ASC"
		if t.Desc {
			dir = "DESC"
		}
		switch t.Field {
		case query.FieldRelevance:
			terms := query.Tokenize(plan.Filter.Search)
			if len(terms) == 0 {
				continue
			}
			parts = append(parts, fmt.Sprintf("ts_rank(%s, plainto_tsquery('simple', ?)) %s", searchDoc, dir))
			vars = append(vars, strings.Join(terms, " "))
		default:
			parts = append(parts, fmt.Sprintf("projects.%s %s", t.Field, dir))
		}
	}
	return clause.OrderBy{Expression: clause.Expr{SQL: strings.Join(parts, ", "), Vars: vars, WithoutParentheses: true}}
}

// contains builds a LIKE pattern matching s anywhere, with wildcards in s escaped.
func contains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
