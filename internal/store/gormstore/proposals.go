package gormstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
)

type proposalRepo struct{ db *gorm.DB }

func (r proposalRepo) Create(ctx context.Context, p *models.Proposal) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r proposalRepo) Get(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var p models.Proposal
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r proposalRepo) UpdatePending(ctx context.Context, p *models.Proposal) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Proposal{}).
		Where("id = ? AND status = ?", p.ID, models.ProposalPending).
		Updates(map[string]any{
			"bid_amount":   p.BidAmount,
			"cover_letter": p.CoverLetter,
			"timeline":     p.Timeline,
			"milestones":   p.Milestones,
			"updated_at":   p.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, exists(db, &models.Proposal{}, p.ID)
	}
	return true, nil
}

func (r proposalRepo) ListByProject(ctx context.Context, projectID uuid.UUID, status *models.ProposalStatus) ([]models.Proposal, error) {
	return r.list(r.db.WithContext(ctx).Where("project_id = ?", projectID), status)
}

func (r proposalRepo) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, status *models.ProposalStatus) ([]models.Proposal, error) {
	return r.list(r.db.WithContext(ctx).Where("freelancer_id = ?", freelancerID), status)
}

func (r proposalRepo) list(q *gorm.DB, status *models.ProposalStatus) ([]models.Proposal, error) {
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var out []models.Proposal
	if err := q.Order("submitted_at DESC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r proposalRepo) CountByFreelancer(ctx context.Context, freelancerID uuid.UUID) (map[models.ProposalStatus]int64, error) {
	var rows []struct {
		Status models.ProposalStatus
		N      int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Select("status, COUNT(*) AS n").
		Where("freelancer_id = ?", freelancerID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[models.ProposalStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

func (r proposalRepo) FindActive(ctx context.Context, projectID, freelancerID uuid.UUID) (*models.Proposal, error) {
	var p models.Proposal
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND freelancer_id = ? AND status <> ?", projectID, freelancerID, models.ProposalWithdrawn).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r proposalRepo) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to models.ProposalStatus, note string, at time.Time) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Proposal{}).
		Where("id = ? AND status = ?", id, from).
		Updates(statusColumns(to, note, at))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, exists(db, &models.Proposal{}, id)
	}
	return true, nil
}

// RejectPending locks the pending siblings first so the returned ids are
// exactly the rows this call rejected.
func (r proposalRepo) RejectPending(ctx context.Context, projectID, except uuid.UUID, note string, at time.Time) ([]uuid.UUID, error) {
	db := r.db.WithContext(ctx)
	var ids []uuid.UUID
	if err := db.Model(&models.Proposal{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("project_id = ? AND id <> ? AND status = ?", projectID, except, models.ProposalPending).
		Order("submitted_at DESC, id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}
	if err := db.Model(&models.Proposal{}).
		Where("id IN ? AND status = ?", ids, models.ProposalPending).
		Updates(statusColumns(models.ProposalRejected, note, at)).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func statusColumns(to models.ProposalStatus, note string, at time.Time) map[string]any {
	cols := map[string]any{
		"status":       to,
		"responded_at": at,
		"updated_at":   at,
	}
	if note != "" {
		cols["client_note"] = note
	}
	return cols
}
