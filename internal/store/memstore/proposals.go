package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/store"
)

type proposalRepo struct{ v view }

func (r proposalRepo) Create(ctx context.Context, p *models.Proposal) error {
	return r.v.run(ctx, func(d *data) error {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if _, exists := d.proposals[p.ID]; exists {
			return fmt.Errorf("memstore: proposal %s already exists", p.ID)
		}
		if p.Status != models.ProposalWithdrawn {
			if activeProposal(d, p.ProjectID, p.FreelancerID) != nil {
				return store.ErrDuplicate
			}
		}
		d.proposals[p.ID] = p.Clone()
		return nil
	})
}

func (r proposalRepo) Get(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var out *models.Proposal
	err := r.v.run(ctx, func(d *data) error {
		p, ok := d.proposals[id]
		if !ok {
			return store.ErrNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (r proposalRepo) UpdatePending(ctx context.Context, p *models.Proposal) (bool, error) {
	var ok bool
	err := r.v.run(ctx, func(d *data) error {
		cur, found := d.proposals[p.ID]
		if !found {
			return store.ErrNotFound
		}
		if cur.Status != models.ProposalPending {
			return nil
		}
		src := p.Clone()
		cur.BidAmount = src.BidAmount
		cur.CoverLetter = src.CoverLetter
		cur.Timeline = src.Timeline
		cur.Milestones = src.Milestones
		cur.UpdatedAt = src.UpdatedAt
		ok = true
		return nil
	})
	return ok, err
}

func (r proposalRepo) ListByProject(ctx context.Context, projectID uuid.UUID, status *models.ProposalStatus) ([]models.Proposal, error) {
	return r.list(ctx, func(p *models.Proposal) bool {
		return p.ProjectID == projectID && (status == nil || p.Status == *status)
	})
}

func (r proposalRepo) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, status *models.ProposalStatus) ([]models.Proposal, error) {
	return r.list(ctx, func(p *models.Proposal) bool {
		return p.FreelancerID == freelancerID && (status == nil || p.Status == *status)
	})
}

// list returns matching proposals, newest submission first.
func (r proposalRepo) list(ctx context.Context, keep func(p *models.Proposal) bool) ([]models.Proposal, error) {
	var out []models.Proposal
	err := r.v.run(ctx, func(d *data) error {
		for _, p := range d.proposals {
			if keep(p) {
				out = append(out, *p.Clone())
			}
		}
		return nil
	})
	sortNewestFirst(out)
	return out, err
}

func (r proposalRepo) CountByFreelancer(ctx context.Context, freelancerID uuid.UUID) (map[models.ProposalStatus]int64, error) {
	out := map[models.ProposalStatus]int64{}
	err := r.v.run(ctx, func(d *data) error {
		for _, p := range d.proposals {
			if p.FreelancerID == freelancerID {
				out[p.Status]++
			}
		}
		return nil
	})
	return out, err
}

func (r proposalRepo) FindActive(ctx context.Context, projectID, freelancerID uuid.UUID) (*models.Proposal, error) {
	var out *models.Proposal
	err := r.v.run(ctx, func(d *data) error {
		p := activeProposal(d, projectID, freelancerID)
		if p == nil {
			return store.ErrNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (r proposalRepo) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to models.ProposalStatus, note string, at time.Time) (bool, error) {
	var ok bool
	err := r.v.run(ctx, func(d *data) error {
		p, found := d.proposals[id]
		if !found {
			return store.ErrNotFound
		}
		if p.Status != from {
			return nil
		}
		setStatus(p, to, note, at)
		ok = true
		return nil
	})
	return ok, err
}

func (r proposalRepo) RejectPending(ctx context.Context, projectID, except uuid.UUID, note string, at time.Time) ([]uuid.UUID, error) {
	var rejected []models.Proposal
	err := r.v.run(ctx, func(d *data) error {
		for id, p := range d.proposals {
			if p.ProjectID != projectID || id == except || p.Status != models.ProposalPending {
				continue
			}
			setStatus(p, models.ProposalRejected, note, at)
			rejected = append(rejected, *p)
		}
		return nil
	})
	sortNewestFirst(rejected)
	ids := make([]uuid.UUID, 0, len(rejected))
	for _, p := range rejected {
		ids = append(ids, p.ID)
	}
	return ids, err
}

func setStatus(p *models.Proposal, to models.ProposalStatus, note string, at time.Time) {
	p.Status = to
	if note != "" {
		p.ClientNote = note
	}
	t := at
	p.RespondedAt = &t
	p.UpdatedAt = at
}

func activeProposal(d *data, projectID, freelancerID uuid.UUID) *models.Proposal {
	for _, p := range d.proposals {
		if p.ProjectID == projectID && p.FreelancerID == freelancerID && p.Status != models.ProposalWithdrawn {
			return p
		}
	}
	return nil
}

func sortNewestFirst(ps []models.Proposal) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].SubmittedAt.Equal(ps[j].SubmittedAt) {
			return ps[i].SubmittedAt.After(ps[j].SubmittedAt)
		}
		return ps[i].ID.String() < ps[j].ID.String()
	})
}
