// internal/models/proposal.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalAccepted  ProposalStatus = "accepted"
	ProposalRejected  ProposalStatus = "rejected"
	ProposalWithdrawn ProposalStatus = "withdrawn"
)

func ValidProposalStatus(s ProposalStatus) bool {
	switch s {
	case ProposalPending, ProposalAccepted, ProposalRejected, ProposalWithdrawn:
		return true
	default:
		return false
	}
}

// Terminal: accepted, rejected and withdrawn never change again.
func (s ProposalStatus) Terminal() bool {
	return s != ProposalPending
}

type Milestone struct {
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type Proposal struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID    uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id"`
	FreelancerID uuid.UUID `gorm:"type:uuid;index;not null" json:"freelancer_id"`

	BidAmount   float64                        `gorm:"not null" json:"bid_amount"`
	CoverLetter string                         `gorm:"type:text" json:"cover_letter"`
	Timeline    string                         `gorm:"type:varchar(120)" json:"timeline"`
	Milestones  datatypes.JSONSlice[Milestone] `gorm:"type:jsonb" json:"milestones"`

	Status     ProposalStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ClientNote string         `gorm:"type:text" json:"client_note,omitempty"`

	SubmittedAt time.Time  `gorm:"index" json:"submitted_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (p *Proposal) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

func (p *Proposal) MilestoneTotal() float64 {
	var sum float64
	for _, m := range p.Milestones {
		sum += m.Amount
	}
	return sum
}

func (p *Proposal) Clone() *Proposal {
	cp := *p
	if p.Milestones != nil {
		cp.Milestones = make(datatypes.JSONSlice[Milestone], len(p.Milestones))
		for i, m := range p.Milestones {
			if m.DueDate != nil {
				d := *m.DueDate
				m.DueDate = &d
			}
			cp.Milestones[i] = m
		}
	}
	if p.RespondedAt != nil {
		t := *p.RespondedAt
		cp.RespondedAt = &t
	}
	return &cp
}
