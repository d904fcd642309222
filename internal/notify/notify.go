// Package notify fans committed lifecycle events out to the realtime hub,
// a redis channel and an AMQP exchange. Delivery is best-effort: a failing
// sink is logged and never reaches the caller.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ProposalSubmitted    = "proposal.submitted"
	ProposalAccepted     = "proposal.accepted"
	ProposalRejected     = "proposal.rejected"
	ProposalWithdrawn    = "proposal.withdrawn"
	ProjectStatusChanged = "project.status_changed"
)

type Event struct {
	Type       string     `json:"type"`
	ProjectID  uuid.UUID  `json:"project_id"`
	ProposalID *uuid.UUID `json:"proposal_id,omitempty"`
	From       string     `json:"from,omitempty"`
	To         string     `json:"to"`
	ActorID    uuid.UUID  `json:"actor_id"`
	OccurredAt time.Time  `json:"occurred_at"`

	// Recipients are the users the realtime hub delivers to.
	Recipients []uuid.UUID `json:"-"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Fanout publishes to every sink and swallows their errors.
type Fanout struct {
	pubs []Publisher
	log  *zap.Logger
}

func NewFanout(log *zap.Logger, pubs ...Publisher) *Fanout {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fanout{pubs: pubs, log: log}
}

func (f *Fanout) Publish(ctx context.Context, ev Event) error {
	for _, p := range f.pubs {
		if err := p.Publish(ctx, ev); err != nil {
			f.log.Warn("notify: publish failed",
				zap.String("event", ev.Type),
				zap.Stringer("project", ev.ProjectID),
				zap.Error(err))
		}
	}
	return nil
}
