package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/realtime"
)

// HubPublisher pushes the event to each recipient's open websocket connections.
type HubPublisher struct {
	Hub *realtime.Hub
}

func (p HubPublisher) Publish(_ context.Context, ev Event) error {
	seen := make(map[uuid.UUID]bool, len(ev.Recipients))
	for _, id := range ev.Recipients {
		if seen[id] {
			continue
		}
		seen[id] = true
		p.Hub.SendToUser(id, map[string]any{
			"type": ev.Type,
			"data": ev,
		})
	}
	return nil
}
