package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/services/matching"
)

type FreelancerDashboardHandler struct {
	Svc       *matching.Service
	Proposals *ProposalHandler
	Log       *zap.Logger
}

func NewFreelancerDashboardHandler(svc *matching.Service, proposals *ProposalHandler, log *zap.Logger) *FreelancerDashboardHandler {
	return &FreelancerDashboardHandler{Svc: svc, Proposals: proposals, Log: log}
}

func (h *FreelancerDashboardHandler) Routes(r fiber.Router, authMiddleware ...fiber.Handler) {
	chain := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, authMiddleware...), h)
	}
	g := r.Group("/freelancer")
	g.Get("/dashboard/stats", chain(h.GetDashboardStats)...)
	g.Get("/proposals", chain(h.Proposals.MyProposals)...)
}

// GetDashboardStats returns the caller's proposal counts per status.
func (h *FreelancerDashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	stats, err := h.Svc.FreelancerStats(c.UserContext(), who)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}
