package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/services/matching"
)

type ProposalHandler struct {
	Svc *matching.Service
	Log *zap.Logger
}

func NewProposalHandler(svc *matching.Service, log *zap.Logger) *ProposalHandler {
	return &ProposalHandler{Svc: svc, Log: log}
}

func (h *ProposalHandler) CreateProposal(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req matching.ProposalInput
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.Log, badBody())
	}

	proposal, err := h.Svc.SubmitProposal(c.UserContext(), who, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"message":  "Proposal submitted",
		"proposal": proposal,
	})
}

func (h *ProposalHandler) GetProposal(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "proposal")
	if err != nil {
		return respondError(c, h.Log, err)
	}

	proposal, err := h.Svc.GetProposal(c.UserContext(), who, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"proposal": proposal,
	})
}

// UpdateProposal edits a pending proposal. The project_id of the body is ignored.
func (h *ProposalHandler) UpdateProposal(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "proposal")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req matching.ProposalInput
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.Log, badBody())
	}

	proposal, err := h.Svc.UpdateProposal(c.UserContext(), who, id, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Proposal updated",
		"proposal": proposal,
	})
}

// UpdateStatus accepts, rejects or withdraws a proposal. Accept also returns
// the project it now assigns.
func (h *ProposalHandler) UpdateStatus(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "proposal")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.Log, badBody())
	}

	proposal, project, err := h.Svc.ChangeProposalStatus(c.UserContext(), who, id, models.ProposalStatus(req.Status), req.Note)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	resp := fiber.Map{
		"success":  true,
		"proposal": proposal,
	}
	if project != nil {
		resp["project"] = project
	}
	return c.JSON(resp)
}

// MyProposals lists the calling freelancer's proposals.
func (h *ProposalHandler) MyProposals(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	proposals, err := h.Svc.MyProposals(c.UserContext(), who, c.Query("status"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"proposals": proposals,
	})
}
