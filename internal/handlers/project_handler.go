package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/services/matching"
)

type ProjectHandler struct {
	Svc *matching.Service
	Log *zap.Logger
}

func NewProjectHandler(svc *matching.Service, log *zap.Logger) *ProjectHandler {
	return &ProjectHandler{Svc: svc, Log: log}
}

type statusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// ListProjects serves the public browse and the owner/assignee dashboards.
func (h *ProjectHandler) ListProjects(c *fiber.Ctx) error {
	// repeated keys (skills=a&skills=b) need the raw query, not c.Queries()
	params, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		params = url.Values{}
	}

	page, err := h.Svc.ListProjects(c.UserContext(), params)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"projects":   page.Projects,
		"pagination": page.Pagination,
	})
}

func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	id, err := pathID(c, "project")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var who *matching.Caller
	if cl, ok := middleware.CallerFrom(c); ok {
		who = &cl
	}

	project, err := h.Svc.GetProject(c.UserContext(), who, id, c.IP())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"project": project,
	})
}

func (h *ProjectHandler) CreateProject(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req matching.ProjectInput
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.Log, badBody())
	}

	project, err := h.Svc.CreateProject(c.UserContext(), who, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Project created",
		"project": project,
	})
}

func (h *ProjectHandler) UpdateProject(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "project")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req matching.ProjectInput
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.Log, badBody())
	}

	project, err := h.Svc.UpdateProject(c.UserContext(), who, id, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Project updated",
		"project": project,
	})
}

func (h *ProjectHandler) DeleteProject(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "project")
	if err != nil {
		return respondError(c, h.Log, err)
	}

	if err := h.Svc.DeleteProject(c.UserContext(), who, id); err != nil {
		return writeError(c, h.Log, err, fiber.StatusBadRequest)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Project deleted",
	})
}

// UpdateStatus completes or cancels a project.
func (h *ProjectHandler) UpdateStatus(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "project")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.Log, badBody())
	}

	project, err := h.Svc.SetProjectStatus(c.UserContext(), who, id, models.ProjectStatus(req.Status))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"project": project,
	})
}

// ListProposals returns the proposals on a project to its owner.
func (h *ProjectHandler) ListProposals(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "project")
	if err != nil {
		return respondError(c, h.Log, err)
	}

	proposals, err := h.Svc.ListProjectProposals(c.UserContext(), who, id, c.Query("status"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"proposals": proposals,
	})
}
