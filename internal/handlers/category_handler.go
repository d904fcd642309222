package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/services/matching"
)

type CategoryHandler struct {
	Svc *matching.Service
	Log *zap.Logger
}

func NewCategoryHandler(svc *matching.Service, log *zap.Logger) *CategoryHandler {
	return &CategoryHandler{Svc: svc, Log: log}
}

func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.Svc.Categories(c.UserContext())
	if err != nil {
		return respondError(c, h.Log, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    categories,
	})
}
