package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/services/matching"
)

// respondError writes err in the response envelope. Server faults are logged
// and answered with an opaque message.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	return writeError(c, log, err, fiber.StatusConflict)
}

// writeError lets a route pick the status used for conflicts; DELETE answers
// them with 400.
func writeError(c *fiber.Ctx, log *zap.Logger, err error, conflictStatus int) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"message": fe.Message,
		})
	}

	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Internal(c.Route().Path, err)
	}

	switch ae.Kind {
	case apperr.KindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": ae.Message,
		})
	case apperr.KindForbidden:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": ae.Message,
		})
	case apperr.KindValidation:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": ae.Message,
			"errors":  ae.Fields,
		})
	case apperr.KindConflict:
		body := fiber.Map{
			"success":  false,
			"message":  ae.Message,
			"expected": ae.Expected,
			"actual":   ae.Actual,
		}
		if ae.Current != nil {
			body["data"] = ae.Current
		}
		return c.Status(conflictStatus).JSON(body)
	default:
		log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("route", c.Route().Path),
			zap.String("op", ae.Message),
			zap.Error(ae.Cause),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Internal server error",
		})
	}
}

// ErrorHandler renders errors returned by middleware (401/403 from auth, 404
// for unknown routes) in the same envelope.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return respondError(c, log, err)
	}
}

func caller(c *fiber.Ctx) (matching.Caller, error) {
	who, ok := middleware.CallerFrom(c)
	if !ok {
		return matching.Caller{}, fiber.ErrUnauthorized
	}
	return who, nil
}

// pathID parses the :id param; a malformed id is reported as not found.
func pathID(c *fiber.Ctx, entity string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.NotFound(entity)
	}
	return id, nil
}

func badBody() error {
	return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
}
