package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/domain"
)

// ErrorHandler maps domain errors onto HTTP statuses.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, body := classify(err)

		if code == fiber.StatusInternalServerError {
			log.Error("Internal Server Error", zap.Error(err), zap.String("path", c.Path()))
		} else if code == fiber.StatusForbidden {
			var authz *domain.AuthorizationError
			if errors.As(err, &authz) {
				log.Warn("Action denied",
					zap.String("action", authz.Action),
					zap.String("path", c.Path()),
				)
			}
		}

		return c.Status(code).JSON(body)
	}
}

func classify(err error) (int, fiber.Map) {
	var (
		fiberErr   *fiber.Error
		validation *domain.ValidationError
		stock      *domain.InsufficientStockError
		capacity   *domain.CapacityExceededError
		authz      *domain.AuthorizationError
		configErr  *domain.ConfigurationError
		conflict   *domain.ConflictError
	)

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiber.Map{"error": fiberErr.Message}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, fiber.Map{"error": err.Error()}
	case errors.Is(err, domain.ErrUnauthenticated):
		return fiber.StatusUnauthorized, fiber.Map{"error": err.Error()}
	case errors.As(err, &validation):
		return fiber.StatusUnprocessableEntity, fiber.Map{"error": validation.Error(), "fields": validation.Fields}
	case errors.As(err, &stock):
		return fiber.StatusConflict, fiber.Map{
			"error":     stock.Error(),
			"available": stock.Available,
			"requested": stock.Requested,
		}
	case errors.As(err, &capacity):
		return fiber.StatusConflict, fiber.Map{
			"error":     capacity.Error(),
			"capacity":  capacity.Capacity,
			"current":   capacity.Current,
			"requested": capacity.Requested,
		}
	case errors.As(err, &authz):
		return fiber.StatusForbidden, fiber.Map{"error": authz.Error()}
	case errors.As(err, &configErr):
		return fiber.StatusInternalServerError, fiber.Map{"error": configErr.Error()}
	case errors.As(err, &conflict):
		return fiber.StatusConflict, fiber.Map{"error": conflict.Error()}
	default:
		return fiber.StatusInternalServerError, fiber.Map{"error": "internal server error"}
	}
}
