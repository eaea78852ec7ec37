package handler

import (
	"errors"

	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/internal/transport/http/middleware"
	"github.com/ambakhtiar/MediStore-Backend/pkg/apperr"
	"github.com/ambakhtiar/MediStore-Backend/pkg/mylogger"
	"github.com/ambakhtiar/MediStore-Backend/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// every response carries the same envelope
type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(envelope{Message: message, Data: data})
}

// respondError maps an error to its HTTP status through the tagged error
// kinds. Unknown errors get logged and come out as an opaque 500.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	kind := apperr.KindOf(err)

	if kind == apperr.Internal {
		mylogger.Error(
			c.UserContext(),
			logger,
			"Unhandled error",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return respond(c, kind.HTTPStatus(), apperr.MessageOf(err), nil)
}

func respondValidationError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return respond(c, fiber.StatusBadRequest, "validation failed", utils.FormatValidationError(err))
	}

	return respond(c, fiber.StatusBadRequest, "validation failed", nil)
}

func actorOrUnauthorized(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return domain.Actor{}, respond(c, fiber.StatusUnauthorized, "Unauthorized: missing user", nil)
	}

	return actor, nil
}
