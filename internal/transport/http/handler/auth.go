package handler

import (
	"github.com/ambakhtiar/MediStore-Backend/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
	validate    *validator.Validate
}

func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
		validate:    validator.New(),
	}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=CUSTOMER SELLER"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input registerRequest
	if err := c.BodyParser(&input); err != nil {
		h.logger.Warn(
			"failed to parse body in register",
			zap.Error(err),
		)

		return respond(c, fiber.StatusBadRequest, "error parsing body", nil)
	}

	if err := h.validate.Struct(input); err != nil {
		return respondValidationError(c, err)
	}

	user, err := h.authService.Register(c.UserContext(), input.Name, input.Email, input.Password, input.Role)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusCreated, "user registered", user)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input loginRequest
	if err := c.BodyParser(&input); err != nil {
		h.logger.Warn(
			"failed to parse body in login",
			zap.Error(err),
		)

		return respond(c, fiber.StatusBadRequest, "error parsing body", nil)
	}

	if err := h.validate.Struct(input); err != nil {
		return respondValidationError(c, err)
	}

	token, user, err := h.authService.Login(c.UserContext(), input.Email, input.Password)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "login successful", fiber.Map{
		"token": token,
		"user":  user,
	})
}

func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	user, err := h.authService.GetMe(c.UserContext(), actor.UserID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "me", user)
}
