package handler

import (
	"github.com/ambakhtiar/MediStore-Backend/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	categoryService service.CategoryService
	logger          *zap.Logger
	validate        *validator.Validate
}

func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
		validate:        validator.New(),
	}
}

type createCategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	var input createCategoryRequest
	if err := c.BodyParser(&input); err != nil {
		return respond(c, fiber.StatusBadRequest, "error parsing body", nil)
	}

	if err := h.validate.Struct(input); err != nil {
		return respondValidationError(c, err)
	}

	category, err := h.categoryService.Create(c.UserContext(), actor, input.Name)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusCreated, "category created", category)
}

func (h *CategoryHandler) List(c *fiber.Ctx) error {
	categories, err := h.categoryService.List(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "categories", categories)
}
