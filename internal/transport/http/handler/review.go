package handler

import (
	"github.com/ambakhtiar/MediStore-Backend/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ReviewHandler struct {
	reviewService service.ReviewService
	logger        *zap.Logger
	validate      *validator.Validate
}

func NewReviewHandler(reviewService service.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger,
		validate:      validator.New(),
	}
}

type createReviewRequest struct {
	Rating  int32  `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	medicineID, err := parseIDParam(c, "id")
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "invalid medicine id", nil)
	}

	var input createReviewRequest
	if err := c.BodyParser(&input); err != nil {
		return respond(c, fiber.StatusBadRequest, "error parsing body", nil)
	}

	if err := h.validate.Struct(input); err != nil {
		return respondValidationError(c, err)
	}

	review, err := h.reviewService.Create(c.UserContext(), actor.UserID, medicineID, input.Rating, input.Comment)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusCreated, "review created", review)
}

func (h *ReviewHandler) ListByMedicine(c *fiber.Ctx) error {
	medicineID, err := parseIDParam(c, "id")
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "invalid medicine id", nil)
	}

	reviews, err := h.reviewService.ListByMedicine(c.UserContext(), medicineID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "reviews", reviews)
}
