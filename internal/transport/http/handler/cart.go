package handler

import (
	"github.com/ambakhtiar/MediStore-Backend/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
	validate    *validator.Validate
}

func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
		validate:    validator.New(),
	}
}

type addCartItemRequest struct {
	MedicineID int64 `json:"medicine_id" validate:"required,gt=0"`
	Quantity   int32 `json:"quantity" validate:"required,gt=0"`
}

type setCartItemQuantityRequest struct {
	Quantity int32 `json:"quantity" validate:"gte=0"`
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	cart, err := h.cartService.View(c.UserContext(), actor.UserID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "cart", cart)
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	var input addCartItemRequest
	if err := c.BodyParser(&input); err != nil {
		h.logger.Warn(
			"failed to parse body in add cart item",
			zap.Error(err),
		)

		return respond(c, fiber.StatusBadRequest, "error parsing body", nil)
	}

	if err := h.validate.Struct(input); err != nil {
		return respondValidationError(c, err)
	}

	cart, err := h.cartService.AddItem(c.UserContext(), actor.UserID, input.MedicineID, input.Quantity)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "item added to cart", cart)
}

func (h *CartHandler) SetItemQuantity(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	medicineID, err := parseIDParam(c, "medicineId")
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "invalid medicine id", nil)
	}

	var input setCartItemQuantityRequest
	if err := c.BodyParser(&input); err != nil {
		return respond(c, fiber.StatusBadRequest, "error parsing body", nil)
	}

	if err := h.validate.Struct(input); err != nil {
		return respondValidationError(c, err)
	}

	cart, err := h.cartService.SetItemQuantity(c.UserContext(), actor.UserID, medicineID, input.Quantity)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "cart updated", cart)
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	medicineID, err := parseIDParam(c, "medicineId")
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "invalid medicine id", nil)
	}

	cart, err := h.cartService.RemoveItem(c.UserContext(), actor.UserID, medicineID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "item removed from cart", cart)
}
