package handler

import (
	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/internal/service"
	"github.com/ambakhtiar/MediStore-Backend/pkg/apperr"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
	validate     *validator.Validate
}

func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
		validate:     validator.New(),
	}
}

type placeOrderRequest struct {
	ShippingName    string `json:"shipping_name" validate:"max=100"`
	ShippingPhone   string `json:"shipping_phone" validate:"required,min=6,max=20"`
	ShippingAddress string `json:"shipping_address" validate:"required,min=5,max=500"`
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *OrderHandler) Place(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	var input placeOrderRequest
	if err := c.BodyParser(&input); err != nil {
		h.logger.Warn(
			"failed to parse body in place order",
			zap.Error(err),
		)

		return respond(c, fiber.StatusBadRequest, "error parsing body", nil)
	}

	if err := h.validate.Struct(input); err != nil {
		return respondValidationError(c, err)
	}

	order, err := h.orderService.PlaceOrder(c.UserContext(), actor.UserID, domain.ShippingDetails{
		Name:    input.ShippingName,
		Phone:   input.ShippingPhone,
		Address: input.ShippingAddress,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusCreated, "order placed", order)
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	limit := int64(c.QueryInt("limit", 20))
	offset := int64(c.QueryInt("offset", 0))

	orders, total, err := h.orderService.ListOrders(c.UserContext(), actor, limit, offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "orders", fiber.Map{
		"items": orders,
		"total": total,
	})
}

func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "invalid order id", nil)
	}

	order, err := h.orderService.GetOrder(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "order", order)
}

func (h *OrderHandler) Track(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "invalid order id", nil)
	}

	status, err := h.orderService.TrackOrder(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "order status", fiber.Map{"status": status})
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "invalid order id", nil)
	}

	order, err := h.orderService.CancelOwnOrder(c.UserContext(), actor.UserID, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "order cancelled", order)
}

// ChangeStatus is the seller and admin transition endpoint.
func (h *OrderHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "invalid order id", nil)
	}

	var input changeStatusRequest
	if err := c.BodyParser(&input); err != nil {
		return respond(c, fiber.StatusBadRequest, "error parsing body", nil)
	}

	if err := h.validate.Struct(input); err != nil {
		return respondValidationError(c, err)
	}

	target, ok := domain.ParseOrderStatus(input.Status)
	if !ok {
		return respondError(c, h.logger, apperr.Newf(apperr.Validation, "unknown status %q", input.Status))
	}

	order, err := h.orderService.ChangeStatus(c.UserContext(), actor, id, target)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "order status updated", order)
}
