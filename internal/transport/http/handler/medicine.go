package handler

import (
	"strconv"

	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type MedicineHandler struct {
	medicineService service.MedicineService
	logger          *zap.Logger
	validate        *validator.Validate
}

func NewMedicineHandler(medicineService service.MedicineService, logger *zap.Logger) *MedicineHandler {
	return &MedicineHandler{
		medicineService: medicineService,
		logger:          logger,
		validate:        validator.New(),
	}
}

type createMedicineRequest struct {
	CategoryID  int64  `json:"category_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Price       int64  `json:"price" validate:"gte=0"`
	Stock       int32  `json:"stock" validate:"gte=0"`
	ImageUrl    string `json:"image_url" validate:"max=500"`
}

type updateMedicineRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Price       *int64  `json:"price" validate:"omitempty,gte=0"`
	Stock       *int32  `json:"stock" validate:"omitempty,gte=0"`
	ImageUrl    *string `json:"image_url" validate:"omitempty,max=500"`
	CategoryID  *int64  `json:"category_id" validate:"omitempty,gt=0"`
	IsActive    *bool   `json:"is_active"`
}

func (h *MedicineHandler) Create(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	var input createMedicineRequest
	if err := c.BodyParser(&input); err != nil {
		h.logger.Warn(
			"failed to parse body in create medicine",
			zap.Error(err),
		)

		return respond(c, fiber.StatusBadRequest, "error parsing body", nil)
	}

	if err := h.validate.Struct(input); err != nil {
		return respondValidationError(c, err)
	}

	medicine := &domain.Medicine{
		CategoryID:  input.CategoryID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		ImageUrl:    input.ImageUrl,
	}

	id, err := h.medicineService.Create(c.UserContext(), actor, medicine)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusCreated, "medicine created", fiber.Map{"id": id})
}

func (h *MedicineHandler) GetByID(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "invalid medicine id", nil)
	}

	medicine, err := h.medicineService.GetByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "medicine", medicine)
}

func (h *MedicineHandler) List(c *fiber.Ctx) error {
	limit := int64(c.QueryInt("limit", 20))
	offset := int64(c.QueryInt("offset", 0))
	search := c.Query("search")
	categoryID := int64(c.QueryInt("category_id", 0))

	medicines, total, err := h.medicineService.List(c.UserContext(), limit, offset, search, categoryID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "medicines", fiber.Map{
		"items": medicines,
		"total": total,
	})
}

func (h *MedicineHandler) Update(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "invalid medicine id", nil)
	}

	var input updateMedicineRequest
	if err := c.BodyParser(&input); err != nil {
		h.logger.Warn(
			"failed to parse body in update medicine",
			zap.Error(err),
		)

		return respond(c, fiber.StatusBadRequest, "error parsing body", nil)
	}

	if err := h.validate.Struct(input); err != nil {
		return respondValidationError(c, err)
	}

	medicine, err := h.medicineService.Update(c.UserContext(), actor, id, &domain.UpdateMedicineInput{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		ImageUrl:    input.ImageUrl,
		CategoryID:  input.CategoryID,
		IsActive:    input.IsActive,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "medicine updated", medicine)
}

func (h *MedicineHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorOrUnauthorized(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "invalid medicine id", nil)
	}

	if err := h.medicineService.Delete(c.UserContext(), actor, id); err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, fiber.StatusOK, "medicine deleted", nil)
}

func parseIDParam(c *fiber.Ctx, name string) (int64, error) {
	return strconv.ParseInt(c.Params(name), 10, 64)
}
