package service

import (
	"context"
	"errors"

	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/internal/repository"
	"github.com/ambakhtiar/MediStore-Backend/pkg/apperr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CartService interface {
	View(ctx context.Context, userID int64) (*domain.CartView, error)
	AddItem(ctx context.Context, userID, medicineID int64, quantity int32) (*domain.CartView, error)
	SetItemQuantity(ctx context.Context, userID, medicineID int64, quantity int32) (*domain.CartView, error)
	RemoveItem(ctx context.Context, userID, medicineID int64) (*domain.CartView, error)
}

type cartService struct {
	cartRepo repository.CartRepository
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewCartService(cartRepo repository.CartRepository, logger *zap.Logger) CartService {
	return &cartService{
		cartRepo: cartRepo,
		logger:   logger,
		tracer:   otel.Tracer("cart_service"),
	}
}

func (s *cartService) View(ctx context.Context, userID int64) (*domain.CartView, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.View")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	if _, err := s.cartRepo.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	return s.cartRepo.View(ctx, userID)
}

func (s *cartService) AddItem(ctx context.Context, userID, medicineID int64, quantity int32) (*domain.CartView, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.AddItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("medicine_id", medicineID),
		attribute.Int("quantity", int(quantity)),
	)

	if quantity <= 0 {
		return nil, apperr.New(apperr.Validation, "quantity must be positive")
	}

	if _, err := s.cartRepo.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.cartRepo.AddItem(ctx, userID, medicineID, quantity); err != nil {
		if errors.Is(err, repository.ErrMedicineNotFound) {
			return nil, apperr.New(apperr.NotFound, "medicine not found")
		}

		return nil, err
	}

	return s.cartRepo.View(ctx, userID)
}

func (s *cartService) SetItemQuantity(ctx context.Context, userID, medicineID int64, quantity int32) (*domain.CartView, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.SetItemQuantity")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("medicine_id", medicineID),
		attribute.Int("quantity", int(quantity)),
	)

	if quantity < 0 {
		return nil, apperr.New(apperr.Validation, "quantity cannot be negative")
	}

	if err := s.cartRepo.SetItemQuantity(ctx, userID, medicineID, quantity); err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return nil, apperr.New(apperr.NotFound, "item is not in the cart")
		}

		return nil, err
	}

	return s.cartRepo.View(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, medicineID int64) (*domain.CartView, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.RemoveItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("medicine_id", medicineID),
	)

	if err := s.cartRepo.RemoveItem(ctx, userID, medicineID); err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return nil, apperr.New(apperr.NotFound, "item is not in the cart")
		}

		return nil, err
	}

	return s.cartRepo.View(ctx, userID)
}
