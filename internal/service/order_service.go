package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/internal/repository"
	"github.com/ambakhtiar/MediStore-Backend/pkg/apperr"
	"github.com/ambakhtiar/MediStore-Backend/pkg/db"
	"github.com/ambakhtiar/MediStore-Backend/pkg/mylogger"
	outboxDomain "github.com/ambakhtiar/MediStore-Backend/pkg/outbox/domain"
	"github.com/ambakhtiar/MediStore-Backend/pkg/outbox/worker"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const orderEventsTopic = "order_events"

type OrderService interface {
	PlaceOrder(ctx context.Context, userID int64, shipping domain.ShippingDetails) (*domain.Order, error)
	GetOrder(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error)
	TrackOrder(ctx context.Context, actor domain.Actor, orderID int64) (domain.OrderStatus, error)
	ListOrders(ctx context.Context, actor domain.Actor, limit, offset int64) ([]domain.Order, int64, error)
	CancelOwnOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error)
	ChangeStatus(ctx context.Context, actor domain.Actor, orderID int64, target domain.OrderStatus) (*domain.Order, error)
}

// MedicineCacheInvalidator drops cached medicine reads after stock movements
// committed outside the medicine service.
type MedicineCacheInvalidator interface {
	InvalidateMedicine(ctx context.Context, id int64)
}

type orderService struct {
	pool         *pgxpool.Pool
	logger       *zap.Logger
	orderRepo    repository.OrderRepository
	cartRepo     repository.CartRepository
	medicineRepo repository.MedicineRepository
	outboxRepo   worker.OutboxRepository
	cache        MedicineCacheInvalidator
	tracer       trace.Tracer
}

func NewOrderService(
	pool *pgxpool.Pool,
	logger *zap.Logger,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	medicineRepo repository.MedicineRepository,
	outboxRepo worker.OutboxRepository,
	cache MedicineCacheInvalidator,
) OrderService {
	return &orderService{
		pool:         pool,
		logger:       logger,
		orderRepo:    orderRepo,
		cartRepo:     cartRepo,
		medicineRepo: medicineRepo,
		outboxRepo:   outboxRepo,
		cache:        cache,
		tracer:       otel.Tracer("order_service"),
	}
}

// PlaceOrder converts the user's cart into an immutable order in a single
// transaction: snapshot the cart with medicine rows locked, validate
// availability and stock, freeze prices, reserve stock and clear the cart.
// Any failure aborts the whole thing.
func (s *orderService) PlaceOrder(ctx context.Context, userID int64, shipping domain.ShippingDetails) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.PlaceOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	if strings.TrimSpace(shipping.Phone) == "" || strings.TrimSpace(shipping.Address) == "" {
		return nil, apperr.New(apperr.Validation, "shipping phone and address are required")
	}

	var order *domain.Order

	err := db.WithinTx(ctx, s.pool, func(tx pgx.Tx) error {
		lines, err := s.cartRepo.SnapshotForOrder(ctx, tx, userID)
		if err != nil {
			mylogger.Error(
				ctx,
				s.logger,
				"Failed to load cart snapshot",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)

			return err
		}

		if len(lines) == 0 {
			return apperr.New(apperr.Validation, "cart is empty")
		}

		items := make([]domain.OrderItem, 0, len(lines))
		for _, line := range lines {
			if !line.IsActive {
				return apperr.Newf(apperr.NotFound, "medicine %q is unavailable", line.MedicineName)
			}

			if line.Quantity > line.Stock {
				return apperr.Newf(apperr.Conflict, "insufficient stock for %q", line.MedicineName)
			}

			// freeze the current medicine price, not the stale cart snapshot
			items = append(items, domain.OrderItem{
				MedicineID: line.MedicineID,
				Name:       line.MedicineName,
				Price:      line.Price,
				Quantity:   line.Quantity,
			})
		}

		order = &domain.Order{
			UserID:          userID,
			Status:          domain.OrderStatusPlaced,
			Items:           items,
			ShippingName:    shipping.Name,
			ShippingPhone:   shipping.Phone,
			ShippingAddress: shipping.Address,
		}
		order.CalculateTotal()

		if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
			mylogger.Error(
				ctx,
				s.logger,
				"Failed to create order",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)

			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, line := range lines {
			if err := s.medicineRepo.DecreaseStock(ctx, tx, line.MedicineID, line.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return apperr.Newf(apperr.Conflict, "insufficient stock for %q", line.MedicineName)
				}

				return err
			}
		}

		if err := s.cartRepo.ClearItems(ctx, tx, lines[0].CartID); err != nil {
			return err
		}

		event := &domain.OrderPlacedEvent{
			OrderID:  order.ID,
			UserID:   order.UserID,
			TotalSum: order.TotalSum,
			PlacedAt: order.CreatedAt,
		}
		for _, item := range order.Items {
			event.Items = append(event.Items, domain.OrderItemEvent{
				MedicineID: item.MedicineID,
				Quantity:   item.Quantity,
			})
		}

		return s.emitEvent(ctx, tx, "Order", order.ID, "OrderPlaced", event)
	})
	if err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		s.cache.InvalidateMedicine(ctx, item.MedicineID)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.Int64("total_sum", order.TotalSum),
	)

	return order, nil
}

// ChangeStatus is the general transition path for sellers and admins.
// Authorization is checked before the idempotent same-status short-circuit,
// so an out-of-scope seller gets Forbidden even for a no-op.
func (s *orderService) ChangeStatus(ctx context.Context, actor domain.Actor, orderID int64, target domain.OrderStatus) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ChangeStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("target_status", string(target)),
		attribute.String("actor_role", string(actor.Role)),
	)

	var order *domain.Order

	err := db.WithinTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		order, err = s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrOrderNotFound) {
				return apperr.New(apperr.NotFound, "order not found")
			}

			return err
		}

		sellsInOrder := false
		if actor.Role == domain.RoleSeller {
			sellsInOrder, err = s.orderRepo.ContainsSellerItems(ctx, orderID, actor.UserID)
			if err != nil {
				return err
			}
		}

		if !domain.CanActorTransition(actor, order, sellsInOrder) {
			return apperr.New(apperr.Forbidden, "not allowed to change this order's status")
		}

		if order.Status == target {
			return nil
		}

		// explicit guard on top of the transition table: cancellation after
		// shipment is never legal
		if target == domain.OrderStatusCancelled &&
			(order.Status == domain.OrderStatusShipped || order.Status == domain.OrderStatusDelivered) {
			return apperr.Newf(apperr.IllegalTransition, "cannot cancel order in status %s", order.Status)
		}

		if !order.Status.CanTransitionTo(target) {
			return apperr.Newf(apperr.IllegalTransition, "cannot transition from %s to %s", order.Status, target)
		}

		if target == domain.OrderStatusCancelled {
			if err := s.restoreStock(ctx, tx, order); err != nil {
				return err
			}
		}

		if err := s.orderRepo.ChangeOrderStatus(ctx, tx, orderID, target); err != nil {
			mylogger.Error(
				ctx,
				s.logger,
				"Failed to update order status",
				zap.Int64("order_id", orderID),
				zap.Error(err),
			)

			return err
		}

		event := &domain.OrderStatusChangedEvent{
			OrderID:    order.ID,
			UserID:     order.UserID,
			FromStatus: order.Status,
			ToStatus:   target,
			ChangedAt:  time.Now(),
		}
		if err := s.emitEvent(ctx, tx, "Order", order.ID, "OrderStatusChanged", event); err != nil {
			return err
		}

		order.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	if order.Status == domain.OrderStatusCancelled {
		for _, item := range order.Items {
			s.cache.InvalidateMedicine(ctx, item.MedicineID)
		}
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("status", string(order.Status)),
	)

	return order, nil
}

// CancelOwnOrder is the customer self-cancel path: only the order's owner,
// only from PLACED, and the reserved stock is restored in the same
// transaction.
func (s *orderService) CancelOwnOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CancelOwnOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("user_id", userID),
	)

	var order *domain.Order

	err := db.WithinTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		order, err = s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrOrderNotFound) {
				return apperr.New(apperr.NotFound, "order not found")
			}

			return err
		}

		// 404 instead of 403 so strangers cannot learn the order exists
		if order.UserID != userID {
			return apperr.New(apperr.NotFound, "order not found")
		}

		if order.Status != domain.OrderStatusPlaced {
			return apperr.Newf(apperr.Validation, "order in status %s can no longer be cancelled", order.Status)
		}

		if err := s.restoreStock(ctx, tx, order); err != nil {
			return err
		}

		if err := s.orderRepo.ChangeOrderStatus(ctx, tx, orderID, domain.OrderStatusCancelled); err != nil {
			return err
		}

		event := &domain.OrderStatusChangedEvent{
			OrderID:    order.ID,
			UserID:     order.UserID,
			FromStatus: order.Status,
			ToStatus:   domain.OrderStatusCancelled,
			ChangedAt:  time.Now(),
		}
		if err := s.emitEvent(ctx, tx, "Order", order.ID, "OrderStatusChanged", event); err != nil {
			return err
		}

		order.Status = domain.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		s.cache.InvalidateMedicine(ctx, item.MedicineID)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order cancelled by customer",
		zap.Int64("order_id", orderID),
		zap.Int64("user_id", userID),
	)

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("actor_role", string(actor.Role)),
	)

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperr.New(apperr.NotFound, "order not found")
		}

		return nil, err
	}

	visible, err := s.visibleTo(ctx, actor, order)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}

	return order, nil
}

func (s *orderService) TrackOrder(ctx context.Context, actor domain.Actor, orderID int64) (domain.OrderStatus, error) {
	order, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return "", err
	}

	return order.Status, nil
}

func (s *orderService) ListOrders(ctx context.Context, actor domain.Actor, limit, offset int64) ([]domain.Order, int64, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders")
	defer span.End()

	span.SetAttributes(
		attribute.String("actor_role", string(actor.Role)),
		attribute.Int64("limit", limit),
		attribute.Int64("offset", offset),
	)

	switch actor.Role {
	case domain.RoleAdmin:
		return s.orderRepo.ListAll(ctx, limit, offset)
	case domain.RoleSeller:
		return s.orderRepo.ListBySeller(ctx, actor.UserID, limit, offset)
	default:
		return s.orderRepo.ListByUser(ctx, actor.UserID, limit, offset)
	}
}

func (s *orderService) visibleTo(ctx context.Context, actor domain.Actor, order *domain.Order) (bool, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		return true, nil
	case domain.RoleSeller:
		return s.orderRepo.ContainsSellerItems(ctx, order.ID, actor.UserID)
	default:
		return order.UserID == actor.UserID, nil
	}
}

func (s *orderService) restoreStock(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	for _, item := range order.Items {
		if err := s.medicineRepo.IncreaseStock(ctx, tx, item.MedicineID, item.Quantity); err != nil {
			mylogger.Warn(
				ctx,
				s.logger,
				"Failed to restore stock",
				zap.Int64("medicine_id", item.MedicineID),
				zap.Int32("quantity", item.Quantity),
				zap.Error(err),
			)

			return err
		}
	}

	return nil
}

func (s *orderService) emitEvent(ctx context.Context, tx pgx.Tx, aggregateType string, aggregateID int64, eventType string, payload any) error {
	wrapper := map[string]any{
		"event":   eventType,
		"payload": payload,
	}

	wrapperBytes, err := json.Marshal(wrapper)
	if err != nil {
		return fmt.Errorf("failed to marshal event wrapper: %w", err)
	}

	outboxEvent := &outboxDomain.OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   fmt.Sprintf("%d", aggregateID),
		EventType:     eventType,
		Payload:       wrapperBytes,
		Topic:         orderEventsTopic,
	}

	return s.outboxRepo.SaveOutboxEvent(ctx, tx, outboxEvent)
}
