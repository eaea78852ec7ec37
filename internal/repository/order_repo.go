package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error)
	ChangeOrderStatus(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus) error
	ListByUser(ctx context.Context, userID, limit, offset int64) ([]domain.Order, int64, error)
	ListBySeller(ctx context.Context, sellerID, limit, offset int64) ([]domain.Order, int64, error)
	ListAll(ctx context.Context, limit, offset int64) ([]domain.Order, int64, error)
	ContainsSellerItems(ctx context.Context, orderID, sellerID int64) (bool, error)
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/order_repo"),
	}
}

const orderColumns = `id, user_id, status, total_sum, shipping_name, shipping_phone, shipping_address, created_at, updated_at`

func (r *orderRepo) CreateOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.CreateOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", order.UserID),
		attribute.Int("items_count", len(order.Items)),
	)

	queryOrder := `
		INSERT INTO orders (user_id, status, total_sum, shipping_name, shipping_phone, shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	if err := tx.QueryRow(
		ctx,
		queryOrder,
		order.UserID,
		string(order.Status),
		order.TotalSum,
		order.ShippingName,
		order.ShippingPhone,
		order.ShippingAddress,
	).Scan(
		&order.ID,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		span.RecordError(err)

		mylogger.Warn(
			ctx,
			r.logger,
			"Failed to insert order",
			zap.Error(err),
		)

		return err
	}

	queryItem := `
		INSERT INTO order_items (order_id, medicine_id, name, price, quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		if err := tx.QueryRow(
			ctx,
			queryItem,
			order.ID,
			item.MedicineID,
			item.Name,
			item.Price,
			item.Quantity,
		).Scan(&item.ID); err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				r.logger,
				"Failed to insert item",
				zap.Error(err),
			)

			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", id),
	)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1;`

	order, err := r.scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error getting order",
			zap.Int64("order_id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting order: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// GetByIDForUpdate locks the order row for the duration of a status
// transition so concurrent transitions serialize on it.
func (r *orderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByIDForUpdate")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", id),
	)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE;`

	order, err := r.scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error locking order",
			zap.Int64("order_id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error locking order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, medicine_id, name, price, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id;
	`

	rows, err := tx.Query(ctx, itemsQuery, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error querying order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MedicineID, &item.Name, &item.Price, &item.Quantity); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return order, nil
}

func (r *orderRepo) ChangeOrderStatus(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ChangeOrderStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(status)),
	)

	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2;
	`

	commandTag, err := tx.Exec(ctx, query, string(status), orderID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update order",
			zap.Error(err),
		)

		return fmt.Errorf("failed to update order: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		mylogger.Warn(
			ctx,
			r.logger,
			"Order not found",
			zap.Int64("order_id", orderID),
		)

		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID, limit, offset int64) ([]domain.Order, int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListByUser")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3;`
	countQuery := `SELECT COUNT(*) FROM orders WHERE user_id = $1;`

	return r.list(ctx, query, countQuery, []interface{}{userID}, limit, offset)
}

// ListBySeller returns orders containing at least one item sold by the
// seller; the seller still sees the whole order, not only their lines.
func (r *orderRepo) ListBySeller(ctx context.Context, sellerID, limit, offset int64) ([]domain.Order, int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListBySeller")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("seller_id", sellerID),
	)

	query := `SELECT ` + orderColumns + `
		FROM orders o
		WHERE EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN medicines m ON m.id = oi.medicine_id
			WHERE oi.order_id = o.id AND m.seller_id = $1
		)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3;`
	countQuery := `SELECT COUNT(*)
		FROM orders o
		WHERE EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN medicines m ON m.id = oi.medicine_id
			WHERE oi.order_id = o.id AND m.seller_id = $1
		);`

	return r.list(ctx, query, countQuery, []interface{}{sellerID}, limit, offset)
}

func (r *orderRepo) ListAll(ctx context.Context, limit, offset int64) ([]domain.Order, int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListAll")
	defer span.End()

	query := `SELECT ` + orderColumns + `
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2;`
	countQuery := `SELECT COUNT(*) FROM orders;`

	return r.list(ctx, query, countQuery, nil, limit, offset)
}

func (r *orderRepo) ContainsSellerItems(ctx context.Context, orderID, sellerID int64) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ContainsSellerItems")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("seller_id", sellerID),
	)

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN medicines m ON m.id = oi.medicine_id
			WHERE oi.order_id = $1 AND m.seller_id = $2
		);
	`

	var contains bool
	if err := r.pool.QueryRow(ctx, query, orderID, sellerID).Scan(&contains); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error checking seller containment",
			zap.Int64("order_id", orderID),
			zap.Int64("seller_id", sellerID),
			zap.Error(err),
		)

		return false, fmt.Errorf("error checking seller containment: %w", err)
	}

	return contains, nil
}

func (r *orderRepo) scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.TotalSum,
		&o.ShippingName,
		&o.ShippingPhone,
		&o.ShippingAddress,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) list(ctx context.Context, query, countQuery string, args []interface{}, limit, offset int64) ([]domain.Order, int64, error) {
	queryArgs := append(append([]interface{}{}, args...), limit, offset)

	rows, err := r.pool.Query(ctx, query, queryArgs...)
	if err != nil {
		mylogger.Error(
			ctx,
			r.logger,
			"Error listing orders",
			zap.Error(err),
		)

		return nil, 0, fmt.Errorf("error listing orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Status,
			&o.TotalSum,
			&o.ShippingName,
			&o.ShippingPhone,
			&o.ShippingAddress,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			mylogger.Error(
				ctx,
				r.logger,
				"Failed to scan order",
				zap.Error(err),
			)

			return nil, 0, fmt.Errorf("error scanning order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	var totalCount int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		mylogger.Error(
			ctx,
			r.logger,
			"Failed to count orders",
			zap.Error(err),
		)

		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	refs := make([]*domain.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.attachItems(ctx, refs); err != nil {
		return nil, 0, err
	}

	return orders, totalCount, nil
}

func (r *orderRepo) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*domain.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	query := `
		SELECT id, order_id, medicine_id, name, price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id;
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query order_items",
			zap.Error(err),
		)

		return fmt.Errorf("error querying order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.MedicineID,
			&item.Name,
			&item.Price,
			&item.Quantity,
		); err != nil {
			mylogger.Error(
				ctx,
				r.logger,
				"Failed to scan row",
				zap.Error(err),
			)

			return fmt.Errorf("error scanning order item: %w", err)
		}

		if o := byID[item.OrderID]; o != nil {
			o.Items = append(o.Items, item)
		}
	}

	return rows.Err()
}
