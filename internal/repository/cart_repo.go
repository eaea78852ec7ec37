package repository

import (
	"context"
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

type CartRepository interface {
	GetOrCreate(ctx context.Context, userID int64) (*domain.Cart, error)
	View(ctx context.Context, userID int64) (*domain.CartView, error)
	AddItem(ctx context.Context, userID, medicineID int64, quantity int32) error
	SetItemQuantity(ctx context.Context, userID, medicineID int64, quantity int32) error
	RemoveItem(ctx context.Context, userID, medicineID int64) error
	SnapshotForOrder(ctx context.Context, tx pgx.Tx, userID int64) ([]domain.CartLine, error)
	ClearItems(ctx context.Context, tx pgx.Tx, cartID int64) error
}

type cartRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewCartRepository(pool *pgxpool.Pool, logger *zap.Logger) CartRepository {
	return &cartRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/cart_repo"),
	}
}

func (r *cartRepo) GetOrCreate(ctx context.Context, userID int64) (*domain.Cart, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.GetOrCreate")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	query := `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id;
	`

	var cart domain.Cart
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&cart.ID, &cart.UserID); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error getting or creating cart",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting or creating cart: %w", err)
	}

	return &cart, nil
}

// AddItem inserts a line or bumps its quantity, refreshing the unit_price
// snapshot to the medicine's current price on every mutation. Inactive or
// deleted medicines are not addable.
func (r *cartRepo) AddItem(ctx context.Context, userID, medicineID int64, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.AddItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("medicine_id", medicineID),
		attribute.Int("quantity", int(quantity)),
	)

	cart, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO cart_items (cart_id, medicine_id, quantity, unit_price)
		SELECT $1, m.id, $3, m.price
		FROM medicines m
		WHERE m.id = $2 AND m.is_active AND m.deleted_at IS NULL
		ON CONFLICT (cart_id, medicine_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity,
			unit_price = EXCLUDED.unit_price;
	`

	commandTag, err := r.pool.Exec(ctx, query, cart.ID, medicineID, quantity)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error adding cart item",
			zap.Int64("cart_id", cart.ID),
			zap.Int64("medicine_id", medicineID),
			zap.Error(err),
		)

		return fmt.Errorf("error adding cart item: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrMedicineNotFound
	}

	return nil
}

// SetItemQuantity replaces a line's quantity; zero removes the line.
func (r *cartRepo) SetItemQuantity(ctx context.Context, userID, medicineID int64, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.SetItemQuantity")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("medicine_id", medicineID),
		attribute.Int("quantity", int(quantity)),
	)

	if quantity == 0 {
		return r.RemoveItem(ctx, userID, medicineID)
	}

	query := `
		UPDATE cart_items ci
		SET quantity = $3,
			unit_price = m.price
		FROM carts c, medicines m
		WHERE ci.cart_id = c.id
			AND c.user_id = $1
			AND ci.medicine_id = $2
			AND m.id = ci.medicine_id;
	`

	commandTag, err := r.pool.Exec(ctx, query, userID, medicineID, quantity)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error updating cart item quantity",
			zap.Int64("user_id", userID),
			zap.Int64("medicine_id", medicineID),
			zap.Error(err),
		)

		return fmt.Errorf("error updating cart item quantity: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *cartRepo) RemoveItem(ctx context.Context, userID, medicineID int64) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.RemoveItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("medicine_id", medicineID),
	)

	query := `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.id
			AND c.user_id = $1
			AND ci.medicine_id = $2;
	`

	commandTag, err := r.pool.Exec(ctx, query, userID, medicineID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error removing cart item",
			zap.Int64("user_id", userID),
			zap.Int64("medicine_id", medicineID),
			zap.Error(err),
		)

		return fmt.Errorf("error removing cart item: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *cartRepo) View(ctx context.Context, userID int64) (*domain.CartView, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.View")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	cart, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ci.medicine_id, m.name, ci.quantity, ci.unit_price
		FROM cart_items ci
		JOIN medicines m ON m.id = ci.medicine_id
		WHERE ci.cart_id = $1
		ORDER BY ci.medicine_id;
	`

	rows, err := r.pool.Query(ctx, query, cart.ID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error querying cart items",
			zap.Int64("cart_id", cart.ID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error querying cart items: %w", err)
	}
	defer rows.Close()

	view := &domain.CartView{Cart: *cart}
	for rows.Next() {
		var item domain.CartItemView
		if err := rows.Scan(&item.MedicineID, &item.MedicineName, &item.Quantity, &item.UnitPrice); err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				r.logger,
				"Failed to scan cart item",
				zap.Error(err),
			)

			return nil, fmt.Errorf("error scanning cart item: %w", err)
		}

		item.Subtotal = item.UnitPrice * int64(item.Quantity)
		view.Total += item.Subtotal
		view.Items = append(view.Items, item)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return view, nil
}

// SnapshotForOrder loads the cart lines joined with authoritative medicine
// fields inside the order-creation transaction. The medicine rows are locked
// in id order so concurrent checkouts touching the same medicines cannot
// deadlock, and the stock check stays valid until the decrement commits.
func (r *cartRepo) SnapshotForOrder(ctx context.Context, tx pgx.Tx, userID int64) ([]domain.CartLine, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.SnapshotForOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	query := `
		SELECT ci.cart_id, ci.medicine_id, m.name, ci.quantity, m.price, m.stock,
			(m.is_active AND m.deleted_at IS NULL), m.seller_id
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		JOIN medicines m ON m.id = ci.medicine_id
		WHERE c.user_id = $1
		ORDER BY ci.medicine_id
		FOR UPDATE OF m;
	`

	rows, err := tx.Query(ctx, query, userID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error loading cart snapshot",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error loading cart snapshot: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(
			&line.CartID,
			&line.MedicineID,
			&line.MedicineName,
			&line.Quantity,
			&line.Price,
			&line.Stock,
			&line.IsActive,
			&line.SellerID,
		); err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				r.logger,
				"Failed to scan cart line",
				zap.Error(err),
			)

			return nil, fmt.Errorf("error scanning cart line: %w", err)
		}

		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	span.SetAttributes(
		attribute.Int("line_count", len(lines)),
	)

	return lines, nil
}

func (r *cartRepo) ClearItems(ctx context.Context, tx pgx.Tx, cartID int64) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.ClearItems")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("cart_id", cartID),
	)

	query := `
		DELETE FROM cart_items
		WHERE cart_id = $1;
	`

	if _, err := tx.Exec(ctx, query, cartID); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error clearing cart items",
			zap.Int64("cart_id", cartID),
			zap.Error(err),
		)

		return fmt.Errorf("error clearing cart items: %w", err)
	}

	return nil
}
