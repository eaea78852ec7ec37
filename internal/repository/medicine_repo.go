package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type MedicineRepository interface {
	Create(ctx context.Context, medicine *domain.Medicine) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Medicine, error)
	List(ctx context.Context, limit, offset int64, search string, categoryID int64) ([]domain.Medicine, int64, error)
	Update(ctx context.Context, id int64, input *domain.UpdateMedicineInput) error
	DeleteByID(ctx context.Context, id int64) error
	DecreaseStock(ctx context.Context, tx pgx.Tx, id int64, quantity int32) error
	IncreaseStock(ctx context.Context, tx pgx.Tx, id int64, quantity int32) error
}

type medicineRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewMedicineRepository(pool *pgxpool.Pool, logger *zap.Logger) MedicineRepository {
	return &medicineRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/medicine_repo"),
	}
}

// DecreaseStock is the ledger's reserve operation: the conditional UPDATE
// checks and decrements in one statement, so two concurrent buyers of the
// last unit can never both pass.
func (r *medicineRepo) DecreaseStock(ctx context.Context, tx pgx.Tx, id int64, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "MedicineRepository.DecreaseStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.Int("quantity", int(quantity)),
	)

	query := `
		UPDATE medicines
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1
			AND stock >= $2
			AND is_active
			AND deleted_at IS NULL;
	`

	commandTag, err := tx.Exec(ctx, query, id, quantity)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error decreasing stock",
			zap.Int64("id", id),
			zap.Int32("quantity", quantity),
		)

		return fmt.Errorf("error decreasing stock for medicine %d: %w", id, err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}

	return nil
}

// IncreaseStock restores units on cancellation. It deliberately ignores
// is_active and deleted_at: a cancelled order must restock even a medicine
// delisted in the meantime.
func (r *medicineRepo) IncreaseStock(ctx context.Context, tx pgx.Tx, id int64, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "MedicineRepository.IncreaseStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.Int("quantity", int(quantity)),
	)

	query := `
		UPDATE medicines
		SET stock = stock + $1, updated_at = NOW()
		WHERE id = $2
	`
	commandTag, err := tx.Exec(ctx, query, quantity, id)
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(ctx, r.logger, "Failed to update stock", zap.Error(err))

		return err
	}

	if commandTag.RowsAffected() == 0 {
		mylogger.Warn(ctx, r.logger, "Medicine not found", zap.Int64("medicine_id", id))
		return ErrMedicineNotFound
	}

	return nil
}

func (r *medicineRepo) Create(ctx context.Context, medicine *domain.Medicine) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "MedicineRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("name", medicine.Name),
		attribute.Int64("seller_id", medicine.SellerID),
	)

	query := `
		INSERT INTO medicines (seller_id, category_id, name, description, price, stock, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id;
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		medicine.SellerID,
		medicine.CategoryID,
		medicine.Name,
		medicine.Description,
		medicine.Price,
		medicine.Stock,
		medicine.ImageUrl,
		medicine.IsActive,
	).Scan(&medicine.ID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error creating medicine",
			zap.Error(err),
		)

		return 0, fmt.Errorf("error creating medicine: %w", err)
	}

	return medicine.ID, nil
}

func (r *medicineRepo) GetByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	ctx, span := r.tracer.Start(ctx, "MedicineRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT id, seller_id, category_id, name, description, price, stock,
		image_url, is_active, created_at, updated_at
		FROM medicines
		WHERE id = $1 AND deleted_at IS NULL;
	`

	var res domain.Medicine
	if err := r.pool.QueryRow(ctx, query, id).
		Scan(&res.ID, &res.SellerID, &res.CategoryID, &res.Name, &res.Description,
			&res.Price, &res.Stock, &res.ImageUrl, &res.IsActive,
			&res.CreatedAt, &res.UpdatedAt,
		); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMedicineNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error get by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting medicine: %w", err)
	}

	return &res, nil
}

func (r *medicineRepo) List(ctx context.Context, limit, offset int64, search string, categoryID int64) ([]domain.Medicine, int64, error) {
	ctx, span := r.tracer.Start(ctx, "MedicineRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("limit", limit),
		attribute.Int64("offset", offset),
		attribute.String("search", search),
	)

	var medicines []domain.Medicine
	var totalCount int64

	baseQuery := `SELECT id, seller_id, category_id, name, description, price, stock,
		image_url, is_active, created_at, updated_at
		FROM medicines
		WHERE deleted_at IS NULL`
	countQuery := `SELECT COUNT(*) FROM medicines WHERE deleted_at IS NULL`

	var args []interface{}
	argId := 1

	if search != "" {
		filter := fmt.Sprintf(" AND name ILIKE $%d", argId)
		baseQuery += filter
		countQuery += filter

		args = append(args, "%"+search+"%")
		argId++
	}

	if categoryID != 0 {
		filter := fmt.Sprintf(" AND category_id = $%d", argId)
		baseQuery += filter
		countQuery += filter

		args = append(args, categoryID)
		argId++
	}

	countArgs := make([]interface{}, len(args))
	copy(countArgs, args)

	baseQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argId, argId+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, baseQuery, args...)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error getting medicines",
			zap.String("search", search),
			zap.Int64("limit", limit),
			zap.Int64("offset", offset),
			zap.Error(err),
		)

		return nil, 0, fmt.Errorf("error selecting medicines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.Medicine
		err := rows.Scan(
			&m.ID,
			&m.SellerID,
			&m.CategoryID,
			&m.Name,
			&m.Description,
			&m.Price,
			&m.Stock,
			&m.ImageUrl,
			&m.IsActive,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				r.logger,
				"Failed to scan rows",
				zap.Error(err),
			)

			return nil, 0, fmt.Errorf("error scanning rows: %w", err)
		}
		medicines = append(medicines, m)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Rows iteration error",
			zap.Error(err),
		)

		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	err = r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&totalCount)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to count medicines",
			zap.Error(err),
		)

		return nil, 0, fmt.Errorf("failed to count medicines: %w", err)
	}

	return medicines, totalCount, nil
}

func (r *medicineRepo) Update(ctx context.Context, id int64, input *domain.UpdateMedicineInput) error {
	ctx, span := r.tracer.Start(ctx, "MedicineRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `UPDATE medicines SET `
	var args []interface{}
	argId := 1

	var updates []string

	if input.Name != nil {
		updates = append(updates, fmt.Sprintf("name = $%d", argId))
		args = append(args, *input.Name)
		argId++
	}

	if input.Description != nil {
		updates = append(updates, fmt.Sprintf("description = $%d", argId))
		args = append(args, *input.Description)
		argId++
	}

	if input.Price != nil {
		updates = append(updates, fmt.Sprintf("price = $%d", argId))
		args = append(args, *input.Price)
		argId++
	}

	if input.Stock != nil {
		updates = append(updates, fmt.Sprintf("stock = $%d", argId))
		args = append(args, *input.Stock)
		argId++
	}

	if input.ImageUrl != nil {
		updates = append(updates, fmt.Sprintf("image_url = $%d", argId))
		args = append(args, *input.ImageUrl)
		argId++
	}

	if input.CategoryID != nil {
		updates = append(updates, fmt.Sprintf("category_id = $%d", argId))
		args = append(args, *input.CategoryID)
		argId++
	}

	if input.IsActive != nil {
		updates = append(updates, fmt.Sprintf("is_active = $%d", argId))
		args = append(args, *input.IsActive)
		argId++
	}

	if len(updates) == 0 {
		return nil
	}

	updates = append(updates, "updated_at = NOW()")

	query += strings.Join(updates, ", ")
	query += fmt.Sprintf(" WHERE id = $%d AND deleted_at IS NULL", argId)
	args = append(args, id)

	commandTag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update medicine",
			zap.Int64("id", id),
		)

		return fmt.Errorf("error updating medicine: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrMedicineNotFound
	}

	return nil
}

func (r *medicineRepo) DeleteByID(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "MedicineRepository.DeleteByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		UPDATE medicines
		SET deleted_at = NOW(), is_active = FALSE
		WHERE id = $1 AND deleted_at IS NULL
	`

	commandTag, err := r.pool.Exec(ctx, query, id)

	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error deleting medicine by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return fmt.Errorf("error deleting medicine by id: %v", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrMedicineNotFound
	}

	return nil
}
