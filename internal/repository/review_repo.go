package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/pkg/mylogger"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) (int64, error)
	ListByMedicine(ctx context.Context, medicineID int64) ([]domain.Review, error)
	UserHasDeliveredMedicine(ctx context.Context, userID, medicineID int64) (bool, error)
}

type reviewRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewReviewRepository(pool *pgxpool.Pool, logger *zap.Logger) ReviewRepository {
	return &reviewRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/review_repo"),
	}
}

func (r *reviewRepo) Create(ctx context.Context, review *domain.Review) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ReviewRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", review.UserID),
		attribute.Int64("medicine_id", review.MedicineID),
	)

	query := `
		INSERT INTO reviews (user_id, medicine_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at;
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		review.UserID,
		review.MedicineID,
		review.Rating,
		review.Comment,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == pgUniqueViolation {
			return 0, ErrDuplicateReview
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error creating review",
			zap.Int64("user_id", review.UserID),
			zap.Int64("medicine_id", review.MedicineID),
			zap.Error(err),
		)

		return 0, fmt.Errorf("error creating review: %w", err)
	}

	return review.ID, nil
}

func (r *reviewRepo) ListByMedicine(ctx context.Context, medicineID int64) ([]domain.Review, error) {
	ctx, span := r.tracer.Start(ctx, "ReviewRepository.ListByMedicine")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("medicine_id", medicineID),
	)

	query := `
		SELECT id, user_id, medicine_id, rating, comment, created_at
		FROM reviews
		WHERE medicine_id = $1
		ORDER BY created_at DESC;
	`

	rows, err := r.pool.Query(ctx, query, medicineID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error listing reviews",
			zap.Int64("medicine_id", medicineID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error listing reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rev domain.Review
		if err := rows.Scan(&rev.ID, &rev.UserID, &rev.MedicineID, &rev.Rating, &rev.Comment, &rev.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error scanning review: %w", err)
		}
		reviews = append(reviews, rev)
	}

	return reviews, rows.Err()
}

// UserHasDeliveredMedicine gates review creation: only buyers with a
// DELIVERED order containing the medicine may review it.
func (r *reviewRepo) UserHasDeliveredMedicine(ctx context.Context, userID, medicineID int64) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "ReviewRepository.UserHasDeliveredMedicine")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("medicine_id", medicineID),
	)

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = $1
				AND oi.medicine_id = $2
				AND o.status = 'DELIVERED'
		);
	`

	var has bool
	if err := r.pool.QueryRow(ctx, query, userID, medicineID).Scan(&has); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error checking delivered order",
			zap.Int64("user_id", userID),
			zap.Int64("medicine_id", medicineID),
			zap.Error(err),
		)

		return false, fmt.Errorf("error checking delivered order: %w", err)
	}

	return has, nil
}
