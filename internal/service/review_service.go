package service

import (
	"context"
	"errors"

	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/internal/repository"
	"github.com/ambakhtiar/MediStore-Backend/pkg/apperr"
	"github.com/ambakhtiar/MediStore-Backend/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ReviewService interface {
	Create(ctx context.Context, userID, medicineID int64, rating int32, comment string) (*domain.Review, error)
	ListByMedicine(ctx context.Context, medicineID int64) ([]domain.Review, error)
}

type reviewService struct {
	reviewRepo   repository.ReviewRepository
	medicineRepo repository.MedicineRepository
	logger       *zap.Logger
	tracer       trace.Tracer
}

func NewReviewService(reviewRepo repository.ReviewRepository, medicineRepo repository.MedicineRepository, logger *zap.Logger) ReviewService {
	return &reviewService{
		reviewRepo:   reviewRepo,
		medicineRepo: medicineRepo,
		logger:       logger,
		tracer:       otel.Tracer("review_service"),
	}
}

// Create accepts a review only from buyers with a delivered order containing
// the medicine, one review per user and medicine.
func (s *reviewService) Create(ctx context.Context, userID, medicineID int64, rating int32, comment string) (*domain.Review, error) {
	ctx, span := s.tracer.Start(ctx, "ReviewService.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("medicine_id", medicineID),
	)

	if rating < 1 || rating > 5 {
		return nil, apperr.New(apperr.Validation, "rating must be between 1 and 5")
	}

	if _, err := s.medicineRepo.GetByID(ctx, medicineID); err != nil {
		if errors.Is(err, repository.ErrMedicineNotFound) {
			return nil, apperr.New(apperr.NotFound, "medicine not found")
		}

		return nil, err
	}

	delivered, err := s.reviewRepo.UserHasDeliveredMedicine(ctx, userID, medicineID)
	if err != nil {
		return nil, err
	}
	if !delivered {
		return nil, apperr.New(apperr.Forbidden, "only buyers with a delivered order can review")
	}

	review := &domain.Review{
		UserID:     userID,
		MedicineID: medicineID,
		Rating:     rating,
		Comment:    comment,
	}

	if _, err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return nil, apperr.New(apperr.Conflict, "medicine already reviewed")
		}

		return nil, err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Review created",
		zap.Int64("review_id", review.ID),
		zap.Int64("medicine_id", medicineID),
	)

	return review, nil
}

func (s *reviewService) ListByMedicine(ctx context.Context, medicineID int64) ([]domain.Review, error) {
	ctx, span := s.tracer.Start(ctx, "ReviewService.ListByMedicine")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("medicine_id", medicineID),
	)

	return s.reviewRepo.ListByMedicine(ctx, medicineID)
}
