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

type MedicineService interface {
	Create(ctx context.Context, actor domain.Actor, medicine *domain.Medicine) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Medicine, error)
	List(ctx context.Context, limit, offset int64, search string, categoryID int64) ([]domain.Medicine, int64, error)
	Update(ctx context.Context, actor domain.Actor, id int64, input *domain.UpdateMedicineInput) (*domain.Medicine, error)
	Delete(ctx context.Context, actor domain.Actor, id int64) error
}

type medicineService struct {
	repo   repository.MedicineRepository
	logger *zap.Logger
	tracer trace.Tracer
}

func NewMedicineService(repo repository.MedicineRepository, logger *zap.Logger) MedicineService {
	return &medicineService{
		repo:   repo,
		logger: logger,
		tracer: otel.Tracer("medicine_service"),
	}
}

func (s *medicineService) Create(ctx context.Context, actor domain.Actor, medicine *domain.Medicine) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "MedicineService.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("name", medicine.Name),
	)

	if actor.Role != domain.RoleSeller && actor.Role != domain.RoleAdmin {
		return 0, apperr.New(apperr.Forbidden, "only sellers can list medicines")
	}

	medicine.SellerID = actor.UserID
	medicine.IsActive = true

	id, err := s.repo.Create(ctx, medicine)
	if err != nil {
		return 0, err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Medicine created",
		zap.Int64("id", id),
		zap.Int64("seller_id", actor.UserID),
	)

	return id, nil
}

func (s *medicineService) GetByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	ctx, span := s.tracer.Start(ctx, "MedicineService.GetByID")
	defer span.End()

	medicine, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMedicineNotFound) {
			return nil, apperr.New(apperr.NotFound, "medicine not found")
		}

		return nil, err
	}

	return medicine, nil
}

func (s *medicineService) List(ctx context.Context, limit, offset int64, search string, categoryID int64) ([]domain.Medicine, int64, error) {
	ctx, span := s.tracer.Start(ctx, "MedicineService.List")
	defer span.End()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(ctx, limit, offset, search, categoryID)
}

func (s *medicineService) Update(ctx context.Context, actor domain.Actor, id int64, input *domain.UpdateMedicineInput) (*domain.Medicine, error) {
	ctx, span := s.tracer.Start(ctx, "MedicineService.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	if err := s.checkOwnership(ctx, actor, id); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, input); err != nil {
		if errors.Is(err, repository.ErrMedicineNotFound) {
			return nil, apperr.New(apperr.NotFound, "medicine not found")
		}

		return nil, err
	}

	return s.GetByID(ctx, id)
}

func (s *medicineService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	ctx, span := s.tracer.Start(ctx, "MedicineService.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	if err := s.checkOwnership(ctx, actor, id); err != nil {
		return err
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrMedicineNotFound) {
			return apperr.New(apperr.NotFound, "medicine not found")
		}

		return err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Medicine deleted",
		zap.Int64("id", id),
	)

	return nil
}

func (s *medicineService) checkOwnership(ctx context.Context, actor domain.Actor, id int64) error {
	if actor.Role == domain.RoleAdmin {
		return nil
	}

	if actor.Role != domain.RoleSeller {
		return apperr.New(apperr.Forbidden, "only sellers can manage medicines")
	}

	medicine, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMedicineNotFound) {
			return apperr.New(apperr.NotFound, "medicine not found")
		}

		return err
	}

	if medicine.SellerID != actor.UserID {
		return apperr.New(apperr.Forbidden, "medicine belongs to another seller")
	}

	return nil
}
