package service

import (
	"context"
	"errors"

	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/internal/repository"
	"github.com/ambakhtiar/MediStore-Backend/pkg/apperr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CategoryService interface {
	Create(ctx context.Context, actor domain.Actor, name string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

type categoryService struct {
	repo   repository.CategoryRepository
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCategoryService(repo repository.CategoryRepository, logger *zap.Logger) CategoryService {
	return &categoryService{
		repo:   repo,
		logger: logger,
		tracer: otel.Tracer("category_service"),
	}
}

func (s *categoryService) Create(ctx context.Context, actor domain.Actor, name string) (*domain.Category, error) {
	ctx, span := s.tracer.Start(ctx, "CategoryService.Create")
	defer span.End()

	if actor.Role != domain.RoleAdmin {
		return nil, apperr.New(apperr.Forbidden, "only admins can create categories")
	}

	category := &domain.Category{Name: name}

	if _, err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrCategoryExists) {
			return nil, apperr.New(apperr.Conflict, "category already exists")
		}

		return nil, err
	}

	return category, nil
}

func (s *categoryService) List(ctx context.Context) ([]domain.Category, error) {
	ctx, span := s.tracer.Start(ctx, "CategoryService.List")
	defer span.End()

	return s.repo.List(ctx)
}
