package service

import (
	"context"
	"errors"

	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/internal/repository"
	"github.com/ambakhtiar/MediStore-Backend/pkg/apperr"
	"github.com/ambakhtiar/MediStore-Backend/pkg/config"
	"github.com/ambakhtiar/MediStore-Backend/pkg/mylogger"
	"github.com/ambakhtiar/MediStore-Backend/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

type AuthService interface {
	Register(ctx context.Context, name, email, password, role string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	GetMe(ctx context.Context, userID int64) (*domain.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	authCfg  config.Auth
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewAuthService(userRepo repository.UserRepository, authCfg config.Auth, logger *zap.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		authCfg:  authCfg,
		logger:   logger,
		tracer:   otel.Tracer("auth_service"),
	}
}

func (s *authService) Register(ctx context.Context, name, email, password, role string) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	span.SetAttributes(
		attribute.String("email", email),
	)

	parsedRole, ok := domain.ParseRole(role)
	if !ok {
		return nil, apperr.Newf(apperr.Validation, "unknown role %q", role)
	}

	// admins are provisioned out of band, not self-registered
	if parsedRole == domain.RoleAdmin {
		return nil, apperr.New(apperr.Forbidden, "cannot self-register as admin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Error hashing password",
			zap.Error(err),
		)

		return nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         parsedRole,
	}

	if _, err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperr.New(apperr.Conflict, "email already registered")
		}

		return nil, err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"User registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)

	return user, nil
}

func (s *authService) GetMe(ctx context.Context, userID int64) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.GetMe")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}

		return nil, err
	}

	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, apperr.New(apperr.Unauthorized, "invalid email or password")
		}

		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Failed login attempt",
			zap.String("email", email),
		)

		return "", nil, apperr.New(apperr.Unauthorized, "invalid email or password")
	}

	token, err := utils.GenerateToken(user.ID, string(user.Role), s.authCfg.Secret, s.authCfg.AccessTTL)
	if err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Error generating token",
			zap.Error(err),
		)

		return "", nil, err
	}

	return token, user, nil
}
