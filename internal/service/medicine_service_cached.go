package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/pkg/mylogger"
	"github.com/ambakhtiar/MediStore-Backend/pkg/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const medicineCacheTTL = 10 * time.Minute

// CachedMedicineService is a MedicineService whose entries can be dropped by
// other services after they move stock behind its back.
type CachedMedicineService interface {
	MedicineService
	MedicineCacheInvalidator
}

// cachedMedicineService decorates MedicineService with a redis read-through
// cache for single-medicine lookups. Redis access goes through a circuit
// breaker so a dead cache degrades to plain database reads instead of
// stalling every request.
type cachedMedicineService struct {
	MedicineService
	redisClient *redis.Client
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.Logger
}

func NewCachedMedicineService(inner MedicineService, redisClient *redis.Client, logger *zap.Logger) CachedMedicineService {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "medicine-cache",
		Timeout: 5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &cachedMedicineService{
		MedicineService: inner,
		redisClient:     redisClient,
		breaker:         breaker,
		logger:          logger,
	}
}

func medicineCacheKey(id int64) string {
	return fmt.Sprintf("medicine:%d", id)
}

func (s *cachedMedicineService) GetByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	key := medicineCacheKey(id)

	cached, err := utils.ExecuteWithBreaker(s.breaker, func() (string, error) {
		return s.redisClient.Get(ctx, key).Result()
	})
	if err == nil {
		var medicine domain.Medicine
		if err := json.Unmarshal([]byte(cached), &medicine); err == nil {
			return &medicine, nil
		}

		mylogger.Warn(
			ctx,
			s.logger,
			"Corrupt medicine cache entry",
			zap.String("key", key),
		)
	}

	medicine, err := s.MedicineService.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(medicine); err == nil {
		_, cacheErr := utils.ExecuteWithBreaker(s.breaker, func() (struct{}, error) {
			return struct{}{}, s.redisClient.Set(ctx, key, payload, medicineCacheTTL).Err()
		})
		if cacheErr != nil {
			mylogger.Warn(
				ctx,
				s.logger,
				"Failed to cache medicine",
				zap.String("key", key),
				zap.Error(cacheErr),
			)
		}
	}

	return medicine, nil
}

func (s *cachedMedicineService) Update(ctx context.Context, actor domain.Actor, id int64, input *domain.UpdateMedicineInput) (*domain.Medicine, error) {
	medicine, err := s.MedicineService.Update(ctx, actor, id, input)
	if err != nil {
		return nil, err
	}

	s.InvalidateMedicine(ctx, id)

	return medicine, nil
}

func (s *cachedMedicineService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if err := s.MedicineService.Delete(ctx, actor, id); err != nil {
		return err
	}

	s.InvalidateMedicine(ctx, id)

	return nil
}

// InvalidateMedicine drops the cached entry. Failures are logged and
// swallowed, the entry expires by TTL anyway.
func (s *cachedMedicineService) InvalidateMedicine(ctx context.Context, id int64) {
	key := medicineCacheKey(id)

	_, err := utils.ExecuteWithBreaker(s.breaker, func() (struct{}, error) {
		return struct{}{}, s.redisClient.Del(ctx, key).Err()
	})
	if err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Failed to invalidate medicine cache",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
