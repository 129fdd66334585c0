// Package entitlement содержит бизнес-логику чтения записей о подписках с кешированием.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/receipt-validator/internal/lib/sl"
	"github.com/magabrotheeeer/receipt-validator/internal/models"
)

// Время жизни кеша записи о подписке.
const entitlementCacheTTL = time.Hour

// EntitlementRepository определяет методы чтения записей о подписках.
type EntitlementRepository interface {
	GetEntitlement(ctx context.Context, subscriberUID string) (*models.Entitlement, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service реализует чтение записей о подписках, используя кеш или репозиторий.
type Service struct {
	repo  EntitlementRepository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo EntitlementRepository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Get возвращает текущую запись подписчика. Поле IsActive пересчитывается
// от текущего времени: снимок в хранилище мог устареть, например после
// непродлённой подписки без нового события покупки.
func (s *Service) Get(ctx context.Context, subscriberUID string) (*models.Entitlement, error) {
	const op = "services.entitlement.Get"

	var result *models.Entitlement
	cacheKey := fmt.Sprintf("entitlement:%s", subscriberUID)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		s.log.Warn("failed to read entitlement from cache", slog.String("key", cacheKey), sl.Err(err))
		found = false
	}
	if !found {
		result, err = s.repo.GetEntitlement(ctx, subscriberUID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.cache.Set(cacheKey, result, entitlementCacheTTL); err != nil {
			s.log.Warn("failed to cache entitlement", slog.String("key", cacheKey), sl.Err(err))
		}
	}

	result.IsActive = result.ActiveAt(time.Now())
	return result, nil
}
