// Package validation содержит бизнес-логику проверки чеков и записи подписок.
//
// Сервис — единственная точка записи в хранилище подписок: запись выполняется
// только после успешного ответа биллингового авторитета (fail-closed),
// неуспешная валидация хранилище не трогает.
package validation

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

// Authority описывает адаптер биллингового авторитета платформы.
type Authority interface {
	// Validate проверяет чек и возвращает канонические даты покупки и окончания.
	Validate(ctx context.Context, receipt, productID string) (*models.ValidationResult, error)
}

// EntitlementRepository определяет методы для работы с записями о подписках в хранилище.
type EntitlementRepository interface {
	// UpsertEntitlement записывает подписку, возвращает false для отставшей записи.
	UpsertEntitlement(ctx context.Context, e models.Entitlement) (bool, error)
	// GetEntitlement возвращает текущую запись подписчика.
	GetEntitlement(ctx context.Context, subscriberUID string) (*models.Entitlement, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// EventPublisher публикует события об обновлении подписок.
type EventPublisher interface {
	PublishEntitlementUpdated(event models.EntitlementEvent) error
}

// Service реализует проверку чеков через адаптеры авторитетов и запись
// подтверждённых подписок.
type Service struct {
	appstore   Authority
	googleplay Authority
	repo       EntitlementRepository
	cache      Cache
	events     EventPublisher
	log        *slog.Logger
}

// New создает новый Service с адаптерами обеих платформ.
func New(appstore, googleplay Authority, repo EntitlementRepository, cache Cache, events EventPublisher, log *slog.Logger) *Service {
	return &Service{
		appstore:   appstore,
		googleplay: googleplay,
		repo:       repo,
		cache:      cache,
		events:     events,
		log:        log,
	}
}

// Validate проверяет чек у биллингового авторитета платформы и при успехе
// записывает подтверждённую подписку. Возвращает актуальную запись подписчика.
func (s *Service) Validate(ctx context.Context, subscriberUID string, req models.ValidationRequest) (*models.Entitlement, error) {
	const op = "services.validation.Validate"

	platform := models.Platform(req.Platform)
	authority, err := s.authorityFor(platform)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := authority.Validate(ctx, req.Receipt, req.ProductID)
	if err != nil {
		// Хранилище не трогаем: доступ остаётся прежним
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !result.ExpiryTime.After(result.PurchaseTime) {
		return nil, fmt.Errorf("%s: expiry %s is not after purchase %s: %w",
			op, result.ExpiryTime, result.PurchaseTime, models.ErrAuthorityRejected)
	}

	transactionID := result.TransactionID
	if transactionID == "" {
		transactionID = req.TransactionID
	}

	entitlement := models.Entitlement{
		SubscriberUID: subscriberUID,
		ProductID:     result.ProductID,
		Platform:      platform,
		TransactionID: transactionID,
		PurchaseTime:  result.PurchaseTime,
		ExpiryTime:    result.ExpiryTime,
		IsActive:      time.Now().Before(result.ExpiryTime),
		RawReceipt:    req.Receipt,
	}

	applied, err := s.repo.UpsertEntitlement(ctx, entitlement)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		// Отставшая валидация: в хранилище уже более свежая запись
		s.log.Info("stale validation superseded by newer entitlement",
			slog.String("subscriber_uid", subscriberUID),
			slog.String("transaction_id", transactionID))
		current, err := s.repo.GetEntitlement(ctx, subscriberUID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return current, nil
	}

	cacheKey := entitlementCacheKey(subscriberUID)
	if err := s.cache.Set(cacheKey, entitlement, entitlementCacheTTL); err != nil {
		s.log.Warn("failed to cache entitlement", slog.String("key", cacheKey), sl.Err(err))
	}

	event := models.EntitlementEvent{
		SubscriberUID: subscriberUID,
		ProductID:     entitlement.ProductID,
		Platform:      entitlement.Platform,
		TransactionID: entitlement.TransactionID,
		ExpiryTime:    entitlement.ExpiryTime,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.events.PublishEntitlementUpdated(event); err != nil {
		s.log.Warn("failed to publish entitlement event", sl.Err(err))
	}

	s.log.Info("entitlement validated and stored",
		slog.String("subscriber_uid", subscriberUID),
		slog.String("product_id", entitlement.ProductID),
		slog.String("platform", string(platform)),
		slog.Time("expiry_time", entitlement.ExpiryTime))

	return &entitlement, nil
}

func (s *Service) authorityFor(platform models.Platform) (Authority, error) {
	switch platform {
	case models.PlatformIOS:
		return s.appstore, nil
	case models.PlatformAndroid:
		return s.googleplay, nil
	default:
		return nil, fmt.Errorf("unsupported platform %q: %w", platform, models.ErrMalformedReceipt)
	}
}

func entitlementCacheKey(subscriberUID string) string {
	return fmt.Sprintf("entitlement:%s", subscriberUID)
}
