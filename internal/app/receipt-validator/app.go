// Package receiptvalidator собирает все зависимости сервиса валидации чеков:
// хранилище, кеш, брокер событий, адаптеры биллинговых авторитетов и HTTP-сервер.
package receiptvalidator

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/receipt-validator/internal/appstore"
	"github.com/magabrotheeeer/receipt-validator/internal/cache"
	"github.com/magabrotheeeer/receipt-validator/internal/config"
	"github.com/magabrotheeeer/receipt-validator/internal/googleplay"
	jwtlib "github.com/magabrotheeeer/receipt-validator/internal/lib/jwt"
	"github.com/magabrotheeeer/receipt-validator/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/receipt-validator/internal/migrations"
	entitlementservice "github.com/magabrotheeeer/receipt-validator/internal/services/entitlement"
	validationservice "github.com/magabrotheeeer/receipt-validator/internal/services/validation"
	"github.com/magabrotheeeer/receipt-validator/internal/storage/repository"
)

// App держит HTTP-сервер и ресурсы, которые нужно закрыть при остановке.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	amqpConn *amqp.Connection
}

// New собирает приложение: подключается к хранилищу, применяет миграции,
// поднимает кеш и брокер, создает адаптеры авторитетов и регистрирует маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	amqpConn, amqpCh, err := rabbitmq.Connect(cfg.URLRabbitMQ, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		return nil, err
	}
	if err = rabbitmq.DeclareEntitlementExchange(amqpCh, cfg.Exchange); err != nil {
		return nil, err
	}
	publisher := rabbitmq.NewEntitlementPublisher(amqpCh, cfg.Exchange)

	appstoreClient, err := appstore.New(cfg.AppStore)
	if err != nil {
		return nil, err
	}
	googleplayClient, err := googleplay.New(cfg.GooglePlay)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwtlib.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	validationService := validationservice.New(appstoreClient, googleplayClient, db, cacheRedis, publisher, logger)
	entitlementService := entitlementservice.New(db, cacheRedis, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, validationService, entitlementService, jwtMaker, db)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		amqpConn: amqpConn,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if cerr := a.db.DB.Close(); cerr != nil {
			a.logger.Error("failed to close database", slog.Any("err", cerr))
		}
		if cerr := a.amqpConn.Close(); cerr != nil {
			a.logger.Error("failed to close rabbitmq connection", slog.Any("err", cerr))
		}
		return err
	}
}
