// Package receiptvalidator предоставляет маршруты для основного приложения.
package receiptvalidator

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/receipt-validator/internal/http/handlers/entitlement/get"
	"github.com/magabrotheeeer/receipt-validator/internal/http/handlers/health"
	"github.com/magabrotheeeer/receipt-validator/internal/http/handlers/receipt/validate"
	"github.com/magabrotheeeer/receipt-validator/internal/http/middlewarectx"
	jwtlib "github.com/magabrotheeeer/receipt-validator/internal/lib/jwt"
	entitlementservice "github.com/magabrotheeeer/receipt-validator/internal/services/entitlement"
	validationservice "github.com/magabrotheeeer/receipt-validator/internal/services/validation"
	"github.com/magabrotheeeer/receipt-validator/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, validationService *validationservice.Service, entitlementService *entitlementservice.Service, jwtMaker jwtlib.Maker, storage *repository.Storage) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/receipts/validate", validate.New(logger, validationService).ServeHTTP)
			r.Get("/entitlement", get.New(logger, entitlementService).ServeHTTP)
		})
	})

	// Открытые служебные конечные точки
	r.Get("/health", health.New(logger, storage).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
