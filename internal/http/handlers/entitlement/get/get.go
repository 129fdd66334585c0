// Package get реализует HTTP-обработчик чтения текущей записи о подписке.
//
// Handler извлекает идентификатор подписчика из контекста, вызывает бизнес-логику
// чтения записи и возвращает её в JSON-формате. Отсутствие записи — это
// обычный ответ 404 с кодом no_entitlement, а не ошибка сервера.
package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/receipt-validator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/receipt-validator/internal/http/response"
	"github.com/magabrotheeeer/receipt-validator/internal/lib/sl"
	"github.com/magabrotheeeer/receipt-validator/internal/models"
)

// Handler обрабатывает запросы на чтение записи о подписке текущего подписчика.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики чтения записи
}

// Service описывает интерфейс бизнес-логики чтения записи о подписке.
type Service interface {
	Get(ctx context.Context, subscriberUID string) (*models.Entitlement, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить текущую запись о подписке
// @Description Возвращает запись о подписке текущего подписчика с пересчитанным признаком активности.
// @Tags Entitlements
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} map[string]any "Запись о подписке"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Записи о подписке нет"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /entitlement [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.get"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	subscriberUID, ok := r.Context().Value(middlewarectx.Subscriber).(string)
	if !ok || subscriberUID == "" {
		log.Error("subscriber uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	entitlement, err := h.service.Get(r.Context(), subscriberUID)
	if err != nil {
		if errors.Is(err, models.ErrEntitlementNotFound) {
			log.Info("no entitlement for subscriber", slog.String("subscriber_uid", subscriberUID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.ErrorWithCode("no entitlement", models.CodeNoEntitlement))
			return
		}
		log.Error("failed to read entitlement", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode("could not read entitlement", models.CodeInternalError))
		return
	}

	log.Info("success to read entitlement", slog.String("subscriber_uid", subscriberUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"entitlement": entitlement,
	}))
}
