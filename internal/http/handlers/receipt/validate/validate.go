// Package validate реализует HTTP-обработчик проверки чека покупки.
//
// Handler принимает JSON-запрос с чеком, валидирует структуру, извлекает
// идентификатор подписчика из контекста, вызывает бизнес-логику проверки чека
// у биллингового авторитета и возвращает подтверждённую запись о подписке.
//
// Доменные ошибки валидации транслируются в HTTP-статусы: некорректный чек — 400,
// несоответствие продукта — 409, отказ авторитета — 422, недоступность — 503.
package validate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/receipt-validator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/receipt-validator/internal/http/response"
	"github.com/magabrotheeeer/receipt-validator/internal/lib/sl"
	"github.com/magabrotheeeer/receipt-validator/internal/models"
)

// Handler управляет HTTP-запросами на проверку чеков.
//
// Использует логгер для записи операций и ошибок,
// сервис бизнес-логики для проверки чека,
// а также валидатор для проверки структуры входных данных.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики проверки чеков
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики проверки чека.
type Service interface {
	Validate(ctx context.Context, subscriberUID string, req models.ValidationRequest) (*models.Entitlement, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Проверить чек покупки
// @Description Проверяет чек у биллингового авторитета платформы и при успехе записывает подписку. Возвращает актуальную запись подписчика.
// @Tags Receipts
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body models.ValidationRequest true "Чек и ожидаемый продукт"
// @Success 200 {object} map[string]any "Подтверждённая запись о подписке"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или нечитаемый чек"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Чек не содержит запрошенный продукт"
// @Failure 422 {object} response.ErrorResponse "Авторитет отклонил чек"
// @Failure 503 {object} response.ErrorResponse "Авторитет недоступен"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /receipts/validate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.receipt.validate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.ValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	subscriberUID, ok := r.Context().Value(middlewarectx.Subscriber).(string)
	if !ok || subscriberUID == "" {
		log.Error("subscriber uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	entitlement, err := h.service.Validate(r.Context(), subscriberUID, req)
	if err != nil {
		log.Error("failed to validate receipt", sl.Err(err))
		w.WriteHeader(statusForError(err))
		render.JSON(w, r, response.ErrorWithCode(messageForError(err), models.ErrorCode(err)))
		return
	}

	log.Info("receipt validated",
		slog.String("subscriber_uid", subscriberUID),
		slog.String("product_id", entitlement.ProductID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"entitlement": entitlement,
	}))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrMalformedReceipt):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrProductMismatch):
		return http.StatusConflict
	case errors.Is(err, models.ErrAuthorityRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrAuthorityUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageForError(err error) string {
	switch {
	case errors.Is(err, models.ErrMalformedReceipt):
		return "receipt is malformed"
	case errors.Is(err, models.ErrProductMismatch):
		return "receipt does not contain requested product"
	case errors.Is(err, models.ErrAuthorityRejected):
		return "receipt rejected by billing authority"
	case errors.Is(err, models.ErrAuthorityUnavailable):
		return "billing authority unavailable, try again later"
	default:
		return "could not validate receipt"
	}
}
