package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/receipt-validator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/receipt-validator/internal/models"
)

// MockService реализует интерфейс get.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Get(ctx context.Context, subscriberUID string) (*models.Entitlement, error) {
	args := m.Called(ctx, subscriberUID)
	if res := args.Get(0); res != nil {
		return res.(*models.Entitlement), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestGetHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		subscriberUID  string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:          "успешное чтение записи",
			subscriberUID: "subscriber-1",
			setupMock: func(m *MockService) {
				entitlement := &models.Entitlement{
					SubscriberUID: "subscriber-1",
					ProductID:     "yearly",
					Platform:      models.PlatformIOS,
					ExpiryTime:    time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
					IsActive:      true,
				}
				m.On("Get", mock.Anything, "subscriber-1").Return(entitlement, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"is_active":true`,
		},
		{
			name:           "подписчик не найден в контексте",
			subscriberUID:  "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:          "записи о подписке нет",
			subscriberUID: "subscriber-2",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, "subscriber-2").Return(nil, models.ErrEntitlementNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"code":"no_entitlement"`,
		},
		{
			name:          "ошибка чтения из хранилища",
			subscriberUID: "subscriber-3",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, "subscriber-3").Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"code":"internal_error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/entitlement", nil)
			if tt.subscriberUID != "" {
				ctx := context.WithValue(req.Context(), middlewarectx.Subscriber, tt.subscriberUID)
				req = req.WithContext(ctx)
			}

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
