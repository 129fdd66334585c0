package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ValidateReceipt(t *testing.T) {
	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/receipts/validate", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req validationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "receipt-1", req.Receipt)
		assert.Equal(t, "yearly", req.ProductID)
		assert.Equal(t, "ios", req.Platform)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"data": map[string]any{
				"entitlement": map[string]any{
					"product_id":     "yearly",
					"platform":       "ios",
					"transaction_id": "tx-1",
					"expiry_time":    expiry,
					"is_active":      true,
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", "ios")

	got, err := client.ValidateReceipt(context.Background(), "receipt-1", "yearly", "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "yearly", got.ProductID)
	assert.True(t, got.ExpiryTime.Equal(expiry))
	assert.True(t, got.IsActive)
}

func TestClient_ValidateReceiptErrorCodes(t *testing.T) {
	tests := []struct {
		name       string
		httpStatus int
		code       string
		wantErr    error
	}{
		{name: "нечитаемый чек", httpStatus: http.StatusBadRequest, code: "malformed_receipt", wantErr: ErrMalformedReceipt},
		{name: "чек не содержит продукт", httpStatus: http.StatusConflict, code: "product_mismatch", wantErr: ErrProductMismatch},
		{name: "авторитет отклонил чек", httpStatus: http.StatusUnprocessableEntity, code: "authority_rejected", wantErr: ErrAuthorityRejected},
		{name: "авторитет недоступен", httpStatus: http.StatusServiceUnavailable, code: "authority_unavailable", wantErr: ErrAuthorityUnavailable},
		{name: "внутренняя ошибка сервера", httpStatus: http.StatusInternalServerError, code: "internal_error", wantErr: ErrInternal},
		{name: "неизвестный код", httpStatus: http.StatusInternalServerError, code: "", wantErr: ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.httpStatus)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"status": "Error",
					"error":  "rejected",
					"code":   tt.code,
				})
			}))
			defer server.Close()

			client := NewClient(server.URL, "test-token", "ios")

			_, err := client.ValidateReceipt(context.Background(), "receipt-1", "yearly", "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_FetchEntitlement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/entitlement", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"data": map[string]any{
				"entitlement": map[string]any{
					"product_id": "yearly",
					"is_active":  true,
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", "ios")

	got, err := client.FetchEntitlement(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "yearly", got.ProductID)
}

func TestClient_FetchEntitlementNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "Error",
			"error":  "no entitlement",
			"code":   "no_entitlement",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", "ios")

	_, err := client.FetchEntitlement(context.Background())
	assert.ErrorIs(t, err, ErrNoEntitlement)
}

func TestClient_ServerUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "test-token", "ios")

	_, err := client.ValidateReceipt(context.Background(), "receipt-1", "yearly", "")
	assert.ErrorIs(t, err, ErrAuthorityUnavailable)
}
