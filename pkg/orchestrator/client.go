package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Entitlement — подтверждённая сервером запись о подписке, как её видит клиент.
type Entitlement struct {
	ProductID     string    `json:"product_id"`
	Platform      string    `json:"platform"`
	TransactionID string    `json:"transaction_id"`
	PurchaseTime  time.Time `json:"purchase_time"`
	ExpiryTime    time.Time `json:"expiry_time"`
	IsActive      bool      `json:"is_active"`
}

// Client — HTTP-клиент сервиса валидации чеков.
type Client struct {
	baseURL    string
	token      string
	platform   string
	httpClient *http.Client
}

// NewClient создаёт новый клиент сервиса валидации.
// Токен — JWT подписчика, платформа — "ios" или "android".
func NewClient(baseURL, token, platform string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		platform:   platform,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type validationRequest struct {
	Receipt       string `json:"receipt"`
	ProductID     string `json:"product_id"`
	Platform      string `json:"platform"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type entitlementData struct {
	Entitlement *Entitlement `json:"entitlement"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	url := c.baseURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// ValidateReceipt отправляет чек на проверку и возвращает подтверждённую
// запись о подписке. Ошибки сервера транслируются в клиентскую таксономию.
func (c *Client) ValidateReceipt(ctx context.Context, receipt, productID, transactionID string) (*Entitlement, error) {
	const op = "orchestrator.ValidateReceipt"

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/receipts/validate", validationRequest{
		Receipt:       receipt,
		ProductID:     productID,
		Platform:      c.platform,
		TransactionID: transactionID,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entitlement, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entitlement, nil
}

// FetchEntitlement запрашивает текущую запись о подписке с сервера.
func (c *Client) FetchEntitlement(ctx context.Context) (*Entitlement, error) {
	const op = "orchestrator.FetchEntitlement"

	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/entitlement", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entitlement, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entitlement, nil
}

func (c *Client) do(req *http.Request) (*Entitlement, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAuthorityUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode response: %s", ErrInternal, err)
	}
	if env.Status != "OK" {
		return nil, errorForCode(env.Code)
	}

	var data entitlementData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Entitlement == nil {
		return nil, fmt.Errorf("%w: unexpected response data", ErrInternal)
	}
	return data.Entitlement, nil
}
