// Package googleplay реализует проверку покупок через биллинговый авторитет Google Play.
//
// Чек на стороне Android — это purchase token. Сервисный аккаунт обменивается
// на access token (OAuth2 jwt-bearer), после чего выполняется запрос
// purchases.subscriptions.get для тройки (packageName, productId, purchaseToken).
// Любой ответ кроме 2xx терминален, повторы остаются на усмотрение вызывающего.
package googleplay

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/receipt-validator/internal/config"
	"github.com/magabrotheeeer/receipt-validator/internal/models"
)

// Client — клиент биллингового авторитета Google Play.
type Client struct {
	packageName         string
	serviceAccountEmail string
	privateKey          *rsa.PrivateKey
	tokenURL            string
	apiURL              string
	httpClient          *http.Client
}

// New создаёт клиента Google Play. Приватный ключ сервисного аккаунта
// загружается из PEM-файла, если путь задан; без него запросы отклоняются
// как ошибка конфигурации.
func New(cfg config.GooglePlay) (*Client, error) {
	const op = "googleplay.New"

	var privateKey *rsa.PrivateKey
	if cfg.PrivateKeyPath != "" {
		raw, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		privateKey, err = jwt.ParseRSAPrivateKeyFromPEM(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &Client{
		packageName:         cfg.PackageName,
		serviceAccountEmail: cfg.ServiceAccountEmail,
		privateKey:          privateKey,
		tokenURL:            cfg.TokenURL,
		apiURL:              cfg.APIURL,
		httpClient:          &http.Client{Timeout: cfg.TimeoutGooglePlay},
	}, nil
}

// Validate проверяет purchase token и возвращает канонические даты начала
// и окончания подписки. Продукт задаётся самим запросом к purchases API,
// поэтому несовпадение продукта проявляется как отказ авторитета.
func (c *Client) Validate(ctx context.Context, purchaseToken, productID string) (*models.ValidationResult, error) {
	const op = "googleplay.Validate"

	if purchaseToken == "" {
		return nil, fmt.Errorf("%s: empty purchase token: %w", op, models.ErrMalformedReceipt)
	}

	accessToken, err := c.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	endpoint := fmt.Sprintf("%s/androidpublisher/v3/applications/%s/purchases/subscriptions/%s/tokens/%s",
		c.apiURL, url.PathEscape(c.packageName), url.PathEscape(productID), url.PathEscape(purchaseToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrAuthorityUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%s: http %d: %w", op, resp.StatusCode, models.ErrAuthorityUnavailable)
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%s: http %d: %w", op, resp.StatusCode, models.ErrMalformedReceipt)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s: http %d: %w", op, resp.StatusCode, models.ErrAuthorityRejected)
	}

	var purchase SubscriptionPurchase
	if err := json.NewDecoder(resp.Body).Decode(&purchase); err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAuthorityUnavailable)
	}
	if purchase.StartTimeMillis == 0 || purchase.ExpiryTimeMillis == 0 {
		return nil, fmt.Errorf("%s: missing purchase dates: %w", op, models.ErrAuthorityRejected)
	}

	return &models.ValidationResult{
		ProductID:     productID,
		TransactionID: purchase.OrderID,
		PurchaseTime:  time.UnixMilli(purchase.StartTimeMillis).UTC(),
		ExpiryTime:    time.UnixMilli(purchase.ExpiryTimeMillis).UTC(),
	}, nil
}
