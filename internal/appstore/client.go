// Package appstore реализует проверку чеков через биллинговый авторитет Apple.
//
// Legacy-чеки (base64-бандл) проверяются через конечную точку verifyReceipt:
// сначала production, при статусе 21007 — ровно один повтор в sandbox.
// Такой порядок обязателен: production-сборка может получить sandbox-чек
// от ревьюера, но неограниченные повторы маскировали бы реальные отказы.
//
// Подписанные токены (JWS) проверяются локально: цепочка сертификатов x5c
// валидируется до корневого сертификата Apple, подпись — по ключу листового
// сертификата. Поля дат извлекаются только после проверки подписи.
package appstore

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/magabrotheeeer/receipt-validator/internal/config"
	"github.com/magabrotheeeer/receipt-validator/internal/models"
)

// Client — клиент биллингового авторитета Apple.
type Client struct {
	sharedSecret  string
	productionURL string
	sandboxURL    string
	rootCert      *x509.Certificate
	httpClient    *http.Client
}

// New создаёт клиента App Store. Корневой сертификат Apple загружается из
// файла, если путь задан; без него signed-токены отклоняются как ошибка
// конфигурации.
func New(cfg config.AppStore) (*Client, error) {
	const op = "appstore.New"

	var rootCert *x509.Certificate
	if cfg.RootCertificatePath != "" {
		raw, err := os.ReadFile(cfg.RootCertificatePath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		rootCert, err = parseRootCertificate(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &Client{
		sharedSecret:  cfg.SharedSecret,
		productionURL: cfg.ProductionURL,
		sandboxURL:    cfg.SandboxURL,
		rootCert:      rootCert,
		httpClient:    &http.Client{Timeout: cfg.TimeoutAppStore},
	}, nil
}

// Validate проверяет чек и возвращает канонические даты покупки и окончания
// подписки для запрошенного продукта. Формат чека определяется структурно,
// а не по заявлению клиента.
func (c *Client) Validate(ctx context.Context, receipt, productID string) (*models.ValidationResult, error) {
	if isSignedToken(receipt) {
		return c.validateSignedToken(receipt, productID)
	}
	return c.validateLegacyReceipt(ctx, receipt, productID)
}

func (c *Client) validateLegacyReceipt(ctx context.Context, receipt, productID string) (*models.ValidationResult, error) {
	const op = "appstore.validateLegacyReceipt"

	if c.sharedSecret == "" {
		return nil, fmt.Errorf("%s: shared secret is not set: %w", op, models.ErrConfiguration)
	}

	resp, err := c.verify(ctx, c.productionURL, receipt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// Ровно один повтор в sandbox, любые другие статусы терминальны.
	if resp.Status == statusSandboxOnProduction {
		resp, err = c.verify(ctx, c.sandboxURL, receipt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if resp.Status != statusOK {
		return nil, fmt.Errorf("%s: status %d: %w", op, resp.Status, statusToError(resp.Status))
	}

	info, found := latestEntryForProduct(resp.LatestReceiptInfo, productID)
	if !found {
		return nil, fmt.Errorf("%s: product %s: %w", op, productID, models.ErrProductMismatch)
	}

	purchaseTime, err := parseMillis(info.PurchaseDateMS)
	if err != nil {
		return nil, fmt.Errorf("%s: purchase_date_ms: %w", op, models.ErrMalformedReceipt)
	}
	expiryTime, err := parseMillis(info.ExpiresDateMS)
	if err != nil {
		return nil, fmt.Errorf("%s: expires_date_ms: %w", op, models.ErrMalformedReceipt)
	}

	return &models.ValidationResult{
		ProductID:     info.ProductID,
		TransactionID: info.TransactionID,
		PurchaseTime:  purchaseTime,
		ExpiryTime:    expiryTime,
	}, nil
}

func (c *Client) verify(ctx context.Context, endpoint, receipt string) (*verifyResponse, error) {
	const op = "appstore.verify"

	body, err := json.Marshal(verifyRequest{
		ReceiptData:            receipt,
		Password:               c.sharedSecret,
		ExcludeOldTransactions: false,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrAuthorityUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%s: http %d: %w", op, resp.StatusCode, models.ErrAuthorityUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: http %d: %w", op, resp.StatusCode, models.ErrAuthorityRejected)
	}

	var verifyResp verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verifyResp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAuthorityUnavailable)
	}
	return &verifyResp, nil
}

// latestEntryForProduct выбирает запись запрошенного продукта с самой поздней
// датой окончания: в latest_receipt_info попадают и прошлые продления.
func latestEntryForProduct(entries []ReceiptInfo, productID string) (ReceiptInfo, bool) {
	var best ReceiptInfo
	var bestExpiry int64
	found := false
	for _, entry := range entries {
		if entry.ProductID != productID {
			continue
		}
		expiry, err := strconv.ParseInt(entry.ExpiresDateMS, 10, 64)
		if err != nil {
			continue
		}
		if !found || expiry > bestExpiry {
			best = entry
			bestExpiry = expiry
			found = true
		}
	}
	return best, found
}

func statusToError(status int) error {
	switch status {
	case statusMalformedJSON, statusMalformedReceipt:
		return models.ErrMalformedReceipt
	case statusSharedSecretInvalid:
		return models.ErrConfiguration
	case statusServerUnavailable:
		return models.ErrAuthorityUnavailable
	case statusAuthFailed, statusProductionOnSandbox, statusAccountNotFound:
		return models.ErrAuthorityRejected
	default:
		return models.ErrAuthorityRejected
	}
}

func parseMillis(value string) (time.Time, error) {
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
