package appstore

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/receipt-validator/internal/models"
)

// isSignedToken структурно определяет формат чека: подписанный токен — это
// компактный JWS из трёх base64url-секций. Клиент не может надёжно сообщить
// формат за все версии SDK, поэтому тип заявлению клиента не доверяется.
func isSignedToken(receipt string) bool {
	return strings.Count(receipt, ".") == 2 && strings.HasPrefix(receipt, "eyJ")
}

// transactionClaims — полезная нагрузка подписанной транзакции App Store.
// Даты — epoch в миллисекундах.
type transactionClaims struct {
	ProductID             string `json:"productId"`
	TransactionID         string `json:"transactionId"`
	OriginalTransactionID string `json:"originalTransactionId"`
	PurchaseDate          int64  `json:"purchaseDate"`
	ExpiresDate           int64  `json:"expiresDate"`
	Environment           string `json:"environment"`
	jwt.RegisteredClaims
}

// validateSignedToken проверяет подпись JWS по цепочке x5c и только после
// этого извлекает заявленные токеном даты. Без настроенного корневого
// сертификата токен отклоняется: принять его «условно» значило бы доверить
// клиенту собственную дату окончания подписки.
func (c *Client) validateSignedToken(receipt, productID string) (*models.ValidationResult, error) {
	const op = "appstore.validateSignedToken"

	if c.rootCert == nil {
		return nil, fmt.Errorf("%s: root certificate is not set: %w", op, models.ErrConfiguration)
	}

	token, err := jwt.ParseWithClaims(receipt, &transactionClaims{}, c.signedTokenKey,
		jwt.WithValidMethods([]string{"ES256"}))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConfiguration):
			return nil, fmt.Errorf("%s: %w", op, err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%s: %w", op, models.ErrMalformedReceipt)
		default:
			return nil, fmt.Errorf("%s: %w: %w", op, models.ErrAuthorityRejected, err)
		}
	}

	claims, ok := token.Claims.(*transactionClaims)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, models.ErrMalformedReceipt)
	}
	if claims.ProductID != productID {
		return nil, fmt.Errorf("%s: product %s: %w", op, productID, models.ErrProductMismatch)
	}
	if claims.PurchaseDate == 0 || claims.ExpiresDate == 0 {
		return nil, fmt.Errorf("%s: missing dates: %w", op, models.ErrMalformedReceipt)
	}

	return &models.ValidationResult{
		ProductID:     claims.ProductID,
		TransactionID: claims.TransactionID,
		PurchaseTime:  time.UnixMilli(claims.PurchaseDate).UTC(),
		ExpiryTime:    time.UnixMilli(claims.ExpiresDate).UTC(),
	}, nil
}

// signedTokenKey извлекает цепочку сертификатов из заголовка x5c, проверяет её
// до корневого сертификата Apple и возвращает публичный ключ листового
// сертификата для проверки подписи ES256.
func (c *Client) signedTokenKey(token *jwt.Token) (any, error) {
	const op = "appstore.signedTokenKey"

	rawChain, ok := token.Header["x5c"].([]any)
	if !ok || len(rawChain) == 0 {
		return nil, fmt.Errorf("%s: missing x5c header: %w", op, models.ErrAuthorityRejected)
	}

	certs := make([]*x509.Certificate, 0, len(rawChain))
	for _, raw := range rawChain {
		encoded, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%s: invalid x5c entry: %w", op, models.ErrMalformedReceipt)
		}
		der, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid x5c encoding: %w", op, models.ErrMalformedReceipt)
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid x5c certificate: %w", op, models.ErrMalformedReceipt)
		}
		certs = append(certs, cert)
	}

	roots := x509.NewCertPool()
	roots.AddCert(c.rootCert)
	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}

	leaf := certs[0]
	if _, err := leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
	}); err != nil {
		return nil, fmt.Errorf("%s: certificate chain: %w", op, models.ErrAuthorityRejected)
	}

	return leaf.PublicKey, nil
}

// parseRootCertificate принимает сертификат в PEM или DER.
func parseRootCertificate(raw []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(raw); block != nil {
		return x509.ParseCertificate(block.Bytes)
	}
	return x509.ParseCertificate(raw)
}
