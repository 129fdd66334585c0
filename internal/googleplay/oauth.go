package googleplay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/receipt-validator/internal/models"
)

const (
	scopeAndroidPublisher = "https://www.googleapis.com/auth/androidpublisher"
	grantTypeJWTBearer    = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// accessToken обменивает подписанный RS256 assertion сервисного аккаунта
// на access token через конечную точку OAuth2.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	const op = "googleplay.accessToken"

	if c.privateKey == nil || c.serviceAccountEmail == "" {
		return "", fmt.Errorf("%s: service account is not set: %w", op, models.ErrConfiguration)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   c.serviceAccountEmail,
		"scope": scopeAndroidPublisher,
		"aud":   c.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	form := url.Values{
		"grant_type": {grantTypeJWTBearer},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, models.ErrAuthorityUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", fmt.Errorf("%s: http %d: %w", op, resp.StatusCode, models.ErrAuthorityUnavailable)
	case resp.StatusCode != http.StatusOK:
		// Отказ в выдаче токена — неверные учётные данные сервисного аккаунта
		return "", fmt.Errorf("%s: http %d: %w", op, resp.StatusCode, models.ErrConfiguration)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%s: %w", op, models.ErrAuthorityUnavailable)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%s: empty access token: %w", op, models.ErrConfiguration)
	}
	return token.AccessToken, nil
}
