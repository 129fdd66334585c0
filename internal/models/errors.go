package models

import "errors"

// Доменные ошибки валидации чеков и чтения записей о подписках.
var (
	// ErrMalformedReceipt — чек не удалось разобрать или платформа не поддерживается.
	ErrMalformedReceipt = errors.New("malformed receipt")
	// ErrAuthorityRejected — авторитет разобрал чек, но отказал в подтверждении.
	ErrAuthorityRejected = errors.New("receipt rejected by billing authority")
	// ErrProductMismatch — чек валиден, но не содержит запрошенный продукт.
	ErrProductMismatch = errors.New("receipt does not contain requested product")
	// ErrAuthorityUnavailable — авторитет недоступен, результат неизвестен.
	ErrAuthorityUnavailable = errors.New("billing authority unavailable")
	// ErrConfiguration — ошибка конфигурации сервиса, а не данных клиента.
	ErrConfiguration = errors.New("validator misconfigured")
	// ErrEntitlementNotFound — у подписчика нет записи о подписке.
	ErrEntitlementNotFound = errors.New("entitlement not found")
)

// Машинно-читаемые коды ошибок для HTTP-ответов.
const (
	CodeMalformedReceipt     = "malformed_receipt"
	CodeAuthorityRejected    = "authority_rejected"
	CodeProductMismatch      = "product_mismatch"
	CodeAuthorityUnavailable = "authority_unavailable"
	CodeNoEntitlement        = "no_entitlement"
	CodeInternalError        = "internal_error"
)

// ErrorCode возвращает машинно-читаемый код для доменной ошибки.
// Ошибки конфигурации наружу не детализируются.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMalformedReceipt):
		return CodeMalformedReceipt
	case errors.Is(err, ErrProductMismatch):
		return CodeProductMismatch
	case errors.Is(err, ErrAuthorityRejected):
		return CodeAuthorityRejected
	case errors.Is(err, ErrAuthorityUnavailable):
		return CodeAuthorityUnavailable
	case errors.Is(err, ErrEntitlementNotFound):
		return CodeNoEntitlement
	default:
		return CodeInternalError
	}
}
