package orchestrator

import "errors"

// Ошибки оркестратора и клиента валидации.
var (
	// ErrAlreadyInProgress — попытка начать покупку, пока предыдущая не завершена.
	ErrAlreadyInProgress = errors.New("purchase already in progress")
	// ErrUserCancelled — пользователь закрыл нативный диалог покупки.
	// Отмена тихая: диалог ошибки не показывается, сервер не вызывается.
	ErrUserCancelled = errors.New("purchase cancelled by user")
	// ErrNoPurchasesFound — история покупок пуста или ни один чек не подтвердился.
	// Это ожидаемый результат восстановления, а не сбой.
	ErrNoPurchasesFound = errors.New("no purchases found")
	// ErrNoEntitlement — у подписчика нет записи о подписке на сервере.
	ErrNoEntitlement = errors.New("no entitlement")

	// Ошибки валидации, транслированные из кодов ответа сервера.
	ErrMalformedReceipt     = errors.New("malformed receipt")
	ErrAuthorityRejected    = errors.New("receipt rejected by billing authority")
	ErrProductMismatch      = errors.New("receipt does not contain requested product")
	ErrAuthorityUnavailable = errors.New("billing authority unavailable")
	ErrInternal             = errors.New("validation service error")
)

// errorForCode транслирует машинно-читаемый код ошибки сервера
// в клиентскую ошибку.
func errorForCode(code string) error {
	switch code {
	case "malformed_receipt":
		return ErrMalformedReceipt
	case "authority_rejected":
		return ErrAuthorityRejected
	case "product_mismatch":
		return ErrProductMismatch
	case "authority_unavailable":
		return ErrAuthorityUnavailable
	case "no_entitlement":
		return ErrNoEntitlement
	default:
		return ErrInternal
	}
}
