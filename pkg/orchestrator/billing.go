package orchestrator

import "context"

// PurchaseEvent — асинхронное событие от платформенного биллингового SDK.
// Событие привязано к попытке покупки, а не к экрану, который её начал:
// оркестратор получит его даже после закрытия исходного UI.
type PurchaseEvent struct {
	AttemptID     string // Идентификатор попытки, выданный оркестратором
	Receipt       string // Чек или purchase token платформы
	TransactionID string // Идентификатор транзакции платформы
	Cancelled     bool   // Пользователь отменил покупку
	Err           error  // Ошибка SDK, если покупка не состоялась
}

// HistoryEntry — запись из истории покупок платформы.
type HistoryEntry struct {
	Receipt       string
	ProductID     string
	TransactionID string
}

// BillingClient описывает платформенный биллинговый SDK.
// Реализация предоставляется мобильной обвязкой приложения.
type BillingClient interface {
	// StartPurchase запускает нативный диалог покупки и возвращает канал,
	// в который будет доставлено событие завершения попытки.
	StartPurchase(ctx context.Context, attemptID, productID string) (<-chan PurchaseEvent, error)
	// QueryPurchaseHistory возвращает историю покупок без нового списания.
	QueryPurchaseHistory(ctx context.Context) ([]HistoryEntry, error)
	// Acknowledge подтверждает транзакцию платформе. Вызывается только после
	// успешной валидации и записи на сервере, иначе платформа вернёт деньги.
	Acknowledge(ctx context.Context, transactionID string) error
}
