package appstore

// Запрос к конечной точке verifyReceipt.
type verifyRequest struct {
	ReceiptData            string `json:"receipt-data"`
	Password               string `json:"password"`
	ExcludeOldTransactions bool   `json:"exclude-old-transactions"`
}

// Ответ конечной точки verifyReceipt.
type verifyResponse struct {
	Status            int           `json:"status"`
	Environment       string        `json:"environment"`
	LatestReceipt     string        `json:"latest_receipt"`
	LatestReceiptInfo []ReceiptInfo `json:"latest_receipt_info"`
}

// ReceiptInfo — одна запись из latest_receipt_info. Для чеков с несколькими
// продуктами в одной группе подписок Apple возвращает соседние записи,
// поэтому выбор выполняется по product_id. Даты — epoch в миллисекундах,
// Apple сериализует их строками.
type ReceiptInfo struct {
	ProductID             string `json:"product_id"`
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	PurchaseDateMS        string `json:"purchase_date_ms"`
	ExpiresDateMS         string `json:"expires_date_ms"`
}

// Статусы verifyReceipt, значимые для маппинга ошибок.
// Полный перечень: https://developer.apple.com/documentation/appstorereceipts/status
const (
	statusOK                  = 0
	statusMalformedJSON       = 21000
	statusMalformedReceipt    = 21002
	statusAuthFailed          = 21003
	statusSharedSecretInvalid = 21004
	statusServerUnavailable   = 21005
	statusSandboxOnProduction = 21007
	statusProductionOnSandbox = 21008
	statusAccountNotFound     = 21010
)
