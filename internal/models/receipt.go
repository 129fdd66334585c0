package models

import "time"

// ValidationRequest — запрос клиента на проверку чека покупки.
// Идентификатор подписчика в теле не передаётся: он берётся из JWT.
type ValidationRequest struct {
	Receipt       string `json:"receipt" validate:"required" example:"bGVnYWN5LXJlY2VpcHQ="`        // Чек App Store или purchase token Google Play
	ProductID     string `json:"product_id" validate:"required" example:"yearly"`                   // Ожидаемый продукт подписки
	Platform      string `json:"platform" validate:"required,oneof=ios android" example:"ios"`      // Платформа покупки
	TransactionID string `json:"transaction_id,omitempty" example:"1000000123456789"`               // Идентификатор транзакции по данным клиента
}

// ValidationResult — канонический результат проверки чека биллинговым
// авторитетом. Даты берутся из ответа авторитета, не из данных клиента.
type ValidationResult struct {
	ProductID     string
	TransactionID string
	PurchaseTime  time.Time
	ExpiryTime    time.Time
}
