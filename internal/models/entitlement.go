// Package models содержит основные структуры данных приложения:
// записи о подписках, запросы валидации чеков и доменные ошибки.
package models

import "time"

// Platform — платформа биллингового авторитета, выдавшего чек.
type Platform string

const (
	// PlatformIOS — покупки через Apple App Store.
	PlatformIOS Platform = "ios"
	// PlatformAndroid — покупки через Google Play.
	PlatformAndroid Platform = "android"
)

// Valid сообщает, поддерживается ли платформа.
func (p Platform) Valid() bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// Entitlement — подтверждённая запись о подписке. На каждого подписчика
// хранится ровно одна запись: новая покупка или продление заменяет прежнюю.
type Entitlement struct {
	SubscriberUID string    `json:"subscriber_uid"` // Идентификатор подписчика
	ProductID     string    `json:"product_id"`     // Идентификатор продукта подписки
	Platform      Platform  `json:"platform"`       // Платформа покупки
	TransactionID string    `json:"transaction_id"` // Идентификатор транзакции авторитета
	PurchaseTime  time.Time `json:"purchase_time"`  // Время покупки по данным авторитета
	ExpiryTime    time.Time `json:"expiry_time"`    // Время окончания по данным авторитета
	IsActive      bool      `json:"is_active"`      // Активна ли подписка на момент записи
	RawReceipt    string    `json:"-"`              // Исходный чек, наружу не отдаётся
}

// ActiveAt сообщает, действует ли подписка в указанный момент времени.
func (e *Entitlement) ActiveAt(now time.Time) bool {
	return now.Before(e.ExpiryTime)
}

// EntitlementEvent — событие об обновлении записи о подписке,
// публикуемое в брокер для подписанных сервисов.
type EntitlementEvent struct {
	SubscriberUID string    `json:"subscriber_uid"`
	ProductID     string    `json:"product_id"`
	Platform      Platform  `json:"platform"`
	TransactionID string    `json:"transaction_id"`
	ExpiryTime    time.Time `json:"expiry_time"`
	OccurredAt    time.Time `json:"occurred_at"`
}
