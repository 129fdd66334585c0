package googleplay

// Ответ конечной точки OAuth2 при обмене сервисного аккаунта на access token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// SubscriptionPurchase — ответ purchases.subscriptions.get.
// Google сериализует миллисекундные метки строками.
// Справочник: https://developers.google.com/android-publisher/api-ref/rest/v3/purchases.subscriptions
type SubscriptionPurchase struct {
	Kind             string `json:"kind"`
	StartTimeMillis  int64  `json:"startTimeMillis,string"`
	ExpiryTimeMillis int64  `json:"expiryTimeMillis,string"`
	AutoRenewing     bool   `json:"autoRenewing"`
	OrderID          string `json:"orderId"`
	PaymentState     int    `json:"paymentState"`
	PurchaseType     int    `json:"purchaseType"`
}
