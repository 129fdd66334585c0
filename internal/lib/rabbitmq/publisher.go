package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/receipt-validator/internal/models"
)

// RoutingKeyEntitlementUpdated — ключ маршрутизации событий об обновлении подписки.
const RoutingKeyEntitlementUpdated = "entitlement.updated"

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EntitlementPublisher публикует события об обновлении подписок
// в настроенный exchange.
type EntitlementPublisher struct {
	ch       *amqp.Channel
	exchange string
}

// NewEntitlementPublisher создает публикатора событий для переданного канала.
func NewEntitlementPublisher(ch *amqp.Channel, exchange string) *EntitlementPublisher {
	return &EntitlementPublisher{ch: ch, exchange: exchange}
}

// PublishEntitlementUpdated публикует событие об успешной валидации подписки.
func (p *EntitlementPublisher) PublishEntitlementUpdated(event models.EntitlementEvent) error {
	return PublishMessage(p.ch, p.exchange, RoutingKeyEntitlementUpdated, event)
}
