package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// DeclareEntitlementExchange объявляет durable topic exchange для событий
// об обновлении подписок.
func DeclareEntitlementExchange(ch *amqp.Channel, exchange string) error {
	const op = "rabbitmq.DeclareEntitlementExchange"

	err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
