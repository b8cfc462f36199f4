package rabbit

import amqp "github.com/rabbitmq/amqp091-go"

// Exchange, queue and routing-key names. Durable, declared before any
// publish: at-least-once delivery across broker restarts depends on it.
const (
	ExchangeOrders     = "orders.events"
	ExchangeDeliveries = "deliveries.events"

	QueueDispatch = "dispatch.assign"

	KeyReadyForDelivery = "order.ready_for_delivery"
	KeyDeliveryAssigned = "delivery.assigned"
)

// DeclareTopology declares both topic exchanges and the dispatch queue with
// its binding. Idempotent; both processes call it at startup.
func DeclareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeOrders, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(ExchangeDeliveries, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(QueueDispatch, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.QueueBind(QueueDispatch, KeyReadyForDelivery, ExchangeOrders, false, nil)
}
