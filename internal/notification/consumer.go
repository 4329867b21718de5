package notification

import (
	"context"

	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/messaging"
)

// QueueName is the queue of the notification worker
const QueueName = "notification-worker.events"

// EventConsumer feeds travel and report events to a notifier
type EventConsumer struct {
	consumer *messaging.Consumer
	logger   *logger.Logger
}

// NewEventConsumer declares the queue, binds it to travel.# and report.# and
// registers the notifier's handlers
func NewEventConsumer(rmq *messaging.RabbitMQ, notifier *Notifier, log *logger.Logger) (*EventConsumer, error) {
	log = log.WithComponent("event-consumer")
	consumer, err := messaging.NewConsumer(rmq, QueueName, log)
	if err != nil {
		return nil, err
	}

	for _, pattern := range []string{"travel.#", "report.#"} {
		if err := consumer.Subscribe(messaging.ExchangeTravelEvents, pattern); err != nil {
			return nil, err
		}
	}

	notifier.Register(consumer)

	return &EventConsumer{
		consumer: consumer,
		logger:   log,
	}, nil
}

// Start starts consuming messages
func (c *EventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}
