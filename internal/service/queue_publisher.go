// Package service holds the outbound integrations the handlers and
// the lending engine publish through.  Errors are logged and
// returned so callers can ignore failures without interrupting the
// main request flow.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/university-library/internal/queue"
)

// NotificationPublisher publishes notification events to the
// library.notifications queue.  It satisfies the lending engine's
// EventPublisher interface.
type NotificationPublisher struct {
	url string
}

// NewNotificationPublisher returns a publisher dialing the given
// broker URL.
func NewNotificationPublisher(url string) *NotificationPublisher {
	return &NotificationPublisher{url: url}
}

// Publish sends one event to the notification queue.  A connection
// is dialed per publish; the events are rare enough (a few per
// lending transition) that holding a broker connection open buys
// nothing.  Messages are marked persistent so they survive broker
// restarts.  Any error is logged and returned so the caller can
// choose to ignore it.
func (p *NotificationPublisher) Publish(ctx context.Context, event q.NotificationEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages
	// survive broker restarts.
	if _, err := ch.QueueDeclare(
		q.NotificationQueue, // name
		true,                // durable
		false,               // autoDelete
		false,               // exclusive
		false,               // noWait
		nil,                 // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                  // default exchange
		q.NotificationQueue, // routing key = queue name
		false,               // mandatory
		false,               // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
