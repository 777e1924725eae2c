package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"face_verification/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventVerificationCompleted is the AMQP message type of published events.
const EventVerificationCompleted = "verification.completed"

type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func New(urlForConn string, queueName string) (*RabbitMQClient, error) {
	const op = "rabbitmq.New"

	conn, err := amqp.Dial(urlForConn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := ch.QueueDeclare(
		queueName, true, false, false, false, nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RabbitMQClient{
		conn:    conn,
		channel: ch,
		queue:   q,
	}, nil
}

// Publish sends a persisted verification to the queue.
func (r *RabbitMQClient) Publish(ctx context.Context, event models.VerificationEvent) error {
	const op = "rabbitmq.Publish"

	body, err := encode(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		"",
		r.queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         EventVerificationCompleted,
			MessageId:    event.VerificationID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func encode(event models.VerificationEvent) ([]byte, error) {
	return json.Marshal(event)
}

func (r *RabbitMQClient) Close() {
	_ = r.channel.Close()
	_ = r.conn.Close()
}
