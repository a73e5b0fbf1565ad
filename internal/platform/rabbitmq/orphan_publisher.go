package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// OrphanFile is the message body for a stored object without a row.
type OrphanFile struct {
	Filename string `json:"filename"`
}

type OrphanPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewOrphanPublisher(conn *amqp.Connection, queueName string) *OrphanPublisher {
	return &OrphanPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *OrphanPublisher) PublishOrphan(ctx context.Context, filename string) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	payload, err := json.Marshal(OrphanFile{Filename: filename})
	if err != nil {
		return fmt.Errorf("marshal orphan payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish orphan failed: %w", err)
	}
	return nil
}
