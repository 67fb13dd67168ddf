// Package events publishes domain events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DepositCredited is published after a crypto deposit is credited to a wallet.
type DepositCredited struct {
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	InvoiceID     string          `json:"invoice_id"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
	CreditedAt    time.Time       `json:"credited_at"`
}

// Publisher dials the broker per message; deposits are rare enough that a
// pooled connection is not worth its reconnect handling. A nil Publisher or
// one without a URL drops events.
type Publisher struct {
	url    string
	queue  string
	logger *zap.Logger
}

func NewPublisher(url, queue string, logger *zap.Logger) *Publisher {
	return &Publisher{url: url, queue: queue, logger: logger.With(zap.String("component", "events"))}
}

func (p *Publisher) PublishDepositCredited(ctx context.Context, event DepositCredited) error {
	if p == nil || p.url == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.publish(ctx, body); err != nil {
		p.logger.Warn("publish failed", zap.String("queue", p.queue), zap.String("invoice_id", event.InvoiceID), zap.Error(err))
		return err
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, body []byte) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
