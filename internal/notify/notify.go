// Package notify publishes registration lifecycle messages for downstream
// consumers such as confirmation mailers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"bahafit/internal/model"
)

// Routing keys.
const (
	RegistrationCreated   = "registration.created"
	RegistrationConfirmed = "registration.confirmed"
	RegistrationCancelled = "registration.cancelled"
	RegistrationCheckedIn = "registration.checked_in"
)

// RegistrationMessage is the versioned envelope sent for every lifecycle change.
type RegistrationMessage struct {
	Event      string           `json:"event"`
	Version    int              `json:"version"`
	OccurredAt string           `json:"occurred_at"`
	Data       RegistrationData `json:"data"`
}

// RegistrationData carries the registration snapshot.
type RegistrationData struct {
	RegistrationID string `json:"registration_id"`
	EventID        string `json:"event_id"`
	EventTitle     string `json:"event_title"`
	UserID         string `json:"user_id"`
	TicketType     string `json:"ticket_type,omitempty"`
	Price          string `json:"price"`
	Currency       string `json:"currency,omitempty"`
	Status         string `json:"status"`
	PaymentStatus  string `json:"payment_status"`
}

// NewRegistrationMessage builds the envelope for key.
func NewRegistrationMessage(key string, reg *model.Registration, at time.Time) RegistrationMessage {
	return RegistrationMessage{
		Event:      key,
		Version:    1,
		OccurredAt: at.UTC().Format(time.RFC3339),
		Data: RegistrationData{
			RegistrationID: reg.ID.String(),
			EventID:        reg.EventID.String(),
			EventTitle:     reg.EventTitle,
			UserID:         reg.UserID.String(),
			TicketType:     reg.TicketType,
			Price:          reg.Price.StringFixed(2),
			Currency:       reg.Currency,
			Status:         string(reg.Status),
			PaymentStatus:  string(reg.PaymentStatus),
		},
	}
}

// Publisher sends JSON messages under a routing key.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
	Close() error
}

// Nop discards every message. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishJSON(context.Context, string, any) error { return nil }
func (Nop) Close() error                                  { return nil }

// AMQPPublisher publishes to a durable topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials url and declares the exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         b,
	})
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// New returns an AMQP publisher when url is set and a Nop otherwise.
func New(url, exchange string) (Publisher, error) {
	if url == "" {
		return Nop{}, nil
	}
	return NewAMQPPublisher(url, exchange)
}
