// Package event publishes domain events to a topic exchange after state changes commit.
package event

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/quizcore/config"
	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
	"go.uber.org/fx"
)

const (
	AttemptSubmitted   = "attempt.submitted"
	AttemptExpired     = "attempt.expired"
	EvaluationDisputed = "evaluation.disputed"
	EvaluationReviewed = "evaluation.reviewed"
)

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

type envelope struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

type EventPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewPublisher dials the broker when AMQP_URL is set and otherwise returns a publisher
// that drops events.
func NewPublisher(lc fx.Lifecycle, cfg *config.Config) (Publisher, error) {
	if cfg.AMQP.URL == "" {
		log.Warn().Msg("AMQP_URL is not set. Domain events will not be published.")
		return NoopPublisher{}, nil
	}
	p, err := NewEventPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			p.Close()
			return nil
		},
	})
	log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("AMQP event publisher connected")
	return p, nil
}

func NewEventPublisher(amqpURL, exchange string) (*EventPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &EventPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish routes the event by its type.
func (p *EventPublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	id := uuid.NewString()
	body, err := json.Marshal(envelope{
		ID:         id,
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.Publish(
		p.exchange,
		eventType,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    id,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

func (p *EventPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
