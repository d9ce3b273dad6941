package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// Channel is the part of an AMQP channel the publisher uses.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends tier change messages to a topic exchange.
type Publisher struct {
	mu       sync.Mutex
	ch       Channel
	exchange string
	now      func() time.Time
}

// NewPublisher creates a publisher on an already configured channel.
func NewPublisher(ch Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, now: time.Now}
}

// TierChanged publishes a persistent JSON message for a committed transition.
func (p *Publisher) TierChanged(_ context.Context, accountID int64, tier string) error {
	body, err := json.Marshal(TierChanged{
		AccountID:  accountID,
		TargetTier: tier,
		ChangedAt:  p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding tier change: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(
		p.exchange,
		RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publishing tier change: %w", err)
	}
	return nil
}

// Connect dials the broker, retrying up to retries times with delay between attempts.
func Connect(url string, retries int, delay time.Duration) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error

	for range retries {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("connecting to broker: %w", err)
}

// SetupChannel opens a channel and declares the durable topic exchange.
func SetupChannel(conn *amqp.Connection, exchange string) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("opening channel: %w", err)
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
		_ = ch.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}
	return ch, nil
}
