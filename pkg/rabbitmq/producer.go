package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel is the slice of *amqp.Channel the producer uses. AMQP channels
// become unusable after a protocol error, so the producer must be able to
// swap a broken one for a fresh one.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// EventProducer is responsible for publishing events to a RabbitMQ exchange.
type EventProducer struct {
	conn    *amqp.Connection
	channel amqpChannel
	reopen  func() (amqpChannel, error)
}

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
	Close()
}

// EventProducerFallback is a minimal no-op publisher used when RabbitMQ is
// unavailable at startup. It allows the service to start and log events
// instead of failing hard.
type EventProducerFallback struct{}

func (p *EventProducerFallback) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	log.Printf("[MQ-FALLBACK] Would publish to exchange='%s' routingKey='%s' body=%v", exchange, routingKey, body)
	return nil
}
func (p *EventProducerFallback) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	// If any stray characters precede the scheme, slice from first occurrence of amqp
	idx := strings.Index(strings.ToLower(clean), "amqp")
	if idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer creates and returns a new EventProducer.
// It establishes a connection and channel to RabbitMQ.
func NewEventProducer(amqpURL string) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Use a bounded dial timeout so startup does not hang indefinitely
	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	return &EventProducer{
		conn:    conn,
		channel: ch,
		reopen:  func() (amqpChannel, error) { return conn.Channel() },
	}, nil
}

func (p *EventProducer) declareExchange(exchange string) error {
	// Durable topic exchange
	return p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
}

// reopenChannel replaces the current channel with a freshly opened one.
func (p *EventProducer) reopenChannel() error {
	if p.reopen == nil {
		return errors.New("no channel reopen available")
	}
	ch, err := p.reopen()
	if err != nil {
		return err
	}
	p.channel = ch
	return nil
}

// Publish sends a message to a specific exchange with a routing key. A
// failed declare or publish gets one recovery attempt on a reopened
// channel, since a channel that has seen a protocol error is dead for every
// later operation too.
func (p *EventProducer) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	if err := p.declareExchange(exchange); err != nil {
		log.Printf("Failed to declare exchange '%s': %v. Attempting channel reopen...", exchange, err)
		if reopenErr := p.reopenChannel(); reopenErr != nil {
			return err
		}
		if err := p.declareExchange(exchange); err != nil {
			return err
		}
	}

	err = p.publishOnce(ctx, exchange, routingKey, payload)
	if err == nil {
		return nil
	}

	log.Printf("Failed to publish to exchange '%s': %v. Attempting channel reopen...", exchange, err)
	if reopenErr := p.reopenChannel(); reopenErr != nil {
		return err
	}
	if declErr := p.declareExchange(exchange); declErr != nil {
		return err
	}
	return p.publishOnce(ctx, exchange, routingKey, payload)
}

func (p *EventProducer) publishOnce(ctx context.Context, exchange, routingKey string, payload []byte) error {
	return p.channel.PublishWithContext(ctx,
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         payload,
		},
	)
}

// Close shuts down the channel and connection.
func (p *EventProducer) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
