// Package rabbitmq publishes JSON events to a topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is implemented by the live producer and the fallback.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body any) error
	Close()
}

// FallbackPublisher is used when RabbitMQ is unavailable at startup; it only logs.
type FallbackPublisher struct {
	Log *slog.Logger
}

func (p *FallbackPublisher) Publish(_ context.Context, exchange, routingKey string, _ any) error {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	log.Warn("publish skipped; rabbitmq unavailable", "exchange", exchange, "routing_key", routingKey)
	return nil
}

func (p *FallbackPublisher) Close() {}

type Producer struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	declared map[string]bool
	log      *slog.Logger
}

var _ Publisher = (*Producer)(nil)
var _ Publisher = (*FallbackPublisher)(nil)

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("rabbitmq url must use amqp:// or amqps://")
	}
	return clean, nil
}

func NewProducer(amqpURL string, log *slog.Logger) (*Producer, error) {
	if log == nil {
		log = slog.Default()
	}
	clean, err := sanitizeURL(amqpURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp.DialConfig(clean, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Producer{conn: conn, channel: ch, declared: make(map[string]bool), log: log}, nil
}

// Connect returns a live producer, or the fallback when the broker cannot be reached.
func Connect(amqpURL string, log *slog.Logger) Publisher {
	if log == nil {
		log = slog.Default()
	}
	if amqpURL == "" {
		log.Warn("RABBITMQ_URL not set; ledger events will only be logged")
		return &FallbackPublisher{Log: log}
	}
	p, err := NewProducer(amqpURL, log)
	if err != nil {
		log.Warn("rabbitmq unavailable; ledger events will only be logged", "error", err)
		return &FallbackPublisher{Log: log}
	}
	return p
}

func (p *Producer) declare(exchange string) error {
	if p.declared[exchange] {
		return nil
	}
	if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	p.declared[exchange] = true
	return nil
}

func (p *Producer) reopen() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	p.channel = ch
	p.declared = make(map[string]bool)
	return nil
}

// Publish declares the durable topic exchange once and sends body as JSON.
// On a channel error it reopens the channel and retries once.
func (p *Producer) Publish(ctx context.Context, exchange, routingKey string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.declare(exchange)
	if err == nil {
		err = p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
	}
	if err == nil {
		return nil
	}

	p.log.Warn("publish failed; reopening channel", "exchange", exchange, "routing_key", routingKey, "error", err)
	if rerr := p.reopen(); rerr != nil {
		return errors.Join(err, rerr)
	}
	if err := p.declare(exchange); err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}

func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
