// Package amqp publishes transactions to a RabbitMQ exchange. A publish only
// counts as an append once the broker confirms it.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/trace"
)

const defaultDialTimeout = 5 * time.Second

var errNotConfirmed = errors.New("broker did not confirm publish")

type Config struct {
	URL         string
	Exchange    string
	Queue       string
	DialTimeout time.Duration
}

// Publisher is a write-only remote ledger. It connects lazily and
// reconnects on the next Append after the connection drops, so it can be
// built while the broker is unreachable.
type Publisher struct {
	cfg Config

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

var _ ledger.Appender = (*Publisher)(nil)

func NewPublisher(cfg Config) (*Publisher, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse AMQP URL: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return nil, fmt.Errorf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme)
	}
	if cfg.Exchange == "" {
		return nil, errors.New("AMQP exchange name cannot be empty")
	}
	if cfg.Queue == "" {
		cfg.Queue = cfg.Exchange
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return &Publisher{cfg: cfg}, nil
}

// Append publishes t as a persistent message and waits for the broker ack.
func (p *Publisher) Append(ctx context.Context, t core.Transaction) error {
	body, err := NewTransactionMessage(t).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	_, correlationID := trace.Ensure(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return ledger.Unavailable("append", err)
	}

	dc, err := p.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		p.cfg.Exchange, // exchange
		p.cfg.Queue,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     t.ID(),
			CorrelationId: correlationID,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		p.reset()
		return ledger.Unavailable("append", fmt.Errorf("publish message: %w", err))
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		p.reset()
		return ledger.Unavailable("append", fmt.Errorf("wait for confirm: %w", err))
	}
	if !acked {
		return ledger.Unavailable("append", errNotConfirmed)
	}

	slog.InfoContext(ctx, "Published transaction",
		"id", t.ID(),
		"exchange", p.cfg.Exchange,
		"queue", p.cfg.Queue)

	return nil
}

// connect dials and declares the topology if there is no live channel.
// Callers hold p.mu.
func (p *Publisher) connect() error {
	if p.conn != nil && !p.conn.IsClosed() && p.channel != nil && !p.channel.IsClosed() {
		return nil
	}
	p.reset()

	conn, err := amqp091.DialConfig(p.cfg.URL, amqp091.Config{
		Dial: amqp091.DefaultDial(p.cfg.DialTimeout),
	})
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	p.conn = conn
	p.channel = channel

	if err := p.setup(); err != nil {
		p.reset()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	return nil
}

func (p *Publisher) setup() error {
	err := p.channel.ExchangeDeclare(
		p.cfg.Exchange, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = p.channel.QueueDeclare(
		p.cfg.Queue, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := p.channel.QueueBind(p.cfg.Queue, p.cfg.Queue, p.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	if err := p.channel.Confirm(false); err != nil {
		return fmt.Errorf("enable publisher confirms: %w", err)
	}
	return nil
}

func (p *Publisher) reset() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
