/*
Package events publishes committed month-end closes to RabbitMQ.

TOPOLOGY:
  One durable direct exchange (AMQP_EXCHANGE, default "budget.events").
  PeriodClosed messages use routing key AMQP_ROUTING_KEY (default
  "period.closed"). Consumers declare and bind their own queues.

DELIVERY:
  Messages are persistent JSON with MessageId set to the close run ID, so
  consumers can deduplicate. A publish that fails on a dropped connection
  reconnects once and retries; any other failure is returned to the closing
  engine, which logs it. The close itself is already committed.
*/
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/logging"
)

const (
	DefaultExchange   = "budget.events"
	DefaultRoutingKey = "period.closed"

	// MessageTypePeriodClosed is set as the AMQP type property.
	MessageTypePeriodClosed = "period.closed"

	publishTimeout = 5 * time.Second
)

// channel is the subset of *amqp091.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher implements budget.EventPublisher over AMQP 0-9-1.
type Publisher struct {
	url        string
	exchange   string
	routingKey string
	logger     *slog.Logger

	mu   sync.Mutex
	conn *amqp091.Connection
	ch   channel
}

// Config for NewPublisher. Empty names fall back to the defaults.
type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// NewPublisher dials the broker and declares the exchange.
func NewPublisher(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("AMQP URL is required")
	}
	p := newPublisher(cfg, logger)
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func newPublisher(cfg Config, logger *slog.Logger) *Publisher {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = DefaultRoutingKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		url:        cfg.URL,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger.With(logging.FieldComponent, logging.ComponentAMQP),
	}
}

// connect must be called with mu held or before the publisher is shared.
func (p *Publisher) connect() error {
	conn, err := amqp091.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		p.exchange, // name
		"direct",   // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	p.conn = conn
	p.ch = ch
	return nil
}

// PublishPeriodClosed implements budget.EventPublisher.
func (p *Publisher) PublishPeriodClosed(ctx context.Context, ev budget.PeriodClosedEvent) error {
	msg, err := NewPeriodClosedMessage(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.publish(ctx, msg)
	if err != nil && isConnectionError(err) && p.url != "" {
		p.logger.Warn("AMQP connection lost, reconnecting", logging.FieldError, err)
		p.closeLocked()
		if cerr := p.connect(); cerr != nil {
			return fmt.Errorf("reconnect: %w", cerr)
		}
		err = p.publish(ctx, msg)
	}
	if err != nil {
		return fmt.Errorf("publish period closed: %w", err)
	}

	p.logger.Info("published period closed",
		logging.FieldRunID, ev.RunID,
		logging.FieldYear, ev.Year,
		logging.FieldMonth, ev.Month,
		"exchange", p.exchange,
		"routing_key", p.routingKey)
	return nil
}

func (p *Publisher) publish(ctx context.Context, msg amqp091.Publishing) error {
	if p.ch == nil {
		return amqp091.ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg)
}

// NewPeriodClosedMessage builds the persistent JSON message for ev.
func NewPeriodClosedMessage(ev budget.PeriodClosedEvent) (amqp091.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	ts := ev.ClosedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    ev.RunID,
		Type:         MessageTypePeriodClosed,
		Timestamp:    ts,
		Body:         body,
	}, nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *Publisher) closeLocked() error {
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		if err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return err
		}
	}
	return nil
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection closed", "eof", "broken pipe", "use of closed network connection", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

var _ budget.EventPublisher = (*Publisher)(nil)
