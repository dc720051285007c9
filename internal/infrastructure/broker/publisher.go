package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apurbab29/futu-options/internal/config"
	options "github.com/apurbab29/futu-options/internal/domain/entity/options"
	interfaces "github.com/apurbab29/futu-options/internal/domain/interfaces"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher fans finished chain runs out to a RabbitMQ exchange.
type Publisher struct {
	exchange string
	logger   *logrus.Entry

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewPublisher dials RabbitMQ and declares the durable fanout exchange.
func NewPublisher(cfg config.RabbitMQConfig, logger *logrus.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if cfg.Exchange == "" {
		return nil, errors.New("exchange name cannot be empty")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return &Publisher{
		exchange: cfg.Exchange,
		logger:   logger.WithFields(logrus.Fields{"component": "run_publisher", "exchange": cfg.Exchange}),
		conn:     conn,
		channel:  ch,
	}, nil
}

var _ interfaces.RunPublisher = (*Publisher)(nil)

// PublishRun sends one persistent JSON message per run.
func (p *Publisher) PublishRun(ctx context.Context, run interfaces.ChainRun, records []options.Record) error {
	body, err := json.Marshal(newRunMessage(run, records))
	if err != nil {
		return fmt.Errorf("marshal run message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		return errors.New("publisher is closed")
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    run.ID.String(),
		Type:         "option_chain.run",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish run %s: %w", run.ID, err)
	}
	p.logger.WithFields(logrus.Fields{
		"run_id": run.ID.String(),
		"ticker": run.Ticker,
		"bytes":  len(body),
	}).Debug("run published")
	return nil
}

// Close releases the channel and the connection. It is safe to call twice.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			errs = append(errs, err)
		}
		p.channel = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, err)
		}
		p.conn = nil
	}
	return errors.Join(errs...)
}
