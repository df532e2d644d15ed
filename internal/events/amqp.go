package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "schoolsched.events"

	defaultDialTimeout = 5 * time.Second
)

// ErrNotConnected is returned by Publish while the broker connection is down.
// A reconnect runs in the background and later publishes use it.
var ErrNotConnected = errors.New("amqp publisher not connected")

// AMQPPublisher publishes events to a durable topic exchange, using the event
// type as routing key. After a failure the connection is re-dialed in the
// background; Publish never waits on a dial.
type AMQPPublisher struct {
	url         string
	exchange    string
	dialTimeout time.Duration
	log         *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	dialing bool
	closed  bool
	wg      sync.WaitGroup
}

func NewAMQPPublisher(url, exchange string, log *slog.Logger) (*AMQPPublisher, error) {
	p, err := newAMQPPublisher(url, exchange, defaultDialTimeout, log)
	if err != nil {
		return nil, err
	}

	conn, ch, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return p, nil
}

func newAMQPPublisher(url, exchange string, dialTimeout time.Duration, log *slog.Logger) (*AMQPPublisher, error) {
	if url == "" {
		return nil, errors.New("amqp url is required")
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	if log == nil {
		log = slog.Default()
	}
	return &AMQPPublisher{
		url:         url,
		exchange:    exchange,
		dialTimeout: dialTimeout,
		log:         log.With(slog.String("component", "events.amqp")),
	}, nil
}

// dial opens a connection and channel and declares the exchange. The TCP
// connect and the AMQP handshake share one dialTimeout deadline.
func (p *AMQPPublisher) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Locale: "en_US",
		Dial:   amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp exchange declare: %w", err)
	}
	return conn, ch, nil
}

// channel returns the live channel, or starts a background redial and
// reports false.
func (p *AMQPPublisher) channel() (*amqp.Channel, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, true
	}
	p.resetLocked()
	p.redialLocked()
	return nil, false
}

func (p *AMQPPublisher) redialLocked() {
	if p.dialing || p.closed {
		return
	}
	p.dialing = true
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		conn, ch, err := p.dial()

		p.mu.Lock()
		defer p.mu.Unlock()
		p.dialing = false
		if err != nil {
			p.log.Warn("amqp reconnect failed", slog.Any("err", err))
			return
		}
		if p.closed {
			_ = ch.Close()
			_ = conn.Close()
			return
		}
		p.conn, p.ch = conn, ch
		p.log.Info("amqp reconnected")
	}()
}

func (p *AMQPPublisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, ok := p.channel()
	if !ok {
		return ErrNotConnected
	}

	err = ch.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID.String(),
		Type:         string(ev.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err == nil {
		return nil
	}

	p.log.Warn("amqp publish failed", slog.Any("err", err))
	p.mu.Lock()
	if p.ch == ch {
		p.resetLocked()
		p.redialLocked()
	}
	p.mu.Unlock()
	return fmt.Errorf("amqp publish: %w", err)
}

// Close tears down the connection and waits for an in-flight redial, which is
// bounded by the dial timeout.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	p.closed = true
	var err error
	if p.ch != nil {
		err = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
		p.conn = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
	return err
}
