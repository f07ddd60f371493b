package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher delivers security events. Publish must not block on the
// broker and must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev SecurityEvent) error
}

// Discard drops every event. It is used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, SecurityEvent) error { return nil }

// ErrBufferFull is returned by AMQPPublisher.Publish when the outbound
// buffer is full. The event is dropped.
var ErrBufferFull = errors.New("security event buffer full")

// AMQPPublisher buffers events and publishes them from a single goroutine
// as persistent JSON messages to a durable queue on the default exchange.
// The broker connection is opened lazily and re-dialled after it drops.
type AMQPPublisher struct {
	url    string
	queue  string
	log    *slog.Logger
	events chan SecurityEvent

	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher returns a publisher for queue on the broker at url.
// Events are only sent once Run is started.
func NewAMQPPublisher(url, queue string, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: queue, log: logger, events: make(chan SecurityEvent, 256)}
}

// Publish enqueues ev without waiting for the broker.
func (p *AMQPPublisher) Publish(_ context.Context, ev SecurityEvent) error {
	select {
	case p.events <- ev:
		return nil
	default:
		p.log.Warn("security event dropped", "type", ev.Type, "error", ErrBufferFull)
		return ErrBufferFull
	}
}

// Run sends buffered events until ctx is cancelled, then closes the
// broker connection. Delivery failures are logged and the event dropped.
func (p *AMQPPublisher) Run(ctx context.Context) {
	defer p.close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.events:
			sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := p.send(sendCtx, ev); err != nil {
				p.log.Warn("security event not published", "type", ev.Type, "error", err)
			}
			cancel()
		}
	}
}

// channel returns an open channel, dialling when needed.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("amqp dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	// Durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *AMQPPublisher) send(ctx context.Context, ev SecurityEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) close() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
