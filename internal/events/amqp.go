package events

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const queuePrefix = "gymdesk.events."

// AMQPSink publishes events to one durable queue per event type. The
// connection is opened on first use and reopened after it drops.
type AMQPSink struct {
	url string

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

func NewAMQPSink(url string) *AMQPSink {
	return &AMQPSink{url: url, declared: map[string]bool{}}
}

func QueueName(eventType string) string {
	return queuePrefix + eventType
}

func (s *AMQPSink) channel() (*amqp.Channel, error) {
	if s.conn != nil && !s.conn.IsClosed() && s.ch != nil && !s.ch.IsClosed() {
		return s.ch, nil
	}
	s.closeLocked()

	conn, err := amqp.Dial(s.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	s.conn, s.ch = conn, ch
	s.declared = map[string]bool{}
	return ch, nil
}

func (s *AMQPSink) Send(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, err := s.channel()
	if err != nil {
		return err
	}

	queue := QueueName(ev.Type)
	if !s.declared[queue] {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("rabbitmq queue declare: %w", err)
		}
		s.declared[queue] = true
	}

	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    ev.Created,
		Body:         ev.Payload,
	})
}

func (s *AMQPSink) closeLocked() {
	if s.ch != nil {
		_ = s.ch.Close()
		s.ch = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}
