// Package notify renders customer and staff notifications and hands them to
// a delivery backend. Real WhatsApp and SMTP delivery happens downstream of
// the Kafka topic.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Channel is the medium a message is delivered on.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

// Kind identifies the template a message was rendered from.
type Kind string

const (
	KindRequestReceived Kind = "REQ_RECEIVED"
	KindQuoteReady      Kind = "QUOTE_READY"
	KindInquiryAlert    Kind = "INQUIRY_ALERT"
	KindCustomerReceipt Kind = "CUSTOMER_RECEIPT"
	KindAdminAlert      Kind = "ADMIN_ALERT"
)

// ErrNoRecipient is returned for messages without a destination.
var ErrNoRecipient = errors.New("notification has no recipient")

// Message is one rendered notification.
type Message struct {
	ID           string    `json:"id"`
	Channel      Channel   `json:"channel"`
	Kind         Kind      `json:"kind"`
	To           string    `json:"to"`
	Subject      string    `json:"subject,omitempty"`
	Body         string    `json:"body"`
	HTML         bool      `json:"html,omitempty"`
	HighPriority bool      `json:"highPriority,omitempty"`
	OrderID      string    `json:"orderId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Notifier delivers messages.
type Notifier interface {
	Send(ctx context.Context, m Message) error
}

// messageWriter is the part of *kafka.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes messages to a topic for the delivery workers.
type KafkaNotifier struct {
	writer messageWriter
}

// NewKafkaWriter returns a synchronous writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaNotifier(w messageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: w}
}

// Send publishes m keyed by order id so messages for one order stay ordered.
func (k *KafkaNotifier) Send(ctx context.Context, m Message) error {
	if m.To == "" {
		return ErrNoRecipient
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(m.OrderID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "channel", Value: []byte(m.Channel)},
			{Key: "kind", Value: []byte(m.Kind)},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: m.CreatedAt,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s notification: %w", m.Kind, err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

func (l *LogNotifier) Send(_ context.Context, m Message) error {
	if m.To == "" {
		return ErrNoRecipient
	}
	event := l.logger.Info()
	if m.HighPriority {
		event = l.logger.Warn()
	}
	body := m.Body
	if m.HTML {
		body = fmt.Sprintf("<%d bytes of html>", len(m.Body))
	}
	event.
		Str("channel", string(m.Channel)).
		Str("kind", string(m.Kind)).
		Str("to", m.To).
		Str("order_id", m.OrderID).
		Str("subject", m.Subject).
		Str("body", body).
		Msg("notification sent")
	return nil
}

// SendAll delivers every message and joins the failures. Messages without a
// recipient are skipped.
func SendAll(ctx context.Context, n Notifier, msgs ...Message) error {
	var errs []error
	for _, m := range msgs {
		if m.To == "" {
			continue
		}
		if err := n.Send(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
