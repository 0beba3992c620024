// Package events publishes one message per decoded interchange so
// downstream consumers can pick up claims and remittances without polling
// the database.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	TypeClaimsDecoded     = "x12.837.decoded"
	TypeRemittanceDecoded = "x12.835.decoded"

	DefaultTopic = "edi.decoded"
)

var ErrPublisherClosed = errors.New("events: publisher closed")

// Event is the envelope written to the topic.
type Event struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	FileName    string          `json:"file_name"`
	FileHash    string          `json:"file_hash"`
	RecordCount int             `json:"record_count"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// NewEvent builds an event with payload encoded as JSON.
func NewEvent(eventType, fileName, fileHash string, records int, payload any) (Event, error) {
	ev := Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		FileName:    fileName,
		FileHash:    fileHash,
		RecordCount: records,
		Timestamp:   time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("events: encoding payload: %w", err)
		}
		ev.Payload = raw
	}
	return ev, nil
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// ParseBrokers splits a comma separated broker list.
func ParseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// KafkaPublisher writes events to a Kafka topic keyed by file hash, so
// every event for one interchange lands on the same partition.
type KafkaPublisher struct {
	writer WriterInterface

	mu     sync.Mutex
	closed bool
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("events: at least one broker is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaPublisherWithWriter(w), nil
}

func NewKafkaPublisherWithWriter(w WriterInterface) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPublisherClosed
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: encoding event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.FileHash),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
			{Key: "event-id", Value: []byte(ev.ID)},
		},
		Time: ev.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: publishing %s: %w", ev.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// Noop discards events. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
