package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"

	"tcpos/internal/domain"
)

const (
	SaleCreated  = "sale.created"
	SaleUpdated  = "sale.updated"
	SaleDeleted  = "sale.deleted"
	SalesCleared = "sales.cleared"
)

type Event struct {
	Type       string       `json:"type"`
	SaleID     string       `json:"saleId,omitempty"`
	Sale       *domain.Sale `json:"sale,omitempty"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// Publisher delivers ledger events to downstream consumers. Delivery is best
// effort; the ledger never waits on or rolls back for a consumer.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() error { return nil }

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchSize:    10,
		BatchTimeout: 500 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Printf("[events] WARN: kafka delivery of %d message(s) failed: %v", len(messages), err)
			}
		},
	}
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", whereami.WhereAmI(), err)
	}
	key := event.SaleID
	if key == "" {
		key = event.Type
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("%s: %w", whereami.WhereAmI(), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
