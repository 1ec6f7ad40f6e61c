package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tcpos/internal/domain"
)

func TestNoopAcceptsEverything(t *testing.T) {
	var p Publisher = Noop{}
	if err := p.Publish(context.Background(), Event{Type: SalesCleared}); err != nil {
		t.Fatalf("expected noop publish to succeed, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("expected noop close to succeed, got %v", err)
	}
}

func TestEventEncodesSale(t *testing.T) {
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(Event{
		Type:       SaleCreated,
		SaleID:     "sale-1",
		Sale:       &domain.Sale{ID: "sale-1", ReceiptNumber: "RCP000001"},
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != SaleCreated || decoded["saleId"] != "sale-1" {
		t.Fatalf("unexpected payload %s", raw)
	}
	sale, ok := decoded["sale"].(map[string]any)
	if !ok || sale["receiptNumber"] != "RCP000001" {
		t.Fatalf("expected embedded sale, got %s", raw)
	}
}

func TestKafkaPublisherConfiguresWriter(t *testing.T) {
	p := NewKafkaPublisher([]string{"127.0.0.1:9092"}, "pos.sales")
	t.Cleanup(func() {
		_ = p.Close()
	})
	if p.writer.Topic != "pos.sales" {
		t.Fatalf("expected topic pos.sales, got %s", p.writer.Topic)
	}
	if !p.writer.Async {
		t.Fatalf("expected async writer so checkout never blocks on the broker")
	}
}
