// Package events publishes document lifecycle events on Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelPrefix = "invoicing:events:"
	ChannelAll    = "invoicing:events:all"

	QuotationCreated   = "quotation.created"
	QuotationUpdated   = "quotation.updated"
	QuotationDeleted   = "quotation.deleted"
	QuotationConverted = "quotation.converted"
	InvoiceCreated     = "invoice.created"
	InvoiceUpdated     = "invoice.updated"
	InvoiceDeleted     = "invoice.deleted"
	PaymentRecorded    = "payment.recorded"
)

type Event struct {
	EventType      string    `json:"event_type"`
	UserID         int64     `json:"user_id"`
	DocumentID     int64     `json:"document_id"`
	DocumentNumber string    `json:"document_number,omitempty"`
	Status         string    `json:"status,omitempty"`
	Total          string    `json:"total,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Data           any       `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, ChannelPrefix+event.EventType, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := p.client.Publish(ctx, ChannelAll, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish to all channel: %w", err)
	}
	return nil
}

// NopPublisher drops every event. Used when Redis is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
	return nil
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		types = append(types, e.EventType)
	}
	return types
}
