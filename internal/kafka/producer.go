package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

// Event types published by the Producer
const (
	EventTickerEnriched   = "TICKER_ENRICHED"
	EventWatchlistAdded   = "WATCHLIST_ADDED"
	EventWatchlistRemoved = "WATCHLIST_REMOVED"
	EventTradeRecorded    = "TRADE_RECORDED"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishTickerEnriched publishes a refreshed enrichment result
func (p *Producer) PublishTickerEnriched(ctx context.Context, result *models.EnrichedTicker) error {
	event := models.TickerEvent{
		EventType: EventTickerEnriched,
		Symbol:    result.Ticker,
		Ticker:    result,
		Timestamp: p.now(),
	}
	return p.publish(ctx, result.Ticker, event)
}

// PublishWatchlistAdded publishes a watchlist added event
func (p *Producer) PublishWatchlistAdded(ctx context.Context, symbol string) error {
	event := models.TickerEvent{
		EventType: EventWatchlistAdded,
		Symbol:    symbol,
		Timestamp: p.now(),
	}
	return p.publish(ctx, symbol, event)
}

// PublishWatchlistRemoved publishes a watchlist removed event
func (p *Producer) PublishWatchlistRemoved(ctx context.Context, symbol string) error {
	event := models.TickerEvent{
		EventType: EventWatchlistRemoved,
		Symbol:    symbol,
		Timestamp: p.now(),
	}
	return p.publish(ctx, symbol, event)
}

// PublishTradeRecorded publishes a newly recorded journal trade
func (p *Producer) PublishTradeRecorded(ctx context.Context, t *models.Trade) error {
	event := models.JournalEvent{
		EventType: EventTradeRecorded,
		Trade:     t,
		Timestamp: p.now(),
	}
	return p.publish(ctx, t.Symbol, event)
}

func (p *Producer) publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
