package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/dilution-tracker/internal/journal"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

// EventTradeClosed is the only event type the Consumer records
const EventTradeClosed = "TRADE_CLOSED"

// TradeRecorder stores a closed trade in the journal
type TradeRecorder interface {
	TradeExists(ctx context.Context, source, orderID string) (bool, error)
	RecordTrade(ctx context.Context, source, orderID string, in models.TradeInput) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads closed trades from a broker feed and records them in the
// journal.
type Consumer struct {
	reader   messageReader
	topic    string
	recorder TradeRecorder
	log      logrus.FieldLogger
}

// NewConsumer creates a new Kafka consumer for trade events
func NewConsumer(brokers []string, topic, groupID string, recorder TradeRecorder, log logrus.FieldLogger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:   reader,
		topic:    topic,
		recorder: recorder,
		log:      log.WithField("topic", topic),
	}
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info("starting kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				c.log.WithError(err).Warn("failed to read message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.WithError(err).WithFields(logrus.Fields{
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Warn("failed to process message")
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.TradeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal trade event: %w", err)
	}

	if event.EventType != EventTradeClosed {
		c.log.WithField("event_type", event.EventType).Debug("ignoring event")
		return nil
	}

	if event.OrderID == "" {
		return fmt.Errorf("trade event from %s has no order_id", event.Source)
	}

	// Deliveries are at least once
	exists, err := c.recorder.TradeExists(ctx, event.Source, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate trade: %w", err)
	}
	if exists {
		c.log.WithFields(logrus.Fields{
			"order_id": event.OrderID,
			"source":   event.Source,
		}).Info("trade already recorded, skipping")
		return nil
	}

	if err := c.recorder.RecordTrade(ctx, event.Source, event.OrderID, event.Data); err != nil {
		if errors.Is(err, journal.ErrDuplicateTrade) {
			c.log.WithField("order_id", event.OrderID).Info("trade already recorded, skipping")
			return nil
		}
		return fmt.Errorf("failed to record trade from %s: %w", event.Source, err)
	}

	c.log.WithFields(logrus.Fields{
		"order_id": event.OrderID,
		"symbol":   event.Data.Symbol,
		"side":     event.Data.Side,
		"source":   event.Source,
	}).Info("recorded closed trade")
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
