package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/dilution-tracker/internal/journal"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

// MockRecorder implements TradeRecorder for testing
type MockRecorder struct {
	recorded  []models.TradeInput
	orderIDs  map[string]bool
	err       error
	existsErr error

	RecordTradeCalls int
}

func (m *MockRecorder) TradeExists(_ context.Context, source, orderID string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.orderIDs[source+"/"+orderID], nil
}

func (m *MockRecorder) RecordTrade(_ context.Context, source, orderID string, in models.TradeInput) error {
	m.RecordTradeCalls++
	if m.err != nil {
		return m.err
	}
	if m.orderIDs == nil {
		m.orderIDs = make(map[string]bool)
	}
	m.orderIDs[source+"/"+orderID] = true
	m.recorded = append(m.recorded, in)
	return nil
}

// MockReader replays a fixed list of messages, then blocks until cancelled
type MockReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	closed   bool
}

func (m *MockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if len(m.messages) == 0 {
		m.mu.Unlock()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := m.messages[0]
	m.messages = m.messages[1:]
	m.mu.Unlock()
	return msg, nil
}

func (m *MockReader) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *MockReader) remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func newTestConsumer(reader messageReader, recorder TradeRecorder) *Consumer {
	log, _ := test.NewNullLogger()
	return &Consumer{reader: reader, topic: "trade-events", recorder: recorder, log: log}
}

// Helper function to create a trade event message for testing
func createTestMessage(t *testing.T, eventType, symbol string, side models.TradeSide, qty, entry, exit float64) kafka.Message {
	t.Helper()
	return createOrderMessage(t, eventType, "order-"+symbol, symbol, side, qty, entry, exit)
}

func createOrderMessage(t *testing.T, eventType, orderID, symbol string, side models.TradeSide, qty, entry, exit float64) kafka.Message {
	t.Helper()
	data, err := json.Marshal(models.TradeEvent{
		EventType: eventType,
		Source:    "robinhood",
		OrderID:   orderID,
		Timestamp: time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC),
		Data: models.TradeInput{
			Symbol:     symbol,
			Side:       side,
			Quantity:   qty,
			EntryPrice: entry,
			ExitPrice:  exit,
		},
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte(symbol), Value: data}
}

// TestTradeClosedIsRecorded verifies a TRADE_CLOSED event reaches the journal
func TestTradeClosedIsRecorded(t *testing.T) {
	recorder := &MockRecorder{}
	consumer := newTestConsumer(nil, recorder)

	msg := createTestMessage(t, EventTradeClosed, "AAPL", models.SideLong, 100, 175.50, 178.25)
	require.NoError(t, consumer.processMessage(context.Background(), msg))

	require.Len(t, recorder.recorded, 1)
	in := recorder.recorded[0]
	assert.Equal(t, "AAPL", in.Symbol)
	assert.Equal(t, models.SideLong, in.Side)
	assert.Equal(t, 100.0, in.Quantity)
	assert.Equal(t, 178.25, in.ExitPrice)
}

// TestOtherEventsAreIgnored verifies non-closing events are skipped
func TestOtherEventsAreIgnored(t *testing.T) {
	recorder := &MockRecorder{}
	consumer := newTestConsumer(nil, recorder)

	for _, eventType := range []string{"TRADE_DETECTED", "POSITION_SNAPSHOT", ""} {
		msg := createTestMessage(t, eventType, "TSLA", models.SideShort, 5, 200, 190)
		require.NoError(t, consumer.processMessage(context.Background(), msg))
	}
	assert.Zero(t, recorder.RecordTradeCalls)
}

// TestMalformedMessage verifies a bad payload is an error and nothing is recorded
func TestMalformedMessage(t *testing.T) {
	recorder := &MockRecorder{}
	consumer := newTestConsumer(nil, recorder)

	err := consumer.processMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal trade event")
	assert.Zero(t, recorder.RecordTradeCalls)
}

// TestRecorderErrorIsWrapped verifies journal validation failures surface with context
func TestRecorderErrorIsWrapped(t *testing.T) {
	sentinel := errors.New("invalid trade")
	consumer := newTestConsumer(nil, &MockRecorder{err: sentinel})

	msg := createTestMessage(t, EventTradeClosed, "", models.SideLong, 1, 1, 1)
	err := consumer.processMessage(context.Background(), msg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel))
	assert.Contains(t, err.Error(), "robinhood")
}

// TestStartProcessesUntilCancelled verifies the read loop records every
// message, survives bad ones and closes the reader on shutdown
func TestStartProcessesUntilCancelled(t *testing.T) {
	reader := &MockReader{messages: []kafka.Message{
		createTestMessage(t, EventTradeClosed, "AMC", models.SideLong, 10, 4, 5),
		{Value: []byte("garbage")},
		createTestMessage(t, EventTradeClosed, "GME", models.SideShort, 10, 20, 18),
	}}
	recorder := &MockRecorder{}
	consumer := newTestConsumer(reader, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	require.Eventually(t, func() bool { return reader.remaining() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}

	assert.True(t, reader.closed)
	require.Len(t, recorder.recorded, 2)
	assert.Equal(t, "AMC", recorder.recorded[0].Symbol)
	assert.Equal(t, "GME", recorder.recorded[1].Symbol)
}

// TestRedeliveredTradeIsRecordedOnce verifies a message delivered twice
// produces a single journal entry
func TestRedeliveredTradeIsRecordedOnce(t *testing.T) {
	log, _ := test.NewNullLogger()
	svc := journal.NewService(journal.NewMemoryStore(), nil, nil, log)
	consumer := newTestConsumer(nil, svc)
	ctx := context.Background()

	msg := createOrderMessage(t, EventTradeClosed, "ord-1", "AAPL", models.SideLong, 100, 175.50, 178.25)
	require.NoError(t, consumer.processMessage(ctx, msg))
	require.NoError(t, consumer.processMessage(ctx, msg))

	trades, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "ord-1", trades[0].OrderID)
	assert.Equal(t, "robinhood", trades[0].Source)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTrades)
	assert.Equal(t, 275.0, stats.TotalPnl)

	other := createOrderMessage(t, EventTradeClosed, "ord-2", "AAPL", models.SideLong, 100, 175.50, 178.25)
	require.NoError(t, consumer.processMessage(ctx, other))
	trades, _ = svc.List(ctx, 0, 0)
	assert.Len(t, trades, 2)
}

// TestDuplicateSkipsRecorder verifies a known order never reaches RecordTrade
func TestDuplicateSkipsRecorder(t *testing.T) {
	recorder := &MockRecorder{orderIDs: map[string]bool{"robinhood/ord-7": true}}
	consumer := newTestConsumer(nil, recorder)

	msg := createOrderMessage(t, EventTradeClosed, "ord-7", "TSLA", models.SideShort, 5, 200, 190)
	require.NoError(t, consumer.processMessage(context.Background(), msg))
	assert.Zero(t, recorder.RecordTradeCalls)
}

// TestDuplicateFromStoreIsNotAnError verifies a race lost at insert time is
// treated like a detected duplicate
func TestDuplicateFromStoreIsNotAnError(t *testing.T) {
	recorder := &MockRecorder{err: journal.ErrDuplicateTrade}
	consumer := newTestConsumer(nil, recorder)

	msg := createOrderMessage(t, EventTradeClosed, "ord-8", "TSLA", models.SideShort, 5, 200, 190)
	assert.NoError(t, consumer.processMessage(context.Background(), msg))
}

// TestTradeEventWithoutOrderID verifies events that cannot be deduplicated
// are rejected
func TestTradeEventWithoutOrderID(t *testing.T) {
	recorder := &MockRecorder{}
	consumer := newTestConsumer(nil, recorder)

	msg := createOrderMessage(t, EventTradeClosed, "", "TSLA", models.SideShort, 5, 200, 190)
	err := consumer.processMessage(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no order_id")
	assert.Zero(t, recorder.RecordTradeCalls)
}

// TestDuplicateCheckErrorIsWrapped verifies lookup failures are surfaced
func TestDuplicateCheckErrorIsWrapped(t *testing.T) {
	sentinel := errors.New("connection refused")
	recorder := &MockRecorder{existsErr: sentinel}
	consumer := newTestConsumer(nil, recorder)

	msg := createTestMessage(t, EventTradeClosed, "TSLA", models.SideShort, 5, 200, 190)
	err := consumer.processMessage(context.Background(), msg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel))
	assert.Contains(t, err.Error(), "failed to check for duplicate trade")
	assert.Zero(t, recorder.RecordTradeCalls)
}
