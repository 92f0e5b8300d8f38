// Package journal records completed trades, derives their P&L and
// risk/reward, summarizes performance and compares trades with the market.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/dilution-tracker/internal/enrich"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

// DefaultUserID owns every trade until authentication exists
const DefaultUserID = "demo_user"

// Default pagination for List
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

var (
	// ErrTradeNotFound is returned when no trade has the requested ID
	ErrTradeNotFound = errors.New("trade not found")
	// ErrInvalidTrade is returned for input that fails validation
	ErrInvalidTrade = errors.New("invalid trade")
	// ErrDuplicateTrade is returned when a feed delivers an order that is
	// already recorded
	ErrDuplicateTrade = errors.New("duplicate trade")
)

// Enricher supplies the current market snapshot for a symbol
type Enricher interface {
	Enrich(ctx context.Context, ticker string) (models.EnrichedTicker, error)
}

// Publisher announces newly recorded trades
type Publisher interface {
	PublishTradeRecorded(ctx context.Context, t *models.Trade) error
}

// Service is the trade journal
type Service struct {
	store     Store
	enricher  Enricher
	publisher Publisher
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewService creates a journal Service. publisher may be nil.
func NewService(store Store, enricher Enricher, publisher Publisher, log logrus.FieldLogger) *Service {
	return &Service{
		store:     store,
		enricher:  enricher,
		publisher: publisher,
		log:       log.WithField("component", "journal"),
		now:       time.Now,
	}
}

// Validate normalizes in and checks the required fields
func Validate(in *models.TradeInput) error {
	in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	in.Side = models.TradeSide(strings.ToUpper(strings.TrimSpace(string(in.Side))))
	if in.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidTrade)
	}
	if _, err := enrich.NormalizeTicker(in.Symbol); err != nil {
		return fmt.Errorf("%w: symbol must be 1-10 letters, digits, dots or dashes", ErrInvalidTrade)
	}
	if !in.Side.Valid() {
		return fmt.Errorf("%w: side must be LONG or SHORT", ErrInvalidTrade)
	}
	if in.Date != nil {
		if _, err := time.Parse("2006-01-02", *in.Date); err != nil {
			return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidTrade)
		}
	}
	return nil
}

// Create records a trade with its derived P&L and risk/reward
func (s *Service) Create(ctx context.Context, in models.TradeInput) (*models.Trade, error) {
	return s.create(ctx, in, "", "")
}

func (s *Service) create(ctx context.Context, in models.TradeInput, source, orderID string) (*models.Trade, error) {
	if err := Validate(&in); err != nil {
		return nil, err
	}

	now := s.now()
	gross, net := ComputePnl(in)
	t := &models.Trade{
		TradeInput: in,
		UserID:     DefaultUserID,
		GrossPnl:   gross,
		NetPnl:     net,
		RiskReward: RiskReward(in),
		Source:     source,
		OrderID:    orderID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"trade_id": t.ID,
		"symbol":   t.Symbol,
		"net_pnl":  t.NetPnl,
	}).Info("trade recorded")

	if s.publisher != nil {
		if err := s.publisher.PublishTradeRecorded(ctx, t); err != nil {
			s.log.WithError(err).WithField("trade_id", t.ID).Warn("failed to publish trade event")
		}
	}
	return t, nil
}

// TradeExists reports whether the order from source is already recorded
func (s *Service) TradeExists(ctx context.Context, source, orderID string) (bool, error) {
	return s.store.ExistsByOrderID(ctx, source, orderID)
}

// RecordTrade records a closed trade delivered by an event feed. A second
// delivery of the same order fails with ErrDuplicateTrade.
func (s *Service) RecordTrade(ctx context.Context, source, orderID string, in models.TradeInput) error {
	if orderID == "" {
		return fmt.Errorf("%w: order_id is required", ErrInvalidTrade)
	}
	_, err := s.create(ctx, in, source, orderID)
	return err
}

// Get returns the trade with id
func (s *Service) Get(ctx context.Context, id string) (*models.Trade, error) {
	return s.store.Get(ctx, id)
}

// List returns a page of trades in insertion order
func (s *Service) List(ctx context.Context, offset, limit int) ([]*models.Trade, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	trades, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// Update replaces the input fields of a trade and recomputes the derived
// fields. The ID, owner and creation time are kept.
func (s *Service) Update(ctx context.Context, id string, in models.TradeInput) (*models.Trade, error) {
	if err := Validate(&in); err != nil {
		return nil, err
	}

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	gross, net := ComputePnl(in)
	existing.TradeInput = in
	existing.GrossPnl = gross
	existing.NetPnl = net
	existing.RiskReward = RiskReward(in)
	existing.UpdatedAt = s.now()

	if err := s.store.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes the trade with id
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
