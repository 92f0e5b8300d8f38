package journal

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

// Analysis compares a trade with the current market snapshot of its symbol.
// A failed enrichment is reported in the Error field rather than as an error.
func (s *Service) Analysis(ctx context.Context, id string) (*models.TradeAnalysis, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	market, err := s.enricher.Enrich(ctx, t.Symbol)
	if err != nil {
		s.log.WithError(err).WithField("trade_id", id).Warn("market analysis unavailable")
		return &models.TradeAnalysis{
			Trade: t,
			Error: "Market analysis unavailable: " + err.Error(),
		}, nil
	}

	return &models.TradeAnalysis{
		Trade:              t,
		MarketAnalysis:     &market,
		PerformanceMetrics: Performance(t, market.Price),
	}, nil
}

// Performance measures the move from the trade's entry and exit to current
func Performance(t *models.Trade, current float64) *models.PerformanceMetrics {
	profitable := current > t.EntryPrice
	if t.Side == models.SideShort {
		profitable = current < t.EntryPrice
	}
	return &models.PerformanceMetrics{
		CurrentPrice:          current,
		PerformanceSinceEntry: pctChange(t.EntryPrice, current),
		PerformanceSinceExit:  pctChange(t.ExitPrice, current),
		WouldBeProfitableNow:  profitable,
	}
}

func pctChange(base, current float64) float64 {
	if base <= 0 {
		return 0
	}
	b := decimal.NewFromFloat(base)
	return decimal.NewFromFloat(current).Sub(b).Div(b).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}
