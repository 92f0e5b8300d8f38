package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

// Stats summarizes every trade in the journal. Today and week buckets are by
// creation time; the week is the trailing seven days.
func (s *Service) Stats(ctx context.Context) (*models.TradeStats, error) {
	trades, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}
	return Summarize(trades, s.now()), nil
}

// Summarize computes TradeStats for trades as of now
func Summarize(trades []*models.Trade, now time.Time) *models.TradeStats {
	stats := &models.TradeStats{}
	if len(trades) == 0 {
		return stats
	}

	y, m, d := now.Date()
	loc := now.Location()
	weekAgo := now.AddDate(0, 0, -7)

	var total, today, week, profit, loss decimal.Decimal
	for _, t := range trades {
		pnl := decimal.NewFromFloat(t.NetPnl)
		total = total.Add(pnl)

		switch {
		case t.NetPnl > 0:
			stats.WinningTrades++
			profit = profit.Add(pnl)
		case t.NetPnl < 0:
			stats.LosingTrades++
			loss = loss.Add(pnl)
		}

		created := t.CreatedAt.In(loc)
		if cy, cm, cd := created.Date(); cy == y && cm == m && cd == d {
			stats.TodayTrades++
			today = today.Add(pnl)
		}
		if !created.Before(weekAgo) {
			stats.WeekTrades++
			week = week.Add(pnl)
		}
	}

	stats.TotalTrades = len(trades)
	stats.WinRate = float64(stats.WinningTrades*100) / float64(stats.TotalTrades)
	stats.TotalPnl = total.InexactFloat64()
	stats.TodayPnl = today.InexactFloat64()
	stats.WeekPnl = week.InexactFloat64()

	if stats.WinningTrades > 0 {
		stats.AvgWin = profit.Div(decimal.NewFromInt(int64(stats.WinningTrades))).InexactFloat64()
	}
	if stats.LosingTrades > 0 {
		stats.AvgLoss = loss.Div(decimal.NewFromInt(int64(stats.LosingTrades))).InexactFloat64()
		stats.ProfitFactor = profit.Div(loss.Abs()).InexactFloat64()
	}
	return stats
}
