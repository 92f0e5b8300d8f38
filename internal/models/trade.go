package models

import (
	"time"
)

// TradeSide is the direction of a journal trade
type TradeSide string

// Trade side constants
const (
	SideLong  TradeSide = "LONG"
	SideShort TradeSide = "SHORT"
)

// Valid reports whether s is a known side
func (s TradeSide) Valid() bool {
	return s == SideLong || s == SideShort
}

// TradeInput is the user-entered part of a journal trade
type TradeInput struct {
	Symbol           string     `json:"symbol"`
	Side             TradeSide  `json:"side"`
	Quantity         float64    `json:"quantity"`
	EntryPrice       float64    `json:"entry_price"`
	ExitPrice        float64    `json:"exit_price"`
	Commission       float64    `json:"commission"`
	Setup            *string    `json:"setup"`
	Mistakes         *string    `json:"mistakes"`
	Lessons          *string    `json:"lessons"`
	MarketConditions *string    `json:"market_conditions"`
	SectorMomentum   *string    `json:"sector_momentum"`
	StopLoss         *float64   `json:"stop_loss"`
	Target           *float64   `json:"target"`
	Date             *string    `json:"date"`
	EntryTime        *time.Time `json:"entry_time"`
	ExitTime         *time.Time `json:"exit_time"`
}

// Trade represents a completed position with its derived P&L
type Trade struct {
	TradeInput
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	GrossPnl   float64   `json:"gross_pnl"`
	NetPnl     float64   `json:"net_pnl"`
	RiskReward *float64  `json:"risk_reward"`
	Source     string    `json:"source,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TradeStats is the journal summary
type TradeStats struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPnl      float64 `json:"total_pnl"`
	TodayPnl      float64 `json:"today_pnl"`
	TodayTrades   int     `json:"today_trades"`
	WeekPnl       float64 `json:"week_pnl"`
	WeekTrades    int     `json:"week_trades"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`
	ProfitFactor  float64 `json:"profit_factor"`
}

// PerformanceMetrics compares a trade with the current market price
type PerformanceMetrics struct {
	CurrentPrice          float64 `json:"current_price"`
	PerformanceSinceEntry float64 `json:"performance_since_entry"`
	PerformanceSinceExit  float64 `json:"performance_since_exit"`
	WouldBeProfitableNow  bool    `json:"would_be_profitable_now"`
}

// TradeAnalysis is the per-trade market analysis payload
type TradeAnalysis struct {
	Trade              *Trade              `json:"trade"`
	MarketAnalysis     *EnrichedTicker     `json:"market_analysis"`
	PerformanceMetrics *PerformanceMetrics `json:"performance_metrics"`
	Error              string              `json:"error,omitempty"`
}

// TradeEvent is a Kafka message carrying a closed trade from a broker feed
type TradeEvent struct {
	EventType string     `json:"event_type"`
	Source    string     `json:"source"`
	OrderID   string     `json:"order_id"`
	Timestamp time.Time  `json:"timestamp"`
	Data      TradeInput `json:"data"`
}

// JournalEvent represents a Kafka event for a newly recorded journal trade
type JournalEvent struct {
	EventType string    `json:"event_type"`
	Trade     *Trade    `json:"trade"`
	Timestamp time.Time `json:"timestamp"`
}
