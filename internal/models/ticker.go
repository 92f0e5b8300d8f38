package models

import "time"

// RiskTier classifies how much registered-but-unsold stock hangs over the float
type RiskTier string

// Risk tier constants
const (
	RiskUnknown RiskTier = "Unknown"
	RiskLow     RiskTier = "Low"
	RiskMedium  RiskTier = "Medium"
	RiskHigh    RiskTier = "High"
)

// Upstream source names reported in EnrichedTicker.Unavailable
const (
	SourceQuote   = "quote"
	SourceProfile = "profile"
	SourceMetrics = "metrics"
	SourceFilings = "filings"
	SourceNews    = "news"
)

// Sources lists every upstream source in reporting order
var Sources = []string{SourceQuote, SourceProfile, SourceMetrics, SourceFilings, SourceNews}

// Quote is a point-in-time price snapshot. Fields are zero when unavailable.
type Quote struct {
	Current   float64 `json:"current"`
	PrevClose float64 `json:"prev_close"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	ChangePct float64 `json:"change_pct"`
	Volume    float64 `json:"volume"`
}

// CompanyProfile holds share structure data for a company
type CompanyProfile struct {
	FloatShares *float64 `json:"float_shares,omitempty"`
	MarketCap   *float64 `json:"market_cap,omitempty"`
}

// KeyMetrics holds range and liquidity statistics
type KeyMetrics struct {
	Week52High   *float64 `json:"week_52_high,omitempty"`
	Week52Low    *float64 `json:"week_52_low,omitempty"`
	AvgVolume10D *float64 `json:"avg_volume_10d,omitempty"`
}

// NewsItem is a single company headline
type NewsItem struct {
	Headline    string    `json:"headline"`
	PublishedAt time.Time `json:"published_at"`
}

// EnrichedTicker is the aggregate result of one enrichment call
type EnrichedTicker struct {
	Ticker            string   `json:"ticker"`
	Price             float64  `json:"price"`
	PrevClose         float64  `json:"prev_close"`
	Open              float64  `json:"open"`
	High              float64  `json:"high"`
	Low               float64  `json:"low"`
	GapPct            float64  `json:"gap_pct"`
	ChangePct         float64  `json:"change_pct"`
	Volume            float64  `json:"volume"`
	AvgVolume10D      *float64 `json:"avg_volume_10d"`
	MarketCap         *float64 `json:"market_cap"`
	FloatShares       float64  `json:"float_shares"`
	DilutionRemaining float64  `json:"dilution_remaining"`
	DilutionPctFloat  *float64 `json:"dilution_pct_float"`
	Risk              RiskTier `json:"risk"`
	Week52High        *float64 `json:"week_52_high"`
	Week52Low         *float64 `json:"week_52_low"`
	LatestFiling      *string  `json:"latest_filing"`
	News              []string `json:"news"`

	// Unavailable lists the upstream sources that could not be fetched,
	// so a zero field can be told apart from a failed fetch.
	Unavailable []string `json:"unavailable,omitempty"`
}

// TickerEvent represents a Kafka event for enrichment and watchlist changes
type TickerEvent struct {
	EventType string          `json:"event_type"`
	Symbol    string          `json:"symbol"`
	Ticker    *EnrichedTicker `json:"ticker,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// FetchedNothing reports whether every upstream source failed for t
func (t *EnrichedTicker) FetchedNothing() bool {
	return len(t.Unavailable) >= len(Sources)
}
