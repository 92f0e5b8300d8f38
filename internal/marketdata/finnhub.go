package marketdata

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

// Finnhub reports share counts and market capitalization in millions
const finnhubUnit = 1_000_000

// FinnhubClient fetches quotes, company profiles, metrics and news from Finnhub
type FinnhubClient struct {
	rest   *restClient
	apiKey string
}

// NewFinnhubClient creates a new Finnhub client
func NewFinnhubClient(baseURL, apiKey string, timeout time.Duration, log logrus.FieldLogger) *FinnhubClient {
	return &FinnhubClient{
		rest:   newRestClient("finnhub", baseURL, timeout, log),
		apiKey: apiKey,
	}
}

type finnhubQuote struct {
	Current   float64 `json:"c"`
	PrevClose float64 `json:"pc"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	ChangePct float64 `json:"dp"`
	Volume    float64 `json:"v"`
}

type finnhubProfile struct {
	ShareOutstanding     *float64 `json:"shareOutstanding"`
	MarketCapitalization *float64 `json:"marketCapitalization"`
}

type finnhubMetrics struct {
	Metric struct {
		Week52High   *float64 `json:"52WeekHigh"`
		Week52Low    *float64 `json:"52WeekLow"`
		AvgVolume10D *float64 `json:"10DayAverageTradingVolume"`
	} `json:"metric"`
}

type finnhubNews struct {
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
}

// Quote returns the current quote for ticker
func (c *FinnhubClient) Quote(ctx context.Context, ticker string) (models.Quote, bool) {
	var q finnhubQuote
	if !c.rest.getJSON(ctx, "/quote", c.params(ticker), &q) {
		return models.Quote{}, false
	}
	return models.Quote{
		Current:   q.Current,
		PrevClose: q.PrevClose,
		Open:      q.Open,
		High:      q.High,
		Low:       q.Low,
		ChangePct: q.ChangePct,
		Volume:    q.Volume,
	}, true
}

// Profile returns float shares and market capitalization in absolute units
func (c *FinnhubClient) Profile(ctx context.Context, ticker string) (models.CompanyProfile, bool) {
	var p finnhubProfile
	if !c.rest.getJSON(ctx, "/stock/profile2", c.params(ticker), &p) {
		return models.CompanyProfile{}, false
	}
	return models.CompanyProfile{
		FloatShares: scaled(p.ShareOutstanding),
		MarketCap:   scaled(p.MarketCapitalization),
	}, true
}

// Metrics returns the 52-week range and 10-day average volume
func (c *FinnhubClient) Metrics(ctx context.Context, ticker string) (models.KeyMetrics, bool) {
	params := c.params(ticker)
	params["metric"] = "all"

	var m finnhubMetrics
	if !c.rest.getJSON(ctx, "/stock/metric", params, &m) {
		return models.KeyMetrics{}, false
	}
	return models.KeyMetrics{
		Week52High:   m.Metric.Week52High,
		Week52Low:    m.Metric.Week52Low,
		AvgVolume10D: m.Metric.AvgVolume10D,
	}, true
}

// CompanyNews returns company headlines published between from and to,
// in the order the provider returned them.
func (c *FinnhubClient) CompanyNews(ctx context.Context, ticker string, from, to time.Time) ([]models.NewsItem, bool) {
	params := c.params(ticker)
	params["from"] = from.Format("2006-01-02")
	params["to"] = to.Format("2006-01-02")

	var raw []finnhubNews
	if !c.rest.getJSON(ctx, "/company-news", params, &raw) {
		return nil, false
	}

	items := make([]models.NewsItem, 0, len(raw))
	for _, n := range raw {
		items = append(items, models.NewsItem{
			Headline:    n.Headline,
			PublishedAt: time.Unix(n.DateTime, 0).UTC(),
		})
	}
	return items, true
}

func (c *FinnhubClient) params(ticker string) map[string]string {
	return map[string]string{
		"symbol": ticker,
		"token":  c.apiKey,
	}
}

func scaled(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v * finnhubUnit
	return &out
}
