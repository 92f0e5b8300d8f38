// Package enrich assembles one normalized market snapshot per ticker from
// independent upstream sources.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/dilution-tracker/internal/dilution"
	"github.com/trogers1052/dilution-tracker/internal/models"
	"golang.org/x/sync/errgroup"
)

// MaxHeadlines is the number of headlines kept per ticker
const MaxHeadlines = 3

// NewsWindow is how far back news is searched
const NewsWindow = 7 * 24 * time.Hour

// ErrInvalidTicker is returned for blank or malformed symbols
var ErrInvalidTicker = errors.New("invalid ticker symbol")

var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

// MarketData provides quote, profile and metrics lookups
type MarketData interface {
	Quote(ctx context.Context, ticker string) (models.Quote, bool)
	Profile(ctx context.Context, ticker string) (models.CompanyProfile, bool)
	Metrics(ctx context.Context, ticker string) (models.KeyMetrics, bool)
}

// FilingSource provides dilution-relevant registration filings, most recent first
type FilingSource interface {
	DilutionFilings(ctx context.Context, ticker string) ([]models.Filing, bool)
}

// NewsSource provides company headlines for a date window
type NewsSource interface {
	CompanyNews(ctx context.Context, ticker string, from, to time.Time) ([]models.NewsItem, bool)
}

// Enricher fans out to every upstream source and joins the results
type Enricher struct {
	market  MarketData
	filings FilingSource
	news    NewsSource
	log     logrus.FieldLogger
	now     func() time.Time
}

// New creates an Enricher
func New(market MarketData, filings FilingSource, news NewsSource, log logrus.FieldLogger) *Enricher {
	return &Enricher{
		market:  market,
		filings: filings,
		news:    news,
		log:     log,
		now:     time.Now,
	}
}

// NormalizeTicker trims and uppercases a symbol and validates its shape
func NormalizeTicker(raw string) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if !tickerPattern.MatchString(ticker) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, raw)
	}
	return ticker, nil
}

// fetched holds the joined upstream results for one ticker
type fetched struct {
	quote     models.Quote
	profile   models.CompanyProfile
	metrics   models.KeyMetrics
	filings   []models.Filing
	news      []models.NewsItem
	missing   []string
	missingMu sync.Mutex
}

func (f *fetched) markMissing(source string) {
	f.missingMu.Lock()
	f.missing = append(f.missing, source)
	f.missingMu.Unlock()
}

// Enrich fetches every source for ticker concurrently and assembles the
// result. Upstream failures never fail the call; they leave defaults in
// place and are listed in EnrichedTicker.Unavailable.
func (e *Enricher) Enrich(ctx context.Context, raw string) (models.EnrichedTicker, error) {
	ticker, err := NormalizeTicker(raw)
	if err != nil {
		return models.EnrichedTicker{}, err
	}

	log := e.log.WithField("ticker", ticker)
	today := e.now()
	res := &fetched{}

	// Tasks never return an error so one failure cannot cancel its siblings.
	var g errgroup.Group
	run := func(source string, fn func() bool) {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(logrus.Fields{
						"source": source,
						"panic":  r,
						"stack":  string(debug.Stack()),
					}).Error("upstream fetch panicked")
					res.markMissing(source)
				}
			}()
			if !fn() {
				res.markMissing(source)
			}
			return nil
		})
	}

	run(models.SourceQuote, func() (ok bool) {
		res.quote, ok = e.market.Quote(ctx, ticker)
		return ok
	})
	run(models.SourceProfile, func() (ok bool) {
		res.profile, ok = e.market.Profile(ctx, ticker)
		return ok
	})
	run(models.SourceMetrics, func() (ok bool) {
		res.metrics, ok = e.market.Metrics(ctx, ticker)
		return ok
	})
	run(models.SourceFilings, func() (ok bool) {
		res.filings, ok = e.filings.DilutionFilings(ctx, ticker)
		return ok
	})
	run(models.SourceNews, func() (ok bool) {
		res.news, ok = e.news.CompanyNews(ctx, ticker, today.Add(-NewsWindow), today)
		return ok
	})

	_ = g.Wait()

	if len(res.missing) > 0 {
		log.WithField("unavailable", res.missing).Debug("enriched with missing sources")
	}
	return assemble(ticker, res), nil
}

func assemble(ticker string, res *fetched) models.EnrichedTicker {
	q := res.quote

	gap := 0.0
	if q.PrevClose != 0 {
		gap = (q.Current - q.PrevClose) / q.PrevClose * 100
	}
	change := q.ChangePct
	if change == 0 {
		change = gap
	}

	var floatShares float64
	if res.profile.FloatShares != nil {
		floatShares = *res.profile.FloatShares
	}
	assessment := dilution.Calculate(res.filings, floatShares)

	var dilutionPct *float64
	if assessment.Fraction != 0 || len(res.filings) > 0 {
		pct := round2(assessment.Fraction * 100)
		dilutionPct = &pct
	}

	var latest *string
	if len(res.filings) > 0 {
		form := res.filings[0].FormType
		latest = &form
	}

	out := models.EnrichedTicker{
		Ticker:            ticker,
		Price:             q.Current,
		PrevClose:         q.PrevClose,
		Open:              q.Open,
		High:              q.High,
		Low:               q.Low,
		GapPct:            round2(gap),
		ChangePct:         round2(change),
		Volume:            q.Volume,
		AvgVolume10D:      res.metrics.AvgVolume10D,
		MarketCap:         res.profile.MarketCap,
		FloatShares:       floatShares,
		DilutionRemaining: assessment.Remaining,
		DilutionPctFloat:  dilutionPct,
		Risk:              assessment.Tier,
		Week52High:        res.metrics.Week52High,
		Week52Low:         res.metrics.Week52Low,
		LatestFiling:      latest,
		News:              headlines(res.news),
	}
	if len(res.missing) > 0 {
		out.Unavailable = sortedSources(res.missing)
	}
	return out
}

// headlines returns up to MaxHeadlines headlines, newest first
func headlines(items []models.NewsItem) []string {
	sorted := make([]models.NewsItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})
	if len(sorted) > MaxHeadlines {
		sorted = sorted[:MaxHeadlines]
	}

	out := make([]string, 0, len(sorted))
	for _, item := range sorted {
		out = append(out, item.Headline)
	}
	return out
}

var sourceOrder = map[string]int{
	models.SourceQuote:   0,
	models.SourceProfile: 1,
	models.SourceMetrics: 2,
	models.SourceFilings: 3,
	models.SourceNews:    4,
}

func sortedSources(sources []string) []string {
	out := append([]string(nil), sources...)
	sort.Slice(out, func(i, j int) bool {
		return sourceOrder[out[i]] < sourceOrder[out[j]]
	})
	return out
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
