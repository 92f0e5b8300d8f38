package watchlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

// BatchEnricher enriches a list of tickers, dropping failures
type BatchEnricher interface {
	EnrichMany(ctx context.Context, tickers []string) []models.EnrichedTicker
}

// Publisher announces watchlist changes and refreshed results
type Publisher interface {
	PublishTickerEnriched(ctx context.Context, result *models.EnrichedTicker) error
	PublishWatchlistAdded(ctx context.Context, symbol string) error
	PublishWatchlistRemoved(ctx context.Context, symbol string) error
}

// Runner manages the watchlist and refreshes the cache on demand or on a
// cron schedule.
type Runner struct {
	store     Store
	cache     Cache
	enricher  BatchEnricher
	publisher Publisher
	log       logrus.FieldLogger

	mu        sync.Mutex
	scheduler *cron.Cron
}

// NewRunner creates a Runner. publisher may be nil.
func NewRunner(store Store, cache Cache, enricher BatchEnricher, publisher Publisher, log logrus.FieldLogger) *Runner {
	return &Runner{
		store:     store,
		cache:     cache,
		enricher:  enricher,
		publisher: publisher,
		log:       log.WithField("component", "watchlist"),
	}
}

// Symbols returns the current watchlist
func (r *Runner) Symbols(ctx context.Context) ([]string, error) {
	symbols, err := r.store.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	return symbols, nil
}

// Results returns the cached result for every ticker that has one
func (r *Runner) Results(ctx context.Context) ([]models.EnrichedTicker, error) {
	results, err := r.cache.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached results: %w", err)
	}
	return results, nil
}

// Add normalizes raw and puts it on the watchlist
func (r *Runner) Add(ctx context.Context, raw string) (string, error) {
	symbol, err := NormalizeSymbol(raw)
	if err != nil {
		return "", err
	}
	if err := r.store.Add(ctx, symbol); err != nil {
		return "", fmt.Errorf("failed to add %s to watchlist: %w", symbol, err)
	}

	if r.publisher != nil {
		if err := r.publisher.PublishWatchlistAdded(ctx, symbol); err != nil {
			r.log.WithError(err).WithField("ticker", symbol).Warn("failed to publish watchlist event")
		}
	}
	return symbol, nil
}

// Remove takes raw off the watchlist and drops its cached result
func (r *Runner) Remove(ctx context.Context, raw string) (string, error) {
	symbol, err := NormalizeSymbol(raw)
	if err != nil {
		return "", err
	}
	if err := r.store.Remove(ctx, symbol); err != nil {
		return "", fmt.Errorf("failed to remove %s from watchlist: %w", symbol, err)
	}
	if err := r.cache.Delete(ctx, symbol); err != nil {
		r.log.WithError(err).WithField("ticker", symbol).Warn("failed to evict cached result")
	}

	if r.publisher != nil {
		if err := r.publisher.PublishWatchlistRemoved(ctx, symbol); err != nil {
			r.log.WithError(err).WithField("ticker", symbol).Warn("failed to publish watchlist event")
		}
	}
	return symbol, nil
}

// Refresh enriches every watchlist ticker concurrently and caches each
// result. The refresh runs to completion even if ctx is cancelled. A result
// for which every upstream source failed does not replace the cached entry.
// Cache and publish failures are logged per ticker and do not stop the
// refresh.
func (r *Runner) Refresh(ctx context.Context) ([]models.EnrichedTicker, error) {
	ctx = context.WithoutCancel(ctx)

	symbols, err := r.Symbols(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results := r.enricher.EnrichMany(ctx, symbols)
	for i := range results {
		res := &results[i]
		if res.FetchedNothing() {
			r.log.WithField("ticker", res.Ticker).Warn("all upstream sources failed, keeping cached result")
			continue
		}
		if err := r.cache.Set(ctx, *res); err != nil {
			r.log.WithError(err).WithField("ticker", res.Ticker).Warn("failed to cache result")
		}
		if r.publisher != nil {
			if err := r.publisher.PublishTickerEnriched(ctx, res); err != nil {
				r.log.WithError(err).WithField("ticker", res.Ticker).Warn("failed to publish enrichment event")
			}
		}
	}

	r.log.WithFields(logrus.Fields{
		"tickers":   len(symbols),
		"refreshed": len(results),
		"duration":  time.Since(start).String(),
	}).Info("watchlist refreshed")
	return results, nil
}

// Start schedules Refresh with a standard five-field cron expression
// evaluated in timezone.
func (r *Runner) Start(schedule, timezone string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scheduler != nil {
		return errors.New("refresh scheduler already running")
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(schedule, r.scheduledRefresh); err != nil {
		return fmt.Errorf("failed to parse refresh schedule %q: %w", schedule, err)
	}
	c.Start()
	r.scheduler = c

	r.log.WithFields(logrus.Fields{
		"schedule": schedule,
		"timezone": timezone,
	}).Info("refresh scheduler started")
	return nil
}

// Stop halts the scheduler and waits for a running refresh to finish
func (r *Runner) Stop() {
	r.mu.Lock()
	c := r.scheduler
	r.scheduler = nil
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (r *Runner) scheduledRefresh() {
	if _, err := r.Refresh(context.Background()); err != nil {
		r.log.WithError(err).Error("scheduled refresh failed")
	}
}
