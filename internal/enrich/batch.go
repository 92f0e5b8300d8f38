package enrich

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

// EnrichMany enriches every ticker concurrently and returns the successful
// results in input order. Tickers that fail are logged and dropped.
func (e *Enricher) EnrichMany(ctx context.Context, tickers []string) []models.EnrichedTicker {
	results := make([]*models.EnrichedTicker, len(tickers))

	var wg sync.WaitGroup
	for i, ticker := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					e.log.WithFields(logrus.Fields{
						"ticker": ticker,
						"panic":  fmt.Sprint(r),
						"stack":  string(debug.Stack()),
					}).Error("enrichment panicked")
				}
			}()

			res, err := e.Enrich(ctx, ticker)
			if err != nil {
				e.log.WithError(err).WithField("ticker", ticker).Warn("dropping ticker from batch")
				return
			}
			results[i] = &res
		}(i, ticker)
	}
	wg.Wait()

	out := make([]models.EnrichedTicker, 0, len(tickers))
	for _, res := range results {
		if res != nil {
			out = append(out, *res)
		}
	}
	return out
}
