package marketdata

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

// RSSNews reads ticker headlines from an RSS headline feed keyed by symbol
type RSSNews struct {
	rest *restClient
}

// NewRSSNews creates a new RSS headline source
func NewRSSNews(feedURL string, timeout time.Duration, log logrus.FieldLogger) *RSSNews {
	rest := newRestClient("rss", feedURL, timeout, log)
	rest.client.SetHeader("Accept", "application/rss+xml, application/xml")
	return &RSSNews{rest: rest}
}

// CompanyNews returns feed headlines published between the start of from and
// the end of to. Items without a publish date are kept with a zero timestamp
// and items without a title get an empty headline.
func (n *RSSNews) CompanyNews(ctx context.Context, ticker string, from, to time.Time) ([]models.NewsItem, bool) {
	body, ok := n.rest.getBody(ctx, "", map[string]string{
		"s":      ticker,
		"region": "US",
		"lang":   "en-US",
	})
	if !ok {
		return nil, false
	}

	// gofeed.Parser is not safe for concurrent use
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		n.rest.log.WithError(err).WithField("ticker", ticker).Warn("malformed feed")
		return nil, false
	}

	start := truncateDay(from)
	end := truncateDay(to).AddDate(0, 0, 1)

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		headline := strings.TrimSpace(item.Title)
		var published time.Time
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
			if published.Before(start) || !published.Before(end) {
				continue
			}
		}
		items = append(items, models.NewsItem{Headline: headline, PublishedAt: published})
	}
	return items, true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
