package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

func newUpstream(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestFinnhubQuote(t *testing.T) {
	srv := newUpstream(t, map[string]http.HandlerFunc{
		"/quote": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
			assert.Equal(t, "secret", r.URL.Query().Get("token"))
			writeJSON(w, map[string]any{"c": 110.0, "pc": 100.0, "o": 101.0, "h": 111.0, "l": 99.5, "dp": 10.0, "v": 12345.0})
		},
	})
	log, _ := test.NewNullLogger()
	client := NewFinnhubClient(srv.URL, "secret", time.Second, log)

	q, ok := client.Quote(context.Background(), "AAPL")
	require.True(t, ok)
	assert.Equal(t, models.Quote{Current: 110, PrevClose: 100, Open: 101, High: 111, Low: 99.5, ChangePct: 10, Volume: 12345}, q)
}

func TestFinnhubFailSoft(t *testing.T) {
	srv := newUpstream(t, map[string]http.HandlerFunc{
		"/quote": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		},
		"/stock/profile2": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		},
	})
	log, hook := test.NewNullLogger()
	client := NewFinnhubClient(srv.URL, "k", time.Second, log)

	t.Run("error status", func(t *testing.T) {
		q, ok := client.Quote(context.Background(), "AAPL")
		assert.False(t, ok)
		assert.Equal(t, models.Quote{}, q)
	})

	t.Run("malformed payload", func(t *testing.T) {
		p, ok := client.Profile(context.Background(), "AAPL")
		assert.False(t, ok)
		assert.Nil(t, p.FloatShares)
		assert.Nil(t, p.MarketCap)
	})

	t.Run("unreachable host", func(t *testing.T) {
		dead := NewFinnhubClient("http://127.0.0.1:1", "k", 200*time.Millisecond, log)
		m, ok := dead.Metrics(context.Background(), "AAPL")
		assert.False(t, ok)
		assert.Nil(t, m.Week52High)
	})

	require.Len(t, hook.Entries, 3)
	assert.Equal(t, "finnhub", hook.Entries[0].Data["provider"])
	assert.Equal(t, http.StatusTooManyRequests, hook.Entries[0].Data["status"])
}

func TestFinnhubProfileScalesMillions(t *testing.T) {
	srv := newUpstream(t, map[string]http.HandlerFunc{
		"/stock/profile2": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"shareOutstanding": 10.5, "marketCapitalization": 250.0})
		},
	})
	log, _ := test.NewNullLogger()
	client := NewFinnhubClient(srv.URL, "k", time.Second, log)

	p, ok := client.Profile(context.Background(), "GME")
	require.True(t, ok)
	require.NotNil(t, p.FloatShares)
	require.NotNil(t, p.MarketCap)
	assert.InDelta(t, 10_500_000, *p.FloatShares, 0.001)
	assert.InDelta(t, 250_000_000, *p.MarketCap, 0.001)

	t.Run("empty profile", func(t *testing.T) {
		srv := newUpstream(t, map[string]http.HandlerFunc{
			"/stock/profile2": func(w http.ResponseWriter, r *http.Request) { writeJSON(w, map[string]any{}) },
		})
		p, ok := NewFinnhubClient(srv.URL, "k", time.Second, log).Profile(context.Background(), "ZZZZ")
		assert.True(t, ok)
		assert.Nil(t, p.FloatShares)
	})
}

func TestFinnhubMetricsAndNews(t *testing.T) {
	srv := newUpstream(t, map[string]http.HandlerFunc{
		"/stock/metric": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "all", r.URL.Query().Get("metric"))
			writeJSON(w, map[string]any{"metric": map[string]any{
				"52WeekHigh": 200.0, "52WeekLow": 50.0, "10DayAverageTradingVolume": 3.2,
			}})
		},
		"/company-news": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "2024-03-01", r.URL.Query().Get("from"))
			assert.Equal(t, "2024-03-08", r.URL.Query().Get("to"))
			writeJSON(w, []map[string]any{
				{"datetime": 1709800000, "headline": "first"},
				{"datetime": 1709900000, "headline": "second"},
			})
		},
	})
	log, _ := test.NewNullLogger()
	client := NewFinnhubClient(srv.URL, "k", time.Second, log)

	m, ok := client.Metrics(context.Background(), "AMC")
	require.True(t, ok)
	assert.Equal(t, 200.0, *m.Week52High)
	assert.Equal(t, 50.0, *m.Week52Low)
	assert.Equal(t, 3.2, *m.AvgVolume10D)

	to := time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC)
	news, ok := client.CompanyNews(context.Background(), "AMC", to.AddDate(0, 0, -7), to)
	require.True(t, ok)
	require.Len(t, news, 2)
	assert.Equal(t, "first", news[0].Headline)
	assert.Equal(t, time.Unix(1709900000, 0).UTC(), news[1].PublishedAt)
}

func TestSECDilutionFilings(t *testing.T) {
	srv := newUpstream(t, map[string]http.HandlerFunc{
		"/": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "sec-key", r.URL.Query().Get("token"))
			assert.Contains(t, r.URL.Query().Get("query"), "entityTicker:MULN")
			assert.Contains(t, r.URL.Query().Get("query"), "S-1 OR S-3 OR 424B5")
			writeJSON(w, map[string]any{"filings": []map[string]any{
				{"formType": "S-3", "filedAt": "2024-01-02T16:05:12-05:00", "maximumSharesToBeOffered": 1000000, "totalSharesPreviouslySold": 250000},
				{"formType": "8-K", "filedAt": "2024-06-01T00:00:00-04:00"},
				{"formType": "424B5", "filedAt": "2024-05-01T10:00:00-04:00", "maximumSharesToBeOffered": "2,000,000", "totalSharesPreviouslySold": "n/a"},
				{"formType": "S-1", "filingDate": "2023-11-15"},
				{"formType": "S-3", "filedAt": "2023-01-01T00:00:00Z"},
				{"formType": "S-3", "filedAt": "2022-01-01T00:00:00Z"},
				{"formType": "S-1", "filedAt": "2021-01-01T00:00:00Z"},
			}})
		},
	})
	log, _ := test.NewNullLogger()
	client := NewSECClient(srv.URL, "sec-key", time.Second, log)

	filings, ok := client.DilutionFilings(context.Background(), "MULN")
	require.True(t, ok)
	require.Len(t, filings, MaxFilings)

	assert.Equal(t, "424B5", filings[0].FormType)
	assert.Equal(t, 2_000_000.0, filings[0].MaxSharesOffered)
	assert.Zero(t, filings[0].SharesPreviouslySold)

	assert.Equal(t, "S-3", filings[1].FormType)
	assert.Equal(t, 1_000_000.0, filings[1].MaxSharesOffered)
	assert.Equal(t, 250_000.0, filings[1].SharesPreviouslySold)

	assert.Equal(t, "S-1", filings[2].FormType)
	assert.Equal(t, time.Date(2023, 11, 15, 0, 0, 0, 0, time.UTC), filings[2].FiledAt)

	for i := 1; i < len(filings); i++ {
		assert.False(t, filings[i].FiledAt.After(filings[i-1].FiledAt))
	}
	for _, f := range filings {
		assert.True(t, models.IsDilutionForm(f.FormType))
	}
}

func TestSECFailSoft(t *testing.T) {
	srv := newUpstream(t, map[string]http.HandlerFunc{
		"/": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
	})
	log, _ := test.NewNullLogger()

	filings, ok := NewSECClient(srv.URL, "", time.Second, log).DilutionFilings(context.Background(), "MULN")
	assert.False(t, ok)
	assert.Empty(t, filings)
}

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Headlines</title>
<item><title>Inside window</title><pubDate>Wed, 06 Mar 2024 14:00:00 GMT</pubDate></item>
<item><title>Too old</title><pubDate>Wed, 21 Feb 2024 14:00:00 GMT</pubDate></item>
<item><title>Undated</title></item>
<item><title>  </title><pubDate>Wed, 06 Mar 2024 15:00:00 GMT</pubDate></item>
</channel>
</rss>`

func TestRSSNews(t *testing.T) {
	srv := newUpstream(t, map[string]http.HandlerFunc{
		"/": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "TSLA", r.URL.Query().Get("s"))
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(testFeed))
		},
	})
	log, _ := test.NewNullLogger()
	source := NewRSSNews(srv.URL, time.Second, log)

	to := time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)
	items, ok := source.CompanyNews(context.Background(), "TSLA", to.AddDate(0, 0, -7), to)
	require.True(t, ok)
	require.Len(t, items, 3)
	assert.Equal(t, "Inside window", items[0].Headline)
	assert.Equal(t, "Undated", items[1].Headline)
	assert.True(t, items[1].PublishedAt.IsZero())
	assert.Equal(t, "", items[2].Headline, "untitled items keep an empty headline")
	assert.Equal(t, time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC), items[2].PublishedAt)

	t.Run("not a feed", func(t *testing.T) {
		bad := newUpstream(t, map[string]http.HandlerFunc{
			"/": func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("hello")) },
		})
		items, ok := NewRSSNews(bad.URL, time.Second, log).CompanyNews(context.Background(), "TSLA", to, to)
		assert.False(t, ok)
		assert.Empty(t, items)
	})
}

func TestFlexFloat(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{`12.5`, 12.5},
		{`"1,250"`, 1250},
		{`null`, 0},
		{`""`, 0},
		{`"unknown"`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var f flexFloat
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &f))
			assert.Equal(t, tt.want, float64(f))
		})
	}
}
