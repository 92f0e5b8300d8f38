// dilution-tracker serves ticker enrichment, a trade journal and a
// scheduled watchlist over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/trogers1052/dilution-tracker/internal/api"
	"github.com/trogers1052/dilution-tracker/internal/config"
	"github.com/trogers1052/dilution-tracker/internal/database"
	"github.com/trogers1052/dilution-tracker/internal/enrich"
	"github.com/trogers1052/dilution-tracker/internal/journal"
	"github.com/trogers1052/dilution-tracker/internal/kafka"
	"github.com/trogers1052/dilution-tracker/internal/logging"
	"github.com/trogers1052/dilution-tracker/internal/marketdata"
	"github.com/trogers1052/dilution-tracker/internal/watchlist"
)

// Set via -ldflags
var version = "dev"

var (
	cfg *config.Config
	log *logrus.Logger
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "dilution-tracker",
	Short:        "Small-cap dilution risk tracker and trade journal",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log = logging.New(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "optional YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dilution-tracker %s\n", version)
	},
}

var enrichCmd = &cobra.Command{
	Use:   "enrich TICKER...",
	Short: "Enrich tickers and print the results as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results := newEnricher().EnrichMany(cmd.Context(), api.ParseTickers(strings.Join(args, ",")))
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the watchlist once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := build(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		results, err := app.runner.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		log.WithField("results", len(results)).Info("refresh complete")
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled watchlist refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := build(ctx)
		if err != nil {
			return err
		}
		defer app.close()

		if err := app.runner.Start(cfg.Watchlist.Schedule, cfg.Watchlist.Timezone); err != nil {
			return err
		}
		defer app.runner.Stop()

		if app.consumer != nil {
			go func() {
				if err := app.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("kafka consumer stopped")
				}
			}()
		}

		handler := api.NewHandler(app.enricher, app.journal, app.runner, log)
		srv := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           api.SetupRoutes(handler, log),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.WithField("addr", srv.Addr).Info("starting HTTP server")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
		case <-ctx.Done():
			log.Info("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

type application struct {
	enricher *enrich.Enricher
	journal  *journal.Service
	runner   *watchlist.Runner
	consumer *kafka.Consumer
	closers  []func() error
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.WithError(err).Warn("shutdown error")
		}
	}
}

// build wires the stores, cache and publishers selected by cfg
func build(ctx context.Context) (*application, error) {
	app := &application{enricher: newEnricher()}

	var (
		trades  journal.Store   = journal.NewMemoryStore()
		symbols watchlist.Store = watchlist.NewMemoryStore(cfg.Watchlist.Tickers...)
		cache   watchlist.Cache = watchlist.NewMemoryCache()
	)
	// nil unless Kafka is enabled
	var (
		tradePub  journal.Publisher
		tickerPub watchlist.Publisher
	)

	switch cfg.Storage.Backend {
	case config.BackendMemory:
	case config.BackendPostgres:
		db, err := database.New(cfg.Database.ConnectionString())
		if err != nil {
			app.close()
			return nil, err
		}
		app.closers = append(app.closers, db.Close)
		if err := db.Migrate(); err != nil {
			app.close()
			return nil, err
		}
		store := db.Watchlist()
		if err := store.Seed(ctx, cfg.Watchlist.Tickers); err != nil {
			app.close()
			return nil, fmt.Errorf("failed to seed watchlist: %w", err)
		}
		trades, symbols = db.Trades(), store
		log.Info("using postgres storage")
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	switch cfg.Storage.Cache {
	case config.BackendMemory:
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.closers = append(app.closers, client.Close)
		rc := watchlist.NewRedisCache(client, cfg.Redis.TTL)
		if err := rc.Ping(ctx); err != nil {
			app.close()
			return nil, err
		}
		cache = rc
		log.Info("using redis cache")
	default:
		app.close()
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Storage.Cache)
	}

	if cfg.KafkaEnabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		app.closers = append(app.closers, producer.Close)
		tradePub, tickerPub = producer, producer
		log.WithField("brokers", cfg.Kafka.Brokers).Info("kafka publishing enabled")
	}

	app.journal = journal.NewService(trades, app.enricher, tradePub, log)
	app.runner = watchlist.NewRunner(symbols, cache, app.enricher, tickerPub, log)

	if cfg.KafkaEnabled() && cfg.Kafka.TradesTopic != "" {
		app.consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TradesTopic, cfg.Kafka.GroupID, app.journal, log)
		app.closers = append(app.closers, app.consumer.Close)
	}
	return app, nil
}

func newEnricher() *enrich.Enricher {
	up := cfg.Upstream
	if up.FinnhubKey == "" {
		log.Warn("FINNHUB_KEY is not set; market data requests will fail")
	}

	finnhub := marketdata.NewFinnhubClient(up.FinnhubURL, up.FinnhubKey, up.Timeout, log)
	sec := marketdata.NewSECClient(up.SECAPIURL, up.SECAPIKey, up.Timeout, log)

	var news enrich.NewsSource = finnhub
	if up.NewsSource == config.NewsSourceRSS {
		news = marketdata.NewRSSNews(up.RSSURL, up.Timeout, log)
	}
	return enrich.New(finnhub, sec, news, log)
}
