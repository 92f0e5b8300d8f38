package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage and cache backend names
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// News source names
const (
	NewsSourceFinnhub = "finnhub"
	NewsSourceRSS     = "rss"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Upstream  UpstreamConfig
	Watchlist WatchlistConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// UpstreamConfig holds market data provider credentials
type UpstreamConfig struct {
	FinnhubKey string
	FinnhubURL string
	SECAPIKey  string
	SECAPIURL  string
	RSSURL     string
	NewsSource string
	Timeout    time.Duration
}

// WatchlistConfig holds the initial watchlist and refresh schedule
type WatchlistConfig struct {
	Tickers  []string
	Schedule string
	Timezone string
}

// StorageConfig selects the journal/watchlist store and the result cache
type StorageConfig struct {
	Backend string
	Cache   string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis cache configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// KafkaConfig holds Kafka configuration. An empty broker list disables Kafka.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	TradesTopic string
	GroupID     string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string
}

// envBindings maps config keys to the environment variables that set them
var envBindings = map[string]string{
	"server.port":          "SERVER_PORT",
	"server.host":          "SERVER_HOST",
	"upstream.finnhub_key": "FINNHUB_KEY",
	"upstream.finnhub_url": "FINNHUB_URL",
	"upstream.sec_api_key": "SEC_API_KEY",
	"upstream.sec_api_url": "SEC_API_URL",
	"upstream.rss_url":     "RSS_URL",
	"upstream.news_source": "NEWS_SOURCE",
	"upstream.timeout":     "UPSTREAM_TIMEOUT",
	"watchlist.tickers":    "WATCHLIST",
	"watchlist.schedule":   "REFRESH_SCHEDULE",
	"watchlist.timezone":   "REFRESH_TIMEZONE",
	"storage.backend":      "STORAGE_BACKEND",
	"storage.cache":        "CACHE_BACKEND",
	"database.host":        "DB_HOST",
	"database.port":        "DB_PORT",
	"database.user":        "DB_USER",
	"database.password":    "DB_PASSWORD",
	"database.name":        "DB_NAME",
	"database.sslmode":     "DB_SSLMODE",
	"redis.addr":           "REDIS_ADDR",
	"redis.password":       "REDIS_PASSWORD",
	"redis.db":             "REDIS_DB",
	"redis.ttl":            "CACHE_TTL",
	"kafka.brokers":        "KAFKA_BROKERS",
	"kafka.topic":          "KAFKA_TOPIC",
	"kafka.trades_topic":   "KAFKA_TRADES_TOPIC",
	"kafka.group_id":       "KAFKA_GROUP_ID",
	"logging.level":        "LOG_LEVEL",
	"logging.format":       "LOG_FORMAT",
}

// Load reads configuration from a .env file, an optional YAML file and
// environment variables, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port: v.GetString("server.port"),
			Host: v.GetString("server.host"),
		},
		Upstream: UpstreamConfig{
			FinnhubKey: v.GetString("upstream.finnhub_key"),
			FinnhubURL: v.GetString("upstream.finnhub_url"),
			SECAPIKey:  v.GetString("upstream.sec_api_key"),
			SECAPIURL:  v.GetString("upstream.sec_api_url"),
			RSSURL:     v.GetString("upstream.rss_url"),
			NewsSource: strings.ToLower(v.GetString("upstream.news_source")),
			Timeout:    v.GetDuration("upstream.timeout"),
		},
		Watchlist: WatchlistConfig{
			Tickers:  splitList(v.GetString("watchlist.tickers"), true),
			Schedule: v.GetString("watchlist.schedule"),
			Timezone: v.GetString("watchlist.timezone"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("storage.backend")),
			Cache:   strings.ToLower(v.GetString("storage.cache")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetString("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.name"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(v.GetString("kafka.brokers"), false),
			Topic:       v.GetString("kafka.topic"),
			TradesTopic: v.GetString("kafka.trades_topic"),
			GroupID:     v.GetString("kafka.group_id"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.host", "0.0.0.0")

	v.SetDefault("upstream.finnhub_url", "https://finnhub.io/api/v1")
	v.SetDefault("upstream.sec_api_url", "https://api.sec-api.io")
	v.SetDefault("upstream.rss_url", "https://feeds.finance.yahoo.com/rss/2.0/headline")
	v.SetDefault("upstream.news_source", NewsSourceFinnhub)
	v.SetDefault("upstream.timeout", 10*time.Second)

	v.SetDefault("watchlist.schedule", "0 8 * * *")
	v.SetDefault("watchlist.timezone", "America/New_York")

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.cache", BackendMemory)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "dilutiontracker")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", time.Duration(0))

	v.SetDefault("kafka.topic", "ticker-events")
	v.SetDefault("kafka.trades_topic", "trade-events")
	v.SetDefault("kafka.group_id", "dilution-tracker")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// KafkaEnabled reports whether any broker is configured
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// Addr returns the host:port the HTTP server listens on
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// splitList splits a comma-separated value, trimming blanks and optionally
// uppercasing each entry.
func splitList(raw string, upper bool) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if upper {
			part = strings.ToUpper(part)
		}
		out = append(out, part)
	}
	return out
}
