package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port           string
	RedisURL       string
	DatabaseURL    string
	BackendBaseURL string

	CacheTTLMs       int
	RequestTimeoutMs int
	MaxRetries       int
	NewsLimit        int

	RelayEndpoints []string

	StreamURL string
	PollSecs  int

	CryptoCompareKey string
	CoinMarketCapKey string
	NewsDataKey      string
	CryptoPanicKey   string

	TracingEnabled bool
	OTLPEndpoint   string
}

func Load() *Config {
	cfg := &Config{
		RedisURL:         os.Getenv("REDIS_URL"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StreamURL:        strings.TrimSpace(os.Getenv("STREAM_URL")),
		CryptoCompareKey: os.Getenv("CRYPTOCOMPARE_API_KEY"),
		CoinMarketCapKey: os.Getenv("COINMARKETCAP_API_KEY"),
		NewsDataKey:      os.Getenv("NEWSDATA_API_KEY"),
		CryptoPanicKey:   os.Getenv("CRYPTOPANIC_API_KEY"),
	}

	cfg.Port = strings.TrimSpace(os.Getenv("PORT"))
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, using in-memory cache")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, news archive disabled")
	}

	cfg.BackendBaseURL = strings.TrimSpace(os.Getenv("BACKEND_BASE_URL"))
	if cfg.BackendBaseURL == "" {
		cfg.BackendBaseURL = "http://127.0.0.1:3001"
	}

	cfg.CacheTTLMs = 60000
	if v := strings.TrimSpace(os.Getenv("CACHE_TTL_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheTTLMs = n
		}
	}

	cfg.RequestTimeoutMs = 8000
	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeoutMs = n
		}
	}

	cfg.MaxRetries = 3
	if v := strings.TrimSpace(os.Getenv("MAX_RETRIES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRetries = n
		}
	}

	cfg.NewsLimit = 20
	if v := strings.TrimSpace(os.Getenv("NEWS_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NewsLimit = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("RELAY_ENDPOINTS")); v != "" {
		for _, endpoint := range strings.Split(v, ",") {
			endpoint = strings.TrimSpace(endpoint)
			if endpoint != "" {
				cfg.RelayEndpoints = append(cfg.RelayEndpoints, endpoint)
			}
		}
	}

	cfg.PollSecs = 60
	if v := strings.TrimSpace(os.Getenv("POLL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollSecs = n
		}
	}

	// tracing is on unless explicitly switched off
	cfg.TracingEnabled = !strings.EqualFold(strings.TrimSpace(os.Getenv("TRACING_ENABLED")), "false")

	cfg.OTLPEndpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if cfg.OTLPEndpoint == "" {
		cfg.OTLPEndpoint = "localhost:4317"
	}

	return cfg
}
