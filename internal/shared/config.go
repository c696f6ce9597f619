package shared

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"review_feed/internal/layout"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MetricsAddr    string
	RequestTimeout time.Duration

	FeedSource     string
	FeedAPIKey     string
	FeedRPS        int
	FeedLatencyMin time.Duration
	FeedLatencyMax time.Duration

	PageLimit       int
	LoadThreshold   float64
	TruncationLines int

	ResponseCache string // redis|mysql|none
	RedisAddr     string
	RedisDB       int
	RedisPass     string
	MySQLDSN      string
	CacheTTL      time.Duration

	ImageCacheEntries int
	ImageFetchWorkers int

	LayoutConfig string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer; using default")
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not a number; using default")
		}
		return def
	}
	ms := func(k string, def int) time.Duration { return time.Duration(atoi(k, def)) * time.Millisecond }

	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ""),
		RequestTimeout: ms("REQUEST_TIMEOUT_MS", 15000),

		FeedSource:     env("FEED_SOURCE", ""),
		FeedAPIKey:     env("FEED_API_KEY", ""),
		FeedRPS:        atoi("FEED_RPS", 5),
		FeedLatencyMin: ms("FEED_LATENCY_MIN_MS", 100),
		FeedLatencyMax: ms("FEED_LATENCY_MAX_MS", 1000),

		PageLimit:       atoi("PAGE_LIMIT", 20),
		LoadThreshold:   atof("LOAD_THRESHOLD", 2.5),
		TruncationLines: atoi("TRUNCATION_LINES", 3),

		ResponseCache: env("RESPONSE_CACHE", "none"),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisDB:       atoi("REDIS_DB", 0),
		RedisPass:     env("REDIS_PASSWORD", ""),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		CacheTTL:      time.Duration(atoi("CACHE_TTL_SECONDS", 86400)) * time.Second,

		ImageCacheEntries: atoi("IMAGE_CACHE_ENTRIES", 256),
		ImageFetchWorkers: atoi("IMAGE_FETCH_WORKERS", 8),

		LayoutConfig: env("LAYOUT_CONFIG", ""),
	}
	switch c.ResponseCache {
	case "redis", "mysql", "none":
	default:
		log.Warn().Str("RESPONSE_CACHE", c.ResponseCache).Msg("unknown response cache; disabling")
		c.ResponseCache = "none"
	}
	return c
}

// LoadLayout reads a YAML override on top of layout.DefaultConfig. Keys that
// are absent keep their defaults. An empty path returns the defaults.
func LoadLayout(path string) (layout.Config, error) {
	cfg := layout.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read layout config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse layout config %s: %w", path, err)
	}
	return cfg, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
