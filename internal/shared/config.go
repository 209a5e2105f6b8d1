package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	ItinBase    string
	ItinKey     string
	ItinRPS     int
	Workers     int
	TripIDs     []int64
	CacheTTL    time.Duration
	HTTPTimeout time.Duration
	RateLimitPM int
	CORSOrigins []string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/trips?parseTime=true&charset=utf8mb4&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		ItinBase:    env("ITINERARY_BASE_URL", "http://localhost:8090/v1"),
		ItinKey:     env("ITINERARY_API_KEY", ""),
		ItinRPS:     atoi("ITINERARY_RPS", 5),
		Workers:     atoi("INGEST_WORKERS", 8),
		TripIDs:     ParseIDs(os.Getenv("INGEST_TRIP_IDS")),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		HTTPTimeout: time.Duration(atoi("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		RateLimitPM: atoi("RATE_LIMIT_PER_MINUTE", 120),
		CORSOrigins: splitList(env("CORS_ORIGINS", "*")),
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.ItinKey == "" {
		log.Warn().Msg("ITINERARY_API_KEY is empty")
	}
	return c
}

// ParseIDs reads a comma or whitespace separated list of positive trip ids.
// Anything else is skipped with a warning.
func ParseIDs(s string) []int64 {
	var out []int64
	seen := map[int64]bool{}
	for _, f := range splitList(s) {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil || n <= 0 {
			log.Warn().Str("value", f).Msg("skipping bad trip id")
			continue
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
