package app

import (
	"os"
	"strings"
	"time"

	"github.com/arcpp/proteome-backend/internal/cache"
	"github.com/arcpp/proteome-backend/internal/data/db"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/coverage"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/populate"
	"github.com/arcpp/proteome-backend/internal/observability"
	"github.com/arcpp/proteome-backend/internal/platform/envutil"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
	"github.com/arcpp/proteome-backend/internal/services"
)

type Config struct {
	Port           string
	AllowedOrigins []string

	DB db.Config

	// RedisAddr empty disables the cache tier.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QValueThreshold    float64
	ListingConcurrency int
	CoverageStatsTTL   time.Duration
	CacheBatchSize     int
	PopulateBatchSize  int
	PopulateWorkers    int
	WorkerConcurrency  int

	Otel observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:           envutil.String("PORT", "5001", log),
		AllowedOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "", log)),
		DB: db.Config{
			Driver:     envutil.String("DB_DRIVER", db.DriverPostgres, log),
			Host:       envutil.String("POSTGRES_HOST", "localhost", log),
			Port:       envutil.String("POSTGRES_PORT", "5432", log),
			User:       envutil.String("POSTGRES_USER", "postgres", log),
			Password:   envutil.String("POSTGRES_PASSWORD", "", log),
			Name:       envutil.String("POSTGRES_NAME", "arcpp", log),
			SQLitePath: envutil.String("SQLITE_PATH", "arcpp.db", log),
		},
		RedisAddr:          redisAddr(log),
		RedisPassword:      envutil.String("REDIS_PASSWORD", "", log),
		RedisDB:            envutil.Int("REDIS_DB", 0, log),
		QValueThreshold:    envutil.Float("QVALUE_THRESHOLD", coverage.DefaultQValueThreshold, log),
		ListingConcurrency: envutil.Int("LISTING_CONCURRENCY", services.DefaultListingConcurrency, log),
		CoverageStatsTTL:   envutil.Duration("COVERAGE_STATS_TTL", services.DefaultCoverageStatsTTL, log),
		CacheBatchSize:     envutil.Int("CACHE_BATCH_SIZE", cache.DefaultBatchSize, log),
		PopulateBatchSize:  envutil.Int("POPULATE_BATCH_SIZE", populate.DefaultPageSize, log),
		PopulateWorkers:    envutil.Int("POPULATE_CONCURRENCY", populate.DefaultConcurrency, log),
		WorkerConcurrency:  envutil.Int("WORKER_CONCURRENCY", 1, log),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", observability.DefaultServiceName, log),
			Environment: envutil.String("APP_ENV", "development", log),
			Version:     envutil.String("APP_VERSION", "", log),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", log),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1, log),
		},
	}
}

// redisAddr treats REDIS_ADDR set to "" or "off" as disabling the cache.
func redisAddr(log *logger.Logger) string {
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		if v = strings.TrimSpace(v); v == "" || strings.EqualFold(v, "off") {
			return ""
		}
	}
	return envutil.String("REDIS_ADDR", "localhost:6379", log)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
