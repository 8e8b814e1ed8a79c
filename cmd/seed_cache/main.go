package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/arcpp/proteome-backend/internal/cache"
	"github.com/arcpp/proteome-backend/internal/clients/redis"
	"github.com/arcpp/proteome-backend/internal/platform/envutil"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

// seed_cache only touches the cache tier, so it does not open the store.
func main() {
	var dir string
	var attempts int
	var interval time.Duration
	flag.StringVar(&dir, "dir", "seed", "directory holding the seed JSON files")
	flag.IntVar(&attempts, "attempts", 15, "readiness checks before giving up")
	flag.DurationVar(&interval, "interval", 2*time.Second, "delay between readiness checks")
	flag.Parse()

	log, err := logger.New(envutil.String("LOG_MODE", "development", nil))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	kv, err := redis.NewKV(redis.Config{
		Addr:     envutil.String("REDIS_ADDR", "localhost:6379", log),
		Password: envutil.String("REDIS_PASSWORD", "", log),
		DB:       envutil.Int("REDIS_DB", 0, log),
	}, log)
	if err != nil {
		fmt.Printf("init redis: %v\n", err)
		os.Exit(1)
	}
	defer kv.Close()

	ctx := context.Background()
	if err := cache.WaitReady(ctx, kv, attempts, interval, log); err != nil {
		fmt.Printf("cache not ready: %v\n", err)
		os.Exit(1)
	}

	c := cache.NewSummaryCache(kv, log, envutil.Int("CACHE_BATCH_SIZE", cache.DefaultBatchSize, log))
	res, err := cache.Seed(ctx, c, dir, log)
	if err != nil {
		fmt.Printf("seed: %v\n", err)
		os.Exit(1)
	}
	if res.Skipped {
		fmt.Println("cache already seeded; skipping")
		return
	}
	fmt.Printf("seeded %d psm entries and %d summaries in %s\n", res.PSMs, res.Summaries, res.Elapsed.Round(time.Millisecond))
}
