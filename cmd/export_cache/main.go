package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/arcpp/proteome-backend/internal/cache"
	"github.com/arcpp/proteome-backend/internal/clients/redis"
	"github.com/arcpp/proteome-backend/internal/platform/envutil"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

func main() {
	var dir string
	flag.StringVar(&dir, "dir", "seed", "output directory for the seed JSON files")
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

	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Printf("create %s: %v\n", dir, err)
		os.Exit(1)
	}
	c := cache.NewSummaryCache(kv, log, cache.DefaultBatchSize)
	psms, summaries, err := cache.Export(context.Background(), c, dir)
	if err != nil {
		fmt.Printf("export: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("exported %d psm entries and %d summaries to %s\n", psms, summaries, dir)
}
