package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

const (
	PSMSeedFile     = "redis-seed-psms.json"
	SummarySeedFile = "redis-seed-summaries.json"
)

type SeedResult struct {
	Skipped   bool
	PSMs      int
	Summaries int
	Elapsed   time.Duration
}

// Seed loads both seed files from dir unless the sentinel already holds the
// current version. Missing files are skipped with a warning. The sentinel is
// written last, and only when at least one entry was loaded.
func Seed(ctx context.Context, c *SummaryCache, dir string, log *logger.Logger) (SeedResult, error) {
	start := time.Now()
	seeded, err := c.Seeded(ctx)
	if err != nil {
		return SeedResult{}, err
	}
	if seeded {
		log.Info("cache already seeded; skipping", "version", SeedVersion)
		return SeedResult{Skipped: true}, nil
	}

	psms, err := loadSeedFile(ctx, c, filepath.Join(dir, PSMSeedFile), PSMsPrefix, log)
	if err != nil {
		return SeedResult{}, err
	}
	sums, err := loadSeedFile(ctx, c, filepath.Join(dir, SummarySeedFile), SummaryPrefix, log)
	if err != nil {
		return SeedResult{}, err
	}
	res := SeedResult{PSMs: psms, Summaries: sums}
	if psms+sums == 0 {
		log.Warn("no seed entries loaded; leaving cache unseeded", "dir", dir)
		res.Elapsed = time.Since(start)
		return res, nil
	}
	if err := c.MarkSeeded(ctx); err != nil {
		return SeedResult{}, err
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func loadSeedFile(ctx context.Context, c *SummaryCache, file, prefix string, log *logger.Logger) (int, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("seed file not found; skipping", "file", file)
			return 0, nil
		}
		return 0, err
	}
	var byID map[string]json.RawMessage
	if err := json.Unmarshal(data, &byID); err != nil {
		return 0, fmt.Errorf("parse %s: %w", file, err)
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, Entry{Key: prefix + id, Value: string(byID[id])})
	}
	log.Info("loading seed entries", "file", file, "count", len(entries))
	if err := c.writeBatched(ctx, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// WaitReady pings the store until it answers or attempts run out.
func WaitReady(ctx context.Context, kv KV, attempts int, interval time.Duration, log *logger.Logger) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = kv.Ping(ctx); err == nil {
			return nil
		}
		log.Warn("cache not ready; retrying", "attempt", i, "max", attempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("cache did not become ready: %w", err)
}

// Export writes every psms:* and summary:* entry into the two seed files,
// the inverse of Seed.
func Export(ctx context.Context, c *SummaryCache, dir string) (psms, summaries int, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, 0, err
	}
	if psms, err = exportPrefix(ctx, c, PSMsPrefix, filepath.Join(dir, PSMSeedFile)); err != nil {
		return 0, 0, err
	}
	if summaries, err = exportPrefix(ctx, c, SummaryPrefix, filepath.Join(dir, SummarySeedFile)); err != nil {
		return 0, 0, err
	}
	return psms, summaries, nil
}

func exportPrefix(ctx context.Context, c *SummaryCache, prefix, file string) (int, error) {
	keys, err := c.kv.Scan(ctx, prefix+"*")
	if err != nil {
		return 0, err
	}
	sort.Strings(keys)
	out := make(map[string]json.RawMessage, len(keys))
	for i := 0; i < len(keys); i += c.batch {
		end := i + c.batch
		if end > len(keys) {
			end = len(keys)
		}
		vals, err := c.kv.MGet(ctx, keys[i:end])
		if err != nil {
			return 0, err
		}
		for k, v := range vals {
			if !json.Valid([]byte(v)) {
				c.log.Warn("export: skipping invalid json", "key", k)
				continue
			}
			out[strings.TrimPrefix(k, prefix)] = json.RawMessage(v)
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(file, b, 0o644); err != nil {
		return 0, err
	}
	return len(out), nil
}
