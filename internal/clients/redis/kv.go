package redis

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/arcpp/proteome-backend/internal/cache"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// KV implements cache.KV on top of a go-redis client. Transport failures
// are wrapped in cache.ErrUnavailable so callers can fall back.
type KV struct {
	log *logger.Logger
	rdb *goredis.Client
}

var _ cache.KV = (*KV)(nil)

// NewKV builds the client without dialing; go-redis connects lazily and
// reconnects on its own.
func NewKV(cfg Config, log *logger.Logger) (*KV, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &KV{log: log.With("client", "RedisKV"), rdb: rdb}, nil
}

func (k *KV) Close() error {
	if k == nil || k.rdb == nil {
		return nil
	}
	return k.rdb.Close()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("redis %s: %w: %v", op, cache.ErrUnavailable, err)
}

func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := k.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get", err)
	}
	return v, true, nil
}

func (k *KV) MGet(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := k.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("mget", err)
	}
	for i, v := range vals {
		switch s := v.(type) {
		case string:
			out[keys[i]] = s
		case []byte:
			out[keys[i]] = string(s)
		}
	}
	return out, nil
}

func (k *KV) Set(ctx context.Context, key, value string) error {
	if err := k.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

func (k *KV) SetMany(ctx context.Context, entries []cache.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := k.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, e := range entries {
			p.Set(ctx, e.Key, e.Value, 0)
		}
		return nil
	})
	if err != nil {
		return unavailable("pipeline set", err)
	}
	return nil
}

func (k *KV) Scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		out    []string
		cursor uint64
	)
	seen := map[string]struct{}{}
	for {
		keys, next, err := k.rdb.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return nil, unavailable("scan", err)
		}
		for _, key := range keys {
			// SCAN may return a key more than once.
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

func (k *KV) Ping(ctx context.Context) error {
	if err := k.rdb.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// MemoryUsedBytes reads used_memory from INFO memory.
func (k *KV) MemoryUsedBytes(ctx context.Context) (int64, error) {
	info, err := k.rdb.Info(ctx, "memory").Result()
	if err != nil {
		return 0, unavailable("info", err)
	}
	return ParseUsedMemory(info)
}

func ParseUsedMemory(info string) (int64, error) {
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		v, ok := strings.CutPrefix(line, "used_memory:")
		if !ok {
			continue
		}
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	}
	return 0, fmt.Errorf("used_memory not found in INFO output")
}
