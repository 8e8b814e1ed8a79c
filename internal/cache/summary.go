package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/arcpp/proteome-backend/internal/domain/proteomics"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

const (
	SummaryPrefix = "summary:"
	PSMsPrefix    = "psms:"
	SentinelKey   = "seed:version"
	SeedVersion   = "1.0"

	DefaultBatchSize = 500
)

func SummaryKey(proteinID string) string { return SummaryPrefix + proteinID }
func PSMsKey(proteinID string) string    { return PSMsPrefix + proteinID }

// SummaryCache is the read-through tier in front of the authoritative store.
// Entries are always replaced whole.
type SummaryCache struct {
	kv    KV
	log   *logger.Logger
	batch int
}

func NewSummaryCache(kv KV, baseLog *logger.Logger, batchSize int) *SummaryCache {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SummaryCache{kv: kv, log: baseLog.With("component", "SummaryCache"), batch: batchSize}
}

func (c *SummaryCache) KV() KV { return c.kv }

func (c *SummaryCache) Get(ctx context.Context, proteinID string) (*proteomics.ProteinSummary, error) {
	raw, ok, err := c.kv.Get(ctx, SummaryKey(proteinID))
	if err != nil || !ok {
		return nil, err
	}
	var s proteomics.ProteinSummary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", SummaryKey(proteinID), err)
	}
	return &s, nil
}

func (c *SummaryCache) Set(ctx context.Context, s proteomics.ProteinSummary) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, SummaryKey(s.HvoID), string(b))
}

// SetMany writes summaries in pipelined batches.
func (c *SummaryCache) SetMany(ctx context.Context, rows []proteomics.ProteinSummary) error {
	entries := make([]Entry, 0, len(rows))
	for _, s := range rows {
		b, err := json.Marshal(s)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Key: SummaryKey(s.HvoID), Value: string(b)})
	}
	return c.writeBatched(ctx, entries)
}

func (c *SummaryCache) PSMsByDataset(ctx context.Context, proteinID string) ([]proteomics.DatasetPSMCount, bool, error) {
	raw, ok, err := c.kv.Get(ctx, PSMsKey(proteinID))
	if err != nil || !ok {
		return nil, false, err
	}
	var out []proteomics.DatasetPSMCount
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", PSMsKey(proteinID), err)
	}
	return out, true, nil
}

func (c *SummaryCache) SetPSMsByDataset(ctx context.Context, proteinID string, counts []proteomics.DatasetPSMCount) error {
	if counts == nil {
		counts = []proteomics.DatasetPSMCount{}
	}
	b, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, PSMsKey(proteinID), string(b))
}

// SetPSMsMany writes per-dataset breakdowns in pipelined batches.
func (c *SummaryCache) SetPSMsMany(ctx context.Context, byProtein map[string][]proteomics.DatasetPSMCount) error {
	ids := make([]string, 0, len(byProtein))
	for id := range byProtein {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		counts := byProtein[id]
		if counts == nil {
			counts = []proteomics.DatasetPSMCount{}
		}
		b, err := json.Marshal(counts)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Key: PSMsKey(id), Value: string(b)})
	}
	return c.writeBatched(ctx, entries)
}

func (c *SummaryCache) writeBatched(ctx context.Context, entries []Entry) error {
	for i := 0; i < len(entries); i += c.batch {
		end := i + c.batch
		if end > len(entries) {
			end = len(entries)
		}
		if err := c.kv.SetMany(ctx, entries[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// Seeded reports whether the sentinel holds the current seed version.
func (c *SummaryCache) Seeded(ctx context.Context) (bool, error) {
	v, ok, err := c.kv.Get(ctx, SentinelKey)
	if err != nil {
		return false, err
	}
	return ok && v == SeedVersion, nil
}

func (c *SummaryCache) MarkSeeded(ctx context.Context) error {
	return c.kv.Set(ctx, SentinelKey, SeedVersion)
}

func (c *SummaryCache) summaryKeys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := c.kv.Scan(ctx, SummaryPrefix+prefix+"*")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// loadSummaries fetches keys in MGET batches, skipping entries that fail to
// decode. Result order follows keys.
func (c *SummaryCache) loadSummaries(ctx context.Context, keys []string) ([]proteomics.ProteinSummary, error) {
	out := make([]proteomics.ProteinSummary, 0, len(keys))
	for i := 0; i < len(keys); i += c.batch {
		end := i + c.batch
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[i:end]
		vals, err := c.kv.MGet(ctx, chunk)
		if err != nil {
			return nil, err
		}
		for _, k := range chunk {
			raw, ok := vals[k]
			if !ok {
				continue
			}
			var s proteomics.ProteinSummary
			if err := json.Unmarshal([]byte(raw), &s); err != nil {
				c.log.Warn("skipping undecodable summary", "key", k, "error", err)
				continue
			}
			if s.HvoID == "" {
				s.HvoID = strings.TrimPrefix(k, SummaryPrefix)
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// SearchAll scans every summary under the id prefix and keeps those whose
// id, cross-reference id, description, dataset ids or modification types
// contain query, case-insensitively. An empty query matches everything. Rows are ordered
// by id.
func (c *SummaryCache) SearchAll(ctx context.Context, query, prefix string) ([]proteomics.ProteinSummary, error) {
	keys, err := c.summaryKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	all, err := c.loadSummaries(ctx, keys)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}
	out := all[:0]
	for _, s := range all {
		if Matches(s, q) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Matches reports whether a lower-cased query is a substring of any
// searchable field of s.
func Matches(s proteomics.ProteinSummary, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(s.HvoID), lowerQuery) ||
		strings.Contains(strings.ToLower(s.UniProtID), lowerQuery) ||
		strings.Contains(strings.ToLower(s.Description), lowerQuery) {
		return true
	}
	for _, ds := range s.Datasets {
		if strings.Contains(strings.ToLower(ds), lowerQuery) {
			return true
		}
	}
	for _, mod := range s.Modifications {
		if strings.Contains(strings.ToLower(mod), lowerQuery) {
			return true
		}
	}
	return false
}

// Page returns the total number of summaries under prefix and the rows in
// [offset, offset+limit) ordered by id.
func (c *SummaryCache) Page(ctx context.Context, prefix string, offset, limit int) (int, []proteomics.ProteinSummary, error) {
	keys, err := c.summaryKeys(ctx, prefix)
	if err != nil {
		return 0, nil, err
	}
	total := len(keys)
	if offset >= total || limit <= 0 {
		return total, []proteomics.ProteinSummary{}, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	rows, err := c.loadSummaries(ctx, keys[offset:end])
	if err != nil {
		return 0, nil, err
	}
	return total, rows, nil
}

type Stats struct {
	TotalProteinsCached int     `json:"totalProteinsCached"`
	TotalSummaries      int     `json:"totalSummaries"`
	Seeded              bool    `json:"seeded"`
	RedisConnected      bool    `json:"redisConnected"`
	MemoryUsedMB        float64 `json:"memoryUsedMB"`
}

// Stats never fails; an unreachable store reports as disconnected.
func (c *SummaryCache) Stats(ctx context.Context) Stats {
	if err := c.kv.Ping(ctx); err != nil {
		c.log.Warn("cache stats: ping failed", "error", err)
		return Stats{}
	}
	st := Stats{RedisConnected: true}
	if keys, err := c.kv.Scan(ctx, PSMsPrefix+"*"); err == nil {
		st.TotalProteinsCached = len(keys)
	}
	if keys, err := c.kv.Scan(ctx, SummaryPrefix+"*"); err == nil {
		st.TotalSummaries = len(keys)
	}
	if ok, err := c.Seeded(ctx); err == nil {
		st.Seeded = ok
	}
	if b, err := c.kv.MemoryUsedBytes(ctx); err == nil {
		st.MemoryUsedMB = math.Round(float64(b)/1024/1024*100) / 100
	}
	return st
}
