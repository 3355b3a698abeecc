package trends

import (
	"context"
	"sync"
	"time"
)

// Origin tags where a trend candidate came from.
type Origin string

const (
	OriginPlatform Origin = "twitter_api"
	OriginStatic   Origin = "static_bank"
	OriginExternal Origin = "external_api"
)

// Source is a single trend candidate with optional metrics. Sources are
// ephemeral; they are regenerated on every refresh cycle.
type Source struct {
	Trend      string  `json:"trend"`
	Origin     Origin  `json:"origin"`
	Method     string  `json:"method"`
	Engagement float64 `json:"engagement,omitempty"`
	Frequency  int     `json:"frequency,omitempty"`
	Category   string  `json:"category,omitempty"`
}

// SourceLists groups sources by the context category they landed in.
type SourceLists struct {
	TrendingTopics  []Source `json:"trending_topics"`
	ViralHashtags   []Source `json:"viral_hashtags"`
	CurrentEvents   []Source `json:"current_events"`
	PopularKeywords []Source `json:"popular_keywords"`
}

// Context is a time-boxed snapshot of trend candidates. The static provider
// fills all four categories; the aggregation provider only fills
// TrendingTopics.
type Context struct {
	TrendingTopics  []string    `json:"trending_topics"`
	ViralHashtags   []string    `json:"viral_hashtags"`
	CurrentEvents   []string    `json:"current_events"`
	PopularKeywords []string    `json:"popular_keywords"`
	LastUpdated     time.Time   `json:"last_updated"`
	Sources         SourceLists `json:"sources"`
}

// AllTopics flattens every categorized list into one slice.
func (c Context) AllTopics() []string {
	out := make([]string, 0, len(c.TrendingTopics)+len(c.ViralHashtags)+len(c.CurrentEvents)+len(c.PopularKeywords))
	out = append(out, c.TrendingTopics...)
	out = append(out, c.ViralHashtags...)
	out = append(out, c.CurrentEvents...)
	out = append(out, c.PopularKeywords...)
	return out
}

// AllSources flattens every categorized source list into one slice.
func (c Context) AllSources() []Source {
	out := make([]Source, 0,
		len(c.Sources.TrendingTopics)+len(c.Sources.ViralHashtags)+len(c.Sources.CurrentEvents)+len(c.Sources.PopularKeywords))
	out = append(out, c.Sources.TrendingTopics...)
	out = append(out, c.Sources.ViralHashtags...)
	out = append(out, c.Sources.CurrentEvents...)
	out = append(out, c.Sources.PopularKeywords...)
	return out
}

// Empty reports whether the snapshot holds no trend candidates at all.
func (c Context) Empty() bool {
	return len(c.AllTopics()) == 0
}

// Provider supplies trend context to the orchestrator. Implementations cache
// snapshots for a fixed TTL and degrade to stale or empty data rather than
// failing hard.
type Provider interface {
	// TrendContext returns the current snapshot, refreshing if the cache
	// has expired.
	TrendContext(ctx context.Context) (Context, error)
	// RandomTopic draws one trend candidate, reporting false when none
	// are available.
	RandomTopic(ctx context.Context) (string, bool)
	// IsTopicTrending reports whether topic matches any cached trend text
	// case-insensitively. This is a cache membership test, not a live query.
	IsTopicTrending(ctx context.Context, topic string) bool
}

// DefaultTTL is how long a trend snapshot stays fresh.
const DefaultTTL = 15 * time.Minute

// snapshotCache holds the last refreshed Context with TTL-based expiry.
// Guarded by a mutex so the HTTP status surface can read it while the
// scheduler refreshes.
type snapshotCache struct {
	mu      sync.Mutex
	data    Context
	has     bool
	fetched time.Time
	ttl     time.Duration
	now     func() time.Time
}

func newSnapshotCache(ttl time.Duration) *snapshotCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &snapshotCache{ttl: ttl, now: time.Now}
}

// fresh returns the cached snapshot if it has not expired.
func (c *snapshotCache) fresh() (Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.has && c.now().Sub(c.fetched) < c.ttl {
		return c.data, true
	}
	return Context{}, false
}

// any returns the cached snapshot even when stale.
func (c *snapshotCache) any() (Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data, c.has
}

func (c *snapshotCache) store(data Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.has = true
	c.fetched = c.now()
}

// QuotaStats reports usage against the external read ceiling.
type QuotaStats struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// quotaCounter tracks monthly platform-API reads against a fixed free-tier
// ceiling. There is no calendar-based reset; Reset must be called explicitly.
type quotaCounter struct {
	mu    sync.Mutex
	used  int
	limit int
}

func newQuotaCounter(limit int) *quotaCounter {
	return &quotaCounter{limit: limit}
}

// tryAcquire records one call if the ceiling allows it.
func (q *quotaCounter) tryAcquire() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.used >= q.limit {
		return false
	}
	q.used++
	return true
}

func (q *quotaCounter) stats() QuotaStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	remaining := q.limit - q.used
	if remaining < 0 {
		remaining = 0
	}
	return QuotaStats{Used: q.used, Limit: q.limit, Remaining: remaining}
}

func (q *quotaCounter) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.used = 0
}
