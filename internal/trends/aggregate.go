package trends

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultReadQuota is the monthly platform-API read ceiling on the free tier.
const DefaultReadQuota = 100

// AggregateProvider merges trend candidates from external feeds and the
// platform's own trends capability. Feeds are queried concurrently and fail
// independently; the platform feed is additionally gated by a monthly read
// quota and skipped once the ceiling is reached.
type AggregateProvider struct {
	feeds    []Feed
	platform Feed // optional, quota-gated
	quota    *quotaCounter
	cache    *snapshotCache
	rand     *rand.Rand
	randMu   sync.Mutex
	log      *slog.Logger
}

// AggregateOptions configures an AggregateProvider.
type AggregateOptions struct {
	Feeds    []Feed
	Platform Feed          // nil disables platform lookups entirely
	Quota    int           // <= 0 uses DefaultReadQuota
	TTL      time.Duration // <= 0 uses DefaultTTL
	Rand     *rand.Rand    // nil is time-seeded
	Logger   *slog.Logger
}

// NewAggregateProvider builds an aggregation provider from opts.
func NewAggregateProvider(opts AggregateOptions) *AggregateProvider {
	quota := opts.Quota
	if quota <= 0 {
		quota = DefaultReadQuota
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &AggregateProvider{
		feeds:    opts.Feeds,
		platform: opts.Platform,
		quota:    newQuotaCounter(quota),
		cache:    newSnapshotCache(opts.TTL),
		rand:     rnd,
		log:      log,
	}
}

// TrendContext returns the cached snapshot when fresh, otherwise queries every
// feed concurrently. A feed failure drops that feed's contribution and nothing
// else; if every feed fails the previous (stale) snapshot is served.
func (p *AggregateProvider) TrendContext(ctx context.Context) (Context, error) {
	if cached, ok := p.cache.fresh(); ok {
		p.log.Debug("using cached trend data")
		return cached, nil
	}

	sources, feedCount := p.refresh(ctx)
	if len(sources) == 0 {
		if stale, ok := p.cache.any(); ok {
			p.log.Warn("all trend feeds failed, serving stale snapshot",
				"age", time.Since(stale.LastUpdated).Round(time.Second).String())
			return stale, nil
		}
		p.log.Warn("all trend feeds failed and no snapshot cached")
		return Context{LastUpdated: time.Now()}, nil
	}

	snapshot := Context{
		TrendingTopics: trendTexts(sources),
		LastUpdated:    time.Now(),
		Sources:        SourceLists{TrendingTopics: sources},
	}
	p.cache.store(snapshot)

	p.log.Info("refreshed aggregated trends", "trends", len(sources), "feeds", feedCount)
	return snapshot, nil
}

// RandomTopic draws a weighted random trend: external-API candidates carry 3x
// the selection weight of platform-API candidates.
func (p *AggregateProvider) RandomTopic(ctx context.Context) (string, bool) {
	snapshot, err := p.TrendContext(ctx)
	if err != nil {
		return "", false
	}

	var pool []string
	for _, s := range snapshot.AllSources() {
		weight := 1
		if s.Origin == OriginExternal {
			weight = 3
		}
		for i := 0; i < weight; i++ {
			pool = append(pool, s.Trend)
		}
	}
	if len(pool) == 0 {
		return "", false
	}

	p.randMu.Lock()
	topic := pool[p.rand.Intn(len(pool))]
	p.randMu.Unlock()
	return topic, true
}

// IsTopicTrending reports whether topic appears in any cached trend text,
// case-insensitively.
func (p *AggregateProvider) IsTopicTrending(ctx context.Context, topic string) bool {
	snapshot, err := p.TrendContext(ctx)
	if err != nil {
		return false
	}
	return containsTopic(snapshot, topic)
}

// UsageStats reports platform-API quota consumption.
func (p *AggregateProvider) UsageStats() QuotaStats {
	return p.quota.stats()
}

// ResetQuota clears the platform-API read counter. There is no automatic
// calendar reset; call this at the start of each billing month.
func (p *AggregateProvider) ResetQuota() {
	p.quota.reset()
	p.log.Info("platform read quota reset")
}

// activeFeeds returns the feeds eligible for the next refresh, including the
// platform feed only when the quota still allows a call. Each call with a
// platform feed configured consumes one quota unit, so it must run exactly
// once per refresh.
func (p *AggregateProvider) activeFeeds() []Feed {
	feeds := make([]Feed, len(p.feeds))
	copy(feeds, p.feeds)
	if p.platform != nil {
		if p.quota.tryAcquire() {
			feeds = append(feeds, p.platform)
		} else {
			p.log.Warn("platform read quota exhausted, skipping platform feed",
				"limit", p.quota.stats().Limit)
		}
	}
	return feeds
}

// refresh fans out to every eligible feed, collects the survivors, dedupes by
// lowercase trend text and ranks external results above platform ones. It
// also reports how many feeds were queried.
func (p *AggregateProvider) refresh(ctx context.Context) ([]Source, int) {
	feeds := p.activeFeeds()
	if len(feeds) == 0 {
		return nil, 0
	}

	var mu sync.Mutex
	var collected []Source

	g, gctx := errgroup.WithContext(ctx)
	for _, feed := range feeds {
		feed := feed
		g.Go(func() error {
			sources, err := feed.Fetch(gctx)
			if err != nil {
				// Feed failures are independent; log and move on.
				p.log.Warn("trend feed failed", "feed", feed.Name(), "error", err)
				return nil
			}
			mu.Lock()
			collected = append(collected, sources...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return rankSources(dedupeSources(collected)), len(feeds)
}

// dedupeSources keeps the first occurrence of each trend, comparing
// case-insensitively.
func dedupeSources(sources []Source) []Source {
	seen := make(map[string]bool, len(sources))
	var out []Source
	for _, s := range sources {
		key := strings.ToLower(s.Trend)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// rankSources orders external-API results above platform-API results,
// preserving arrival order within each tier.
func rankSources(sources []Source) []Source {
	sort.SliceStable(sources, func(i, j int) bool {
		return originRank(sources[i].Origin) < originRank(sources[j].Origin)
	})
	return sources
}

func originRank(o Origin) int {
	switch o {
	case OriginExternal:
		return 0
	case OriginPlatform:
		return 1
	default:
		return 2
	}
}
