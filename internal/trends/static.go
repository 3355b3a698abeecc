package trends

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// categoryBank is the built-in trend taxonomy used when no external feeds are
// configured. Entries are sampled, never returned wholesale.
var categoryBank = map[string][]string{
	"technology": {
		"#AI", "#Tech", "#Programming", "#Coding", "#Software", "#MachineLearning",
		"#DataScience", "#WebDev", "#MobileApp", "#Startup", "#Innovation", "#Future",
	},
	"gaming": {
		"#Gaming", "#Gamer", "#Esports", "#Streaming", "#GamingNews",
		"#PCGaming", "#ConsoleGaming", "#MobileGaming", "#IndieGame", "#GameDev",
	},
	"politics": {
		"#Politics", "#News", "#Election", "#Congress", "#Democracy",
		"#Vote", "#Policy", "#Government", "#Civics",
	},
	"entertainment": {
		"#Entertainment", "#Movie", "#Music", "#TV", "#Film",
		"#Actor", "#Singer", "#Streaming", "#Series",
	},
	"sports": {
		"#Sports", "#Football", "#Basketball", "#Soccer", "#Athlete", "#Fitness",
		"#Olympics", "#Championship", "#Marathon",
	},
	"business": {
		"#Business", "#Finance", "#Startup", "#Entrepreneur",
		"#Investing", "#Markets", "#Economy", "#Leadership",
	},
	"lifestyle": {
		"#Lifestyle", "#Health", "#Wellness", "#Food", "#Travel",
		"#Home", "#DIY", "#Cooking", "#Adventure",
	},
	"education": {
		"#Education", "#Learning", "#Student", "#Teacher", "#University",
		"#Study", "#Knowledge", "#Research", "#Science",
	},
}

// categoryOrder keeps sampling deterministic under a seeded random source;
// map iteration order would defeat the seed.
var categoryOrder = []string{
	"technology", "gaming", "politics", "entertainment",
	"sports", "business", "lifestyle", "education",
}

// StaticProvider serves trend context from the built-in category bank. It
// never touches the network, which makes it the safe default for quota- or
// cost-constrained deployments. Safe for concurrent use; the random source is
// mutex-guarded because the scheduler and HTTP handlers share one provider.
type StaticProvider struct {
	cache  *snapshotCache
	rand   *rand.Rand
	randMu sync.Mutex
	log    *slog.Logger
}

// NewStaticProvider builds a static provider. rnd may be nil (time-seeded);
// ttl <= 0 uses DefaultTTL.
func NewStaticProvider(rnd *rand.Rand, ttl time.Duration, log *slog.Logger) *StaticProvider {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = slog.Default()
	}
	return &StaticProvider{
		cache: newSnapshotCache(ttl),
		rand:  rnd,
		log:   log,
	}
}

// TrendContext returns the cached snapshot when fresh, otherwise samples a new
// one from the category bank.
func (p *StaticProvider) TrendContext(_ context.Context) (Context, error) {
	if cached, ok := p.cache.fresh(); ok {
		p.log.Debug("using cached trend data")
		return cached, nil
	}

	sources := p.sample()
	snapshot := distribute(sources)
	p.cache.store(snapshot)

	p.log.Info("refreshed static trend bank",
		"trends", len(sources),
		"topics", len(snapshot.TrendingTopics),
		"hashtags", len(snapshot.ViralHashtags))
	return snapshot, nil
}

// RandomTopic draws uniformly from the union of all categorized lists.
func (p *StaticProvider) RandomTopic(ctx context.Context) (string, bool) {
	snapshot, err := p.TrendContext(ctx)
	if err != nil {
		return "", false
	}
	all := snapshot.AllTopics()
	if len(all) == 0 {
		return "", false
	}
	p.randMu.Lock()
	topic := all[p.rand.Intn(len(all))]
	p.randMu.Unlock()
	return topic, true
}

// IsTopicTrending reports whether topic appears in any cached trend text,
// case-insensitively.
func (p *StaticProvider) IsTopicTrending(ctx context.Context, topic string) bool {
	snapshot, err := p.TrendContext(ctx)
	if err != nil {
		return false
	}
	return containsTopic(snapshot, topic)
}

// sample picks 2-3 random categories and 2-4 trends from each, deduplicating
// by trend text.
func (p *StaticProvider) sample() []Source {
	p.randMu.Lock()
	defer p.randMu.Unlock()

	numCategories := p.rand.Intn(2) + 2
	var picked []string
	for len(picked) < numCategories {
		c := categoryOrder[p.rand.Intn(len(categoryOrder))]
		if !containsString(picked, c) {
			picked = append(picked, c)
		}
	}

	seen := make(map[string]bool)
	var out []Source
	for _, category := range picked {
		bank := categoryBank[category]
		numTrends := p.rand.Intn(3) + 2
		for i := 0; i < numTrends; i++ {
			trend := bank[p.rand.Intn(len(bank))]
			if seen[trend] {
				continue
			}
			seen[trend] = true
			out = append(out, Source{
				Trend:    trend,
				Origin:   OriginStatic,
				Method:   "category_selection",
				Category: category,
			})
		}
	}
	return out
}

// distribute splits a flat source list into the four context categories using
// a 40/30/20/10 proportion, boundaries rounded up.
func distribute(sources []Source) Context {
	n := len(sources)
	b1 := int(math.Ceil(float64(n) * 0.4))
	b2 := int(math.Ceil(float64(n) * 0.7))
	b3 := int(math.Ceil(float64(n) * 0.9))

	lists := SourceLists{
		TrendingTopics:  sources[:b1],
		ViralHashtags:   sources[b1:b2],
		CurrentEvents:   sources[b2:b3],
		PopularKeywords: sources[b3:],
	}
	return Context{
		TrendingTopics:  trendTexts(lists.TrendingTopics),
		ViralHashtags:   trendTexts(lists.ViralHashtags),
		CurrentEvents:   trendTexts(lists.CurrentEvents),
		PopularKeywords: trendTexts(lists.PopularKeywords),
		LastUpdated:     time.Now(),
		Sources:         lists,
	}
}

func trendTexts(sources []Source) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = s.Trend
	}
	return out
}

func containsTopic(snapshot Context, topic string) bool {
	needle := strings.ToLower(topic)
	for _, t := range snapshot.AllTopics() {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
