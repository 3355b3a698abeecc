package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Feed is a single external trend source. Implementations are read-only and
// must be safe to call concurrently; a failing feed returns an error and
// contributes nothing.
type Feed interface {
	Name() string
	Fetch(ctx context.Context) ([]Source, error)
}

const feedTimeout = 10 * time.Second

// SearchTrendsFeed reads a search-trends service that exposes daily query
// volumes as JSON.
type SearchTrendsFeed struct {
	baseURL    string
	httpClient *http.Client
}

// NewSearchTrendsFeed creates a feed targeting the given base URL.
func NewSearchTrendsFeed(baseURL string) *SearchTrendsFeed {
	return &SearchTrendsFeed{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (f *SearchTrendsFeed) Name() string { return "search_trends" }

// searchTrendsResponse mirrors the JSON returned by GET /daily.
type searchTrendsResponse struct {
	Trends []struct {
		Query  string `json:"query"`
		Volume int    `json:"volume"`
	} `json:"trends"`
}

func (f *SearchTrendsFeed) Fetch(ctx context.Context) ([]Source, error) {
	ctx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/daily", nil)
	if err != nil {
		return nil, fmt.Errorf("creating search trends request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting search trends: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search trends: unexpected status %d", resp.StatusCode)
	}

	var result searchTrendsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding search trends response: %w", err)
	}

	out := make([]Source, 0, len(result.Trends))
	for _, t := range result.Trends {
		if t.Query == "" {
			continue
		}
		out = append(out, Source{
			Trend:     t.Query,
			Origin:    OriginExternal,
			Method:    f.Name(),
			Frequency: t.Volume,
		})
	}
	return out, nil
}

// LinkAggregatorFeed reads the popular-posts listing of a social link
// aggregator and uses post titles as trend candidates, carrying the vote
// score as the engagement metric.
type LinkAggregatorFeed struct {
	baseURL    string
	httpClient *http.Client
}

// NewLinkAggregatorFeed creates a feed targeting the given base URL.
func NewLinkAggregatorFeed(baseURL string) *LinkAggregatorFeed {
	return &LinkAggregatorFeed{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (f *LinkAggregatorFeed) Name() string { return "link_aggregator" }

// linkAggregatorResponse mirrors the JSON returned by GET /popular.json.
type linkAggregatorResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				Title string  `json:"title"`
				Score float64 `json:"score"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (f *LinkAggregatorFeed) Fetch(ctx context.Context) ([]Source, error) {
	ctx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/popular.json", nil)
	if err != nil {
		return nil, fmt.Errorf("creating link aggregator request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting popular posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("link aggregator: unexpected status %d", resp.StatusCode)
	}

	var result linkAggregatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding popular posts response: %w", err)
	}

	out := make([]Source, 0, len(result.Data.Children))
	for _, child := range result.Data.Children {
		if child.Data.Title == "" {
			continue
		}
		out = append(out, Source{
			Trend:      child.Data.Title,
			Origin:     OriginExternal,
			Method:     f.Name(),
			Engagement: child.Data.Score,
		})
	}
	return out, nil
}

// HeadlinesFeed reads top headlines from a news API and uses article titles
// as trend candidates.
type HeadlinesFeed struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHeadlinesFeed creates a feed targeting the given base URL. apiKey may be
// empty when the service does not require one.
func NewHeadlinesFeed(baseURL, apiKey string) *HeadlinesFeed {
	return &HeadlinesFeed{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

func (f *HeadlinesFeed) Name() string { return "headlines" }

// headlinesResponse mirrors the JSON returned by GET /top-headlines.
type headlinesResponse struct {
	Articles []struct {
		Title string `json:"title"`
	} `json:"articles"`
}

func (f *HeadlinesFeed) Fetch(ctx context.Context) ([]Source, error) {
	ctx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/top-headlines", nil)
	if err != nil {
		return nil, fmt.Errorf("creating headlines request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("X-Api-Key", f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting headlines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("headlines: unexpected status %d", resp.StatusCode)
	}

	var result headlinesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding headlines response: %w", err)
	}

	out := make([]Source, 0, len(result.Articles))
	for _, a := range result.Articles {
		if a.Title == "" {
			continue
		}
		out = append(out, Source{
			Trend:  a.Title,
			Origin: OriginExternal,
			Method: f.Name(),
		})
	}
	return out, nil
}
