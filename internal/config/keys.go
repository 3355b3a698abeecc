package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "QUILL_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "platform.base_url", typ: kString, env: "QUILL_PLATFORM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Platform.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Platform.BaseURL },
	},
	{
		key: "platform.token", typ: kString, env: "QUILL_PLATFORM_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Platform.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Platform.Token },
	},
	{
		key: "inference.base_url", typ: kString, env: "QUILL_INFERENCE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Inference.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Inference.BaseURL },
	},
	{
		key: "inference.token", typ: kString, env: "QUILL_INFERENCE_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Inference.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Inference.Token },
	},
	{
		// Comma-separated fallback chain, tried in order.
		key: "inference.models", typ: kString, env: "QUILL_INFERENCE_MODELS",
		apply:   func(cfg *Config, v any) { cfg.Inference.Models = splitList(v.(string)) },
		extract: func(cfg Config) any { return strings.Join(cfg.Inference.Models, ",") },
	},
	{
		key: "inference.max_tokens", typ: kInt, env: "QUILL_INFERENCE_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Inference.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Inference.MaxTokens },
	},
	{
		key: "trends.mode", typ: kString, env: "QUILL_TRENDS_MODE",
		apply:   func(cfg *Config, v any) { cfg.Trends.Mode = v.(string) },
		extract: func(cfg Config) any { return cfg.Trends.Mode },
	},
	{
		key: "trends.search_trends_url", typ: kString, env: "QUILL_TRENDS_SEARCH_TRENDS_URL",
		apply:   func(cfg *Config, v any) { cfg.Trends.SearchTrendsURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Trends.SearchTrendsURL },
	},
	{
		key: "trends.link_aggregator_url", typ: kString, env: "QUILL_TRENDS_LINK_AGGREGATOR_URL",
		apply:   func(cfg *Config, v any) { cfg.Trends.LinkAggregatorURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Trends.LinkAggregatorURL },
	},
	{
		key: "trends.headlines_url", typ: kString, env: "QUILL_TRENDS_HEADLINES_URL",
		apply:   func(cfg *Config, v any) { cfg.Trends.HeadlinesURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Trends.HeadlinesURL },
	},
	{
		key: "trends.headlines_api_key", typ: kString, env: "QUILL_TRENDS_HEADLINES_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Trends.HeadlinesAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Trends.HeadlinesAPIKey },
	},
	{
		key: "trends.quota", typ: kInt, env: "QUILL_TRENDS_QUOTA",
		apply:   func(cfg *Config, v any) { cfg.Trends.Quota = v.(int) },
		extract: func(cfg Config) any { return cfg.Trends.Quota },
	},
	{
		key: "bot.interval_hours", typ: kInt, env: "QUILL_BOT_INTERVAL_HOURS",
		apply:   func(cfg *Config, v any) { cfg.Bot.IntervalHours = v.(int) },
		extract: func(cfg Config) any { return cfg.Bot.IntervalHours },
	},
	{
		key: "bot.max_post_length", typ: kInt, env: "QUILL_BOT_MAX_POST_LENGTH",
		apply:   func(cfg *Config, v any) { cfg.Bot.MaxPostLength = v.(int) },
		extract: func(cfg Config) any { return cfg.Bot.MaxPostLength },
	},
	{
		key: "storage.data_dir", typ: kString, env: "QUILL_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "QUILL_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
