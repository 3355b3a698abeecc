package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server    ServerConfig
	Platform  PlatformConfig
	Inference InferenceConfig
	Trends    TrendsConfig
	Bot       BotConfig
	Storage   StorageConfig
	Log       LogConfig
}

// ServerConfig covers the HTTP status server started by `quill run`.
type ServerConfig struct {
	Port int
}

// PlatformConfig holds credentials and endpoint for the social platform API.
type PlatformConfig struct {
	BaseURL string
	Token   string
}

// InferenceConfig holds the hosted-inference endpoint and the model fallback
// chain.
type InferenceConfig struct {
	BaseURL   string
	Token     string
	Models    []string
	MaxTokens int
}

// TrendsConfig selects the trend provider. Mode "static" uses the built-in
// category bank; "aggregate" queries the configured external feeds.
type TrendsConfig struct {
	Mode              string
	SearchTrendsURL   string
	LinkAggregatorURL string
	HeadlinesURL      string
	HeadlinesAPIKey   string
	Quota             int
}

type BotConfig struct {
	IntervalHours int
	MaxPostLength int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Platform: PlatformConfig{
			BaseURL: "https://api.twitter.com",
		},
		Inference: InferenceConfig{
			BaseURL: "https://router.huggingface.co",
			Models: []string{
				"meta-llama/Llama-3.1-8B-Instruct",
				"mistralai/Mistral-7B-Instruct-v0.3",
				"Qwen/Qwen2-7B-Instruct",
			},
			MaxTokens: 80,
		},
		Trends: TrendsConfig{
			Mode:  "static",
			Quota: 100,
		},
		Bot: BotConfig{
			IntervalHours: 4,
			MaxPostLength: 280,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.quill.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/quill/config.json
// and secrets must be provided via environment variables.
//
// Environment variables (QUILL_*) override backend values on all platforms.
// Missing credentials are not an error here; commands that talk to external
// services call RequireCredentials first.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try the platform keychain for tokens still unset.
	if cfg.Platform.Token == "" {
		if key, err := kc.Get("quill", "platform_token"); err == nil && key != "" {
			cfg.Platform.Token = key
		}
	}
	if cfg.Inference.Token == "" {
		if key, err := kc.Get("quill", "inference_token"); err == nil && key != "" {
			cfg.Inference.Token = key
		}
	}

	return cfg, nil
}

// RequireCredentials verifies both API tokens are present; commands that
// talk to the platform or the inference service call this before starting.
func (c Config) RequireCredentials() error {
	var missing []string
	if c.Platform.Token == "" {
		missing = append(missing, "QUILL_PLATFORM_TOKEN")
	}
	if c.Inference.Token == "" {
		missing = append(missing, "QUILL_INFERENCE_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: set %s%s", strings.Join(missing, ", "), apiKeyHint())
	}
	return nil
}

// keychainReader reads from the platform secret store: macOS Keychain via the
// security CLI, a scoped secrets file elsewhere.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
