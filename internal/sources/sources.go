package sources

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Mode selects where inspiration sources come from.
type Mode string

const (
	ModeStatic  Mode = "static"  // curated topics and users only
	ModeDynamic Mode = "dynamic" // live lookups against the platform
)

// Config is the persisted source settings.
type Config struct {
	Mode   Mode     `json:"mode"`
	Topics []string `json:"topics"`
	Users  []string `json:"users"`
}

func defaultConfig() Config {
	return Config{Mode: ModeStatic, Topics: []string{}, Users: []string{}}
}

// Manager owns the sources settings file. The file is read once at startup
// and rewritten after every mutation; a missing or unreadable file falls back
// to defaults (and writes them).
type Manager struct {
	path   string
	config Config
	rand   *rand.Rand
	log    *slog.Logger
}

// NewManager loads (or initializes) the settings file at path. rnd may be
// nil (time-seeded).
func NewManager(path string, rnd *rand.Rand, log *slog.Logger) *Manager {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{path: path, rand: rnd, log: log}
	m.config = m.load()
	return m
}

func (m *Manager) load() Config {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.log.Error("error loading sources", "path", m.path, "error", err)
		}
		cfg := defaultConfig()
		m.write(cfg)
		return cfg
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		m.log.Error("error parsing sources, using defaults", "path", m.path, "error", err)
		cfg = defaultConfig()
		m.write(cfg)
		return cfg
	}
	if cfg.Mode != ModeDynamic {
		cfg.Mode = ModeStatic
	}
	return cfg
}

func (m *Manager) write(cfg Config) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		m.log.Error("error encoding sources", "error", err)
		return
	}
	if dir := filepath.Dir(m.path); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		m.log.Error("error saving sources", "path", m.path, "error", err)
	}
}

// Config returns a copy of the current settings.
func (m *Manager) Config() Config {
	cfg := m.config
	cfg.Topics = append([]string(nil), m.config.Topics...)
	cfg.Users = append([]string(nil), m.config.Users...)
	return cfg
}

// SetMode switches between static and dynamic source modes.
func (m *Manager) SetMode(mode Mode) error {
	if mode != ModeStatic && mode != ModeDynamic {
		return fmt.Errorf("unknown source mode %q", mode)
	}
	m.config.Mode = mode
	m.write(m.config)
	return nil
}

// AddTopic appends a topic unless it is already present.
func (m *Manager) AddTopic(topic string) {
	for _, t := range m.config.Topics {
		if t == topic {
			return
		}
	}
	m.config.Topics = append(m.config.Topics, topic)
	m.write(m.config)
}

// RemoveTopic deletes a topic if present.
func (m *Manager) RemoveTopic(topic string) {
	out := m.config.Topics[:0]
	for _, t := range m.config.Topics {
		if t != topic {
			out = append(out, t)
		}
	}
	m.config.Topics = out
	m.write(m.config)
}

// AddUser appends a user unless already present.
func (m *Manager) AddUser(user string) {
	for _, u := range m.config.Users {
		if u == user {
			return
		}
	}
	m.config.Users = append(m.config.Users, user)
	m.write(m.config)
}

// RemoveUser deletes a user if present.
func (m *Manager) RemoveUser(user string) {
	out := m.config.Users[:0]
	for _, u := range m.config.Users {
		if u != user {
			out = append(out, u)
		}
	}
	m.config.Users = out
	m.write(m.config)
}

// RandomSource returns a random topic or user formatted for a prompt: topics
// carry a # prefix and users an @ prefix, normalized so the prefix is never
// doubled. Returns false when nothing is configured.
func (m *Manager) RandomSource() (string, bool) {
	var combined []string
	for _, t := range m.config.Topics {
		combined = append(combined, "#"+strings.TrimPrefix(t, "#"))
	}
	for _, u := range m.config.Users {
		combined = append(combined, "@"+strings.TrimPrefix(u, "@"))
	}
	if len(combined) == 0 {
		return "", false
	}
	return combined[m.rand.Intn(len(combined))], true
}
