package analytics

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// maxRetainedErrors caps how many error records are kept; older rows are
// pruned on every insert.
const maxRetainedErrors = 100

// Snapshot is a point-in-time view of the bot's activity counters.
type Snapshot struct {
	TotalPosts      int            `json:"total_posts"`
	SuccessfulPosts int            `json:"successful_posts"`
	FailedPosts     int            `json:"failed_posts"`
	FallbackPosts   int            `json:"fallback_posts"`
	LastPostTime    *time.Time     `json:"last_post_time,omitempty"`
	LastPostContent string         `json:"last_post_content,omitempty"`
	Errors          []string       `json:"errors,omitempty"`
	Running         bool           `json:"running"`
	APICalls        map[string]int `json:"api_calls"`
	StartTime       *time.Time     `json:"start_time,omitempty"`
	Uptime          time.Duration  `json:"uptime"`
	SuccessRate     float64        `json:"success_rate"` // percentage
	LastErrorTime   *time.Time     `json:"last_error_time,omitempty"`
}

// Store persists bot analytics in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the analytics database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "quill.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// RecordPost records one post attempt. Content is only stored for successful
// posts.
func (s *Store) RecordPost(success bool, content string, fallback bool) error {
	if !success {
		content = ""
	}
	_, err := s.db.Exec(`
		INSERT INTO posts (id, created_at, success, content, fallback)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), time.Now().UTC().Format(time.RFC3339), boolInt(success), content, boolInt(fallback),
	)
	if err != nil {
		return fmt.Errorf("recording post: %w", err)
	}
	return nil
}

// RecordError stores an error message, pruning history beyond the retention
// cap.
func (s *Store) RecordError(msg string) error {
	_, err := s.db.Exec(`INSERT INTO errors (created_at, message) VALUES (?, ?)`,
		time.Now().UTC().Format(time.RFC3339), msg)
	if err != nil {
		return fmt.Errorf("recording error: %w", err)
	}

	_, err = s.db.Exec(`
		DELETE FROM errors WHERE id NOT IN (
			SELECT id FROM errors ORDER BY id DESC LIMIT ?
		)`, maxRetainedErrors)
	if err != nil {
		return fmt.Errorf("pruning errors: %w", err)
	}
	return nil
}

// RecordAPICall increments the per-service call counter.
func (s *Store) RecordAPICall(service string) error {
	_, err := s.db.Exec(`
		INSERT INTO api_calls (service, count) VALUES (?, 1)
		ON CONFLICT(service) DO UPDATE SET count = count + 1`, service)
	if err != nil {
		return fmt.Errorf("recording api call: %w", err)
	}
	return nil
}

// SetRunning marks the bot as running or stopped. The first transition to
// running stamps the start time; stopping preserves it.
func (s *Store) SetRunning(running bool) error {
	if running {
		_, err := s.db.Exec(`
			UPDATE bot_state SET running = 1,
				start_time = COALESCE(start_time, ?)
			WHERE id = 1`, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("setting running state: %w", err)
		}
		return nil
	}
	if _, err := s.db.Exec(`UPDATE bot_state SET running = 0 WHERE id = 1`); err != nil {
		return fmt.Errorf("setting running state: %w", err)
	}
	return nil
}

// Reset clears all counters and history.
func (s *Store) Reset() error {
	stmts := []string{
		`DELETE FROM posts`,
		`DELETE FROM errors`,
		`DELETE FROM api_calls`,
		`UPDATE bot_state SET running = 0, start_time = NULL WHERE id = 1`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("resetting analytics: %w", err)
		}
	}
	return nil
}

// Snapshot builds the current analytics view. Uptime is computed from the
// stored start time while the bot is running; success rate is a percentage of
// all recorded posts.
func (s *Store) Snapshot() (Snapshot, error) {
	var snap Snapshot
	snap.APICalls = make(map[string]int)

	err := s.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(success), 0),
			COALESCE(SUM(1 - success), 0),
			COALESCE(SUM(fallback), 0)
		FROM posts`).Scan(&snap.TotalPosts, &snap.SuccessfulPosts, &snap.FailedPosts, &snap.FallbackPosts)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading post counters: %w", err)
	}

	var lastAt, lastContent string
	err = s.db.QueryRow(`
		SELECT created_at, content FROM posts
		WHERE success = 1 ORDER BY created_at DESC, id DESC LIMIT 1`).Scan(&lastAt, &lastContent)
	if err != nil && err != sql.ErrNoRows {
		return Snapshot{}, fmt.Errorf("reading last post: %w", err)
	}
	if err == nil {
		if t, perr := time.Parse(time.RFC3339, lastAt); perr == nil {
			snap.LastPostTime = &t
		}
		snap.LastPostContent = lastContent
	}

	rows, err := s.db.Query(`SELECT created_at, message FROM errors ORDER BY id ASC`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading errors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var at, msg string
		if err := rows.Scan(&at, &msg); err != nil {
			return Snapshot{}, err
		}
		snap.Errors = append(snap.Errors, at+": "+msg)
		if t, perr := time.Parse(time.RFC3339, at); perr == nil {
			snap.LastErrorTime = &t
		}
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}

	calls, err := s.db.Query(`SELECT service, count FROM api_calls`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading api calls: %w", err)
	}
	defer calls.Close()
	for calls.Next() {
		var service string
		var count int
		if err := calls.Scan(&service, &count); err != nil {
			return Snapshot{}, err
		}
		snap.APICalls[service] = count
	}
	if err := calls.Err(); err != nil {
		return Snapshot{}, err
	}

	var running int
	var startTime sql.NullString
	err = s.db.QueryRow(`SELECT running, start_time FROM bot_state WHERE id = 1`).Scan(&running, &startTime)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading bot state: %w", err)
	}
	snap.Running = running == 1
	if startTime.Valid {
		if t, perr := time.Parse(time.RFC3339, startTime.String); perr == nil {
			snap.StartTime = &t
			if snap.Running {
				snap.Uptime = time.Since(t)
			}
		}
	}

	if snap.TotalPosts > 0 {
		snap.SuccessRate = float64(snap.SuccessfulPosts) / float64(snap.TotalPosts) * 100
	}

	return snap, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
