// Package store persists completed run sessions to SQLite. Each session is
// stored as a self-contained JSON document plus a few indexed columns for
// listing without deserializing whole trees.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"riva/internal/intention"
	"riva/internal/logging"
)

// SessionStore provides durable persistence for engine sessions.
// Thread-safe with a read-write mutex; sessions are immutable once saved.
type SessionStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// SessionSummary is the listing row: enough to pick a session without
// loading its tree.
type SessionSummary struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Goal        string    `json:"goal"`
	Outcome     string    `json:"outcome"`
	TotalCycles int       `json:"total_cycles"`
	MaxDepth    int       `json:"max_depth"`
}

// NewSessionStore opens (or creates) the SQLite database at the given path.
func NewSessionStore(path string) (*SessionStore, error) {
	logging.StoreDebug("Initializing SessionStore at path: %s", path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SessionStore{db: db, dbPath: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure session schema: %w", err)
	}

	logging.Store("SessionStore initialized")
	return s, nil
}

func (s *SessionStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		goal TEXT NOT NULL,
		outcome TEXT NOT NULL,
		total_cycles INTEGER NOT NULL,
		max_depth INTEGER NOT NULL,
		document TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_outcome ON sessions(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save persists a session as an immutable artifact.
func (s *SessionStore) Save(session *intention.Session) error {
	timer := logging.StartTimer(logging.CategoryStore, "SaveSession")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	document, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session %s: %w", session.ID, err)
	}

	outcome := metadataString(session.Metadata, "outcome")
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO sessions
		(id, created_at, goal, outcome, total_cycles, max_depth, document)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.Timestamp, session.Root.What, outcome,
		metadataInt(session.Metadata, "total_cycles"),
		metadataInt(session.Metadata, "max_depth"),
		string(document),
	)
	if err != nil {
		logging.StoreError("Failed to store session %s: %v", session.ID, err)
		return fmt.Errorf("failed to store session: %w", err)
	}

	logging.StoreDebug("Session stored: %s (outcome=%s)", session.ID, outcome)
	return nil
}

// Load retrieves a session by id, reconstructing the full intention tree.
func (s *SessionStore) Load(id string) (*intention.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var document string
	err := s.db.QueryRow(`SELECT document FROM sessions WHERE id = ?`, id).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var session intention.Session
	if err := json.Unmarshal([]byte(document), &session); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", id, err)
	}
	return &session, nil
}

// List returns summaries of the most recent sessions, newest first.
func (s *SessionStore) List(limit int) ([]SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, created_at, goal, outcome, total_cycles, max_depth
		FROM sessions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var summaries []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var createdAt string
		if err := rows.Scan(&sum.ID, &createdAt, &sum.Goal, &sum.Outcome,
			&sum.TotalCycles, &sum.MaxDepth); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			sum.CreatedAt = ts
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Delete removes a session by id.
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

func metadataString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func metadataInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
