package session

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const timeLayout = time.RFC3339Nano

// Store persists sessions, their logs, and their lifecycle events to a
// SQLite database. Grounded on jra3-linear-fuse's internal/db.Store (WAL
// mode, embedded schema, schema-mismatch recreate-on-open), generalized
// from hand-written sqlc-style query methods to this package's Session
// model instead of Linear issues.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a SQLite database at dbPath, applying schema.sql. A
// database left over from an incompatible (pre-rewrite) schema is detected
// and replaced rather than left to fail every query. A legacy pre-rewrite
// database at the teacher's old sessions.db path, if present alongside
// dbPath, is migrated out of the way exactly once by renaming it to
// "<name>.db.migrated" so a stale file never shadows the active one.
func Open(dbPath string) (*Store, error) {
	migrateLegacyDB(dbPath)

	store, err := openDB(dbPath)
	if err != nil {
		if isSchemaMismatch(err) {
			if rmErr := os.Remove(dbPath); rmErr != nil && !os.IsNotExist(rmErr) {
				return nil, fmt.Errorf("remove incompatible session db: %w", rmErr)
			}
			os.Remove(dbPath + "-wal")
			os.Remove(dbPath + "-shm")
			return openDB(dbPath)
		}
		return nil, err
	}
	return store, nil
}

// legacyDBName is the session database's pre-rewrite filename; the
// sessions/session_logs/session_events tables are unchanged since then, so
// the file is renamed in place rather than re-imported.
const legacyDBName = "sessions.db"

// migrateLegacyDB renames a legacy sessions.db sitting next to dbPath to
// "sessions.db.migrated", once. It is a no-op if dbPath already uses the
// legacy name, if no legacy file exists, or if it was already migrated.
func migrateLegacyDB(dbPath string) {
	if filepath.Base(dbPath) == legacyDBName {
		return
	}
	legacyPath := filepath.Join(filepath.Dir(dbPath), legacyDBName)
	if _, err := os.Stat(legacyPath); err != nil {
		return
	}
	_ = os.Rename(legacyPath, legacyPath+".migrated")
	for _, suffix := range []string{"-wal", "-shm"} {
		if _, err := os.Stat(legacyPath + suffix); err == nil {
			_ = os.Rename(legacyPath+suffix, legacyPath+suffix+".migrated")
		}
	}
}

func isSchemaMismatch(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "SQL logic error")
}

func openDB(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create session db directory: %w", err)
		}
	}

	escaped := strings.ReplaceAll(dbPath, " ", "%20")
	db, err := sql.Open("sqlite", "file:"+escaped+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// One connection: writes are serialized, and the per-connection PRAGMAs
	// below apply to every statement.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize session schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// DefaultDBPath returns "~/.lean-spec/leanspec.db" (or
// "./.lean-spec/leanspec.db" if the home directory can't be resolved),
// matching the global state directory the rest of the CLI uses for
// cross-project data such as the project registry.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".lean-spec", "leanspec.db")
}

// ArchiveDir returns the directory archived session exports are written
// to: an "archives" sibling of the database file.
func (s *Store) ArchiveDir() string {
	return filepath.Join(filepath.Dir(s.path), "archives")
}

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	meta, err := json.Marshal(sess.Metadata)
	if err != nil {
		return fmt.Errorf("marshal session metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, project_path, spec_id, tool, mode, status, exit_code,
			started_at, ended_at, duration_ms, token_count, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ProjectPath, nullableString(sess.SpecID), sess.Tool, string(sess.Mode), string(sess.Status),
		nullableInt(sess.ExitCode), sess.StartedAt.Format(timeLayout), nullableTime(sess.EndedAt),
		nullableInt64(sess.DurationMS), nullableInt64(sess.TokenCount), string(meta),
		sess.CreatedAt.Format(timeLayout), sess.UpdatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// UpdateSession rewrites every mutable column of an existing session row.
func (s *Store) UpdateSession(ctx context.Context, sess *Session) error {
	meta, err := json.Marshal(sess.Metadata)
	if err != nil {
		return fmt.Errorf("marshal session metadata: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, exit_code = ?, ended_at = ?, duration_ms = ?,
			token_count = ?, metadata = ?, updated_at = ?
		WHERE id = ?`,
		string(sess.Status), nullableInt(sess.ExitCode), nullableTime(sess.EndedAt),
		nullableInt64(sess.DurationMS), nullableInt64(sess.TokenCount), string(meta),
		sess.UpdatedAt.Format(timeLayout), sess.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session not found: %s", sess.ID)
	}
	return nil
}

// GetSession fetches a single session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_path, spec_id, tool, mode, status, exit_code,
			started_at, ended_at, duration_ms, token_count, metadata, created_at, updated_at
		FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return sess, nil
}

// ListFilter narrows ListSessions; zero-valued fields are unconstrained.
type ListFilter struct {
	ProjectPath string
	SpecID      string
	Status      Status
}

// ListSessions returns sessions matching filter, most recently created first.
func (s *Store) ListSessions(ctx context.Context, filter ListFilter) ([]*Session, error) {
	query := `SELECT id, project_path, spec_id, tool, mode, status, exit_code,
		started_at, ended_at, duration_ms, token_count, metadata, created_at, updated_at
		FROM sessions WHERE 1=1`
	var args []any
	if filter.ProjectPath != "" {
		query += " AND project_path = ?"
		args = append(args, filter.ProjectPath)
	}
	if filter.SpecID != "" {
		query += " AND spec_id = ?"
		args = append(args, filter.SpecID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and its logs/events (cascaded).
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// AppendLog records one log line for a session.
func (s *Store) AppendLog(ctx context.Context, log Log) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_logs (session_id, timestamp, level, message) VALUES (?, ?, ?, ?)`,
		log.SessionID, log.Timestamp.Format(timeLayout), string(log.Level), log.Message)
	if err != nil {
		return fmt.Errorf("append session log: %w", err)
	}
	return nil
}

// ListLogs returns every log line for sessionID in chronological order.
func (s *Store) ListLogs(ctx context.Context, sessionID string) ([]Log, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, timestamp, level, message FROM session_logs
		WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session logs: %w", err)
	}
	defer rows.Close()

	var out []Log
	for rows.Next() {
		var l Log
		var ts, level string
		if err := rows.Scan(&l.ID, &l.SessionID, &ts, &level, &l.Message); err != nil {
			return nil, fmt.Errorf("scan session log: %w", err)
		}
		l.Timestamp, _ = time.Parse(timeLayout, ts)
		l.Level = LogLevel(level)
		out = append(out, l)
	}
	return out, rows.Err()
}

// RotateLogs deletes all but the most recent keep log rows for sessionID,
// returning the number of rows removed. keep <= 0 deletes every log row.
func (s *Store) RotateLogs(ctx context.Context, sessionID string, keep int) (int64, error) {
	if keep <= 0 {
		res, err := s.db.ExecContext(ctx, `DELETE FROM session_logs WHERE session_id = ?`, sessionID)
		if err != nil {
			return 0, fmt.Errorf("rotate session logs: %w", err)
		}
		n, _ := res.RowsAffected()
		return n, nil
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM session_logs
		WHERE session_id = ? AND id NOT IN (
			SELECT id FROM session_logs WHERE session_id = ? ORDER BY id DESC LIMIT ?
		)`, sessionID, sessionID, keep)
	if err != nil {
		return 0, fmt.Errorf("rotate session logs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// AppendEvent records one lifecycle event for a session.
func (s *Store) AppendEvent(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_events (session_id, event_type, data, timestamp) VALUES (?, ?, ?, ?)`,
		event.SessionID, string(event.Type), event.Data, event.Timestamp.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("append session event: %w", err)
	}
	return nil
}

// ListEvents returns every lifecycle event for sessionID in chronological
// order.
func (s *Store) ListEvents(ctx context.Context, sessionID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, event_type, data, timestamp FROM session_events
		WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var eventType, ts string
		if err := rows.Scan(&e.ID, &e.SessionID, &eventType, &e.Data, &ts); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		e.Type = EventType(eventType)
		e.Timestamp, _ = time.Parse(timeLayout, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var sess Session
	var specID, exitCode, endedAt, durationMS, tokenCount sql.NullString
	var mode, status, started, created, updated, meta string

	if err := row.Scan(&sess.ID, &sess.ProjectPath, &specID, &sess.Tool, &mode, &status, &exitCode,
		&started, &endedAt, &durationMS, &tokenCount, &meta, &created, &updated); err != nil {
		return nil, err
	}

	sess.Mode = Mode(mode)
	sess.Status = Status(status)
	if specID.Valid {
		sess.SpecID = specID.String
	}
	sess.StartedAt, _ = time.Parse(timeLayout, started)
	sess.CreatedAt, _ = time.Parse(timeLayout, created)
	sess.UpdatedAt, _ = time.Parse(timeLayout, updated)
	if endedAt.Valid {
		t, _ := time.Parse(timeLayout, endedAt.String)
		sess.EndedAt = &t
	}
	if exitCode.Valid {
		var code int
		fmt.Sscanf(exitCode.String, "%d", &code)
		sess.ExitCode = &code
	}
	if durationMS.Valid {
		var d int64
		fmt.Sscanf(durationMS.String, "%d", &d)
		sess.DurationMS = &d
	}
	if tokenCount.Valid {
		var c int64
		fmt.Sscanf(tokenCount.String, "%d", &c)
		sess.TokenCount = &c
	}
	sess.Metadata = map[string]string{}
	if meta != "" {
		_ = json.Unmarshal([]byte(meta), &sess.Metadata)
	}

	return &sess, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullableInt64(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(timeLayout)
}
