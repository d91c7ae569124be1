package checkpoint

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/verity-labs/chorus/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore persists checkpoints in a SQLite database. WAL mode keeps
// concurrent readers off the writers' backs; updates take the write
// lock up front (IMMEDIATE transactions) so read-modify-write cycles
// never lose a concurrent update.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB

	mu    sync.Mutex
	locks map[core.SessionID]*sync.Mutex
}

// NewSQLiteStore opens (or creates) a SQLite-backed store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{
		dbPath: dbPath,
		db:     db,
		locks:  make(map[core.SessionID]*sync.Mutex),
	}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// migrate runs pending migrations.
func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet, run initial migration.
		version = 0
	}

	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Write persists a full session snapshot.
func (s *SQLiteStore) Write(ctx context.Context, session *core.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	payload, checksum, err := encodeSession(session)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, topic, current_stage, payload, checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			topic = excluded.topic,
			current_stage = excluded.current_stage,
			payload = excluded.payload,
			checksum = excluded.checksum,
			updated_at = excluded.updated_at
	`,
		string(session.ID), session.Topic, string(session.CurrentStage),
		string(payload), checksum,
		session.CreatedAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing checkpoint for %s: %w", session.ID, err)
	}
	return nil
}

// sessionLock returns the mutex serializing in-process updates for one
// session. Cross-process writers serialize on the database write lock.
func (s *SQLiteStore) sessionLock(id core.SessionID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// Update applies a named-node delta inside a single transaction, so a
// concurrent Read sees either the previous or the updated checkpoint,
// never an intermediate state.
func (s *SQLiteStore) Update(ctx context.Context, id core.SessionID, delta core.Delta, stage core.Stage) error {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	session, err := s.readRow(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := applyDelta(session, delta, stage); err != nil {
		return err
	}

	payload, checksum, err := encodeSession(session)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE sessions
		SET current_stage = ?, payload = ?, checksum = ?, updated_at = ?
		WHERE session_id = ?
	`,
		string(session.CurrentStage), string(payload), checksum,
		time.Now().UTC().Format(time.RFC3339Nano), string(id),
	)
	if err != nil {
		return fmt.Errorf("updating checkpoint for %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing checkpoint for %s: %w", id, err)
	}
	return nil
}

// querier covers both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) readRow(ctx context.Context, q querier, id core.SessionID) (*core.Session, error) {
	var payload, checksum string
	err := q.QueryRowContext(ctx,
		"SELECT payload, checksum FROM sessions WHERE session_id = ?", string(id),
	).Scan(&payload, &checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrSessionNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint for %s: %w", id, err)
	}
	return decodeSession(id, []byte(payload), checksum)
}

// Read returns the current session snapshot.
func (s *SQLiteStore) Read(ctx context.Context, id core.SessionID) (*core.Session, error) {
	return s.readRow(ctx, s.db, id)
}

// List returns the IDs of all checkpointed sessions.
func (s *SQLiteStore) List(ctx context.Context) ([]core.SessionID, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT session_id FROM sessions ORDER BY session_id")
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []core.SessionID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, core.SessionID(id))
	}
	return ids, rows.Err()
}
