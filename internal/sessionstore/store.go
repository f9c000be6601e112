package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// StaleSessionAge is the default age after which a leftover session row is
// considered abandoned. Resumable upload URLs expire after about a week.
const StaleSessionAge = 7 * 24 * time.Hour

// cleanThrottle limits the lazy stale sweep triggered by Save.
const cleanThrottle = 1 * time.Hour

const (
	sqlInsertSession = `INSERT INTO upload_sessions
		(session_id, upload_url, file_name, declared_length, content_type, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	sqlSelectColumns = `SELECT session_id, upload_url, file_name, declared_length,
		content_type, owner_id, created_at FROM upload_sessions`

	sqlGetSession    = sqlSelectColumns + ` WHERE session_id = ?`
	sqlListSessions  = sqlSelectColumns + ` ORDER BY created_at, session_id`
	sqlListByOwner   = sqlSelectColumns + ` WHERE owner_id = ? ORDER BY created_at, session_id`
	sqlDeleteSession = `DELETE FROM upload_sessions WHERE session_id = ?`
	sqlDeleteBefore  = `DELETE FROM upload_sessions WHERE created_at < ?`
)

// Store is a SQLite-backed session table. It is the sole writer to its
// database file and safe for concurrent use: sessions of different uploads
// are independent single-row writes.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time

	cleanMu   sync.Mutex
	lastClean time.Time
	closed    bool // guarded by cleanMu; no sweep starts once set
	cleanWG   sync.WaitGroup
}

// Open opens (creating if needed) the database at dbPath and applies
// migrations. Use ":memory:" in tests.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: opening database %s: %w", dbPath, err)
	}

	// One connection: writes are serialized and ":memory:" stays one database.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("session store opened", slog.String("db_path", dbPath))

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Close waits for any background sweep and closes the database.
func (s *Store) Close() error {
	s.cleanMu.Lock()
	s.closed = true
	s.cleanMu.Unlock()

	s.cleanWG.Wait()
	return s.db.Close()
}

// Save inserts a session and returns it unchanged. A second Save of the
// same ID or upload URL fails: sessions are write-once.
func (s *Store) Save(ctx context.Context, us UploadSession) (UploadSession, error) {
	if us.ID == "" {
		return UploadSession{}, fmt.Errorf("sessionstore: session has no ID")
	}

	_, err := s.db.ExecContext(ctx, sqlInsertSession,
		us.ID, us.UploadURL, us.FileName, us.DeclaredLength,
		us.ContentType, us.OwnerID, us.CreatedAt.UnixNano(),
	)
	if err != nil {
		return UploadSession{}, fmt.Errorf("sessionstore: saving session %s: %w", us.ID, err)
	}

	s.logger.Debug("upload session saved",
		slog.String("session_id", us.ID),
		slog.String("file", us.FileName),
		slog.Int64("length", us.DeclaredLength),
	)

	s.maybeClean()

	return us, nil
}

// Get returns one session, or ErrSessionNotFound.
func (s *Store) Get(ctx context.Context, id string) (UploadSession, error) {
	us, err := scanSession(s.db.QueryRowContext(ctx, sqlGetSession, id))
	if errors.Is(err, sql.ErrNoRows) {
		return UploadSession{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	if err != nil {
		return UploadSession{}, fmt.Errorf("sessionstore: loading session %s: %w", id, err)
	}

	return us, nil
}

// Delete removes a session by ID. Deleting an absent session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, sqlDeleteSession, id)
	if err != nil {
		return fmt.Errorf("sessionstore: deleting session %s: %w", id, err)
	}

	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite always reports rows affected
		s.logger.Debug("delete of unknown session", slog.String("session_id", id))
	}

	return nil
}

// List returns all sessions, oldest first. An empty ownerID lists every
// owner's sessions.
func (s *Store) List(ctx context.Context, ownerID string) ([]UploadSession, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if ownerID == "" {
		rows, err = s.db.QueryContext(ctx, sqlListSessions)
	} else {
		rows, err = s.db.QueryContext(ctx, sqlListByOwner, ownerID)
	}

	if err != nil {
		return nil, fmt.Errorf("sessionstore: listing sessions: %w", err)
	}
	defer rows.Close()

	var out []UploadSession

	for rows.Next() {
		us, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("sessionstore: scanning session: %w", err)
		}

		out = append(out, us)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sessionstore: iterating sessions: %w", err)
	}

	return out, nil
}

// CleanStale deletes sessions created more than maxAge ago and returns how
// many were removed.
func (s *Store) CleanStale(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.nowFunc().Add(-maxAge)

	res, err := s.db.ExecContext(ctx, sqlDeleteBefore, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sessionstore: cleaning stale sessions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sessionstore: counting cleaned sessions: %w", err)
	}

	if n > 0 {
		s.logger.Info("deleted stale upload sessions",
			slog.Int64("count", n),
			slog.Duration("max_age", maxAge),
		)
	}

	return int(n), nil
}

// maybeClean starts a background stale sweep at most once per cleanThrottle.
func (s *Store) maybeClean() {
	s.cleanMu.Lock()
	defer s.cleanMu.Unlock()

	if s.closed {
		return
	}

	now := s.nowFunc()
	if now.Sub(s.lastClean) < cleanThrottle {
		return
	}

	s.lastClean = now
	s.cleanWG.Add(1)

	go func() {
		defer s.cleanWG.Done()

		if _, err := s.CleanStale(context.Background(), StaleSessionAge); err != nil {
			s.logger.Warn("background session cleanup failed", slog.String("error", err.Error()))
		}
	}()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (UploadSession, error) {
	var (
		us      UploadSession
		created int64
	)

	if err := r.Scan(&us.ID, &us.UploadURL, &us.FileName, &us.DeclaredLength,
		&us.ContentType, &us.OwnerID, &created); err != nil {
		return UploadSession{}, err
	}

	us.CreatedAt = time.Unix(0, created).UTC()

	return us, nil
}
