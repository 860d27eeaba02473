package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/varunch/reviewbot/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool, so
	// concurrent sessions never hit "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Sessions ---

const sessionColumns = `id, repository, pr_number, title, description, status,
	files_reviewed, comments_posted, final_summary, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*models.ReviewSession, error) {
	sess := &models.ReviewSession{}
	var status string
	err := row.Scan(&sess.ID, &sess.Repository, &sess.PRNumber, &sess.Title,
		&sess.Description, &status, &sess.FilesReviewed, &sess.CommentsPosted,
		&sess.FinalSummary, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sess.Status = models.SessionStatus(status)
	return sess, nil
}

// CreateOrLoadSession returns the existing session for (repository, prNumber)
// or atomically creates a new in_progress one. The unique index on the pair
// guarantees at most one session per key even under concurrent callers.
func (s *SQLiteStore) CreateOrLoadSession(ctx context.Context, repository string, prNumber int, title, description string) (*models.ReviewSession, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, repository, pr_number, title, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repository, pr_number) DO NOTHING`,
		newULID(), repository, prNumber, title, description,
		string(models.SessionStatusInProgress), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return s.GetSessionByKey(ctx, repository, prNumber)
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.ReviewSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) GetSessionByKey(ctx context.Context, repository string, prNumber int) (*models.ReviewSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE repository = ? AND pr_number = ?`,
		repository, prNumber)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session for %s#%d: %w", repository, prNumber, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session by key: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]*models.ReviewSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY updated_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*models.ReviewSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// ReopenSession moves a failed session back to in_progress so a re-run can
// resume it. Reopening a completed session is a conflict.
func (s *SQLiteStore) ReopenSession(ctx context.Context, id string) error {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if sess.Status == models.SessionStatusCompleted {
		return fmt.Errorf("reopen completed session %s: %w", id, ErrConflict)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
		string(models.SessionStatusInProgress), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("reopen session: %w", err)
	}
	return nil
}

// FinalizeSession records the terminal status and summary. Finalizing a
// session that already completed is a conflict; the caller is responsible
// for ensuring every selected file has an outcome first.
func (s *SQLiteStore) FinalizeSession(ctx context.Context, id, summary string, status models.SessionStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("finalize with non-terminal status %q: %w", status, ErrConflict)
	}

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if sess.Status == models.SessionStatusCompleted {
		return fmt.Errorf("session %s already completed: %w", id, ErrConflict)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, final_summary = ?, updated_at = ? WHERE id = ?`,
		string(status), summary, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finalize session: %w", err)
	}
	return nil
}

// --- File outcomes ---

// RecordFileOutcome writes the terminal result for one file. A second call
// for the same (session, file) pair fails with ErrConflict. For reviewed
// outcomes the comment memory row and session counters land in the same
// transaction as the outcome.
func (s *SQLiteStore) RecordFileOutcome(ctx context.Context, outcome *models.FileOutcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM file_outcomes WHERE session_id = ? AND file_path = ?",
		outcome.SessionID, outcome.FilePath).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check outcome: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("outcome already recorded for %s in session %s: %w",
			outcome.FilePath, outcome.SessionID, ErrConflict)
	}

	now := time.Now().UTC()
	outcome.CreatedAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO file_outcomes (session_id, file_path, kind, criticality, issue, diff_code, comment_ref, skip_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.SessionID, outcome.FilePath, string(outcome.Kind),
		string(outcome.Criticality), outcome.Issue, outcome.DiffCode,
		outcome.CommentRef, string(outcome.SkipReason), now,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}

	if outcome.Kind == models.OutcomeReviewed {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO review_comments (id, session_id, file_path, criticality, issue, diff_code, comment_ref, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			newULID(), outcome.SessionID, outcome.FilePath,
			string(outcome.Criticality), outcome.Issue, outcome.DiffCode,
			outcome.CommentRef, now,
		)
		if err != nil {
			return fmt.Errorf("insert review comment: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE sessions SET files_reviewed = files_reviewed + 1,
				comments_posted = comments_posted + 1, updated_at = ?
			WHERE id = ?`,
			now, outcome.SessionID)
	} else {
		_, err = tx.ExecContext(ctx,
			"UPDATE sessions SET updated_at = ? WHERE id = ?", now, outcome.SessionID)
	}
	if err != nil {
		return fmt.Errorf("update session counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListOutcomeKinds returns file path -> outcome kind, used by the
// orchestrator to skip already-resolved files when resuming.
func (s *SQLiteStore) ListOutcomeKinds(ctx context.Context, sessionID string) (map[string]models.OutcomeKind, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT file_path, kind FROM file_outcomes WHERE session_id = ?", sessionID)
	if err != nil {
		return nil, fmt.Errorf("list outcome kinds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	kinds := make(map[string]models.OutcomeKind)
	for rows.Next() {
		var path, kind string
		if err := rows.Scan(&path, &kind); err != nil {
			return nil, fmt.Errorf("scan outcome kind: %w", err)
		}
		kinds[path] = models.OutcomeKind(kind)
	}
	return kinds, rows.Err()
}

func (s *SQLiteStore) ListOutcomes(ctx context.Context, sessionID string) ([]*models.FileOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, file_path, kind, criticality, issue, diff_code, comment_ref, skip_reason, created_at
		FROM file_outcomes WHERE session_id = ? ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var outcomes []*models.FileOutcome
	for rows.Next() {
		o := &models.FileOutcome{}
		var kind, criticality, skipReason string
		if err := rows.Scan(&o.SessionID, &o.FilePath, &kind, &criticality,
			&o.Issue, &o.DiffCode, &o.CommentRef, &skipReason, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Kind = models.OutcomeKind(kind)
		o.Criticality = models.Criticality(criticality)
		o.SkipReason = models.SkipReason(skipReason)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// --- Review comment memory ---

func (s *SQLiteStore) ListFileIssues(ctx context.Context, sessionID, filePath string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT issue FROM review_comments
		WHERE session_id = ? AND file_path = ? ORDER BY created_at`,
		sessionID, filePath)
	if err != nil {
		return nil, fmt.Errorf("list file issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var issues []string
	for rows.Next() {
		var issue string
		if err := rows.Scan(&issue); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

func (s *SQLiteStore) CountFileComments(ctx context.Context, sessionID, filePath string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM review_comments WHERE session_id = ? AND file_path = ?",
		sessionID, filePath).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count file comments: %w", err)
	}
	return count, nil
}

// SetCommentRef backfills the external comment reference after a publish
// that initially failed or completed late.
func (s *SQLiteStore) SetCommentRef(ctx context.Context, sessionID, filePath, ref string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		"UPDATE file_outcomes SET comment_ref = ? WHERE session_id = ? AND file_path = ?",
		ref, sessionID, filePath)
	if err != nil {
		return fmt.Errorf("set comment ref: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("outcome for %s in session %s: %w", filePath, sessionID, ErrNotFound)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE review_comments SET comment_ref = ? WHERE session_id = ? AND file_path = ? AND comment_ref = ''",
		ref, sessionID, filePath)
	if err != nil {
		return fmt.Errorf("set comment ref on memory: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- Aggregates ---

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{SessionsByStatus: make(map[string]int)}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&stats.TotalSessions); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM review_comments").Scan(&stats.TotalComments); err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT file_path) FROM file_outcomes WHERE kind = 'reviewed'").Scan(&stats.UniqueFiles); err != nil {
		return nil, fmt.Errorf("count unique files: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM sessions GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("sessions by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.SessionsByStatus[status] = count
	}
	return stats, rows.Err()
}
