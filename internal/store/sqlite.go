package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"vistora/internal/domain"
)

// SQLite is a file-backed Store. A single connection serializes writers.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		input_path TEXT NOT NULL,
		output_path TEXT NOT NULL DEFAULT '',
		profile_name TEXT NOT NULL DEFAULT '',
		runner TEXT NOT NULL,
		quality_tier TEXT NOT NULL,
		detector_model TEXT NOT NULL,
		restorer_model TEXT NOT NULL,
		refiner_model TEXT NOT NULL DEFAULT '',
		duration_hint_seconds INTEGER NOT NULL DEFAULT 0,
		options TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL CHECK (status IN ('queued','running','done','failed','canceled')),
		stage TEXT NOT NULL,
		progress REAL NOT NULL,
		credits_reserved INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		started_at TEXT,
		finished_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_status_created_at ON jobs(status, created_at);
	CREATE TABLE IF NOT EXISTS accounts (
		user_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount INTEGER NOT NULL,
		consumed INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL,
		ref_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ledger_user_seq ON ledger_entries(user_id, seq);
	CREATE INDEX IF NOT EXISTS idx_ledger_user_ref ON ledger_entries(user_id, ref_id);
	CREATE TABLE IF NOT EXISTS profiles (
		name TEXT PRIMARY KEY,
		settings TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const sqliteJobColumns = `id, user_id, input_path, output_path, profile_name, runner, quality_tier,
	detector_model, restorer_model, refiner_model, duration_hint_seconds, options, status, stage,
	progress, credits_reserved, error, created_at, updated_at, started_at, finished_at`

func (s *SQLite) PutJob(ctx context.Context, job domain.Job) error {
	opts, err := encodeMap(job.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO jobs (`+sqliteJobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.UserID,
		job.InputPath,
		job.OutputPath,
		job.ProfileName,
		job.Runner,
		string(job.QualityTier),
		job.DetectorModel,
		job.RestorerModel,
		job.RefinerModel,
		job.DurationHintSeconds,
		opts,
		string(job.Status),
		job.Stage,
		job.Progress,
		job.CreditsReserved,
		job.Error,
		formatTime(job.CreatedAt),
		formatTime(job.UpdatedAt),
		formatTimePtr(job.StartedAt),
		formatTimePtr(job.FinishedAt),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteJob(row rowScanner) (domain.Job, error) {
	var (
		job                  domain.Job
		tier, status         string
		opts                 string
		created, updated     string
		started, finished    sql.NullString
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.InputPath,
		&job.OutputPath,
		&job.ProfileName,
		&job.Runner,
		&tier,
		&job.DetectorModel,
		&job.RestorerModel,
		&job.RefinerModel,
		&job.DurationHintSeconds,
		&opts,
		&status,
		&job.Stage,
		&job.Progress,
		&job.CreditsReserved,
		&job.Error,
		&created,
		&updated,
		&started,
		&finished,
	); err != nil {
		return domain.Job{}, err
	}
	job.QualityTier = domain.QualityTier(tier)
	job.Status = domain.JobStatus(status)
	var err error
	if job.Options, err = decodeMap([]byte(opts)); err != nil {
		return domain.Job{}, fmt.Errorf("decode options: %w", err)
	}
	if job.CreatedAt, err = parseTime(created); err != nil {
		return domain.Job{}, err
	}
	if job.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.Job{}, err
	}
	if job.StartedAt, err = parseTimePtr(nullString(started)); err != nil {
		return domain.Job{}, err
	}
	if job.FinishedAt, err = parseTimePtr(nullString(finished)); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func (s *SQLite) GetJob(ctx context.Context, id string) (domain.Job, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteJobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanSQLiteJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, false, nil
		}
		return domain.Job{}, false, err
	}
	return job, true, nil
}

func (s *SQLite) ListJobs(ctx context.Context) ([]domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteJobColumns+` FROM jobs ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Job
	for rows.Next() {
		job, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *SQLite) GetAccount(ctx context.Context, userID string) (domain.Account, bool, error) {
	var (
		acct             domain.Account
		created, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, balance, created_at, updated_at FROM accounts WHERE user_id = ?`, userID,
	).Scan(&acct.UserID, &acct.Balance, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, false, nil
		}
		return domain.Account{}, false, err
	}
	if acct.CreatedAt, err = parseTime(created); err != nil {
		return domain.Account{}, false, err
	}
	if acct.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.Account{}, false, err
	}
	return acct, true, nil
}

func (s *SQLite) ApplyEntries(ctx context.Context, acct domain.Account, entries []domain.LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at`,
		acct.UserID, acct.Balance, formatTime(acct.CreatedAt), formatTime(acct.UpdatedAt),
	); err != nil {
		return err
	}
	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM ledger_entries WHERE user_id = ?`, acct.UserID,
	).Scan(&seq); err != nil {
		return err
	}
	for _, e := range entries {
		seq++
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_entries (id, seq, user_id, kind, amount, consumed, reason, ref_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, seq, e.UserID, string(e.Kind), e.Amount, e.Consumed, e.Reason, e.RefID, formatTime(e.CreatedAt),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) queryEntries(ctx context.Context, query string, args ...any) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.LedgerEntry
	for rows.Next() {
		var (
			e       domain.LedgerEntry
			kind    string
			created string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.Amount, &e.Consumed, &e.Reason, &e.RefID, &created); err != nil {
			return nil, err
		}
		e.Kind = domain.EntryKind(kind)
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) ListEntries(ctx context.Context, userID string) ([]domain.LedgerEntry, error) {
	return s.queryEntries(ctx, `
		SELECT id, user_id, kind, amount, consumed, reason, ref_id, created_at
		FROM ledger_entries WHERE user_id = ? ORDER BY seq ASC`, userID)
}

func (s *SQLite) EntriesByRef(ctx context.Context, userID, refID string) ([]domain.LedgerEntry, error) {
	return s.queryEntries(ctx, `
		SELECT id, user_id, kind, amount, consumed, reason, ref_id, created_at
		FROM ledger_entries WHERE user_id = ? AND ref_id = ? ORDER BY seq ASC`, userID, refID)
}

func (s *SQLite) GetProfile(ctx context.Context, name string) (domain.Profile, bool, error) {
	var (
		p                 domain.Profile
		settings, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, settings, updated_at FROM profiles WHERE name = ?`, name,
	).Scan(&p.Name, &settings, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Profile{}, false, nil
		}
		return domain.Profile{}, false, err
	}
	if p.Settings, err = decodeMap([]byte(settings)); err != nil {
		return domain.Profile{}, false, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.Profile{}, false, err
	}
	return p, true, nil
}

func (s *SQLite) PutProfile(ctx context.Context, p domain.Profile) error {
	settings, err := encodeMap(p.Settings)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (name, settings, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET settings = excluded.settings, updated_at = excluded.updated_at`,
		p.Name, settings, formatTime(p.UpdatedAt))
	return err
}

func (s *SQLite) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, settings, updated_at FROM profiles ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Profile
	for rows.Next() {
		var (
			p                 domain.Profile
			settings, updated string
		)
		if err := rows.Scan(&p.Name, &settings, &updated); err != nil {
			return nil, err
		}
		if p.Settings, err = decodeMap([]byte(settings)); err != nil {
			return nil, err
		}
		if p.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ domain.Store = (*SQLite)(nil)
