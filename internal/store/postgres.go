package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vistora/internal/domain"
)

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and ensures the schema exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(cctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	p := &Postgres{pool: pool}
	if err := p.ensureSchema(cctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return p, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
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
			duration_hint_seconds BIGINT NOT NULL DEFAULT 0,
			options JSONB NOT NULL DEFAULT '{}'::jsonb,
			status TEXT NOT NULL,
			stage TEXT NOT NULL,
			progress DOUBLE PRECISION NOT NULL,
			credits_reserved BIGINT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status_created_at ON jobs(status, created_at)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			user_id TEXT PRIMARY KEY,
			balance BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			amount BIGINT NOT NULL,
			consumed BIGINT NOT NULL DEFAULT 0,
			reason TEXT NOT NULL,
			ref_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_user_ref ON ledger_entries(user_id, ref_id)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			name TEXT PRIMARY KEY,
			settings JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const pgJobColumns = `id, user_id, input_path, output_path, profile_name, runner, quality_tier,
	detector_model, restorer_model, refiner_model, duration_hint_seconds, options, status, stage,
	progress, credits_reserved, error, created_at, updated_at, started_at, finished_at`

func (p *Postgres) PutJob(ctx context.Context, job domain.Job) error {
	opts, err := encodeMap(job.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	query := `
INSERT INTO jobs (` + pgJobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb, $13, $14, $15, $16, $17, $18, $19, $20, $21)
ON CONFLICT (id) DO UPDATE SET
    output_path = EXCLUDED.output_path,
    status = EXCLUDED.status,
    stage = EXCLUDED.stage,
    progress = EXCLUDED.progress,
    error = EXCLUDED.error,
    options = EXCLUDED.options,
    updated_at = EXCLUDED.updated_at,
    started_at = EXCLUDED.started_at,
    finished_at = EXCLUDED.finished_at;
`
	_, err = p.pool.Exec(ctx, query,
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
		job.CreatedAt.UTC(),
		job.UpdatedAt.UTC(),
		utcPtr(job.StartedAt),
		utcPtr(job.FinishedAt),
	)
	return err
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func scanPgJob(row pgx.Row) (domain.Job, error) {
	var (
		job          domain.Job
		tier, status string
		opts         []byte
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
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.StartedAt,
		&job.FinishedAt,
	); err != nil {
		return domain.Job{}, err
	}
	job.QualityTier = domain.QualityTier(tier)
	job.Status = domain.JobStatus(status)
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	job.StartedAt = utcPtr(job.StartedAt)
	job.FinishedAt = utcPtr(job.FinishedAt)
	var err error
	if job.Options, err = decodeMap(opts); err != nil {
		return domain.Job{}, fmt.Errorf("decode options: %w", err)
	}
	return job, nil
}

func (p *Postgres) GetJob(ctx context.Context, id string) (domain.Job, bool, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+pgJobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanPgJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Job{}, false, nil
		}
		return domain.Job{}, false, err
	}
	return job, true, nil
}

func (p *Postgres) ListJobs(ctx context.Context) ([]domain.Job, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+pgJobColumns+` FROM jobs ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Job
	for rows.Next() {
		job, err := scanPgJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (p *Postgres) GetAccount(ctx context.Context, userID string) (domain.Account, bool, error) {
	var acct domain.Account
	err := p.pool.QueryRow(ctx,
		`SELECT user_id, balance, created_at, updated_at FROM accounts WHERE user_id = $1`, userID,
	).Scan(&acct.UserID, &acct.Balance, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, false, nil
		}
		return domain.Account{}, false, err
	}
	acct.CreatedAt = acct.CreatedAt.UTC()
	acct.UpdatedAt = acct.UpdatedAt.UTC()
	return acct, true, nil
}

// ApplyEntries writes the balance and its ledger entries in one transaction.
func (p *Postgres) ApplyEntries(ctx context.Context, acct domain.Account, entries []domain.LedgerEntry) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
INSERT INTO accounts (user_id, balance, created_at, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at;
`, acct.UserID, acct.Balance, acct.CreatedAt.UTC(), acct.UpdatedAt.UTC()); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := tx.Exec(ctx, `
INSERT INTO ledger_entries (id, user_id, kind, amount, consumed, reason, ref_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`, e.ID, e.UserID, string(e.Kind), e.Amount, e.Consumed, e.Reason, e.RefID, e.CreatedAt.UTC()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (p *Postgres) queryEntries(ctx context.Context, query string, args ...any) ([]domain.LedgerEntry, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.LedgerEntry
	for rows.Next() {
		var (
			e    domain.LedgerEntry
			kind string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.Amount, &e.Consumed, &e.Reason, &e.RefID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = domain.EntryKind(kind)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) ListEntries(ctx context.Context, userID string) ([]domain.LedgerEntry, error) {
	return p.queryEntries(ctx, `
SELECT id, user_id, kind, amount, consumed, reason, ref_id, created_at
FROM ledger_entries WHERE user_id = $1 ORDER BY seq ASC`, userID)
}

func (p *Postgres) EntriesByRef(ctx context.Context, userID, refID string) ([]domain.LedgerEntry, error) {
	return p.queryEntries(ctx, `
SELECT id, user_id, kind, amount, consumed, reason, ref_id, created_at
FROM ledger_entries WHERE user_id = $1 AND ref_id = $2 ORDER BY seq ASC`, userID, refID)
}

func (p *Postgres) GetProfile(ctx context.Context, name string) (domain.Profile, bool, error) {
	var (
		prof     domain.Profile
		settings []byte
	)
	err := p.pool.QueryRow(ctx,
		`SELECT name, settings, updated_at FROM profiles WHERE name = $1`, name,
	).Scan(&prof.Name, &settings, &prof.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Profile{}, false, nil
		}
		return domain.Profile{}, false, err
	}
	if prof.Settings, err = decodeMap(settings); err != nil {
		return domain.Profile{}, false, err
	}
	prof.UpdatedAt = prof.UpdatedAt.UTC()
	return prof, true, nil
}

func (p *Postgres) PutProfile(ctx context.Context, prof domain.Profile) error {
	settings, err := encodeMap(prof.Settings)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
INSERT INTO profiles (name, settings, updated_at) VALUES ($1, $2::jsonb, $3)
ON CONFLICT (name) DO UPDATE SET settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at;
`, prof.Name, settings, prof.UpdatedAt.UTC())
	return err
}

func (p *Postgres) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := p.pool.Query(ctx, `SELECT name, settings, updated_at FROM profiles ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Profile
	for rows.Next() {
		var (
			prof     domain.Profile
			settings []byte
		)
		if err := rows.Scan(&prof.Name, &settings, &prof.UpdatedAt); err != nil {
			return nil, err
		}
		if prof.Settings, err = decodeMap(settings); err != nil {
			return nil, err
		}
		prof.UpdatedAt = prof.UpdatedAt.UTC()
		out = append(out, prof)
	}
	return out, rows.Err()
}

var _ domain.Store = (*Postgres)(nil)
