package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tobolak1/ppc-checker/internal/models"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and creates the schema if it is
// not there yet.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS ad_accounts (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			platform TEXT NOT NULL,
			external_id TEXT NOT NULL,
			name TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			credentials JSONB
		)`,
		`CREATE TABLE IF NOT EXISTS merchant_accounts (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			external_id TEXT NOT NULL,
			name TEXT NOT NULL,
			feed_url TEXT,
			active BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE TABLE IF NOT EXISTS check_configs (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			check_id TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT true,
			thresholds JSONB,
			UNIQUE (project_id, check_id)
		)`,
		`CREATE TABLE IF NOT EXISTS check_runs (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ,
			status TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS findings (
			id UUID PRIMARY KEY,
			check_run_id UUID NOT NULL REFERENCES check_runs(id) ON DELETE CASCADE,
			check_id TEXT NOT NULL,
			severity TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			data JSONB,
			resolved_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_check_id ON findings(check_id)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(check_run_id)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id UUID PRIMARY KEY,
			finding_id UUID NOT NULL REFERENCES findings(id) ON DELETE CASCADE,
			channel TEXT NOT NULL,
			status TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL,
			resolved_at TIMESTAMPTZ
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *PostgresStore) ListActiveAdAccounts(ctx context.Context, projectID string) ([]models.AdAccount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, platform, external_id, name, active, credentials
		FROM ad_accounts
		WHERE project_id = $1 AND active`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list ad accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.AdAccount
	for rows.Next() {
		var a models.AdAccount
		var creds []byte
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Platform, &a.ExternalID, &a.Name, &a.Active, &creds); err != nil {
			return nil, err
		}
		if len(creds) > 0 {
			if err := json.Unmarshal(creds, &a.Credentials); err != nil {
				return nil, fmt.Errorf("decode credentials for account %s: %w", a.ID, err)
			}
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) ListActiveMerchantAccounts(ctx context.Context, projectID string) ([]models.MerchantAccount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, external_id, name, COALESCE(feed_url, ''), active
		FROM merchant_accounts
		WHERE project_id = $1 AND active`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list merchant accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.MerchantAccount
	for rows.Next() {
		var m models.MerchantAccount
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.ExternalID, &m.Name, &m.FeedURL, &m.Active); err != nil {
			return nil, err
		}
		accounts = append(accounts, m)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) ListCheckConfigs(ctx context.Context, projectID string) ([]models.CheckConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, check_id, enabled, thresholds
		FROM check_configs
		WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list check configs: %w", err)
	}
	defer rows.Close()

	var configs []models.CheckConfig
	for rows.Next() {
		var c models.CheckConfig
		var thresholds []byte
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.CheckID, &c.Enabled, &thresholds); err != nil {
			return nil, err
		}
		if len(thresholds) > 0 {
			if err := json.Unmarshal(thresholds, &c.Thresholds); err != nil {
				return nil, fmt.Errorf("decode thresholds for config %s: %w", c.ID, err)
			}
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

func (s *PostgresStore) CreateCheckRun(ctx context.Context, run *models.CheckRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO check_runs (id, project_id, started_at, status)
		VALUES ($1, $2, $3, $4)`,
		run.ID, run.ProjectID, run.StartedAt, run.Status)
	if err != nil {
		return fmt.Errorf("create check run: %w", err)
	}
	return nil
}

func (s *PostgresStore) FinishCheckRun(ctx context.Context, runID string, status models.CheckRunStatus, endedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE check_runs SET status = $2, ended_at = $3 WHERE id = $1`,
		runID, status, endedAt)
	if err != nil {
		return fmt.Errorf("finish check run: %w", err)
	}
	return nil
}

func (s *PostgresStore) LastCompletedRuns(ctx context.Context, projectID string, limit int) ([]models.CheckRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, started_at, ended_at, status
		FROM check_runs
		WHERE project_id = $1 AND status = $2
		ORDER BY started_at DESC
		LIMIT $3`, projectID, models.RunStatusCompleted, limit)
	if err != nil {
		return nil, fmt.Errorf("last completed runs: %w", err)
	}
	defer rows.Close()

	var runs []models.CheckRun
	for rows.Next() {
		var r models.CheckRun
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.StartedAt, &r.EndedAt, &r.Status); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *PostgresStore) InsertFindings(ctx context.Context, findings []*models.Finding) error {
	for _, f := range findings {
		var data []byte
		if f.Data != nil {
			var err error
			data, err = json.Marshal(f.Data)
			if err != nil {
				return fmt.Errorf("encode finding data: %w", err)
			}
		}
		_, err := s.pool.Exec(ctx, `
			INSERT INTO findings (id, check_run_id, check_id, severity, title, message, data, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			f.ID, f.CheckRunID, f.CheckID, f.Severity, f.Title, f.Message, data, f.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert finding %s: %w", f.CheckID, err)
		}
	}
	return nil
}

func (s *PostgresStore) FindingCheckIDs(ctx context.Context, runID string) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT check_id FROM findings WHERE check_run_id = $1`, runID)
	if err != nil {
		return nil, fmt.Errorf("finding check ids: %w", err)
	}
	defer rows.Close()

	checkIDs := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		checkIDs[id] = true
	}
	return checkIDs, rows.Err()
}

func (s *PostgresStore) UnresolvedFindingsByRun(ctx context.Context, runID string) ([]models.Finding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, check_run_id, check_id, severity, title, message, created_at
		FROM findings
		WHERE check_run_id = $1 AND resolved_at IS NULL`, runID)
	if err != nil {
		return nil, fmt.Errorf("unresolved findings: %w", err)
	}
	defer rows.Close()
	return scanFindings(rows)
}

func (s *PostgresStore) LatestUnresolvedFinding(ctx context.Context, checkID string) (*models.Finding, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, check_run_id, check_id, severity, title, message, created_at
		FROM findings
		WHERE check_id = $1 AND resolved_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`, checkID)

	var f models.Finding
	err := row.Scan(&f.ID, &f.CheckRunID, &f.CheckID, &f.Severity, &f.Title, &f.Message, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest unresolved finding: %w", err)
	}
	return &f, nil
}

func (s *PostgresStore) ResolvedFindingIDs(ctx context.Context, checkID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM findings WHERE check_id = $1 AND resolved_at IS NOT NULL`, checkID)
	if err != nil {
		return nil, fmt.Errorf("resolved finding ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) ResolveFindings(ctx context.Context, findingIDs []string, resolvedAt time.Time) error {
	if len(findingIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE findings SET resolved_at = $2 WHERE id = ANY($1)`,
		findingIDs, resolvedAt)
	if err != nil {
		return fmt.Errorf("resolve findings: %w", err)
	}
	return nil
}

func (s *PostgresStore) ActiveFindings(ctx context.Context) ([]models.Finding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, check_run_id, check_id, severity, title, message, created_at
		FROM findings
		WHERE resolved_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("active findings: %w", err)
	}
	defer rows.Close()
	return scanFindings(rows)
}

func (s *PostgresStore) CountFindingsResolvedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM findings WHERE resolved_at >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count resolved findings: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) InsertAlert(ctx context.Context, alert *models.Alert) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alerts (id, finding_id, channel, status, sent_at)
		VALUES ($1, $2, $3, $4, $5)`,
		alert.ID, alert.FindingID, alert.Channel, alert.Status, alert.SentAt)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) ResolveActiveAlerts(ctx context.Context, findingIDs []string, resolvedAt time.Time) (int, error) {
	if len(findingIDs) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE alerts SET status = $2, resolved_at = $3
		WHERE status = $4 AND finding_id = ANY($1)`,
		findingIDs, models.AlertStatusResolved, resolvedAt, models.AlertStatusActive)
	if err != nil {
		return 0, fmt.Errorf("resolve alerts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanFindings(rows pgx.Rows) ([]models.Finding, error) {
	var findings []models.Finding
	for rows.Next() {
		var f models.Finding
		if err := rows.Scan(&f.ID, &f.CheckRunID, &f.CheckID, &f.Severity, &f.Title, &f.Message, &f.CreatedAt); err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}
