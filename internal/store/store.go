// Package store is the persistence boundary of the monitoring pipeline. The
// core reads projects, accounts and check configuration, and writes check
// runs, findings and alerts. Every write is an independent operation; no
// transaction spans multiple entities, and a partially recorded run is an
// accepted state that the next sweep simply supersedes.
package store

import (
	"context"
	"time"

	"github.com/tobolak1/ppc-checker/internal/models"
)

// Store is the generic query surface the pipeline runs against.
type Store interface {
	// Read side.
	ListProjects(ctx context.Context) ([]models.Project, error)
	ListActiveAdAccounts(ctx context.Context, projectID string) ([]models.AdAccount, error)
	ListActiveMerchantAccounts(ctx context.Context, projectID string) ([]models.MerchantAccount, error)
	ListCheckConfigs(ctx context.Context, projectID string) ([]models.CheckConfig, error)

	// Check runs.
	CreateCheckRun(ctx context.Context, run *models.CheckRun) error
	FinishCheckRun(ctx context.Context, runID string, status models.CheckRunStatus, endedAt time.Time) error
	LastCompletedRuns(ctx context.Context, projectID string, limit int) ([]models.CheckRun, error)

	// Findings.
	InsertFindings(ctx context.Context, findings []*models.Finding) error
	FindingCheckIDs(ctx context.Context, runID string) (map[string]bool, error)
	UnresolvedFindingsByRun(ctx context.Context, runID string) ([]models.Finding, error)
	LatestUnresolvedFinding(ctx context.Context, checkID string) (*models.Finding, error)
	ResolvedFindingIDs(ctx context.Context, checkID string) ([]string, error)
	ResolveFindings(ctx context.Context, findingIDs []string, resolvedAt time.Time) error
	ActiveFindings(ctx context.Context) ([]models.Finding, error)
	CountFindingsResolvedSince(ctx context.Context, since time.Time) (int, error)

	// Alerts.
	InsertAlert(ctx context.Context, alert *models.Alert) error
	ResolveActiveAlerts(ctx context.Context, findingIDs []string, resolvedAt time.Time) (int, error)
}
