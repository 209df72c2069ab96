// Package storetest provides an in-memory Store for unit tests.
package storetest

import (
	"context"
	"sync"
	"time"

	"github.com/tobolak1/ppc-checker/internal/models"
)

// FakeStore implements store.Store entirely in memory. Zero value is not
// usable; construct with New.
type FakeStore struct {
	mu sync.Mutex

	Projects         []models.Project
	AdAccounts       map[string][]models.AdAccount       // by project id
	MerchantAccounts map[string][]models.MerchantAccount // by project id
	CheckConfigs     map[string][]models.CheckConfig     // by project id
	Runs             []models.CheckRun
	Findings         []*models.Finding
	Alerts           []*models.Alert

	// FailCreateRun makes CreateCheckRun error for the given project ids.
	FailCreateRun map[string]bool
}

func New() *FakeStore {
	return &FakeStore{
		AdAccounts:       make(map[string][]models.AdAccount),
		MerchantAccounts: make(map[string][]models.MerchantAccount),
		CheckConfigs:     make(map[string][]models.CheckConfig),
		FailCreateRun:    make(map[string]bool),
	}
}

func (f *FakeStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Project(nil), f.Projects...), nil
}

func (f *FakeStore) ListActiveAdAccounts(ctx context.Context, projectID string) ([]models.AdAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AdAccount
	for _, a := range f.AdAccounts[projectID] {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *FakeStore) ListActiveMerchantAccounts(ctx context.Context, projectID string) ([]models.MerchantAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MerchantAccount
	for _, m := range f.MerchantAccounts[projectID] {
		if m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *FakeStore) ListCheckConfigs(ctx context.Context, projectID string) ([]models.CheckConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CheckConfig(nil), f.CheckConfigs[projectID]...), nil
}

func (f *FakeStore) CreateCheckRun(ctx context.Context, run *models.CheckRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreateRun[run.ProjectID] {
		return errFail
	}
	f.Runs = append(f.Runs, *run)
	return nil
}

func (f *FakeStore) FinishCheckRun(ctx context.Context, runID string, status models.CheckRunStatus, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Runs {
		if f.Runs[i].ID == runID {
			f.Runs[i].Status = status
			f.Runs[i].EndedAt = &endedAt
		}
	}
	return nil
}

func (f *FakeStore) LastCompletedRuns(ctx context.Context, projectID string, limit int) ([]models.CheckRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CheckRun
	// Runs append in start order; walk backwards for most recent first.
	for i := len(f.Runs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.Runs[i].ProjectID == projectID && f.Runs[i].Status == models.RunStatusCompleted {
			out = append(out, f.Runs[i])
		}
	}
	return out, nil
}

func (f *FakeStore) InsertFindings(ctx context.Context, findings []*models.Finding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Findings = append(f.Findings, findings...)
	return nil
}

func (f *FakeStore) FindingCheckIDs(ctx context.Context, runID string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool)
	for _, fd := range f.Findings {
		if fd.CheckRunID == runID {
			out[fd.CheckID] = true
		}
	}
	return out, nil
}

func (f *FakeStore) UnresolvedFindingsByRun(ctx context.Context, runID string) ([]models.Finding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Finding
	for _, fd := range f.Findings {
		if fd.CheckRunID == runID && fd.ResolvedAt == nil {
			out = append(out, *fd)
		}
	}
	return out, nil
}

func (f *FakeStore) LatestUnresolvedFinding(ctx context.Context, checkID string) (*models.Finding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Findings) - 1; i >= 0; i-- {
		if f.Findings[i].CheckID == checkID && f.Findings[i].ResolvedAt == nil {
			cp := *f.Findings[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *FakeStore) ResolvedFindingIDs(ctx context.Context, checkID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, fd := range f.Findings {
		if fd.CheckID == checkID && fd.ResolvedAt != nil {
			out = append(out, fd.ID)
		}
	}
	return out, nil
}

func (f *FakeStore) ResolveFindings(ctx context.Context, findingIDs []string, resolvedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make(map[string]bool, len(findingIDs))
	for _, id := range findingIDs {
		ids[id] = true
	}
	for _, fd := range f.Findings {
		if ids[fd.ID] && fd.ResolvedAt == nil {
			ts := resolvedAt
			fd.ResolvedAt = &ts
		}
	}
	return nil
}

func (f *FakeStore) ActiveFindings(ctx context.Context) ([]models.Finding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Finding
	for _, fd := range f.Findings {
		if fd.ResolvedAt == nil {
			out = append(out, *fd)
		}
	}
	return out, nil
}

func (f *FakeStore) CountFindingsResolvedSince(ctx context.Context, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, fd := range f.Findings {
		if fd.ResolvedAt != nil && !fd.ResolvedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *FakeStore) InsertAlert(ctx context.Context, alert *models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Alerts = append(f.Alerts, alert)
	return nil
}

func (f *FakeStore) ResolveActiveAlerts(ctx context.Context, findingIDs []string, resolvedAt time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make(map[string]bool, len(findingIDs))
	for _, id := range findingIDs {
		ids[id] = true
	}
	count := 0
	for _, a := range f.Alerts {
		if ids[a.FindingID] && a.Status == models.AlertStatusActive {
			a.Status = models.AlertStatusResolved
			ts := resolvedAt
			a.ResolvedAt = &ts
			count++
		}
	}
	return count, nil
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

var errFail = fakeErr("store failure injected")
