package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobolak1/ppc-checker/internal/detector"
	"github.com/tobolak1/ppc-checker/internal/engine"
	"github.com/tobolak1/ppc-checker/internal/lifecycle"
	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/store/storetest"
)

type stubAdDetector struct {
	family   string
	findings func() []*models.Finding
	err      error
}

func (s *stubAdDetector) Family() string { return s.family }

func (s *stubAdDetector) Detect(ctx context.Context, account *models.AdAccount, api detector.AdPlatformAPI, th detector.Thresholds) ([]*models.Finding, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.findings == nil {
		return nil, nil
	}
	return s.findings(), nil
}

type fakeAlerter struct {
	sent []*models.Finding
}

func (f *fakeAlerter) SendAlert(_ context.Context, _ string, finding *models.Finding) {
	f.sent = append(f.sent, finding)
}

func seedProject(fs *storetest.FakeStore) models.Project {
	project := models.Project{ID: "p1", Name: "Shop CZ"}
	fs.Projects = append(fs.Projects, project)
	fs.AdAccounts["p1"] = []models.AdAccount{
		{ID: "a1", ProjectID: "p1", Platform: models.PlatformGoogleAds, Name: "Main", Active: true,
			Credentials: map[string]interface{}{"refresh_token": "x"}},
	}
	return project
}

func testAPIs() APIFactory {
	return APIFactory{
		AdAPI:       func(*models.AdAccount) detector.AdPlatformAPI { return nil },
		MerchantAPI: func(*models.MerchantAccount) detector.MerchantAPI { return nil },
	}
}

func newOrchestrator(fs *storetest.FakeStore, e *engine.Engine, alerter Alerter) *Orchestrator {
	return New(fs, e, testAPIs(), alerter, lifecycle.NewResolver(fs), nil)
}

func TestRunProject_PersistsFindingsAndCompletesRun(t *testing.T) {
	fs := storetest.New()
	project := seedProject(fs)

	e := engine.NewEngine()
	e.RegisterAdDetector(&stubAdDetector{family: "ads", findings: func() []*models.Finding {
		return []*models.Finding{models.NewFinding("ads-disapproved", models.SeverityCritical, "t", "m")}
	}})

	o := newOrchestrator(fs, e, &fakeAlerter{})
	count, err := o.RunProject(context.Background(), &project)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, fs.Runs, 1)
	assert.Equal(t, models.RunStatusCompleted, fs.Runs[0].Status)
	assert.NotNil(t, fs.Runs[0].EndedAt)
	require.Len(t, fs.Findings, 1)
	assert.Equal(t, fs.Runs[0].ID, fs.Findings[0].CheckRunID, "Findings are tied to their run")
}

func TestRunProject_DetectorFailureFailsRun(t *testing.T) {
	fs := storetest.New()
	project := seedProject(fs)

	e := engine.NewEngine()
	e.RegisterAdDetector(&stubAdDetector{family: "ads", err: errors.New("api down")})

	o := newOrchestrator(fs, e, &fakeAlerter{})
	_, err := o.RunProject(context.Background(), &project)

	assert.Error(t, err)
	require.Len(t, fs.Runs, 1)
	assert.Equal(t, models.RunStatusFailed, fs.Runs[0].Status)
	assert.Empty(t, fs.Findings, "No partial findings from a failed run")
}

func TestRunProject_ForwardsHighAndAbove(t *testing.T) {
	fs := storetest.New()
	project := seedProject(fs)

	e := engine.NewEngine()
	e.RegisterAdDetector(&stubAdDetector{family: "ads", findings: func() []*models.Finding {
		return []*models.Finding{
			models.NewFinding("bill-payment-fail", models.SeverityCritical, "t", "m"),
			models.NewFinding("ads-limited", models.SeverityHigh, "t", "m"),
			models.NewFinding("kw-low-qs", models.SeverityMedium, "t", "m"),
		}
	}})

	alerter := &fakeAlerter{}
	o := newOrchestrator(fs, e, alerter)
	_, err := o.RunProject(context.Background(), &project)

	require.NoError(t, err)
	require.Len(t, alerter.sent, 2, "MEDIUM goes to the digest, not to immediate alerting")
	assert.Equal(t, "bill-payment-fail", alerter.sent[0].CheckID)
	assert.Equal(t, "ads-limited", alerter.sent[1].CheckID)
}

func TestRunProject_DisabledCheckConfigSkipsFamily(t *testing.T) {
	fs := storetest.New()
	project := seedProject(fs)
	fs.CheckConfigs["p1"] = []models.CheckConfig{
		{ID: "cc1", ProjectID: "p1", CheckID: "ads", Enabled: false},
	}

	e := engine.NewEngine()
	e.RegisterAdDetector(&stubAdDetector{family: "ads", findings: func() []*models.Finding {
		return []*models.Finding{models.NewFinding("ads-disapproved", models.SeverityCritical, "t", "m")}
	}})

	o := newOrchestrator(fs, e, &fakeAlerter{})
	count, err := o.RunProject(context.Background(), &project)

	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRunAll_ProjectFailureIsIsolated(t *testing.T) {
	fs := storetest.New()
	fs.Projects = append(fs.Projects,
		models.Project{ID: "p1", Name: "Broken"},
		models.Project{ID: "p2", Name: "Healthy"},
	)
	fs.FailCreateRun["p1"] = true
	fs.AdAccounts["p2"] = []models.AdAccount{
		{ID: "a2", ProjectID: "p2", Platform: models.PlatformGoogleAds, Name: "Main", Active: true,
			Credentials: map[string]interface{}{"refresh_token": "x"}},
	}

	e := engine.NewEngine()
	e.RegisterAdDetector(&stubAdDetector{family: "ads", findings: func() []*models.Finding {
		return []*models.Finding{models.NewFinding("ads-disapproved", models.SeverityCritical, "t", "m")}
	}})

	o := newOrchestrator(fs, e, &fakeAlerter{})
	result, err := o.RunAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.ProjectsChecked)
	assert.Equal(t, 1, result.ProjectsFailed)
	assert.Equal(t, 1, result.TotalFindings)
}

func TestRunProject_AutoResolvesAcrossRuns(t *testing.T) {
	fs := storetest.New()
	project := seedProject(fs)

	fire := true
	e := engine.NewEngine()
	e.RegisterAdDetector(&stubAdDetector{family: "ads", findings: func() []*models.Finding {
		if fire {
			return []*models.Finding{models.NewFinding("ads-disapproved", models.SeverityCritical, "t", "m")}
		}
		return nil
	}})

	o := newOrchestrator(fs, e, &fakeAlerter{})

	_, err := o.RunProject(context.Background(), &project)
	require.NoError(t, err)

	fire = false
	_, err = o.RunProject(context.Background(), &project)
	require.NoError(t, err)

	require.Len(t, fs.Findings, 1)
	assert.NotNil(t, fs.Findings[0].ResolvedAt, "Finding absent from the second run resolves")
}

func TestRunProject_InactiveAccountsSkipped(t *testing.T) {
	fs := storetest.New()
	project := seedProject(fs)
	fs.AdAccounts["p1"][0].Active = false

	calls := 0
	e := engine.NewEngine()
	e.RegisterAdDetector(&stubAdDetector{family: "ads", findings: func() []*models.Finding {
		calls++
		return nil
	}})

	o := newOrchestrator(fs, e, &fakeAlerter{})
	_, err := o.RunProject(context.Background(), &project)

	require.NoError(t, err)
	assert.Zero(t, calls)
}
