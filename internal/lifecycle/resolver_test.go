package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/store/storetest"
)

func completedRun(id, projectID string) models.CheckRun {
	ended := time.Now().UTC()
	return models.CheckRun{
		ID: id, ProjectID: projectID,
		StartedAt: ended.Add(-time.Minute),
		EndedAt:   &ended,
		Status:    models.RunStatusCompleted,
	}
}

func finding(runID, checkID string) *models.Finding {
	f := models.NewFinding(checkID, models.SeverityHigh, "t", "m")
	f.CheckRunID = runID
	return f
}

func TestResolver_NoOpWithSingleCompletedRun(t *testing.T) {
	fs := storetest.New()
	fs.Runs = append(fs.Runs, completedRun("run-1", "p1"))
	fs.Findings = append(fs.Findings, finding("run-1", "ads-disapproved"))

	resolved, err := NewResolver(fs).ResolveDisappeared(context.Background(), "p1")

	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.Nil(t, fs.Findings[0].ResolvedAt)
}

func TestResolver_IgnoresFailedRuns(t *testing.T) {
	fs := storetest.New()
	fs.Runs = append(fs.Runs, completedRun("run-1", "p1"))
	failed := completedRun("run-2", "p1")
	failed.Status = models.RunStatusFailed
	fs.Runs = append(fs.Runs, failed)
	fs.Findings = append(fs.Findings, finding("run-1", "ads-disapproved"))

	resolved, err := NewResolver(fs).ResolveDisappeared(context.Background(), "p1")

	require.NoError(t, err)
	assert.Zero(t, resolved, "A failed run is not evidence the problem went away")
}

func TestResolver_ResolvesDisappearedFindings(t *testing.T) {
	fs := storetest.New()
	fs.Runs = append(fs.Runs, completedRun("run-1", "p1"), completedRun("run-2", "p1"))

	gone := finding("run-1", "ads-disapproved")
	stillThere := finding("run-1", "bill-low-balance")
	fresh := finding("run-2", "bill-low-balance")
	fs.Findings = append(fs.Findings, gone, stillThere, fresh)

	resolved, err := NewResolver(fs).ResolveDisappeared(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.NotNil(t, gone.ResolvedAt, "Disappeared finding resolves")
	assert.Nil(t, stillThere.ResolvedAt, "Recurring check id stays open")
	assert.Nil(t, fresh.ResolvedAt, "Latest run's finding stays open")
}

func TestResolver_CascadesToActiveAlerts(t *testing.T) {
	fs := storetest.New()
	fs.Runs = append(fs.Runs, completedRun("run-1", "p1"), completedRun("run-2", "p1"))

	gone := finding("run-1", "chg-access")
	fs.Findings = append(fs.Findings, gone)
	fs.Alerts = append(fs.Alerts, &models.Alert{
		ID: "al-1", FindingID: gone.ID, Status: models.AlertStatusActive, SentAt: time.Now().UTC(),
	})

	resolved, err := NewResolver(fs).ResolveDisappeared(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, models.AlertStatusResolved, fs.Alerts[0].Status)
	require.NotNil(t, fs.Alerts[0].ResolvedAt)
	assert.Equal(t, *gone.ResolvedAt, *fs.Alerts[0].ResolvedAt, "Finding and alert share the resolution timestamp")
}

func TestResolver_AlreadyResolvedNotTouched(t *testing.T) {
	fs := storetest.New()
	fs.Runs = append(fs.Runs, completedRun("run-1", "p1"), completedRun("run-2", "p1"))

	old := finding("run-1", "kw-overlap")
	earlier := time.Now().UTC().Add(-time.Hour)
	old.ResolvedAt = &earlier
	fs.Findings = append(fs.Findings, old)

	resolved, err := NewResolver(fs).ResolveDisappeared(context.Background(), "p1")

	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.Equal(t, earlier, *old.ResolvedAt)
}
