package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/store/storetest"
)

type recordedMessage struct {
	Channel string
	Text    string
	Color   string
}

type fakeMessenger struct {
	messages []recordedMessage
	err      error
}

func (f *fakeMessenger) PostMessage(_ context.Context, channel, text, color string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, recordedMessage{Channel: channel, Text: text, Color: color})
	return nil
}

func testConfig() Config {
	return Config{
		MinSeverity:     models.SeverityMedium,
		QuietHoursStart: 22,
		QuietHoursEnd:   7,
		Cooldown:        time.Hour,
		DefaultChannel:  "#ppc-alerts",
		CriticalChannel: "#ppc-alerts-critical",
	}
}

// at returns a clock frozen at the given hour of day.
func at(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 8, 30, hour, 30, 0, 0, time.UTC)
	}
}

func newTestDispatcher(fs *storetest.FakeStore, msgr *fakeMessenger, hour int) *Dispatcher {
	d := NewDispatcher(testConfig(), fs, msgr, NewMemoryCooldown())
	d.now = at(hour)
	return d
}

func highFinding(checkID string) *models.Finding {
	return models.NewFinding(checkID, models.SeverityHigh, "Something broke", "Details here.")
}

func TestDispatcher_DeliversDuringBusinessHours(t *testing.T) {
	fs := storetest.New()
	msgr := &fakeMessenger{}
	d := newTestDispatcher(fs, msgr, 10)

	f := highFinding("ads-disapproved")
	fs.Findings = append(fs.Findings, f)

	d.SendAlert(context.Background(), "Shop CZ", f)

	require.Len(t, msgr.messages, 1)
	assert.Equal(t, "#ppc-alerts", msgr.messages[0].Channel)
	assert.Contains(t, msgr.messages[0].Text, "Shop CZ")
	assert.Contains(t, msgr.messages[0].Text, "ads-disapproved")
	require.Len(t, fs.Alerts, 1)
	assert.Equal(t, models.AlertStatusActive, fs.Alerts[0].Status)
	assert.Equal(t, f.ID, fs.Alerts[0].FindingID)
}

func TestDispatcher_SeverityFloorSuppresses(t *testing.T) {
	fs := storetest.New()
	msgr := &fakeMessenger{}
	d := newTestDispatcher(fs, msgr, 10)

	low := models.NewFinding("kw-no-impressions", models.SeverityLow, "t", "m")
	d.SendAlert(context.Background(), "Shop CZ", low)

	assert.Empty(t, msgr.messages)
	assert.Empty(t, fs.Alerts, "Suppressed alerts are not persisted")
}

func TestDispatcher_QuietHoursSuppress(t *testing.T) {
	fs := storetest.New()
	msgr := &fakeMessenger{}
	d := newTestDispatcher(fs, msgr, 23)

	d.SendAlert(context.Background(), "Shop CZ", highFinding("chg-budget-spike"))

	assert.Empty(t, msgr.messages, "23:00 falls inside the wrapping 22-07 window")
}

func TestDispatcher_QuietHoursWrapMorningSide(t *testing.T) {
	fs := storetest.New()
	msgr := &fakeMessenger{}
	d := newTestDispatcher(fs, msgr, 6)

	d.SendAlert(context.Background(), "Shop CZ", highFinding("chg-budget-spike"))

	assert.Empty(t, msgr.messages, "06:00 is still before the 07:00 end")
}

func TestDispatcher_CriticalBypassesEverything(t *testing.T) {
	fs := storetest.New()
	msgr := &fakeMessenger{}
	d := newTestDispatcher(fs, msgr, 23)

	crit := models.NewFinding("bill-payment-fail", models.SeverityCritical, "Payment failed", "m")
	fs.Findings = append(fs.Findings, crit)

	d.SendAlert(context.Background(), "Shop CZ", crit)
	d.SendAlert(context.Background(), "Shop CZ", crit)

	require.Len(t, msgr.messages, 2, "CRITICAL ignores quiet hours and cooldown")
	assert.Equal(t, "#ppc-alerts-critical", msgr.messages[0].Channel)
}

func TestDispatcher_CooldownSuppressesRepeat(t *testing.T) {
	fs := storetest.New()
	msgr := &fakeMessenger{}
	d := newTestDispatcher(fs, msgr, 10)

	f := highFinding("perf-impr-drop")
	fs.Findings = append(fs.Findings, f)

	d.SendAlert(context.Background(), "Shop CZ", f)
	d.SendAlert(context.Background(), "Shop CZ", f)

	assert.Len(t, msgr.messages, 1, "Second alert inside the window is suppressed")
}

func TestDispatcher_DeliveryFailureSkipsPersistence(t *testing.T) {
	fs := storetest.New()
	msgr := &fakeMessenger{err: errors.New("slack down")}
	d := newTestDispatcher(fs, msgr, 10)

	f := highFinding("ads-disapproved")
	fs.Findings = append(fs.Findings, f)

	d.SendAlert(context.Background(), "Shop CZ", f)

	assert.Empty(t, fs.Alerts, "No alert row without a delivered notification")
}

func TestDispatcher_FailedDeliveryDoesNotStartCooldown(t *testing.T) {
	fs := storetest.New()
	msgr := &fakeMessenger{err: errors.New("slack down")}
	d := newTestDispatcher(fs, msgr, 10)

	f := highFinding("ads-disapproved")
	fs.Findings = append(fs.Findings, f)

	d.SendAlert(context.Background(), "Shop CZ", f)
	msgr.err = nil
	d.SendAlert(context.Background(), "Shop CZ", f)

	assert.Len(t, msgr.messages, 1, "Retry after recovery must not be cooled down by the failure")
}

func TestDispatcher_ResolveAlerts(t *testing.T) {
	fs := storetest.New()
	msgr := &fakeMessenger{}
	d := newTestDispatcher(fs, msgr, 10)

	f := highFinding("ads-disapproved")
	resolvedAt := time.Now().UTC()
	f.ResolvedAt = &resolvedAt
	fs.Findings = append(fs.Findings, f)
	fs.Alerts = append(fs.Alerts, &models.Alert{
		ID: "al-1", FindingID: f.ID, Status: models.AlertStatusActive, SentAt: resolvedAt.Add(-time.Hour),
	})

	count, err := d.ResolveAlerts(context.Background(), "ads-disapproved")

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, models.AlertStatusResolved, fs.Alerts[0].Status)
	require.Len(t, msgr.messages, 1)
	assert.Contains(t, msgr.messages[0].Text, "Resolved")
}

func TestDispatcher_ResolveAlertsNothingToDo(t *testing.T) {
	fs := storetest.New()
	msgr := &fakeMessenger{}
	d := newTestDispatcher(fs, msgr, 10)

	count, err := d.ResolveAlerts(context.Background(), "ads-disapproved")

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, msgr.messages)
}

func TestMemoryCooldown_ExpiresAfterWindow(t *testing.T) {
	mc := NewMemoryCooldown()
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	current := base
	mc.now = func() time.Time { return current }

	require.NoError(t, mc.MarkSent(context.Background(), "ads-disapproved", time.Hour))

	cooling, err := mc.InCooldown(context.Background(), "ads-disapproved", time.Hour)
	require.NoError(t, err)
	assert.True(t, cooling)

	current = base.Add(61 * time.Minute)
	cooling, err = mc.InCooldown(context.Background(), "ads-disapproved", time.Hour)
	require.NoError(t, err)
	assert.False(t, cooling)
}
