// Package alerting applies the suppression policy and delivers findings to
// the messaging integration. Delivery is strictly best-effort: findings in
// storage are the source of truth, a dropped notification must never cost
// data.
package alerting

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/store"
)

var severityEmoji = map[models.Severity]string{
	models.SeverityCritical: ":rotating_light:",
	models.SeverityHigh:     ":warning:",
	models.SeverityMedium:   ":large_yellow_circle:",
	models.SeverityLow:      ":information_source:",
	models.SeverityInfo:     ":speech_balloon:",
}

var severityColor = map[models.Severity]string{
	models.SeverityCritical: "#dc2626",
	models.SeverityHigh:     "#ea580c",
	models.SeverityMedium:   "#ca8a04",
	models.SeverityLow:      "#2563eb",
	models.SeverityInfo:     "#6b7280",
}

// Config is the suppression and routing policy.
type Config struct {
	MinSeverity     models.Severity
	QuietHoursStart int // hour of day, local clock
	QuietHoursEnd   int
	Cooldown        time.Duration
	DefaultChannel  string
	CriticalChannel string
}

// Dispatcher evaluates the suppression policy in order (CRITICAL bypass,
// severity floor, quiet hours, cooldown) and delivers what survives.
type Dispatcher struct {
	cfg       Config
	store     store.Store
	messenger Messenger
	cooldown  CooldownTracker
	now       func() time.Time
}

func NewDispatcher(cfg Config, s store.Store, m Messenger, c CooldownTracker) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		store:     s,
		messenger: m,
		cooldown:  c,
		now:       time.Now,
	}
}

// SendAlert delivers one finding, subject to the suppression policy. Errors
// are logged and swallowed; the orchestrator never sees them.
func (d *Dispatcher) SendAlert(ctx context.Context, projectName string, finding *models.Finding) {
	isCritical := finding.Severity == models.SeverityCritical

	if !isCritical {
		if !finding.Severity.AtLeast(d.cfg.MinSeverity) {
			log.Printf("Alert suppressed (below severity floor %s): %s", d.cfg.MinSeverity, finding.CheckID)
			return
		}
		if d.inQuietHours() {
			log.Printf("Alert suppressed (quiet hours): %s", finding.CheckID)
			return
		}
		cooling, err := d.cooldown.InCooldown(ctx, finding.CheckID, d.cfg.Cooldown)
		if err != nil {
			log.Printf("Cooldown lookup failed for %s: %v", finding.CheckID, err)
		} else if cooling {
			log.Printf("Alert suppressed (cooldown): %s", finding.CheckID)
			return
		}
	}

	channel := d.cfg.DefaultChannel
	if isCritical {
		channel = d.cfg.CriticalChannel
	}

	text := fmt.Sprintf("%s %s | %s\n*%s*: %s\n%s",
		severityEmoji[finding.Severity], finding.Severity, projectName,
		finding.CheckID, finding.Title, finding.Message)

	if err := d.messenger.PostMessage(ctx, channel, text, severityColor[finding.Severity]); err != nil {
		log.Printf("Alert delivery failed for %s: %v", finding.CheckID, err)
		return
	}

	if !isCritical {
		if err := d.cooldown.MarkSent(ctx, finding.CheckID, d.cfg.Cooldown); err != nil {
			log.Printf("Failed to record cooldown for %s: %v", finding.CheckID, err)
		}
	}

	d.persistAlert(ctx, finding.CheckID, channel)
}

// persistAlert records an ACTIVE alert against the most recent unresolved
// finding with this check id. A persistence failure is logged only; the
// notification already went out.
func (d *Dispatcher) persistAlert(ctx context.Context, checkID, channel string) {
	finding, err := d.store.LatestUnresolvedFinding(ctx, checkID)
	if err != nil {
		log.Printf("Failed to look up finding for alert %s: %v", checkID, err)
		return
	}
	if finding == nil {
		return
	}

	alert := &models.Alert{
		ID:        uuid.NewString(),
		FindingID: finding.ID,
		Channel:   channel,
		Status:    models.AlertStatusActive,
		SentAt:    d.now().UTC(),
	}
	if err := d.store.InsertAlert(ctx, alert); err != nil {
		log.Printf("Failed to persist alert for %s: %v", checkID, err)
	}
}

// ResolveAlerts flips still-ACTIVE alerts referencing already-resolved
// findings with the given check id to RESOLVED, posting a resolution notice
// when anything changed.
func (d *Dispatcher) ResolveAlerts(ctx context.Context, checkID string) (int, error) {
	findingIDs, err := d.store.ResolvedFindingIDs(ctx, checkID)
	if err != nil {
		return 0, fmt.Errorf("load resolved findings: %w", err)
	}
	if len(findingIDs) == 0 {
		return 0, nil
	}

	resolved, err := d.store.ResolveActiveAlerts(ctx, findingIDs, d.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("resolve alerts: %w", err)
	}

	if resolved > 0 && d.messenger != nil {
		text := fmt.Sprintf(":white_check_mark: Resolved: *%s* - %d alert(s) resolved.", checkID, resolved)
		if err := d.messenger.PostMessage(ctx, d.cfg.DefaultChannel, text, ""); err != nil {
			log.Printf("Resolution notice failed for %s: %v", checkID, err)
		}
	}

	return resolved, nil
}

func (d *Dispatcher) inQuietHours() bool {
	hour := d.now().Hour()
	start, end := d.cfg.QuietHoursStart, d.cfg.QuietHoursEnd
	if start == end {
		return false
	}
	if start > end { // window wraps midnight
		return hour >= start || hour < end
	}
	return hour >= start && hour < end
}
