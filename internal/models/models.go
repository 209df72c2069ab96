package models

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the external advertising platform an account lives on.
type Platform string

const (
	PlatformGoogleAds Platform = "GOOGLE_ADS"
	PlatformSklik     Platform = "SKLIK"
)

// Severity indicates urgency of a finding. The order matters for alert
// suppression and digest sorting: INFO < LOW < MEDIUM < HIGH < CRITICAL.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the position of s on the severity total order. Unknown
// severities rank below INFO so they never pass a severity floor.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s is at least as severe as floor.
func (s Severity) AtLeast(floor Severity) bool {
	return s.Rank() >= floor.Rank()
}

// CheckRunStatus is the lifecycle state of one check run.
// Terminal states (completed, failed) are never revisited.
type CheckRunStatus string

const (
	RunStatusRunning   CheckRunStatus = "running"
	RunStatusCompleted CheckRunStatus = "completed"
	RunStatusFailed    CheckRunStatus = "failed"
)

// AlertStatus is the lifecycle state of a dispatched alert.
type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "ACTIVE"
	AlertStatusResolved AlertStatus = "RESOLVED"
	AlertStatusMuted    AlertStatus = "MUTED"
)

// Project owns a set of monitored accounts.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AdAccount is an external advertising account (Google Ads or Sklik).
// Credentials being nil means the account is not yet connected to the API.
type AdAccount struct {
	ID          string                 `json:"id"`
	ProjectID   string                 `json:"project_id"`
	Platform    Platform               `json:"platform"`
	ExternalID  string                 `json:"external_id"`
	Name        string                 `json:"name"`
	Active      bool                   `json:"active"`
	Credentials map[string]interface{} `json:"credentials,omitempty"`
}

// HasCredentials reports whether the account has an API credential blob.
func (a *AdAccount) HasCredentials() bool {
	return len(a.Credentials) > 0
}

// MerchantAccount is an external product-feed (Merchant Center) account.
type MerchantAccount struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	FeedURL    string `json:"feed_url,omitempty"`
	Active     bool   `json:"active"`
}

// Configured reports whether the merchant account can be monitored at all.
func (m *MerchantAccount) Configured() bool {
	return m.ExternalID != "" || m.FeedURL != ""
}

// CheckConfig is a per-project override for one check family.
// Absence of a row means "enabled with default thresholds".
type CheckConfig struct {
	ID         string                 `json:"id"`
	ProjectID  string                 `json:"project_id"`
	CheckID    string                 `json:"check_id"`
	Enabled    bool                   `json:"enabled"`
	Thresholds map[string]interface{} `json:"thresholds,omitempty"`
}

// CheckRun records one execution of all enabled detectors for one project.
type CheckRun struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
	Status    CheckRunStatus `json:"status"`
}

// Finding is one instance of a detected problem, tied to the run that found
// it. Severity is fixed at creation; only ResolvedAt is ever mutated (by the
// lifecycle resolver). Findings are never deleted.
type Finding struct {
	ID         string                 `json:"id"`
	CheckRunID string                 `json:"check_run_id"`
	CheckID    string                 `json:"check_id"`
	Severity   Severity               `json:"severity"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	Data       map[string]interface{} `json:"data,omitempty"`
	ResolvedAt *time.Time             `json:"resolved_at,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewFinding creates a finding with a fresh id and creation timestamp.
// The run id is assigned by the orchestrator when the finding is persisted.
func NewFinding(checkID string, severity Severity, title, message string) *Finding {
	return &Finding{
		ID:        uuid.NewString(),
		CheckID:   checkID,
		Severity:  severity,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// Alert records one dispatched notification for exactly one finding.
type Alert struct {
	ID         string      `json:"id"`
	FindingID  string      `json:"finding_id"`
	Channel    string      `json:"channel"`
	Status     AlertStatus `json:"status"`
	SentAt     time.Time   `json:"sent_at"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
}
