// Package digest builds the periodic summary of everything currently open.
// Unlike individual alerts it ignores the suppression policy entirely; the
// digest is the catch-all that surfaces whatever cooldowns and quiet hours
// swallowed.
package digest

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/tobolak1/ppc-checker/internal/alerting"
	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/store"
)

const maxEntries = 20

// Builder assembles and posts the digest.
type Builder struct {
	store     store.Store
	messenger alerting.Messenger
	channel   string
	enabled   bool
	now       func() time.Time
}

func NewBuilder(s store.Store, m alerting.Messenger, channel string, enabled bool) *Builder {
	return &Builder{
		store:     s,
		messenger: m,
		channel:   channel,
		enabled:   enabled,
		now:       time.Now,
	}
}

// Summary is the aggregated state the digest reports on.
type Summary struct {
	Total           int
	BySeverity      map[models.Severity]int
	Entries         []Entry
	DistinctChecks  int
	ResolvedLast24h int
}

// Entry is one check id with its open-finding count.
type Entry struct {
	CheckID  string
	Severity models.Severity
	Count    int
}

// Build aggregates all unresolved findings plus the last day's resolutions.
// Findings are grouped by check id; entries are sorted most severe first,
// ties broken by count, and capped so the message stays readable.
func (b *Builder) Build(ctx context.Context) (*Summary, error) {
	findings, err := b.store.ActiveFindings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active findings: %w", err)
	}

	resolved, err := b.store.CountFindingsResolvedSince(ctx, b.now().UTC().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("count resolved findings: %w", err)
	}

	summary := &Summary{
		Total:           len(findings),
		BySeverity:      make(map[models.Severity]int),
		ResolvedLast24h: resolved,
	}
	for _, f := range findings {
		summary.BySeverity[f.Severity]++
	}

	byCheckID := make(map[string]*Entry)
	var entries []*Entry
	for _, f := range findings {
		e, ok := byCheckID[f.CheckID]
		if !ok {
			e = &Entry{CheckID: f.CheckID, Severity: f.Severity}
			byCheckID[f.CheckID] = e
			entries = append(entries, e)
		}
		e.Count++
		if f.Severity.Rank() > e.Severity.Rank() {
			e.Severity = f.Severity
		}
	}
	summary.DistinctChecks = len(entries)

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Severity.Rank() != entries[j].Severity.Rank() {
			return entries[i].Severity.Rank() > entries[j].Severity.Rank()
		}
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].CheckID < entries[j].CheckID
	})
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}
	for _, e := range entries {
		summary.Entries = append(summary.Entries, *e)
	}

	return summary, nil
}

// Run builds and posts the digest. A no-op when the digest is disabled.
func (b *Builder) Run(ctx context.Context) error {
	if !b.enabled {
		log.Printf("Digest disabled, skipping")
		return nil
	}

	summary, err := b.Build(ctx)
	if err != nil {
		return err
	}

	text := Format(summary)
	if err := b.messenger.PostMessage(ctx, b.channel, text, digestColor(summary)); err != nil {
		return fmt.Errorf("post digest: %w", err)
	}

	log.Printf("Digest posted: %d active findings, %d resolved in last 24h", summary.Total, summary.ResolvedLast24h)
	return nil
}

// Format renders the summary as a single message.
func Format(s *Summary) string {
	if s.Total == 0 {
		return fmt.Sprintf(":white_check_mark: *Daily digest*: all clear, no open findings. %d resolved in the last 24h.", s.ResolvedLast24h)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, ":clipboard: *Daily digest*: %d open finding(s), %d resolved in the last 24h\n", s.Total, s.ResolvedLast24h)

	order := []models.Severity{
		models.SeverityCritical,
		models.SeverityHigh,
		models.SeverityMedium,
		models.SeverityLow,
		models.SeverityInfo,
	}
	var parts []string
	for _, sev := range order {
		if n := s.BySeverity[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", sev, n))
		}
	}
	sb.WriteString(strings.Join(parts, " | "))
	sb.WriteString("\n")

	for _, e := range s.Entries {
		fmt.Fprintf(&sb, "\n[%s] *%s* (%dx)", e.Severity, e.CheckID, e.Count)
	}
	if s.DistinctChecks > len(s.Entries) {
		fmt.Fprintf(&sb, "\n... and %d more check(s)", s.DistinctChecks-len(s.Entries))
	}

	return sb.String()
}

func digestColor(s *Summary) string {
	switch {
	case s.BySeverity[models.SeverityCritical] > 0:
		return "#dc2626"
	case s.BySeverity[models.SeverityHigh] > 0:
		return "#ea580c"
	case s.Total > 0:
		return "#ca8a04"
	}
	return "#16a34a"
}
