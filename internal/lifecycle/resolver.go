// Package lifecycle auto-resolves findings whose underlying problem stopped
// recurring across check runs.
package lifecycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tobolak1/ppc-checker/internal/eventbus"
	"github.com/tobolak1/ppc-checker/internal/store"
)

// Resolver compares the two most recent completed runs of a project and
// resolves findings that disappeared. It deliberately needs two completed
// runs: a single run, or a failed one, cannot establish "no longer
// recurring", and resolving off it would flap.
type Resolver struct {
	store     store.Store
	publisher *eventbus.Publisher
	now       func() time.Time
}

func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s, now: time.Now}
}

// WithPublisher makes the resolver announce resolutions on the event bus.
func (r *Resolver) WithPublisher(p *eventbus.Publisher) *Resolver {
	r.publisher = p
	return r
}

// ResolveDisappeared marks unresolved findings from the previous completed
// run as resolved when their check id is absent from the latest completed
// run, and cascades the resolution to any ACTIVE alerts referencing them.
// Returns the number of findings resolved.
func (r *Resolver) ResolveDisappeared(ctx context.Context, projectID string) (int, error) {
	runs, err := r.store.LastCompletedRuns(ctx, projectID, 2)
	if err != nil {
		return 0, fmt.Errorf("load completed runs: %w", err)
	}
	if len(runs) < 2 {
		return 0, nil
	}
	latest, previous := runs[0], runs[1]

	latestCheckIDs, err := r.store.FindingCheckIDs(ctx, latest.ID)
	if err != nil {
		return 0, fmt.Errorf("load latest check ids: %w", err)
	}

	previousFindings, err := r.store.UnresolvedFindingsByRun(ctx, previous.ID)
	if err != nil {
		return 0, fmt.Errorf("load previous findings: %w", err)
	}

	var disappeared []string
	var resolvedCheckIDs []string
	for _, f := range previousFindings {
		if !latestCheckIDs[f.CheckID] {
			disappeared = append(disappeared, f.ID)
			resolvedCheckIDs = append(resolvedCheckIDs, f.CheckID)
		}
	}
	if len(disappeared) == 0 {
		return 0, nil
	}

	now := r.now().UTC()
	if err := r.store.ResolveFindings(ctx, disappeared, now); err != nil {
		return 0, fmt.Errorf("resolve findings: %w", err)
	}
	if _, err := r.store.ResolveActiveAlerts(ctx, disappeared, now); err != nil {
		return 0, fmt.Errorf("resolve alerts: %w", err)
	}

	for i, id := range disappeared {
		err := r.publisher.PublishResolved(&eventbus.ResolvedEvent{
			FindingID:  id,
			CheckID:    resolvedCheckIDs[i],
			ProjectID:  projectID,
			ResolvedAt: now.Unix(),
		})
		if err != nil {
			log.Printf("Failed to publish resolution for %s: %v", id, err)
		}
	}

	log.Printf("Auto-resolved %d findings for project %s", len(disappeared), projectID)
	return len(disappeared), nil
}
