// Package orchestrator drives the check pipeline: it walks projects and their
// accounts, runs the detection engine, persists findings and hands the
// interesting ones to alerting. Projects are independent; one blowing up never
// stops the sweep.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tobolak1/ppc-checker/internal/detector"
	"github.com/tobolak1/ppc-checker/internal/engine"
	"github.com/tobolak1/ppc-checker/internal/eventbus"
	"github.com/tobolak1/ppc-checker/internal/lifecycle"
	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/store"
)

// Alerter is the outbound notification surface the orchestrator forwards
// high-urgency findings to. Delivery is best-effort on the other side.
type Alerter interface {
	SendAlert(ctx context.Context, projectName string, finding *models.Finding)
}

// APIFactory builds platform API clients per account. Injected so tests can
// substitute fakes without touching HTTP.
type APIFactory struct {
	AdAPI       func(account *models.AdAccount) detector.AdPlatformAPI
	MerchantAPI func(account *models.MerchantAccount) detector.MerchantAPI
}

// Orchestrator runs projects sequentially, one account and one detector at a
// time. Rate limiting in the API clients does the pacing; adding concurrency
// here would just move the queue.
type Orchestrator struct {
	store     store.Store
	engine    *engine.Engine
	apis      APIFactory
	alerter   Alerter
	resolver  *lifecycle.Resolver
	publisher *eventbus.Publisher
	now       func() time.Time
}

func New(s store.Store, e *engine.Engine, apis APIFactory, alerter Alerter, resolver *lifecycle.Resolver, publisher *eventbus.Publisher) *Orchestrator {
	return &Orchestrator{
		store:     s,
		engine:    e,
		apis:      apis,
		alerter:   alerter,
		resolver:  resolver,
		publisher: publisher,
		now:       time.Now,
	}
}

// SweepResult summarises one full sweep across all projects.
type SweepResult struct {
	ProjectsChecked int
	ProjectsFailed  int
	TotalFindings   int
}

// RunAll sweeps every project. A failed project is logged and counted, then
// the sweep moves on.
func (o *Orchestrator) RunAll(ctx context.Context) (*SweepResult, error) {
	projects, err := o.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	log.Printf("Starting sweep across %d project(s)", len(projects))

	result := &SweepResult{}
	for i := range projects {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		findings, err := o.RunProject(ctx, &projects[i])
		if err != nil {
			log.Printf("Project %s check failed: %v", projects[i].Name, err)
			result.ProjectsFailed++
			continue
		}
		result.ProjectsChecked++
		result.TotalFindings += findings
	}

	log.Printf("Sweep complete: %d checked, %d failed, %d findings",
		result.ProjectsChecked, result.ProjectsFailed, result.TotalFindings)

	return result, nil
}

// RunProject executes one check run for one project: record the run, execute
// every enabled detector on every active account, persist whatever was found,
// then alert and auto-resolve. Returns the number of findings persisted.
func (o *Orchestrator) RunProject(ctx context.Context, project *models.Project) (int, error) {
	run := &models.CheckRun{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		StartedAt: o.now().UTC(),
		Status:    models.RunStatusRunning,
	}
	if err := o.store.CreateCheckRun(ctx, run); err != nil {
		return 0, fmt.Errorf("create check run: %w", err)
	}

	findings, err := o.collectFindings(ctx, project)
	if err != nil {
		o.finishRun(ctx, run.ID, models.RunStatusFailed)
		return 0, err
	}

	for _, f := range findings {
		f.CheckRunID = run.ID
	}
	if err := o.store.InsertFindings(ctx, findings); err != nil {
		o.finishRun(ctx, run.ID, models.RunStatusFailed)
		return 0, fmt.Errorf("persist findings: %w", err)
	}

	o.finishRun(ctx, run.ID, models.RunStatusCompleted)
	log.Printf("Check run %s for project %s completed with %d finding(s)", run.ID, project.Name, len(findings))

	// Everything past this point is best-effort. The run is already
	// completed and the findings are on disk.
	for _, f := range findings {
		if err := o.publisher.PublishFinding(f); err != nil {
			log.Printf("Failed to publish finding %s: %v", f.CheckID, err)
		}
		if f.Severity.AtLeast(models.SeverityHigh) && o.alerter != nil {
			o.alerter.SendAlert(ctx, project.Name, f)
		}
	}

	if o.resolver != nil {
		if _, err := o.resolver.ResolveDisappeared(ctx, project.ID); err != nil {
			log.Printf("Auto-resolution failed for project %s: %v", project.Name, err)
		}
	}

	return len(findings), nil
}

// collectFindings runs the engine against every active account of the project.
// An account without a working API client fails the project run; silently
// skipping would look like a clean bill of health.
func (o *Orchestrator) collectFindings(ctx context.Context, project *models.Project) ([]*models.Finding, error) {
	disabled, thresholds, err := o.loadCheckConfig(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	var findings []*models.Finding

	adAccounts, err := o.store.ListActiveAdAccounts(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("list ad accounts: %w", err)
	}
	for i := range adAccounts {
		account := &adAccounts[i]
		api := o.apis.AdAPI(account)
		detected, err := o.engine.RunAdDetectors(ctx, account, api, disabled, thresholds)
		if err != nil {
			return nil, err
		}
		findings = append(findings, detected...)
	}

	merchants, err := o.store.ListActiveMerchantAccounts(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("list merchant accounts: %w", err)
	}
	for i := range merchants {
		account := &merchants[i]
		api := o.apis.MerchantAPI(account)
		detected, err := o.engine.RunMerchantDetectors(ctx, account, api, disabled, thresholds)
		if err != nil {
			return nil, err
		}
		findings = append(findings, detected...)
	}

	return findings, nil
}

// loadCheckConfig turns per-project check rows into the disabled set and the
// per-family threshold overrides. No row means enabled with defaults.
func (o *Orchestrator) loadCheckConfig(ctx context.Context, projectID string) (map[string]bool, map[string]detector.Thresholds, error) {
	configs, err := o.store.ListCheckConfigs(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("list check configs: %w", err)
	}

	disabled := make(map[string]bool)
	thresholds := make(map[string]detector.Thresholds)
	for _, cfg := range configs {
		if !cfg.Enabled {
			disabled[cfg.CheckID] = true
		}
		if len(cfg.Thresholds) > 0 {
			thresholds[cfg.CheckID] = detector.Thresholds(cfg.Thresholds)
		}
	}

	return disabled, thresholds, nil
}

func (o *Orchestrator) finishRun(ctx context.Context, runID string, status models.CheckRunStatus) {
	if err := o.store.FinishCheckRun(ctx, runID, status, o.now().UTC()); err != nil {
		log.Printf("Failed to finalise check run %s as %s: %v", runID, status, err)
	}
}
