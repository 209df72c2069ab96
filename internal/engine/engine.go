package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/tobolak1/ppc-checker/internal/detector"
	"github.com/tobolak1/ppc-checker/internal/models"
)

// Engine holds the registered check families. New families are added by
// registering a detector, never by special-casing call sites.
type Engine struct {
	adDetectors       []detector.AdDetector
	merchantDetectors []detector.MerchantDetector
}

// NewEngine creates an empty detection engine.
func NewEngine() *Engine {
	return &Engine{}
}

// RegisterAdDetector adds an ad-account check family to the engine.
func (e *Engine) RegisterAdDetector(d detector.AdDetector) {
	e.adDetectors = append(e.adDetectors, d)
	log.Printf("Registered detector: %s", d.Family())
}

// RegisterMerchantDetector adds a merchant-account check family to the engine.
func (e *Engine) RegisterMerchantDetector(d detector.MerchantDetector) {
	e.merchantDetectors = append(e.merchantDetectors, d)
	log.Printf("Registered merchant detector: %s", d.Family())
}

// RegisteredFamilies returns the family names of all registered detectors.
func (e *Engine) RegisteredFamilies() []string {
	families := make([]string, 0, len(e.adDetectors)+len(e.merchantDetectors))
	for _, d := range e.adDetectors {
		families = append(families, d.Family())
	}
	for _, d := range e.merchantDetectors {
		families = append(families, d.Family())
	}
	return families
}

// RunAdDetectors runs every enabled ad-detector family against one account
// sequentially and concatenates the findings. A detector failure fails the
// whole account sweep; partial results are discarded.
func (e *Engine) RunAdDetectors(ctx context.Context, account *models.AdAccount, api detector.AdPlatformAPI, disabled map[string]bool, thresholds map[string]detector.Thresholds) ([]*models.Finding, error) {
	var findings []*models.Finding

	for _, d := range e.adDetectors {
		if disabled[d.Family()] {
			continue
		}
		detected, err := d.Detect(ctx, account, api, thresholds[d.Family()])
		if err != nil {
			return nil, fmt.Errorf("detector %s on account %s: %w", d.Family(), account.Name, err)
		}
		for _, f := range detected {
			log.Printf("Finding [%s] %s - %s", f.Severity, f.CheckID, f.Title)
		}
		findings = append(findings, detected...)
	}

	return findings, nil
}

// RunMerchantDetectors runs every enabled merchant-detector family against
// one merchant account.
func (e *Engine) RunMerchantDetectors(ctx context.Context, account *models.MerchantAccount, api detector.MerchantAPI, disabled map[string]bool, thresholds map[string]detector.Thresholds) ([]*models.Finding, error) {
	var findings []*models.Finding

	for _, d := range e.merchantDetectors {
		if disabled[d.Family()] {
			continue
		}
		detected, err := d.Detect(ctx, account, api, thresholds[d.Family()])
		if err != nil {
			return nil, fmt.Errorf("detector %s on merchant %s: %w", d.Family(), account.Name, err)
		}
		for _, f := range detected {
			log.Printf("Finding [%s] %s - %s", f.Severity, f.CheckID, f.Title)
		}
		findings = append(findings, detected...)
	}

	return findings, nil
}
