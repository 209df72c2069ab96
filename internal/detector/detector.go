// Package detector implements the rule-based checks. Each detector is a pure
// evaluator: it fetches fresh platform data through the provided API, applies
// its conditions, and returns findings. Detectors never touch storage and
// never dispatch alerts.
package detector

import (
	"context"

	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/platform"
)

// AdPlatformAPI is the read surface a detector needs from an advertising
// platform. Both the Google Ads and the Sklik clients satisfy it.
type AdPlatformAPI interface {
	Ads(ctx context.Context) ([]platform.Ad, error)
	AdGroups(ctx context.Context) ([]platform.AdGroup, error)
	Keywords(ctx context.Context) ([]platform.Keyword, error)
	SearchTerms(ctx context.Context) ([]platform.SearchTerm, error)
	Campaigns(ctx context.Context) ([]platform.Campaign, error)
	ChangeHistory(ctx context.Context) ([]platform.ChangeEvent, error)
	BillingInfo(ctx context.Context) (*platform.BillingInfo, error)
	DailyMetrics(ctx context.Context) ([]platform.DailyMetrics, error)
}

// MerchantAPI is the read surface of a merchant-feed platform.
type MerchantAPI interface {
	Products(ctx context.Context) ([]platform.Product, error)
	FeedDiagnostics(ctx context.Context) (*platform.FeedDiagnostics, error)
	AccountIssues(ctx context.Context) ([]platform.AccountIssue, error)
}

// AdDetector evaluates one check family against an ad account.
type AdDetector interface {
	// Family is the stable check-family prefix ("ads", "keywords", ...).
	Family() string
	Detect(ctx context.Context, account *models.AdAccount, api AdPlatformAPI, th Thresholds) ([]*models.Finding, error)
}

// MerchantDetector evaluates one check family against a merchant account.
type MerchantDetector interface {
	Family() string
	Detect(ctx context.Context, account *models.MerchantAccount, api MerchantAPI, th Thresholds) ([]*models.Finding, error)
}

// Thresholds is a per-project override map for a check family's numeric
// parameters. Values come from JSON config, so numbers may arrive as float64
// or int.
type Thresholds map[string]interface{}

// Float returns the override for key or def when absent or non-numeric.
func (t Thresholds) Float(key string, def float64) float64 {
	if t == nil {
		return def
	}
	switch v := t[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// Int returns the override for key or def when absent or non-numeric.
func (t Thresholds) Int(key string, def int) int {
	if t == nil {
		return def
	}
	switch v := t[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}
