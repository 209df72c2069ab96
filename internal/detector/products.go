package detector

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/platform"
)

const (
	defaultDisapprovedPct    = 5.0
	defaultProductExpiryDays = 3.0
	defaultPendingSpikePct   = 20.0
	productEvidenceLimit     = 10
)

// ProductsDetector covers the merchant feed: disapproval ratio, expiring
// products, feed processing errors, price and availability mismatches against
// the website, and account-level issues.
type ProductsDetector struct{}

func NewProductsDetector() *ProductsDetector { return &ProductsDetector{} }

func (d *ProductsDetector) Family() string { return "products" }

func (d *ProductsDetector) Detect(ctx context.Context, account *models.MerchantAccount, api MerchantAPI, th Thresholds) ([]*models.Finding, error) {
	if !account.Configured() {
		f := models.NewFinding("mc-no-credentials", models.SeverityInfo,
			fmt.Sprintf("No Merchant Center configured for %s", account.Name),
			"Connect Merchant Center API credentials to enable product monitoring.")
		return []*models.Finding{f}, nil
	}

	products, err := api.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	feedDiag, err := api.FeedDiagnostics(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed diagnostics: %w", err)
	}
	accountIssues, err := api.AccountIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch account issues: %w", err)
	}

	var findings []*models.Finding
	now := time.Now()

	// mc-disapproved: ratio-based, a handful of rejects in a big feed is noise.
	disapprovedPct := th.Float("disapprovedPct", defaultDisapprovedPct)
	var disapproved []platform.Product
	for _, p := range products {
		if p.Status == "DISAPPROVED" {
			disapproved = append(disapproved, p)
		}
	}
	if len(products) > 0 {
		ratio := float64(len(disapproved)) / float64(len(products)) * 100
		if ratio > disapprovedPct {
			f := models.NewFinding("mc-disapproved", models.SeverityCritical,
				fmt.Sprintf("%d disapproved products (%.1f%%)", len(disapproved), ratio),
				fmt.Sprintf("More than %.0f%% of products are DISAPPROVED in %s.", disapprovedPct, account.Name))
			examples := make([]map[string]interface{}, 0, productEvidenceLimit)
			for _, p := range capProducts(disapproved, productEvidenceLimit) {
				examples = append(examples, map[string]interface{}{"id": p.ID, "title": p.Title})
			}
			f.Data = map[string]interface{}{
				"total":       len(products),
				"disapproved": len(disapproved),
				"examples":    examples,
			}
			findings = append(findings, f)
		}
	}

	// mc-expiring
	expiryDays := th.Float("productExpiryDays", defaultProductExpiryDays)
	var expiring []platform.Product
	for _, p := range products {
		if p.ExpirationDate == "" {
			continue
		}
		if expires, ok := parseDate(p.ExpirationDate); ok {
			daysLeft := expires.Sub(now).Hours() / 24
			if daysLeft > 0 && daysLeft <= expiryDays {
				expiring = append(expiring, p)
			}
		}
	}
	if len(expiring) > 0 {
		f := models.NewFinding("mc-expiring", models.SeverityHigh,
			fmt.Sprintf("%d product(s) expiring within %.0f days", len(expiring), expiryDays),
			"Products will become unavailable if feed is not updated.")
		sample := make([]map[string]interface{}, 0, productEvidenceLimit)
		for _, p := range capProducts(expiring, productEvidenceLimit) {
			sample = append(sample, map[string]interface{}{"id": p.ID, "title": p.Title, "expires": p.ExpirationDate})
		}
		f.Data = map[string]interface{}{"products": sample}
		findings = append(findings, f)
	}

	// mc-feed-errors
	if feedDiag != nil && feedDiag.ProcessingErrors > 0 {
		f := models.NewFinding("mc-feed-errors", models.SeverityHigh,
			fmt.Sprintf("%d feed processing error(s)", feedDiag.ProcessingErrors),
			fmt.Sprintf("Feed for %s has processing errors that may prevent products from being listed.", account.Name))
		f.Data = map[string]interface{}{
			"errors":   feedDiag.ProcessingErrors,
			"warnings": feedDiag.ValidationWarnings,
		}
		findings = append(findings, f)
	}

	// mc-price-mismatch: feed vs web price differences cause disapprovals.
	var mismatched []platform.Product
	for _, p := range products {
		if p.WebPrice != nil && math.Abs(p.FeedPrice-*p.WebPrice) > 0.01 {
			mismatched = append(mismatched, p)
		}
	}
	if len(mismatched) > 0 {
		f := models.NewFinding("mc-price-mismatch", models.SeverityCritical,
			fmt.Sprintf("%d product(s) with price mismatch", len(mismatched)),
			"Feed prices don't match website prices. This can cause disapprovals.")
		sample := make([]map[string]interface{}, 0, productEvidenceLimit)
		for _, p := range capProducts(mismatched, productEvidenceLimit) {
			sample = append(sample, map[string]interface{}{
				"id": p.ID, "title": p.Title, "feed_price": p.FeedPrice, "web_price": *p.WebPrice,
			})
		}
		f.Data = map[string]interface{}{"products": sample}
		findings = append(findings, f)
	}

	// mc-account-issues
	var criticalIssues []map[string]interface{}
	for _, issue := range accountIssues {
		if issue.Severity == "CRITICAL" || issue.Severity == "ERROR" {
			criticalIssues = append(criticalIssues, map[string]interface{}{
				"severity": issue.Severity, "description": issue.Description,
			})
		}
	}
	if len(criticalIssues) > 0 {
		f := models.NewFinding("mc-account-issues", models.SeverityCritical,
			fmt.Sprintf("%d account-level issue(s) in %s", len(criticalIssues), account.Name),
			"Merchant Center account has critical issues that may affect all products.")
		f.Data = map[string]interface{}{"issues": criticalIssues}
		findings = append(findings, f)
	}

	// mc-pending-spike
	pendingSpikePct := th.Float("pendingSpikePct", defaultPendingSpikePct)
	var pending int
	for _, p := range products {
		if p.Status == "PENDING" {
			pending++
		}
	}
	if len(products) > 0 && float64(pending) > float64(len(products))*pendingSpikePct/100 {
		f := models.NewFinding("mc-pending-spike", models.SeverityMedium,
			fmt.Sprintf("High number of pending products: %d", pending),
			fmt.Sprintf("%.1f%% of products are PENDING review.", float64(pending)/float64(len(products))*100))
		f.Data = map[string]interface{}{"total": len(products), "pending": pending}
		findings = append(findings, f)
	}

	// mc-availability: in stock in the feed but not on the web.
	var unavailable []platform.Product
	for _, p := range products {
		if p.Availability == "in_stock" && p.WebAvailability == "out_of_stock" {
			unavailable = append(unavailable, p)
		}
	}
	if len(unavailable) > 0 {
		f := models.NewFinding("mc-availability", models.SeverityHigh,
			fmt.Sprintf("%d product(s) with availability mismatch", len(unavailable)),
			"Products marked as in_stock in feed but out_of_stock on website.")
		sample := make([]map[string]interface{}, 0, productEvidenceLimit)
		for _, p := range capProducts(unavailable, productEvidenceLimit) {
			sample = append(sample, map[string]interface{}{"id": p.ID, "title": p.Title})
		}
		f.Data = map[string]interface{}{"products": sample}
		findings = append(findings, f)
	}

	return findings, nil
}

func capProducts(products []platform.Product, n int) []platform.Product {
	if len(products) > n {
		return products[:n]
	}
	return products
}
