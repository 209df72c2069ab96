package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/platform"
)

const (
	defaultStuckReviewHours  = 48.0
	defaultExpiringPromoDays = 3.0
)

// AdsDetector covers ad serving state: disapprovals, stuck reviews, empty ad
// groups, RSA quality and expiring promotions. This is the one family that
// reports missing credentials, so an unconnected account still surfaces once.
type AdsDetector struct{}

func NewAdsDetector() *AdsDetector { return &AdsDetector{} }

func (d *AdsDetector) Family() string { return "ads" }

func (d *AdsDetector) Detect(ctx context.Context, account *models.AdAccount, api AdPlatformAPI, th Thresholds) ([]*models.Finding, error) {
	if !account.HasCredentials() {
		f := models.NewFinding("ads-no-credentials", models.SeverityInfo,
			fmt.Sprintf("No API credentials for %s", account.Name),
			fmt.Sprintf("Account %s (%s) has no API credentials configured.", account.Name, account.Platform))
		f.Data = map[string]interface{}{
			"account_id": account.ExternalID,
			"platform":   string(account.Platform),
		}
		return []*models.Finding{f}, nil
	}

	ads, err := api.Ads(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch ads: %w", err)
	}
	adGroups, err := api.AdGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch ad groups: %w", err)
	}

	var findings []*models.Finding
	now := time.Now()

	// ads-disapproved: disapproved ads are not serving at all.
	var disapproved []platform.Ad
	for _, a := range ads {
		if a.Status == platform.AdStatusDisapproved {
			disapproved = append(disapproved, a)
		}
	}
	if len(disapproved) > 0 {
		f := models.NewFinding("ads-disapproved", models.SeverityCritical,
			fmt.Sprintf("%d disapproved ad(s) in %s", len(disapproved), account.Name),
			fmt.Sprintf("Found %d ads with DISAPPROVED or POLICY_VIOLATION status. These ads are not serving.", len(disapproved)))
		sample := make([]map[string]interface{}, 0, 10)
		for _, a := range capAds(disapproved, 10) {
			sample = append(sample, map[string]interface{}{"id": a.ID, "ad_group": a.AdGroupName, "policy": a.PolicyStatus})
		}
		f.Data = map[string]interface{}{"ads": sample}
		findings = append(findings, f)
	}

	// ads-limited: LIMITED, or stuck in review past the configured window.
	stuckHours := th.Float("stuckReviewHours", defaultStuckReviewHours)
	var limited []platform.Ad
	for _, a := range ads {
		if a.Status == platform.AdStatusLimited {
			limited = append(limited, a)
			continue
		}
		if a.Status == platform.AdStatusUnderReview && a.LastStatusChange != "" {
			if changed, ok := parseDate(a.LastStatusChange); ok && now.Sub(changed).Hours() > stuckHours {
				limited = append(limited, a)
			}
		}
	}
	if len(limited) > 0 {
		f := models.NewFinding("ads-limited", models.SeverityHigh,
			fmt.Sprintf("%d limited/stuck ad(s) in %s", len(limited), account.Name),
			fmt.Sprintf("Found %d ads that are LIMITED or stuck in UNDER_REVIEW for more than %.0f hours.", len(limited), stuckHours))
		sample := make([]map[string]interface{}, 0, 10)
		for _, a := range capAds(limited, 10) {
			sample = append(sample, map[string]interface{}{"id": a.ID, "status": a.Status, "ad_group": a.AdGroupName})
		}
		f.Data = map[string]interface{}{"ads": sample}
		findings = append(findings, f)
	}

	// ads-no-active: enabled ad groups with zero active ads cannot serve.
	var empty []platform.AdGroup
	for _, ag := range adGroups {
		if ag.Status == platform.AdStatusEnabled && ag.ActiveAdCount == 0 {
			empty = append(empty, ag)
		}
	}
	if len(empty) > 0 {
		f := models.NewFinding("ads-no-active", models.SeverityHigh,
			fmt.Sprintf("%d ad group(s) without active ads", len(empty)),
			fmt.Sprintf("Found %d ENABLED ad groups with 0 active ads. These ad groups cannot serve.", len(empty)))
		sample := make([]map[string]interface{}, 0, 10)
		for i, ag := range empty {
			if i >= 10 {
				break
			}
			sample = append(sample, map[string]interface{}{"id": ag.ID, "name": ag.Name})
		}
		f.Data = map[string]interface{}{"ad_groups": sample}
		findings = append(findings, f)
	}

	// ads-rsa-pinning: everything pinned leaves the platform nothing to rotate.
	var overPinned []platform.Ad
	for _, a := range ads {
		if a.Type == "RSA" && len(a.Headlines) > 0 && len(a.PinnedPositions) >= len(a.Headlines) {
			overPinned = append(overPinned, a)
		}
	}
	if len(overPinned) > 0 {
		f := models.NewFinding("ads-rsa-pinning", models.SeverityMedium,
			fmt.Sprintf("%d RSA(s) with all positions pinned", len(overPinned)),
			"Found RSA ads where all headline/description positions are pinned, limiting the platform's optimization ability.")
		sample := make([]map[string]interface{}, 0, 10)
		for _, a := range capAds(overPinned, 10) {
			sample = append(sample, map[string]interface{}{"id": a.ID, "ad_group": a.AdGroupName})
		}
		f.Data = map[string]interface{}{"ads": sample}
		findings = append(findings, f)
	}

	// ads-low-strength
	var poor []platform.Ad
	for _, a := range ads {
		if a.Type == "RSA" && a.AdStrength == "POOR" {
			poor = append(poor, a)
		}
	}
	if len(poor) > 0 {
		f := models.NewFinding("ads-low-strength", models.SeverityLow,
			fmt.Sprintf("%d RSA(s) with POOR ad strength", len(poor)),
			"Found RSA ads with POOR ad strength. Consider adding more headlines and descriptions.")
		sample := make([]map[string]interface{}, 0, 10)
		for _, a := range capAds(poor, 10) {
			sample = append(sample, map[string]interface{}{"id": a.ID, "ad_group": a.AdGroupName, "strength": a.AdStrength})
		}
		f.Data = map[string]interface{}{"ads": sample}
		findings = append(findings, f)
	}

	// ads-expiring-promo
	promoDays := th.Float("expiringPromoDays", defaultExpiringPromoDays)
	var expiring []platform.Ad
	for _, a := range ads {
		if a.PromotionEndDate == "" {
			continue
		}
		if end, ok := parseDate(a.PromotionEndDate); ok {
			daysLeft := end.Sub(now).Hours() / 24
			if daysLeft > 0 && daysLeft <= promoDays {
				expiring = append(expiring, a)
			}
		}
	}
	if len(expiring) > 0 {
		f := models.NewFinding("ads-expiring-promo", models.SeverityMedium,
			fmt.Sprintf("%d promotion(s) expiring within %.0f days", len(expiring), promoDays),
			"Found ads with promotion extensions about to expire. Update or remove them to avoid showing expired promos.")
		sample := make([]map[string]interface{}, 0, 10)
		for _, a := range capAds(expiring, 10) {
			sample = append(sample, map[string]interface{}{"id": a.ID, "promo_end": a.PromotionEndDate})
		}
		f.Data = map[string]interface{}{"ads": sample}
		findings = append(findings, f)
	}

	return findings, nil
}

func capAds(ads []platform.Ad, n int) []platform.Ad {
	if len(ads) > n {
		return ads[:n]
	}
	return ads
}

// parseDate accepts RFC3339 timestamps and bare dates, which is what the
// platform APIs actually mix.
func parseDate(s string) (time.Time, bool) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, true
	}
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts, true
	}
	return time.Time{}, false
}
