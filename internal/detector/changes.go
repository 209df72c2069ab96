package detector

import (
	"context"
	"fmt"
	"math"

	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/platform"
)

const defaultBudgetSpikePct = 50.0

// ChangesDetector watches the account change history for risky edits:
// paused campaigns with spend, budget and bid spikes, access changes and
// removed conversion tracking.
type ChangesDetector struct{}

func NewChangesDetector() *ChangesDetector { return &ChangesDetector{} }

func (d *ChangesDetector) Family() string { return "changes" }

func (d *ChangesDetector) Detect(ctx context.Context, account *models.AdAccount, api AdPlatformAPI, th Thresholds) ([]*models.Finding, error) {
	if !account.HasCredentials() {
		return nil, nil
	}

	campaigns, err := api.Campaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch campaigns: %w", err)
	}
	changes, err := api.ChangeHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch change history: %w", err)
	}

	var findings []*models.Finding

	// chg-campaign-paused: an enabled campaign with spend was switched off.
	var paused []map[string]interface{}
	for _, c := range campaigns {
		if (c.Status == platform.AdStatusPaused || c.Status == platform.AdStatusRemoved) &&
			c.PreviousStatus == platform.AdStatusEnabled && c.DailySpend > 0 {
			paused = append(paused, map[string]interface{}{
				"name": c.Name, "status": c.Status, "daily_spend": c.DailySpend,
			})
		}
	}
	if len(paused) > 0 {
		f := models.NewFinding("chg-campaign-paused", models.SeverityCritical,
			fmt.Sprintf("%d active campaign(s) paused/removed", len(paused)),
			fmt.Sprintf("Campaigns with daily spend were paused or removed in %s.", account.Name))
		f.Data = map[string]interface{}{"campaigns": capSample(paused, 10)}
		findings = append(findings, f)
	}

	// chg-budget-spike
	spikePct := th.Float("budgetSpikePct", defaultBudgetSpikePct)
	var budgetChanges []map[string]interface{}
	for _, c := range campaigns {
		if c.PreviousDailyBudget == 0 {
			continue
		}
		changePct := math.Abs(c.DailyBudget-c.PreviousDailyBudget) / c.PreviousDailyBudget * 100
		if changePct > spikePct {
			budgetChanges = append(budgetChanges, map[string]interface{}{
				"name": c.Name, "old_budget": c.PreviousDailyBudget, "new_budget": c.DailyBudget,
			})
		}
	}
	if len(budgetChanges) > 0 {
		f := models.NewFinding("chg-budget-spike", models.SeverityHigh,
			fmt.Sprintf("%d campaign(s) with budget change >%.0f%%", len(budgetChanges), spikePct),
			"Significant budget changes detected that may affect account performance.")
		f.Data = map[string]interface{}{"campaigns": capSample(budgetChanges, 10)}
		findings = append(findings, f)
	}

	// chg-bid-spike
	bidChanges := changesOfType(changes, "BID")
	if len(bidChanges) > 0 {
		f := models.NewFinding("chg-bid-spike", models.SeverityHigh,
			fmt.Sprintf("%d significant bid change(s)", len(bidChanges)),
			fmt.Sprintf("Bid values changed by more than 100%% in %s.", account.Name))
		f.Data = map[string]interface{}{"changes": capSample(bidChanges, 10)}
		findings = append(findings, f)
	}

	// chg-access: permission edits are a hijack indicator, always critical.
	accessChanges := changesOfType(changes, "ACCESS")
	if len(accessChanges) > 0 {
		f := models.NewFinding("chg-access", models.SeverityCritical,
			fmt.Sprintf("%d access change(s) detected", len(accessChanges)),
			fmt.Sprintf("User access or permissions were modified on %s.", account.Name))
		f.Data = map[string]interface{}{"changes": capSample(accessChanges, 10)}
		findings = append(findings, f)
	}

	// chg-tracking-gone
	trackingChanges := changesOfType(changes, "CONVERSION_ACTION")
	if len(trackingChanges) > 0 {
		f := models.NewFinding("chg-tracking-gone", models.SeverityCritical,
			"Conversion tracking modified",
			fmt.Sprintf("Conversion actions were deleted or deactivated in %s. This will affect reporting.", account.Name))
		f.Data = map[string]interface{}{"changes": capSample(trackingChanges, 10)}
		findings = append(findings, f)
	}

	// chg-strategy: strategy swaps restart the bidding learning period.
	var strategyChanges []map[string]interface{}
	for _, c := range campaigns {
		if c.PreviousBiddingStrategy != "" && c.BiddingStrategy != c.PreviousBiddingStrategy {
			strategyChanges = append(strategyChanges, map[string]interface{}{
				"name": c.Name, "old": c.PreviousBiddingStrategy, "new": c.BiddingStrategy,
			})
		}
	}
	if len(strategyChanges) > 0 {
		f := models.NewFinding("chg-strategy", models.SeverityHigh,
			fmt.Sprintf("%d bidding strategy change(s)", len(strategyChanges)),
			"Bidding strategies were changed, which may affect performance and learning periods.")
		f.Data = map[string]interface{}{"campaigns": capSample(strategyChanges, 10)}
		findings = append(findings, f)
	}

	return findings, nil
}

func changesOfType(changes []platform.ChangeEvent, changeType string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, c := range changes {
		if c.ChangeType == changeType {
			out = append(out, map[string]interface{}{
				"entity": c.EntityName,
				"old":    c.OldValue,
				"new":    c.NewValue,
				"by":     c.ChangedBy,
				"date":   c.ChangeDate,
			})
		}
	}
	return out
}
