package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/tobolak1/ppc-checker/internal/models"
)

const (
	defaultLowBalance         = 500.0
	defaultCardExpiryDays     = 14.0
	defaultBudgetDepletionPct = 90.0
	budgetDepletionCutoffHour = 14
)

// BillingDetector covers payment health: low balances, failed payments,
// expiring cards, missing backup payment methods and early budget depletion.
// Payment problems stop ads from serving, hence the CRITICAL weighting.
type BillingDetector struct {
	now func() time.Time
}

func NewBillingDetector() *BillingDetector { return &BillingDetector{now: time.Now} }

func (d *BillingDetector) Family() string { return "billing" }

func (d *BillingDetector) Detect(ctx context.Context, account *models.AdAccount, api AdPlatformAPI, th Thresholds) ([]*models.Finding, error) {
	if !account.HasCredentials() {
		return nil, nil
	}

	billing, err := api.BillingInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch billing info: %w", err)
	}
	if billing == nil {
		return nil, nil
	}

	var findings []*models.Finding
	now := d.now()

	// bill-low-balance
	lowBalance := th.Float("lowBalance", defaultLowBalance)
	if billing.Balance < lowBalance {
		f := models.NewFinding("bill-low-balance", models.SeverityCritical,
			fmt.Sprintf("Low credit balance: %.0f %s", billing.Balance, billing.Currency),
			fmt.Sprintf("Account %s has only %.0f %s remaining (threshold: %.0f). Estimated daily spend: ~%.0f %s/day.",
				account.Name, billing.Balance, billing.Currency, lowBalance, billing.DailySpend, billing.Currency))
		f.Data = map[string]interface{}{
			"balance":     billing.Balance,
			"currency":    billing.Currency,
			"daily_spend": billing.DailySpend,
		}
		findings = append(findings, f)
	}

	// bill-payment-fail
	if billing.LastPaymentStatus == "FAILED" {
		f := models.NewFinding("bill-payment-fail", models.SeverityCritical,
			fmt.Sprintf("Payment failed for %s", account.Name),
			"The last automatic payment attempt failed. Ads may stop serving if not resolved.")
		f.Data = map[string]interface{}{"account_id": account.ExternalID}
		findings = append(findings, f)
	}

	// bill-card-expiring
	expiryDays := th.Float("cardExpiryDays", defaultCardExpiryDays)
	var expiringCards []map[string]interface{}
	for _, pm := range billing.PaymentMethods {
		if pm.ExpiryDate == "" {
			continue
		}
		if expiry, ok := parseDate(pm.ExpiryDate); ok {
			daysLeft := expiry.Sub(now).Hours() / 24
			if daysLeft > 0 && daysLeft <= expiryDays {
				expiringCards = append(expiringCards, map[string]interface{}{"type": pm.Type, "expiry": pm.ExpiryDate})
			}
		}
	}
	if len(expiringCards) > 0 {
		f := models.NewFinding("bill-card-expiring", models.SeverityHigh,
			fmt.Sprintf("Payment card expiring soon for %s", account.Name),
			fmt.Sprintf("%d payment card(s) expiring within %.0f days. Update to avoid payment failures.", len(expiringCards), expiryDays))
		f.Data = map[string]interface{}{"cards": expiringCards}
		findings = append(findings, f)
	}

	// bill-no-backup
	if len(billing.PaymentMethods) <= 1 {
		findings = append(findings, models.NewFinding("bill-no-backup", models.SeverityMedium,
			fmt.Sprintf("No backup payment method for %s", account.Name),
			"Account has only one payment method. Add a backup to prevent service interruption."))
	}

	// bill-budget-depleted: fires only when spend has actually consumed the
	// configured share of a known daily budget before the cutoff hour. Spend
	// alone before 14:00 is normal and is not a signal.
	depletionPct := th.Float("budgetDepletionPct", defaultBudgetDepletionPct)
	if now.Hour() < budgetDepletionCutoffHour && billing.DailyBudget > 0 &&
		billing.DailySpend >= billing.DailyBudget*depletionPct/100 {
		f := models.NewFinding("bill-budget-depleted", models.SeverityHigh,
			fmt.Sprintf("Budget depleting early for %s", account.Name),
			fmt.Sprintf("Account has consumed %.0f%%+ of its daily budget before %d:00.", depletionPct, budgetDepletionCutoffHour))
		f.Data = map[string]interface{}{
			"daily_spend":  billing.DailySpend,
			"daily_budget": billing.DailyBudget,
			"hour":         now.Hour(),
		}
		findings = append(findings, f)
	}

	// bill-sklik-credit: same signal, separate check id for the Sklik wallet.
	if account.Platform == models.PlatformSklik && billing.Balance < lowBalance {
		f := models.NewFinding("bill-sklik-credit", models.SeverityCritical,
			fmt.Sprintf("Sklik low credit: %.0f %s", billing.Balance, billing.Currency),
			fmt.Sprintf("Sklik account %s credit is below %.0f %s.", account.Name, lowBalance, billing.Currency))
		f.Data = map[string]interface{}{"balance": billing.Balance, "currency": billing.Currency}
		findings = append(findings, f)
	}

	return findings, nil
}
