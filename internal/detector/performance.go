package detector

import (
	"context"
	"fmt"
	"math"

	"github.com/tobolak1/ppc-checker/internal/models"
)

const (
	defaultCTRDropPct      = 30.0
	defaultImprDropPct     = 50.0
	defaultSpendSigmas     = 2.0
	defaultLostISBudgetPct = 20.0
	defaultLostISRankPct   = 40.0
	spendAnomalyWindowDays = 14
)

// PerformanceDetector compares today's account metrics against recent
// history: CTR and impression drops, spend anomalies and lost impression
// share. Metrics are expected most recent day first.
type PerformanceDetector struct{}

func NewPerformanceDetector() *PerformanceDetector { return &PerformanceDetector{} }

func (d *PerformanceDetector) Family() string { return "performance" }

func (d *PerformanceDetector) Detect(ctx context.Context, account *models.AdAccount, api AdPlatformAPI, th Thresholds) ([]*models.Finding, error) {
	if !account.HasCredentials() {
		return nil, nil
	}

	metrics, err := api.DailyMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch daily metrics: %w", err)
	}
	if len(metrics) < 2 {
		return nil, nil
	}

	var findings []*models.Finding
	today := metrics[0]
	yesterday := metrics[1]

	window := metrics
	if len(window) > 7 {
		window = window[:7]
	}
	var avgCTR float64
	for _, m := range window {
		avgCTR += m.CTR
	}
	avgCTR /= float64(len(window))

	// perf-ctr-drop
	ctrDropPct := th.Float("ctrDropPct", defaultCTRDropPct)
	if avgCTR > 0 {
		drop := (avgCTR - today.CTR) / avgCTR * 100
		if drop > ctrDropPct {
			f := models.NewFinding("perf-ctr-drop", models.SeverityMedium,
				fmt.Sprintf("CTR dropped %.1f%% in %s", drop, account.Name),
				fmt.Sprintf("Click-through rate fell from %.2f%% (7d avg) to %.2f%% today.", avgCTR*100, today.CTR*100))
			f.Data = map[string]interface{}{"today_ctr": today.CTR, "avg_ctr": avgCTR, "drop_pct": drop}
			findings = append(findings, f)
		}
	}

	// perf-impr-drop
	imprDropPct := th.Float("imprDropPct", defaultImprDropPct)
	if yesterday.Impressions > 0 {
		drop := float64(yesterday.Impressions-today.Impressions) / float64(yesterday.Impressions) * 100
		if drop > imprDropPct {
			f := models.NewFinding("perf-impr-drop", models.SeverityHigh,
				fmt.Sprintf("Impressions dropped %.1f%% in %s", drop, account.Name),
				fmt.Sprintf("Impressions fell from %d to %d day-over-day.", yesterday.Impressions, today.Impressions))
			f.Data = map[string]interface{}{
				"today_impressions":     today.Impressions,
				"yesterday_impressions": yesterday.Impressions,
				"drop_pct":              drop,
			}
			findings = append(findings, f)
		}
	}

	// perf-spend-anomaly: only meaningful with a full 14-day window.
	sigmas := th.Float("spendAnomalySigmas", defaultSpendSigmas)
	if len(metrics) >= spendAnomalyWindowDays {
		sample := metrics[:spendAnomalyWindowDays]
		var mean float64
		for _, m := range sample {
			mean += m.Cost
		}
		mean /= spendAnomalyWindowDays
		var variance float64
		for _, m := range sample {
			variance += (m.Cost - mean) * (m.Cost - mean)
		}
		stdDev := math.Sqrt(variance / spendAnomalyWindowDays)
		deviation := math.Abs(today.Cost - mean)
		if stdDev > 0 && deviation > sigmas*stdDev {
			f := models.NewFinding("perf-spend-anomaly", models.SeverityHigh,
				fmt.Sprintf("Spend anomaly detected in %s", account.Name),
				fmt.Sprintf("Today's spend (%.2f) is %.1fx standard deviations from the 14-day average (%.2f).",
					today.Cost, deviation/stdDev, mean))
			f.Data = map[string]interface{}{
				"today_cost": today.Cost,
				"avg_cost":   mean,
				"std_dev":    stdDev,
				"deviations": deviation / stdDev,
			}
			findings = append(findings, f)
		}
	}

	// perf-lost-is-budget
	lostBudgetPct := th.Float("lostIsBudget", defaultLostISBudgetPct)
	if today.SearchISLostBudget > lostBudgetPct {
		f := models.NewFinding("perf-lost-is-budget", models.SeverityMedium,
			fmt.Sprintf("Lost IS (budget) %.1f%% in %s", today.SearchISLostBudget, account.Name),
			fmt.Sprintf("Losing %.1f%% of search impression share due to budget constraints.", today.SearchISLostBudget))
		f.Data = map[string]interface{}{"lost_is_budget": today.SearchISLostBudget}
		findings = append(findings, f)
	}

	// perf-lost-is-rank
	lostRankPct := th.Float("lostIsRank", defaultLostISRankPct)
	if today.SearchISLostRank > lostRankPct {
		f := models.NewFinding("perf-lost-is-rank", models.SeverityMedium,
			fmt.Sprintf("Lost IS (rank) %.1f%% in %s", today.SearchISLostRank, account.Name),
			fmt.Sprintf("Losing %.1f%% of search impression share due to ad rank.", today.SearchISLostRank))
		f.Data = map[string]interface{}{"lost_is_rank": today.SearchISLostRank}
		findings = append(findings, f)
	}

	return findings, nil
}
