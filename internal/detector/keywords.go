package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/platform"
)

const (
	defaultMinQualityScore     = 4
	defaultMinImpressions      = 100
	defaultSearchTermSpend     = 50.0
	keywordEvidenceSampleLimit = 20
)

// KeywordsDetector covers keyword hygiene: cross-campaign overlap, negative
// conflicts, in-group duplicates, low quality scores, dead keywords and
// wasteful search terms.
type KeywordsDetector struct{}

func NewKeywordsDetector() *KeywordsDetector { return &KeywordsDetector{} }

func (d *KeywordsDetector) Family() string { return "keywords" }

func (d *KeywordsDetector) Detect(ctx context.Context, account *models.AdAccount, api AdPlatformAPI, th Thresholds) ([]*models.Finding, error) {
	if !account.HasCredentials() {
		return nil, nil
	}

	keywords, err := api.Keywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch keywords: %w", err)
	}
	searchTerms, err := api.SearchTerms(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch search terms: %w", err)
	}

	var findings []*models.Finding

	var positives, negatives []platform.Keyword
	for _, kw := range keywords {
		if kw.Status != platform.AdStatusEnabled {
			continue
		}
		if kw.IsNegative {
			negatives = append(negatives, kw)
		} else {
			positives = append(positives, kw)
		}
	}

	// kw-overlap: same text+match type live in more than one campaign.
	byTextMatch := make(map[string][]platform.Keyword)
	for _, kw := range positives {
		key := strings.ToLower(kw.Text) + "|" + kw.MatchType
		byTextMatch[key] = append(byTextMatch[key], kw)
	}
	var overlaps []map[string]interface{}
	for key, kws := range byTextMatch {
		campaigns := make(map[string]bool)
		var names []string
		for _, kw := range kws {
			if !campaigns[kw.CampaignID] {
				campaigns[kw.CampaignID] = true
				names = append(names, kw.CampaignName)
			}
		}
		if len(campaigns) > 1 {
			parts := strings.SplitN(key, "|", 2)
			overlaps = append(overlaps, map[string]interface{}{
				"keyword":    parts[0],
				"match_type": parts[1],
				"campaigns":  names,
			})
		}
	}
	if len(overlaps) > 0 {
		f := models.NewFinding("kw-overlap", models.SeverityHigh,
			fmt.Sprintf("%d keyword(s) competing across campaigns", len(overlaps)),
			"Found keywords appearing in multiple campaigns, causing internal auction competition.")
		f.Data = map[string]interface{}{"keywords": capSample(overlaps, keywordEvidenceSampleLimit)}
		findings = append(findings, f)
	}

	// kw-negative-conflict: a negative blocks an active keyword in the same campaign.
	var conflicts []map[string]interface{}
	for _, neg := range negatives {
		for _, pos := range positives {
			if neg.CampaignID == pos.CampaignID && strings.EqualFold(neg.Text, pos.Text) {
				conflicts = append(conflicts, map[string]interface{}{
					"keyword":  pos.Text,
					"campaign": pos.CampaignName,
					"ad_group": pos.AdGroupName,
				})
			}
		}
	}
	if len(conflicts) > 0 {
		f := models.NewFinding("kw-negative-conflict", models.SeverityHigh,
			fmt.Sprintf("%d negative keyword conflict(s)", len(conflicts)),
			"Negative keywords are blocking active keywords in the same campaign.")
		f.Data = map[string]interface{}{"conflicts": capSample(conflicts, keywordEvidenceSampleLimit)}
		findings = append(findings, f)
	}

	// kw-duplicate-ag: same text twice in one ad group (different match types).
	byGroupText := make(map[string][]platform.Keyword)
	for _, kw := range positives {
		key := kw.AdGroupID + "|" + strings.ToLower(kw.Text)
		byGroupText[key] = append(byGroupText[key], kw)
	}
	var duplicates []map[string]interface{}
	for _, kws := range byGroupText {
		if len(kws) > 1 {
			matchTypes := make([]string, len(kws))
			for i, kw := range kws {
				matchTypes[i] = kw.MatchType
			}
			duplicates = append(duplicates, map[string]interface{}{
				"keyword":     kws[0].Text,
				"ad_group":    kws[0].AdGroupName,
				"match_types": matchTypes,
			})
		}
	}
	if len(duplicates) > 0 {
		f := models.NewFinding("kw-duplicate-ag", models.SeverityMedium,
			fmt.Sprintf("%d duplicate keyword(s) in ad groups", len(duplicates)),
			"Found the same keyword with different match types in a single ad group.")
		f.Data = map[string]interface{}{"duplicates": capSample(duplicates, keywordEvidenceSampleLimit)}
		findings = append(findings, f)
	}

	// kw-low-qs: poor quality score with real traffic behind it.
	minQS := th.Int("minQualityScore", defaultMinQualityScore)
	minImpr := th.Int("minImpressions", defaultMinImpressions)
	var lowQS []map[string]interface{}
	for _, kw := range positives {
		if kw.QualityScore > 0 && kw.QualityScore <= minQS && kw.Impressions30d > minImpr {
			lowQS = append(lowQS, map[string]interface{}{
				"keyword":     kw.Text,
				"qs":          kw.QualityScore,
				"impressions": kw.Impressions30d,
				"campaign":    kw.CampaignName,
			})
		}
	}
	if len(lowQS) > 0 {
		f := models.NewFinding("kw-low-qs", models.SeverityMedium,
			fmt.Sprintf("%d keyword(s) with low Quality Score", len(lowQS)),
			fmt.Sprintf("Keywords with QS <= %d and significant traffic. Improve ad relevance and landing pages.", minQS))
		f.Data = map[string]interface{}{"keywords": capSample(lowQS, keywordEvidenceSampleLimit)}
		findings = append(findings, f)
	}

	// kw-no-impressions
	var dead []map[string]interface{}
	for _, kw := range positives {
		if kw.Impressions30d == 0 {
			dead = append(dead, map[string]interface{}{
				"keyword":    kw.Text,
				"match_type": kw.MatchType,
				"campaign":   kw.CampaignName,
			})
		}
	}
	if len(dead) > 0 {
		f := models.NewFinding("kw-no-impressions", models.SeverityLow,
			fmt.Sprintf("%d active keyword(s) with zero impressions", len(dead)),
			"Keywords have been active for 30+ days without a single impression. Consider reviewing match types or pausing.")
		f.Data = map[string]interface{}{"keywords": capSample(dead, keywordEvidenceSampleLimit)}
		findings = append(findings, f)
	}

	// kw-search-terms: spend with no conversions wants a negative keyword.
	spendThreshold := th.Float("searchTermSpendThreshold", defaultSearchTermSpend)
	var wasteful []map[string]interface{}
	for _, st := range searchTerms {
		if st.Cost > spendThreshold && st.Conversions == 0 {
			wasteful = append(wasteful, map[string]interface{}{
				"term":     st.SearchTerm,
				"cost":     st.Cost,
				"clicks":   st.Clicks,
				"campaign": st.CampaignName,
			})
		}
	}
	if len(wasteful) > 0 {
		f := models.NewFinding("kw-search-terms", models.SeverityMedium,
			fmt.Sprintf("%d search term(s) with high spend and zero conversions", len(wasteful)),
			fmt.Sprintf("Search terms spending more than %.0f with no conversions. Consider adding as negative keywords.", spendThreshold))
		f.Data = map[string]interface{}{"terms": capSample(wasteful, keywordEvidenceSampleLimit)}
		findings = append(findings, f)
	}

	return findings, nil
}

func capSample(entries []map[string]interface{}, n int) []map[string]interface{} {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}
