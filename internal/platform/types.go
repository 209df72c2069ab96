// Package platform holds the data shapes returned by the advertising and
// merchant-feed APIs, normalised across Google Ads and Sklik so the detectors
// evaluate one representation.
package platform

// AdStatus values as normalised from the platform APIs.
const (
	AdStatusEnabled     = "ENABLED"
	AdStatusPaused      = "PAUSED"
	AdStatusRemoved     = "REMOVED"
	AdStatusDisapproved = "DISAPPROVED"
	AdStatusUnderReview = "UNDER_REVIEW"
	AdStatusLimited     = "LIMITED"
)

// Ad is a single ad creative.
type Ad struct {
	ID               string   `json:"id"`
	AdGroupID        string   `json:"ad_group_id"`
	AdGroupName      string   `json:"ad_group_name"`
	Type             string   `json:"type"` // RSA, ETA, OTHER
	Status           string   `json:"status"`
	PolicyStatus     string   `json:"policy_status,omitempty"`
	Headlines        []string `json:"headlines,omitempty"`
	Descriptions     []string `json:"descriptions,omitempty"`
	PinnedPositions  []int    `json:"pinned_positions,omitempty"`
	AdStrength       string   `json:"ad_strength,omitempty"` // EXCELLENT..POOR, UNRATED
	PromotionEndDate string   `json:"promotion_end_date,omitempty"`
	LastStatusChange string   `json:"last_status_change,omitempty"`
}

// AdGroup is an ad group with its serving state.
type AdGroup struct {
	ID            string `json:"id"`
	CampaignID    string `json:"campaign_id"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	ActiveAdCount int    `json:"active_ad_count"`
}

// Keyword is a positive or negative keyword.
type Keyword struct {
	ID             string `json:"id"`
	AdGroupID      string `json:"ad_group_id"`
	AdGroupName    string `json:"ad_group_name"`
	CampaignID     string `json:"campaign_id"`
	CampaignName   string `json:"campaign_name"`
	Text           string `json:"text"`
	MatchType      string `json:"match_type"` // EXACT, PHRASE, BROAD
	Status         string `json:"status"`
	QualityScore   int    `json:"quality_score,omitempty"` // 0 = not rated
	Impressions30d int    `json:"impressions_30d"`
	IsNegative     bool   `json:"is_negative"`
}

// SearchTerm is one search-terms report row.
type SearchTerm struct {
	SearchTerm   string  `json:"search_term"`
	CampaignName string  `json:"campaign_name"`
	AdGroupName  string  `json:"ad_group_name"`
	Impressions  int     `json:"impressions"`
	Clicks       int     `json:"clicks"`
	Cost         float64 `json:"cost"`
	Conversions  float64 `json:"conversions"`
}

// Campaign carries current and previous values so the change detector can
// diff without a second fetch.
type Campaign struct {
	ID                      string  `json:"id"`
	Name                    string  `json:"name"`
	Status                  string  `json:"status"`
	PreviousStatus          string  `json:"previous_status,omitempty"`
	DailyBudget             float64 `json:"daily_budget"`
	PreviousDailyBudget     float64 `json:"previous_daily_budget,omitempty"`
	BiddingStrategy         string  `json:"bidding_strategy"`
	PreviousBiddingStrategy string  `json:"previous_bidding_strategy,omitempty"`
	DailySpend              float64 `json:"daily_spend"`
}

// ChangeEvent is one change-history entry.
type ChangeEvent struct {
	ChangeType string `json:"change_type"` // CAMPAIGN_STATUS, BUDGET, BID, ACCESS, CONVERSION_ACTION, BIDDING_STRATEGY
	EntityName string `json:"entity_name"`
	OldValue   string `json:"old_value"`
	NewValue   string `json:"new_value"`
	ChangedBy  string `json:"changed_by"`
	ChangeDate string `json:"change_date"`
}

// PaymentMethod is a stored payment instrument.
type PaymentMethod struct {
	Type       string `json:"type"`
	ExpiryDate string `json:"expiry_date,omitempty"`
}

// BillingInfo is the account billing snapshot.
type BillingInfo struct {
	Balance           float64         `json:"balance"`
	Currency          string          `json:"currency"`
	LastPaymentStatus string          `json:"last_payment_status"` // SUCCESS, FAILED, PENDING
	PaymentMethods    []PaymentMethod `json:"payment_methods"`
	DailySpend        float64         `json:"daily_spend"`
	DailyBudget       float64         `json:"daily_budget,omitempty"`
}

// DailyMetrics is one day of account-level performance, most recent first
// when returned as a series.
type DailyMetrics struct {
	Date               string  `json:"date"`
	Impressions        int     `json:"impressions"`
	Clicks             int     `json:"clicks"`
	Cost               float64 `json:"cost"`
	Conversions        float64 `json:"conversions"`
	CTR                float64 `json:"ctr"`
	AvgCPC             float64 `json:"avg_cpc"`
	SearchISLostBudget float64 `json:"search_is_lost_budget,omitempty"`
	SearchISLostRank   float64 `json:"search_is_lost_rank,omitempty"`
}

// Product is one merchant-feed product.
type Product struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Status          string   `json:"status"` // APPROVED, DISAPPROVED, PENDING
	FeedPrice       float64  `json:"feed_price"`
	WebPrice        *float64 `json:"web_price,omitempty"`
	Availability    string   `json:"availability"` // in_stock, out_of_stock, preorder
	WebAvailability string   `json:"web_availability,omitempty"`
	ExpirationDate  string   `json:"expiration_date,omitempty"`
	Category        string   `json:"category,omitempty"`
}

// FeedDiagnostics summarises the last feed processing pass.
type FeedDiagnostics struct {
	ProcessingErrors   int    `json:"processing_errors"`
	ValidationWarnings int    `json:"validation_warnings"`
	LastProcessed      string `json:"last_processed,omitempty"`
}

// AccountIssue is a merchant account-level issue.
type AccountIssue struct {
	Severity    string `json:"severity"` // WARNING, ERROR, CRITICAL
	Description string `json:"description"`
}
