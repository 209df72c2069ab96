// Package googleads is the Google Ads read client used by the detectors.
// All access goes through the shared apiclient core, which owns rate
// limiting, retries and the error taxonomy.
package googleads

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tobolak1/ppc-checker/internal/apiclient"
	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/platform"
)

const defaultBaseURL = "https://googleads.googleapis.com/v17"

// Client reads account data for one Google Ads customer.
type Client struct {
	api        *apiclient.Client
	customerID string
}

// New builds a client from the account's credential blob. Expected keys:
// refresh_token, developer_token, customer_id (customer_id falls back to the
// account external id).
func New(account *models.AdAccount, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	customerID := credString(account.Credentials, "customer_id")
	if customerID == "" {
		customerID = account.ExternalID
	}

	return &Client{
		api: apiclient.New(apiclient.Config{
			ServiceName: "GoogleAds",
			BaseURL:     baseURL,
			RateLimit:   &apiclient.RateLimit{MaxTokens: 10, RefillPerSecond: 2},
			Headers: map[string]string{
				"Authorization":     "Bearer " + credString(account.Credentials, "refresh_token"),
				"developer-token":   credString(account.Credentials, "developer_token"),
				"login-customer-id": customerID,
			},
		}),
		customerID: customerID,
	}
}

func (c *Client) Ads(ctx context.Context) ([]platform.Ad, error) {
	var ads []platform.Ad
	return ads, c.get(ctx, "/ads", &ads)
}

func (c *Client) AdGroups(ctx context.Context) ([]platform.AdGroup, error) {
	var groups []platform.AdGroup
	return groups, c.get(ctx, "/adGroups", &groups)
}

func (c *Client) Keywords(ctx context.Context) ([]platform.Keyword, error) {
	var keywords []platform.Keyword
	return keywords, c.get(ctx, "/keywords", &keywords)
}

func (c *Client) SearchTerms(ctx context.Context) ([]platform.SearchTerm, error) {
	var terms []platform.SearchTerm
	return terms, c.get(ctx, "/searchTerms", &terms)
}

func (c *Client) Campaigns(ctx context.Context) ([]platform.Campaign, error) {
	var campaigns []platform.Campaign
	return campaigns, c.get(ctx, "/campaigns", &campaigns)
}

func (c *Client) ChangeHistory(ctx context.Context) ([]platform.ChangeEvent, error) {
	var changes []platform.ChangeEvent
	return changes, c.get(ctx, "/changeEvents", &changes)
}

func (c *Client) BillingInfo(ctx context.Context) (*platform.BillingInfo, error) {
	var billing platform.BillingInfo
	if err := c.get(ctx, "/billingSetups", &billing); err != nil {
		return nil, err
	}
	return &billing, nil
}

func (c *Client) DailyMetrics(ctx context.Context) ([]platform.DailyMetrics, error) {
	var metrics []platform.DailyMetrics
	return metrics, c.get(ctx, "/metrics/daily", &metrics)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	data, err := c.api.Request(ctx, http.MethodGet, "/customers/"+c.customerID+path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func credString(creds map[string]interface{}, key string) string {
	if s, ok := creds[key].(string); ok {
		return s
	}
	return ""
}
