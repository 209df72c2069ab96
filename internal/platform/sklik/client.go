// Package sklik is the Sklik (Seznam) read client. Sklik enforces much
// stricter request quotas than Google Ads, so the client runs with a smaller
// token bucket.
package sklik

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tobolak1/ppc-checker/internal/apiclient"
	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/platform"
)

const defaultBaseURL = "https://api.sklik.cz/drak/json"

// Client reads account data for one Sklik account.
type Client struct {
	api       *apiclient.Client
	accountID string
}

// New builds a client from the account's credential blob. Expected key:
// api_token.
func New(account *models.AdAccount, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	token, _ := account.Credentials["api_token"].(string)

	return &Client{
		api: apiclient.New(apiclient.Config{
			ServiceName: "Sklik",
			BaseURL:     baseURL,
			RateLimit:   &apiclient.RateLimit{MaxTokens: 5, RefillPerSecond: 1},
			Headers: map[string]string{
				"X-Api-Token": token,
			},
		}),
		accountID: account.ExternalID,
	}
}

func (c *Client) Ads(ctx context.Context) ([]platform.Ad, error) {
	var ads []platform.Ad
	return ads, c.get(ctx, "/ads", &ads)
}

func (c *Client) AdGroups(ctx context.Context) ([]platform.AdGroup, error) {
	var groups []platform.AdGroup
	return groups, c.get(ctx, "/groups", &groups)
}

func (c *Client) Keywords(ctx context.Context) ([]platform.Keyword, error) {
	var keywords []platform.Keyword
	return keywords, c.get(ctx, "/keywords", &keywords)
}

func (c *Client) SearchTerms(ctx context.Context) ([]platform.SearchTerm, error) {
	var terms []platform.SearchTerm
	return terms, c.get(ctx, "/queries", &terms)
}

func (c *Client) Campaigns(ctx context.Context) ([]platform.Campaign, error) {
	var campaigns []platform.Campaign
	return campaigns, c.get(ctx, "/campaigns", &campaigns)
}

func (c *Client) ChangeHistory(ctx context.Context) ([]platform.ChangeEvent, error) {
	var changes []platform.ChangeEvent
	return changes, c.get(ctx, "/history", &changes)
}

func (c *Client) BillingInfo(ctx context.Context) (*platform.BillingInfo, error) {
	var billing platform.BillingInfo
	if err := c.get(ctx, "/wallet", &billing); err != nil {
		return nil, err
	}
	return &billing, nil
}

func (c *Client) DailyMetrics(ctx context.Context) ([]platform.DailyMetrics, error) {
	var metrics []platform.DailyMetrics
	return metrics, c.get(ctx, "/stats/daily", &metrics)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	data, err := c.api.Request(ctx, http.MethodGet, "/accounts/"+c.accountID+path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
