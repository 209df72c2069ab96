// Package merchant is the Merchant Center read client for product feeds and
// feed diagnostics.
package merchant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tobolak1/ppc-checker/internal/apiclient"
	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/platform"
)

const defaultBaseURL = "https://shoppingcontent.googleapis.com/content/v2.1"

// Client reads products and diagnostics for one merchant account.
type Client struct {
	api        *apiclient.Client
	merchantID string
}

func New(account *models.MerchantAccount, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		api: apiclient.New(apiclient.Config{
			ServiceName: "MerchantCenter",
			BaseURL:     baseURL,
			RateLimit:   &apiclient.RateLimit{MaxTokens: 5, RefillPerSecond: 1},
		}),
		merchantID: account.ExternalID,
	}
}

func (c *Client) Products(ctx context.Context) ([]platform.Product, error) {
	var products []platform.Product
	return products, c.get(ctx, "/products", &products)
}

func (c *Client) FeedDiagnostics(ctx context.Context) (*platform.FeedDiagnostics, error) {
	var diag platform.FeedDiagnostics
	if err := c.get(ctx, "/datafeedstatuses", &diag); err != nil {
		return nil, err
	}
	return &diag, nil
}

func (c *Client) AccountIssues(ctx context.Context) ([]platform.AccountIssue, error) {
	var issues []platform.AccountIssue
	return issues, c.get(ctx, "/accountstatuses", &issues)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	data, err := c.api.Request(ctx, http.MethodGet, "/"+c.merchantID+path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
