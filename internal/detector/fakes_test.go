package detector

import (
	"context"

	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/platform"
)

// fakeAdAPI serves canned platform data to detectors under test.
type fakeAdAPI struct {
	ads         []platform.Ad
	adGroups    []platform.AdGroup
	keywords    []platform.Keyword
	searchTerms []platform.SearchTerm
	campaigns   []platform.Campaign
	changes     []platform.ChangeEvent
	billing     *platform.BillingInfo
	metrics     []platform.DailyMetrics
	err         error
}

func (f *fakeAdAPI) Ads(ctx context.Context) ([]platform.Ad, error) { return f.ads, f.err }
func (f *fakeAdAPI) AdGroups(ctx context.Context) ([]platform.AdGroup, error) {
	return f.adGroups, f.err
}
func (f *fakeAdAPI) Keywords(ctx context.Context) ([]platform.Keyword, error) {
	return f.keywords, f.err
}
func (f *fakeAdAPI) SearchTerms(ctx context.Context) ([]platform.SearchTerm, error) {
	return f.searchTerms, f.err
}
func (f *fakeAdAPI) Campaigns(ctx context.Context) ([]platform.Campaign, error) {
	return f.campaigns, f.err
}
func (f *fakeAdAPI) ChangeHistory(ctx context.Context) ([]platform.ChangeEvent, error) {
	return f.changes, f.err
}
func (f *fakeAdAPI) BillingInfo(ctx context.Context) (*platform.BillingInfo, error) {
	return f.billing, f.err
}
func (f *fakeAdAPI) DailyMetrics(ctx context.Context) ([]platform.DailyMetrics, error) {
	return f.metrics, f.err
}

type fakeMerchantAPI struct {
	products []platform.Product
	feedDiag *platform.FeedDiagnostics
	issues   []platform.AccountIssue
	err      error
}

func (f *fakeMerchantAPI) Products(ctx context.Context) ([]platform.Product, error) {
	return f.products, f.err
}
func (f *fakeMerchantAPI) FeedDiagnostics(ctx context.Context) (*platform.FeedDiagnostics, error) {
	return f.feedDiag, f.err
}
func (f *fakeMerchantAPI) AccountIssues(ctx context.Context) ([]platform.AccountIssue, error) {
	return f.issues, f.err
}

func testAccount() *models.AdAccount {
	return &models.AdAccount{
		ID:         "acc-1",
		ProjectID:  "proj-1",
		Platform:   models.PlatformGoogleAds,
		ExternalID: "123-456-7890",
		Name:       "Test Account",
		Active:     true,
		Credentials: map[string]interface{}{
			"refresh_token": "token",
		},
	}
}

func bareAccount() *models.AdAccount {
	return &models.AdAccount{
		ID:         "acc-2",
		ProjectID:  "proj-1",
		Platform:   models.PlatformGoogleAds,
		ExternalID: "123-456-7890",
		Name:       "Unconnected Account",
		Active:     true,
	}
}

// findByCheckID returns the first finding with the given check id, or nil.
func findByCheckID(findings []*models.Finding, checkID string) *models.Finding {
	for _, f := range findings {
		if f.CheckID == checkID {
			return f
		}
	}
	return nil
}
