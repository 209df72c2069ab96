package detector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/platform"
)

func TestAdsDetector_NoCredentialsReportsOnce(t *testing.T) {
	det := NewAdsDetector()

	findings, err := det.Detect(context.Background(), bareAccount(), &fakeAdAPI{}, nil)

	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "ads-no-credentials", findings[0].CheckID)
	assert.Equal(t, models.SeverityInfo, findings[0].Severity)
}

func TestAdsDetector_DisapprovedAds(t *testing.T) {
	det := NewAdsDetector()
	api := &fakeAdAPI{
		ads: []platform.Ad{
			{ID: "1", Status: platform.AdStatusEnabled},
			{ID: "2", Status: platform.AdStatusDisapproved, AdGroupName: "Brand", PolicyStatus: "TRADEMARK"},
			{ID: "3", Status: platform.AdStatusDisapproved, AdGroupName: "Generic"},
		},
	}

	findings, err := det.Detect(context.Background(), testAccount(), api, nil)

	require.NoError(t, err)
	f := findByCheckID(findings, "ads-disapproved")
	require.NotNil(t, f)
	assert.Equal(t, models.SeverityCritical, f.Severity)
	assert.Contains(t, f.Title, "2 disapproved")
}

func TestAdsDetector_StuckInReview(t *testing.T) {
	det := NewAdsDetector()
	api := &fakeAdAPI{
		ads: []platform.Ad{
			{ID: "old", Status: platform.AdStatusUnderReview,
				LastStatusChange: time.Now().Add(-72 * time.Hour).Format(time.RFC3339)},
			{ID: "fresh", Status: platform.AdStatusUnderReview,
				LastStatusChange: time.Now().Add(-2 * time.Hour).Format(time.RFC3339)},
			{ID: "lim", Status: platform.AdStatusLimited},
		},
	}

	findings, err := det.Detect(context.Background(), testAccount(), api, nil)

	require.NoError(t, err)
	f := findByCheckID(findings, "ads-limited")
	require.NotNil(t, f)
	assert.Equal(t, models.SeverityHigh, f.Severity)
	assert.Contains(t, f.Title, "2 limited/stuck", "Fresh review should not count, old review and LIMITED should")
}

func TestAdsDetector_StuckReviewThresholdOverride(t *testing.T) {
	det := NewAdsDetector()
	api := &fakeAdAPI{
		ads: []platform.Ad{
			{ID: "a", Status: platform.AdStatusUnderReview,
				LastStatusChange: time.Now().Add(-5 * time.Hour).Format(time.RFC3339)},
		},
	}

	findings, err := det.Detect(context.Background(), testAccount(), api, Thresholds{"stuckReviewHours": 2.0})

	require.NoError(t, err)
	assert.NotNil(t, findByCheckID(findings, "ads-limited"), "Lowered threshold should catch a 5h review")
}

func TestAdsDetector_EmptyAdGroups(t *testing.T) {
	det := NewAdsDetector()
	api := &fakeAdAPI{
		adGroups: []platform.AdGroup{
			{ID: "1", Name: "Serving", Status: platform.AdStatusEnabled, ActiveAdCount: 3},
			{ID: "2", Name: "Empty", Status: platform.AdStatusEnabled, ActiveAdCount: 0},
			{ID: "3", Name: "Paused empty", Status: platform.AdStatusPaused, ActiveAdCount: 0},
		},
	}

	findings, err := det.Detect(context.Background(), testAccount(), api, nil)

	require.NoError(t, err)
	f := findByCheckID(findings, "ads-no-active")
	require.NotNil(t, f)
	assert.Contains(t, f.Title, "1 ad group(s)", "Paused groups do not count")
}

func TestAdsDetector_FullyPinnedRSA(t *testing.T) {
	det := NewAdsDetector()
	api := &fakeAdAPI{
		ads: []platform.Ad{
			{ID: "pinned", Type: "RSA", Status: platform.AdStatusEnabled,
				Headlines: []string{"a", "b", "c"}, PinnedPositions: []int{1, 2, 3}},
			{ID: "free", Type: "RSA", Status: platform.AdStatusEnabled,
				Headlines: []string{"a", "b", "c"}, PinnedPositions: []int{1}},
		},
	}

	findings, err := det.Detect(context.Background(), testAccount(), api, nil)

	require.NoError(t, err)
	f := findByCheckID(findings, "ads-rsa-pinning")
	require.NotNil(t, f)
	assert.Equal(t, models.SeverityMedium, f.Severity)
	assert.Contains(t, f.Title, "1 RSA(s)")
}

func TestAdsDetector_ExpiringPromotion(t *testing.T) {
	det := NewAdsDetector()
	api := &fakeAdAPI{
		ads: []platform.Ad{
			{ID: "soon", Status: platform.AdStatusEnabled,
				PromotionEndDate: time.Now().Add(48 * time.Hour).Format("2006-01-02")},
			{ID: "later", Status: platform.AdStatusEnabled,
				PromotionEndDate: time.Now().Add(30 * 24 * time.Hour).Format("2006-01-02")},
			{ID: "past", Status: platform.AdStatusEnabled,
				PromotionEndDate: time.Now().Add(-48 * time.Hour).Format("2006-01-02")},
		},
	}

	findings, err := det.Detect(context.Background(), testAccount(), api, nil)

	require.NoError(t, err)
	f := findByCheckID(findings, "ads-expiring-promo")
	require.NotNil(t, f)
	assert.Contains(t, f.Title, "1 promotion(s)", "Already-expired and far-future promos do not count")
}

func TestAdsDetector_APIErrorPropagates(t *testing.T) {
	det := NewAdsDetector()
	api := &fakeAdAPI{err: errors.New("upstream down")}

	findings, err := det.Detect(context.Background(), testAccount(), api, nil)

	assert.Error(t, err)
	assert.Nil(t, findings)
}

func TestAdsDetector_CleanAccountNoFindings(t *testing.T) {
	det := NewAdsDetector()
	api := &fakeAdAPI{
		ads: []platform.Ad{
			{ID: "1", Type: "RSA", Status: platform.AdStatusEnabled, AdStrength: "GOOD",
				Headlines: []string{"a", "b"}},
		},
		adGroups: []platform.AdGroup{
			{ID: "1", Status: platform.AdStatusEnabled, ActiveAdCount: 1},
		},
	}

	findings, err := det.Detect(context.Background(), testAccount(), api, nil)

	require.NoError(t, err)
	assert.Empty(t, findings)
}
