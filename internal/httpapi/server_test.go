package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobolak1/ppc-checker/internal/detector"
	"github.com/tobolak1/ppc-checker/internal/digest"
	"github.com/tobolak1/ppc-checker/internal/engine"
	"github.com/tobolak1/ppc-checker/internal/lifecycle"
	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/orchestrator"
	"github.com/tobolak1/ppc-checker/internal/store/storetest"
)

type silentMessenger struct{}

func (silentMessenger) PostMessage(context.Context, string, string, string) error { return nil }

func newTestRouter(fs *storetest.FakeStore) http.Handler {
	apis := orchestrator.APIFactory{
		AdAPI:       func(*models.AdAccount) detector.AdPlatformAPI { return nil },
		MerchantAPI: func(*models.MerchantAccount) detector.MerchantAPI { return nil },
	}
	orch := orchestrator.New(fs, engine.NewEngine(), apis, nil, lifecycle.NewResolver(fs), nil)
	return SetupRouter(&Server{
		Orchestrator: orch,
		Digest:       digest.NewBuilder(fs, silentMessenger{}, "#ppc-alerts", true),
		Store:        fs,
	})
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(storetest.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRunSweep_EmptyStore(t *testing.T) {
	router := newTestRouter(storetest.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/checks/run", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var result orchestrator.SweepResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Zero(t, result.ProjectsChecked)
	assert.Zero(t, result.TotalFindings)
}

func TestRunProject_Unknown(t *testing.T) {
	router := newTestRouter(storetest.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/checks/run/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunProject_Known(t *testing.T) {
	fs := storetest.New()
	fs.Projects = append(fs.Projects, models.Project{ID: "p1", Name: "Shop CZ"})
	router := newTestRouter(fs)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/checks/run/p1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Shop CZ")
}

func TestActiveFindings(t *testing.T) {
	fs := storetest.New()
	fs.Findings = append(fs.Findings,
		models.NewFinding("ads-disapproved", models.SeverityCritical, "t", "m"))
	router := newTestRouter(fs)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/findings/active", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var findings []models.Finding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &findings))
	require.Len(t, findings, 1)
	assert.Equal(t, "ads-disapproved", findings[0].CheckID)
}

func TestRunDigest(t *testing.T) {
	router := newTestRouter(storetest.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/digest/run", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
