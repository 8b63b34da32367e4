package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldevries/kamervote/internal/analysis"
	"github.com/ldevries/kamervote/internal/database"
	"github.com/ldevries/kamervote/internal/errors"
	"github.com/ldevries/kamervote/internal/monitoring"
	"github.com/ldevries/kamervote/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeFetcher serves a fixed vote set for every requested window
type fakeFetcher struct {
	records func(from time.Time) []types.VoteRecord
}

func (f *fakeFetcher) FetchVotes(_ context.Context, from, _ time.Time) ([]types.VoteRecord, error) {
	return f.records(from), nil
}

// fakeSigner serves a fixed co-signer set for every requested window
type fakeSigner struct {
	records []types.SignatureRecord
	err     error
}

func (f *fakeSigner) FetchCoSigners(_ context.Context, _, _ time.Time) ([]types.SignatureRecord, error) {
	return f.records, f.err
}

func windowSignatures(from time.Time) []types.SignatureRecord {
	return []types.SignatureRecord{
		{PartyID: "VVD", Actor: "Lid A", MotionID: "doc-1", Title: "Motie A", Role: types.SignatureRoleFirstSigner, SignedAt: from.Add(24 * time.Hour)},
		{PartyID: "SP", Actor: "Lid B", MotionID: "doc-1", Title: "Motie A", Role: types.SignatureRoleCoSigner, SignedAt: from.Add(24 * time.Hour)},
		{PartyID: "SP", Actor: "Lid B", MotionID: "doc-2", Title: "Motie B", Role: types.SignatureRoleFirstSigner, SignedAt: from.Add(48 * time.Hour)},
	}
}

// windowVotes generates enough co-voting to clear the shared-vote threshold
// with some variance in the pair weights
func windowVotes(from time.Time) []types.VoteRecord {
	motions := []struct {
		vvd types.Direction
		sp  types.Direction
		d66 types.Direction
	}{
		{types.DirectionFor, types.DirectionFor, types.DirectionFor},
		{types.DirectionFor, types.DirectionAgainst, types.DirectionFor},
		{types.DirectionAgainst, types.DirectionAgainst, types.DirectionFor},
		{types.DirectionFor, types.DirectionFor, types.DirectionAgainst},
		{types.DirectionAgainst, types.DirectionFor, types.DirectionAgainst},
		{types.DirectionFor, types.DirectionFor, types.DirectionFor},
	}

	var records []types.VoteRecord
	for i, m := range motions {
		ts := from.Add(time.Duration(i+1) * time.Hour)
		motionID := from.Format("2006-01-02") + "-m" + string(rune('a'+i))
		records = append(records,
			types.VoteRecord{PartyID: "VVD", MotionID: motionID, Direction: m.vvd, Timestamp: ts},
			types.VoteRecord{PartyID: "SP", MotionID: motionID, Direction: m.sp, Timestamp: ts},
			types.VoteRecord{PartyID: "D66", MotionID: motionID, Direction: m.d66, Timestamp: ts},
		)
	}
	return records
}

func newTestServer(t *testing.T) (*server, *gin.Engine) {
	t.Helper()

	db, err := database.NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	config := &analysis.StudyConfig{
		MinSharedVotes: 5,
		Normalize:      true,
		Periods: []analysis.PeriodConfig{
			{Label: "pre-election", Start: "2023-01-01", End: "2023-06-30"},
			{Label: "post-formation", Start: "2024-01-01", End: "2024-06-30"},
		},
		Ideology: analysis.IdeologyConfig{
			Left:   []string{"SP"},
			Center: []string{"D66"},
			Right:  []string{"VVD"},
		},
	}

	logger := monitoring.NewLogger()
	repo := database.NewRepository(db)
	voteService := database.NewVoteService(repo, &fakeFetcher{records: windowVotes}, logger)

	srv := &server{
		analyzer:    analysis.NewAnalyzer(config, logger),
		voteService: voteService,
		signers: &fakeSigner{records: windowSignatures(
			time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		)},
		config:  config,
		metrics: monitoring.NewMetrics(),
		logger:  logger,
	}

	r := gin.New()
	r.Use(errors.ErrorHandler())
	srv.registerRoutes(r)

	return srv, r
}

func runAnalyze(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil)
	} else {
		req = httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	_, router := newTestServer(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleMetrics(t *testing.T) {
	_, router := newTestServer(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandlePeriods(t *testing.T) {
	_, router := newTestServer(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/periods", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Periods []types.Period `json:"periods"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Periods, 2)
	assert.Equal(t, "pre-election", body.Periods[0].Label)
	assert.Equal(t, "post-formation", body.Periods[1].Label)
}

func TestHandleAnalyze(t *testing.T) {
	_, router := newTestServer(t)

	w := runAnalyze(t, router, `{"normalize": false}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result analysis.StudyResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.Normalized)
	require.Len(t, result.Periods, 2)

	for _, period := range result.Periods {
		assert.Equal(t, 3, period.Stats.NodeCount)
		assert.Greater(t, period.Stats.EdgeCount, 0)
		assert.Equal(t, 18, period.Votes)
	}

	assert.Equal(t, []string{"pre-election", "post-formation"}, result.Comparison.Labels)
}

func TestHandleAnalyze_DefaultsToConfiguredNormalize(t *testing.T) {
	_, router := newTestServer(t)

	// Empty body falls back to the study file's normalize flag (true here)
	w := runAnalyze(t, router, "")
	require.Equal(t, http.StatusOK, w.Code)

	var result analysis.StudyResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Normalized)
}

func TestHandleAnalyze_InvalidBody(t *testing.T) {
	_, router := newTestServer(t)

	w := runAnalyze(t, router, `{"normalize": "yes please"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleNetwork(t *testing.T) {
	_, router := newTestServer(t)
	require.Equal(t, http.StatusOK, runAnalyze(t, router, `{"normalize": false}`).Code)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/networks/pre-election", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var period analysis.PeriodResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &period))
	assert.Equal(t, "pre-election", period.Period.Label)
	assert.Equal(t, 3, period.Network.NodeCount())
}

func TestHandleNetwork_UnknownPeriod(t *testing.T) {
	_, router := newTestServer(t)
	require.Equal(t, http.StatusOK, runAnalyze(t, router, `{"normalize": false}`).Code)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/networks/nonexistent", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleNetwork_NoRunYet(t *testing.T) {
	_, router := newTestServer(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/networks/pre-election", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEdgeListExport(t *testing.T) {
	_, router := newTestServer(t)
	require.Equal(t, http.StatusOK, runAnalyze(t, router, `{"normalize": false}`).Code)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/networks/pre-election/edges.csv", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "edges_pre-election.csv")

	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"party_a", "party_b", "weight", "agreement_rate", "shared_votes"}, rows[0])
	assert.Greater(t, len(rows), 1)
}

func TestHandleNodeListExport(t *testing.T) {
	_, router := newTestServer(t)
	require.Equal(t, http.StatusOK, runAnalyze(t, router, `{"normalize": false}`).Code)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/networks/post-formation/nodes.csv", nil))

	require.Equal(t, http.StatusOK, w.Code)

	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"party", "ideology", "degree", "strength", "betweenness"}, rows[0])
	assert.Equal(t, "D66", rows[1][0])
}

func TestHandleComparison(t *testing.T) {
	_, router := newTestServer(t)

	// Before any run the comparison is unavailable
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/comparison", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusOK, runAnalyze(t, router, `{"normalize": false}`).Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/comparison", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var comparison analysis.Comparison
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comparison))
	assert.Equal(t, []string{"pre-election", "post-formation"}, comparison.Labels)
	assert.Len(t, comparison.Rows, 9)
}

func TestHandleComparisonExport(t *testing.T) {
	_, router := newTestServer(t)
	require.Equal(t, http.StatusOK, runAnalyze(t, router, `{"normalize": false}`).Code)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/comparison.csv", nil))

	require.Equal(t, http.StatusOK, w.Code)

	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 10)
	assert.Equal(t, "metric", rows[0][0])
	assert.Equal(t, "node_count", rows[1][0])
}

func TestHandleAnalyze_SecondRunReplacesResult(t *testing.T) {
	srv, router := newTestServer(t)

	require.Equal(t, http.StatusOK, runAnalyze(t, router, `{"normalize": false}`).Code)
	srv.mu.RLock()
	firstID := srv.lastResult.RunID
	srv.mu.RUnlock()

	require.Equal(t, http.StatusOK, runAnalyze(t, router, `{"normalize": false}`).Code)
	srv.mu.RLock()
	secondID := srv.lastResult.RunID
	srv.mu.RUnlock()

	assert.NotEqual(t, firstID, secondID)
}

func TestHandleCoAuthoring(t *testing.T) {
	_, router := newTestServer(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/coauthoring/pre-election", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Period         types.Period            `json:"period"`
		MotionCount    int                     `json:"motion_count"`
		PartyCount     int                     `json:"party_count"`
		SignatureCount int                     `json:"signature_count"`
		Signatures     []types.SignatureRecord `json:"signatures"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "pre-election", body.Period.Label)
	assert.Equal(t, 2, body.MotionCount)
	assert.Equal(t, 2, body.PartyCount)
	assert.Equal(t, 3, body.SignatureCount)
	require.Len(t, body.Signatures, 3)
	assert.Equal(t, types.SignatureRoleFirstSigner, body.Signatures[0].Role)
}

func TestHandleCoAuthoring_UnknownPeriod(t *testing.T) {
	_, router := newTestServer(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/coauthoring/nonexistent", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCoAuthoring_FetchError(t *testing.T) {
	srv, router := newTestServer(t)
	srv.signers = &fakeSigner{err: errors.NewExternalAPIError("Tweede Kamer", context.DeadlineExceeded)}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/coauthoring/pre-election", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandleSignatureExport(t *testing.T) {
	_, router := newTestServer(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/coauthoring/pre-election/signatures.csv", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "signatures_pre-election.csv")

	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"party", "actor", "motion_id", "title", "role", "signed_at"}, rows[0])
	assert.Equal(t, []string{"VVD", "Lid A", "doc-1", "Motie A", "first", "2023-01-02"}, rows[1])
}
