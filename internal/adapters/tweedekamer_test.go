package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldevries/kamervote/internal/monitoring"
	"github.com/ldevries/kamervote/internal/resilience"
	"github.com/ldevries/kamervote/internal/types"
)

// fastRetry keeps failing-request tests from sleeping through backoff
var fastRetry = resilience.RetryConfig{
	MaxAttempts:     1,
	InitialDelay:    time.Millisecond,
	MaxDelay:        time.Millisecond,
	BackoffFactor:   1,
	RetryableErrors: func(error) bool { return false },
}

func newTestAdapter(t *testing.T, handler http.Handler) (*TweedeKamerAdapter, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter := NewTweedeKamerAdapterWithBaseURL(server.URL, nil)
	adapter.retry = fastRetry

	return adapter, server
}

func odataRow(id, decision, party, soort string, ts time.Time) ODataVote {
	return ODataVote{
		ID:           id,
		DecisionID:   decision,
		ActorFractie: party,
		Soort:        soort,
		GewijzigdOp:  ts.Format(time.RFC3339),
	}
}

func TestNewTweedeKamerAdapter(t *testing.T) {
	adapter := NewTweedeKamerAdapter(nil)

	assert.Equal(t, DefaultBaseURL, adapter.baseURL)
	assert.Equal(t, defaultPageSize, adapter.pageSize)
	assert.NotNil(t, adapter.client)
	assert.NotNil(t, adapter.limiter)
}

func TestTweedeKamerAdapter_SetPageSize(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		expected int
	}{
		{name: "accepts a smaller page size", size: 50, expected: 50},
		{name: "rejects zero", size: 0, expected: defaultPageSize},
		{name: "rejects negative", size: -1, expected: defaultPageSize},
		{name: "caps at the API maximum", size: 1000, expected: defaultPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := NewTweedeKamerAdapter(nil)
			adapter.SetPageSize(tt.size)
			assert.Equal(t, tt.expected, adapter.pageSize)
		})
	}
}

func TestTweedeKamerAdapter_FetchVotes_SinglePage(t *testing.T) {
	baseTime := time.Date(2024, 9, 17, 14, 0, 0, 0, time.UTC)
	var gotQuery map[string][]string

	adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		assert.Equal(t, "/Stemming", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		json.NewEncoder(w).Encode(votePage{Value: []ODataVote{
			odataRow("v1", "d1", "VVD", "Voor", baseTime),
			odataRow("v2", "d1", "SP", "Tegen", baseTime),
		}})
	}))

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	records, err := adapter.FetchVotes(context.Background(), from, to)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, types.VoteRecord{
		PartyID:   "VVD",
		MotionID:  "d1",
		Direction: types.DirectionFor,
		Timestamp: baseTime,
	}, records[0])
	assert.Equal(t, types.DirectionAgainst, records[1].Direction)

	require.Contains(t, gotQuery, "$filter")
	filter := gotQuery["$filter"][0]
	assert.Contains(t, filter, "Verwijderd eq false")
	assert.Contains(t, filter, "GewijzigdOp ge 2024-01-01T00:00:00Z")
	assert.Contains(t, filter, "GewijzigdOp le 2024-12-31T00:00:00Z")
	assert.Equal(t, "250", gotQuery["$top"][0])
}

func TestTweedeKamerAdapter_FetchVotes_SkipPagination(t *testing.T) {
	baseTime := time.Date(2024, 9, 17, 14, 0, 0, 0, time.UTC)
	var skips []string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skips = append(skips, r.URL.Query().Get("$skip"))

		// First page is full, second page is short and ends the fetch
		if r.URL.Query().Get("$skip") == "" {
			json.NewEncoder(w).Encode(votePage{Value: []ODataVote{
				odataRow("v1", "d1", "VVD", "Voor", baseTime),
				odataRow("v2", "d1", "SP", "Tegen", baseTime),
			}})
			return
		}
		json.NewEncoder(w).Encode(votePage{Value: []ODataVote{
			odataRow("v3", "d2", "VVD", "Voor", baseTime),
		}})
	})

	adapter, _ := newTestAdapter(t, handler)
	adapter.SetPageSize(2)

	records, err := adapter.FetchVotes(context.Background(), baseTime.AddDate(0, -1, 0), baseTime)
	require.NoError(t, err)

	assert.Len(t, records, 3)
	assert.Equal(t, []string{"", "2"}, skips)
}

func TestTweedeKamerAdapter_FetchVotes_FollowsNextLink(t *testing.T) {
	baseTime := time.Date(2024, 9, 17, 14, 0, 0, 0, time.UTC)
	var paths []string

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/Stemming", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(votePage{
			Value: []ODataVote{
				odataRow("v1", "d1", "VVD", "Voor", baseTime),
				odataRow("v2", "d1", "SP", "Tegen", baseTime),
			},
			NextLink: server.URL + "/continuation",
		})
	})
	mux.HandleFunc("/continuation", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(votePage{Value: []ODataVote{
			odataRow("v3", "d2", "D66", "Voor", baseTime),
		}})
	})

	adapter, srv := newTestAdapter(t, mux)
	server = srv
	adapter.SetPageSize(2)

	records, err := adapter.FetchVotes(context.Background(), baseTime.AddDate(0, -1, 0), baseTime)
	require.NoError(t, err)

	assert.Len(t, records, 3)
	assert.Equal(t, []string{"/Stemming", "/continuation"}, paths)
}

func TestTweedeKamerAdapter_FetchVotes_ErrorKeepsPartialData(t *testing.T) {
	baseTime := time.Date(2024, 9, 17, 14, 0, 0, 0, time.UTC)
	requests := 0

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			json.NewEncoder(w).Encode(votePage{Value: []ODataVote{
				odataRow("v1", "d1", "VVD", "Voor", baseTime),
				odataRow("v2", "d1", "SP", "Tegen", baseTime),
			}})
			return
		}
		http.Error(w, "gone fishing", http.StatusNotFound)
	})

	adapter, _ := newTestAdapter(t, handler)
	adapter.SetPageSize(2)

	records, err := adapter.FetchVotes(context.Background(), baseTime.AddDate(0, -1, 0), baseTime)

	require.Error(t, err)
	// The first page's rows survive the second page's failure
	assert.Len(t, records, 2)
}

func TestTweedeKamerAdapter_FetchVotes_ImmediateError(t *testing.T) {
	adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	}))

	records, err := adapter.FetchVotes(context.Background(), time.Now().Add(-time.Hour), time.Now())

	require.Error(t, err)
	assert.Empty(t, records)
}

func TestTweedeKamerAdapter_FetchVotes_MalformedBody(t *testing.T) {
	adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))

	_, err := adapter.FetchVotes(context.Background(), time.Now().Add(-time.Hour), time.Now())
	assert.Error(t, err)
}

func TestVoteRecordFromOData(t *testing.T) {
	baseTime := time.Date(2024, 9, 17, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		row      ODataVote
		expected types.VoteRecord
	}{
		{
			name: "maps a regular row",
			row:  odataRow("v1", "d1", "PvdD", "Voor", baseTime),
			expected: types.VoteRecord{
				PartyID:   "PvdD",
				MotionID:  "d1",
				Direction: types.DirectionFor,
				Timestamp: baseTime,
			},
		},
		{
			name: "keeps unparseable timestamps as zero time",
			row:  ODataVote{ID: "v2", DecisionID: "d2", ActorFractie: "SGP", Soort: "Tegen", GewijzigdOp: "yesterday"},
			expected: types.VoteRecord{
				PartyID:   "SGP",
				MotionID:  "d2",
				Direction: types.DirectionAgainst,
			},
		},
		{
			name: "passes abstentions through for the preprocessor to drop",
			row:  odataRow("v3", "d3", "DENK", "Onthouding", baseTime),
			expected: types.VoteRecord{
				PartyID:   "DENK",
				MotionID:  "d3",
				Direction: types.DirectionAbstain,
				Timestamp: baseTime,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, voteRecordFromOData(tt.row))
		})
	}
}

func TestTweedeKamerAdapter_FetchCoSigners(t *testing.T) {
	var gotQuery map[string][]string

	adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		assert.Equal(t, "/Document", r.URL.Path)

		json.NewEncoder(w).Encode(documentPage{Value: []ODataDocument{
			{
				ID:    "doc-1",
				Datum: "2023-03-01",
				Soort: "Motie",
				Titel: "Motie over stikstofbeleid",
				Actors: []ODataDocumentActor{
					{ActorNaam: "Lid A", ActorFractie: "VVD", Relatie: roleFirstSigner},
					{ActorNaam: "Lid B", ActorFractie: "SP", Relatie: roleCoSigner},
					{ActorNaam: "Lid C", ActorFractie: "", Relatie: roleCoSigner},
				},
			},
			{
				ID:    "doc-2",
				Datum: "2023-04-12",
				Soort: "Motie",
				Titel: "Motie over woningbouw",
				Actors: []ODataDocumentActor{
					{ActorNaam: "Lid D", ActorFractie: "D66", Relatie: roleFirstSigner},
				},
			},
		}})
	}))

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)

	records, err := adapter.FetchCoSigners(context.Background(), from, to)
	require.NoError(t, err)

	// The signer without a fraction is dropped
	require.Len(t, records, 3)
	assert.Equal(t, types.SignatureRecord{
		PartyID:  "VVD",
		Actor:    "Lid A",
		MotionID: "doc-1",
		Title:    "Motie over stikstofbeleid",
		Role:     types.SignatureRoleFirstSigner,
		SignedAt: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
	}, records[0])
	assert.Equal(t, types.SignatureRoleCoSigner, records[1].Role)
	assert.Equal(t, "D66", records[2].PartyID)

	require.Contains(t, gotQuery, "$filter")
	filter := gotQuery["$filter"][0]
	assert.Contains(t, filter, "Verwijderd eq false")
	assert.Contains(t, filter, "Soort eq 'Motie'")
	assert.Contains(t, filter, "Datum ge 2023-01-01")
	assert.Contains(t, filter, "Datum le 2023-06-30")

	require.Contains(t, gotQuery, "$expand")
	expand := gotQuery["$expand"][0]
	assert.Contains(t, expand, "DocumentActor")
	assert.Contains(t, expand, roleFirstSigner)
	assert.Contains(t, expand, roleCoSigner)

	require.Contains(t, gotQuery, "$select")
}

func TestTweedeKamerAdapter_FetchCoSigners_ErrorKeepsPartialData(t *testing.T) {
	pages := 0
	adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		if pages > 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		docs := make([]ODataDocument, 2)
		for i := range docs {
			docs[i] = ODataDocument{
				ID:    fmt.Sprintf("doc-%d", i),
				Datum: "2023-03-01",
				Soort: "Motie",
				Actors: []ODataDocumentActor{
					{ActorNaam: "Lid", ActorFractie: "CDA", Relatie: roleFirstSigner},
				},
			}
		}
		json.NewEncoder(w).Encode(documentPage{Value: docs})
	}))
	adapter.SetPageSize(2)

	records, err := adapter.FetchCoSigners(context.Background(),
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC))

	require.Error(t, err)
	assert.Len(t, records, 2)
}

func TestTweedeKamerAdapter_FetchRecordsMetrics(t *testing.T) {
	baseTime := time.Date(2024, 9, 17, 14, 0, 0, 0, time.UTC)

	adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(votePage{Value: []ODataVote{
			odataRow("v1", "d1", "VVD", "Voor", baseTime),
			odataRow("v2", "d1", "SP", "Tegen", baseTime),
		}})
	}))

	metrics := monitoring.NewMetrics()
	adapter.SetMetrics(metrics)

	_, err := adapter.FetchVotes(context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	summary := metrics.GetSummary()
	assert.Equal(t, int64(1), summary["fetch_page_count"])
	assert.Equal(t, int64(2), summary["fetch_row_count"])
}
