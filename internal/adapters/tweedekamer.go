package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/ldevries/kamervote/internal/errors"
	"github.com/ldevries/kamervote/internal/monitoring"
	"github.com/ldevries/kamervote/internal/resilience"
	"github.com/ldevries/kamervote/internal/types"
)

const (
	// DefaultBaseURL is the Tweede Kamer open data portal OData endpoint
	DefaultBaseURL = "https://gegevensmagazijn.tweedekamer.nl/OData/v4/2.0"

	votesEndpoint     = "Stemming"
	documentsEndpoint = "Document"

	// defaultPageSize is the API maximum page size
	defaultPageSize = 250

	// Signer relations on a motion document, as the OData API spells them
	roleFirstSigner = "Eerste ondertekenaar"
	roleCoSigner    = "Mede ondertekenaar"
)

// ODataVote represents a raw vote row from the Stemming endpoint
type ODataVote struct {
	ID           string `json:"Id"`
	DecisionID   string `json:"Besluit_Id"`
	ActorFractie string `json:"ActorFractie"`
	Soort        string `json:"Soort"`
	GewijzigdOp  string `json:"GewijzigdOp"`
}

// votePage is one page of the paginated OData response
type votePage struct {
	Value    []ODataVote `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// ODataDocumentActor is one signer relationship expanded onto a document
type ODataDocumentActor struct {
	ActorNaam    string `json:"ActorNaam"`
	ActorFractie string `json:"ActorFractie"`
	Relatie      string `json:"Relatie"`
}

// ODataDocument represents a motion document from the Document endpoint
type ODataDocument struct {
	ID        string               `json:"Id"`
	Datum     string               `json:"Datum"`
	Soort     string               `json:"Soort"`
	Titel     string               `json:"Titel"`
	Onderwerp string               `json:"Onderwerp"`
	Actors    []ODataDocumentActor `json:"DocumentActor"`
}

// documentPage is one page of the paginated Document response
type documentPage struct {
	Value    []ODataDocument `json:"value"`
	NextLink string          `json:"@odata.nextLink"`
}

// TweedeKamerAdapter fetches voting records from the Tweede Kamer OData API
type TweedeKamerAdapter struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	pageSize int
	retry    resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
	logger   *monitoring.Logger
	metrics  *monitoring.Metrics
}

// NewTweedeKamerAdapter creates an adapter against the public OData portal
func NewTweedeKamerAdapter(logger *monitoring.Logger) *TweedeKamerAdapter {
	return NewTweedeKamerAdapterWithBaseURL(DefaultBaseURL, logger)
}

// NewTweedeKamerAdapterWithBaseURL creates an adapter with a custom base URL,
// used by tests and mirror deployments
func NewTweedeKamerAdapterWithBaseURL(baseURL string, logger *monitoring.Logger) *TweedeKamerAdapter {
	if logger == nil {
		logger = monitoring.NewLogger()
	}

	return &TweedeKamerAdapter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		// 5 req/s keeps well under the portal's tolerance while still
		// draining a year of votes in a few minutes
		limiter:  rate.NewLimiter(rate.Limit(5), 1),
		pageSize: defaultPageSize,
		retry:    resilience.ODataRetryConfig(),
		breaker:  resilience.NewCircuitBreaker(resilience.ODataBreakerConfig()),
		logger:   logger,
		metrics:  monitoring.NewMetrics(),
	}
}

// SetMetrics points the adapter at the shared application metrics so fetch
// pages show up on /metrics
func (a *TweedeKamerAdapter) SetMetrics(metrics *monitoring.Metrics) {
	if metrics != nil {
		a.metrics = metrics
	}
}

// SetPageSize overrides the page size, capped at the API maximum
func (a *TweedeKamerAdapter) SetPageSize(size int) {
	if size > 0 && size <= defaultPageSize {
		a.pageSize = size
	}
}

// FetchVotes fetches all party votes modified inside [from, to], following
// @odata.nextLink when the API provides one and falling back to $skip
// pagination otherwise. A failed page stops the fetch; rows already fetched
// are returned alongside the error so partial data remains usable.
func (a *TweedeKamerAdapter) FetchVotes(ctx context.Context, from, to time.Time) ([]types.VoteRecord, error) {
	filter := fmt.Sprintf(
		"Verwijderd eq false and GewijzigdOp ge %s and GewijzigdOp le %s",
		from.UTC().Format(time.RFC3339),
		to.UTC().Format(time.RFC3339),
	)

	params := url.Values{}
	params.Set("$filter", filter)

	pageURL := a.pageRequestURL(votesEndpoint, params, 0)

	var records []types.VoteRecord
	skip := 0
	page := 1

	for {
		if err := a.limiter.Wait(ctx); err != nil {
			return records, err
		}

		start := time.Now()
		var pageData votePage
		if err := a.fetchPage(ctx, pageURL, &pageData); err != nil {
			a.logger.ExternalAPILogger("Tweede Kamer", http.MethodGet, votesEndpoint, 0, time.Since(start), false)
			return records, errors.NewExternalAPIError("Tweede Kamer", err)
		}

		for _, row := range pageData.Value {
			records = append(records, voteRecordFromOData(row))
		}

		a.metrics.RecordFetchPage(len(pageData.Value))
		a.logger.FetchLogger(votesEndpoint, page, len(pageData.Value), len(records), time.Since(start))

		if len(pageData.Value) < a.pageSize {
			return records, nil
		}

		// Prefer the server-issued continuation link over manual $skip
		if pageData.NextLink != "" {
			pageURL = pageData.NextLink
		} else {
			skip += a.pageSize
			pageURL = a.pageRequestURL(votesEndpoint, params, skip)
		}
		page++
	}
}

// FetchCoSigners fetches the signer relationships of every motion document
// dated inside [from, to]: the first signer plus all co-signers, the raw
// material for co-authoring analyses. Pagination and failure behavior match
// FetchVotes.
func (a *TweedeKamerAdapter) FetchCoSigners(ctx context.Context, from, to time.Time) ([]types.SignatureRecord, error) {
	// The Document endpoint filters on the document date, not the
	// modification timestamp, and takes date-only literals
	filter := fmt.Sprintf(
		"Verwijderd eq false and Soort eq 'Motie' and Datum ge %s and Datum le %s",
		from.UTC().Format("2006-01-02"),
		to.UTC().Format("2006-01-02"),
	)

	params := url.Values{}
	params.Set("$filter", filter)
	params.Set("$expand", fmt.Sprintf(
		"DocumentActor($filter=Relatie eq '%s' or Relatie eq '%s')",
		roleFirstSigner, roleCoSigner,
	))
	params.Set("$select", "Id,Datum,Soort,Titel,Onderwerp,DocumentActor")

	pageURL := a.pageRequestURL(documentsEndpoint, params, 0)

	var records []types.SignatureRecord
	skip := 0
	page := 1

	for {
		if err := a.limiter.Wait(ctx); err != nil {
			return records, err
		}

		start := time.Now()
		var pageData documentPage
		if err := a.fetchPage(ctx, pageURL, &pageData); err != nil {
			a.logger.ExternalAPILogger("Tweede Kamer", http.MethodGet, documentsEndpoint, 0, time.Since(start), false)
			return records, errors.NewExternalAPIError("Tweede Kamer", err)
		}

		for _, doc := range pageData.Value {
			records = append(records, signatureRecordsFromOData(doc)...)
		}

		a.metrics.RecordFetchPage(len(pageData.Value))
		a.logger.FetchLogger(documentsEndpoint, page, len(pageData.Value), len(records), time.Since(start))

		if len(pageData.Value) < a.pageSize {
			return records, nil
		}

		if pageData.NextLink != "" {
			pageURL = pageData.NextLink
		} else {
			skip += a.pageSize
			pageURL = a.pageRequestURL(documentsEndpoint, params, skip)
		}
		page++
	}
}

// fetchPage requests a single page with retry and decodes it into out. The
// circuit breaker wraps the whole page request so a dead upstream fails the
// remaining pages fast instead of exhausting retries on each one.
func (a *TweedeKamerAdapter) fetchPage(ctx context.Context, pageURL string, out any) error {
	return a.breaker.Call(func() error {
		return a.fetchPageOnce(ctx, pageURL, out)
	})
}

func (a *TweedeKamerAdapter) fetchPageOnce(ctx context.Context, pageURL string, out any) error {
	resp, err := resilience.RetryHTTP(ctx, a.retry, func() (*http.Response, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if reqErr != nil {
			return nil, reqErr
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "kamervote/1.0")

		return a.client.Do(req)
	})
	if err != nil {
		return fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("odata API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode page: %w", err)
	}

	return nil
}

// pageRequestURL builds the paginated request URL for an OData endpoint
func (a *TweedeKamerAdapter) pageRequestURL(endpoint string, params url.Values, skip int) string {
	query := url.Values{}
	for key, values := range params {
		query[key] = values
	}
	query.Set("$top", strconv.Itoa(a.pageSize))
	if skip > 0 {
		query.Set("$skip", strconv.Itoa(skip))
	}

	return fmt.Sprintf("%s/%s?%s", a.baseURL, endpoint, query.Encode())
}

// voteRecordFromOData maps a raw OData row onto a VoteRecord. Timestamps that
// do not parse are kept with a zero time; the preprocessor decides what to
// drop, not the transport layer.
func voteRecordFromOData(row ODataVote) types.VoteRecord {
	ts, err := time.Parse(time.RFC3339, row.GewijzigdOp)
	if err != nil {
		ts = time.Time{}
	}

	return types.VoteRecord{
		PartyID:   row.ActorFractie,
		MotionID:  row.DecisionID,
		Direction: types.Direction(row.Soort),
		Timestamp: ts,
	}
}

// signatureRecordsFromOData flattens a document's expanded signer list into
// one record per signer. Independent members carry no fraction; those rows
// are dropped because the co-authoring analysis is at the party level.
func signatureRecordsFromOData(doc ODataDocument) []types.SignatureRecord {
	signedAt, err := time.Parse("2006-01-02", doc.Datum)
	if err != nil {
		if signedAt, err = time.Parse(time.RFC3339, doc.Datum); err != nil {
			signedAt = time.Time{}
		}
	}

	var records []types.SignatureRecord
	for _, actor := range doc.Actors {
		if actor.ActorFractie == "" {
			continue
		}

		role := types.SignatureRoleCoSigner
		if actor.Relatie == roleFirstSigner {
			role = types.SignatureRoleFirstSigner
		}

		records = append(records, types.SignatureRecord{
			PartyID:  actor.ActorFractie,
			Actor:    actor.ActorNaam,
			MotionID: doc.ID,
			Title:    doc.Titel,
			Role:     role,
			SignedAt: signedAt,
		})
	}

	return records
}
