// Package client provides the Supabase client used by the community
// platform domain layer: PostgREST queries, GoTrue auth, storage, and
// realtime change notifications.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
	"github.com/ViveCali/community_layer/internal/httputil"
)

const (
	maxResponseBytes  = 8 << 20  // 8 MiB
	maxErrorBodyBytes = 32 << 10 // 32 KiB
)

// Client is a Supabase REST API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	authOnce sync.Once
	auth     *AuthClient
}

// Config holds client configuration.
type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
	// Resilient wraps the transport with retry and circuit breaking.
	// Ignored when HTTPClient is set.
	Resilient bool
}

// New creates a new Supabase client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
		if cfg.Resilient {
			httpClient.Transport = NewResilientTransport(nil,
				DefaultRetryConfig(), DefaultCircuitBreakerConfig())
		}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// BaseURL returns the project URL the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// From starts a query builder for a table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{
		client: c,
		table:  table,
	}
}

// QueryBuilder builds PostgREST queries against a single table.
type QueryBuilder struct {
	client     *Client
	table      string
	columns    string
	filters    []filter
	orders     []string
	limit      int
	single     bool
	onConflict string
	// accessToken, when set, is sent as the bearer so row-level
	// security applies to the calling identity instead of the API key.
	accessToken string
}

type filter struct {
	column string
	value  string
}

// Select specifies columns to select.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

// Eq adds an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, filter{column, fmt.Sprintf("eq.%v", value)})
	return q
}

// Gte adds a greater-than-or-equal filter.
func (q *QueryBuilder) Gte(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, filter{column, fmt.Sprintf("gte.%v", value)})
	return q
}

// Lte adds a less-than-or-equal filter.
func (q *QueryBuilder) Lte(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, filter{column, fmt.Sprintf("lte.%v", value)})
	return q
}

// Is adds an IS filter (null, true, false).
func (q *QueryBuilder) Is(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, filter{column, fmt.Sprintf("is.%v", value)})
	return q
}

// In adds an IN filter.
func (q *QueryBuilder) In(column string, values []string) *QueryBuilder {
	q.filters = append(q.filters, filter{column, fmt.Sprintf("in.(%s)", strings.Join(values, ","))})
	return q
}

// Order adds an ORDER BY clause.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, fmt.Sprintf("%s.%s", column, dir))
	return q
}

// Limit sets the LIMIT.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Single expects exactly one row in the response.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

// OnConflict sets the conflict target columns for upserts.
func (q *QueryBuilder) OnConflict(columns string) *QueryBuilder {
	q.onConflict = columns
	return q
}

// AsUser sends the given access token as the bearer so the remote
// service enforces row-level authorization for that identity.
func (q *QueryBuilder) AsUser(accessToken string) *QueryBuilder {
	q.accessToken = accessToken
	return q
}

func (q *QueryBuilder) params() url.Values {
	params := url.Values{}
	if q.columns != "" {
		params.Set("select", q.columns)
	}
	for _, f := range q.filters {
		params.Add(f.column, f.value)
	}
	if len(q.orders) > 0 {
		params.Set("order", strings.Join(q.orders, ","))
	}
	if q.limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.limit))
	}
	return params
}

func (q *QueryBuilder) requestURL(params url.Values) string {
	reqURL := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, url.PathEscape(q.table))
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return reqURL
}

// Execute executes a SELECT query.
func (q *QueryBuilder) Execute(ctx context.Context) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.requestURL(q.params()), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q.client.setHeaders(req, q.accessToken)
	if q.single {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}

	return q.client.do(req, "select "+q.table)
}

// ExecuteInsert executes an INSERT returning the inserted row(s).
func (q *QueryBuilder) ExecuteInsert(ctx context.Context, data any) (*Response, error) {
	return q.write(ctx, http.MethodPost, data, "return=representation", "insert "+q.table)
}

// ExecuteUpsert executes an upsert keyed on the OnConflict columns,
// returning the resulting row(s).
func (q *QueryBuilder) ExecuteUpsert(ctx context.Context, data any) (*Response, error) {
	return q.write(ctx, http.MethodPost, data,
		"resolution=merge-duplicates,return=representation", "upsert "+q.table)
}

// ExecuteUpdate executes a PATCH restricted by the builder filters,
// returning the updated row(s).
func (q *QueryBuilder) ExecuteUpdate(ctx context.Context, data any) (*Response, error) {
	return q.write(ctx, http.MethodPatch, data, "return=representation", "update "+q.table)
}

func (q *QueryBuilder) write(ctx context.Context, method string, data any, prefer, op string) (*Response, error) {
	params := q.params()
	if q.onConflict != "" {
		params.Set("on_conflict", q.onConflict)
	}

	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.requestURL(params), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q.client.setHeaders(req, q.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", prefer)

	return q.client.do(req, op)
}

// Response is a PostgREST response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	op         string
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Error returns a typed error when the response indicates failure.
func (r *Response) Error() error {
	if r.StatusCode < 400 {
		return nil
	}
	return apperrors.FromSupabase(r.op, r.StatusCode, r.Body)
}

func (c *Client) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("apikey", c.apiKey)
	bearer := c.apiKey
	if accessToken != "" {
		bearer = accessToken
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

func (c *Client) do(req *http.Request, op string) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Transport(op, err)
	}
	defer resp.Body.Close()

	limit := int64(maxResponseBytes)
	if resp.StatusCode >= 400 {
		limit = maxErrorBodyBytes
	}
	body, _, err := httputil.ReadAllWithLimit(resp.Body, limit)
	if err != nil {
		return nil, apperrors.Transport(op, fmt.Errorf("read response: %w", err))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
		op:         op,
	}, nil
}
