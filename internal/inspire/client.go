// Package inspire provides a rate-limited client for the INSPIRE-HEP
// literature API.
package inspire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matsen/papertools/internal/export"
	"github.com/matsen/papertools/internal/reference"
)

const (
	// BaseURL is the INSPIRE-HEP REST API base URL.
	BaseURL = "https://inspirehep.net/api"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultResultWindow is the deepest hit a paginated search can reach.
	// INSPIRE rejects pages beyond it.
	DefaultResultWindow = 10000

	// Default page sizes for the various query kinds.
	DefaultManyPageSize   = 50
	DefaultTexKeyPageSize = 50
	DefaultAuthorPageSize = 50
	DefaultCitersPageSize = 200
	DefaultBibTeXPageSize = 100
	DefaultSearchPageSize = 25
)

const (
	literaturePath = "/literature"
	mimeJSON       = "application/json"
	mimeBibTeX     = "application/x-bibtex"
	sortMostCited  = "mostcited"
	sortMostRecent = "mostrecent"
	formatBibTeX   = "bibtex"

	fieldsTexKeys       = "texkeys"
	fieldsAuthors       = "authors"
	fieldsControlNumber = "control_number"

	idClauseTemplate     = "(control_number:%s)"
	texKeyClauseTemplate = "(texkeys:%s)"
	citersClauseTemplate = "(refersto:recid:%s)"
	authorQueryTemplate  = "authors.full_name:%s"
	doiQueryTemplate     = "doi:%q"
	arxivQueryTemplate   = "arxiv:%s"
	clauseSeparator      = " or "

	maxErrorBodyBytes = 512
)

// Client is a rate-limited HTTP client for the INSPIRE literature API.
type Client struct {
	httpClient   *http.Client
	limiter      *RateLimiter
	logger       *slog.Logger
	baseURL      string
	resultWindow int

	transport *Transport
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimiter sets the limiter the client waits on before each request.
func WithRateLimiter(l *RateLimiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithResultWindow sets the deepest hit paginated queries may request.
// Zero disables the check.
func WithResultWindow(n int) ClientOption {
	return func(c *Client) {
		c.resultWindow = n
	}
}

// NewClient creates a new INSPIRE client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		limiter:      NewRateLimiter(DefaultMinInterval, DefaultPollInterval),
		logger:       slog.Default(),
		baseURL:      BaseURL,
		resultWindow: DefaultResultWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.transport = NewTransport(c.httpClient, c.limiter, c.logger)
	return c
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Request.URL.Path)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    text,
			URL:        resp.Request.URL.String(),
		}
	}
	return nil
}

// get issues a GET against path with params and returns the full body.
func (c *Client) get(ctx context.Context, path string, params url.Values, accept string) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", accept)

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}
	return body, nil
}

// search runs one page of a literature query.
func (c *Client) search(ctx context.Context, params url.Values) (*SearchResponse, error) {
	body, err := c.get(ctx, literaturePath, params, mimeJSON)
	if err != nil {
		return nil, err
	}

	var env searchEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Hits == nil {
		return nil, fmt.Errorf("%w: missing hits", ErrMalformedResponse)
	}
	return env.Hits, nil
}

// drain pages through a query until the reported total has been collected.
//
// Pages are requested in order starting at 1 and their hits concatenated.
// If the server stops returning hits before the total is reached, or the next
// page lies beyond the result window, drain stops with a *DivergenceError and
// returns the hits gathered so far alongside it.
func (c *Client) drain(ctx context.Context, params url.Values, pageSize int) ([]reference.Record, error) {
	q := params.Get("q")
	params.Set("size", strconv.Itoa(pageSize))

	var all []reference.Record
	total := -1
	for page := 1; total < 0 || len(all) < total; page++ {
		if page > 1 && c.resultWindow > 0 && page*pageSize > c.resultWindow {
			return all, &DivergenceError{Query: q, Page: page, Found: len(all), Total: total}
		}

		params.Set("page", strconv.Itoa(page))
		resp, err := c.search(ctx, params)
		if err != nil {
			return all, err
		}
		total = resp.Total
		if len(resp.Hits) == 0 && len(all) < total {
			return all, &DivergenceError{Query: q, Page: page, Found: len(all), Total: total}
		}
		all = append(all, resp.Hits...)

		c.logger.Debug("page drained", "q", q, "page", page, "found", len(all), "total", total)
	}
	return all, nil
}

// chunk splits ids into consecutive slices of at most size elements.
func chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

// disjunction joins one clause per value with "or".
func disjunction(template string, values []string) string {
	clauses := make([]string, len(values))
	for i, v := range values {
		clauses[i] = fmt.Sprintf(template, v)
	}
	return strings.Join(clauses, clauseSeparator)
}

// GetOne fetches a single literature record by id.
func (c *Client) GetOne(ctx context.Context, id string) (*reference.Record, error) {
	body, err := c.get(ctx, literaturePath+"/"+url.PathEscape(id), nil, mimeJSON)
	if err != nil {
		return nil, err
	}

	var rec reference.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return &rec, nil
}

// GetMany fetches the records for ids, pageSize ids per request.
//
// Each chunk is a single unpaginated query; a chunk is assumed to fit in one
// page. Ids the server does not return are absent from the result.
func (c *Client) GetMany(ctx context.Context, ids []string, pageSize int) (map[string]*reference.Record, error) {
	if pageSize <= 0 {
		pageSize = DefaultManyPageSize
	}

	out := make(map[string]*reference.Record, len(ids))
	for _, batch := range chunk(ids, pageSize) {
		params := url.Values{}
		params.Set("q", disjunction(idClauseTemplate, batch))
		params.Set("size", strconv.Itoa(pageSize))
		params.Set("sort", sortMostCited)

		resp, err := c.search(ctx, params)
		if err != nil {
			return out, err
		}
		for i := range resp.Hits {
			rec := resp.Hits[i]
			out[rec.ID] = &rec
		}
	}
	return out, nil
}

// GetIDsByTexKey resolves texkeys to record ids. Every texkey carried by a
// returned record is included, not just the ones asked for.
func (c *Client) GetIDsByTexKey(ctx context.Context, keys []string, pageSize int) (map[string]string, error) {
	if pageSize <= 0 {
		pageSize = DefaultTexKeyPageSize
	}

	out := make(map[string]string, len(keys))
	for _, batch := range chunk(keys, pageSize) {
		params := url.Values{}
		params.Set("q", disjunction(texKeyClauseTemplate, batch))
		params.Set("size", strconv.Itoa(pageSize))
		params.Set("sort", sortMostCited)
		params.Set("fields", fieldsTexKeys)

		resp, err := c.search(ctx, params)
		if err != nil {
			return out, err
		}
		for _, hit := range resp.Hits {
			for _, key := range hit.Metadata.TexKeys {
				out[key] = hit.ID
			}
		}
	}
	return out, nil
}

// GetIDsByAuthor returns the ids of every record listing author, most recent
// first.
func (c *Client) GetIDsByAuthor(ctx context.Context, author string, pageSize int) ([]string, error) {
	if pageSize <= 0 {
		pageSize = DefaultAuthorPageSize
	}

	params := url.Values{}
	params.Set("q", fmt.Sprintf(authorQueryTemplate, author))
	params.Set("sort", sortMostRecent)
	params.Set("fields", fieldsAuthors)

	hits, err := c.drain(ctx, params, pageSize)
	return hitIDs(hits), err
}

// GetCitersOf returns the ids of every record citing any of ids.
func (c *Client) GetCitersOf(ctx context.Context, ids []string, pageSize int) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	if pageSize <= 0 {
		pageSize = DefaultCitersPageSize
	}

	params := url.Values{}
	params.Set("q", disjunction(citersClauseTemplate, ids))
	params.Set("sort", sortMostRecent)
	params.Set("fields", fieldsControlNumber)

	hits, err := c.drain(ctx, params, pageSize)
	return hitIDs(hits), err
}

func hitIDs(hits []reference.Record) []string {
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	return ids
}

// GetBibTeX fetches the BibTeX text of one record.
func (c *Client) GetBibTeX(ctx context.Context, id string) (string, error) {
	body, err := c.get(ctx, literaturePath+"/"+url.PathEscape(id), nil, mimeBibTeX)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetBibTeXMany fetches BibTeX for ids, pageSize ids per request, and returns
// the individual entries. Entries are not associated with ids; use
// export.MapEntriesToIDs for that.
func (c *Client) GetBibTeXMany(ctx context.Context, ids []string, pageSize int) ([]string, error) {
	if pageSize <= 0 {
		pageSize = DefaultBibTeXPageSize
	}

	var entries []string
	for _, batch := range chunk(ids, pageSize) {
		params := url.Values{}
		params.Set("q", disjunction(idClauseTemplate, batch))
		params.Set("size", strconv.Itoa(pageSize))
		params.Set("sort", sortMostCited)
		params.Set("format", formatBibTeX)

		body, err := c.get(ctx, literaturePath, params, mimeBibTeX)
		if err != nil {
			return entries, err
		}
		entries = append(entries, export.SplitEntries(string(body))...)
	}
	return entries, nil
}

// GetIDByDOI returns the id of the record carrying doi. It returns
// ErrNotFound if INSPIRE has no such record.
func (c *Client) GetIDByDOI(ctx context.Context, doi string) (string, error) {
	return c.firstID(ctx, fmt.Sprintf(doiQueryTemplate, doi))
}

// GetIDByArXiv returns the id of the record for an arXiv eprint, given as
// "1711.00001" or "hep-th/9711200" without version suffix.
func (c *Client) GetIDByArXiv(ctx context.Context, eprint string) (string, error) {
	return c.firstID(ctx, fmt.Sprintf(arxivQueryTemplate, eprint))
}

func (c *Client) firstID(ctx context.Context, q string) (string, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("size", "1")
	params.Set("fields", fieldsControlNumber)

	resp, err := c.search(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Hits) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, q)
	}
	return resp.Hits[0].ID, nil
}

// Search runs a free-form INSPIRE query and returns the first page.
func (c *Client) Search(ctx context.Context, q string, size int) (*SearchResponse, error) {
	if size <= 0 {
		size = DefaultSearchPageSize
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("size", strconv.Itoa(size))
	params.Set("sort", sortMostCited)
	return c.search(ctx, params)
}
