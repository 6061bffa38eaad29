// Package analytics is the HTTP client for the material-flow analytics
// backend. It decodes the backend's loosely typed JSON and coerces every row
// into domain types at the fetch boundary.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aristath/lmt-kanban/internal/domain"
	"github.com/aristath/lmt-kanban/internal/utils"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// DefaultTrendLimit is the number of historical batches the trend chart shows
const DefaultTrendLimit = 14

// Config represents client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Debug   bool
}

// DefaultConfig returns default client configuration
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL: baseURL,
		Timeout: 20 * time.Second,
	}
}

// Client is the HTTP client for the analytics backend
type Client struct {
	client  *resty.Client
	baseURL string
	log     zerolog.Logger
}

// NewClient creates a new analytics backend client. Requests are never
// retried; the next scheduled refresh is the retry.
func NewClient(cfg *Config, log zerolog.Logger) *Client {
	if cfg == nil {
		cfg = DefaultConfig("http://localhost:8000")
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	if cfg.Debug {
		client.SetDebug(true)
	}

	return &Client{
		client:  client,
		baseURL: cfg.BaseURL,
		log:     log.With().Str("client", "analytics").Logger(),
	}
}

// DetailQuery selects the rows of one batch on the detail page
type DetailQuery struct {
	BatchID       string
	Query         string
	ExcludeCommon bool
}

func (q DetailQuery) params() map[string]string {
	p := map[string]string{
		"exclude_common": strconv.FormatBool(q.ExcludeCommon),
	}
	if q.BatchID != "" {
		p["batch_id"] = q.BatchID
	}
	if q.Query != "" {
		p["q"] = q.Query
	}
	return p
}

func excludeParams(excludeCommon bool) map[string]string {
	return map[string]string{"exclude_common": strconv.FormatBool(excludeCommon)}
}

// get performs a GET and decodes the JSON body into out
func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	defer utils.OperationTimer("analytics "+path, c.log)()

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}

	if resp.IsError() {
		return &StatusError{Path: path, StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	body := resp.Body()
	if len(body) == 0 {
		return fmt.Errorf("request %s returned an empty body", path)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analytics API %s returned status %d: %s", e.Path, e.StatusCode, e.Body)
}

// Summary fetches the KPI summary of the latest batch. A backend with no
// batch yet yields an empty summary, not an error.
func (c *Client) Summary(ctx context.Context, excludeCommon bool) (domain.KPISummary, error) {
	var w wireSummary
	if err := c.get(ctx, "/api/kpi/summary", excludeParams(excludeCommon), &w); err != nil {
		return domain.KPISummary{}, err
	}
	if w.Error != nil {
		c.log.Debug().Str("reason", *w.Error).Msg("Backend has no summary yet")
	}
	return w.toDomain(), nil
}

// Trend fetches the last limit batches in chronological order
func (c *Client) Trend(ctx context.Context, limit int, excludeCommon bool) ([]domain.KPITrendPoint, error) {
	if limit <= 0 {
		limit = DefaultTrendLimit
	}
	params := excludeParams(excludeCommon)
	params["limit"] = strconv.Itoa(limit)

	var rows []wireTrendPoint
	if err := c.get(ctx, "/api/kpi/trend", params, &rows); err != nil {
		return nil, err
	}
	return mapRows(rows, wireTrendPoint.toDomain), nil
}

// AgingDistribution fetches the six-bucket aging histogram of the latest batch
func (c *Client) AgingDistribution(ctx context.Context, excludeCommon bool) (domain.AgingDistribution, error) {
	var w wireDistribution
	if err := c.get(ctx, "/api/kpi/aging-distribution", excludeParams(excludeCommon), &w); err != nil {
		return domain.AgingDistribution{}, err
	}
	return w.toDomain(), nil
}

// TopAlerts fetches the current-period return alerts of the latest batch
func (c *Client) TopAlerts(ctx context.Context, excludeCommon bool) ([]domain.InventoryStatusRow, error) {
	var rows []wireInventoryRow
	if err := c.get(ctx, "/api/alerts/top10", excludeParams(excludeCommon), &rows); err != nil {
		return nil, err
	}
	return mapRows(rows, wireInventoryRow.toDomain), nil
}

// TopIssues fetches the most severe over-issue lines of the latest batch
func (c *Client) TopIssues(ctx context.Context) ([]domain.IssueRow, error) {
	var rows []wireIssueRow
	if err := c.get(ctx, "/api/issues/top5", nil, &rows); err != nil {
		return nil, err
	}
	return mapRows(rows, wireIssueRow.toDomain), nil
}

// Batches fetches every batch, newest first. Entries without an id are dropped.
func (c *Client) Batches(ctx context.Context) ([]domain.Batch, error) {
	var rows []wireBatch
	if err := c.get(ctx, "/api/batches", nil, &rows); err != nil {
		return nil, err
	}

	out := make([]domain.Batch, 0, len(rows))
	for _, r := range rows {
		if r.BatchID == "" {
			continue
		}
		ts, _ := parseTimestamp(string(r.Timestamp))
		out = append(out, domain.Batch{BatchID: string(r.BatchID), Timestamp: ts})
	}
	return out, nil
}

// InventoryStatus fetches the full line-side stock snapshot of a batch
func (c *Client) InventoryStatus(ctx context.Context, q DetailQuery) ([]domain.InventoryStatusRow, error) {
	var rows []wireInventoryRow
	if err := c.get(ctx, "/api/inventory/status", q.params(), &rows); err != nil {
		return nil, err
	}
	return mapRows(rows, wireInventoryRow.toDomain), nil
}

// IssuesList fetches every issuance line of a batch
func (c *Client) IssuesList(ctx context.Context, q DetailQuery) ([]domain.IssueRow, error) {
	var rows []wireIssueRow
	if err := c.get(ctx, "/api/issues/list", q.params(), &rows); err != nil {
		return nil, err
	}
	return mapRows(rows, wireIssueRow.toDomain), nil
}
