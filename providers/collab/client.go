// Package collab is the HTTP client for the external strategy services:
// structural validation, historical simulation (backtests), market data
// fetching, and the live execution daemon. All payloads travel in the
// workflow interchange format; the services themselves are opaque here.
package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/parallaxfi/weft/core/workflow"
	"github.com/parallaxfi/weft/internal/utils"
)

const defaultBaseURL = "http://localhost:8787"

// Client reaches the validation, backtest, data and run services.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a client. Base URL and API key are read from
// WEFT_SERVICES_URL / WEFT_SERVICES_API_KEY when present.
func New() *Client {
	baseURL := os.Getenv("WEFT_SERVICES_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  os.Getenv("WEFT_SERVICES_API_KEY"),
		client:  &http.Client{},
	}
}

// WithBaseURL overrides the services base URL.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// WithAPIKey sets the bearer token sent with every request.
func (c *Client) WithAPIKey(apiKey string) *Client {
	c.apiKey = apiKey
	return c
}

// WithHttpClient sets a custom HTTP client.
func (c *Client) WithHttpClient(client *http.Client) *Client {
	c.client = client
	return c
}

// ValidationIssue is one finding from the structural validator.
type ValidationIssue struct {
	Severity string `json:"severity"`
	NodeID   string `json:"node_id,omitempty"`
	Message  string `json:"message"`
}

// ValidationResult is the validator's verdict on a workflow.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// Validate runs the offline structural validator against the document.
func (c *Client) Validate(ctx context.Context, doc *workflow.Document) (*ValidationResult, error) {
	_, result, err := utils.DoPostSync[ValidationResult](ctx, c.client, c.baseURL+"/api/validate", c.apiKey, doc)
	return result, err
}

// BacktestRequest asks the simulation engine to replay a workflow over a
// historical window.
type BacktestRequest struct {
	Workflow *workflow.Document `json:"workflow"`
	Start    string             `json:"start,omitempty"`
	End      string             `json:"end,omitempty"`
	Capital  float64            `json:"capital,omitempty"`
}

// BacktestResult is the simulation engine's summary. Metrics stays raw so
// new engine outputs pass through without a client update.
type BacktestResult struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Metrics json.RawMessage `json:"metrics,omitempty"`
}

// Backtest runs a historical simulation of the document.
func (c *Client) Backtest(ctx context.Context, request BacktestRequest) (*BacktestResult, error) {
	_, result, err := utils.DoPostSync[BacktestResult](ctx, c.client, c.baseURL+"/api/backtest", c.apiKey, request)
	return result, err
}

// FetchDataRequest asks the data service to pull market data needed by the
// workflow's venues.
type FetchDataRequest struct {
	Workflow *workflow.Document `json:"workflow,omitempty"`
	Sources  []string           `json:"sources,omitempty"`
	Start    string             `json:"start,omitempty"`
	End      string             `json:"end,omitempty"`
}

// FetchDataResult reports which datasets were fetched.
type FetchDataResult struct {
	Datasets []string `json:"datasets,omitempty"`
	Status   string   `json:"status"`
}

// FetchData pulls market data for the workflow's venues into the data store.
func (c *Client) FetchData(ctx context.Context, request FetchDataRequest) (*FetchDataResult, error) {
	_, result, err := utils.DoPostSync[FetchDataResult](ctx, c.client, c.baseURL+"/api/data/fetch", c.apiKey, request)
	return result, err
}

// DatasetInfo describes one locally available dataset.
type DatasetInfo struct {
	Name  string `json:"name"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
	Rows  int    `json:"rows,omitempty"`
}

// ListData returns the data service's manifest of available datasets.
func (c *Client) ListData(ctx context.Context) ([]DatasetInfo, error) {
	_, result, err := utils.DoGetSync[[]DatasetInfo](ctx, c.client, c.baseURL+"/api/data/manifest", c.apiKey)
	if err != nil {
		return nil, err
	}
	return *result, nil
}

// RunInfo describes one live execution run of a workflow.
type RunInfo struct {
	ID       string `json:"id"`
	Workflow string `json:"workflow,omitempty"`
	Status   string `json:"status"`
	Started  string `json:"started,omitempty"`
	Stopped  string `json:"stopped,omitempty"`
}

// StartDaemon starts live execution of the document and returns the run.
func (c *Client) StartDaemon(ctx context.Context, doc *workflow.Document) (*RunInfo, error) {
	_, result, err := utils.DoPostSync[RunInfo](ctx, c.client, c.baseURL+"/api/run/start", c.apiKey, doc)
	return result, err
}

// StopDaemon stops the run with the given id.
func (c *Client) StopDaemon(ctx context.Context, runID string) (*RunInfo, error) {
	_, result, err := utils.DoPostSync[RunInfo](ctx, c.client, c.baseURL+"/api/run/"+runID+"/stop", c.apiKey, struct{}{})
	return result, err
}

// ListRuns returns all known execution runs.
func (c *Client) ListRuns(ctx context.Context) ([]RunInfo, error) {
	_, result, err := utils.DoGetSync[[]RunInfo](ctx, c.client, c.baseURL+"/api/runs", c.apiKey)
	if err != nil {
		return nil, err
	}
	return *result, nil
}

// GetRunStatus returns the current status of one run.
func (c *Client) GetRunStatus(ctx context.Context, runID string) (*RunInfo, error) {
	_, result, err := utils.DoGetSync[RunInfo](ctx, c.client, c.baseURL+"/api/run/"+runID+"/status", c.apiKey)
	return result, err
}
