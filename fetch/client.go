package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dnldd/pulse/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// runListPath is the api path listing recent runs.
	runListPath = "/runs"
	// sweepPresetPath is the api path enqueueing an mm mtf sweep run.
	sweepPresetPath = "/runs/presets/mm_mtf_sweep"

	// RunListLimit is the number of runs requested for the run list.
	RunListLimit = 100
	// EventListLimit is the number of events requested per run.
	EventListLimit = 300

	// requestTimeout bounds every api call.
	requestTimeout = time.Second * 5
)

// ClientConfig represents the configuration for the orchestrator api client.
type ClientConfig struct {
	// BaseURL is the orchestrator api base url.
	BaseURL string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Client represents the run orchestration service api client.
type Client struct {
	cfg   *ClientConfig
	httpc http.Client
}

// Ensure the client implements the RunFetcher interface.
var _ shared.RunFetcher = (*Client)(nil)

// NewClient instantiates a new orchestrator api client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("orchestrator base url cannot be an empty string")
	}

	cfg.BaseURL = strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")

	return &Client{
		cfg:   cfg,
		httpc: http.Client{Timeout: requestTimeout},
	}, nil
}

// call issues a request against the api and returns the response body. A
// missing base url fails before any network attempt; a non-2xx response
// surfaces the status code and response body in the error.
func (c *Client) call(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if c.cfg.BaseURL == "" {
		return nil, fmt.Errorf("orchestrator base url is not configured")
	}

	var payload io.Reader
	if body != nil {
		payload = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("creating %s %s request: %w", method, path, err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response body: %w", method, path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path,
			resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return data, nil
}

// parseTime parses an optional rfc3339 timestamp field, yielding the zero
// time when the field is null or absent.
func parseTime(value gjson.Result) time.Time {
	if value.Type != gjson.String {
		return time.Time{}
	}

	ts, err := time.Parse(time.RFC3339Nano, value.Str)
	if err != nil {
		return time.Time{}
	}

	return ts
}

// ParseRunRecord parses a run record from the provided json data.
func ParseRunRecord(data gjson.Result) (*shared.RunRecord, error) {
	status, err := shared.ParseRunStatus(data.Get("status").String())
	if err != nil {
		return nil, fmt.Errorf("parsing run status: %w", err)
	}

	kind, err := shared.ParseRunKind(data.Get("kind").String())
	if err != nil {
		return nil, fmt.Errorf("parsing run kind: %w", err)
	}

	run := &shared.RunRecord{
		ID:        data.Get("id").String(),
		Name:      data.Get("name").String(),
		Kind:      kind,
		Status:    status,
		CreatedAt: parseTime(data.Get("created_at")),
		StartedAt: parseTime(data.Get("started_at")),
		EndedAt:   parseTime(data.Get("ended_at")),
		Error:     data.Get("error").String(),
	}

	exitCode := data.Get("exit_code")
	if exitCode.Type == gjson.Number {
		code := int(exitCode.Int())
		run.ExitCode = &code
	}

	return run, nil
}

// FetchRuns fetches the most recent runs, newest first.
func (c *Client) FetchRuns(ctx context.Context, limit int) ([]shared.RunRecord, error) {
	body, err := c.call(ctx, http.MethodGet, fmt.Sprintf("%s?limit=%d", runListPath, limit), nil)
	if err != nil {
		return nil, err
	}

	elements := gjson.ParseBytes(body).Array()
	runs := make([]shared.RunRecord, 0, len(elements))
	for idx := range elements {
		run, err := ParseRunRecord(elements[idx])
		if err != nil {
			return nil, fmt.Errorf("parsing run record: %w", err)
		}

		runs = append(runs, *run)
	}

	return runs, nil
}

// FetchRun fetches the run with the provided id.
func (c *Client) FetchRun(ctx context.Context, id string) (*shared.RunRecord, error) {
	body, err := c.call(ctx, http.MethodGet, fmt.Sprintf("%s/%s", runListPath, id), nil)
	if err != nil {
		return nil, err
	}

	return ParseRunRecord(gjson.ParseBytes(body))
}

// FetchRunEvents fetches run events in chronological order. The api returns
// them newest first, so the fetched page is reversed for timeline use.
func (c *Client) FetchRunEvents(ctx context.Context, id string, limit int) ([]shared.RunEventRecord, error) {
	body, err := c.call(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s/events?limit=%d", runListPath, id, limit), nil)
	if err != nil {
		return nil, err
	}

	elements := gjson.ParseBytes(body).Array()
	events := make([]shared.RunEventRecord, 0, len(elements))
	for idx := len(elements) - 1; idx >= 0; idx-- {
		events = append(events, shared.RunEventRecord{
			ID:      elements[idx].Get("id").Int(),
			RunID:   elements[idx].Get("run_id").String(),
			Ts:      parseTime(elements[idx].Get("ts")),
			Level:   elements[idx].Get("level").String(),
			Message: elements[idx].Get("message").String(),
		})
	}

	return events, nil
}

// FetchRunMetrics fetches the latest metrics snapshot for a run. Metrics are
// best-effort telemetry, so transport failures and malformed bodies yield a
// nil snapshot rather than an error.
func (c *Client) FetchRunMetrics(ctx context.Context, id string) (*shared.RunMetrics, error) {
	body, err := c.call(ctx, http.MethodGet, fmt.Sprintf("%s/%s/metrics", runListPath, id), nil)
	if err != nil {
		c.cfg.Logger.Debug().Msgf("no metrics for run %s: %v", id, err)
		return nil, nil
	}

	data := gjson.ParseBytes(body)
	payload := data.Get("payload")
	if !payload.IsObject() {
		return nil, nil
	}

	return &shared.RunMetrics{
		RunID:     data.Get("run_id").String(),
		UpdatedAt: parseTime(data.Get("updated_at")),
		Payload:   payload,
	}, nil
}

// FetchRunArtifacts fetches the artifacts produced by a run. Artifact
// absence is not an error, failures yield an empty collection.
func (c *Client) FetchRunArtifacts(ctx context.Context, id string) ([]shared.RunArtifact, error) {
	body, err := c.call(ctx, http.MethodGet, fmt.Sprintf("%s/%s/artifacts", runListPath, id), nil)
	if err != nil {
		c.cfg.Logger.Debug().Msgf("no artifacts for run %s: %v", id, err)
		return nil, nil
	}

	elements := gjson.ParseBytes(body).Array()
	artifacts := make([]shared.RunArtifact, 0, len(elements))
	for idx := range elements {
		artifacts = append(artifacts, shared.RunArtifact{
			ID:        elements[idx].Get("id").Int(),
			RunID:     elements[idx].Get("run_id").String(),
			Kind:      elements[idx].Get("kind").String(),
			Path:      elements[idx].Get("path").String(),
			CreatedAt: parseTime(elements[idx].Get("created_at")),
		})
	}

	return artifacts, nil
}

// SweepRequest represents the parameters for an mm mtf sweep preset run.
type SweepRequest struct {
	Symbol          string `json:"symbol"`
	Start           string `json:"start"`
	End             string `json:"end"`
	MakerFeeBpsList string `json:"maker_fee_bps_list"`
	HtfInterval     string `json:"htf_interval,omitempty"`
	LtfInterval     string `json:"ltf_interval,omitempty"`
	TopN            int    `json:"top_n,omitempty"`
}

// Validate asserts the sweep request has sane inputs.
func (req *SweepRequest) Validate() error {
	if strings.TrimSpace(req.Symbol) == "" {
		return fmt.Errorf("sweep symbol cannot be an empty string")
	}
	if strings.TrimSpace(req.Start) == "" || strings.TrimSpace(req.End) == "" {
		return fmt.Errorf("sweep start and end dates cannot be empty strings")
	}

	return nil
}

// CreateMmMtfSweepRun enqueues a new mm mtf sweep preset run and returns its
// record.
func (c *Client) CreateMmMtfSweepRun(ctx context.Context, req *SweepRequest) (*shared.RunRecord, error) {
	err := req.Validate()
	if err != nil {
		return nil, err
	}

	if req.MakerFeeBpsList == "" {
		req.MakerFeeBpsList = "10"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding sweep request: %w", err)
	}

	data, err := c.call(ctx, http.MethodPost, sweepPresetPath, body)
	if err != nil {
		return nil, err
	}

	return ParseRunRecord(gjson.ParseBytes(data))
}
