package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dnldd/pulse/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

func setupServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&ClientConfig{
		BaseURL: server.URL,
		Logger:  &log.Logger,
	})
	assert.NoError(t, err)

	return client, server
}

func TestNewClient(t *testing.T) {
	// Ensure the client requires a base url.
	_, err := NewClient(&ClientConfig{Logger: &log.Logger})
	assert.Error(t, err)

	_, err = NewClient(&ClientConfig{BaseURL: "   ", Logger: &log.Logger})
	assert.Error(t, err)

	// Ensure a trailing slash is trimmed.
	client, err := NewClient(&ClientConfig{BaseURL: "http://base/", Logger: &log.Logger})
	assert.NoError(t, err)
	assert.Equal(t, client.cfg.BaseURL, "http://base")
}

func TestCallMissingBaseURL(t *testing.T) {
	// Ensure a missing base url fails before any network attempt.
	client := &Client{cfg: &ClientConfig{Logger: &log.Logger}}
	_, err := client.call(context.Background(), http.MethodGet, "/runs", nil)
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not configured"))
}

func TestFetchRun(t *testing.T) {
	body := `{
		"id": "7a9f9012-23a1-47a5-a1fc-b51f4e7f1f3a",
		"name": "mm_mtf_sweep BTCUSDT 2024-01-01..2024-02-01",
		"kind": "backtest_mm_mtf_sweep",
		"status": "running",
		"created_at": "2024-02-02T10:00:00Z",
		"started_at": "2024-02-02T10:00:05.123Z",
		"ended_at": null,
		"exit_code": null,
		"error": null
	}`

	client, _ := setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, "/runs/7a9f9012-23a1-47a5-a1fc-b51f4e7f1f3a")
		w.Write([]byte(body))
	})

	run, err := client.FetchRun(context.Background(), "7a9f9012-23a1-47a5-a1fc-b51f4e7f1f3a")
	assert.NoError(t, err)
	assert.Equal(t, run.Kind, shared.BacktestMmMtfSweep)
	assert.Equal(t, run.Status, shared.Running)
	assert.Equal(t, run.CreatedAt.Year(), 2024)
	assert.False(t, run.StartedAt.IsZero())
	assert.True(t, run.EndedAt.IsZero())
	assert.Nil(t, run.ExitCode)
}

func TestFetchRunError(t *testing.T) {
	client, _ := setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "run not found"}`))
	})

	// Ensure the error embeds the status code and response body.
	_, err := client.FetchRun(context.Background(), "missing")
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "404"))
	assert.True(t, strings.Contains(err.Error(), "run not found"))
}

func TestFetchRunEvents(t *testing.T) {
	// The api returns events newest first.
	body := `[
		{"id": 3, "run_id": "run-1", "ts": "2024-02-02T10:00:02Z", "level": "info", "message": "third"},
		{"id": 2, "run_id": "run-1", "ts": "2024-02-02T10:00:01Z", "level": "info", "message": "second"},
		{"id": 1, "run_id": "run-1", "ts": "2024-02-02T10:00:00Z", "level": "info", "message": "first"}
	]`

	client, _ := setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Query().Get("limit"), "300")
		w.Write([]byte(body))
	})

	// Ensure events come back in chronological order.
	events, err := client.FetchRunEvents(context.Background(), "run-1", EventListLimit)
	assert.NoError(t, err)
	assert.Equal(t, len(events), 3)
	assert.Equal(t, events[0].Message, "first")
	assert.Equal(t, events[2].Message, "third")
}

func TestFetchRunMetrics(t *testing.T) {
	body := `{
		"run_id": "run-1",
		"updated_at": "2024-02-02T10:00:00Z",
		"payload": {"roi_pct": 12.5, "chart_equity": [{"ts": 1700000000, "equity": 100}]}
	}`

	client, _ := setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	metrics, err := client.FetchRunMetrics(context.Background(), "run-1")
	assert.NoError(t, err)
	assert.NotNil(t, metrics)
	assert.Equal(t, metrics.Payload.Get("roi_pct").Num, 12.5)
	assert.False(t, metrics.UpdatedAt.IsZero())
}

func TestFetchRunMetricsSoftAbsence(t *testing.T) {
	// Ensure a failing metrics endpoint yields no metrics and no error.
	client, _ := setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	metrics, err := client.FetchRunMetrics(context.Background(), "run-1")
	assert.NoError(t, err)
	assert.Nil(t, metrics)

	// Ensure a malformed body yields no metrics and no error.
	client, _ = setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"payload": "oops"}`))
	})

	metrics, err = client.FetchRunMetrics(context.Background(), "run-1")
	assert.NoError(t, err)
	assert.Nil(t, metrics)
}

func TestFetchRunArtifactsSoftAbsence(t *testing.T) {
	// Ensure a failing artifacts endpoint yields an empty collection and no
	// error.
	client, _ := setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	artifacts, err := client.FetchRunArtifacts(context.Background(), "run-1")
	assert.NoError(t, err)
	assert.Equal(t, len(artifacts), 0)
}

func TestFetchRuns(t *testing.T) {
	body := `[
		{"id": "a", "name": "one", "kind": "backtest_mm", "status": "completed", "created_at": "2024-02-02T10:00:00Z"},
		{"id": "b", "name": "two", "kind": "backtest_trend", "status": "queued", "created_at": "2024-02-01T10:00:00Z"}
	]`

	client, _ := setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Query().Get("limit"), "100")
		w.Write([]byte(body))
	})

	runs, err := client.FetchRuns(context.Background(), RunListLimit)
	assert.NoError(t, err)
	assert.Equal(t, len(runs), 2)
	assert.Equal(t, runs[0].Kind, shared.BacktestMm)
	assert.Equal(t, runs[1].Status, shared.Queued)
}

func TestCreateMmMtfSweepRun(t *testing.T) {
	client, _ := setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.Method, http.MethodPost)
		assert.Equal(t, r.URL.Path, "/runs/presets/mm_mtf_sweep")

		var req SweepRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err)
		assert.Equal(t, req.Symbol, "BTCUSDT")
		assert.Equal(t, req.MakerFeeBpsList, "10")

		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"id": "c", "name": "mm_mtf_sweep BTCUSDT", "kind": "backtest_mm_mtf_sweep", "status": "queued", "created_at": "2024-02-02T10:00:00Z"}`))
	})

	// Ensure the maker fee list defaults when unset.
	run, err := client.CreateMmMtfSweepRun(context.Background(), &SweepRequest{
		Symbol: "BTCUSDT",
		Start:  "2024-01-01",
		End:    "2024-02-01",
	})
	assert.NoError(t, err)
	assert.Equal(t, run.Status, shared.Queued)

	// Ensure missing required fields are rejected before any network call.
	_, err = client.CreateMmMtfSweepRun(context.Background(), &SweepRequest{})
	assert.Error(t, err)
}
