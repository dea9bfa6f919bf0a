package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/visstudy/pkg/observability"
	"github.com/matzehuels/visstudy/pkg/pipeline"
	"github.com/matzehuels/visstudy/pkg/sink"
)

const t1Body = `{
	"experiment_name": "t1",
	"num_points": 3,
	"num_categories": 2,
	"num_attributes": 1,
	"width": 400,
	"height": 300,
	"data_format": "json",
	"renderer": "canvas"
}`

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "generated")
	require.NoError(t, sink.Dir{Root: dir}.Init())
	return Config{
		OutputDir: dir,
		Server: ServerConfig{
			Addr:            "127.0.0.1:0",
			Timeout:         time.Minute,
			ShutdownTimeout: time.Second,
			ThrottleLimit:   4,
		},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	t.Cleanup(observability.Reset)
	s := New(context.Background(), testConfig(t), log.New(io.Discard))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, body := do(t, ts, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var h healthResponse
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, "ok", h.Status)
	assert.True(t, h.Ready)
}

func TestGenerateAndInspectExperiment(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, ts, http.MethodPost, "/api/experiments", t1Body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var res pipeline.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, 3, res.Stats.Rows)
	assert.Equal(t, "data/"+res.Slug+"_data.json", res.DataPath)

	// listing
	resp, body = do(t, ts, http.MethodGet, "/api/experiments", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list listResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Experiments, 1)
	require.NotNil(t, list.Experiments[0].Fields)
	assert.Equal(t, "t1", list.Experiments[0].Fields.ExperimentName)

	// detail with a summary read back from the dataset
	resp, body = do(t, ts, http.MethodGet, "/api/experiments/"+res.Slug, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var detail detailResponse
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, 3, detail.Summary.Rows)
	assert.Equal(t, 1, detail.Summary.Attributes)
	total := 0
	for name, n := range detail.Summary.Categories {
		assert.Contains(t, []string{"category_0", "category_1"}, name)
		total += n
	}
	assert.Equal(t, 3, total)

	// artifacts are served statically
	resp, body = do(t, ts, http.MethodGet, "/"+res.PagePath, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), res.DataPath)

	resp, _ = do(t, ts, http.MethodGet, "/"+res.SpecPath, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// the page is write-once
	resp, body = do(t, ts, http.MethodPost, "/api/experiments", t1Body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "ALREADY_EXISTS")
}

func TestGenerateRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed", `{"num_points":`, "INVALID_INPUT"},
		{"zero points", `{"num_points": 0}`, "INVALID_REQUEST"},
		{"unknown format", `{"data_format": "xml"}`, "INVALID_INPUT"},
		{"bad name", `{"experiment_name": "../x"}`, "INVALID_NAME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, ts, http.MethodPost, "/api/experiments", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var e errorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			assert.Equal(t, tt.code, string(e.Code))
		})
	}
}

func TestGetExperimentErrors(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := do(t, ts, http.MethodGet, "/api/experiments/not-a-slug", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	missing := "t9_points-1_format-csv_categories-1_attributes-0_renderer-svg"
	resp, _ = do(t, ts, http.MethodGet, "/api/experiments/"+missing, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIndexAndClean(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := do(t, ts, http.MethodPost, "/api/experiments", t1Body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, ts, http.MethodPost, "/api/index", `{"title": "Renderer study"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = do(t, ts, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Renderer study")

	resp, _ = do(t, ts, http.MethodPost, "/api/index", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(t, ts, http.MethodDelete, "/api/experiments", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rm removeResponse
	require.NoError(t, json.Unmarshal(body, &rm))
	assert.Equal(t, 4, rm.Removed, "dataset, spec, page and index")

	resp, body = do(t, ts, http.MethodGet, "/api/experiments", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"experiments": []}`, string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := do(t, ts, http.MethodPost, "/api/experiments", t1Body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, ts, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `visstudy_charts_total{format="json",status="ok"} 1`)
	assert.Contains(t, string(body), `visstudy_http_requests_total{code="201",method="POST",path="/api/experiments"} 1`)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	t.Cleanup(observability.Reset)
	s := New(context.Background(), testConfig(t), log.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
