// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"stroke-pipeline/internal/cases"
	"stroke-pipeline/internal/pipeline"
	"stroke-pipeline/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...pipeline.Option) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	catalog, err := cases.Default()
	require.NoError(t, err)
	return NewServer(pipeline.NewRunner(catalog, opts...), nil).Router()
}

func do(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "stroke-pipeline", body["service"])
	assert.NotEmpty(t, body["version"])
}

func TestReadyzWithoutStore(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disabled", decode(t, rec)["store"])
}

func TestReadyzWithStore(t *testing.T) {
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	rec := do(t, newTestServer(t, pipeline.WithStore(st)), http.MethodGet, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["store"])
}

func TestListCases(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/cases")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Cases []CaseSummary `json:"cases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Cases, 3)
	assert.Equal(t, "Example Case 1", body.Cases[0].ID)
	assert.Equal(t, 0.71, body.Cases[0].Similarity)
	assert.Equal(t, "narrow", body.Cases[2].Schema)
}

func TestGetCase(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/cases/case1")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail CaseDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Example Case 1", detail.ID)
	assert.NotEmpty(t, detail.Note)
	assert.NotEmpty(t, detail.Report)
	assert.Equal(t, "no", detail.Extraction["tPA_Administered"])
	assert.Equal(t, "Chief_Complaint", detail.Columns[0])
	// no assets directory configured, so the image cannot be resolved
	assert.Contains(t, detail.ImageError, "image unavailable")
}

func TestUnknownCaseIs404(t *testing.T) {
	router := newTestServer(t)
	for _, path := range []string{"/api/cases/case9", "/api/cases/case9/run", "/api/cases/case9/export", "/api/cases/case9/history"} {
		rec := do(t, router, http.MethodGet, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, decode(t, rec)["error"], "unknown case", path)
	}
}

func TestInapplicableCaseIs422(t *testing.T) {
	gin.SetMode(gin.TestMode)
	catalog, err := cases.Load(filepath.Join("..", "cases", "testdata", "extended.yaml"))
	require.NoError(t, err)
	router := NewServer(pipeline.NewRunner(catalog), nil).Router()

	rec := do(t, router, http.MethodGet, "/api/cases/narrow-b/run")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRunCase(t *testing.T) {
	router := newTestServer(t)
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := do(t, router, method, "/api/cases/case1/run")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, "Example Case 1", body["case_id"])
		assert.Equal(t, 0.55, body["predicted_poor_outcome_probability"])
		assert.Equal(t, true, body["changed"])
	}
}

func TestExportCSV(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/cases/case1/export?format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `Example Case 1_corrected_output.csv`)
	assert.Contains(t, rec.Body.String(), "\"Right-sided weakness, dysarthria\",2018-08-25 21:40,9,yes,yes,no,5,yes,right,178,0.55\n")
}

func TestExportDefaultsToCSVAndRejectsUnknownFormat(t *testing.T) {
	router := newTestServer(t)

	rec := do(t, router, http.MethodGet, "/api/cases/case3/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasSuffix(rec.Body.String(), ",0.1\n"))

	rec = do(t, router, http.MethodGet, "/api/cases/case3/export?format=pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportJUnit(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/cases/case2/export?format=junit")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<testsuites")
}

func TestFormats(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/formats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["formats"], 5)
}

func TestHistory(t *testing.T) {
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	router := newTestServer(t, pipeline.WithStore(st))

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/cases/case2/run").Code)
	}

	rec := do(t, router, http.MethodGet, "/api/cases/Example%20Case%202/history?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		CaseID  string        `json:"case_id"`
		Entries []store.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Example Case 2", body.CaseID)
	require.Len(t, body.Entries, 2)
	assert.Equal(t, 0.32, body.Entries[0].Probability)

	rec = do(t, router, http.MethodGet, "/api/cases/case2/history?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) Notify(context.Context, *pipeline.Run) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}

func TestOnlyPostRunRecords(t *testing.T) {
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	notifier := &countingNotifier{}
	router := newTestServer(t, pipeline.WithStore(st), pipeline.WithNotifier(notifier))

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/cases/case1/export?format=csv").Code)
	}
	require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/cases/case1/run").Code)

	entries, err := st.List(context.Background(), "Example Case 1", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, notifier.calls)

	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/cases/case1/run").Code)
	entries, err = st.List(context.Background(), "Example Case 1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, notifier.calls)
}

func TestHistoryWithoutStore(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/cases/case1/history")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "not configured")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	catalog, err := cases.Default()
	require.NoError(t, err)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(pipeline.NewRunner(catalog), nil).Serve(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
