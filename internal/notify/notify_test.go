// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"stroke-pipeline/internal/cases"
	"stroke-pipeline/internal/pipeline"
	"stroke-pipeline/internal/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSlack struct {
	mu       sync.Mutex
	posts    []map[string]string
	failures int
}

func newMockSlackAPI(t *testing.T, failures int) (*mockSlack, string) {
	t.Helper()
	m := &mockSlack{failures: failures}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/")
		switch path {
		case "chat.postMessage":
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.failures > 0 {
				m.failures--
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = r.ParseForm()
			m.posts = append(m.posts, map[string]string{
				"channel": r.FormValue("channel"),
				"text":    r.FormValue("text"),
				"blocks":  r.FormValue("blocks"),
			})
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": r.FormValue("channel"), "ts": "1700000000.000100"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}
	}))
	t.Cleanup(server.Close)
	return m, server.URL + "/api/"
}

func newTestNotifier(apiURL string) *SlackNotifier {
	n := NewSlackNotifier(Config{Token: "xoxb-test", Channel: "C123", APIURL: apiURL})
	n.retry = resilience.RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, Multiplier: 2.0}
	return n
}

func runCase(t *testing.T, id string) *pipeline.Run {
	t.Helper()
	catalog, err := cases.Default()
	require.NoError(t, err)
	run, err := pipeline.NewRunner(catalog).Run(context.Background(), id, pipeline.Sources{})
	require.NoError(t, err)
	return run
}

func TestNotifyPostsReviewRequest(t *testing.T) {
	mock, url := newMockSlackAPI(t, 0)
	n := newTestNotifier(url)

	require.NoError(t, n.Notify(context.Background(), runCase(t, "case1")))

	require.Len(t, mock.posts, 1)
	post := mock.posts[0]
	assert.Equal(t, "C123", post["channel"])
	assert.Contains(t, post["text"], "Example Case 1")
	assert.Contains(t, post["text"], "3 flagged")
	assert.Contains(t, post["blocks"], "Original note indicates tPA was administered.")
	assert.Contains(t, post["blocks"], "tPA_Administered")
	assert.Contains(t, post["blocks"], "0.55")
}

func TestNotifySkipsAcceptedRuns(t *testing.T) {
	mock, url := newMockSlackAPI(t, 0)
	n := newTestNotifier(url)

	require.NoError(t, n.Notify(context.Background(), runCase(t, "case3")))
	assert.Empty(t, mock.posts)
}

func TestNotifyRetriesServerErrors(t *testing.T) {
	mock, url := newMockSlackAPI(t, 2)
	n := newTestNotifier(url)

	require.NoError(t, n.Notify(context.Background(), runCase(t, "case2")))
	assert.Len(t, mock.posts, 1)
}

func TestNotifyGivesUp(t *testing.T) {
	_, url := newMockSlackAPI(t, 10)
	n := newTestNotifier(url)

	err := n.Notify(context.Background(), runCase(t, "case2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Example Case 2")
}

func TestNewWithoutConfigIsNop(t *testing.T) {
	n := New(Config{Token: "xoxb-test"})
	_, ok := n.(NopNotifier)
	assert.True(t, ok)
	assert.NoError(t, n.Notify(context.Background(), nil))

	_, ok = New(Config{Token: "t", Channel: "C1"}).(*SlackNotifier)
	assert.True(t, ok)
}
