package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/intake"
)

type fakeCluster struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
	status   int
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, string(body))
	status := f.status
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	switch {
	case r.URL.Path == "/":
		_, _ = w.Write([]byte(`{"name":"test","cluster_name":"test","version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`))
	case strings.Contains(r.URL.Path, "/_doc/"):
		_, _ = w.Write([]byte(`{"_index":"submissions","_id":"x","result":"created"}`))
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func newFake(t *testing.T, status int) (*fakeCluster, *httptest.Server) {
	t.Helper()
	f := &fakeCluster{status: status}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func TestNewClient_PingsCluster(t *testing.T) {
	f, srv := newFake(t, http.StatusOK)

	client, err := NewClient(context.Background(), Config{URL: srv.URL})
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Contains(t, f.requests, "GET /")
}

func TestNewClient_ClusterError(t *testing.T) {
	_, srv := newFake(t, http.StatusServiceUnavailable)

	_, err := NewClient(context.Background(), Config{URL: srv.URL})
	assert.Error(t, err)
}

func TestIndexer_Deliver(t *testing.T) {
	f, srv := newFake(t, http.StatusOK)
	client, err := NewClient(context.Background(), Config{URL: srv.URL})
	require.NoError(t, err)

	ix := &Indexer{Client: client, Index: "submissions"}
	assert.Equal(t, "elasticsearch", ix.Name())

	sub := intake.Submission{
		ID:        "sub-1",
		Kind:      intake.KindContact,
		Name:      "Jane Doe",
		Email:     "jane@x.com",
		Message:   "Hello",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, ix.Deliver(context.Background(), sub))

	f.mu.Lock()
	defer f.mu.Unlock()
	last := len(f.requests) - 1
	assert.Equal(t, "PUT /submissions/_doc/sub-1", f.requests[last])

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.bodies[last]), &doc))
	assert.Equal(t, "contact", doc["kind"])
	assert.Equal(t, "jane@x.com", doc["email"])
}

func TestIndexer_DeliverError(t *testing.T) {
	f, srv := newFake(t, http.StatusOK)
	client, err := NewClient(context.Background(), Config{URL: srv.URL})
	require.NoError(t, err)

	f.mu.Lock()
	f.status = http.StatusBadRequest
	f.mu.Unlock()

	ix := &Indexer{Client: client, Index: "submissions"}
	assert.Error(t, ix.Deliver(context.Background(), intake.Submission{ID: "sub-2"}))
}
