package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	apperrors "github.com/tensorlab/opsched/pkg/errors"
)

// branchJSON describes a diamond: A feeds both B and C, which join in D.
const branchJSON = `{
  "name": "branch",
  "inputs": ["x"],
  "outputs": ["d"],
  "nodes": [
    {"name": "A", "op": "Gemm", "inputs": ["x"], "outputs": ["a"]},
    {"name": "B", "op": "Exp", "inputs": ["a"], "outputs": ["b"]},
    {"name": "C", "op": "Shape", "inputs": ["a"], "outputs": ["c"]},
    {"name": "D", "op": "Concat", "inputs": ["b", "c"], "outputs": ["d"]}
  ]
}`

// loopJSON resolves but contains a cycle between A and B.
const loopJSON = `{
  "name": "loop",
  "inputs": ["x"],
  "outputs": ["a"],
  "nodes": [
    {"name": "A", "op": "Add", "inputs": ["x", "b"], "outputs": ["a"]},
    {"name": "B", "op": "Relu", "inputs": ["a"], "outputs": ["b"]}
  ]
}`

func testServer() *Server {
	return New(DefaultConfig(), nil, nil, log.New(io.Discard))
}

// envelope is used to decode the standard response envelope.
type envelope struct {
	Status    string          `json:"status"`
	RequestID string          `json:"request_id"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
}

func doGet(t *testing.T, srv *Server, path string) envelope {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s: status=%d, want 200, body=%s", path, w.Code, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("GET %s: invalid JSON: %v", path, err)
	}
	return env
}

func postGraph(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/graphs/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func createBranchGraph(t *testing.T, srv *Server) string {
	t.Helper()
	w := postGraph(t, srv, branchJSON)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /graphs: status=%d, want 201, body=%s", w.Code, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	return data.ID
}

func TestHealth(t *testing.T) {
	srv := testServer()
	env := doGet(t, srv, "/api/v1/health")
	if env.Status != "ok" {
		t.Errorf("status = %q, want ok", env.Status)
	}

	var data struct {
		Status  string `json:"status"`
		Version string `json:"version"`
		Store   string `json:"store"`
		Cache   string `json:"cache"`
	}
	json.Unmarshal(env.Data, &data)
	if data.Status != "healthy" {
		t.Errorf("health status = %q, want healthy", data.Status)
	}
	if data.Version != "dev" {
		t.Errorf("version = %q, want dev", data.Version)
	}
	if data.Store != "memory" || data.Cache != "none" {
		t.Errorf("backends = %q/%q, want memory/none", data.Store, data.Cache)
	}
}

func TestCreateGraph(t *testing.T) {
	srv := testServer()
	w := postGraph(t, srv, branchJSON)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d, want 201, body=%s", w.Code, w.Body.String())
	}

	var env envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	if env.Status != "ok" {
		t.Errorf("status = %q, want ok", env.Status)
	}

	var data struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Nodes int    `json:"nodes"`
		Edges int    `json:"edges"`
	}
	json.Unmarshal(env.Data, &data)
	if !strings.HasPrefix(data.ID, "g_") {
		t.Errorf("id = %q, want g_ prefix", data.ID)
	}
	if data.Name != "branch" {
		t.Errorf("name = %q, want branch", data.Name)
	}
	if data.Nodes != 4 || data.Edges != 4 {
		t.Errorf("nodes/edges = %d/%d, want 4/4", data.Nodes, data.Edges)
	}
}

func TestCreateGraph_InvalidJSON(t *testing.T) {
	srv := testServer()
	w := postGraph(t, srv, "not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400, body=%s", w.Code, w.Body.String())
	}

	var env envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	if env.Status != "error" {
		t.Errorf("status = %q, want error", env.Status)
	}
	if env.Error == nil || env.Error.Code != apperrors.ErrCodeInvalidInput {
		t.Errorf("error = %v, want code %s", env.Error, apperrors.ErrCodeInvalidInput)
	}
}

func TestCreateGraph_Cycle(t *testing.T) {
	srv := testServer()
	w := postGraph(t, srv, loopJSON)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400, body=%s", w.Code, w.Body.String())
	}

	var env envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	if env.Error == nil || env.Error.Code != apperrors.ErrCodeGraphCycle {
		t.Errorf("error = %v, want code %s", env.Error, apperrors.ErrCodeGraphCycle)
	}
}

func TestGetGraph(t *testing.T) {
	srv := testServer()
	id := createBranchGraph(t, srv)

	env := doGet(t, srv, "/api/v1/graphs/"+id)
	var data struct {
		ID      string   `json:"id"`
		Nodes   int      `json:"nodes"`
		Edges   int      `json:"edges"`
		Inputs  []string `json:"inputs"`
		Outputs []string `json:"outputs"`
	}
	json.Unmarshal(env.Data, &data)
	if data.ID != id {
		t.Errorf("id = %q, want %q", data.ID, id)
	}
	if data.Nodes != 4 || data.Edges != 4 {
		t.Errorf("nodes/edges = %d/%d, want 4/4", data.Nodes, data.Edges)
	}
	if len(data.Inputs) != 1 || data.Inputs[0] != "x" {
		t.Errorf("inputs = %v, want [x]", data.Inputs)
	}
	if len(data.Outputs) != 1 || data.Outputs[0] != "d" {
		t.Errorf("outputs = %v, want [d]", data.Outputs)
	}
}

func TestGetGraph_NotFound(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest("GET", "/api/v1/graphs/g_missing", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", w.Code)
	}
	var env envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	if env.Error == nil || env.Error.Code != apperrors.ErrCodeGraphNotFound {
		t.Errorf("error = %v, want code %s", env.Error, apperrors.ErrCodeGraphNotFound)
	}
}

func TestListGraphs(t *testing.T) {
	srv := testServer()
	createBranchGraph(t, srv)
	createBranchGraph(t, srv)

	env := doGet(t, srv, "/api/v1/graphs/")
	var items []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Nodes int    `json:"nodes"`
	}
	json.Unmarshal(env.Data, &items)
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	for _, item := range items {
		if item.Name != "branch" || item.Nodes != 4 {
			t.Errorf("item = %+v, want name=branch nodes=4", item)
		}
	}
}

func TestDeleteGraph(t *testing.T) {
	srv := testServer()
	id := createBranchGraph(t, srv)

	req := httptest.NewRequest("DELETE", "/api/v1/graphs/"+id, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE: status=%d, want 200, body=%s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("DELETE", "/api/v1/graphs/"+id, nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("second DELETE: status=%d, want 404", w.Code)
	}
}

func TestGetOrder(t *testing.T) {
	srv := testServer()
	id := createBranchGraph(t, srv)

	tests := []struct {
		query string
		kind  string
		names []string
	}{
		{"", "default", []string{"A", "B", "C", "D"}},
		{"?kind=default", "default", []string{"A", "B", "C", "D"}},
		{"?kind=priority", "priority", []string{"A", "C", "B", "D"}},
	}
	for _, tt := range tests {
		env := doGet(t, srv, "/api/v1/graphs/"+id+"/order"+tt.query)

		var data struct {
			Kind      string `json:"kind"`
			GraphHash string `json:"graph_hash"`
			Nodes     []struct {
				Position int    `json:"position"`
				Name     string `json:"name"`
				Op       string `json:"op"`
			} `json:"nodes"`
		}
		json.Unmarshal(env.Data, &data)
		if data.Kind != tt.kind {
			t.Errorf("query %q: kind = %q, want %q", tt.query, data.Kind, tt.kind)
		}
		if data.GraphHash == "" {
			t.Errorf("query %q: graph_hash is empty", tt.query)
		}
		if len(data.Nodes) != len(tt.names) {
			t.Fatalf("query %q: len(nodes) = %d, want %d", tt.query, len(data.Nodes), len(tt.names))
		}
		for i, row := range data.Nodes {
			if row.Name != tt.names[i] {
				t.Errorf("query %q: nodes[%d].name = %q, want %q", tt.query, i, row.Name, tt.names[i])
			}
			if row.Position != i {
				t.Errorf("query %q: nodes[%d].position = %d, want %d", tt.query, i, row.Position, i)
			}
			if row.Op == "" {
				t.Errorf("query %q: nodes[%d].op is empty", tt.query, i)
			}
		}
	}
}

func TestGetOrder_InvalidParams(t *testing.T) {
	srv := testServer()
	id := createBranchGraph(t, srv)

	tests := []struct {
		query    string
		wantCode apperrors.Code
	}{
		{"?kind=banana", apperrors.ErrCodeInvalidOrder},
		{"?training=banana", apperrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/api/v1/graphs/"+id+"/order"+tt.query, nil)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("query %q: status=%d, want 400", tt.query, w.Code)
		}
		var env envelope
		json.Unmarshal(w.Body.Bytes(), &env)
		if env.Error == nil || env.Error.Code != tt.wantCode {
			t.Errorf("query %q: error = %v, want code %s", tt.query, env.Error, tt.wantCode)
		}
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest("GET", "/api/v1/graphs/g_missing/order", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status=%d, want 404", w.Code)
	}
}

func TestRenderGraph(t *testing.T) {
	srv := testServer()
	id := createBranchGraph(t, srv)

	req := httptest.NewRequest("GET", "/api/v1/graphs/"+id+"/render?order=priority", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200, body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q, want image/svg+xml", ct)
	}
	if !strings.Contains(w.Body.String(), "<svg") {
		t.Error("body is not SVG")
	}
}

func TestRenderGraph_InvalidOrder(t *testing.T) {
	srv := testServer()
	id := createBranchGraph(t, srv)

	req := httptest.NewRequest("GET", "/api/v1/graphs/"+id+"/render?order=banana", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", w.Code)
	}
}

func TestGraphExpiry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GraphTTL = time.Nanosecond
	srv := New(cfg, nil, nil, log.New(io.Discard))

	id := createBranchGraph(t, srv)
	time.Sleep(5 * time.Millisecond)

	req := httptest.NewRequest("GET", "/api/v1/graphs/"+id, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status=%d, want 404 for expired record", w.Code)
	}
}

func TestResponseEnvelope_HasRequestID(t *testing.T) {
	srv := testServer()
	env := doGet(t, srv, "/api/v1/health")
	if !strings.HasPrefix(env.RequestID, "req_") {
		t.Errorf("request_id = %q, want req_ prefix", env.RequestID)
	}
	if env.Timestamp == "" {
		t.Error("timestamp is empty")
	}
}

func TestResponseEnvelope_XRequestIDHeader(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	xReqID := w.Header().Get("X-Request-ID")
	if !strings.HasPrefix(xReqID, "req_") {
		t.Errorf("X-Request-ID header = %q, want req_ prefix", xReqID)
	}
}

func TestResponseEnvelope_ClientRequestID(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req_client01")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req_client01" {
		t.Errorf("X-Request-ID header = %q, want req_client01", got)
	}
	var env envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	if env.RequestID != "req_client01" {
		t.Errorf("request_id = %q, want req_client01", env.RequestID)
	}
}
