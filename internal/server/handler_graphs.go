package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apperrors "github.com/tensorlab/opsched/pkg/errors"
	"github.com/tensorlab/opsched/pkg/graph"
	"github.com/tensorlab/opsched/pkg/graphio"
	"github.com/tensorlab/opsched/pkg/pipeline"
	"github.com/tensorlab/opsched/pkg/store"
)

// maxGraphDocument bounds POST bodies. Even large training graphs run to a
// few MB of JSON, far below this.
const maxGraphDocument = 16 << 20

type graphSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type graphDetail struct {
	graphSummary
	Description  string   `json:"description,omitempty"`
	Inputs       []string `json:"inputs"`
	Outputs      []string `json:"outputs"`
	Initializers []string `json:"initializers,omitempty"`
}

type orderRow struct {
	Position int    `json:"position"`
	Index    int    `json:"index"`
	Name     string `json:"name,omitempty"`
	Op       string `json:"op"`
	Priority int    `json:"priority"`
}

type orderResponse struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Training  bool       `json:"training"`
	GraphHash string     `json:"graph_hash"`
	Cached    bool       `json:"cached"`
	Nodes     []orderRow `json:"nodes"`
}

// handleCreateGraph accepts a JSON graph document, validates it by running
// the load and build stages, and stores the raw bytes for later queries.
func (s *Server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxGraphDocument+1))
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, &APIError{
			Code:    apperrors.ErrCodeInvalidInput,
			Message: "read body: " + err.Error(),
		})
		return
	}
	if len(body) > maxGraphDocument {
		respondError(w, reqID, http.StatusRequestEntityTooLarge, &APIError{
			Code:    apperrors.ErrCodeInvalidInput,
			Message: fmt.Sprintf("graph document exceeds %d bytes", maxGraphDocument),
		})
		return
	}

	opts := pipeline.Options{Source: body, SourceFormat: pipeline.SourceJSON}
	g, err := s.runner.Load(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, &APIError{
			Code:    apperrors.ErrCodeInvalidInput,
			Message: apperrors.UserMessage(err),
		})
		return
	}
	v, err := s.runner.Build(r.Context(), g, opts)
	if err != nil {
		code := apperrors.GetCode(err)
		if code == "" {
			code = apperrors.ErrCodeInvalidGraph
		}
		respondError(w, reqID, http.StatusBadRequest, &APIError{
			Code:    code,
			Message: apperrors.UserMessage(err),
		})
		return
	}

	rec := &store.Record{
		ID:        "g_" + uuid.New().String(),
		Name:      g.Name(),
		Data:      body,
		CreatedAt: time.Now().UTC(),
	}
	if s.config.GraphTTL > 0 {
		rec.ExpiresAt = rec.CreatedAt.Add(s.config.GraphTTL)
	}
	if err := s.store.Put(r.Context(), rec); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, &APIError{
			Code:    apperrors.ErrCodeInternal,
			Message: apperrors.UserMessage(err),
		})
		return
	}

	s.logger.Info("graph stored", "id", rec.ID, "name", rec.Name, "nodes", v.NumNodes())
	respondCreated(w, reqID, graphSummary{
		ID:        rec.ID,
		Name:      rec.Name,
		Nodes:     v.NumNodes(),
		Edges:     g.NumEdges(),
		CreatedAt: rec.CreatedAt,
	})
}

// handleListGraphs returns summaries for all live records. Node counts come
// from a decode of the stored document; no graph is resolved here.
func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	recs, err := s.store.List(r.Context())
	if err != nil {
		status, apiErr := apiError(err)
		respondError(w, reqID, status, apiErr)
		return
	}

	items := make([]graphSummary, 0, len(recs))
	for _, rec := range recs {
		item := graphSummary{ID: rec.ID, Name: rec.Name, CreatedAt: rec.CreatedAt}
		if g, err := graphio.ReadJSON(bytes.NewReader(rec.Data)); err == nil {
			item.Nodes = g.NumNodes()
		}
		items = append(items, item)
	}
	respondOK(w, reqID, items)
}

// handleGetGraph returns a record's declared surface: inputs, outputs, and
// initializer names alongside the summary counts.
func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		status, apiErr := apiError(err)
		respondError(w, reqID, status, apiErr)
		return
	}

	opts := pipeline.Options{Source: rec.Data, SourceFormat: pipeline.SourceJSON}
	g, err := s.runner.Load(r.Context(), opts)
	if err != nil {
		status, apiErr := apiError(err)
		respondError(w, reqID, status, apiErr)
		return
	}
	v, err := s.runner.Build(r.Context(), g, opts)
	if err != nil {
		status, apiErr := apiError(err)
		respondError(w, reqID, status, apiErr)
		return
	}

	respondOK(w, reqID, graphDetail{
		graphSummary: graphSummary{
			ID:        rec.ID,
			Name:      rec.Name,
			Nodes:     v.NumNodes(),
			Edges:     g.NumEdges(),
			CreatedAt: rec.CreatedAt,
		},
		Description:  v.Description(),
		Inputs:       argNames(v.Inputs()),
		Outputs:      argNames(v.Outputs()),
		Initializers: initializerNames(v.Initializers()),
	})
}

// handleDeleteGraph removes a record.
func (s *Server) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := s.store.Delete(r.Context(), id); err != nil {
		status, apiErr := apiError(err)
		respondError(w, reqID, status, apiErr)
		return
	}
	s.logger.Info("graph deleted", "id", id)
	respondOK(w, reqID, map[string]string{"id": id, "deleted": "true"})
}

// handleGetOrder computes an execution order for a stored graph.
// Query parameters: kind (default|priority) and training (bool).
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = pipeline.KindDefault
	}
	if err := pipeline.ValidateKind(kind); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &APIError{
			Code:    apperrors.ErrCodeInvalidOrder,
			Message: err.Error(),
		})
		return
	}
	training, err := boolParam(r, "training")
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, &APIError{
			Code:    apperrors.ErrCodeInvalidInput,
			Message: err.Error(),
		})
		return
	}

	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		status, apiErr := apiError(err)
		respondError(w, reqID, status, apiErr)
		return
	}

	result, err := s.runner.Execute(r.Context(), pipeline.Options{
		Source:       rec.Data,
		SourceFormat: pipeline.SourceJSON,
		Training:     training,
		Kinds:        []string{kind},
	})
	if err != nil {
		status, apiErr := apiError(err)
		respondError(w, reqID, status, apiErr)
		return
	}

	nodes := result.Orders[kind]
	rows := make([]orderRow, len(nodes))
	for i, idx := range nodes {
		n := result.View.Node(idx)
		rows[i] = orderRow{
			Position: i,
			Index:    int(idx),
			Name:     n.Name(),
			Op:       n.OpType(),
			Priority: n.Priority(),
		}
	}
	respondOK(w, reqID, orderResponse{
		ID:        id,
		Kind:      kind,
		Training:  training,
		GraphHash: result.GraphHash,
		Cached:    result.CacheInfo.OrderHit,
		Nodes:     rows,
	})
}

// handleRenderGraph returns an SVG of a stored graph with nodes ranked by
// the requested execution order. Query parameters: order (default|priority),
// training (bool), detailed (bool).
func (s *Server) handleRenderGraph(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	kind := r.URL.Query().Get("order")
	if kind == "" {
		kind = pipeline.KindDefault
	}
	if err := pipeline.ValidateKind(kind); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &APIError{
			Code:    apperrors.ErrCodeInvalidOrder,
			Message: err.Error(),
		})
		return
	}
	training, err := boolParam(r, "training")
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, &APIError{
			Code:    apperrors.ErrCodeInvalidInput,
			Message: err.Error(),
		})
		return
	}
	detailed, err := boolParam(r, "detailed")
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, &APIError{
			Code:    apperrors.ErrCodeInvalidInput,
			Message: err.Error(),
		})
		return
	}

	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		status, apiErr := apiError(err)
		respondError(w, reqID, status, apiErr)
		return
	}

	result, err := s.runner.Execute(r.Context(), pipeline.Options{
		Source:       rec.Data,
		SourceFormat: pipeline.SourceJSON,
		Training:     training,
		Kinds:        []string{kind},
		Formats:      []string{pipeline.FormatSVG},
		Detailed:     detailed,
	})
	if err != nil {
		status, apiErr := apiError(err)
		respondError(w, reqID, status, apiErr)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifacts[pipeline.FormatSVG])
}

// boolParam parses an optional boolean query parameter. An absent
// parameter is false.
func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parameter %q must be a boolean, got %q", name, raw)
	}
	return v, nil
}

func argNames(args []*graph.NodeArg) []string {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.Name()
	}
	return names
}

func initializerNames(inits map[string]*graph.TensorDesc) []string {
	names := make([]string, 0, len(inits))
	for name := range inits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
