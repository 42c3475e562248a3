package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	"github.com/advanced-rising/vanillameta/pkg/models"
	"github.com/advanced-rising/vanillameta/pkg/services"
)

// TestConnectionRequest is the body of POST /api/connections/test.
type TestConnectionRequest struct {
	Engine string         `json:"engine"`
	Config map[string]any `json:"config"`
}

// ExecuteQueryRequest is the body of POST /api/connections/{id}/query.
type ExecuteQueryRequest struct {
	Query string `json:"query"`
}

// EnginesResponse lists the engines the service can connect to.
type EnginesResponse struct {
	Engines []datasource.EngineInfo `json:"engines"`
}

// ConnectionsHandler exposes connectivity probes and ad-hoc queries.
type ConnectionsHandler struct {
	service services.ConnectionService
	logger  *zap.Logger
}

// NewConnectionsHandler creates a connections handler.
func NewConnectionsHandler(service services.ConnectionService, logger *zap.Logger) *ConnectionsHandler {
	return &ConnectionsHandler{service: service, logger: logger}
}

// RegisterRoutes registers the connection endpoints.
func (h *ConnectionsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/engines", h.ListEngines)
	mux.HandleFunc("POST /api/connections/test", h.TestConnection)
	mux.HandleFunc("POST /api/connections/{id}/query", h.ExecuteQuery)
	mux.HandleFunc("DELETE /api/connections/{id}/handle", h.RemoveHandle)
}

// ListEngines handles GET /api/engines.
func (h *ConnectionsHandler) ListEngines(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, EnginesResponse{Engines: h.service.ListEngines()}); err != nil {
		h.logger.Error("Failed to encode engines response", zap.Error(err))
	}
}

// TestConnection handles POST /api/connections/test. Probe failures are
// reported in the body with HTTP 200; only malformed requests get a 4xx.
func (h *ConnectionsHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req TestConnectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Engine) == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "engine is required")
		return
	}

	result := h.service.TestConnection(r.Context(), models.ParseEngineKind(req.Engine), req.Config)
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode test result", zap.Error(err))
	}
}

// ExecuteQuery handles POST /api/connections/{id}/query.
func (h *ConnectionsHandler) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req ExecuteQueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	result := h.service.ExecuteQuery(r.Context(), id, req.Query)
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode query result", zap.Error(err))
	}
}

// RemoveHandle handles DELETE /api/connections/{id}/handle.
func (h *ConnectionsHandler) RemoveHandle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveConnection(id); err != nil {
		h.logger.Warn("Failed to release handle", zap.Int64("connection_id", id), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "release_failed", "Failed to release handle")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid connection id")
		return 0, false
	}
	return id, true
}
