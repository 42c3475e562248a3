package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/advanced-rising/vanillameta/pkg/apperrors"
	"github.com/advanced-rising/vanillameta/pkg/models"
	"github.com/advanced-rising/vanillameta/pkg/services"
)

// CreateDatabaseRequest is the body of POST /api/databases.
type CreateDatabaseRequest struct {
	Name   string         `json:"name"`
	Engine string         `json:"engine"`
	Config map[string]any `json:"config"`
}

// UpdateDatabaseRequest is the body of PUT /api/databases/{id}.
type UpdateDatabaseRequest struct {
	Config map[string]any `json:"config"`
}

// DatabaseResponse is a stored connection as returned by the API.
type DatabaseResponse struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Engine    string         `json:"engine"`
	Config    map[string]any `json:"config,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DatabasesListResponse wraps a list of stored connections.
type DatabasesListResponse struct {
	Databases []DatabaseResponse `json:"databases"`
}

// DatabasesHandler manages stored connection configs.
type DatabasesHandler struct {
	service services.DatabaseService
	logger  *zap.Logger
}

// NewDatabasesHandler creates a databases handler.
func NewDatabasesHandler(service services.DatabaseService, logger *zap.Logger) *DatabasesHandler {
	return &DatabasesHandler{service: service, logger: logger}
}

// RegisterRoutes registers the database CRUD endpoints.
func (h *DatabasesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/databases", h.List)
	mux.HandleFunc("POST /api/databases", h.Create)
	mux.HandleFunc("GET /api/databases/{id}", h.Get)
	mux.HandleFunc("PUT /api/databases/{id}", h.Update)
	mux.HandleFunc("DELETE /api/databases/{id}", h.Delete)
}

// List handles GET /api/databases.
func (h *DatabasesHandler) List(w http.ResponseWriter, r *http.Request) {
	conns, err := h.service.List(r.Context())
	if err != nil {
		h.writeServiceError(w, "list databases", err)
		return
	}

	resp := DatabasesListResponse{Databases: make([]DatabaseResponse, 0, len(conns))}
	for _, c := range conns {
		resp.Databases = append(resp.Databases, toDatabaseResponse(c, nil))
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode databases response", zap.Error(err))
	}
}

// Create handles POST /api/databases.
func (h *DatabasesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDatabaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Engine) == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "name and engine are required")
		return
	}

	conn, err := h.service.Create(r.Context(), req.Name, models.ParseEngineKind(req.Engine), req.Config)
	if err != nil {
		h.writeServiceError(w, "create database", err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, toDatabaseResponse(conn, nil)); err != nil {
		h.logger.Error("Failed to encode database response", zap.Error(err))
	}
}

// Get handles GET /api/databases/{id}. Secrets in the config are redacted.
func (h *DatabasesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	conn, cfg, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "get database", err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, toDatabaseResponse(conn, cfg)); err != nil {
		h.logger.Error("Failed to encode database response", zap.Error(err))
	}
}

// Update handles PUT /api/databases/{id}.
func (h *DatabasesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateDatabaseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.service.UpdateConfig(r.Context(), id, req.Config); err != nil {
		h.writeServiceError(w, "update database", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/databases/{id}.
func (h *DatabasesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, "delete database", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DatabasesHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "Database not found")
	case errors.Is(err, apperrors.ErrConflict):
		_ = ErrorResponse(w, http.StatusConflict, "conflict", "A database with that name already exists")
	case errors.Is(err, apperrors.ErrInvalidConfig), errors.Is(err, apperrors.ErrUnsupportedEngine):
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		h.logger.Error("Failed to "+op, zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to "+op)
	}
}

func toDatabaseResponse(c *models.StoredConnection, cfg map[string]any) DatabaseResponse {
	return DatabaseResponse{
		ID:        c.ID,
		Name:      c.Name,
		Engine:    c.Engine.String(),
		Config:    cfg,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
