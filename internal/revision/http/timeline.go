package revisionhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keystone-admin/keystone/internal/platform/httpx"
	"github.com/keystone-admin/keystone/internal/revision"
	"github.com/keystone-admin/keystone/internal/shared"
)

// Exporter enqueues a background CSV export of revision history.
type Exporter interface {
	Enqueue(ctx context.Context, entityType, entityID, requestedBy, locale string) error
}

// TimelineHandler serves the cross-entity admin timeline. Unlike the
// per-resource history routes it is not bound to one entity type; the type is
// an optional filter.
type TimelineHandler struct {
	logger  *slog.Logger
	reader  HistoryService
	exports Exporter
}

// NewTimelineHandler builds the cross-entity timeline handler.
func NewTimelineHandler(logger *slog.Logger, reader HistoryService, exports Exporter) *TimelineHandler {
	return &TimelineHandler{logger: logger, reader: reader, exports: exports}
}

// MountRoutes registers the timeline routes.
func (h *TimelineHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.timeline)
	r.Post("/export", h.export)
}

func (h *TimelineHandler) timeline(w http.ResponseWriter, r *http.Request) {
	filters := revision.TimelineFilters{
		EntityType: r.URL.Query().Get("entityType"),
		Actor:      r.URL.Query().Get("actor"),
		Op:         revision.Op(r.URL.Query().Get("operation")),
	}
	if v := r.URL.Query().Get("page"); v != "" {
		filters.Page, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("pageSize"); v != "" {
		filters.PageSize, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.From = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.To = t
		}
	}

	result, err := h.reader.Timeline(r.Context(), filters)
	if err != nil {
		if errors.Is(err, revision.ErrHistoryUnavailable) {
			h.logger.Warn("timeline unavailable", slog.Any("error", err))
			httpx.JSON(w, http.StatusOK, timelineResponse{Rows: []historyRow{}})
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, timelineResponse{
		Rows:   displayRows(result.Rows, actorLocale(r)),
		Paging: result.Paging,
	})
}

type exportRequest struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
}

func (h *TimelineHandler) export(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Export Unavailable", "export worker is not configured")
		return
	}
	var req exportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.EntityType == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "entityType is required")
		return
	}
	requestedBy := ""
	locale := actorLocale(r)
	if actor := shared.ActorFromContext(r.Context()); actor != nil {
		requestedBy = actor.ID
	}
	if err := h.exports.Enqueue(r.Context(), req.EntityType, req.EntityID, requestedBy, locale); err != nil {
		h.logger.Error("enqueue history export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
