// Package revisionhttp serves the revision history endpoints shared by every
// managed resource.
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

// HistoryService reads revision history.
type HistoryService interface {
	EntityHistory(ctx context.Context, entityType, entityID string) ([]revision.Revision, error)
	Timeline(ctx context.Context, filters revision.TimelineFilters) (revision.TimelineResult, error)
}

// Handler serves history endpoints for one entity type.
type Handler struct {
	logger     *slog.Logger
	reader     HistoryService
	entityType string
}

// NewHandler builds a history handler bound to an entity type.
func NewHandler(logger *slog.Logger, reader HistoryService, entityType string) *Handler {
	return &Handler{logger: logger, reader: reader, entityType: entityType}
}

// MountRoutes registers the history routes on a resource subrouter.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/history", h.timeline)
	r.Get("/history/entity/{entityID}", h.entityHistory)
}

type historyRow struct {
	revision.Revision
	PreviousDisplay string `json:"previousDisplay"`
	CurrentDisplay  string `json:"currentDisplay"`
}

type entityHistoryResponse struct {
	History []historyRow `json:"history"`
	Notice  string       `json:"notice,omitempty"`
}

// entityHistory returns the full ordered history for one entity. A failed
// fetch degrades to an empty history with a notice; it never fails the screen.
func (h *Handler) entityHistory(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	locale := actorLocale(r)

	history, err := h.reader.EntityHistory(r.Context(), h.entityType, entityID)
	if err != nil {
		if errors.Is(err, revision.ErrHistoryUnavailable) {
			h.logger.Warn("history unavailable",
				slog.String("entity_type", h.entityType),
				slog.String("entity_id", entityID),
				slog.Any("error", err))
			httpx.JSON(w, http.StatusOK, entityHistoryResponse{
				History: []historyRow{},
				Notice:  "History is temporarily unavailable.",
			})
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entityHistoryResponse{History: displayRows(history, locale)})
}

type timelineResponse struct {
	Rows   []historyRow        `json:"rows"`
	Paging revision.PagingInfo `json:"paging"`
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters := revision.TimelineFilters{
		EntityType: h.entityType,
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
			h.logger.Warn("timeline unavailable", slog.String("entity_type", h.entityType), slog.Any("error", err))
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

func displayRows(revisions []revision.Revision, locale string) []historyRow {
	rows := make([]historyRow, 0, len(revisions))
	for _, rev := range revisions {
		rows = append(rows, historyRow{
			Revision:        rev,
			PreviousDisplay: revision.FormatValue(rev.FieldName, rev.PreviousValue, locale),
			CurrentDisplay:  revision.FormatValue(rev.FieldName, rev.CurrentValue, locale),
		})
	}
	return rows
}

func actorLocale(r *http.Request) string {
	if actor := shared.ActorFromContext(r.Context()); actor != nil && actor.Locale != "" {
		return actor.Locale
	}
	return "en"
}
