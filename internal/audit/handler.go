package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harmonia-shop/harmonia/internal/platform/httpx"
)

// Handler serves read-only admin endpoints over the audit trail.
type Handler struct {
	logger *slog.Logger
	store  Store
}

// NewHandler constructs the audit HTTP handler.
func NewHandler(logger *slog.Logger, store Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers audit routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/history/{productID}/{variantID}", h.History)
	r.Get("/orders/{orderID}", h.ByOrder)
	r.Get("/stats", h.Stats)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Product ID", err.Error())
		return
	}
	variantID, err := uuid.Parse(chi.URLParam(r, "variantID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Variant ID", err.Error())
		return
	}

	filter := HistoryFilter{}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}
	filter.StartDate = parseDate(r.URL.Query().Get("start_date"))
	filter.EndDate = parseDate(r.URL.Query().Get("end_date"))

	entries, err := h.store.GetHistory(r.Context(), productID, variantID, filter)
	if err != nil {
		h.logger.Error("get audit history", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) ByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Order ID", err.Error())
		return
	}

	entries, err := h.store.GetByOrder(r.Context(), orderID)
	if err != nil {
		h.logger.Error("get audit entries by order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	filter := StatsFilter{
		StartDate:  parseDate(r.URL.Query().Get("start_date")),
		EndDate:    parseDate(r.URL.Query().Get("end_date")),
		ChangeType: ChangeType(r.URL.Query().Get("change_type")),
	}

	stats, err := h.store.GetStats(r.Context(), filter)
	if err != nil {
		h.logger.Error("get audit stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t
	}
	return time.Time{}
}
