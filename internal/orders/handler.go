package orders

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/harmonia-shop/harmonia/internal/platform/httpx"
	"github.com/harmonia-shop/harmonia/internal/shared"
)

// Handler receives payment gateway webhooks and serves admin order reads.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	repo          Repository
	webhookSecret string
	validator     *validator.Validate
}

// NewHandler constructs the orders HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, repo Repository, webhookSecret string) *Handler {
	return &Handler{
		logger:        logger,
		service:       service,
		repo:          repo,
		webhookSecret: webhookSecret,
		validator:     validator.New(),
	}
}

// MountWebhookRoutes registers the payment webhook endpoint.
func (h *Handler) MountWebhookRoutes(r chi.Router) {
	r.Post("/payment", h.PaymentWebhook)
}

// MountAdminRoutes registers admin order endpoints.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{orderID}", h.Show)
}

// PaymentWebhook handles "order paid" events. Once the payload parses, the
// response is always 2xx: a non-2xx would make the gateway retry an event
// whose payment is already captured.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret != "" {
		provided := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.webhookSecret)) != 1 {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid webhook secret")
			return
		}
	}

	var event CheckoutEvent
	if err := httpx.DecodeJSON(r, &event); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(event); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if event.Type != EventTypeCheckoutCompleted {
		httpx.JSON(w, http.StatusOK, map[string]any{"status": "ignored", "type": event.Type})
		return
	}

	result, err := h.service.ProcessPaidCheckout(r.Context(), event)
	if err != nil {
		// The event parsed but ingestion could not even start; let the
		// gateway retry this one.
		h.logger.Error("process paid checkout", slog.Any("error", err), slog.String("session_id", event.SessionID))
		httpx.RespondError(w, err)
		return
	}
	if result.Duplicate {
		httpx.JSON(w, http.StatusOK, map[string]any{"status": "already_processed"})
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"orderId":     result.Order.ID,
		"orderNumber": result.Order.Number,
	})
}

// List returns a page of order headers, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	list, total, err := h.repo.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders":     list,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

// Show returns one order with its lines and private notes.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Order ID", err.Error())
		return
	}

	order, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "order not found")
			return
		}
		h.logger.Error("get order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}
