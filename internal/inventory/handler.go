package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/harmonia-shop/harmonia/internal/audit"
	"github.com/harmonia-shop/harmonia/internal/platform/httpx"
)

// Handler exposes the inventory service over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the inventory HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountCheckoutRoutes registers the customer-facing validation endpoint.
func (h *Handler) MountCheckoutRoutes(r chi.Router) {
	r.Post("/validate-stock", h.ValidateStock)
}

// MountAdminRoutes registers admin inventory endpoints.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/alerts", h.Alerts)
	r.Post("/adjustments", h.Adjust)
}

type validateStockRequest struct {
	Items []CartItem `json:"items" validate:"required,min=1,dive"`
}

// ValidateStock runs the advisory pre-checkout check. Failures return 400
// with the per-item buckets so the storefront can render them.
func (h *Handler) ValidateStock(w http.ResponseWriter, r *http.Request) {
	var req validateStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.ValidateStock(r.Context(), req.Items)
	if err != nil {
		h.logger.Error("validate stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	status := http.StatusOK
	if !result.IsValid {
		status = http.StatusBadRequest
	}
	httpx.JSON(w, status, result)
}

// Alerts returns the current low-stock scan.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.GetLowStockAlerts(r.Context())
	if err != nil {
		h.logger.Error("low stock alerts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

type adjustItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	VariantID uuid.UUID `json:"variantId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

type adjustStockRequest struct {
	ChangeType audit.ChangeType    `json:"changeType" validate:"required,oneof=restock return cancellation release"`
	Items      []adjustItemRequest `json:"items" validate:"required,min=1,dive"`
}

// Adjust applies an admin stock increase (restock, return, cancellation or
// release) through the batch path.
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	items := make([]LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, LineItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}

	result, err := h.service.IncreaseStock(r.Context(), items, req.ChangeType)
	if err != nil {
		h.logger.Error("increase stock", slog.Any("error", err), slog.String("change_type", string(req.ChangeType)))
		httpx.RespondError(w, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusMultiStatus
	}
	httpx.JSON(w, status, result)
}
