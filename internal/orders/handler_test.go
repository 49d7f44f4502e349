package orders

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-shop/harmonia/internal/inventory"
)

const testSecret = "whsec_test"

func newTestHandler(t *testing.T) (*Handler, *fakeInventory, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	inv := &fakeInventory{result: inventory.BatchResult{Success: true}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, inv, &fakeIdempotency{}, &fakeNotifier{}, logger)
	return NewHandler(logger, svc, repo, testSecret), inv, repo
}

func postWebhook(t *testing.T, h *Handler, secret string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/webhooks", h.MountWebhookRoutes)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPaymentWebhookRejectsBadSecret(t *testing.T) {
	h, inv, _ := newTestHandler(t)

	rec := postWebhook(t, h, "wrong", testEvent())
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, inv.calls)
}

func TestPaymentWebhookRejectsInvalidPayload(t *testing.T) {
	h, inv, _ := newTestHandler(t)

	event := testEvent()
	event.Email = "not-an-email"
	rec := postWebhook(t, h, testSecret, event)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, inv.calls)
}

func TestPaymentWebhookIgnoresOtherEventTypes(t *testing.T) {
	h, inv, _ := newTestHandler(t)

	event := testEvent()
	event.Type = "checkout.session.expired"
	rec := postWebhook(t, h, testSecret, event)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ignored", body["status"])
	require.Empty(t, inv.calls)
}

func TestPaymentWebhookCreatesOrder(t *testing.T) {
	h, inv, repo := newTestHandler(t)

	rec := postWebhook(t, h, testSecret, testEvent())
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.NotEmpty(t, body["orderNumber"])
	require.Len(t, inv.calls, 1)
	require.Len(t, repo.orders, 1)
}

func TestPaymentWebhookDuplicateReturnsOK(t *testing.T) {
	h, inv, _ := newTestHandler(t)

	event := testEvent()
	rec := postWebhook(t, h, testSecret, event)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postWebhook(t, h, testSecret, event)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "already_processed", body["status"])
	require.Len(t, inv.calls, 1)
}
