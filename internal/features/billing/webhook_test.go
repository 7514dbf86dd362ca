package billing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeForEvent(t *testing.T) {
	tests := []struct {
		event   string
		want    PaymentStatus
		handled bool
	}{
		{"payment.succeeded", PaymentSuccessful, true},
		{"payment.canceled", PaymentFailed, true},
		{"payment.waiting_for_capture", "", false},
		{"refund.succeeded", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := outcomeForEvent(tt.event)
		assert.Equal(t, tt.handled, ok, "event %q", tt.event)
		assert.Equal(t, tt.want, got, "event %q", tt.event)
	}
}

func webhookBody(event, providerID, txRef string) string {
	return fmt.Sprintf(`{
		"type": "notification",
		"event": %q,
		"object": {"id": %q, "status": "succeeded", "paid": true, "metadata": {"tx_ref": %q}}
	}`, event, providerID, txRef)
}

func newTestWebhook(t *testing.T, store *fakeBillingStore, cidrs []string, onCredit func(int64, int)) *WebhookHandler {
	t.Helper()
	svc := NewService(store, &fakeProvider{}, allowAll{}, testConfig())
	h, err := NewWebhookHandler(svc, cidrs, onCredit)
	require.NoError(t, err)
	return h
}

func TestWebhook_CreditsOnce(t *testing.T) {
	store := newFakeBillingStore()
	svc := NewService(store, &fakeProvider{}, allowAll{}, testConfig())
	checkout, err := svc.CreateCheckout(context.Background(), 42, 1000)
	require.NoError(t, err)

	var credits []int
	h := newTestWebhook(t, store, nil, func(tgID int64, tries int) {
		credits = append(credits, tries)
	})

	body := webhookBody("payment.succeeded", "prov-1", checkout.TxRef)

	// Провайдер доставляет at-least-once: дважды один и тот же вебхук
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "доставка %d", i+1)
	}

	// Начисление и уведомление ровно одно
	require.Len(t, credits, 1)
	assert.Equal(t, 2, credits[0])
	p, err := store.PaymentByTxRef(context.Background(), checkout.TxRef)
	require.NoError(t, err)
	assert.Equal(t, PaymentSuccessful, p.Status)
}

func TestWebhook_CanceledDoesNotCredit(t *testing.T) {
	store := newFakeBillingStore()
	svc := NewService(store, &fakeProvider{}, allowAll{}, testConfig())
	checkout, err := svc.CreateCheckout(context.Background(), 42, 500)
	require.NoError(t, err)

	credited := false
	h := newTestWebhook(t, store, nil, func(int64, int) { credited = true })

	req := httptest.NewRequest(http.MethodPost, "/webhook/payment",
		strings.NewReader(webhookBody("payment.canceled", "prov-1", checkout.TxRef)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, credited)
	p, _ := store.PaymentByTxRef(context.Background(), checkout.TxRef)
	assert.Equal(t, PaymentFailed, p.Status)
	assert.Zero(t, p.CreditedTries)
}

func TestWebhook_UnknownEventIgnored(t *testing.T) {
	h := newTestWebhook(t, newFakeBillingStore(), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook/payment",
		strings.NewReader(webhookBody("refund.succeeded", "prov-1", "whatever")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhook_UnknownReference(t *testing.T) {
	h := newTestWebhook(t, newFakeBillingStore(), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook/payment",
		strings.NewReader(webhookBody("payment.succeeded", "prov-1", "no-such-ref")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_BadBody(t *testing.T) {
	h := newTestWebhook(t, newFakeBillingStore(), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_MethodNotAllowed(t *testing.T) {
	h := newTestWebhook(t, newFakeBillingStore(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/webhook/payment", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebhook_TrustedCIDRs(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		wantCode   int
	}{
		{"адрес из доверенной подсети", "185.71.76.10:4433", http.StatusOK},
		{"посторонний адрес", "203.0.113.5:80", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestWebhook(t, newFakeBillingStore(), []string{"185.71.76.0/27"}, nil)

			req := httptest.NewRequest(http.MethodPost, "/webhook/payment",
				strings.NewReader(webhookBody("unknown.event", "prov-1", "x")))
			req.RemoteAddr = tt.remoteAddr
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestNewWebhookHandler_BadCIDR(t *testing.T) {
	svc := NewService(newFakeBillingStore(), &fakeProvider{}, allowAll{}, testConfig())
	_, err := NewWebhookHandler(svc, []string{"not-a-cidr"}, nil)
	require.Error(t, err)
}
