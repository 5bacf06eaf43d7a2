package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pos/internal/domain"
	"pos/internal/gateway"
	"pos/internal/gateway/gatewaytest"
	"pos/internal/service"
)

func newTestRouter(t *testing.T, gw *gatewaytest.Gateway, cfg service.PaymentConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	poller := service.NewPoller(gw, service.PollerConfig{MaxAttempts: 5}, zap.NewNop())
	poller.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	tasks := service.NewBackgroundRunner(time.Second, zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = tasks.Shutdown(ctx)
	})

	payments := NewPaymentHandler(service.NewPaymentService(gw, poller, tasks, cfg, zap.NewNop()))
	webhooks := NewWebhookHandler(service.NewWebhookService(gw, service.NewNotificationService(nil, zap.NewNop()), zap.NewNop()))

	r := gin.New()
	r.POST("/create-payment-intent", payments.CreatePaymentIntent)
	r.POST("/process-on-reader", payments.ProcessOnReader)
	r.POST("/cancel-payment", payments.CancelPayment)
	r.POST("/webhook", webhooks.HandleWebhook)
	return r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestCreatePaymentIntent(t *testing.T) {
	gw := gatewaytest.New()
	r := newTestRouter(t, gw, service.PaymentConfig{ReaderID: "tmr_123"})

	req := httptest.NewRequest(http.MethodPost, "/create-payment-intent",
		strings.NewReader(`{"amount":1000,"currency":"usd","metadata":{"order":"A1"},"receipt_email":"a@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "order-A1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"payment_intent":"pi_123"}`, w.Body.String())

	require.Len(t, gw.CreatedWith, 1)
	assert.Equal(t, "order-A1", gw.CreatedWith[0].IdempotencyKey)
	assert.Equal(t, "a@example.com", gw.CreatedWith[0].ReceiptEmail)
	assert.Equal(t, map[string]string{"order": "A1"}, gw.CreatedWith[0].Metadata)
}

func TestCreatePaymentIntent_MissingAmount(t *testing.T) {
	for _, body := range []string{`{}`, `{"amount":0}`, `{"amount":-5,"currency":"usd"}`, ``} {
		gw := gatewaytest.New()
		r := newTestRouter(t, gw, service.PaymentConfig{})

		w := postJSON(r, "/create-payment-intent", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
		assert.Equal(t, "missing amount", decode(t, w)["error"])
		assert.Equal(t, 0, gatewaytest.Calls(&gw.CreateCalls))
	}
}

func TestCreatePaymentIntent_MalformedBody(t *testing.T) {
	gw := gatewaytest.New()
	r := newTestRouter(t, gw, service.PaymentConfig{})

	w := postJSON(r, "/create-payment-intent", `{"amount":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, gatewaytest.Calls(&gw.CreateCalls))
}

func TestCreatePaymentIntent_GatewayError(t *testing.T) {
	gw := gatewaytest.New()
	gw.CreateError = &gateway.Error{Op: "create_intent", StatusCode: 400, Message: "Invalid currency: zzz"}
	r := newTestRouter(t, gw, service.PaymentConfig{})

	w := postJSON(r, "/create-payment-intent", `{"amount":1000,"currency":"zzz"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Invalid currency: zzz"}`, w.Body.String())
}

func TestProcessOnReader_MissingIntent(t *testing.T) {
	gw := gatewaytest.New()
	r := newTestRouter(t, gw, service.PaymentConfig{ReaderID: "tmr_123"})

	w := postJSON(r, "/process-on-reader", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing payment_intent", decode(t, w)["error"])
	assert.Equal(t, 0, gatewaytest.Calls(&gw.DispatchCalls))
}

func TestProcessOnReader_Outcomes(t *testing.T) {
	testCases := []struct {
		name     string
		statuses []domain.IntentStatus
		decline  string
		wantCode int
	}{
		{name: "succeeded", statuses: []domain.IntentStatus{domain.IntentStatusProcessing, domain.IntentStatusSucceeded}, wantCode: http.StatusOK},
		{name: "declined", statuses: []domain.IntentStatus{domain.IntentStatusRequiresPaymentMethod}, decline: "Your card was declined.", wantCode: http.StatusPaymentRequired},
		{name: "canceled", statuses: []domain.IntentStatus{domain.IntentStatusCanceled}, wantCode: http.StatusConflict},
		{name: "timeout", statuses: []domain.IntentStatus{domain.IntentStatusProcessing}, wantCode: http.StatusGatewayTimeout},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gw := gatewaytest.New()
			gw.Statuses = tc.statuses
			gw.LastPaymentError = tc.decline
			r := newTestRouter(t, gw, service.PaymentConfig{ReaderID: "tmr_123"})

			w := postJSON(r, "/process-on-reader", `{"payment_intent":"pi_123"}`)
			assert.Equal(t, tc.wantCode, w.Code)

			body := decode(t, w)
			if tc.wantCode == http.StatusOK {
				assert.Equal(t, true, body["success"])
				return
			}
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestProcessOnReader_GatewayError(t *testing.T) {
	gw := gatewaytest.New()
	gw.DispatchError = &gateway.Error{Op: "process_payment_intent", Message: "Reader is currently busy"}
	r := newTestRouter(t, gw, service.PaymentConfig{ReaderID: "tmr_123"})

	w := postJSON(r, "/process-on-reader", `{"payment_intent":"pi_123"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Reader is currently busy"}`, w.Body.String())
}

func TestProcessOnReader_CollectsContactAfterSuccess(t *testing.T) {
	gw := gatewaytest.New()
	r := newTestRouter(t, gw, service.PaymentConfig{ReaderID: "tmr_123", CollectCustomerContact: true})

	w := postJSON(r, "/process-on-reader", `{"payment_intent":"pi_123"}`)
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case <-gw.Collected:
	case <-time.After(time.Second):
		t.Fatal("contact collection was not scheduled")
	}
}

func TestProcessOnReader_ContactFailureDoesNotAffectResponse(t *testing.T) {
	gw := gatewaytest.New()
	gw.CollectError = errors.New("reader offline")
	r := newTestRouter(t, gw, service.PaymentConfig{ReaderID: "tmr_123", CollectCustomerContact: true})

	w := postJSON(r, "/process-on-reader", `{"payment_intent":"pi_123"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])
}

func TestCancelPayment(t *testing.T) {
	gw := gatewaytest.New()
	gw.CancelActionError = &gateway.Error{Op: "cancel_action", Code: "terminal_reader_action_not_allowed", Err: gateway.ErrNoReaderAction}
	r := newTestRouter(t, gw, service.PaymentConfig{ReaderID: "tmr_123"})

	w := postJSON(r, "/cancel-payment", `{"payment_intent":"pi_123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Equal(t, "pi_123", gw.CanceledIntent)
}

func TestCancelPayment_IntentError(t *testing.T) {
	gw := gatewaytest.New()
	gw.CancelIntentError = &gateway.Error{Op: "cancel_intent", Message: "No such payment_intent: 'pi_x'"}
	r := newTestRouter(t, gw, service.PaymentConfig{ReaderID: "tmr_123"})

	w := postJSON(r, "/cancel-payment", `{"payment_intent":"pi_x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "No such payment_intent: 'pi_x'", decode(t, w)["error"])
}

func TestWebhook_InvalidSignature(t *testing.T) {
	gw := gatewaytest.New()
	gw.VerifyError = errors.Join(gateway.ErrInvalidSignature, errors.New("timestamp outside tolerance"))
	r := newTestRouter(t, gw, service.PaymentConfig{})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Webhook Error: "), w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestWebhook_Received(t *testing.T) {
	gw := gatewaytest.New()
	gw.Event = &domain.WebhookEvent{ID: "evt_1", Type: domain.EventPaymentIntentSucceeded, ObjectID: "pi_123"}
	r := newTestRouter(t, gw, service.PaymentConfig{})

	w := postJSON(r, "/webhook", `{"id":"evt_1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}

func TestPages(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pages, err := NewPageHandler(fstest.MapFS{
		"index.html": {Data: []byte("<h1>landing</h1>")},
		"pos.html":   {Data: []byte("<h1>pos</h1>")},
	})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/", pages.Index)
	r.GET("/pos", pages.POS)
	r.NoRoute(pages.NotFound)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "<h1>landing</h1>", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pos", nil))
	assert.Equal(t, "<h1>pos</h1>", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Page not found.", w.Body.String())
}

func TestNewPageHandler_MissingPage(t *testing.T) {
	_, err := NewPageHandler(fstest.MapFS{"index.html": {Data: []byte("x")}})
	assert.Error(t, err)
}
