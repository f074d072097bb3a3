package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenchat/billing-backend/internal/ingress"
	"github.com/lumenchat/billing-backend/internal/paymentevent"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
)

type stubCoinremitterService struct {
	outcome paymentevent.Outcome
	err     error
	calls   int
	last    ingress.Payload
}

func (s *stubCoinremitterService) HandlePayload(_ context.Context, payload ingress.Payload) (paymentevent.Outcome, error) {
	s.calls++
	s.last = payload
	return s.outcome, s.err
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/coinremitter", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeAck(t *testing.T, rec *httptest.ResponseRecorder) ackResponse {
	t.Helper()
	var envelope struct {
		Data ackResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestCoinremitterWebhookAcknowledgesPing(t *testing.T) {
	svc := &stubCoinremitterService{}
	handler := CoinremitterWebhook(svc, nil, nil)

	rec := postJSON(t, handler, `{"ping":"pong"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeAck(t, rec).Success)
	assert.Zero(t, svc.calls)
}

func TestCoinremitterWebhookAcknowledgesEmptyBody(t *testing.T) {
	svc := &stubCoinremitterService{}
	handler := CoinremitterWebhook(svc, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/coinremitter", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestCoinremitterWebhookServiceErrorIsReturned(t *testing.T) {
	svc := &stubCoinremitterService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "status code mismatch")}
	handler := CoinremitterWebhook(svc, nil, nil)

	rec := postJSON(t, handler, `{"invoice_id":"INV1","status_code":"1"}`)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, 1, svc.calls)
}

func TestCoinremitterWebhookProcessedDelivery(t *testing.T) {
	svc := &stubCoinremitterService{outcome: paymentevent.OutcomeProcessed}
	handler := CoinremitterWebhook(svc, nil, nil)

	rec := postJSON(t, handler, `{"invoice_id":"INV1","status_code":"1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	ack := decodeAck(t, rec)
	assert.True(t, ack.Success)
	assert.Empty(t, ack.Message)
	require.Equal(t, 1, svc.calls)
	assert.Equal(t, "INV1", svc.last.Get("invoice_id"))
}

func TestCoinremitterWebhookAlreadyProcessedOutcome(t *testing.T) {
	svc := &stubCoinremitterService{outcome: paymentevent.OutcomeAlreadyProcessed}
	handler := CoinremitterWebhook(svc, nil, nil)

	rec := postJSON(t, handler, `{"invoice_id":"INV1","status_code":"1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	ack := decodeAck(t, rec)
	assert.True(t, ack.Success)
	assert.Equal(t, "Already processed", ack.Message)
}

func TestLiveness(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/coinremitter", nil)
	rec := httptest.NewRecorder()
	Liveness().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
