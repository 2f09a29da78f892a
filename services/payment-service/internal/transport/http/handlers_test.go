package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/pkg/mq"
	"github.com/Faitltd/FAIT-sub003/pkg/payments"
	"github.com/Faitltd/FAIT-sub003/services/payment-service/internal/service"
)

type stubGateway struct{}

func (stubGateway) CreateCardCharge(_ context.Context, in payments.ChargeRequest) (*payments.Charge, error) {
	return &payments.Charge{ID: "chrg_ok", Status: payments.StatusPending, Purpose: in.Purpose}, nil
}

func (stubGateway) GetCharge(_ context.Context, id string) (*payments.Charge, error) {
	return &payments.Charge{ID: id, Status: payments.StatusSuccessful, UserID: "u-1"}, nil
}

func (stubGateway) RetrieveEvent(_ context.Context, id string) (*payments.Event, error) {
	if id != "evnt_real" {
		return nil, errors.New("event not found")
	}
	return &payments.Event{ID: id, Key: "charge.create"}, nil
}

func newRouter(t *testing.T) (*gin.Engine, *auth.Signer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := service.NewPaymentSvc(stubGateway{}, mq.Nop{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := auth.NewSigner("k")
	return NewRouter(NewHandler(svc), s), s
}

func TestWebhook(t *testing.T) {
	r, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/omise", strings.NewReader(`{"id":"evnt_real","key":"charge.create"}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/omise", strings.NewReader(`{"id":"evnt_fake","key":"charge.complete"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/omise", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCharges(t *testing.T) {
	r, s := newRouter(t)
	tok, err := s.CreateAccessToken("u-1", auth.RoleClient, "", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/charges/card",
		strings.NewReader(`{"purpose":"credits","credits":10,"amount":"9.99","card_token":"tokn_1"}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"charge_id":"chrg_ok"`)

	req = httptest.NewRequest(http.MethodPost, "/v1/payments/charges/card",
		strings.NewReader(`{"purpose":"credits","amount":"9.99","card_token":"tokn_1"}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/payments/charges/chrg_ok", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"successful"`)

	other, err := s.CreateAccessToken("u-2", auth.RoleClient, "", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/v1/payments/charges/chrg_ok", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/payments/charges/chrg_ok", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
