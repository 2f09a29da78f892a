package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/pkg/db"
	"github.com/Faitltd/FAIT-sub003/pkg/mq"
	"github.com/Faitltd/FAIT-sub003/pkg/schedule"
	"github.com/Faitltd/FAIT-sub003/services/booking-service/internal/domain"
	"github.com/Faitltd/FAIT-sub003/services/booking-service/internal/repository"
	"github.com/Faitltd/FAIT-sub003/services/booking-service/internal/service"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type env struct {
	r      *gin.Engine
	signer *auth.Signer
	pkgID  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "booking.db"))
	require.NoError(t, err)
	repo := repository.NewBookingRepo(gdb)
	require.NoError(t, repo.Migrate())

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewBookingSvc(repo, nil, mq.Nop{}, log, service.WithClock(func() time.Time { return now }))
	p, err := svc.CreatePackage(context.Background(), domain.Actor{ID: "agent-1", Role: auth.RoleServiceAgent},
		service.PackageInput{Title: "Window washing", Price: decimal.NewFromInt(80)})
	require.NoError(t, err)

	signer := auth.NewSigner("test-secret")
	return &env{r: NewRouter(NewHandler(svc), signer), signer: signer, pkgID: p.ID}
}

func (e *env) do(t *testing.T, method, path, sub, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if sub != "" {
		tok, err := e.signer.CreateAccessToken(sub, role, sub+"@example.com", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *env) booking(date string) map[string]any {
	return map[string]any{
		"service_package_id": e.pkgID,
		"scheduled_date":     date,
		"scheduled_time":     "09:30",
		"address":            "42 Elm St",
		"city":               "Boulder",
	}
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodGet, "/healthz", "", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequiresToken(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodGet, "/v1/bookings", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateGetCancel(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/v1/bookings", "client-1", auth.RoleClient, e.booking("2024-06-10"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var b domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, domain.StatusPending, b.Status)
	assert.Equal(t, "agent-1", b.ServiceAgentID)

	w = e.do(t, http.MethodGet, "/v1/bookings/"+b.ID, "client-2", auth.RoleClient, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/v1/bookings/"+b.ID+"/refund-quote", "client-1", auth.RoleClient, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var q map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, 1.0, q["fraction"])
	assert.Equal(t, false, q["refundable"])

	w = e.do(t, http.MethodPost, "/v1/bookings/"+b.ID+"/cancel", "client-1", auth.RoleClient, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "reason required")

	w = e.do(t, http.MethodPost, "/v1/bookings/"+b.ID+"/cancel", "client-1", auth.RoleClient, map[string]string{"reason": "moving"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, domain.StatusCancelled, b.Status)
	assert.Equal(t, "moving", b.CancellationReason)

	w = e.do(t, http.MethodPost, "/v1/bookings/"+b.ID+"/cancel", "client-1", auth.RoleClient, map[string]string{"reason": "again"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreate_BadRequest(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/v1/bookings", "client-1", auth.RoleClient, map[string]string{"address": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := e.booking("10/06/2024")
	w = e.do(t, http.MethodPost, "/v1/bookings", "client-1", auth.RoleClient, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = e.booking("2024-06-10")
	body["service_package_id"] = "nope"
	w = e.do(t, http.MethodPost, "/v1/bookings", "client-1", auth.RoleClient, body)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecurring(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/v1/bookings/recurring/preview", "client-1", auth.RoleClient,
		map[string]any{"start_date": "2024-01-31", "cadence": "monthly", "occurrences": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dates":["2024-01-31","2024-02-29","2024-03-31"]}`, w.Body.String())

	w = e.do(t, http.MethodPost, "/v1/bookings/recurring/preview", "client-1", auth.RoleClient,
		map[string]any{"start_date": "2024-01-31", "cadence": "hourly", "occurrences": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := e.booking("2024-06-03")
	body["cadence"] = "weekly"
	body["occurrences"] = schedule.Occurrences[1]
	w = e.do(t, http.MethodPost, "/v1/bookings/recurring", "client-1", auth.RoleClient, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Bookings []domain.Booking `json:"bookings"`
		Group    string           `json:"recurrence_group"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Bookings, 3)

	w = e.do(t, http.MethodGet, "/v1/bookings/groups/"+out.Group, "agent-1", auth.RoleServiceAgent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "2024-06-17", out.Bookings[2].ScheduledDate.Format(domain.DateLayout))

	body["card_token"] = "tokn_1"
	w = e.do(t, http.MethodPost, "/v1/bookings/recurring", "client-1", auth.RoleClient, body)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "no payments provider configured")

	w = e.do(t, http.MethodGet, "/v1/bookings", "client-1", auth.RoleClient, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":3`, "a rejected card request books nothing")
}

func TestProviderRoutes(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodPost, "/v1/bookings", "client-1", auth.RoleClient, e.booking("2024-06-10"))
	require.Equal(t, http.StatusCreated, w.Code)
	var b domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))

	w = e.do(t, http.MethodPost, "/v1/bookings/"+b.ID+"/accept", "client-1", auth.RoleClient, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/v1/bookings/"+b.ID+"/accept", "agent-1", auth.RoleServiceAgent, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/v1/bookings/"+b.ID+"/decline", "agent-1", auth.RoleServiceAgent, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/v1/bookings/"+b.ID+"/reschedule", "client-1", auth.RoleClient,
		map[string]string{"scheduled_date": "2024-06-11", "scheduled_time": "11:00"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/v1/bookings/"+b.ID+"/complete", "agent-1", auth.RoleServiceAgent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, domain.StatusCompleted, b.Status)

	w = e.do(t, http.MethodGet, "/v1/bookings?status=completed", "agent-1", auth.RoleServiceAgent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestPackages(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/v1/packages", "client-1", auth.RoleClient, map[string]any{"title": "x", "price": 10})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/v1/packages", "agent-2", auth.RoleServiceAgent,
		map[string]any{"title": "Carpet cleaning", "price": "149.50", "duration": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p domain.ServicePackage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "agent-2", p.ServiceAgentID)

	w = e.do(t, http.MethodGet, "/v1/packages/"+p.ID, "client-1", auth.RoleClient, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, fmt.Sprintf("/v1/packages?service_agent_id=%s", "agent-2"), "client-1", auth.RoleClient, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Carpet cleaning")
	assert.NotContains(t, w.Body.String(), "Window washing")
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrInvalidTransition, http.StatusConflict},
		{domain.ErrPaymentDeclined, http.StatusPaymentRequired},
		{fmt.Errorf("%w: %w", domain.ErrRefundFailed, domain.ErrPaymentsDisabled), http.StatusBadGateway},
		{domain.ErrPaymentsDisabled, http.StatusServiceUnavailable},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{schedule.ErrInvalidOccurrences, http.StatusBadRequest},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}
