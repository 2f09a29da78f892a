package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Faitltd/FAIT-sub003/pkg/middlewares"
	"github.com/Faitltd/FAIT-sub003/services/booking-service/internal/domain"
	"github.com/Faitltd/FAIT-sub003/services/booking-service/internal/repository"
	"github.com/Faitltd/FAIT-sub003/services/booking-service/internal/service"
)

type Handler struct {
	svc *service.BookingSvc
}

func NewHandler(s *service.BookingSvc) *Handler {
	return &Handler{svc: s}
}

func actor(c *gin.Context) domain.Actor {
	sub, role := middlewares.Identity(c)
	return domain.Actor{ID: sub, Role: role}
}

// statusOf maps service errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrRefundFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrPaymentsDisabled):
		return http.StatusServiceUnavailable
	case service.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusOf(err), gin.H{"error": err.Error()})
}

type bookingReq struct {
	ClientID         string `json:"client_id"`
	ServicePackageID string `json:"service_package_id" binding:"required"`
	ScheduledDate    string `json:"scheduled_date" binding:"required"` // YYYY-MM-DD
	ScheduledTime    string `json:"scheduled_time" binding:"required"` // HH:MM
	Address          string `json:"address" binding:"required"`
	City             string `json:"city"`
	State            string `json:"state"`
	ZipCode          string `json:"zip_code"`
	Notes            string `json:"notes"`
}

func (r bookingReq) input() (service.CreateInput, error) {
	d, err := domain.ParseDate(r.ScheduledDate)
	if err != nil {
		return service.CreateInput{}, err
	}
	return service.CreateInput{
		ClientID:         r.ClientID,
		ServicePackageID: r.ServicePackageID,
		Date:             d,
		Time:             r.ScheduledTime,
		Address:          r.Address,
		City:             r.City,
		State:            r.State,
		ZipCode:          r.ZipCode,
		Notes:            r.Notes,
	}, nil
}

// POST /v1/bookings
func (h *Handler) Create(c *gin.Context) {
	var in bookingReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ci, err := in.input()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.svc.Create(c.Request.Context(), actor(c), ci)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// POST /v1/bookings/recurring
func (h *Handler) CreateRecurring(c *gin.Context) {
	var in struct {
		bookingReq
		Cadence     string `json:"cadence" binding:"required"`
		Occurrences int    `json:"occurrences" binding:"required"`
		CardToken   string `json:"card_token"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ci, err := in.input()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rows, err := h.svc.CreateRecurring(c.Request.Context(), actor(c), ci, in.Cadence, in.Occurrences, in.CardToken)
	switch {
	case errors.Is(err, domain.ErrPaymentDeclined):
		// the series exists; the client retries payment on the first booking
		c.JSON(http.StatusPaymentRequired, gin.H{"bookings": rows, "error": err.Error()})
	case err != nil:
		fail(c, err)
	default:
		c.JSON(http.StatusCreated, gin.H{"bookings": rows, "recurrence_group": *rows[0].RecurrenceGroup})
	}
}

// POST /v1/bookings/recurring/preview
func (h *Handler) PreviewRecurring(c *gin.Context) {
	var in struct {
		StartDate   string `json:"start_date" binding:"required"`
		Cadence     string `json:"cadence" binding:"required"`
		Occurrences int    `json:"occurrences" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := domain.ParseDate(in.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dates, err := h.svc.PreviewRecurring(start, in.Cadence, in.Occurrences)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(domain.DateLayout)
	}
	c.JSON(http.StatusOK, gin.H{"dates": out})
}

// GET /v1/bookings?page=1&page_size=20&status=&client_id=&service_agent_id=&group=
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	f := repository.Filter{
		ClientID:        c.Query("client_id"),
		ServiceAgentID:  c.Query("service_agent_id"),
		Status:          domain.Status(c.Query("status")),
		RecurrenceGroup: c.Query("group"),
		Page:            page - 1,
		Size:            size,
	}
	list, total, err := h.svc.List(c.Request.Context(), actor(c), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list, "total": total})
}

// GET /v1/bookings/:id
func (h *Handler) Get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /v1/bookings/groups/:group
func (h *Handler) ListGroup(c *gin.Context) {
	rows, err := h.svc.ListGroup(c.Request.Context(), actor(c), c.Param("group"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": rows})
}

// POST /v1/bookings/:id/accept
func (h *Handler) Accept(c *gin.Context) {
	b, err := h.svc.Accept(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /v1/bookings/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	b, err := h.svc.Complete(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type reasonReq struct {
	Reason string `json:"reason"`
}

// bindReason reads an optional {"reason": ...} body. An empty body is fine;
// a malformed one is a 400.
func bindReason(c *gin.Context) (string, bool) {
	var in reasonReq
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return in.Reason, true
}

// POST /v1/bookings/:id/decline
func (h *Handler) Decline(c *gin.Context) {
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	b, err := h.svc.Decline(c.Request.Context(), actor(c), c.Param("id"), reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /v1/bookings/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	b, err := h.svc.Cancel(c.Request.Context(), actor(c), c.Param("id"), reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /v1/bookings/:id/reschedule
func (h *Handler) Reschedule(c *gin.Context) {
	var in struct {
		ScheduledDate string `json:"scheduled_date" binding:"required"`
		ScheduledTime string `json:"scheduled_time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := domain.ParseDate(in.ScheduledDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.svc.Reschedule(c.Request.Context(), actor(c), c.Param("id"), d, in.ScheduledTime)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /v1/bookings/:id/refund-quote
func (h *Handler) QuoteRefund(c *gin.Context) {
	q, err := h.svc.QuoteRefund(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// POST /v1/packages (service_agent/admin)
func (h *Handler) CreatePackage(c *gin.Context) {
	var in struct {
		ServiceAgentID string          `json:"service_agent_id"`
		Title          string          `json:"title" binding:"required"`
		Description    string          `json:"description"`
		Price          decimal.Decimal `json:"price"`
		Duration       int             `json:"duration"`
		DurationUnit   string          `json:"duration_unit"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.CreatePackage(c.Request.Context(), actor(c), service.PackageInput{
		ServiceAgentID: in.ServiceAgentID,
		Title:          in.Title,
		Description:    in.Description,
		Price:          in.Price,
		Duration:       in.Duration,
		DurationUnit:   in.DurationUnit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GET /v1/packages?service_agent_id=&all=true
func (h *Handler) ListPackages(c *gin.Context) {
	list, err := h.svc.ListPackages(c.Request.Context(), c.Query("service_agent_id"), c.Query("all") != "true")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": list})
}

// GET /v1/packages/:id
func (h *Handler) GetPackage(c *gin.Context) {
	p, err := h.svc.GetPackage(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}
