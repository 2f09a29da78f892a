package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/pkg/middlewares"
	"github.com/Faitltd/FAIT-sub003/services/payment-service/internal/service"
)

type Handler struct {
	svc *service.PaymentSvc
}

func NewHandler(s *service.PaymentSvc) *Handler {
	return &Handler{svc: s}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUnverified):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

// POST /v1/payments/charges/card
func (h *Handler) CreateCardCharge(c *gin.Context) {
	var in struct {
		Purpose   string          `json:"purpose" binding:"required"`
		BookingID string          `json:"booking_id"`
		Credits   int64           `json:"credits"`
		Amount    decimal.Decimal `json:"amount"`
		CardToken string          `json:"card_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, role := middlewares.Identity(c)
	ch, err := h.svc.CreateCardCharge(c.Request.Context(), sub, role, service.CardChargeInput{
		Purpose:   in.Purpose,
		BookingID: in.BookingID,
		Credits:   in.Credits,
		Amount:    in.Amount,
		CardToken: in.CardToken,
	})
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, ch)
}

// GET /v1/payments/charges/:id
func (h *Handler) GetCharge(c *gin.Context) {
	sub, role := middlewares.Identity(c)
	ch, err := h.svc.GetCharge(c.Request.Context(), sub, role, c.Param("id"))
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ch)
}

// POST /webhooks/omise
//
// The body is only trusted for its event id; the event itself is re-fetched
// from the provider.
func (h *Handler) Webhook(c *gin.Context) {
	var inc struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	if err := c.ShouldBindJSON(&inc); err != nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}
	if err := h.svc.HandleWebhook(c.Request.Context(), inc.ID); err != nil {
		c.String(statusOf(err), http.StatusText(statusOf(err)))
		return
	}
	c.Status(http.StatusOK)
}

func NewRouter(h *Handler, signer *auth.Signer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestID())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.POST("/webhooks/omise", h.Webhook)

	pay := r.Group("/v1/payments", middlewares.JWTAuth(signer))
	{
		pay.POST("/charges/card", h.CreateCardCharge)
		pay.GET("/charges/:id", h.GetCharge)
	}
	return r
}
