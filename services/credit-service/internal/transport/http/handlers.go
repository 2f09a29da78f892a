package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/pkg/middlewares"
	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/domain"
	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/service"
)

type Handler struct {
	svc *service.CreditSvc
}

func NewHandler(s *service.CreditSvc) *Handler {
	return &Handler{svc: s}
}

func actor(c *gin.Context) service.Actor {
	sub, role := middlewares.Identity(c)
	return service.Actor{ID: sub, Role: role}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInsufficientCredits):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusOf(err), gin.H{"error": err.Error()})
}

// GET /v1/credits/me
func (h *Handler) Me(c *gin.Context) {
	sum, err := h.svc.Summary(c.Request.Context(), actor(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// GET /v1/credits/me/transactions?limit=50
func (h *Handler) MyTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.svc.Transactions(c.Request.Context(), actor(c).ID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list})
}

// POST /v1/credits/spend
func (h *Handler) Spend(c *gin.Context) {
	var in struct {
		Amount      int64  `json:"amount" binding:"required"`
		Description string `json:"description"`
		Reference   string `json:"reference"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Spend(c.Request.Context(), actor(c), in.Amount, in.Description, in.Reference)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": res.Tx, "balance": res.Balance, "applied": res.Applied})
}

// GET /v1/admin/credits/:user
func (h *Handler) UserSummary(c *gin.Context) {
	sum, err := h.svc.Summary(c.Request.Context(), c.Param("user"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// POST /v1/admin/credits/:user/adjust
func (h *Handler) Adjust(c *gin.Context) {
	var in struct {
		Amount int64  `json:"amount" binding:"required"`
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Adjust(c.Request.Context(), actor(c), c.Param("user"), in.Amount, in.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": res.Tx, "balance": res.Balance})
}

// GET /v1/admin/credits/:user/export.csv
func (h *Handler) Export(c *gin.Context) {
	user := c.Param("user")
	var buf bytes.Buffer
	if _, err := h.svc.ExportCSV(c.Request.Context(), actor(c), user, &buf); err != nil {
		fail(c, err)
		return
	}
	name := fmt.Sprintf("transactions-%s-%s.csv", user, time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func NewRouter(h *Handler, signer *auth.Signer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestID())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	v1 := r.Group("/v1", middlewares.JWTAuth(signer))
	{
		v1.GET("/credits/me", h.Me)
		v1.GET("/credits/me/transactions", h.MyTransactions)
		v1.POST("/credits/spend", h.Spend)

		admin := v1.Group("/admin/credits", middlewares.RequireRole(auth.RoleAdmin))
		admin.GET("/:user", h.UserSummary)
		admin.POST("/:user/adjust", h.Adjust)
		admin.GET("/:user/export.csv", h.Export)
	}
	return r
}
