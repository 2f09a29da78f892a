package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/pkg/middlewares"
	"github.com/Faitltd/FAIT-sub003/services/auth-service/internal/domain"
	"github.com/Faitltd/FAIT-sub003/services/auth-service/internal/service"
)

type Handler struct {
	svc *service.AuthSvc
}

func NewHandler(s *service.AuthSvc) *Handler {
	return &Handler{svc: s}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusOf(err), gin.H{"error": err.Error()})
}

// POST /v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Email: in.Email, Password: in.Password, Name: in.Name, Phone: in.Phone, Role: in.Role,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// POST /v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, tok, err := h.svc.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": tok, "token_type": "Bearer", "user": u})
}

// GET /v1/auth/me
func (h *Handler) Me(c *gin.Context) {
	sub, _ := middlewares.Identity(c)
	u, err := h.svc.Me(c.Request.Context(), sub)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// PATCH /v1/auth/me
func (h *Handler) UpdateMe(c *gin.Context) {
	var in struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, _ := middlewares.Identity(c)
	u, err := h.svc.UpdateProfile(c.Request.Context(), sub, in.Name, in.Phone)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// GET /v1/admin/users?page=&size=&q=&role=
func (h *Handler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	_, role := middlewares.Identity(c)
	users, total, err := h.svc.List(c.Request.Context(), role, page, size, c.Query("q"), c.Query("role"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": users, "total": total})
}

// PUT /v1/admin/users/:id/role
func (h *Handler) SetRole(c *gin.Context) {
	var in struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_, role := middlewares.Identity(c)
	u, err := h.svc.SetRole(c.Request.Context(), role, c.Param("id"), in.Role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func NewRouter(h *Handler, signer *auth.Signer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestID())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	a := r.Group("/v1/auth")
	{
		a.POST("/register", h.Register)
		a.POST("/login", h.Login)
		a.GET("/me", middlewares.JWTAuth(signer), h.Me)
		a.PATCH("/me", middlewares.JWTAuth(signer), h.UpdateMe)
	}

	adm := r.Group("/v1/admin/users", middlewares.JWTAuth(signer), middlewares.RequireRole(auth.RoleAdmin))
	{
		adm.GET("", h.ListUsers)
		adm.PUT("/:id/role", h.SetRole)
	}
	return r
}
