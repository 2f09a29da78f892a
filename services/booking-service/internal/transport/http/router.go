package http

import (
	"github.com/gin-gonic/gin"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/pkg/middlewares"
)

func NewRouter(h *Handler, signer *auth.Signer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestID())
	r.GET("/healthz", healthz)

	v1 := r.Group("/v1")
	secured := v1.Group("")
	secured.Use(middlewares.JWTAuth(signer))
	{
		secured.GET("/packages", h.ListPackages)
		secured.GET("/packages/:id", h.GetPackage)
		secured.POST("/packages", middlewares.RequireRole(auth.RoleServiceAgent, auth.RoleAdmin), h.CreatePackage)

		secured.POST("/bookings", h.Create)
		secured.POST("/bookings/recurring", h.CreateRecurring)
		secured.POST("/bookings/recurring/preview", h.PreviewRecurring)
		secured.GET("/bookings", h.List)
		secured.GET("/bookings/groups/:group", h.ListGroup)
		secured.GET("/bookings/:id", h.Get)
		secured.GET("/bookings/:id/refund-quote", h.QuoteRefund)
		secured.POST("/bookings/:id/cancel", h.Cancel)
		secured.POST("/bookings/:id/reschedule", h.Reschedule)

		provider := secured.Group("")
		provider.Use(middlewares.RequireRole(auth.RoleServiceAgent, auth.RoleAdmin))
		provider.POST("/bookings/:id/accept", h.Accept)
		provider.POST("/bookings/:id/decline", h.Decline)
		provider.POST("/bookings/:id/complete", h.Complete)
	}
	return r
}
