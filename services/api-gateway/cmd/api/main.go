package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Faitltd/FAIT-sub003/pkg/config"
	"github.com/Faitltd/FAIT-sub003/pkg/middlewares"
	"github.com/Faitltd/FAIT-sub003/services/api-gateway/internal/clients"
)

type Cfg struct {
	HTTPAddr   string `envconfig:"GATEWAY_HTTP_ADDR" default:":8000"`
	AuthURL    string `envconfig:"AUTH_URL" default:"http://localhost:8080"`
	BookingURL string `envconfig:"BOOKING_URL" default:"http://localhost:8083"`
	CreditURL  string `envconfig:"CREDIT_URL" default:"http://localhost:8084"`
	PaymentURL string `envconfig:"PAYMENT_URL" default:"http://localhost:8081"`
}

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	app := must(config.Load())
	var cfg Cfg
	must(0, config.Process(&cfg))
	logger := app.NewLogger("api-gateway")

	c := must(clients.New(clients.Upstreams{
		Auth:    cfg.AuthURL,
		Booking: cfg.BookingURL,
		Credit:  cfg.CreditURL,
		Payment: cfg.PaymentURL,
	}, logger))

	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestID())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	// landing page after an offsite (3-D Secure) card authorization
	r.GET("/payments/return", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, `
		  <html><body>
			<h3>Payment submitted</h3>
			<p>charge_id: %s</p>
			<p>Your booking or credits update once the payment is confirmed.</p>
		  </body></html>
		`, c.Query("charge_id"))
	})
	r.NoRoute(c.Forward)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "error", err)
			os.Exit(1)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
	logger.Info("stopped")
}
