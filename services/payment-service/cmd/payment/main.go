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

	"github.com/shopspring/decimal"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/pkg/config"
	"github.com/Faitltd/FAIT-sub003/pkg/mq"
	"github.com/Faitltd/FAIT-sub003/pkg/obs"
	"github.com/Faitltd/FAIT-sub003/pkg/payments"
	paysvc "github.com/Faitltd/FAIT-sub003/services/payment-service/internal/service"
	thttp "github.com/Faitltd/FAIT-sub003/services/payment-service/internal/transport/http"
)

type Cfg struct {
	HTTPAddr        string `envconfig:"PAYMENT_WEBHOOK_HTTP_ADDR" default:":8081"`
	OmisePub        string `envconfig:"OMISE_PUBLIC_KEY" required:"true"`
	OmiseSec        string `envconfig:"OMISE_SECRET_KEY" required:"true"`
	Currency        string `envconfig:"PAYMENT_CURRENCY" default:"usd"`
	CreditUnitPrice string `envconfig:"CREDIT_UNIT_PRICE" default:"1.00"`
	PaymentExchange string `envconfig:"PAYMENT_EXCHANGE" default:"payment.exchange"`
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
	logger := app.NewLogger("payment-service")

	shutdownTracer := must(obs.InitTracer("payment-service", app.OtelEnabled))
	defer func() { _ = shutdownTracer(context.Background()) }()

	gw := must(payments.NewClient(cfg.OmisePub, cfg.OmiseSec, cfg.Currency))

	if app.RabbitURL == "" {
		log.Fatal("RABBIT_URL is required for payment-service")
	}
	pub := must(mq.NewPublisher(app.RabbitURL, cfg.PaymentExchange))
	defer pub.Close()

	unit := must(decimal.NewFromString(cfg.CreditUnitPrice))
	if !unit.IsPositive() {
		log.Fatal("CREDIT_UNIT_PRICE must be positive")
	}
	svc := paysvc.NewPaymentSvc(gw, pub, logger, paysvc.WithCreditUnitPrice(unit))
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           thttp.NewRouter(thttp.NewHandler(svc), auth.NewSigner(app.JWTSecret)),
		ReadHeaderTimeout: 10 * time.Second,
	}
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
