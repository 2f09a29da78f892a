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

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/pkg/config"
	"github.com/Faitltd/FAIT-sub003/pkg/db"
	"github.com/Faitltd/FAIT-sub003/pkg/mq"
	"github.com/Faitltd/FAIT-sub003/pkg/obs"
	"github.com/Faitltd/FAIT-sub003/pkg/payments"
	cons "github.com/Faitltd/FAIT-sub003/services/booking-service/internal/consumer"
	"github.com/Faitltd/FAIT-sub003/services/booking-service/internal/repository"
	"github.com/Faitltd/FAIT-sub003/services/booking-service/internal/service"
	thttp "github.com/Faitltd/FAIT-sub003/services/booking-service/internal/transport/http"
)

type Cfg struct {
	PGBookingDSN    string `envconfig:"PG_BOOKING_DSN" required:"true"`
	BookingHTTPAddr string `envconfig:"BOOKING_HTTP_ADDR" default:":8083"`

	// Omise; charging and refunds are disabled when the secret key is empty
	OmisePublicKey  string `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey  string `envconfig:"OMISE_SECRET_KEY"`
	PaymentCurrency string `envconfig:"PAYMENT_CURRENCY" default:"usd"`

	// RabbitMQ for consuming payment events
	PaymentExchange string `envconfig:"PAYMENT_EXCHANGE" default:"payment.exchange"`
	PaymentQueue    string `envconfig:"BOOKING_PAYMENT_QUEUE" default:"booking.payment.q"`

	// RabbitMQ for publishing booking events
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`
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
	logger := app.NewLogger("booking-service")
	loc := must(app.Location())

	shutdownTracer := must(obs.InitTracer("booking-service", app.OtelEnabled))
	defer func() { _ = shutdownTracer(context.Background()) }()

	// DB
	gdb := must(db.Open(app.DBDriver, cfg.PGBookingDSN))
	repo := repository.NewBookingRepo(gdb)
	must(0, repo.Migrate())

	var pay service.Payments
	currency := cfg.PaymentCurrency
	if cfg.OmiseSecretKey != "" {
		client := must(payments.NewClient(cfg.OmisePublicKey, cfg.OmiseSecretKey, cfg.PaymentCurrency))
		currency = client.Currency()
		pay = client
	} else {
		logger.Warn("OMISE_SECRET_KEY not set, charges and refunds disabled")
	}

	var pub mq.EventPublisher = mq.Nop{}
	if app.RabbitURL != "" {
		bookingPub := must(mq.NewPublisher(app.RabbitURL, cfg.BookingExchange))
		defer bookingPub.Close()
		pub = bookingPub
	}

	svc := service.NewBookingSvc(repo, pay, pub, logger, service.WithLocation(loc), service.WithCurrency(currency))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if app.RabbitURL != "" {
		paymentCons := must(mq.NewConsumer(app.RabbitURL, cfg.PaymentExchange, cfg.PaymentQueue,
			[]string{mq.RKPaymentPaid, mq.RKPaymentFailed}))
		defer paymentCons.Close()
		pc := cons.NewPaymentConsumer(svc, paymentCons, logger)
		must(0, pc.Run(ctx))
		logger.Info("consumer started", "keys", []string{mq.RKPaymentPaid, mq.RKPaymentFailed})
	}

	signer := auth.NewSigner(app.JWTSecret)
	srv := &http.Server{
		Addr:              cfg.BookingHTTPAddr,
		Handler:           thttp.NewRouter(thttp.NewHandler(svc), signer),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http listening", "addr", cfg.BookingHTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "error", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
	logger.Info("stopped")
}
