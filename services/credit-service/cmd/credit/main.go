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

	"github.com/jmoiron/sqlx"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/pkg/config"
	"github.com/Faitltd/FAIT-sub003/pkg/db"
	"github.com/Faitltd/FAIT-sub003/pkg/mq"
	"github.com/Faitltd/FAIT-sub003/pkg/obs"
	cons "github.com/Faitltd/FAIT-sub003/services/credit-service/internal/consumer"
	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/repository"
	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/service"
	thttp "github.com/Faitltd/FAIT-sub003/services/credit-service/internal/transport/http"
)

type Cfg struct {
	PGCreditDSN    string `envconfig:"PG_CREDIT_DSN" required:"true"`
	CreditHTTPAddr string `envconfig:"CREDIT_HTTP_ADDR" default:":8084"`

	PaymentExchange string `envconfig:"PAYMENT_EXCHANGE" default:"payment.exchange"`
	PaymentQueue    string `envconfig:"CREDIT_PAYMENT_QUEUE" default:"credit.payment.q"`
	CreditExchange  string `envconfig:"CREDIT_EXCHANGE" default:"credit.exchange"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`
	BookingQueue    string `envconfig:"CREDIT_BOOKING_QUEUE" default:"credit.booking.q"`
	CompletionBonus int64  `envconfig:"CREDIT_BOOKING_BONUS" default:"50"`
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
	logger := app.NewLogger("credit-service")

	shutdownTracer := must(obs.InitTracer("credit-service", app.OtelEnabled))
	defer func() { _ = shutdownTracer(context.Background()) }()

	gdb := must(db.Open(app.DBDriver, cfg.PGCreditDSN))
	repo := repository.NewCreditRepo(gdb)
	must(0, repo.Migrate())
	sqlDB := must(gdb.DB())
	report := repository.NewReport(sqlx.NewDb(sqlDB, db.SQLDialect(app.DBDriver)))

	var pub mq.EventPublisher = mq.Nop{}
	if app.RabbitURL != "" {
		p := must(mq.NewPublisher(app.RabbitURL, cfg.CreditExchange))
		defer p.Close()
		pub = p
	}
	svc := service.NewCreditSvc(repo, report, pub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if app.RabbitURL != "" {
		pc := must(mq.NewConsumer(app.RabbitURL, cfg.PaymentExchange, cfg.PaymentQueue, []string{mq.RKPaymentPaid}))
		defer pc.Close()
		must(0, cons.NewEventConsumer(svc, pc, logger, cfg.CompletionBonus).Run(ctx))

		bc := must(mq.NewConsumer(app.RabbitURL, cfg.BookingExchange, cfg.BookingQueue, []string{mq.RKBookingCompleted}))
		defer bc.Close()
		must(0, cons.NewEventConsumer(svc, bc, logger, cfg.CompletionBonus).Run(ctx))
		logger.Info("consumers started", "keys", []string{mq.RKPaymentPaid, mq.RKBookingCompleted})
	}

	srv := &http.Server{
		Addr:              cfg.CreditHTTPAddr,
		Handler:           thttp.NewRouter(thttp.NewHandler(svc), auth.NewSigner(app.JWTSecret)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http listening", "addr", cfg.CreditHTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "error", err)
			os.Exit(1)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
	logger.Info("stopped")
}
