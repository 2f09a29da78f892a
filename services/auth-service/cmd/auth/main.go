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
	"github.com/Faitltd/FAIT-sub003/pkg/obs"
	"github.com/Faitltd/FAIT-sub003/services/auth-service/internal/repository"
	"github.com/Faitltd/FAIT-sub003/services/auth-service/internal/service"
	thttp "github.com/Faitltd/FAIT-sub003/services/auth-service/internal/transport/http"
)

type Cfg struct {
	PGAuthDSN    string `envconfig:"PG_AUTH_DSN" required:"true"`
	AuthHTTPAddr string `envconfig:"AUTH_HTTP_ADDR" default:":8080"`

	AdminEmail    string `envconfig:"ADMIN_EMAIL" default:""`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" default:""`
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
	logger := app.NewLogger("auth-service")

	shutdownTracer := must(obs.InitTracer("auth-service", app.OtelEnabled))
	defer func() { _ = shutdownTracer(context.Background()) }()

	gdb := must(db.Open(app.DBDriver, cfg.PGAuthDSN))
	repo := repository.NewUserRepo(gdb)
	must(0, repo.Migrate())

	signer := auth.NewSigner(app.JWTSecret)
	svc := service.NewAuthSvc(repo, signer, app.TokenTTL(), logger)
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		must(0, svc.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword))
	}

	srv := &http.Server{
		Addr:              cfg.AuthHTTPAddr,
		Handler:           thttp.NewRouter(thttp.NewHandler(svc), signer),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http listening", "addr", cfg.AuthHTTPAddr)
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
