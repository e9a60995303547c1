package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/platefront/platefront/internal/config"
	"github.com/platefront/platefront/internal/devserver"
	"github.com/platefront/platefront/internal/logging"
	"github.com/platefront/platefront/internal/push"
)

const (
	appName    = "devserver"
	appVersion = "0.1.0"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		addr       = flag.String("addr", ":5000", "listen address")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("%s(%s) cannot load config: %v", appName, appVersion, err)
	}

	logger := logging.Setup(cfg.String("log.level", "info"), cfg.String("log.format", "text"))

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	conn, err := push.Connect(cfg.String("nats.url", ""))
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS: %v", appName, appVersion, err)
	}
	defer conn.Close()

	store := devserver.NewStore()
	store.Seed()

	bridge := devserver.NewBridge(store, conn, conn, logger)
	if err := bridge.Start(ctx); err != nil {
		log.Fatalf("%s(%s) cannot start event bridge: %v", appName, appVersion, err)
	}
	defer bridge.Close()

	handler := devserver.NewHandler(store, conn, logger)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("devserver listening", "addr", *addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("devserver stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("devserver stopped")
}
