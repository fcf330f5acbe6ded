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

	"github.com/spf13/pflag"
	"github.com/xela07ax/cylestio-dashboard/internal/connectors"
	"github.com/xela07ax/cylestio-dashboard/internal/infra"
	"go.uber.org/zap"
)

func main() {
	addr := pflag.StringP("addr", "a", envOr("MOCK_API_ADDR", ":8080"), "listen address")
	latency := pflag.Duration("latency", 0, "artificial delay before every response")
	pflag.Parse()

	logger, err := infra.NewLogger(infra.LoggerConfig{Level: envOr("LOGGER_LEVEL", "info"), Format: "console"}, "mock")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           connectors.NewMockUpstream(connectors.WithLatency(*latency)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("mock backend started", zap.String("addr", srv.Addr), zap.Duration("latency", *latency))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
