package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/camlink/frame-relay/internal/logger"
	"github.com/camlink/frame-relay/internal/relayserver"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg := relayserver.DefaultConfig()

	var logLevel string
	var logColor bool

	flag.StringVar(&cfg.Addr, "http", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.TokenSecret, "token-secret", envOr("RELAY_TOKEN_SECRET", ""), "Signed-token verification secret (enables token mode)")
	flag.StringVar(&cfg.DigestSecret, "digest-secret", envOr("RELAY_DIGEST_SECRET", ""), "Keyed-digest shared secret (enables digest mode)")
	flag.StringVar(&cfg.AdminCode, "admin-code", envOr("RELAY_ADMIN_CODE", ""), "Admin code for status/disconnect endpoints")
	flag.StringVar(&cfg.IssuerKey, "issuer-key", envOr("RELAY_ISSUER_KEY", ""), "Operator key for the token issuance endpoint")
	flag.Int64Var(&cfg.MaxFrameBytes, "max-frame-bytes", cfg.MaxFrameBytes, "Maximum inbound frame size in bytes")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error, silent)")
	flag.BoolVar(&logColor, "log-color", true, "Enable colored log output")
	flag.Parse()

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, logColor)

	server := relayserver.NewServer(cfg)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Main", "frame relay listening on %s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case <-ctx.Done():
		logger.Info("Main", "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Main", "shutdown: %v", err)
		}
	}
}
