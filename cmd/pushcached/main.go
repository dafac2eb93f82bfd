package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/usestring/pushcache/internal/config"
	"github.com/usestring/pushcache/internal/graph"
	"github.com/usestring/pushcache/internal/logging"
	"github.com/usestring/pushcache/internal/push"
	"github.com/usestring/pushcache/internal/session"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Configuration is loaded from environment variables:
	// - ASSOCIATE_DELAY_MS: causality window for learning (default: 5000)
	// - LISTEN_ADDR, TLS_CERT_FILE, TLS_KEY_FILE, STATIC_DIR
	// - LOG_LEVEL, LOG_FILE, ... (see internal/config for all options)
	cfg := config.Load()

	logCleanup, err := logging.Setup(cfg)
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer logCleanup()

	store := graph.NewStore()
	tracker, err := session.NewTracker(cfg.SessionCacheMaxItems)
	if err != nil {
		slog.Error("failed to create session tracker", "error", err)
		os.Exit(1)
	}
	filter := push.NewFilter(store, tracker, cfg)
	defer filter.Close()

	handler := filter.Wrap(newFileHandler(cfg.StaticDir))

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}
	h2 := &http2.Server{}
	useTLS := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
	if useTLS {
		if err := http2.ConfigureServer(srv, h2); err != nil {
			slog.Error("failed to configure http2", "error", err)
			os.Exit(1)
		}
	} else {
		// Cleartext HTTP/2 for local runs. Browsers only speak h2 over
		// TLS, so push toward real clients needs the cert path.
		srv.Handler = h2c.NewHandler(handler, h2)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("listening", "addr", cfg.ListenAddr, "tls", useTLS, "static_dir", cfg.StaticDir)
		var err error
		if useTLS {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
