package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/selection-protocol/internal/client"
	"github.com/DoyleJ11/selection-protocol/internal/config"
	"github.com/DoyleJ11/selection-protocol/internal/logging"
	"github.com/DoyleJ11/selection-protocol/internal/overlay"
	"github.com/DoyleJ11/selection-protocol/internal/surface"
	"github.com/DoyleJ11/selection-protocol/internal/types"
	"go.uber.org/zap"
)

const redialWait = 2 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	board := surface.NewBoard()
	renderer := overlay.NewRenderer(board, logger)

	endpoint, err := client.URL(cfg.Client.ServerURL, cfg.Client.Channel)
	if err != nil {
		logger.Fatal("bad server url", zap.Error(err))
	}
	go follow(ctx, endpoint, renderer, logger)

	srv := &http.Server{Addr: cfg.Client.OverlayAddr, Handler: surface.Handler(board, logger)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("overlay listening", zap.String("addr", cfg.Client.OverlayAddr), zap.String("server", endpoint))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("overlay server failed", zap.Error(err))
	}
}

// follow keeps a connection to the server open, redialing after drops.
func follow(ctx context.Context, endpoint string, r *overlay.Renderer, logger *zap.Logger) {
	for ctx.Err() == nil {
		c, err := client.Dial(ctx, endpoint, logger)
		if err != nil {
			logger.Warn("server unreachable", zap.Error(err))
		} else {
			c.On(types.EvtVoteUpdate, r.Handle)
			if err := c.Run(ctx); err != nil {
				logger.Warn("connection lost", zap.Error(err))
			}
			_ = c.Close()
		}

		select {
		case <-ctx.Done():
		case <-time.After(redialWait):
		}
	}
}
