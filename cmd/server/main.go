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

	"github.com/DoyleJ11/selection-protocol/internal/bridge"
	"github.com/DoyleJ11/selection-protocol/internal/config"
	"github.com/DoyleJ11/selection-protocol/internal/cooldown"
	"github.com/DoyleJ11/selection-protocol/internal/httpapi"
	"github.com/DoyleJ11/selection-protocol/internal/hub"
	"github.com/DoyleJ11/selection-protocol/internal/journal"
	"github.com/DoyleJ11/selection-protocol/internal/keys"
	"github.com/DoyleJ11/selection-protocol/internal/logging"
	"github.com/DoyleJ11/selection-protocol/internal/session"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

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

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	var sinks []journal.Sink
	var history httpapi.History
	if cfg.Database.URL != "" {
		store, openErr := journal.Open(cfg.Database.URL)
		if openErr != nil {
			return openErr
		}
		defer func() { err = multierr.Append(err, store.Close()) }()
		sinks = append(sinks, store)
		history = store
		logger.Info("action log persisted to database")
	}

	presser, err := newPresser(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// one game window, so cooldowns are shared by every channel
	cooldowns := cooldown.NewTracker(clock, cfg.CooldownDurations())

	var mirror session.Mirror
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		conn, connErr := bridge.Connect(cfg.NATS.URL, logger)
		if connErr != nil {
			return connErr
		}
		nc = conn
		defer func() { err = multierr.Append(err, nc.Drain()) }()
		mirror = bridge.NewMirror(nc, cfg.NATS.SubjectPrefix, logger)
	}

	factory := func(ctx context.Context, channel string) *session.Session {
		return session.NewSession(ctx, session.Config{
			Channel:   channel,
			TimerSec:  cfg.Server.TimerSec,
			ResetSec:  cfg.Server.ResetSec,
			AutoStart: cfg.Server.AutoStart,
		}, session.Deps{
			Clock:     clock,
			Cooldowns: cooldowns,
			Presser:   presser,
			Journal:   journal.NewRecorder(journal.NewMemory(journal.DefaultKeep), sinks...),
			Mirror:    mirror,
			Logger:    logger,
		})
	}
	h := hub.NewHub(ctx, factory, logger)
	if _, err := h.Ensure(ctx, cfg.Server.DefaultChannel); err != nil {
		return err
	}

	if nc != nil {
		ingress := bridge.NewIngress(nc, cfg.NATS.SubjectPrefix, h, clock, logger)
		if err := ingress.Start(); err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, ingress.Stop()) }()
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: httpapi.SetupRoutes(h, httpapi.Options{
			DefaultChannel: cfg.Server.DefaultChannel,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			History:        history,
			Logger:         logger,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("channel", cfg.Server.DefaultChannel))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)

	h.Inbox() <- hub.ShutdownHub{}
	<-h.Done()
	return err
}

func newPresser(ctx context.Context, cfg config.Config, logger *zap.Logger) (keys.Presser, error) {
	if cfg.Keys.Backend == config.KeysDryRun {
		logger.Info("keypresses are dry-run only")
		return keys.NewDryRun(logger), nil
	}

	x := keys.NewXdotool(cfg.Keys.WindowName, logger)
	if d := cfg.FocusDelay(); d > 0 {
		x.FocusDelay = d
	}
	if _, err := x.Discover(ctx); err != nil {
		if errors.Is(err, keys.ErrXdotoolMissing) {
			return nil, err
		}
		// the game may start later; presses fail until it is found
		logger.Warn("game window not found yet", zap.String("window", cfg.Keys.WindowName), zap.Error(err))
	}
	return x, nil
}
