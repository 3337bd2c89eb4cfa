package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DoyleJ11/selection-protocol/internal/admin"
	"github.com/DoyleJ11/selection-protocol/internal/client"
	"github.com/DoyleJ11/selection-protocol/internal/config"
	"github.com/DoyleJ11/selection-protocol/internal/logging"
	"github.com/DoyleJ11/selection-protocol/internal/surface"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	noCooldowns := flag.Bool("no-cooldowns", false, "send keypresses without cooldown groups")
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

	if err := run(cfg, !*noCooldowns && cfg.Client.Cooldowns, logger); err != nil {
		logger.Fatal("admin stopped", zap.Error(err))
	}
}

func run(cfg config.Config, cooldowns bool, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	endpoint, err := client.URL(cfg.Client.ServerURL, cfg.Client.Channel)
	if err != nil {
		return err
	}
	c, err := client.Dial(ctx, endpoint, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	acfg := admin.Config{Cooldowns: cooldowns, PollInterval: cfg.PollInterval()}
	board := surface.NewBoard()
	admin.NewPanel(board, acfg, logger).Bind(c)
	d := admin.NewDispatcher(c, acfg, clockwork.NewRealClock(), logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readErr := make(chan error, 1)
	go func() {
		readErr <- c.Run(ctx)
		cancel()
	}()
	go d.Poll(ctx)

	console := admin.NewConsole(d, board).WithStatus(func() string { return surface.AdminSummary(board) })
	fmt.Fprintf(os.Stdout, "connected to %s\n%s", endpoint, console.Help())
	if err := console.Run(ctx, os.Stdin, os.Stdout); err != nil {
		return err
	}

	cancel()
	if err := <-readErr; err != nil {
		return err
	}
	return nil
}
