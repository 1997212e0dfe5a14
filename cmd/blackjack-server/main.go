package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/blackjacktables/internal/ledger"
	"github.com/lox/blackjacktables/internal/server"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"blackjack-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	Seed     int64  `short:"s" long:"seed" help:"Shuffle seed, 0 seeds from the clock"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	bank, err := buildLedger(cfg, logger)
	if err != nil {
		logger.Error("Failed to set up ledger", "error", err)
		kctx.Exit(1)
	}

	logger.Info("Starting Blackjack Server",
		"addr", cfg.GetServerAddress(),
		"tables", len(cfg.Tables))

	srv := server.NewServer(cfg, bank, CLI.Seed, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", "error", err)
			kctx.Exit(1)
		}
	case sig := <-sigChan:
		logger.Info("Shutting down", "signal", sig)
		if err := srv.Stop(); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}
}

// buildLedger picks the chip store: Redis when a redis block is
// configured, in-memory otherwise.
func buildLedger(cfg *server.Config, logger *log.Logger) (ledger.Ledger, error) {
	if cfg.Redis == nil {
		logger.Info("Using in-memory ledger")
		return ledger.NewMemoryLedger(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("Using Redis ledger", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return ledger.NewRedisLedger(ctx, cfg.Redis.Addr, cfg.Redis.DB)
}
