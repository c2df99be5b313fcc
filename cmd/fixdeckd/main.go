package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fixdeck-io/fixdeck/internal/config"
	"github.com/fixdeck-io/fixdeck/internal/logring"
	"github.com/fixdeck-io/fixdeck/internal/notify"
	"github.com/fixdeck-io/fixdeck/internal/server"
	"github.com/fixdeck-io/fixdeck/internal/sim"
	"github.com/fixdeck-io/fixdeck/internal/store"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	ring := logring.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logring.NewHandler(jsonHandler, ring))

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		// Ephemeral secret: tokens stop verifying across restarts.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			logger.Error("failed to generate auth secret", "error", err)
			os.Exit(1)
		}
		secret = hex.EncodeToString(buf)
		logger.Warn("FIXDECK_AUTH_SECRET not set, using an ephemeral secret; sessions will not survive restarts")
	}

	if err := os.MkdirAll(cfg.Server.DataDir, 0o755); err != nil {
		logger.Error("failed to create data dir", "path", cfg.Server.DataDir, "error", err)
		os.Exit(1)
	}
	dbPath := filepath.Join(cfg.Server.DataDir, "fixdeck.db")
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Error("failed to open store", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	logger.Info("fixdeckd starting", "db", dbPath, "port", cfg.Server.Port)

	var notifier sim.Notifier
	if cfg.Notify.SlackToken != "" {
		sn, err := notify.New(cfg.Notify.SlackToken, cfg.Notify.SlackChannel, logger.With("component", "notify"))
		if err != nil {
			logger.Error("failed to init slack notifier", "error", err)
			os.Exit(1)
		}
		notifier = sn
		logger.Info("slack notifications enabled", "channel", cfg.Notify.SlackChannel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var syncer server.Syncer
	if cfg.Sim.Enabled {
		simulator := sim.New(st, notifier, sim.Config{
			AdvanceInterval: time.Duration(cfg.Sim.AdvanceInterval) * time.Second,
			FailurePercent:  cfg.Sim.FailurePercent,
		}, logger.With("component", "sim"))
		if cfg.Sim.Seed {
			if err := simulator.Seed(); err != nil {
				logger.Error("failed to seed demo data", "error", err)
				os.Exit(1)
			}
		}
		syncer = simulator
		go safeGo(logger, "sim", func() { simulator.Start(ctx) })
		logger.Info("pipeline simulator started", "interval", cfg.Sim.AdvanceInterval)
	}

	srv := server.NewServer(st, syncer, server.Config{
		Host:       cfg.Server.Host,
		Port:       cfg.Server.Port,
		Secret:     secret,
		TokenTTL:   cfg.Auth.TokenTTLDuration(),
		BcryptCost: bcryptCost(cfg.Auth.BcryptCost),
	}, logger.With("component", "api"))

	if err := srv.Start(ctx); err != nil {
		logger.Error("api server failed", "error", err)
		os.Exit(1)
	}

	errCount := len(ring.Recent(0, slog.LevelError))
	logger.Info("fixdeckd stopped", "errors_logged", errCount)
}

func bcryptCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
