package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fixdeck-io/fixdeck/internal/config"
	"github.com/fixdeck-io/fixdeck/internal/gateway"
	"github.com/fixdeck-io/fixdeck/internal/logring"
	"github.com/fixdeck-io/fixdeck/internal/ops"
	"github.com/fixdeck-io/fixdeck/internal/session"
	"github.com/fixdeck-io/fixdeck/internal/tui"
	"github.com/fixdeck-io/fixdeck/internal/watch"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	apiURL := flag.String("api", "", "Control plane URL (overrides config)")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixdeck: %v\n", err)
		os.Exit(1)
	}
	if *apiURL != "" {
		cfg.Dashboard.APIURL = *apiURL
	}

	stateDir := cfg.Dashboard.StateDir
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "fixdeck: state dir: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns stdout, so logs go to a file in the state dir. The
	// ring keeps the tail in memory for the crash report below.
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logFile, err := os.OpenFile(filepath.Join(stateDir, "fixdeck.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixdeck: open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	ring := logring.New(500)
	jsonHandler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logring.NewHandler(jsonHandler, ring))

	sess := session.New(stateDir, logger)
	gw := gateway.New(cfg.Dashboard.APIURL, sess, gateway.WithLogger(logger.With("component", "gateway")))

	poll := cfg.Dashboard.PollIntervalDuration()
	watcher := watch.New(gw, poll, logger.With("component", "watch"))
	defer watcher.Close()

	app := &tui.App{
		Gateway: gw,
		Session: sess,
		Watcher: watcher,
		Agents:  ops.NewAgentOps(gw, logger.With("component", "ops")),
		Integ:   ops.NewIntegrationOps(gw, logger.With("component", "ops")),
		Profile: ops.NewProfileOps(gw, logger.With("component", "ops")),
		Poll:    poll,
		Logger:  logger,
	}

	logger.Info("fixdeck starting", "api", cfg.Dashboard.APIURL, "poll", poll)

	prog := tea.NewProgram(tui.NewModel(app), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		logger.Error("dashboard exited", "error", err)
		fmt.Fprintf(os.Stderr, "fixdeck: %v\n", err)
		for _, e := range ring.Recent(10, slog.LevelWarn) {
			fmt.Fprintf(os.Stderr, "  %s %s %s\n", e.Time.Format("15:04:05"), e.Level, e.Message)
		}
		os.Exit(1)
	}
	logger.Info("fixdeck stopped")
}
