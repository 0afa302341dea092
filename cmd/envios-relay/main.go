package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mattjoyce/envios-relay/internal/api"
	"github.com/mattjoyce/envios-relay/internal/config"
	"github.com/mattjoyce/envios-relay/internal/eventlog"
	"github.com/mattjoyce/envios-relay/internal/hubspot"
	"github.com/mattjoyce/envios-relay/internal/lock"
	"github.com/mattjoyce/envios-relay/internal/log"
	"github.com/mattjoyce/envios-relay/internal/tui/watch"
	"github.com/mattjoyce/envios-relay/internal/webhook"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		if hasHelpFlag(args) {
			printStartHelp()
			os.Exit(0)
		}
		os.Exit(runStart(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "watch":
		if hasHelpFlag(args) {
			printWatchHelp()
			os.Exit(0)
		}
		os.Exit(runWatch(args))
	case "version":
		fmt.Printf("envios-relay version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`envios-relay - HubSpot shipment lookup and webhook relay

Usage:
  envios-relay <command> [flags]

Commands:
  start             Run the HTTP relay in the foreground
  config check      Validate configuration and integrity
  config lock       Write the .checksums manifest for the config file
  watch             Live view of received webhooks
  version           Show version information
  help              Show this help message

Configuration is read from --config, $ENVIOS_CONFIG or ./config.yaml.
Without a file the relay runs on defaults plus HUBSPOT_API_KEY,
HUBSPOT_SECRET and PORT from the environment (or a .env file).
`)
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "lock":
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigLock(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: envios-relay config <action> [flags]")
	fmt.Fprintln(w, "Actions: check, lock")
}

func printStartHelp() {
	fmt.Println("Usage: envios-relay start [--config PATH]")
	fmt.Println("Run the relay until SIGINT or SIGTERM.")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: envios-relay config check [--config PATH] [--json] [--strict]")
	fmt.Println("Validate configuration syntax, values, and integrity.")
}

func printConfigLockHelp() {
	fmt.Println("Usage: envios-relay config lock [--config PATH]")
	fmt.Println("Hash the config file and write .checksums beside it.")
}

func printWatchHelp() {
	fmt.Println("Usage: envios-relay watch [--url http://localhost:8000] [--interval 3s]")
	fmt.Println("Poll /ver-webhooks and show received webhooks newest-first.")
}

// resolveConfigPath returns the explicit path, else a discovered one, else "".
func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return config.DiscoverConfigPath()
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
		return 1
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("envios-relay starting", "version", version, "config", cfg.SourcePath)

	pidLockPath := pidLockPath(cfg)
	pidLock, err := lock.AcquirePIDLock(pidLockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", pidLockPath, "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLock.Path())

	r, err := newRelay(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to initialize relay", "error", err)
		return 1
	}
	defer r.store.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	logger.Info("envios-relay running (press Ctrl+C to stop)", "listen", cfg.Server.Listen)

	if err := serve(context.Background(), r.server, sigCh, logger); err != nil {
		logger.Error("api server failed", "error", err)
		return 1
	}

	logger.Info("envios-relay stopped")
	return 0
}

type starter interface {
	Start(ctx context.Context) error
}

// serve runs srv until a signal arrives or srv fails. It returns only after
// srv.Start has returned, so in-flight requests drain before the caller
// closes the event store.
func serve(ctx context.Context, srv starter, sigCh <-chan os.Signal, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	var err error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
		err = <-done
	case err = <-done:
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// relay holds the wired components behind `start`.
type relay struct {
	store    eventlog.Store
	receiver *webhook.Receiver
	server   *api.Server
}

func newRelay(ctx context.Context, cfg *config.Config) (*relay, error) {
	logger := log.WithComponent("main")

	store, err := eventlog.Open(ctx, cfg.EventLog.Backend, cfg.EventLog.Path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	logger.Info("event log opened", "backend", cfg.EventLog.Backend, "path", cfg.EventLog.Path)

	if cfg.HubSpot.APIKey == "" {
		logger.Warn("no HubSpot API key configured; lookups will be rejected upstream")
	}
	client := hubspot.NewClient(hubspot.Config{
		APIKey:         cfg.HubSpot.APIKey,
		SearchURL:      cfg.HubSpot.SearchURL,
		LookupProperty: cfg.HubSpot.LookupProperty,
		Properties:     cfg.HubSpot.Properties,
		Timeout:        cfg.HubSpot.Timeout,
	}, nil, log.WithComponent("hubspot"))

	receiver := webhook.New(webhook.Config{
		Secret:          cfg.Webhook.Secret,
		SignatureHeader: cfg.Webhook.SignatureHeader,
		MaxBodySize:     cfg.MaxBodyBytes(),
	}, store, log.WithComponent("webhook"))
	if !receiver.VerifiesSignatures() {
		logger.Warn("webhook secret not set; signatures will not be verified")
	}

	apiConfig := api.Config{
		Listen:         cfg.Server.Listen,
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
		Version:        version,
	}
	if cfg.Metrics.Enabled {
		apiConfig.MetricsPath = cfg.Metrics.Path
	}
	server := api.New(apiConfig, client, store, receiver, log.WithComponent("api"))

	return &relay{store: store, receiver: receiver, server: server}, nil
}

// pidLockPath places the lock beside the event log, named after it.
func pidLockPath(cfg *config.Config) string {
	logPath := cfg.EventLog.Path
	base := filepath.Base(logPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(logPath), name+".pid")
}

type checkResult struct {
	Valid    bool     `json:"valid"`
	Config   string   `json:"config,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func runConfigCheck(args []string) int {
	var configPath string
	var strict, jsonOut bool

	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.BoolVar(&strict, "strict", false, "Treat warnings as errors")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	result := checkConfig(configPath)

	if jsonOut {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(string(out))
	} else {
		fmt.Print(formatCheckHuman(result))
	}

	if !result.Valid {
		return 1
	}
	if strict && len(result.Warnings) > 0 {
		return 2
	}
	return 0
}

func checkConfig(configPath string) checkResult {
	path, err := resolveConfigPath(configPath)
	if err != nil {
		return checkResult{Errors: []string{err.Error()}}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return checkResult{Config: path, Errors: []string{err.Error()}}
	}

	result := checkResult{Valid: true, Config: cfg.SourcePath}
	if cfg.SourcePath == "" {
		result.Warnings = append(result.Warnings, "no config file found; using defaults and environment")
	}
	if cfg.HubSpot.APIKey == "" {
		result.Warnings = append(result.Warnings, "hubspot.api_key is empty (set HUBSPOT_API_KEY)")
	}
	if cfg.Webhook.Secret == "" {
		result.Warnings = append(result.Warnings, "webhook.secret is empty; signatures will not be verified")
	}
	if cfg.SourcePath != "" {
		manifest, err := config.LoadChecksums(filepath.Dir(cfg.SourcePath))
		if err == nil && manifest == nil {
			result.Warnings = append(result.Warnings, "no .checksums manifest; run 'envios-relay config lock'")
		}
	}
	return result
}

func formatCheckHuman(r checkResult) string {
	var b strings.Builder
	if r.Config != "" {
		fmt.Fprintf(&b, "Config: %s\n", r.Config)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "ERROR: %s\n", e)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "WARN:  %s\n", w)
	}
	if r.Valid {
		b.WriteString("Configuration OK\n")
	} else {
		b.WriteString("Configuration invalid\n")
	}
	return b.String()
}

func runConfigLock(args []string) int {
	var configPath string
	var verbose bool

	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.BoolVar(&verbose, "v", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	path, err := resolveConfigPath(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
		return 1
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "No config file to lock (use --config or create ./config.yaml)")
		return 1
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "config.yaml")
	}

	manifestPath, err := config.WriteChecksums(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}
	if verbose {
		hash, _ := config.ComputeBlake3Hash(path)
		fmt.Printf("  HASH %s: %s\n", filepath.Base(path), hash)
	}
	fmt.Printf("Successfully locked configuration: %s\n", manifestPath)
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL := fs.String("url", "http://localhost:8000", "Relay base URL")
	interval := fs.Duration("interval", watch.DefaultInterval, "Polling interval")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	// Keep log output off the alternate screen.
	log.SetupWriter(io.Discard, "error", "text")

	if err := watch.Run(strings.TrimRight(*apiURL, "/"), *interval); err != nil {
		fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		return 1
	}
	return 0
}
