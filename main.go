// Package main provides the entry point for VPN Provider CLI.
// VPN Provider CLI drives vendor VPN command-line clients (ExpressVPN,
// Mullvad, NordVPN, ...) through one uniform set of operations.
//
// Features:
//   - Status, country catalog, log and account details for any provider
//   - Connect, connect to a country, disconnect and login
//   - Per-provider overrides from a hot-reloaded JSON document
//   - Login tokens kept in the system keyring
//   - Action history and desktop notifications
//   - Interactive terminal dashboard
//
// Usage:
//
//	vpn-provider-cli [options]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/yllada/vpn-provider-cli/cli"
	"github.com/yllada/vpn-provider-cli/common"
	"github.com/yllada/vpn-provider-cli/config"
	"github.com/yllada/vpn-provider-cli/history"
	"github.com/yllada/vpn-provider-cli/keyring"
	"github.com/yllada/vpn-provider-cli/notify"
	"github.com/yllada/vpn-provider-cli/provider"
	"github.com/yllada/vpn-provider-cli/tui"
	"github.com/yllada/vpn-provider-cli/vpn"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
// Default values are used for local development builds
var (
	appVersion = "dev"
	buildTime  = "unknown"
	commitSHA  = "unknown"
)

// historyRetention is how long recorded actions are kept.
const historyRetention = 90 * 24 * time.Hour

var (
	// General flags
	showVersion = flag.Bool("version", false, "Show version and exit")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	showHelp    = flag.Bool("help", false, "Show help message")
	configPath  = flag.String("config", "", "Use an alternative config file")

	// Provider selection
	providerID    = flag.Int("provider", 0, "Provider to act on")
	listProviders = flag.Bool("providers", false, "List configured providers")

	// Queries
	showStatus    = flag.Bool("status", false, "Show the status bundle")
	asJSON        = flag.Bool("json", false, "Print the status bundle as JSON")
	showCountries = flag.Bool("countries", false, "List available countries")
	showLog       = flag.Bool("log", false, "Show the provider log")
	showAccount   = flag.Bool("account", false, "Show account details")
	historyLimit  = flag.Int("history", 0, "Show the last N recorded actions")

	// Controls
	connect    = flag.Bool("connect", false, "Connect the provider")
	country    = flag.String("country", "", "Connect to a specific country")
	disconnect = flag.Bool("disconnect", false, "Disconnect")
	login      = flag.Bool("login", false, "Log the provider CLI in with its stored token")
	setToken   = flag.Bool("set-token", false, "Store a login token")
	token      = flag.String("token", "", "Token for --set-token")

	// Long-running modes
	watch         = flag.Bool("watch", false, "Print status changes until interrupted")
	autoReconnect = flag.Bool("auto-reconnect", false, "Reconnect a dropped provider while watching")
	dashboard     = flag.Bool("tui", false, "Open the interactive dashboard")
)

func main() {
	flag.Usage = func() { cli.PrintHelp(os.Stderr) }
	flag.Parse()

	// Handle help flag
	if *showHelp {
		cli.PrintHelp(os.Stdout)
		os.Exit(0)
	}

	// Handle version flag
	if *showVersion {
		fmt.Printf("%s v%s\n", common.AppName, appVersion)
		if buildTime != "unknown" {
			fmt.Printf("  Build:  %s\n", buildTime)
			fmt.Printf("  Commit: %s\n", commitSHA)
		}
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		if cfg == nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	interactive := *dashboard || (noActionFlags() && term.IsTerminal(int(os.Stdout.Fd())))

	logLevel := common.ParseLevel(cfg.LogLevel)
	if *verbose {
		logLevel = common.LevelDebug
	}
	if err := common.InitLogger(common.LogConfig{
		Level:       logLevel,
		EnableFile:  cfg.LogToFile,
		MaxFileSize: 5 * 1024 * 1024, // 5MB
		MaxBackups:  5,
		Quiet:       interactive,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}

	// Setup graceful shutdown context
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals (SIGINT, SIGTERM)
	setupSignalHandler(cancel)

	code := run(ctx, cfg, interactive)
	cancel()
	common.CloseLogger()
	os.Exit(code)
}

// run wires the application together and executes the requested action.
// It returns the process exit code.
func run(ctx context.Context, cfg *config.Config, interactive bool) int {
	overrides := provider.NewOverrideStore(cfg.ProvidersFile, common.GetLogger().Named("overrides"))
	defer overrides.Close()
	if interactive || *watch {
		if err := overrides.Watch(); err != nil {
			common.LogWarn("Override document will not be reloaded: %v", err)
		}
	}

	adapter := provider.New(provider.Options{
		Overrides:      overrides,
		Runner:         provider.NewExecRunner(cfg.Elevation),
		CommandTimeout: cfg.Timeouts.Command,
		ConnectTimeout: cfg.Timeouts.Connect,
		Settle: provider.SettleConfig{
			Timeout:  cfg.Timeouts.Settle,
			Interval: cfg.Timeouts.SettleInterval,
		},
		Logger: common.GetLogger().Named("provider"),
	})

	configDir, err := common.GetConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	tokens := keyring.New(configDir)
	common.LogDebug("Login tokens stored in %s backend", tokens.Backend())

	opts := vpn.Options{
		Providers:   vpn.ProvidersFromConfig(cfg),
		Adapter:     adapter,
		Tokens:      tokens,
		PublicIPURL: cfg.PublicIPURL,
	}

	var journal cli.Journal
	if cfg.RecordHistory {
		store, err := history.Open(cfg.HistoryFile)
		if err != nil {
			common.LogWarn("Action history disabled: %v", err)
		} else {
			defer store.Close()
			if n, err := store.Prune(ctx, time.Now().Add(-historyRetention)); err != nil {
				common.LogWarn("Failed to prune action history: %v", err)
			} else if n > 0 {
				common.LogDebug("Pruned %d old history entries", n)
			}
			opts.History = store
			journal = store
		}
	}

	if cfg.ShowNotifications {
		desktop := notify.New()
		defer desktop.Close()
		opts.Notifier = desktop
	}

	manager := vpn.NewManager(opts)
	app := cli.New(manager, tokens, journal, os.Stdout)

	id := *providerID
	if id == 0 {
		id = cfg.ActiveProvider
	}

	// Check if context is already cancelled before proceeding
	select {
	case <-ctx.Done():
		common.LogInfo("Operation cancelled before execution")
		return 130
	default:
	}

	var runErr error
	switch {
	case *dashboard || interactive:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: --tui requires a terminal")
			return 1
		}
		common.LogInfo("Starting %s v%s dashboard", common.AppName, appVersion)
		runErr = tui.Run(ctx, manager, id, tui.DefaultRefresh)
	case *listProviders:
		runErr = app.ListProviders()
	case *setToken:
		runErr = app.SetToken(id, *token)
	case *login:
		runErr = app.Login(ctx, id)
	case *country != "":
		runErr = app.Connect(ctx, id, *country)
	case *connect:
		runErr = app.Connect(ctx, id, "")
	case *disconnect:
		runErr = app.Disconnect(ctx, id)
	case *showCountries:
		runErr = app.Countries(ctx, id)
	case *showLog:
		runErr = app.Log(ctx, id)
	case *showAccount:
		runErr = app.Account(ctx, id)
	case *historyLimit > 0:
		runErr = app.History(ctx, *historyLimit)
	case *watch:
		monitorCfg := vpn.MonitorConfigFromConfig(cfg.Monitor)
		if *autoReconnect {
			monitorCfg.AutoReconnect = true
		}
		runErr = app.Watch(ctx, id, monitorCfg)
	default:
		runErr = app.Status(ctx, id, *asJSON)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		if errors.Is(runErr, common.ErrValidation) {
			return 2
		}
		return 1
	}
	return 0
}

// loadConfig reads the config file named by --config or the default one.
// A non-nil config with an error means defaults are in use.
func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.LoadFrom(filepath.Clean(*configPath))
	}
	cfg, err := config.Load()
	if err != nil && cfg == nil {
		return config.DefaultConfig(), fmt.Errorf("using default configuration: %w", err)
	}
	return cfg, err
}

// noActionFlags reports whether no action or query flag was given.
func noActionFlags() bool {
	return !*listProviders && !*showStatus && !*asJSON && !*showCountries && !*showLog &&
		!*showAccount && *historyLimit == 0 && !*connect && *country == "" && !*disconnect &&
		!*login && !*setToken && !*watch
}

// setupSignalHandler configures graceful shutdown on SIGINT/SIGTERM.
// When a signal is received, it cancels the context to allow cleanup.
func setupSignalHandler(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		common.LogInfo("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
	}()
}
