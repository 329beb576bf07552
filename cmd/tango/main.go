package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hpungsan/tango/internal/config"
	"github.com/hpungsan/tango/internal/db"
	"github.com/hpungsan/tango/internal/db/postgres"
	"github.com/hpungsan/tango/internal/llm"
	"github.com/hpungsan/tango/internal/logger"
	"github.com/hpungsan/tango/internal/mcp"
	"github.com/hpungsan/tango/internal/metrics"
	"github.com/hpungsan/tango/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"process": true, "confirm": true, "detect": true,
	"list": true, "count": true, "clear": true, "audit": true,
	"export": true, "import": true, "upload": true,
	"serve": true, "mcp": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	return isHelpOrVersion()
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	switch os.Args[1] {
	case "--help", "-h", "--version", "-v", "help":
		return true
	}
	return false
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _
  | |_ __ _ _ __   __ _  ___
  | __/ _' | '_ \ / _' |/ _ \
  | || (_| | | | | (_| | (_) |
   \__\__,_|_| |_|\__, |\___/
                  |___/

  English/Japanese vocabulary to flashcards

  Usage: tango <command> [options]
         tango --help

  MCP server mode requires piped input.`)
}

// runtimeDeps is everything a command needs once the store is open.
type runtimeDeps struct {
	pipeline *ops.Pipeline
	cfg      *config.Config
	log      *slog.Logger
	metrics  *metrics.Metrics
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before store init
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && !isCLIMode() && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'tango --help' for usage.\n")
		os.Exit(1)
	}

	// A missing .env is normal; the environment may already be set.
	_ = godotenv.Load()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".tango")

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, baseDir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize store: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	svc, err := llm.New(cfg.LLM, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	m := metrics.New()
	deps := &runtimeDeps{
		pipeline: ops.NewPipeline(store, svc, cfg, log, m),
		cfg:      cfg,
		log:      log,
		metrics:  m,
	}

	if isCLIMode() {
		app := newCLIApp(deps)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			closeStore()
			os.Exit(1)
		}
		return
	}

	// MCP server mode (default)
	if err := mcp.Run(deps.pipeline, cfg, log, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		closeStore()
		os.Exit(1)
	}
}

// openStore opens the configured flashcard store and returns its closer.
func openStore(ctx context.Context, baseDir string, cfg *config.Config) (ops.FlashcardStore, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Driver)) {
	case "", "sqlite":
		database, err := db.Init(baseDir)
		if err != nil {
			return nil, nil, err
		}
		db.ConfigurePool(database, cfg)
		return db.NewStore(database), func() { database.Close() }, nil
	case "postgres":
		store, err := postgres.Open(ctx, cfg.Store.DSN, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q (want sqlite or postgres)", cfg.Store.Driver)
	}
}
