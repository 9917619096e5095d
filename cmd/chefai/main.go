package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hpungsan/chefai/internal/api"
	"github.com/hpungsan/chefai/internal/config"
	"github.com/hpungsan/chefai/internal/db"
	"github.com/hpungsan/chefai/internal/logging"
	"github.com/hpungsan/chefai/internal/mcp"
	"github.com/hpungsan/chefai/internal/ops"
	"github.com/hpungsan/chefai/internal/session"
	"github.com/hpungsan/chefai/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"signin": true, "signup": true, "logout": true, "status": true,
	"generate": true, "history": true, "show": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
    ___ _         __   _   ___
   / __| |_  ___ / _| /_\ |_ _|
  | (__| ' \/ -_)  _|/ _ \ | |
   \___|_||_\___|_| /_/ \_\___|

  Recipes from what you have

  Usage: chefai <command> [options]
         chefai --help

  MCP server mode requires piped input.`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion(os.Args) {
		if err := newCLIApp(nil).Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fail("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".chefai")

	database, err := db.Init(baseDir)
	if err != nil {
		fail("failed to initialize database: %v", err)
	}
	defer database.Close()

	cfg, err := config.Load(baseDir)
	if err != nil {
		fail("failed to load config: %v", err)
	}

	log := logging.New(cfg)
	defer func() { _ = log.Sync() }()

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("unknown tools in disabled_tools", zap.Strings("tools", unknown))
	}

	guard := session.NewGuard(session.NewSQLiteStorage(database), log)
	client := api.NewClient(cfg, guard, log)
	env := &appEnv{
		o:   ops.New(client, guard, store.New(), cfg, log),
		cfg: cfg,
		log: log,
	}

	// CLI mode: known subcommand
	if isCLIMode(os.Args) {
		if err := newCLIApp(env).Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'chefai --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(env.o, cfg, Version); err != nil {
		fail("%v", err)
	}
}
