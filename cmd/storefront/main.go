// storefront is the command-line buyer client for the store API.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	storefront login -u USER
//	storefront register -u USER -email EMAIL
//	storefront status | logout | profile
//	storefront products [-search Q] [-category SLUG] [-sort -price] [-page N]
//	storefront product -slug SLUG [-size M] [-color Blue]
//	storefront cart [add|update|remove|clear]
//	storefront addresses [-add]
//	storefront checkout [-address ID]
//	storefront verify -order ORDER -payment PAY -signature SIG
//	storefront orders
//	storefront design [-image FILE -title TITLE]
//	storefront mcp
//
// Examples:
//
//	storefront login -u asha
//	storefront product -slug oxford-shirt -size M -color Blue
//	storefront cart add -variant 101 -qty 2
//	storefront checkout
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"storefront/internal/app"
	"storefront/internal/config"
)

// Global flags (apply to all commands)
var (
	quiet    bool
	noColor  bool
	jsonOut  bool
	logLevel string
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	commands := map[string]func([]string){
		"login":      runLogin,
		"logout":     runLogout,
		"register":   runRegister,
		"status":     runStatus,
		"profile":    runProfile,
		"products":   runProducts,
		"featured":   runFeatured,
		"categories": runCategories,
		"product":    runProduct,
		"review":     runReview,
		"wishlist":   runWishlist,
		"cart":       runCart,
		"addresses":  runAddresses,
		"checkout":   runCheckout,
		"verify":     runVerify,
		"orders":     runOrders,
		"design":     runDesign,
		"mcp":        runMCP,
	}

	switch cmd {
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	}
	run, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		exit(1)
	}
	run(args)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `storefront - buyer client for the store

Usage:
  storefront <command> [options]

Account:
  login       Sign in and persist the session
  register    Create an account and sign in
  logout      Discard the local session
  status      Show who is signed in and when the access token expires
  profile     Show or update the profile

Catalog:
  products    Search the catalog
  featured    List featured products
  categories  List categories
  product     Show a product and resolve a size/color variant
  review      Review a product
  wishlist    Show, add to or remove from the wishlist

Cart & checkout:
  cart        Show the cart (subcommands: add, update, remove, clear)
  addresses   List or add delivery addresses
  checkout    Place an order and pay in the browser
  verify      Re-submit a payment proof that failed verification
  orders      List past orders

Custom tees:
  design      Upload a custom T-shirt design, or list your designs

Agents:
  mcp         Serve the storefront tools over MCP on stdio

Configuration comes from the environment (STOREFRONT_API_URL, ...) or CONFIG_FILE.
Run 'storefront <command> -h' for command-specific options.
`)
}

// newFlagSet returns a FlagSet carrying the global flags.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only print essential output")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&jsonOut, "json", false, "Print results as JSON")
	fs.StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: storefront %s %s\n\nOptions:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args and applies the global flags.
func parse(fs *flag.FlagSet, args []string) {
	fs.Parse(args)
	if noColor || jsonOut {
		disableColors()
	}
}

// setup loads configuration and wires the client. The returned context is
// cancelled on interrupt.
func setup() (context.Context, *app.App, func()) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cfg, err := config.Load(ctx)
	if err != nil {
		stop()
		fatal("Loading config: %v", err)
	}
	switch {
	case logLevel != "":
		cfg.LogLevel = logLevel
	case os.Getenv("LOG_LEVEL") == "" && os.Getenv("CONFIG_FILE") == "":
		// Request logs would drown command output.
		cfg.LogLevel = "warn"
	}

	logger := initLogger(cfg)
	a, err := app.New(app.Options{Config: cfg, Logger: logger, Notice: os.Stderr})
	if err != nil {
		stop()
		fatal("%v", err)
	}

	done := sync.OnceFunc(func() {
		a.Close()
		stop()
	})
	atExit(done)
	return ctx, a, done
}

// initLogger writes to stderr so stdout stays clean for command output.
// Production uses JSON format, development uses text.
func initLogger(cfg *config.Config) *slog.Logger {
	level := cfg.SlogLevel()
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}
	if cfg.Environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
