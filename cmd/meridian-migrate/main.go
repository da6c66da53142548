// Package main is the entry point for the Meridian database migration tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-auth/internal/config"
	"github.com/prn-tf/meridian-auth/internal/repository/postgres"
	"github.com/prn-tf/meridian-auth/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Meridian Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		runUp(os.Args[2:])

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runUp(args []string) {
	fs := flag.NewFlagSet("up", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	ctx := context.Background()

	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:        cfg.Database.Path,
			JournalMode: cfg.Database.JournalMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		}, logger)
		if err != nil {
			fatal(err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			fatal(err)
		}

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			fatal(err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			fatal(err)
		}

	default:
		fatal(fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver))
	}

	fmt.Println("migrations applied")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`Meridian Migration Tool

Usage:
  meridian-migrate <command> [arguments]

Commands:
  up          Apply all pending migrations
  version     Print version information
  help        Show this help message

Configuration is read the same way as the server: a YAML config file
(--config) plus MERIDIAN_ environment variables.`)
}
