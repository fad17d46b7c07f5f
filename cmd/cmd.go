// Package cmd provides CLI commands for alderaan.
//
// Commands:
//   - serve: HTTP API server for sessions, chat, and speech
//   - migrate: run database migrations and exit
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/uday-dev/alderaan/internal/log"
)

// Execute is the main entry point for the alderaan CLI application.
func Execute() error {
	// Initialize logger once at entry point.
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level, JSON: os.Getenv("LOG_JSON") != ""})
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(logger)
	case "migrate":
		return runMigrate(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Alderaan - conversational assistant backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  alderaan serve [addr]  Start HTTP API server (default: 127.0.0.1:8080)")
	fmt.Println("  alderaan migrate       Run database migrations and exit")
	fmt.Println("  alderaan --version     Show version information")
	fmt.Println("  alderaan --help        Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  ALDERAAN_HMAC_SECRET   Required for serve: 32+ byte cookie signing secret")
	fmt.Println("  DATABASE_URL           Optional: overrides postgres_* config values")
	fmt.Println("  DEBUG                  Optional: enable debug logging")
	fmt.Println("  LOG_JSON               Optional: JSON log output")
}
