// Command servoctl is the operator CLI for the petrol price site database.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/config"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/db"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/logging"
)

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

var (
	dbPath   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "servoctl",
	Short:         "Manage the petrol prices database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := config.ParseLogLevel(logLevel)
		if err != nil {
			return err
		}
		slog.SetDefault(logging.New(level, "dev", version, "servoctl"))
		return nil
	},
}

func init() {
	config.LoadDotEnv()

	defaultPath := os.Getenv("SQLITE_PATH")
	if defaultPath == "" {
		defaultPath = "dev/sqlite/app.db"
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultPath, "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(migrateCmd, importCmd, geocodeCmd, statsCmd, messagesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "servoctl: %v\n", err)
		os.Exit(1)
	}
}

// withDB opens the database named by --db for the duration of fn.
func withDB(fn func(conn *sql.DB) error) error {
	conn, err := db.OpenPath(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()
	return fn(conn)
}
