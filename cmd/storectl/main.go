package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gurkanbulca/storeflow/internal/config"
	"github.com/gurkanbulca/storeflow/internal/database"
)

var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "storectl",
		Short: "StoreFlow administration tool",
		Long:  "storectl manages staff, task types and runtime parameters, and calls the TaskService.",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		migrateCmd(),
		actorCmd(),
		taskTypeCmd(),
		paramCmd(),
		customerCmd(),
		tokenCmd(),
		callCmd(),
		eventsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB() (*database.DB, error) {
	return database.Open(database.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN(),
	})
}

// withDB opens the configured database for the duration of fn.
func withDB(fn func(ctx context.Context, db *database.DB) error) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(context.Background(), db)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}

// migrateCmd implements 'storectl migrate'.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withDB(func(ctx context.Context, db *database.DB) error {
				if err := database.Migrate(ctx, db); err != nil {
					return err
				}
				fmt.Println("Migrations completed")
				return nil
			})
		},
	}
}
