// Command screensound manages the catalog from the console.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/screensound/catalog/internal/infra/config"
	"github.com/screensound/catalog/internal/infra/datastore"
	"github.com/screensound/catalog/internal/infra/platform/logger"
)

var (
	// dbPath is set by the --db flag and wins over SQLITE_PATH.
	dbPath string
	// jsonOutput prints results as JSON instead of a table.
	jsonOutput bool

	// store is opened before every subcommand and closed after it.
	store datastore.DataStore
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "screensound",
	Short: "ScreenSound keeps a catalog of artists, songs and genres",
	Long: `ScreenSound keeps a catalog of artists, their songs and the genres the
songs belong to. Settings come from the environment or a .env file.`,
	SilenceUsage:      true,
	PersistentPreRunE: openStore,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store == nil {
			return nil
		}
		return store.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default: SQLITE_PATH or ./tmp/catalog.sqlite)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(artistCmd)
	rootCmd.AddCommand(songCmd)
	rootCmd.AddCommand(genreCmd)
}

func openStore(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.LogLevel == "" {
		level = slog.LevelWarn
	}
	slog.SetDefault(logger.New("text", level))

	path := dbPath
	if path == "" {
		path = cfg.SqlitePath
	}
	ds, err := datastore.Open(cmd.Context(), datastore.Config{
		Driver: cfg.DBDriver,
		Source: cfg.SqliteSource,
		Path:   path,
	})
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	store = ds
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
