package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/msaym22/final-lead-gen-sub001/internal/bootstrap"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/store"
)

var (
	dbPath       string
	storeBackend string
	jsonOut      bool
)

var rootCmd = &cobra.Command{
	Use:           "leadctl",
	Short:         "Industry research and transcript cache for lead generation",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		bootstrap.SetupLogging()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default $SQLITE_PATH or ~/.leadgen/research.db)")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "Store backend: memory, sqlite, postgres or mongo (default from environment)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "JSON output")
}

// loadConfig applies the persistent flags on top of the environment.
func loadConfig() engine.Config {
	c := bootstrap.ConfigFromEnv()
	if dbPath != "" {
		c.SQLitePath = dbPath
		if storeBackend == "" {
			c.StoreBackend = store.BackendSQLite
		}
	}
	if storeBackend != "" {
		c.StoreBackend = storeBackend
	}
	return c
}

// openStore opens only the store, for commands that never touch the network.
func openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, loadConfig())
}

func openServices(ctx context.Context) (*bootstrap.Services, error) {
	return bootstrap.New(ctx, loadConfig())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
