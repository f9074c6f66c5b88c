// Command weft is the strategy composer CLI: an agent chat loop that edits
// the strategy graph through tool calls, plus direct subcommands for
// importing, exporting, laying out and validating workflow documents.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parallaxfi/weft/core/store"
	"github.com/parallaxfi/weft/providers/observability"
	"github.com/parallaxfi/weft/providers/observability/slogobs"
	"github.com/parallaxfi/weft/providers/persistence"
	"github.com/parallaxfi/weft/providers/persistence/badgerstore"
	"github.com/parallaxfi/weft/providers/persistence/inmemory"
)

func main() {
	root := &cobra.Command{
		Use:           "weft",
		Short:         "Compose, validate and run DeFi strategy graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newChatCommand(),
		newExportCommand(),
		newImportCommand(),
		newLayoutCommand(),
		newValidateCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newObserver builds the slog-backed observer at the configured level.
func newObserver(cfg *Config) observability.Provider {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "trace":
		level = slogobs.LevelTrace
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slogobs.New(slog.New(handler))
}

// openPersistence picks badger when a data directory is configured and
// falls back to in-memory storage otherwise. The returned closer may be nil.
func openPersistence(cfg *Config) (persistence.Port, func() error, error) {
	if cfg.DataDir == "" {
		return inmemory.New(), nil, nil
	}
	db, err := badgerstore.Open(badgerstore.Options{Dir: filepath.Join(cfg.DataDir, "snapshots")})
	if err != nil {
		return nil, nil, fmt.Errorf("opening snapshot store: %w", err)
	}
	return db, db.Close, nil
}

// newStore assembles a loaded graph store from the configuration.
func newStore(cfg *Config, observer observability.Provider) (*store.Store, func() error, error) {
	port, closer, err := openPersistence(cfg)
	if err != nil {
		return nil, nil, err
	}
	graphStore := store.New(
		store.WithPersistence(port, cfg.Slot),
		store.WithObserver(observer),
	)
	if err := graphStore.Load(cmdContext()); err != nil {
		return nil, nil, err
	}
	return graphStore, closer, nil
}
