// Command import_fixtures loads a fixture file into the configured store,
// optionally wiping a SQLite database first.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sakshi-Saware/BookSwap/config"
	"github.com/Sakshi-Saware/BookSwap/kvstore"
	"github.com/Sakshi-Saware/BookSwap/market"
)

func main() {
	var (
		configPath string
		reset      bool
	)
	cmd := &cobra.Command{
		Use:          "import_fixtures [fixtures.yml]",
		Short:        "Load fixture data into the BookSwap store",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			path := cfg.Fixtures.Path
			if len(args) == 1 {
				path = args[0]
			}
			if reset {
				if cfg.Store.Driver != "sqlite" {
					return fmt.Errorf("--reset only works with the sqlite driver, not %q", cfg.Store.Driver)
				}
				removeDatabase(config.ExpandHome(cfg.Store.Path))
			}
			return importFixtures(cmd.Context(), cfg, path)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Config file path")
	cmd.Flags().BoolVar(&reset, "reset", false, "Delete the SQLite database before importing")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func removeDatabase(path string) {
	fmt.Println("Cleaning up existing database files...")
	for _, file := range []string{path, path + "-shm", path + "-wal"} {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
		}
	}
	fmt.Println("Database cleanup complete.")
}

func importFixtures(ctx context.Context, cfg *config.Config, path string) error {
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	backend, err := kvstore.OpenBackend(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	store := kvstore.New(backend, kvstore.WithLogger(logger), kvstore.WithMaxValueBytes(cfg.Store.MaxValueBytes))
	defer store.Close()

	var fx *market.Fixtures
	if path == "" {
		fx, err = market.DefaultFixtures()
	} else {
		fmt.Printf("Importing fixtures from %s...\n", path)
		fx, err = market.LoadFixtures(config.ExpandHome(path))
	}
	if err != nil {
		return err
	}

	m := market.New(store, market.Options{
		Identity: market.Identity{GuestID: cfg.Identity.GuestID, ForeignPrefixes: cfg.Identity.ForeignPrefixes},
		Logger:   logger,
	})
	seeded, err := m.Initialize(ctx, fx)
	if err != nil {
		return err
	}
	if !seeded {
		fmt.Println(color.YellowString("Store was already initialized; nothing imported. Use --reset to start over."))
		return nil
	}

	fmt.Printf("\nImport complete: %d users, %d books, %d chats, %d events\n",
		len(fx.Users), len(fx.Books), len(fx.Chats), len(fx.Events))
	return nil
}
