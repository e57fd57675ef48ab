package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sakshi-Saware/BookSwap/api"
	"github.com/Sakshi-Saware/BookSwap/config"
	"github.com/Sakshi-Saware/BookSwap/kvstore"
	"github.com/Sakshi-Saware/BookSwap/market"
)

var (
	flagConfig  string
	flagNoColor bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bookswap",
	Short: "Lend, borrow and swap books with readers nearby",
	Long: `bookswap runs a peer-to-peer book lending marketplace.

Run 'bookswap' with no arguments for the interactive shell,
'bookswap serve' for the HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		color.NoColor = color.NoColor || flagNoColor
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger, err = cfg.Log.NewLogger(os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		m, store, _, err := openMarketplace(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer store.Close()
		return runShell(cmd.Context(), m, os.Stdin)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/bookswap/config.yml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.AddCommand(newServeCmd(), newSeedCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

// openMarketplace opens the configured store and seeds it on first use,
// reporting whether seeding ran. fixturesPath overrides fixtures.path.
func openMarketplace(ctx context.Context, fixturesPath string) (*market.Marketplace, *kvstore.Store, bool, error) {
	backend, err := kvstore.OpenBackend(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.DSN)
	if err != nil {
		return nil, nil, false, fmt.Errorf("opening store: %w", err)
	}
	store := kvstore.New(backend,
		kvstore.WithLogger(logger),
		kvstore.WithMaxValueBytes(cfg.Store.MaxValueBytes),
		kvstore.WithWarningHandler(func(w kvstore.Warning) {
			warn("%s; the change lasts until you quit", w)
		}),
	)

	m := market.New(store, market.Options{
		Identity: market.Identity{
			GuestID:         cfg.Identity.GuestID,
			ForeignPrefixes: cfg.Identity.ForeignPrefixes,
		},
		Logger: logger,
	})

	if fixturesPath == "" {
		fixturesPath = cfg.Fixtures.Path
	}
	fx, err := loadFixtures(fixturesPath)
	if err != nil {
		store.Close()
		return nil, nil, false, err
	}
	seeded, err := m.Initialize(ctx, fx)
	if err != nil {
		store.Close()
		return nil, nil, false, fmt.Errorf("initializing store: %w", err)
	}
	return m, store, seeded, nil
}

func loadFixtures(path string) (*market.Fixtures, error) {
	if path == "" {
		return market.DefaultFixtures()
	}
	return market.LoadFixtures(config.ExpandHome(path))
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the marketplace as a JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.Server.Addr
			}
			tokens, err := api.NewTokenService(cfg.Server.JWTSecret, cfg.Server.TokenTTL)
			if err != nil {
				return fmt.Errorf("%w (set server.jwt_secret or BOOKSWAP_SERVER_JWT_SECRET)", err)
			}
			m, store, _, err := openMarketplace(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer store.Close()

			var opts []api.Option
			if ext := cfg.Server.External; ext.Key != "" {
				verifier, err := api.NewExternalVerifier(ext.Key, ext.Issuer, ext.Audience)
				if err != nil {
					return err
				}
				opts = append(opts, api.WithExternalVerifier(verifier))
			}
			srv := api.New(m, tokens, logger, opts...)
			errc := make(chan error, 1)
			go func() { errc <- srv.Listen(addr) }()

			select {
			case err := <-errc:
				return err
			case <-cmd.Context().Done():
				logger.Info("shutting down")
				return srv.Shutdown()
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed an empty store from a fixture file",
		Long: `seed writes fixture data into every collection that is still empty.
A store that was already seeded is left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, store, seeded, err := openMarketplace(cmd.Context(), file)
			if err != nil {
				return err
			}
			defer store.Close()

			if !seeded {
				warn("store already seeded, nothing written")
				return nil
			}
			books, err := m.Books.List(cmd.Context(), market.Filter{})
			if err != nil {
				return err
			}
			ok("seeded %s (%d books)", cfg.Store.Driver, len(books))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Fixture YAML file (default: built-in demo data)")
	return cmd
}

// ok prints a green success line.
func ok(format string, a ...interface{}) {
	fmt.Println(color.GreenString("✓"), fmt.Sprintf(format, a...))
}

// warn prints a yellow warning line.
func warn(format string, a ...interface{}) {
	fmt.Fprintln(os.Stderr, color.YellowString("!"), fmt.Sprintf(format, a...))
}

// failed prints a red error line for err.
func failed(action string, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, market.ErrNotFound):
		msg = "not found: " + msg
	case errors.Is(err, market.ErrInvalidTransition):
		msg = "that step is not allowed now: " + msg
	}
	fmt.Fprintln(os.Stderr, color.RedString("✗"), action+":", msg)
}

func header(format string, a ...interface{}) {
	fmt.Println(color.CyanString(fmt.Sprintf(format, a...)))
}
