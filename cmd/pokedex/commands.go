package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/pokeapi-client/internal/config"
	"github.com/Sternrassler/pokeapi-client/pkg/filter"
	"github.com/Sternrassler/pokeapi-client/pkg/logging"
	"github.com/Sternrassler/pokeapi-client/pkg/pokeapi"
	"github.com/Sternrassler/pokeapi-client/pkg/pokedex"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs.
type app struct {
	cfg    config.Config
	client *pokeapi.Client
	close  func()
}

// logEnv holds the logging defaults the CLI reads from the environment.
// The CLI stays quieter than the server unless LOG_LEVEL says otherwise.
type logEnv struct {
	Level  string `env:"LOG_LEVEL" envDefault:"warn"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// loadLogEnv falls back to the defaults when the environment does not parse;
// an invalid level is still reported when the flag is applied.
func loadLogEnv() logEnv {
	var e logEnv
	if err := config.ParseEnv(&e); err != nil {
		return logEnv{Level: "warn"}
	}
	return e
}

func newRootCmd() *cobra.Command {
	defaults := loadLogEnv()

	var (
		logLevel  string
		logPretty bool
	)

	root := &cobra.Command{
		Use:           "pokedex",
		Short:         "Browse PokeAPI from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logging.Setup(logging.Config{Level: level, Pretty: logPretty, Output: cmd.ErrOrStderr()})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", defaults.Level, "Log level (debug, info, warn, error), defaults to $LOG_LEVEL")
	root.PersistentFlags().BoolVar(&logPretty, "log-pretty", defaults.Pretty, "Human-readable log output, defaults to $LOG_PRETTY")

	root.AddCommand(newListCmd())
	root.AddCommand(newShowCmd())

	return root
}

func newListCmd() *cobra.Command {
	var (
		pages  int
		search string
		fuzzy  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Load pages of Pokémon and print them as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pages < 1 {
				return fmt.Errorf("--pages must be >= 1 (got %d)", pages)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			mode := filter.ModeSubstring
			if fuzzy {
				mode = filter.ModeFuzzy
			}

			dex, err := pokedex.New(a.client, a.cfg.Pokedex(mode))
			if err != nil {
				return err
			}

			if err := loadPages(cmd.Context(), dex, pages); err != nil {
				return err
			}

			dex.SetSearchTerm(search)
			snap := dex.Snapshot()

			if err := renderCards(cmd.OutOrStdout(), snap.Cards); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d loaded (%d available)\n", snap.Matched, snap.Total, snap.Available)
			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "Number of pages to load")
	cmd.Flags().StringVar(&search, "search", "", "Only show names containing this term")
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "Match the search term fuzzily")
	return cmd
}

// loadPages loads the first page and then up to pages-1 more.
func loadPages(ctx context.Context, dex *pokedex.Pokedex, pages int) error {
	if err := dex.LoadInitial(ctx); err != nil {
		return err
	}
	for i := 1; i < pages; i++ {
		err := dex.LoadMore(ctx)
		if errors.Is(err, pokedex.ErrNoMorePages) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Print one Pokémon by name or id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			p, err := a.client.GetPokemonByName(cmd.Context(), args[0])
			if pokeapi.IsNotFound(err) {
				return fmt.Errorf("pokemon %q not found", args[0])
			}
			if err != nil {
				return err
			}

			return renderCard(cmd.OutOrStdout(), pokedex.CardFor(*p), p)
		},
	}
}

// newApp loads the environment configuration and builds the client.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, closeStore, err := cfg.OpenStore(ctx)
	if err != nil {
		return nil, err
	}

	client, err := pokeapi.New(cfg.Client(store))
	if err != nil {
		closeStore()
		return nil, err
	}

	return &app{
		cfg:    cfg,
		client: client,
		close: func() {
			client.Close()
			closeStore()
		},
	}, nil
}
