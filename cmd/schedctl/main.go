// schedctl manages a local collection from the command line.
package main

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/domino14/srs_scheduler/internal/collection"
	"github.com/domino14/srs_scheduler/internal/stores/sqlstore"
)

var (
	dbDriver    string
	dbURI       string
	logLevel    string
	disableFuzz bool
)

var rootCmd = &cobra.Command{
	Use:           "schedctl",
	Short:         "Study and manage a spaced-repetition collection",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
		if err != nil || level == zerolog.NoLevel {
			level = zerolog.WarnLevel
		}
		zerolog.SetGlobalLevel(level)
	},
}

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", sqlstore.DriverSqlite, "database driver: sqlite3 or pgx")
	rootCmd.PersistentFlags().StringVar(&dbURI, "db", "collection.db", "database file or connection URI")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")
	rootCmd.PersistentFlags().BoolVar(&disableFuzz, "no-fuzz", false, "turn off interval fuzz")

	rootCmd.AddCommand(initCmd, addCmd, decksCmd, nextCmd, answerCmd,
		buryCmd, suspendCmd, unsuspendCmd, unburyCmd, filteredCmd, presetsCmd, studyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("schedctl")
		os.Exit(1)
	}
}

// withCollection opens the collection for the duration of one command.
func withCollection(f func(ctx context.Context, col *collection.Collection, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := log.Logger.WithContext(cmd.Context())
		store, err := sqlstore.Open(ctx, dbDriver, dbURI)
		if err != nil {
			return err
		}
		col, err := collection.Open(ctx, store, collection.Options{DisableFuzz: disableFuzz})
		if err != nil {
			store.Close()
			return err
		}
		defer col.Close()
		return f(ctx, col, args)
	}
}
