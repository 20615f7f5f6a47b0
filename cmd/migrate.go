package main

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/cityname"
	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/store"
)

var migrateSeedStates bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return migrate(ctx, st, migrateSeedStates)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSeedStates, "seed-states", false, "insert the 50 states and DC if missing")
	rootCmd.AddCommand(migrateCmd)
}

func migrate(ctx context.Context, st store.Store, seed bool) error {
	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate")
	}
	zap.L().Info("schema applied")

	if !seed {
		return nil
	}
	n, err := st.SeedStates(ctx, defaultStates())
	if err != nil {
		return eris.Wrap(err, "migrate: seed states")
	}
	zap.L().Info("states seeded", zap.Int64("inserted", n))
	return nil
}

// defaultStates lists the states known to the city name rules, by code.
func defaultStates() []model.State {
	names := cityname.DefaultTables().States
	states := make([]model.State, 0, len(names))
	for code, name := range names {
		states = append(states, model.State{Code: code, Name: name})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Code < states[j].Code })
	return states
}
