package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/directory-cli/internal/model"
)

var statesCmd = &cobra.Command{
	Use:   "states",
	Short: "List states and their ids",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("states"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		states, err := st.ListStates(ctx)
		if err != nil {
			return err
		}
		return printStates(cmd.OutOrStdout(), states)
	},
}

func init() {
	rootCmd.AddCommand(statesCmd)
}

func printStates(w io.Writer, states []model.State) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tNAME")
	for _, s := range states {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Code, s.Name)
	}
	return tw.Flush()
}
