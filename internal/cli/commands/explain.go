package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/townql/townql/internal/cliopt"
	"github.com/townql/townql/internal/cliutil"
	"github.com/townql/townql/townql"
)

func NewExplainCommand(env *cliutil.Env, g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <text>",
		Short: "Parse a query and show its plan without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := townql.ParseQuery(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
				cliutil.PrintJSON(cmd.OutOrStdout(), map[string]any{
					"plan":  plan.String(),
					"steps": plan.Explain(),
				})
				return nil
			}
			cliutil.WritePlan(cmd.OutOrStdout(), plan)
			return nil
		},
	}
}
