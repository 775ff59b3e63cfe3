package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/townql/townql/internal/cliopt"
	"github.com/townql/townql/internal/cliutil"
	"github.com/townql/townql/townql"
	qerrors "github.com/townql/townql/townql/errors"
)

func NewQueryCommand(env *cliutil.Env, g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <text>",
		Short: "Run one query and print the result",
		Example: `  townql query 'population > 5000'
  townql query 'altitude OF Burlington'
  townql query 'county == "Grand Isle"' --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunQuery(cmd, env, g, strings.Join(args, " "))
		},
	}
}

// RunQuery parses before connecting, so a bad query never touches the store.
func RunQuery(cmd *cobra.Command, env *cliutil.Env, g *cliopt.GlobalOptions, text string) error {
	ctx := cmd.Context()
	plan, err := townql.ParseQuery(text)
	if err != nil {
		env.Metrics.ObserveParseError(string(qerrors.KindOf(err)))
		return err
	}

	client, err := cliutil.OpenClient(ctx, *env)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "query parsed as: %s\n", plan)
		return err
	}
	defer client.Close()

	res, err := client.Execute(ctx, plan)
	if err != nil {
		return err
	}
	cliutil.WriteResult(cmd.OutOrStdout(), res, plan, cliutil.ParseOutputFormat(g.Format), g.Width)
	return nil
}
