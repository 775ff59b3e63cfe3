package cli

import (
	"fmt"
	"io"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	_ "modernc.org/sqlite"

	"github.com/townql/townql/internal/cli/commands"
	"github.com/townql/townql/internal/cliopt"
	"github.com/townql/townql/internal/cliutil"
	"github.com/townql/townql/townql/config"
	qerrors "github.com/townql/townql/townql/errors"
	"github.com/townql/townql/townql/logger"
	"github.com/townql/townql/townql/metrics"
)

// Execute runs the CLI and returns an exit code.
func Execute(argv []string) int {
	root, err := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	root.SetArgs(argv)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCode(err)
	}
	return 0
}

// NewRootCommand wires the command tree. Config is loaded once, before any
// subcommand runs.
func NewRootCommand(in io.Reader, out, errOut io.Writer) (*cobra.Command, error) {
	v := viper.New()
	g := cliopt.DefaultGlobalOptions()
	env := &cliutil.Env{}

	root := &cobra.Command{
		Use:           "townql",
		Short:         "Query Vermont municipalities with a tiny query language",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, g.ConfigFile)
			if err != nil {
				return err
			}
			env.Config = cfg
			env.Logger = logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, errOut)
			env.Metrics = metrics.New()
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := cliopt.BindGlobalFlags(root.PersistentFlags(), v, &g); err != nil {
		return nil, err
	}

	root.AddCommand(
		commands.NewQueryCommand(env, &g),
		commands.NewExplainCommand(env, &g),
		commands.NewSeedCommand(env),
		commands.NewShellCommand(env, &g),
	)
	return root, nil
}

// exitCode is 2 for queries the language rejects and 1 for everything else.
func exitCode(err error) int {
	switch qerrors.KindOf(err) {
	case qerrors.ErrLex, qerrors.ErrSyntax, qerrors.ErrUnknownField,
		qerrors.ErrOperatorTypeMismatch, qerrors.ErrValueTypeMismatch,
		qerrors.ErrFieldFormat, qerrors.ErrLanguageRestriction:
		return 2
	}
	return 1
}
