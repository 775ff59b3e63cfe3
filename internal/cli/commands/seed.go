package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/townql/townql/internal/cliutil"
	qerrors "github.com/townql/townql/townql/errors"
	"github.com/townql/townql/townql/seed"
)

func NewSeedCommand(env *cliutil.Env) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "seed [file]",
		Short: "Load town records from a JSON (or .zst) file",
		Long: `Load town records into the configured collection. The file holds a JSON
array of records or a single record and may be zstd-compressed. Keys such as
Town_Name or URL are accepted, postal codes are zero-padded and phone numbers
formatted. Without a file argument, seed.file from the config is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := env.Config.Seed.File
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return qerrors.New(qerrors.ErrSeed, "no seed file given")
			}

			records, err := seed.ReadFile(path)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := cliutil.OpenClient(ctx, *env)
			if err != nil {
				return err
			}
			defer client.Close()

			n, err := client.Seed(ctx, records, replace)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d documents into %s\n", n, client.Collection())
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "empty the collection before loading")
	return cmd
}
