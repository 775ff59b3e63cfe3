package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/townql/townql/internal/cliopt"
	"github.com/townql/townql/internal/cliutil"
	"github.com/townql/townql/townql"
	qerrors "github.com/townql/townql/townql/errors"
	"github.com/townql/townql/townql/seed"
)

func NewShellCommand(env *cliutil.Env, g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive query prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			sh := NewShell(env, g, out)
			sh.Connect(ctx)
			defer sh.Close()

			if addr := env.Config.Metrics.Addr; addr != "" {
				stop := serveMetrics(env, addr)
				defer stop()
			}
			return sh.Run(ctx)
		},
	}
}

// Shell evaluates one line at a time. A store that failed to open does not end
// the session: queries are still parsed and their plans printed.
type Shell struct {
	env     *cliutil.Env
	g       *cliopt.GlobalOptions
	out     io.Writer
	client  *townql.Client
	openErr error
}

func NewShell(env *cliutil.Env, g *cliopt.GlobalOptions, out io.Writer) *Shell {
	return &Shell{env: env, g: g, out: out}
}

// Connect opens the store and loads seed.file into it when configured.
func (s *Shell) Connect(ctx context.Context) {
	s.client, s.openErr = cliutil.OpenClient(ctx, *s.env)
	if s.openErr != nil {
		fmt.Fprintf(s.out, "failed to connect to the %s store: %v\n", s.env.Config.Backend, s.openErr)
		return
	}
	if path := s.env.Config.Seed.File; path != "" {
		records, err := seed.ReadFile(path)
		if err == nil {
			_, err = s.client.Seed(ctx, records, false)
		}
		if err != nil {
			fmt.Fprintf(s.out, "seed %s: %v\n", path, err)
		}
	}
}

func (s *Shell) Close() {
	if s.client != nil {
		_ = s.client.Close()
	}
}

// UseClient replaces the connection; tests use it to inject a seeded store.
func (s *Shell) UseClient(c *townql.Client) {
	s.client, s.openErr = c, nil
}

func (s *Shell) Run(ctx context.Context) error {
	lin := liner.NewLiner()
	defer lin.Close()
	lin.SetCtrlCAborts(true)

	fmt.Fprintln(s.out, "> Vermont town query shell (type 'help' for help, 'quit' to exit)")
	for {
		line, err := lin.Prompt("> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(s.out)
				return nil
			}
			s.env.Logger.Warn("unexpected error reading prompt", "error", err)
			continue
		}
		if strings.TrimSpace(line) != "" {
			lin.AppendHistory(line)
		}
		if s.Handle(ctx, line) {
			return nil
		}
	}
}

// Handle evaluates one input line and reports whether the session should end.
func (s *Shell) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	switch strings.ToLower(line) {
	case "quit", "exit":
		return true
	case "help":
		cliutil.PrintShellHelp(s.out)
		return false
	}

	plan, err := townql.ParseQuery(line)
	if err != nil {
		s.env.Metrics.ObserveParseError(string(qerrors.KindOf(err)))
		fmt.Fprintf(s.out, "invalid query: %v\n", err)
		return false
	}

	if s.client == nil {
		fmt.Fprintf(s.out, "query parsed as: %s\n", plan)
		return false
	}

	res, err := s.client.Execute(ctx, plan)
	if err != nil {
		fmt.Fprintf(s.out, "execution error: %v\n", err)
		return false
	}
	cliutil.WriteResult(s.out, res, plan, cliutil.ParseOutputFormat(s.g.Format), s.g.Width)
	return false
}

func serveMetrics(env *cliutil.Env, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", env.Metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.Logger.Error("metrics listener stopped", "addr", addr, "error", err)
		}
	}()
	env.Logger.Info("serving metrics", "addr", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
