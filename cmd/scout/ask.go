package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/mohammad-safakhou/scout/config"
	"github.com/mohammad-safakhou/scout/internal/app"
	agentcore "github.com/mohammad-safakhou/scout/internal/agent/core"
	"github.com/spf13/cobra"
)

func askCMD(load func() (*config.Config, error)) *cobra.Command {
	var query string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Research one query and print the final answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if query == "" {
				query, err = promptQuery(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			opts := app.Options{Version: version, ServeMetrics: true}
			if !quiet {
				opts.Observer = progress(out)
			}
			a, err := app.New(ctx, cfg, opts)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			res, err := a.Orchestrator.Run(ctx, query)
			if err != nil {
				return err
			}
			if !res.Accepted {
				fmt.Fprintln(out, color.YellowString("No answer passed review after %d iterations; returning the last one.", res.Iterations))
			}
			fmt.Fprintln(out, color.CyanString("Final Response: %s", res.Answer))
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "query to research (prompted for when empty)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "only print the final answer")
	return cmd
}

// progress prints each stage's output the way an operator follows a session.
func progress(out io.Writer) agentcore.Observer {
	return func(ev agentcore.Event) {
		switch {
		case ev.Plan != "":
			fmt.Fprintln(out, color.GreenString("Planning Agent [%d]: %s", ev.Iteration, ev.Plan))
		case ev.State == agentcore.StateRetrieving:
			fmt.Fprintln(out, color.BlueString("Visited: %s", orDash(ev.Source)))
		case ev.Response != "":
			fmt.Fprintln(out, color.CyanString("Integration Agent [%d]: %s", ev.Iteration, ev.Response))
		case ev.Assessment != nil:
			fmt.Fprintln(out, color.YellowString("Response meets requirements: %t (%s)", ev.Assessment.Pass, ev.Assessment.Reason))
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func promptQuery(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, color.MagentaString("Enter your query: "))
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read query: %w", err)
	}
	q := strings.TrimSpace(line)
	if q == "" {
		return "", errors.New("query is empty")
	}
	return q, nil
}
