package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fwojciec/pulse"
	bt "github.com/fwojciec/pulse/bubbletea"
	"github.com/spf13/cobra"
)

func newTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.client().Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("cannot reach server at %s: %w", a.baseURL(), err)
			}
			s := bt.NewStyles(a.theme)
			fmt.Fprintln(a.out, s.Success.Render("✓ "+h.Message)+" "+s.Muted.Render(a.baseURL()))
			return nil
		},
	}
}

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return errors.New("question must not be empty")
			}
			resp, err := a.client().Ask(cmd.Context(), query)
			if err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("%s (%s)", resp.Error, resp.ErrorKind)
			}
			fmt.Fprint(a.out, renderAnswer(resp.ChatAnswer, a.width, a.theme))
			return nil
		},
	}
}

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.client()
			if _, err := client.Health(cmd.Context()); err != nil {
				return fmt.Errorf("cannot reach server at %s: %w", a.baseURL(), err)
			}
			ask := func(ctx context.Context, query string) (pulse.ChatAnswer, error) {
				resp, err := client.Ask(ctx, query)
				if err != nil {
					return pulse.ChatAnswer{}, err
				}
				return resp.ChatAnswer, nil
			}
			return bt.Run(cmd.Context(), bt.New(ask, a.theme))
		},
	}
}

func newJiraCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jira USERNAME",
		Short: "Show a user's JIRA activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := a.client().IssueActivity(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, renderIssueActivity(act, a.width, a.theme))
			return nil
		},
	}
	cmd.AddCommand(newConnectionCmd(a, pulse.SystemIssues, "JIRA"))
	return cmd
}

func newGitHubCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "github USERNAME",
		Short: "Show a user's GitHub activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := a.client().RepoActivity(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, renderRepoActivity(act, a.width, a.theme))
			return nil
		},
	}
	cmd.AddCommand(newConnectionCmd(a, pulse.SystemRepos, "GitHub"))
	return cmd
}

func newConnectionCmd(a *app, system pulse.System, service string) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check the server's " + service + " connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client().TestConnection(cmd.Context(), system)
			if err != nil {
				return err
			}
			if resp.Status != "success" {
				return errors.New(resp.Message)
			}
			fmt.Fprint(a.out, renderConnection(resp, a.theme))
			return nil
		},
	}
}
