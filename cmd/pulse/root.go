package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/fwojciec/pulse"
	bt "github.com/fwojciec/pulse/bubbletea"
	"github.com/fwojciec/pulse/goldmark"
	pulsehttp "github.com/fwojciec/pulse/http"
	"github.com/spf13/cobra"
)

// app holds the state shared by every subcommand.
type app struct {
	host    string
	port    int
	timeout time.Duration
	width   int
	theme   pulse.Theme
	out     io.Writer
}

func (a *app) baseURL() string {
	return "http://" + net.JoinHostPort(a.host, strconv.Itoa(a.port))
}

func (a *app) client() *pulsehttp.Client {
	return pulsehttp.NewClient(a.baseURL(), pulsehttp.WithHTTPClient(&http.Client{Timeout: a.timeout}))
}

// newRootCmd builds the command tree. Output goes to out and diagnostics to
// errOut so tests can capture both.
func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{theme: pulse.DefaultTheme(), out: out}

	root := &cobra.Command{
		Use:           "pulse",
		Short:         "Ask about your team's JIRA and GitHub activity",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.port <= 0 || a.port > 65535 {
				return fmt.Errorf("--port must be in 1..65535, got %d", a.port)
			}
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.host, "host", "localhost", "server host")
	root.PersistentFlags().IntVar(&a.port, "port", 5000, "server port")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", pulsehttp.DefaultClientTimeout, "request timeout")
	root.PersistentFlags().IntVar(&a.width, "width", goldmark.DefaultWidth, "render width in columns")

	root.AddCommand(
		newTestCmd(a),
		newAskCmd(a),
		newChatCmd(a),
		newJiraCmd(a),
		newGitHubCmd(a),
	)

	return root
}

// run executes the command tree with args and reports any error on errOut.
// It returns the process exit code.
func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := newRootCmd(out, errOut)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(errOut, bt.NewStyles(pulse.DefaultTheme()).Error.Render("Error: "+err.Error()))
		return 1
	}
	return 0
}
