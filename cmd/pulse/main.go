// Command pulse is the terminal client for a running pulsed server.
//
// Usage:
//
//	pulse chat                 Interactive session
//	pulse ask "QUESTION"       One question, rendered answer
//	pulse jira USERNAME        JIRA activity for a user
//	pulse github USERNAME      GitHub activity for a user
//	pulse jira test            Check the server's JIRA connection
//	pulse github test          Check the server's GitHub connection
//	pulse test                 Check that the server is reachable
//
// Global flags --host and --port select the server (default localhost:5000).
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
