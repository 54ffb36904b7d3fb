// Command pulsed serves the Pulse HTTP API: a chat endpoint that answers
// questions about team activity using JIRA and GitHub, plus direct
// activity and connection-check endpoints.
//
// Configuration is read from the environment and an optional .env file:
//
//	PORT                 Listen port (default 5000)
//	LLM_PROVIDER         openai, anthropic or gemini (auto-detected from keys)
//	OPENAI_API_KEY       \
//	ANTHROPIC_API_KEY     > one of these enables chat
//	GEMINI_API_KEY       /
//	JIRA_BASE_URL, JIRA_EMAIL, JIRA_API_TOKEN
//	GITHUB_TOKEN
//	USER_MAPPING_FILE    Alias file or glob (default config/users.json)
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fwojciec/pulse"
	"github.com/fwojciec/pulse/chat"
	"github.com/fwojciec/pulse/github"
	pulsehttp "github.com/fwojciec/pulse/http"
	"github.com/fwojciec/pulse/jira"
	pulsejson "github.com/fwojciec/pulse/json"
	pulseprom "github.com/fwojciec/pulse/prometheus"
	"github.com/fwojciec/pulse/tool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pulsed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", ln.Addr().String()).Msg("server listening")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newServer wires providers, the tool executor, the orchestrator and
// metrics into an HTTP server. A missing LLM key is logged, not fatal.
func newServer(ctx context.Context, cfg config, logger zerolog.Logger) (*pulsehttp.Server, error) {
	issues := jira.New(cfg.JiraBaseURL, cfg.JiraEmail, cfg.JiraAPIToken,
		jira.WithTimeout(cfg.ProviderTimeout),
		jira.WithLogger(logger.With().Str("component", "jira").Logger()),
	)
	repos := github.New(cfg.GitHubToken,
		github.WithBaseURL(cfg.GitHubBaseURL),
		github.WithTimeout(cfg.ProviderTimeout),
		github.WithLogger(logger.With().Str("component", "github").Logger()),
	)
	if !issues.Configured() {
		logger.Warn().Msg("JIRA is not configured: set JIRA_BASE_URL, JIRA_EMAIL and JIRA_API_TOKEN")
	}
	if !repos.Configured() {
		logger.Warn().Msg("GitHub is not configured: set GITHUB_TOKEN")
	}

	execOpts := []tool.Option{
		tool.WithTimeout(cfg.ProviderTimeout),
		tool.WithLogger(logger.With().Str("component", "tools").Logger()),
	}
	if cfg.UserMappingEnabled {
		store, err := pulsejson.Open(cfg.UserMappingFile)
		if err != nil {
			return nil, fmt.Errorf("user mapping: %w", err)
		}
		logger.Info().Int("users", len(store.Users())).Str("file", cfg.UserMappingFile).Msg("user mapping loaded")
		execOpts = append(execOpts, tool.WithResolver(store))
	}

	var executor pulse.ToolExecutor = tool.NewExecutor(issues, repos, execOpts...)

	completer, provider, err := resolveCompleter(ctx, cfg)
	switch {
	case errors.Is(err, errNoLLM), errors.Is(err, pulse.ErrNotConfigured):
		logger.Warn().Err(err).Msg("chat disabled")
		completer = nil
	case err != nil:
		return nil, err
	default:
		logger.Info().Str("provider", provider).Msg("LLM provider selected")
	}

	var srvOpts []pulsehttp.ServerOption
	var metrics *pulseprom.Metrics
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = pulseprom.NewMetrics(reg)
		executor = metrics.ToolExecutor(executor)
		if completer != nil {
			completer = metrics.Completer(completer)
		}
		srvOpts = append(srvOpts, pulsehttp.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	var svc pulse.ChatService = chat.New(completer, executor,
		chat.WithModel(cfg.LLMModel),
		chat.WithTimeout(cfg.LLMTimeout),
		chat.WithLogger(logger.With().Str("component", "chat").Logger()),
	)
	if metrics != nil {
		svc = metrics.ChatService(svc)
	}

	srvOpts = append(srvOpts, pulsehttp.WithLogger(logger.With().Str("component", "http").Logger()))
	return pulsehttp.NewServer(svc, issues, repos, srvOpts...), nil
}
