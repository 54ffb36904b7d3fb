package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/pulse"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
)

const serviceName = "Team Activity Monitor API"

// Server serves the pulse HTTP API.
type Server struct {
	app     *fiber.App
	chat    pulse.ChatService
	issues  pulse.IssueTracker
	repos   pulse.RepoHost
	metrics http.Handler
	logger  zerolog.Logger
	now     func() time.Time
}

// ServerOption configures a [Server].
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l zerolog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) { s.metrics = h }
}

// WithClock sets the time source used for response timestamps.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) { s.now = now }
}

// NewServer creates a [Server] routing to the given services.
func NewServer(chat pulse.ChatService, issues pulse.IssueTracker, repos pulse.RepoHost, opts ...ServerOption) *Server {
	s := &Server{
		chat:   chat,
		issues: issues,
		repos:  repos,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               serviceName,
		ErrorHandler:          s.handleError,
		DisableStartupMessage: true,
		UnescapePath:          true,
	})
	s.app.Use(fiberrecover.New(fiberrecover.Config{EnableStackTrace: true}))
	s.app.Use(requestid.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))
	s.app.Use(s.logRequest)

	s.app.Get(PathRoot, s.handleRoot)
	s.app.Get(PathHealth, s.handleHealth)
	if s.metrics != nil {
		s.app.Get(PathMetrics, adaptor.HTTPHandler(s.metrics))
	}

	api := s.app.Group("/api")
	api.Get("/test", s.handleTest)
	api.Get("/status", s.handleStatus)
	api.Post("/chat", s.handleChat)
	api.Get("/jira/test-connection", s.handleIssuesConnection)
	api.Get("/jira/user/:username/activity", s.handleIssueActivity)
	api.Get("/github/test-connection", s.handleReposConnection)
	api.Get("/github/user/:username/activity", s.handleRepoActivity)
	return s
}

// Listen serves on addr until the server is shut down.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Serve serves on ln until the server is shut down.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// Test dispatches req in-process.
func (s *Server) Test(req *http.Request, msTimeout ...int) (*http.Response, error) {
	return s.app.Test(req, msTimeout...)
}

func (s *Server) requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if rid, ok := c.Locals("requestid").(string); ok {
		ctx = pulse.WithRequestID(ctx, rid)
	}
	return ctx
}

func (s *Server) logRequest(c *fiber.Ctx) error {
	start := s.now()
	err := c.Next()
	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	s.logger.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("duration", s.now().Sub(start)).
		Interface("request_id", c.Locals("requestid")).
		Msg("request")
	return err
}

// handleError renders every error as {"error": "..."}.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		s.logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	}
	return c.Status(code).JSON(ErrorResponse{Error: msg})
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   serviceName,
		"version":   "1.0.0",
		"endpoints": endpoints(),
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "OK",
		Message:   "Server is running",
		Timestamp: s.now(),
	})
}

func (s *Server) handleTest(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "API is working!"})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{
		Status:    "operational",
		Service:   serviceName,
		Endpoints: endpoints(),
		Timestamp: s.now(),
	})
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Query is required")
	}

	answer := s.chat.Chat(s.requestContext(c), query)
	if answer.ToolsUsed == nil {
		answer.ToolsUsed = []string{}
	}
	status := fiber.StatusOK
	if answer.ErrorKind == pulse.ErrorKindConfiguration {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(ChatResponse{
		ChatAnswer: answer,
		Query:      query,
		Timestamp:  s.now(),
	})
}

func (s *Server) handleIssuesConnection(c *fiber.Ctx) error {
	return s.connection(c, "JIRA", s.issues.TestConnection)
}

func (s *Server) handleReposConnection(c *fiber.Ctx) error {
	return s.connection(c, "GitHub", s.repos.TestConnection)
}

func (s *Server) connection(c *fiber.Ctx, service string, test func(context.Context) (*pulse.Account, error)) error {
	account, err := test(s.requestContext(c))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ConnectionResponse{
			Status:  "error",
			Message: service + " connection failed: " + err.Error(),
		})
	}
	return c.JSON(ConnectionResponse{
		Status:  "success",
		Message: service + " connection successful",
		User:    account,
	})
}

func (s *Server) handleIssueActivity(c *fiber.Ctx) error {
	activity, err := s.issues.UserActivity(s.requestContext(c), c.Params("username"))
	if err != nil {
		return activityError(err)
	}
	return c.JSON(activity)
}

func (s *Server) handleRepoActivity(c *fiber.Ctx) error {
	activity, err := s.repos.UserActivity(s.requestContext(c), c.Params("username"))
	if err != nil {
		return activityError(err)
	}
	return c.JSON(activity)
}

func activityError(err error) error {
	if errors.Is(err, pulse.ErrUserNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return fiber.NewError(fiber.StatusBadRequest, err.Error())
}
