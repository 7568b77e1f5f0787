// Package mcpserver exposes the audits as tools of a stdio MCP server.
package mcpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/openctemio/ossreview/internal/app"
	"github.com/openctemio/ossreview/internal/metrics"
	"github.com/openctemio/ossreview/pkg/domain/policy"
	"github.com/openctemio/ossreview/pkg/domain/shared"
	"github.com/openctemio/ossreview/pkg/logger"
)

// LicenseAuditor runs license audits.
type LicenseAuditor interface {
	Audit(ctx context.Context, input app.LicenseAuditInput) (*app.LicenseAuditReport, error)
}

// AdvisoryAuditor runs advisory audits.
type AdvisoryAuditor interface {
	Audit(ctx context.Context, input app.AdvisoryAuditInput) (*app.AdvisoryAuditReport, error)
}

// PolicyLoader loads a policy file. An empty path yields the server policy.
type PolicyLoader func(path string) (*policy.Policy, error)

// ToolHandlerFunc handles one tool call.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Config holds the collaborators of the server.
type Config struct {
	Name     string
	Version  string
	Licenses LicenseAuditor
	Advisory AdvisoryAuditor
	Policy   *policy.Policy
	// LoadPolicy resolves per-call policy_file arguments. Defaults to policy.Load.
	LoadPolicy PolicyLoader
}

// Server wraps the MCP server and registers the review tools.
type Server struct {
	mcp        *server.MCPServer
	licenses   LicenseAuditor
	advisory   AdvisoryAuditor
	policy     *policy.Policy
	loadPolicy PolicyLoader
	logger     *logger.Logger
}

// New creates a Server with every tool and prompt registered.
func New(cfg Config, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{
		mcp: server.NewMCPServer(
			cfg.Name,
			cfg.Version,
			server.WithToolCapabilities(true),
			server.WithPromptCapabilities(true),
			server.WithRecovery(),
		),
		licenses:   cfg.Licenses,
		advisory:   cfg.Advisory,
		policy:     cfg.Policy,
		loadPolicy: cfg.LoadPolicy,
		logger:     log.With("component", "mcp"),
	}
	if s.policy == nil {
		s.policy = policy.Default()
	}
	if s.loadPolicy == nil {
		s.loadPolicy = policy.Load
	}

	for _, t := range s.tools() {
		s.AddTool(t.tool, t.handler)
	}
	s.mcp.AddPrompt(reviewPrompt(), s.handleReviewPrompt)
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves the protocol on stdin and stdout until the input closes
// or ctx is canceled.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve serves the protocol over the given streams.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("serving MCP")
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Stdlib().Handler(), slog.LevelError))
	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		s.logger.WithError(err).Error("MCP server stopped")
		return err
	}
	return nil
}

// AddTool registers a tool. Handler errors become error-flagged results
// carrying the message text.
func (s *Server) AddTool(tool mcp.Tool, handler ToolHandlerFunc) {
	s.mcp.AddTool(tool, s.wrap(tool.Name, handler))
}

func (s *Server) wrap(name string, handler ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		ctx = context.WithValue(ctx, logger.ContextKeyTool, name)
		log := s.logger.WithContext(ctx)

		result, err := handler(ctx, request)
		kind := callResult(result, err)
		metrics.ToolCallsTotal.WithLabelValues(name, kind).Inc()
		metrics.ToolCallDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		if err != nil {
			log = log.WithField("error_kind", kind)
			var de *shared.DomainError
			if errors.As(err, &de) {
				log = log.WithField("error_code", de.Code)
			}
			log.WithError(err).Warn("tool call failed")
			return mcp.NewToolResultError(err.Error()), nil
		}
		log.Debug("tool call finished", "duration_ms", time.Since(start).Milliseconds())
		return result, nil
	}
}

func callResult(result *mcp.CallToolResult, err error) string {
	if err != nil {
		return errorKind(err)
	}
	if result != nil && result.IsError {
		return metrics.ResultError
	}
	return metrics.ResultOK
}

// errorKind maps a handler error to its metric label.
func errorKind(err error) string {
	switch {
	case shared.IsValidation(err), errors.Is(err, shared.ErrInvalidInput):
		return metrics.ResultInvalid
	case shared.IsNotFound(err):
		return metrics.ResultNotFound
	case shared.IsDependency(err):
		return metrics.ResultDependency
	default:
		return metrics.ResultError
	}
}

// policyFor resolves the policy_file argument of a call.
func (s *Server) policyFor(path string) (*policy.Policy, error) {
	if path == "" {
		return s.policy, nil
	}
	return s.loadPolicy(path)
}
