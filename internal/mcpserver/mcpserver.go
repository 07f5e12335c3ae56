// Package mcpserver exposes the analysis engine as a Model Context Protocol
// tool over stdio.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/augur/internal/analyzer/external"
	"github.com/panbanda/augur/pkg/config"
)

// Server wraps the MCP server and registers the augur tool and prompts.
type Server struct {
	server *mcp.Server
	config *config.Config
	logger *slog.Logger
	// available reports whether the delegated duplicate detector is installed.
	available func(command string) bool
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the base configuration tool calls start from.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithLogger sets the logger handed to every engine run.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithToolProbe replaces the external tool availability check.
func WithToolProbe(probe func(command string) bool) Option {
	return func(s *Server) {
		s.available = probe
	}
}

// NewServer creates a new MCP server with the analysis tool registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "augur",
			Version: version,
		},
		nil,
	)

	s := &Server{
		server:    server,
		config:    config.DefaultConfig(),
		logger:    slog.Default(),
		available: external.Available,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

const analyzeToolName = "analyze_codebase"

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        analyzeToolName,
		Description: describeAnalyze(),
	}, s.handleAnalyze)
}
