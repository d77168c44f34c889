// Package server exposes the compliance backend to MCP clients: the
// rule-authoring workflow tools, the assessment and evidence tools, the
// task catalog resources, and the workflow prompt. It is the composition
// root; business logic lives in the engine packages.
package server

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/policycow/cowmcp/engine/assessment"
	"github.com/policycow/cowmcp/engine/backend"
	"github.com/policycow/cowmcp/engine/catalog"
	"github.com/policycow/cowmcp/engine/rule"
	"github.com/policycow/cowmcp/pkg/config"
	"github.com/policycow/cowmcp/pkg/logger"
)

const serverName = "cowmcp"

// Version is set at build time via ldflags.
var Version = "dev"

// Server owns the MCP server instance and the services behind its tools.
type Server struct {
	cfg         *config.Config
	log         logger.Logger
	mcp         *server.MCPServer
	catalog     *catalog.Client
	rules       *rule.Service
	assessments *assessment.Service
}

// New wires the backend services and registers every tool, resource, and
// prompt on a fresh MCP server.
func New(cfg *config.Config, log logger.Logger) *Server {
	b := backend.New(&cfg.Backend)
	cat := catalog.NewClient(b)

	s := &Server{
		cfg:         cfg,
		log:         log,
		catalog:     cat,
		rules:       rule.NewService(cat, b),
		assessments: assessment.NewService(b),
	}
	s.mcp = server.NewMCPServer(
		serverName,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)
	s.registerRuleTools()
	s.registerAssessmentTools()
	s.registerAuthoringTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// Run serves MCP over stdio, or over SSE when a port is configured. It
// blocks until the context is canceled or the transport fails.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Server.Port == 0 {
		s.log.Info("serving MCP over stdio")
		return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.log.Info("serving MCP over SSE", "addr", addr)
	sse := server.NewSSEServer(s.mcp)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()
	select {
	case <-ctx.Done():
		return sse.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

const serverInstructions = `This server exposes a compliance automation backend.

Rule authoring follows a strict staged workflow:
1. prepare_input_collection_overview with the selected task names
2. get_template_guidance + collect_template_input + confirm_template_input
   for every template input (files are only uploaded on confirmation)
3. collect_parameter_input + confirm_parameter_input for every parameter
4. verify_collected_inputs with everything collected so far
5. create_rule with the assembled rule structure

Nothing is stored server-side between calls; always pass collected state
back in. Assessment tools (list_assessments, fetch_* and execute_action)
are independent of the rule workflow.`
