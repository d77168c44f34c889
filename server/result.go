package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/policycow/cowmcp/engine/core"
	"github.com/policycow/cowmcp/pkg/logger"
)

// toolContext attaches a request-scoped logger carrying a correlation id
// and the tool name.
func (s *Server) toolContext(ctx context.Context, tool string) (context.Context, logger.Logger) {
	log := s.log.With("tool", tool, "request_id", uuid.NewString())
	return logger.ContextWithLogger(ctx, log), log
}

// okResult renders a success envelope. The payload map is marshaled with
// "success": true added; handlers put next_action hints in the payload.
func okResult(payload map[string]any) (*mcp.CallToolResult, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["success"] = true
	data, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf(`{"success": false, "error": "encode result: %v"}`, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// failResult converts any workflow error into a success:false envelope.
// Errors never surface as MCP protocol errors; the model is expected to
// read the error field and adjust.
func failResult(log logger.Logger, err error) (*mcp.CallToolResult, error) {
	log.Error("tool call failed", "error", err, "kind", errorKind(err))
	data, merr := json.Marshal(map[string]any{
		"success":    false,
		"error":      err.Error(),
		"error_kind": errorKind(err),
	})
	if merr != nil {
		return mcp.NewToolResultText(`{"success": false, "error": "internal error"}`), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return "validation"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrNoTemplate):
		return "no_template"
	case errors.Is(err, core.ErrUpload):
		return "upload"
	case errors.Is(err, core.ErrTimeout):
		return "timeout"
	case errors.Is(err, core.ErrBackend):
		return "backend"
	default:
		return "internal"
	}
}
