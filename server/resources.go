package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/policycow/cowmcp/engine/catalog"
	"github.com/policycow/cowmcp/engine/core"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(
		mcp.NewResource("tasks://summary", "Task catalog summary",
			mcp.WithResourceDescription("All primitive tasks with their purpose, application type, and input counts"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleTaskSummary,
	)

	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate("tasks://details/{task_name}", "Task details",
			mcp.WithTemplateDescription("Full definition of one catalog task, including inputs, outputs, and readme-derived capabilities"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleTaskDetailsResource,
	)

	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate("tasks://by-category/{category}", "Tasks by category",
			mcp.WithTemplateDescription("Task names grouped under one catalog tag"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleTasksByCategory,
	)

	s.mcp.AddResource(
		mcp.NewResource("graph://schema", "Evidence graph schema",
			mcp.WithResourceDescription("Node labels, distinct property values, and the full schema of the knowledge graph backing evidence queries"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleGraphSchema,
	)
}

func (s *Server) handleGraphSchema(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	schema, err := s.assessments.GraphSchemaFor(ctx, "")
	if err != nil {
		return nil, err
	}
	return s.jsonContents(req.Params.URI, schema)
}

func (s *Server) handleTaskSummary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	tasks, err := s.catalog.ListPrimitives(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]map[string]any, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		templates := 0
		for j := range task.Inputs {
			if task.Inputs[j].IsTemplateInput() {
				templates++
			}
		}
		summaries = append(summaries, map[string]any{
			"name":            task.Name,
			"purpose":         catalog.ExtractPurpose(task.Description),
			"app_type":        task.AppType(),
			"input_count":     len(task.Inputs),
			"template_inputs": templates,
			"output_count":    len(task.Outputs),
		})
	}
	return s.jsonContents(req.Params.URI, map[string]any{
		"total_tasks": len(tasks),
		"tasks":       summaries,
	})
}

func (s *Server) handleTaskDetailsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	taskName := strings.TrimPrefix(req.Params.URI, "tasks://details/")
	if taskName == "" || taskName == req.Params.URI {
		return nil, core.Validationf("task name missing from resource URI %q", req.Params.URI)
	}

	task, err := s.catalog.Get(ctx, taskName)
	if err != nil {
		return nil, err
	}
	return s.jsonContents(req.Params.URI, taskDetails(task))
}

func (s *Server) handleTasksByCategory(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	category := strings.TrimPrefix(req.Params.URI, "tasks://by-category/")
	if category == "" || category == req.Params.URI {
		return nil, core.Validationf("category missing from resource URI %q", req.Params.URI)
	}

	tasks, err := s.catalog.ListPrimitives(ctx)
	if err != nil {
		return nil, err
	}
	categories := catalog.CategorizeByTags(tasks)
	names, ok := categories[category]
	if !ok {
		return nil, core.NotFoundf("no tasks found in category '%s'", category)
	}
	return s.jsonContents(req.Params.URI, map[string]any{
		"category": category,
		"tasks":    names,
	})
}

func (s *Server) jsonContents(uri string, payload any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
