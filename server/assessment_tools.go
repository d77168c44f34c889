package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/policycow/cowmcp/engine/assessment"
	"github.com/policycow/cowmcp/engine/core"
)

func (s *Server) registerAssessmentTools() {
	s.mcp.AddTool(
		mcp.NewTool("list_assessments",
			mcp.WithDescription(`List assessments, optionally filtered by category id, category name (partial match), or assessment name (partial match).`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("category_id", mcp.Description("Assessment category id to filter by")),
			mcp.WithString("category_name", mcp.Description("Category name fragment to filter by")),
			mcp.WithString("assessment_name", mcp.Description("Assessment name fragment to filter by")),
		),
		s.handleListAssessments,
	)

	s.mcp.AddTool(
		mcp.NewTool("fetch_recent_assessment_runs",
			mcp.WithDescription(`Get the most recent runs of an assessment. Use fetch_assessment_runs with pagination when the expected run is not in this first page.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("id", mcp.Description("Assessment id"), mcp.Required()),
		),
		s.handleRecentRuns,
	)

	s.mcp.AddTool(
		mcp.NewTool("fetch_assessment_runs",
			mcp.WithDescription(`Get one page of runs for an assessment. Page defaults to 1 and the page size is capped at 10; increase the page number to walk further back.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("id", mcp.Description("Assessment id"), mcp.Required()),
			mcp.WithNumber("page", mcp.Description("Page number, starting at 1"), mcp.DefaultNumber(1)),
			mcp.WithNumber("page_size", mcp.Description("Items per page, at most 10"), mcp.DefaultNumber(10)),
		),
		s.handleRuns,
	)

	s.mcp.AddTool(
		mcp.NewTool("fetch_assessment_run_leaf_controls",
			mcp.WithDescription(`Get the leaf controls of an assessment run with their control numbers, status, and compliance status.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("id", mcp.Description("Assessment run id"), mcp.Required()),
		),
		s.handleLeafControls,
	)

	s.mcp.AddTool(
		mcp.NewTool("fetch_run_controls",
			mcp.WithDescription(`Search run controls by name fragment across all runs. Use fetch_run_control_meta_data afterwards to resolve a control's assessment and run.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("name", mcp.Description("Control name fragment"), mcp.Required()),
		),
		s.handleSearchControls,
	)

	s.mcp.AddTool(
		mcp.NewTool("fetch_run_control_meta_data",
			mcp.WithDescription(`Get a run control's assessment and run metadata (names and ids) by control id.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("id", mcp.Description("Control id"), mcp.Required()),
		),
		s.handleControlPlanData,
	)

	s.mcp.AddTool(
		mcp.NewTool("fetch_assessment_run_leaf_control_evidence",
			mcp.WithDescription(`Get the evidence entries attached to a run control.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("id", mcp.Description("Assessment run control id"), mcp.Required()),
		),
		s.handleControlEvidence,
	)

	s.mcp.AddTool(
		mcp.NewTool("fetch_evidence_records",
			mcp.WithDescription(`Fetch and decode an evidence file, returning each record's resource identity and compliance status.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("id", mcp.Description("Evidence id"), mcp.Required()),
		),
		s.handleEvidenceRecords,
	)

	s.mcp.AddTool(
		mcp.NewTool("fetch_available_control_actions",
			mcp.WithDescription(`List the actions available for a control. Ask the user to confirm the intended action, then trigger it with execute_action using the returned action binding id.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("assessment_name", mcp.Description("Assessment name"), mcp.Required()),
			mcp.WithString("control_number", mcp.Description("Control number")),
			mcp.WithString("control_alias", mcp.Description("Control alias")),
			mcp.WithString("evidence_name", mcp.Description("Evidence name, for evidence-level actions")),
		),
		s.handleAvailableActions,
	)

	s.mcp.AddTool(
		mcp.NewTool("execute_action",
			mcp.WithDescription(`Trigger one action at assessment, control, or evidence level. Assessment level needs the id triple; control level adds the run control id; evidence level adds the evidence id and record ids. Only trigger one action at a time, after explicit user confirmation.`),
			mcp.WithString("assessment_id", mcp.Description("Assessment id"), mcp.Required()),
			mcp.WithString("assessment_run_id", mcp.Description("Assessment run id"), mcp.Required()),
			mcp.WithString("action_binding_id", mcp.Description("Action binding id from fetch_available_control_actions"), mcp.Required()),
			mcp.WithString("assessment_run_control_id", mcp.Description("Run control id, for control-level actions")),
			mcp.WithString("assessment_run_control_evidence_id", mcp.Description("Run control evidence id, for evidence-level actions")),
			mcp.WithArray("evidence_record_ids",
				mcp.Description("Evidence record ids, for evidence-level actions"),
				mcp.WithStringItems(),
			),
		),
		s.handleExecuteAction,
	)
}

func (s *Server) handleListAssessments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "list_assessments")

	assessments, err := s.assessments.ListAssessments(ctx, assessment.ListFilter{
		CategoryID:     req.GetString("category_id", ""),
		CategoryName:   req.GetString("category_name", ""),
		AssessmentName: req.GetString("assessment_name", ""),
	})
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"assessments": assessments})
}

func (s *Server) handleRecentRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "fetch_recent_assessment_runs")
	id, err := req.RequireString("id")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	runs, err := s.assessments.RecentRuns(ctx, id)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"runs": runs})
}

func (s *Server) handleRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "fetch_assessment_runs")
	id, err := req.RequireString("id")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	runs, err := s.assessments.Runs(ctx, id, req.GetInt("page", 1), req.GetInt("page_size", 10))
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"runs": runs})
}

func (s *Server) handleLeafControls(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "fetch_assessment_run_leaf_controls")
	id, err := req.RequireString("id")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	controls, err := s.assessments.LeafControls(ctx, id)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"controls": controls})
}

func (s *Server) handleSearchControls(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "fetch_run_controls")
	name, err := req.RequireString("name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	controls, err := s.assessments.SearchControls(ctx, name)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"controls": controls})
}

func (s *Server) handleControlPlanData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "fetch_run_control_meta_data")
	id, err := req.RequireString("id")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	data, err := s.assessments.ControlPlanData(ctx, id)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"meta_data": data})
}

func (s *Server) handleControlEvidence(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "fetch_assessment_run_leaf_control_evidence")
	id, err := req.RequireString("id")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	evidences, err := s.assessments.ControlEvidence(ctx, id)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"evidences": evidences})
}

func (s *Server) handleEvidenceRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "fetch_evidence_records")
	id, err := req.RequireString("id")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	records, err := s.assessments.EvidenceRecords(ctx, id)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"records": records})
}

func (s *Server) handleAvailableActions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "fetch_available_control_actions")
	assessmentName, err := req.RequireString("assessment_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	actions, err := s.assessments.AvailableActions(ctx, assessment.ActionQuery{
		AssessmentName: assessmentName,
		ControlNumber:  req.GetString("control_number", ""),
		ControlAlias:   req.GetString("control_alias", ""),
		EvidenceName:   req.GetString("evidence_name", ""),
	})
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{
		"actions":     actions,
		"next_action": "Confirm the intended action with the user, then call execute_action",
	})
}

func (s *Server) handleExecuteAction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "execute_action")
	assessmentID, err := req.RequireString("assessment_id")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	runID, err := req.RequireString("assessment_run_id")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	bindingID, err := req.RequireString("action_binding_id")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	result, err := s.assessments.ExecuteAction(ctx, assessment.ExecuteParams{
		AssessmentID:         assessmentID,
		RunID:                runID,
		ActionBindingID:      bindingID,
		RunControlID:         req.GetString("assessment_run_control_id", ""),
		RunControlEvidenceID: req.GetString("assessment_run_control_evidence_id", ""),
		EvidenceRecordIDs:    req.GetStringSlice("evidence_record_ids", nil),
	})
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"execution": result})
}
