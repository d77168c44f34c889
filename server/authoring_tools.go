package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/policycow/cowmcp/engine/assessment"
	"github.com/policycow/cowmcp/engine/core"
)

func (s *Server) registerAuthoringTools() {
	s.mcp.AddTool(
		mcp.NewTool("create_assessment",
			mcp.WithDescription(`Create an assessment from a YAML definition. The definition must carry metadata.name and metadata.categoryName; a missing category is created. Returns the assessment id and a UI link.`),
			mcp.WithString("yaml_content", mcp.Description("Complete assessment definition in YAML"), mcp.Required()),
		),
		s.handleCreateAssessment,
	)

	s.mcp.AddTool(
		mcp.NewTool("list_assessment_control_configs",
			mcp.WithDescription(`List every leaf control config of an assessment with name, alias, control number, and additional context. Control configs are definitions; use the run-level tools for execution results.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("assessment_id", mcp.Description("Assessment id"), mcp.Required()),
		),
		s.handleListControlConfigs,
	)

	s.mcp.AddTool(
		mcp.NewTool("create_control_config",
			mcp.WithDescription(`Create one control config in an existing assessment. Follow up with suggest_control_config_citations and attach_citation_to_control_config to link it to an authority document.`),
			mcp.WithString("assessment_id", mcp.Description("Assessment id"), mcp.Required()),
			mcp.WithString("name", mcp.Description("Control name"), mcp.Required()),
			mcp.WithString("alias", mcp.Description("Control alias")),
			mcp.WithString("control_number", mcp.Description("Displayable control number, e.g. 1.2.3")),
			mcp.WithString("description", mcp.Description("Control description")),
		),
		s.handleCreateControlConfig,
	)

	s.mcp.AddTool(
		mcp.NewTool("suggest_control_config_citations",
			mcp.WithDescription(`Suggest authority-document citations for a control based on its name and description. Present the suggestions to the user and attach the chosen one with attach_citation_to_control_config.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("assessment_id", mcp.Description("Assessment id"), mcp.Required()),
			mcp.WithString("control_name", mcp.Description("Control name to find citations for"), mcp.Required()),
			mcp.WithString("control_id", mcp.Description("Control config id, when the control already exists")),
			mcp.WithString("description", mcp.Description("Control description, improves the suggestions")),
		),
		s.handleSuggestCitations,
	)

	s.mcp.AddTool(
		mcp.NewTool("attach_citation_to_control_config",
			mcp.WithDescription(`Attach one authority-document citation to a control config. Without confirm the tool returns a preview; call again with confirm=true after the user approves.`),
			mcp.WithString("assessment_id", mcp.Description("Assessment id"), mcp.Required()),
			mcp.WithString("control_id", mcp.Description("Control config id"), mcp.Required()),
			mcp.WithString("authority_document", mcp.Description("Authority document name from the suggestions"), mcp.Required()),
			mcp.WithArray("authority_control_ids",
				mcp.Description("Authority-document control ids to cite"),
				mcp.WithStringItems(), mcp.Required(),
			),
			mcp.WithString("sort_id", mcp.Description("Sort id of the chosen citation"), mcp.Required()),
			mcp.WithArray("control_names",
				mcp.Description("Authority-document control names"),
				mcp.WithStringItems(), mcp.Required(),
			),
			mcp.WithBoolean("confirm", mcp.Description("Set true only after the user approved the preview")),
		),
		s.handleAttachCitation,
	)

	s.mcp.AddTool(
		mcp.NewTool("fetch_control_source_summary",
			mcp.WithDescription(`Get how a control config is linked to evidence: the lineage of linked controls, their rules, and the evidence schemas. Call this before drafting a SQL rule; an empty lineage means SQL automation cannot proceed.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("control_id", mcp.Description("Control config id"), mcp.Required()),
		),
		s.handleControlSourceSummary,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_evidence_sample_data",
			mcp.WithDescription(`Fetch a few concrete rows per evidence linked to a control config, to ground SQL drafting in real column values. Records is clamped to 1-10.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("control_id", mcp.Description("Control config id"), mcp.Required()),
			mcp.WithArray("evidence_names",
				mcp.Description("Restrict to these evidence names; omit for all"),
				mcp.WithStringItems(),
			),
			mcp.WithNumber("records", mcp.Description("Sample rows per evidence, 1-10"), mcp.DefaultNumber(3)),
		),
		s.handleEvidenceSampleData,
	)

	s.mcp.AddTool(
		mcp.NewTool("create_sql_rule_and_attach",
			mcp.WithDescription(`Create a SQL rule on a control config together with the evidence config holding its output. Without confirm the tool returns the SQL for review; call again with confirm=true after the user approves.`),
			mcp.WithString("control_config_id", mcp.Description("Control config id"), mcp.Required()),
			mcp.WithString("sql_query", mcp.Description("SQL over the referenced evidence tables"), mcp.Required()),
			mcp.WithArray("referenced_evidence_names",
				mcp.Description("Evidence names the query reads from"),
				mcp.WithStringItems(), mcp.Required(),
			),
			mcp.WithString("new_evidence_name", mcp.Description("Name of the evidence receiving the query output"), mcp.Required()),
			mcp.WithBoolean("confirm", mcp.Description("Set true only after the user approved the SQL")),
		),
		s.handleCreateSQLRule,
	)

	s.mcp.AddTool(
		mcp.NewTool("create_control_config_note",
			mcp.WithDescription(`Attach a markdown documentation note to a control config, typically to document a SQL rule. Without confirm the tool returns a preview; call again with confirm=true after the user approves.`),
			mcp.WithString("control_config_id", mcp.Description("Control config id"), mcp.Required()),
			mcp.WithString("assessment_id", mcp.Description("Assessment id"), mcp.Required()),
			mcp.WithString("notes", mcp.Description("Note content in markdown"), mcp.Required()),
			mcp.WithString("topic", mcp.Description("Note topic; defaults to SQL Rule Documentation")),
			mcp.WithBoolean("confirm", mcp.Description("Set true only after the user approved the preview")),
		),
		s.handleCreateControlNote,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_assessment_context",
			mcp.WithDescription(`Get the entity context available for assessment automation, unprojected.`),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleAssessmentContext,
	)

	s.mcp.AddTool(
		mcp.NewTool("fetch_rule_readme",
			mcp.WithDescription(`Get the README of a deployed rule by rule name.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("name", mcp.Description("Rule name"), mcp.Required()),
		),
		s.handleRuleReadme,
	)
}

func (s *Server) handleCreateAssessment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "create_assessment")
	yamlContent, err := req.RequireString("yaml_content")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	created, err := s.assessments.CreateAssessment(ctx, yamlContent)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{
		"assessment":  created,
		"next_action": "Share the assessment URL with the user; add controls with create_control_config",
	})
}

func (s *Server) handleListControlConfigs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "list_assessment_control_configs")
	id, err := req.RequireString("assessment_id")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	controls, err := s.assessments.ListControlConfigs(ctx, id)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"controls": controls})
}

func (s *Server) handleCreateControlConfig(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "create_control_config")
	params := assessment.ControlConfigParams{}
	if err := req.BindArguments(&params); err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	control, err := s.assessments.CreateControlConfig(ctx, params)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{
		"control":     control,
		"next_action": "Suggest citations for the new control with suggest_control_config_citations",
	})
}

func (s *Server) handleSuggestCitations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "suggest_control_config_citations")
	query := assessment.CitationQuery{}
	if err := req.BindArguments(&query); err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	suggestions, err := s.assessments.SuggestCitations(ctx, query)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{
		"suggestions": suggestions,
		"next_action": "Present the suggestions to the user; attach the chosen one with attach_citation_to_control_config",
	})
}

func (s *Server) handleAttachCitation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "attach_citation_to_control_config")
	params := assessment.CitationParams{}
	if err := req.BindArguments(&params); err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	result, err := s.assessments.AttachCitation(ctx, params)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"result": result})
}

func (s *Server) handleControlSourceSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "fetch_control_source_summary")
	id, err := req.RequireString("control_id")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	summary, err := s.assessments.ControlSourceSummaryFor(ctx, id)
	if err != nil {
		return failResult(log, err)
	}
	nextAction := "No evidence is linked to this control; SQL rule automation cannot proceed here"
	if summary.HasLinkedEvidence() {
		nextAction = "Inspect the evidence schemas, then call get_evidence_sample_data before drafting SQL"
	}
	return okResult(map[string]any{
		"summary":     summary,
		"next_action": nextAction,
	})
}

func (s *Server) handleEvidenceSampleData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "get_evidence_sample_data")
	id, err := req.RequireString("control_id")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	samples, err := s.assessments.EvidenceSampleData(ctx, id, req.GetStringSlice("evidence_names", nil), req.GetInt("records", 3))
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"samples": samples})
}

func (s *Server) handleCreateSQLRule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "create_sql_rule_and_attach")
	params := assessment.SQLRuleParams{}
	if err := req.BindArguments(&params); err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	result, err := s.assessments.CreateSQLRule(ctx, params)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"result": result})
}

func (s *Server) handleCreateControlNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "create_control_config_note")
	params := assessment.NoteParams{}
	if err := req.BindArguments(&params); err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	result, err := s.assessments.CreateControlNote(ctx, params)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"result": result})
}

func (s *Server) handleAssessmentContext(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "get_assessment_context")

	raw, err := s.assessments.AssessmentContext(ctx)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"context": raw})
}

func (s *Server) handleRuleReadme(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "fetch_rule_readme")
	name, err := req.RequireString("name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	readme, err := s.assessments.RuleReadmeFor(ctx, name)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"readme": readme})
}
