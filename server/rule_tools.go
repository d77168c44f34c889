package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/policycow/cowmcp/engine/catalog"
	"github.com/policycow/cowmcp/engine/core"
	"github.com/policycow/cowmcp/engine/rule"
)

func (s *Server) registerRuleTools() {
	s.mcp.AddTool(
		mcp.NewTool("get_task_details",
			mcp.WithDescription(`Get the full definition of one catalog task: description, readme-derived capabilities and use cases, every input with its data type and template status, and every output. Call this before collecting inputs for a task.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("task_name",
				mcp.Description("Exact name of the task as listed in the catalog"),
				mcp.Required(),
			),
		),
		s.handleGetTaskDetails,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_template_guidance",
			mcp.WithDescription(`Get the decoded template for a task input plus its required fields and validation rules. Present the template structure to the user and ask them for their actual configuration content. Fails when the input carries no template.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("task_name", mcp.Description("Task that declares the input"), mcp.Required()),
			mcp.WithString("input_name", mcp.Description("Template input to get guidance for"), mcp.Required()),
		),
		s.handleTemplateGuidance,
	)

	s.mcp.AddTool(
		mcp.NewTool("collect_template_input",
			mcp.WithDescription(`Validate user-provided template content against the input's declared format and the template's required fields. Nothing is uploaded or stored; show the returned final_confirmation_message to the user and call confirm_template_input only after an explicit yes.`),
			mcp.WithString("task_name", mcp.Description("Task that declares the input"), mcp.Required()),
			mcp.WithString("input_name", mcp.Description("Template input being collected"), mcp.Required()),
			mcp.WithString("user_content", mcp.Description("The user's actual configuration content, never the template itself"), mcp.Required()),
		),
		s.handleCollectTemplate,
	)

	s.mcp.AddTool(
		mcp.NewTool("confirm_template_input",
			mcp.WithDescription(`Store user-confirmed template content. FILE and HTTP_CONFIG inputs are uploaded under a deterministic name derived from task, input, and content, so re-confirming unchanged content overwrites instead of duplicating. Other inputs are returned for in-memory storage. Only call after the user confirmed the exact content.`),
			mcp.WithString("rule_name", mcp.Description("Name of the rule being authored"), mcp.Required()),
			mcp.WithString("task_name", mcp.Description("Task that declares the input"), mcp.Required()),
			mcp.WithString("input_name", mcp.Description("Template input being confirmed"), mcp.Required()),
			mcp.WithString("confirmed_content", mcp.Description("The exact content the user confirmed"), mcp.Required()),
		),
		s.handleConfirmTemplate,
	)

	s.mcp.AddTool(
		mcp.NewTool("upload_file",
			mcp.WithDescription(`Upload file content for use in a rule and get back the stored file URL. Content is base64-wrapped automatically; pass content_encoding "base64" if it already is.`),
			mcp.WithString("rule_name", mcp.Description("Name of the rule the file belongs to"), mcp.Required()),
			mcp.WithString("file_name", mcp.Description("Target file name including extension"), mcp.Required()),
			mcp.WithString("file_content", mcp.Description("File content"), mcp.Required()),
			mcp.WithString("content_encoding", mcp.Description(`"utf-8" (default) or "base64"`)),
		),
		s.handleUploadFile,
	)

	s.mcp.AddTool(
		mcp.NewTool("collect_parameter_input",
			mcp.WithDescription(`Collect a scalar parameter input. Without a value this returns a presentation of what to ask the user, including any default. With use_default the declared default is staged pending confirmation. With user_value the value is validated against the declared data type and staged pending final confirmation.`),
			mcp.WithString("task_name", mcp.Description("Task that declares the input"), mcp.Required()),
			mcp.WithString("input_name", mcp.Description("Parameter input being collected"), mcp.Required()),
			mcp.WithString("user_value", mcp.Description("The user's value, as entered")),
			mcp.WithBoolean("use_default", mcp.Description("Stage the declared default value instead of a user value")),
		),
		s.handleCollectParameter,
	)

	s.mcp.AddTool(
		mcp.NewTool("confirm_parameter_input",
			mcp.WithDescription(`Store a user-confirmed parameter value. The value is re-validated against the declared data type; confirmation is idempotent.`),
			mcp.WithString("task_name", mcp.Description("Task that declares the input"), mcp.Required()),
			mcp.WithString("input_name", mcp.Description("Parameter input being confirmed"), mcp.Required()),
			mcp.WithString("confirmed_value", mcp.Description("The exact value the user confirmed"), mcp.Required()),
			mcp.WithString("confirmation_type", mcp.Description(`"default" when confirming a declared default, "final" otherwise`)),
		),
		s.handleConfirmParameter,
	)

	s.mcp.AddTool(
		mcp.NewTool("prepare_input_collection_overview",
			mcp.WithDescription(`Analyze the selected tasks and produce the input collection plan: every input classified as template or parameter, keyed by its unique "TaskName.InputName" identifier. Present the overview to the user and get confirmation before collecting anything. Selected names missing from the catalog are reported in missing_tasks.`),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithArray("selected_tasks",
				mcp.Description("Names of the tasks chosen for the rule, in execution order"),
				mcp.Required(),
				mcp.WithStringItems(),
			),
		),
		s.handlePrepareOverview,
	)

	s.mcp.AddTool(
		mcp.NewTool("verify_collected_inputs",
			mcp.WithDescription(`Aggregate everything collected so far into the structures rule creation needs: rule-level inputs keyed by bare input name, inputs metadata, and the task-input mapping for I/O map construction. Present the verification summary and get explicit user confirmation before create_rule. Inputs sharing a bare name across tasks are reported in name_collisions; the last one in sorted unique-id order wins.`),
			mcp.WithObject("collected_inputs",
				mcp.Description(`All collected inputs: {"template_files": {"Task.Input": {filename, file_url, file_size, format, data_type, required, validated}}, "parameter_values": {"Task.Input": {value, data_type, required}}}`),
				mcp.Required(),
			),
		),
		s.handleVerifyInputs,
	)

	s.mcp.AddTool(
		mcp.NewTool("create_rule",
			mcp.WithDescription(`Submit the assembled rule structure. Only call after verify_collected_inputs succeeded and the user approved the YAML preview. The structure is validated (including every ioMap address against the declared tasks) before anything is sent. When meta.labels.appType is empty the primary application type is resolved from the selected tasks; an ambiguous resolution is returned as an error listing the candidates for the user to choose from.`),
			mcp.WithObject("rule_structure",
				mcp.Description("Complete rule document: apiVersion, kind, meta, spec with inputs, inputsMeta__, outputsMeta__, tasks, and ioMap"),
				mcp.Required(),
			),
		),
		s.handleCreateRule,
	)
}

func (s *Server) handleGetTaskDetails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "get_task_details")
	taskName, err := req.RequireString("task_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	task, err := s.catalog.Get(ctx, taskName)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{
		"task":        taskDetails(task),
		"next_action": "Use get_template_guidance for each template input before collecting content",
	})
}

func taskDetails(task *catalog.Task) map[string]any {
	readme := catalog.DecodeContent(task.ReadmeData)

	inputs := make([]map[string]any, 0, len(task.Inputs))
	for i := range task.Inputs {
		input := &task.Inputs[i]
		inputs = append(inputs, map[string]any{
			"name":          input.Name,
			"description":   input.Description,
			"dataType":      input.DataType,
			"required":      input.Required,
			"defaultValue":  input.DefaultValue,
			"allowedValues": input.AllowedValues,
			"has_template":  input.HasTemplate(),
			"format":        input.Format,
			"is_template":   input.IsTemplateInput(),
		})
	}
	outputs := make([]map[string]any, 0, len(task.Outputs))
	for i := range task.Outputs {
		outputs = append(outputs, map[string]any{
			"name":        task.Outputs[i].Name,
			"description": task.Outputs[i].Description,
			"dataType":    task.Outputs[i].DataType,
		})
	}

	return map[string]any{
		"name":            task.Name,
		"displayName":     task.DisplayName,
		"version":         task.Version,
		"description":     task.Description,
		"type":            task.Type,
		"tags":            task.Tags,
		"applicationType": task.ApplicationType,
		"appTags":         task.AppTags,
		"purpose":         catalog.ExtractPurpose(task.Description),
		"capabilities":    catalog.ExtractCapabilities(readme),
		"use_cases":       catalog.ExtractUseCases(readme),
		"inputs":          inputs,
		"outputs":         outputs,
		"template_summary": map[string]any{
			"template_inputs": task.TemplateInputNames(),
			"instructions":    "Use get_template_guidance(task_name, input_name) for each template input",
		},
		"integration_info": map[string]any{
			"app_type": task.AppType(),
		},
	}
}

func (s *Server) handleTemplateGuidance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "get_template_guidance")
	taskName, err := req.RequireString("task_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	inputName, err := req.RequireString("input_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	guidance, err := s.rules.TemplateGuidance(ctx, taskName, inputName)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{
		"guidance":    guidance,
		"next_action": "Show the template to the user, then validate their content with collect_template_input",
	})
}

func (s *Server) handleCollectTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "collect_template_input")
	taskName, err := req.RequireString("task_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	inputName, err := req.RequireString("input_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	userContent, err := req.RequireString("user_content")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	staged, err := s.rules.CollectTemplate(ctx, taskName, inputName, userContent)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{
		"staged":      staged,
		"next_action": "Show final_confirmation_message to the user; call confirm_template_input only after an explicit yes",
	})
}

func (s *Server) handleConfirmTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "confirm_template_input")
	ruleName, err := req.RequireString("rule_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	taskName, err := req.RequireString("task_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	inputName, err := req.RequireString("input_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	content, err := req.RequireString("confirmed_content")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	confirmed, err := s.rules.ConfirmTemplate(ctx, ruleName, taskName, inputName, content)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{
		"confirmed":   confirmed,
		"next_action": "Record this under its unique id for verify_collected_inputs",
	})
}

func (s *Server) handleUploadFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "upload_file")
	ruleName, err := req.RequireString("rule_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	fileName, err := req.RequireString("file_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	content, err := req.RequireString("file_content")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	encoding := req.GetString("content_encoding", rule.EncodingUTF8)

	upload, err := s.rules.UploadFile(ctx, ruleName, fileName, content, encoding)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{"upload": upload})
}

func (s *Server) handleCollectParameter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "collect_parameter_input")
	taskName, err := req.RequireString("task_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	inputName, err := req.RequireString("input_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}

	// An explicitly provided empty user_value must validate as a value, not
	// fall through to the prompt branch, so presence is checked on the raw
	// argument map.
	var userValue *string
	if raw, ok := req.GetArguments()["user_value"]; ok {
		if value, ok := raw.(string); ok {
			userValue = &value
		}
	}
	useDefault := req.GetBool("use_default", false)

	collection, err := s.rules.CollectParameter(ctx, taskName, inputName, userValue, useDefault)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{
		"collection":  collection,
		"next_action": "Confirm the staged value with the user, then call confirm_parameter_input",
	})
}

func (s *Server) handleConfirmParameter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "confirm_parameter_input")
	taskName, err := req.RequireString("task_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	inputName, err := req.RequireString("input_name")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	value, err := req.RequireString("confirmed_value")
	if err != nil {
		return failResult(log, core.Validationf("%v", err))
	}
	confirmationType := req.GetString("confirmation_type", rule.ConfirmationFinal)

	confirmed, err := s.rules.ConfirmParameter(ctx, taskName, inputName, value, confirmationType)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{
		"confirmed":   confirmed,
		"next_action": "Record this under its unique id for verify_collected_inputs",
	})
}

func (s *Server) handlePrepareOverview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "prepare_input_collection_overview")
	selected := req.GetStringSlice("selected_tasks", nil)

	overview, err := s.rules.Overview(ctx, selected)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{
		"overview":    overview,
		"next_action": "Present overview_presentation to the user and get confirmation before collecting inputs",
	})
}

func (s *Server) handleVerifyInputs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, log := s.toolContext(ctx, "verify_collected_inputs")

	var args struct {
		CollectedInputs *rule.CollectedInputs `json:"collected_inputs"`
	}
	if err := req.BindArguments(&args); err != nil {
		return failResult(log, core.Validationf("invalid collected_inputs payload: %v", err))
	}

	verification, err := s.rules.Verify(args.CollectedInputs)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{
		"verification": verification,
		"next_action":  "Present verification_presentation to the user; call create_rule only after an explicit yes",
	})
}

func (s *Server) handleCreateRule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, log := s.toolContext(ctx, "create_rule")

	var args struct {
		RuleStructure *rule.Document `json:"rule_structure"`
	}
	if err := req.BindArguments(&args); err != nil {
		return failResult(log, core.Validationf("invalid rule_structure payload: %v", err))
	}
	doc := args.RuleStructure
	if doc == nil {
		return failResult(log, core.Validationf("rule_structure is required"))
	}

	tasks := make([]catalog.Task, 0, len(doc.Spec.Tasks))
	for _, ref := range doc.Spec.Tasks {
		task, err := s.catalog.Get(ctx, ref.Name)
		if err != nil {
			return failResult(log, err)
		}
		tasks = append(tasks, *task)
	}

	if len(doc.Meta.Labels.AppType) == 0 {
		resolution := rule.ResolvePrimaryAppType(tasks)
		if resolution.Ambiguous {
			return failResult(log, core.Validationf(
				"multiple application types found (%v); set meta.labels.appType to the primary one", resolution.Candidates))
		}
		doc.Meta.Labels.AppType = []string{resolution.PrimaryAppType}
		doc.Meta.Annotations.AnnotateType = []string{resolution.PrimaryAppType}
		doc.Meta.Annotations.App = []string{resolution.PrimaryAppType}
	}

	result, err := s.rules.CreateRule(ctx, doc, tasks)
	if err != nil {
		return failResult(log, err)
	}
	return okResult(map[string]any{
		"rule_id":      result.RuleID,
		"status":       result.Status,
		"timestamp":    result.Timestamp,
		"yaml_preview": result.YAMLPreview,
		"message":      result.Message,
	})
}
