package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(
		mcp.NewPrompt("rule_authoring_workflow",
			mcp.WithPromptDescription("The staged workflow for authoring a compliance rule from catalog tasks"),
		),
		s.handleWorkflowPrompt,
	)
}

func (s *Server) handleWorkflowPrompt(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return mcp.NewGetPromptResult(
		"Rule authoring workflow",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(workflowPrompt)),
		},
	), nil
}

const workflowPrompt = `RULE AUTHORING WORKFLOW
=======================

A rule is an ordered pipeline of catalog tasks wired together by an I/O map.
Authoring one is a staged, confirmation-driven process. The server keeps no
state between calls: everything collected must be carried in the
conversation and passed back in.

STEP 1 - TASK SELECTION
Understand what the user wants to check or automate, break it into steps,
and pick one catalog task per step. Use the tasks://summary resource or
get_task_details to understand each candidate.

STEP 2 - INPUT OVERVIEW
Call prepare_input_collection_overview with the selected task names. Every
input is classified as a template (file-shaped) or a parameter (scalar) and
keyed by its unique "TaskName.InputName" identifier; two tasks sharing an
input name stay distinct. Present the overview and get the user's
confirmation before collecting anything.

STEP 3 - TEMPLATE INPUTS (collected first)
For each template input:
1. get_template_guidance - show the decoded template structure to the user
2. collect_template_input with the user's ACTUAL content, never the
   template itself; the content is validated but not stored
3. show the final confirmation message and wait for an explicit yes
4. confirm_template_input - only now is the file uploaded, under a
   deterministic name so re-confirming unchanged content overwrites
   rather than duplicates

STEP 4 - PARAMETER INPUTS
For each parameter input: collect_parameter_input (offer the declared
default when one exists), confirm the value with the user, then
confirm_parameter_input. Values are validated against the declared data
type: INT, FLOAT, BOOLEAN (true/yes/1 and false/no/0), DATE (YYYY-MM-DD),
DATETIME (RFC 3339).

STEP 5 - VERIFICATION
Call verify_collected_inputs with everything collected. Review the summary
with the user: every template file URL, every parameter value, any
name_collisions, and any missing inputs. Do not proceed until
ready_for_creation is true and the user has explicitly approved.

STEP 6 - RULE CREATION
Assemble the rule structure: task aliases t1..tn in execution order, rule
inputs under their bare names, and an ioMap of "dest:=source" entries with
PLACE.DIRECTION.ATTRIBUTE addresses (PLACE is "*" for the rule itself or a
task alias). The primary application type comes from the selected tasks'
appType tags with the "nocredapp" placeholder dropped; when several remain,
ask the user to choose. Show the YAML preview, get a final yes, then call
create_rule.`
