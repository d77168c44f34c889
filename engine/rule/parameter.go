package rule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/policycow/cowmcp/pkg/logger"
)

// Confirmation types accepted by ConfirmParameter.
const (
	ConfirmationDefault = "default"
	ConfirmationFinal   = "final"
)

// ParameterCollection is the outcome of a parameter collection step.
// Exactly one of the Needs* flags is set: the caller either confirms a
// default, confirms a validated value, or prompts the user for input.
type ParameterCollection struct {
	TaskName  string   `json:"task_name"`
	InputName string   `json:"input_name"`
	DataType  DataType `json:"data_type"`
	Required  bool     `json:"required"`

	NeedsDefaultConfirmation bool   `json:"needs_default_confirmation,omitempty"`
	DefaultValue             string `json:"default_value,omitempty"`

	NeedsFinalConfirmation bool `json:"needs_final_confirmation,omitempty"`
	ValidatedValue         any  `json:"validated_value,omitempty"`

	NeedsUserInput bool   `json:"needs_user_input,omitempty"`
	HasDefault     bool   `json:"has_default,omitempty"`
	Presentation   string `json:"presentation,omitempty"`

	ConfirmationMessage string `json:"confirmation_message,omitempty"`
	Message             string `json:"message"`
}

// ConfirmedParameter is a parameter value stored after explicit user
// confirmation. Parameter values are always held in memory, never uploaded.
type ConfirmedParameter struct {
	TaskName         string    `json:"task_name"`
	InputName        string    `json:"input_name"`
	StoredValue      any       `json:"stored_value"`
	DataType         DataType  `json:"data_type"`
	Required         bool      `json:"required"`
	StorageType      string    `json:"storage_type"`
	ConfirmationType string    `json:"confirmation_type"`
	Timestamp        time.Time `json:"timestamp"`
	Message          string    `json:"message"`
}

// CollectParameter collects a primitive scalar input. With useDefault set
// and a default declared, the default is returned pending its own
// confirmation. With a user value, the value is validated against the
// declared type and returned pending final confirmation. With neither, a
// presentation payload describes what to ask the user for.
func (s *Service) CollectParameter(
	ctx context.Context,
	taskName, inputName string,
	userValue *string,
	useDefault bool,
) (*ParameterCollection, error) {
	log := logger.FromContext(ctx)

	_, input, err := s.catalog.GetInput(ctx, taskName, inputName)
	if err != nil {
		return nil, err
	}

	dataType := ParseDataType(input.DataType)
	hasDefault := input.DefaultValue != ""
	result := &ParameterCollection{
		TaskName:  taskName,
		InputName: inputName,
		DataType:  dataType,
		Required:  input.Required,
	}

	switch {
	case useDefault && hasDefault:
		result.NeedsDefaultConfirmation = true
		result.DefaultValue = input.DefaultValue
		result.ConfirmationMessage = fmt.Sprintf(
			"I can fill this with the default value: '%s'. Confirm? (yes/no)", input.DefaultValue)
		result.Message = "Default value needs user confirmation before proceeding"
	case userValue != nil:
		converted, err := dataType.Validate(*userValue)
		if err != nil {
			return nil, err
		}
		log.Debug("parameter value validated", "task", taskName, "input", inputName, "type", dataType)
		result.NeedsFinalConfirmation = true
		result.ValidatedValue = converted
		result.ConfirmationMessage = fmt.Sprintf(
			"You entered: '%v'. Is this correct? (yes/no)", converted)
		result.Message = "Value validated - needs final confirmation before storing"
	default:
		result.NeedsUserInput = true
		result.HasDefault = hasDefault
		result.DefaultValue = input.DefaultValue
		result.Presentation = parameterPresentation(taskName, input.Name, input.Description, input.DefaultValue, dataType, input.Required)
		result.Message = "Ready to collect parameter input from user"
	}
	return result, nil
}

// ConfirmParameter re-validates and stores a confirmed parameter value.
// Confirmation is idempotent: repeating it with the same value yields the
// same stored value.
func (s *Service) ConfirmParameter(
	ctx context.Context,
	taskName, inputName, confirmedValue, confirmationType string,
) (*ConfirmedParameter, error) {
	_, input, err := s.catalog.GetInput(ctx, taskName, inputName)
	if err != nil {
		return nil, err
	}
	if confirmationType != ConfirmationDefault {
		confirmationType = ConfirmationFinal
	}

	dataType := ParseDataType(input.DataType)
	converted, err := dataType.Validate(confirmedValue)
	if err != nil {
		return nil, err
	}

	return &ConfirmedParameter{
		TaskName:         taskName,
		InputName:        inputName,
		StoredValue:      converted,
		DataType:         dataType,
		Required:         input.Required,
		StorageType:      StorageMemory,
		ConfirmationType: confirmationType,
		Timestamp:        time.Now().UTC(),
		Message:          fmt.Sprintf("Parameter value confirmed and stored in memory for %s", inputName),
	}, nil
}

func parameterPresentation(taskName, inputName, description, defaultValue string, dataType DataType, required bool) string {
	requiredLabel := "No"
	if required {
		requiredLabel = "Yes"
	}
	defaultLabel := defaultValue
	if defaultLabel == "" {
		defaultLabel = "None"
	}
	var b strings.Builder
	b.WriteString("Now configuring: [X of Y inputs]\n\n")
	fmt.Fprintf(&b, "Task: %s\n", taskName)
	fmt.Fprintf(&b, "Input: %s (%s)\n", inputName, dataType)
	fmt.Fprintf(&b, "Description: %s\n", description)
	fmt.Fprintf(&b, "Required: %s\n", requiredLabel)
	fmt.Fprintf(&b, "Default: %s\n\n", defaultLabel)
	b.WriteString("Please provide a value, type 'default' to use default, or 'skip' if optional:")
	return b.String()
}
