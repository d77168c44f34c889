package rule

import (
	"strings"

	"github.com/policycow/cowmcp/engine/core"
)

// InputID uniquely identifies an input within a selected task set as the
// pair (task name, input name), serialized as "{taskName}.{inputName}".
// Two tasks declaring an input with the same local name produce distinct
// identifiers.
type InputID struct {
	TaskName  string
	InputName string
}

// NewInputID builds the identifier for a task's input.
func NewInputID(taskName, inputName string) InputID {
	return InputID{TaskName: taskName, InputName: inputName}
}

// ParseInputID splits a serialized identifier on its first dot. Input names
// may themselves contain dots; task names may not.
func ParseInputID(s string) (InputID, error) {
	task, input, found := strings.Cut(s, ".")
	if !found || task == "" || input == "" {
		return InputID{}, core.Validationf("'%s' is not a valid unique input identifier (expected TaskName.InputName)", s)
	}
	return InputID{TaskName: task, InputName: input}, nil
}

// String serializes the identifier.
func (id InputID) String() string {
	return id.TaskName + "." + id.InputName
}
