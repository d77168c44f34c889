package rule

import (
	"strings"

	"github.com/policycow/cowmcp/engine/catalog"
	"github.com/policycow/cowmcp/engine/core"
)

const (
	// RulePlace addresses the rule-level scope in I/O-map entries.
	RulePlace = "*"

	// DirectionInput and DirectionOutput are the two valid address
	// directions.
	DirectionInput  = "Input"
	DirectionOutput = "Output"

	assignOp = ":="
)

// Address is one side of an I/O-map assignment:
// PLACE.DIRECTION.ATTRIBUTE, where PLACE is "*" for the rule itself or a
// task alias ("t1".."tn").
type Address struct {
	Place     string `json:"place"`
	Direction string `json:"direction"`
	Attribute string `json:"attribute"`
}

// IsRuleLevel reports whether the address targets the rule scope rather
// than a task.
func (a Address) IsRuleLevel() bool { return a.Place == RulePlace }

func (a Address) String() string {
	return a.Place + "." + a.Direction + "." + a.Attribute
}

// ParseAddress parses a PLACE.DIRECTION.ATTRIBUTE address. The attribute
// may itself contain dots; only the first two separators are structural.
func ParseAddress(s string) (Address, error) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Address{}, core.Validationf("invalid I/O-map address %q: expected PLACE.DIRECTION.ATTRIBUTE", s)
	}
	addr := Address{Place: parts[0], Direction: parts[1], Attribute: parts[2]}
	if addr.Direction != DirectionInput && addr.Direction != DirectionOutput {
		return Address{}, core.Validationf("invalid I/O-map direction %q in %q: expected %s or %s",
			addr.Direction, s, DirectionInput, DirectionOutput)
	}
	return addr, nil
}

// Assignment is one parsed I/O-map entry: destination := source.
type Assignment struct {
	Dest   Address `json:"dest"`
	Source Address `json:"source"`
	Raw    string  `json:"raw"`
}

// ParseAssignment parses a "dest:=source" I/O-map entry.
func ParseAssignment(entry string) (Assignment, error) {
	dest, source, found := strings.Cut(entry, assignOp)
	if !found {
		return Assignment{}, core.Validationf("invalid I/O-map entry %q: expected dest:=source", entry)
	}
	destAddr, err := ParseAddress(strings.TrimSpace(dest))
	if err != nil {
		return Assignment{}, err
	}
	sourceAddr, err := ParseAddress(strings.TrimSpace(source))
	if err != nil {
		return Assignment{}, err
	}
	return Assignment{Dest: destAddr, Source: sourceAddr, Raw: entry}, nil
}

// ioMapScope resolves addresses against the tasks and rule-level names a
// document declares.
type ioMapScope struct {
	tasksByAlias map[string]*catalog.Task
	ruleInputs   map[string]bool
	ruleOutputs  map[string]bool
}

func newIOMapScope(doc *Document, tasks []catalog.Task) *ioMapScope {
	scope := &ioMapScope{
		tasksByAlias: make(map[string]*catalog.Task),
		ruleInputs:   make(map[string]bool),
		ruleOutputs:  make(map[string]bool),
	}
	byName := make(map[string]*catalog.Task, len(tasks))
	for i := range tasks {
		byName[tasks[i].Name] = &tasks[i]
	}
	for _, ref := range doc.Spec.Tasks {
		if task, ok := byName[ref.Name]; ok {
			scope.tasksByAlias[ref.Alias] = task
		}
	}
	for _, meta := range doc.Spec.InputsMeta {
		scope.ruleInputs[meta.Name] = true
	}
	for _, meta := range doc.Spec.OutputsMeta {
		scope.ruleOutputs[meta.Name] = true
	}
	return scope
}

func (s *ioMapScope) check(addr Address) error {
	if addr.IsRuleLevel() {
		known := s.ruleInputs
		if addr.Direction == DirectionOutput {
			known = s.ruleOutputs
		}
		// Rule-level outputs may be declared implicitly by the map
		// entry itself; only inputs must pre-exist.
		if addr.Direction == DirectionInput && !known[addr.Attribute] {
			return core.Validationf("I/O-map address %q: rule has no input %q", addr.String(), addr.Attribute)
		}
		return nil
	}
	task, ok := s.tasksByAlias[addr.Place]
	if !ok {
		return core.Validationf("I/O-map address %q: unknown task alias %q", addr.String(), addr.Place)
	}
	if addr.Direction == DirectionInput {
		if task.Input(addr.Attribute) == nil {
			return core.Validationf("I/O-map address %q: task %q has no input %q",
				addr.String(), task.Name, addr.Attribute)
		}
		return nil
	}
	if task.Output(addr.Attribute) == nil {
		return core.Validationf("I/O-map address %q: task %q has no output %q",
			addr.String(), task.Name, addr.Attribute)
	}
	return nil
}

// ValidateIOMap parses every I/O-map entry of the document and checks each
// address against the declared tasks and rule-level names.
func ValidateIOMap(doc *Document, tasks []catalog.Task) error {
	scope := newIOMapScope(doc, tasks)
	for _, entry := range doc.Spec.IOMap {
		assignment, err := ParseAssignment(entry)
		if err != nil {
			return err
		}
		if err := scope.check(assignment.Dest); err != nil {
			return err
		}
		if err := scope.check(assignment.Source); err != nil {
			return err
		}
	}
	return nil
}
