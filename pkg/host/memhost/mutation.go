package memhost

import "fmt"

// Op is the type of a recorded host operation.
type Op uint8

const (
	OpCreate Op = iota + 1
	OpSetProperty
	OpRemoveProperty
	OpAddListener
	OpRemoveListener
	OpAppendChild
	OpRemoveChild
)

// String returns the string representation of the Op.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "Create"
	case OpSetProperty:
		return "SetProperty"
	case OpRemoveProperty:
		return "RemoveProperty"
	case OpAddListener:
		return "AddListener"
	case OpRemoveListener:
		return "RemoveListener"
	case OpAppendChild:
		return "AppendChild"
	case OpRemoveChild:
		return "RemoveChild"
	default:
		return "Unknown"
	}
}

// Mutation is one recorded host operation.
type Mutation struct {
	Op       Op
	Node     uint64 // target node (the child for Append/RemoveChild)
	Parent   uint64 // for Append/RemoveChild
	Name     string // tag, property or event name
	Value    any
	InCommit bool // recorded between BeginCommit and EndCommit
	Attached bool // target was reachable from a container before or after
}

// String formats the mutation for logs and test failures.
func (m Mutation) String() string {
	switch m.Op {
	case OpAppendChild, OpRemoveChild:
		return fmt.Sprintf("%s(%d -> %d)", m.Op, m.Node, m.Parent)
	case OpSetProperty:
		return fmt.Sprintf("%s(%d, %s=%v)", m.Op, m.Node, m.Name, m.Value)
	default:
		return fmt.Sprintf("%s(%d, %s)", m.Op, m.Node, m.Name)
	}
}

// IsStructural reports whether m changed parent/child edges.
func (m Mutation) IsStructural() bool {
	return m.Op == OpAppendChild || m.Op == OpRemoveChild
}
