// Package host defines the boundary between the reconciler and the tree it
// keeps in sync.
//
// The reconciler never builds host nodes itself. It asks a Host to create a
// node per host-typed fiber and then drives it exclusively through the
// primitive operations below. Hosts are called from a single goroutine and
// need no locking of their own.
package host

import "errors"

// Node is an opaque handle to a host node.
type Node any

// Common host errors.
var (
	ErrUnknownType = errors.New("host: unknown node type")
	ErrNotChild    = errors.New("host: node is not a child of parent")
	ErrBadNode     = errors.New("host: node handle does not belong to this host")
)

// Host is the set of primitive operations the commit phase relies on.
type Host interface {
	// CreateNode allocates a node for a host tag. The reserved text tag
	// creates a text-content node. Unknown tags return ErrUnknownType.
	CreateNode(tag string) (Node, error)

	// SetProperty sets a plain (non-child, non-listener) attribute.
	SetProperty(n Node, name string, value any) error

	// RemoveProperty clears a plain attribute.
	RemoveProperty(n Node, name string) error

	// AddListener binds handler to the derived event name.
	AddListener(n Node, event string, handler any) error

	// RemoveListener unbinds handler from the derived event name.
	RemoveListener(n Node, event string, handler any) error

	// AppendChild attaches child as the last child of parent.
	AppendChild(parent, child Node) error

	// RemoveChild detaches child from parent.
	RemoveChild(parent, child Node) error
}

// Batcher is implemented by hosts that want to know where a commit begins
// and ends. EndCommit is called even when the commit failed.
type Batcher interface {
	BeginCommit()
	EndCommit() error
}
