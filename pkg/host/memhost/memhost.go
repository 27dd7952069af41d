// Package memhost is an in-memory host tree.
//
// It implements host.Host over plain Go structs, records every operation in a
// mutation log, delivers events to bound listeners, and serializes subtrees to
// HTML. It backs the CLI, the websocket server, and the reconciler tests.
package memhost

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/host"
)

// Node is a host node.
type Node struct {
	ID        uint64
	Tag       string
	Props     map[string]any
	Children  []*Node
	Parent    *Node
	listeners map[string][]any
	container bool
}

// IsText reports whether n is a text-content node.
func (n *Node) IsText() bool {
	return n.Tag == element.TextTag
}

// Attached reports whether n is reachable from a container.
func (n *Node) Attached() bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.container {
			return true
		}
	}
	return false
}

// Listeners returns the number of handlers bound to event.
func (n *Node) Listeners(event string) int {
	return len(n.listeners[event])
}

// Events returns the event names with at least one handler.
func (n *Node) Events() []string {
	var names []string
	for name, hs := range n.listeners {
		if len(hs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// TextContent returns the concatenated text of n's subtree.
func (n *Node) TextContent() string {
	if n.IsText() {
		return FormatValue(n.Props[element.NodeValue])
	}
	var s string
	for _, c := range n.Children {
		s += c.TextContent()
	}
	return s
}

// Find returns the first node in n's subtree (pre-order, n included) with tag.
func (n *Node) Find(tag string) *Node {
	if n.Tag == tag {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(tag); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every node in n's subtree with tag, in pre-order.
func (n *Node) FindAll(tag string) []*Node {
	var out []*Node
	if n.Tag == tag {
		out = append(out, n)
	}
	for _, c := range n.Children {
		out = append(out, c.FindAll(tag)...)
	}
	return out
}

// Option configures a Host.
type Option func(*Host)

// WithAnyTag accepts tags outside element's known tag table.
func WithAnyTag() Option {
	return func(h *Host) {
		h.anyTag = true
	}
}

// WithObserver registers fn to be called after every recorded mutation.
func WithObserver(fn func(Mutation)) Option {
	return func(h *Host) {
		h.observers = append(h.observers, fn)
	}
}

// Host is an in-memory host.Host.
type Host struct {
	nextID    uint64
	nodes     map[uint64]*Node
	log       []Mutation
	observers []func(Mutation)
	anyTag    bool
	inCommit  bool
	commits   int
}

var (
	_ host.Host    = (*Host)(nil)
	_ host.Batcher = (*Host)(nil)
)

// New creates an empty host.
func New(opts ...Option) *Host {
	h := &Host{nodes: make(map[uint64]*Node)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewContainer creates a root node that is always considered attached. It is
// not recorded as a mutation.
func (h *Host) NewContainer(tag string) *Node {
	n := h.alloc(tag)
	n.container = true
	return n
}

// Lookup returns the node with id, or nil.
func (h *Host) Lookup(id uint64) *Node {
	return h.nodes[id]
}

// Mutations returns the mutations recorded since the last Reset.
func (h *Host) Mutations() []Mutation {
	return h.log
}

// Reset clears the mutation log.
func (h *Host) Reset() {
	h.log = nil
}

// InCommit reports whether a commit is in progress.
func (h *Host) InCommit() bool {
	return h.inCommit
}

// Commits returns the number of completed commits.
func (h *Host) Commits() int {
	return h.commits
}

// BeginCommit implements host.Batcher.
func (h *Host) BeginCommit() {
	h.inCommit = true
}

// EndCommit implements host.Batcher.
func (h *Host) EndCommit() error {
	h.inCommit = false
	h.commits++
	return nil
}

func (h *Host) alloc(tag string) *Node {
	h.nextID++
	n := &Node{
		ID:        h.nextID,
		Tag:       tag,
		Props:     make(map[string]any),
		listeners: make(map[string][]any),
	}
	h.nodes[n.ID] = n
	return n
}

func (h *Host) node(n host.Node) (*Node, error) {
	node, ok := n.(*Node)
	if !ok || node == nil || h.nodes[node.ID] != node {
		return nil, fmt.Errorf("%w: %T", host.ErrBadNode, n)
	}
	return node, nil
}

// record logs m against n. wasAttached is n's visibility before the
// operation; Mutation.Attached is true if n was visible before or after.
func (h *Host) record(m Mutation, n *Node, wasAttached bool) {
	m.Node = n.ID
	m.InCommit = h.inCommit
	m.Attached = wasAttached || n.Attached()
	h.log = append(h.log, m)
	for _, fn := range h.observers {
		fn(m)
	}
}

// CreateNode implements host.Host.
func (h *Host) CreateNode(tag string) (host.Node, error) {
	if tag == "" || (!h.anyTag && !element.IsKnownTag(tag)) {
		return nil, fmt.Errorf("%w: %q", host.ErrUnknownType, tag)
	}
	n := h.alloc(tag)
	h.record(Mutation{Op: OpCreate, Name: tag}, n, false)
	return n, nil
}

// SetProperty implements host.Host.
func (h *Host) SetProperty(hn host.Node, name string, value any) error {
	n, err := h.node(hn)
	if err != nil {
		return err
	}
	if n.IsText() && name != element.NodeValue {
		return fmt.Errorf("memhost: text node has no property %q", name)
	}
	n.Props[name] = value
	h.record(Mutation{Op: OpSetProperty, Name: name, Value: value}, n, n.Attached())
	return nil
}

// RemoveProperty implements host.Host.
func (h *Host) RemoveProperty(hn host.Node, name string) error {
	n, err := h.node(hn)
	if err != nil {
		return err
	}
	delete(n.Props, name)
	h.record(Mutation{Op: OpRemoveProperty, Name: name}, n, n.Attached())
	return nil
}

// AddListener implements host.Host.
func (h *Host) AddListener(hn host.Node, event string, handler any) error {
	n, err := h.node(hn)
	if err != nil {
		return err
	}
	n.listeners[event] = append(n.listeners[event], handler)
	h.record(Mutation{Op: OpAddListener, Name: event, Value: handler}, n, n.Attached())
	return nil
}

// RemoveListener implements host.Host. Removing a handler that is not bound
// is a no-op, as on DOM event targets.
func (h *Host) RemoveListener(hn host.Node, event string, handler any) error {
	n, err := h.node(hn)
	if err != nil {
		return err
	}
	hs := n.listeners[event]
	for i, bound := range hs {
		if sameHandler(bound, handler) {
			n.listeners[event] = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	h.record(Mutation{Op: OpRemoveListener, Name: event, Value: handler}, n, n.Attached())
	return nil
}

// AppendChild implements host.Host. A child that already has a parent is
// moved.
func (h *Host) AppendChild(hp, hc host.Node) error {
	parent, err := h.node(hp)
	if err != nil {
		return err
	}
	child, err := h.node(hc)
	if err != nil {
		return err
	}
	was := child.Attached()
	if child.Parent != nil {
		child.Parent.detach(child)
	}
	parent.Children = append(parent.Children, child)
	child.Parent = parent
	h.record(Mutation{Op: OpAppendChild, Parent: parent.ID}, child, was)
	return nil
}

// RemoveChild implements host.Host.
func (h *Host) RemoveChild(hp, hc host.Node) error {
	parent, err := h.node(hp)
	if err != nil {
		return err
	}
	child, err := h.node(hc)
	if err != nil {
		return err
	}
	was := child.Attached()
	if child.Parent != parent || !parent.detach(child) {
		return fmt.Errorf("%w: node %d under %d", host.ErrNotChild, child.ID, parent.ID)
	}
	child.Parent = nil
	h.record(Mutation{Op: OpRemoveChild, Parent: parent.ID}, child, was)
	h.release(child)
	return nil
}

// release forgets a detached subtree so its IDs no longer resolve.
func (h *Host) release(n *Node) {
	delete(h.nodes, n.ID)
	for _, c := range n.Children {
		h.release(c)
	}
}

func (n *Node) detach(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i:i], n.Children[i+1:]...)
			return true
		}
	}
	return false
}

// Dispatch delivers ev to every handler bound to ev.Type on n and returns
// how many ran. Handlers may be *element.Listener or func(element.Event).
func (h *Host) Dispatch(n *Node, ev element.Event) int {
	hs := append([]any(nil), n.listeners[ev.Type]...)
	ran := 0
	for _, handler := range hs {
		switch fn := handler.(type) {
		case *element.Listener:
			if fn != nil && fn.Handle != nil {
				fn.Handle(ev)
				ran++
			}
		case func(element.Event):
			fn(ev)
			ran++
		}
	}
	return ran
}

// sameHandler compares handlers by identity without panicking on func values.
func sameHandler(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return false
}
