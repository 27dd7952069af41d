// Package remote mirrors a host tree to a client over the wire protocol.
//
// A Host keeps the authoritative tree in a memhost and buffers every host
// operation of a work cycle. When the reconciler ends a commit, operations
// on nodes the client can reach are encoded into one patches frame and sent;
// nodes that were created but never attached (abandoned work) are skipped.
// Client events are routed back to the listeners bound on the addressed
// node.
package remote

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/host"
	"github.com/vango-dev/loom/pkg/host/memhost"
	"github.com/vango-dev/loom/pkg/protocol"
)

// ErrUnknownNode is returned for an event addressed to a node that does not
// exist.
var ErrUnknownNode = errors.New("remote: unknown node")

// Sender delivers one frame to the client.
type Sender interface {
	Send(f *protocol.Frame) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(f *protocol.Frame) error

// Send implements Sender.
func (fn SenderFunc) Send(f *protocol.Frame) error { return fn(f) }

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMemhostOptions passes options to the underlying memhost.
func WithMemhostOptions(opts ...memhost.Option) Option {
	return func(h *Host) {
		h.memOpts = append(h.memOpts, opts...)
	}
}

// Host is a host.Host whose commits are streamed to a Sender.
type Host struct {
	*memhost.Host

	container *memhost.Node
	sender    Sender
	pending   []memhost.Mutation
	enc       *protocol.Encoder
	logger    *slog.Logger
	memOpts   []memhost.Option
	sent      uint64
	err       error
}

var (
	_ host.Host    = (*Host)(nil)
	_ host.Batcher = (*Host)(nil)
)

// New creates a Host with a "root" container that streams to s.
func New(s Sender, opts ...Option) *Host {
	h := &Host{
		sender: s,
		enc:    protocol.NewEncoder(),
		logger: slog.Default().With("component", "remote"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.memOpts = append(h.memOpts, memhost.WithObserver(h.buffer))
	h.Host = memhost.New(h.memOpts...)
	h.container = h.NewContainer("root")
	return h
}

// Container returns the root node to render into.
func (h *Host) Container() *memhost.Node {
	return h.container
}

// Err returns the first send error. After a send error no further frames
// are sent.
func (h *Host) Err() error {
	return h.err
}

// Sent returns the number of patch frames sent.
func (h *Host) Sent() uint64 {
	return h.sent
}

func (h *Host) buffer(m memhost.Mutation) {
	h.pending = append(h.pending, m)
}

// EndCommit implements host.Batcher. It sends the commit's patches. A send
// failure is kept in Err rather than returned, since the local tree has
// already been updated.
func (h *Host) EndCommit() error {
	if err := h.Host.EndCommit(); err != nil {
		return err
	}
	pf := &protocol.PatchesFrame{Seq: uint64(h.Commits())}
	for _, m := range h.pending {
		if !h.visible(m) {
			continue
		}
		pf.Patches = append(pf.Patches, toPatch(m))
	}
	h.pending = h.pending[:0]

	if len(pf.Patches) == 0 || h.err != nil {
		return nil
	}

	h.enc.Reset()
	protocol.EncodePatchesTo(h.enc, pf)
	payload := append([]byte(nil), h.enc.Bytes()...)
	if err := h.sender.Send(protocol.NewFrame(protocol.FramePatches, payload)); err != nil {
		h.err = err
		h.logger.Warn("patch send failed", "seq", pf.Seq, "patches", len(pf.Patches), "error", err)
		return nil
	}
	h.sent++
	h.logger.Debug("patches sent", "seq", pf.Seq, "patches", len(pf.Patches), "bytes", len(payload))
	return nil
}

// visible reports whether the client can see m's node: it was attached when
// recorded or is attached now.
func (h *Host) visible(m memhost.Mutation) bool {
	if m.Attached {
		return true
	}
	n := h.Lookup(m.Node)
	return n != nil && n.Attached()
}

func toPatch(m memhost.Mutation) protocol.Patch {
	switch m.Op {
	case memhost.OpCreate:
		return protocol.NewCreatePatch(m.Node, m.Name)
	case memhost.OpSetProperty:
		return protocol.NewSetPropPatch(m.Node, m.Name, m.Value)
	case memhost.OpRemoveProperty:
		return protocol.NewRemovePropPatch(m.Node, m.Name)
	case memhost.OpAddListener:
		return protocol.NewListenPatch(m.Node, m.Name)
	case memhost.OpRemoveListener:
		return protocol.NewUnlistenPatch(m.Node, m.Name)
	case memhost.OpAppendChild:
		return protocol.NewAppendPatch(m.Node, m.Parent)
	default:
		return protocol.NewRemovePatch(m.Node, m.Parent)
	}
}

// HandleEvent delivers a client event to the addressed node's listeners and
// returns how many ran.
func (h *Host) HandleEvent(ev *protocol.Event) (int, error) {
	n := h.Lookup(ev.Node)
	if n == nil || !n.Attached() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownNode, ev.Node)
	}
	return h.Dispatch(n, element.Event{Type: ev.Type, Value: ev.Value}), nil
}

// Hello returns the frame that brings a new client up to date.
func (h *Host) Hello(session string) *protocol.Frame {
	var buf bytes.Buffer
	_ = memhost.RenderChildren(&buf, h.container, memhost.RenderConfig{IDs: true})
	payload := protocol.EncodeHello(&protocol.Hello{
		Session: session,
		Seq:     uint64(h.Commits()),
		Root:    h.container.ID,
		HTML:    buf.String(),
	})
	return protocol.NewFrame(protocol.FrameHello, payload)
}
