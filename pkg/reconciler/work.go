package reconciler

import (
	stderrors "errors"

	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/hooks"
	"github.com/vango-dev/loom/pkg/host"
)

// performUnitOfWork processes one fiber and returns the next fiber in
// depth-first pre-order, or noFiber when the tree is done.
func (s *Scheduler) performUnitOfWork(id fiberID) (fiberID, error) {
	f := s.arena.at(id)
	kind := f.typ.Kind()
	if f.typ.IsComposite() {
		s.updateComposite(id)
	} else if err := s.updateHost(id); err != nil {
		return noFiber, err
	}
	s.units++
	s.recorder.UnitOfWork(kind)

	if child := s.arena.at(id).child; child != noFiber {
		return child, nil
	}
	for n := id; n != noFiber; n = s.arena.at(n).parent {
		if sib := s.arena.at(n).sibling; sib != noFiber {
			return sib, nil
		}
	}
	return noFiber, nil
}

func (s *Scheduler) updateComposite(id fiberID) {
	f := s.arena.at(id)
	comp, props := f.typ.Comp, f.props

	var prev []*hooks.Cell
	if f.alternate != noFiber {
		prev = s.arena.at(f.alternate).hooks
	}

	frame := hooks.NewFrame(prev, s.rerender, s.debug)
	child := comp.Render(frame, props)
	cells := frame.Finish()

	s.arena.at(id).hooks = cells

	var children []*element.Element
	if child != nil {
		children = []*element.Element{child}
	}
	s.reconcileChildren(id, children)
}

func (s *Scheduler) updateHost(id fiberID) error {
	f := s.arena.at(id)
	if f.node == nil {
		node, err := s.createNode(f.typ, f.props)
		if err != nil {
			return err
		}
		f.node = node
	}
	s.reconcileChildren(id, f.props.Children)
	return nil
}

// createNode allocates a detached host node and applies props to it.
func (s *Scheduler) createNode(t element.Type, props element.Props) (host.Node, error) {
	node, err := s.host.CreateNode(t.Tag)
	if err != nil {
		if stderrors.Is(err, host.ErrUnknownType) {
			return nil, errors.FromError(err, errors.CodeUnknownType).WithDetailf("type %s", t)
		}
		return nil, errors.FromError(err, errors.CodeHostMutation).WithDetailf("create %s", t)
	}
	if _, err := s.updateProperties(node, nil, props.Attrs); err != nil {
		return nil, err
	}
	return node, nil
}
