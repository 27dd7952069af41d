package reconciler

import "github.com/vango-dev/loom/pkg/element"

// reconcileChildren builds id's child chain from elements, matching each
// position against the alternate's child at the same position. Matching is
// positional: a reordered list replaces every shifted sibling.
func (s *Scheduler) reconcileChildren(id fiberID, elements []*element.Element) {
	old := noFiber
	if alt := s.arena.at(id).alternate; alt != noFiber {
		old = s.arena.at(alt).child
	}

	prev := noFiber
	for i := 0; i < len(elements) || old != noFiber; i++ {
		var el *element.Element
		if i < len(elements) {
			el = elements[i]
		}

		same := el != nil && old != noFiber && s.arena.at(old).typ == el.Type

		next := noFiber
		switch {
		case same:
			o := s.arena.at(old)
			f := newFiber()
			f.typ = o.typ
			f.props = el.Props
			f.node = o.node
			f.parent = id
			f.alternate = old
			f.effect = EffectUpdate
			next = s.arena.alloc(f)
		case el != nil:
			f := newFiber()
			f.typ = el.Type
			f.props = el.Props
			f.parent = id
			f.effect = EffectPlacement
			next = s.arena.alloc(f)
		}

		if old != noFiber && !same {
			s.arena.at(old).effect = EffectDeletion
			s.deletions = append(s.deletions, old)
		}
		if old != noFiber {
			old = s.arena.at(old).sibling
		}

		if next == noFiber {
			continue
		}
		if prev == noFiber {
			s.arena.at(id).child = next
		} else {
			s.arena.at(prev).sibling = next
		}
		prev = next
	}
}
