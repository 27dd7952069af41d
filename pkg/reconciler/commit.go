package reconciler

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/host"
)

// commitRoot applies the finished work-in-progress tree to the host in one
// pass and makes it current. Observers run only after the swap.
func (s *Scheduler) commitRoot() error {
	start := time.Now()
	_, span := s.tracer.Start(context.Background(), "loom.commit",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int64("loom.cycle", int64(s.cycle+1))),
	)
	defer span.End()

	info := CommitInfo{Cycle: s.cycle + 1, Units: s.units}

	batcher, batched := s.host.(host.Batcher)
	if batched {
		batcher.BeginCommit()
	}
	err := s.commitEffects(&info)
	if batched {
		if endErr := batcher.EndCommit(); err == nil && endErr != nil {
			err = errors.FromError(endErr, errors.CodeHostMutation).WithDetail("end commit")
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.abandon(err)
		return err
	}

	s.currentRoot = s.wipRoot
	s.wipRoot = noFiber
	s.deletions = nil
	s.cycle++
	s.units = 0

	info.Freed = s.arena.sweep(s.currentRoot)
	info.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("loom.placements", info.Placements),
		attribute.Int("loom.updates", info.Updates),
		attribute.Int("loom.deletions", info.Deletions),
		attribute.Int("loom.mutations", info.Mutations),
	)
	span.SetStatus(codes.Ok, "")

	s.recorder.Commit(info)
	s.recorder.LiveFibers(s.arena.live())
	s.logger.Debug("commit",
		"cycle", info.Cycle,
		"units", info.Units,
		"placements", info.Placements,
		"updates", info.Updates,
		"deletions", info.Deletions,
		"mutations", info.Mutations,
		"freed", info.Freed,
		"duration", info.Duration,
	)

	for _, fn := range s.observers {
		fn(info)
	}
	return nil
}

func (s *Scheduler) commitEffects(info *CommitInfo) error {
	for _, id := range s.deletions {
		parent := s.hostParent(id)
		n, err := s.commitDeletion(id, parent)
		info.Mutations += n
		if n > 0 {
			s.recorder.HostMutations(EffectDeletion, n)
		}
		if err != nil {
			return err
		}
		info.Deletions++
	}

	root := s.wipRoot
	for id := s.arena.at(root).child; id != noFiber; {
		if err := s.commitWork(id, info); err != nil {
			return err
		}
		id = s.nextInTree(id, root)
	}
	return nil
}

// nextInTree returns the fiber after id in pre-order, staying under root.
func (s *Scheduler) nextInTree(id, root fiberID) fiberID {
	if child := s.arena.at(id).child; child != noFiber {
		return child
	}
	for n := id; n != root && n != noFiber; n = s.arena.at(n).parent {
		if sib := s.arena.at(n).sibling; sib != noFiber {
			return sib
		}
	}
	return noFiber
}

func (s *Scheduler) commitWork(id fiberID, info *CommitInfo) error {
	f := s.arena.at(id)
	switch f.effect {
	case EffectPlacement:
		info.Placements++
		if f.node == nil {
			return nil
		}
		if err := s.host.AppendChild(s.hostParent(id), f.node); err != nil {
			return errors.FromError(err, errors.CodeHostMutation).WithDetailf("append %s", f.typ)
		}
		info.Mutations++
		s.recorder.HostMutations(EffectPlacement, 1)
	case EffectUpdate:
		info.Updates++
		if f.node == nil {
			return nil
		}
		n, err := s.updateProperties(f.node, s.arena.at(f.alternate).props.Attrs, f.props.Attrs)
		info.Mutations += n
		if n > 0 {
			s.recorder.HostMutations(EffectUpdate, n)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// commitDeletion detaches the host nodes owned by id, descending through
// composites that own none.
func (s *Scheduler) commitDeletion(id fiberID, parent host.Node) (int, error) {
	f := s.arena.at(id)
	if f.node != nil {
		if err := s.host.RemoveChild(parent, f.node); err != nil {
			return 0, errors.FromError(err, errors.CodeHostMutation).WithDetailf("remove %s", f.typ)
		}
		return 1, nil
	}
	total := 0
	for c := f.child; c != noFiber; c = s.arena.at(c).sibling {
		n, err := s.commitDeletion(c, parent)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// hostParent returns the node of the nearest ancestor that owns one.
func (s *Scheduler) hostParent(id fiberID) host.Node {
	for p := s.arena.at(id).parent; p != noFiber; p = s.arena.at(p).parent {
		if node := s.arena.at(p).node; node != nil {
			return node
		}
	}
	return nil
}
