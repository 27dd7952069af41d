package reconciler

import (
	"reflect"
	"sort"

	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/host"
)

// childrenKey is never forwarded to the host even if set as an attribute.
const childrenKey = "children"

// updateProperties moves node from prev to next attributes and returns the
// number of host operations issued. The four key sets are applied in order:
// listeners removed or changed, attributes removed, attributes added or
// changed, listeners added or changed. A changed listener is unbound before
// its replacement is bound.
func (s *Scheduler) updateProperties(node host.Node, prev, next element.Attrs) (int, error) {
	prevKeys := sortedKeys(prev)
	nextKeys := sortedKeys(next)
	ops := 0

	for _, k := range prevKeys {
		if !element.IsEventKey(k) {
			continue
		}
		if nv, ok := next[k]; ok && valuesEqual(prev[k], nv) {
			continue
		}
		if err := s.host.RemoveListener(node, element.EventName(k), prev[k]); err != nil {
			return ops, propErr(err, "remove listener", k)
		}
		ops++
	}

	for _, k := range prevKeys {
		if element.IsEventKey(k) {
			continue
		}
		if _, ok := next[k]; ok {
			continue
		}
		if err := s.host.RemoveProperty(node, k); err != nil {
			return ops, propErr(err, "remove property", k)
		}
		ops++
	}

	for _, k := range nextKeys {
		if element.IsEventKey(k) {
			continue
		}
		if pv, ok := prev[k]; ok && valuesEqual(pv, next[k]) {
			continue
		}
		if err := s.host.SetProperty(node, k, next[k]); err != nil {
			return ops, propErr(err, "set property", k)
		}
		ops++
	}

	for _, k := range nextKeys {
		if !element.IsEventKey(k) {
			continue
		}
		if pv, ok := prev[k]; ok && valuesEqual(pv, next[k]) {
			continue
		}
		if err := s.host.AddListener(node, element.EventName(k), next[k]); err != nil {
			return ops, propErr(err, "add listener", k)
		}
		ops++
	}

	return ops, nil
}

func propErr(err error, op, key string) error {
	return errors.FromError(err, errors.CodeHostMutation).WithDetailf("%s %q", op, key)
}

func sortedKeys(attrs element.Attrs) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if k == childrenKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// valuesEqual compares attribute values. Func values never compare equal, so
// a listener given as a bare func is rebound on every render.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Kind() == reflect.Func {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
