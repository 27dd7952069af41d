// Package demo contains the applications served by the loom CLI and server.
package demo

import (
	"sort"
	"strings"

	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/hooks"
)

// Counter shows a count starting at 1 with increment and decrement buttons.
var Counter = element.Define("Counter", func(h *hooks.Frame, _ element.Props) *element.Element {
	count, setCount := hooks.UseState(h, 1)
	return element.H1(
		"Count: ", count,
		element.Br(),
		element.Button(element.OnClick(func(element.Event) {
			setCount(func(c int) int { return c + 1 })
		}), "+"),
		element.Button(element.OnClick(func(element.Event) {
			setCount(func(c int) int { return c - 1 })
		}), "-"),
	)
})

type todoAction struct {
	add    string
	remove int
}

func reduceTodos(items []string, a todoAction) []string {
	if a.add != "" {
		return append(append([]string(nil), items...), a.add)
	}
	if a.remove < 0 || a.remove >= len(items) {
		return items
	}
	next := make([]string, 0, len(items)-1)
	next = append(next, items[:a.remove]...)
	return append(next, items[a.remove+1:]...)
}

// TodoList keeps a draft input and a list of items that can be removed.
var TodoList = element.Define("TodoList", func(h *hooks.Frame, p element.Props) *element.Element {
	draft, setDraft := hooks.UseState(h, "")
	items, send := hooks.UseReducer(h, reduceTodos, []string(nil))

	list := make([]*element.Element, 0, len(items))
	for i, item := range items {
		i := i
		list = append(list, element.Li(
			element.Span(item),
			element.Button(element.OnClick(func(element.Event) {
				send(todoAction{remove: i})
			}), "x"),
		))
	}

	return element.Section(
		element.H2(p.String("title")),
		element.Input(
			element.Value(draft),
			element.Placeholder("What needs doing?"),
			element.OnInput(func(e element.Event) {
				setDraft(func(string) string { return e.Value })
			}),
		),
		element.Button(element.OnClick(func(element.Event) {
			if text := strings.TrimSpace(draft); text != "" {
				send(todoAction{add: text})
				setDraft(func(string) string { return "" })
			}
		}), "Add"),
		element.Ul(list),
		element.P(len(items), " left"),
	)
})

var apps = map[string]func() *element.Element{
	"counter": func() *element.Element { return Counter.New(nil) },
	"todo": func() *element.Element {
		return TodoList.New(element.Attrs{"title": "Todo"})
	},
}

// Lookup returns a fresh root element for the named application.
func Lookup(name string) (*element.Element, bool) {
	fn, ok := apps[name]
	if !ok {
		return nil, false
	}
	return fn(), true
}

// Names returns the available application names, sorted.
func Names() []string {
	names := make([]string, 0, len(apps))
	for name := range apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
