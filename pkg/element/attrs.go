package element

import "strings"

// Attr is a single attribute or listener passed to the tag helpers.
type Attr struct {
	Key   string
	Value any
}

// Event is delivered to listeners by the host.
type Event struct {
	Type  string // derived event name, e.g. "click"
	Value string // host-supplied payload (input value, key, ...)
}

// Listener wraps an event handler. Listeners compare by pointer, which is what
// lets an unchanged tree diff to zero listener operations.
type Listener struct {
	Handle func(Event)
}

// On wraps fn in a Listener.
func On(fn func(Event)) *Listener {
	return &Listener{Handle: fn}
}

// IsEventKey reports whether key names a listener (lower-case "on" prefix).
func IsEventKey(key string) bool {
	return len(key) > 2 && strings.HasPrefix(key, "on")
}

// EventName derives the host event name from a listener key by stripping the
// two-character prefix and lower-casing the remainder.
func EventName(key string) string {
	if len(key) <= 2 {
		return ""
	}
	return strings.ToLower(key[2:])
}

func attr(key string, value any) Attr { return Attr{Key: key, Value: value} }

// ID sets the id attribute.
func ID(id string) Attr { return attr("id", id) }

// Class sets the class attribute, joining multiple classes with spaces.
func Class(classes ...string) Attr { return attr("class", strings.Join(classes, " ")) }

// StyleAttr sets the style attribute.
func StyleAttr(style string) Attr { return attr("style", style) }

// Data creates a data-* attribute.
func Data(key, value string) Attr { return attr("data-"+key, value) }

// Href sets the href attribute.
func Href(url string) Attr { return attr("href", url) }

// Value sets the value attribute.
func Value(value string) Attr { return attr("value", value) }

// InputType sets the type attribute.
func InputType(t string) Attr { return attr("type", t) }

// Placeholder sets the placeholder attribute.
func Placeholder(text string) Attr { return attr("placeholder", text) }

// Disabled sets the disabled attribute.
func Disabled() Attr { return attr("disabled", true) }

// Checked sets the checked attribute.
func Checked(on bool) Attr { return attr("checked", on) }

// Prop sets an arbitrary attribute.
func Prop(key string, value any) Attr { return attr(key, value) }

func event(name string, fn func(Event)) Attr {
	return attr("on"+name, On(fn))
}

// OnClick handles click events.
func OnClick(fn func(Event)) Attr { return event("click", fn) }

// OnInput handles input events.
func OnInput(fn func(Event)) Attr { return event("input", fn) }

// OnChange handles change events.
func OnChange(fn func(Event)) Attr { return event("change", fn) }

// OnSubmit handles submit events.
func OnSubmit(fn func(Event)) Attr { return event("submit", fn) }

// OnKeyDown handles keydown events.
func OnKeyDown(fn func(Event)) Attr { return event("keydown", fn) }

// OnListener binds an existing listener, keeping its identity.
func OnListener(name string, l *Listener) Attr { return attr("on"+name, l) }
