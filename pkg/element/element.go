package element

import (
	"fmt"

	"github.com/vango-dev/loom/pkg/hooks"
)

// TextTag is the reserved host tag of text elements.
const TextTag = "TEXT_ELEMENT"

// NodeValue is the attribute that carries a text element's content.
const NodeValue = "nodeValue"

// Kind is the Type variant discriminator.
type Kind uint8

const (
	KindHost      Kind = iota // host tag, including TextTag
	KindComposite             // computed by a RenderFunc
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindHost:
		return "Host"
	case KindComposite:
		return "Composite"
	default:
		return "Unknown"
	}
}

// Type identifies what an element is. Two Types are the same type exactly
// when they compare equal with ==: host types by tag, composites by handle.
type Type struct {
	Tag  string
	Comp *Composite
}

// TextType is the type of text elements.
var TextType = Type{Tag: TextTag}

// Host returns the host type for tag.
func Host(tag string) Type {
	return Type{Tag: tag}
}

// Kind returns the variant of t.
func (t Type) Kind() Kind {
	if t.Comp != nil {
		return KindComposite
	}
	return KindHost
}

// IsComposite reports whether t is a composite type.
func (t Type) IsComposite() bool {
	return t.Comp != nil
}

// IsText reports whether t is the text type.
func (t Type) IsText() bool {
	return t.Comp == nil && t.Tag == TextTag
}

// String returns the tag, or the composite name in angle brackets.
func (t Type) String() string {
	if t.Comp != nil {
		return "<" + t.Comp.Name + ">"
	}
	return t.Tag
}

// Attrs holds plain attributes and listeners keyed by name.
type Attrs map[string]any

// Props is an element's attribute and children payload.
type Props struct {
	Attrs    Attrs
	Children []*Element
}

// Get returns the attribute value for key, or nil.
func (p Props) Get(key string) any {
	return p.Attrs[key]
}

// String returns the attribute value for key formatted as a string, or "".
func (p Props) String(key string) string {
	v, ok := p.Attrs[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Element is an immutable description of desired tree content.
type Element struct {
	Type  Type
	Props Props
}

// RenderFunc computes a composite's single child element.
type RenderFunc func(h *hooks.Frame, p Props) *Element

// Composite is the handle of a computed element type.
type Composite struct {
	Name   string
	Render RenderFunc
}

// Define creates a composite handle. The returned pointer is the composite's
// type identity across renders.
func Define(name string, render RenderFunc) *Composite {
	return &Composite{Name: name, Render: render}
}

// Type returns the element type for c.
func (c *Composite) Type() Type {
	return Type{Comp: c}
}

// New creates an element of composite c.
func (c *Composite) New(attrs Attrs, children ...any) *Element {
	return CreateElement(c.Type(), attrs, children...)
}

// CreateElement builds an element. Children may be *Element, []*Element or
// scalars; scalars are wrapped into text elements and nil children are
// dropped. No validation of t or attrs is performed.
func CreateElement(t Type, attrs Attrs, children ...any) *Element {
	el := &Element{
		Type: t,
		Props: Props{
			Attrs:    make(Attrs, len(attrs)),
			Children: make([]*Element, 0, len(children)),
		},
	}
	for k, v := range attrs {
		el.Props.Attrs[k] = v
	}
	for _, child := range children {
		el.Props.Children = appendChild(el.Props.Children, child)
	}
	return el
}

// Text creates a text element holding v.
func Text(v any) *Element {
	return &Element{
		Type: TextType,
		Props: Props{
			Attrs:    Attrs{NodeValue: v},
			Children: []*Element{},
		},
	}
}

func appendChild(children []*Element, child any) []*Element {
	switch v := child.(type) {
	case nil:
		return children
	case *Element:
		if v == nil {
			return children
		}
		return append(children, v)
	case []*Element:
		for _, c := range v {
			if c != nil {
				children = append(children, c)
			}
		}
		return children
	default:
		return append(children, Text(v))
	}
}
