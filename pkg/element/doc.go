// Package element provides the immutable element model that describes a
// desired host tree.
//
// An Element is a Type plus Props. A Type is a closed variant: either a host
// tag ("div", "span", the reserved text type) or a composite handle created by
// Define. Props carries the attribute map and the ordered child elements.
//
// # Element API
//
// Elements are created with CreateElement, or with the variadic tag helpers:
//
//	Div(ID("main"), Class("card"),
//	    H1("Title"),
//	    Button(OnClick(handler), "+"),
//	)
//
// Scalar children (strings, numbers, booleans) are wrapped into text elements
// of type TextType whose "nodeValue" attribute carries the value.
//
// # Composites
//
// A composite renders itself into a single child element and may hold hook
// state through the hooks.Frame it is given:
//
//	var Counter = element.Define("Counter", func(h *hooks.Frame, p element.Props) *element.Element {
//	    count, setCount := hooks.UseState(h, 1)
//	    ...
//	})
//
// Composite identity is the *Composite pointer, so Define must be called once
// per component (typically as a package-level variable), not during render.
package element
