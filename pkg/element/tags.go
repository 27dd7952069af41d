package element

// knownTags are the host tags the reference hosts accept.
var knownTags = map[string]bool{
	"a": true, "article": true, "aside": true, "b": true, "body": true,
	"br": true, "button": true, "code": true, "div": true, "em": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"header": true, "hr": true, "i": true, "img": true, "input": true,
	"label": true, "li": true, "main": true, "nav": true, "ol": true,
	"option": true, "p": true, "pre": true, "section": true, "select": true,
	"small": true, "span": true, "strong": true, "table": true, "tbody": true,
	"td": true, "textarea": true, "th": true, "thead": true, "tr": true,
	"ul": true,
}

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"br":    true,
	"hr":    true,
	"img":   true,
	"input": true,
}

// IsKnownTag reports whether tag is a recognized host tag (TextTag included).
func IsKnownTag(tag string) bool {
	return tag == TextTag || knownTags[tag]
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// H creates a host element. Arguments can be: nil, Attr, []Attr, Attrs, *Element,
// []*Element, or a scalar, which becomes a text child.
func H(tag string, args ...any) *Element {
	el := &Element{
		Type: Host(tag),
		Props: Props{
			Attrs:    make(Attrs),
			Children: make([]*Element, 0),
		},
	}
	for _, arg := range args {
		switch v := arg.(type) {
		case Attr:
			if v.Key != "" {
				el.Props.Attrs[v.Key] = v.Value
			}
		case []Attr:
			for _, a := range v {
				if a.Key != "" {
					el.Props.Attrs[a.Key] = a.Value
				}
			}
		case Attrs:
			for k, val := range v {
				el.Props.Attrs[k] = val
			}
		default:
			el.Props.Children = appendChild(el.Props.Children, v)
		}
	}
	return el
}

func Div(args ...any) *Element     { return H("div", args...) }
func Span(args ...any) *Element    { return H("span", args...) }
func P(args ...any) *Element       { return H("p", args...) }
func H1(args ...any) *Element      { return H("h1", args...) }
func H2(args ...any) *Element      { return H("h2", args...) }
func A(args ...any) *Element       { return H("a", args...) }
func B(args ...any) *Element       { return H("b", args...) }
func Br(args ...any) *Element      { return H("br", args...) }
func Button(args ...any) *Element  { return H("button", args...) }
func Input(args ...any) *Element   { return H("input", args...) }
func Form(args ...any) *Element    { return H("form", args...) }
func Label(args ...any) *Element   { return H("label", args...) }
func Ul(args ...any) *Element      { return H("ul", args...) }
func Li(args ...any) *Element      { return H("li", args...) }
func Section(args ...any) *Element { return H("section", args...) }
