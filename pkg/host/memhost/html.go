package memhost

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/vango-dev/loom/pkg/element"
)

// RenderConfig configures HTML serialization.
type RenderConfig struct {
	// IDs adds a data-loom-id attribute carrying each element's node ID and
	// a <!--ID--> comment before each text node, so a remote client can
	// address nodes created before it connected.
	IDs bool
}

// HTML serializes n's children (n itself is treated as the container).
func HTML(n *Node) string {
	var buf bytes.Buffer
	_ = RenderChildren(&buf, n, RenderConfig{})
	return buf.String()
}

// RenderChildren writes the HTML of n's children to w.
func RenderChildren(w io.Writer, n *Node, cfg RenderConfig) error {
	for _, c := range n.Children {
		if err := Render(w, c, cfg); err != nil {
			return err
		}
	}
	return nil
}

// Render writes the HTML of n's subtree to w.
func Render(w io.Writer, n *Node, cfg RenderConfig) error {
	if n.IsText() {
		if cfg.IDs {
			if _, err := fmt.Fprintf(w, "<!--%d-->", n.ID); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, escapeHTML(FormatValue(n.Props[element.NodeValue])))
		return err
	}

	if _, err := fmt.Fprintf(w, "<%s", n.Tag); err != nil {
		return err
	}
	if cfg.IDs {
		if _, err := fmt.Fprintf(w, ` data-loom-id="%d"`, n.ID); err != nil {
			return err
		}
	}
	if err := renderAttributes(w, n); err != nil {
		return err
	}
	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}
	if element.IsVoidElement(n.Tag) {
		return nil
	}
	for _, c := range n.Children {
		if err := Render(w, c, cfg); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "</%s>", n.Tag)
	return err
}

// renderAttributes writes attributes in sorted order for stable output.
// Boolean true renders as a bare attribute; false and nil are omitted.
func renderAttributes(w io.Writer, n *Node) error {
	keys := make([]string, 0, len(n.Props))
	for k := range n.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := n.Props[k]
		switch val := v.(type) {
		case nil:
			continue
		case bool:
			if !val {
				continue
			}
			if _, err := fmt.Fprintf(w, " %s", k); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, ` %s="%s"`, k, escapeAttr(FormatValue(v))); err != nil {
			return err
		}
	}
	return nil
}

// FormatValue converts a property value to its text form.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

var (
	htmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
		"\n", "&#10;",
		"\r", "&#13;",
		"\t", "&#9;",
	)
)

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }
