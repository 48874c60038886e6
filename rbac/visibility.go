package rbac

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// PermissionAttr is the attribute naming the permission an element requires.
const PermissionAttr = "data-permission"

// ApplyVisibility hides every element under root whose required permission
// the access lacks and returns how many were hidden. With no resolved role
// every permission-carrying element is hidden.
func ApplyVisibility(root *html.Node, access Access) int {
	hidden := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if perm, ok := attr(n, PermissionAttr); ok && !visible(access, Permission(strings.TrimSpace(perm))) {
				hide(n)
				hidden++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return hidden
}

func visible(access Access, perm Permission) bool {
	if !access.Resolved() {
		return false
	}
	return access.Has(perm)
}

// RenderVisible parses an HTML document from r, applies the visibility pass
// and writes the result to w.
func RenderVisible(r io.Reader, w io.Writer, access Access) error {
	doc, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}
	ApplyVisibility(doc, access)
	return html.Render(w, doc)
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hide(n *html.Node) {
	style := "display:none"
	hasHidden := false
	attrs := make([]html.Attribute, 0, len(n.Attr)+2)
	for _, a := range n.Attr {
		switch a.Key {
		case "style":
			if existing := strings.TrimRight(strings.TrimSpace(a.Val), ";"); existing != "" {
				style = existing + ";display:none"
			}
			continue
		case "hidden":
			hasHidden = true
		}
		attrs = append(attrs, a)
	}
	attrs = append(attrs, html.Attribute{Key: "style", Val: style})
	if !hasHidden {
		attrs = append(attrs, html.Attribute{Key: "hidden"})
	}
	n.Attr = attrs
}
