// Package dom is a small mutable element tree over golang.org/x/net/html.
// It gives the page synchronizer and the signup page adapter the handful
// of queries and mutations they need: lookup by id, class and attribute,
// class and inline style toggling, text and attribute updates, rendering.
package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML page
type Document struct {
	root *html.Node
}

// Parse reads a full HTML document
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// ParseString parses markup held in memory
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// Body returns the body element. html.Parse always synthesizes one.
func (d *Document) Body() *Element {
	var body *Element
	d.walk(func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = &Element{node: n}
			return false
		}
		return true
	})
	return body
}

// ByID returns the first element with the given id, or nil
func (d *Document) ByID(id string) *Element {
	var found *Element
	d.walk(func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = &Element{node: n}
			return false
		}
		return true
	})
	return found
}

// ByClass returns every element carrying class, in document order
func (d *Document) ByClass(class string) []*Element {
	return d.Query(func(e *Element) bool { return e.HasClass(class) })
}

// ByAttr returns every element that has the attribute, in document order
func (d *Document) ByAttr(name string) []*Element {
	return d.Query(func(e *Element) bool {
		_, ok := e.Attr(name)
		return ok
	})
}

// ByTag returns every element with the given tag name
func (d *Document) ByTag(tag string) []*Element {
	tag = strings.ToLower(tag)
	return d.Query(func(e *Element) bool { return e.node.Data == tag })
}

// Query returns every element accepted by match
func (d *Document) Query(match func(*Element) bool) []*Element {
	var out []*Element
	d.walk(func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if e := (&Element{node: n}); match(e) {
				out = append(out, e)
			}
		}
		return true
	})
	return out
}

// Render writes the document as HTML
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// walk visits nodes depth first until visit returns false
func (d *Document) walk(visit func(*html.Node) bool) {
	var rec func(*html.Node) bool
	rec = func(n *html.Node) bool {
		if !visit(n) {
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !rec(c) {
				return false
			}
		}
		return true
	}
	rec(d.root)
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val
		}
	}
	return ""
}
