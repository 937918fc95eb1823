package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Element wraps one element node. Mutations apply to the owning document.
type Element struct {
	node *html.Node
}

// Tag returns the lower case tag name
func (e *Element) Tag() string {
	return e.node.Data
}

// Attr returns an attribute value and whether it is present
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr adds or replaces an attribute
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr drops an attribute if present
func (e *Element) RemoveAttr(name string) {
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		attrs = append(attrs, a)
	}
	e.node.Attr = attrs
}

// SetFlag sets or removes a boolean attribute such as disabled or readonly
func (e *Element) SetFlag(name string, on bool) {
	if on {
		e.SetAttr(name, "")
		return
	}
	e.RemoveAttr(name)
}

// HasFlag reports whether a boolean attribute is present
func (e *Element) HasFlag(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// Classes returns the class list
func (e *Element) Classes() []string {
	v, _ := e.Attr("class")
	return strings.Fields(v)
}

func (e *Element) HasClass(class string) bool {
	for _, c := range e.Classes() {
		if c == class {
			return true
		}
	}
	return false
}

func (e *Element) AddClass(class string) {
	if e.HasClass(class) {
		return
	}
	e.SetAttr("class", strings.TrimSpace(strings.Join(append(e.Classes(), class), " ")))
}

func (e *Element) RemoveClass(class string) {
	if !e.HasClass(class) {
		return
	}
	kept := make([]string, 0, len(e.Classes()))
	for _, c := range e.Classes() {
		if c != class {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		e.RemoveAttr("class")
		return
	}
	e.SetAttr("class", strings.Join(kept, " "))
}

// ToggleClass adds class when on is true and removes it otherwise
func (e *Element) ToggleClass(class string, on bool) {
	if on {
		e.AddClass(class)
	} else {
		e.RemoveClass(class)
	}
}

// Style returns one inline style property
func (e *Element) Style(prop string) string {
	for _, d := range e.styles() {
		if d[0] == prop {
			return d[1]
		}
	}
	return ""
}

// SetStyle sets an inline style property, an empty value removes it
func (e *Element) SetStyle(prop, value string) {
	decls := e.styles()
	out := decls[:0]
	replaced := false
	for _, d := range decls {
		if d[0] == prop {
			if value != "" && !replaced {
				out = append(out, [2]string{prop, value})
				replaced = true
			}
			continue
		}
		out = append(out, d)
	}
	if value != "" && !replaced {
		out = append(out, [2]string{prop, value})
	}

	if len(out) == 0 {
		e.RemoveAttr("style")
		return
	}
	parts := make([]string, len(out))
	for i, d := range out {
		parts[i] = d[0] + ": " + d[1]
	}
	e.SetAttr("style", strings.Join(parts, "; ")+";")
}

func (e *Element) styles() [][2]string {
	raw, _ := e.Attr("style")
	var out [][2]string
	for _, decl := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" {
			continue
		}
		out = append(out, [2]string{k, v})
	}
	return out
}

// Text returns the concatenated text content
func (e *Element) Text() string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(e.node)
	return b.String()
}

// SetText replaces all children with one text node
func (e *Element) SetText(text string) {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Value returns the value attribute of a form control
func (e *Element) Value() string {
	v, _ := e.Attr("value")
	return v
}

// SetValue sets the value attribute of a form control
func (e *Element) SetValue(v string) {
	e.SetAttr("value", v)
}

// Hidden reports whether the element is hidden by class or inline style
func (e *Element) Hidden() bool {
	return e.HasClass("hidden") || e.Style("display") == "none"
}
