package document

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is an element or text node. Element nodes implement ports.Element.
type Node struct {
	Type NodeType
	Tag  string
	Data string

	attrs     []html.Attribute
	parent    *Node
	children  []*Node
	doc       *Document
	listeners map[string][]Listener

	value     string
	scrollTop int
}

func (n *Node) TagName() string { return n.Tag }

func (n *Node) Attribute(name string) string {
	for _, attr := range n.attrs {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

func (n *Node) hasAttribute(name string) bool {
	for _, attr := range n.attrs {
		if attr.Key == name {
			return true
		}
	}
	return false
}

// SetAttribute sets or replaces an attribute.
func (n *Node) SetAttribute(name, value string) {
	name = strings.ToLower(name)
	for i := range n.attrs {
		if n.attrs[i].Key == name {
			n.attrs[i].Val = value
			return
		}
	}
	n.attrs = append(n.attrs, html.Attribute{Key: name, Val: value})
}

// InputType is the lower-cased type of an input element; a missing or
// empty type attribute means "text".
func (n *Node) InputType() string {
	if n.Tag != "input" {
		return ""
	}
	t := strings.ToLower(strings.TrimSpace(n.Attribute("type")))
	if t == "" {
		return "text"
	}
	return t
}

// IsContentEditable resolves the contenteditable attribute, inheriting from
// ancestors until an explicit value is found.
func (n *Node) IsContentEditable() bool {
	for cur := n; cur != nil && cur.Type == ElementNode; cur = cur.parent {
		if !cur.hasAttribute("contenteditable") {
			continue
		}
		switch strings.ToLower(cur.Attribute("contenteditable")) {
		case "", "true", "plaintext-only":
			return true
		case "false":
			return false
		}
	}
	return false
}

// IsConnected reports whether the node is still attached to its document.
func (n *Node) IsConnected() bool {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur.doc != nil && cur == cur.doc.root
}

func (n *Node) Children() []*Node { return append([]*Node(nil), n.children...) }

// TextContent concatenates descendant text.
func (n *Node) TextContent() string {
	if n.Type == TextNode {
		return n.Data
	}
	var b strings.Builder
	for _, c := range n.children {
		b.WriteString(c.TextContent())
	}
	return b.String()
}

// Value is the current value of a form control.
func (n *Node) Value() string { return n.value }

func (n *Node) SetValue(value string) { n.value = value }

// ClearChildren detaches all children.
func (n *Node) ClearChildren() {
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
}

// AppendText appends a new text node.
func (n *Node) AppendText(text string) {
	n.appendChild(&Node{Type: TextNode, Data: text, doc: n.doc})
}

// AppendChild attaches child as the last child, detaching it first.
func (n *Node) AppendChild(child *Node) {
	child.Remove()
	n.appendChild(child)
}

func (n *Node) appendChild(child *Node) {
	child.parent = n
	n.children = append(n.children, child)
}

// Remove detaches the node from its parent.
func (n *Node) Remove() {
	if n.parent == nil {
		return
	}
	siblings := n.parent.children
	for i, c := range siblings {
		if c == n {
			n.parent.children = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// AddEventListener registers a listener on this node.
func (n *Node) AddEventListener(eventType string, listener Listener) {
	if n.listeners == nil {
		n.listeners = make(map[string][]Listener)
	}
	n.listeners[eventType] = append(n.listeners[eventType], listener)
}

// DispatchInput fires a bubbling input event.
func (n *Node) DispatchInput() {
	n.dispatch(Event{Type: "input", Target: n, Bubbles: true})
}

func (n *Node) dispatch(ev Event) {
	for cur := n; cur != nil; cur = cur.parent {
		for _, l := range cur.listeners[ev.Type] {
			l(ev)
		}
		if !ev.Bubbles {
			return
		}
	}
	if n.doc != nil && n.IsConnected() {
		for _, l := range n.doc.listeners[ev.Type] {
			l(ev)
		}
	}
}

// ScrollHeight is the content height in lines.
func (n *Node) ScrollHeight() int {
	text := n.value
	if n.Tag != "input" && n.Tag != "textarea" {
		text = n.TextContent()
	}
	return strings.Count(text, "\n") + 1
}

func (n *Node) ScrollTop() int { return n.scrollTop }

// ScrollToEnd scrolls the viewport to the bottom of the content.
func (n *Node) ScrollToEnd() { n.scrollTop = n.ScrollHeight() }

// Focus focuses the node in its document.
func (n *Node) Focus() {
	if n.doc != nil {
		n.doc.Focus(n)
	}
}

// CollapseSelectionToEnd places a collapsed caret after the node's last
// child.
func (n *Node) CollapseSelectionToEnd() {
	if n.doc != nil {
		n.doc.selection = Selection{Node: n, Offset: len(n.children)}
	}
}

func (n *Node) toHTML() *html.Node {
	if n.Type == TextNode {
		return &html.Node{Type: html.TextNode, Data: n.Data}
	}

	out := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
		Attr:     append([]html.Attribute(nil), n.attrs...),
	}
	switch n.Tag {
	case "input":
		out.Attr = setAttr(out.Attr, "value", n.value)
		return out
	case "textarea":
		out.AppendChild(&html.Node{Type: html.TextNode, Data: n.value})
		return out
	}
	for _, c := range n.children {
		out.AppendChild(c.toHTML())
	}
	return out
}

func setAttr(attrs []html.Attribute, key, val string) []html.Attribute {
	for i := range attrs {
		if attrs[i].Key == key {
			attrs[i].Val = val
			return attrs
		}
	}
	return append(attrs, html.Attribute{Key: key, Val: val})
}
