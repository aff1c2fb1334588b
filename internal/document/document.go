// Package document models a host document tree: elements, text nodes,
// focus, DOM-style events and a collapsed selection caret. Documents are
// parsed from HTML and are not safe for concurrent use; callers serialize
// access.
package document

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// NodeType distinguishes element and text nodes.
type NodeType int

const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
)

// Event is a DOM-style event dispatched on a node.
type Event struct {
	Type    string
	Target  *Node
	Bubbles bool
}

// Listener handles an event.
type Listener func(Event)

// Selection is a collapsed caret: a container node and a child offset.
type Selection struct {
	Node   *Node
	Offset int
}

// Document owns a node tree plus focus and selection state.
type Document struct {
	root      *Node
	active    *Node
	selection Selection
	listeners map[string][]Listener
}

// Parse builds a document from HTML. Comments and doctypes are dropped.
func Parse(r io.Reader) (*Document, error) {
	parsed, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	doc := &Document{listeners: make(map[string][]Listener)}
	doc.root = &Node{Type: DocumentNode, doc: doc}
	for c := parsed.FirstChild; c != nil; c = c.NextSibling {
		if child := doc.convert(c); child != nil {
			doc.root.appendChild(child)
		}
	}
	return doc, nil
}

// ParseString is Parse for an in-memory fragment.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

func (d *Document) convert(src *html.Node) *Node {
	var n *Node
	switch src.Type {
	case html.ElementNode:
		n = &Node{Type: ElementNode, Tag: strings.ToLower(src.Data), doc: d}
		for _, attr := range src.Attr {
			n.attrs = append(n.attrs, html.Attribute{Key: strings.ToLower(attr.Key), Val: attr.Val})
		}
	case html.TextNode:
		return &Node{Type: TextNode, Data: src.Data, doc: d}
	default:
		return nil
	}

	for c := src.FirstChild; c != nil; c = c.NextSibling {
		if child := d.convert(c); child != nil {
			n.appendChild(child)
		}
	}

	switch n.Tag {
	case "input":
		n.value = n.Attribute("value")
	case "textarea":
		n.value = n.TextContent()
	}
	return n
}

// Body returns the body element, or nil.
func (d *Document) Body() *Node {
	return d.find(func(n *Node) bool { return n.Tag == "body" })
}

// ElementByID returns the first connected element with the given id.
func (d *Document) ElementByID(id string) *Node {
	return d.find(func(n *Node) bool { return n.Attribute("id") == id })
}

func (d *Document) find(match func(*Node) bool) *Node {
	var walk func(n *Node) *Node
	walk = func(n *Node) *Node {
		if n.Type == ElementNode && match(n) {
			return n
		}
		for _, c := range n.children {
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(d.root)
}

// ActiveElement returns the focused element, or nil.
func (d *Document) ActiveElement() *Node {
	if d.active != nil && !d.active.IsConnected() {
		d.active = nil
	}
	return d.active
}

// Selection returns the current caret.
func (d *Document) Selection() Selection { return d.selection }

// AddEventListener registers a document-level listener. Bubbling events
// reach it after the target's ancestors.
func (d *Document) AddEventListener(eventType string, listener Listener) {
	d.listeners[eventType] = append(d.listeners[eventType], listener)
}

// Focus moves focus to n and dispatches a bubbling focusin event. Focusing
// the already active element does nothing.
func (d *Document) Focus(n *Node) {
	if n == nil || n.doc != d || n.Type != ElementNode || !n.IsConnected() {
		return
	}
	if d.active == n {
		return
	}
	d.active = n
	n.dispatch(Event{Type: "focusin", Target: n, Bubbles: true})
}

// Blur clears focus without dispatching events.
func (d *Document) Blur() { d.active = nil }

// Render writes the document back out as HTML, reflecting current control
// values.
func (d *Document) Render(w io.Writer) error {
	out := &html.Node{Type: html.DocumentNode}
	for _, c := range d.root.children {
		out.AppendChild(c.toHTML())
	}
	return html.Render(w, out)
}
