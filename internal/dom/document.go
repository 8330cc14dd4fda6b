// Package dom provides the live document the substitution engine works on:
// an HTML tree whose mutations are reported to observers in batches, with
// element event listeners and a pluggable layout.
//
// A Document is not safe for concurrent use. The service drives it from a
// single event loop goroutine.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/lexicon/internal/apperr"
)

// Document wraps a parsed HTML tree.
type Document struct {
	root *html.Node

	// post schedules a callback after the current loop turn. When nil,
	// records are only delivered by an explicit Flush.
	post      func(func())
	pending   []Record
	scheduled bool
	observers []*Observer

	listeners map[*html.Node]map[EventType][]Listener
}

// Option configures a Document.
type Option func(*Document)

// WithScheduler makes the document deliver queued mutation records through
// post, once per batch.
func WithScheduler(post func(func())) Option {
	return func(d *Document) {
		d.post = post
	}
}

// Parse reads a full HTML document.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return New(root, opts...), nil
}

// ParseString is Parse for in-memory markup.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// New wraps an existing tree.
func New(root *html.Node, opts ...Option) *Document {
	d := &Document{
		root:      root,
		listeners: make(map[*html.Node]map[EventType][]Listener),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the <body> element, or nil.
func (d *Document) Body() *html.Node {
	return findElement(d.root, atom.Body)
}

// Attached reports whether n is still part of the document tree.
func (d *Document) Attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// AppendChild appends children to parent and records one childList change.
// Every child must be detached.
func (d *Document) AppendChild(parent *html.Node, children ...*html.Node) {
	if len(children) == 0 {
		return
	}
	for _, c := range children {
		parent.AppendChild(c)
	}
	d.queue(Record{Type: ChildList, Target: parent, Added: children})
}

// RemoveChild detaches child from parent and records one childList change.
func (d *Document) RemoveChild(parent, child *html.Node) {
	parent.RemoveChild(child)
	d.queue(Record{Type: ChildList, Target: parent, Removed: []*html.Node{child}})
}

// ReplaceChildren detaches removed from parent, appends added, and records
// the swap as a single childList change.
func (d *Document) ReplaceChildren(parent *html.Node, removed []*html.Node, added ...*html.Node) {
	for _, c := range removed {
		parent.RemoveChild(c)
	}
	for _, c := range added {
		parent.AppendChild(c)
	}
	if len(removed) == 0 && len(added) == 0 {
		return
	}
	d.queue(Record{Type: ChildList, Target: parent, Added: added, Removed: removed})
}

// SetText replaces the data of a text node and records a characterData change.
func (d *Document) SetText(n *html.Node, text string) {
	if n.Data == text {
		return
	}
	old := n.Data
	n.Data = text
	d.queue(Record{Type: CharacterData, Target: n, OldValue: old})
}

// SetAttr sets an attribute on an element and records an attributes change.
func (d *Document) SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			if a.Val == val {
				return
			}
			old := a.Val
			n.Attr[i].Val = val
			d.queue(Record{Type: Attributes, Target: n, AttributeName: key, OldValue: old})
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	d.queue(Record{Type: Attributes, Target: n, AttributeName: key})
}

// AppendHTML parses fragment in the context of parent and appends the
// resulting nodes as one childList change.
func (d *Document) AppendHTML(parent *html.Node, fragment string) ([]*html.Node, error) {
	context := parent
	if context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	d.AppendChild(parent, nodes...)
	return nodes, nil
}

// Select returns every element matching a CSS selector, in document order.
func (d *Document) Select(selector string) ([]*html.Node, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: selector %q: %v", apperr.ErrInvalidInput, selector, err)
	}
	return goquery.NewDocumentFromNode(d.root).FindMatcher(m).Nodes, nil
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// HTML renders the document to a string.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func findElement(root *html.Node, a atom.Atom) *html.Node {
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type == html.ElementNode && n.DataAtom == a {
			return n
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return nil
}
