// Package tooltip attaches hover tooltips showing the original text of a
// rewritten node.
package tooltip

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/lexicon/internal/dom"
	"github.com/starford/lexicon/internal/models"
)

// Class marks tooltip elements. Text under an element with this class is
// never rewritten.
const Class = "tooltip"

const baseStyle = "position:absolute;background-color:black;color:white;padding:5px;" +
	"border-radius:5px;font-size:12px;z-index:1000;"

type tip struct {
	el    *html.Node
	text  *html.Node
	owner *html.Node
	// originals maps each rewritten text child of owner to its text before
	// the rewrite.
	originals map[*html.Node]string
	shown     bool
	left      float64
	top       float64
}

// Attacher owns every tooltip in a document, one per owner element.
type Attacher struct {
	doc    *dom.Document
	layout dom.Layout
	tips   map[*html.Node]*tip
	order  []*html.Node
}

// New creates an Attacher for doc.
func New(doc *dom.Document, layout dom.Layout) *Attacher {
	return &Attacher{
		doc:    doc,
		layout: layout,
		tips:   make(map[*html.Node]*tip),
	}
}

// Attach records original as the text source held before it was rewritten
// and shows it, with the originals of the other rewritten children of the
// same parent, when the pointer enters that parent. One tooltip exists per
// parent element.
func (a *Attacher) Attach(source *html.Node, original string) {
	if source == nil || source.Parent == nil {
		return
	}
	owner := source.Parent
	if t, ok := a.tips[owner]; ok {
		t.originals[source] = original
		a.doc.SetText(t.text, t.content())
		return
	}
	body := a.doc.Body()
	if body == nil {
		return
	}

	t := &tip{owner: owner, originals: map[*html.Node]string{source: original}}
	t.text = dom.NewText(t.content())
	t.el = dom.NewElement("div",
		html.Attribute{Key: "class", Val: Class},
		html.Attribute{Key: "style", Val: style(t)},
	)
	t.el.AppendChild(t.text)
	a.doc.AppendChild(body, t.el)

	a.doc.AddListener(owner, dom.PointerEnter, func(*html.Node) { a.show(t) })
	a.doc.AddListener(owner, dom.PointerLeave, func(*html.Node) { a.hide(t) })

	a.tips[owner] = t
	a.order = append(a.order, owner)
}

// content joins the originals in the owner's child order.
func (t *tip) content() string {
	var b strings.Builder
	for c := t.owner.FirstChild; c != nil; c = c.NextSibling {
		if o, ok := t.originals[c]; ok {
			b.WriteString(o)
		}
	}
	return b.String()
}

func (a *Attacher) show(t *tip) {
	r := a.layout.BoundingRect(t.owner)
	sx, sy := a.layout.ScrollOffset()
	t.left = r.Left + sx
	t.top = r.Top + sy - a.layout.OffsetHeight(t.el)
	t.shown = true
	a.doc.SetAttr(t.el, "style", style(t))
}

func (a *Attacher) hide(t *tip) {
	t.shown = false
	a.doc.SetAttr(t.el, "style", style(t))
}

func style(t *tip) string {
	s := baseStyle
	if t.shown {
		s += "visibility:visible;"
	} else {
		s += "visibility:hidden;"
	}
	if t.left != 0 || t.top != 0 || t.shown {
		s += "left:" + px(t.left) + ";top:" + px(t.top) + ";"
	}
	return s
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// Prune removes tooltips whose owner left the document, with their
// listeners, and forgets originals of text nodes that left their owner. It
// returns the number of tooltips removed.
func (a *Attacher) Prune() int {
	removed := 0
	kept := a.order[:0]
	for _, owner := range a.order {
		t := a.tips[owner]
		if a.doc.Attached(owner) && a.forgetMoved(t) {
			kept = append(kept, owner)
			continue
		}
		a.doc.RemoveListeners(owner)
		if t.el.Parent != nil {
			a.doc.RemoveChild(t.el.Parent, t.el)
		}
		delete(a.tips, owner)
		removed++
	}
	a.order = kept
	return removed
}

// forgetMoved drops sources no longer under t.owner and reports whether any
// remain.
func (a *Attacher) forgetMoved(t *tip) bool {
	changed := false
	for src := range t.originals {
		if src.Parent != t.owner {
			delete(t.originals, src)
			changed = true
		}
	}
	if len(t.originals) == 0 {
		return false
	}
	if changed {
		a.doc.SetText(t.text, t.content())
	}
	return true
}

// For returns the tooltip element attached to owner, or nil.
func (a *Attacher) For(owner *html.Node) *html.Node {
	if t, ok := a.tips[owner]; ok {
		return t.el
	}
	return nil
}

// Len returns the number of live tooltips.
func (a *Attacher) Len() int { return len(a.tips) }

// List describes every tooltip in attachment order.
func (a *Attacher) List() []models.Tooltip {
	out := make([]models.Tooltip, 0, len(a.order))
	for _, owner := range a.order {
		t := a.tips[owner]
		out = append(out, models.Tooltip{
			Owner:   dom.Path(owner),
			Text:    t.text.Data,
			Visible: t.shown,
			Left:    t.left,
			Top:     t.top,
		})
	}
	return out
}

// OnlyTooltipsAdded reports whether batch adds nodes and every added node is
// a tooltip element.
func OnlyTooltipsAdded(batch []dom.Record) bool {
	added := 0
	for _, r := range batch {
		if r.Type != dom.ChildList {
			continue
		}
		for _, n := range r.Added {
			if !dom.HasClass(n, Class) {
				return false
			}
			added++
		}
	}
	return added > 0
}
