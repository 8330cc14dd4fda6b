package dom

import "golang.org/x/net/html"

// EventType names an element event.
type EventType string

const (
	PointerEnter EventType = "mouseenter"
	PointerLeave EventType = "mouseleave"
)

// Listener handles an event dispatched to the element it was added to.
type Listener func(target *html.Node)

// AddListener registers fn for ev on n.
func (d *Document) AddListener(n *html.Node, ev EventType, fn Listener) {
	byType := d.listeners[n]
	if byType == nil {
		byType = make(map[EventType][]Listener)
		d.listeners[n] = byType
	}
	byType[ev] = append(byType[ev], fn)
}

// RemoveListeners drops every listener registered on n.
func (d *Document) RemoveListeners(n *html.Node) {
	delete(d.listeners, n)
}

// ListenerCount returns how many listeners n holds for ev.
func (d *Document) ListenerCount(n *html.Node, ev EventType) int {
	return len(d.listeners[n][ev])
}

// Dispatch calls the listeners for ev on n in registration order and returns
// how many ran. Enter and leave events do not bubble.
func (d *Document) Dispatch(n *html.Node, ev EventType) int {
	fns := append([]Listener(nil), d.listeners[n][ev]...)
	for _, fn := range fns {
		fn(n)
	}
	return len(fns)
}
