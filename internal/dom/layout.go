package dom

import "golang.org/x/net/html"

// Rect is a viewport-relative bounding box in CSS pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout answers geometry questions the document cannot compute itself.
type Layout interface {
	BoundingRect(n *html.Node) Rect
	ScrollOffset() (x, y float64)
	OffsetHeight(n *html.Node) float64
}

// StaticLayout is a Layout fed explicitly by the host: rects are reported
// per element, and every element without an explicit height uses LineHeight.
type StaticLayout struct {
	rects   map[*html.Node]Rect
	scrollX float64
	scrollY float64

	LineHeight float64
}

// NewStaticLayout returns an empty layout with the given default height.
func NewStaticLayout(lineHeight float64) *StaticLayout {
	return &StaticLayout{
		rects:      make(map[*html.Node]Rect),
		LineHeight: lineHeight,
	}
}

// SetRect records the bounding box of n.
func (l *StaticLayout) SetRect(n *html.Node, r Rect) {
	l.rects[n] = r
}

// SetScroll records the page scroll offset.
func (l *StaticLayout) SetScroll(x, y float64) {
	l.scrollX, l.scrollY = x, y
}

func (l *StaticLayout) BoundingRect(n *html.Node) Rect {
	return l.rects[n]
}

func (l *StaticLayout) ScrollOffset() (float64, float64) {
	return l.scrollX, l.scrollY
}

func (l *StaticLayout) OffsetHeight(n *html.Node) float64 {
	if r, ok := l.rects[n]; ok && r.Height > 0 {
		return r.Height
	}
	return l.LineHeight
}
