// Package layout turns a styled document into a box tree with
// absolute positions in logical pixels. Block boxes stack vertically;
// inline content is broken into line boxes against the available
// width. All coordinates are device independent; the rasterizer
// applies the surface scale.
package layout

import (
	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/dom"
	"github.com/duskweb/dusk/style"
)

// Font selects a face for measurement, a subset of the computed style.
type Font struct {
	Size      float64
	Bold      bool
	Italic    bool
	Monospace bool
}

// FontOf extracts the measurement-relevant fields of a computed style.
func FontOf(cs *style.Computed) Font {
	return Font{
		Size:      cs.FontSize,
		Bold:      cs.Bold,
		Italic:    cs.Italic,
		Monospace: cs.Monospace,
	}
}

// Metrics are vertical font metrics in logical pixels.
type Metrics struct {
	Ascent  float64
	Descent float64
	LineGap float64
}

// LineHeight is the natural line height of the metrics.
func (m Metrics) LineHeight() float64 { return m.Ascent + m.Descent + m.LineGap }

// Measurer measures text for line breaking. The text package provides
// the production implementation; tests substitute a fixed-advance one.
type Measurer interface {
	Measure(text string, f Font) float64
	Metrics(f Font) Metrics
}

// ImageSizer reports the intrinsic pixel size of an image resource.
// Implementations return false when the resource is unavailable, in
// which case a placeholder size is used.
type ImageSizer interface {
	SizeOf(src string) (w, h float64, ok bool)
}

// placeholderSize is the box size used for images that failed to load.
const placeholderSize = 24

// Box is one node of the layout tree. Rect is the border box in
// absolute logical coordinates.
type Box struct {
	// Node is the originating DOM node, or dom.InvalidNode for
	// anonymous boxes generated to wrap inline content.
	Node  dom.NodeID
	Style *style.Computed
	Rect  dusk.Rect

	Children []*Box
	// Lines holds the inline content of a block that establishes an
	// inline formatting context. A box has Children or Lines, never
	// both.
	Lines []Line

	// ImageSrc is set on image boxes.
	ImageSrc string

	// inline holds unpositioned inline content until line breaking
	// runs.
	inline []inlineItem
}

// ContentRect returns the content area of the box, inside border and
// padding.
func (b *Box) ContentRect() dusk.Rect {
	r := b.Rect.Inset(b.Style.Border)
	return r.Inset(b.Style.Padding)
}

// PaddingRect returns the padding box, inside the border only.
func (b *Box) PaddingRect() dusk.Rect {
	return b.Rect.Inset(b.Style.Border)
}

// Line is one line box of inline content.
type Line struct {
	Rect dusk.Rect
	Runs []Run
}

// Run is a horizontal fragment within a line: a text run, an atomic
// inline-block box, or an inline image.
type Run struct {
	Text  string
	Style *style.Computed
	// Rect is the fragment's bounds. For text runs the height spans
	// ascent plus descent.
	Rect dusk.Rect
	// Baseline is the absolute y coordinate text is drawn at.
	Baseline float64
	// Box is set for atomic inline-level boxes laid out as blocks.
	Box *Box
	// ImageSrc is set for inline images.
	ImageSrc string
}

// Result is a completed layout.
type Result struct {
	Root *Box
	// Height is the total document height in logical pixels, at least
	// the viewport height.
	Height float64
}

// Walk visits every box in pre-order.
func (r *Result) Walk(fn func(*Box)) {
	var visit func(*Box)
	visit = func(b *Box) {
		fn(b)
		for _, c := range b.Children {
			visit(c)
		}
		for _, line := range b.Lines {
			for i := range line.Runs {
				if line.Runs[i].Box != nil {
					visit(line.Runs[i].Box)
				}
			}
		}
	}
	if r.Root != nil {
		visit(r.Root)
	}
}
