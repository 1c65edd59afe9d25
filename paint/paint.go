// Package paint flattens a layout tree into an ordered display list.
// The list is resolution independent; the raster package executes it
// at the surface's device scale.
package paint

import (
	"sort"

	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/layout"
)

// Command is one drawing operation. Coordinates are logical pixels.
type Command interface {
	Bounds() dusk.Rect
}

// FillRect fills an axis-aligned rectangle with a solid color.
type FillRect struct {
	Rect  dusk.Rect
	Color dusk.Color
}

func (c FillRect) Bounds() dusk.Rect { return c.Rect }

// StrokeBorder draws the four border edges of a box as filled strips
// inside the rect.
type StrokeBorder struct {
	Rect   dusk.Rect
	Widths dusk.Edges
	Color  dusk.Color
}

func (c StrokeBorder) Bounds() dusk.Rect { return c.Rect }

// DrawText draws a single shaped text run at a baseline.
type DrawText struct {
	Text      string
	X         float64
	Baseline  float64
	Font      layout.Font
	Color     dusk.Color
	Underline bool
	// Rect is the run's layout bounds, used for underlines and culling.
	Rect dusk.Rect
}

func (c DrawText) Bounds() dusk.Rect { return c.Rect }

// DrawImage draws a decoded image scaled into the rect. Src is the
// resource reference the media loader resolves.
type DrawImage struct {
	Rect dusk.Rect
	Src  string
}

func (c DrawImage) Bounds() dusk.Rect { return c.Rect }

// List is a completed display list.
type List struct {
	// Background covers the whole surface before any command runs.
	// The render root's background propagates here, so a document
	// background fills the viewport edge to edge.
	Background dusk.Color
	Commands   []Command
}

type entry struct {
	z   int
	seq int
	cmd Command
}

type builder struct {
	entries []entry
	seq     int
}

func (b *builder) add(z int, cmd Command) {
	b.entries = append(b.entries, entry{z: z, seq: b.seq, cmd: cmd})
	b.seq++
}

// Build walks the layout tree in paint order: each box paints its
// background, then its border, then its content, then its children.
// Boxes with a nonzero z-index are sorted above or below their
// siblings; the sort is stable so equal z keeps tree order.
func Build(res *layout.Result, vp dusk.Viewport) *List {
	list := &List{Background: vp.Background}
	if res == nil || res.Root == nil {
		return list
	}

	root := res.Root
	if root.Style.Background.A > 0 {
		list.Background = root.Style.Background
	}

	b := &builder{}
	b.paintBox(root, 0, true)

	sort.SliceStable(b.entries, func(i, j int) bool {
		if b.entries[i].z != b.entries[j].z {
			return b.entries[i].z < b.entries[j].z
		}
		return b.entries[i].seq < b.entries[j].seq
	})
	list.Commands = make([]Command, len(b.entries))
	for i, e := range b.entries {
		list.Commands[i] = e.cmd
	}
	return list
}

func (b *builder) paintBox(box *layout.Box, z int, isRoot bool) {
	st := box.Style
	if st.Hidden {
		return
	}
	if st.ZIndex != 0 {
		z = st.ZIndex
	}

	// The root background was already promoted to the canvas.
	if !isRoot && st.Background.A > 0 {
		b.add(z, FillRect{Rect: box.Rect, Color: st.Background})
	}
	if st.BorderCol.A > 0 && !st.Border.Zero() {
		b.add(z, StrokeBorder{Rect: box.Rect, Widths: st.Border, Color: st.BorderCol})
	}
	if box.ImageSrc != "" {
		b.add(z, DrawImage{Rect: box.ContentRect(), Src: box.ImageSrc})
		return
	}

	for _, child := range box.Children {
		b.paintBox(child, z, false)
	}
	for _, line := range box.Lines {
		for i := range line.Runs {
			b.paintRun(&line.Runs[i], z)
		}
	}
}

func (b *builder) paintRun(r *layout.Run, z int) {
	if r.Box != nil {
		b.paintBox(r.Box, z, false)
		return
	}
	if r.Style.Hidden || r.Text == "" {
		return
	}
	b.add(z, DrawText{
		Text:      r.Text,
		X:         r.Rect.X,
		Baseline:  r.Baseline,
		Font:      layout.FontOf(r.Style),
		Color:     r.Style.Color,
		Underline: r.Style.Underline,
		Rect:      r.Rect,
	})
}
