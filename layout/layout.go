package layout

import (
	"strings"

	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/css"
	"github.com/duskweb/dusk/dom"
	"github.com/duskweb/dusk/style"
)

// Context carries everything a layout pass needs.
type Context struct {
	Doc     *dom.Document
	Styles  *style.Styles
	Measure Measurer
	// Images may be nil; image boxes then use the placeholder size
	// unless their style fixes both dimensions.
	Images   ImageSizer
	Viewport dusk.Viewport
}

// Layout lays out the document's render root against the viewport
// width. The same context laid out twice produces identical results.
func Layout(ctx *Context) *Result {
	root := ctx.Doc.RenderRoot()
	if root == dom.InvalidNode {
		return &Result{Height: ctx.Viewport.Height}
	}
	box := ctx.buildBox(root)
	if box == nil {
		return &Result{Height: ctx.Viewport.Height}
	}
	h := ctx.layoutBlock(box, 0, 0, ctx.Viewport.Width)
	if h < ctx.Viewport.Height {
		h = ctx.Viewport.Height
	}
	return &Result{Root: box, Height: h}
}

// inlineItem is a piece of not-yet-positioned inline content.
type inlineItem struct {
	// text is a raw text fragment; whitespace is normalized during
	// line breaking unless the style preserves it.
	text string
	cs   *style.Computed
	// box is an atomic inline-level box (inline-block or image).
	box *Box
}

// buildBox constructs the box subtree for a block-level element,
// wrapping runs of inline children in anonymous boxes whenever they
// share a parent with block children.
func (ctx *Context) buildBox(id dom.NodeID) *Box {
	cs := ctx.Styles.Of(id)
	if cs.Display == style.DisplayNone {
		return nil
	}
	n := ctx.Doc.Node(id)
	b := &Box{Node: id, Style: cs}
	if n.Tag == "img" {
		b.ImageSrc = n.AttrValue("src")
		return b
	}

	var blocks []*Box
	var pending []inlineItem
	flush := func() {
		if !hasContent(pending) {
			pending = nil
			return
		}
		anon := &Box{Node: dom.InvalidNode, Style: style.Anonymous(cs), inline: pending}
		blocks = append(blocks, anon)
		pending = nil
	}

	for _, child := range n.Children {
		cn := ctx.Doc.Node(child)
		ccs := ctx.Styles.Of(child)
		switch {
		case cn.Kind == dom.KindComment:
		case cn.Kind == dom.KindText:
			pending = append(pending, inlineItem{text: cn.Text, cs: ccs})
		case ccs.Display == style.DisplayNone:
		case ccs.Display == style.DisplayBlock:
			flush()
			if cb := ctx.buildBox(child); cb != nil {
				blocks = append(blocks, cb)
			}
		default:
			ctx.collectInline(child, &pending)
		}
	}

	switch {
	case len(blocks) == 0:
		if hasContent(pending) {
			b.inline = pending
		}
	default:
		flush()
		b.Children = blocks
	}
	return b
}

// collectInline flattens an inline element's subtree into items.
// Atomic inline-level boxes (inline-block, images) are built but not
// laid out yet.
func (ctx *Context) collectInline(id dom.NodeID, out *[]inlineItem) {
	cs := ctx.Styles.Of(id)
	if cs.Display == style.DisplayNone {
		return
	}
	n := ctx.Doc.Node(id)
	if cs.Display == style.DisplayInlineBlock || n.Tag == "img" {
		if box := ctx.buildBox(id); box != nil {
			*out = append(*out, inlineItem{box: box, cs: cs})
		}
		return
	}
	for _, child := range n.Children {
		cn := ctx.Doc.Node(child)
		switch cn.Kind {
		case dom.KindText:
			*out = append(*out, inlineItem{text: cn.Text, cs: ctx.Styles.Of(child)})
		case dom.KindElement:
			ctx.collectInline(child, out)
		}
	}
}

// hasContent reports whether the pending inline items contain anything
// visible. Whitespace-only runs between blocks generate no box.
func hasContent(items []inlineItem) bool {
	for _, it := range items {
		if it.box != nil {
			return true
		}
		if it.cs.Pre && it.text != "" {
			return true
		}
		if strings.TrimSpace(it.text) != "" {
			return true
		}
	}
	return false
}

// layoutBlock positions a block-level box whose containing block
// starts at (cx, cy) with width cw, and returns the height of the
// box's margin box.
func (ctx *Context) layoutBlock(b *Box, cx, cy, cw float64) float64 {
	st := b.Style
	fs := st.FontSize
	extraW := st.Border.Left + st.Border.Right + st.Padding.Left + st.Padding.Right
	extraH := st.Border.Top + st.Border.Bottom + st.Padding.Top + st.Padding.Bottom

	ml, mr := st.Margin.Left, st.Margin.Right
	var w float64
	if st.Width.Set && !st.Width.Length.IsAuto() {
		w = st.Width.Length.Resolve(fs, cw, 0)
		w = ctx.clampWidth(st, w, cw)
		leftover := cw - w - extraW - ml - mr
		if leftover > 0 {
			switch {
			case st.MarginAuto.Left && st.MarginAuto.Right:
				ml += leftover / 2
				mr += leftover / 2
			case st.MarginAuto.Left:
				ml += leftover
			case st.MarginAuto.Right:
				mr += leftover
			}
		}
	} else {
		w = cw - extraW - ml - mr
		if w < 0 {
			w = 0
		}
		w = ctx.clampWidth(st, w, cw)
	}

	bx := cx + ml
	by := cy + st.Margin.Top
	contentX := bx + st.Border.Left + st.Padding.Left
	contentY := by + st.Border.Top + st.Padding.Top

	var contentH float64
	switch {
	case b.ImageSrc != "":
		iw, ih := ctx.imageSize(b, w)
		w, contentH = iw, ih
	case len(b.inline) > 0:
		contentH = ctx.layoutInline(b, contentX, contentY, w)
	default:
		for _, child := range b.Children {
			contentH += ctx.layoutBlock(child, contentX, contentY+contentH, w)
		}
	}

	if st.Height.Set && !st.Height.Length.IsAuto() {
		// Percentage heights resolve against the viewport; the
		// document itself is the vertical containing block.
		contentH = st.Height.Length.Resolve(fs, ctx.Viewport.Height, contentH)
	}

	b.Rect = dusk.Rect{X: bx, Y: by, W: w + extraW, H: contentH + extraH}
	return st.Margin.Top + b.Rect.H + st.Margin.Bottom
}

func (ctx *Context) clampWidth(st *style.Computed, w, cw float64) float64 {
	if st.MaxWidth.Set && !st.MaxWidth.Length.IsAuto() {
		if lim := st.MaxWidth.Length.Resolve(st.FontSize, cw, w); w > lim {
			w = lim
		}
	}
	if st.MinWidth.Set && !st.MinWidth.Length.IsAuto() {
		if lim := st.MinWidth.Length.Resolve(st.FontSize, cw, 0); w < lim {
			w = lim
		}
	}
	if w < 0 {
		return 0
	}
	return w
}

// imageSize computes the used size of an image box from its intrinsic
// size and any explicit dimensions, preserving the aspect ratio when
// only one dimension is given.
func (ctx *Context) imageSize(b *Box, avail float64) (w, h float64) {
	iw, ih := float64(placeholderSize), float64(placeholderSize)
	if ctx.Images != nil {
		if nw, nh, ok := ctx.Images.SizeOf(b.ImageSrc); ok && nw > 0 && nh > 0 {
			iw, ih = nw, nh
		}
	}
	st := b.Style
	hasW := st.Width.Set && !st.Width.Length.IsAuto()
	hasH := st.Height.Set && !st.Height.Length.IsAuto()
	switch {
	case hasW && hasH:
		return st.Width.Length.Resolve(st.FontSize, avail, iw),
			st.Height.Length.Resolve(st.FontSize, ctx.Viewport.Height, ih)
	case hasW:
		w = st.Width.Length.Resolve(st.FontSize, avail, iw)
		return w, w * ih / iw
	case hasH:
		h = st.Height.Length.Resolve(st.FontSize, ctx.Viewport.Height, ih)
		return h * iw / ih, h
	default:
		return iw, ih
	}
}

// layoutAtomic lays out an inline-level block (inline-block or image)
// in isolation at origin, shrinking it to fit its content when no
// explicit width is set, and returns its margin-box size.
func (ctx *Context) layoutAtomic(b *Box, avail float64) (w, h float64) {
	mh := ctx.layoutBlock(b, 0, 0, avail)
	st := b.Style
	if b.ImageSrc == "" && (!st.Width.Set || st.Width.Length.IsAuto()) {
		// Shrink to fit: relayout at the widest content line.
		if fit := maxContentWidth(b); fit+st.Margin.Left+st.Margin.Right < avail {
			mh = ctx.layoutBlock(b, 0, 0, fit+st.Margin.Left+st.Margin.Right)
		}
	}
	return b.Rect.W + st.Margin.Left + st.Margin.Right, mh
}

// maxContentWidth is the widest border-box line or child of a
// laid-out box, including its own padding and border.
func maxContentWidth(b *Box) float64 {
	extra := b.Style.Border.Left + b.Style.Border.Right +
		b.Style.Padding.Left + b.Style.Padding.Right
	var widest float64
	for _, line := range b.Lines {
		var lw float64
		for i := range line.Runs {
			lw += line.Runs[i].Rect.W
		}
		if lw > widest {
			widest = lw
		}
	}
	for _, c := range b.Children {
		if cw := maxContentWidth(c) + c.Style.Margin.Left + c.Style.Margin.Right; cw > widest {
			widest = cw
		}
	}
	if st := b.Style; st.Width.Set && !st.Width.Length.IsAuto() && st.Width.Length.Unit != css.Percent {
		if w := b.Rect.W - extra; w > widest {
			widest = w
		}
	}
	return widest + extra
}

// shiftBox translates a laid-out subtree.
func shiftBox(b *Box, dx, dy float64) {
	b.Rect.X += dx
	b.Rect.Y += dy
	for _, c := range b.Children {
		shiftBox(c, dx, dy)
	}
	for li := range b.Lines {
		b.Lines[li].Rect.X += dx
		b.Lines[li].Rect.Y += dy
		for ri := range b.Lines[li].Runs {
			r := &b.Lines[li].Runs[ri]
			r.Rect.X += dx
			r.Rect.Y += dy
			r.Baseline += dy
			if r.Box != nil {
				shiftBox(r.Box, dx, dy)
			}
		}
	}
}
