package layout

import (
	"strings"

	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/style"
)

// inlineState accumulates runs for the line currently being filled.
// Run rects hold x offsets relative to the line start until the line
// is flushed.
type inlineState struct {
	ctx     *Context
	box     *Box
	x, y, w float64

	cursorY   float64
	cur       []Run
	curW      float64
	needSpace bool
}

// layoutInline breaks the box's inline items into lines within the
// content area starting at (x, y) with width w and returns the
// resulting content height.
func (ctx *Context) layoutInline(b *Box, x, y, w float64) float64 {
	st := &inlineState{ctx: ctx, box: b, x: x, y: y, w: w, cursorY: y}
	b.Lines = nil

	for _, item := range b.inline {
		switch {
		case item.box != nil:
			st.placeAtomic(item)
		case item.cs.Pre:
			st.placePre(item)
		default:
			st.placeText(item)
		}
	}
	st.flush()
	return st.cursorY - y
}

func (st *inlineState) placeText(item inlineItem) {
	text := item.text
	if len(text) == 0 {
		return
	}
	if isSpaceByte(text[0]) {
		st.needSpace = true
	}
	for i, word := range strings.Fields(text) {
		if i > 0 {
			st.needSpace = true
		}
		st.placeWord(word, item)
	}
	if isSpaceByte(text[len(text)-1]) {
		st.needSpace = true
	}
}

func (st *inlineState) placeWord(word string, item inlineItem) {
	font := FontOf(item.cs)
	wordW := st.ctx.Measure.Measure(word, font)
	spaceW := 0.0
	if st.needSpace && len(st.cur) > 0 {
		spaceW = st.ctx.Measure.Measure(" ", font)
	}
	if len(st.cur) > 0 && st.curW+spaceW+wordW > st.w {
		st.flush()
		spaceW = 0
	}
	st.needSpace = false

	if len(st.cur) > 0 {
		if last := &st.cur[len(st.cur)-1]; last.Box == nil && last.Style == item.cs {
			sep := ""
			if spaceW > 0 {
				sep = " "
			}
			last.Text += sep + word
			last.Rect.W += spaceW + wordW
			st.curW += spaceW + wordW
			return
		}
	}
	st.cur = append(st.cur, Run{
		Text:  word,
		Style: item.cs,
		Rect:  dusk.Rect{X: st.curW + spaceW, W: wordW},
	})
	st.curW += spaceW + wordW
}

// placePre lays out preserved-whitespace text: segments between
// newlines become whole runs with no wrapping, and every newline
// forces a line break.
func (st *inlineState) placePre(item inlineItem) {
	font := FontOf(item.cs)
	for i, seg := range strings.Split(item.text, "\n") {
		if i > 0 {
			st.forceBreak(item)
		}
		if seg == "" {
			continue
		}
		segW := st.ctx.Measure.Measure(seg, font)
		st.cur = append(st.cur, Run{
			Text:  seg,
			Style: item.cs,
			Rect:  dusk.Rect{X: st.curW, W: segW},
		})
		st.curW += segW
		st.needSpace = false
	}
}

// forceBreak ends the current line even when it is empty, so blank
// lines in preserved text keep their height.
func (st *inlineState) forceBreak(item inlineItem) {
	if len(st.cur) > 0 {
		st.flush()
		return
	}
	m := st.ctx.Measure.Metrics(FontOf(item.cs))
	lh := item.cs.LineHeight
	if lh <= 0 {
		lh = m.LineHeight()
	}
	st.cursorY += lh
}

func (st *inlineState) placeAtomic(item inlineItem) {
	aw, ah := st.ctx.layoutAtomic(item.box, st.w)
	spaceW := 0.0
	if st.needSpace && len(st.cur) > 0 {
		spaceW = st.ctx.Measure.Measure(" ", FontOf(item.cs))
	}
	if len(st.cur) > 0 && st.curW+spaceW+aw > st.w {
		st.flush()
		spaceW = 0
	}
	st.needSpace = false
	st.cur = append(st.cur, Run{
		Box:      item.box,
		Style:    item.cs,
		ImageSrc: item.box.ImageSrc,
		Rect:     dusk.Rect{X: st.curW + spaceW, W: aw, H: ah},
	})
	st.curW += spaceW + aw
}

// flush finalizes the current line: computes its height and baseline,
// applies text alignment, and converts run offsets to absolute
// coordinates.
func (st *inlineState) flush() {
	if len(st.cur) == 0 {
		return
	}
	var maxAscent, maxDescent, lineH float64
	for i := range st.cur {
		r := &st.cur[i]
		if r.Box != nil {
			if r.Rect.H > maxAscent {
				maxAscent = r.Rect.H
			}
			if r.Rect.H > lineH {
				lineH = r.Rect.H
			}
			continue
		}
		m := st.ctx.Measure.Metrics(FontOf(r.Style))
		if m.Ascent > maxAscent {
			maxAscent = m.Ascent
		}
		if m.Descent > maxDescent {
			maxDescent = m.Descent
		}
		lh := r.Style.LineHeight
		if lh <= 0 {
			lh = m.LineHeight()
		}
		if lh > lineH {
			lineH = lh
		}
	}
	if lineH < maxAscent+maxDescent {
		lineH = maxAscent + maxDescent
	}
	leading := (lineH - maxAscent - maxDescent) / 2
	baseline := st.cursorY + leading + maxAscent

	var dx float64
	if leftover := st.w - st.curW; leftover > 0 {
		switch st.box.Style.TextAlign {
		case style.AlignCenter:
			dx = leftover / 2
		case style.AlignRight:
			dx = leftover
		}
	}

	for i := range st.cur {
		r := &st.cur[i]
		absX := st.x + dx + r.Rect.X
		if r.Box != nil {
			top := baseline - r.Rect.H
			mb := r.Box.Style.Margin
			shiftBox(r.Box, absX+mb.Left-r.Box.Rect.X, top+mb.Top-r.Box.Rect.Y)
			r.Rect = dusk.Rect{X: absX, Y: top, W: r.Rect.W, H: r.Rect.H}
			r.Baseline = baseline
			continue
		}
		m := st.ctx.Measure.Metrics(FontOf(r.Style))
		r.Rect = dusk.Rect{
			X: absX,
			Y: baseline - m.Ascent,
			W: r.Rect.W,
			H: m.Ascent + m.Descent,
		}
		r.Baseline = baseline
	}

	st.box.Lines = append(st.box.Lines, Line{
		Rect: dusk.Rect{X: st.x, Y: st.cursorY, W: st.w, H: lineH},
		Runs: st.cur,
	})
	st.cursorY += lineH
	st.cur = nil
	st.curW = 0
	st.needSpace = false
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
