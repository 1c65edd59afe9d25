package raster

import (
	"image"
	"math"

	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/paint"
	"github.com/duskweb/dusk/text"
)

// drawText shapes the run at device size and fills each glyph outline
// with antialiased coverage.
func (r *Rasterizer) drawText(pm *dusk.Pixmap, c paint.DrawText, scale float64) {
	if c.Color.A <= 0 {
		return
	}
	f := c.Font
	f.Size *= scale
	run := r.shaper.Shape(c.Text, f)

	originX := c.X * scale
	baseline := c.Baseline * scale
	for _, g := range run.Glyphs {
		r.drawGlyph(pm, run.Face, g.ID, f.Size, originX+g.X, baseline+g.Y, c.Color)
	}

	if c.Underline && run.Advance > 0 {
		th := int(math.Round(math.Max(1, f.Size/14)))
		uy := int(math.Round(baseline + f.Size*0.1))
		pm.FillRect(int(math.Round(originX)), uy,
			int(math.Round(originX+run.Advance)), uy+th, c.Color)
	}
}

// drawGlyph rasterizes one glyph outline at (gx, gy) on the baseline.
func (r *Rasterizer) drawGlyph(pm *dusk.Pixmap, face *text.Face, id sfnt.GlyphIndex, size, gx, gy float64, col dusk.Color) {
	segs, err := face.Outline(id, size)
	if err != nil || len(segs) == 0 {
		return
	}

	minX, minY, maxX, maxY := segmentBounds(segs)
	x0 := int(math.Floor(gx + minX))
	y0 := int(math.Floor(gy + minY))
	w := int(math.Ceil(gx+maxX)) - x0 + 1
	h := int(math.Ceil(gy+maxY)) - y0 + 1
	if w <= 0 || h <= 0 {
		return
	}

	vr := vector.NewRasterizer(w, h)
	ox := float32(gx - float64(x0))
	oy := float32(gy - float64(y0))
	pt := func(p fixed.Point26_6) (float32, float32) {
		return ox + float32(fixedToFloat(p.X)), oy + float32(fixedToFloat(p.Y))
	}
	for _, seg := range segs {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			ax, ay := pt(seg.Args[0])
			vr.MoveTo(ax, ay)
		case sfnt.SegmentOpLineTo:
			ax, ay := pt(seg.Args[0])
			vr.LineTo(ax, ay)
		case sfnt.SegmentOpQuadTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			vr.QuadTo(bx, by, cx, cy)
		case sfnt.SegmentOpCubeTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			dx, dy := pt(seg.Args[2])
			vr.CubeTo(bx, by, cx, cy, dx, dy)
		}
	}
	vr.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	vr.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	for y := 0; y < h; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		for x, a := range row {
			if a == 0 {
				continue
			}
			pm.BlendPixel(x0+x, y0+y, col, a)
		}
	}
}

// segmentBounds computes the outline's bounding box, honoring the
// argument count of each segment op.
func segmentBounds(segs sfnt.Segments) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	grow := func(p fixed.Point26_6) {
		x, y := fixedToFloat(p.X), fixedToFloat(p.Y)
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	for _, seg := range segs {
		n := 1
		switch seg.Op {
		case sfnt.SegmentOpQuadTo:
			n = 2
		case sfnt.SegmentOpCubeTo:
			n = 3
		}
		for i := 0; i < n; i++ {
			grow(seg.Args[i])
		}
	}
	return
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
