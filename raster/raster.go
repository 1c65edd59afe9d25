// Package raster executes a display list into a Pixmap at the
// surface's device scale. Rasterization is deterministic: the same
// list, viewport, and resources always produce identical pixels.
package raster

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/paint"
	"github.com/duskweb/dusk/text"
)

// ImageProvider supplies decoded images for DrawImage commands. The
// media loader implements it.
type ImageProvider interface {
	Image(src string) (image.Image, error)
}

// Rasterizer draws display lists. Safe for concurrent use as long as
// the image provider is.
type Rasterizer struct {
	shaper *text.Shaper
	images ImageProvider
}

// New builds a rasterizer. images may be nil; DrawImage commands then
// always draw the placeholder.
func New(shaper *text.Shaper, images ImageProvider) *Rasterizer {
	return &Rasterizer{shaper: shaper, images: images}
}

// Rasterize renders the list into a fresh pixmap sized to the
// viewport's device pixels.
func (r *Rasterizer) Rasterize(list *paint.List, vp dusk.Viewport) *dusk.Pixmap {
	pm := dusk.NewPixmap(vp.DeviceWidth(), vp.DeviceHeight())
	pm.Clear(list.Background)

	scale := vp.Scale
	if scale <= 0 {
		scale = 1
	}
	for _, cmd := range list.Commands {
		switch c := cmd.(type) {
		case paint.FillRect:
			fillRect(pm, c.Rect, scale, c.Color)
		case paint.StrokeBorder:
			r.strokeBorder(pm, c, scale)
		case paint.DrawImage:
			r.drawImage(pm, c, scale)
		case paint.DrawText:
			r.drawText(pm, c, scale)
		}
	}
	return pm
}

// devRect converts a logical rect to rounded device coordinates.
func devRect(r dusk.Rect, scale float64) (x0, y0, x1, y1 int) {
	x0 = int(math.Round(r.X * scale))
	y0 = int(math.Round(r.Y * scale))
	x1 = int(math.Round((r.X + r.W) * scale))
	y1 = int(math.Round((r.Y + r.H) * scale))
	return
}

func fillRect(pm *dusk.Pixmap, r dusk.Rect, scale float64, c dusk.Color) {
	if r.Empty() || c.A <= 0 {
		return
	}
	x0, y0, x1, y1 := devRect(r, scale)
	pm.FillRect(x0, y0, x1, y1, c)
}

// strokeBorder fills the four edge strips inside the border box. A
// nonzero logical width always produces at least one device pixel.
func (r *Rasterizer) strokeBorder(pm *dusk.Pixmap, c paint.StrokeBorder, scale float64) {
	x0, y0, x1, y1 := devRect(c.Rect, scale)
	w := func(logical float64) int {
		if logical <= 0 {
			return 0
		}
		d := int(math.Round(logical * scale))
		if d < 1 {
			d = 1
		}
		return d
	}
	top, right, bottom, left := w(c.Widths.Top), w(c.Widths.Right), w(c.Widths.Bottom), w(c.Widths.Left)
	if top > 0 {
		pm.FillRect(x0, y0, x1, y0+top, c.Color)
	}
	if bottom > 0 {
		pm.FillRect(x0, y1-bottom, x1, y1, c.Color)
	}
	if left > 0 {
		pm.FillRect(x0, y0+top, x0+left, y1-bottom, c.Color)
	}
	if right > 0 {
		pm.FillRect(x1-right, y0+top, x1, y1-bottom, c.Color)
	}
}

func (r *Rasterizer) drawImage(pm *dusk.Pixmap, c paint.DrawImage, scale float64) {
	x0, y0, x1, y1 := devRect(c.Rect, scale)
	if x1 <= x0 || y1 <= y0 {
		return
	}

	var src image.Image
	if r.images != nil {
		if img, err := r.images.Image(c.Src); err == nil && img != nil {
			src = img
		}
	}
	if src == nil {
		drawPlaceholder(pm, x0, y0, x1, y1)
		return
	}

	// Scale into a staging buffer, then blend onto the pixmap.
	dst := image.NewRGBA(image.Rect(0, 0, x1-x0, y1-y0))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	for y := 0; y < dst.Bounds().Dy(); y++ {
		for x := 0; x < dst.Bounds().Dx(); x++ {
			col := dusk.FromColor(dst.RGBAAt(x, y))
			if col.A <= 0 {
				continue
			}
			pm.BlendPixel(x0+x, y0+y, col, 255)
		}
	}
}

// drawPlaceholder marks a failed image with a gray box and outline.
func drawPlaceholder(pm *dusk.Pixmap, x0, y0, x1, y1 int) {
	fill := dusk.Color{R: 0.87, G: 0.87, B: 0.87, A: 1}
	edge := dusk.Color{R: 0.6, G: 0.6, B: 0.6, A: 1}
	pm.FillRect(x0, y0, x1, y1, fill)
	pm.FillRect(x0, y0, x1, y0+1, edge)
	pm.FillRect(x0, y1-1, x1, y1, edge)
	pm.FillRect(x0, y0, x0+1, y1, edge)
	pm.FillRect(x1-1, y0, x1, y1, edge)
}
