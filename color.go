package dusk

import (
	"image/color"
)

// Color represents a color with red, green, blue, and alpha components.
// Each component is in the range [0, 1].
type Color struct {
	R, G, B, A float64
}

// Common colors.
var (
	Black       = Color{0, 0, 0, 1}
	White       = Color{1, 1, 1, 1}
	Transparent = Color{0, 0, 0, 0}
)

// RGB creates an opaque color from RGB components.
func RGB(r, g, b float64) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// RGBA returns the color as alpha-premultiplied 16-bit channels,
// implementing the color.Color interface.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{
		R: clamp8(c.R),
		G: clamp8(c.G),
		B: clamp8(c.B),
		A: clamp8(c.A),
	}.RGBA()
}

// NRGBA returns the color as non-premultiplied 8-bit channels.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{
		R: clamp8(c.R),
		G: clamp8(c.G),
		B: clamp8(c.B),
		A: clamp8(c.A),
	}
}

// FromColor converts a standard color.Color to Color.
func FromColor(c color.Color) Color {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return Transparent
	}
	// Un-premultiply.
	af := float64(a) / 65535
	return Color{
		R: float64(r) / float64(a),
		G: float64(g) / float64(a),
		B: float64(b) / float64(a),
		A: af,
	}
}

// Over composites c over dst using source-over blending and returns
// the result.
func (c Color) Over(dst Color) Color {
	if c.A >= 1 {
		return c
	}
	if c.A <= 0 {
		return dst
	}
	inv := 1 - c.A
	outA := c.A + dst.A*inv
	if outA <= 0 {
		return Transparent
	}
	return Color{
		R: (c.R*c.A + dst.R*dst.A*inv) / outA,
		G: (c.G*c.A + dst.G*dst.A*inv) / outA,
		B: (c.B*c.A + dst.B*dst.A*inv) / outA,
		A: outA,
	}
}

// WithAlpha returns the color with its alpha replaced.
func (c Color) WithAlpha(a float64) Color {
	c.A = a
	return c
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
