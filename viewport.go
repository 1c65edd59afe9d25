package dusk

import "math"

// Viewport describes the rendering target for one pipeline cycle:
// logical size in device-independent pixels, the device scale factor,
// and the canvas background color.
//
// A Viewport is a value. The engine owns the current one and threads a
// copy through each cycle, so pipeline stages stay pure; resize and
// rescale events produce a new value for the next cycle.
type Viewport struct {
	Width      float64
	Height     float64
	Scale      float64
	Background Color
}

// DefaultViewport returns an 800x600 viewport at 1.0 scale with a
// white canvas.
func DefaultViewport() Viewport {
	return Viewport{Width: 800, Height: 600, Scale: 1, Background: White}
}

// DeviceWidth returns the width in device pixels.
func (v Viewport) DeviceWidth() int {
	return scaleToDevice(v.Width, v.Scale)
}

// DeviceHeight returns the height in device pixels.
func (v Viewport) DeviceHeight() int {
	return scaleToDevice(v.Height, v.Scale)
}

// WithSize returns a copy with a new logical size.
func (v Viewport) WithSize(w, h float64) Viewport {
	v.Width = w
	v.Height = h
	return v
}

// WithScale returns a copy with a new scale factor. Non-positive
// scales fall back to 1.
func (v Viewport) WithScale(scale float64) Viewport {
	if scale <= 0 {
		scale = 1
	}
	v.Scale = scale
	return v
}

func scaleToDevice(logical, scale float64) int {
	if scale <= 0 {
		scale = 1
	}
	n := int(math.Round(logical * scale))
	if n < 1 {
		n = 1
	}
	return n
}
