package dusk

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
)

// Pixmap is a rectangular pixel buffer in non-premultiplied RGBA order,
// 4 bytes per pixel. All rasterizer output and backend input flows
// through this one buffer contract; backends that need another pixel
// order convert at present time.
type Pixmap struct {
	width  int
	height int
	data   []uint8
}

// NewPixmap creates a pixmap with the given dimensions. Dimensions
// below 1 are clamped to 1 so a pixmap always has storage.
func NewPixmap(width, height int) *Pixmap {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the width of the pixmap in pixels.
func (p *Pixmap) Width() int { return p.width }

// Height returns the height of the pixmap in pixels.
func (p *Pixmap) Height() int { return p.height }

// Data returns the raw pixel data (RGBA, row-major).
func (p *Pixmap) Data() []uint8 { return p.data }

// SetPixel sets the color of a single pixel. Out-of-bounds writes are
// ignored.
func (p *Pixmap) SetPixel(x, y int, c Color) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * 4
	n := c.NRGBA()
	p.data[i+0] = n.R
	p.data[i+1] = n.G
	p.data[i+2] = n.B
	p.data[i+3] = n.A
}

// GetPixel returns the color of a single pixel, or Transparent when
// out of bounds.
func (p *Pixmap) GetPixel(x, y int) Color {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return Transparent
	}
	i := (y*p.width + x) * 4
	return Color{
		R: float64(p.data[i+0]) / 255,
		G: float64(p.data[i+1]) / 255,
		B: float64(p.data[i+2]) / 255,
		A: float64(p.data[i+3]) / 255,
	}
}

// BlendPixel composites c over the existing pixel with an extra
// coverage factor in [0, 255], as produced by an anti-aliasing
// rasterizer.
func (p *Pixmap) BlendPixel(x, y int, c Color, coverage uint8) {
	if coverage == 0 || x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	src := c
	src.A = c.A * float64(coverage) / 255
	if src.A >= 1 {
		p.SetPixel(x, y, src)
		return
	}
	p.SetPixel(x, y, src.Over(p.GetPixel(x, y)))
}

// Clear fills the entire pixmap with a color.
func (p *Pixmap) Clear(c Color) {
	n := c.NRGBA()
	for i := 0; i < len(p.data); i += 4 {
		p.data[i+0] = n.R
		p.data[i+1] = n.G
		p.data[i+2] = n.B
		p.data[i+3] = n.A
	}
}

// FillRect fills an integer rectangle with a solid color, clipped to
// the pixmap bounds. Opaque colors overwrite; translucent colors blend.
func (p *Pixmap) FillRect(x0, y0, x1, y1 int, c Color) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > p.width {
		x1 = p.width
	}
	if y1 > p.height {
		y1 = p.height
	}
	if x0 >= x1 || y0 >= y1 || c.A <= 0 {
		return
	}
	if c.A >= 1 {
		n := c.NRGBA()
		for y := y0; y < y1; y++ {
			i := (y*p.width + x0) * 4
			for x := x0; x < x1; x++ {
				p.data[i+0] = n.R
				p.data[i+1] = n.G
				p.data[i+2] = n.B
				p.data[i+3] = n.A
				i += 4
			}
		}
		return
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			p.SetPixel(x, y, c.Over(p.GetPixel(x, y)))
		}
	}
}

// ToImage converts the pixmap to an image.RGBA.
func (p *Pixmap) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.data)
	return img
}

// FromImage creates a pixmap from an image.
func FromImage(img image.Image) *Pixmap {
	bounds := img.Bounds()
	pm := NewPixmap(bounds.Dx(), bounds.Dy())
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == pm.width*4 {
		copy(pm.data, rgba.Pix)
		return pm
	}
	for y := 0; y < pm.height; y++ {
		for x := 0; x < pm.width; x++ {
			pm.SetPixel(x, y, FromColor(img.At(bounds.Min.X+x, bounds.Min.Y+y)))
		}
	}
	return pm
}

// EncodePNG writes the pixmap to w as a PNG image.
func (p *Pixmap) EncodePNG(w io.Writer) error {
	return png.Encode(w, p.ToImage())
}

// SavePNG saves the pixmap to a PNG file.
func (p *Pixmap) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return p.EncodePNG(f)
}

// At implements the image.Image interface.
func (p *Pixmap) At(x, y int) color.Color {
	return p.GetPixel(x, y).NRGBA()
}

// Bounds implements the image.Image interface.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements the image.Image interface.
func (p *Pixmap) ColorModel() color.Model {
	return color.NRGBAModel
}
