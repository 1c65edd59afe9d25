package dusk

import (
	"bytes"
	"image/png"
	"testing"
)

func TestPixmap_ClampsDimensions(t *testing.T) {
	pm := NewPixmap(0, -3)
	if pm.Width() != 1 || pm.Height() != 1 {
		t.Errorf("NewPixmap(0, -3) = %dx%d, want 1x1", pm.Width(), pm.Height())
	}
}

func TestPixmap_SetGetPixel(t *testing.T) {
	pm := NewPixmap(4, 4)
	pm.SetPixel(2, 1, RGB(1, 0, 0))

	got := pm.GetPixel(2, 1)
	if got != (Color{1, 0, 0, 1}) {
		t.Errorf("GetPixel(2,1) = %v, want opaque red", got)
	}

	// Out of bounds reads are transparent, writes are dropped.
	pm.SetPixel(-1, 0, White)
	pm.SetPixel(4, 4, White)
	if pm.GetPixel(-1, 0) != Transparent {
		t.Error("out-of-bounds GetPixel should be Transparent")
	}
}

func TestPixmap_FillRectClips(t *testing.T) {
	pm := NewPixmap(3, 3)
	pm.FillRect(-5, -5, 10, 10, RGB(0, 0, 1))
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if pm.GetPixel(x, y) != (Color{0, 0, 1, 1}) {
				t.Fatalf("pixel (%d,%d) = %v, want blue", x, y, pm.GetPixel(x, y))
			}
		}
	}
}

func TestPixmap_FillRectBlends(t *testing.T) {
	pm := NewPixmap(1, 1)
	pm.Clear(White)
	pm.FillRect(0, 0, 1, 1, Color{0, 0, 0, 0.5})

	got := pm.GetPixel(0, 0)
	if got.R < 0.45 || got.R > 0.55 {
		t.Errorf("50%% black over white: R = %v, want ~0.5", got.R)
	}
}

func TestPixmap_EncodePNGRoundtrip(t *testing.T) {
	pm := NewPixmap(5, 3)
	pm.Clear(RGB(1, 0, 0))

	var buf bytes.Buffer
	if err := pm.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if img.Bounds().Dx() != 5 || img.Bounds().Dy() != 3 {
		t.Errorf("decoded size = %v, want 5x3", img.Bounds())
	}
	back := FromImage(img)
	if back.GetPixel(2, 1) != (Color{1, 0, 0, 1}) {
		t.Errorf("roundtripped pixel = %v, want red", back.GetPixel(2, 1))
	}
}
