package x11

import (
	"testing"

	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/backend"
)

func TestToBGRX(t *testing.T) {
	pm := dusk.NewPixmap(2, 1)
	pm.SetPixel(0, 0, dusk.Color{R: 1, G: 0, B: 0, A: 1})
	pm.SetPixel(1, 0, dusk.Color{R: 0, G: 0, B: 1, A: 0.5})

	out := toBGRX(pm)
	if len(out) != 8 {
		t.Fatalf("len = %d, want 8", len(out))
	}
	// Red pixel: B=0 G=0 R=255, padding forced opaque.
	if out[0] != 0 || out[1] != 0 || out[2] != 255 || out[3] != 0xff {
		t.Errorf("red pixel = %v", out[:4])
	}
	// Alpha is dropped, channels pass through.
	if out[4] != pm.Data()[6] || out[6] != pm.Data()[4] || out[7] != 0xff {
		t.Errorf("blue pixel = %v", out[4:])
	}
}

func TestScaleOf(t *testing.T) {
	if got := scaleOf(backend.Config{}); got != 1 {
		t.Errorf("default scale = %v, want 1", got)
	}
	if got := scaleOf(backend.Config{Scale: 2}); got != 2 {
		t.Errorf("explicit scale = %v, want 2", got)
	}
}
