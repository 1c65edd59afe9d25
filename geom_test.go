package dusk

import "testing"

func TestRect_Inset(t *testing.T) {
	tests := []struct {
		name string
		r    Rect
		e    Edges
		want Rect
	}{
		{
			name: "uniform",
			r:    Rect{X: 10, Y: 10, W: 100, H: 50},
			e:    Uniform(5),
			want: Rect{X: 15, Y: 15, W: 90, H: 40},
		},
		{
			name: "edges larger than rect clamp to zero size",
			r:    Rect{W: 10, H: 10},
			e:    Uniform(8),
			want: Rect{X: 8, Y: 8, W: 0, H: 0},
		},
		{
			name: "asymmetric",
			r:    Rect{W: 100, H: 100},
			e:    Edges{Top: 1, Right: 2, Bottom: 3, Left: 4},
			want: Rect{X: 4, Y: 1, W: 94, H: 96},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Inset(tt.e); got != tt.want {
				t.Errorf("Inset() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRect_Intersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}
	if got := a.Intersect(b); got != (Rect{X: 5, Y: 5, W: 5, H: 5}) {
		t.Errorf("Intersect = %v", got)
	}
	c := Rect{X: 20, Y: 20, W: 5, H: 5}
	if got := a.Intersect(c); !got.Empty() {
		t.Errorf("disjoint Intersect = %v, want empty", got)
	}
}

func TestViewport_DeviceSize(t *testing.T) {
	tests := []struct {
		name  string
		vp    Viewport
		wantW int
		wantH int
	}{
		{"unit scale", Viewport{Width: 200, Height: 100, Scale: 1}, 200, 100},
		{"hidpi", Viewport{Width: 800, Height: 600, Scale: 2}, 1600, 1200},
		{"fractional scale rounds", Viewport{Width: 801, Height: 601, Scale: 1.5}, 1202, 902},
		{"zero scale falls back to 1", Viewport{Width: 640, Height: 480}, 640, 480},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.vp.DeviceWidth(); got != tt.wantW {
				t.Errorf("DeviceWidth() = %d, want %d", got, tt.wantW)
			}
			if got := tt.vp.DeviceHeight(); got != tt.wantH {
				t.Errorf("DeviceHeight() = %d, want %d", got, tt.wantH)
			}
		})
	}
}

func TestColor_Over(t *testing.T) {
	if got := RGB(1, 0, 0).Over(White); got != RGB(1, 0, 0) {
		t.Errorf("opaque Over = %v, want src", got)
	}
	if got := Transparent.Over(RGB(0, 1, 0)); got != RGB(0, 1, 0) {
		t.Errorf("transparent Over = %v, want dst", got)
	}
}
