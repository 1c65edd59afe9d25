package dusk

// Rect is an axis-aligned rectangle in device-independent pixels.
type Rect struct {
	X, Y, W, H float64
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Contains reports whether the point (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Inset shrinks the rectangle by the given edges. Width and height
// never go negative.
func (r Rect) Inset(e Edges) Rect {
	out := Rect{
		X: r.X + e.Left,
		Y: r.Y + e.Top,
		W: r.W - e.Left - e.Right,
		H: r.H - e.Top - e.Bottom,
	}
	if out.W < 0 {
		out.W = 0
	}
	if out.H < 0 {
		out.H = 0
	}
	return out
}

// Outset grows the rectangle by the given edges.
func (r Rect) Outset(e Edges) Rect {
	return Rect{
		X: r.X - e.Left,
		Y: r.Y - e.Top,
		W: r.W + e.Left + e.Right,
		H: r.H + e.Top + e.Bottom,
	}
}

// Intersect returns the overlap of two rectangles, or a zero rect when
// they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.Right(), o.Right())
	y1 := min(r.Bottom(), o.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Edges holds per-side widths (margins, borders, padding).
type Edges struct {
	Top, Right, Bottom, Left float64
}

// Uniform returns edges with the same width on every side.
func Uniform(w float64) Edges {
	return Edges{Top: w, Right: w, Bottom: w, Left: w}
}

// Horizontal returns the combined left and right widths.
func (e Edges) Horizontal() float64 { return e.Left + e.Right }

// Vertical returns the combined top and bottom widths.
func (e Edges) Vertical() float64 { return e.Top + e.Bottom }

// Zero reports whether all four sides are zero.
func (e Edges) Zero() bool {
	return e.Top == 0 && e.Right == 0 && e.Bottom == 0 && e.Left == 0
}

// Size is a width/height pair in device-independent pixels.
type Size struct {
	W, H float64
}
