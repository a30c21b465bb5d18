package canvas

// Logical reference frame dimensions. All stored coordinates are
// expressed in this frame regardless of the client's viewport size.
const (
	RefWidth  = 1400.0
	RefHeight = 600.0
)

// Clamp pins a pixel position to the viewport bounds. Drag positions
// that leave the canvas are pinned to the edge rather than extrapolated.
func Clamp(p Point, viewportW, viewportH float64) Point {
	if p.X < 0 {
		p.X = 0
	} else if p.X > viewportW {
		p.X = viewportW
	}
	if p.Y < 0 {
		p.Y = 0
	} else if p.Y > viewportH {
		p.Y = viewportH
	}
	return p
}

// Normalize maps an on-screen pixel position to the logical reference
// frame. The input is clamped to the viewport first.
func Normalize(p Point, viewportW, viewportH float64) Point {
	p = Clamp(p, viewportW, viewportH)
	return Point{
		X: p.X / viewportW * RefWidth,
		Y: p.Y / viewportH * RefHeight,
	}
}

// Denormalize maps a logical position back to pixel space for the
// receiving viewport. It is the exact inverse of Normalize for
// in-bounds points.
func Denormalize(p Point, viewportW, viewportH float64) Point {
	return Point{
		X: p.X / RefWidth * viewportW,
		Y: p.Y / RefHeight * viewportH,
	}
}

// NormalizePath maps a whole pixel path into the logical frame.
func NormalizePath(path []Point, viewportW, viewportH float64) []Point {
	out := make([]Point, len(path))
	for i, p := range path {
		out[i] = Normalize(p, viewportW, viewportH)
	}
	return out
}

// DenormalizePath maps a whole logical path into pixel space.
func DenormalizePath(path []Point, viewportW, viewportH float64) []Point {
	out := make([]Point, len(path))
	for i, p := range path {
		out[i] = Denormalize(p, viewportW, viewportH)
	}
	return out
}
