package model

import "math"

// Rect is a top-left-origin rectangle in PDF points: x increases right, y
// increases down. It is distinct from [BBox] (bottom-left-origin, used by
// the page/element/geometry primitives pulled out of content streams); the
// two are converted with [BBoxToRect] and [RectToBBox], never mixed.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// NewRect builds a Rect, normalizing so that X0<=X1 and Y0<=Y1.
func NewRect(x0, y0, x1, y1 float64) Rect {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Width returns x1-x0.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns y1-y0.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Area returns the rectangle's area.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// IsEmpty reports whether the rectangle has non-positive width or height.
func (r Rect) IsEmpty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// CenterX returns the horizontal midpoint.
func (r Rect) CenterX() float64 { return (r.X0 + r.X1) / 2 }

// CenterY returns the vertical midpoint.
func (r Rect) CenterY() float64 { return (r.Y0 + r.Y1) / 2 }

// Intersects reports whether r and other overlap.
func (r Rect) Intersects(other Rect) bool {
	return !(r.X1 < other.X0 || r.X0 > other.X1 || r.Y1 < other.Y0 || r.Y0 > other.Y1)
}

// Intersection returns the overlapping rectangle, or the zero Rect if none.
func (r Rect) Intersection(other Rect) Rect {
	if !r.Intersects(other) {
		return Rect{}
	}
	return Rect{
		X0: math.Max(r.X0, other.X0),
		Y0: math.Max(r.Y0, other.Y0),
		X1: math.Min(r.X1, other.X1),
		Y1: math.Min(r.Y1, other.Y1),
	}
}

// Union returns the smallest rectangle enclosing both r and other.
func (r Rect) Union(other Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, other.X0),
		Y0: math.Min(r.Y0, other.Y0),
		X1: math.Max(r.X1, other.X1),
		Y1: math.Max(r.Y1, other.Y1),
	}
}

// Contains reports whether other lies entirely within r, up to eps tolerance.
func (r Rect) Contains(other Rect, eps float64) bool {
	return other.X0 >= r.X0-eps && other.Y0 >= r.Y0-eps &&
		other.X1 <= r.X1+eps && other.Y1 <= r.Y1+eps
}

// ClampTo clips r to lie within bounds, never producing a negative-area rect.
func (r Rect) ClampTo(bounds Rect) Rect {
	out := Rect{
		X0: math.Max(r.X0, bounds.X0),
		Y0: math.Max(r.Y0, bounds.Y0),
		X1: math.Min(r.X1, bounds.X1),
		Y1: math.Min(r.Y1, bounds.Y1),
	}
	if out.X1 < out.X0 {
		out.X1 = out.X0
	}
	if out.Y1 < out.Y0 {
		out.Y1 = out.Y0
	}
	return out
}

// Pad grows r by m on every side.
func (r Rect) Pad(m float64) Rect {
	return Rect{X0: r.X0 - m, Y0: r.Y0 - m, X1: r.X1 + m, Y1: r.Y1 + m}
}

// BBoxToRect flips a bottom-left-origin BBox into a top-left-origin Rect,
// given the page height it is measured against.
func BBoxToRect(b BBox, pageHeight float64) Rect {
	return Rect{
		X0: b.Left(),
		Y0: pageHeight - b.Top(),
		X1: b.Right(),
		Y1: pageHeight - b.Bottom(),
	}
}

// RectToBBox flips a top-left-origin Rect back into a bottom-left-origin
// BBox, the inverse of [BBoxToRect].
func RectToBBox(r Rect, pageHeight float64) BBox {
	return BBox{
		X:      r.X0,
		Y:      pageHeight - r.Y1,
		Width:  r.Width(),
		Height: r.Height(),
	}
}
