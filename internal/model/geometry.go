package model

// BoundingBox represents coordinates of a region in image pixels
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right is the exclusive right edge
func (b BoundingBox) Right() int { return b.X + b.Width }

// Bottom is the exclusive bottom edge
func (b BoundingBox) Bottom() int { return b.Y + b.Height }

// Area returns 0 for empty boxes
func (b BoundingBox) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width * b.Height
}

// Empty reports whether the box has no area
func (b BoundingBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Intersect returns the overlapping region, empty when there is none
func (b BoundingBox) Intersect(o BoundingBox) BoundingBox {
	x0, y0 := max(b.X, o.X), max(b.Y, o.Y)
	x1, y1 := min(b.Right(), o.Right()), min(b.Bottom(), o.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return BoundingBox{}
	}
	return BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Overlaps reports whether the boxes share any area
func (b BoundingBox) Overlaps(o BoundingBox) bool {
	return !b.Intersect(o).Empty()
}

// Union returns the smallest box containing both
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	x0, y0 := min(b.X, o.X), min(b.Y, o.Y)
	x1, y1 := max(b.Right(), o.Right()), max(b.Bottom(), o.Bottom())
	return BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// CenterY returns the vertical midpoint
func (b BoundingBox) CenterY() int { return b.Y + b.Height/2 }

// CenterX returns the horizontal midpoint
func (b BoundingBox) CenterX() int { return b.X + b.Width/2 }
