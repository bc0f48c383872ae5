package entity

// BoundingBox is an axis-aligned rectangle in image pixel space, as
// reported by the OCR engine. Boxes are read-only inputs; the pipeline
// derives normalized coordinates from them but never mutates them.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the rightmost X coordinate.
func (b BoundingBox) Right() float64 { return b.Left + b.Width }

// Bottom returns the lowest Y coordinate.
func (b BoundingBox) Bottom() float64 { return b.Top + b.Height }

// CenterY returns the vertical center of the box.
func (b BoundingBox) CenterY() float64 { return b.Top + b.Height/2 }

// CenterX returns the horizontal center of the box.
func (b BoundingBox) CenterX() float64 { return b.Left + b.Width/2 }

// Union returns the smallest box covering both b and o.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	left := b.Left
	if o.Left < left {
		left = o.Left
	}
	top := b.Top
	if o.Top < top {
		top = o.Top
	}
	right := b.Right()
	if o.Right() > right {
		right = o.Right()
	}
	bottom := b.Bottom()
	if o.Bottom() > bottom {
		bottom = o.Bottom()
	}
	return BoundingBox{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// NormalizedBox expresses a position as fractions of image size, so
// layout logic is independent of resolution.
// Invariant: 0 <= X,Y and X+Width <= 1, Y+Height <= 1 (clamped).
type NormalizedBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Normalize converts a pixel box into a NormalizedBox against the given
// image dimensions, clamping to the unit square.
func Normalize(b BoundingBox, imageWidth, imageHeight float64) NormalizedBox {
	if imageWidth <= 0 || imageHeight <= 0 {
		return NormalizedBox{}
	}
	n := NormalizedBox{
		X:      b.Left / imageWidth,
		Y:      b.Top / imageHeight,
		Width:  b.Width / imageWidth,
		Height: b.Height / imageHeight,
	}
	return n.Clamp()
}

// Clamp forces the box inside the unit square.
func (n NormalizedBox) Clamp() NormalizedBox {
	n.X = clamp01(n.X)
	n.Y = clamp01(n.Y)
	if n.Width < 0 {
		n.Width = 0
	}
	if n.Height < 0 {
		n.Height = 0
	}
	if n.X+n.Width > 1 {
		n.Width = 1 - n.X
	}
	if n.Y+n.Height > 1 {
		n.Height = 1 - n.Y
	}
	return n
}

// CenterY returns the vertical center in normalized space.
func (n NormalizedBox) CenterY() float64 { return n.Y + n.Height/2 }

// CenterX returns the horizontal center in normalized space.
func (n NormalizedBox) CenterX() float64 { return n.X + n.Width/2 }

// Bottom returns Y+Height.
func (n NormalizedBox) Bottom() float64 { return n.Y + n.Height }

// Contains reports whether the point (x, y) falls inside the box.
func (n NormalizedBox) Contains(x, y float64) bool {
	return x >= n.X && x <= n.X+n.Width && y >= n.Y && y <= n.Y+n.Height
}

// Union returns the smallest normalized box covering both n and o.
func (n NormalizedBox) Union(o NormalizedBox) NormalizedBox {
	left := n.X
	if o.X < left {
		left = o.X
	}
	top := n.Y
	if o.Y < top {
		top = o.Y
	}
	right := n.X + n.Width
	if o.X+o.Width > right {
		right = o.X + o.Width
	}
	bottom := n.Bottom()
	if o.Bottom() > bottom {
		bottom = o.Bottom()
	}
	return NormalizedBox{X: left, Y: top, Width: right - left, Height: bottom - top}.Clamp()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
