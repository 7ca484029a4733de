package popup

import (
	"math"

	"github.com/parla-app/parla/internal/dom"
)

// Point is a cursor position in viewport coordinates.
type Point struct {
	X float64
	Y float64
}

// Place puts a box of size next to cursor: right of and below it by offset,
// flipped to the left or above when that would overflow the viewport, then
// clamped to margin from every edge.
func Place(cursor Point, size, viewport dom.Size, offset, margin float64) dom.Rect {
	left := cursor.X + offset
	top := cursor.Y + offset

	if left+size.Width > viewport.Width {
		left = cursor.X - size.Width - offset
	}
	if top+size.Height > viewport.Height {
		top = cursor.Y - size.Height - offset
	}

	left = math.Max(margin, math.Min(left, viewport.Width-size.Width-margin))
	top = math.Max(margin, math.Min(top, viewport.Height-size.Height-margin))

	return dom.Rect{X: left, Y: top, Width: size.Width, Height: size.Height}
}
