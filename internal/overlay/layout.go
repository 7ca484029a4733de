package overlay

import (
	"fmt"
	"math"

	"github.com/parla-app/parla/internal/dom"
)

// Layout is the fixed, viewport-relative placement of the overlay. It does
// not depend on where the host draws its own captions.
type Layout struct {
	BottomOffset float64
	MaxWidth     float64
	SideMargin   float64
	LineHeight   float64
	Padding      float64
}

// DefaultLayout sits 120px above the bottom edge, centered.
func DefaultLayout() Layout {
	return Layout{
		BottomOffset: 120,
		MaxWidth:     900,
		SideMargin:   20,
		LineHeight:   36,
		Padding:      8,
	}
}

// Place computes the overlay region for a caption of lines lines.
func (l Layout) Place(viewport dom.Size, lines int) dom.Rect {
	width := math.Min(l.MaxWidth, viewport.Width-2*l.SideMargin)
	width = math.Max(width, 0)
	height := float64(lines)*l.LineHeight + 2*l.Padding
	return dom.Rect{
		X:      (viewport.Width - width) / 2,
		Y:      math.Max(viewport.Height-l.BottomOffset-height, 0),
		Width:  width,
		Height: height,
	}
}

func styleFor(r dom.Rect) string {
	return fmt.Sprintf("position:fixed;left:%gpx;top:%gpx;width:%gpx;z-index:2147483646", r.X, r.Y, r.Width)
}
