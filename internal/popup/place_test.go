package popup_test

import (
	"testing"

	"github.com/parla-app/parla/internal/dom"
	"github.com/parla-app/parla/internal/popup"
	"github.com/stretchr/testify/assert"
)

func TestPlace(t *testing.T) {
	t.Parallel()
	size := dom.Size{Width: 300, Height: 200}
	viewport := dom.Size{Width: 1000, Height: 800}

	tests := []struct {
		name   string
		cursor popup.Point
		want   dom.Rect
	}{
		{"right and below", popup.Point{X: 100, Y: 100}, dom.Rect{X: 110, Y: 110, Width: 300, Height: 200}},
		{"flip left", popup.Point{X: 900, Y: 100}, dom.Rect{X: 590, Y: 110, Width: 300, Height: 200}},
		{"flip above", popup.Point{X: 100, Y: 700}, dom.Rect{X: 110, Y: 490, Width: 300, Height: 200}},
		{"clamp to margin", popup.Point{X: -20, Y: -20}, dom.Rect{X: 10, Y: 10, Width: 300, Height: 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, popup.Place(tt.cursor, size, viewport, 10, 10))
		})
	}

	tiny := popup.Place(popup.Point{X: 50, Y: 50}, size, dom.Size{Width: 200, Height: 100}, 10, 10)
	assert.Equal(t, 10.0, tiny.X)
	assert.Equal(t, 10.0, tiny.Y)
}
