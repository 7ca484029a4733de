// Package selection merges free-text selections and overlay clicks into one
// selected-text value, and keeps one trigger per pointer gesture.
package selection

import (
	"strings"

	"github.com/parla-app/parla/internal/page"
	"go.uber.org/zap"
)

// Event is the canonical selection handed to the popup.
type Event struct {
	Text    string       `json:"text"`
	Context page.Context `json:"context"`
	OriginX float64      `json:"origin_x"`
	OriginY float64      `json:"origin_y"`
}

// Input is everything known about a candidate trigger. Word and Line are
// empty for generic page selections.
type Input struct {
	Selection string
	Word      string
	Line      string
	Context   page.Context
	X         float64
	Y         float64
}

// Resolve picks the free selection, then the clicked word, then the line.
// It returns nil when all three are blank.
func Resolve(in Input) *Event {
	for _, candidate := range []string{in.Selection, in.Word, in.Line} {
		if text := strings.TrimSpace(candidate); text != "" {
			return &Event{Text: text, Context: in.Context, OriginX: in.X, OriginY: in.Y}
		}
	}
	return nil
}

const claimHistory = 64

// Resolver deduplicates triggers by gesture id. A gesture claimed by one
// source is not resolved again by another.
type Resolver struct {
	claims [claimHistory]uint64
	next   int
	logger *zap.Logger
}

// NewResolver creates an empty resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger.Named("selection")}
}

// Resolve runs Resolve for an unclaimed gesture and claims it when a
// selection results.
func (r *Resolver) Resolve(gesture uint64, in Input) *Event {
	if r.Claimed(gesture) {
		r.logger.Debug("Gesture already claimed", zap.Uint64("gesture", gesture))
		return nil
	}
	ev := Resolve(in)
	if ev != nil {
		r.Claim(gesture)
	}
	return ev
}

// Claim marks gesture as handled. It returns false if it was already
// claimed. Gesture zero is never recorded.
func (r *Resolver) Claim(gesture uint64) bool {
	if gesture == 0 {
		return true
	}
	if r.Claimed(gesture) {
		return false
	}
	r.claims[r.next] = gesture
	r.next = (r.next + 1) % claimHistory
	return true
}

// Claimed reports whether gesture is in the recent claim history.
func (r *Resolver) Claimed(gesture uint64) bool {
	if gesture == 0 {
		return false
	}
	for _, g := range r.claims {
		if g == gesture {
			return true
		}
	}
	return false
}
