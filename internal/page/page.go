// Package page classifies the current page and provides the platform adapter
// the rest of the engine is parameterised by.
package page

import (
	"strings"

	"github.com/parla-app/parla/internal/dom"
	"golang.org/x/net/html"
)

// Context labels where a selection came from.
type Context string

const (
	ContextVideoA   Context = "video-platform-A"
	ContextVideoB   Context = "video-platform-B"
	ContextDocument Context = "document"
	ContextGeneric  Context = "generic-page"
)

// Capability is computed once per navigation and never mutated.
type Capability struct {
	HasCaptionTrackA bool `json:"has_caption_track_a"`
	HasCaptionTrackB bool `json:"has_caption_track_b"`
	IsDocumentMode   bool `json:"is_document_mode"`
}

// Classify inspects the page identity.
func Classify(location, contentType string) Capability {
	lower := strings.ToLower(location)
	return Capability{
		HasCaptionTrackA: strings.Contains(lower, "youtube.com/watch"),
		HasCaptionTrackB: strings.Contains(lower, "netflix.com/watch"),
		IsDocumentMode:   strings.Contains(lower, ".pdf") || strings.EqualFold(contentType, "application/pdf"),
	}
}

// Platform is the per-site adapter selected by the classifier.
type Platform interface {
	Context() Context
	// Label is the human-readable context saved with phrases.
	Label(doc *dom.Document) string
	// SourcePlatform is the backend's source_platform value.
	SourcePlatform() string
	// CaptionContainers are the selectors polled for the native caption
	// container, in preference order. Empty when the page has no captions.
	CaptionContainers() []string
	// NativeCaptions match the host's own caption nodes; clicks on them are
	// left to the platform and they are hidden while the overlay is active.
	NativeCaptions() []string
	// MediaSelector finds the playback element.
	MediaSelector() string
	// ExtractText reads the current caption text out of a container.
	ExtractText(container *html.Node) string
}

// ForCapability picks the adapter for a capability. Caption sites win over
// document mode.
func ForCapability(c Capability) Platform {
	switch {
	case c.HasCaptionTrackA:
		return YouTube{}
	case c.HasCaptionTrackB:
		return Netflix{}
	case c.IsDocumentMode:
		return Document{}
	default:
		return Generic{}
	}
}

// HasCaptions reports whether the platform tracks a caption container.
func HasCaptions(p Platform) bool {
	return len(p.CaptionContainers()) > 0
}
