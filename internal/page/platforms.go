package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/parla-app/parla/internal/dom"
	"golang.org/x/net/html"
)

// YouTube renders captions as one .ytp-caption-segment per visual line.
type YouTube struct{}

func (YouTube) Context() Context           { return ContextVideoA }
func (YouTube) Label(*dom.Document) string { return "YouTube" }
func (YouTube) SourcePlatform() string     { return "youtube" }
func (YouTube) MediaSelector() string      { return "video" }

func (YouTube) CaptionContainers() []string {
	return []string{".ytp-caption-window-container", "#movie_player", ".caption-window"}
}

func (YouTube) NativeCaptions() []string {
	return []string{".ytp-caption-segment", ".captions-text span", ".caption-window", "#eLangSubs"}
}

func (YouTube) ExtractText(container *html.Node) string {
	root := goquery.NewDocumentFromNode(container)
	segments := root.Find(".ytp-caption-segment")
	if segments.Length() == 0 {
		segments = root.Find("#eLangSubs")
	}

	var lines []string
	segments.Each(func(_ int, s *goquery.Selection) {
		lines = append(lines, dom.InnerText(s.Get(0)))
	})
	return strings.Join(lines, "\n")
}

// Netflix keeps each caption block in a text container with <br> line breaks.
type Netflix struct{}

func (Netflix) Context() Context           { return ContextVideoB }
func (Netflix) Label(*dom.Document) string { return "Netflix" }
func (Netflix) SourcePlatform() string     { return "netflix" }
func (Netflix) MediaSelector() string      { return "video" }

func (Netflix) CaptionContainers() []string {
	return []string{".player-timedtext"}
}

func (Netflix) NativeCaptions() []string {
	return []string{".player-timedtext", ".player-timedtext-text-container"}
}

func (Netflix) ExtractText(container *html.Node) string {
	var blocks []string
	goquery.NewDocumentFromNode(container).
		Find(".player-timedtext-text-container").
		Each(func(_ int, s *goquery.Selection) {
			blocks = append(blocks, dom.InnerText(s.Get(0)))
		})
	return strings.Join(blocks, "\n")
}

// Document is a PDF or other read-only document; it has no captions.
type Document struct{}

func (Document) Context() Context              { return ContextDocument }
func (Document) Label(*dom.Document) string    { return "PDF" }
func (Document) SourcePlatform() string        { return "web" }
func (Document) CaptionContainers() []string   { return nil }
func (Document) NativeCaptions() []string      { return nil }
func (Document) MediaSelector() string         { return "" }
func (Document) ExtractText(*html.Node) string { return "" }

// Generic is any other page.
type Generic struct{}

func (Generic) Context() Context { return ContextGeneric }

func (Generic) Label(doc *dom.Document) string {
	if host := doc.Hostname(); host != "" {
		return host
	}
	return "web"
}

func (Generic) SourcePlatform() string        { return "web" }
func (Generic) CaptionContainers() []string   { return nil }
func (Generic) NativeCaptions() []string      { return nil }
func (Generic) MediaSelector() string         { return "" }
func (Generic) ExtractText(*html.Node) string { return "" }
