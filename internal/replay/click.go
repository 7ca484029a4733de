package replay

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/parla-app/parla/internal/dom"
	"github.com/parla-app/parla/internal/overlay"
	xhtml "golang.org/x/net/html"
)

// ClickWord releases the pointer over the first overlay word matching word,
// ignoring case and surrounding punctuation. It reports whether one was
// found.
func ClickWord(doc *dom.Document, word string) bool {
	want := bare(word)
	if want == "" {
		return false
	}

	var target *xhtml.Node
	doc.Find("#"+overlay.ContainerID+" ."+overlay.WordClass).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if bare(s.Text()) == want {
			target = s.Get(0)
			return false
		}
		return true
	})
	if target == nil {
		return false
	}

	vp := doc.Viewport()
	doc.Dispatch(&dom.Event{Type: dom.EventMouseUp, Target: target, X: vp.Width / 2, Y: vp.Height * 0.8})
	return true
}

func bare(s string) string {
	return strings.ToLower(strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	}))
}
