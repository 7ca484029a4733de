// Package overlay renders caption text as a clickable, word-segmented layer
// over the host's native captions.
package overlay

import (
	"strings"

	"github.com/parla-app/parla/internal/dom"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	ContainerID = "parla-static-subtitle-container"
	TextClass   = "subtitle-text"
	WordClass   = "subtitle-word"
	ActiveClass = "active"
)

// Word is one clickable token.
type Word struct {
	Text    string
	Line    int
	Element *html.Node
}

// Node is the live overlay. A new Node replaces the previous one on every
// render; nodes are never patched.
type Node struct {
	Region     dom.Rect
	Lines      []string
	Words      []Word
	Element    *html.Node
	Generation uint64
	Paused     bool
}

// Text is the full caption, lines joined by newlines.
func (n *Node) Text() string { return strings.Join(n.Lines, "\n") }

// Click is a pointer release on the overlay. Word is empty when the release
// landed on the container rather than a token.
type Click struct {
	Node    *Node
	Word    string
	Line    string
	X       float64
	Y       float64
	Gesture uint64
}

// Handlers receives overlay interactions. Enter reports whether playback was
// paused as a result.
type Handlers interface {
	Enter(n *Node) bool
	Leave(n *Node)
	Click(c Click)
}

// Renderer owns at most one live Node.
type Renderer struct {
	doc      *dom.Document
	handlers Handlers
	layout   Layout
	logger   *zap.Logger

	current    *Node
	generation uint64
	renders    int
}

// NewRenderer creates a renderer that mounts under the document body.
func NewRenderer(doc *dom.Document, handlers Handlers, layout Layout, logger *zap.Logger) *Renderer {
	return &Renderer{
		doc:      doc,
		handlers: handlers,
		layout:   layout,
		logger:   logger.Named("overlay"),
	}
}

// Active returns the visible node, or nil.
func (r *Renderer) Active() *Node { return r.current }

// Renders counts full rebuilds since creation.
func (r *Renderer) Renders() int { return r.renders }

// Contains reports whether n is inside the live overlay.
func (r *Renderer) Contains(n *html.Node) bool {
	return r.current != nil && dom.IsWithin(n, r.current.Element)
}

// Render disposes the current node and builds a new one for text. Blank
// text clears the overlay and returns nil.
func (r *Renderer) Render(text string) *Node {
	r.Clear()

	lines := splitLines(text)
	if len(lines) == 0 {
		return nil
	}

	r.generation++
	r.renders++
	n := &Node{Lines: lines, Generation: r.generation}
	n.Region = r.layout.Place(r.doc.Viewport(), len(lines))

	container := r.doc.CreateElement("div")
	r.doc.SetAttr(container, "id", ContainerID)
	r.doc.SetAttr(container, "style", styleFor(n.Region))
	body := r.doc.CreateElement("div")
	r.doc.SetAttr(body, "class", TextClass)
	r.doc.AppendChild(container, body)

	for i, line := range lines {
		if i > 0 {
			r.doc.AppendChild(body, r.doc.CreateElement("br"))
		}
		for j, tok := range strings.Fields(line) {
			if j > 0 {
				r.doc.AppendChild(body, r.doc.CreateText(" "))
			}
			span := r.doc.CreateElement("span")
			r.doc.SetAttr(span, "class", WordClass)
			r.doc.AppendChild(span, r.doc.CreateText(tok))
			r.doc.AppendChild(body, span)
			n.Words = append(n.Words, Word{Text: tok, Line: i, Element: span})
		}
	}
	n.Element = container

	r.wire(n)
	r.doc.AppendChild(r.doc.Body(), container)
	r.doc.AddClass(container, ActiveClass)
	r.current = n

	r.logger.Debug("Rendered overlay",
		zap.Uint64("generation", n.Generation),
		zap.Int("words", len(n.Words)))
	return n
}

// Clear removes the live node. Its listeners go with the subtree.
func (r *Renderer) Clear() {
	if r.current == nil {
		return
	}
	r.doc.RemoveNode(r.current.Element)
	r.current = nil
}

func (r *Renderer) wire(n *Node) {
	r.doc.AddEventListener(n.Element, dom.EventMouseEnter, func(*dom.Event) {
		n.Paused = r.handlers.Enter(n)
	})
	r.doc.AddEventListener(n.Element, dom.EventMouseLeave, func(*dom.Event) {
		r.handlers.Leave(n)
		n.Paused = false
	})

	for _, w := range n.Words {
		r.doc.AddEventListener(w.Element, dom.EventMouseUp, func(ev *dom.Event) {
			r.handlers.Click(Click{
				Node:    n,
				Word:    w.Text,
				Line:    n.Lines[w.Line],
				X:       ev.X,
				Y:       ev.Y,
				Gesture: ev.Gesture,
			})
		})
	}

	// Releases between tokens fall back to the whole caption.
	r.doc.AddEventListener(n.Element, dom.EventMouseUp, func(ev *dom.Event) {
		if dom.HasClass(ev.Target, WordClass) {
			return
		}
		r.handlers.Click(Click{
			Node:    n,
			Line:    n.Text(),
			X:       ev.X,
			Y:       ev.Y,
			Gesture: ev.Gesture,
		})
	})
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
