// Package dom models the host page the engine is injected into. The tree is
// owned by the host: the engine may attach its own nodes and listeners but
// must re-query host nodes rather than caching them, since the host can
// replace any subtree at any time.
package dom

import (
	"bytes"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/parla-app/parla/internal/loop"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Size is a width/height pair in CSS pixels.
type Size struct {
	Width  float64
	Height float64
}

// Rect is a positioned box in viewport coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Selection is the page's current free-text selection.
type Selection struct {
	Text   string
	Anchor *html.Node
}

// Document is a single-threaded host document. All methods must be called
// from the loop goroutine.
type Document struct {
	root        *html.Node
	sched       loop.Scheduler
	location    string
	contentType string
	viewport    Size

	listeners map[*html.Node][]*listener
	observers []*Observer
	media     map[*html.Node]*Media
	selection Selection

	gesture     uint64
	gestureOpen bool

	navListeners []func(string)
	navIDs       []uint64
	navSeq       uint64
}

// Parse reads an HTML page into a Document.
func Parse(r io.Reader, sched loop.Scheduler) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return NewDocument(root, sched), nil
}

// NewDocument wraps an existing tree.
func NewDocument(root *html.Node, sched loop.Scheduler) *Document {
	return &Document{
		root:        root,
		sched:       sched,
		contentType: "text/html",
		viewport:    Size{Width: 1280, Height: 720},
		listeners:   make(map[*html.Node][]*listener),
		media:       make(map[*html.Node]*Media),
	}
}

// SetLocation sets the page URL and content type without notifying anyone.
// Hosts use Navigate for single-page-app route changes.
func (d *Document) SetLocation(location, contentType string) {
	d.location = location
	if contentType != "" {
		d.contentType = contentType
	}
}

func (d *Document) URL() string         { return d.location }
func (d *Document) ContentType() string { return d.contentType }

// Hostname returns the host part of the page URL, or "" when unparsable.
func (d *Document) Hostname() string {
	u, err := url.Parse(d.location)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func (d *Document) SetViewport(s Size) { d.viewport = s }
func (d *Document) Viewport() Size     { return d.viewport }

func (d *Document) Root() *html.Node { return d.root }

// Body returns the body element, creating one if the page has none.
func (d *Document) Body() *html.Node {
	if n := d.QueryFirst("body"); n != nil {
		return n
	}
	body := d.CreateElement("body")
	parent := d.QueryFirst("html")
	if parent == nil {
		parent = d.root
	}
	d.AppendChild(parent, body)
	return body
}

// Head returns the head element, creating one if the page has none.
func (d *Document) Head() *html.Node {
	if n := d.QueryFirst("head"); n != nil {
		return n
	}
	head := d.CreateElement("head")
	parent := d.QueryFirst("html")
	if parent == nil {
		parent = d.root
	}
	d.AppendChild(parent, head)
	return head
}

// Find runs a CSS selector over the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return goquery.NewDocumentFromNode(d.root).Find(selector)
}

// QueryFirst returns the first node matching any of the selectors, trying
// them in order.
func (d *Document) QueryFirst(selectors ...string) *html.Node {
	for _, sel := range selectors {
		if found := d.Find(sel); found.Length() > 0 {
			return found.Get(0)
		}
	}
	return nil
}

// Closest returns n or its nearest ancestor matching selector.
func (d *Document) Closest(n *html.Node, selector string) *html.Node {
	if n == nil {
		return nil
	}
	found := goquery.NewDocumentFromNode(n).Closest(selector)
	if found.Length() == 0 {
		return nil
	}
	return found.Get(0)
}

// Contains reports whether n is attached to this document.
func (d *Document) Contains(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == d.root {
			return true
		}
	}
	return false
}

// IsWithin reports whether n is ancestor itself or one of its descendants.
func IsWithin(n, ancestor *html.Node) bool {
	if ancestor == nil {
		return false
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// CreateElement builds a detached element.
func (d *Document) CreateElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// CreateText builds a detached text node.
func (d *Document) CreateText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// AppendChild attaches child under parent and records a child-list mutation.
func (d *Document) AppendChild(parent, child *html.Node) {
	if child.Parent != nil {
		d.RemoveNode(child)
	}
	parent.AppendChild(child)
	d.record(Record{Op: OpInsert, Target: parent, Node: child})
}

// RemoveNode detaches n. Listeners and media handles registered inside the
// removed subtree are dropped with it.
func (d *Document) RemoveNode(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	d.record(Record{Op: OpRemove, Target: parent, Node: n})
	parent.RemoveChild(n)
	d.forget(n)
}

// RemoveChildren detaches every child of n.
func (d *Document) RemoveChildren(n *html.Node) {
	for n.FirstChild != nil {
		d.RemoveNode(n.FirstChild)
	}
}

// SetText replaces the character data of a text node, or the children of an
// element with a single text node.
func (d *Document) SetText(n *html.Node, text string) {
	if n.Type == html.TextNode {
		old := n.Data
		if old == text {
			return
		}
		n.Data = text
		d.record(Record{Op: OpText, Target: n, Value: text, OldValue: old})
		return
	}
	d.RemoveChildren(n)
	if text != "" {
		d.AppendChild(n, d.CreateText(text))
	}
}

// SetInnerHTML replaces the children of n with a parsed fragment.
func (d *Document) SetInnerHTML(n *html.Node, fragment string) error {
	context := &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: n.DataAtom}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return err
	}
	d.RemoveChildren(n)
	for _, child := range nodes {
		d.AppendChild(n, child)
	}
	return nil
}

// Attr returns the value of an attribute.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets an attribute and records the mutation.
func (d *Document) SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			if a.Val == val {
				return
			}
			n.Attr[i].Val = val
			d.record(Record{Op: OpAttr, Target: n, Name: key, Value: val, OldValue: a.Val})
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	d.record(Record{Op: OpAttr, Target: n, Name: key, Value: val})
}

// RemoveAttr deletes an attribute.
func (d *Document) RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			d.record(Record{Op: OpAttrDel, Target: n, Name: key, OldValue: a.Val})
			return
		}
	}
}

// HasClass reports whether n carries class name.
func HasClass(n *html.Node, name string) bool {
	v, _ := Attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == name {
			return true
		}
	}
	return false
}

func (d *Document) AddClass(n *html.Node, name string) {
	if HasClass(n, name) {
		return
	}
	v, _ := Attr(n, "class")
	d.SetAttr(n, "class", strings.TrimSpace(v+" "+name))
}

func (d *Document) RemoveClass(n *html.Node, name string) {
	v, ok := Attr(n, "class")
	if !ok {
		return
	}
	var kept []string
	for _, c := range strings.Fields(v) {
		if c != name {
			kept = append(kept, c)
		}
	}
	d.SetAttr(n, "class", strings.Join(kept, " "))
}

// Select sets the current free-text selection, anchored at a node.
func (d *Document) Select(text string, anchor *html.Node) {
	d.selection = Selection{Text: text, Anchor: anchor}
}

func (d *Document) ClearSelection()      { d.selection = Selection{} }
func (d *Document) Selection() Selection { return d.selection }

// Render serialises n for logs and tests.
func Render(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func (d *Document) forget(n *html.Node) {
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		delete(d.listeners, cur)
		delete(d.media, cur)
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	if d.selection.Anchor != nil && IsWithin(d.selection.Anchor, n) {
		d.selection = Selection{}
	}
}
