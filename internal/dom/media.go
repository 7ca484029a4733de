package dom

import "golang.org/x/net/html"

// Media is the playback handle behind a <video> or <audio> element.
type Media struct {
	paused bool
	pauses int
	plays  int
}

// MediaFor returns the playback handle for a media element, or nil when n is
// not one. Handles are dropped when the element leaves the tree.
func (d *Document) MediaFor(n *html.Node) *Media {
	if n == nil || n.Type != html.ElementNode || (n.Data != "video" && n.Data != "audio") {
		return nil
	}
	m, ok := d.media[n]
	if !ok {
		_, autoplay := Attr(n, "autoplay")
		m = &Media{paused: !autoplay}
		d.media[n] = m
	}
	return m
}

func (m *Media) Paused() bool { return m.paused }

func (m *Media) Pause() {
	if m.paused {
		return
	}
	m.paused = true
	m.pauses++
}

func (m *Media) Play() {
	if !m.paused {
		return
	}
	m.paused = false
	m.plays++
}

// PauseCount and PlayCount count effective state changes.
func (m *Media) PauseCount() int { return m.pauses }
func (m *Media) PlayCount() int  { return m.plays }
