package dom

import "golang.org/x/net/html"

// Event types the engine listens for.
const (
	EventMouseDown  = "mousedown"
	EventMouseUp    = "mouseup"
	EventClick      = "click"
	EventMouseEnter = "mouseenter"
	EventMouseLeave = "mouseleave"
	EventKeyDown    = "keydown"
)

// Event is a pointer or keyboard event delivered by the host.
type Event struct {
	Type   string
	Target *html.Node
	X      float64
	Y      float64
	Key    string
	// Gesture identifies the pointer gesture the event belongs to. Hosts may
	// leave it zero and let Dispatch assign one.
	Gesture uint64

	current *html.Node
	stopped bool
}

// StopPropagation prevents listeners on ancestors from running.
func (e *Event) StopPropagation() { e.stopped = true }

func (e *Event) Stopped() bool { return e.stopped }

// CurrentTarget is the node whose listener is running.
func (e *Event) CurrentTarget() *html.Node { return e.current }

type listener struct {
	typ string
	fn  func(*Event)
}

// AddEventListener registers fn on n and returns a function removing it.
func (d *Document) AddEventListener(n *html.Node, typ string, fn func(*Event)) func() {
	l := &listener{typ: typ, fn: fn}
	d.listeners[n] = append(d.listeners[n], l)
	return func() {
		ls := d.listeners[n]
		for i, cur := range ls {
			if cur == l {
				d.listeners[n] = append(ls[:i], ls[i+1:]...)
				break
			}
		}
		if len(d.listeners[n]) == 0 {
			delete(d.listeners, n)
		}
	}
}

// ListenerCount returns the number of listeners attached to live nodes.
func (d *Document) ListenerCount() int {
	total := 0
	for _, ls := range d.listeners {
		total += len(ls)
	}
	return total
}

// Dispatch delivers ev to listeners on the target and, for bubbling events,
// its ancestors.
func (d *Document) Dispatch(ev *Event) {
	d.assignGesture(ev)

	for cur := ev.Target; cur != nil; cur = cur.Parent {
		ev.current = cur
		for _, l := range append([]*listener(nil), d.listeners[cur]...) {
			if l.typ == ev.Type {
				l.fn(ev)
			}
		}
		if ev.stopped || !bubbles(ev.Type) {
			break
		}
	}
	ev.current = nil
}

func bubbles(typ string) bool {
	return typ != EventMouseEnter && typ != EventMouseLeave
}

func (d *Document) assignGesture(ev *Event) {
	if ev.Gesture != 0 {
		return
	}
	switch ev.Type {
	case EventMouseDown:
		d.gesture++
		d.gestureOpen = true
	case EventMouseUp:
		if !d.gestureOpen {
			d.gesture++
		}
		d.gestureOpen = false
	case EventClick:
	default:
		return
	}
	ev.Gesture = d.gesture
}
