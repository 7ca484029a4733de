package dom

import "golang.org/x/net/html"

// Op is the kind of tree mutation observed.
type Op string

const (
	OpInsert  Op = "insert"
	OpRemove  Op = "remove"
	OpText    Op = "text"
	OpAttr    Op = "attr"
	OpAttrDel Op = "attr_del"
)

// Record is a single mutation. Target is the node whose children, data or
// attributes changed; Node is the inserted or removed child.
type Record struct {
	Op       Op
	Target   *html.Node
	Node     *html.Node
	Name     string
	Value    string
	OldValue string
}

// ObserveOptions selects which mutations an observer receives.
type ObserveOptions struct {
	Subtree       bool
	ChildList     bool
	CharacterData bool
	Attributes    bool
}

// Observer receives batches of records for a subtree. Records produced in
// the same loop turn are delivered together, in mutation order.
type Observer struct {
	doc       *Document
	target    *html.Node
	opts      ObserveOptions
	fn        func([]Record)
	pending   []Record
	scheduled bool
	active    bool
}

// Observe starts watching target.
func (d *Document) Observe(target *html.Node, opts ObserveOptions, fn func([]Record)) *Observer {
	o := &Observer{doc: d, target: target, opts: opts, fn: fn, active: true}
	d.observers = append(d.observers, o)
	return o
}

// Disconnect stops delivery, including records already queued.
func (o *Observer) Disconnect() {
	if !o.active {
		return
	}
	o.active = false
	o.pending = nil
	obs := o.doc.observers
	for i, cur := range obs {
		if cur == o {
			o.doc.observers = append(obs[:i], obs[i+1:]...)
			break
		}
	}
}

// Target returns the observed node.
func (o *Observer) Target() *html.Node { return o.target }

func (o *Observer) wants(rec Record) bool {
	switch rec.Op {
	case OpInsert, OpRemove:
		if !o.opts.ChildList {
			return false
		}
	case OpText:
		if !o.opts.CharacterData {
			return false
		}
	case OpAttr, OpAttrDel:
		if !o.opts.Attributes {
			return false
		}
	}
	if rec.Target == o.target {
		return true
	}
	return o.opts.Subtree && IsWithin(rec.Target, o.target)
}

func (o *Observer) flush() {
	o.scheduled = false
	if !o.active || len(o.pending) == 0 {
		return
	}
	batch := o.pending
	o.pending = nil
	o.fn(batch)
}

func (d *Document) record(rec Record) {
	for _, o := range d.observers {
		if !o.wants(rec) {
			continue
		}
		o.pending = append(o.pending, rec)
		if !o.scheduled {
			o.scheduled = true
			d.sched.Post(o.flush)
		}
	}
}
