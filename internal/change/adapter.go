// Package change turns raw host mutations into one "text may have changed"
// notification per tracked container.
package change

import (
	"github.com/parla-app/parla/internal/dom"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Notification says a tracked container's subtree mutated during the last
// loop turn. Tick increases by one per delivered notification.
type Notification struct {
	Container *html.Node
	Records   int
	Tick      uint64
}

// Adapter owns the mutation observers for tracked containers.
type Adapter struct {
	doc    *dom.Document
	logger *zap.Logger
}

// NewAdapter creates an adapter over doc.
func NewAdapter(doc *dom.Document, logger *zap.Logger) *Adapter {
	return &Adapter{doc: doc, logger: logger.Named("change")}
}

// Subscription is a live watch on one container.
type Subscription struct {
	observer *dom.Observer
	tick     uint64
}

// Watch subscribes fn to subtree-wide, character-data-aware changes under
// container. Attribute churn is ignored.
func (a *Adapter) Watch(container *html.Node, fn func(Notification)) *Subscription {
	sub := &Subscription{}
	sub.observer = a.doc.Observe(container, dom.ObserveOptions{
		Subtree:       true,
		ChildList:     true,
		CharacterData: true,
	}, func(recs []dom.Record) {
		sub.tick++
		fn(Notification{Container: container, Records: len(recs), Tick: sub.tick})
	})

	a.logger.Debug("Watching container", zap.String("tag", container.Data))
	return sub
}

// Container returns the watched node.
func (s *Subscription) Container() *html.Node {
	return s.observer.Target()
}

// Close stops notifications.
func (s *Subscription) Close() {
	s.observer.Disconnect()
}

// WatchDetach calls fn once when the host removes container from the
// document. Only child-list changes are observed, from the document root.
func (a *Adapter) WatchDetach(container *html.Node, fn func()) *Subscription {
	sub := &Subscription{}
	sub.observer = a.doc.Observe(a.doc.Root(), dom.ObserveOptions{
		Subtree:   true,
		ChildList: true,
	}, func([]dom.Record) {
		if a.doc.Contains(container) {
			return
		}
		sub.Close()
		a.logger.Debug("Container detached", zap.String("tag", container.Data))
		fn()
	})
	return sub
}
