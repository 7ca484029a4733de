package replay

import (
	"strings"
	"time"

	"github.com/parla-app/parla/internal/dom"
	"github.com/parla-app/parla/internal/loop"
	"github.com/parla-app/parla/internal/overlay"
	xhtml "golang.org/x/net/html"
)

// Recorder turns the overlay's renders into a timed transcript: a cue opens
// when an overlay is attached to the body and closes when it is removed.
type Recorder struct {
	// OnCue, when set, runs on the loop each time a cue opens.
	OnCue func(Cue)

	doc      *dom.Document
	sched    loop.Scheduler
	observer *dom.Observer
	start    time.Time

	cues []Cue
	open *Cue
}

func NewRecorder(doc *dom.Document, sched loop.Scheduler) *Recorder {
	return &Recorder{doc: doc, sched: sched}
}

// Start begins recording. Times are relative to the call.
func (r *Recorder) Start() {
	r.start = r.sched.Now()
	r.observer = r.doc.Observe(r.doc.Body(), dom.ObserveOptions{ChildList: true}, r.onRecords)
}

// Stop ends recording and returns the transcript.
func (r *Recorder) Stop() []Cue {
	if r.observer != nil {
		r.observer.Disconnect()
		r.observer = nil
	}
	r.close()
	return append([]Cue(nil), r.cues...)
}

func (r *Recorder) onRecords(records []dom.Record) {
	for _, rec := range records {
		if !isOverlay(rec.Node) {
			continue
		}
		switch rec.Op {
		case dom.OpRemove:
			r.close()
		case dom.OpInsert:
			r.close()
			r.open = &Cue{
				Index: len(r.cues) + 1,
				Start: r.elapsed(),
				Text:  strings.TrimSpace(dom.InnerText(rec.Node)),
			}
			if r.OnCue != nil {
				r.OnCue(*r.open)
			}
		}
	}
}

func (r *Recorder) close() {
	if r.open == nil {
		return
	}
	r.open.End = r.elapsed()
	r.cues = append(r.cues, *r.open)
	r.open = nil
}

func (r *Recorder) elapsed() time.Duration { return r.sched.Now().Sub(r.start) }

func isOverlay(n *xhtml.Node) bool {
	id, _ := dom.Attr(n, "id")
	return id == overlay.ContainerID
}
