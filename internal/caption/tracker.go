// Package caption tracks a platform's native caption container and emits
// deduplicated, normalized caption text.
package caption

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/parla-app/parla/internal/change"
	"github.com/parla-app/parla/internal/dom"
	"github.com/parla-app/parla/internal/loop"
	"github.com/parla-app/parla/internal/page"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Kind distinguishes caption events.
type Kind int

const (
	Changed Kind = iota + 1
	Cleared
)

func (k Kind) String() string {
	switch k {
	case Changed:
		return "changed"
	case Cleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Snapshot is the last caption text seen by a handle.
type Snapshot struct {
	RawText        string
	NormalizedText string
	Source         *html.Node
	SeenAtTick     uint64
}

// Event is emitted only when the normalized text differs from the previous
// snapshot. Text is empty for Cleared.
type Event struct {
	Kind     Kind
	Text     string
	Snapshot Snapshot
}

// Options bound the container search.
type Options struct {
	PollInterval time.Duration
	MaxAttempts  int
}

// DefaultOptions polls every 500ms for ten seconds.
func DefaultOptions() Options {
	return Options{PollInterval: 500 * time.Millisecond, MaxAttempts: 20}
}

// Tracker starts handles on one platform.
type Tracker struct {
	doc      *dom.Document
	sched    loop.Scheduler
	adapter  *change.Adapter
	platform page.Platform
	opts     Options
	logger   *zap.Logger
}

// NewTracker creates a tracker. Zero options fall back to the defaults.
func NewTracker(doc *dom.Document, sched loop.Scheduler, adapter *change.Adapter, platform page.Platform, opts Options, logger *zap.Logger) *Tracker {
	def := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	return &Tracker{
		doc:      doc,
		sched:    sched,
		adapter:  adapter,
		platform: platform,
		opts:     opts,
		logger:   logger.Named("caption"),
	}
}

// Handle is one running watch.
type Handle struct {
	t         *Tracker
	selectors []string
	sink      func(Event)

	policy   backoff.BackOff
	poll     loop.Timer
	attempts int

	container *html.Node
	sub       *change.Subscription
	detach    *change.Subscription

	snapshot Snapshot
	tick     uint64
	stopped  bool
}

// Start looks for the first container matching selectors and reports caption
// changes to sink. The first probe runs on the next loop turn.
func (t *Tracker) Start(selectors []string, sink func(Event)) *Handle {
	h := &Handle{
		t:         t,
		selectors: selectors,
		sink:      sink,
		policy: backoff.WithMaxRetries(
			backoff.NewConstantBackOff(t.opts.PollInterval),
			uint64(t.opts.MaxAttempts-1),
		),
	}
	t.sched.Post(h.probe)
	return h
}

// Stop cancels polling and unsubscribes. Safe to call more than once.
func (t *Tracker) Stop(h *Handle) {
	if h == nil || h.stopped {
		return
	}
	h.stopped = true
	if h.poll != nil {
		h.poll.Stop()
		h.poll = nil
	}
	h.unsubscribe()
}

// Snapshot returns the last seen caption.
func (h *Handle) Snapshot() Snapshot { return h.snapshot }

// Container returns the tracked container, or nil while searching.
func (h *Handle) Container() *html.Node { return h.container }

// Attempts is the number of probes made by the current search.
func (h *Handle) Attempts() int { return h.attempts }

func (h *Handle) probe() {
	if h.stopped {
		return
	}
	h.poll = nil
	h.attempts++

	if c := h.t.doc.QueryFirst(h.selectors...); c != nil {
		h.attach(c)
		return
	}

	wait := h.policy.NextBackOff()
	if wait == backoff.Stop {
		h.t.logger.Info("Caption container not found, giving up",
			zap.Strings("selectors", h.selectors),
			zap.Int("attempts", h.attempts))
		return
	}
	h.poll = h.t.sched.AfterFunc(wait, h.probe)
}

func (h *Handle) attach(c *html.Node) {
	h.container = c
	h.sub = h.t.adapter.Watch(c, func(change.Notification) { h.check() })
	h.detach = h.t.adapter.WatchDetach(c, h.reattach)
	h.t.logger.Debug("Caption container attached", zap.Int("attempts", h.attempts))
	h.check()
}

func (h *Handle) unsubscribe() {
	if h.sub != nil {
		h.sub.Close()
		h.sub = nil
	}
	if h.detach != nil {
		h.detach.Close()
		h.detach = nil
	}
	h.container = nil
}

// reattach drops the stale container and starts a fresh search.
func (h *Handle) reattach() {
	if h.stopped {
		return
	}
	h.unsubscribe()
	if h.snapshot.NormalizedText != "" {
		h.tick++
		h.snapshot = Snapshot{SeenAtTick: h.tick}
		h.sink(Event{Kind: Cleared, Snapshot: h.snapshot})
	}
	h.policy.Reset()
	h.attempts = 0
	h.t.sched.Post(h.probe)
}

func (h *Handle) check() {
	if h.stopped || h.container == nil {
		return
	}
	h.tick++
	raw := h.t.platform.ExtractText(h.container)
	text := Normalize(raw)
	if text == h.snapshot.NormalizedText {
		return
	}

	h.snapshot = Snapshot{
		RawText:        raw,
		NormalizedText: text,
		Source:         h.container,
		SeenAtTick:     h.tick,
	}
	if text == "" {
		h.sink(Event{Kind: Cleared, Snapshot: h.snapshot})
		return
	}
	h.sink(Event{Kind: Changed, Text: text, Snapshot: h.snapshot})
}
