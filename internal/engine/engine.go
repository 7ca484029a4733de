// Package engine wires the caption tracker, overlay, playback coordinator,
// selection resolver and popup into one per-tab engine, and rebuilds them on
// every navigation.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/parla-app/parla/internal/caption"
	"github.com/parla-app/parla/internal/dom"
	"github.com/parla-app/parla/internal/loop"
	"github.com/parla-app/parla/internal/messaging"
	"github.com/parla-app/parla/internal/overlay"
	"github.com/parla-app/parla/internal/playback"
	"github.com/parla-app/parla/internal/popup"
	"github.com/parla-app/parla/internal/settings"
	"github.com/parla-app/parla/internal/speech"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// KeyEscape is the key that dismisses the popup.
const KeyEscape = "Escape"

// Options are the engine's timings and geometry.
type Options struct {
	Caption        caption.Options
	ResumeDelay    time.Duration
	SettleDelay    time.Duration
	RequestTimeout time.Duration
	ToastDuration  time.Duration
	Layout         overlay.Layout
	Popup          popup.Options
}

// DefaultOptions returns the production timings.
func DefaultOptions() Options {
	return Options{
		Caption:        caption.DefaultOptions(),
		ResumeDelay:    playback.DefaultResumeDelay,
		SettleDelay:    time.Second,
		RequestTimeout: 30 * time.Second,
		ToastDuration:  2 * time.Second,
		Layout:         overlay.DefaultLayout(),
		Popup:          popup.DefaultOptions(),
	}
}

// Engine runs on the loop. Bus broadcasts may arrive on any goroutine and are
// posted to the loop before they touch the document.
type Engine struct {
	doc    *dom.Document
	sched  loop.Scheduler
	bus    *messaging.Bus
	store  settings.Store
	synth  speech.Synthesizer
	opts   Options
	logger *zap.Logger

	settings settings.Settings
	page     *Page
	settle   loop.Timer
	wg       conc.WaitGroup

	unsubscribe func()
	unnavigate  func()
}

// New creates an engine for doc. synth may be nil.
func New(doc *dom.Document, sched loop.Scheduler, bus *messaging.Bus, store settings.Store, synth speech.Synthesizer, opts Options, logger *zap.Logger) *Engine {
	return &Engine{
		doc:      doc,
		sched:    sched,
		bus:      bus,
		store:    store,
		synth:    synth,
		opts:     opts,
		logger:   logger.Named("engine"),
		settings: settings.Defaults(),
	}
}

// Start reads the settings, subscribes to broadcasts and navigations, and
// builds the first page context on the next loop turn.
func (e *Engine) Start(ctx context.Context) error {
	s, err := settings.Load(ctx, e.store)
	if err != nil {
		return err
	}
	e.settings = s
	e.unsubscribe = e.bus.Subscribe(func(msg messaging.Message) {
		e.sched.Post(func() { e.onBroadcast(msg) })
	})
	e.unnavigate = e.doc.OnNavigate(e.onNavigate)
	e.sched.Post(e.setup)
	e.logger.Info("Engine started",
		zap.String("url", e.doc.URL()),
		zap.Bool("active", s.ExtensionActive))
	return nil
}

// Stop tears down the page context and drops every subscription.
func (e *Engine) Stop() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	if e.unnavigate != nil {
		e.unnavigate()
		e.unnavigate = nil
	}
	if e.settle != nil {
		e.settle.Stop()
		e.settle = nil
	}
	e.teardown()
	overlay.RemoveStyles(e.doc)
}

// Wait blocks until background work started by the engine has posted its
// results to the loop.
func (e *Engine) Wait() {
	e.wg.Wait()
	if p := e.page; p != nil {
		p.pipeline.Wait()
		p.saver.Wait()
	}
}

// Page returns the current page context, or nil while settling after a
// navigation.
func (e *Engine) Page() *Page { return e.page }

// Settings returns the settings the engine is running with.
func (e *Engine) Settings() settings.Settings { return e.settings }

func (e *Engine) setup() {
	if e.page != nil {
		return
	}
	p, err := newPage(e)
	if err != nil {
		e.logger.Error("Failed to set up page", zap.Error(err))
		return
	}
	e.page = p
	overlay.SetDisabled(e.doc, !e.settings.ExtensionActive)
	p.start()
}

func (e *Engine) teardown() {
	if e.page == nil {
		return
	}
	e.page.close()
	e.page = nil
}

func (e *Engine) onNavigate(location string) {
	e.logger.Debug("Navigated", zap.String("url", location))
	e.teardown()
	if e.settle != nil {
		e.settle.Stop()
	}
	e.settle = e.sched.AfterFunc(e.opts.SettleDelay, func() {
		e.settle = nil
		e.setup()
	})
}

func (e *Engine) onBroadcast(msg messaging.Message) {
	switch msg.Action {
	case messaging.ActionToggleExtension:
		var payload messaging.ToggleExtension
		if err := msg.Decode(&payload); err != nil {
			e.logger.Warn("Bad toggle payload", zap.Error(err))
			return
		}
		e.setActive(payload.Active)
	case messaging.ActionSettingsUpdated:
		e.reload()
	}
}

// reload re-reads the store off the loop and applies the result on it.
func (e *Engine) reload() {
	e.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.opts.RequestTimeout)
		defer cancel()
		s, err := settings.Load(ctx, e.store)
		if err != nil {
			e.logger.Warn("Failed to reload settings", zap.Error(err))
			return
		}
		e.sched.Post(func() { e.apply(s) })
	})
}

func (e *Engine) apply(s settings.Settings) {
	e.settings.AutoPauseEnabled = s.AutoPauseEnabled
	e.settings.TargetLanguage = s.TargetLanguage
	if p := e.page; p != nil {
		p.playback.SetAutoPause(s.AutoPauseEnabled)
		p.pipeline.SetTargetLanguage(s.TargetLanguage)
	}
	e.setActive(s.ExtensionActive)
}

func (e *Engine) setActive(active bool) {
	if e.settings.ExtensionActive == active {
		return
	}
	e.settings.ExtensionActive = active
	overlay.SetDisabled(e.doc, !active)
	e.logger.Info("Extension toggled", zap.Bool("active", active))

	p := e.page
	if p == nil {
		return
	}
	if !active {
		p.popup.Hide()
		p.overlay.Clear()
		p.playback.Reset()
		return
	}
	if p.captions != nil {
		if text := p.captions.Snapshot().NormalizedText; strings.TrimSpace(text) != "" {
			p.overlay.Render(text)
		}
	}
}
