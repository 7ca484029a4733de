package engine

import (
	"fmt"

	"github.com/parla-app/parla/internal/actions"
	"github.com/parla-app/parla/internal/caption"
	"github.com/parla-app/parla/internal/change"
	"github.com/parla-app/parla/internal/dom"
	"github.com/parla-app/parla/internal/overlay"
	"github.com/parla-app/parla/internal/page"
	"github.com/parla-app/parla/internal/playback"
	"github.com/parla-app/parla/internal/popup"
	"github.com/parla-app/parla/internal/selection"
	"github.com/parla-app/parla/internal/translation"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Page owns everything built for one navigation. It is discarded whole on
// the next one.
type Page struct {
	e          *Engine
	capability page.Capability
	platform   page.Platform
	region     string

	tracker  *caption.Tracker
	captions *caption.Handle
	overlay  *overlay.Renderer
	playback *playback.Coordinator
	resolver *selection.Resolver
	pipeline *translation.Pipeline
	saver    *actions.Saver
	notifier *popup.Notifier
	popup    *popup.Controller

	removers []func()
}

func newPage(e *Engine) (*Page, error) {
	capability := page.Classify(e.doc.URL(), e.doc.ContentType())
	platform := page.ForCapability(capability)
	logger := e.logger.With(zap.String("context", string(platform.Context())))

	if _, err := overlay.InstallStyles(e.doc, platform.NativeCaptions()); err != nil {
		return nil, fmt.Errorf("install overlay styles: %w", err)
	}

	p := &Page{
		e:          e,
		capability: capability,
		platform:   platform,
		region:     string(platform.Context()),
		playback:   playback.NewCoordinator(e.sched, e.opts.ResumeDelay, e.settings.AutoPauseEnabled, logger),
		resolver:   selection.NewResolver(logger),
		pipeline:   translation.New(e.bus, e.sched, e.settings.TargetLanguage, e.opts.RequestTimeout, logger),
		saver:      actions.NewSaver(e.bus, e.sched, e.opts.RequestTimeout, logger),
		notifier:   popup.NewNotifier(e.doc, e.sched, e.opts.ToastDuration, logger),
	}
	p.popup = popup.NewController(e.doc, e.sched, p.pipeline, p.saver, e.synth, p.notifier,
		popup.Origin{Label: platform.Label(e.doc), SourcePlatform: platform.SourcePlatform()}, e.opts.Popup, logger)
	p.overlay = overlay.NewRenderer(e.doc, overlayHandlers{p}, e.opts.Layout, logger)
	if page.HasCaptions(platform) {
		p.tracker = caption.NewTracker(e.doc, e.sched, change.NewAdapter(e.doc, logger), platform, e.opts.Caption, logger)
	}

	logger.Info("Page classified",
		zap.String("url", e.doc.URL()),
		zap.Bool("caption_track_a", capability.HasCaptionTrackA),
		zap.Bool("caption_track_b", capability.HasCaptionTrackB),
		zap.Bool("document_mode", capability.IsDocumentMode))
	return p, nil
}

// Capability is the classification this page was built for.
func (p *Page) Capability() page.Capability { return p.capability }

// Platform is the adapter selected for the page.
func (p *Page) Platform() page.Platform { return p.platform }

// Overlay returns the caption overlay renderer.
func (p *Page) Overlay() *overlay.Renderer { return p.overlay }

// Popup returns the popup controller.
func (p *Page) Popup() *popup.Controller { return p.popup }

// Playback returns the playback coordinator.
func (p *Page) Playback() *playback.Coordinator { return p.playback }

// Notifier returns the toast notifier.
func (p *Page) Notifier() *popup.Notifier { return p.notifier }

// Captions returns the caption watch, or nil on pages without captions.
func (p *Page) Captions() *caption.Handle { return p.captions }

// Region is the playback region id used by the overlay.
func (p *Page) Region() string { return p.region }

func (p *Page) start() {
	doc := p.e.doc
	root := doc.Root()
	p.removers = append(p.removers,
		doc.AddEventListener(root, dom.EventMouseUp, p.onMouseUp),
		doc.AddEventListener(root, dom.EventKeyDown, p.onKeyDown),
	)
	if p.tracker != nil {
		p.captions = p.tracker.Start(p.platform.CaptionContainers(), p.onCaption)
	}
}

func (p *Page) close() {
	for _, remove := range p.removers {
		remove()
	}
	p.removers = nil
	if p.tracker != nil {
		p.tracker.Stop(p.captions)
	}
	p.playback.Reset()
	p.overlay.Clear()
	p.popup.Destroy()
}

func (p *Page) active() bool { return p.e.settings.ExtensionActive }

func (p *Page) onCaption(ev caption.Event) {
	if !p.active() {
		return
	}
	switch ev.Kind {
	case caption.Changed:
		p.overlay.Render(ev.Text)
	case caption.Cleared:
		p.overlay.Clear()
	}
}

// onMouseUp handles free-text selections anywhere on the page. Releases
// already claimed by the overlay, or landing on the popup, the overlay or
// the host's captions, are left alone.
func (p *Page) onMouseUp(ev *dom.Event) {
	if !p.active() || p.resolver.Claimed(ev.Gesture) {
		return
	}
	if p.popup.Contains(ev.Target) || p.overlay.Contains(ev.Target) || p.inNativeCaptions(ev.Target) {
		return
	}
	sel := p.e.doc.Selection()
	p.show(ev.Gesture, selection.Input{
		Selection: sel.Text,
		Context:   p.platform.Context(),
		X:         ev.X,
		Y:         ev.Y,
	})
}

func (p *Page) onKeyDown(ev *dom.Event) {
	if ev.Key == KeyEscape {
		p.popup.Hide()
	}
}

func (p *Page) show(gesture uint64, in selection.Input) {
	sel := p.resolver.Resolve(gesture, in)
	if sel == nil {
		return
	}
	p.popup.Show(*sel)
}

func (p *Page) inNativeCaptions(n *html.Node) bool {
	for _, selector := range p.platform.NativeCaptions() {
		if p.e.doc.Closest(n, selector) != nil {
			return true
		}
	}
	return false
}

// media returns the page's playback handle. It returns a nil interface, not
// a nil *dom.Media, when there is none.
func (p *Page) media() playback.Media {
	selector := p.platform.MediaSelector()
	if selector == "" {
		return nil
	}
	m := p.e.doc.MediaFor(p.e.doc.QueryFirst(selector))
	if m == nil {
		return nil
	}
	return m
}

// overlayHandlers routes overlay interactions to the page's coordinator,
// resolver and popup.
type overlayHandlers struct{ p *Page }

func (h overlayHandlers) Enter(*overlay.Node) bool {
	if !h.p.active() {
		return false
	}
	return h.p.playback.Enter(h.p.region, h.p.media())
}

func (h overlayHandlers) Leave(*overlay.Node) {
	h.p.playback.Leave(h.p.region, h.p.media())
}

func (h overlayHandlers) Click(c overlay.Click) {
	if !h.p.active() {
		return
	}
	// A selection elsewhere on the page does not compete with the word.
	var selected string
	if sel := h.p.e.doc.Selection(); sel.Anchor != nil && dom.IsWithin(sel.Anchor, c.Node.Element) {
		selected = sel.Text
	}
	h.p.show(c.Gesture, selection.Input{
		Selection: selected,
		Word:      c.Word,
		Line:      c.Line,
		Context:   h.p.platform.Context(),
		X:         c.X,
		Y:         c.Y,
	})
}
