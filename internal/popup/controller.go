// Package popup is the singleton translation popup: placement, the
// translation lifecycle and the save and speak buttons.
package popup

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/parla-app/parla/internal/dom"
	"github.com/parla-app/parla/internal/loop"
	"github.com/parla-app/parla/internal/messaging"
	"github.com/parla-app/parla/internal/page"
	"github.com/parla-app/parla/internal/selection"
	"github.com/parla-app/parla/internal/speech"
	"github.com/parla-app/parla/internal/translation"
	"go.uber.org/zap"
	xhtml "golang.org/x/net/html"
)

// Phase is the popup lifecycle state.
type Phase string

const (
	PhaseClosed      Phase = "closed"
	PhasePositioning Phase = "positioning"
	PhaseLoading     Phase = "loading"
	PhaseReady       Phase = "ready"
	PhaseError       Phase = "error"
	PhaseClosing     Phase = "closing"
)

// DOM hooks.
const (
	PopupClass     = "parla-floating-popup"
	VisibleClass   = "parla-popup-visible"
	CloseID        = "parla-close"
	SaveID         = "parla-save"
	SpeakID        = "parla-speak"
	TranslationID  = "parla-translation"
	TranslationSel = ".parla-translation-text"
)

// Session is the single live popup. TranslationText is empty until ready.
type Session struct {
	ID               string
	SelectedText     string
	Context          page.Context
	Label            string
	Phase            Phase
	TranslationText  string
	DetectedLanguage string
	Position         dom.Rect

	element *xhtml.Node
	timers  []loop.Timer
}

// Element is the popup root.
func (s *Session) Element() *xhtml.Node { return s.element }

// Translator starts a translation and reports the result on the loop.
type Translator interface {
	Translate(text, sessionID string, done func(translation.Result))
}

// Saver persists a phrase and reports the result on the loop.
type Saver interface {
	Save(req messaging.SavePhraseRequest, done func(messaging.SavedPhrase, error))
}

// Options are the popup's geometry and timings.
type Options struct {
	Size           dom.Size
	Offset         float64
	Margin         float64
	ExitTransition time.Duration
	SaveCooldown   time.Duration
	SpeakCooldown  time.Duration
}

// DefaultOptions matches the stylesheet's popup size.
func DefaultOptions() Options {
	return Options{
		Size:           dom.Size{Width: 320, Height: 220},
		Offset:         10,
		Margin:         10,
		ExitTransition: 200 * time.Millisecond,
		SaveCooldown:   1000 * time.Millisecond,
		SpeakCooldown:  1500 * time.Millisecond,
	}
}

// Origin identifies the page context phrases are saved from.
type Origin struct {
	Label          string
	SourcePlatform string
}

// Controller owns the popup. All methods run on the loop.
type Controller struct {
	doc        *dom.Document
	sched      loop.Scheduler
	translator Translator
	saver      Saver
	synth      speech.Synthesizer
	notifier   *Notifier
	origin     Origin
	opts       Options
	logger     *zap.Logger

	session *Session
}

// NewController creates a controller for one page context.
func NewController(
	doc *dom.Document,
	sched loop.Scheduler,
	translator Translator,
	saver Saver,
	synth speech.Synthesizer,
	notifier *Notifier,
	origin Origin,
	opts Options,
	logger *zap.Logger,
) *Controller {
	if synth == nil {
		synth = speech.Unavailable{}
	}
	return &Controller{
		doc:        doc,
		sched:      sched,
		translator: translator,
		saver:      saver,
		synth:      synth,
		notifier:   notifier,
		origin:     origin,
		opts:       opts,
		logger:     logger.Named("popup"),
	}
}

// Session returns the live session, or nil when closed.
func (c *Controller) Session() *Session { return c.session }

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	if c.session == nil {
		return PhaseClosed
	}
	return c.session.Phase
}

// Contains reports whether n is inside the popup.
func (c *Controller) Contains(n *xhtml.Node) bool {
	return c.session != nil && dom.IsWithin(n, c.session.element)
}

// Show replaces any live session with one for ev. It is refused while the
// previous popup is still closing.
func (c *Controller) Show(ev selection.Event) (*Session, bool) {
	if c.session != nil && c.session.Phase == PhaseClosing {
		c.logger.Debug("Popup closing, ignoring show")
		return nil, false
	}
	c.teardown()

	s := &Session{
		ID:           uuid.NewString(),
		SelectedText: ev.Text,
		Context:      ev.Context,
		Label:        c.origin.Label,
		Phase:        PhasePositioning,
	}
	c.session = s

	s.Position = Place(Point{X: ev.OriginX, Y: ev.OriginY}, c.opts.Size, c.doc.Viewport(), c.opts.Offset, c.opts.Margin)
	if err := c.mount(s); err != nil {
		c.logger.Error("Failed to build popup", zap.Error(err))
		c.session = nil
		return nil, false
	}

	s.Phase = PhaseLoading
	c.logger.Debug("Popup shown",
		zap.String("session", s.ID),
		zap.String("context", string(s.Context)))
	c.translator.Translate(s.SelectedText, s.ID, c.onTranslation)
	return s, true
}

// Hide starts the exit transition. The popup is detached once it ends.
func (c *Controller) Hide() {
	s := c.session
	if s == nil || s.Phase == PhaseClosing {
		return
	}
	s.Phase = PhaseClosing
	c.doc.RemoveClass(s.element, VisibleClass)
	s.timers = append(s.timers, c.sched.AfterFunc(c.opts.ExitTransition, func() {
		if c.session == s {
			c.teardown()
		}
	}))
}

// Destroy detaches the popup immediately, whatever its phase.
func (c *Controller) Destroy() { c.teardown() }

func (c *Controller) teardown() {
	s := c.session
	if s == nil {
		return
	}
	for _, t := range s.timers {
		t.Stop()
	}
	if s.element.Parent != nil {
		c.doc.RemoveNode(s.element)
	}
	c.session = nil
}

func (c *Controller) onTranslation(res translation.Result) {
	s := c.session
	if s == nil || s.ID != res.SessionID || s.Phase != PhaseLoading {
		c.logger.Debug("Dropping stale translation", zap.String("session", res.SessionID))
		return
	}

	container := c.find(s, "#"+TranslationID)
	if res.Err != nil {
		s.Phase = PhaseError
		c.setHTML(container, `<div class="parla-error">Translation failed</div>`)
		return
	}

	s.Phase = PhaseReady
	s.TranslationText = res.Translation
	s.DetectedLanguage = res.DetectedLanguage
	c.logger.Info("Translation ready",
		zap.String("session", s.ID),
		zap.String("text", s.SelectedText),
		zap.String("translation", res.Translation))

	markup := fmt.Sprintf(`<div class="parla-translation-result">`+
		`<div class="parla-translation-label">Translation:</div>`+
		`<div class="parla-translation-text">%s</div>`, html.EscapeString(res.Translation))
	if res.Pronunciation != "" {
		markup += fmt.Sprintf(`<div class="parla-pronunciation">%s</div>`, html.EscapeString(res.Pronunciation))
	}
	c.setHTML(container, markup+`</div>`)
}

func (c *Controller) mount(s *Session) error {
	root := c.doc.CreateElement("div")
	c.doc.SetAttr(root, "class", PopupClass)
	c.doc.SetAttr(root, "data-parla-popup", "true")
	c.doc.SetAttr(root, "style", fmt.Sprintf("left:%gpx;top:%gpx", s.Position.X, s.Position.Y))
	if err := c.doc.SetInnerHTML(root, fmt.Sprintf(popupMarkup, html.EscapeString(s.SelectedText))); err != nil {
		return err
	}
	s.element = root
	c.doc.AppendChild(c.doc.Body(), root)
	c.sched.Post(func() {
		if c.session == s && s.Phase != PhaseClosing {
			c.doc.AddClass(root, VisibleClass)
		}
	})

	// The popup is an isolated input zone.
	for _, typ := range []string{dom.EventMouseDown, dom.EventMouseUp, dom.EventClick} {
		c.doc.AddEventListener(root, typ, func(ev *dom.Event) { ev.StopPropagation() })
	}
	c.doc.AddEventListener(root, dom.EventKeyDown, func(ev *dom.Event) {
		ev.StopPropagation()
		if ev.Key == "Escape" {
			c.Hide()
		}
	})

	c.doc.AddEventListener(c.find(s, "#"+CloseID), dom.EventClick, func(*dom.Event) { c.Hide() })
	c.doc.AddEventListener(c.find(s, "#"+SaveID), dom.EventClick, func(ev *dom.Event) { c.onSave(s, ev.CurrentTarget()) })
	c.doc.AddEventListener(c.find(s, "#"+SpeakID), dom.EventClick, func(ev *dom.Event) { c.onSpeak(s, ev.CurrentTarget()) })
	return nil
}

func (c *Controller) onSave(s *Session, button *xhtml.Node) {
	if s.Phase != PhaseReady {
		return
	}
	if !c.claimButton(s, button, c.opts.SaveCooldown) {
		return
	}

	req := messaging.SavePhraseRequest{
		Original:       s.SelectedText,
		Translation:    s.TranslationText,
		Context:        s.Label,
		SourceURL:      c.doc.URL(),
		SourcePlatform: c.origin.SourcePlatform,
	}
	c.saver.Save(req, func(_ messaging.SavedPhrase, err error) {
		if err != nil {
			c.notifier.Show("Could not save phrase")
			return
		}
		c.notifier.Show("✓ Phrase saved to Parla")
		if c.session == s {
			c.Hide()
		}
	})
}

func (c *Controller) onSpeak(s *Session, button *xhtml.Node) {
	if !c.claimButton(s, button, c.opts.SpeakCooldown) {
		return
	}

	err := c.synth.Speak(context.Background(), speech.NewUtterance(s.SelectedText, s.DetectedLanguage))
	switch {
	case errors.Is(err, speech.ErrUnavailable):
		c.notifier.Show("Text-to-speech unavailable")
	case err != nil:
		c.logger.Warn("Speech failed", zap.Error(err))
		c.notifier.Show("Could not play audio")
	default:
		c.notifier.Show("Playing...")
	}
}

// claimButton disables button for cooldown. It reports false if the button
// is already disabled.
func (c *Controller) claimButton(s *Session, button *xhtml.Node, cooldown time.Duration) bool {
	if _, disabled := dom.Attr(button, "disabled"); disabled {
		return false
	}
	c.doc.SetAttr(button, "disabled", "")
	s.timers = append(s.timers, c.sched.AfterFunc(cooldown, func() {
		c.doc.RemoveAttr(button, "disabled")
	}))
	return true
}

func (c *Controller) find(s *Session, selector string) *xhtml.Node {
	found := goquery.NewDocumentFromNode(s.element).Find(selector)
	if found.Length() == 0 {
		return nil
	}
	return found.Get(0)
}

func (c *Controller) setHTML(n *xhtml.Node, markup string) {
	if n == nil {
		return
	}
	if err := c.doc.SetInnerHTML(n, markup); err != nil {
		c.logger.Error("Failed to update popup", zap.Error(err))
	}
}

const popupMarkup = `<div class="parla-popup-header">` +
	`<span class="parla-popup-title">Parla</span>` +
	`<button class="parla-popup-close" id="parla-close">×</button>` +
	`</div>` +
	`<div class="parla-popup-content">` +
	`<div class="parla-selected-text">%s</div>` +
	`<div class="parla-translation-container" id="parla-translation">` +
	`<div class="parla-loading"><div class="parla-spinner"></div><span>Translating...</span></div>` +
	`</div>` +
	`</div>` +
	`<div class="parla-popup-actions">` +
	`<button class="parla-action-btn parla-btn-primary" id="parla-save">Save</button>` +
	`<button class="parla-action-btn parla-btn-secondary" id="parla-speak">Listen</button>` +
	`</div>`
