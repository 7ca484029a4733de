package replay

import (
	"errors"
	"html"
	"strings"

	"github.com/parla-app/parla/internal/dom"
	"github.com/parla-app/parla/internal/loop"
	"github.com/parla-app/parla/internal/page"
	"go.uber.org/zap"
	xhtml "golang.org/x/net/html"
)

var (
	ErrNoCaptions        = errors.New("platform has no caption container")
	ErrContainerNotFound = errors.New("caption container not found")
)

// Player writes cues into the native caption container at their start times
// and clears them at their end times. All methods run on the loop.
type Player struct {
	doc      *dom.Document
	sched    loop.Scheduler
	platform page.Platform
	cues     []Cue
	logger   *zap.Logger

	container *xhtml.Node
	showing   int
	shown     int
	timers    []loop.Timer
	done      chan struct{}
}

func NewPlayer(doc *dom.Document, sched loop.Scheduler, platform page.Platform, cues []Cue, logger *zap.Logger) *Player {
	return &Player{
		doc:      doc,
		sched:    sched,
		platform: platform,
		cues:     cues,
		logger:   logger.Named("replay"),
		done:     make(chan struct{}),
	}
}

// Start schedules every cue relative to the scheduler's current time.
func (p *Player) Start() error {
	if !page.HasCaptions(p.platform) {
		return ErrNoCaptions
	}
	p.container = p.doc.QueryFirst(p.platform.CaptionContainers()...)
	if p.container == nil {
		return ErrContainerNotFound
	}

	var end Cue
	for i, cue := range p.cues {
		slot := i + 1
		p.timers = append(p.timers,
			p.sched.AfterFunc(cue.Start, func() { p.show(slot, cue) }),
			p.sched.AfterFunc(cue.End, func() { p.hide(slot) }),
		)
		if cue.End > end.End {
			end = cue
		}
	}
	p.timers = append(p.timers, p.sched.AfterFunc(end.End, func() {
		p.logger.Info("Replay finished", zap.Int("cues", p.shown))
		close(p.done)
	}))
	p.logger.Info("Replay started",
		zap.Int("cues", len(p.cues)),
		zap.Duration("length", end.End))
	return nil
}

// Stop cancels every cue not yet shown or hidden.
func (p *Player) Stop() {
	for _, t := range p.timers {
		t.Stop()
	}
	p.timers = nil
}

// Done is closed after the last cue ends.
func (p *Player) Done() <-chan struct{} { return p.done }

// Shown counts cues written so far.
func (p *Player) Shown() int { return p.shown }

func (p *Player) show(slot int, cue Cue) {
	if err := p.doc.SetInnerHTML(p.container, Markup(p.platform, cue.Text)); err != nil {
		p.logger.Warn("Failed to write cue", zap.Int("cue", cue.Index), zap.Error(err))
		return
	}
	p.showing = slot
	p.shown++
	p.logger.Debug("Cue shown", zap.Int("cue", cue.Index), zap.Duration("at", cue.Start))
}

// hide clears the container unless a later cue has replaced this one.
func (p *Player) hide(slot int) {
	if p.showing != slot {
		return
	}
	p.showing = 0
	p.doc.RemoveChildren(p.container)
}

// Markup renders caption text the way the platform's player does.
func Markup(platform page.Platform, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = html.EscapeString(line)
	}

	switch platform.(type) {
	case page.Netflix:
		return `<div class="player-timedtext-text-container"><span>` + strings.Join(lines, "<br>") + `</span></div>`
	default:
		var sb strings.Builder
		for _, line := range lines {
			sb.WriteString(`<span class="ytp-caption-segment">` + line + `</span>`)
		}
		return sb.String()
	}
}
