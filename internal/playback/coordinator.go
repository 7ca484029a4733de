// Package playback serializes pause and resume requests from overlay regions
// onto the page's media element.
package playback

import (
	"time"

	"github.com/parla-app/parla/internal/loop"
	"go.uber.org/zap"
)

// DefaultResumeDelay tolerates the pointer hopping between adjacent words.
const DefaultResumeDelay = 300 * time.Millisecond

// Media is a playback handle.
type Media interface {
	Paused() bool
	Pause()
	Play()
}

type region struct {
	media  Media
	marked bool
	resume loop.Timer
}

// Coordinator tracks which regions paused playback. Each region owns its
// own resume timer.
type Coordinator struct {
	sched     loop.Scheduler
	delay     time.Duration
	autoPause bool
	regions   map[string]*region
	logger    *zap.Logger
}

// NewCoordinator creates a coordinator. A non-positive delay uses
// DefaultResumeDelay.
func NewCoordinator(sched loop.Scheduler, delay time.Duration, autoPause bool, logger *zap.Logger) *Coordinator {
	if delay <= 0 {
		delay = DefaultResumeDelay
	}
	return &Coordinator{
		sched:     sched,
		delay:     delay,
		autoPause: autoPause,
		regions:   make(map[string]*region),
		logger:    logger.Named("playback"),
	}
}

// SetAutoPause changes whether Enter pauses playing media. Existing marks
// are kept so pending resumes still happen.
func (c *Coordinator) SetAutoPause(enabled bool) { c.autoPause = enabled }

// AutoPause reports the current setting.
func (c *Coordinator) AutoPause() bool { return c.autoPause }

// Enter cancels the region's pending resume, or pauses m if it is playing and
// auto-pause is on. It reports whether the region holds a pause.
func (c *Coordinator) Enter(id string, m Media) bool {
	r := c.region(id)
	if r.resume != nil {
		r.resume.Stop()
		r.resume = nil
		c.logger.Debug("Cancelled resume", zap.String("region", id))
	}
	if r.marked {
		return true
	}
	if !c.autoPause || m == nil || m.Paused() {
		return false
	}

	m.Pause()
	r.media = m
	r.marked = true
	c.logger.Debug("Paused media", zap.String("region", id))
	return true
}

// Leave schedules a resume for a region that paused playback. Unmarked
// regions are ignored.
func (c *Coordinator) Leave(id string, _ Media) {
	r, ok := c.regions[id]
	if !ok || !r.marked || r.resume != nil {
		return
	}
	r.resume = c.sched.AfterFunc(c.delay, func() {
		r.resume = nil
		if !r.marked {
			return
		}
		r.marked = false
		if r.media.Paused() {
			r.media.Play()
			c.logger.Debug("Resumed media", zap.String("region", id))
		}
	})
}

// Pending reports whether the region has a scheduled resume.
func (c *Coordinator) Pending(id string) bool {
	r, ok := c.regions[id]
	return ok && r.resume != nil
}

// Marked reports whether the region currently holds a pause.
func (c *Coordinator) Marked(id string) bool {
	r, ok := c.regions[id]
	return ok && r.marked
}

// Reset cancels every pending resume, plays media that a region still holds
// paused and forgets all regions.
func (c *Coordinator) Reset() {
	for id, r := range c.regions {
		if r.resume != nil {
			r.resume.Stop()
		}
		if r.marked && r.media.Paused() {
			r.media.Play()
			c.logger.Debug("Resumed media on reset", zap.String("region", id))
		}
		delete(c.regions, id)
	}
}

func (c *Coordinator) region(id string) *region {
	r, ok := c.regions[id]
	if !ok {
		r = &region{}
		c.regions[id] = r
	}
	return r
}
