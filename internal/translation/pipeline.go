// Package translation issues one translate request per popup session and
// hands the result back on the loop, tagged with the session id.
package translation

import (
	"context"
	"time"

	"github.com/parla-app/parla/internal/loop"
	"github.com/parla-app/parla/internal/messaging"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Requester sends a bus request and waits for its response.
type Requester interface {
	Request(ctx context.Context, msg messaging.Message) messaging.Response
}

// Result is delivered exactly once per Translate call. Err is set for any
// failure; its text is generic.
type Result struct {
	SessionID        string
	Translation      string
	DetectedLanguage string
	Pronunciation    string
	Definitions      []string
	Err              error
}

// Pipeline runs requests off the loop and posts results back to it.
type Pipeline struct {
	bus     Requester
	sched   loop.Scheduler
	timeout time.Duration
	target  string
	wg      conc.WaitGroup
	logger  *zap.Logger
}

// New creates a pipeline translating into target.
func New(bus Requester, sched loop.Scheduler, target string, timeout time.Duration, logger *zap.Logger) *Pipeline {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Pipeline{
		bus:     bus,
		sched:   sched,
		timeout: timeout,
		target:  target,
		logger:  logger.Named("translation"),
	}
}

// SetTargetLanguage changes the language used by later requests.
func (p *Pipeline) SetTargetLanguage(lang string) { p.target = lang }

// TargetLanguage returns the current target.
func (p *Pipeline) TargetLanguage() string { return p.target }

// Translate sends a single request. There is no retry; done runs on the loop.
func (p *Pipeline) Translate(text, sessionID string, done func(Result)) {
	msg, err := messaging.NewMessage(messaging.ActionTranslate, messaging.TranslateRequest{
		Text:       text,
		SourceLang: "auto",
		TargetLang: p.target,
	})
	if err != nil {
		p.sched.Post(func() { done(Result{SessionID: sessionID, Err: err}) })
		return
	}

	p.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		res := Result{SessionID: sessionID}
		resp := p.bus.Request(ctx, msg)
		var out messaging.TranslateResult
		if err := resp.Decode(&out); err != nil {
			p.logger.Warn("Translation request failed",
				zap.String("session", sessionID),
				zap.Error(err))
			res.Err = err
		} else {
			res.Translation = out.Translation
			res.DetectedLanguage = out.DetectedLanguage
			res.Pronunciation = out.Pronunciation
			res.Definitions = out.Definitions
		}
		p.sched.Post(func() { done(res) })
	})
}

// Wait blocks until every in-flight request has posted its result.
func (p *Pipeline) Wait() { p.wg.Wait() }
