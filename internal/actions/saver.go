// Package actions runs the popup's side effects against the background.
package actions

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

// Saver sends savePhrase requests. Callbacks run on the loop.
type Saver struct {
	bus     Requester
	sched   loop.Scheduler
	timeout time.Duration
	wg      conc.WaitGroup
	logger  *zap.Logger
}

// NewSaver creates a saver.
func NewSaver(bus Requester, sched loop.Scheduler, timeout time.Duration, logger *zap.Logger) *Saver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Saver{bus: bus, sched: sched, timeout: timeout, logger: logger.Named("actions")}
}

// Save persists req and reports the saved phrase or an error.
func (s *Saver) Save(req messaging.SavePhraseRequest, done func(messaging.SavedPhrase, error)) {
	msg, err := messaging.NewMessage(messaging.ActionSavePhrase, req)
	if err != nil {
		s.sched.Post(func() { done(messaging.SavedPhrase{}, err) })
		return
	}

	s.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		var saved messaging.SavedPhrase
		err := s.bus.Request(ctx, msg).Decode(&saved)
		if err != nil {
			s.logger.Warn("Save request failed", zap.Error(err))
		}
		s.sched.Post(func() { done(saved, err) })
	})
}

// Wait blocks until every in-flight save has posted its result.
func (s *Saver) Wait() { s.wg.Wait() }
