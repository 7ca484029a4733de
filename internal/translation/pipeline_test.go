package translation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parla-app/parla/internal/loop"
	"github.com/parla-app/parla/internal/messaging"
	"github.com/parla-app/parla/internal/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBus(t *testing.T, fn messaging.Handler) *messaging.Bus {
	t.Helper()
	bus := messaging.NewBus(zap.NewNop())
	bus.Handle(messaging.ActionTranslate, fn)
	return bus
}

func TestTranslateDeliversOnLoop(t *testing.T) {
	t.Parallel()
	var seen messaging.TranslateRequest
	bus := newBus(t, func(_ context.Context, msg messaging.Message) (any, error) {
		assert.NoError(t, msg.Decode(&seen))
		return messaging.TranslateResult{Translation: "Hola", DetectedLanguage: "en"}, nil
	})
	sched := loop.NewManual(time.Unix(0, 0))
	p := translation.New(bus, sched, "es", 0, zap.NewNop())

	var got []translation.Result
	p.Translate("Hello", "s1", func(r translation.Result) { got = append(got, r) })
	p.Wait()
	assert.Empty(t, got, "results wait for the loop")

	sched.Flush()
	require.Len(t, got, 1)
	assert.Equal(t, translation.Result{SessionID: "s1", Translation: "Hola", DetectedLanguage: "en"}, got[0])
	assert.Equal(t, messaging.TranslateRequest{Text: "Hello", SourceLang: "auto", TargetLang: "es"}, seen)
}

func TestTranslateFailureIsSingleAttempt(t *testing.T) {
	t.Parallel()
	calls := 0
	bus := newBus(t, func(context.Context, messaging.Message) (any, error) {
		calls++
		return nil, errors.New("translation failed")
	})
	sched := loop.NewManual(time.Unix(0, 0))
	p := translation.New(bus, sched, "es", 0, zap.NewNop())
	p.SetTargetLanguage("de")
	assert.Equal(t, "de", p.TargetLanguage())

	var got translation.Result
	p.Translate("Hello", "s2", func(r translation.Result) { got = r })
	p.Wait()
	sched.Flush()

	assert.Equal(t, 1, calls)
	assert.Equal(t, "s2", got.SessionID)
	assert.EqualError(t, got.Err, "translation failed")
	assert.Empty(t, got.Translation)
}
