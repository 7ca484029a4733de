// Package speech is the text-to-speech capability used by the popup.
package speech

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const (
	DefaultRate = 0.9
	DefaultLang = "en-US"
)

// ErrUnavailable means the host has no speech synthesis.
var ErrUnavailable = errors.New("speech synthesis unavailable")

// Utterance is one fire-and-forget request.
type Utterance struct {
	Text string  `json:"text"`
	Lang string  `json:"lang"`
	Rate float64 `json:"rate"`
}

// NewUtterance speaks text in the detected language, falling back to
// DefaultLang when detection is missing or not a valid tag.
func NewUtterance(text, detected string) Utterance {
	lang := DefaultLang
	if detected != "" && detected != "auto" {
		if tag, err := language.Parse(detected); err == nil {
			lang = tag.String()
		}
	}
	return Utterance{Text: text, Lang: lang, Rate: DefaultRate}
}

// Synthesizer speaks utterances. Implementations must not block on
// playback.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) error
}

// Unavailable is the synthesizer for hosts without speech support.
type Unavailable struct{}

func (Unavailable) Speak(context.Context, Utterance) error { return ErrUnavailable }

// Recorder logs and keeps every utterance. It backs headless runs.
type Recorder struct {
	mu     sync.Mutex
	spoken []Utterance
	logger *zap.Logger
}

// NewRecorder creates a recorder.
func NewRecorder(logger *zap.Logger) *Recorder {
	return &Recorder{logger: logger.Named("speech")}
}

func (r *Recorder) Speak(_ context.Context, u Utterance) error {
	r.mu.Lock()
	r.spoken = append(r.spoken, u)
	r.mu.Unlock()

	r.logger.Info("Speaking",
		zap.String("text", u.Text),
		zap.String("lang", u.Lang),
		zap.Float64("rate", u.Rate))
	return nil
}

// Spoken returns a copy of the utterances so far.
func (r *Recorder) Spoken() []Utterance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Utterance(nil), r.spoken...)
}
