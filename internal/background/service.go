// Package background serves bus requests from page engines by calling the
// Parla backend.
package background

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/parla-app/parla/internal/backend"
	"github.com/parla-app/parla/internal/messaging"
	"github.com/parla-app/parla/internal/settings"
	"go.uber.org/zap"
)

// Backend is the subset of the HTTP client the handlers use.
type Backend interface {
	Translate(ctx context.Context, req backend.TranslateRequest) (*backend.TranslateResponse, error)
	SavePhrase(ctx context.Context, req backend.PhraseRequest) (*backend.Phrase, error)
}

// ErrEmptyText rejects requests with nothing to translate or save.
var ErrEmptyText = errors.New("empty text")

// Service registers translate and savePhrase handlers on a bus.
type Service struct {
	bus     *messaging.Bus
	backend Backend
	store   settings.Store
	logger  *zap.Logger
}

// New creates the service. store supplies the target language when a request
// leaves it empty.
func New(bus *messaging.Bus, b Backend, store settings.Store, logger *zap.Logger) *Service {
	return &Service{
		bus:     bus,
		backend: b,
		store:   store,
		logger:  logger.Named("background"),
	}
}

// Register installs the handlers.
func (s *Service) Register() {
	s.bus.Handle(messaging.ActionTranslate, s.translate)
	s.bus.Handle(messaging.ActionSavePhrase, s.savePhrase)
}

func (s *Service) translate(ctx context.Context, msg messaging.Message) (any, error) {
	var req messaging.TranslateRequest
	if err := msg.Decode(&req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	source := req.SourceLang
	if source == "" {
		source = "auto"
	}
	target := req.TargetLang
	if target == "" {
		current, err := settings.Load(ctx, s.store)
		if err != nil {
			s.logger.Warn("Using default target language", zap.Error(err))
		}
		target = current.TargetLanguage
	}

	resp, err := s.backend.Translate(ctx, backend.TranslateRequest{
		Text:           req.Text,
		SourceLanguage: source,
		TargetLanguage: target,
	})
	if err != nil {
		s.logger.Error("Translation failed", zap.Error(err))
		return nil, errors.New("translation failed")
	}

	return messaging.TranslateResult{
		Translation:      resp.TranslatedText,
		DetectedLanguage: resp.DetectedLanguage,
		Pronunciation:    resp.Pronunciation,
		Definitions:      resp.Definitions,
	}, nil
}

func (s *Service) savePhrase(ctx context.Context, msg messaging.Message) (any, error) {
	var req messaging.SavePhraseRequest
	if err := msg.Decode(&req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Original) == "" {
		return nil, ErrEmptyText
	}

	platform := req.SourcePlatform
	if platform == "" {
		platform = SourcePlatform(req.Context)
	}
	phrase, err := s.backend.SavePhrase(ctx, backend.PhraseRequest{
		Text:           req.Original,
		Translation:    req.Translation,
		SourceURL:      req.SourceURL,
		SourcePlatform: platform,
		Context:        req.Context,
	})
	if err != nil {
		s.logger.Error("Save failed", zap.Error(err))
		return nil, errors.New("save failed")
	}

	saved := messaging.SavedPhrase{
		ID:             phrase.ID,
		Text:           phrase.Text,
		Translation:    phrase.Translation,
		SourceURL:      phrase.SourceURL,
		SourcePlatform: phrase.SourcePlatform,
		Context:        phrase.Context,
	}
	if !phrase.CreatedAt.IsZero() {
		saved.CreatedAt = phrase.CreatedAt.Format(time.RFC3339)
	}

	if added, err := messaging.NewMessage(messaging.ActionPhraseAdded, saved); err == nil {
		s.bus.Broadcast(added)
	}
	return saved, nil
}

// SourcePlatform maps a context label to the backend's source_platform for
// requests that do not name one.
func SourcePlatform(label string) string {
	switch strings.ToLower(label) {
	case "youtube":
		return "youtube"
	case "netflix":
		return "netflix"
	default:
		return "web"
	}
}
