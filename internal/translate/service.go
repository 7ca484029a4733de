package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/parla-app/parla/internal/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
)

var (
	ErrEmptyText       = errors.New("text is empty")
	ErrTextTooLong     = errors.New("text is too long")
	ErrInvalidLanguage = errors.New("invalid language")
	ErrUnknownEngine   = errors.New("unknown translation engine")
)

// MaxTextLength bounds a single phrase, in characters.
const MaxTextLength = 1000

// FlightTimeout bounds one engine call. The call outlives the request that
// started it so callers sharing the flight are unaffected by its cancellation.
const FlightTimeout = 30 * time.Second

// Cache stores finished translations. *cache.TranslationCache satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) (*cache.Entry, bool, error)
	Set(ctx context.Context, key string, entry *cache.Entry) error
}

// EngineResolver returns the engine name currently selected in settings.
type EngineResolver func() string

// Service picks an engine per request, collapses identical concurrent
// requests and caches results.
type Service struct {
	engines  map[string]Translator
	order    []string
	resolver EngineResolver
	cache    Cache
	group    singleflight.Group
	logger   *zap.Logger
}

// NewService creates a service over engines, tried in the given order when
// no engine is selected. With no engines, the mock engine is registered.
func NewService(engines []Translator, resolver EngineResolver, c Cache, logger *zap.Logger) *Service {
	s := &Service{
		engines:  make(map[string]Translator),
		resolver: resolver,
		cache:    c,
		logger:   logger.Named("translate"),
	}
	if len(engines) == 0 {
		engines = []Translator{MockTranslator{}}
	}
	for _, e := range engines {
		s.engines[e.Name()] = e
		s.order = append(s.order, e.Name())
		s.logger.Info("Registered translation engine", zap.String("engine", e.Name()))
	}
	return s
}

// Engines lists the registered engine names.
func (s *Service) Engines() []string {
	return append([]string(nil), s.order...)
}

// Translate validates req and returns the translation from the cache or
// the selected engine.
func (s *Service) Translate(ctx context.Context, req Request) (*Result, error) {
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return nil, ErrEmptyText
	}
	if utf8.RuneCountInString(req.Text) > MaxTextLength {
		return nil, ErrTextTooLong
	}

	target, err := canonicalLanguage(req.TargetLang)
	if err != nil {
		return nil, err
	}
	req.TargetLang = target
	if req.SourceLang == "" || req.SourceLang == "auto" {
		req.SourceLang = "auto"
	} else if req.SourceLang, err = canonicalLanguage(req.SourceLang); err != nil {
		return nil, err
	}

	engine, err := s.engine()
	if err != nil {
		return nil, err
	}

	key := cache.Key(engine.Name(), req.SourceLang, req.TargetLang, req.Text)
	if res := s.cached(ctx, key); res != nil {
		return res, nil
	}

	flight := s.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FlightTimeout)
		defer cancel()
		res, err := engine.Translate(fctx, req)
		if err != nil {
			return nil, err
		}
		s.store(fctx, key, res)
		return res, nil
	})

	var done singleflight.Result
	select {
	case done = <-flight:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	v, err, shared := done.Val, done.Err, done.Shared
	if err != nil {
		s.logger.Warn("Translation failed",
			zap.String("engine", engine.Name()),
			zap.String("target", req.TargetLang),
			zap.Error(err))
		return nil, fmt.Errorf("%s: %w", engine.Name(), err)
	}
	if shared {
		s.logger.Debug("Shared in-flight translation", zap.String("engine", engine.Name()))
	}
	return v.(*Result), nil
}

func (s *Service) engine() (Translator, error) {
	if s.resolver != nil {
		if name := s.resolver(); name != "" {
			e, ok := s.engines[name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
			}
			return e, nil
		}
	}
	return s.engines[s.order[0]], nil
}

func (s *Service) cached(ctx context.Context, key string) *Result {
	if s.cache == nil {
		return nil
	}
	entry, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil
	}
	return &Result{
		Text:             entry.Text,
		DetectedLanguage: entry.DetectedLanguage,
		Pronunciation:    entry.Pronunciation,
		Definitions:      entry.Definitions,
		Engine:           entry.Engine,
	}
}

func (s *Service) store(ctx context.Context, key string, res *Result) {
	if s.cache == nil {
		return
	}
	// Cache failures only cost a later engine call.
	_ = s.cache.Set(ctx, key, &cache.Entry{
		Text:             res.Text,
		DetectedLanguage: res.DetectedLanguage,
		Pronunciation:    res.Pronunciation,
		Definitions:      res.Definitions,
		Engine:           res.Engine,
	})
}

func canonicalLanguage(tag string) (string, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("%w %q", ErrInvalidLanguage, tag)
	}
	return t.String(), nil
}
