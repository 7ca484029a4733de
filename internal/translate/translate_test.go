package translate_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/parla-app/parla/internal/cache"
	"github.com/parla-app/parla/internal/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingEngine struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *countingEngine) Name() string { return "counting" }

func (e *countingEngine) Translate(_ context.Context, req translate.Request) (*translate.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return &translate.Result{Text: strings.ToUpper(req.Text), DetectedLanguage: "en", Engine: "counting"}, nil
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]*cache.Entry
}

func (c *mapCache) Get(_ context.Context, key string) (*cache.Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, e *cache.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
	return nil
}

func TestMockDictionary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := translate.MockTranslator{}

	tests := []struct {
		text, target, want string
	}{
		{"Hello", "es", "Hola"},
		{"How are you?", "es", "¿Cómo estás?"},
		{"Good night", "es-MX", "Buenas noches"},
		{"Hello", "fr", "[fr] Hello"},
		{"Hello world", "es", "[es] Hello world"},
	}
	for _, tt := range tests {
		res, err := m.Translate(ctx, translate.Request{Text: tt.text, TargetLang: tt.target})
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.Text, tt.text)
	}
}

func TestServiceValidates(t *testing.T) {
	t.Parallel()
	svc := translate.NewService(nil, nil, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Translate(ctx, translate.Request{Text: "  ", TargetLang: "es"})
	assert.ErrorIs(t, err, translate.ErrEmptyText)

	_, err = svc.Translate(ctx, translate.Request{Text: strings.Repeat("a", translate.MaxTextLength+1), TargetLang: "es"})
	assert.ErrorIs(t, err, translate.ErrTextTooLong)

	_, err = svc.Translate(ctx, translate.Request{Text: "Hello", TargetLang: "not a tag!"})
	assert.ErrorIs(t, err, translate.ErrInvalidLanguage)

	res, err := svc.Translate(ctx, translate.Request{Text: " Hello ", TargetLang: "es"})
	require.NoError(t, err)
	assert.Equal(t, "Hola", res.Text)
	assert.Equal(t, []string{"mock"}, svc.Engines())
}

func TestServiceCachesResults(t *testing.T) {
	t.Parallel()
	engine := &countingEngine{}
	c := &mapCache{entries: map[string]*cache.Entry{}}
	svc := translate.NewService([]translate.Translator{engine}, nil, c, zap.NewNop())
	ctx := context.Background()

	for range 3 {
		res, err := svc.Translate(ctx, translate.Request{Text: "hi there", TargetLang: "de"})
		require.NoError(t, err)
		assert.Equal(t, "HI THERE", res.Text)
	}
	assert.Equal(t, 1, engine.calls)
	assert.Len(t, c.entries, 1)

	_, err := svc.Translate(ctx, translate.Request{Text: "hi there", TargetLang: "fr"})
	require.NoError(t, err)
	assert.Equal(t, 2, engine.calls)
}

type blockingEngine struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (e *blockingEngine) Name() string { return "blocking" }

func (e *blockingEngine) Translate(ctx context.Context, req translate.Request) (*translate.Result, error) {
	e.once.Do(func() { close(e.started) })
	select {
	case <-e.release:
		return &translate.Result{Text: "done:" + req.Text, Engine: "blocking"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestServiceSharedFlightSurvivesCallerCancel(t *testing.T) {
	t.Parallel()
	engine := &blockingEngine{started: make(chan struct{}), release: make(chan struct{})}
	svc := translate.NewService([]translate.Translator{engine}, nil, nil, zap.NewNop())
	req := translate.Request{Text: "hi", TargetLang: "es"}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Translate(firstCtx, req)
		firstErr <- err
	}()
	<-engine.started

	type outcome struct {
		res *translate.Result
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := svc.Translate(context.Background(), req)
		second <- outcome{res, err}
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(engine.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "done:hi", got.res.Text)
}

func TestServiceEngineErrorsAreNotCached(t *testing.T) {
	t.Parallel()
	engine := &countingEngine{err: errors.New("quota exceeded")}
	c := &mapCache{entries: map[string]*cache.Entry{}}
	svc := translate.NewService([]translate.Translator{engine}, nil, c, zap.NewNop())

	_, err := svc.Translate(context.Background(), translate.Request{Text: "hi", TargetLang: "es"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "counting")
	assert.Empty(t, c.entries)
}

func TestServiceEngineSelection(t *testing.T) {
	t.Parallel()
	selected := ""
	engine := &countingEngine{}
	svc := translate.NewService(
		[]translate.Translator{translate.MockTranslator{}, engine},
		func() string { return selected }, nil, zap.NewNop())
	ctx := context.Background()

	res, err := svc.Translate(ctx, translate.Request{Text: "Hello", TargetLang: "es"})
	require.NoError(t, err)
	assert.Equal(t, "mock", res.Engine)

	selected = "counting"
	res, err = svc.Translate(ctx, translate.Request{Text: "Hello", TargetLang: "es"})
	require.NoError(t, err)
	assert.Equal(t, "counting", res.Engine)

	selected = "nope"
	_, err = svc.Translate(ctx, translate.Request{Text: "Hello", TargetLang: "es"})
	assert.ErrorIs(t, err, translate.ErrUnknownEngine)
}

func TestDeepL(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DeepL-Auth-Key key", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "ES", r.Form.Get("target_lang"))
		assert.Empty(t, r.Form.Get("source_lang"))
		assert.Equal(t, "Hello", r.Form.Get("text"))
		io.WriteString(w, `{"translations":[{"detected_source_language":"EN","text":"Hola"}]}`)
	}))
	defer srv.Close()

	res, err := translate.NewDeepLTranslator("key", srv.URL).Translate(context.Background(),
		translate.Request{Text: "Hello", SourceLang: "auto", TargetLang: "es"})
	require.NoError(t, err)
	assert.Equal(t, "Hola", res.Text)
	assert.Equal(t, "en", res.DetectedLanguage)
	assert.Equal(t, "deepl", res.Engine)
}

func TestDeepLStatusError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := translate.NewDeepLTranslator("key", srv.URL).Translate(context.Background(),
		translate.Request{Text: "Hello", TargetLang: "es"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	_, err = translate.NewDeepLTranslator("", srv.URL).Translate(context.Background(),
		translate.Request{Text: "Hello", TargetLang: "es"})
	assert.Error(t, err)
}

func TestOpenAIToleratesProse(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		io.WriteString(w, `{"choices":[{"message":{"content":"Sure! {\"translation\":\"Hola mundo\",\"detected_language\":\"EN\",\"pronunciation\":\"heh-LOH\"}"}}]}`)
	}))
	defer srv.Close()

	res, err := translate.NewOpenAITranslator("key", "", srv.URL).Translate(context.Background(),
		translate.Request{Text: "Hello world", TargetLang: "es"})
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo", res.Text)
	assert.Equal(t, "en", res.DetectedLanguage)
	assert.Equal(t, "heh-LOH", res.Pronunciation)
}

func TestGeminiUsesResolvedModel(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-goog-api-key"))
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"translation\":\"Gracias\",\"detected_language\":\"en\",\"definitions\":[\"thanks\"]}"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	g := translate.NewGeminiTranslator("key", func() string { return "gemini-test" }, srv.URL, zap.NewNop())
	res, err := g.Translate(context.Background(), translate.Request{Text: "Thank you", TargetLang: "es"})
	require.NoError(t, err)
	assert.Equal(t, "Gracias", res.Text)
	assert.Equal(t, []string{"thanks"}, res.Definitions)
}

func TestGeminiBlocked(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`)
	}))
	defer srv.Close()

	g := translate.NewGeminiTranslator("key", nil, srv.URL, zap.NewNop())
	_, err := g.Translate(context.Background(), translate.Request{Text: "x", TargetLang: "es"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}
