package engine_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/parla-app/parla/internal/background"
	"github.com/parla-app/parla/internal/backend"
	"github.com/parla-app/parla/internal/dom"
	"github.com/parla-app/parla/internal/engine"
	"github.com/parla-app/parla/internal/loop"
	"github.com/parla-app/parla/internal/messaging"
	"github.com/parla-app/parla/internal/overlay"
	"github.com/parla-app/parla/internal/page"
	"github.com/parla-app/parla/internal/popup"
	"github.com/parla-app/parla/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

type stubBackend struct {
	mu           sync.Mutex
	translations []backend.TranslateRequest
	saves        []backend.PhraseRequest
}

func (s *stubBackend) Translate(_ context.Context, req backend.TranslateRequest) (*backend.TranslateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.translations = append(s.translations, req)
	return &backend.TranslateResponse{TranslatedText: "ES:" + req.Text, DetectedLanguage: "en"}, nil
}

func (s *stubBackend) SavePhrase(_ context.Context, req backend.PhraseRequest) (*backend.Phrase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, req)
	return &backend.Phrase{ID: 1, Text: req.Text, Translation: req.Translation}, nil
}

func (s *stubBackend) requests() []backend.TranslateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.TranslateRequest(nil), s.translations...)
}

const youtubePage = `<body>
<div id="movie_player"><video autoplay></video><div class="ytp-caption-window-container"></div></div>
<p id="article">Some article text</p>
</body>`

type fixture struct {
	sched   *loop.Manual
	doc     *dom.Document
	bus     *messaging.Bus
	store   *settings.MemoryStore
	backend *stubBackend
	engine  *engine.Engine
}

func newFixture(t *testing.T, body, location string) *fixture {
	t.Helper()
	sched := loop.NewManual(time.Unix(0, 0))
	doc, err := dom.Parse(strings.NewReader(body), sched)
	require.NoError(t, err)
	doc.SetLocation(location, "text/html")
	doc.SetViewport(dom.Size{Width: 1280, Height: 720})

	f := &fixture{
		sched:   sched,
		doc:     doc,
		bus:     messaging.NewBus(zap.NewNop()),
		store:   settings.NewMemoryStore(nil),
		backend: &stubBackend{},
	}
	background.New(f.bus, f.backend, f.store, zap.NewNop()).Register()

	f.engine = engine.New(doc, sched, f.bus, f.store, nil, engine.DefaultOptions(), zap.NewNop())
	require.NoError(t, f.engine.Start(context.Background()))
	t.Cleanup(f.engine.Stop)
	sched.Flush()
	require.NotNil(t, f.engine.Page())
	return f
}

func (f *fixture) setCaption(t *testing.T, lines ...string) {
	t.Helper()
	window := f.doc.QueryFirst(".ytp-caption-window-container")
	require.NotNil(t, window)
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(`<span class="ytp-caption-segment">` + line + `</span>`)
	}
	require.NoError(t, f.doc.SetInnerHTML(window, b.String()))
	f.sched.Flush()
}

func (f *fixture) word(t *testing.T, text string) *html.Node {
	t.Helper()
	node := f.engine.Page().Overlay().Active()
	require.NotNil(t, node)
	for _, w := range node.Words {
		if w.Text == text {
			return w.Element
		}
	}
	t.Fatalf("no overlay word %q", text)
	return nil
}

func (f *fixture) mouseUp(target *html.Node) {
	f.doc.Dispatch(&dom.Event{Type: dom.EventMouseUp, Target: target, X: 200, Y: 600})
}

func (f *fixture) settle() {
	f.engine.Wait()
	f.sched.Flush()
}

func (f *fixture) broadcast(t *testing.T, action messaging.Action, payload any) {
	t.Helper()
	msg, err := messaging.NewMessage(action, payload)
	require.NoError(t, err)
	f.bus.Broadcast(msg)
	f.sched.Flush()
}

func (f *fixture) media() *dom.Media {
	return f.doc.MediaFor(f.doc.QueryFirst("video"))
}

func TestClassifiesAndInstallsStyles(t *testing.T) {
	t.Parallel()
	f := newFixture(t, youtubePage, "https://www.youtube.com/watch?v=abc")

	p := f.engine.Page()
	assert.True(t, p.Capability().HasCaptionTrackA)
	assert.Equal(t, page.ContextVideoA, p.Platform().Context())
	assert.NotNil(t, f.doc.QueryFirst("#"+overlay.StyleID))
	require.NotNil(t, p.Captions())
	assert.NotNil(t, p.Captions().Container())
}

func TestWordClickOpensPopup(t *testing.T) {
	t.Parallel()
	f := newFixture(t, youtubePage, "https://www.youtube.com/watch?v=abc")
	f.setCaption(t, "Hello world")

	f.mouseUp(f.word(t, "world"))

	s := f.engine.Page().Popup().Session()
	require.NotNil(t, s)
	assert.Equal(t, "world", s.SelectedText)
	assert.Equal(t, page.ContextVideoA, s.Context)
	assert.Equal(t, popup.PhaseLoading, s.Phase)

	f.settle()
	assert.Equal(t, popup.PhaseReady, s.Phase)
	assert.Equal(t, "ES:world", s.TranslationText)

	reqs := f.backend.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "es", reqs[0].TargetLanguage)
	assert.Equal(t, "auto", reqs[0].SourceLanguage)
}

func TestSaveCarriesSourcePlatform(t *testing.T) {
	t.Parallel()
	f := newFixture(t, youtubePage, "https://www.youtube.com/watch?v=abc")
	f.setCaption(t, "Hello world")
	f.mouseUp(f.word(t, "world"))
	f.settle()

	f.doc.Dispatch(&dom.Event{Type: dom.EventClick, Target: f.doc.QueryFirst("#" + popup.SaveID)})
	f.settle()

	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	require.Len(t, f.backend.saves, 1)
	assert.Equal(t, "youtube", f.backend.saves[0].SourcePlatform)
	assert.Equal(t, "YouTube", f.backend.saves[0].Context)
}

func TestFreeSelectionBeatsWordClick(t *testing.T) {
	t.Parallel()
	f := newFixture(t, youtubePage, "https://www.youtube.com/watch?v=abc")
	f.setCaption(t, "Hello world")

	f.doc.Select("Hello world", f.word(t, "Hello"))
	f.mouseUp(f.word(t, "world"))

	s := f.engine.Page().Popup().Session()
	require.NotNil(t, s)
	assert.Equal(t, "Hello world", s.SelectedText)

	f.settle()
	assert.Len(t, f.backend.requests(), 1, "one gesture triggers one translation")
}

func TestSelectionOutsideOverlayDoesNotBeatWord(t *testing.T) {
	t.Parallel()
	f := newFixture(t, youtubePage, "https://www.youtube.com/watch?v=abc")
	f.setCaption(t, "Hello world")

	f.doc.Select("Some article text", f.doc.QueryFirst("#article"))
	f.mouseUp(f.word(t, "world"))

	s := f.engine.Page().Popup().Session()
	require.NotNil(t, s)
	assert.Equal(t, "world", s.SelectedText)
	assert.Equal(t, page.ContextVideoA, s.Context)
	f.settle()
}

func TestGenericSelection(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<body><p id="article">Bonjour tout le monde</p></body>`, "https://example.org/post")

	assert.Equal(t, page.ContextGeneric, f.engine.Page().Platform().Context())
	assert.Nil(t, f.engine.Page().Captions())

	article := f.doc.QueryFirst("#article")
	f.mouseUp(article)
	assert.Nil(t, f.engine.Page().Popup().Session(), "no selection, no popup")

	f.doc.Select("  Bonjour  ", article)
	f.mouseUp(article)
	s := f.engine.Page().Popup().Session()
	require.NotNil(t, s)
	assert.Equal(t, "Bonjour", s.SelectedText)
	assert.Equal(t, page.ContextGeneric, s.Context)
	assert.Equal(t, "example.org", s.Label)
}

func TestNativeCaptionReleaseIgnored(t *testing.T) {
	t.Parallel()
	f := newFixture(t, youtubePage, "https://www.youtube.com/watch?v=abc")
	f.setCaption(t, "Hello world")

	segment := f.doc.QueryFirst(".ytp-caption-segment")
	f.doc.Select("Hello", segment)
	f.mouseUp(segment)
	assert.Nil(t, f.engine.Page().Popup().Session())
}

func TestHoverPausesAndResumes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, youtubePage, "https://www.youtube.com/watch?v=abc")
	f.setCaption(t, "Hello world")
	require.False(t, f.media().Paused())

	container := f.engine.Page().Overlay().Active().Element
	f.doc.Dispatch(&dom.Event{Type: dom.EventMouseEnter, Target: container})
	assert.True(t, f.media().Paused())
	assert.True(t, f.engine.Page().Overlay().Active().Paused)

	f.doc.Dispatch(&dom.Event{Type: dom.EventMouseLeave, Target: container})
	f.sched.Advance(200 * time.Millisecond)
	assert.True(t, f.media().Paused())

	f.doc.Dispatch(&dom.Event{Type: dom.EventMouseEnter, Target: container})
	f.sched.Advance(time.Second)
	assert.True(t, f.media().Paused(), "re-entering cancels the resume")

	f.doc.Dispatch(&dom.Event{Type: dom.EventMouseLeave, Target: container})
	f.sched.Advance(300 * time.Millisecond)
	assert.False(t, f.media().Paused())
	assert.Equal(t, 1, f.media().PauseCount())
	assert.Equal(t, 1, f.media().PlayCount())
}

func TestEscapeHidesPopup(t *testing.T) {
	t.Parallel()
	f := newFixture(t, youtubePage, "https://www.youtube.com/watch?v=abc")
	f.setCaption(t, "Hello world")
	f.mouseUp(f.word(t, "Hello"))
	require.NotNil(t, f.engine.Page().Popup().Session())

	f.doc.Dispatch(&dom.Event{Type: dom.EventKeyDown, Target: f.doc.QueryFirst("#article"), Key: engine.KeyEscape})
	assert.Equal(t, popup.PhaseClosing, f.engine.Page().Popup().Phase())

	f.sched.Advance(popup.DefaultOptions().ExitTransition)
	assert.Equal(t, popup.PhaseClosed, f.engine.Page().Popup().Phase())
	assert.Empty(t, f.doc.Find("."+popup.PopupClass).Nodes)
}

func TestToggleExtension(t *testing.T) {
	t.Parallel()
	f := newFixture(t, youtubePage, "https://www.youtube.com/watch?v=abc")
	f.setCaption(t, "Hello world")
	f.mouseUp(f.word(t, "Hello"))

	f.broadcast(t, messaging.ActionToggleExtension, messaging.ToggleExtension{Active: false})
	assert.True(t, dom.HasClass(f.doc.Body(), overlay.DisabledClass))
	assert.Nil(t, f.engine.Page().Overlay().Active())
	assert.Equal(t, popup.PhaseClosing, f.engine.Page().Popup().Phase())

	f.setCaption(t, "Second line")
	assert.Nil(t, f.engine.Page().Overlay().Active(), "inactive engine ignores captions")

	f.broadcast(t, messaging.ActionToggleExtension, messaging.ToggleExtension{Active: true})
	assert.False(t, dom.HasClass(f.doc.Body(), overlay.DisabledClass))
	node := f.engine.Page().Overlay().Active()
	require.NotNil(t, node)
	assert.Equal(t, "Second line", node.Text())
}

func TestTeardownResumesHoverPause(t *testing.T) {
	t.Parallel()
	f := newFixture(t, youtubePage, "https://www.youtube.com/watch?v=abc")
	f.setCaption(t, "Hello world")

	hover := func() {
		container := f.engine.Page().Overlay().Active().Element
		f.doc.Dispatch(&dom.Event{Type: dom.EventMouseEnter, Target: container})
		require.True(t, f.media().Paused())
	}

	hover()
	f.broadcast(t, messaging.ActionToggleExtension, messaging.ToggleExtension{Active: false})
	assert.False(t, f.media().Paused(), "disabling releases the pause")

	f.broadcast(t, messaging.ActionToggleExtension, messaging.ToggleExtension{Active: true})
	hover()
	f.doc.Navigate("https://www.youtube.com/watch?v=next")
	f.sched.Flush()
	assert.False(t, f.media().Paused(), "navigation releases the pause")
	assert.Equal(t, 2, f.media().PlayCount())
}

func TestSettingsUpdatedReloadsStore(t *testing.T) {
	t.Parallel()
	f := newFixture(t, youtubePage, "https://www.youtube.com/watch?v=abc")
	f.setCaption(t, "Hello world")

	require.NoError(t, f.store.Set(context.Background(), map[string]string{
		settings.KeyAutoPause:      "false",
		settings.KeyTargetLanguage: "fr",
	}))
	f.broadcast(t, messaging.ActionSettingsUpdated, nil)
	f.settle()

	assert.False(t, f.engine.Settings().AutoPauseEnabled)
	assert.Equal(t, "fr", f.engine.Settings().TargetLanguage)

	container := f.engine.Page().Overlay().Active().Element
	f.doc.Dispatch(&dom.Event{Type: dom.EventMouseEnter, Target: container})
	assert.False(t, f.media().Paused(), "auto-pause off")

	f.mouseUp(f.word(t, "world"))
	f.settle()
	reqs := f.backend.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "fr", reqs[0].TargetLanguage)
}

func TestNavigationRebuildsPage(t *testing.T) {
	t.Parallel()
	f := newFixture(t, youtubePage, "https://www.youtube.com/watch?v=abc")
	f.setCaption(t, "Hello world")
	before := f.engine.Page()

	f.doc.Navigate("https://example.org/article.pdf")
	f.sched.Flush()
	assert.Nil(t, f.engine.Page(), "torn down while settling")
	assert.Empty(t, f.doc.Find("#"+overlay.ContainerID).Nodes)

	f.sched.Advance(engine.DefaultOptions().SettleDelay)
	after := f.engine.Page()
	require.NotNil(t, after)
	assert.NotSame(t, before, after)
	assert.True(t, after.Capability().IsDocumentMode)
	assert.Equal(t, page.ContextDocument, after.Platform().Context())

	f.setCaption(t, "Ignored now")
	assert.Nil(t, after.Overlay().Active())
}
