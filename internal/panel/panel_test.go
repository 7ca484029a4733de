package panel_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/parla-app/parla/internal/api"
	"github.com/parla-app/parla/internal/auth"
	"github.com/parla-app/parla/internal/backend"
	"github.com/parla-app/parla/internal/config"
	"github.com/parla-app/parla/internal/db"
	"github.com/parla-app/parla/internal/messaging"
	"github.com/parla-app/parla/internal/panel"
	"github.com/parla-app/parla/internal/settings"
	"github.com/parla-app/parla/internal/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBackend(t *testing.T, jwtSecret string) *backend.Client {
	t.Helper()
	database, err := db.NewSQLite(filepath.Join(t.TempDir(), "parla.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.EnsureAdmin("admin", "pw"))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	router := api.NewRouter(ctx, database, auth.NewJWTService(jwtSecret),
		translate.NewService(nil, nil, nil, zap.NewNop()),
		config.Server{RateLimit: 100, RateWindow: 60, MaxBodyBytes: 4096}, zap.NewNop())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL+"/api", "", 0, zap.NewNop())
}

func record(bus *messaging.Bus) *[]messaging.Message {
	var got []messaging.Message
	bus.Subscribe(func(m messaging.Message) { got = append(got, m) })
	return &got
}

func TestToggleExtensionBroadcasts(t *testing.T) {
	t.Parallel()
	bus := messaging.NewBus(zap.NewNop())
	store := settings.NewMemoryStore(nil)
	p := panel.New(bus, store, nil, zap.NewNop())
	got := record(bus)
	ctx := context.Background()

	require.NoError(t, p.ToggleExtension(ctx, false))

	s, err := p.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, s.ExtensionActive)
	assert.True(t, s.AutoPauseEnabled)

	require.Len(t, *got, 1)
	assert.Equal(t, messaging.ActionToggleExtension, (*got)[0].Action)
	var payload messaging.ToggleExtension
	require.NoError(t, (*got)[0].Decode(&payload))
	assert.False(t, payload.Active)
}

func TestSettingsUpdates(t *testing.T) {
	t.Parallel()
	bus := messaging.NewBus(zap.NewNop())
	store := settings.NewMemoryStore(nil)
	p := panel.New(bus, store, nil, zap.NewNop())
	got := record(bus)
	ctx := context.Background()

	require.NoError(t, p.SetAutoPause(ctx, false))
	require.NoError(t, p.SetTargetLanguage(ctx, "fr"))
	assert.Error(t, p.SetTargetLanguage(ctx, "not a language"))

	s, err := p.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, s.AutoPauseEnabled)
	assert.Equal(t, "fr", s.TargetLanguage)

	require.Len(t, *got, 2)
	for _, m := range *got {
		assert.Equal(t, messaging.ActionSettingsUpdated, m.Action)
	}
	var last settings.Settings
	require.NoError(t, (*got)[1].Decode(&last))
	assert.Equal(t, "fr", last.TargetLanguage)
}

func TestPhrasesThroughBackend(t *testing.T) {
	t.Parallel()
	client := newBackend(t, "secret")
	p := panel.New(messaging.NewBus(zap.NewNop()), settings.NewMemoryStore(nil), client, zap.NewNop())
	ctx := context.Background()

	user, err := p.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = p.Login(ctx, "admin", "pw")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)

	for _, ph := range []backend.PhraseRequest{
		{Text: "Hello world", Translation: "Hola mundo"},
		{Text: "Good night", Translation: "Buenas noches"},
	} {
		_, err := client.SavePhrase(ctx, ph)
		require.NoError(t, err)
	}

	all, err := p.Phrases(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	hits, err := p.Phrases(ctx, "  MUNDO ")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Hello world", hits[0].Text)

	require.NoError(t, p.DeletePhrase(ctx, hits[0].ID))
	all, err = p.Phrases(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	p.Logout()
	user, err = p.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestExpiredSessionSignsOut(t *testing.T) {
	t.Parallel()
	client := newBackend(t, "secret")
	stale, err := auth.NewJWTService("rotated").GenerateToken(1, "admin", "admin")
	require.NoError(t, err)
	client.SetToken(stale)

	p := panel.New(messaging.NewBus(zap.NewNop()), settings.NewMemoryStore(nil), client, zap.NewNop())
	user, err := p.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.False(t, client.LoggedIn())
}
