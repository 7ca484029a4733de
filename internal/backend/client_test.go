package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/parla-app/parla/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTranslate(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/translate", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req backend.TranslateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, backend.TranslateRequest{Text: "Hello", SourceLanguage: "auto", TargetLanguage: "es"}, req)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translated_text":"Hola","detected_language":"en","definitions":["greeting"]}`))
	}))
	defer srv.Close()

	c := backend.NewClient(srv.URL+"/api/", "tok", 0, zap.NewNop())
	out, err := c.Translate(context.Background(), backend.TranslateRequest{Text: "Hello", SourceLanguage: "auto", TargetLanguage: "es"})
	require.NoError(t, err)
	assert.Equal(t, "Hola", out.TranslatedText)
	assert.Equal(t, "en", out.DetectedLanguage)
	assert.Equal(t, []string{"greeting"}, out.Definitions)
}

func TestNon2xxIsStatusError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := backend.NewClient(srv.URL, "", 0, zap.NewNop())
	_, err := c.SavePhrase(context.Background(), backend.PhraseRequest{Text: "hi"})
	require.Error(t, err)

	var statusErr *backend.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	assert.Contains(t, statusErr.Body, "quota exceeded")
	assert.NotContains(t, err.Error(), "quota exceeded")
}

func TestPhraseManagement(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token":"jwt-1"}`))
	})
	mux.HandleFunc("GET /phrases", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":3,"text":"hola","translation":"hello","created_at":"2026-01-02T03:04:05Z"}]`))
	})
	mux.HandleFunc("DELETE /phrases/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	c := backend.NewClient(srv.URL, "", 0, zap.NewNop())

	token, err := c.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", token)

	phrases, err := c.ListPhrases(ctx)
	require.NoError(t, err)
	require.Len(t, phrases, 1)
	assert.Equal(t, int64(3), phrases[0].ID)
	assert.Equal(t, 2026, phrases[0].CreatedAt.Year())

	require.NoError(t, c.DeletePhrase(ctx, 3))
}
