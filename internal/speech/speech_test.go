package speech_test

import (
	"context"
	"testing"

	"github.com/parla-app/parla/internal/speech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewUtterance(t *testing.T) {
	t.Parallel()
	assert.Equal(t, speech.Utterance{Text: "hola", Lang: "es", Rate: 0.9}, speech.NewUtterance("hola", "es"))
	assert.Equal(t, "en-US", speech.NewUtterance("x", "").Lang)
	assert.Equal(t, "en-US", speech.NewUtterance("x", "auto").Lang)
	assert.Equal(t, "en-US", speech.NewUtterance("x", "??").Lang)
	assert.Equal(t, "pt-BR", speech.NewUtterance("x", "pt-br").Lang)
}

func TestSynthesizers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert.ErrorIs(t, speech.Unavailable{}.Speak(ctx, speech.Utterance{}), speech.ErrUnavailable)

	r := speech.NewRecorder(zap.NewNop())
	require.NoError(t, r.Speak(ctx, speech.NewUtterance("hello", "en")))
	require.Len(t, r.Spoken(), 1)
	assert.Equal(t, "en", r.Spoken()[0].Lang)
}
