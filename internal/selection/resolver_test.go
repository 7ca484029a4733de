package selection_test

import (
	"testing"

	"github.com/parla-app/parla/internal/page"
	"github.com/parla-app/parla/internal/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolvePriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   selection.Input
		want string
	}{
		{"selection wins", selection.Input{Selection: "Hello world", Word: "world", Line: "Hello world"}, "Hello world"},
		{"word", selection.Input{Selection: "  ", Word: "world", Line: "Hello world"}, "world"},
		{"line fallback", selection.Input{Line: "Hello world"}, "Hello world"},
		{"trimmed", selection.Input{Selection: "\n hola \t"}, "hola"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.in.Context = page.ContextVideoA
			ev := selection.Resolve(tt.in)
			require.NotNil(t, ev)
			assert.Equal(t, tt.want, ev.Text)
			assert.Equal(t, page.ContextVideoA, ev.Context)
		})
	}
}

func TestResolveEmpty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, selection.Resolve(selection.Input{Selection: " ", Line: "\n"}))
}

func TestResolverClaimsGesture(t *testing.T) {
	t.Parallel()
	r := selection.NewResolver(zap.NewNop())

	ev := r.Resolve(7, selection.Input{Word: "world", Context: page.ContextVideoA, X: 1, Y: 2})
	require.NotNil(t, ev)
	assert.Equal(t, selection.Event{Text: "world", Context: page.ContextVideoA, OriginX: 1, OriginY: 2}, *ev)

	assert.True(t, r.Claimed(7))
	assert.Nil(t, r.Resolve(7, selection.Input{Selection: "world"}))
	assert.NotNil(t, r.Resolve(8, selection.Input{Selection: "world"}))
}

func TestEmptyResolutionDoesNotClaim(t *testing.T) {
	t.Parallel()
	r := selection.NewResolver(zap.NewNop())

	assert.Nil(t, r.Resolve(3, selection.Input{}))
	assert.False(t, r.Claimed(3))
}

func TestClaimHistoryIsBounded(t *testing.T) {
	t.Parallel()
	r := selection.NewResolver(zap.NewNop())

	assert.True(t, r.Claim(1))
	assert.False(t, r.Claim(1))
	for g := uint64(2); g <= 65; g++ {
		r.Claim(g)
	}
	assert.False(t, r.Claimed(1))
	assert.True(t, r.Claimed(65))

	assert.True(t, r.Claim(0))
	assert.False(t, r.Claimed(0))
}
