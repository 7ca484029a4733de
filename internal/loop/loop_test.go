package loop_test

import (
	"context"
	"testing"
	"time"

	"github.com/parla-app/parla/internal/loop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualFiresTimersInOrder(t *testing.T) {
	t.Parallel()
	m := loop.NewManual(time.Unix(0, 0))

	var got []string
	m.AfterFunc(300*time.Millisecond, func() { got = append(got, "late") })
	m.AfterFunc(100*time.Millisecond, func() {
		got = append(got, "early")
		m.Post(func() { got = append(got, "posted") })
	})

	m.Advance(50 * time.Millisecond)
	assert.Empty(t, got)

	m.Advance(time.Second)
	assert.Equal(t, []string{"early", "posted", "late"}, got)
	assert.Equal(t, 0, m.Pending())
}

func TestManualStopPreventsCallback(t *testing.T) {
	t.Parallel()
	m := loop.NewManual(time.Unix(0, 0))

	fired := false
	timer := m.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	m.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestManualClockAdvances(t *testing.T) {
	t.Parallel()
	start := time.Unix(100, 0)
	m := loop.NewManual(start)

	m.Advance(1500 * time.Millisecond)
	assert.Equal(t, start.Add(1500*time.Millisecond), m.Now())
}

func TestLoopRunsPostedTasksAndTimers(t *testing.T) {
	t.Parallel()
	l := loop.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = l.Run(ctx)
		close(done)
	}()

	results := make(chan string, 3)
	l.Post(func() { results <- "posted" })
	l.AfterFunc(10*time.Millisecond, func() { results <- "timer" })
	stopped := l.AfterFunc(10*time.Millisecond, func() { results <- "stopped" })
	require.True(t, stopped.Stop())

	assert.Equal(t, "posted", <-results)
	assert.Equal(t, "timer", <-results)

	select {
	case r := <-results:
		t.Fatalf("unexpected task %q", r)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	<-done
}
