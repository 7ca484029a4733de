package change_test

import (
	"strings"
	"testing"
	"time"

	"github.com/parla-app/parla/internal/change"
	"github.com/parla-app/parla/internal/dom"
	"github.com/parla-app/parla/internal/loop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatchNormalizesBursts(t *testing.T) {
	t.Parallel()
	sched := loop.NewManual(time.Unix(0, 0))
	doc, err := dom.Parse(strings.NewReader(`<body><div id="c"><span>a</span></div></body>`), sched)
	require.NoError(t, err)

	adapter := change.NewAdapter(doc, zap.NewNop())
	container := doc.QueryFirst("#c")

	var got []change.Notification
	sub := adapter.Watch(container, func(n change.Notification) { got = append(got, n) })
	assert.Same(t, container, sub.Container())

	span := doc.QueryFirst("#c span")
	doc.SetText(span.FirstChild, "b")
	doc.SetText(span.FirstChild, "c")
	doc.SetAttr(span, "class", "styled")
	sched.Flush()

	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Records)
	assert.Equal(t, uint64(1), got[0].Tick)

	doc.SetAttr(span, "class", "restyled")
	sched.Flush()
	assert.Len(t, got, 1, "attribute-only changes are not text changes")

	sub.Close()
	doc.SetText(span.FirstChild, "d")
	sched.Flush()
	assert.Len(t, got, 1)
}

func TestWatchDetachFiresOnce(t *testing.T) {
	t.Parallel()
	sched := loop.NewManual(time.Unix(0, 0))
	doc, err := dom.Parse(strings.NewReader(`<body><div id="wrap"><div id="c">x</div></div><p>other</p></body>`), sched)
	require.NoError(t, err)

	adapter := change.NewAdapter(doc, zap.NewNop())
	container := doc.QueryFirst("#c")

	fired := 0
	adapter.WatchDetach(container, func() { fired++ })

	doc.AppendChild(doc.QueryFirst("p"), doc.CreateText("more"))
	sched.Flush()
	assert.Zero(t, fired)

	doc.RemoveNode(doc.QueryFirst("#wrap"))
	sched.Flush()
	assert.Equal(t, 1, fired)

	doc.AppendChild(doc.Body(), doc.CreateElement("div"))
	sched.Flush()
	assert.Equal(t, 1, fired)
}
