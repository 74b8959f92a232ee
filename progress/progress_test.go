package progress

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Dyastin-0/senddone/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbauerster/mpb/v8"
)

// scripted replays a fixed list of statuses, one per call.
type scripted struct {
	mu       sync.Mutex
	statuses []core.Status
	changed  chan struct{}
}

func newScripted(statuses ...core.Status) *scripted {
	return &scripted{statuses: statuses, changed: make(chan struct{})}
}

func (s *scripted) Status() core.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.statuses[0]
	if len(s.statuses) > 1 {
		s.statuses = s.statuses[1:]
	}
	return st
}

func (s *scripted) Changed() <-chan struct{} {
	return s.changed
}

func TestTrackUntilDone(t *testing.T) {
	src := newScripted(
		core.Status{State: core.Recv, Item: "a.bin", ItemBytes: 512, ItemSize: 1024, Items: 1, TotalItems: 3},
		core.Status{State: core.Recv, Item: "a.bin", ItemBytes: 1024, ItemSize: 1024, Items: 1, TotalItems: 3},
		core.Status{State: core.Recv, Item: "dir", Items: 2, TotalItems: 3},
		core.Status{State: core.Recv, Item: "dir/empty", Items: 3, TotalItems: 3},
		core.Status{State: core.RecvDone, Item: "dir/empty", Items: 3, TotalItems: 3},
	)

	buf := &bytes.Buffer{}
	p := New(mpb.WithOutput(buf), mpb.WithWidth(80))

	done := make(chan core.Status, 1)
	go func() { done <- p.Track(context.Background(), src) }()

	select {
	case st := <-done:
		assert.Equal(t, core.RecvDone, st.State)
	case <-time.After(5 * time.Second):
		t.Fatal("track did not return")
	}
}

func TestTrackStopsOnFailure(t *testing.T) {
	src := newScripted(
		core.Status{State: core.Send, Item: "big", ItemBytes: 10, ItemSize: 1 << 20, Items: 1, TotalItems: 2},
		core.Status{State: core.ErrNet, Item: "big", ItemBytes: 20, ItemSize: 1 << 20, Items: 1, TotalItems: 2},
	)

	p := New(mpb.WithOutput(&bytes.Buffer{}))
	st := p.Track(context.Background(), src)

	assert.Equal(t, core.ErrNet, st.State)
}

func TestTrackCancelled(t *testing.T) {
	src := newScripted(core.Status{State: core.Send, Item: "big", ItemBytes: 10, ItemSize: 100, Items: 1, TotalItems: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	p := New(mpb.WithOutput(&bytes.Buffer{}))
	st := p.Track(ctx, src)

	assert.Equal(t, core.Send, st.State)
}

func TestScanBar(t *testing.T) {
	buf := &bytes.Buffer{}
	bar := NewScanBar(buf, 10)

	require.NoError(t, bar.Add(10))
	assert.True(t, bar.IsFinished())
	assert.Contains(t, buf.String(), "scanning")
}

func TestTrackAfterReset(t *testing.T) {
	buf := &bytes.Buffer{}
	p := New(mpb.WithOutput(buf), mpb.WithWidth(80))

	first := newScripted(core.Status{State: core.RecvDone, Item: "first.bin", ItemBytes: 8, ItemSize: 8, Items: 1, TotalItems: 1})
	assert.Equal(t, core.RecvDone, p.Track(context.Background(), first).State)

	p.Reset()

	second := newScripted(
		core.Status{State: core.Recv, Item: "second.bin", ItemBytes: 4, ItemSize: 8, Items: 1, TotalItems: 1},
		core.Status{State: core.SenderEnd, Item: "second.bin", ItemBytes: 4, ItemSize: 8, Items: 1, TotalItems: 1},
	)
	assert.Equal(t, core.SenderEnd, p.Track(context.Background(), second).State)
	assert.Contains(t, buf.String(), "second.bin")
}
