package cmd

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Dyastin-0/senddone/core"
	"github.com/Dyastin-0/senddone/logger"
	"github.com/stretchr/testify/assert"
)

type fakeTransfer struct {
	mu     sync.Mutex
	state  core.State
	events []string
}

func (f *fakeTransfer) State() core.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransfer) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != core.Send {
		return false
	}
	f.state = core.SenderStop
	f.events = append(f.events, "stop")
	return true
}

func (f *fakeTransfer) Resume() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != core.SenderStop {
		return false
	}
	f.state = core.Send
	f.events = append(f.events, "resume")
	return true
}

func (f *fakeTransfer) End() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.state.Active() {
		return errors.New("not active")
	}
	f.state = core.SenderEnd
	f.events = append(f.events, "end")
	return nil
}

func (f *fakeTransfer) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func TestControl(t *testing.T) {
	f := &fakeTransfer{state: core.Send}
	toggle := make(chan os.Signal)
	abort := make(chan os.Signal)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		control(ctx, f, toggle, abort, logger.Nop())
	}()

	toggle <- os.Interrupt
	toggle <- os.Interrupt
	toggle <- os.Interrupt
	abort <- os.Interrupt
	// ignored once the transfer is over
	toggle <- os.Interrupt
	abort <- os.Interrupt

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("control did not return after cancel")
	}

	assert.Equal(t, []string{"stop", "resume", "stop", "end"}, f.seen())
	assert.Equal(t, core.SenderEnd, f.State())
}
