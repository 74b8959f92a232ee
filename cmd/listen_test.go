package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/Dyastin-0/senddone/core"
	"github.com/Dyastin-0/senddone/logger"
	"github.com/Dyastin-0/senddone/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitState(t *testing.T, get func() core.State, want core.State) {
	t.Helper()

	require.Eventually(t, func() bool {
		return get() == want
	}, 10*time.Second, 5*time.Millisecond, "want state %s", want)
}

// withdrawnRequest leaves r holding a request whose sender has already ended it.
func withdrawnRequest(t *testing.T) (*core.Receiver, *core.Sender, string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := core.DefaultConfig()
	r := core.NewReceiver(cfg, "receiver", nil)
	require.NoError(t, r.Listen("127.0.0.1:0"))
	go r.Serve(ctx)

	addr := r.Addr().String()
	s := core.NewSender(cfg, "sender", nil)
	require.NoError(t, s.Send(ctx, core.Manifest{{Name: "d", Dir: ".", Type: core.KindDirectory}}, addr))
	waitState(t, r.State, core.RecvWait)

	require.NoError(t, s.End())
	waitState(t, r.State, core.SenderEnd)

	return r, s, addr
}

func TestHandleRequestAfterSenderLeft(t *testing.T) {
	r, s, addr := withdrawnRequest(t)

	a := &app{log: logger.Nop()}
	a.handleRequest(context.Background(), r, progress.New(), t.TempDir(), true)

	assert.Equal(t, core.Idle, r.State())

	require.True(t, s.Reset())
	require.NoError(t, s.Send(context.Background(), core.Manifest{{Name: "d", Dir: ".", Type: core.KindDirectory}}, addr))
	waitState(t, r.State, core.RecvWait)
}

func TestSettle(t *testing.T) {
	r, _, _ := withdrawnRequest(t)

	settle(r)
	assert.Equal(t, core.Idle, r.State())

	// nothing to do once idle
	settle(r)
	assert.Equal(t, core.Idle, r.State())
}
