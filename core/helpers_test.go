package core

import (
	"context"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

const waitFor = 15 * time.Second

func freePort(t *testing.T) int {
	t.Helper()

	ln, err := nettest.NewLocalListener("tcp4")
	require.NoError(t, err)
	defer ln.Close()

	return ln.Addr().(*net.TCPAddr).Port
}

func testConfig(t *testing.T) *Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Port = freePort(t)
	cfg.ChunkSize = 1024
	cfg.ScanTimeout = 200 * time.Millisecond
	cfg.DialTimeout = 2 * time.Second
	cfg.SampleInterval = 10 * time.Millisecond
	return cfg
}

// startReceiver serves a receiver on an ephemeral loopback port.
func startReceiver(t *testing.T, cfg *Config) (*Receiver, string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := NewReceiver(cfg, "receiver", nil)
	require.NoError(t, r.Listen("127.0.0.1:0"))
	go r.Serve(ctx)

	return r, r.Addr().String()
}

func waitState(t *testing.T, get func() State, want State) {
	t.Helper()

	require.Eventually(t, func() bool {
		return get() == want
	}, waitFor, 5*time.Millisecond, "want state %s, have %s", want, get())
}

func writeRandom(t *testing.T, path string, size int) []byte {
	t.Helper()

	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))

	return data
}

// dialRaw opens a bare protocol connection for driving a receiver by hand.
func dialRaw(t *testing.T, addr string, cfg *Config) *frameConn {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, waitFor)
	require.NoError(t, err)

	fc := newFrameConn(conn, cfg)
	t.Cleanup(func() { fc.close() })
	fc.setDeadline(waitFor)

	return fc
}
