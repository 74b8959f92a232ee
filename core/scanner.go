package core

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dyastin-0/senddone/logger"
	"golang.org/x/sync/errgroup"
)

var ErrScanSuperseded = errors.New("scan superseded by a newer scan")

// Device is a peer that answered a scan probe.
type Device struct {
	Address string `json:"address"`
	Version string `json:"version"`
	ID      string `json:"id"`
	OS      string `json:"os"`
}

// Scanner probes a window of addresses of the local subnet at a time. Only
// one scan is live: starting a new one bumps the generation, cancels the
// previous scan's sockets and drops whatever it still finds.
type Scanner struct {
	cfg *Config
	log logger.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc

	probed atomic.Int64
	total  atomic.Int64
}

type scanSession struct {
	s   *Scanner
	gen uint64
}

func NewScanner(cfg *Config, log logger.Logger) *Scanner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Scanner{
		cfg: cfg,
		log: log,
	}
}

// Progress reports how many addresses of the live scan have been probed.
func (s *Scanner) Progress() (probed, total int64) {
	return s.probed.Load(), s.total.Load()
}

func (s *Scanner) begin(ctx context.Context) (context.Context, scanSession) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	s.gen++
	s.cancel = cancel

	return ctx, scanSession{s: s, gen: s.gen}
}

func (ss scanSession) live() bool {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	return ss.s.gen == ss.gen
}

// deliver hands d to found unless a newer scan has started. Calls are
// serialized, so found must not start a scan itself.
func (ss scanSession) deliver(d Device, found func(Device)) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	if ss.s.gen != ss.gen || found == nil {
		return
	}

	found(d)
}

func (ss scanSession) finish() {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	if ss.s.gen == ss.gen && ss.s.cancel != nil {
		ss.s.cancel()
		ss.s.cancel = nil
	}
}

func (ss scanSession) progressed() {
	if ss.live() {
		ss.s.probed.Add(1)
	}
}

// Scan probes the subnet of ip/mask and calls found once per responder. It
// blocks until the range is exhausted, ctx is done, or a newer Scan starts.
func (s *Scanner) Scan(ctx context.Context, ip net.IP, mask net.IPMask, id string, found func(Device)) error {
	first, end, err := scanRange(ip, mask, s.cfg.MaxScan)
	if err != nil {
		return err
	}

	ctx, sess := s.begin(ctx)
	defer sess.finish()

	local := binary.BigEndian.Uint32(ip.To4())
	window := uint64(s.cfg.ScanWindow)

	s.probed.Store(0)
	s.total.Store(int64(end - first))

	s.log.WithStr("from", uint32ToIP(first).String()).
		WithStr("to", uint32ToIP(end).String()).
		Debug("scan started")

	for start := uint64(first); start < uint64(end); start += window {
		if !sess.live() {
			return ErrScanSuperseded
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)

		stop := min(start+window, uint64(end))
		for addr := start; addr < stop; addr++ {
			addr := uint32(addr)

			g.Go(func() error {
				defer sess.progressed()

				if addr == local {
					return nil
				}

				d, ok := s.probe(gctx, uint32ToIP(addr), id)
				if ok {
					sess.deliver(d, found)
				}

				return nil
			})
		}

		g.Wait()
	}

	if !sess.live() {
		return ErrScanSuperseded
	}

	return ctx.Err()
}

// probe reports whether ip runs a peer. Refusals, timeouts and bad replies
// are all just "not a peer".
func (s *Scanner) probe(ctx context.Context, ip net.IP, id string) (Device, bool) {
	addr := net.JoinHostPort(ip.String(), strconv.Itoa(s.cfg.Port))

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return Device{}, false
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	fc := newFrameConn(conn, s.cfg)
	fc.setDeadline(s.cfg.ScanTimeout)

	if err := fc.write(newScanFrame(id), nil); err != nil {
		return Device{}, false
	}

	f, _, err := fc.next()
	if err != nil {
		return Device{}, false
	}

	if f.Class != ClassOk || !f.Identified() {
		return Device{}, false
	}

	s.log.WithStr("peer", addr).WithStr("id", f.ID).Debug("peer found")

	return Device{
		Address: ip.String(),
		Version: f.Version,
		ID:      f.ID,
		OS:      f.OS,
	}, true
}
