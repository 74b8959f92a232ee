package core

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/Dyastin-0/senddone/logger"
)

// Sender drives one outbound transfer at a time. Every unit of work waits
// for the receiver's acknowledgement of the previous one.
type Sender struct {
	cfg     *Config
	id      string
	log     logger.Logger
	changed chan struct{}

	mu       sync.Mutex
	state    State
	active   *frameConn
	manifest Manifest
	cursor   int
	items    int
	pending  string
	meter    *Meter
	buf      []byte

	item     string
	itemSize int64
	itemSent int64
	file     *os.File
}

func NewSender(cfg *Config, id string, log logger.Logger) *Sender {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Sender{
		cfg:     cfg,
		id:      id,
		log:     log.WithStr("role", "sender"),
		changed: make(chan struct{}, 1),
		state:   Idle,
		meter:   NewMeter(cfg.SampleInterval),
	}
}

func (s *Sender) Changed() <-chan struct{} {
	return s.changed
}

func (s *Sender) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *Sender) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Sender) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		State:      s.state,
		Item:       s.item,
		ItemBytes:  s.itemSent,
		ItemSize:   s.itemSize,
		Items:      s.items,
		TotalItems: len(s.manifest),
		Speed:      s.meter.Sample(),
		AvgSpeed:   s.meter.Average(),
	}
}

// Send offers m to the receiver at addr. It returns once the request is
// under way; progress is observed through State, Status and Changed. An
// addr without a port uses the configured one.
func (s *Sender) Send(ctx context.Context, m Manifest, addr string) error {
	if err := m.Validate(); err != nil {
		return err
	}

	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(s.cfg.Port))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notify()

	if s.state != Idle {
		return ErrBusy
	}

	s.manifest = m
	s.cursor = 0
	s.items = 0
	s.pending = ""
	s.resetItem()

	if len(m) == 0 {
		s.state = SendDone
		return nil
	}

	s.state = SendRequest
	s.meter.Reset()

	go s.run(ctx, addr)

	return nil
}

func (s *Sender) run(ctx context.Context, addr string) {
	log := s.log.WithStr("peer", addr)

	d := net.Dialer{Timeout: s.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		log.WithErr(err).Warn("dial failed")

		s.mu.Lock()
		if s.state == SendRequest && s.active == nil {
			s.state = ErrNet
		}
		s.mu.Unlock()
		s.notify()
		return
	}

	fc := newFrameConn(conn, s.cfg)
	if !s.request(fc) {
		return
	}

	for {
		f, _, err := fc.next()
		if err != nil {
			s.lost(fc, err)
			return
		}

		if done := s.handle(fc, f); done {
			return
		}
	}
}

// request sends the manifest on a fresh connection unless the transfer was
// ended while dialing.
func (s *Sender) request(fc *frameConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notify()

	if s.state != SendRequest || s.active != nil {
		fc.close()
		return false
	}

	s.active = fc

	files, dirs := s.manifest.Count()
	s.log.WithStr("peer", fc.remote()).WithInt("files", files).WithInt("dirs", dirs).Info("send request")

	if err := fc.write(newSendRequestFrame(s.id, s.manifest), nil); err != nil {
		s.teardown(ErrNet, err)
		return false
	}

	return true
}

// handle applies one reply from the receiver. It reports true once fc is no
// longer the active connection.
func (s *Sender) handle(fc *frameConn, f *Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notify()

	if s.active != fc {
		return true
	}

	prev := s.state
	next, err := senderTransition(prev, f.Class)
	if err != nil {
		s.teardown(ErrNet, fmt.Errorf("%w: %s in %s", err, f.Class, prev))
		return true
	}

	s.log.WithStr("class", f.Class).WithStr("state", next.String()).Debug("frame")

	switch f.Class {
	case ClassNo:
		s.teardown(next, nil)

	case ClassEnd:
		s.teardown(next, nil)

	case ClassStop:
		s.state = next

	case ClassOk, ClassNext:
		s.state = next
		if next == SenderStop {
			s.pending = f.Class
			break
		}

		if prev == SendRequest {
			s.log.Info("accepted")
			s.nextItem()
			break
		}

		s.step(f.Class)
	}

	return s.active != fc
}

// step performs the one unit of work an acknowledgement asks for.
func (s *Sender) step(class string) {
	if class == ClassNext {
		if s.file != nil {
			s.log.WithStr("item", s.item).Info("receiver skipped item")
		}
		s.abandonItem()
	}

	if s.file != nil {
		s.sendChunk()
		return
	}

	s.nextItem()
}

// nextItem announces the item under the cursor, skipping anything that can
// no longer be opened. Past the last item it finishes the transfer.
func (s *Sender) nextItem() {
	for s.cursor < len(s.manifest) {
		item := s.manifest[s.cursor]
		log := s.log.WithStr("item", item.RelPath())

		if item.IsDir() {
			s.items = s.cursor + 1
			s.item = item.RelPath()
			s.itemSize = 0
			s.itemSent = 0
			s.cursor++

			s.send(&Frame{Class: ClassNew, Name: item.Name, Dir: item.Dir, Type: KindDirectory})
			return
		}

		file, size, err := openItem(item)
		if err != nil {
			log.WithErr(err).Warn("skipping item")
			s.cursor++
			continue
		}

		s.items = s.cursor + 1
		s.item = item.RelPath()
		s.file = file
		s.itemSize = size
		s.itemSent = 0

		s.send(&Frame{Class: ClassNew, Name: item.Name, Dir: item.Dir, Type: KindFile, Size: size})
		return
	}

	s.items = len(s.manifest)

	if err := s.active.write(&Frame{Class: ClassDone}, nil); err != nil {
		s.teardown(ErrNet, err)
		return
	}

	s.teardown(SendDone, nil)
}

func openItem(item TransferItem) (*os.File, int64, error) {
	file, err := os.Open(item.Source)
	if err != nil {
		return nil, 0, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, err
	}

	if !info.Mode().IsRegular() {
		file.Close()
		return nil, 0, fmt.Errorf("%s is not a regular file", item.Source)
	}

	return file, info.Size(), nil
}

// sendChunk reads the next slice of the in-flight file and sends it. A file
// that shrank or grew since it was announced is abandoned; the receiver drops
// the incomplete copy when the next item or done arrives.
func (s *Sender) sendChunk() {
	if s.buf == nil {
		s.buf = make([]byte, s.cfg.ChunkSize)
	}

	n := min(int64(len(s.buf)), s.itemSize-s.itemSent)
	chunk := s.buf[:n]

	if _, err := io.ReadFull(s.file, chunk); err != nil {
		s.log.WithStr("item", s.item).WithErr(err).Warn("file changed while sending, skipping")
		s.abandonItem()
		s.nextItem()
		return
	}

	last := s.itemSent+n == s.itemSize
	if last {
		var extra [1]byte
		if m, _ := s.file.Read(extra[:]); m > 0 {
			s.log.WithStr("item", s.item).Warn("file grew while sending, skipping")
			s.abandonItem()
			s.nextItem()
			return
		}
	}

	if err := s.active.write(&Frame{Class: ClassOk, Size: n}, chunk); err != nil {
		s.teardown(ErrNet, err)
		return
	}

	s.itemSent += n
	s.meter.Add(int(n))

	if last {
		s.file.Close()
		s.file = nil
		s.cursor++
	}
}

func (s *Sender) send(f *Frame) {
	if err := s.active.write(f, nil); err != nil {
		s.teardown(ErrNet, err)
	}
}

// Stop pauses the transfer: the next acknowledgement is held until Resume.
func (s *Sender) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notify()

	if s.state != Send && s.state != ReceiverStop {
		return false
	}

	s.state = SenderStop
	s.send(&Frame{Class: ClassStop})

	return s.state == SenderStop
}

// Resume continues a paused transfer, acting on an acknowledgement that
// arrived while paused.
func (s *Sender) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notify()

	if s.state != SenderStop {
		return false
	}

	s.state = Send

	if s.pending != "" {
		class := s.pending
		s.pending = ""
		s.step(class)
	}

	return true
}

// End aborts the transfer and tells the receiver.
func (s *Sender) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notify()

	if !s.state.Active() {
		return ErrInvalidState
	}

	var err error
	if s.active != nil {
		err = s.active.write(&Frame{Class: ClassEnd}, nil)
	}

	s.teardown(SenderEnd, nil)

	return err
}

// Reset acknowledges a terminal state and returns to Idle.
func (s *Sender) Reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notify()

	if s.state != Idle && !s.state.Terminal() {
		return false
	}

	s.state = Idle
	s.manifest = nil
	s.cursor = 0
	s.items = 0
	s.pending = ""
	s.resetItem()

	return true
}

func (s *Sender) lost(fc *frameConn, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notify()

	if s.active != fc {
		return
	}

	s.teardown(ErrNet, err)
}

// teardown closes the connection and any open file and moves to state. Must
// be called with mu held.
func (s *Sender) teardown(state State, err error) {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}

	if s.active != nil {
		s.active.close()
		s.active = nil
	}

	s.state = state
	s.pending = ""

	log := s.log.WithStr("state", state.String())
	switch {
	case err != nil:
		log.WithErr(err).Warn("transfer torn down")
	default:
		log.Info("transfer finished")
	}
}

// abandonItem drops the in-flight file without completing it.
func (s *Sender) abandonItem() {
	if s.file == nil {
		return
	}

	s.file.Close()
	s.file = nil
	s.cursor++
}

func (s *Sender) resetItem() {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}

	s.item = ""
	s.itemSize = 0
	s.itemSent = 0
}
