package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/Dyastin-0/senddone/logger"
)

var (
	ErrBusy         = errors.New("another transfer is active")
	ErrSizeMismatch = errors.New("received more bytes than declared")
	ErrUnknownItem  = errors.New("item not in manifest")
	ErrNoOpenItem   = errors.New("chunk without an open item")
)

// Receiver owns the listening socket and at most one inbound transfer.
type Receiver struct {
	cfg     *Config
	id      string
	log     logger.Logger
	changed chan struct{}

	ln net.Listener

	mu       sync.Mutex
	state    State
	active   *frameConn
	peerID   string
	manifest Manifest
	index    map[string]int
	root     string
	items    int
	pending  string
	meter    *Meter

	item        string
	itemPath    string
	itemSize    int64
	itemWritten int64
	file        *os.File
}

func NewReceiver(cfg *Config, id string, log logger.Logger) *Receiver {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Receiver{
		cfg:     cfg,
		id:      id,
		log:     log.WithStr("role", "receiver"),
		changed: make(chan struct{}, 1),
		state:   Idle,
		meter:   NewMeter(cfg.SampleInterval),
	}
}

// Listen binds the transfer port on addr. An addr without a port uses the
// configured one.
func (r *Receiver) Listen(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, fmt.Sprint(r.cfg.Port))
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.ln = ln
	r.mu.Unlock()

	return nil
}

func (r *Receiver) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ln == nil {
		return nil
	}
	return r.ln.Addr()
}

// ListenAndServe binds addr and accepts connections until ctx is done.
func (r *Receiver) ListenAndServe(ctx context.Context, addr string) error {
	if err := r.Listen(addr); err != nil {
		return err
	}
	return r.Serve(ctx)
}

// Serve accepts connections on the bound listener until ctx is done or the
// listener is closed.
func (r *Receiver) Serve(ctx context.Context) error {
	r.mu.Lock()
	ln := r.ln
	r.mu.Unlock()

	if ln == nil {
		return errors.New("receiver is not listening")
	}

	go func() {
		<-ctx.Done()
		r.Close()
	}()

	r.log.WithStr("addr", ln.Addr().String()).Info("listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			r.log.WithErr(err).Warn("accept error")
			continue
		}

		go r.handleConn(conn)
	}
}

// Close stops listening and tears down an active transfer.
func (r *Receiver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		r.teardown(ErrNet, net.ErrClosed)
	}

	if r.ln == nil {
		return nil
	}

	err := r.ln.Close()
	r.ln = nil
	return err
}

func (r *Receiver) Changed() <-chan struct{} {
	return r.changed
}

func (r *Receiver) notify() {
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

func (r *Receiver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Manifest returns the items offered by the current or last sender.
func (r *Receiver) Manifest() Manifest {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.manifest
}

// Peer returns the id and address of the sender of the pending or active transfer.
func (r *Receiver) Peer() (id, addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		addr = r.active.remote()
	}
	return r.peerID, addr
}

func (r *Receiver) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Status{
		State:      r.state,
		Item:       r.item,
		ItemBytes:  r.itemWritten,
		ItemSize:   r.itemSize,
		Items:      r.items,
		TotalItems: len(r.manifest),
		Speed:      r.meter.Sample(),
		AvgSpeed:   r.meter.Average(),
	}
}

func (r *Receiver) handleConn(conn net.Conn) {
	fc := newFrameConn(conn, r.cfg)
	fc.setDeadline(r.cfg.DialTimeout)

	f, _, err := fc.next()
	if err != nil {
		fc.close()
		return
	}

	// Discovery is answered in every state.
	if f.Class == ClassScan {
		if err := fc.write(newScanReplyFrame(r.id), nil); err != nil {
			r.log.WithErr(err).Debug("scan reply failed")
		}
		fc.close()
		return
	}

	if !r.offer(fc, f) {
		fc.close()
		return
	}

	fc.setDeadline(0)

	for {
		f, payload, err := fc.next()
		if err != nil {
			r.lost(fc, err)
			return
		}

		if done := r.handle(fc, f, payload); done {
			return
		}
	}
}

// offer records a send-request as the pending transfer if nothing else is active.
func (r *Receiver) offer(fc *frameConn, f *Frame) bool {
	log := r.log.WithStr("peer", fc.remote())

	if f.Class != ClassSendRequest {
		log.WithStr("class", f.Class).Warn("unexpected first frame")
		return false
	}

	if !f.Identified() {
		log.WithErr(ErrIdentityMismatch).Warn("send request rejected")
		return false
	}

	if len(f.Array) == 0 {
		log.WithErr(ErrInvalidManifest).Warn("send request rejected")
		return false
	}

	if err := Manifest(f.Array).Validate(); err != nil {
		log.WithErr(err).Warn("send request rejected")
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := receiverTransition(r.state, f.Class)
	if err != nil {
		log.WithErr(ErrBusy).Info("refused connection")
		return false
	}

	r.state = next
	r.active = fc
	r.peerID = f.ID
	r.manifest = f.Array
	r.index = r.manifest.Index()
	r.items = 0
	r.resetItem()

	files, dirs := r.manifest.Count()
	log.WithStr("id", f.ID).WithInt("files", files).WithInt("dirs", dirs).Info("send request")

	r.notify()
	return true
}

// handle applies one frame of the active transfer. It reports true once fc
// is no longer the active connection.
func (r *Receiver) handle(fc *frameConn, f *Frame, payload []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.notify()

	if r.active != fc {
		return true
	}

	prev := r.state
	next, err := receiverTransition(prev, f.Class)
	if err != nil {
		r.teardown(ErrNet, fmt.Errorf("%w: %s in %s", err, f.Class, prev))
		return true
	}

	r.log.WithStr("class", f.Class).WithStr("state", next.String()).Debug("frame")

	switch f.Class {
	case ClassNew:
		r.state = next
		r.newItem(f)

	case ClassOk:
		r.state = next
		r.chunk(payload)

	case ClassStop:
		r.state = next
		if prev == ReceiverStop {
			r.flush()
		}

	case ClassDone:
		r.teardown(next, nil)

	case ClassEnd:
		r.teardown(next, nil)
	}

	return r.active != fc
}

func (r *Receiver) newItem(f *Frame) {
	r.abandonItem()

	item := TransferItem{Name: f.Name, Dir: cleanDir(f.Dir), Type: f.Type, Size: f.Size}

	i, ok := r.index[item.RelPath()]
	if !ok || r.manifest[i].Type != item.Type {
		r.teardown(ErrNet, fmt.Errorf("%w: %s", ErrUnknownItem, item.RelPath()))
		return
	}

	target, err := safeJoin(r.root, item)
	if err != nil {
		r.teardown(ErrNet, err)
		return
	}

	r.items++
	r.item = item.RelPath()
	r.itemSize = 0
	r.itemWritten = 0

	log := r.log.WithStr("item", r.item)

	if item.IsDir() {
		if err := os.MkdirAll(target, 0755); err != nil {
			r.teardown(ErrFs, err)
			return
		}

		r.reply(ClassOk)
		return
	}

	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		log.WithErr(err).Warn("skipping item")
		r.reply(ClassNext)
		return
	}

	r.file = file
	r.itemPath = target
	r.itemSize = item.Size
	r.reply(ClassOk)
}

func (r *Receiver) chunk(payload []byte) {
	if r.file == nil {
		r.teardown(ErrNet, ErrNoOpenItem)
		return
	}

	if r.itemWritten+int64(len(payload)) > r.itemSize {
		r.teardown(ErrNet, fmt.Errorf("%w: %s", ErrSizeMismatch, r.item))
		return
	}

	n, err := r.file.Write(payload)
	if err != nil {
		r.log.WithStr("item", r.item).WithErr(err).Warn("write failed, skipping item")
		r.abandonItem()
		r.reply(ClassNext)
		return
	}

	r.itemWritten += int64(n)
	r.meter.Add(n)

	if r.itemWritten == r.itemSize {
		err := r.file.Close()
		r.file = nil

		if err != nil {
			r.log.WithStr("item", r.item).WithErr(err).Warn("close failed, skipping item")
			os.Remove(r.itemPath)
			r.reply(ClassNext)
			return
		}
	}

	r.reply(ClassOk)
}

// reply acknowledges the last frame, or holds the acknowledgement back while
// the consumer has paused the transfer.
func (r *Receiver) reply(class string) {
	if r.state == ReceiverStop {
		r.pending = class
		return
	}

	r.send(&Frame{Class: class})
}

func (r *Receiver) flush() {
	if r.pending == "" {
		return
	}

	class := r.pending
	r.pending = ""
	r.send(&Frame{Class: class})
}

func (r *Receiver) send(f *Frame) {
	if r.active == nil {
		return
	}

	if err := r.active.write(f, nil); err != nil {
		r.teardown(ErrNet, err)
	}
}

// Accept starts receiving into root.
func (r *Receiver) Accept(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.notify()

	if r.state != RecvWait || r.active == nil {
		return ErrInvalidState
	}

	r.root = abs
	r.state = Recv
	r.items = 0
	r.pending = ""
	r.meter.Reset()

	r.log.WithStr("root", abs).Info("accepted")
	r.send(&Frame{Class: ClassOk})

	return nil
}

// Reject refuses the pending transfer and returns to Idle.
func (r *Receiver) Reject() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.notify()

	if r.state != RecvWait || r.active == nil {
		return ErrInvalidState
	}

	err := r.active.write(&Frame{Class: ClassNo}, nil)
	r.active.close()
	r.active = nil
	r.state = Idle

	r.log.Info("rejected")
	return err
}

// Stop pauses an ongoing transfer by withholding acknowledgements.
func (r *Receiver) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.notify()

	if r.state != Recv {
		return false
	}

	r.state = ReceiverStop
	r.send(&Frame{Class: ClassStop})

	return r.state == ReceiverStop
}

// Resume continues a paused transfer with the acknowledgement held back by Stop.
func (r *Receiver) Resume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.notify()

	if r.state != ReceiverStop {
		return false
	}

	r.state = Recv
	r.flush()

	return r.state == Recv
}

// End aborts the transfer and tells the sender.
func (r *Receiver) End() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.notify()

	if !r.state.Active() || r.active == nil {
		return ErrInvalidState
	}

	err := r.active.write(&Frame{Class: ClassEnd}, nil)
	r.teardown(ReceiverEnd, nil)

	return err
}

// Reset acknowledges a terminal state and returns to Idle.
func (r *Receiver) Reset() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.notify()

	if r.state != Idle && !r.state.Terminal() {
		return false
	}

	r.state = Idle
	r.manifest = nil
	r.index = nil
	r.peerID = ""
	r.items = 0
	r.pending = ""
	r.resetItem()

	return true
}

func (r *Receiver) lost(fc *frameConn, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.notify()

	if r.active != fc {
		return
	}

	r.teardown(ErrNet, err)
}

// teardown closes the active connection, drops an incomplete item and moves
// to s. Must be called with mu held.
func (r *Receiver) teardown(s State, err error) {
	r.abandonItem()

	if r.active != nil {
		r.active.close()
		r.active = nil
	}

	r.state = s
	r.pending = ""

	log := r.log.WithStr("state", s.String())
	switch {
	case err != nil:
		log.WithErr(err).Warn("transfer torn down")
	default:
		log.Info("transfer finished")
	}
}

// abandonItem closes and removes a file that has not received all its bytes.
func (r *Receiver) abandonItem() {
	if r.file == nil {
		return
	}

	r.file.Close()
	r.file = nil

	if err := os.Remove(r.itemPath); err != nil {
		r.log.WithStr("item", r.item).WithErr(err).Warn("failed to remove partial file")
	}
}

func (r *Receiver) resetItem() {
	r.abandonItem()
	r.item = ""
	r.itemPath = ""
	r.itemSize = 0
	r.itemWritten = 0
}
