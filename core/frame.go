package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
)

const (
	AppName = "SendDone"
	VERSION = "0.1.0"

	ClassScan        = "scan"
	ClassSendRequest = "send-request"
	ClassOk          = "ok"
	ClassNo          = "no"
	ClassNew         = "new"
	ClassNext        = "next"
	ClassDone        = "done"
	ClassStop        = "stop"
	ClassEnd         = "end"
)

// delim terminates every header. encoding/json escapes control characters
// inside strings and never emits raw newlines, so it cannot occur in a header.
var delim = []byte("\n\n")

var (
	ErrMalformedHeader  = errors.New("malformed header")
	ErrHeaderTooLarge   = errors.New("header exceeds maximum size")
	ErrChunkTooLarge    = errors.New("chunk exceeds maximum size")
	ErrIdentityMismatch = errors.New("app or version mismatch")
)

// Frame is one protocol message. Which fields are set depends on Class.
type Frame struct {
	App     string         `json:"app,omitempty"`
	Version string         `json:"version,omitempty"`
	Class   string         `json:"class"`
	ID      string         `json:"id,omitempty"`
	OS      string         `json:"os,omitempty"`
	Array   []TransferItem `json:"array,omitempty"`
	Name    string         `json:"name,omitempty"`
	Dir     string         `json:"dir,omitempty"`
	Type    Kind           `json:"type,omitempty"`
	Size    int64          `json:"size,omitempty"`
}

// HasPayload reports whether size raw bytes follow the header on the wire.
// Only chunk frames carry a payload; acknowledgements decode with Size 0.
func (f *Frame) HasPayload() bool {
	return f.Class == ClassOk && f.Size > 0
}

// Identified reports whether the frame carries this protocol's app and version.
func (f *Frame) Identified() bool {
	return f.App == AppName && f.Version == VERSION
}

func newScanFrame(id string) *Frame {
	return &Frame{App: AppName, Version: VERSION, Class: ClassScan, ID: id, OS: runtime.GOOS}
}

func newScanReplyFrame(id string) *Frame {
	return &Frame{App: AppName, Version: VERSION, Class: ClassOk, ID: id, OS: runtime.GOOS}
}

func newSendRequestFrame(id string, m Manifest) *Frame {
	return &Frame{App: AppName, Version: VERSION, Class: ClassSendRequest, ID: id, OS: runtime.GOOS, Array: m}
}

// Encode serializes the header, appends the delimiter and then the payload.
func Encode(f *Frame, payload []byte) ([]byte, error) {
	if f == nil || f.Class == "" {
		return nil, ErrMalformedHeader
	}

	if int64(len(payload)) != f.Size && (len(payload) > 0 || f.Class == ClassOk) {
		return nil, fmt.Errorf("%w: size %d, payload %d bytes", ErrMalformedHeader, f.Size, len(payload))
	}

	header, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(header)+len(delim)+len(payload))
	buf = append(buf, header...)
	buf = append(buf, delim...)
	buf = append(buf, payload...)

	return buf, nil
}

// TryDecode splits the first header off buf. It returns ok == false when the
// delimiter has not arrived yet. The remainder is everything after the
// delimiter and may already hold part of a payload or the next frame.
func TryDecode(buf []byte) (f *Frame, remainder []byte, ok bool, err error) {
	i := bytes.Index(buf, delim)
	if i < 0 {
		return nil, buf, false, nil
	}

	f = &Frame{}
	if err := json.Unmarshal(buf[:i], f); err != nil {
		return nil, nil, true, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	if f.Class == "" {
		return nil, nil, true, ErrMalformedHeader
	}

	if f.Size < 0 {
		return nil, nil, true, fmt.Errorf("%w: negative size", ErrMalformedHeader)
	}

	return f, buf[i+len(delim):], true, nil
}

// Accumulator buffers bytes read from a stream and hands out whole frames
// together with their payload. It is the only place that knows about partial
// headers and partial payloads.
type Accumulator struct {
	buf           []byte
	pending       *Frame
	maxHeaderSize int
	maxChunkSize  int64
}

func NewAccumulator(maxHeaderSize int, maxChunkSize int64) *Accumulator {
	return &Accumulator{
		maxHeaderSize: maxHeaderSize,
		maxChunkSize:  maxChunkSize,
	}
}

func (a *Accumulator) Append(p []byte) {
	a.buf = append(a.buf, p...)
}

// Buffered is the number of bytes not yet handed out.
func (a *Accumulator) Buffered() int {
	return len(a.buf)
}

// TryTakeFrame returns the next complete frame and its payload, or nil if more
// bytes are needed. The returned payload is a copy and stays valid.
func (a *Accumulator) TryTakeFrame() (*Frame, []byte, error) {
	if a.pending == nil {
		f, rest, ok, err := TryDecode(a.buf)
		if err != nil {
			return nil, nil, err
		}

		if !ok {
			if a.maxHeaderSize > 0 && len(a.buf) > a.maxHeaderSize {
				return nil, nil, ErrHeaderTooLarge
			}
			return nil, nil, nil
		}

		if a.maxChunkSize > 0 && f.HasPayload() && f.Size > a.maxChunkSize {
			return nil, nil, fmt.Errorf("%w: %d bytes", ErrChunkTooLarge, f.Size)
		}

		a.pending = f
		a.buf = rest
	}

	f := a.pending
	if !f.HasPayload() {
		a.pending = nil
		a.compact()
		return f, nil, nil
	}

	if int64(len(a.buf)) < f.Size {
		return nil, nil, nil
	}

	payload := make([]byte, f.Size)
	copy(payload, a.buf[:f.Size])
	a.buf = a.buf[f.Size:]
	a.pending = nil
	a.compact()

	return f, payload, nil
}

// compact drops the consumed prefix so the backing array does not keep
// growing across a multi-gigabyte transfer.
func (a *Accumulator) compact() {
	if len(a.buf) == 0 {
		a.buf = nil
		return
	}

	if cap(a.buf) > 2*len(a.buf) {
		a.buf = append([]byte(nil), a.buf...)
	}
}
