package core

import (
	"net"
	"sync"
	"time"
)

const readBufferSize = 64 * 1024

// frameConn pairs a connection with its accumulator. Reads happen on a single
// goroutine, writes are serialized by mu.
type frameConn struct {
	conn net.Conn
	acc  *Accumulator
	rbuf []byte

	mu sync.Mutex
}

func newFrameConn(conn net.Conn, cfg *Config) *frameConn {
	return &frameConn{
		conn: conn,
		acc:  NewAccumulator(cfg.MaxHeaderSize, cfg.MaxChunkSize),
		rbuf: make([]byte, readBufferSize),
	}
}

// next blocks until a whole frame (and its payload, if any) has arrived.
func (c *frameConn) next() (*Frame, []byte, error) {
	for {
		f, payload, err := c.acc.TryTakeFrame()
		if err != nil {
			return nil, nil, err
		}

		if f != nil {
			return f, payload, nil
		}

		n, err := c.conn.Read(c.rbuf)
		if n > 0 {
			c.acc.Append(c.rbuf[:n])
		}

		if err != nil {
			return nil, nil, err
		}
	}
}

func (c *frameConn) write(f *Frame, payload []byte) error {
	b, err := Encode(f, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.conn.Write(b)
	return err
}

func (c *frameConn) setDeadline(d time.Duration) {
	if d <= 0 {
		c.conn.SetDeadline(time.Time{})
		return
	}
	c.conn.SetDeadline(time.Now().Add(d))
}

func (c *frameConn) close() error {
	return c.conn.Close()
}

func (c *frameConn) remote() string {
	return c.conn.RemoteAddr().String()
}
