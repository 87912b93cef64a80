// Package connector drives a single outbound TCP connection: dial, one
// request written by the handler, raw inbound bytes relayed until close.
package connector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/matst80/authconn/internal/obs"
)

// State of a Connector. Closed is terminal.
type State int32

const (
	Idle State = iota
	Connecting
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

const defaultReadBufferSize = 64 * 1024

// ErrConnectorUsed is returned when Connect is called on a Connector that already ran.
var ErrConnectorUsed = errors.New("connector already used")

// Target is the remote endpoint.
type Target struct {
	Host string
	Port int
}

func (t Target) Addr() string { return net.JoinHostPort(t.Host, strconv.Itoa(t.Port)) }

// ConnectionError reports a failed dial (refused, unreachable, DNS).
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("connect %s: %v", e.Addr, e.Err) }
func (e *ConnectionError) Unwrap() error { return e.Err }

// WriteError reports that the outbound request could not be written.
type WriteError struct {
	Addr string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Addr, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Handler receives connection events. All methods are called from the
// goroutine running Connect. The slice passed to OnData is reused after the
// call returns.
type Handler interface {
	OnConnected(conn net.Conn) error
	OnData(conn net.Conn, b []byte)
	OnClose(conn net.Conn)
}

// Connector owns exactly one socket for its lifetime.
type Connector struct {
	handler Handler
	state   atomic.Int32

	// DialTimeout bounds the dial; zero waits as long as the OS does.
	DialTimeout time.Duration
	// ReadBufferSize caps the bytes delivered per OnData call.
	ReadBufferSize int
}

func New(h Handler) *Connector {
	return &Connector{handler: h, ReadBufferSize: defaultReadBufferSize}
}

func (c *Connector) State() State { return State(c.state.Load()) }

// Connect dials target and blocks until the connection is closed.
// On dial failure it returns *ConnectionError without invoking the handler.
// Otherwise OnConnected fires once, OnData once per read, and OnClose once
// as the last event. The return value is nil on a peer close, *WriteError if
// OnConnected failed, or the context error if ctx ended the connection.
func (c *Connector) Connect(ctx context.Context, target Target) error {
	if !c.state.CompareAndSwap(int32(Idle), int32(Connecting)) {
		return ErrConnectorUsed
	}
	addr := target.Addr()
	obs.ConnectAttemptsTotal.Inc()
	obs.Debug("client.dial", obs.Fields{"addr": addr})

	d := net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.state.Store(int32(Closed))
		obs.ConnectErrorsTotal.Inc()
		return &ConnectionError{Addr: addr, Err: err}
	}
	c.state.Store(int32(Connected))
	start := time.Now()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	runErr := c.run(conn, addr)

	stop()
	_ = conn.Close()
	c.state.Store(int32(Closed))
	obs.ConnectionDurationSeconds.Observe(time.Since(start).Seconds())
	c.handler.OnClose(conn)

	if runErr == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return runErr
}

func (c *Connector) run(conn net.Conn, addr string) error {
	if err := c.handler.OnConnected(conn); err != nil {
		obs.ErrorsTotal.WithLabelValues("client_write").Inc()
		return &WriteError{Addr: addr, Err: err}
	}
	size := c.ReadBufferSize
	if size <= 0 {
		size = defaultReadBufferSize
	}
	buf := make([]byte, size)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			obs.DataEventsTotal.Inc()
			obs.BytesReceivedTotal.Add(float64(n))
			c.handler.OnData(conn, buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				obs.Debug("client.read", obs.Fields{"err": err.Error(), "addr": addr})
			}
			return nil
		}
	}
}
