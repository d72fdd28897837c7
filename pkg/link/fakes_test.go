package link

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// fakeConn delivers scripted messages and errors.
type fakeConn struct {
	msgs       chan []byte
	errs       chan error
	closed     chan struct{}
	closeCalls atomic.Int32
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		msgs:   make(chan []byte, 16),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	// Drain queued messages before reporting errors.
	select {
	case m := <-c.msgs:
		return websocket.TextMessage, m, nil
	default:
	}
	select {
	case m := <-c.msgs:
		return websocket.TextMessage, m, nil
	case err := <-c.errs:
		return 0, nil, err
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) Close() error {
	if c.closeCalls.Add(1) == 1 {
		close(c.closed)
	}
	return nil
}

func (c *fakeConn) send(packets ...string) {
	for _, p := range packets {
		c.msgs <- []byte(p)
	}
}

type dialResult struct {
	conn *fakeConn
	err  error
}

// fakeDialer hands out scripted results, repeating the last one.
type fakeDialer struct {
	mu      sync.Mutex
	results []dialResult
	calls   int
}

func (d *fakeDialer) Dial(ctx context.Context, address string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := d.results[min(d.calls, len(d.results)-1)]
	d.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.conn, nil
}

func (d *fakeDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
