package ipc

import (
	"net"
	"testing"
	"time"

	"hostbridge/internal/dispatch"
	"hostbridge/internal/queue"
)

// fakeListener serves a single pre-established net.Pipe connection, then
// blocks until closed. It exists so Server.Serve can be exercised without
// a real OS named pipe, which isn't available outside windows.
type fakeListener struct {
	conns  chan net.Conn
	closed chan struct{}
}

func newFakeListener() *fakeListener {
	return &fakeListener{conns: make(chan net.Conn, 4), closed: make(chan struct{})}
}

func (f *fakeListener) Accept() (net.Conn, error) {
	select {
	case c := <-f.conns:
		return c, nil
	case <-f.closed:
		return nil, net.ErrClosed
	}
}

func (f *fakeListener) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}

func TestServerPingShortCircuitsWithoutTouchingRequestQueue(t *testing.T) {
	listener := newFakeListener()
	client, server := net.Pipe()
	listener.conns <- server

	reqQ := queue.NewRequestQueue(0)
	respQ := queue.NewResponseQueue()
	s := New(listener, reqQ, respQ)
	go s.Serve()

	client.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := client.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}

	buf := make([]byte, 64)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(buf[:n])
	if got != "PONG\x00" {
		t.Fatalf("got %q, want PONG\\x00", got)
	}

	if drained := reqQ.Drain(); len(drained) != 0 {
		t.Fatalf("ping must not reach the request queue, got %d queued", len(drained))
	}

	client.Close()
	listener.Close()
}

func TestServerNonPingPushesToRequestQueueAndAwaitsResponse(t *testing.T) {
	listener := newFakeListener()
	client, server := net.Pipe()
	listener.conns <- server

	reqQ := queue.NewRequestQueue(0)
	respQ := queue.NewResponseQueue()
	s := New(listener, reqQ, respQ)
	go s.Serve()

	client.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := client.Write([]byte("GET_TARGET_GUID")); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Act as the render thread: wait for the request to land, then push a
	// response, simulating one Frame Hook tick.
	var req dispatch.Request
	for i := 0; i < 100; i++ {
		if drained := reqQ.Drain(); len(drained) == 1 {
			req = drained[0]
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if req.Kind != dispatch.KindGetTargetGuid {
		t.Fatalf("request never reached the queue, or wrong kind: %+v", req)
	}
	respQ.Push("TARGET_GUID:42")

	buf := make([]byte, 64)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != "TARGET_GUID:42\x00" {
		t.Fatalf("got %q", buf[:n])
	}

	client.Close()
	listener.Close()
}

func TestServerOverloadedQueueRejectsImmediately(t *testing.T) {
	listener := newFakeListener()
	client, server := net.Pipe()
	listener.conns <- server

	reqQ := queue.NewRequestQueue(1)
	reqQ.Push(dispatch.Request{Kind: dispatch.KindGetTargetGuid}) // fill the one slot
	respQ := queue.NewResponseQueue()
	s := New(listener, reqQ, respQ)
	go s.Serve()

	client.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := client.Write([]byte("GET_TARGET_GUID")); err != nil {
		t.Fatalf("write: %v", err)
	}

	buf := make([]byte, 64)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != "ERROR:Overloaded\x00" {
		t.Fatalf("got %q", buf[:n])
	}

	client.Close()
	listener.Close()
}
