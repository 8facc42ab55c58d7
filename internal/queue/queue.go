// Package queue implements the RequestQueue and ResponseQueue the IPC
// Server and Frame Hook hand work through (spec §3, §5, §9). Both are
// single-producer/single-consumer in steady state — one IPC connection
// goroutine pushes, the render thread drains — but the channel-backed
// implementation tolerates the handful of IPC connections the pipe
// actually allows concurrently without extra locking beyond the channel
// itself, the same shape as the teacher's channel-backed LuaStatePool.
package queue

import (
	"fmt"
	"sync"

	"hostbridge/internal/dispatch"
)

// RequestQueue carries Requests from IPC connection goroutines to the
// Frame Hook's per-tick drain. A zero capacity means unbounded (spec's
// default); a positive capacity makes Push reject with an overloaded
// error once full rather than blocking the IPC thread indefinitely
// (spec §9's accepted refinement over an unbounded queue).
type RequestQueue struct {
	ch       chan dispatch.Request
	bounded  bool
	mu       sync.Mutex
	closed   bool
}

// NewRequestQueue builds a RequestQueue. capacity <= 0 means unbounded;
// unbounded is backed by a large buffered channel rather than a literal
// infinite one, since an actually-unbounded channel isn't expressible and
// the bridge's lifetime load is bounded by controller round-trip latency.
func NewRequestQueue(capacity int) *RequestQueue {
	if capacity <= 0 {
		return &RequestQueue{ch: make(chan dispatch.Request, unboundedCapacity), bounded: false}
	}
	return &RequestQueue{ch: make(chan dispatch.Request, capacity), bounded: true}
}

const unboundedCapacity = 4096

// Push enqueues req. When the queue is bounded and full, it returns an
// error immediately instead of blocking; the IPC Server turns that into
// the wire-level "ERROR:Overloaded" response (spec §7, §9).
func (q *RequestQueue) Push(req dispatch.Request) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("queue: closed")
	}
	q.mu.Unlock()

	select {
	case q.ch <- req:
		return nil
	default:
		if !q.bounded {
			// Unbounded queues still have a backing buffer; a full unbounded
			// buffer means the bridge has fallen far enough behind that
			// blocking briefly is preferable to dropping work.
			q.ch <- req
			return nil
		}
		return fmt.Errorf("queue: overloaded")
	}
}

// Drain removes and returns every Request currently queued, without
// blocking. The Frame Hook calls this once per Present tick (spec §4.4).
func (q *RequestQueue) Drain() []dispatch.Request {
	var out []dispatch.Request
	for {
		select {
		case req := <-q.ch:
			out = append(out, req)
		default:
			return out
		}
	}
}

// Close marks the queue closed; further Push calls fail. Already-queued
// requests remain drainable.
func (q *RequestQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Len reports how many requests are currently queued, for the diagnostics
// gauge (ambient supplement). Reading channel length concurrently with
// Push/Drain is safe; the value is a snapshot, not a guarantee.
func (q *RequestQueue) Len() int {
	return len(q.ch)
}

// ResponseQueue is a single shared FIFO of Responses, written by the Frame
// Hook in dispatch order and polled by the IPC thread (spec §3, §4.5).
// There is deliberately no per-request correlation: the wire protocol has
// no sequence id (spec §9's open question), so whichever response reaches
// the front of the queue is assumed to belong to the single outstanding
// request on the single allowed connection.
type ResponseQueue struct {
	ch chan dispatch.Response
}

// NewResponseQueue builds a ResponseQueue with a generous backing buffer;
// like RequestQueue, an actually-unbounded channel isn't expressible, and
// the bridge only ever has one connection in flight.
func NewResponseQueue() *ResponseQueue {
	return &ResponseQueue{ch: make(chan dispatch.Response, unboundedCapacity)}
}

// Push appends resp to the queue. The Frame Hook calls this once per
// drained request, in the same order the requests were dispatched (spec
// §5's ordering guarantee).
func (r *ResponseQueue) Push(resp dispatch.Response) {
	r.ch <- resp
}

// TryPop removes and returns the front Response if one is queued, without
// blocking.
func (r *ResponseQueue) TryPop() (dispatch.Response, bool) {
	select {
	case resp := <-r.ch:
		return resp, true
	default:
		return "", false
	}
}

// Len reports how many responses are currently queued, for the
// diagnostics gauge (ambient supplement).
func (r *ResponseQueue) Len() int {
	return len(r.ch)
}
