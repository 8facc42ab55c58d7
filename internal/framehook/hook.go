// Package framehook installs the bridge's one execution vehicle on the
// host's render thread: a redirect of the host's Direct3D 9
// Present-equivalent device method (spec §4.4). Everything in this
// package that touches a raw address runs on the host's own thread, never
// the bridge's IPC thread — it is one of the three places in the bridge
// unsafe pointer arithmetic is allowed (spec §9).
package framehook

import (
	"sync/atomic"
	"time"

	"hostbridge/internal/diagnostics"
	"hostbridge/internal/dispatch"
	"hostbridge/internal/offsets"
	"hostbridge/internal/queue"
)

// PresentFunc matches the host's Present-equivalent device method
// signature closely enough for the purposes of this bridge: a single
// opaque device pointer argument, returning nothing the bridge cares
// about. The real vtable slot is wider HRESULT-returning D3D9 ABI; the
// installer below only needs the address, not the call signature, since
// it never calls through PresentFunc itself except via the original
// pointer saved at install time.
type PresentFunc func(device uintptr)

// Hook owns the installed redirect and the two queues it bridges between.
// There is exactly one Hook per bridge process (spec §3's singleton
// ownership rule).
type Hook struct {
	offsets   *offsets.Table
	dispatch  *dispatch.Dispatcher
	requests  *queue.RequestQueue
	responses *queue.ResponseQueue

	installed   atomic.Bool
	shutdown    atomic.Bool
	original    uintptr
	vtableSlot  uintptr

	metrics *diagnostics.Metrics
}

// New builds a Hook bound to the given offsets, dispatcher, and queues.
// It does not install anything; call Install explicitly once the host's
// device object is known to exist.
func New(offsetsTable *offsets.Table, d *dispatch.Dispatcher, requests *queue.RequestQueue, responses *queue.ResponseQueue) *Hook {
	return &Hook{offsets: offsetsTable, dispatch: d, requests: requests, responses: responses}
}

// SetMetrics attaches the diagnostics Metrics set OnPresent records
// against (tick duration, queue depths). Nil (the default) disables
// recording, so tests and cmd/bridgesim can build a Hook without a
// diagnostics registry.
func (h *Hook) SetMetrics(m *diagnostics.Metrics) {
	h.metrics = m
}

// RequestShutdown flags the hook so the next OnPresent call skips the
// drain/dispatch pass and falls straight through to the original
// function (spec §4.4 step 1). It does not uninstall the hook; call
// Uninstall separately once the render thread is known to be idle.
func (h *Hook) RequestShutdown() {
	h.shutdown.Store(true)
}

// OnPresent is the callback installed in place of the host's own
// Present-equivalent method. It must run entirely on the render thread;
// it is the only place in the bridge that calls the Dispatcher.
func (h *Hook) OnPresent(device uintptr) {
	if h.shutdown.Load() {
		h.callOriginal(device)
		return
	}

	tickStart := time.Now()

	drained := h.requests.Drain()
	for _, req := range drained {
		if req.Kind == dispatch.KindPing {
			// Ping is short-circuited at the IPC layer before it ever
			// reaches the request queue (spec §4.5); seeing one here would
			// mean that guarantee broke, not a reason to crash the host.
			h.responses.Push("PONG")
			continue
		}
		resp := h.dispatch.Dispatch(req)
		h.responses.Push(resp)
	}

	if h.metrics != nil {
		h.metrics.FrameTickSeconds.Observe(time.Since(tickStart).Seconds())
		h.metrics.QueueDepth.Set(float64(h.requests.Len()))
		h.metrics.ResponseQueueDepth.Set(float64(h.responses.Len()))
	}

	h.callOriginal(device)
}

func (h *Hook) callOriginal(device uintptr) {
	if h.original == 0 {
		return
	}
	callThroughOriginal(h.original, device)
}

// Installed reports whether Install succeeded.
func (h *Hook) Installed() bool {
	return h.installed.Load()
}
