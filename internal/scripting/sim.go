// +build luajit

package scripting

import (
	"unsafe"

	lua "github.com/aarzilli/golua/lua"
)

// SimHandle owns a real golua state allocated entirely within this
// process (no host attached), the same construction the teacher's own
// internal/lua/engine.go uses — lua.NewState plus OpenLibs — rather than
// a pointer borrowed from host memory. cmd/bridgesim uses it to drive the
// Dispatcher and Scripting Adapter against a live Lua engine.
type SimHandle struct {
	state *lua.State
	cell  *uintptr
}

// NewSimHandle allocates and opens a fresh Lua state. The caller must
// keep the returned handle alive for as long as Anchor's value is read
// through an offsets.Table (see Anchor), and must call Close exactly
// once when done.
func NewSimHandle() *SimHandle {
	L := lua.NewState()
	L.OpenLibs()

	cell := new(uintptr)
	*cell = uintptr(unsafe.Pointer(getCState(L)))

	return &SimHandle{state: L, cell: cell}
}

// Anchor returns a process-local address that, read as a pointer (the
// same way Adapter.State reads offsets.StatePointerAnchor), resolves to
// this handle's real Lua state — the in-process stand-in for the
// pointer-to-pointer the host's own memory would otherwise supply.
func (h *SimHandle) Anchor() uintptr {
	return uintptr(unsafe.Pointer(h.cell))
}

// Close releases the underlying Lua state. The handle must not be used
// afterward.
func (h *SimHandle) Close() {
	h.state.Close()
}
