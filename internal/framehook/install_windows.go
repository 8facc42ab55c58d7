// +build windows

package framehook

import (
	"fmt"
	"log/slog"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"hostbridge/internal/offsets"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// Install walks the two pointer indirections from the present-function
// anchor to the device object, reads the vtable slot at the configured
// index, swaps in this Hook's own trampoline, and remembers the original
// entry for chaining (spec §4.4). Any null along the chain aborts
// installation without panicking — the bridge logs and keeps running
// hookless, which is an observable, deliberate degraded state (spec §4.4,
// §7): the queues simply never drain and the IPC side times out every
// response.
func (h *Hook) Install() error {
	anchor := h.offsets.Address(offsets.PresentFunctionAnchor)
	ind1 := readPointer(anchor)
	if ind1 == 0 {
		return logAbort("null anchor")
	}

	ind2 := readPointer(ind1 + h.offsets.Address(offsets.PresentIndirection1))
	if ind2 == 0 {
		return logAbort("null device")
	}

	device := readPointer(ind2 + h.offsets.Address(offsets.PresentIndirection2))
	if device == 0 {
		return logAbort("null device")
	}

	vtable := readPointer(device)
	if vtable == 0 {
		return logAbort("null vtable")
	}

	slot := vtable + h.offsets.Address(offsets.PresentVTableSlot)*ptrSize
	if readPointer(slot) == 0 {
		return logAbort("null slot")
	}

	trampoline := syscall.NewCallback(func(device uintptr) uintptr {
		h.OnPresent(device)
		return 0
	})

	original, err := patchSlot(slot, uintptr(trampoline))
	if err != nil {
		return logAbort(err.Error())
	}

	h.original = original
	h.vtableSlot = slot
	h.installed.Store(true)
	return nil
}

// Uninstall reverses the redirection atomically, restoring the original
// vtable entry.
func (h *Hook) Uninstall() error {
	if !h.installed.Load() {
		return nil
	}
	if _, err := patchSlot(h.vtableSlot, h.original); err != nil {
		return fmt.Errorf("framehook: uninstall: %w", err)
	}
	h.installed.Store(false)
	return nil
}

// patchSlot overwrites the pointer at slot with value, returning the
// value that was there before, unprotecting the containing page for the
// duration of the write since the host's vtable page is typically
// read-only.
func patchSlot(slot, value uintptr) (previous uintptr, err error) {
	var oldProtect uint32
	if err := windows.VirtualProtect(slot, ptrSize, windows.PAGE_EXECUTE_READWRITE, &oldProtect); err != nil {
		return 0, fmt.Errorf("VirtualProtect: %w", err)
	}
	defer windows.VirtualProtect(slot, ptrSize, oldProtect, &oldProtect)

	previous = readPointer(slot)
	*(*uintptr)(unsafe.Pointer(slot)) = value
	return previous, nil
}

func readPointer(addr uintptr) uintptr {
	if addr == 0 {
		return 0
	}
	return *(*uintptr)(unsafe.Pointer(addr))
}

func callThroughOriginal(original, device uintptr) {
	syscall.SyscallN(original, device)
}

func logAbort(reason string) error {
	slog.Error("framehook_install_aborted", "reason", reason, "component", "framehook")
	return fmt.Errorf("framehook: install aborted: %s", reason)
}
