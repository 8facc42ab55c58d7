// +build !windows

package framehook

import "fmt"

// Outside windows, Install always returns an error and Uninstall and
// callThroughOriginal do nothing; the frame hook only makes sense against
// a real D3D9 device (spec §1). This keeps internal/bridge buildable and
// testable on a non-Windows dev machine.

func (h *Hook) Install() error {
	return fmt.Errorf("framehook: install requires windows")
}

func (h *Hook) Uninstall() error {
	return nil
}

func callThroughOriginal(original, device uintptr) {}
