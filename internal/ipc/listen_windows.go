//go:build windows

package ipc

import (
	winio "github.com/Microsoft/go-winio"
)

// Listen opens the named pipe the controller dials (spec §4.5, §6.1).
func Listen(pipeName string) (Listener, error) {
	return winio.ListenPipe(pipeName, nil)
}
