//go:build !windows

package ipc

import "fmt"

// Listen is unavailable off Windows: named-pipe IPC is a Windows-only
// transport. cmd/bridgesim never calls this; it drives the Dispatcher
// directly instead of going through the pipe.
func Listen(pipeName string) (Listener, error) {
	return nil, fmt.Errorf("ipc: named-pipe listener requires windows, got GOOS build")
}
