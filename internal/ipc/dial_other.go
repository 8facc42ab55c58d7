//go:build !windows

package ipc

// selfConnectDial is a no-op off Windows: there is no named-pipe transport
// to dial, and tests unblock Accept by closing the fake listener directly.
func selfConnectDial(pipeName string) {}
