//go:build windows

package ipc

import (
	"time"

	winio "github.com/Microsoft/go-winio"
)

// selfConnectDial opens and immediately closes a connection to pipeName,
// used only to unblock a pending Accept during Shutdown. A failed dial is
// not an error worth reporting: it usually just means the listener was
// already torn down before the dummy connect landed.
func selfConnectDial(pipeName string) {
	dialTimeout := 200 * time.Millisecond
	conn, err := winio.DialPipe(pipeName, &dialTimeout)
	if err != nil {
		return
	}
	conn.Close()
}
