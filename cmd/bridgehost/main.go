// Command bridgehost builds as a cgo shared library (-buildmode=c-shared)
// loaded into the host process by an external DLL-injection loader (out of
// scope for this module). There is no CLI and no environment variable
// configuration: the loader calls BridgeAttach once the DLL is mapped,
// and that single call installs the Frame Hook and starts the IPC server.
// func main is required by the c-shared build mode but is never invoked.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"log/slog"
	"os"
	"path/filepath"

	"hostbridge/internal/bridge"
	"hostbridge/internal/config"
	"hostbridge/internal/ipc"
)

func init() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
}

var activeBridge *bridge.Bridge

// BridgeAttach is the loader's single entrypoint. configPath names the
// YAML file holding the offsets table location and bridge tuning knobs,
// resolved relative to the injected module's own directory rather than a
// process working directory the loader may not control. It returns 0 on
// success and a negative value on failure, following the host's existing
// native-call convention of signed result codes rather than raising
// anything across the cgo boundary.
//
//export BridgeAttach
func BridgeAttach(configPath *C.char) C.int {
	path := C.GoString(configPath)
	if !filepath.IsAbs(path) {
		if exe, err := os.Executable(); err == nil {
			path = filepath.Join(filepath.Dir(exe), path)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("config_load_failed", "error", err, "path", path)
		return -1
	}

	b, err := bridge.New(cfg)
	if err != nil {
		slog.Error("bridge_creation_failed", "error", err)
		return -2
	}

	listener, err := ipc.Listen(cfg.PipeName)
	if err != nil {
		slog.Error("pipe_listen_failed", "error", err, "pipe_name", cfg.PipeName)
		return -3
	}

	if err := b.Start(listener); err != nil {
		slog.Error("bridge_start_failed", "error", err)
		return -4
	}

	activeBridge = b
	slog.Info("bridge_attached", "pipe_name", cfg.PipeName)
	return 0
}

// BridgeDetach is the loader's shutdown entrypoint, called before the DLL
// is unmapped from the host process. It is safe to call even if
// BridgeAttach never succeeded.
//
//export BridgeDetach
func BridgeDetach() {
	if activeBridge == nil {
		return
	}
	slog.Info("bridge_detaching")
	activeBridge.Stop()
	activeBridge = nil
}

func main() {}
