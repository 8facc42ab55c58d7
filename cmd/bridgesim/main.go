// Command bridgesim is a console driver for the Dispatcher and Scripting
// Adapter that never touches a named pipe or a D3D9 device. It builds a
// real, fully usable Lua state in this process (via golua's own
// lua.NewState/OpenLibs, the same construction internal/lua/engine.go
// used) and wires the Dispatcher to it through a process-local
// offsets.Table, so EXEC_LUA and other script-only commands execute
// against a live Lua engine end to end. Commands that need a native host
// function address (GET_SPELL_INFO, CAST_SPELL, CHECK_BACKSTAB_POS, and
// anything else reading raw host memory) have no such address to call in
// this process and will come back with the same null/crash-tagged
// responses they'd produce against an unattached host — there is no host
// for bridgesim to attach to.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"hostbridge/internal/dispatch"
	"hostbridge/internal/ipc"
	"hostbridge/internal/offsets"
	"hostbridge/internal/scripting"
)

func init() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
}

func main() {
	offsetsPath := flag.String("offsets", "", "optional offsets.yaml with extra addresses (e.g. native entries) to layer over the simulated Lua state")
	flag.Parse()

	sim := scripting.NewSimHandle()
	defer sim.Close()

	addresses := map[offsets.Name]uintptr{
		offsets.StatePointerAnchor: sim.Anchor(),
	}
	if *offsetsPath != "" {
		extra, err := offsets.Load(*offsetsPath)
		if err != nil {
			slog.Error("offsets_load_failed", "error", err, "path", *offsetsPath)
			os.Exit(1)
		}
		for _, name := range []offsets.Name{
			offsets.NativeSpellInfoEntry, offsets.NativeCastSpellEntry,
			offsets.ClientConnectionAnchor, offsets.ObjectManagerOffset,
			offsets.LocalGUIDOffset, offsets.ComboPointsAnchor,
			offsets.CurrentTargetGUIDAnchor, offsets.FindObjectByGUIDEntry,
			offsets.VectorDiffHemisphereEntry,
		} {
			if addr, ok := extra.Lookup(name); ok {
				addresses[name] = addr
			}
		}
	}

	offsetsTable := offsets.NewFromAddresses(addresses)
	adapter := scripting.NewAdapter(offsetsTable)
	d := dispatch.New(offsetsTable, adapter)

	slog.Info("bridgesim_ready", "offsets_loaded", offsetsTable.Len())
	fmt.Println("bridgesim: type a wire command per line (ping, EXEC_LUA:..., GET_CD:<id>, ...); Ctrl-D to exit")
	fmt.Println("bridgesim: EXEC_LUA and other script-only commands run against a real Lua state; commands needing a native host function or host memory will report null/crash-tagged errors")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		req := ipc.Parse(line)
		resp := d.Dispatch(req)
		fmt.Println(string(resp))
	}

	if err := scanner.Err(); err != nil {
		slog.Error("stdin_read_failed", "error", err)
		os.Exit(1)
	}
}
