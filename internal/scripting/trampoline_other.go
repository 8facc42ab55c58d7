// +build !windows

package scripting

import "fmt"

// callScriptExecuteEntry has no meaning off Windows: the host this bridge
// loads into only exists as a 32-bit Windows process (spec §1). This stub
// keeps the package buildable for tooling and tests on other platforms,
// mirroring the _unix.go/_windows.go split the teacher pack uses for
// platform-specific transports.
func callScriptExecuteEntry(entry uintptr, code []byte, sourceName string) error {
	return fmt.Errorf("scripting: native script execution requires windows")
}
