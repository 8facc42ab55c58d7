// +build windows

package scripting

import (
	"fmt"
	"syscall"
	"unsafe"
)

// callScriptExecuteEntry invokes the host's "execute arbitrary script text
// with source name" entry point directly by address, stdcall convention
// (the calling convention the host's own internal functions use on 32-bit
// Windows). No return value is read back — this entry point has none
// (spec §4.2).
func callScriptExecuteEntry(entry uintptr, code []byte, sourceName string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script execute entry panicked: %v", r)
		}
	}()
	if entry == 0 {
		return fmt.Errorf("script execute entry is null")
	}

	codePtr, err := syscall.BytePtrFromString(string(code))
	if err != nil {
		return fmt.Errorf("encode script text: %w", err)
	}
	namePtr, err := syscall.BytePtrFromString(sourceName)
	if err != nil {
		return fmt.Errorf("encode source name: %w", err)
	}

	_, _, callErr := syscall.SyscallN(entry,
		uintptr(unsafe.Pointer(codePtr)),
		uintptr(unsafe.Pointer(namePtr)),
	)
	if callErr != 0 {
		return fmt.Errorf("script execute entry returned errno %d", callErr)
	}
	return nil
}
