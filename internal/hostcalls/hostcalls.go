// Package hostcalls holds the two remaining raw-address operations the
// Command Dispatcher performs without going through the Scripting Adapter:
// static memory reads and direct invocation of internal host C functions
// by address (spec §4.3's GetTargetGuid, GetComboPoints, CastSpell,
// IsBehindTarget). Together with internal/scripting and internal/framehook,
// this is one of the three places spec §9 allows unsafe pointer
// dereferences — elsewhere in the bridge only typed values flow.
package hostcalls

import "unsafe"

// ReadUint64 reads an 8-byte value at addr. Used for GetTargetGuid.
func ReadUint64(addr uintptr) uint64 {
	if addr == 0 {
		return 0
	}
	return *(*uint64)(unsafe.Pointer(addr))
}

// ReadUint8 reads a single byte at addr. Used for GetComboPoints.
func ReadUint8(addr uintptr) uint8 {
	if addr == 0 {
		return 0
	}
	return *(*uint8)(unsafe.Pointer(addr))
}

// ReadPointer reads a pointer-sized value at addr. Used for the
// IsBehindTarget chain: client-connection anchor -> object manager -> etc.
func ReadPointer(addr uintptr) uintptr {
	if addr == 0 {
		return 0
	}
	return *(*uintptr)(unsafe.Pointer(addr))
}
