// +build windows

package hostcalls

import (
	"fmt"
	"syscall"
)

// recoverToError turns any panic from a raw FFI call into an error, so a
// bad address never crosses into the render-thread callback as a Go
// panic (spec §7's "environmental errors ... non-fatal to the bridge").
func recoverToError(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("native call panicked: %v", r)
	}
}

// CallCastSpell invokes the host's internal CastLocalPlayerSpell(spell_id,
// 0, target_guid, 0) by address and returns the raw result byte (spec
// §4.3 CastSpell, §8 P9). target_guid is a 64-bit argument passed as two
// 32-bit stack words (low, high) per the 32-bit cdecl ABI the host build
// the spec describes; entry is the offsets-table native-cast-spell
// address.
func CallCastSpell(entry uintptr, spellID int32, targetGUID uint64) (result byte, err error) {
	defer recoverToError(&err)
	if entry == 0 {
		return 0, fmt.Errorf("cast-spell function pointer is null")
	}

	low := uintptr(uint32(targetGUID))
	high := uintptr(uint32(targetGUID >> 32))

	r1, _, _ := syscall.SyscallN(entry,
		uintptr(spellID),
		0,
		low,
		high,
		0,
	)
	return byte(r1), nil
}

// CallFindObjectByGUID invokes the host's find-object-by-guid-and-flags
// entry and returns the resulting object pointer (0 if not found).
func CallFindObjectByGUID(entry uintptr, guid uint64, flags int32) (obj uintptr, err error) {
	defer recoverToError(&err)
	if entry == 0 {
		return 0, fmt.Errorf("find-object function pointer is null")
	}

	low := uintptr(uint32(guid))
	high := uintptr(uint32(guid >> 32))

	r1, _, _ := syscall.SyscallN(entry, low, high, uintptr(flags))
	return r1, nil
}

// CallVectorDiffHemisphere invokes the host's
// unit-vector-difference-within-hemisphere entry with (observer, observed)
// object pointers and reports whether observed is in front of observer.
func CallVectorDiffHemisphere(entry uintptr, observer, observed uintptr) (inFront bool, err error) {
	defer recoverToError(&err)
	if entry == 0 {
		return false, fmt.Errorf("hemisphere-check function pointer is null")
	}

	r1, _, _ := syscall.SyscallN(entry, observer, observed)
	return r1 != 0, nil
}
