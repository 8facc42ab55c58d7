// +build !windows

package hostcalls

import "fmt"

// These raw native calls only make sense against the real 32-bit Windows
// host process (spec §1). The stubs keep the package buildable elsewhere,
// mirroring the platform-file split used throughout this bridge.

func CallCastSpell(entry uintptr, spellID int32, targetGUID uint64) (byte, error) {
	return 0, fmt.Errorf("hostcalls: CastSpell requires windows")
}

func CallFindObjectByGUID(entry uintptr, guid uint64, flags int32) (uintptr, error) {
	return 0, fmt.Errorf("hostcalls: FindObjectByGUID requires windows")
}

func CallVectorDiffHemisphere(entry uintptr, observer, observed uintptr) (bool, error) {
	return false, fmt.Errorf("hostcalls: VectorDiffHemisphere requires windows")
}
