package ipc

import (
	"strconv"
	"strings"

	"hostbridge/internal/dispatch"
)

// Parse turns one raw command message into a Request (spec §6.1's command
// grammar). Parsing never fails outright: anything that doesn't match a
// known command, or whose arguments don't parse, becomes KindUnknown
// carrying the original text, which the Dispatcher turns into
// "ERROR:Unknown request" (spec §7, §8 P8).
func Parse(cmd string) dispatch.Request {
	switch {
	case cmd == "ping":
		return dispatch.Request{Kind: dispatch.KindPing}

	case strings.HasPrefix(cmd, "EXEC_LUA:"):
		code := cmd[len("EXEC_LUA:"):]
		return dispatch.Request{Kind: dispatch.KindExecScript, Code: []byte(code)}

	case cmd == "GET_TIME_MS":
		return dispatch.Request{Kind: dispatch.KindGetTimeMs}

	case strings.HasPrefix(cmd, "GET_CD:"):
		spellID, ok := parseInt32(cmd[len("GET_CD:"):])
		if !ok {
			return unknown(cmd)
		}
		return dispatch.Request{Kind: dispatch.KindGetCooldown, SpellID: spellID}

	case strings.HasPrefix(cmd, "IS_IN_RANGE:"):
		body := cmd[len("IS_IN_RANGE:"):]
		idStr, unitID, ok := cutOnce(body, ",")
		if !ok {
			return unknown(cmd)
		}
		spellID, ok := parseInt32(idStr)
		if !ok || len(unitID) > 32 {
			return unknown(cmd)
		}
		return dispatch.Request{Kind: dispatch.KindIsInRange, SpellID: spellID, UnitID: unitID}

	case strings.HasPrefix(cmd, "GET_SPELL_INFO:"):
		spellID, ok := parseInt32(cmd[len("GET_SPELL_INFO:"):])
		if !ok {
			return unknown(cmd)
		}
		return dispatch.Request{Kind: dispatch.KindGetSpellInfo, SpellID: spellID}

	case strings.HasPrefix(cmd, "CAST_SPELL:"):
		body := cmd[len("CAST_SPELL:"):]
		idStr, guidStr, hasGUID := cutOnce(body, ",")
		if !hasGUID {
			idStr = body
		}
		spellID, ok := parseInt32(idStr)
		if !ok {
			return unknown(cmd)
		}
		var guid uint64
		if hasGUID {
			g, ok := parseUint64(guidStr)
			if !ok {
				return unknown(cmd)
			}
			guid = g
		}
		return dispatch.Request{Kind: dispatch.KindCastSpell, SpellID: spellID, TargetGUID: guid}

	case cmd == "GET_TARGET_GUID":
		return dispatch.Request{Kind: dispatch.KindGetTargetGuid}

	case cmd == "GET_COMBO_POINTS":
		return dispatch.Request{Kind: dispatch.KindGetComboPoints}

	case strings.HasPrefix(cmd, "CHECK_BACKSTAB_POS:"):
		guid, ok := parseUint64(cmd[len("CHECK_BACKSTAB_POS:"):])
		if !ok {
			return unknown(cmd)
		}
		return dispatch.Request{Kind: dispatch.KindIsBehindTarget, TargetGUID: guid}

	default:
		return unknown(cmd)
	}
}

func unknown(cmd string) dispatch.Request {
	return dispatch.Request{Kind: dispatch.KindUnknown, Raw: cmd}
}

// cutOnce splits s on the first occurrence of sep, returning ok=false if
// sep isn't present.
func cutOnce(s, sep string) (before, after string, ok bool) {
	i := strings.Index(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

func parseInt32(s string) (int32, bool) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil || v < 0 {
		return 0, false
	}
	return int32(v), true
}

// parseUint64 accepts "0x..." hex (the wire examples use it for GUIDs) or
// plain decimal.
func parseUint64(s string) (uint64, bool) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
