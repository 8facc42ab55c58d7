// Package scripting wraps the host's embedded scripting engine's C API
// (load buffer, pcall, stack get/set, type query, value conversions) behind
// a type-safe adapter. No raw pointer value is allowed to leak past this
// package's boundary: every exported method takes and returns plain Go
// values. All methods must run on the host's render thread — the adapter
// owns no threads of its own and performs no synchronization.
//
// Build convention: this package requires the `luajit` build tag (it links
// against the host's embedded LuaJIT via cgo, same as the teacher's
// internal/lua package did). A 386 Windows build of the bridge DLL always
// carries that tag.
package scripting

import (
	"fmt"
	"log/slog"

	lua "github.com/aarzilli/golua/lua"

	"hostbridge/internal/offsets"
)

// SpellInfo is the structured result of a GetSpellInfo call (spec §4.2).
// MaxRange is nil when the host's stack slot 10 was absent, matching the
// spec's "optional max-range (number, 10 if present)".
type SpellInfo struct {
	Name      string
	Rank      string
	Icon      string
	Cost      float64
	PowerType int
	CastTime  float64 // milliseconds, per adapter contract (§4.2 reads it from the stack in seconds-equivalent; dispatcher rounds)
	MinRange  float64
	MaxRange  *float64
}

// Adapter wraps the host's embedded scripting engine. It is stateless
// between calls other than the offsets table it was built with: the
// ScriptingState handle is re-read from the anchor address on every call,
// never cached, per spec §4.2.
type Adapter struct {
	offsets *offsets.Table
}

// NewAdapter builds a Scripting Adapter bound to the given offsets table.
func NewAdapter(offsetsTable *offsets.Table) *Adapter {
	return &Adapter{offsets: offsetsTable}
}

// State retrieves the ScriptingState handle by reading a pointer-sized
// value at the configured anchor address. It returns (nil, false) if that
// value is zero; callers must not cache the result beyond the current
// dispatch.
func (a *Adapter) State() (*lua.State, bool) {
	anchor := a.offsets.Address(offsets.StatePointerAnchor)
	raw := readPointer(anchor)
	if raw == 0 {
		return nil, false
	}
	return wrapState(raw), true
}

// StateReady reports whether the ScriptingState handle currently resolves
// to a non-null pointer, without otherwise touching the stack. Dispatch
// guards call this before doing any scripting work (spec §4.3's
// pre-dispatch null checks).
func (a *Adapter) StateReady() bool {
	_, ok := a.State()
	return ok
}

// SimpleExecute invokes the host's "execute arbitrary script text with
// source name" entry point. No return value is available through this
// entry point — it is intended for fire-and-forget work (spec §4.2).
func (a *Adapter) SimpleExecute(code []byte, sourceName string) error {
	entry := a.offsets.Address(offsets.ScriptExecuteEntry)
	return callScriptExecuteEntry(entry, code, sourceName)
}

// PCallExecute runs code through the host's pcall and returns the
// "LUA_RESULT:..." string the dispatcher passes straight through to the
// controller (spec §4.2 steps 1-8). The scripting stack is restored to its
// pre-call depth on every exit path, success or failure.
func (a *Adapter) PCallExecute(code []byte) string {
	L, ok := a.State()
	if !ok {
		return "LUA_RESULT:ERROR:state null"
	}

	result, err := a.protectedPCallExecute(L, code)
	if err != nil {
		slog.Error("scripting_pcall_panic", "error", err, "component", "scripting")
		L.SetTop(0)
		return "LUA_RESULT:ERROR:crash:" + err.Error()
	}
	return result
}

// protectedPCallExecute does the actual stack-disciplined work and
// recovers from anything the host's C API raises, so no panic from cgo
// code ever escapes into the render-thread callback (spec §7, §9).
func (a *Adapter) protectedPCallExecute(L *lua.State, code []byte) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	top, nresults, stage, msg := loadAndCall(L, string(code))
	if stage != "" {
		return "LUA_RESULT:ERROR:" + stage + " failed:" + msg, nil
	}

	values := make([]string, 0, nresults)
	for i := 0; i < nresults; i++ {
		idx := top + 1 + i
		values = append(values, a.coerceToString(L, idx))
	}
	L.SetTop(top)

	return "LUA_RESULT:" + joinComma(values), nil
}

// loadAndCall loads and protected-calls code against L, leaving any
// results on the stack above top. stage is "" on success, "load" or
// "pcall" naming which step failed (with msg set from the host's error
// string); the stack is already restored to top before returning on
// failure. Callers are responsible for restoring the stack on success
// once they've finished reading results.
func loadAndCall(L *lua.State, code string) (top, nresults int, stage, msg string) {
	top = L.GetTop()

	if status := L.LoadString(code); status != 0 {
		msg = L.ToString(-1)
		L.SetTop(top)
		return top, 0, "load", msg
	}

	if callErr := L.PCall(0, -1 /* LUA_MULTRET */, 0); callErr != nil {
		msg = L.ToString(-1)
		L.SetTop(top)
		return top, 0, "pcall", msg
	}

	return top, L.GetTop() - top, "", ""
}

// ValueKind tags the shape of a single Lua value surfaced to the
// Dispatcher without exposing any *lua.State plumbing.
type ValueKind int

const (
	KindNil ValueKind = iota
	KindBool
	KindNumber
	KindOther
)

// Value is a typed, adapter-boundary-safe view of one Lua result.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Number float64
}

// Eval runs code expecting exactly one result and surfaces it as a typed
// Value (spec §4.3's IsInRange interpretation: number / boolean / nil /
// anything else). stage/msg mirror loadAndCall's failure reporting; a
// non-empty stage means the chunk itself failed, not that the adapter
// crashed.
func (a *Adapter) Eval(code string) (value Value, stage, msg string, err error) {
	L, ok := a.State()
	if !ok {
		return Value{}, "", "", fmt.Errorf("state null")
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	top, nresults, failStage, failMsg := loadAndCall(L, code)
	if failStage != "" {
		return Value{}, failStage, failMsg, nil
	}
	defer L.SetTop(top)

	if nresults == 0 {
		return Value{Kind: KindNil}, "", "", nil
	}

	idx := top + 1
	switch L.Type(idx) {
	case lua.LUA_TNIL:
		return Value{Kind: KindNil}, "", "", nil
	case lua.LUA_TBOOLEAN:
		return Value{Kind: KindBool, Bool: L.ToBoolean(idx)}, "", "", nil
	case lua.LUA_TNUMBER:
		return Value{Kind: KindNumber, Number: L.ToNumber(idx)}, "", "", nil
	default:
		return Value{Kind: KindOther}, "", "", nil
	}
}

// EvalNumbers runs code expecting exactly want numeric results (spec
// §4.3's GetCooldown: start/duration/enabled). A type mismatch or wrong
// result count is reported via ok=false rather than err, matching the
// spec's "any non-numeric result slot is an error" wording — that's a
// script-contract failure, not an adapter crash.
func (a *Adapter) EvalNumbers(code string, want int) (values []float64, stage, msg string, ok bool, err error) {
	L, stateOK := a.State()
	if !stateOK {
		return nil, "", "", false, fmt.Errorf("state null")
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	top, nresults, failStage, failMsg := loadAndCall(L, code)
	if failStage != "" {
		return nil, failStage, failMsg, false, nil
	}
	defer L.SetTop(top)

	if nresults != want {
		return nil, "", "", false, nil
	}

	values = make([]float64, want)
	for i := 0; i < want; i++ {
		idx := top + 1 + i
		if !L.IsNumber(idx) {
			return nil, "", "", false, nil
		}
		values[i] = L.ToNumber(idx)
	}
	return values, "", "", true, nil
}

// coerceToString converts the value at idx using the host's string
// coercion primitive, which the spec says handles numbers, booleans, nil,
// and strings (spec §4.2 step 6).
func (a *Adapter) coerceToString(L *lua.State, idx int) string {
	switch L.Type(idx) {
	case lua.LUA_TNIL:
		return "nil"
	case lua.LUA_TBOOLEAN:
		if L.ToBoolean(idx) {
			return "true"
		}
		return "false"
	default:
		return L.ToString(idx)
	}
}

func joinComma(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}

// GetSpellInfo invokes the host's native GetSpellInfo C function directly
// (pushing one integer argument) and reads back the variable result count
// from the stack, per spec §4.2's result schema. Missing or wrong-typed
// fields yield sentinel values.
func (a *Adapter) GetSpellInfo(spellID int32) (SpellInfo, error) {
	L, ok := a.State()
	if !ok {
		return SpellInfo{}, fmt.Errorf("state null")
	}

	entry := a.offsets.Address(offsets.NativeSpellInfoEntry)

	var info SpellInfo
	var callErr error

	func() {
		defer func() {
			if r := recover(); r != nil {
				callErr = fmt.Errorf("%v", r)
			}
		}()

		top := L.GetTop()
		defer L.SetTop(top)

		L.PushInteger(int64(spellID))
		if err := invokeNative(L, entry, 1); err != nil {
			callErr = err
			return
		}

		info = readSpellInfoFromStack(L, top)
	}()

	return info, callErr
}

// readSpellInfoFromStack reads the schema the spec describes: name (string,
// index offset 2), rank (string, 3), icon (string, 4), cost (number, 5),
// power-type (integer, 7), cast-time ms (number, 8), min-range (number, 9),
// optional max-range (number, 10 if present). Offsets are relative to the
// stack depth snapshot taken before the native call.
func readSpellInfoFromStack(L *lua.State, base int) SpellInfo {
	info := SpellInfo{
		Name:      stringAt(L, base+2, "N/A"),
		Rank:      stringAt(L, base+3, "N/A"),
		Icon:      stringAt(L, base+4, "N/A"),
		Cost:      numberAt(L, base+5, -1.0),
		PowerType: intAt(L, base+7, -1),
		CastTime:  numberAt(L, base+8, -1.0),
		MinRange:  numberAt(L, base+9, -1.0),
	}
	if L.GetTop() >= base+10 && L.IsNumber(base+10) {
		v := L.ToNumber(base + 10)
		info.MaxRange = &v
	}
	return info
}

func stringAt(L *lua.State, idx int, sentinel string) string {
	if L.GetTop() >= idx && L.IsString(idx) {
		return L.ToString(idx)
	}
	return sentinel
}

func numberAt(L *lua.State, idx int, sentinel float64) float64 {
	if L.GetTop() >= idx && L.IsNumber(idx) {
		return L.ToNumber(idx)
	}
	return sentinel
}

func intAt(L *lua.State, idx int, sentinel int) int {
	if L.GetTop() >= idx && L.IsNumber(idx) {
		return L.ToInteger(idx)
	}
	return sentinel
}

// PushInteger, PushString, PopInteger, PopNumber, PopBoolean, and TypeOf
// are the typed argument push/pop primitives the spec lists for pcall
// paths (§4.2). They are thin, named wrappers so no caller ever touches
// *lua.State's raw stack index conventions directly outside this package.

func (a *Adapter) PushInteger(L *lua.State, v int64) { L.PushInteger(v) }
func (a *Adapter) PushString(L *lua.State, v string) { L.PushString(v) }
func (a *Adapter) PopInteger(L *lua.State) int {
	v := L.ToInteger(-1)
	L.Pop(1)
	return v
}
func (a *Adapter) PopNumber(L *lua.State) float64 {
	v := L.ToNumber(-1)
	L.Pop(1)
	return v
}
func (a *Adapter) PopBoolean(L *lua.State) bool {
	v := L.ToBoolean(-1)
	L.Pop(1)
	return v
}
func (a *Adapter) TypeOf(L *lua.State, idx int) int { return L.Type(idx) }
