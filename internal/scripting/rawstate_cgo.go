// +build luajit

package scripting

/*
#include <stdlib.h>
#include <lua.h>
#include <lauxlib.h>
#include <lualib.h>

// call_lua_cfunction invokes a raw lua_CFunction-shaped pointer (the
// calling convention the host's own native API functions — GetSpellInfo
// and friends — use: int (*)(lua_State*), consuming arguments off the
// stack and returning a result count). This is the trampoline that lets
// the adapter call an address out of the offsets table as if it were a
// normal Lua C function.
static int call_lua_cfunction(void *fn, lua_State *L) {
    lua_CFunction f = (lua_CFunction)fn;
    return f(L);
}
*/
import "C"

import (
	"fmt"
	"reflect"
	"unsafe"

	lua "github.com/aarzilli/golua/lua"
)

// cStateField extracts (or, with assign, overwrites) the unexported *C.lua_State
// field golua's State struct carries. Reading it is the teacher's own
// batch_helpers.go trick (getLuaState); writing it is the same trick run in
// reverse, which is how wrapState below turns a bare host address into a
// *lua.State the rest of the package can call ordinary golua methods on.
func cStateField(L *lua.State) reflect.Value {
	v := reflect.ValueOf(L).Elem()
	field := v.FieldByName("s")
	if !field.IsValid() {
		panic("scripting: golua.State layout changed, no field 's'")
	}
	return reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem()
}

// getCState returns the raw *C.lua_State backing L.
func getCState(L *lua.State) *C.lua_State {
	return *(**C.lua_State)(unsafe.Pointer(cStateField(L).UnsafeAddr()))
}

// wrapState builds a *lua.State whose internal C pointer is addr, the raw
// host-process address read from the ScriptingState anchor. The returned
// value must never be passed to Close, NewState-owning helpers, or
// anything else that assumes golua allocated the state — it is a borrowed
// view over memory the host owns.
func wrapState(addr uintptr) *lua.State {
	L := &lua.State{}
	field := cStateField(L)
	field.Set(reflect.ValueOf((*C.lua_State)(unsafe.Pointer(addr))))
	return L
}

// invokeNative calls the host's native C function at entry (e.g.
// GetSpellInfo) using the lua_CFunction convention: it consumes nargs
// stack arguments already pushed by the caller and leaves its results on
// the stack. The int it returns is the number of results per the Lua C
// API contract, but callers here read results positionally instead
// (spec §4.2), so the count itself is discarded.
func invokeNative(L *lua.State, entry uintptr, nargs int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("native call at %#x panicked: %v", entry, r)
		}
	}()
	if entry == 0 {
		return fmt.Errorf("native function pointer is null")
	}
	C.call_lua_cfunction(unsafe.Pointer(entry), getCState(L))
	return nil
}
