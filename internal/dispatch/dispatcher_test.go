package dispatch

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"hostbridge/internal/offsets"
	"hostbridge/internal/scripting"
)

// fakeEngine is a ScriptingEngine test double with no real Lua state.
type fakeEngine struct {
	ready       bool
	pcallResult string
	evalValue   scripting.Value
	evalStage   string
	evalMsg     string
	evalErr     error
	numbers     []float64
	numStage    string
	numMsg      string
	numOK       bool
	numErr      error
	spellInfo   scripting.SpellInfo
	spellErr    error
}

func (f *fakeEngine) StateReady() bool                  { return f.ready }
func (f *fakeEngine) PCallExecute(code []byte) string    { return f.pcallResult }
func (f *fakeEngine) Eval(code string) (scripting.Value, string, string, error) {
	return f.evalValue, f.evalStage, f.evalMsg, f.evalErr
}
func (f *fakeEngine) EvalNumbers(code string, want int) ([]float64, string, string, bool, error) {
	return f.numbers, f.numStage, f.numMsg, f.numOK, f.numErr
}
func (f *fakeEngine) GetSpellInfo(spellID int32) (scripting.SpellInfo, error) {
	return f.spellInfo, f.spellErr
}

// fakeMemory is a HostMemory test double reading from a plain map instead
// of real process memory.
type fakeMemory struct {
	u64        map[uintptr]uint64
	u8         map[uintptr]uint8
	ptr        map[uintptr]uintptr
	castResult byte
	castErr    error
	findResult map[uint64]uintptr
	findErr    error
	hemisphere map[uintptr]bool
	hemiErr    error
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{
		u64:        map[uintptr]uint64{},
		u8:         map[uintptr]uint8{},
		ptr:        map[uintptr]uintptr{},
		findResult: map[uint64]uintptr{},
		hemisphere: map[uintptr]bool{},
	}
}

func (f *fakeMemory) ReadUint64(addr uintptr) uint64   { return f.u64[addr] }
func (f *fakeMemory) ReadUint8(addr uintptr) uint8      { return f.u8[addr] }
func (f *fakeMemory) ReadPointer(addr uintptr) uintptr { return f.ptr[addr] }
func (f *fakeMemory) CastSpell(entry uintptr, spellID int32, targetGUID uint64) (byte, error) {
	return f.castResult, f.castErr
}
func (f *fakeMemory) FindObjectByGUID(entry uintptr, guid uint64, flags int32) (uintptr, error) {
	if f.findErr != nil {
		return 0, f.findErr
	}
	return f.findResult[guid], nil
}
func (f *fakeMemory) VectorDiffHemisphere(entry uintptr, observer, observed uintptr) (bool, error) {
	if f.hemiErr != nil {
		return false, f.hemiErr
	}
	return f.hemisphere[observer], nil
}

func testOffsets(t *testing.T) *offsets.Table {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/offsets.yaml"
	content := `
addresses:
  native_cast_spell_entry: "0x1000"
  current_target_guid_anchor: "0x2000"
  combo_points_anchor: "0x3000"
  client_connection_anchor: "0x4000"
  object_manager_offset: "0x10"
  local_guid_offset: "0x20"
  find_object_by_guid_entry: "0x5000"
  vector_diff_hemisphere_entry: "0x6000"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write offsets file: %v", err)
	}
	tbl, err := offsets.Load(path)
	if err != nil {
		t.Fatalf("load offsets: %v", err)
	}
	return tbl
}

func TestDispatchPing(t *testing.T) {
	d := New(testOffsets(t), &fakeEngine{})
	resp := d.Dispatch(Request{Kind: KindPing})
	if resp != "PONG" {
		t.Fatalf("got %q, want PONG", resp)
	}
}

func TestDispatchExecScriptStateNull(t *testing.T) {
	d := New(testOffsets(t), &fakeEngine{ready: false})
	resp := d.Dispatch(Request{Kind: KindExecScript, Code: []byte("1+1")})
	if resp != "LUA_RESULT:ERROR:state null" {
		t.Fatalf("got %q", resp)
	}
}

func TestDispatchExecScriptPassesThrough(t *testing.T) {
	d := New(testOffsets(t), &fakeEngine{ready: true, pcallResult: "LUA_RESULT:4"})
	resp := d.Dispatch(Request{Kind: KindExecScript, Code: []byte("return 2+2")})
	if resp != "LUA_RESULT:4" {
		t.Fatalf("got %q", resp)
	}
}

func TestDispatchGetCooldownFormatsTriple(t *testing.T) {
	d := New(testOffsets(t), &fakeEngine{
		ready:   true,
		numbers: []float64{1.5, 2.0, 1},
		numOK:   true,
	})
	resp := d.Dispatch(Request{Kind: KindGetCooldown, SpellID: 133})
	want := Response("CD:1500,2000,1")
	if resp != want {
		t.Fatalf("got %q, want %q", resp, want)
	}
}

func TestDispatchGetCooldownBadTypes(t *testing.T) {
	d := New(testOffsets(t), &fakeEngine{ready: true, numOK: false})
	resp := d.Dispatch(Request{Kind: KindGetCooldown, SpellID: 133})
	if !strings.HasPrefix(string(resp), "ERROR:") {
		t.Fatalf("got %q, want ERROR: prefix", resp)
	}
}

func TestDispatchGetComboPointsClampsOutOfRange(t *testing.T) {
	mem := newFakeMemory()
	mem.u8[0x3000] = 200
	d := newWithMemory(testOffsets(t), &fakeEngine{}, mem)
	resp := d.Dispatch(Request{Kind: KindGetComboPoints})
	if resp != "CP:0" {
		t.Fatalf("got %q, want CP:0 (clamped)", resp)
	}
}

func TestDispatchGetComboPointsNormal(t *testing.T) {
	mem := newFakeMemory()
	mem.u8[0x3000] = 3
	d := newWithMemory(testOffsets(t), &fakeEngine{}, mem)
	resp := d.Dispatch(Request{Kind: KindGetComboPoints})
	if resp != "CP:3" {
		t.Fatalf("got %q, want CP:3", resp)
	}
}

func TestDispatchGetTargetGuidRoundTrip(t *testing.T) {
	mem := newFakeMemory()
	mem.u64[0x2000] = 0xDEADBEEFCAFE
	d := newWithMemory(testOffsets(t), &fakeEngine{}, mem)
	resp := d.Dispatch(Request{Kind: KindGetTargetGuid})
	want := Response(fmt.Sprintf("TARGET_GUID:%d", uint64(0xDEADBEEFCAFE)))
	if resp != want {
		t.Fatalf("got %q, want %q", resp, want)
	}
}

func TestDispatchCastSpellPassesResultByteThrough(t *testing.T) {
	mem := newFakeMemory()
	mem.castResult = 7
	d := newWithMemory(testOffsets(t), &fakeEngine{}, mem)
	resp := d.Dispatch(Request{Kind: KindCastSpell, SpellID: 133, TargetGUID: 42})
	want := Response("CAST_RESULT:133,7")
	if resp != want {
		t.Fatalf("got %q, want %q", resp, want)
	}
}

func TestDispatchIsBehindTargetBothChecksRequired(t *testing.T) {
	mem := newFakeMemory()
	mem.ptr[0x4000] = 0x7000          // client connection
	mem.ptr[0x7010] = 0x8000          // + object_manager_offset(0x10)
	mem.u64[0x8020] = 0x1             // + local_guid_offset(0x20) -> player guid
	mem.findResult[0x1] = 0x9000      // player object
	mem.findResult[55] = 0xA000       // target object
	mem.hemisphere[0xA000] = false    // target->player not in front
	mem.hemisphere[0x9000] = true     // player->target in front => behind
	d := newWithMemory(testOffsets(t), &fakeEngine{}, mem)
	resp := d.Dispatch(Request{Kind: KindIsBehindTarget, TargetGUID: 55})
	if resp != "[IS_BEHIND_TARGET_OK:1]" {
		t.Fatalf("got %q, want behind=1", resp)
	}
}

func TestDispatchIsBehindTargetNotBehindWhenOnlyOneCheckTrue(t *testing.T) {
	mem := newFakeMemory()
	mem.ptr[0x4000] = 0x7000
	mem.ptr[0x7010] = 0x8000
	mem.u64[0x8020] = 0x1
	mem.findResult[0x1] = 0x9000
	mem.findResult[55] = 0xA000
	mem.hemisphere[0xA000] = true
	mem.hemisphere[0x9000] = true
	d := newWithMemory(testOffsets(t), &fakeEngine{}, mem)
	resp := d.Dispatch(Request{Kind: KindIsBehindTarget, TargetGUID: 55})
	if resp != "[IS_BEHIND_TARGET_OK:0]" {
		t.Fatalf("got %q, want behind=0", resp)
	}
}

func TestDispatchUnknownIsSafe(t *testing.T) {
	d := New(testOffsets(t), &fakeEngine{})
	resp := d.Dispatch(Request{Kind: KindUnknown, Raw: "GARBAGE"})
	if resp != "ERROR:Unknown request" {
		t.Fatalf("got %q", resp)
	}
}

func TestDispatchRecoversFromEnginePanic(t *testing.T) {
	d := New(testOffsets(t), &panickingEngine{})
	resp := d.Dispatch(Request{Kind: KindExecScript, Code: []byte("x")})
	if !strings.HasPrefix(string(resp), "LUA_RESULT:ERROR") {
		t.Fatalf("got %q, want a crash-tagged response, not a propagated panic", resp)
	}
}

type panickingEngine struct{ fakeEngine }

func (p *panickingEngine) StateReady() bool               { return true }
func (p *panickingEngine) PCallExecute(code []byte) string { panic("boom") }
