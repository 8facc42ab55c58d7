package dispatch

import (
	"fmt"
	"log/slog"
	"strings"

	"hostbridge/internal/diagnostics"
	"hostbridge/internal/hostcalls"
	"hostbridge/internal/offsets"
	"hostbridge/internal/scripting"
)

// ScriptingEngine is the subset of *scripting.Adapter the Dispatcher needs.
// It's an interface so tests can exercise per-command response formatting
// against a fake engine instead of a live host Lua state.
type ScriptingEngine interface {
	StateReady() bool
	PCallExecute(code []byte) string
	Eval(code string) (value scripting.Value, stage, msg string, err error)
	EvalNumbers(code string, want int) (values []float64, stage, msg string, ok bool, err error)
	GetSpellInfo(spellID int32) (scripting.SpellInfo, error)
}

// HostMemory is the subset of internal/hostcalls the Dispatcher needs,
// abstracted for the same reason as ScriptingEngine.
type HostMemory interface {
	ReadUint64(addr uintptr) uint64
	ReadUint8(addr uintptr) uint8
	ReadPointer(addr uintptr) uintptr
	CastSpell(entry uintptr, spellID int32, targetGUID uint64) (byte, error)
	FindObjectByGUID(entry uintptr, guid uint64, flags int32) (uintptr, error)
	VectorDiffHemisphere(entry uintptr, observer, observed uintptr) (bool, error)
}

// hostMemory is the real HostMemory backed by internal/hostcalls.
type hostMemory struct{}

func (hostMemory) ReadUint64(addr uintptr) uint64  { return hostcalls.ReadUint64(addr) }
func (hostMemory) ReadUint8(addr uintptr) uint8    { return hostcalls.ReadUint8(addr) }
func (hostMemory) ReadPointer(addr uintptr) uintptr { return hostcalls.ReadPointer(addr) }
func (hostMemory) CastSpell(entry uintptr, spellID int32, targetGUID uint64) (byte, error) {
	return hostcalls.CallCastSpell(entry, spellID, targetGUID)
}
func (hostMemory) FindObjectByGUID(entry uintptr, guid uint64, flags int32) (uintptr, error) {
	return hostcalls.CallFindObjectByGUID(entry, guid, flags)
}
func (hostMemory) VectorDiffHemisphere(entry uintptr, observer, observed uintptr) (bool, error) {
	return hostcalls.CallVectorDiffHemisphere(entry, observer, observed)
}

// Dispatcher maps Request to Response. It is stateless and safe to call
// repeatedly from the render thread; it must never be called from more
// than one thread concurrently (spec §4.3: "reentrant only within a
// single thread").
type Dispatcher struct {
	offsets *offsets.Table
	engine  ScriptingEngine
	memory  HostMemory
	metrics *diagnostics.Metrics
}

// New builds a Dispatcher bound to the given offsets table and scripting
// adapter, using the real raw-memory/native-call backend.
func New(offsetsTable *offsets.Table, engine ScriptingEngine) *Dispatcher {
	return &Dispatcher{offsets: offsetsTable, engine: engine, memory: hostMemory{}}
}

// newWithMemory is used by tests to inject a fake HostMemory.
func newWithMemory(offsetsTable *offsets.Table, engine ScriptingEngine, memory HostMemory) *Dispatcher {
	return &Dispatcher{offsets: offsetsTable, engine: engine, memory: memory}
}

// SetMetrics attaches the diagnostics Metrics set Dispatch records
// against. Nil (the default) disables recording entirely, so tests and
// cmd/bridgesim can build a Dispatcher without a diagnostics registry.
func (d *Dispatcher) SetMetrics(m *diagnostics.Metrics) {
	d.metrics = m
}

// Dispatch maps one Request to its Response (spec §4.3). A single
// exception anywhere below is caught, the scripting stack (if touched) is
// already restored by the adapter's own recover boundary, and a crash
// response is returned instead of letting a panic escape into the
// render-thread callback (spec §7, §9).
func (d *Dispatcher) Dispatch(req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch_panic", "kind", req.Kind, "error", r, "component", "dispatch")
			resp = Response(crashTagFor(req.Kind) + ":crash")
		}
		d.recordMetrics(req.Kind, resp)
	}()

	switch req.Kind {
	case KindPing:
		return "PONG"
	case KindExecScript:
		return d.dispatchExecScript(req)
	case KindGetTimeMs:
		return d.dispatchGetTimeMs()
	case KindGetCooldown:
		return d.dispatchGetCooldown(req)
	case KindIsInRange:
		return d.dispatchIsInRange(req)
	case KindGetSpellInfo:
		return d.dispatchGetSpellInfo(req)
	case KindCastSpell:
		return d.dispatchCastSpell(req)
	case KindGetTargetGuid:
		return d.dispatchGetTargetGuid()
	case KindGetComboPoints:
		return d.dispatchGetComboPoints()
	case KindIsBehindTarget:
		return d.dispatchIsBehindTarget(req)
	default:
		return "ERROR:Unknown request"
	}
}

// crashTagFor picks the variant-specific error prefix a forced exception
// should surface under (spec §7: "a `*_ERR:crash` response is returned").
func crashTagFor(k Kind) string {
	switch k {
	case KindExecScript:
		return "LUA_RESULT:ERROR"
	case KindGetCooldown:
		return "CD_ERR"
	case KindIsInRange:
		return "RANGE_ERR"
	case KindGetSpellInfo:
		return "SPELLINFO_ERR"
	case KindCastSpell:
		return "CAST_RESULT:ERROR"
	default:
		return "ERROR"
	}
}

func (d *Dispatcher) dispatchExecScript(req Request) Response {
	if !d.engine.StateReady() {
		return "LUA_RESULT:ERROR:state null"
	}
	return Response(d.engine.PCallExecute(req.Code))
}

func (d *Dispatcher) dispatchGetTimeMs() Response {
	if !d.engine.StateReady() {
		return "ERROR:state null"
	}
	values, stage, msg, ok, err := d.engine.EvalNumbers("return GetTime()", 1)
	if err != nil {
		return "ERROR:crash"
	}
	if stage != "" {
		return Response(fmt.Sprintf("ERROR:%s failed:%s", stage, msg))
	}
	if !ok {
		return "ERROR:GetTime result type invalid"
	}
	ms := int64(values[0] * 1000)
	return Response(fmt.Sprintf("TIME:%d", ms))
}

func (d *Dispatcher) dispatchGetCooldown(req Request) Response {
	if !d.engine.StateReady() {
		return "CD_ERR:state null"
	}
	code := fmt.Sprintf("return GetSpellCooldown(%d)", req.SpellID)
	values, stage, msg, ok, err := d.engine.EvalNumbers(code, 3)
	if err != nil {
		return "CD_ERR:crash"
	}
	if stage != "" {
		return Response(fmt.Sprintf("CD_ERR:%s failed:%s", stage, msg))
	}
	if !ok {
		return "ERROR:GetSpellCooldown result types invalid"
	}
	startMs := int64(values[0] * 1000)
	durationMs := int64(values[1] * 1000)
	enabled := 0
	if values[2] != 0 {
		enabled = 1
	}
	return Response(fmt.Sprintf("CD:%d,%d,%d", startMs, durationMs, enabled))
}

func (d *Dispatcher) dispatchIsInRange(req Request) Response {
	if !d.engine.StateReady() {
		return "RANGE_ERR:state null"
	}

	info, err := d.engine.GetSpellInfo(req.SpellID)
	if err != nil || info.Name == "N/A" {
		return "RANGE_ERR:GetSpellInfo failed"
	}

	code := fmt.Sprintf("return IsSpellInRange(%s, %s)", luaQuote(info.Name), luaQuote(req.UnitID))
	value, stage, msg, err := d.engine.Eval(code)
	if err != nil {
		return "RANGE_ERR:crash"
	}
	if stage != "" {
		return Response(fmt.Sprintf("RANGE_ERR:%s failed:%s", stage, msg))
	}

	switch value.Kind {
	case scripting.KindNumber:
		return Response(fmt.Sprintf("IN_RANGE:%d", int(value.Number)))
	case scripting.KindBool:
		if value.Bool {
			return "IN_RANGE:1"
		}
		return "IN_RANGE:0"
	case scripting.KindNil:
		return "IN_RANGE:0"
	default:
		return "IN_RANGE:-1"
	}
}

func (d *Dispatcher) dispatchGetSpellInfo(req Request) Response {
	if !d.engine.StateReady() {
		return "SPELLINFO_ERR:state null"
	}

	info, err := d.engine.GetSpellInfo(req.SpellID)
	if err != nil {
		return "SPELLINFO_ERR:crash"
	}

	maxRange := 0.0
	if info.MaxRange != nil {
		maxRange = *info.MaxRange
	}

	// Field separator is '|', not ',': spell names and ranks may contain
	// commas, and this is the one response shape where that matters
	// (spec §4.3, §6.1, §9 "Protocol delimiter ambiguity" — decided in
	// DESIGN.md).
	return Response(fmt.Sprintf("SPELLINFO:%s|%s|%.0f|%.1f|%.1f|%s|%.0f|%d",
		info.Name, info.Rank, info.CastTime, info.MinRange, maxRange, info.Icon, info.Cost, info.PowerType))
}

func (d *Dispatcher) dispatchCastSpell(req Request) Response {
	entry := d.offsets.Address(offsets.NativeCastSpellEntry)
	if entry == 0 {
		return "CAST_RESULT:ERROR:func null"
	}

	result, err := d.memory.CastSpell(entry, req.SpellID, req.TargetGUID)
	if err != nil {
		return "CAST_RESULT:ERROR:func null"
	}
	return Response(fmt.Sprintf("CAST_RESULT:%d,%d", req.SpellID, result))
}

func (d *Dispatcher) dispatchGetTargetGuid() Response {
	addr := d.offsets.Address(offsets.CurrentTargetGUIDAnchor)
	guid := d.memory.ReadUint64(addr)
	return Response(fmt.Sprintf("TARGET_GUID:%d", guid))
}

func (d *Dispatcher) dispatchGetComboPoints() Response {
	addr := d.offsets.Address(offsets.ComboPointsAnchor)

	cp, err := d.safeReadComboPoints(addr)
	if err != nil {
		return "CP:-99"
	}
	if cp > 5 {
		slog.Warn("combo_points_clamped", "raw", cp, "component", "dispatch")
		cp = 0
	}
	return Response(fmt.Sprintf("CP:%d", cp))
}

func (d *Dispatcher) safeReadComboPoints(addr uintptr) (cp uint8, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return d.memory.ReadUint8(addr), nil
}

func (d *Dispatcher) dispatchIsBehindTarget(req Request) Response {
	ccAnchor := d.offsets.Address(offsets.ClientConnectionAnchor)
	cc := d.memory.ReadPointer(ccAnchor)
	if cc == 0 {
		return "[ERROR:CC null]"
	}

	om := d.memory.ReadPointer(cc + d.offsets.Address(offsets.ObjectManagerOffset))
	if om == 0 {
		return "[ERROR:OM null]"
	}

	playerGUID := d.memory.ReadUint64(om + d.offsets.Address(offsets.LocalGUIDOffset))
	if playerGUID == 0 {
		return "[ERROR:PlayerGUID 0]"
	}

	findEntry := d.offsets.Address(offsets.FindObjectByGUIDEntry)
	player, err := d.memory.FindObjectByGUID(findEntry, playerGUID, 1)
	if err != nil || player == 0 {
		return "[ERROR:PlayerLookup fail]"
	}

	target, err := d.memory.FindObjectByGUID(findEntry, req.TargetGUID, 1)
	if err != nil || target == 0 {
		return "[ERROR:TargetLookup fail]"
	}

	hemisphereEntry := d.offsets.Address(offsets.VectorDiffHemisphereEntry)
	targetToPlayerInFront, err1 := d.memory.VectorDiffHemisphere(hemisphereEntry, target, player)
	playerToTargetInFront, err2 := d.memory.VectorDiffHemisphere(hemisphereEntry, player, target)
	if err1 != nil || err2 != nil {
		return "[ERROR:AV checking position]"
	}

	behind := !targetToPlayerInFront && playerToTargetInFront
	if behind {
		return "[IS_BEHIND_TARGET_OK:1]"
	}
	return "[IS_BEHIND_TARGET_OK:0]"
}

// recordMetrics tallies one dispatched request against the diagnostics
// counters: a dispatch count and, for responses carrying an error tag
// (ERROR, CD_ERR, RANGE_ERR, SPELLINFO_ERR, ...), an error count, both
// labeled by Request variant. A nil Metrics (the default) makes this a
// no-op.
func (d *Dispatcher) recordMetrics(kind Kind, resp Response) {
	if d.metrics == nil {
		return
	}
	label := kindLabel(kind)
	d.metrics.DispatchTotal.WithLabelValues(label).Inc()
	if strings.Contains(string(resp), "ERROR") || strings.Contains(string(resp), "_ERR:") || strings.HasSuffix(string(resp), ":crash") {
		d.metrics.DispatchErrors.WithLabelValues(label).Inc()
	}
}

// kindLabel gives each Kind a stable, low-cardinality Prometheus label.
func kindLabel(k Kind) string {
	switch k {
	case KindPing:
		return "ping"
	case KindExecScript:
		return "exec_script"
	case KindGetTimeMs:
		return "get_time_ms"
	case KindGetCooldown:
		return "get_cooldown"
	case KindIsInRange:
		return "is_in_range"
	case KindGetSpellInfo:
		return "get_spell_info"
	case KindCastSpell:
		return "cast_spell"
	case KindGetTargetGuid:
		return "get_target_guid"
	case KindGetComboPoints:
		return "get_combo_points"
	case KindIsBehindTarget:
		return "is_behind_target"
	default:
		return "unknown"
	}
}

// luaQuote wraps a Go string as a double-quoted Lua string literal,
// escaping the characters that would otherwise break out of the literal.
func luaQuote(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	out = append(out, '"')
	return string(out)
}
