// Package dispatch implements the Command Dispatcher (spec §4.3): a
// stateless, reentrant-only-within-a-single-thread function mapping a
// Request to a Response string. It is the one place that decides, per
// command, whether to call the Scripting Adapter, read raw host memory, or
// invoke an internal host C function by address.
package dispatch

// Kind discriminates the closed Request variant set (spec §3). A tagged
// struct with exhaustive switch is used instead of separate types per
// spec §9's design note — the variants are closed and each payload
// differs enough that a shared struct with only the relevant fields
// populated reads more plainly than a type hierarchy.
type Kind int

const (
	KindPing Kind = iota
	KindExecScript
	KindGetTimeMs
	KindGetCooldown
	KindIsInRange
	KindGetSpellInfo
	KindCastSpell
	KindGetTargetGuid
	KindGetComboPoints
	KindIsBehindTarget
	KindUnknown
)

// Request is the discriminated value the IPC parser produces and the
// Dispatcher consumes exactly once (spec §3). Only the fields relevant to
// Kind are populated; the rest are zero.
type Request struct {
	Kind Kind

	Code []byte // ExecScript: opaque script text

	SpellID int32 // GetCooldown, IsInRange, GetSpellInfo, CastSpell

	UnitID string // IsInRange: unit token, up to 32 bytes on the wire

	TargetGUID uint64 // CastSpell (0 = no explicit target), IsBehindTarget

	Raw string // Unknown: the original command text, for logging only
}

// Response is a single response string, always prefixed by a result-kind
// tag (spec §3). It is never empty on success.
type Response string
