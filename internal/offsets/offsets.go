// Package offsets is the compile-time-to-load-time address book that
// retargets the bridge to a specific host build. It is a read-only record:
// the host's memory layout is the contract, so the table does not validate
// its own entries — it only tracks whether it has been loaded at all.
package offsets

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Name is a symbolic offset key as named in spec.md §6.2.
type Name string

// The symbolic names the core requires. Values are supplied per host build
// via a YAML file (see Load) — the core never hard-codes an address.
const (
	ScriptExecuteEntry   Name = "script_execute_entry"   // simple-fire execute
	PCall                Name = "pcall"                  // host's raw pcall entry, used by the adapter's trampoline
	LoadBuffer           Name = "load_buffer"             // loadbuffer entry
	GetTop               Name = "get_top"
	SetTop               Name = "set_top"
	ToNumber             Name = "to_number"
	ToInteger            Name = "to_integer"
	ToBoolean            Name = "to_boolean"
	ToLString            Name = "to_lstring"
	IsNumber             Name = "is_number"
	IsString             Name = "is_string"
	TypeOf               Name = "type_of"
	PushInteger          Name = "push_integer"
	PushString           Name = "push_string"
	PushNil              Name = "push_nil"
	GetField             Name = "get_field"
	StatePointerAnchor   Name = "state_pointer_anchor"    // anchor address to dereference for the ScriptingState handle
	NativeSpellInfoEntry Name = "native_spell_info_entry" // GetSpellInfo C function
	NativeCastSpellEntry Name = "native_cast_spell_entry" // CastLocalPlayerSpell C function
	ClientConnectionAnchor Name = "client_connection_anchor"
	ObjectManagerOffset    Name = "object_manager_offset"
	LocalGUIDOffset        Name = "local_guid_offset"
	ComboPointsAnchor      Name = "combo_points_anchor"
	CurrentTargetGUIDAnchor Name = "current_target_guid_anchor"
	PresentFunctionAnchor  Name = "present_function_anchor"
	PresentIndirection1    Name = "present_indirection_1"
	PresentIndirection2    Name = "present_indirection_2"
	PresentVTableSlot      Name = "present_vtable_slot"
	FindObjectByGUIDEntry  Name = "find_object_by_guid_entry"
	VectorDiffHemisphereEntry Name = "vector_diff_hemisphere_entry"
)

// Table is the immutable, process-lifetime singleton address book.
// Constructing one does not check that any address is sane — per spec
// §4.1, checking them dynamically would be false assurance against a
// closed host binary. It only records whether Load succeeded.
type Table struct {
	addresses map[Name]uintptr
	ready     bool
}

// raw is the on-disk shape: symbolic name -> hex or decimal address string,
// so operators can author an offsets.yaml per host build without touching code.
type raw struct {
	Addresses map[string]string `yaml:"addresses"`
}

// Load reads a YAML offsets file and returns a ready Table. It does not
// verify that any individual address is correct or even non-zero for
// fields the core does not itself special-case (e.g. StatePointerAnchor
// may legitimately resolve to a null ScriptingState at runtime — see
// internal/scripting).
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("offsets: read %s: %w", path, err)
	}

	var r raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("offsets: parse %s: %w", path, err)
	}

	t := &Table{addresses: make(map[Name]uintptr, len(r.Addresses))}
	for k, v := range r.Addresses {
		addr, err := parseAddress(v)
		if err != nil {
			return nil, fmt.Errorf("offsets: address %q: %w", k, err)
		}
		t.addresses[Name(k)] = addr
	}
	t.ready = true
	return t, nil
}

// NewFromAddresses builds a ready Table directly from an in-memory map,
// bypassing the YAML file. cmd/bridgesim uses this to hand the Dispatcher
// a table that points at addresses inside the simulator's own process
// rather than a host's, since there is no offsets.yaml for a process that
// doesn't exist.
func NewFromAddresses(addresses map[Name]uintptr) *Table {
	t := &Table{addresses: make(map[Name]uintptr, len(addresses)), ready: true}
	for k, v := range addresses {
		t.addresses[k] = v
	}
	return t
}

// parseAddress accepts "0x..." hex or plain decimal.
func parseAddress(s string) (uintptr, error) {
	var v uint64
	_, err := fmt.Sscanf(s, "0x%x", &v)
	if err == nil {
		return uintptr(v), nil
	}
	_, err = fmt.Sscanf(s, "%d", &v)
	if err != nil {
		return 0, fmt.Errorf("not a hex or decimal address: %q", s)
	}
	return uintptr(v), nil
}

// Ready reports whether the table has been loaded. Other singletons assert
// this before use rather than re-validating individual addresses.
func (t *Table) Ready() bool {
	return t != nil && t.ready
}

// Address returns the raw address for name. Accessing a name the host
// build did not supply is a fatal programmer error per spec §3 ("Any
// access to an address that the host did not expect to exist is a fatal
// programmer error, not a runtime recovery point") — it panics rather than
// returning a zero value that would silently corrupt a later dereference.
func (t *Table) Address(name Name) uintptr {
	addr, ok := t.addresses[name]
	if !ok {
		panic(fmt.Sprintf("offsets: missing required address %q", name))
	}
	return addr
}

// Lookup is the non-panicking form, for the rare caller (cmd/bridgesim)
// that wants to check which offsets are configured without crashing.
func (t *Table) Lookup(name Name) (uintptr, bool) {
	addr, ok := t.addresses[name]
	return addr, ok
}

// Len reports how many addresses are configured.
func (t *Table) Len() int {
	return len(t.addresses)
}
