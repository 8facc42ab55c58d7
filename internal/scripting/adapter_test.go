package scripting

import "testing"

func TestJoinComma(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"empty", nil, ""},
		{"single", []string{"1"}, "1"},
		{"multi", []string{"1", "two", "true", "nil"}, "1,two,true,nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinComma(tt.values); got != tt.want {
				t.Errorf("joinComma(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}

func TestReadPointerNullAddress(t *testing.T) {
	if got := readPointer(0); got != 0 {
		t.Errorf("readPointer(0) = %#x, want 0", got)
	}
}

// readSpellInfoFromStack, stringAt/numberAt/intAt all require a live
// *lua.State backed by the host's embedded engine, so they have no test
// here; internal/dispatch's tests use a fake ScriptingEngine and never
// reach them either.
