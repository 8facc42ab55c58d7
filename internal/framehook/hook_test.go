package framehook

import (
	"os"
	"strings"
	"testing"

	"hostbridge/internal/dispatch"
	"hostbridge/internal/offsets"
	"hostbridge/internal/queue"
	"hostbridge/internal/scripting"
)

func testOffsets(t *testing.T) *offsets.Table {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/offsets.yaml"
	content := "addresses:\n  current_target_guid_anchor: \"0x100\"\n  combo_points_anchor: \"0x200\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write offsets: %v", err)
	}
	tbl, err := offsets.Load(path)
	if err != nil {
		t.Fatalf("load offsets: %v", err)
	}
	return tbl
}

// fakeDispatchEngine satisfies dispatch.ScriptingEngine minimally for
// hook-level tests, which only exercise non-scripting request kinds.
type fakeDispatchEngine struct{}

func (fakeDispatchEngine) StateReady() bool                { return false }
func (fakeDispatchEngine) PCallExecute(code []byte) string { return "LUA_RESULT:ERROR:state null" }
func (fakeDispatchEngine) Eval(code string) (scripting.Value, string, string, error) {
	return scripting.Value{}, "", "", nil
}
func (fakeDispatchEngine) EvalNumbers(code string, want int) ([]float64, string, string, bool, error) {
	return nil, "", "", false, nil
}
func (fakeDispatchEngine) GetSpellInfo(spellID int32) (scripting.SpellInfo, error) {
	return scripting.SpellInfo{}, nil
}

func TestOnPresentDrainsAndDispatchesInOrder(t *testing.T) {
	reqQ := queue.NewRequestQueue(0)
	respQ := queue.NewResponseQueue()
	d := dispatch.New(testOffsets(t), fakeDispatchEngine{})
	h := New(testOffsets(t), d, reqQ, respQ)

	reqQ.Push(dispatch.Request{Kind: dispatch.KindGetTargetGuid})
	reqQ.Push(dispatch.Request{Kind: dispatch.KindGetComboPoints})

	h.OnPresent(0)

	first, ok := respQ.TryPop()
	if !ok {
		t.Fatalf("expected first response")
	}
	second, ok := respQ.TryPop()
	if !ok {
		t.Fatalf("expected second response")
	}
	if first == "" || second == "" {
		t.Fatalf("responses must not be empty: %q %q", first, second)
	}
	// GetTargetGuid answers with TARGET_GUID:/ERROR:, GetComboPoints with CP:.
	if strings.HasPrefix(string(first), "CP:") || !strings.HasPrefix(string(second), "CP:") {
		t.Fatalf("responses out of request order: %q %q", first, second)
	}
}

func TestOnPresentSkipsDispatchAfterShutdown(t *testing.T) {
	reqQ := queue.NewRequestQueue(0)
	respQ := queue.NewResponseQueue()
	d := dispatch.New(testOffsets(t), fakeDispatchEngine{})
	h := New(testOffsets(t), d, reqQ, respQ)

	reqQ.Push(dispatch.Request{Kind: dispatch.KindPing})
	h.RequestShutdown()
	h.OnPresent(0)

	if _, ok := respQ.TryPop(); ok {
		t.Fatalf("expected no responses once shutdown requested, drain is skipped")
	}
	// The request is still sitting in the queue, undispatched: shutdown
	// stops new dispatch work, it does not drop what's already enqueued.
	drained := reqQ.Drain()
	if len(drained) != 1 {
		t.Fatalf("expected the ping request to remain queued, got %d", len(drained))
	}
}

func TestOnPresentShortCircuitsStrayPing(t *testing.T) {
	reqQ := queue.NewRequestQueue(0)
	respQ := queue.NewResponseQueue()
	d := dispatch.New(testOffsets(t), fakeDispatchEngine{})
	h := New(testOffsets(t), d, reqQ, respQ)

	reqQ.Push(dispatch.Request{Kind: dispatch.KindPing})
	h.OnPresent(0)

	resp, ok := respQ.TryPop()
	if !ok || resp != "PONG" {
		t.Fatalf("got (%q, %v), want (PONG, true)", resp, ok)
	}
}
