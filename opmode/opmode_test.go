package opmode

import "testing"

func TestHandle_SetTracksChanges(t *testing.T) {
	h := New(Provisioning)
	if h.Get() != Provisioning || h.Generation() != 0 {
		t.Fatalf("initial state = %v gen %d", h.Get(), h.Generation())
	}
	if h.Set(Provisioning) {
		t.Fatal("setting the same mode must not count as a change")
	}
	if !h.Set(Normal) || h.Get() != Normal {
		t.Fatal("expected change to normal")
	}
	if h.Generation() != 1 {
		t.Fatalf("generation = %d, want 1", h.Generation())
	}
}

func TestHandle_SharedByPointer(t *testing.T) {
	h := New(Provisioning)
	reader := struct{ mode *Handle }{mode: h}
	h.Set(Offline)
	if reader.mode.Get() != Offline {
		t.Fatal("readers must observe the writer's update")
	}
	if Offline.Glyph() != "--" || Normal.String() != "normal" {
		t.Fatal("unexpected labels")
	}
}
