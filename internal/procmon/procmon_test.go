package procmon

import (
	"testing"
	"time"

	"proctord/internal/engine"
)

func tick(snap Snapshot, cfg *engine.Config) engine.Tick[Snapshot] {
	ev := Classify(snap, cfg)
	return engine.Tick[Snapshot]{
		Snapshot: snap,
		Evidence: ev,
		Score:    engine.Score(ev),
		Config:   cfg,
		Now:      time.Now(),
	}
}

func TestClassifyBlacklistWeight(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Blacklist = []string{"chrome.exe"}

	snap := Snapshot{Processes: []Process{{PID: 100, Name: "chrome.exe"}}}
	ev := Classify(snap, cfg)
	if len(ev) != 1 {
		t.Fatalf("expected 1 evidence entry, got %d", len(ev))
	}
	if ev[0].Tag != "blacklist" || ev[0].Weight != 0.6 {
		t.Errorf("evidence = %+v, want blacklist/0.6", ev[0])
	}
	// 0.6 alone stays below the 0.75 recording threshold.
	if engine.Detected(engine.Score(ev), cfg.Thresholds.Recording) {
		t.Error("single blacklist match should not cross the threshold")
	}
}

func TestClassifyCaptureModuleWeight(t *testing.T) {
	cfg := engine.DefaultConfig()
	snap := Snapshot{Processes: []Process{
		{PID: 200, Name: "recorder", Modules: []string{"ScreenCaptureKit"}},
	}}

	ev := Classify(snap, cfg)
	if len(ev) != 1 || ev[0].Weight != 0.8 {
		t.Fatalf("evidence = %+v, want module-capture-api/0.8", ev)
	}
	if !engine.Detected(engine.Score(ev), cfg.Thresholds.Recording) {
		t.Error("capture API module alone should cross the threshold")
	}
}

func TestClassifyGraphicsModulesAreWeak(t *testing.T) {
	cfg := engine.DefaultConfig()
	snap := Snapshot{Processes: []Process{
		{PID: 300, Name: "game", Modules: []string{"dxgi", "d3d11"}},
	}}

	ev := Classify(snap, cfg)
	if got := engine.Score(ev); got != 0.5 {
		t.Errorf("two graphics modules score %v, want 0.5", got)
	}
}

func TestClassifySameProcessCountsTagOnce(t *testing.T) {
	cfg := engine.DefaultConfig()
	snap := Snapshot{Processes: []Process{
		{PID: 400, Name: "rec", Modules: []string{"dxgi-capture", "graphicscapture"}},
	}}

	// Both modules map to the capture-api tag for the same process.
	ev := Classify(snap, cfg)
	if len(ev) != 1 {
		t.Errorf("expected a single capture-api entry, got %d", len(ev))
	}
}

func TestTrackerRecordingLifecycle(t *testing.T) {
	cfg := engine.DefaultConfig()
	tr := &Tracker{}

	// Quiet baseline.
	if got := tr.Track(tick(Snapshot{}, cfg)); got != nil {
		t.Fatalf("baseline emitted %v", got)
	}

	// Capture API shows up: rising edge.
	hot := Snapshot{Processes: []Process{
		{PID: 1, Name: "rec", Modules: []string{"pipewire-screen"}},
	}}
	got := tr.Track(tick(hot, cfg))
	if len(got) != 1 || got[0].Type != "recording-started" {
		t.Fatalf("candidates = %+v, want recording-started", got)
	}
	if got[0].Payload["isRecording"] != true {
		t.Error("payload should report isRecording")
	}

	// Steady state: nothing.
	if got := tr.Track(tick(hot, cfg)); got != nil {
		t.Errorf("steady state emitted %v", got)
	}

	// Process exits: falling edge.
	got = tr.Track(tick(Snapshot{}, cfg))
	if len(got) != 1 || got[0].Type != "recording-stopped" {
		t.Fatalf("candidates = %+v, want recording-stopped", got)
	}
}

func TestFingerprintNamesMatches(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Blacklist = []string{"obs", "zoom"}
	snap := Snapshot{Processes: []Process{
		{PID: 2, Name: "zoom"},
		{PID: 1, Name: "obs"},
	}}

	fp := fingerprint("recording-started", tick(snap, cfg))
	if fp != "recording-started:obs,zoom" {
		t.Errorf("fingerprint = %q, want sorted match names", fp)
	}
}

func TestStateDoesNotAdvanceEdge(t *testing.T) {
	cfg := engine.DefaultConfig()
	tr := &Tracker{}

	hot := Snapshot{Processes: []Process{
		{PID: 1, Name: "rec", Modules: []string{"cgdisplaystream"}},
	}}

	// State before any Track must not consume the rising edge.
	state := tr.State(tick(hot, cfg))
	if state["isRecording"] != true {
		t.Error("State should report the detected condition")
	}
	got := tr.Track(tick(hot, cfg))
	if len(got) != 1 || got[0].Type != "recording-started" {
		t.Errorf("edge was consumed by State: %+v", got)
	}
}
