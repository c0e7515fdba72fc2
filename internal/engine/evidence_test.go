package engine

import "testing"

func TestScoreClamped(t *testing.T) {
	tests := []struct {
		name     string
		evidence []Evidence
		want     float64
	}{
		{"empty", nil, 0},
		{"single", []Evidence{{Tag: "a", Weight: 0.6}}, 0.6},
		{"sum", []Evidence{{Tag: "a", Weight: 0.3}, {Tag: "b", Weight: 0.25}}, 0.55},
		{"clamp high", []Evidence{{Tag: "a", Weight: 0.8}, {Tag: "b", Weight: 0.6}}, 1},
		{"clamp low", []Evidence{{Tag: "a", Weight: -0.5}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.evidence); got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectedThresholdInclusive(t *testing.T) {
	if !Detected(0.75, 0.75) {
		t.Error("score equal to threshold should be detected")
	}
	if Detected(0.749, 0.75) {
		t.Error("score below threshold should not be detected")
	}
}

func TestCollectorDeduplicatesElementTag(t *testing.T) {
	var col Collector
	col.Observe("1234", "blacklist", 0.6)
	col.Observe("1234", "blacklist", 0.6) // same element+tag, ignored
	col.Observe("1234", "module-capture-api", 0.8)
	col.Observe("5678", "blacklist", 0.6)

	ev := col.Evidence()
	if len(ev) != 3 {
		t.Fatalf("expected 3 evidence entries, got %d", len(ev))
	}
	if got := Score(ev); got != 1 {
		t.Errorf("Score() = %v, want clamped 1", got)
	}
}

func TestTagsPreserveOrder(t *testing.T) {
	ev := []Evidence{{Tag: "b", Weight: 0.1}, {Tag: "a", Weight: 0.2}}
	tags := Tags(ev)
	if len(tags) != 2 || tags[0] != "b" || tags[1] != "a" {
		t.Errorf("Tags() = %v, want [b a]", tags)
	}
}
