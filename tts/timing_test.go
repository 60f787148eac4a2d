package tts

import (
	"testing"
)

func TestWordTimingsFromAlignment(t *testing.T) {
	tests := []struct {
		name      string
		alignment *Alignment
		want      []WordTiming
	}{
		{
			name: "two words",
			alignment: &Alignment{
				Chars:    []string{"h", "i", " ", "y", "o"},
				StartSec: []float64{0.0, 0.1, 0.2, 0.3, 0.4},
				EndSec:   []float64{0.1, 0.2, 0.3, 0.4, 0.5},
			},
			want: []WordTiming{
				{Word: "hi", StartMs: 0, EndMs: 200},
				{Word: "yo", StartMs: 300, EndMs: 500},
			},
		},
		{
			name: "trailing word without whitespace",
			alignment: &Alignment{
				Chars:    []string{"o", "k"},
				StartSec: []float64{0.0, 0.05},
				EndSec:   []float64{0.05, 0.12},
			},
			want: []WordTiming{
				{Word: "ok", StartMs: 0, EndMs: 120},
			},
		},
		{
			name: "multiple whitespace kinds",
			alignment: &Alignment{
				Chars:    []string{"a", "\n", "b", "\t", "c"},
				StartSec: []float64{0.0, 0.1, 0.2, 0.3, 0.4},
				EndSec:   []float64{0.1, 0.2, 0.3, 0.4, 0.5},
			},
			want: []WordTiming{
				{Word: "a", StartMs: 0, EndMs: 100},
				{Word: "b", StartMs: 200, EndMs: 300},
				{Word: "c", StartMs: 400, EndMs: 500},
			},
		},
		{
			name:      "nil alignment",
			alignment: nil,
			want:      nil,
		},
		{
			name: "whitespace only",
			alignment: &Alignment{
				Chars:    []string{" ", "\n"},
				StartSec: []float64{0.0, 0.1},
				EndSec:   []float64{0.1, 0.2},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WordTimingsFromAlignment(tt.alignment)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d timings, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("timing %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// Sub-millisecond alignment values must round to the nearest
// millisecond, not truncate, so long chunks do not drift.
func TestWordTimingsRounding(t *testing.T) {
	got := WordTimingsFromAlignment(&Alignment{
		Chars:    []string{"a"},
		StartSec: []float64{0.0004},
		EndSec:   []float64{0.0996},
	})
	if len(got) != 1 {
		t.Fatalf("got %d timings, want 1", len(got))
	}
	if got[0].StartMs != 0 {
		t.Errorf("StartMs = %d, want 0", got[0].StartMs)
	}
	if got[0].EndMs != 100 {
		t.Errorf("EndMs = %d, want 100", got[0].EndMs)
	}
}

func TestEstimateWordTimings(t *testing.T) {
	got := EstimateWordTimings("one two three four", 4000)
	if len(got) != 4 {
		t.Fatalf("got %d timings, want 4", len(got))
	}

	for i, w := range got {
		wantStart := int64(i) * 1000
		if w.StartMs != wantStart {
			t.Errorf("word %d StartMs = %d, want %d", i, w.StartMs, wantStart)
		}
		if w.EndMs != wantStart+1000-1 {
			t.Errorf("word %d EndMs = %d, want %d", i, w.EndMs, wantStart+999)
		}
	}

	// Intervals must not overlap.
	for i := 1; i < len(got); i++ {
		if got[i-1].EndMs >= got[i].StartMs {
			t.Errorf("word %d overlaps word %d", i-1, i)
		}
	}
}

func TestEstimateWordTimingsEdgeCases(t *testing.T) {
	if got := EstimateWordTimings("", 1000); got != nil {
		t.Errorf("empty text: got %v, want nil", got)
	}
	if got := EstimateWordTimings("words here", 0); got != nil {
		t.Errorf("zero duration: got %v, want nil", got)
	}

	// A single word spans the whole duration.
	got := EstimateWordTimings("solo", 500)
	if len(got) != 1 || got[0].StartMs != 0 || got[0].EndMs != 499 {
		t.Errorf("single word: got %v", got)
	}
}

func TestEstimateDurationMs(t *testing.T) {
	tests := []struct {
		name  string
		bytes int
		want  int64
	}{
		{"empty", 0, 0},
		{"one second", 16000, 1000},
		{"odd size truncates", 16015, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateDurationMs(make([]byte, tt.bytes)); got != tt.want {
				t.Errorf("EstimateDurationMs(%d bytes) = %d, want %d", tt.bytes, got, tt.want)
			}
		})
	}
}
