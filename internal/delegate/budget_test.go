package delegate

import (
	"testing"
	"time"

	"weft/internal/projection"
)

func TestBudget(t *testing.T) {
	tests := []struct {
		name   string
		format projection.Format
		size   int
		want   time.Duration
	}{
		{"json base", projection.FormatJSON, 0, 500 * time.Millisecond},
		{"json scales with size", projection.FormatJSON, 10 * 1024, 550 * time.Millisecond},
		{"yaml base plus two kb", projection.FormatYAML, 2048, 760 * time.Millisecond},
		{"markdown base", projection.FormatMarkdown, 0, 1500 * time.Millisecond},
		{"unknown format gets a second", projection.Format("csv"), 0, time.Second},
		{"cap holds for huge input", projection.FormatHTML, 100 << 20, BudgetCap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Budget(tt.format, tt.size); got != tt.want {
				t.Fatalf("Budget(%q, %d) = %v, want %v", tt.format, tt.size, got, tt.want)
			}
		})
	}
}

func TestThrottledLogger_OncePerWindow(t *testing.T) {
	var lines []string
	l := NewThrottledLogger(time.Minute, func(format string, args ...any) {
		lines = append(lines, format)
	})
	clock := time.Unix(1000, 0)
	l.now = func() time.Time { return clock }

	l.Logf("file:///a", "timeout A")
	l.Logf("file:///a", "timeout A again")
	l.Logf("file:///b", "timeout B")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %v", len(lines), lines)
	}

	clock = clock.Add(61 * time.Second)
	l.Logf("file:///a", "timeout A later")
	if len(lines) != 3 || lines[2] != "timeout A later" {
		t.Fatalf("window expiry did not release the key: %v", lines)
	}
}

func TestThrottledLogger_NilIsSafe(t *testing.T) {
	var l *ThrottledLogger
	l.Logf("file:///a", "nothing happens")

	l = NewThrottledLogger(0, nil)
	l.Logf("file:///a", "still nothing")
}
