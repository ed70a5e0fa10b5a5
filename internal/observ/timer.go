package observ

import "time"

// Timer accumulates per-phase wall times for one pipeline run. Phases
// are reported in the order they began.
type Timer struct {
	phases []phase
}

type phase struct {
	label   string
	begun   time.Time
	elapsed time.Duration
	note    string
}

// NewTimer returns an empty Timer sized for a typical pipeline run.
func NewTimer() *Timer { return &Timer{phases: make([]phase, 0, 8)} }

// Begin opens a phase and returns the handle End expects.
func (t *Timer) Begin(label string) int {
	t.phases = append(t.phases, phase{label: label, begun: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase behind a handle. Handles Begin never issued are
// ignored.
func (t *Timer) End(handle int, note string) {
	if handle < 0 || handle >= len(t.phases) {
		return
	}
	ph := &t.phases[handle]
	ph.elapsed = time.Since(ph.begun)
	ph.note = note
}

// PhaseReport is one finished phase in serializable form.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report carries every recorded phase plus their summed duration in
// milliseconds.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report flattens the recorded phases. A Timer that saw none reports
// the zero value.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	var total time.Duration
	out := Report{Phases: make([]PhaseReport, 0, len(t.phases))}
	for _, ph := range t.phases {
		total += ph.elapsed
		out.Phases = append(out.Phases, PhaseReport{
			Name:       ph.label,
			DurationMS: millis(ph.elapsed),
			Note:       ph.note,
		})
	}
	out.TotalMS = millis(total)
	return out
}

func millis(d time.Duration) float64 { return d.Seconds() * 1000 }
