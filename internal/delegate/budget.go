package delegate

import (
	"sync"
	"time"

	"weft/internal/projection"
)

const (
	// BudgetCap bounds any single delegated call no matter the input size.
	BudgetCap = 10 * time.Second

	// DefaultLogWindow is how long a throttled message stays suppressed.
	DefaultLogWindow = 30 * time.Second

	perKB = 5 * time.Millisecond
)

// Heavier toolchains get a larger base; markdown linters in particular tend
// to sit behind a slow runtime.
var baseBudget = map[projection.Format]time.Duration{
	projection.FormatJSON:     500 * time.Millisecond,
	projection.FormatYAML:     750 * time.Millisecond,
	projection.FormatTOML:     500 * time.Millisecond,
	projection.FormatXML:      time.Second,
	projection.FormatHTML:     2 * time.Second,
	projection.FormatMarkdown: 1500 * time.Millisecond,
	projection.FormatText:     400 * time.Millisecond,
}

// Budget is the wait allowance for one delegated lint call: a per-format
// base plus a size-scaled allowance, capped so a hung server can never stall
// a publish round indefinitely.
func Budget(format projection.Format, size int) time.Duration {
	base, ok := baseBudget[format]
	if !ok {
		base = time.Second
	}
	d := base + time.Duration(size/1024)*perKB
	if d > BudgetCap {
		return BudgetCap
	}
	return d
}

// ThrottledLogger drops repeats of a message key inside a time window. The
// session uses it so a persistently timing-out linter logs once per document
// per window instead of once per keystroke.
type ThrottledLogger struct {
	window time.Duration
	logf   func(format string, args ...any)
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewThrottledLogger(window time.Duration, logf func(string, ...any)) *ThrottledLogger {
	if window <= 0 {
		window = DefaultLogWindow
	}
	return &ThrottledLogger{
		window: window,
		logf:   logf,
		now:    time.Now,
		seen:   make(map[string]time.Time),
	}
}

// Logf emits at most one line per key per window.
func (l *ThrottledLogger) Logf(key, format string, args ...any) {
	if l == nil || l.logf == nil {
		return
	}
	l.mu.Lock()
	now := l.now()
	if last, ok := l.seen[key]; ok && now.Sub(last) < l.window {
		l.mu.Unlock()
		return
	}
	l.seen[key] = now
	l.mu.Unlock()
	l.logf(format, args...)
}
