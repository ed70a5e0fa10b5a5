// Package session schedules analysis for documents that are being edited.
// Every open document gets its own debounce window, sequence counter and
// cancellable run; a new edit supersedes the outstanding run, and results
// only publish while both the sequence and the document version still match.
// Documents are independent: a slow lint on one never delays another.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"weft/internal/delegate"
	"weft/internal/diag"
	"weft/internal/projection"
	"weft/internal/source"
)

const (
	// DefaultDebounce is how long edits coalesce before a run starts.
	DefaultDebounce = 250 * time.Millisecond

	// DefaultMaxDiagnostics bounds what a single run may publish.
	DefaultMaxDiagnostics = 100
)

// AnalyzeFunc runs the engine pipeline over one document and returns the
// projection snapshot plus the engine's own diagnostics. A nil snapshot
// skips delegated linting for the run.
type AnalyzeFunc func(ctx context.Context, uri, text string) (*projection.Snapshot, []diag.Diagnostic, error)

// PublishFunc delivers the merged diagnostics for one document version.
// Close publishes a nil slice so editors drop stale squiggles.
type PublishFunc func(uri string, version int32, diags []diag.Diagnostic)

type Config struct {
	Analyze AnalyzeFunc
	Publish PublishFunc

	// Linters maps a detected host format to its delegated linter. The
	// session owns the linters and closes them on Shutdown.
	Linters map[projection.Format]delegate.Linter

	// Debounce delays a run after the last edit. Zero means DefaultDebounce.
	Debounce time.Duration

	// BudgetCap further clamps the per-call delegate budget when positive.
	BudgetCap time.Duration

	// MaxDiagnostics caps a run's output. Zero means DefaultMaxDiagnostics.
	MaxDiagnostics int

	// Logf receives throttled operational messages. Nil disables logging.
	Logf func(format string, args ...any)

	// LogWindow throttles repeated messages per document. Zero means
	// delegate.DefaultLogWindow.
	LogWindow time.Duration
}

type document struct {
	text    string
	version int32

	seq        uint64 // latest scheduled run
	appliedSeq uint64 // latest run whose results were published
	cancel     context.CancelFunc
	timer      *time.Timer

	// pubMu serializes the gate-and-publish step of runs for this document
	// so a stale run can never land after a fresh one.
	pubMu sync.Mutex
}

// Session tracks open documents and schedules their analysis runs.
type Session struct {
	cfg      Config
	throttle *delegate.ThrottledLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	docs map[string]*document
}

func New(cfg Config) *Session {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.MaxDiagnostics <= 0 {
		cfg.MaxDiagnostics = DefaultMaxDiagnostics
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:      cfg,
		throttle: delegate.NewThrottledLogger(cfg.LogWindow, cfg.Logf),
		ctx:      ctx,
		cancel:   cancel,
		docs:     make(map[string]*document),
	}
}

// Open registers a document and schedules its first run.
func (s *Session) Open(uri, text string, version int32) {
	s.update(uri, text, version)
}

// Change replaces a document's text and schedules a fresh run, superseding
// any outstanding one. Unknown URIs are registered as if opened.
func (s *Session) Change(uri, text string, version int32) {
	s.update(uri, text, version)
}

func (s *Session) update(uri, text string, version int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	doc := s.docs[uri]
	if doc == nil {
		doc = &document{}
		s.docs[uri] = doc
	}
	doc.text = text
	doc.version = version
	doc.seq++
	seq := doc.seq
	if doc.cancel != nil {
		doc.cancel()
		doc.cancel = nil
	}
	if doc.timer != nil {
		doc.timer.Stop()
	}
	doc.timer = time.AfterFunc(s.cfg.Debounce, func() {
		s.run(uri, seq)
	})
}

// Close forgets a document, cancels its outstanding run and publishes an
// empty result so the editor clears its diagnostics.
func (s *Session) Close(uri string) {
	s.mu.Lock()
	doc := s.docs[uri]
	if doc == nil {
		s.mu.Unlock()
		return
	}
	delete(s.docs, uri)
	if doc.cancel != nil {
		doc.cancel()
	}
	if doc.timer != nil {
		doc.timer.Stop()
	}
	version := doc.version
	publish := s.cfg.Publish
	s.mu.Unlock()

	if publish == nil {
		return
	}
	doc.pubMu.Lock()
	publish(uri, version, nil)
	doc.pubMu.Unlock()
}

// Shutdown cancels all outstanding runs, drops every document and closes
// the configured linters. The session accepts no further edits.
func (s *Session) Shutdown() {
	s.cancel()
	s.mu.Lock()
	for _, doc := range s.docs {
		if doc.cancel != nil {
			doc.cancel()
		}
		if doc.timer != nil {
			doc.timer.Stop()
		}
	}
	s.docs = make(map[string]*document)
	s.mu.Unlock()

	for _, l := range s.cfg.Linters {
		_ = l.Close()
	}
}

// run executes one scheduled analysis. seq pins the edit that scheduled it;
// any newer edit makes the run a no-op.
func (s *Session) run(uri string, seq uint64) {
	s.mu.Lock()
	doc := s.docs[uri]
	if doc == nil || doc.seq != seq {
		s.mu.Unlock()
		return
	}
	text, version := doc.text, doc.version
	ctx, cancel := context.WithCancel(s.ctx)
	doc.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	diags := s.pipeline(ctx, uri, text, version)

	if ctx.Err() != nil {
		return
	}

	doc.pubMu.Lock()
	defer doc.pubMu.Unlock()

	s.mu.Lock()
	if s.docs[uri] != doc || seq <= doc.appliedSeq || doc.version != version {
		s.mu.Unlock()
		return
	}
	doc.appliedSeq = seq
	publish := s.cfg.Publish
	s.mu.Unlock()

	if publish != nil {
		publish(uri, version, diags)
	}
}

// pipeline produces the merged diagnostics for one run. A panic anywhere in
// the stages degrades to a single internal-error diagnostic so the publish
// still happens and the session stays alive.
func (s *Session) pipeline(ctx context.Context, uri, text string, version int32) (out []diag.Diagnostic) {
	bag := diag.NewBag(s.cfg.MaxDiagnostics)
	defer func() {
		if r := recover(); r != nil {
			s.throttle.Logf("panic:"+uri, "analysis of %s panicked: %v", uri, r)
			bag.Add(diag.New(diag.SevError, diag.InternalError, source.Span{},
				fmt.Sprintf("internal error: %v", r)))
			bag.Sort()
			out = bag.Items()
		}
	}()

	snap, engine, err := s.cfg.Analyze(ctx, uri, text)
	for _, d := range engine {
		bag.Add(d)
	}
	switch {
	case err != nil:
		if ctx.Err() == nil {
			s.throttle.Logf("analyze:"+uri, "analysis of %s failed: %v", uri, err)
		}
	case snap != nil:
		s.delegateLint(ctx, uri, version, snap, bag)
	}

	bag.Dedup()
	bag.Sort()
	return bag.Items()
}

// delegateLint runs the host-format linter for the run's snapshot and folds
// the mapped findings into the bag. Timeouts and failures keep the engine
// diagnostics and log at most once per document per window.
func (s *Session) delegateLint(ctx context.Context, uri string, version int32, snap *projection.Snapshot, bag *diag.Bag) {
	linter := s.cfg.Linters[snap.Format]
	if linter == nil {
		return
	}
	budget := delegate.Budget(snap.Format, len(snap.Cleaned))
	if s.cfg.BudgetCap > 0 && budget > s.cfg.BudgetCap {
		budget = s.cfg.BudgetCap
	}
	lctx, lcancel := context.WithTimeout(ctx, budget)
	defer lcancel()

	found, err := linter.Lint(lctx, delegate.Request{
		URI:     uri,
		Text:    snap.Cleaned,
		Format:  snap.Format,
		Version: version,
	})
	if err != nil {
		if ctx.Err() != nil {
			return // superseded by a newer edit, not a linter fault
		}
		if errors.Is(err, context.DeadlineExceeded) {
			s.throttle.Logf(uri, "delegated %s lint of %s timed out after %v; publishing engine diagnostics only",
				snap.Format, uri, budget)
		} else {
			s.throttle.Logf(uri, "delegated %s lint of %s failed: %v", snap.Format, uri, err)
		}
		return
	}
	for _, d := range found {
		bag.Add(snap.MapDiagnostic(d, projection.CleanedToOriginal))
	}
}
