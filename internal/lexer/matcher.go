package lexer

import (
	"sort"
	"sync"

	"weft/internal/token"
)

// opener is one compiled open marker.
type opener struct {
	open  string
	close string
	kind  token.Kind
}

// matcher is the compiled form of a DelimiterConfig: open markers ordered
// longest first so overlapping spellings resolve to the longest match, plus
// a first-byte set for the scan fast path.
type matcher struct {
	openers [3]opener
	first   [256]bool
	trim    byte
}

var (
	matcherMu    sync.RWMutex
	matcherCache = make(map[token.DelimiterConfig]*matcher)
)

// compiledMatcher returns the cached matcher for cfg, compiling on first use.
// Safe for concurrent use across documents.
func compiledMatcher(cfg token.DelimiterConfig) *matcher {
	matcherMu.RLock()
	m, ok := matcherCache[cfg]
	matcherMu.RUnlock()
	if ok {
		return m
	}

	matcherMu.Lock()
	defer matcherMu.Unlock()
	if m, ok = matcherCache[cfg]; ok {
		return m
	}
	m = compileMatcher(cfg)
	matcherCache[cfg] = m
	return m
}

// ResetMatchers drops every compiled matcher. Callers invoke it on explicit
// configuration reload events; nothing expires implicitly.
func ResetMatchers() {
	matcherMu.Lock()
	matcherCache = make(map[token.DelimiterConfig]*matcher)
	matcherMu.Unlock()
}

func compileMatcher(cfg token.DelimiterConfig) *matcher {
	m := &matcher{trim: cfg.TrimMark}
	m.openers = [3]opener{
		{open: cfg.Statement.Open, close: cfg.Statement.Close, kind: token.Statement},
		{open: cfg.Expression.Open, close: cfg.Expression.Close, kind: token.Expression},
		{open: cfg.Comment.Open, close: cfg.Comment.Close, kind: token.Comment},
	}
	sort.SliceStable(m.openers[:], func(i, j int) bool {
		return len(m.openers[i].open) > len(m.openers[j].open)
	})
	for _, o := range m.openers {
		m.first[o.open[0]] = true
	}
	return m
}

// matchAt returns the longest opener starting at content[off:], if any.
func (m *matcher) matchAt(content []byte, off uint32) (opener, bool) {
	if int(off) >= len(content) || !m.first[content[off]] {
		return opener{}, false
	}
	rest := content[off:]
	for _, o := range m.openers {
		if len(o.open) <= len(rest) && string(rest[:len(o.open)]) == o.open {
			return o, true
		}
	}
	return opener{}, false
}
