// Package parser implements the wavefront matcher: memoized, table-driven
// recursive descent that additionally widens left-recursive rule tables
// through a bounded fixed-point loop (wavefront.go), plus the appeal-tree
// sort-out and simplification passes (sortout.go) that turn the raw,
// possibly-ambiguous match attempt into one deterministic parse tree.
package parser

import (
	"github.com/sirupsen/logrus"

	"github.com/waveparse/waveparse/cache"
	"github.com/waveparse/waveparse/grammar"
	"github.com/waveparse/waveparse/lexer"
	"github.com/waveparse/waveparse/recursion"
)

// Engine owns the immutable, shared grammar and recursion analysis and
// hands out Sessions, each of which walks one source a top-level statement
// at a time. Engine itself
// is read-only after NewEngine and safe to share across goroutines, each
// of which must use its own Session.
type Engine struct {
	Grammar   *grammar.Grammar
	Recursion recursion.Table
	Trace     TraceFlags
	Log       *logrus.Logger
}

// NewEngine builds an Engine from a grammar whose Cycles field has already
// been populated (by recdetect.FindCycles, normally invoked from inside
// langdef.Parse). A nil Cycles is accepted and means the grammar has no
// left-recursive rule tables; only a nil grammar is reported as an error.
func NewEngine(g *grammar.Grammar, trace TraceFlags, log *logrus.Logger) (*Engine, error) {
	if g == nil {
		return nil, internalError("nil grammar")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		Grammar:   g,
		Recursion: recursion.Analyze(g, recursion.FromGrammar(g.Cycles)),
		Trace:     trace,
		Log:       log,
	}, nil
}

// exemplarKey identifies one concrete (rule, start, end) realization a
// wavefront iteration or a plain rule traversal produced — the
// granularity patch_was_succ's exemplar lookup needs (spec.md §4.5): a
// lead matched at several different end positions from the same start
// must graft each SuccWasSucc re-entry with the exemplar that actually
// reaches ITS required end, not just whichever instance matched longest.
type exemplarKey struct {
	RuleIndex int
	StartPos  int
	EndPos    int
}

// Session is the parsing state for one source: its own match cache and its
// own materialized token window. One Session walks the source's top-level
// statements one ParseOneStatement call at a time, resetting its
// per-statement match state (clearAll) at the start of each. Sessions are
// never shared across goroutines — spec.md §5's
// single-threaded-per-session contract.
type Session struct {
	engine *Engine
	src    lexer.Source
	cache  *cache.Cache
	tokens []*lexer.Token
	tracer *tracer

	// waving tracks rule tables currently being widened by the wavefront
	// driver, keyed by (ruleIndex, startPos), so a nested traverseRule call
	// that re-enters the same (rule, start) mid-widen takes the "reuse the
	// current best-known end position, don't recurse again" path instead
	// of infinitely recursing.
	waving map[cache.Key]bool

	// exemplars holds, per (ruleIndex, startPos, endPos), the AppealNode
	// whose Children were actually computed by a real traversal reaching
	// that specific end (as opposed to a SuccWasSucc node reusing the
	// cache's bare end position) — the subtree PatchWasSucc grafts onto
	// every other node that shares the same key.
	exemplars map[exemplarKey]*AppealNode

	// pendingFailures logs every cache.Key recordFailure has recorded
	// during the traversal currently in progress, in call order, so a
	// later-succeeding ancestor can reset exactly the failures its own
	// speculative descent produced (appealReset, spec.md §4.4.6).
	pendingFailures []cache.Key

	// consumed is the position the next ParseOneStatement call starts
	// matching from — advanced past the previous statement's EndPos on
	// every successful parse, so one Session can walk an entire source
	// one top-level statement at a time.
	consumed int
}

// NewSession creates a Session that pulls tokens from src on demand.
func (e *Engine) NewSession(src lexer.Source) *Session {
	return &Session{
		engine:    e,
		src:       src,
		cache:     cache.New(),
		tracer:    newTracer(e.Log, e.Trace),
		waving:    make(map[cache.Key]bool),
		exemplars: make(map[exemplarKey]*AppealNode),
	}
}

// tokenAt returns the token at position pos in the flattened token stream,
// pulling further tokens from src as needed. Returns nil once the source
// is exhausted (pos is at or past the synthetic Eoi/Eof position) —
// matcher.go treats a nil token the same way it treats a look-ahead-gate
// rejection: no match possible past here.
func (s *Session) tokenAt(pos int) *lexer.Token {
	for len(s.tokens) <= pos {
		if s.src.EndOfLine() || len(s.tokens) == 0 {
			if s.src.EndOfFile() {
				return nil
			}
			if !s.src.ReadNextLine() {
				return nil
			}
		}

		tok, err := s.src.LexToken()
		if err != nil {
			s.tracer.warning("lex error pulling token %d: %v", len(s.tokens), err)
			return nil
		}
		if tok == nil {
			if s.src.EndOfFile() {
				return nil
			}
			continue
		}
		s.tokens = append(s.tokens, tok)
	}
	return s.tokens[pos]
}

// End reports whether pos is at or past the end of the available token
// stream.
func (s *Session) End(pos int) bool {
	return s.tokenAt(pos) == nil
}

// clearAll resets every piece of per-statement match state — spec.md
// §4.3's clear_all(), invoked at the top of each top-level statement parse
// (§5, scenario 6) so one statement's speculative left-recursive descent
// never leaks a stale success, failure, or exemplar into the next. Absolute
// token positions make a leaked cache entry harmless for correctness (a
// later statement never starts below s.consumed, so nothing before it is
// looked up again), but the cache and failed set still grow without bound
// across a long source if never cleared, and waving/pendingFailures must be
// empty at the top of a statement regardless — a non-empty waving map left
// over from an aborted previous call would make groupWaving misreport a
// lead as already mid-widen.
func (s *Session) clearAll() {
	s.cache.Clear()
	s.waving = make(map[cache.Key]bool)
	s.exemplars = make(map[exemplarKey]*AppealNode)
	s.pendingFailures = s.pendingFailures[:0]
}

// ParseOneStatement matches one of the grammar's top-level rule tables
// against the session's token stream starting at the position just past
// the previous successful statement (0 on the first call), runs sort-out
// and simplification on success, and returns whether a statement was
// matched. A false with a non-nil error is a *FatalError (illegal syntax
// or top-level ambiguity), or a plain internal error when a top rule name
// has no rule table in the grammar; a false with a nil error means the stream is
// exhausted (no statement to parse, not a failure). Call it repeatedly to
// walk an entire source one statement at a time.
func (s *Session) ParseOneStatement() (*AppealNode, bool, error) {
	start := s.consumed
	if s.End(start) {
		return nil, false, nil
	}

	s.clearAll()

	var candidates []*AppealNode
	for _, name := range s.engine.Grammar.TopRules {
		rule := s.engine.Grammar.Rule(name)
		if rule == nil {
			return nil, false, internalError("unknown top rule %q", name)
		}
		node := s.traverseRule(rule, start, nil)
		if node.Succeeded() && node.EndPos > node.StartPos {
			candidates = append(candidates, node)
		}
	}

	if len(candidates) == 0 {
		return nil, false, illegalSyntaxError(start)
	}

	best := candidates[0]
	ends := []int{best.EndPos}
	for _, c := range candidates[1:] {
		if c.EndPos > best.EndPos {
			best = c
			ends = []int{c.EndPos}
		} else if c.EndPos == best.EndPos {
			ends = append(ends, c.EndPos)
		}
	}
	if len(ends) > 1 {
		return nil, false, ambiguousTopLevelError(start, ends)
	}

	s.SortOut(best)
	s.tracer.sortOutTree(best)
	s.consumed = best.EndPos

	return best, true, nil
}
