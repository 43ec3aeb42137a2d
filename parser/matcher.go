package parser

import (
	"github.com/waveparse/waveparse/cache"
	"github.com/waveparse/waveparse/grammar"
	"github.com/waveparse/waveparse/internal/ints"
	"github.com/waveparse/waveparse/lexer"
)

// traverseRule is traverse_rule: the single entry point every match
// attempt against a rule table goes through, whether called from
// ParseOneStatement, from a Concatenate/OneOf/ZeroOrMore/ZeroOrOne parent,
// or from the wavefront driver widening a recursion lead. It applies the
// look-ahead gate, consults the cache, dispatches to the kind-specific
// traversal (or to the wavefront driver for a recursion lead), and
// memoizes the outcome before returning.
func (s *Session) traverseRule(rule *grammar.RuleTable, startPos int, parent *AppealNode) *AppealNode {
	s.tracer.table("enter %s @%d", rule.Name, startPos)
	node := s.traverseRuleInner(rule, startPos, parent)
	s.tracer.table("exit %s @%d -> %s [%d,%d)", rule.Name, startPos, node.Status, node.StartPos, node.EndPos)
	return node
}

func (s *Session) traverseRuleInner(rule *grammar.RuleTable, startPos int, parent *AppealNode) *AppealNode {
	key := cache.Key{RuleIndex: rule.Index, StartPos: startPos}

	if s.cache.Failed(key) {
		node := newNode(rule, startPos, parent)
		node.Status = FailWasFailed
		return node
	}

	if entry := s.cache.Lookup(key); entry != nil && entry.Done {
		node := newNode(rule, startPos, parent)
		node.setMatches(entry.EndPositions)
		node.Status = SuccWasSucc
		return node
	}

	checkpoint := len(s.pendingFailures)

	if !s.lookAhead(rule, startPos, ints.NewSet()) {
		node := newNode(rule, startPos, parent)
		node.Status = FailLookAhead
		s.recordFailure(key)
		return node
	}

	var node *AppealNode
	if rec, isLead := s.engine.Recursion.RecordFor(rule.Index); isLead {
		node = s.traverseRecursionLead(rule, startPos, parent, rec)
	} else {
		node = s.traverseByKind(rule, startPos, parent)
		s.memoize(key, node)
	}

	if node.Succeeded() {
		s.appealReset(checkpoint)
	}
	return node
}

// memoize records node's outcome in the cache: a fresh success widens
// EndPositions for every end in node.Matches (rememberMatches), a failure
// is remembered so sibling attempts at the same (rule, start)
// short-circuit via FailWasFailed.
func (s *Session) memoize(key cache.Key, node *AppealNode) {
	if node.Succeeded() {
		s.rememberMatches(key, node)
	} else {
		s.recordFailure(key)
		s.tracer.failed("remember failure %+v", key)
	}
}

// rememberMatches publishes every end position node reaches into the
// cache under key, and — for a fresh (Status == Succ) node — records node
// itself as the exemplar for each newly reached (rule, start, end) triple.
// This is the granularity patch_was_succ's lookup needs (spec.md §4.5): a
// lead matched at several different end positions from the same start
// must graft each SuccWasSucc re-entry with the exemplar that actually
// reaches ITS required end, not just whichever instance matched longest.
func (s *Session) rememberMatches(key cache.Key, node *AppealNode) bool {
	grew := false
	for _, end := range node.Matches {
		if s.cache.RememberSuccess(key, end) {
			grew = true
			if node.Status == Succ {
				s.exemplars[exemplarKey{key.RuleIndex, key.StartPos, end}] = node
			}
		}
	}
	return grew
}

// recordFailure remembers key as a failure both in the cache and in the
// current statement's pendingFailures log, so a later-succeeding ancestor
// can retroactively reset it (appealReset, spec.md §4.4.6).
func (s *Session) recordFailure(key cache.Key) {
	s.cache.RememberFailure(key)
	s.pendingFailures = append(s.pendingFailures, key)
}

// appealReset resets every failure recorded since checkpoint: the subtree
// rooted at the node that just succeeded explored some branches that
// failed along the way (typical in left-recursive exploration, spec.md
// §4.4.6), and those failures must not short-circuit a future attempt at
// the same (rule, start) now that the enclosing attempt is known to
// succeed.
func (s *Session) appealReset(checkpoint int) {
	for _, key := range s.pendingFailures[checkpoint:] {
		s.cache.ResetFailure(key)
	}
	s.pendingFailures = s.pendingFailures[:checkpoint]
}

// traverseByKind dispatches a non-recursion-lead rule table to its
// kind-specific traversal. Recursion leads never reach here: they are
// intercepted in traverseRuleInner and handed to the wavefront driver,
// since even their non-recursive alternatives must be tried as part of
// wavefront's first-instance seed rather than in isolation.
func (s *Session) traverseByKind(rule *grammar.RuleTable, startPos int, parent *AppealNode) *AppealNode {
	switch rule.Kind {
	case grammar.OneOf:
		return s.traverseOneOf(rule, startPos, parent)
	case grammar.Concatenate:
		return s.traverseConcatenate(rule, startPos, parent)
	case grammar.ZeroOrMore:
		return s.traverseZeroOrMore(rule, startPos, parent)
	case grammar.ZeroOrOne:
		return s.traverseZeroOrOne(rule, startPos, parent)
	case grammar.Data:
		return s.traverseData(rule, startPos, parent)
	case grammar.Identifier:
		return s.traverseTokenKind(rule, startPos, parent, lexer.Identifier, FailNotIdentifier)
	case grammar.Literal:
		return s.traverseTokenKind(rule, startPos, parent, lexer.Literal, FailNotLiteral)
	default: // grammar.Null
		node := newNode(rule, startPos, parent)
		node.Status = Succ
		return node
	}
}

// traverseOneOf tries every alternative in declaration order and keeps
// every one that succeeds — ambiguity among alternatives is resolved
// later by SortOut, not here, since a shorter alternative matching at one
// position can still be the right choice once its sibling context is
// known (e.g. operator precedence climbing through a shared left-recursive
// lead).
func (s *Session) traverseOneOf(rule *grammar.RuleTable, startPos int, parent *AppealNode) *AppealNode {
	node := newNode(rule, startPos, parent)
	var ends []int

	for i, ref := range rule.Children {
		child := s.traverseChildRef(ref, startPos, node)
		child.ChildIndex = i
		if !child.Succeeded() {
			continue
		}
		node.Children = append(node.Children, child)
		ends = append(ends, child.Matches...)
		if rule.Is(grammar.SingleMatch) {
			break
		}
	}

	if len(ends) == 0 {
		node.Status = FailChildrenFailed
		return node
	}
	node.setMatches(ends)
	node.Status = Succ
	return node
}

// traverseConcatenate matches every child ref in order, threading the
// whole set of positions reached so far (prev_ends, spec.md §4.4.5) into
// the next child rather than just the single longest one: a later child
// may only succeed from a shorter match of an earlier one (e.g. a
// ZeroOrMore body that could stop early), so every end an earlier child
// can reach must get its own attempt at the next child.
func (s *Session) traverseConcatenate(rule *grammar.RuleTable, startPos int, parent *AppealNode) *AppealNode {
	node := newNode(rule, startPos, parent)
	prevEnds := []int{startPos}

	for i, ref := range rule.Children {
		var thisEnds []int

		for _, e := range prevEnds {
			child := s.traverseChildRef(ref, e, node)
			child.ChildIndex = i
			node.Children = append(node.Children, child)
			if !child.Succeeded() {
				continue
			}
			for _, m := range child.Matches {
				if !containsInt(thisEnds, m) {
					thisEnds = append(thisEnds, m)
				}
			}
		}

		if len(thisEnds) == 0 {
			node.Status = FailChildrenFailed
			return node
		}
		prevEnds = thisEnds
	}

	if len(prevEnds) == 1 && prevEnds[0] == startPos {
		node.Status = FailChildrenFailed
		return node
	}

	node.setMatches(prevEnds)
	node.Status = Succ
	return node
}

// traverseZeroOrMore matches its single body child as many times as
// possible, stopping the first time a repetition makes no progress
// (matches but consumes zero tokens, or fails outright). visited is reset
// every call — spec.md's Open Question resolution (DESIGN.md) is that this
// set tracks start positions already fed to the body this call, not a
// grammar-wide set, so every fresh traverseZeroOrMore gets a clean slate
// matching the wavefront's monotonic-enlargement contract.
func (s *Session) traverseZeroOrMore(rule *grammar.RuleTable, startPos int, parent *AppealNode) *AppealNode {
	node := newNode(rule, startPos, parent)
	if len(rule.Children) == 0 {
		node.Status = Succ
		node.setMatches([]int{startPos})
		return node
	}

	body := rule.Children[0]
	pos := startPos
	visited := ints.NewSet()
	index := 0
	ends := []int{startPos}

	for {
		if visited.Contains(pos) {
			s.tracer.visited("%s: revisiting %d, stopping", rule.Name, pos)
			break
		}
		visited.Add(pos)

		child := s.traverseChildRef(body, pos, node)
		if !child.Succeeded() || child.EndPos <= pos {
			break
		}
		child.ChildIndex = index
		node.Children = append(node.Children, child)
		pos = child.EndPos
		ends = append(ends, pos)
		index++
	}

	node.Status = Succ
	node.setMatches(ends)
	return node
}

func (s *Session) traverseZeroOrOne(rule *grammar.RuleTable, startPos int, parent *AppealNode) *AppealNode {
	node := newNode(rule, startPos, parent)
	ends := []int{startPos}
	if len(rule.Children) > 0 {
		child := s.traverseChildRef(rule.Children[0], startPos, node)
		if child.Succeeded() {
			child.ChildIndex = 0
			node.Children = append(node.Children, child)
			ends = append(ends, child.Matches...)
		}
	}
	node.Status = Succ
	node.setMatches(ends)
	return node
}

// traverseData matches a Data rule table's single ChildRef (a terminal or
// another rule table) at startPos.
func (s *Session) traverseData(rule *grammar.RuleTable, startPos int, parent *AppealNode) *AppealNode {
	node := newNode(rule, startPos, parent)
	if len(rule.Children) == 0 {
		node.Status = FailChildrenFailed
		return node
	}

	child := s.traverseChildRef(rule.Children[0], startPos, node)
	if !child.Succeeded() {
		node.Status = child.Status
		return node
	}
	node.Token = child.Token
	node.Children = []*AppealNode{child}
	node.Status = Succ
	node.setMatches(child.Matches)
	return node
}

// traverseTokenKind matches a bare Identifier/Literal rule table: any
// token of the given lexer.Kind, regardless of text.
func (s *Session) traverseTokenKind(rule *grammar.RuleTable, startPos int, parent *AppealNode, kind lexer.Kind, failStatus Status) *AppealNode {
	node := newNode(rule, startPos, parent)
	tok := s.tokenAt(startPos)
	if tok == nil || tok.Kind() != kind {
		node.Status = failStatus
		return node
	}
	node.Token = tok
	node.Status = Succ
	node.setMatches([]int{startPos + 1})
	return node
}

// traverseChildRef matches one ChildRef: either by recursing into another
// rule table, or directly against the token at pos for a literal/type-
// token terminal.
func (s *Session) traverseChildRef(ref grammar.ChildRef, pos int, parent *AppealNode) *AppealNode {
	switch ref.Kind {
	case grammar.RefRule:
		rule := s.engine.Grammar.RuleAt(ref.RuleIndex)
		if rule == nil {
			n := &AppealNode{Ref: &ref, StartPos: pos, EndPos: pos, Parent: parent, Status: FailChildrenFailed, SimplifiedIndex: -1}
			s.tracer.warning("dangling rule index %d", ref.RuleIndex)
			return n
		}
		return s.traverseRule(rule, pos, parent)

	case grammar.RefLiteralString, grammar.RefLiteralChar:
		n := &AppealNode{Ref: &ref, StartPos: pos, EndPos: pos, Parent: parent, SimplifiedIndex: -1}
		tok := s.tokenAt(pos)
		if tok == nil || tok.Text() != ref.Text {
			n.Status = FailNotLiteral
			return n
		}
		n.Token = tok
		n.Status = Succ
		n.setMatches([]int{pos + 1})
		return n

	case grammar.RefTypeToken:
		n := &AppealNode{Ref: &ref, StartPos: pos, EndPos: pos, Parent: parent, SimplifiedIndex: -1}
		tok := s.tokenAt(pos)
		if tok == nil || tok.TypeName() != ref.TypeName {
			n.Status = FailNotLiteral
			return n
		}
		n.Token = tok
		n.Status = Succ
		n.setMatches([]int{pos + 1})
		return n

	default:
		return &AppealNode{Ref: &ref, StartPos: pos, EndPos: pos, Parent: parent, Status: FailChildrenFailed, SimplifiedIndex: -1}
	}
}

// lookAhead is the look-ahead gate: a cheap, purely syntactic check of
// whether rule could possibly match starting at pos, run before any of
// the (potentially expensive, cache-populating) real matching work. It is
// always permissive when it cannot decide quickly — recursing into a rule
// table already on visiting returns true rather than looping, since
// leaving a gate permissive only costs a wasted real-match attempt, never
// an incorrect parse.
func (s *Session) lookAhead(rule *grammar.RuleTable, pos int, visiting *ints.Set) bool {
	if visiting.Contains(rule.Index) {
		return true
	}
	visiting.Add(rule.Index)

	tok := s.tokenAt(pos)

	switch rule.Kind {
	case grammar.Null:
		return true
	case grammar.ZeroOrMore, grammar.ZeroOrOne:
		return true // may match zero tokens, always a live possibility
	case grammar.Identifier:
		return tok != nil && tok.Kind() == lexer.Identifier
	case grammar.Literal:
		return tok != nil && tok.Kind() == lexer.Literal
	case grammar.Data:
		if len(rule.Children) == 0 {
			return false
		}
		return s.lookAheadRef(rule.Children[0], pos, tok, visiting)
	case grammar.Concatenate:
		if len(rule.Children) == 0 {
			return true
		}
		return s.lookAheadRef(rule.Children[0], pos, tok, visiting)
	case grammar.OneOf:
		for _, c := range rule.Children {
			if s.lookAheadRef(c, pos, tok, visiting) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func (s *Session) lookAheadRef(ref grammar.ChildRef, pos int, tok *lexer.Token, visiting *ints.Set) bool {
	switch ref.Kind {
	case grammar.RefRule:
		rule := s.engine.Grammar.RuleAt(ref.RuleIndex)
		if rule == nil {
			return false
		}
		if tok == nil {
			return rule.Kind == grammar.ZeroOrMore || rule.Kind == grammar.ZeroOrOne || rule.Kind == grammar.Null
		}
		return s.lookAhead(rule, pos, visiting)
	case grammar.RefLiteralString, grammar.RefLiteralChar:
		return tok != nil && tok.Text() == ref.Text
	case grammar.RefTypeToken:
		return tok != nil && tok.TypeName() == ref.TypeName
	default:
		return false
	}
}
