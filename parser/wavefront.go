package parser

import (
	"github.com/waveparse/waveparse/cache"
	"github.com/waveparse/waveparse/grammar"
	"github.com/waveparse/waveparse/recursion"
)

// traverseRecursionLead drives the wavefront algorithm for a rule table
// that recursion.Analyze identified as a left-recursion lead: repeatedly
// re-traversing the rule at the same start position, letting each pass's
// recursive reference back to the lead observe the previous pass's best
// known end position instead of failing outright, so the matched range
// grows monotonically — first instance seeds the cache with whatever the
// lead's non-recursive alternative(s) can match alone, each subsequent
// instance widens by one more trip around a cycle until no widening
// changes the end position (reenterWavingLead has nothing new to connect),
// at which point the result is marked done and memoized like any other
// rule table.
func (s *Session) traverseRecursionLead(rule *grammar.RuleTable, startPos int, parent *AppealNode, rec *recursion.Record) *AppealNode {
	key := cache.Key{RuleIndex: rule.Index, StartPos: startPos}

	if s.waving[key] {
		return s.reenterWavingLead(rule, startPos, parent, key)
	}
	if _, waving := s.groupWaving(rec, startPos); waving {
		// Another lead sharing a recursion node with rec (e.g. Term while
		// MulExpr, on the same cycle, is reached from Term's widen round)
		// is already being widened at this start. spec.md §4.4.4 step 1
		// allows only one live wavefront per (recursion group, start), so
		// match this rule's body once, without a widen loop of its own:
		// its recursive reference reaches the waving lead and connects to
		// that wavefront through reenterWavingLead.
		return s.traverseByKind(rule, startPos, parent)
	}

	s.waving[key] = true
	defer delete(s.waving, key)

	s.tracer.leftRec("%s @%d: seeding first instance", rule.Name, startPos)
	seed := s.seedRecursionLead(rule, startPos, parent, rec)
	if !seed.Succeeded() {
		s.memoize(key, seed)
		return seed
	}

	s.rememberMatches(key, seed)
	best := seed
	s.tracer.leftRec("%s @%d: seed -> matches %v", rule.Name, startPos, seed.Matches)

	for iter := 0; ; iter++ {
		candidate := s.widenOnce(rule, startPos, parent, rec)
		if !candidate.Succeeded() || candidate.EndPos <= best.EndPos {
			s.tracer.leftRec("%s @%d: widen iteration %d made no progress, stopping", rule.Name, startPos, iter)
			break
		}

		grew := s.rememberMatches(key, candidate)
		if !grew {
			break
		}

		best = candidate
		s.tracer.leftRec("%s @%d: widen iteration %d -> matches %v", rule.Name, startPos, iter, candidate.Matches)
	}

	s.cache.MarkDone(key)
	return best
}

// widenOnce runs one round-n (n >= 1) widen pass. spec.md §4.4.4 says a
// widen round may only admit cycle-fronts: for a OneOf lead, the
// off-cycle alternatives (rec.LeadFronts) were already fully resolved by
// the seed pass and can never produce a new result on a later round,
// since they never recurse into the lead and so never observe its
// growing cache entry — only the on-cycle alternative(s) (the complement
// of LeadFronts) can. Concatenate-kind leads have no alternatives to
// restrict and fall back to the generic traversal, same as the seed.
func (s *Session) widenOnce(rule *grammar.RuleTable, startPos int, parent *AppealNode, rec *recursion.Record) *AppealNode {
	if rule.Kind == grammar.OneOf && len(rec.LeadFronts) > 0 {
		return s.traverseOneOfFronts(rule, startPos, parent, onCycleFronts(rule, rec.LeadFronts))
	}
	return s.traverseByKind(rule, startPos, parent)
}

// onCycleFronts returns, for a OneOf rule, the complement of offFronts
// within rule.Children — the alternatives a widen round must still try
// because they recurse back into the lead (spec.md §4.2's on-cycle
// children, the set lead_fronts is defined to exclude).
func onCycleFronts(rule *grammar.RuleTable, offFronts []recursion.Front) []recursion.Front {
	off := make(map[int]bool, len(offFronts))
	for _, f := range offFronts {
		if f.RuleIndex == rule.Index {
			off[f.ChildIndex] = true
		}
	}
	var on []recursion.Front
	for i := range rule.Children {
		if !off[i] {
			on = append(on, recursion.Front{RuleIndex: rule.Index, ChildIndex: i})
		}
	}
	return on
}

// seedRecursionLead runs the wavefront's round-0 seed pass. spec.md §4.4.4
// says round 0 may only take a lead-front exit: for a OneOf lead that
// means trying only the alternatives rec.LeadFronts names, skipping the
// on-cycle ones outright rather than trying and letting them fail via
// reenterWavingLead's deferred Fail2ndOf1stInstance. Concatenate-kind
// leads fall back to the generic traversal — the same deferred-fail path
// still makes the on-cycle concat-tail fail on its own, just without the
// fronts-only traversal's avoided wasted work.
func (s *Session) seedRecursionLead(rule *grammar.RuleTable, startPos int, parent *AppealNode, rec *recursion.Record) *AppealNode {
	if rule.Kind == grammar.OneOf && len(rec.LeadFronts) > 0 {
		return s.traverseOneOfFronts(rule, startPos, parent, rec.LeadFronts)
	}
	return s.traverseByKind(rule, startPos, parent)
}

// traverseOneOfFronts is traverseOneOf restricted to the given fronts'
// child indices.
func (s *Session) traverseOneOfFronts(rule *grammar.RuleTable, startPos int, parent *AppealNode, fronts []recursion.Front) *AppealNode {
	allowed := make(map[int]bool, len(fronts))
	for _, f := range fronts {
		if f.RuleIndex == rule.Index {
			allowed[f.ChildIndex] = true
		}
	}

	node := newNode(rule, startPos, parent)
	var ends []int

	for i, ref := range rule.Children {
		if !allowed[i] {
			continue
		}
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

// groupWaving reports whether some other lead sharing a recursion node
// with rec is already being widened at startPos, and that lead's cache
// key if so — the cross-lead guard rec.RecursionNodes exists to support.
func (s *Session) groupWaving(rec *recursion.Record, startPos int) (cache.Key, bool) {
	for _, idx := range rec.RecursionNodes {
		if idx == rec.LeadIndex {
			continue
		}
		k := cache.Key{RuleIndex: idx, StartPos: startPos}
		if s.waving[k] {
			return k, true
		}
	}
	return cache.Key{}, false
}

// reenterWavingLead is the path a rule table takes when, mid-widen, its
// own body recurses back into itself at the same start position: the
// recursive alternative's anchor. Before any instance has succeeded there
// is nothing to anchor to, so the recursive alternative must fail —
// Fail2ndOf1stInstance, matching spec.md's name for exactly this case.
// Once an instance has succeeded, the anchor reuses the best end position
// recorded so far, letting the enclosing Concatenate/OneOf continue past
// it and, on success, grow the cache entry further next iteration.
func (s *Session) reenterWavingLead(rule *grammar.RuleTable, startPos int, parent *AppealNode, key cache.Key) *AppealNode {
	node := newNode(rule, startPos, parent)
	entry := s.cache.Lookup(key)
	if entry == nil || len(entry.EndPositions) == 0 {
		node.Status = Fail2ndOf1stInstance
		return node
	}
	node.setMatches(entry.EndPositions)
	node.Status = SuccWasSucc
	return node
}
