package parser

import (
	"github.com/waveparse/waveparse/grammar"
	"github.com/waveparse/waveparse/lexer"
)

// Status is the outcome the matcher records for one AppealNode. Fail_*
// and Succ* values never cross the parser package boundary as error
// values — callers only ever see the bool/*FatalError pair
// Session.ParseOneStatement returns.
type Status int

const (
	// NA marks a node whose traversal has not completed yet (still being
	// widened by the wavefront driver, or not yet visited).
	NA Status = iota

	// Succ is a fresh, first-time success: this node matched and no
	// earlier attempt at the same (rule, start) was already on record.
	Succ

	// SuccWasSucc is a success reconstructed from a cache hit: the same
	// (rule, start) already succeeded earlier this parse, so this node
	// reuses that outcome instead of re-matching.
	SuccWasSucc

	// SuccStillWasSucc marks a SuccWasSucc node that PatchWasSucc has
	// already patched once; keeps PatchWasSucc idempotent across repeated
	// sort-out passes over the same subtree.
	SuccStillWasSucc

	// FailChildrenFailed: this node's kind required at least one child to
	// succeed and none did.
	FailChildrenFailed

	// FailWasFailed: the cache already recorded (rule, start) as a
	// failure; this node reuses that outcome.
	FailWasFailed

	// FailNotIdentifier: a Data/Identifier rule table was tried against a
	// token that is not an identifier-kind token.
	FailNotIdentifier

	// FailNotLiteral: a Data/Literal rule table, or a literal ChildRef,
	// was tried against a token whose text/kind does not match.
	FailNotLiteral

	// FailLookAhead: the look-ahead gate rejected this rule table outright
	// before any matching work ran.
	FailLookAhead

	// Fail2ndOf1stInstance: a left-recursion lead was re-entered at the
	// same start while its first (seed) instance was still running, so no
	// end position is recorded yet for the re-entry to connect to.
	Fail2ndOf1stInstance
)

func (s Status) String() string {
	switch s {
	case Succ:
		return "Succ"
	case SuccWasSucc:
		return "SuccWasSucc"
	case SuccStillWasSucc:
		return "SuccStillWasSucc"
	case FailChildrenFailed:
		return "Fail_ChildrenFailed"
	case FailWasFailed:
		return "Fail_WasFailed"
	case FailNotIdentifier:
		return "Fail_NotIdentifier"
	case FailNotLiteral:
		return "Fail_NotLiteral"
	case FailLookAhead:
		return "Fail_LookAhead"
	case Fail2ndOf1stInstance:
		return "Fail_2ndOf1stInstance"
	default:
		return "NA"
	}
}

// Succeeded reports whether s is one of the Succ* statuses.
func (s Status) Succeeded() bool {
	return s == Succ || s == SuccWasSucc || s == SuccStillWasSucc
}

// AppealNode is one attempted match of a rule table (or a terminal
// ChildRef) against a token range: the node the matcher grows the appeal
// tree out of, and sort-out later prunes down to one realizer per
// ambiguous position.
type AppealNode struct {
	Rule   *grammar.RuleTable // nil for a terminal ChildRef match
	Ref    *grammar.ChildRef  // non-nil when this node matches a terminal directly

	StartPos int
	EndPos   int
	Status   Status

	// Matches is the deduplicated set of end-positions this node's
	// attempt actually reaches — spec.md §3's appeal-node matches. EndPos
	// tracks the longest member for every caller that only needs one
	// position (the wavefront's progress check, a cache lookup); Matches
	// is the full set sort-out needs to reconstruct a concatenation or
	// OneOf whose chosen realization isn't the longest one.
	Matches []int

	// FinalMatch is the single end-position SortOut commits this node to
	// out of Matches — spec.md §4.5's final_match. Meaningless until
	// SortOut visits this node.
	FinalMatch int

	// Token is set when this node is a leaf match against one token
	// (Data/Identifier/Literal kinds, or a literal/type-token ChildRef).
	Token *lexer.Token

	// Children holds every realizer this node's matching attempt produced
	// before sort-out — for OneOf, one per alternative that succeeded; for
	// Concatenate, every element attempt in the order it was made (one per
	// element slot and start position tried, failed attempts included),
	// each tagged with its slot in ChildIndex; for ZeroOrMore/ZeroOrOne,
	// one per repetition that succeeded.
	Children []*AppealNode

	// ChildIndex is this node's index within whichever ChildRef list
	// produced it (the alternative index for OneOf, the repetition index
	// for ZeroOrMore, the position for Concatenate), used by sort-out to
	// match each recorded attempt to its declared slot or alternative.
	ChildIndex int

	// SimplifiedIndex is the declared Concatenate child slot this node
	// still occupies after sort-out and simplification — spec.md §3's
	// simplified_index, preserved per §4.5/§8 property 6 so action
	// argument addressing (%N, zero-based in grammar.Action.Args) stays
	// correct even when an earlier ZEROORONE/ZEROORMORE sibling matched
	// zero and dropped out of SortedChildren, or a transparent single-
	// child edge was shrunk away. -1 for a node with no declared slot
	// (anything that isn't a Concatenate's direct child).
	SimplifiedIndex int

	Parent *AppealNode

	// SortedChildren is filled in by SortOut: the single deterministic
	// list of children this node keeps once ambiguity has been resolved.
	SortedChildren []*AppealNode

	// patched marks a SuccWasSucc node PatchWasSucc has already expanded,
	// so a later pass over the same cached subtree is a no-op.
	patched bool
}

// Succeeded is a convenience wrapper over Status.Succeeded.
func (n *AppealNode) Succeeded() bool {
	return n != nil && n.Status.Succeeded()
}

// Text returns the matched token's text for a leaf node, or "" otherwise.
func (n *AppealNode) Text() string {
	if n.Token == nil {
		return ""
	}
	return n.Token.Text()
}

// newNode is the single AppealNode constructor every traversal path uses,
// keeping StartPos/Parent bookkeeping in one place.
func newNode(rule *grammar.RuleTable, startPos int, parent *AppealNode) *AppealNode {
	return &AppealNode{Rule: rule, StartPos: startPos, EndPos: startPos, Status: NA, Parent: parent, SimplifiedIndex: -1}
}

// setMatches replaces n.Matches with the deduplicated members of ends and
// recomputes EndPos as their maximum, so every existing caller that reads
// EndPos alone keeps seeing "the longest match reached so far" while
// sort-out and patch_was_succ get the full set spec.md §3 requires.
func (n *AppealNode) setMatches(ends []int) {
	n.Matches = n.Matches[:0]
	best := n.StartPos
	for _, e := range ends {
		if containsInt(n.Matches, e) {
			continue
		}
		n.Matches = append(n.Matches, e)
		if e > best {
			best = e
		}
	}
	n.EndPos = best
}

// containsInt reports whether v appears in xs.
func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
