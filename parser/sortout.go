package parser

import (
	"github.com/waveparse/waveparse/grammar"
)

// SortOut reduces root's appeal tree — which may still hold more than one
// successful realizer at any OneOf or Concatenate node reached along the
// way — to a single deterministic tree, filling in SortedChildren and
// FinalMatch everywhere. Starting from root's own chosen end position (the
// longest one ParseOneStatement picked among the top-level candidates),
// sortOutNode walks down assigning each node the single final_match
// spec.md §4.5 requires its children reconstruct, rather than picking
// children by which matched longest in isolation — the two disagree
// exactly when an outer sibling needs a shorter inner match to succeed.
//
// sortOutNode dispatches per Rule.Kind, mirroring traverseByKind's
// dispatch in matcher.go; PatchWasSucc then walks the result a second
// time to graft real subtrees onto every SuccWasSucc node SortOut leaves
// as a bare leaf.
func (s *Session) SortOut(root *AppealNode) {
	visited := make(map[*AppealNode]bool)
	s.sortOutNode(root, root.EndPos, visited)
	s.PatchWasSucc(root)
	s.SimplifySortedTree(root)
}

// sortOutNode assigns n.FinalMatch = target and, per n's Rule.Kind,
// resolves which of n's recorded attempts actually realize target.
func (s *Session) sortOutNode(n *AppealNode, target int, visited map[*AppealNode]bool) {
	if n == nil || visited[n] {
		return
	}
	visited[n] = true

	if !n.Succeeded() {
		return
	}
	n.FinalMatch = target

	switch {
	case n.Rule != nil && n.Rule.Kind == grammar.OneOf:
		s.sortOutOneOf(n, target, visited)
	case n.Rule != nil && n.Rule.Kind == grammar.Concatenate:
		s.sortOutConcatenate(n, target, visited)
	default:
		for _, c := range n.Children {
			s.sortOutNode(c, c.EndPos, visited)
		}
		n.SortedChildren = n.Children
	}
}

// sortOutOneOf picks the first-declared alternative (lowest ChildIndex)
// among n's recorded successful Children whose own Matches set contains
// target — spec.md §4.5: "the realizer whose end-positions include the
// required final_match", not simply whichever matched longest overall.
func (s *Session) sortOutOneOf(n *AppealNode, target int, visited map[*AppealNode]bool) {
	for _, c := range n.Children {
		if containsInt(c.Matches, target) {
			s.sortOutNode(c, target, visited)
			n.SortedChildren = []*AppealNode{c}
			return
		}
	}
}

// sortOutConcatenate walks n's children right-to-left, per spec.md §4.5:
// starting from target, at each slot i it picks the attempted child at
// that ChildIndex whose Matches set contains the position still needed,
// assigns that child's own FinalMatch, and continues leftward using the
// child's StartPos (the specific prev_end it was attempted from) as the
// next position still needed. A slot with no qualifying attempt is
// skipped — the tolerated case is a ZeroOrMore/ZeroOrOne element that
// contributed nothing to this particular realization. SortedChildren
// itself stays a dense, gap-free list (a skipped slot leaves no entry),
// but every kept child is first stamped with SimplifiedIndex = i, its
// original declared slot — spec.md §3's simplified_index, preserved per
// §8 property 6 so ast.Build can still resolve a %N action argument by
// its declared position after an earlier slot was dropped.
func (s *Session) sortOutConcatenate(n *AppealNode, target int, visited map[*AppealNode]bool) {
	sorted := make([]*AppealNode, len(n.Rule.Children))
	need := target

	for i := len(n.Rule.Children) - 1; i >= 0; i-- {
		var chosen *AppealNode
		for _, c := range n.Children {
			if c.ChildIndex != i || !c.Succeeded() {
				continue
			}
			if containsInt(c.Matches, need) {
				chosen = c
				break
			}
		}
		if chosen == nil {
			continue
		}
		s.sortOutNode(chosen, need, visited)
		chosen.SimplifiedIndex = i
		sorted[i] = chosen
		need = chosen.StartPos
	}

	result := make([]*AppealNode, 0, len(sorted))
	for _, c := range sorted {
		if c != nil {
			result = append(result, c)
		}
	}
	n.SortedChildren = result
}

// PatchWasSucc walks the already sorted-out tree and grafts the exemplar
// subtree onto every SuccWasSucc node it finds — the node matched only
// because the cache already had a recorded success at its (rule, start,
// end), so it never went through traverseByKind itself and has no
// Children of its own. Idempotent via AppealNode.patched, so a node
// reached through more than one path (shared by two different parents
// after cache reuse) is only patched once, matching the original's
// FindPatchingNodes/SupplementalSortOut two-phase approach of finding
// every such node before patching any of them (done here in one recursive
// pass instead, since our exemplar lookup is O(1) and does not itself
// trigger new matching work the way the original's re-traversal did).
func (s *Session) PatchWasSucc(n *AppealNode) {
	visited := make(map[*AppealNode]bool)
	s.patchWasSucc(n, visited)
}

func (s *Session) patchWasSucc(n *AppealNode, visited map[*AppealNode]bool) {
	if n == nil || visited[n] {
		return
	}
	visited[n] = true

	if n.Status == SuccWasSucc && n.Rule != nil && !n.patched {
		// Select the exemplar by the specific end position this node was
		// required to reach (FinalMatch), not just n.EndPos (the longest
		// the cache ever recorded) — a left-recursive lead matched at
		// several end positions from this start must graft each re-entry
		// with the realizer that actually reaches ITS own end, per
		// spec.md §4.5.
		key := exemplarKey{RuleIndex: n.Rule.Index, StartPos: n.StartPos, EndPos: n.FinalMatch}
		if exemplar, ok := s.exemplars[key]; ok && exemplar != n {
			s.tracer.patchWasSucc("grafting %s @[%d,%d) from exemplar", n.Rule.Name, n.StartPos, n.FinalMatch)
			n.Children = exemplar.Children
			n.Token = exemplar.Token
			n.Status = SuccStillWasSucc
			// Re-derive SortedChildren for n at its own FinalMatch: the
			// exemplar's own SortedChildren (if any) may have been
			// computed for a different target, since the same exemplar
			// can be the realizer for more than one end position.
			s.sortOutNode(n, n.FinalMatch, make(map[*AppealNode]bool))
		}
		n.patched = true
	}

	children := n.SortedChildren
	if children == nil {
		children = n.Children
	}
	for _, c := range children {
		s.patchWasSucc(c, visited)
	}
}

// SimplifySortedTree removes transparent edges from the sorted tree: a
// Concatenate or ZeroOrOne node with exactly one sorted child and no Token
// and no Actions of its own contributes nothing a consumer (ast.Build)
// could not get directly from that child, so simplifyShrinkEdges replaces the
// parent/child edge with a direct reference — shrinking the tree the same
// way the original collapsed single-descendant chains before building the
// final AST. ZeroOrMore nodes are kept even with a single sorted child.
// The replacement inherits the shrunk node's own
// SimplifiedIndex, since it now occupies that same declared slot in the
// grandparent's children list (spec.md §8 property 6: simplification must
// not change which action argument a surviving node answers to).
func (s *Session) SimplifySortedTree(root *AppealNode) {
	visited := make(map[*AppealNode]bool)
	s.simplify(root, visited)
}

func (s *Session) simplify(n *AppealNode, visited map[*AppealNode]bool) {
	if n == nil || visited[n] {
		return
	}
	visited[n] = true

	for i, c := range n.SortedChildren {
		n.SortedChildren[i] = s.simplifyShrinkEdges(c, visited)
	}
}

func (s *Session) simplifyShrinkEdges(n *AppealNode, visited map[*AppealNode]bool) *AppealNode {
	if n == nil {
		return n
	}
	s.simplify(n, visited)

	if n.Rule == nil || n.Token != nil || len(n.Rule.Actions) > 0 {
		return n
	}
	if n.Rule.Kind == grammar.ZeroOrOne && len(n.SortedChildren) == 1 {
		child := n.SortedChildren[0]
		child.SimplifiedIndex = n.SimplifiedIndex
		return child
	}
	if n.Rule.Kind == grammar.Concatenate && len(n.SortedChildren) == 1 {
		child := n.SortedChildren[0]
		child.SimplifiedIndex = n.SimplifiedIndex
		return child
	}
	return n
}
