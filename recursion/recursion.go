// Package recursion analyzes a grammar's precomputed left-recursion cycle
// table into the per-lead data the wavefront matcher needs at parse time:
// which rule tables participate in a cycle rooted at a given lead, and
// which "fronts" — (rule-table, child-index) pairs that step off a cycle —
// the lead offers; the matcher seeds a wavefront through those and widens
// through the lead's remaining, on-cycle children.
//
// The input CycleTable is produced offline (at grammar-load time, by
// recdetect.FindCycles) exactly as the original implementation's recdetect
// tool did for its code-generated grammar tables.
package recursion

import (
	"github.com/emirpasic/gods/sets/hashset"

	"github.com/waveparse/waveparse/grammar"
)

// FromGrammar converts a grammar.CycleTable (recdetect's output, kept
// grammar-package-only so grammar never imports recursion) into the
// CycleTable Analyze consumes. The two types share field shapes by
// construction; this is a plain copy, not a transformation.
func FromGrammar(gt grammar.CycleTable) CycleTable {
	table := make(CycleTable, len(gt))
	for i, e := range gt {
		cycles := make([][]Front, len(e.Cycles))
		for j, path := range e.Cycles {
			fronts := make([]Front, len(path))
			for k, f := range path {
				fronts[k] = Front{RuleIndex: f.RuleIndex, ChildIndex: f.ChildIndex}
			}
			cycles[j] = fronts
		}
		table[i] = CycleEntry{LeadIndex: e.LeadIndex, Cycles: cycles}
	}
	return table
}

// Front identifies one step a cycle can take out of its lead: the rule
// table it passes through and the index of the child that continues the
// cycle. Two fronts are equal iff both fields match.
type Front struct {
	RuleIndex  int
	ChildIndex int
}

// CycleEntry is one lead rule table and every cycle it roots, each cycle
// given as the ordered list of fronts from the lead back to the lead.
// recdetect.FindCycles resolves every front's RuleIndex while walking the
// grammar graph, so recursion itself never needs a *grammar.Grammar.
type CycleEntry struct {
	LeadIndex int
	Cycles    [][]Front
}

// CycleTable is the full, grammar-wide set of left-recursion cycles.
type CycleTable []CycleEntry

// Record is the per-lead analysis result the wavefront matcher consults
// while traversing a rule table that is a recursion lead.
type Record struct {
	LeadIndex int

	// RecursionNodes is every rule-table index that participates in some
	// cycle rooted at LeadIndex (the lead itself included).
	RecursionNodes []int

	// LeadFronts is the set of off-cycle fronts reachable as the very
	// first step out of LeadIndex across all of its cycles — where the
	// wavefront's "first instance" seed match is allowed to begin
	// widening.
	LeadFronts []Front

	// PerCycleFronts holds, for each cycle (same order as the input
	// CycleEntry.Cycles), every off-cycle front reachable along that
	// cycle's on-cycle path — what a subsequent widen iteration may also
	// try while passing through it. Computed per spec.md §4.2 and
	// exercised by this package's own tests; not currently consumed by
	// parser/wavefront.go's widen loop (see that file's widenOnce) since
	// every front it names is already visited by the ordinary per-Kind
	// traversal of the on-cycle rule table it belongs to — an
	// intermediate node on the cycle path (e.g. a Concatenate lead body)
	// must try every one of its own children on every widen round
	// regardless, unlike the lead's own off-cycle alternatives, which
	// the seed pass resolves once and for all. Kept as the precomputed
	// diagnostic record spec.md §4.2 describes; a future optimization
	// that memoizes partial progress through an intermediate node could
	// consume it to skip re-deriving which of its children are relevant.
	PerCycleFronts [][]Front
}

// Table maps a lead rule-table index to its Record, for every lead named in
// the CycleTable passed to Analyze.
type Table map[int]*Record

func frontKey(f Front) [2]int { return [2]int{f.RuleIndex, f.ChildIndex} }

// Analyze turns cycles into the Table the matcher consults, implementing
// the exact algorithm spec.md §4.2 describes:
//
//   - recursion_nodes(lead) = union over every cycle of the rule-table
//     indices the cycle's fronts pass through, plus lead itself;
//   - lead_fronts(lead) = every front reachable directly from the lead but
//     OFF all of its cycles — a OneOf's other alternatives, a
//     Concatenate's tail past the recursive child, nothing for
//     ZeroOrMore/ZeroOrOne/Data whose sole child is always on the cycle —
//     where the wavefront's "first instance" seed match is allowed to
//     begin widening;
//   - per_cycle_fronts(lead, cycle) = every off-cycle front reachable
//     along that one cycle's on-cycle path, deduplicated — what a
//     subsequent widen iteration may also try while passing through the
//     cycle.
//
// g resolves each front's owning rule table so its Kind and Children can
// be read; recdetect.FindCycles, which built cycles, never needed g itself
// since it only records which child continues a cycle, not which other
// children don't.
func Analyze(g *grammar.Grammar, cycles CycleTable) Table {
	table := make(Table, len(cycles))
	for _, entry := range cycles {
		rec := &Record{LeadIndex: entry.LeadIndex}

		nodeSet := hashset.New()
		nodeSet.Add(entry.LeadIndex)
		for _, path := range entry.Cycles {
			for _, f := range path {
				nodeSet.Add(f.RuleIndex)
			}
		}
		nodes := nodeSet.Values()
		rec.RecursionNodes = make([]int, 0, len(nodes))
		for _, v := range nodes {
			rec.RecursionNodes = append(rec.RecursionNodes, v.(int))
		}
		onCycle := make(map[int]bool, len(rec.RecursionNodes))
		for _, n := range rec.RecursionNodes {
			onCycle[n] = true
		}

		lead := g.RuleAt(entry.LeadIndex)

		leadFrontSet := make(map[[2]int]bool)
		var leadFrontOrder []Front
		rec.PerCycleFronts = make([][]Front, 0, len(entry.Cycles))

		for _, path := range entry.Cycles {
			rec.PerCycleFronts = append(rec.PerCycleFronts, offCyclePerCycleFronts(g, path, onCycle))

			if len(path) == 0 {
				continue
			}
			for _, f := range leadFrontsForFirstHop(lead, path[0]) {
				key := frontKey(f)
				if !leadFrontSet[key] {
					leadFrontSet[key] = true
					leadFrontOrder = append(leadFrontOrder, f)
				}
			}
		}

		rec.LeadFronts = leadFrontOrder
		table[entry.LeadIndex] = rec
	}
	return table
}

// leadFrontsForFirstHop computes lead_fronts' contribution from one
// cycle's first hop out of lead (spec.md §4.2).
func leadFrontsForFirstHop(lead *grammar.RuleTable, first Front) []Front {
	if lead == nil {
		return nil
	}
	switch lead.Kind {
	case grammar.OneOf:
		var fronts []Front
		for i := range lead.Children {
			if i == first.ChildIndex {
				continue
			}
			fronts = append(fronts, Front{RuleIndex: lead.Index, ChildIndex: i})
		}
		return fronts
	case grammar.Concatenate:
		if first.ChildIndex < len(lead.Children)-1 {
			return []Front{{RuleIndex: lead.Index, ChildIndex: first.ChildIndex + 1}}
		}
		return nil
	default: // ZeroOrMore, ZeroOrOne, Data: sole child is always on the cycle
		return nil
	}
}

// offCyclePerCycleFronts walks one cycle's on-cycle path and computes
// per_cycle_fronts (spec.md §4.2): at every intermediate node, the
// off-cycle children a widen iteration may also try while passing through
// that node, in path order and deduplicated.
func offCyclePerCycleFronts(g *grammar.Grammar, path []Front, onCycle map[int]bool) []Front {
	seen := make(map[[2]int]bool)
	var fronts []Front
	for i, hop := range path {
		if i == 0 {
			continue // the lead itself: its off-cycle children are LeadFronts
		}
		rule := g.RuleAt(hop.RuleIndex)
		if rule == nil {
			continue
		}
		switch rule.Kind {
		case grammar.OneOf:
			for i, child := range rule.Children {
				if i == hop.ChildIndex {
					continue
				}
				if child.Kind == grammar.RefRule && onCycle[child.RuleIndex] {
					continue
				}
				f := Front{RuleIndex: rule.Index, ChildIndex: i}
				if key := frontKey(f); !seen[key] {
					seen[key] = true
					fronts = append(fronts, f)
				}
			}
		case grammar.Concatenate:
			if hop.ChildIndex < len(rule.Children)-1 {
				f := Front{RuleIndex: rule.Index, ChildIndex: hop.ChildIndex + 1}
				if key := frontKey(f); !seen[key] {
					seen[key] = true
					fronts = append(fronts, f)
				}
			}
		}
	}
	return fronts
}

// RecordFor returns the Record for ruleIndex if it is a recursion lead,
// and whether one exists.
func (t Table) RecordFor(ruleIndex int) (*Record, bool) {
	rec, ok := t[ruleIndex]
	return rec, ok
}

// IsRecursionNode reports whether ruleIndex participates in any cycle
// rooted at lead. A query-by-single-index convenience over
// RecursionNodes for callers (and this package's own tests) that have
// one candidate rule table to check rather than needing the whole set,
// as groupWaving (parser/wavefront.go) does; not currently called
// outside this package's tests.
func (r *Record) IsRecursionNode(ruleIndex int) bool {
	for _, n := range r.RecursionNodes {
		if n == ruleIndex {
			return true
		}
	}
	return false
}
