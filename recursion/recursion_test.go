package recursion

import (
	"testing"

	"github.com/waveparse/waveparse/grammar"
)

// buildOneOfLeadGrammar builds a minimal OneOf lead with two alternatives:
// index 0 recurses back into the lead (on-cycle), index 1 is a plain
// terminal rule (off-cycle) — the shape spec.md §4.2's lead_fronts/
// per_cycle_fronts rules are defined against.
func buildOneOfLeadGrammar() *grammar.Grammar {
	g := grammar.New()
	lead := g.AddRule(&grammar.RuleTable{Name: "Lead", Kind: grammar.OneOf})
	tail := g.AddRule(&grammar.RuleTable{Name: "Tail", Kind: grammar.Literal})
	concat := g.AddRule(&grammar.RuleTable{
		Name: "LeadPlusTail",
		Kind: grammar.Concatenate,
		Children: []grammar.ChildRef{
			{Kind: grammar.RefRule, RuleIndex: lead.Index},
			{Kind: grammar.RefLiteralChar, Text: "+"},
			{Kind: grammar.RefRule, RuleIndex: tail.Index},
		},
	})
	lead.Children = []grammar.ChildRef{
		{Kind: grammar.RefRule, RuleIndex: concat.Index},
		{Kind: grammar.RefRule, RuleIndex: tail.Index},
	}
	g.TopRules = []string{"Lead"}
	return g
}

func TestAnalyzeBuildsRecursionNodesAndOffCycleLeadFronts(t *testing.T) {
	g := buildOneOfLeadGrammar()
	lead := g.Rule("Lead")
	concat := g.Rule("LeadPlusTail")

	cycles := CycleTable{
		{
			LeadIndex: lead.Index,
			Cycles: [][]Front{
				{{RuleIndex: lead.Index, ChildIndex: 0}, {RuleIndex: concat.Index, ChildIndex: 0}},
			},
		},
	}

	table := Analyze(g, cycles)
	rec, ok := table.RecordFor(lead.Index)
	if !ok {
		t.Fatalf("expecting a record for the lead")
	}

	if !rec.IsRecursionNode(lead.Index) || !rec.IsRecursionNode(concat.Index) {
		t.Errorf("expecting both lead and concat to be recursion nodes, got %v", rec.RecursionNodes)
	}
	if rec.IsRecursionNode(g.Rule("Tail").Index) {
		t.Errorf("not expecting Tail (off-cycle) to be a recursion node")
	}

	// The cycle's first hop takes alternative 0 (LeadPlusTail); lead_fronts
	// must be the OTHER alternative (index 1, Tail), not the one the cycle
	// itself takes.
	if len(rec.LeadFronts) != 1 || rec.LeadFronts[0].ChildIndex != 1 {
		t.Fatalf("expecting lead_fronts to be the off-cycle alternative {Lead,1}, got %v", rec.LeadFronts)
	}

	// Along the cycle's path, LeadPlusTail's on-cycle hop is its child 0
	// (Lead); per_cycle_fronts must be its tail, the concat-tail front at
	// child 1 ("+"), the off-cycle continuation past the recursive slot.
	if len(rec.PerCycleFronts) != 1 {
		t.Fatalf("expecting per-cycle fronts for one cycle, got %v", rec.PerCycleFronts)
	}
	fronts := rec.PerCycleFronts[0]
	if len(fronts) != 1 || fronts[0].RuleIndex != concat.Index || fronts[0].ChildIndex != 1 {
		t.Fatalf("expecting one concat-tail front {LeadPlusTail,1}, got %v", fronts)
	}
}

func TestAnalyzeDedupsRepeatedFronts(t *testing.T) {
	g := buildOneOfLeadGrammar()
	lead := g.Rule("Lead")
	concat := g.Rule("LeadPlusTail")

	cycles := CycleTable{
		{
			LeadIndex: lead.Index,
			// Two cycle paths that both pass through the same off-cycle hop
			// at LeadPlusTail — per_cycle_fronts must not record it twice.
			Cycles: [][]Front{
				{{RuleIndex: lead.Index, ChildIndex: 0}, {RuleIndex: concat.Index, ChildIndex: 0}},
				{{RuleIndex: lead.Index, ChildIndex: 0}, {RuleIndex: concat.Index, ChildIndex: 0}},
			},
		},
	}

	table := Analyze(g, cycles)
	rec, _ := table.RecordFor(lead.Index)
	for i, fronts := range rec.PerCycleFronts {
		if len(fronts) != 1 {
			t.Fatalf("expecting cycle %d's fronts deduplicated to one, got %v", i, fronts)
		}
	}
}

func TestAnalyzeOmitsLeadFrontsForNonOneOfLead(t *testing.T) {
	g := grammar.New()
	word := g.AddRule(&grammar.RuleTable{Name: "Word", Kind: grammar.Literal})
	list := g.AddRule(&grammar.RuleTable{
		Name: "List",
		Kind: grammar.ZeroOrMore,
		Children: []grammar.ChildRef{
			{Kind: grammar.RefRule, RuleIndex: word.Index},
		},
	})
	g.TopRules = []string{"List"}

	cycles := CycleTable{
		{LeadIndex: list.Index, Cycles: [][]Front{{{RuleIndex: list.Index, ChildIndex: 0}}}},
	}

	table := Analyze(g, cycles)
	rec, _ := table.RecordFor(list.Index)
	if len(rec.LeadFronts) != 0 {
		t.Fatalf("expecting no lead fronts for a ZeroOrMore lead (sole child always on-cycle), got %v", rec.LeadFronts)
	}
}

func TestRecordForMissingLead(t *testing.T) {
	table := Analyze(grammar.New(), CycleTable{})
	if _, ok := table.RecordFor(42); ok {
		t.Fatalf("expecting no record for an undeclared lead")
	}
}

func TestFromGrammarCopiesFields(t *testing.T) {
	gt := grammar.CycleTable{
		{LeadIndex: 3, Cycles: [][]grammar.Front{{{RuleIndex: 3, ChildIndex: 1}}}},
	}

	ct := FromGrammar(gt)
	if len(ct) != 1 || ct[0].LeadIndex != 3 {
		t.Fatalf("expecting one entry with LeadIndex 3, got %v", ct)
	}
	if len(ct[0].Cycles) != 1 || len(ct[0].Cycles[0]) != 1 {
		t.Fatalf("expecting one cycle with one front, got %v", ct[0].Cycles)
	}
	front := ct[0].Cycles[0][0]
	if front.RuleIndex != 3 || front.ChildIndex != 1 {
		t.Fatalf("expecting front {3,1}, got %v", front)
	}
}
