package recdetect

import (
	"testing"

	"github.com/waveparse/waveparse/grammar"
)

// buildAddMulGrammar builds the Java-like left-recursive fixture spec.md
// §8 describes: Expr : Expr '+' Term | Term ; Term : Term '*' Factor | Factor.
func buildAddMulGrammar() *grammar.Grammar {
	g := grammar.New()
	expr := g.AddRule(&grammar.RuleTable{Name: "Expr", Kind: grammar.OneOf})
	term := g.AddRule(&grammar.RuleTable{Name: "Term", Kind: grammar.OneOf})
	exprPlusTerm := g.AddRule(&grammar.RuleTable{
		Name: "ExprPlusTerm",
		Kind: grammar.Concatenate,
		Children: []grammar.ChildRef{
			{Kind: grammar.RefRule, RuleIndex: expr.Index},
			{Kind: grammar.RefLiteralChar, Text: "+"},
			{Kind: grammar.RefRule, RuleIndex: term.Index},
		},
	})
	termStarFactor := g.AddRule(&grammar.RuleTable{
		Name: "TermStarFactor",
		Kind: grammar.Concatenate,
		Children: []grammar.ChildRef{
			{Kind: grammar.RefRule, RuleIndex: term.Index},
			{Kind: grammar.RefLiteralChar, Text: "*"},
			{Kind: grammar.RefRule, RuleIndex: -1}, // placeholder, fixed below
		},
	})
	factor := g.AddRule(&grammar.RuleTable{Name: "Factor", Kind: grammar.Literal})
	termStarFactor.Children[2].RuleIndex = factor.Index

	expr.Children = []grammar.ChildRef{
		{Kind: grammar.RefRule, RuleIndex: exprPlusTerm.Index},
		{Kind: grammar.RefRule, RuleIndex: term.Index},
	}
	term.Children = []grammar.ChildRef{
		{Kind: grammar.RefRule, RuleIndex: termStarFactor.Index},
		{Kind: grammar.RefRule, RuleIndex: factor.Index},
	}

	g.TopRules = []string{"Expr"}
	return g
}

func TestFindCyclesDetectsLeftRecursiveLeads(t *testing.T) {
	g := buildAddMulGrammar()
	cycles := FindCycles(g)

	leadNames := map[string]bool{}
	for _, entry := range cycles {
		leadNames[g.RuleAt(entry.LeadIndex).Name] = true
	}

	if !leadNames["Expr"] {
		t.Errorf("expecting Expr to be reported as a left-recursion lead")
	}
	if !leadNames["Term"] {
		t.Errorf("expecting Term to be reported as a left-recursion lead")
	}
	if leadNames["Factor"] {
		t.Errorf("not expecting Factor (a terminal rule) to be a left-recursion lead")
	}
}

func TestFindCyclesNoFalsePositiveOnNonLeftRecursiveGrammar(t *testing.T) {
	g := grammar.New()
	word := g.AddRule(&grammar.RuleTable{Name: "Word", Kind: grammar.Identifier})
	list := g.AddRule(&grammar.RuleTable{
		Name: "List",
		Kind: grammar.ZeroOrMore,
		Children: []grammar.ChildRef{
			{Kind: grammar.RefRule, RuleIndex: word.Index},
		},
	})
	g.TopRules = []string{list.Name}

	cycles := FindCycles(g)
	if len(cycles) != 0 {
		t.Errorf("expecting no cycles in a right-recursive/iterative grammar, got %v", cycles)
	}
}

func TestFindCyclesRecordsFrontPath(t *testing.T) {
	g := buildAddMulGrammar()
	cycles := FindCycles(g)

	var exprEntry *grammar.CycleEntry
	for i := range cycles {
		if g.RuleAt(cycles[i].LeadIndex).Name == "Expr" {
			exprEntry = &cycles[i]
		}
	}
	if exprEntry == nil {
		t.Fatalf("expecting an Expr cycle entry")
	}
	if len(exprEntry.Cycles) == 0 {
		t.Fatalf("expecting at least one recorded cycle path for Expr")
	}
	for _, path := range exprEntry.Cycles {
		if len(path) == 0 {
			t.Errorf("expecting a non-empty front path")
		}
		if path[0].RuleIndex != exprEntry.LeadIndex {
			t.Errorf("expecting the first front to start at the lead rule, got %v", path[0])
		}
	}
}
