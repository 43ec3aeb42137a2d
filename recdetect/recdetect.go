// Package recdetect finds left-recursive cycles in a grammar, standing in
// for the original implementation's offline "recdetect" tool
// (original_source/recdetect/rec_detect.cpp): that tool walked a
// code-generated grammar table once, before any parse ever ran, and wrote
// out the cycle table the recursion analyzer consumes. Here the same
// analysis runs once at grammar-load time, inside langdef.Parse, instead of
// as a separate build step.
//
// A rule table R is left-recursive through child index i if, starting at
// R's i-th child and following only children that can match at the current
// position without first consuming a token (OneOf's alternatives,
// Concatenate's first element, ZeroOrMore/ZeroOrOne's body), control can
// reach R again. Data/Identifier/Literal rule tables are always leaves for
// this purpose: they consume a token before returning control, so they
// never continue a left-recursive descent.
package recdetect

import "github.com/waveparse/waveparse/grammar"

// FindCycles checks every rule table in g.Rules as a candidate lead (so
// each rule table on a cycle gets its own entry, rooted at itself) and
// returns the left-recursion cycle table g.Cycles should be set to.
func FindCycles(g *grammar.Grammar) grammar.CycleTable {
	finder := &finder{g: g}
	var table grammar.CycleTable
	for _, rt := range g.Rules {
		cycles := finder.cyclesFor(rt.Index)
		if len(cycles) > 0 {
			table = append(table, grammar.CycleEntry{LeadIndex: rt.Index, Cycles: cycles})
		}
	}
	return table
}

type finder struct {
	g *grammar.Grammar
}

// cyclesFor returns every distinct left-recursive path leading from lead
// back to lead, each given as the sequence of (rule, child-index) fronts
// taken. It runs a bounded DFS over the "can continue without consuming a
// token" edges, starting at lead, cutting a branch as soon as it revisits
// any rule table other than lead itself (that revisit is itself a cycle
// rooted at a different lead, reported separately when this function runs
// for that rule table) or re-visits lead along a path already recorded
// (dedup by front sequence).
func (f *finder) cyclesFor(lead int) [][]grammar.Front {
	var cycles [][]grammar.Front
	seen := make(map[string]bool)
	var path []grammar.Front
	visiting := map[int]bool{lead: true}

	var walk func(ruleIndex int)
	walk = func(ruleIndex int) {
		rt := f.g.RuleAt(ruleIndex)
		if rt == nil {
			return
		}
		for _, edge := range f.leftEdges(rt) {
			path = append(path, grammar.Front{RuleIndex: ruleIndex, ChildIndex: edge.childIndex})
			target := edge.target

			if target == lead {
				key := pathKey(path)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, append([]grammar.Front(nil), path...))
				}
			} else if !visiting[target] {
				visiting[target] = true
				walk(target)
				delete(visiting, target)
			}

			path = path[:len(path)-1]
		}
	}

	walk(lead)
	return cycles
}

// leftEdge is one child index of a rule table paired with the rule-table
// index control lands on without consuming a token.
type leftEdge struct {
	childIndex int
	target     int
}

// leftEdges returns, in child-index order, every reachable "first
// position" edge of rt — the edges a left-recursion search must follow.
// A Data/Identifier/Literal/Null child or a non-rule ChildRef terminates
// the search (it consumes a token or matches nothing), so it contributes
// no edge. An index-ordered slice, not a map, so cyclesFor's DFS visits
// edges in declaration order and FindCycles/recursion.Analyze's output
// ordering is deterministic across runs of the same grammar.
func (f *finder) leftEdges(rt *grammar.RuleTable) []leftEdge {
	var edges []leftEdge
	switch rt.Kind {
	case grammar.OneOf:
		for i, c := range rt.Children {
			if c.Kind == grammar.RefRule {
				edges = append(edges, leftEdge{childIndex: i, target: c.RuleIndex})
			}
		}
	case grammar.Concatenate, grammar.ZeroOrMore, grammar.ZeroOrOne:
		if len(rt.Children) > 0 && rt.Children[0].Kind == grammar.RefRule {
			edges = append(edges, leftEdge{childIndex: 0, target: rt.Children[0].RuleIndex})
		}
	}
	return edges
}

func pathKey(path []grammar.Front) string {
	b := make([]byte, 0, len(path)*8)
	for _, f := range path {
		b = appendInt(b, f.RuleIndex)
		b = append(b, ',')
		b = appendInt(b, f.ChildIndex)
		b = append(b, ';')
	}
	return string(b)
}

func appendInt(b []byte, n int) []byte {
	if n == 0 {
		return append(b, '0')
	}
	if n < 0 {
		b = append(b, '-')
		n = -n
	}
	start := len(b)
	for n > 0 {
		b = append(b, byte('0'+n%10))
		n /= 10
	}
	for i, j := start, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}
