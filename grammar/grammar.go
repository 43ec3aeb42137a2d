// Package grammar holds the static, read-only rule-table description of a
// language: the data a langdef.Parse call produces and a parser.Engine
// matches tokens against.
package grammar

// Kind identifies the shape of a RuleTable's body.
type Kind int

const (
	// Null is the empty rule table, matching nothing, consuming nothing.
	Null Kind = iota
	// OneOf matches any of its children; every alternative that matches is
	// kept (only the first one, in declaration order, under SingleMatch).
	OneOf
	// Concatenate matches every child in order.
	Concatenate
	// ZeroOrMore matches its single child zero or more times.
	ZeroOrMore
	// ZeroOrOne matches its single child zero or one time.
	ZeroOrOne
	// Data matches its single child: a literal, a type tag, or another rule table.
	Data
	// Identifier matches any identifier-kind token.
	Identifier
	// Literal matches any literal-kind token.
	Literal
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "Null"
	case OneOf:
		return "OneOf"
	case Concatenate:
		return "Concatenate"
	case ZeroOrMore:
		return "ZeroOrMore"
	case ZeroOrOne:
		return "ZeroOrOne"
	case Data:
		return "Data"
	case Identifier:
		return "Identifier"
	case Literal:
		return "Literal"
	default:
		return "Unknown"
	}
}

// RefKind tags what a ChildRef points at.
type RefKind int

const (
	// RefRule references another RuleTable by index.
	RefRule RefKind = iota
	// RefLiteralString matches an exact token text (a keyword or punctuation string).
	RefLiteralString
	// RefLiteralChar matches an exact single-character token.
	RefLiteralChar
	// RefTypeToken matches any token tagged with a named lexer type (e.g. "INT", "STRING").
	RefTypeToken
)

// ChildRef is one element of a RuleTable's body: another rule table, or a
// terminal described directly (a literal string/char or a named token type).
type ChildRef struct {
	Kind RefKind

	// RuleIndex is valid when Kind == RefRule: the index into Grammar.Rules.
	RuleIndex int

	// Text is valid when Kind is RefLiteralString or RefLiteralChar.
	Text string

	// TypeName is valid when Kind == RefTypeToken.
	TypeName string
}

// Properties are per-RuleTable flags.
type Properties int

const (
	// SingleMatch makes a OneOf rule table stop at its first alternative
	// (in declaration order) that matches, instead of keeping every one.
	SingleMatch Properties = 1 << iota
	// Top marks a rule table eligible as a top-level parse target.
	Top
)

// Action is a post-match AST-construction hint attached to a RuleTable:
// "call the action named Name, passing sorted-tree children at Args (by
// 0-based child index) as arguments". Concatenate/OneOf rule tables may
// carry more than one, one per alternative/arity they support.
type Action struct {
	Name string
	Args []int
}

// RuleTable is one named grammar rule, compiled to a fixed Kind and an
// ordered list of children. It is the grammar package's only structural
// type: OneOf/Concatenate/ZeroOrMore/ZeroOrOne/Data/Identifier/Literal/Null
// all share this shape, differing only in Kind and how Children is read.
type RuleTable struct {
	// Index is this rule table's position in Grammar.Rules; stable for the
	// lifetime of the Grammar and used as the recursion analyzer's node id.
	Index int

	Name string
	Kind Kind

	// Children holds, in declaration order:
	//   OneOf / Concatenate: every alternative/element;
	//   ZeroOrMore / ZeroOrOne: exactly one element, the repeated/optional body;
	//   Data: a single ref (a terminal or another rule table);
	//   Identifier / Literal / Null: none.
	Children []ChildRef

	Properties Properties
	Actions    []Action
}

func (rt *RuleTable) Is(p Properties) bool {
	return rt.Properties&p != 0
}

// Grammar is the immutable, read-only set of rule tables that make up a
// language description, plus the precomputed left-recursion cycle table
// (see recdetect.FindCycles) that the recursion analyzer consumes. A
// Grammar is built once by langdef.Parse and shared read-only across every
// parser.Session derived from it.
type Grammar struct {
	Rules []*RuleTable

	// byName indexes Rules by Name for langdef and diagnostics.
	byName map[string]*RuleTable

	// TopRules names the rules eligible as parse-one-statement targets.
	TopRules []string

	// Cycles is filled in by recdetect.FindCycles once the rule graph is
	// complete; nil until then, and also nil for a grammar with no
	// left-recursive rule tables.
	Cycles CycleTable
}

// CycleTable mirrors recursion.CycleTable without importing the recursion
// package, so grammar has no dependency on it; recdetect bridges the two.
// Each entry is (LeadIndex, Cycles), Cycles a list of front paths from the
// lead rule table back to itself.
type CycleTable []CycleEntry

type CycleEntry struct {
	LeadIndex int
	Cycles    [][]Front
}

// Front identifies one step a cycle takes out of its lead: the rule table
// it passes through and the 0-based index of the child that continues the
// cycle. Mirrors recursion.Front field-for-field so recdetect can convert
// between the two with a plain type conversion.
type Front struct {
	RuleIndex  int
	ChildIndex int
}

// New creates an empty Grammar ready to have rule tables appended via AddRule.
func New() *Grammar {
	return &Grammar{byName: make(map[string]*RuleTable)}
}

// AddRule appends rt to the grammar, assigning rt.Index, and indexes it by
// name. AddRule panics if the name is already taken — grammar construction
// is a closed, single-threaded step performed by langdef, not a runtime path
// that needs to return an error for a caller to recover from.
func (g *Grammar) AddRule(rt *RuleTable) *RuleTable {
	if _, exists := g.byName[rt.Name]; exists {
		panic("grammar: duplicate rule name " + rt.Name)
	}
	rt.Index = len(g.Rules)
	g.Rules = append(g.Rules, rt)
	g.byName[rt.Name] = rt
	return rt
}

// Rule looks up a rule table by name, returning nil if absent.
func (g *Grammar) Rule(name string) *RuleTable {
	return g.byName[name]
}

// RuleAt returns the rule table at the given index, the same index space
// ChildRef.RuleIndex and CycleEntry/Cycle child-index paths use.
func (g *Grammar) RuleAt(index int) *RuleTable {
	if index < 0 || index >= len(g.Rules) {
		return nil
	}
	return g.Rules[index]
}

// IsTop reports whether name is registered as a top-level parse target.
func (g *Grammar) IsTop(name string) bool {
	for _, n := range g.TopRules {
		if n == name {
			return true
		}
	}
	return false
}
