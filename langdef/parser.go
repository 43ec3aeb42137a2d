// Package langdef compiles a textual, EBNF-like grammar description into
// a *grammar.Grammar, the way the teacher's own langdef package converted
// its grammar description into a *grammar.Grammar of its own (different)
// shape. The surface syntax:
//
//	top Program;
//	keywords if, else, while;
//	token IDENT = identifier;
//	token INT = literal;
//
//	rule Program : ZEROORMORE(Statement);
//	rule Statement : ONEOF(IfStmt, ExprStmt);
//	rule ExprStmt : Expr + ";" ==> exprStmt(%1);
//	rule Expr : ONEOF(AddExpr, Term);
//	rule AddExpr : Expr + "+" + Term ==> add(%1, %3);
//
// ONEOF/ZEROORMORE/ZEROORONE read as ordinary function-call syntax over a
// comma-separated argument list; '+' is concatenation; '|' is also
// accepted as OneOf's infix spelling; '*'/'?' postfix on an atom are
// shorthand for wrapping it in ZEROORMORE/ZEROORONE. `==> name(%1, %2)`
// attaches a grammar.Action to the rule being declared as a whole — a
// OneOf alternative that needs its own action gets pulled out into its
// own named rule (AddExpr above) rather than carrying the action inline,
// since one rule table carries at most the one action bound to it as a
// whole. %N is one-based in the spec text, stored zero-based in
// Action.Args per DESIGN.md's resolution of the cycle-index-encoding Open
// Question.
//
// Parse also runs recdetect.FindCycles over the finished grammar and
// stores the result on Grammar.Cycles, since no separate code-generation
// build step exists in this module — the original's offline recdetect
// pass becomes part of loading.
package langdef

import (
	"fmt"

	"github.com/waveparse/waveparse/grammar"
	"github.com/waveparse/waveparse/lexer"
	"github.com/waveparse/waveparse/recdetect"
)

// Result is everything Parse recovers from a grammar-spec text: the
// compiled grammar plus the lexical metadata (keywords, token type names)
// a caller needs to build a matching lexer.Lexer.
type Result struct {
	Grammar    *grammar.Grammar
	Keywords   []string
	TokenKinds map[string]lexer.Kind
}

// Parse compiles src into a Result. Returns a *waveparse.Error (via
// newSyntaxError/newSemanticError) on any malformed or semantically
// invalid input; never panics on caller input.
func Parse(src []byte) (*Result, error) {
	p := &parser{sc: newScanner(src), g: grammar.New(), ruleIndex: make(map[string]int), tokenKinds: make(map[string]lexer.Kind)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.parseDocument(); err != nil {
		return nil, err
	}
	if err := p.resolveBodies(); err != nil {
		return nil, err
	}

	p.g.Cycles = recdetect.FindCycles(p.g)

	return &Result{Grammar: p.g, Keywords: p.keywords, TokenKinds: p.tokenKinds}, nil
}

type ruleDecl struct {
	name string
	body *exprNode
	act  *grammar.Action
}

type parser struct {
	sc  *scanner
	cur tok

	g          *grammar.Grammar
	ruleIndex  map[string]int // name -> grammar.Rules index, filled as soon as a rule is declared
	tokenKinds map[string]lexer.Kind
	keywords   []string

	decls   []ruleDecl
	anonSeq int
}

func (p *parser) advance() error {
	t, err := p.sc.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) atPunct(s string) bool {
	return p.cur.kind == tkPunct && p.cur.text == s
}

func (p *parser) expectPunct(s string) error {
	if !p.atPunct(s) {
		return newSyntaxError(p.cur.line, "expected %q, got %q", s, p.cur.text)
	}
	return p.advance()
}

func (p *parser) expectIdent() (string, error) {
	if p.cur.kind != tkIdent {
		return "", newSyntaxError(p.cur.line, "expected identifier, got %q", p.cur.text)
	}
	name := p.cur.text
	return name, p.advance()
}

// parseDocument reads every top-level statement (top/keywords/token/rule)
// until EOF, pre-registering every named rule (so forward references
// resolve) but deferring body resolution to resolveBodies.
func (p *parser) parseDocument() error {
	for p.cur.kind != tkEOF {
		if p.cur.kind != tkIdent {
			return newSyntaxError(p.cur.line, "expected a top-level declaration, got %q", p.cur.text)
		}

		switch p.cur.text {
		case "top":
			if err := p.parseTop(); err != nil {
				return err
			}
		case "keywords":
			if err := p.parseKeywords(); err != nil {
				return err
			}
		case "token":
			if err := p.parseToken(); err != nil {
				return err
			}
		case "rule":
			if err := p.parseRule(); err != nil {
				return err
			}
		default:
			return newSyntaxError(p.cur.line, "unknown declaration %q", p.cur.text)
		}
	}
	return nil
}

func (p *parser) parseNameList() ([]string, error) {
	var names []string
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if p.atPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return names, p.expectPunct(";")
}

func (p *parser) parseTop() error {
	if err := p.advance(); err != nil { // consume "top"
		return err
	}
	names, err := p.parseNameList()
	if err != nil {
		return err
	}
	p.g.TopRules = append(p.g.TopRules, names...)
	return nil
}

func (p *parser) parseKeywords() error {
	if err := p.advance(); err != nil {
		return err
	}
	names, err := p.parseNameList()
	if err != nil {
		return err
	}
	p.keywords = append(p.keywords, names...)
	return nil
}

func (p *parser) parseToken() error {
	if err := p.advance(); err != nil { // consume "token"
		return err
	}
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.expectPunct("="); err != nil {
		return err
	}
	kindName, err := p.expectIdent()
	if err != nil {
		return err
	}
	kind, ok := parseTokenKindName(kindName)
	if !ok {
		return newSemanticError(p.cur.line, "unknown token kind %q", kindName)
	}
	p.tokenKinds[name] = kind
	return p.expectPunct(";")
}

func parseTokenKindName(name string) (lexer.Kind, bool) {
	switch name {
	case "identifier":
		return lexer.Identifier, true
	case "keyword":
		return lexer.Keyword, true
	case "literal":
		return lexer.Literal, true
	case "separator":
		return lexer.Separator, true
	case "operator":
		return lexer.Operator, true
	case "comment":
		return lexer.Comment, true
	default:
		return lexer.NA, false
	}
}

// parseRule reads `rule NAME : <expr> [==> [func] name(%i, ...)] ;`,
// pre-registers NAME as a grammar rule table (reserving its index so
// later rules may reference it before its body is resolved), and stashes
// the parsed body expression for resolveBodies.
func (p *parser) parseRule() error {
	if err := p.advance(); err != nil { // consume "rule"
		return err
	}
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	if _, exists := p.ruleIndex[name]; exists {
		return newSemanticError(p.cur.line, "duplicate rule %q", name)
	}
	if err := p.expectPunct(":"); err != nil {
		return err
	}

	body, err := p.parseExpr()
	if err != nil {
		return err
	}

	var act *grammar.Action
	if p.cur.kind == tkArrow {
		act, err = p.parseAction()
		if err != nil {
			return err
		}
	}

	if err := p.expectPunct(";"); err != nil {
		return err
	}

	rt := p.g.AddRule(&grammar.RuleTable{Name: name})
	p.ruleIndex[name] = rt.Index
	p.decls = append(p.decls, ruleDecl{name: name, body: body, act: act})
	return nil
}

func (p *parser) parseAction() (*grammar.Action, error) {
	if err := p.advance(); err != nil { // consume "==>"
		return nil, err
	}
	if p.cur.kind == tkIdent && p.cur.text == "func" {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}

	act := &grammar.Action{Name: name}
	if !p.atPunct(")") {
		for {
			if p.cur.kind != tkPercent {
				return nil, newSyntaxError(p.cur.line, "expected %%N argument reference, got %q", p.cur.text)
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.kind != tkNumber {
				return nil, newSyntaxError(p.cur.line, "expected number after %%, got %q", p.cur.text)
			}
			n := atoiOrZero(p.cur.text)
			act.Args = append(act.Args, n-1) // 1-based in spec text -> 0-based
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.atPunct(",") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return act, nil
}

func atoiOrZero(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// exprNode is langdef's own parse tree for one rule body, resolved into
// grammar.RuleTable/ChildRef values by resolveBodies once every rule name
// is known.
type exprNode struct {
	kind     grammar.Kind
	children []*exprNode // OneOf alternatives / Concatenate elements
	child    *exprNode   // ZeroOrMore/ZeroOrOne body

	// atom fields, valid when kind == grammar.Data and children/child are nil
	isString bool
	text     string
	name     string
	line     int
}

// parseExpr parses ONEOF(...) | concat '|' concat | ... at the top.
func (p *parser) parseExpr() (*exprNode, error) {
	first, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	alts := []*exprNode{first}
	for p.atPunct("|") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		alts = append(alts, next)
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return &exprNode{kind: grammar.OneOf, children: alts}, nil
}

func (p *parser) parseConcat() (*exprNode, error) {
	first, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	elems := []*exprNode{first}
	for p.atPunct("+") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		elems = append(elems, next)
	}
	if len(elems) == 1 {
		return elems[0], nil
	}
	return &exprNode{kind: grammar.Concatenate, children: elems}, nil
}

func (p *parser) parsePostfix() (*exprNode, error) {
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		if p.atPunct("*") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			atom = &exprNode{kind: grammar.ZeroOrMore, child: atom}
			continue
		}
		if p.atPunct("?") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			atom = &exprNode{kind: grammar.ZeroOrOne, child: atom}
			continue
		}
		break
	}
	return atom, nil
}

func (p *parser) parseAtom() (*exprNode, error) {
	line := p.cur.line

	if p.atPunct("(") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	}

	if p.cur.kind == tkString {
		text := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &exprNode{kind: grammar.Data, isString: true, text: text, line: line}, nil
	}

	if p.cur.kind == tkIdent {
		name := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if funcKind, ok := parseFuncKeyword(name); ok {
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			switch funcKind {
			case grammar.OneOf:
				return &exprNode{kind: grammar.OneOf, children: args}, nil
			case grammar.Concatenate:
				return &exprNode{kind: grammar.Concatenate, children: args}, nil
			case grammar.ZeroOrMore:
				if len(args) != 1 {
					return nil, newSyntaxError(line, "ZEROORMORE takes exactly one argument")
				}
				return &exprNode{kind: grammar.ZeroOrMore, child: args[0]}, nil
			case grammar.ZeroOrOne:
				if len(args) != 1 {
					return nil, newSyntaxError(line, "ZEROORONE takes exactly one argument")
				}
				return &exprNode{kind: grammar.ZeroOrOne, child: args[0]}, nil
			}
		}
		return &exprNode{kind: grammar.Data, name: name, line: line}, nil
	}

	return nil, newSyntaxError(line, "expected an atom, got %q", p.cur.text)
}

func parseFuncKeyword(name string) (grammar.Kind, bool) {
	switch name {
	case "ONEOF":
		return grammar.OneOf, true
	case "CONCAT":
		return grammar.Concatenate, true
	case "ZEROORMORE":
		return grammar.ZeroOrMore, true
	case "ZEROORONE":
		return grammar.ZeroOrOne, true
	default:
		return grammar.Null, false
	}
}

func (p *parser) parseArgList() ([]*exprNode, error) {
	var args []*exprNode
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.atPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return args, nil
}

// resolveBodies fills in rule.Kind/Children/Actions for every declared
// rule, in declaration order, creating anonymous sub-rules for nested
// expressions as it goes.
func (p *parser) resolveBodies() error {
	for _, d := range p.decls {
		rt := p.g.RuleAt(p.ruleIndex[d.name])
		if err := p.fillRule(rt, d.body); err != nil {
			return err
		}
		if d.act != nil {
			rt.Actions = append(rt.Actions, *d.act)
		}
	}

	for _, name := range p.g.TopRules {
		if _, ok := p.ruleIndex[name]; !ok {
			return newSemanticError(0, "top rule %q is not declared", name)
		}
	}

	return nil
}

func (p *parser) fillRule(rt *grammar.RuleTable, e *exprNode) error {
	switch e.kind {
	case grammar.Data:
		ref, kind, err := p.resolveAtom(e)
		if err != nil {
			return err
		}
		if kind != grammar.Null {
			rt.Kind = kind
			return nil
		}
		rt.Kind = grammar.Data
		rt.Children = []grammar.ChildRef{ref}
		return nil

	case grammar.OneOf, grammar.Concatenate:
		rt.Kind = e.kind
		for _, c := range e.children {
			ref, err := p.resolveToRef(c)
			if err != nil {
				return err
			}
			rt.Children = append(rt.Children, ref)
		}
		return nil

	case grammar.ZeroOrMore, grammar.ZeroOrOne:
		rt.Kind = e.kind
		ref, err := p.resolveToRef(e.child)
		if err != nil {
			return err
		}
		rt.Children = []grammar.ChildRef{ref}
		return nil
	}
	return fmt.Errorf("langdef: unreachable expr kind %v", e.kind)
}

// resolveToRef turns e into a ChildRef: a bare atom resolves directly to
// a literal/type-token/rule reference with no new rule table; anything
// more complex gets an anonymous rule table of its own.
func (p *parser) resolveToRef(e *exprNode) (grammar.ChildRef, error) {
	if e.kind == grammar.Data {
		ref, kind, err := p.resolveAtom(e)
		if err != nil {
			return grammar.ChildRef{}, err
		}
		if kind == grammar.Null {
			return ref, nil
		}
		// a bare "identifier"/"literal" atom used inside a larger
		// expression (not as a whole rule body) needs its own rule table
		// since ChildRef cannot express "any identifier-kind token"
		// directly — only RefTypeToken (named) and the literal kinds can.
		anon := p.g.AddRule(&grammar.RuleTable{Name: p.anonName(), Kind: kind})
		return grammar.ChildRef{Kind: grammar.RefRule, RuleIndex: anon.Index}, nil
	}

	anon := p.g.AddRule(&grammar.RuleTable{Name: p.anonName()})
	if err := p.fillRule(anon, e); err != nil {
		return grammar.ChildRef{}, err
	}
	return grammar.ChildRef{Kind: grammar.RefRule, RuleIndex: anon.Index}, nil
}

func (p *parser) anonName() string {
	p.anonSeq++
	return fmt.Sprintf("$anon%d", p.anonSeq)
}

// resolveAtom resolves a Data exprNode leaf. It returns either a direct
// ChildRef (literal text, a named token type, or a reference to another
// rule), or, for the two bare builtin names, a grammar.Kind the caller
// should adopt directly on its own rule table instead of wrapping in a
// ChildRef.
func (p *parser) resolveAtom(e *exprNode) (grammar.ChildRef, grammar.Kind, error) {
	if e.isString {
		ref := grammar.ChildRef{Kind: grammar.RefLiteralString, Text: e.text}
		if len([]rune(e.text)) == 1 {
			ref.Kind = grammar.RefLiteralChar
		}
		return ref, grammar.Null, nil
	}

	switch e.name {
	case "identifier":
		return grammar.ChildRef{}, grammar.Identifier, nil
	case "literal":
		return grammar.ChildRef{}, grammar.Literal, nil
	}

	if idx, ok := p.ruleIndex[e.name]; ok {
		return grammar.ChildRef{Kind: grammar.RefRule, RuleIndex: idx}, grammar.Null, nil
	}
	if _, ok := p.tokenKinds[e.name]; ok {
		return grammar.ChildRef{Kind: grammar.RefTypeToken, TypeName: e.name}, grammar.Null, nil
	}

	return grammar.ChildRef{}, grammar.Null, newSemanticError(e.line, "undefined identifier %q", e.name)
}
