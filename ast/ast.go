// Package ast builds a caller-defined typed tree out of a sorted, already
// simplified appeal tree, invoking the action registered for each rule
// table's grammar.Action entries with the already-built child nodes named
// by the action's argument indices as input. It is a minimal concrete
// driver for the "AST node factory" collaborator spec.md treats as an
// external interface, standing in for the original's explicit stack-based
// BuildAST pass.
package ast

import (
	"fmt"

	"github.com/waveparse/waveparse/parser"
)

// Node is one built tree node: a named, positioned, already-action-
// processed result. Value holds whatever the rule's action(s) computed,
// nil if the rule carries no action (a plain grouping/terminal node whose
// Children or Text is the payload).
type Node struct {
	Name     string
	Text     string
	StartPos int
	EndPos   int
	Value    any
	Children []*Node
}

// Tree is the built result of one ast.Build call.
type Tree struct {
	Root *Node
}

// ActionFunc computes one rule table's AST value from its already-built
// argument nodes, in the order grammar.Action.Args names them.
type ActionFunc func(args []*Node) (any, error)

// ActionRegistry maps a grammar.Action.Name to the Go function that
// implements it; callers populate one after loading a grammar and before
// calling Build.
type ActionRegistry struct {
	actions map[string]ActionFunc
}

// NewActionRegistry creates an empty registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: make(map[string]ActionFunc)}
}

// Register binds name to fn. Registering the same name twice overwrites
// the previous binding.
func (r *ActionRegistry) Register(name string, fn ActionFunc) {
	r.actions[name] = fn
}

// Build walks root's sorted appeal tree bottom-up (post-order, matching
// the original's explicit stack-based BuildAST) and returns the resulting
// Tree. An action invocation that returns an error aborts the build and
// propagates that error to the caller.
func Build(root *parser.AppealNode, reg *ActionRegistry) (*Tree, error) {
	node, err := buildNode(root, reg)
	if err != nil {
		return nil, err
	}
	return &Tree{Root: node}, nil
}

func buildNode(n *parser.AppealNode, reg *ActionRegistry) (*Node, error) {
	if n == nil {
		return nil, nil
	}

	children := n.SortedChildren
	if children == nil {
		children = n.Children
	}

	built := make([]*Node, 0, len(children))
	bySlot := make(map[int]*Node, len(children))
	for _, c := range children {
		cn, err := buildNode(c, reg)
		if err != nil {
			return nil, err
		}
		if cn == nil {
			continue
		}
		built = append(built, cn)
		if c.SimplifiedIndex >= 0 {
			bySlot[c.SimplifiedIndex] = cn
		}
	}

	name := ""
	if n.Rule != nil {
		name = n.Rule.Name
	} else if n.Ref != nil {
		name = n.Ref.Text
		if name == "" {
			name = n.Ref.TypeName
		}
	}

	node := &Node{
		Name:     name,
		Text:     n.Text(),
		StartPos: n.StartPos,
		EndPos:   n.EndPos,
		Children: built,
	}

	if n.Rule == nil {
		return node, nil
	}

	for _, action := range n.Rule.Actions {
		fn, ok := reg.actions[action.Name]
		if !ok {
			return nil, fmt.Errorf("ast: no action registered for %q (rule %s)", action.Name, n.Rule.Name)
		}

		args := make([]*Node, 0, len(action.Args))
		for _, idx := range action.Args {
			// Resolve by declared Concatenate slot first (SimplifiedIndex,
			// spec.md §3) so %N still addresses the right child when an
			// earlier ZEROORONE/ZEROORMORE sibling matched zero and isn't
			// in built at all; fall back to positional indexing for rule
			// kinds that never populate SimplifiedIndex (OneOf, bare
			// terminals), where declared position and built position
			// always coincide.
			arg, ok := bySlot[idx]
			if !ok {
				if idx < 0 || idx >= len(built) {
					return nil, fmt.Errorf("ast: action %q on rule %s references out-of-range argument %d", action.Name, n.Rule.Name, idx)
				}
				arg = built[idx]
			}
			args = append(args, arg)
		}

		val, err := fn(args)
		if err != nil {
			return nil, fmt.Errorf("ast: action %q on rule %s: %w", action.Name, n.Rule.Name, err)
		}
		node.Value = val
	}

	return node, nil
}
