package parser

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
)

// TraceFlags gates each trace category spec.md's external interface names.
// Every field corresponds 1:1 to a `-trace` value cmd/wavefront accepts.
type TraceFlags struct {
	Table        bool // rule-table entry/exit
	LeftRec      bool // wavefront seed/widen iterations
	Appeal       bool // appeal-tree node creation and status transitions
	Visited      bool // ZeroOrMore/wavefront visited-set membership
	Failed       bool // cache failure remember/reset
	Timing       bool // per-statement elapsed time
	SortOut      bool // sort-out tree reduction
	AstBuild     bool // ast.Build node construction
	PatchWasSucc bool // PatchWasSucc supplemental sort-out
	Warning      bool // non-fatal anomalies (e.g. unreachable alternative)
}

// tracer bundles a *logrus.Logger with the per-session correlation id and
// the TraceFlags gating which categories actually log, so every trace call
// site in matcher.go/wavefront.go/sortout.go is a one-line, allocation-free
// no-op when its category is off.
type tracer struct {
	log    *logrus.Logger
	flags  TraceFlags
	sessID string
}

func newTracer(log *logrus.Logger, flags TraceFlags) *tracer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &tracer{log: log, flags: flags, sessID: uuid.NewString()}
}

func (t *tracer) entry(category string) *logrus.Entry {
	return t.log.WithField("trace", category).WithField("parseID", t.sessID)
}

func (t *tracer) table(format string, args ...any) {
	if t.flags.Table {
		t.entry("table").Debugf(format, args...)
	}
}

func (t *tracer) leftRec(format string, args ...any) {
	if t.flags.LeftRec {
		t.entry("left-rec").Debugf(format, args...)
	}
}

func (t *tracer) appeal(format string, args ...any) {
	if t.flags.Appeal {
		t.entry("appeal").Debugf(format, args...)
	}
}

func (t *tracer) visited(format string, args ...any) {
	if t.flags.Visited {
		t.entry("visited").Debugf(format, args...)
	}
}

func (t *tracer) failed(format string, args ...any) {
	if t.flags.Failed {
		t.entry("failed").Debugf(format, args...)
	}
}

func (t *tracer) timing(format string, args ...any) {
	if t.flags.Timing {
		t.entry("timing").Infof(format, args...)
	}
}

func (t *tracer) warning(format string, args ...any) {
	if t.flags.Warning {
		t.entry("warning").Warnf(format, args...)
	}
}

func (t *tracer) patchWasSucc(format string, args ...any) {
	if t.flags.PatchWasSucc {
		t.entry("patch-was-succ").Debugf(format, args...)
	}
}

// sortOutTree renders the sorted appeal tree under root as a pterm tree,
// replacing the original's indentation-counted DumpSortOutNode dump, and
// logs it through the "sortout" category.
func (t *tracer) sortOutTree(root *AppealNode) {
	if !t.flags.SortOut || root == nil {
		return
	}
	rendered, err := pterm.DefaultTree.WithRoot(appealToTreeNode(root)).Srender()
	if err != nil {
		t.entry("sortout").Warnf("tree render failed: %v", err)
		return
	}
	t.entry("sortout").Debug(rendered)
}

func appealToTreeNode(n *AppealNode) pterm.TreeNode {
	label := nodeLabel(n)
	children := n.SortedChildren
	if children == nil {
		children = n.Children
	}
	tn := pterm.TreeNode{Text: label}
	for _, c := range children {
		tn.Children = append(tn.Children, appealToTreeNode(c))
	}
	return tn
}

func nodeLabel(n *AppealNode) string {
	name := "?"
	if n.Rule != nil {
		name = n.Rule.Name
	} else if n.Ref != nil {
		name = n.Ref.Text
		if name == "" {
			name = n.Ref.TypeName
		}
	}
	if n.Token != nil {
		return fmt.Sprintf("%s %q [%d,%d) %s", name, n.Token.Text(), n.StartPos, n.EndPos, n.Status)
	}
	return fmt.Sprintf("%s [%d,%d) %s", name, n.StartPos, n.EndPos, n.Status)
}
