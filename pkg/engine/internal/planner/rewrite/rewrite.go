// Package rewrite implements post-order transformations of logical plans.
//
// A rewrite visits the sources of a node before the node itself. Every rule
// reports whether it produced a new tree, so that callers can keep the
// original node, and every subtree below it, when nothing changed.
package rewrite

import (
	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
)

// TreeIdentity reports whether a rewrite returned the tree it was given.
type TreeIdentity bool

const (
	// SameTree means the returned node is the node that was rewritten.
	SameTree TreeIdentity = false
	// NewTree means the returned node was rebuilt and carries a fresh ID.
	NewTree TreeIdentity = true
)

// Merge returns NewTree if either t or other is NewTree.
func (t TreeIdentity) Merge(other TreeIdentity) TreeIdentity {
	return t || other
}

// Input is passed to a rule together with the node it applies to.
type Input[C any] struct {
	// Sources holds the rewritten sources of the node, in the order of
	// [plan.Node.Sources].
	Sources []plan.Node
	// Changed is NewTree if any of Sources differs from the original source.
	Changed TreeIdentity
	// Context is the value passed to [Rewrite]. It is the same for every
	// node of a traversal.
	Context C
}

// Rules holds one rule per node kind. A rule returns the node it was given
// and SameTree when it has nothing to change and in.Changed is SameTree.
// Otherwise it returns a new node with a fresh ID built on in.Sources.
//
// Embed [Defaults] to only override the rules of the node kinds a rewrite
// cares about.
type Rules[C any] interface {
	TableScan(n *plan.TableScan, in Input[C]) (plan.Node, TreeIdentity, error)
	Values(n *plan.Values, in Input[C]) (plan.Node, TreeIdentity, error)
	Project(n *plan.Project, in Input[C]) (plan.Node, TreeIdentity, error)
	Filter(n *plan.Filter, in Input[C]) (plan.Node, TreeIdentity, error)
	Limit(n *plan.Limit, in Input[C]) (plan.Node, TreeIdentity, error)
	Aggregation(n *plan.Aggregation, in Input[C]) (plan.Node, TreeIdentity, error)
	DistinctLimit(n *plan.DistinctLimit, in Input[C]) (plan.Node, TreeIdentity, error)
	MarkDistinct(n *plan.MarkDistinct, in Input[C]) (plan.Node, TreeIdentity, error)
	RowNumber(n *plan.RowNumber, in Input[C]) (plan.Node, TreeIdentity, error)
	TopNRowNumber(n *plan.TopNRowNumber, in Input[C]) (plan.Node, TreeIdentity, error)
	Window(n *plan.Window, in Input[C]) (plan.Node, TreeIdentity, error)
	Join(n *plan.Join, in Input[C]) (plan.Node, TreeIdentity, error)
	SemiJoin(n *plan.SemiJoin, in Input[C]) (plan.Node, TreeIdentity, error)
	IndexJoin(n *plan.IndexJoin, in Input[C]) (plan.Node, TreeIdentity, error)
}

// Rewrite applies rules to node and all of its descendants, sources first.
// ctx is handed unchanged to every rule.
func Rewrite[C any](rules Rules[C], node plan.Node, ctx C) (plan.Node, TreeIdentity, error) {
	if rules == nil {
		return nil, SameTree, errors.Preconditionf("rules is nil")
	}
	if node == nil {
		return nil, SameTree, errors.Preconditionf("node is nil")
	}

	sources := node.Sources()
	in := Input[C]{Sources: make([]plan.Node, len(sources)), Context: ctx}
	for i, source := range sources {
		rewritten, identity, err := Rewrite(rules, source, ctx)
		if err != nil {
			return nil, SameTree, err
		}
		in.Sources[i] = rewritten
		in.Changed = in.Changed.Merge(identity)
	}

	switch n := node.(type) {
	case *plan.TableScan:
		return rules.TableScan(n, in)
	case *plan.Values:
		return rules.Values(n, in)
	case *plan.Project:
		return rules.Project(n, in)
	case *plan.Filter:
		return rules.Filter(n, in)
	case *plan.Limit:
		return rules.Limit(n, in)
	case *plan.Aggregation:
		return rules.Aggregation(n, in)
	case *plan.DistinctLimit:
		return rules.DistinctLimit(n, in)
	case *plan.MarkDistinct:
		return rules.MarkDistinct(n, in)
	case *plan.RowNumber:
		return rules.RowNumber(n, in)
	case *plan.TopNRowNumber:
		return rules.TopNRowNumber(n, in)
	case *plan.Window:
		return rules.Window(n, in)
	case *plan.Join:
		return rules.Join(n, in)
	case *plan.SemiJoin:
		return rules.SemiJoin(n, in)
	case *plan.IndexJoin:
		return rules.IndexJoin(n, in)
	default:
		return nil, SameTree, errors.NotImplementedf("rewrite of node %s (%T)", node.Type(), node)
	}
}
