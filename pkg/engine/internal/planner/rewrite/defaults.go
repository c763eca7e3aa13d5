package rewrite

import (
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
)

// Defaults implements [Rules] with the default rule for every node kind: a
// node is rebuilt with a fresh ID from IDs if one of its sources changed,
// and returned as is otherwise.
type Defaults[C any] struct {
	IDs *plan.IDAllocator
}

var _ Rules[struct{}] = Defaults[struct{}]{}

// Default applies the default rule to n.
func (d Defaults[C]) Default(n plan.Node, in Input[C]) (plan.Node, TreeIdentity, error) {
	if in.Changed == SameTree {
		return n, SameTree, nil
	}
	return n.WithSources(d.IDs.Next(), in.Sources), NewTree, nil
}

func (d Defaults[C]) TableScan(n *plan.TableScan, in Input[C]) (plan.Node, TreeIdentity, error) {
	return d.Default(n, in)
}

func (d Defaults[C]) Values(n *plan.Values, in Input[C]) (plan.Node, TreeIdentity, error) {
	return d.Default(n, in)
}

func (d Defaults[C]) Project(n *plan.Project, in Input[C]) (plan.Node, TreeIdentity, error) {
	return d.Default(n, in)
}

func (d Defaults[C]) Filter(n *plan.Filter, in Input[C]) (plan.Node, TreeIdentity, error) {
	return d.Default(n, in)
}

func (d Defaults[C]) Limit(n *plan.Limit, in Input[C]) (plan.Node, TreeIdentity, error) {
	return d.Default(n, in)
}

func (d Defaults[C]) Aggregation(n *plan.Aggregation, in Input[C]) (plan.Node, TreeIdentity, error) {
	return d.Default(n, in)
}

func (d Defaults[C]) DistinctLimit(n *plan.DistinctLimit, in Input[C]) (plan.Node, TreeIdentity, error) {
	return d.Default(n, in)
}

func (d Defaults[C]) MarkDistinct(n *plan.MarkDistinct, in Input[C]) (plan.Node, TreeIdentity, error) {
	return d.Default(n, in)
}

func (d Defaults[C]) RowNumber(n *plan.RowNumber, in Input[C]) (plan.Node, TreeIdentity, error) {
	return d.Default(n, in)
}

func (d Defaults[C]) TopNRowNumber(n *plan.TopNRowNumber, in Input[C]) (plan.Node, TreeIdentity, error) {
	return d.Default(n, in)
}

func (d Defaults[C]) Window(n *plan.Window, in Input[C]) (plan.Node, TreeIdentity, error) {
	return d.Default(n, in)
}

func (d Defaults[C]) Join(n *plan.Join, in Input[C]) (plan.Node, TreeIdentity, error) {
	return d.Default(n, in)
}

func (d Defaults[C]) SemiJoin(n *plan.SemiJoin, in Input[C]) (plan.Node, TreeIdentity, error) {
	return d.Default(n, in)
}

func (d Defaults[C]) IndexJoin(n *plan.IndexJoin, in Input[C]) (plan.Node, TreeIdentity, error) {
	return d.Default(n, in)
}
