package executor

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
)

// FilterOperator keeps the rows of its input for which a predicate is
// true. Rows where the predicate is null are dropped.
type FilterOperator struct {
	ctx       *OperatorContext
	schema    *arrow.Schema
	predicate plan.Expression
	evaluator *expressionEvaluator

	pending   Page
	finishing bool
}

var _ Operator = (*FilterOperator)(nil)

func (o *FilterOperator) Context() *OperatorContext   { return o.ctx }
func (o *FilterOperator) OutputSchema() *arrow.Schema { return o.schema }
func (*FilterOperator) IsBlocked() <-chan struct{}    { return NotBlocked }

func (o *FilterOperator) NeedsInput() bool {
	return !o.finishing && o.pending == nil
}

func (o *FilterOperator) AddInput(page Page) error {
	if err := errors.CheckNotNil(page != nil, "page"); err != nil {
		return err
	}
	defer page.Release()
	if !o.NeedsInput() {
		return errors.InvalidStatef("filter does not need input")
	}
	o.ctx.RecordInput(page)

	res, err := o.evaluator.eval(o.predicate, page)
	if err != nil {
		return err
	}
	// The predicate is only used for filtering and is not part of the
	// output.
	defer res.Release()

	keep, ok := res.(*array.Boolean)
	if !ok {
		return errors.Preconditionf("filter predicate returned non-boolean type %s", res.DataType())
	}

	filtered, err := filterPage(o.ctx.Allocator(), page, keep)
	if err != nil {
		return err
	}
	o.pending = filtered
	return nil
}

func (o *FilterOperator) Output() (Page, error) {
	page := o.pending
	o.pending = nil
	o.ctx.RecordOutput(page)
	return page, nil
}

func (o *FilterOperator) Finish() { o.finishing = true }

func (o *FilterOperator) IsFinished() bool { return o.finishing && o.pending == nil }

func (o *FilterOperator) Close() error {
	if o.pending != nil {
		o.pending.Release()
		o.pending = nil
	}
	return nil
}

// filterPage returns the rows of page for which keep is true, or nil if
// there are none. Runs of kept rows are sliced out of page and
// concatenated.
func filterPage(alloc memory.Allocator, page Page, keep *array.Boolean) (Page, error) {
	type run struct{ start, end int64 }

	var (
		runs  []run
		total int64
		start int64 = -1
	)
	for i := range int64(keep.Len()) {
		if keep.IsValid(int(i)) && keep.Value(int(i)) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			runs = append(runs, run{start, i})
			total += i - start
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, run{start, int64(keep.Len())})
		total += int64(keep.Len()) - start
	}

	switch len(runs) {
	case 0:
		return nil, nil
	case 1:
		return page.NewSlice(runs[0].start, runs[0].end), nil
	}

	cols := make([]arrow.Array, 0, page.NumCols())
	defer func() {
		for _, col := range cols {
			col.Release()
		}
	}()

	for i := range int(page.NumCols()) {
		parts := make([]arrow.Array, 0, len(runs))
		for _, r := range runs {
			parts = append(parts, array.NewSlice(page.Column(i), r.start, r.end))
		}
		col, err := array.Concatenate(parts, alloc)
		for _, part := range parts {
			part.Release()
		}
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return array.NewRecord(page.Schema(), cols, total), nil
}

// FilterFactory creates [FilterOperator]s.
type FilterFactory struct {
	factoryState
	predicate plan.Expression
}

var _ OperatorFactory = (*FilterFactory)(nil)

// NewFilterFactory creates a factory of operators executing node on pages
// of the given schema.
func NewFilterFactory(node *plan.Filter, schema *arrow.Schema) (*FilterFactory, error) {
	if err := errors.CheckNotNil(node != nil, "filter"); err != nil {
		return nil, err
	}
	if err := errors.CheckNotNil(node.Predicate != nil, "filter predicate"); err != nil {
		return nil, err
	}
	return &FilterFactory{
		factoryState: factoryState{id: node.ID(), typeName: "Filter", schema: schema},
		predicate:    node.Predicate,
	}, nil
}

// CreateOperator implements OperatorFactory.
func (f *FilterFactory) CreateOperator(ctx *DriverContext) (Operator, error) {
	oc, err := f.newOperatorContext(ctx)
	if err != nil {
		return nil, err
	}
	return &FilterOperator{
		ctx:       oc,
		schema:    f.schema,
		predicate: f.predicate,
		evaluator: newExpressionEvaluator(oc.Allocator()),
	}, nil
}
