package executor

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
)

// ProjectOperator computes one output column per assignment of a
// [plan.Project]. Hash projections added by the planner are executed by it.
type ProjectOperator struct {
	ctx         *OperatorContext
	schema      *arrow.Schema
	assignments []plan.Assignment
	evaluator   *expressionEvaluator

	pending   Page
	finishing bool
}

var _ Operator = (*ProjectOperator)(nil)

func (o *ProjectOperator) Context() *OperatorContext   { return o.ctx }
func (o *ProjectOperator) OutputSchema() *arrow.Schema { return o.schema }
func (*ProjectOperator) IsBlocked() <-chan struct{}    { return NotBlocked }

func (o *ProjectOperator) NeedsInput() bool {
	return !o.finishing && o.pending == nil
}

func (o *ProjectOperator) AddInput(page Page) error {
	if err := errors.CheckNotNil(page != nil, "page"); err != nil {
		return err
	}
	defer page.Release()
	if !o.NeedsInput() {
		return errors.InvalidStatef("project does not need input")
	}
	o.ctx.RecordInput(page)

	columns := make([]arrow.Array, 0, len(o.assignments))
	defer func() {
		for _, col := range columns {
			col.Release()
		}
	}()

	for _, a := range o.assignments {
		col, err := o.evaluator.eval(a.Expr, page)
		if err != nil {
			return err
		}
		columns = append(columns, col)
	}

	o.pending = array.NewRecord(o.schema, columns, page.NumRows())
	return nil
}

func (o *ProjectOperator) Output() (Page, error) {
	page := o.pending
	o.pending = nil
	o.ctx.RecordOutput(page)
	return page, nil
}

func (o *ProjectOperator) Finish() { o.finishing = true }

func (o *ProjectOperator) IsFinished() bool { return o.finishing && o.pending == nil }

func (o *ProjectOperator) Close() error {
	if o.pending != nil {
		o.pending.Release()
		o.pending = nil
	}
	return nil
}

// ProjectFactory creates [ProjectOperator]s.
type ProjectFactory struct {
	factoryState
	assignments []plan.Assignment
}

var _ OperatorFactory = (*ProjectFactory)(nil)

// NewProjectFactory creates a factory of operators executing node on pages
// of the input schema.
func NewProjectFactory(node *plan.Project, input *arrow.Schema) (*ProjectFactory, error) {
	if err := errors.CheckNotNil(node != nil, "project"); err != nil {
		return nil, err
	}
	if err := errors.CheckNotNil(input != nil, "input schema"); err != nil {
		return nil, err
	}

	evaluator := newExpressionEvaluator(nil)
	fields := make([]arrow.Field, 0, len(node.Assignments))
	for _, a := range node.Assignments {
		field, err := evaluator.resultField(a.Symbol.Name, a.Expr, input)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}

	return &ProjectFactory{
		factoryState: factoryState{id: node.ID(), typeName: "Project", schema: arrow.NewSchema(fields, nil)},
		assignments:  node.Assignments,
	}, nil
}

// CreateOperator implements OperatorFactory.
func (f *ProjectFactory) CreateOperator(ctx *DriverContext) (Operator, error) {
	oc, err := f.newOperatorContext(ctx)
	if err != nil {
		return nil, err
	}
	return &ProjectOperator{
		ctx:         oc,
		schema:      f.schema,
		assignments: f.assignments,
		evaluator:   newExpressionEvaluator(oc.Allocator()),
	}, nil
}
