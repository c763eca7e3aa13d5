package executor

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
)

// LimitOperator passes through the first rows of its input, up to a limit.
// It finishes as soon as the limit is reached.
type LimitOperator struct {
	ctx       *OperatorContext
	schema    *arrow.Schema
	remaining int64

	pending   Page
	finishing bool
}

var _ Operator = (*LimitOperator)(nil)

func (o *LimitOperator) Context() *OperatorContext   { return o.ctx }
func (o *LimitOperator) OutputSchema() *arrow.Schema { return o.schema }
func (*LimitOperator) IsBlocked() <-chan struct{}    { return NotBlocked }

func (o *LimitOperator) NeedsInput() bool {
	return !o.finishing && o.pending == nil && o.remaining > 0
}

func (o *LimitOperator) AddInput(page Page) error {
	if err := errors.CheckNotNil(page != nil, "page"); err != nil {
		return err
	}
	defer page.Release()
	if !o.NeedsInput() {
		return errors.InvalidStatef("limit does not need input")
	}
	o.ctx.RecordInput(page)

	// Slice the page so that it only contains the rows within the limit.
	// The limit may cross page boundaries.
	end := min(o.remaining, page.NumRows())
	o.remaining -= end

	if end == page.NumRows() {
		page.Retain()
		o.pending = page
		return nil
	}
	o.pending = page.NewSlice(0, end)
	return nil
}

func (o *LimitOperator) Output() (Page, error) {
	page := o.pending
	o.pending = nil
	o.ctx.RecordOutput(page)
	return page, nil
}

func (o *LimitOperator) Finish() { o.finishing = true }

func (o *LimitOperator) IsFinished() bool {
	return o.pending == nil && (o.finishing || o.remaining <= 0)
}

func (o *LimitOperator) Close() error {
	if o.pending != nil {
		o.pending.Release()
		o.pending = nil
	}
	return nil
}

// LimitFactory creates [LimitOperator]s.
type LimitFactory struct {
	factoryState
	count int64
}

var _ OperatorFactory = (*LimitFactory)(nil)

// NewLimitFactory creates a factory of operators executing node on pages of
// the given schema.
func NewLimitFactory(node *plan.Limit, schema *arrow.Schema) (*LimitFactory, error) {
	if err := errors.CheckNotNil(node != nil, "limit"); err != nil {
		return nil, err
	}
	if node.Count < 0 {
		return nil, errors.Preconditionf("limit count must not be negative, got %d", node.Count)
	}
	return &LimitFactory{
		factoryState: factoryState{id: node.ID(), typeName: "Limit", schema: schema},
		count:        node.Count,
	}, nil
}

// CreateOperator implements OperatorFactory.
func (f *LimitFactory) CreateOperator(ctx *DriverContext) (Operator, error) {
	oc, err := f.newOperatorContext(ctx)
	if err != nil {
		return nil, err
	}
	return &LimitOperator{ctx: oc, schema: f.schema, remaining: f.count}, nil
}
