package executor

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
)

// ValuesOperator returns a fixed list of pages. It is a source that needs no
// splits.
type ValuesOperator struct {
	ctx      *OperatorContext
	schema   *arrow.Schema
	pages    []Page
	finished bool
}

var _ Operator = (*ValuesOperator)(nil)

// NewValuesOperator creates a ValuesOperator returning pages in order. The
// operator takes ownership of pages.
func NewValuesOperator(ctx *OperatorContext, schema *arrow.Schema, pages ...Page) *ValuesOperator {
	return &ValuesOperator{ctx: ctx, schema: schema, pages: pages}
}

func (o *ValuesOperator) Context() *OperatorContext   { return o.ctx }
func (o *ValuesOperator) OutputSchema() *arrow.Schema { return o.schema }
func (*ValuesOperator) NeedsInput() bool              { return false }
func (*ValuesOperator) IsBlocked() <-chan struct{}    { return NotBlocked }

func (*ValuesOperator) AddInput(page Page) error {
	if page != nil {
		page.Release()
	}
	return errors.Unsupportedf("values can not take input")
}

func (o *ValuesOperator) Output() (Page, error) {
	if o.finished || len(o.pages) == 0 {
		return nil, nil
	}
	page := o.pages[0]
	o.pages[0] = nil
	o.pages = o.pages[1:]

	o.ctx.RecordOutput(page)
	return page, nil
}

// Finish drops the pages that have not been returned yet.
func (o *ValuesOperator) Finish() {
	o.finished = true
	o.releasePages()
}

func (o *ValuesOperator) IsFinished() bool { return o.finished || len(o.pages) == 0 }

func (o *ValuesOperator) Close() error {
	o.releasePages()
	return nil
}

func (o *ValuesOperator) releasePages() {
	for _, page := range o.pages {
		page.Release()
	}
	o.pages = nil
}

// ValuesFactory creates [ValuesOperator]s that all return the same pages.
type ValuesFactory struct {
	factoryState
	pages []Page
}

var _ OperatorFactory = (*ValuesFactory)(nil)

// NewValuesFactory creates a ValuesFactory. The factory takes ownership of
// pages and releases them when closed.
func NewValuesFactory(id plan.NodeID, schema *arrow.Schema, pages ...Page) *ValuesFactory {
	return &ValuesFactory{
		factoryState: factoryState{id: id, typeName: "Values", schema: schema},
		pages:        pages,
	}
}

// CreateOperator implements OperatorFactory.
func (f *ValuesFactory) CreateOperator(ctx *DriverContext) (Operator, error) {
	oc, err := f.newOperatorContext(ctx)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, len(f.pages))
	for i, page := range f.pages {
		page.Retain()
		pages[i] = page
	}
	return NewValuesOperator(oc, f.schema, pages...), nil
}

// Close implements OperatorFactory.
func (f *ValuesFactory) Close() {
	if !f.closed.CompareAndSwap(false, true) {
		return
	}
	for _, page := range f.pages {
		page.Release()
	}
	f.pages = nil
}
