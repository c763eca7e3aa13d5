package executor

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
)

// FinishedOperator produces no rows and is finished from the start. It
// stands in for the reader of a source that never received a split.
type FinishedOperator struct {
	ctx    *OperatorContext
	schema *arrow.Schema
}

var _ Operator = (*FinishedOperator)(nil)

// NewFinishedOperator creates a FinishedOperator.
func NewFinishedOperator(ctx *OperatorContext, schema *arrow.Schema) *FinishedOperator {
	return &FinishedOperator{ctx: ctx, schema: schema}
}

func (o *FinishedOperator) Context() *OperatorContext   { return o.ctx }
func (o *FinishedOperator) OutputSchema() *arrow.Schema { return o.schema }
func (*FinishedOperator) NeedsInput() bool              { return false }
func (*FinishedOperator) Output() (Page, error)         { return nil, nil }
func (*FinishedOperator) IsBlocked() <-chan struct{}    { return NotBlocked }
func (*FinishedOperator) Finish()                       {}
func (*FinishedOperator) IsFinished() bool              { return true }
func (*FinishedOperator) Close() error                  { return nil }

func (*FinishedOperator) AddInput(page Page) error {
	if page != nil {
		page.Release()
	}
	return errors.Unsupportedf("finished operator can not take input")
}
