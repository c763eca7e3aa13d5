// Package executor runs physical operators inside single-threaded pipelines.
//
// Every operator, source or not, implements the same non-blocking protocol
// ([Operator]). A [Driver] moves pages between the operators of a pipeline,
// while splits may be assigned to its source from other goroutines.
package executor

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
)

// Page is a batch of rows flowing between operators. Ownership of a page
// moves with it: the receiver of a page must release it.
type Page = arrow.Record

// NotBlocked is the readiness channel of an operator that can make progress
// right away. It is always closed.
var NotBlocked <-chan struct{} = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Operator is the protocol implemented by all physical operators. Methods of
// an operator are called from a single goroutine at a time, and never block
// on I/O: an operator that waits for something reports it through
// IsBlocked.
type Operator interface {
	// Context returns the context of the operator.
	Context() *OperatorContext

	// OutputSchema returns the schema of the pages returned by Output.
	OutputSchema() *arrow.Schema

	// NeedsInput reports whether the operator accepts a page through
	// AddInput.
	NeedsInput() bool

	// AddInput passes page to the operator, which takes ownership of it.
	// AddInput must only be called when NeedsInput returns true.
	AddInput(page Page) error

	// Output returns the next page of the operator, or nil if there is no
	// page available right now. The caller owns the returned page.
	Output() (Page, error)

	// IsBlocked returns a channel that is closed once the operator can
	// make progress. Operators that are ready return [NotBlocked].
	IsBlocked() <-chan struct{}

	// Finish signals that no more input will be added. Finish may be
	// called more than once.
	Finish()

	// IsFinished reports whether the operator will not return any more
	// pages.
	IsFinished() bool

	// Close releases the resources held by the operator.
	Close() error
}

// SourceOperator is an operator that reads data from splits instead of
// receiving pages from other operators. Splits are assigned from any
// goroutine, concurrently with the methods of [Operator].
type SourceOperator interface {
	Operator

	// SourceID returns the ID of the plan node the operator reads for.
	SourceID() plan.NodeID

	// AddSplit assigns split to the operator.
	AddSplit(split Split) error

	// NoMoreSplits signals that no further splits will be assigned.
	NoMoreSplits()
}

// Split describes a unit of work of a connector, such as a part of a file.
type Split interface {
	// Info returns diagnostic information about the split, or nil.
	Info() any
}

// ColumnHandle references a physical column of a connector.
type ColumnHandle interface {
	Name() string
}

// DataStreamProvider creates the operators reading the rows of a split.
type DataStreamProvider interface {
	// CreateStream returns an operator producing the columns of split.
	// The returned operator shares ctx with the source operator calling
	// CreateStream.
	CreateStream(ctx *OperatorContext, split Split, columns []ColumnHandle) (Operator, error)
}

// DataStreamProviderFunc adapts a function to a [DataStreamProvider].
type DataStreamProviderFunc func(ctx *OperatorContext, split Split, columns []ColumnHandle) (Operator, error)

// CreateStream implements DataStreamProvider.
func (f DataStreamProviderFunc) CreateStream(ctx *OperatorContext, split Split, columns []ColumnHandle) (Operator, error) {
	return f(ctx, split, columns)
}
