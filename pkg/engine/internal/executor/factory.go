package executor

import (
	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/atomic"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
)

// OperatorFactory creates the operators of one plan node, one per driver.
type OperatorFactory interface {
	// OperatorID returns the ID of the plan node the operators execute.
	OperatorID() plan.NodeID

	// OutputSchema returns the schema of the pages of the created
	// operators.
	OutputSchema() *arrow.Schema

	// CreateOperator creates a new operator for the driver of ctx. It fails
	// once the factory is closed.
	CreateOperator(ctx *DriverContext) (Operator, error)

	// Close marks the factory as unusable. Close is idempotent.
	Close()
}

// SourceOperatorFactory is an OperatorFactory creating [SourceOperator]s.
type SourceOperatorFactory interface {
	OperatorFactory

	// SourceID returns the ID of the plan node the sources read for.
	SourceID() plan.NodeID
}

// factoryState holds the parts shared by all factories.
type factoryState struct {
	id       plan.NodeID
	typeName string
	schema   *arrow.Schema
	closed   atomic.Bool
}

func (f *factoryState) OperatorID() plan.NodeID     { return f.id }
func (f *factoryState) OutputSchema() *arrow.Schema { return f.schema }
func (f *factoryState) Close()                      { f.closed.Store(true) }

// newOperatorContext registers a context for a new operator with ctx.
func (f *factoryState) newOperatorContext(ctx *DriverContext) (*OperatorContext, error) {
	if err := errors.CheckNotNil(ctx != nil, "driver context"); err != nil {
		return nil, err
	}
	if f.closed.Load() {
		return nil, errors.InvalidStatef("%s factory is already closed", f.typeName)
	}
	return ctx.AddOperatorContext(f.id, f.typeName), nil
}

// TableScanFactory creates [TableScan] operators.
type TableScanFactory struct {
	factoryState
	provider DataStreamProvider
	columns  []ColumnHandle
}

var _ SourceOperatorFactory = (*TableScanFactory)(nil)

// NewTableScanFactory creates a factory of table scans for the plan node
// sourceID, reading columns with provider.
func NewTableScanFactory(sourceID plan.NodeID, schema *arrow.Schema, provider DataStreamProvider, columns []ColumnHandle) (*TableScanFactory, error) {
	if err := errors.CheckNotNil(provider != nil, "data stream provider"); err != nil {
		return nil, err
	}
	return &TableScanFactory{
		factoryState: factoryState{id: sourceID, typeName: "TableScan", schema: schema},
		provider:     provider,
		columns:      columns,
	}, nil
}

// SourceID implements SourceOperatorFactory.
func (f *TableScanFactory) SourceID() plan.NodeID { return f.id }

// CreateOperator implements OperatorFactory. The returned operator is a
// [*TableScan].
func (f *TableScanFactory) CreateOperator(ctx *DriverContext) (Operator, error) {
	oc, err := f.newOperatorContext(ctx)
	if err != nil {
		return nil, err
	}
	return NewTableScan(oc, f.id, f.schema, f.provider, f.columns)
}
